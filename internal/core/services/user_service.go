package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/pkg/pagination"
	"aadhaar-seva/internal/pkg/password"

	"github.com/rs/zerolog/log"
)

// User service errors
var (
	ErrCannotChangeOwnRole  = errors.New("cannot change your own role")
	ErrCannotDeactivateSelf = errors.New("cannot deactivate your own account")
	ErrInvalidRole          = errors.New("Invalid role")
	ErrInvalidBiometric     = errors.New("Invalid biometric status")
)

// UserService handles user management business logic
type UserService struct {
	userRepo         repositories.UserRepository
	recordRepo       repositories.AadhaarRecordRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	now              func() time.Time
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	recordRepo repositories.AadhaarRecordRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
) *UserService {
	return &UserService{
		userRepo:         userRepo,
		recordRepo:       recordRepo,
		refreshTokenRepo: refreshTokenRepo,
		now:              time.Now,
	}
}

// UpdateUserByAdminInput represents update user input (for admin)
type UpdateUserByAdminInput struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// CreateStaffInput represents a new officer or admin account
type CreateStaffInput struct {
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	Password    string `json:"password" validate:"required,min=6"`
	Role        string `json:"role" validate:"required,oneof=OFFICER ADMIN"`
}

// BiometricInput represents a biometric status change
type BiometricInput struct {
	Status string `json:"status" validate:"required"`
}

// ListUsers lists users with pagination
func (s *UserService) ListUsers(ctx context.Context, filter repositories.UserFilter, params *pagination.Params) ([]*models.UserResponse, int64, error) {
	if filter.Role != "" && !isRole(filter.Role) {
		return nil, 0, ErrInvalidRole
	}

	users, total, err := s.userRepo.List(ctx, filter, params)
	if err != nil {
		return nil, 0, err
	}

	result := make([]*models.UserResponse, len(users))
	for i, u := range users {
		result[i] = u.ToResponse()
	}
	return result, total, nil
}

// GetUserByID gets a user with its Aadhaar record
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	record, err := s.recordRepo.GetByUserID(ctx, id)
	if isNotFound(err) {
		record, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Profile{User: userResponse(user, record), AadhaarRecord: record}, nil
}

// CreateStaff creates an officer or admin account without an Aadhaar record
func (s *UserService) CreateStaff(ctx context.Context, input *CreateStaffInput) (*models.UserResponse, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateInput(input); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailRegistered
	}
	exists, err = s.userRepo.ExistsByPhone(ctx, input.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrPhoneRegistered
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:       input.Email,
		PhoneNumber: input.PhoneNumber,
		Password:    hashed,
		Role:        input.Role,
		IsActive:    true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Str("email", user.Email).Str("role", user.Role).Msg("✅ Staff account created")
	return user.ToResponse(), nil
}

// UpdateUserByAdmin changes a user's role or active flag.
// Deactivation revokes the user's refresh tokens.
func (s *UserService) UpdateUserByAdmin(ctx context.Context, id, adminID uint, input *UpdateUserByAdminInput) (*Profile, error) {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if input.Role != nil {
		if id == adminID {
			return nil, ErrCannotChangeOwnRole
		}
		if !isRole(*input.Role) {
			return nil, ErrInvalidRole
		}
		if err := s.userRepo.UpdateRole(ctx, id, *input.Role); err != nil {
			return nil, err
		}
	}

	if input.IsActive != nil {
		if id == adminID && !*input.IsActive {
			return nil, ErrCannotDeactivateSelf
		}
		if err := s.userRepo.SetActive(ctx, id, *input.IsActive); err != nil {
			return nil, err
		}
		if !*input.IsActive {
			if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, id); err != nil {
				return nil, err
			}
		}
	}

	return s.GetUserByID(ctx, id)
}

// UpdateBiometricStatus records a biometric capture outcome on an Aadhaar record
func (s *UserService) UpdateBiometricStatus(ctx context.Context, recordID uint, input *BiometricInput) (*models.AadhaarRecord, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	switch input.Status {
	case models.BiometricPending, models.BiometricCaptured, models.BiometricUpdated:
	default:
		return nil, ErrInvalidBiometric
	}

	if _, err := s.recordRepo.GetByID(ctx, recordID); err != nil {
		if isNotFound(err) {
			return nil, ErrAadhaarNotFound
		}
		return nil, err
	}
	if err := s.recordRepo.UpdateBiometricStatus(ctx, recordID, input.Status, s.now()); err != nil {
		return nil, err
	}
	return s.recordRepo.GetByID(ctx, recordID)
}

func isRole(role string) bool {
	return role == models.RoleUser || role == models.RoleOfficer || role == models.RoleAdmin
}
