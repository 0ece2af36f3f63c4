package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/config"
	"aadhaar-seva/internal/pkg/jwt"
	"aadhaar-seva/internal/pkg/password"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAadhaarRegistered  = errors.New("Aadhaar number already registered")
	ErrEmailRegistered    = errors.New("Email already registered")
	ErrPhoneRegistered    = errors.New("Phone number already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo         repositories.UserRepository
	recordRepo       repositories.AadhaarRecordRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	otpService       *OTPService
	cfg              *config.Config
	now              func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	recordRepo repositories.AadhaarRecordRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	otpService *OTPService,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		recordRepo:       recordRepo,
		refreshTokenRepo: refreshTokenRepo,
		otpService:       otpService,
		cfg:              cfg,
		now:              time.Now,
	}
}

// SignupInput represents signup input
type SignupInput struct {
	AadhaarNumber string `json:"aadhaar_number" validate:"required,aadhaar"`
	FullName      string `json:"full_name" validate:"required,max=150"`
	Email         string `json:"email" validate:"required,email"`
	PhoneNumber   string `json:"phone_number" validate:"required,phone"`
	Password      string `json:"password" validate:"required,min=6"`
	DateOfBirth   string `json:"date_of_birth" validate:"omitempty,isodate"`
	Gender        string `json:"gender" validate:"omitempty,oneof=male female other"`
	Address       string `json:"address"`
}

// LoginInput represents login input. Citizens log in with their Aadhaar
// number; staff accounts without a record log in with email.
type LoginInput struct {
	AadhaarNumber string `json:"aadhaar_number" validate:"omitempty,aadhaar"`
	Email         string `json:"email" validate:"omitempty,email"`
	Password      string `json:"password" validate:"required"`
}

// OTPLoginInput represents login with a login OTP
type OTPLoginInput struct {
	AadhaarNumber string `json:"aadhaar_number" validate:"required,aadhaar"`
	Code          string `json:"otp" validate:"required,len=6,numeric"`
}

// ResetPasswordInput represents a password reset confirmed by OTP
type ResetPasswordInput struct {
	AadhaarNumber string `json:"aadhaar_number" validate:"required,aadhaar"`
	Code          string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword   string `json:"new_password" validate:"required,min=6"`
}

// ChangePasswordInput represents an authenticated password change
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User          *models.UserResponse  `json:"user"`
	AadhaarRecord *models.AadhaarRecord `json:"aadhaarRecord,omitempty"`
	AccessToken   string                `json:"access_token"`
	RefreshToken  string                `json:"refresh_token"`
}

// Signup registers a citizen: the user and the Aadhaar record are created together
func (s *AuthService) Signup(ctx context.Context, input *SignupInput) (*AuthResponse, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.FullName = strings.TrimSpace(input.FullName)

	// 1. Validate fields
	if err := validateInput(input); err != nil {
		return nil, err
	}

	// 2. Existence checks, all before any write
	exists, err := s.recordRepo.ExistsByNumber(ctx, input.AadhaarNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAadhaarRegistered
	}

	exists, err = s.userRepo.ExistsByEmail(ctx, input.Email)
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

	// 3. Hash password
	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	// 4. Create user and record in one transaction
	user := &models.User{
		Email:       input.Email,
		PhoneNumber: input.PhoneNumber,
		Password:    hashedPassword,
		Role:        models.RoleUser,
		IsActive:    true,
	}
	record := &models.AadhaarRecord{
		AadhaarNumber:   input.AadhaarNumber,
		FullName:        input.FullName,
		DateOfBirth:     input.DateOfBirth,
		Gender:          input.Gender,
		Address:         input.Address,
		Email:           input.Email,
		PhoneNumber:     input.PhoneNumber,
		BiometricStatus: models.BiometricPending,
	}

	if err := s.userRepo.CreateWithAadhaarRecord(ctx, user, record); err != nil {
		// lost a race with a concurrent signup for the same identity
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAadhaarRegistered
		}
		return nil, err
	}

	// 5. Issue tokens
	resp, err := s.issueSession(ctx, user, record)
	if err != nil {
		return nil, err
	}

	log.Info().Uint("user_id", user.ID).Uint("record_id", record.ID).Msg("✅ Citizen registered")
	return resp, nil
}

// Login authenticates with Aadhaar number (or staff email) and password
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.AadhaarNumber == "" && input.Email == "" {
		return nil, invalid("aadhaar_number or email is required")
	}

	// 1. Resolve user (and record)
	var (
		user   *models.User
		record *models.AadhaarRecord
		err    error
	)
	if input.AadhaarNumber != "" {
		record, err = s.recordRepo.GetByNumber(ctx, input.AadhaarNumber)
		if err == nil {
			user = record.User
			if user == nil {
				user, err = s.userRepo.GetByID(ctx, record.UserID)
			}
		}
	} else {
		user, err = s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
		if err == nil {
			record, err = s.optionalRecord(ctx, user.ID)
		}
	}
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Verify password
	if !password.Verify(input.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	// 3. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 4. Stamp last login
	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	resp, err := s.issueSession(ctx, user, record)
	if err != nil {
		return nil, err
	}

	log.Info().Uint("user_id", user.ID).Msg("✅ User logged in")
	return resp, nil
}

// LoginWithOTP authenticates with a login OTP instead of a password
func (s *AuthService) LoginWithOTP(ctx context.Context, input *OTPLoginInput) (*AuthResponse, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if _, err := s.otpService.Verify(ctx, &VerifyOTPInput{
		AadhaarNumber: input.AadhaarNumber,
		Type:          models.OTPTypeLogin,
		Code:          input.Code,
	}); err != nil {
		return nil, err
	}

	record, err := s.recordRepo.GetByNumber(ctx, input.AadhaarNumber)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, record.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	log.Info().Uint("user_id", user.ID).Msg("✅ User logged in with OTP")
	return s.issueSession(ctx, user, record)
}

// ResetPassword replaces the password after a password_reset OTP and ends every session
func (s *AuthService) ResetPassword(ctx context.Context, input *ResetPasswordInput) error {
	if err := validateInput(input); err != nil {
		return err
	}

	if _, err := s.otpService.Verify(ctx, &VerifyOTPInput{
		AadhaarNumber: input.AadhaarNumber,
		Type:          models.OTPTypePasswordReset,
		Code:          input.Code,
	}); err != nil {
		return err
	}

	record, err := s.recordRepo.GetByNumber(ctx, input.AadhaarNumber)
	if err != nil {
		if isNotFound(err) {
			return ErrAadhaarNotFound
		}
		return err
	}

	if err := s.setPassword(ctx, record.UserID, input.NewPassword); err != nil {
		return err
	}

	log.Info().Uint("user_id", record.UserID).Msg("🔑 Password reset")
	return nil
}

// ChangePassword replaces the password of a logged-in user and ends every session
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, input *ChangePasswordInput) error {
	if err := validateInput(input); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	if !password.Verify(input.CurrentPassword, user.Password) {
		return ErrWrongPassword
	}

	return s.setPassword(ctx, user.ID, input.NewPassword)
}

// RefreshToken refreshes the access token using refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	// 1. Validate refresh token JWT
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	// 2. Find token in DB by hash
	storedToken, err := s.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	// 3. Check if token is revoked or expired
	if storedToken.IsRevoked() {
		return nil, ErrTokenRevoked
	}
	if storedToken.IsExpired() {
		return nil, ErrTokenExpired
	}

	// 4. Get user
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 5. Revoke old refresh token (Token Rotation)
	if err := s.refreshTokenRepo.Revoke(ctx, storedToken.ID); err != nil {
		return nil, err
	}

	record, err := s.optionalRecord(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	log.Debug().Uint("user_id", user.ID).Msg("Token refreshed")
	return s.issueSession(ctx, user, record)
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(refreshToken))
}

// LogoutAll revokes all refresh tokens for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID); err != nil {
		return err
	}

	log.Info().Uint("user_id", userID).Msg("✅ All sessions revoked")
	return nil
}

// Profile is the current user with their Aadhaar record, if any
type Profile struct {
	User          *models.UserResponse  `json:"user"`
	AadhaarRecord *models.AadhaarRecord `json:"aadhaarRecord,omitempty"`
}

// Me returns the profile of the authenticated user
func (s *AuthService) Me(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	record, err := s.optionalRecord(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Profile{User: userResponse(user, record), AadhaarRecord: record}, nil
}

// PurgeRefreshTokens deletes expired and revoked refresh tokens
func (s *AuthService) PurgeRefreshTokens(ctx context.Context) (int64, error) {
	return s.refreshTokenRepo.DeleteExpired(ctx)
}

func (s *AuthService) setPassword(ctx context.Context, userID uint, plain string) error {
	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hashed); err != nil {
		return err
	}
	return s.refreshTokenRepo.RevokeAllByUserID(ctx, userID)
}

func (s *AuthService) optionalRecord(ctx context.Context, userID uint) (*models.AadhaarRecord, error) {
	record, err := s.recordRepo.GetByUserID(ctx, userID)
	if isNotFound(err) {
		return nil, nil
	}
	return record, err
}

// issueSession generates a token pair, stores the refresh token and builds the response
func (s *AuthService) issueSession(ctx context.Context, user *models.User, record *models.AadhaarRecord) (*AuthResponse, error) {
	tokens, err := s.generateTokens(user, record)
	if err != nil {
		return nil, err
	}
	if err := s.storeRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:          userResponse(user, record),
		AadhaarRecord: record,
		AccessToken:   tokens.AccessToken,
		RefreshToken:  tokens.RefreshToken,
	}, nil
}

// generateTokens generates access and refresh tokens
func (s *AuthService) generateTokens(user *models.User, record *models.AadhaarRecord) (*TokenPair, error) {
	sub := jwt.AccessSubject{UserID: user.ID, Role: user.Role}
	if record != nil {
		sub.AadhaarRecordID = record.ID
		sub.AadhaarNumber = record.AadhaarNumber
	}

	accessToken, err := jwt.GenerateAccessToken(sub, s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(
		user.ID,
		uuid.New().String(),
		s.cfg.JWT.RefreshSecret,
		s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// storeRefreshToken stores a refresh token in the database
func (s *AuthService) storeRefreshToken(ctx context.Context, userID uint, refreshToken string) error {
	token := &models.RefreshToken{
		UserID:    userID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	}

	return s.refreshTokenRepo.Create(ctx, token)
}

func userResponse(user *models.User, record *models.AadhaarRecord) *models.UserResponse {
	resp := user.ToResponse()
	if record != nil {
		resp.AadhaarNumber = record.AadhaarNumber
		resp.FullName = record.FullName
	}
	return resp
}
