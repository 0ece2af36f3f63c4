package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/pkg/pagination"
	"aadhaar-seva/internal/pkg/validator"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Update request errors
var (
	ErrUpdateRequestNotFound = errors.New("Update request not found")
	ErrFieldNotUpdatable     = errors.New("This field cannot be updated")
	ErrNoChange              = errors.New("New value is the same as the current value")
	ErrAlreadyReviewed       = errors.New("Update request has already been reviewed")
	ErrURNUnavailable        = errors.New("could not allocate a unique URN")
)

const urnAttempts = 3

// updatableFields maps each requestable field to the rule its new value must satisfy
var updatableFields = map[string]string{
	"full_name":     "required,max=150",
	"address":       "required,max=1000",
	"email":         "required,email",
	"phone_number":  "required,phone",
	"date_of_birth": "required,isodate",
	"gender":        "required,oneof=male female other",
}

// UpdateHistoryService handles demographic update requests
type UpdateHistoryService struct {
	historyRepo repositories.UpdateHistoryRepository
	recordRepo  repositories.AadhaarRecordRepository
	userRepo    repositories.UserRepository
	apptRepo    repositories.AppointmentRepository
	now         func() time.Time
	newURN      func(time.Time) (string, error)
}

// NewUpdateHistoryService creates a new update history service
func NewUpdateHistoryService(
	historyRepo repositories.UpdateHistoryRepository,
	recordRepo repositories.AadhaarRecordRepository,
	userRepo repositories.UserRepository,
	apptRepo repositories.AppointmentRepository,
) *UpdateHistoryService {
	return &UpdateHistoryService{
		historyRepo: historyRepo,
		recordRepo:  recordRepo,
		userRepo:    userRepo,
		apptRepo:    apptRepo,
		now:         time.Now,
		newURN:      GenerateURN,
	}
}

// UpdateRequestInput represents a field change request
type UpdateRequestInput struct {
	FieldName     string `json:"field_name" validate:"required"`
	NewValue      string `json:"new_value"`
	AppointmentID *uint  `json:"appointment_id"`
}

// RejectInput carries the reason for a rejection
type RejectInput struct {
	Remarks string `json:"remarks" validate:"required,max=255"`
}

// Submit records a pending change to one field of the actor's Aadhaar record
func (s *UpdateHistoryService) Submit(ctx context.Context, actor Actor, input *UpdateRequestInput) (*models.UpdateHistory, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if actor.RecordID == 0 {
		return nil, ErrNoAadhaarRecord
	}

	rule, ok := updatableFields[input.FieldName]
	if !ok {
		return nil, ErrFieldNotUpdatable
	}
	newValue := strings.TrimSpace(input.NewValue)
	if input.FieldName == "email" {
		newValue = strings.ToLower(newValue)
	}
	if err := validator.Var(input.FieldName, newValue, rule); err != nil {
		return nil, invalid(err.Error())
	}
	if err := s.contactAvailable(ctx, input.FieldName, newValue); err != nil {
		return nil, err
	}

	record, err := s.recordRepo.GetByID(ctx, actor.RecordID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAadhaarNotFound
		}
		return nil, err
	}
	oldValue := recordField(record, input.FieldName)
	if oldValue == newValue {
		return nil, ErrNoChange
	}

	if input.AppointmentID != nil {
		appt, err := s.apptRepo.GetByID(ctx, *input.AppointmentID)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrAppointmentNotFound
			}
			return nil, err
		}
		if appt.AadhaarRecordID != record.ID {
			return nil, ErrForbidden
		}
	}

	for attempt := 1; ; attempt++ {
		urn, err := s.newURN(s.now())
		if err != nil {
			return nil, fmt.Errorf("generate urn: %w", err)
		}

		h := &models.UpdateHistory{
			URN:             urn,
			AadhaarRecordID: record.ID,
			AppointmentID:   input.AppointmentID,
			FieldName:       input.FieldName,
			OldValue:        oldValue,
			NewValue:        newValue,
			Status:          models.UpdatePending,
		}
		err = s.historyRepo.Create(ctx, h)
		if err == nil {
			log.Info().Str("urn", urn).Str("field", h.FieldName).Msg("✅ Update request submitted")
			return h, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		if attempt == urnAttempts {
			return nil, ErrURNUnavailable
		}
	}
}

// ListMine lists the actor's update requests
func (s *UpdateHistoryService) ListMine(ctx context.Context, actor Actor) ([]*models.UpdateHistory, error) {
	if actor.RecordID == 0 {
		return []*models.UpdateHistory{}, nil
	}
	return s.historyRepo.ListByRecord(ctx, actor.RecordID)
}

// ListByStatus lists update requests for staff ("" lists all)
func (s *UpdateHistoryService) ListByStatus(ctx context.Context, status string, params *pagination.Params) ([]*models.UpdateHistory, int64, error) {
	return s.historyRepo.ListByStatus(ctx, status, params)
}

// GetByURN returns an update request visible to the actor
func (s *UpdateHistoryService) GetByURN(ctx context.Context, actor Actor, urn string) (*models.UpdateHistory, error) {
	h, err := s.historyRepo.GetByURN(ctx, urn)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUpdateRequestNotFound
		}
		return nil, err
	}
	if !actor.owns(h.AadhaarRecordID) {
		return nil, ErrUpdateRequestNotFound
	}
	return h, nil
}

// Approve applies a pending change to the Aadhaar record and, for contacts, to the user.
// Changing a contact clears its verified flag.
func (s *UpdateHistoryService) Approve(ctx context.Context, reviewerID, id uint) (*models.UpdateHistory, error) {
	h, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{h.FieldName: h.NewValue}
	switch h.FieldName {
	case "email":
		changes["email_verified"] = false
	case "phone_number":
		changes["mobile_verified"] = false
	}

	if err := s.contactAvailable(ctx, h.FieldName, h.NewValue); err != nil {
		return nil, err
	}

	if err := s.historyRepo.Approve(ctx, id, reviewerID, changes, s.now()); err != nil {
		switch {
		case errors.Is(err, repositories.ErrStatusChanged):
			return nil, ErrAlreadyReviewed
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, contactTaken(h.FieldName)
		}
		return nil, err
	}

	log.Info().Str("urn", h.URN).Uint("reviewer", reviewerID).Msg("✅ Update request approved")
	return s.historyRepo.GetByID(ctx, id)
}

// Reject closes a pending request with remarks
func (s *UpdateHistoryService) Reject(ctx context.Context, reviewerID, id uint, input *RejectInput) (*models.UpdateHistory, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if _, err := s.pending(ctx, id); err != nil {
		return nil, err
	}

	if err := s.historyRepo.Reject(ctx, id, reviewerID, input.Remarks, s.now()); err != nil {
		if errors.Is(err, repositories.ErrStatusChanged) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return s.historyRepo.GetByID(ctx, id)
}

// contactAvailable rejects an email or phone number that already belongs to an account
func (s *UpdateHistoryService) contactAvailable(ctx context.Context, field, value string) error {
	var (
		exists bool
		err    error
	)
	switch field {
	case "email":
		exists, err = s.userRepo.ExistsByEmail(ctx, value)
	case "phone_number":
		exists, err = s.userRepo.ExistsByPhone(ctx, value)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if exists {
		return contactTaken(field)
	}
	return nil
}

func contactTaken(field string) error {
	if field == "email" {
		return ErrEmailRegistered
	}
	return ErrPhoneRegistered
}

func (s *UpdateHistoryService) pending(ctx context.Context, id uint) (*models.UpdateHistory, error) {
	h, err := s.historyRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUpdateRequestNotFound
		}
		return nil, err
	}
	if h.Status != models.UpdatePending {
		return nil, ErrAlreadyReviewed
	}
	return h, nil
}

func recordField(record *models.AadhaarRecord, field string) string {
	switch field {
	case "full_name":
		return record.FullName
	case "address":
		return record.Address
	case "email":
		return record.Email
	case "phone_number":
		return record.PhoneNumber
	case "date_of_birth":
		return record.DateOfBirth
	case "gender":
		return record.Gender
	}
	return ""
}

// GenerateURN returns "URN" + YYYYMMDD + 6 random digits
func GenerateURN(at time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("URN%s%06d", at.Format("20060102"), n.Int64()), nil
}
