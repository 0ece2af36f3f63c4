package services

import (
	"context"
	"errors"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/pkg/cache"
	"aadhaar-seva/internal/pkg/pagination"

	"github.com/rs/zerolog/log"
)

// FraudTypeOTPAbuse is raised by repeated failed OTP verification
const FraudTypeOTPAbuse = "otp_abuse"

// Fraud errors
var (
	ErrFraudLogNotFound = errors.New("Fraud log not found")
	ErrAlreadyResolved  = errors.New("Fraud log is already resolved")
	ErrInvalidSeverity  = errors.New("Invalid severity")
)

// FraudService records and resolves fraud log entries
type FraudService struct {
	fraudRepo repositories.FraudLogRepository
	cache     cache.Store
	now       func() time.Time
}

// NewFraudService creates a new fraud service
func NewFraudService(fraudRepo repositories.FraudLogRepository, store cache.Store) *FraudService {
	if store == nil {
		store = cache.Noop{}
	}
	return &FraudService{
		fraudRepo: fraudRepo,
		cache:     store,
		now:       time.Now,
	}
}

// FraudLogInput represents a staff-reported fraud entry
type FraudLogInput struct {
	AadhaarNumber string `json:"aadhaar_number" validate:"omitempty,aadhaar"`
	FraudType     string `json:"fraud_type" validate:"required,max=50"`
	Severity      string `json:"severity" validate:"required"`
	Description   string `json:"description" validate:"max=2000"`
}

// Report stores an entry raised by another service
func (s *FraudService) Report(ctx context.Context, entry *models.FraudLog) error {
	if entry.Severity == "" {
		entry.Severity = models.SeverityLow
	}
	if err := s.fraudRepo.Create(ctx, entry); err != nil {
		return err
	}

	s.invalidate(ctx)
	log.Warn().
		Str("fraud_type", entry.FraudType).
		Str("severity", entry.Severity).
		Msg("🚨 Fraud log recorded")
	return nil
}

// Create stores an entry reported by staff
func (s *FraudService) Create(ctx context.Context, input *FraudLogInput, ipAddress string) (*models.FraudLog, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if !IsSeverity(input.Severity) {
		return nil, ErrInvalidSeverity
	}

	entry := &models.FraudLog{
		AadhaarNumber: input.AadhaarNumber,
		FraudType:     input.FraudType,
		Severity:      input.Severity,
		Description:   input.Description,
		IPAddress:     ipAddress,
	}
	if err := s.Report(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// List lists entries, optionally by resolved flag
func (s *FraudService) List(ctx context.Context, resolved *bool, params *pagination.Params) ([]*models.FraudLog, int64, error) {
	return s.fraudRepo.List(ctx, resolved, params)
}

// Get returns one entry
func (s *FraudService) Get(ctx context.Context, id uint) (*models.FraudLog, error) {
	entry, err := s.fraudRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrFraudLogNotFound
		}
		return nil, err
	}
	return entry, nil
}

// Resolve marks an entry resolved by the given staff member
func (s *FraudService) Resolve(ctx context.Context, id, resolverID uint) (*models.FraudLog, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if err := s.fraudRepo.Resolve(ctx, id, resolverID, s.now()); err != nil {
		if errors.Is(err, repositories.ErrStatusChanged) {
			return nil, ErrAlreadyResolved
		}
		return nil, err
	}

	s.invalidate(ctx)
	return s.Get(ctx, id)
}

func (s *FraudService) invalidate(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, dashboardCachePrefix); err != nil {
		log.Warn().Err(err).Msg("⚠️ Cache invalidation failed")
	}
}

// IsSeverity reports whether severity is a known fraud severity
func IsSeverity(severity string) bool {
	switch severity {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
		return true
	}
	return false
}
