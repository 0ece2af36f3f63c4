package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/config"

	"github.com/rs/zerolog/log"
)

// OTP errors
var (
	ErrOTPNotFound        = errors.New("invalid OTP")
	ErrOTPInvalid         = errors.New("invalid OTP")
	ErrOTPExpired         = errors.New("OTP has expired")
	ErrOTPExhausted       = errors.New("too many invalid attempts, please request a new OTP")
	ErrInvalidOTPType     = errors.New("invalid OTP type")
	ErrAadhaarNotFound    = errors.New("Aadhaar record not found")
	ErrDestinationMissing = errors.New("destination is required")
)

// otpLength is the number of digits in a code
const otpLength = 6

// otpAbuseThreshold is the failed-attempt count that raises a fraud log entry
const otpAbuseThreshold = 5

var otpTypes = map[string]bool{
	models.OTPTypeSignup:             true,
	models.OTPTypeLogin:              true,
	models.OTPTypeEmailVerification:  true,
	models.OTPTypeMobileVerification: true,
	models.OTPTypePasswordReset:      true,
}

// FraudReporter records suspicious activity
type FraudReporter interface {
	Report(ctx context.Context, entry *models.FraudLog) error
}

// OTPService issues and verifies one-time passwords.
// Per (aadhaar_number, type): none -> issued -> verified | expired | exhausted.
type OTPService struct {
	otpRepo    repositories.OTPRepository
	recordRepo repositories.AadhaarRecordRepository
	notifier   Notifier
	fraud      FraudReporter
	cfg        config.OTPConfig
	now        func() time.Time
}

// NewOTPService creates a new OTP service
func NewOTPService(
	otpRepo repositories.OTPRepository,
	recordRepo repositories.AadhaarRecordRepository,
	notifier Notifier,
	fraud FraudReporter,
	cfg config.OTPConfig,
) *OTPService {
	return &OTPService{
		otpRepo:    otpRepo,
		recordRepo: recordRepo,
		notifier:   notifier,
		fraud:      fraud,
		cfg:        cfg,
		now:        time.Now,
	}
}

// IssueOTPInput represents a send-otp request
type IssueOTPInput struct {
	AadhaarNumber string `json:"aadhaar_number" validate:"required,aadhaar"`
	Type          string `json:"type" validate:"required"`
	Channel       string `json:"channel" validate:"omitempty,oneof=sms email"`
	Destination   string `json:"destination"`
}

// IssuedOTP describes a stored OTP. Code is only meant for development responses.
type IssuedOTP struct {
	Type        string    `json:"type"`
	Channel     string    `json:"channel"`
	Destination string    `json:"destination"`
	ExpiresAt   time.Time `json:"expires_at"`
	Code        string    `json:"-"`
}

// VerifyOTPInput represents a verify-otp request
type VerifyOTPInput struct {
	AadhaarNumber string `json:"aadhaar_number" validate:"required,aadhaar"`
	Type          string `json:"type" validate:"required"`
	Code          string `json:"otp" validate:"required,len=6,numeric"`
}

// Issue generates a code, replaces any unused code for the same (number, type)
// and hands delivery to the notifier in the background
func (s *OTPService) Issue(ctx context.Context, input *IssueOTPInput) (*IssuedOTP, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if !otpTypes[input.Type] {
		return nil, ErrInvalidOTPType
	}

	channel := defaultChannel(input.Type, input.Channel)
	destination, err := s.resolveDestination(ctx, input, channel)
	if err != nil {
		return nil, err
	}

	code, err := generateSecureOTP(otpLength)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	otp := &models.OtpVerification{
		AadhaarNumber: input.AadhaarNumber,
		Type:          input.Type,
		OtpCode:       code,
		Channel:       channel,
		Destination:   destination,
		ExpiresAt:     s.now().Add(s.cfg.Expiry),
	}
	if err := s.otpRepo.ReplaceUnused(ctx, otp); err != nil {
		return nil, err
	}

	s.dispatch(otp)

	log.Info().
		Str("type", otp.Type).
		Str("channel", channel).
		Msg("🔐 OTP issued")

	masked := maskPhone(destination)
	if channel == models.ChannelEmail {
		masked = maskEmail(destination)
	}

	return &IssuedOTP{
		Type:        otp.Type,
		Channel:     channel,
		Destination: masked,
		ExpiresAt:   otp.ExpiresAt,
		Code:        code,
	}, nil
}

// Verify checks a code against the most recent unused OTP for (number, type).
// When fallback is enabled and no such OTP exists, the newest unused OTP of any
// type for the number is used instead.
func (s *OTPService) Verify(ctx context.Context, input *VerifyOTPInput) (*models.OtpVerification, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if !otpTypes[input.Type] {
		return nil, ErrInvalidOTPType
	}

	otp, err := s.otpRepo.LatestUnused(ctx, input.AadhaarNumber, input.Type)
	if isNotFound(err) && s.cfg.TypeFallback {
		otp, err = s.otpRepo.LatestUnused(ctx, input.AadhaarNumber, "")
	}
	if err != nil {
		if isNotFound(err) {
			return nil, ErrOTPNotFound
		}
		return nil, err
	}

	now := s.now()
	if otp.IsExpiredAt(now) {
		return nil, ErrOTPExpired
	}
	if s.cfg.MaxAttempts > 0 && otp.Attempts >= s.cfg.MaxAttempts {
		return nil, ErrOTPExhausted
	}

	if subtle.ConstantTimeCompare([]byte(otp.OtpCode), []byte(input.Code)) != 1 {
		if err := s.otpRepo.IncrementAttempts(ctx, otp.ID); err != nil {
			return nil, err
		}
		s.reportAbuse(ctx, otp)
		return nil, ErrOTPInvalid
	}

	used, err := s.otpRepo.MarkUsed(ctx, otp.ID, now)
	if err != nil {
		return nil, err
	}
	if !used {
		return nil, ErrOTPNotFound
	}
	otp.Used = true
	otp.VerifiedAt = &now

	if err := s.applyVerification(ctx, otp, now); err != nil {
		return nil, err
	}

	log.Info().Str("type", otp.Type).Msg("✅ OTP verified")
	return otp, nil
}

// PurgeExpired deletes OTP rows that expired before the cutoff
func (s *OTPService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.otpRepo.DeleteExpiredBefore(ctx, s.now().Add(-olderThan))
}

// applyVerification flips the record's contact flags for contact verification OTPs
func (s *OTPService) applyVerification(ctx context.Context, otp *models.OtpVerification, at time.Time) error {
	switch otp.Type {
	case models.OTPTypeEmailVerification:
		return s.recordRepo.MarkVerified(ctx, otp.AadhaarNumber, "email_verified", at)
	case models.OTPTypeMobileVerification:
		return s.recordRepo.MarkVerified(ctx, otp.AadhaarNumber, "mobile_verified", at)
	}
	return nil
}

func (s *OTPService) resolveDestination(ctx context.Context, input *IssueOTPInput, channel string) (string, error) {
	record, err := s.recordRepo.GetByNumber(ctx, input.AadhaarNumber)
	if err != nil && !isNotFound(err) {
		return "", err
	}

	if record == nil {
		if input.Type != models.OTPTypeSignup {
			return "", ErrAadhaarNotFound
		}
		if input.Destination == "" {
			return "", ErrDestinationMissing
		}
		return input.Destination, nil
	}

	if input.Type == models.OTPTypeSignup {
		return "", ErrAadhaarRegistered
	}
	if channel == models.ChannelEmail {
		return record.Email, nil
	}
	return record.PhoneNumber, nil
}

func (s *OTPService) dispatch(otp *models.OtpVerification) {
	if s.notifier == nil {
		return
	}

	destination, code, purpose := otp.Destination, otp.OtpCode, otp.Type
	if otp.Channel == models.ChannelEmail {
		deliverAsync("otp email", func(ctx context.Context) error {
			return s.notifier.SendOTPEmail(ctx, destination, code, purpose)
		})
		return
	}
	deliverAsync("otp sms", func(ctx context.Context) error {
		return s.notifier.SendOTPSMS(ctx, destination, code)
	})
}

func (s *OTPService) reportAbuse(ctx context.Context, otp *models.OtpVerification) {
	if s.fraud == nil || otp.Attempts+1 != otpAbuseThreshold {
		return
	}

	entry := &models.FraudLog{
		AadhaarNumber: otp.AadhaarNumber,
		FraudType:     FraudTypeOTPAbuse,
		Severity:      models.SeverityMedium,
		Description:   fmt.Sprintf("%d failed %s OTP attempts", otpAbuseThreshold, otp.Type),
	}
	if err := s.fraud.Report(ctx, entry); err != nil {
		log.Error().Err(err).Msg("❌ Failed to record OTP abuse")
	}
}

func defaultChannel(otpType, requested string) string {
	switch otpType {
	case models.OTPTypeEmailVerification:
		return models.ChannelEmail
	case models.OTPTypeMobileVerification:
		return models.ChannelSMS
	}
	if requested == "" {
		return models.ChannelSMS
	}
	return requested
}

// generateSecureOTP generates a cryptographically secure random OTP
func generateSecureOTP(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
