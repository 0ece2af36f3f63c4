package services

import (
	"context"
	"testing"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func issue(t *testing.T, svc *OTPService, number, otpType string) *IssuedOTP {
	t.Helper()
	issued, err := svc.Issue(context.Background(), &IssueOTPInput{AadhaarNumber: number, Type: otpType})
	require.NoError(t, err)
	require.Len(t, issued.Code, otpLength)
	return issued
}

func verify(svc *OTPService, number, otpType, code string) error {
	_, err := svc.Verify(context.Background(), &VerifyOTPInput{AadhaarNumber: number, Type: otpType, Code: code})
	return err
}

func TestOTPIssueReplacesUnusedForSamePair(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.otpService(nil)
	number := e.fixture.Record.AadhaarNumber

	first := issue(t, svc, number, models.OTPTypeLogin)
	second := issue(t, svc, number, models.OTPTypeLogin)
	issue(t, svc, number, models.OTPTypePasswordReset)

	var count int64
	require.NoError(t, e.db.Model(&models.OtpVerification{}).
		Where("aadhaar_number = ? AND type = ? AND used = ?", number, models.OTPTypeLogin, false).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	if first.Code != second.Code {
		assert.ErrorIs(t, verify(svc, number, models.OTPTypeLogin, first.Code), ErrOTPInvalid)
	}
	assert.NoError(t, verify(svc, number, models.OTPTypeLogin, second.Code))
}

func TestOTPIsSingleUse(t *testing.T) {
	e := newEnv(t, 1)
	e.cfg.OTP.TypeFallback = false
	svc := e.otpService(nil)
	number := e.fixture.Record.AadhaarNumber

	issued := issue(t, svc, number, models.OTPTypeLogin)
	require.NoError(t, verify(svc, number, models.OTPTypeLogin, issued.Code))

	err := verify(svc, number, models.OTPTypeLogin, issued.Code)
	assert.ErrorIs(t, err, ErrOTPNotFound)
	assert.EqualError(t, err, "invalid OTP")
}

func TestOTPExpiredRegardlessOfCode(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.otpService(nil)
	number := e.fixture.Record.AadhaarNumber

	issued := issue(t, svc, number, models.OTPTypeLogin)

	svc.now = func() time.Time { return time.Now().Add(3 * time.Minute) }
	assert.ErrorIs(t, verify(svc, number, models.OTPTypeLogin, issued.Code), ErrOTPExpired)
	assert.ErrorIs(t, verify(svc, number, models.OTPTypeLogin, wrongCode(issued.Code)), ErrOTPExpired)
}

func TestOTPMismatchCountsAttemptAndStaysUsable(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.otpService(nil)
	number := e.fixture.Record.AadhaarNumber

	issued := issue(t, svc, number, models.OTPTypeLogin)
	assert.ErrorIs(t, verify(svc, number, models.OTPTypeLogin, wrongCode(issued.Code)), ErrOTPInvalid)

	var otp models.OtpVerification
	require.NoError(t, e.db.Where("aadhaar_number = ?", number).First(&otp).Error)
	assert.Equal(t, 1, otp.Attempts)
	assert.False(t, otp.Used)

	assert.NoError(t, verify(svc, number, models.OTPTypeLogin, issued.Code))
}

func TestOTPMaxAttempts(t *testing.T) {
	e := newEnv(t, 1)
	e.cfg.OTP.MaxAttempts = 2
	svc := e.otpService(nil)
	number := e.fixture.Record.AadhaarNumber

	issued := issue(t, svc, number, models.OTPTypeLogin)
	bad := wrongCode(issued.Code)
	assert.ErrorIs(t, verify(svc, number, models.OTPTypeLogin, bad), ErrOTPInvalid)
	assert.ErrorIs(t, verify(svc, number, models.OTPTypeLogin, bad), ErrOTPInvalid)
	assert.ErrorIs(t, verify(svc, number, models.OTPTypeLogin, issued.Code), ErrOTPExhausted)
}

func TestOTPTypeFallback(t *testing.T) {
	tests := []struct {
		name     string
		fallback bool
		wantErr  error
	}{
		{"enabled", true, nil},
		{"disabled", false, ErrOTPNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, 1)
			e.cfg.OTP.TypeFallback = tt.fallback
			svc := e.otpService(nil)
			number := e.fixture.Record.AadhaarNumber

			issued := issue(t, svc, number, models.OTPTypeLogin)
			err := verify(svc, number, models.OTPTypePasswordReset, issued.Code)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestOTPEmailVerificationMarksRecord(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.otpService(nil)
	number := e.fixture.Record.AadhaarNumber

	issued := issue(t, svc, number, models.OTPTypeEmailVerification)
	assert.Equal(t, models.ChannelEmail, issued.Channel)
	assert.NotEqual(t, e.fixture.Record.Email, issued.Destination, "destination is masked")

	assert.Eventually(t, func() bool {
		emails, _, _ := e.notifier.counts()
		return emails == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, verify(svc, number, models.OTPTypeEmailVerification, issued.Code))

	record, err := e.records.GetByID(context.Background(), e.fixture.Record.ID)
	require.NoError(t, err)
	assert.True(t, record.EmailVerified)
	assert.False(t, record.MobileVerified)
	assert.NotNil(t, record.VerificationDate)
}

func TestOTPIssueDestination(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.otpService(nil)
	ctx := context.Background()

	_, err := svc.Issue(ctx, &IssueOTPInput{AadhaarNumber: e.fixture.Record.AadhaarNumber, Type: models.OTPTypeSignup})
	assert.ErrorIs(t, err, ErrAadhaarRegistered)

	_, err = svc.Issue(ctx, &IssueOTPInput{AadhaarNumber: "999988887777", Type: models.OTPTypeLogin})
	assert.ErrorIs(t, err, ErrAadhaarNotFound)

	_, err = svc.Issue(ctx, &IssueOTPInput{AadhaarNumber: "999988887777", Type: models.OTPTypeSignup})
	assert.ErrorIs(t, err, ErrDestinationMissing)

	issued, err := svc.Issue(ctx, &IssueOTPInput{
		AadhaarNumber: "999988887777",
		Type:          models.OTPTypeSignup,
		Destination:   "+911234567890",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChannelSMS, issued.Channel)

	_, err = svc.Issue(ctx, &IssueOTPInput{AadhaarNumber: e.fixture.Record.AadhaarNumber, Type: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidOTPType)
}

func TestOTPAbuseIsReportedOnce(t *testing.T) {
	e := newEnv(t, 1)
	fraud := &mockFraudReporter{}
	fraud.On("Report", mock.Anything, mock.MatchedBy(func(entry *models.FraudLog) bool {
		return entry.FraudType == FraudTypeOTPAbuse && entry.Severity == models.SeverityMedium
	})).Return(nil).Once()

	svc := e.otpService(fraud)
	number := e.fixture.Record.AadhaarNumber
	issued := issue(t, svc, number, models.OTPTypeLogin)

	for i := 0; i < otpAbuseThreshold+2; i++ {
		assert.ErrorIs(t, verify(svc, number, models.OTPTypeLogin, wrongCode(issued.Code)), ErrOTPInvalid)
	}
	fraud.AssertExpectations(t)
}

func TestOTPPurgeExpired(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.otpService(nil)
	number := e.fixture.Record.AadhaarNumber

	issue(t, svc, number, models.OTPTypeLogin)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	n, err := svc.PurgeExpired(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
