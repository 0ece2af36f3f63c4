package repositories

import (
	"context"
	"testing"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newOTP(number, otpType, code string) *models.OtpVerification {
	return &models.OtpVerification{
		AadhaarNumber: number,
		Type:          otpType,
		OtpCode:       code,
		Channel:       models.ChannelSMS,
		ExpiresAt:     time.Now().Add(2 * time.Minute),
	}
}

func TestReplaceUnusedKeepsOnePerType(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewOTPRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceUnused(ctx, newOTP("111122223333", models.OTPTypeLogin, "111111")))
	require.NoError(t, repo.ReplaceUnused(ctx, newOTP("111122223333", models.OTPTypeSignup, "222222")))
	require.NoError(t, repo.ReplaceUnused(ctx, newOTP("111122223333", models.OTPTypeLogin, "333333")))

	var rows []models.OtpVerification
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "222222", rows[0].OtpCode)
	assert.Equal(t, "333333", rows[1].OtpCode)

	latest, err := repo.LatestUnused(ctx, "111122223333", models.OTPTypeLogin)
	require.NoError(t, err)
	assert.Equal(t, "333333", latest.OtpCode)

	anyType, err := repo.LatestUnused(ctx, "111122223333", "")
	require.NoError(t, err)
	assert.Equal(t, "333333", anyType.OtpCode)
}

func TestMarkUsedOnlyOnce(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewOTPRepository(db)
	ctx := context.Background()

	otp := newOTP("111122223333", models.OTPTypeLogin, "123456")
	require.NoError(t, repo.ReplaceUnused(ctx, otp))

	ok, err := repo.MarkUsed(ctx, otp.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkUsed(ctx, otp.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.LatestUnused(ctx, "111122223333", models.OTPTypeLogin)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestIncrementAttemptsAndPurge(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewOTPRepository(db)
	ctx := context.Background()

	otp := newOTP("111122223333", models.OTPTypeLogin, "123456")
	otp.ExpiresAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.ReplaceUnused(ctx, otp))
	require.NoError(t, repo.IncrementAttempts(ctx, otp.ID))
	require.NoError(t, repo.IncrementAttempts(ctx, otp.ID))

	got, err := repo.LatestUnused(ctx, "111122223333", models.OTPTypeLogin)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)

	n, err := repo.DeleteExpiredBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
