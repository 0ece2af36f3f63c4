package repositories

import (
	"context"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// otpRepository implements OTPRepository interface
type otpRepository struct {
	db *gorm.DB
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

// ReplaceUnused deletes unused OTPs for the same (number, type) and stores otp
func (r *otpRepository) ReplaceUnused(ctx context.Context, otp *models.OtpVerification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("aadhaar_number = ? AND type = ? AND used = ?", otp.AadhaarNumber, otp.Type, false).
			Delete(&models.OtpVerification{}).Error
		if err != nil {
			return err
		}
		return tx.Create(otp).Error
	})
}

// LatestUnused returns the most recent unused OTP for a number.
// An empty otpType matches any type.
func (r *otpRepository) LatestUnused(ctx context.Context, aadhaarNumber, otpType string) (*models.OtpVerification, error) {
	var otp models.OtpVerification
	query := r.db.WithContext(ctx).
		Where("aadhaar_number = ? AND used = ?", aadhaarNumber, false)
	if otpType != "" {
		query = query.Where("type = ?", otpType)
	}

	err := query.Order("created_at DESC").Order("id DESC").First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// IncrementAttempts counts a failed verification
func (r *otpRepository) IncrementAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.OtpVerification{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error
}

// MarkUsed consumes the OTP. It reports false when another request consumed it first.
func (r *otpRepository) MarkUsed(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OtpVerification{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]interface{}{
			"used":        true,
			"verified_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteExpiredBefore purges OTP rows that expired before the cutoff (cleanup job)
func (r *otpRepository) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&models.OtpVerification{})
	return result.RowsAffected, result.Error
}
