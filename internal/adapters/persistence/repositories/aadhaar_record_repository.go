package repositories

import (
	"context"
	"fmt"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// aadhaarRecordRepository implements AadhaarRecordRepository interface
type aadhaarRecordRepository struct {
	db *gorm.DB
}

// NewAadhaarRecordRepository creates a new aadhaar record repository
func NewAadhaarRecordRepository(db *gorm.DB) AadhaarRecordRepository {
	return &aadhaarRecordRepository{db: db}
}

// GetByID gets a record by ID
func (r *aadhaarRecordRepository) GetByID(ctx context.Context, id uint) (*models.AadhaarRecord, error) {
	var record models.AadhaarRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByNumber gets a record by its 12 digit Aadhaar number
func (r *aadhaarRecordRepository) GetByNumber(ctx context.Context, aadhaarNumber string) (*models.AadhaarRecord, error) {
	var record models.AadhaarRecord
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("aadhaar_number = ?", aadhaarNumber).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByUserID gets the record owned by a user
func (r *aadhaarRecordRepository) GetByUserID(ctx context.Context, userID uint) (*models.AadhaarRecord, error) {
	var record models.AadhaarRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ExistsByNumber checks if an Aadhaar number is registered
func (r *aadhaarRecordRepository) ExistsByNumber(ctx context.Context, aadhaarNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AadhaarRecord{}).
		Where("aadhaar_number = ?", aadhaarNumber).
		Count(&count).Error
	return count > 0, err
}

// MarkVerified sets a verification flag (email_verified or mobile_verified)
func (r *aadhaarRecordRepository) MarkVerified(ctx context.Context, aadhaarNumber, column string, at time.Time) error {
	if column != "email_verified" && column != "mobile_verified" {
		return fmt.Errorf("unknown verification column %q", column)
	}
	return r.db.WithContext(ctx).
		Model(&models.AadhaarRecord{}).
		Where("aadhaar_number = ?", aadhaarNumber).
		Updates(map[string]interface{}{
			column:              true,
			"verification_date": at,
		}).Error
}

// UpdateBiometricStatus records a biometric capture or update
func (r *aadhaarRecordRepository) UpdateBiometricStatus(ctx context.Context, id uint, status string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AadhaarRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"biometric_status":     status,
			"biometric_updated_at": at,
		}).Error
}
