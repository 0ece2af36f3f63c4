package repositories

import (
	"context"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/pkg/pagination"

	"gorm.io/gorm"
)

// updateHistoryRepository implements UpdateHistoryRepository interface
type updateHistoryRepository struct {
	db *gorm.DB
}

// NewUpdateHistoryRepository creates a new update history repository
func NewUpdateHistoryRepository(db *gorm.DB) UpdateHistoryRepository {
	return &updateHistoryRepository{db: db}
}

// Create stores a new update request
func (r *updateHistoryRepository) Create(ctx context.Context, h *models.UpdateHistory) error {
	return r.db.WithContext(ctx).Omit("AadhaarRecord").Create(h).Error
}

// GetByID gets an update request by ID
func (r *updateHistoryRepository) GetByID(ctx context.Context, id uint) (*models.UpdateHistory, error) {
	var h models.UpdateHistory
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetByURN gets an update request by its reference number
func (r *updateHistoryRepository) GetByURN(ctx context.Context, urn string) (*models.UpdateHistory, error) {
	var h models.UpdateHistory
	err := r.db.WithContext(ctx).Where("urn = ?", urn).First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListByRecord lists the update requests of one Aadhaar record
func (r *updateHistoryRepository) ListByRecord(ctx context.Context, recordID uint) ([]*models.UpdateHistory, error) {
	var items []*models.UpdateHistory
	err := r.db.WithContext(ctx).
		Where("aadhaar_record_id = ?", recordID).
		Order("id DESC").
		Find(&items).Error
	return items, err
}

// ListByStatus lists update requests for staff review
func (r *updateHistoryRepository) ListByStatus(ctx context.Context, status string, params *pagination.Params) ([]*models.UpdateHistory, int64, error) {
	var items []*models.UpdateHistory
	var total int64

	query := r.db.WithContext(ctx).Model(&models.UpdateHistory{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("AadhaarRecord").
		Scopes(params.Scope).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Approve marks a pending request approved and applies recordChanges to its Aadhaar record.
// Email and phone changes are mirrored onto the owning user.
func (r *updateHistoryRepository) Approve(ctx context.Context, id, reviewerID uint, recordChanges map[string]interface{}, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var h models.UpdateHistory
		if err := tx.Select("id", "aadhaar_record_id").Where("id = ?", id).First(&h).Error; err != nil {
			return err
		}

		result := tx.Model(&models.UpdateHistory{}).
			Where("id = ? AND status = ?", id, models.UpdatePending).
			Updates(map[string]interface{}{
				"status":      models.UpdateApproved,
				"reviewed_by": reviewerID,
				"reviewed_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusChanged
		}

		if err := tx.Model(&models.AadhaarRecord{}).
			Where("id = ?", h.AadhaarRecordID).
			Updates(recordChanges).Error; err != nil {
			return err
		}

		// users carries the login and uniqueness copy of the contact fields
		userChanges := map[string]interface{}{}
		for _, field := range []string{"email", "phone_number"} {
			if value, ok := recordChanges[field]; ok {
				userChanges[field] = value
			}
		}
		if len(userChanges) == 0 {
			return nil
		}

		var record models.AadhaarRecord
		if err := tx.Select("id", "user_id").Where("id = ?", h.AadhaarRecordID).First(&record).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", record.UserID).
			Updates(userChanges).Error
	})
}

// Reject marks a pending request rejected
func (r *updateHistoryRepository) Reject(ctx context.Context, id, reviewerID uint, remarks string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.UpdateHistory{}).
		Where("id = ? AND status = ?", id, models.UpdatePending).
		Updates(map[string]interface{}{
			"status":      models.UpdateRejected,
			"remarks":     remarks,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}
