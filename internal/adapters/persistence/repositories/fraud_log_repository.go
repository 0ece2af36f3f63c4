package repositories

import (
	"context"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/pkg/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fraudLogRepository implements FraudLogRepository interface
type fraudLogRepository struct {
	db *gorm.DB
}

// NewFraudLogRepository creates a new fraud log repository
func NewFraudLogRepository(db *gorm.DB) FraudLogRepository {
	return &fraudLogRepository{db: db}
}

// Create stores a fraud log entry
func (r *fraudLogRepository) Create(ctx context.Context, entry *models.FraudLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetByID gets a fraud log entry by ID
func (r *fraudLogRepository) GetByID(ctx context.Context, id uint) (*models.FraudLog, error) {
	var entry models.FraudLog
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List lists fraud log entries, optionally by resolved flag
func (r *fraudLogRepository) List(ctx context.Context, resolved *bool, params *pagination.Params) ([]*models.FraudLog, int64, error) {
	var entries []*models.FraudLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.FraudLog{})
	if resolved != nil {
		query = query.Where("resolved = ?", *resolved)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Scopes(params.Scope).Order("id DESC").Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// Resolve marks an unresolved entry as resolved
func (r *fraudLogRepository) Resolve(ctx context.Context, id, resolverID uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.FraudLog{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]interface{}{
			"resolved":    true,
			"resolved_by": resolverID,
			"resolved_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

// CountSince counts entries of one type for a number since a point in time
func (r *fraudLogRepository) CountSince(ctx context.Context, aadhaarNumber, fraudType string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FraudLog{}).
		Where("aadhaar_number = ? AND fraud_type = ? AND created_at >= ?", aadhaarNumber, fraudType, since).
		Count(&count).Error
	return count, err
}

// ============================================================
// Center Load
// ============================================================

// centerLoadRepository implements CenterLoadRepository interface
type centerLoadRepository struct {
	db *gorm.DB
}

// NewCenterLoadRepository creates a new center load repository
func NewCenterLoadRepository(db *gorm.DB) CenterLoadRepository {
	return &centerLoadRepository{db: db}
}

// Upsert inserts or refreshes the (center, date) aggregates
func (r *centerLoadRepository) Upsert(ctx context.Context, loads []*models.CenterLoad) error {
	if len(loads) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "center_id"}, {Name: "load_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_capacity", "booked", "completed", "cancelled", "no_show", "utilization", "updated_at",
			}),
		}).
		Create(loads).Error
}

// ListByDate lists stored aggregates for a date
func (r *centerLoadRepository) ListByDate(ctx context.Context, date string) ([]*models.CenterLoad, error) {
	var loads []*models.CenterLoad
	err := r.db.WithContext(ctx).
		Where("load_date = ?", date).
		Order("center_id ASC").
		Find(&loads).Error
	return loads, err
}
