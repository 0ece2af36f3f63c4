package repositories

import (
	"context"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/pkg/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// centerRepository implements CenterRepository interface
type centerRepository struct {
	db *gorm.DB
}

// NewCenterRepository creates a new center repository
func NewCenterRepository(db *gorm.DB) CenterRepository {
	return &centerRepository{db: db}
}

// Create creates a new center
func (r *centerRepository) Create(ctx context.Context, center *models.Center) error {
	return r.db.WithContext(ctx).Create(center).Error
}

// Update saves all center fields
func (r *centerRepository) Update(ctx context.Context, center *models.Center) error {
	return r.db.WithContext(ctx).Save(center).Error
}

// GetByID gets a center by ID
func (r *centerRepository) GetByID(ctx context.Context, id uint) (*models.Center, error) {
	var center models.Center
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&center).Error
	if err != nil {
		return nil, err
	}
	return &center, nil
}

// ExistsByCode checks if a center code is taken
func (r *centerRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Center{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// List lists centers with filters and pagination
func (r *centerRepository) List(ctx context.Context, filter CenterFilter, params *pagination.Params) ([]*models.Center, int64, error) {
	var centers []*models.Center
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Center{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.Pincode != "" {
		query = query.Where("pincode = ?", filter.Pincode)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Scopes(params.Scope).Order("name ASC").Find(&centers).Error
	if err != nil {
		return nil, 0, err
	}

	return centers, total, nil
}

// ListActive returns every active center
func (r *centerRepository) ListActive(ctx context.Context) ([]*models.Center, error) {
	var centers []*models.Center
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&centers).Error
	return centers, err
}

// SetActive activates or deactivates a center
func (r *centerRepository) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Center{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ============================================================
// Update Types
// ============================================================

// updateTypeRepository implements UpdateTypeRepository interface
type updateTypeRepository struct {
	db *gorm.DB
}

// NewUpdateTypeRepository creates a new update type repository
func NewUpdateTypeRepository(db *gorm.DB) UpdateTypeRepository {
	return &updateTypeRepository{db: db}
}

// Create creates a new update type
func (r *updateTypeRepository) Create(ctx context.Context, updateType *models.UpdateType) error {
	return r.db.WithContext(ctx).Create(updateType).Error
}

// GetByID gets an update type by ID
func (r *updateTypeRepository) GetByID(ctx context.Context, id uint) (*models.UpdateType, error) {
	var updateType models.UpdateType
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&updateType).Error
	if err != nil {
		return nil, err
	}
	return &updateType, nil
}

// ExistsByCode checks if an update type code is taken
func (r *updateTypeRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UpdateType{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// List lists update types
func (r *updateTypeRepository) List(ctx context.Context, activeOnly bool) ([]*models.UpdateType, error) {
	var types []*models.UpdateType
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("id ASC").Find(&types).Error
	return types, err
}

// ============================================================
// Time Slots
// ============================================================

// timeSlotRepository implements TimeSlotRepository interface
type timeSlotRepository struct {
	db *gorm.DB
}

// NewTimeSlotRepository creates a new time slot repository
func NewTimeSlotRepository(db *gorm.DB) TimeSlotRepository {
	return &timeSlotRepository{db: db}
}

// GetByID gets a time slot by ID
func (r *timeSlotRepository) GetByID(ctx context.Context, id uint) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListByCenterDate lists the slots of a center on a date
func (r *timeSlotRepository) ListByCenterDate(ctx context.Context, centerID uint, date string) ([]*models.TimeSlot, error) {
	var slots []*models.TimeSlot
	err := r.db.WithContext(ctx).
		Where("center_id = ? AND slot_date = ?", centerID, date).
		Order("start_time ASC").
		Find(&slots).Error
	return slots, err
}

// CreateMissing inserts slots, skipping any (center, date, start) that already exists
func (r *timeSlotRepository) CreateMissing(ctx context.Context, slots []*models.TimeSlot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(slots, 100)
	return result.RowsAffected, result.Error
}
