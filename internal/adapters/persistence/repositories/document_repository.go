package repositories

import (
	"context"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/pkg/pagination"

	"gorm.io/gorm"
)

// documentRepository implements DocumentRepository interface
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create stores document metadata
func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByID gets a document by ID
func (r *documentRepository) GetByID(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByRecord lists the documents of one Aadhaar record
func (r *documentRepository) ListByRecord(ctx context.Context, recordID uint) ([]*models.Document, error) {
	var docs []*models.Document
	err := r.db.WithContext(ctx).
		Where("aadhaar_record_id = ?", recordID).
		Order("id DESC").
		Find(&docs).Error
	return docs, err
}

// ListByStatus lists documents awaiting (or past) review
func (r *documentRepository) ListByStatus(ctx context.Context, status string, params *pagination.Params) ([]*models.Document, int64, error) {
	var docs []*models.Document
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Document{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Scopes(params.Scope).Order("id ASC").Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// Review sets the review outcome of a pending document
func (r *documentRepository) Review(ctx context.Context, id uint, status, remarks string, reviewerID uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ? AND status = ?", id, models.DocumentPending).
		Updates(map[string]interface{}{
			"status":      status,
			"remarks":     remarks,
			"reviewed_by": reviewerID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

// Delete removes document metadata
func (r *documentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Document{}, id).Error
}
