package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/config"
	"aadhaar-seva/internal/pkg/pagination"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Document errors
var (
	ErrDocumentNotFound     = errors.New("Document not found")
	ErrDocumentTooLarge     = errors.New("File is too large")
	ErrDocumentEmpty        = errors.New("File is empty")
	ErrDocumentType         = errors.New("Only PDF, JPG and PNG files are allowed")
	ErrDocumentReviewed     = errors.New("Document has already been reviewed")
	ErrInvalidReviewOutcome = errors.New("status must be verified or rejected")
)

// sniffLen is how much of an upload is read to detect its content type
const sniffLen = 3072

// allowedUploads maps detected content types to the extension stored on disk
var allowedUploads = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// DocumentService stores and reviews supporting documents
type DocumentService struct {
	docRepo  repositories.DocumentRepository
	apptRepo repositories.AppointmentRepository
	cfg      config.UploadConfig
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo repositories.DocumentRepository,
	apptRepo repositories.AppointmentRepository,
	cfg config.UploadConfig,
) *DocumentService {
	return &DocumentService{
		docRepo:  docRepo,
		apptRepo: apptRepo,
		cfg:      cfg,
	}
}

// UploadInput describes an uploaded file
type UploadInput struct {
	DocumentType  string `validate:"required,oneof=proof_of_identity proof_of_address proof_of_birth photo other"`
	AppointmentID *uint
	FileName      string `validate:"required,max=255"`
	Size          int64
	Content       io.Reader `validate:"-"`
}

// ReviewInput represents a staff review
type ReviewInput struct {
	Status  string `json:"status" validate:"required"`
	Remarks string `json:"remarks" validate:"max=255"`
}

// Upload checks and stores a file for the actor's Aadhaar record
func (s *DocumentService) Upload(ctx context.Context, actor Actor, input *UploadInput) (*models.Document, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if actor.RecordID == 0 {
		return nil, ErrNoAadhaarRecord
	}
	if input.Size <= 0 {
		return nil, ErrDocumentEmpty
	}
	if input.Size > s.cfg.MaxBytes {
		return nil, ErrDocumentTooLarge
	}

	if input.AppointmentID != nil {
		appt, err := s.apptRepo.GetByID(ctx, *input.AppointmentID)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrAppointmentNotFound
			}
			return nil, err
		}
		if appt.AadhaarRecordID != actor.RecordID {
			return nil, ErrForbidden
		}
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(input.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mime := mimetype.Detect(head)
	ext, ok := allowedUploads[mime.String()]
	if !ok {
		return nil, ErrDocumentType
	}

	path, written, err := s.save(ext, io.MultiReader(bytes.NewReader(head), input.Content))
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		AadhaarRecordID: actor.RecordID,
		AppointmentID:   input.AppointmentID,
		DocumentType:    input.DocumentType,
		FileName:        filepath.Base(input.FileName),
		FilePath:        path,
		MimeType:        mime.String(),
		SizeBytes:       written,
		Status:          models.DocumentPending,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		removeFile(path)
		return nil, err
	}

	log.Info().
		Uint("record_id", actor.RecordID).
		Str("type", doc.DocumentType).
		Msg("✅ Document uploaded")
	return doc, nil
}

// ListMine lists the actor's documents
func (s *DocumentService) ListMine(ctx context.Context, actor Actor) ([]*models.Document, error) {
	if actor.RecordID == 0 {
		return []*models.Document{}, nil
	}
	return s.docRepo.ListByRecord(ctx, actor.RecordID)
}

// ListByStatus lists documents for staff review
func (s *DocumentService) ListByStatus(ctx context.Context, status string, params *pagination.Params) ([]*models.Document, int64, error) {
	return s.docRepo.ListByStatus(ctx, status, params)
}

// Get returns a document visible to the actor
func (s *DocumentService) Get(ctx context.Context, actor Actor, id uint) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	if !actor.owns(doc.AadhaarRecordID) {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Review records a staff verdict on a pending document
func (s *DocumentService) Review(ctx context.Context, reviewerID, id uint, input *ReviewInput) (*models.Document, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Status != models.DocumentVerified && input.Status != models.DocumentRejected {
		return nil, ErrInvalidReviewOutcome
	}

	if err := s.docRepo.Review(ctx, id, input.Status, input.Remarks, reviewerID); err != nil {
		if errors.Is(err, repositories.ErrStatusChanged) {
			if _, getErr := s.docRepo.GetByID(ctx, id); getErr != nil && isNotFound(getErr) {
				return nil, ErrDocumentNotFound
			}
			return nil, ErrDocumentReviewed
		}
		return nil, err
	}

	return s.docRepo.GetByID(ctx, id)
}

// Delete removes a pending document owned by the actor
func (s *DocumentService) Delete(ctx context.Context, actor Actor, id uint) error {
	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if doc.Status != models.DocumentPending {
		return ErrDocumentReviewed
	}

	if err := s.docRepo.Delete(ctx, id); err != nil {
		return err
	}
	removeFile(doc.FilePath)
	return nil
}

// save writes content under the upload dir with a random name.
// Content over the size limit is discarded.
func (s *DocumentService) save(ext string, content io.Reader) (string, int64, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o750); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(s.cfg.Dir, uuid.NewString()+ext)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(content, s.cfg.MaxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		removeFile(path)
		return "", 0, fmt.Errorf("write upload file: %w", err)
	}
	if written > s.cfg.MaxBytes {
		removeFile(path)
		return "", 0, ErrDocumentTooLarge
	}
	return path, written, nil
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("⚠️ Failed to remove upload")
	}
}
