package repositories

import (
	"context"
	"errors"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/pkg/pagination"
)

// Conditional-write failures. Callers map these to user-facing errors.
var (
	ErrSlotUnavailable = errors.New("time slot not available")
	ErrStatusChanged   = errors.New("status changed concurrently")
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	CreateWithAadhaarRecord(ctx context.Context, user *models.User, record *models.AadhaarRecord) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter UserFilter, params *pagination.Params) ([]*models.User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
	UpdateRole(ctx context.Context, id uint, role string) error
	SetActive(ctx context.Context, id uint, active bool) error
}

// UserFilter narrows admin user listings
type UserFilter struct {
	Role   string
	Active *bool
	Search string
}

// AadhaarRecordRepository defines aadhaar record repository interface
type AadhaarRecordRepository interface {
	GetByID(ctx context.Context, id uint) (*models.AadhaarRecord, error)
	GetByNumber(ctx context.Context, aadhaarNumber string) (*models.AadhaarRecord, error)
	GetByUserID(ctx context.Context, userID uint) (*models.AadhaarRecord, error)
	ExistsByNumber(ctx context.Context, aadhaarNumber string) (bool, error)
	MarkVerified(ctx context.Context, aadhaarNumber, column string, at time.Time) error
	UpdateBiometricStatus(ctx context.Context, id uint, status string, at time.Time) error
}

// OTPRepository defines OTP persistence
type OTPRepository interface {
	ReplaceUnused(ctx context.Context, otp *models.OtpVerification) error
	LatestUnused(ctx context.Context, aadhaarNumber, otpType string) (*models.OtpVerification, error)
	IncrementAttempts(ctx context.Context, id uint) error
	MarkUsed(ctx context.Context, id uint, at time.Time) (bool, error)
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	GetByUserID(ctx context.Context, userID uint) ([]*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) (int64, error)
	CountActiveByUserID(ctx context.Context, userID uint) (int64, error)
}

// CenterRepository defines center repository interface
type CenterRepository interface {
	Create(ctx context.Context, center *models.Center) error
	Update(ctx context.Context, center *models.Center) error
	GetByID(ctx context.Context, id uint) (*models.Center, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter CenterFilter, params *pagination.Params) ([]*models.Center, int64, error)
	ListActive(ctx context.Context) ([]*models.Center, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

// CenterFilter narrows center listings
type CenterFilter struct {
	City            string
	State           string
	Pincode         string
	IncludeInactive bool
}

// UpdateTypeRepository defines update type repository interface
type UpdateTypeRepository interface {
	Create(ctx context.Context, updateType *models.UpdateType) error
	GetByID(ctx context.Context, id uint) (*models.UpdateType, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, activeOnly bool) ([]*models.UpdateType, error)
}

// TimeSlotRepository defines time slot repository interface
type TimeSlotRepository interface {
	GetByID(ctx context.Context, id uint) (*models.TimeSlot, error)
	ListByCenterDate(ctx context.Context, centerID uint, date string) ([]*models.TimeSlot, error)
	CreateMissing(ctx context.Context, slots []*models.TimeSlot) (int64, error)
}

// AppointmentRepository defines appointment repository interface.
// Every method that touches slot capacity runs in a single transaction.
type AppointmentRepository interface {
	Book(ctx context.Context, appt *models.Appointment) error
	Cancel(ctx context.Context, id uint, reason string, at time.Time) error
	UpdateStatus(ctx context.Context, id uint, from, to string, at time.Time) error
	Reschedule(ctx context.Context, id, newSlotID uint) error
	GetByID(ctx context.Context, id uint) (*models.Appointment, error)
	GetByBookingID(ctx context.Context, bookingID string) (*models.Appointment, error)
	ListByRecord(ctx context.Context, recordID uint, params *pagination.Params) ([]*models.Appointment, int64, error)
	List(ctx context.Context, filter AppointmentFilter, params *pagination.Params) ([]*models.Appointment, int64, error)
	MarkNoShows(ctx context.Context, beforeDate string) (int64, error)
}

// AppointmentFilter narrows staff appointment listings
type AppointmentFilter struct {
	CenterID uint
	Date     string
	Status   string
}

// DocumentRepository defines document repository interface
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uint) (*models.Document, error)
	ListByRecord(ctx context.Context, recordID uint) ([]*models.Document, error)
	ListByStatus(ctx context.Context, status string, params *pagination.Params) ([]*models.Document, int64, error)
	Review(ctx context.Context, id uint, status, remarks string, reviewerID uint) error
	Delete(ctx context.Context, id uint) error
}

// UpdateHistoryRepository defines update request repository interface
type UpdateHistoryRepository interface {
	Create(ctx context.Context, h *models.UpdateHistory) error
	GetByID(ctx context.Context, id uint) (*models.UpdateHistory, error)
	GetByURN(ctx context.Context, urn string) (*models.UpdateHistory, error)
	ListByRecord(ctx context.Context, recordID uint) ([]*models.UpdateHistory, error)
	ListByStatus(ctx context.Context, status string, params *pagination.Params) ([]*models.UpdateHistory, int64, error)
	Approve(ctx context.Context, id, reviewerID uint, recordChanges map[string]interface{}, at time.Time) error
	Reject(ctx context.Context, id, reviewerID uint, remarks string, at time.Time) error
}

// FraudLogRepository defines fraud log repository interface
type FraudLogRepository interface {
	Create(ctx context.Context, entry *models.FraudLog) error
	GetByID(ctx context.Context, id uint) (*models.FraudLog, error)
	List(ctx context.Context, resolved *bool, params *pagination.Params) ([]*models.FraudLog, int64, error)
	Resolve(ctx context.Context, id, resolverID uint, at time.Time) error
	CountSince(ctx context.Context, aadhaarNumber, fraudType string, since time.Time) (int64, error)
}

// CenterLoadRepository defines center load repository interface
type CenterLoadRepository interface {
	Upsert(ctx context.Context, loads []*models.CenterLoad) error
	ListByDate(ctx context.Context, date string) ([]*models.CenterLoad, error)
}
