package models

import (
	"time"
)

// ============================================================
// Centers & Booking Tables
// ============================================================

// Center represents a physical Aadhaar service center
type Center struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Code            string    `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name            string    `gorm:"size:150;not null" json:"name"`
	Address         string    `gorm:"size:255" json:"address"`
	City            string    `gorm:"size:100;index" json:"city"`
	State           string    `gorm:"size:100;index" json:"state"`
	Pincode         string    `gorm:"size:10" json:"pincode"`
	Latitude        float64   `gorm:"type:decimal(10,7)" json:"latitude"`
	Longitude       float64   `gorm:"type:decimal(10,7)" json:"longitude"`
	Phone           string    `gorm:"size:20" json:"phone"`
	OpenTime        string    `gorm:"size:5;default:'09:00'" json:"open_time"`
	CloseTime       string    `gorm:"size:5;default:'17:00'" json:"close_time"`
	SlotMinutes     int       `gorm:"default:30" json:"slot_minutes"`
	CapacityPerSlot int       `gorm:"default:5" json:"capacity_per_slot"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Center) TableName() string {
	return "centers"
}

// UpdateType is a kind of Aadhaar update a citizen can book
type UpdateType struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Code              string    `gorm:"size:30;uniqueIndex;not null" json:"code"`
	Name              string    `gorm:"size:100;not null" json:"name"`
	Description       string    `gorm:"type:text" json:"description"`
	Fee               float64   `gorm:"type:decimal(10,2);default:0" json:"fee"`
	RequiredDocuments string    `gorm:"size:255" json:"required_documents"`
	IsActive          bool      `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UpdateType) TableName() string {
	return "update_types"
}

// TimeSlot is a bookable interval at a center.
// 0 <= AvailableSlots <= TotalCapacity
type TimeSlot struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CenterID       uint      `gorm:"not null;uniqueIndex:idx_slot_center_date_start" json:"center_id"`
	SlotDate       string    `gorm:"size:10;not null;uniqueIndex:idx_slot_center_date_start;index" json:"slot_date"`
	StartTime      string    `gorm:"size:5;not null;uniqueIndex:idx_slot_center_date_start" json:"start_time"`
	EndTime        string    `gorm:"size:5;not null" json:"end_time"`
	TotalCapacity  int       `gorm:"not null" json:"total_capacity"`
	AvailableSlots int       `gorm:"not null" json:"available_slots"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Center         *Center   `gorm:"foreignKey:CenterID" json:"center,omitempty"`
}

func (TimeSlot) TableName() string {
	return "time_slots"
}

// Appointment statuses
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
	StatusInReview  = "in-review"
)

// AppointmentStatuses lists every valid appointment status
var AppointmentStatuses = []string{
	StatusScheduled,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
	StatusInReview,
}

// Appointment links an Aadhaar record to a booked time slot
type Appointment struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	BookingID       string         `gorm:"size:20;uniqueIndex;not null" json:"booking_id"`
	AadhaarRecordID uint           `gorm:"not null;index" json:"aadhaar_record_id"`
	TimeSlotID      uint           `gorm:"not null;index" json:"time_slot_id"`
	CenterID        uint           `gorm:"not null;index" json:"center_id"`
	UpdateTypeID    uint           `gorm:"not null;index" json:"update_type_id"`
	Status          string         `gorm:"size:15;default:'scheduled';index" json:"status"`
	Notes           string         `gorm:"size:500" json:"notes"`
	CancelReason    string         `gorm:"size:255" json:"cancel_reason,omitempty"`
	CancelledAt     *time.Time     `json:"cancelled_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	AadhaarRecord   *AadhaarRecord `gorm:"foreignKey:AadhaarRecordID" json:"aadhaar_record,omitempty"`
	TimeSlot        *TimeSlot      `gorm:"foreignKey:TimeSlotID" json:"time_slot,omitempty"`
	Center          *Center        `gorm:"foreignKey:CenterID" json:"center,omitempty"`
	UpdateType      *UpdateType    `gorm:"foreignKey:UpdateTypeID" json:"update_type,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// ============================================================
// Records & Analytics Tables
// ============================================================

// Document statuses
const (
	DocumentPending  = "pending"
	DocumentVerified = "verified"
	DocumentRejected = "rejected"
)

// Document is a supporting file uploaded by a citizen
type Document struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	AadhaarRecordID uint      `gorm:"not null;index" json:"aadhaar_record_id"`
	AppointmentID   *uint     `gorm:"index" json:"appointment_id"`
	DocumentType    string    `gorm:"size:50;not null" json:"document_type"`
	FileName        string    `gorm:"size:255;not null" json:"file_name"`
	FilePath        string    `gorm:"size:500;not null" json:"-"`
	MimeType        string    `gorm:"size:100" json:"mime_type"`
	SizeBytes       int64     `json:"size_bytes"`
	Status          string    `gorm:"size:15;default:'pending';index" json:"status"`
	Remarks         string    `gorm:"size:255" json:"remarks,omitempty"`
	ReviewedBy      *uint     `json:"reviewed_by,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// Update request statuses
const (
	UpdatePending  = "pending"
	UpdateApproved = "approved"
	UpdateRejected = "rejected"
)

// UpdateHistory is an audited field change request on an Aadhaar record
type UpdateHistory struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	URN             string         `gorm:"column:urn;size:20;uniqueIndex;not null" json:"urn"`
	AadhaarRecordID uint           `gorm:"not null;index" json:"aadhaar_record_id"`
	AppointmentID   *uint          `gorm:"index" json:"appointment_id"`
	FieldName       string         `gorm:"size:50;not null" json:"field_name"`
	OldValue        string         `gorm:"type:text" json:"old_value"`
	NewValue        string         `gorm:"type:text" json:"new_value"`
	Status          string         `gorm:"size:15;default:'pending';index" json:"status"`
	Remarks         string         `gorm:"size:255" json:"remarks,omitempty"`
	ReviewedBy      *uint          `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	AadhaarRecord   *AadhaarRecord `gorm:"foreignKey:AadhaarRecordID" json:"aadhaar_record,omitempty"`
}

func (UpdateHistory) TableName() string {
	return "update_history"
}

// Fraud severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// FraudLog records a suspected fraud event
type FraudLog struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	AadhaarRecordID *uint      `gorm:"index" json:"aadhaar_record_id"`
	AadhaarNumber   string     `gorm:"size:12;index" json:"aadhaar_number"`
	FraudType       string     `gorm:"size:50;not null;index" json:"fraud_type"`
	Severity        string     `gorm:"size:10;not null;default:'low'" json:"severity"`
	Description     string     `gorm:"type:text" json:"description"`
	IPAddress       string     `gorm:"size:45" json:"ip_address"`
	Resolved        bool       `gorm:"default:false;index" json:"resolved"`
	ResolvedBy      *uint      `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FraudLog) TableName() string {
	return "fraud_logs"
}

// CenterLoad is the end-of-day booking aggregate for one center
type CenterLoad struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CenterID      uint      `gorm:"not null;uniqueIndex:idx_load_center_date" json:"center_id"`
	LoadDate      string    `gorm:"size:10;not null;uniqueIndex:idx_load_center_date" json:"load_date"`
	TotalCapacity int       `json:"total_capacity"`
	Booked        int       `json:"booked"`
	Completed     int       `json:"completed"`
	Cancelled     int       `json:"cancelled"`
	NoShow        int       `json:"no_show"`
	Utilization   float64   `json:"utilization"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CenterLoad) TableName() string {
	return "center_loads"
}
