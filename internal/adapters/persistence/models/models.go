package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles
const (
	RoleUser    = "USER"
	RoleOfficer = "OFFICER"
	RoleAdmin   = "ADMIN"
)

// ============================================================
// Identity & Auth Tables
// ============================================================

// User represents users table
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PhoneNumber string     `gorm:"uniqueIndex;size:20;not null" json:"phone_number"`
	Password    string     `gorm:"size:255;not null" json:"-"`
	Role        string     `gorm:"size:20;default:'USER'" json:"role"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID            uint       `json:"id"`
	Email         string     `json:"email"`
	PhoneNumber   string     `json:"phone_number"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"is_active"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	AadhaarNumber string     `json:"aadhaar_number,omitempty"`
	FullName      string     `json:"full_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLogin:   u.LastLogin,
		CreatedAt:   u.CreatedAt,
	}
}

// Biometric statuses
const (
	BiometricPending  = "pending"
	BiometricCaptured = "captured"
	BiometricUpdated  = "updated"
)

// AadhaarRecord represents aadhaar_records table
type AadhaarRecord struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	AadhaarNumber      string     `gorm:"uniqueIndex;size:12;not null" json:"aadhaar_number"`
	UserID             uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	FullName           string     `gorm:"size:150;not null" json:"full_name"`
	DateOfBirth        string     `gorm:"size:10" json:"date_of_birth"`
	Gender             string     `gorm:"size:10" json:"gender"`
	Address            string     `gorm:"type:text" json:"address"`
	Email              string     `gorm:"size:100" json:"email"`
	PhoneNumber        string     `gorm:"size:20" json:"phone_number"`
	MobileVerified     bool       `gorm:"default:false" json:"mobile_verified"`
	EmailVerified      bool       `gorm:"default:false" json:"email_verified"`
	VerificationDate   *time.Time `json:"verification_date"`
	BiometricStatus    string     `gorm:"size:20;default:'pending'" json:"biometric_status"`
	BiometricUpdatedAt *time.Time `json:"biometric_updated_at"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	User               *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AadhaarRecord) TableName() string {
	return "aadhaar_records"
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// OTP types
const (
	OTPTypeSignup             = "signup"
	OTPTypeLogin              = "login"
	OTPTypeEmailVerification  = "email_verification"
	OTPTypeMobileVerification = "mobile_verification"
	OTPTypePasswordReset      = "password_reset"
)

// OTP channels
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// OtpVerification represents otp_verifications table
type OtpVerification struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AadhaarNumber string     `gorm:"size:12;not null;index:idx_otp_number_type" json:"aadhaar_number"`
	Type          string     `gorm:"size:30;not null;index:idx_otp_number_type" json:"type"`
	OtpCode       string     `gorm:"size:6;not null" json:"-"`
	Channel       string     `gorm:"size:10;not null" json:"channel"`
	Destination   string     `gorm:"size:100" json:"destination"`
	ExpiresAt     time.Time  `gorm:"not null;index" json:"expires_at"`
	Used          bool       `gorm:"default:false" json:"used"`
	Attempts      int        `gorm:"default:0" json:"attempts"`
	VerifiedAt    *time.Time `json:"verified_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (OtpVerification) TableName() string {
	return "otp_verifications"
}

// IsExpiredAt reports whether the OTP had expired at t
func (o *OtpVerification) IsExpiredAt(t time.Time) bool {
	return !t.Before(o.ExpiresAt)
}

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity & Auth
		&User{},
		&AadhaarRecord{},
		&RefreshToken{},
		&OtpVerification{},
		// Centers & Booking
		&Center{},
		&UpdateType{},
		&TimeSlot{},
		&Appointment{},
		// Records & Analytics
		&Document{},
		&UpdateHistory{},
		&FraudLog{},
		&CenterLoad{},
	)
}
