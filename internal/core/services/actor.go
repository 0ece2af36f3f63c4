package services

import "aadhaar-seva/internal/adapters/persistence/models"

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID   uint
	RecordID uint
	Role     string
}

// IsStaff reports whether the actor is an officer or admin
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleOfficer || a.Role == models.RoleAdmin
}

// owns reports whether the actor may act on something belonging to recordID
func (a Actor) owns(recordID uint) bool {
	return a.IsStaff() || (a.RecordID != 0 && a.RecordID == recordID)
}
