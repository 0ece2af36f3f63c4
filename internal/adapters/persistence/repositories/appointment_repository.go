package repositories

import (
	"context"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/pkg/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// appointmentRepository implements AppointmentRepository interface
type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

// reserveSlot takes one seat from the slot, failing when none is left
func reserveSlot(tx *gorm.DB, slotID uint) error {
	result := tx.Model(&models.TimeSlot{}).
		Where("id = ? AND available_slots > 0 AND is_active = ?", slotID, true).
		UpdateColumn("available_slots", gorm.Expr("available_slots - 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSlotUnavailable
	}
	return nil
}

// releaseSlot gives one seat back, never above total capacity
func releaseSlot(tx *gorm.DB, slotID uint) error {
	return tx.Model(&models.TimeSlot{}).
		Where("id = ? AND available_slots < total_capacity", slotID).
		UpdateColumn("available_slots", gorm.Expr("available_slots + 1")).Error
}

// Book reserves a seat and inserts the appointment in one transaction
func (r *appointmentRepository) Book(ctx context.Context, appt *models.Appointment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := reserveSlot(tx, appt.TimeSlotID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(appt).Error
	})
}

// Cancel moves a scheduled appointment to cancelled and releases its seat
func (r *appointmentRepository) Cancel(ctx context.Context, id uint, reason string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appt models.Appointment
		if err := tx.Select("id", "time_slot_id").Where("id = ?", id).First(&appt).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Appointment{}).
			Where("id = ? AND status = ?", id, models.StatusScheduled).
			Updates(map[string]interface{}{
				"status":        models.StatusCancelled,
				"cancel_reason": reason,
				"cancelled_at":  at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusChanged
		}

		return releaseSlot(tx, appt.TimeSlotID)
	})
}

// UpdateStatus moves an appointment from one status to another.
// Cancelling releases the seat; completing stamps completed_at.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uint, from, to string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appt models.Appointment
		if err := tx.Select("id", "time_slot_id").Where("id = ?", id).First(&appt).Error; err != nil {
			return err
		}

		changes := map[string]interface{}{"status": to}
		switch to {
		case models.StatusCompleted:
			changes["completed_at"] = at
		case models.StatusCancelled:
			changes["cancelled_at"] = at
		}

		result := tx.Model(&models.Appointment{}).
			Where("id = ? AND status = ?", id, from).
			Updates(changes)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusChanged
		}

		if to == models.StatusCancelled {
			return releaseSlot(tx, appt.TimeSlotID)
		}
		return nil
	})
}

// Reschedule moves a scheduled appointment to another slot.
// The new seat is taken before the old one is given back.
func (r *appointmentRepository) Reschedule(ctx context.Context, id, newSlotID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appt models.Appointment
		if err := tx.Select("id", "time_slot_id", "status").Where("id = ?", id).First(&appt).Error; err != nil {
			return err
		}
		if appt.Status != models.StatusScheduled {
			return ErrStatusChanged
		}

		var slot models.TimeSlot
		if err := tx.Select("id", "center_id").Where("id = ?", newSlotID).First(&slot).Error; err != nil {
			return err
		}

		if err := reserveSlot(tx, newSlotID); err != nil {
			return err
		}

		result := tx.Model(&models.Appointment{}).
			Where("id = ? AND status = ? AND time_slot_id = ?", id, models.StatusScheduled, appt.TimeSlotID).
			Updates(map[string]interface{}{
				"time_slot_id": slot.ID,
				"center_id":    slot.CenterID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusChanged
		}

		return releaseSlot(tx, appt.TimeSlotID)
	})
}

// withRelations preloads everything an appointment response shows
func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("TimeSlot").
		Preload("Center").
		Preload("UpdateType")
}

// GetByID gets an appointment by ID
func (r *appointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.WithContext(ctx).
		Scopes(withRelations).
		Where("id = ?", id).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// GetByBookingID gets an appointment by its booking ID
func (r *appointmentRepository) GetByBookingID(ctx context.Context, bookingID string) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.WithContext(ctx).
		Scopes(withRelations).
		Where("booking_id = ?", bookingID).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListByRecord lists the appointments of one Aadhaar record
func (r *appointmentRepository) ListByRecord(ctx context.Context, recordID uint, params *pagination.Params) ([]*models.Appointment, int64, error) {
	var appts []*models.Appointment
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("aadhaar_record_id = ?", recordID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Scopes(withRelations, params.Scope).
		Order("id DESC").
		Find(&appts).Error
	if err != nil {
		return nil, 0, err
	}

	return appts, total, nil
}

// List lists appointments for staff with filters and pagination
func (r *appointmentRepository) List(ctx context.Context, filter AppointmentFilter, params *pagination.Params) ([]*models.Appointment, int64, error) {
	var appts []*models.Appointment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Appointment{})
	if filter.CenterID != 0 {
		query = query.Where("appointments.center_id = ?", filter.CenterID)
	}
	if filter.Status != "" {
		query = query.Where("appointments.status = ?", filter.Status)
	}
	if filter.Date != "" {
		query = query.
			Joins("JOIN time_slots ON time_slots.id = appointments.time_slot_id").
			Where("time_slots.slot_date = ?", filter.Date)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Scopes(withRelations, params.Scope).
		Preload("AadhaarRecord").
		Order("appointments.id DESC").
		Find(&appts).Error
	if err != nil {
		return nil, 0, err
	}

	return appts, total, nil
}

// MarkNoShows flags scheduled appointments whose slot date is before the given date
func (r *appointmentRepository) MarkNoShows(ctx context.Context, beforeDate string) (int64, error) {
	pastSlots := r.db.Model(&models.TimeSlot{}).
		Select("id").
		Where("slot_date < ?", beforeDate)

	result := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("status = ? AND time_slot_id IN (?)", models.StatusScheduled, pastSlots).
		Update("status", models.StatusNoShow)
	return result.RowsAffected, result.Error
}
