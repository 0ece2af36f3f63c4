package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/pkg/cache"
	"aadhaar-seva/internal/pkg/pagination"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Appointment errors
var (
	ErrSlotUnavailable      = errors.New("Time slot not available")
	ErrSlotNotFound         = errors.New("Time slot not found")
	ErrSlotCenterMismatch   = errors.New("Time slot does not belong to this center")
	ErrSlotInPast           = errors.New("Time slot is in the past")
	ErrAppointmentNotFound  = errors.New("Appointment not found")
	ErrNotCancellable       = errors.New("Only scheduled appointments can be cancelled")
	ErrNotReschedulable     = errors.New("Only scheduled appointments can be rescheduled")
	ErrInvalidStatus        = errors.New("Invalid status")
	ErrTerminalStatus       = errors.New("Completed or cancelled appointments cannot change status")
	ErrStatusConflict       = errors.New("Appointment was modified by another request, please retry")
	ErrNoAadhaarRecord      = errors.New("An Aadhaar record is required for this action")
	ErrBookingIDUnavailable = errors.New("could not allocate a unique booking id")
	ErrSameSlot             = errors.New("Appointment is already in this time slot")
)

// bookingIDAttempts bounds retries on a booking id collision
const bookingIDAttempts = 3

const bookingSuffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// AppointmentService handles booking, cancellation and status changes
type AppointmentService struct {
	apptRepo       repositories.AppointmentRepository
	slotRepo       repositories.TimeSlotRepository
	centerRepo     repositories.CenterRepository
	updateTypeRepo repositories.UpdateTypeRepository
	recordRepo     repositories.AadhaarRecordRepository
	notifier       Notifier
	cache          cache.Store
	events         *EventHub
	now            func() time.Time
	newBookingID   func(time.Time) (string, error)
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	apptRepo repositories.AppointmentRepository,
	slotRepo repositories.TimeSlotRepository,
	centerRepo repositories.CenterRepository,
	updateTypeRepo repositories.UpdateTypeRepository,
	recordRepo repositories.AadhaarRecordRepository,
	notifier Notifier,
	store cache.Store,
) *AppointmentService {
	if store == nil {
		store = cache.Noop{}
	}
	return &AppointmentService{
		apptRepo:       apptRepo,
		slotRepo:       slotRepo,
		centerRepo:     centerRepo,
		updateTypeRepo: updateTypeRepo,
		recordRepo:     recordRepo,
		notifier:       notifier,
		cache:          store,
		now:            time.Now,
		newBookingID:   GenerateBookingID,
	}
}

// BookInput represents a booking request
type BookInput struct {
	TimeSlotID   uint   `json:"time_slot_id" validate:"required"`
	CenterID     uint   `json:"center_id" validate:"required"`
	UpdateTypeID uint   `json:"update_type_id" validate:"required"`
	Notes        string `json:"notes" validate:"max=500"`
}

// CancelInput represents a cancellation request
type CancelInput struct {
	Reason string `json:"reason" validate:"max=255"`
}

// StatusInput represents a staff status change
type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

// RescheduleInput represents a move to another slot
type RescheduleInput struct {
	TimeSlotID uint `json:"time_slot_id" validate:"required"`
}

// SetEvents attaches the hub that live center boards listen on
func (s *AppointmentService) SetEvents(hub *EventHub) {
	s.events = hub
}

// Book reserves a seat in the slot and creates a scheduled appointment
func (s *AppointmentService) Book(ctx context.Context, actor Actor, input *BookInput) (*models.Appointment, error) {
	// 1. Validate input
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if actor.RecordID == 0 {
		return nil, ErrNoAadhaarRecord
	}

	// 2. Validate center and update type
	center, err := s.activeCenter(ctx, input.CenterID)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeUpdateType(ctx, input.UpdateTypeID); err != nil {
		return nil, err
	}

	// 3. Validate slot
	slot, err := s.bookableSlot(ctx, input.TimeSlotID)
	if err != nil {
		return nil, err
	}
	if slot.CenterID != center.ID {
		return nil, ErrSlotCenterMismatch
	}

	// 4. Reserve seat + insert, retrying on booking id collision
	var appt *models.Appointment
	for attempt := 1; ; attempt++ {
		bookingID, err := s.newBookingID(s.now())
		if err != nil {
			return nil, fmt.Errorf("generate booking id: %w", err)
		}

		appt = &models.Appointment{
			BookingID:       bookingID,
			AadhaarRecordID: actor.RecordID,
			TimeSlotID:      slot.ID,
			CenterID:        center.ID,
			UpdateTypeID:    input.UpdateTypeID,
			Status:          models.StatusScheduled,
			Notes:           input.Notes,
		}

		err = s.apptRepo.Book(ctx, appt)
		if err == nil {
			break
		}
		if errors.Is(err, repositories.ErrSlotUnavailable) {
			return nil, ErrSlotUnavailable
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		if attempt == bookingIDAttempts {
			return nil, ErrBookingIDUnavailable
		}
		log.Warn().Str("booking_id", bookingID).Msg("⚠️ Booking id collision, retrying")
	}

	s.invalidate(ctx, center.ID)

	log.Info().
		Str("booking_id", appt.BookingID).
		Uint("slot_id", slot.ID).
		Msg("✅ Appointment booked")

	booked, err := s.apptRepo.GetByID(ctx, appt.ID)
	if err != nil {
		return nil, err
	}
	s.notify(booked, "booked")
	s.publish(booked, EventAppointmentBooked)
	return booked, nil
}

// Cancel cancels a scheduled appointment and gives its seat back
func (s *AppointmentService) Cancel(ctx context.Context, actor Actor, id uint, input *CancelInput) (*models.Appointment, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	appt, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != models.StatusScheduled {
		return nil, ErrNotCancellable
	}

	if err := s.apptRepo.Cancel(ctx, id, input.Reason, s.now()); err != nil {
		if errors.Is(err, repositories.ErrStatusChanged) {
			return nil, ErrNotCancellable
		}
		if isNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	s.invalidate(ctx, appt.CenterID)
	log.Info().Str("booking_id", appt.BookingID).Msg("✅ Appointment cancelled")

	cancelled, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(cancelled, "cancelled")
	s.publish(cancelled, EventAppointmentCancelled)
	return cancelled, nil
}

// UpdateStatus changes an appointment's status on behalf of staff.
// Completed and cancelled are terminal.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id uint, input *StatusInput) (*models.Appointment, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if !IsAppointmentStatus(input.Status) {
		return nil, ErrInvalidStatus
	}

	appt, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if appt.Status == input.Status {
		return appt, nil
	}
	if isTerminal(appt.Status) {
		return nil, ErrTerminalStatus
	}

	if err := s.apptRepo.UpdateStatus(ctx, id, appt.Status, input.Status, s.now()); err != nil {
		if errors.Is(err, repositories.ErrStatusChanged) {
			return nil, ErrStatusConflict
		}
		return nil, err
	}

	s.invalidate(ctx, appt.CenterID)
	log.Info().
		Str("booking_id", appt.BookingID).
		Str("from", appt.Status).
		Str("to", input.Status).
		Msg("✅ Appointment status updated")

	updated, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(updated, "status")
	s.publish(updated, EventAppointmentStatus)
	return updated, nil
}

// Reschedule moves a scheduled appointment into another slot
func (s *AppointmentService) Reschedule(ctx context.Context, actor Actor, id uint, input *RescheduleInput) (*models.Appointment, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	appt, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != models.StatusScheduled {
		return nil, ErrNotReschedulable
	}
	if appt.TimeSlotID == input.TimeSlotID {
		return nil, ErrSameSlot
	}

	slot, err := s.bookableSlot(ctx, input.TimeSlotID)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeCenter(ctx, slot.CenterID); err != nil {
		return nil, err
	}

	if err := s.apptRepo.Reschedule(ctx, id, slot.ID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrSlotUnavailable):
			return nil, ErrSlotUnavailable
		case errors.Is(err, repositories.ErrStatusChanged):
			return nil, ErrNotReschedulable
		default:
			return nil, err
		}
	}

	s.invalidate(ctx, appt.CenterID)
	if slot.CenterID != appt.CenterID {
		s.invalidate(ctx, slot.CenterID)
	}
	log.Info().
		Str("booking_id", appt.BookingID).
		Uint("from_slot", appt.TimeSlotID).
		Uint("to_slot", slot.ID).
		Msg("✅ Appointment rescheduled")

	moved, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(moved, "rescheduled")
	s.publish(moved, EventAppointmentRescheduled)
	s.publishSlot(ctx, appt.TimeSlotID)
	return moved, nil
}

// GetByBookingID returns an appointment visible to the actor
func (s *AppointmentService) GetByBookingID(ctx context.Context, actor Actor, bookingID string) (*models.Appointment, error) {
	appt, err := s.apptRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if !actor.owns(appt.AadhaarRecordID) {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

// ListMine lists the actor's own appointments
func (s *AppointmentService) ListMine(ctx context.Context, actor Actor, params *pagination.Params) ([]*models.Appointment, int64, error) {
	if actor.RecordID == 0 {
		return []*models.Appointment{}, 0, nil
	}
	return s.apptRepo.ListByRecord(ctx, actor.RecordID, params)
}

// List lists appointments for staff
func (s *AppointmentService) List(ctx context.Context, filter repositories.AppointmentFilter, params *pagination.Params) ([]*models.Appointment, int64, error) {
	if filter.Status != "" && !IsAppointmentStatus(filter.Status) {
		return nil, 0, ErrInvalidStatus
	}
	return s.apptRepo.List(ctx, filter, params)
}

// MarkNoShows flags scheduled appointments from days before today.
// Seats stay consumed, so only dashboards are invalidated.
func (s *AppointmentService) MarkNoShows(ctx context.Context) (int64, error) {
	n, err := s.apptRepo.MarkNoShows(ctx, s.now().Format(dateLayout))
	if err != nil || n == 0 {
		return n, err
	}
	if err := s.cache.DeletePrefix(ctx, dashboardCachePrefix); err != nil {
		log.Warn().Err(err).Str("prefix", dashboardCachePrefix).Msg("⚠️ Cache invalidation failed")
	}
	return n, nil
}

func (s *AppointmentService) owned(ctx context.Context, actor Actor, id uint) (*models.Appointment, error) {
	appt, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if !actor.owns(appt.AadhaarRecordID) {
		return nil, ErrForbidden
	}
	return appt, nil
}

func (s *AppointmentService) activeCenter(ctx context.Context, id uint) (*models.Center, error) {
	center, err := s.centerRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCenterNotFound
		}
		return nil, err
	}
	if !center.IsActive {
		return nil, ErrCenterInactive
	}
	return center, nil
}

func (s *AppointmentService) activeUpdateType(ctx context.Context, id uint) (*models.UpdateType, error) {
	updateType, err := s.updateTypeRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUpdateTypeNotFound
		}
		return nil, err
	}
	if !updateType.IsActive {
		return nil, ErrUpdateTypeInactive
	}
	return updateType, nil
}

func (s *AppointmentService) bookableSlot(ctx context.Context, id uint) (*models.TimeSlot, error) {
	slot, err := s.slotRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	if slotStarted(slot, s.now()) {
		return nil, ErrSlotInPast
	}
	return slot, nil
}

// slotStarted reports whether the slot's start is at or before now. Times are
// zero-padded "2006-01-02 15:04" strings in the server clock, so they compare lexically.
func slotStarted(slot *models.TimeSlot, now time.Time) bool {
	return slot.SlotDate+" "+slot.StartTime <= now.Format(dateLayout+" "+clockLayout)
}

// invalidate drops cached slot listings and dashboards touched by a seat change
func (s *AppointmentService) invalidate(ctx context.Context, centerID uint) {
	for _, prefix := range []string{slotCachePrefix(centerID), dashboardCachePrefix} {
		if err := s.cache.DeletePrefix(ctx, prefix); err != nil {
			log.Warn().Err(err).Str("prefix", prefix).Msg("⚠️ Cache invalidation failed")
		}
	}
}

func (s *AppointmentService) notify(appt *models.Appointment, event string) {
	if s.notifier == nil {
		return
	}

	notice := AppointmentNotice{
		Event:     event,
		BookingID: appt.BookingID,
		Status:    appt.Status,
	}
	if appt.Center != nil {
		notice.Center = appt.Center.Name
	}
	if appt.TimeSlot != nil {
		notice.SlotDate = appt.TimeSlot.SlotDate
		notice.StartTime = appt.TimeSlot.StartTime
	}
	recordID := appt.AadhaarRecordID

	deliverAsync("appointment "+event, func(ctx context.Context) error {
		record, err := s.recordRepo.GetByID(ctx, recordID)
		if err != nil {
			return err
		}
		notice.Email = record.Email
		notice.Phone = record.PhoneNumber
		return s.notifier.SendAppointmentNotice(ctx, notice)
	})
}

// publish pushes the appointment change and the resulting seat count to center boards
func (s *AppointmentService) publish(appt *models.Appointment, event string) {
	if s.events == nil {
		return
	}

	s.events.Publish(CenterEvent{
		Event:    event,
		CenterID: appt.CenterID,
		Data: map[string]interface{}{
			"booking_id":   appt.BookingID,
			"status":       appt.Status,
			"time_slot_id": appt.TimeSlotID,
		},
	})
	if appt.TimeSlot != nil {
		s.events.Publish(slotEvent(appt.TimeSlot))
	}
}

// publishSlot reloads a slot and pushes its seat count
func (s *AppointmentService) publishSlot(ctx context.Context, slotID uint) {
	if s.events == nil {
		return
	}

	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		log.Warn().Err(err).Uint("slot_id", slotID).Msg("⚠️ Slot reload for event failed")
		return
	}
	s.events.Publish(slotEvent(slot))
}

func slotEvent(slot *models.TimeSlot) CenterEvent {
	return CenterEvent{
		Event:    EventSlotChanged,
		CenterID: slot.CenterID,
		Data: map[string]interface{}{
			"time_slot_id":    slot.ID,
			"slot_date":       slot.SlotDate,
			"start_time":      slot.StartTime,
			"available_slots": slot.AvailableSlots,
		},
	}
}

// IsAppointmentStatus reports whether status is a known appointment status
func IsAppointmentStatus(status string) bool {
	for _, s := range models.AppointmentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func isTerminal(status string) bool {
	return status == models.StatusCompleted || status == models.StatusCancelled
}

// GenerateBookingID returns "AAD" + 10 time-based digits + 4 random characters
func GenerateBookingID(at time.Time) (string, error) {
	suffix := make([]byte, 4)
	limit := big.NewInt(int64(len(bookingSuffixAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		suffix[i] = bookingSuffixAlphabet[n.Int64()]
	}
	return fmt.Sprintf("AAD%010d%s", at.Unix()%1e10, suffix), nil
}
