package services

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingIDPattern = regexp.MustCompile(`^AAD[0-9]{10}[A-HJ-NP-Z2-9]{4}$`)

func TestGenerateBookingID(t *testing.T) {
	at := time.Date(2030, 1, 15, 9, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := GenerateBookingID(at)
		require.NoError(t, err)
		assert.Regexp(t, bookingIDPattern, id)
		assert.Equal(t, fmt.Sprintf("AAD%010d", at.Unix()%1e10), id[:13])
		seen[id] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestBookDecrementsSlot(t *testing.T) {
	e := newEnv(t, 3)
	svc := e.appointmentService()

	appt, err := svc.Book(context.Background(), e.citizen(), e.bookInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusScheduled, appt.Status)
	assert.Regexp(t, bookingIDPattern, appt.BookingID)
	assert.Equal(t, e.fixture.Record.ID, appt.AadhaarRecordID)
	require.NotNil(t, appt.TimeSlot)
	assert.Equal(t, 2, testutil.Available(t, e.db, e.fixture.Slot.ID))

	assert.Eventually(t, func() bool {
		_, _, notices := e.notifier.counts()
		return notices == 1
	}, time.Second, 10*time.Millisecond)
}

func TestBookFullSlotCreatesNothing(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.appointmentService()
	ctx := context.Background()

	_, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	_, err = svc.Book(ctx, e.citizen(), e.bookInput())
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.EqualError(t, err, "Time slot not available")

	var count int64
	e.db.Model(&models.Appointment{}).Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 0, testutil.Available(t, e.db, e.fixture.Slot.ID))
}

func TestBookValidation(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.appointmentService()
	ctx := context.Background()

	in := e.bookInput()
	in.TimeSlotID = 0
	_, err := svc.Book(ctx, e.citizen(), in)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Book(ctx, officer(), e.bookInput())
	assert.ErrorIs(t, err, ErrNoAadhaarRecord)

	in = e.bookInput()
	in.CenterID = 12345
	_, err = svc.Book(ctx, e.citizen(), in)
	assert.ErrorIs(t, err, ErrCenterNotFound)

	in = e.bookInput()
	in.UpdateTypeID = 12345
	_, err = svc.Book(ctx, e.citizen(), in)
	assert.ErrorIs(t, err, ErrUpdateTypeNotFound)

	other := &models.Center{Code: "DEL01", Name: "Delhi", City: "Delhi", State: "Delhi", IsActive: true}
	require.NoError(t, e.db.Create(other).Error)
	in = e.bookInput()
	in.CenterID = other.ID
	_, err = svc.Book(ctx, e.citizen(), in)
	assert.ErrorIs(t, err, ErrSlotCenterMismatch)

	svc.now = fixedClock(t, "2030-02-01T10:00:00Z")
	_, err = svc.Book(ctx, e.citizen(), e.bookInput())
	assert.ErrorIs(t, err, ErrSlotInPast)

	assert.Equal(t, 2, testutil.Available(t, e.db, e.fixture.Slot.ID))
}

func TestBookSlotStartedEarlierToday(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.appointmentService()
	ctx := context.Background()

	// fixture slot starts 2030-01-15 09:00
	svc.now = fixedClock(t, "2030-01-15T15:00:00Z")
	_, err := svc.Book(ctx, e.citizen(), e.bookInput())
	assert.ErrorIs(t, err, ErrSlotInPast)

	svc.now = fixedClock(t, "2030-01-15T09:00:00Z")
	_, err = svc.Book(ctx, e.citizen(), e.bookInput())
	assert.ErrorIs(t, err, ErrSlotInPast)
	assert.Equal(t, 2, testutil.Available(t, e.db, e.fixture.Slot.ID))

	svc.now = fixedClock(t, "2030-01-15T08:59:00Z")
	_, err = svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.Available(t, e.db, e.fixture.Slot.ID))
}

func TestBookInactiveCenter(t *testing.T) {
	e := newEnv(t, 2)
	require.NoError(t, e.db.Model(e.fixture.Center).Update("is_active", false).Error)

	_, err := e.appointmentService().Book(context.Background(), e.citizen(), e.bookInput())
	assert.ErrorIs(t, err, ErrCenterInactive)
}

func TestBookRetriesBookingIDCollision(t *testing.T) {
	e := newEnv(t, 3)
	svc := e.appointmentService()
	ctx := context.Background()

	first, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	calls := 0
	svc.newBookingID = func(time.Time) (string, error) {
		calls++
		if calls == 1 {
			return first.BookingID, nil
		}
		return "AAD0000000001ZZZZ", nil
	}

	second, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "AAD0000000001ZZZZ", second.BookingID)
	assert.Equal(t, 1, testutil.Available(t, e.db, e.fixture.Slot.ID))
}

func TestBookGivesUpAfterRepeatedCollisions(t *testing.T) {
	e := newEnv(t, 3)
	svc := e.appointmentService()
	ctx := context.Background()

	first, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	calls := 0
	svc.newBookingID = func(time.Time) (string, error) {
		calls++
		return first.BookingID, nil
	}

	_, err = svc.Book(ctx, e.citizen(), e.bookInput())
	assert.ErrorIs(t, err, ErrBookingIDUnavailable)
	assert.Equal(t, bookingIDAttempts, calls)
	assert.Equal(t, 2, testutil.Available(t, e.db, e.fixture.Slot.ID))
}

func TestCancelReleasesSeatOnce(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.appointmentService()
	ctx := context.Background()

	appt, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)
	require.Equal(t, 1, testutil.Available(t, e.db, e.fixture.Slot.ID))

	cancelled, err := svc.Cancel(ctx, e.citizen(), appt.ID, &CancelInput{Reason: "travel"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "travel", cancelled.CancelReason)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 2, testutil.Available(t, e.db, e.fixture.Slot.ID))

	_, err = svc.Cancel(ctx, e.citizen(), appt.ID, &CancelInput{})
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Equal(t, 2, testutil.Available(t, e.db, e.fixture.Slot.ID))
}

func TestCancelRequiresOwnership(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.appointmentService()
	ctx := context.Background()

	appt, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	stranger := Actor{UserID: 77, RecordID: e.fixture.Record.ID + 100, Role: models.RoleUser}
	_, err = svc.Cancel(ctx, stranger, appt.ID, &CancelInput{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Cancel(ctx, e.citizen(), 4242, &CancelInput{})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = svc.Cancel(ctx, officer(), appt.ID, &CancelInput{Reason: "center closed"})
	assert.NoError(t, err)
}

func TestUpdateStatusGuardsTerminalStates(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.appointmentService()
	ctx := context.Background()

	appt, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, appt.ID, &StatusInput{Status: "done"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	inReview, err := svc.UpdateStatus(ctx, appt.ID, &StatusInput{Status: models.StatusInReview})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInReview, inReview.Status)

	completed, err := svc.UpdateStatus(ctx, appt.ID, &StatusInput{Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.NotNil(t, completed.CompletedAt)

	same, err := svc.UpdateStatus(ctx, appt.ID, &StatusInput{Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, same.Status)

	_, err = svc.UpdateStatus(ctx, appt.ID, &StatusInput{Status: models.StatusScheduled})
	assert.ErrorIs(t, err, ErrTerminalStatus)

	assert.Equal(t, 1, testutil.Available(t, e.db, e.fixture.Slot.ID))
}

func TestUpdateStatusCancelReleasesSeat(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.appointmentService()
	ctx := context.Background()

	appt, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, appt.ID, &StatusInput{Status: models.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, 2, testutil.Available(t, e.db, e.fixture.Slot.ID))

	_, err = svc.UpdateStatus(ctx, appt.ID, &StatusInput{Status: models.StatusCompleted})
	assert.ErrorIs(t, err, ErrTerminalStatus)
}

func TestReschedule(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.appointmentService()
	ctx := context.Background()

	appt, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	next := testutil.NewSlot(t, e.db, e.fixture.Center.ID, "2030-01-16", "10:00", 1)

	_, err = svc.Reschedule(ctx, e.citizen(), appt.ID, &RescheduleInput{TimeSlotID: e.fixture.Slot.ID})
	assert.ErrorIs(t, err, ErrSameSlot)

	moved, err := svc.Reschedule(ctx, e.citizen(), appt.ID, &RescheduleInput{TimeSlotID: next.ID})
	require.NoError(t, err)
	assert.Equal(t, next.ID, moved.TimeSlotID)
	assert.Equal(t, 2, testutil.Available(t, e.db, e.fixture.Slot.ID))
	assert.Equal(t, 0, testutil.Available(t, e.db, next.ID))

	second, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)
	_, err = svc.Reschedule(ctx, e.citizen(), second.ID, &RescheduleInput{TimeSlotID: next.ID})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestGetByBookingIDHidesOthers(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.appointmentService()
	ctx := context.Background()

	appt, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	got, err := svc.GetByBookingID(ctx, e.citizen(), appt.BookingID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)

	_, err = svc.GetByBookingID(ctx, Actor{UserID: 5, RecordID: 9999, Role: models.RoleUser}, appt.BookingID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = svc.GetByBookingID(ctx, officer(), appt.BookingID)
	assert.NoError(t, err)

	mine, total, err := svc.ListMine(ctx, e.citizen(), newParams())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, mine, 1)
}

func TestMarkNoShows(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.appointmentService()
	ctx := context.Background()

	_, err := svc.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	store := &prefixRecorder{}
	svc.cache = store
	svc.now = fixedClock(t, "2030-01-16T00:15:00Z")
	n, err := svc.MarkNoShows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, testutil.Available(t, e.db, e.fixture.Slot.ID))
	assert.Equal(t, []string{dashboardCachePrefix}, store.deleted)

	n, err = svc.MarkNoShows(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, store.deleted, 1)
}

func TestBookPublishesCenterEvents(t *testing.T) {
	e := newEnv(t, 3)
	svc := e.appointmentService()
	hub := NewEventHub()
	svc.SetEvents(hub)

	staff := hub.Subscribe("board", e.fixture.Center.ID, true)
	public := hub.Subscribe("kiosk", e.fixture.Center.ID, false)

	_, err := svc.Book(context.Background(), e.citizen(), e.bookInput())
	require.NoError(t, err)

	require.Len(t, staff.Channel, 2)
	assert.Equal(t, EventAppointmentBooked, (<-staff.Channel).Event)

	require.Len(t, public.Channel, 1)
	event := <-public.Channel
	assert.Equal(t, EventSlotChanged, event.Event)
	data, ok := event.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, data["available_slots"])
}
