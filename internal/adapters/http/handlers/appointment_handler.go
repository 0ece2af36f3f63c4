package handlers

import (
	"errors"

	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/pagination"
	"aadhaar-seva/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AppointmentHandler handles appointment endpoints
type AppointmentHandler struct {
	appointmentService *services.AppointmentService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(appointmentService *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentService: appointmentService,
	}
}

// Book reserves a seat in a time slot
// @Summary Book appointment
// @Description Reserves one seat in the slot and returns the scheduled appointment with its booking id
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.BookInput true "Booking"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /appointments [post]
func (h *AppointmentHandler) Book(c *fiber.Ctx) error {
	var input services.BookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	appt, err := h.appointmentService.Book(c.UserContext(), actorFrom(c), &input)
	if err != nil {
		return h.appointmentError(c, err, "Failed to book appointment")
	}

	return response.Created(c, "Appointment booked successfully", appt)
}

// ListMine lists the caller's appointments
// @Summary My appointments
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /appointments/my [get]
func (h *AppointmentHandler) ListMine(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	items, total, err := h.appointmentService.ListMine(c.UserContext(), actorFrom(c), params)
	if err != nil {
		return response.InternalServerError(c, err, "Failed to list appointments")
	}

	return response.Paginated(c, "Appointments retrieved successfully", items, params, total)
}

// GetByBookingID returns one appointment by booking id
// @Summary Get appointment
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param bookingId path string true "Booking ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /appointments/{bookingId} [get]
func (h *AppointmentHandler) GetByBookingID(c *fiber.Ctx) error {
	appt, err := h.appointmentService.GetByBookingID(c.UserContext(), actorFrom(c), c.Params("bookingId"))
	if err != nil {
		return h.appointmentError(c, err, "Failed to get appointment")
	}

	return response.Success(c, "Appointment retrieved successfully", appt)
}

// Cancel cancels a scheduled appointment
// @Summary Cancel appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Param body body services.CancelInput false "Reason"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /appointments/{id}/cancel [put]
func (h *AppointmentHandler) Cancel(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid appointment ID")
	}

	var input services.CancelInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	appt, err := h.appointmentService.Cancel(c.UserContext(), actorFrom(c), id, &input)
	if err != nil {
		return h.appointmentError(c, err, "Failed to cancel appointment")
	}

	return response.Success(c, "Appointment cancelled successfully", appt)
}

// Reschedule moves an appointment to another slot
// @Summary Reschedule appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Param body body services.RescheduleInput true "New slot"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /appointments/{id}/reschedule [put]
func (h *AppointmentHandler) Reschedule(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid appointment ID")
	}

	var input services.RescheduleInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	appt, err := h.appointmentService.Reschedule(c.UserContext(), actorFrom(c), id, &input)
	if err != nil {
		return h.appointmentError(c, err, "Failed to reschedule appointment")
	}

	return response.Success(c, "Appointment rescheduled successfully", appt)
}

// List lists appointments for staff
// @Summary List appointments (staff)
// @Tags Appointments (Staff)
// @Produce json
// @Security BearerAuth
// @Param center_id query int false "Center ID"
// @Param date query string false "Slot date (YYYY-MM-DD)"
// @Param status query string false "Status"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	filter := repositories.AppointmentFilter{
		CenterID: uint(c.QueryInt("center_id", 0)),
		Date:     c.Query("date"),
		Status:   c.Query("status"),
	}

	items, total, err := h.appointmentService.List(c.UserContext(), filter, params)
	if err != nil {
		return h.appointmentError(c, err, "Failed to list appointments")
	}

	return response.Paginated(c, "Appointments retrieved successfully", items, params, total)
}

// UpdateStatus changes an appointment status
// @Summary Update appointment status (staff)
// @Description completed and cancelled are terminal; cancelling here gives the seat back
// @Tags Appointments (Staff)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Param body body services.StatusInput true "Status"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /appointments/{id}/status [put]
func (h *AppointmentHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid appointment ID")
	}

	var input services.StatusInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	appt, err := h.appointmentService.UpdateStatus(c.UserContext(), id, &input)
	if err != nil {
		return h.appointmentError(c, err, "Failed to update appointment status")
	}

	return response.Success(c, "Appointment status updated", appt)
}

func (h *AppointmentHandler) appointmentError(c *fiber.Ctx, err error, fallback string) error {
	if ok, resp := validationFailed(c, err); ok {
		return resp
	}
	switch {
	case errors.Is(err, services.ErrAppointmentNotFound):
		return response.NotFound(c, "Appointment not found")
	case errors.Is(err, services.ErrSlotNotFound),
		errors.Is(err, services.ErrCenterNotFound),
		errors.Is(err, services.ErrUpdateTypeNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return response.Forbidden(c, "You don't have permission to access this appointment")
	case errors.Is(err, services.ErrSlotUnavailable),
		errors.Is(err, services.ErrSlotCenterMismatch),
		errors.Is(err, services.ErrSlotInPast),
		errors.Is(err, services.ErrCenterInactive),
		errors.Is(err, services.ErrUpdateTypeInactive),
		errors.Is(err, services.ErrNotCancellable),
		errors.Is(err, services.ErrNotReschedulable),
		errors.Is(err, services.ErrSameSlot),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrTerminalStatus),
		errors.Is(err, services.ErrStatusConflict),
		errors.Is(err, services.ErrNoAadhaarRecord):
		return response.BadRequest(c, err.Error())
	default:
		return response.InternalServerError(c, err, fallback)
	}
}
