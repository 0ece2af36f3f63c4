package handlers

import (
	"errors"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/pagination"
	"aadhaar-seva/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UpdateRequestHandler handles Aadhaar field change requests
type UpdateRequestHandler struct {
	historyService *services.UpdateHistoryService
}

// NewUpdateRequestHandler creates a new update request handler
func NewUpdateRequestHandler(historyService *services.UpdateHistoryService) *UpdateRequestHandler {
	return &UpdateRequestHandler{
		historyService: historyService,
	}
}

// Submit files a field change for the caller's record
// @Summary Submit update request
// @Description field_name is one of full_name, address, email, phone_number, date_of_birth, gender
// @Tags Update Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateRequestInput true "Change"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /update-requests [post]
func (h *UpdateRequestHandler) Submit(c *fiber.Ctx) error {
	var input services.UpdateRequestInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	entry, err := h.historyService.Submit(c.UserContext(), actorFrom(c), &input)
	if err != nil {
		return h.requestError(c, err, "Failed to submit update request")
	}

	return response.Created(c, "Update request submitted", entry)
}

// ListMine lists the caller's update requests
// @Summary My update requests
// @Tags Update Requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /update-requests/my [get]
func (h *UpdateRequestHandler) ListMine(c *fiber.Ctx) error {
	entries, err := h.historyService.ListMine(c.UserContext(), actorFrom(c))
	if err != nil {
		return response.InternalServerError(c, err, "Failed to list update requests")
	}
	return response.Success(c, "Update requests retrieved successfully", entries)
}

// GetByURN returns an update request by its URN
// @Summary Track update request
// @Tags Update Requests
// @Produce json
// @Security BearerAuth
// @Param urn path string true "Update request number"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /update-requests/{urn} [get]
func (h *UpdateRequestHandler) GetByURN(c *fiber.Ctx) error {
	entry, err := h.historyService.GetByURN(c.UserContext(), actorFrom(c), c.Params("urn"))
	if err != nil {
		return h.requestError(c, err, "Failed to get update request")
	}
	return response.Success(c, "Update request retrieved successfully", entry)
}

// List lists update requests by status for staff
// @Summary List update requests (staff)
// @Tags Update Requests (Staff)
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending | approved | rejected" default(pending)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /update-requests [get]
func (h *UpdateRequestHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	entries, total, err := h.historyService.ListByStatus(c.UserContext(), c.Query("status", models.UpdatePending), params)
	if err != nil {
		return response.InternalServerError(c, err, "Failed to list update requests")
	}

	return response.Paginated(c, "Update requests retrieved successfully", entries, params, total)
}

// Approve applies a pending change to the Aadhaar record
// @Summary Approve update request (staff)
// @Tags Update Requests (Staff)
// @Produce json
// @Security BearerAuth
// @Param id path int true "Update request ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /update-requests/{id}/approve [put]
func (h *UpdateRequestHandler) Approve(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid update request ID")
	}

	entry, err := h.historyService.Approve(c.UserContext(), actorFrom(c).UserID, id)
	if err != nil {
		return h.requestError(c, err, "Failed to approve update request")
	}

	return response.Success(c, "Update request approved", entry)
}

// Reject closes a pending change with remarks
// @Summary Reject update request (staff)
// @Tags Update Requests (Staff)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Update request ID"
// @Param body body services.RejectInput true "Remarks"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /update-requests/{id}/reject [put]
func (h *UpdateRequestHandler) Reject(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid update request ID")
	}

	var input services.RejectInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	entry, err := h.historyService.Reject(c.UserContext(), actorFrom(c).UserID, id, &input)
	if err != nil {
		return h.requestError(c, err, "Failed to reject update request")
	}

	return response.Success(c, "Update request rejected", entry)
}

func (h *UpdateRequestHandler) requestError(c *fiber.Ctx, err error, fallback string) error {
	if ok, resp := validationFailed(c, err); ok {
		return resp
	}
	switch {
	case errors.Is(err, services.ErrUpdateRequestNotFound):
		return response.NotFound(c, "Update request not found")
	case errors.Is(err, services.ErrAppointmentNotFound),
		errors.Is(err, services.ErrAadhaarNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return response.Forbidden(c, "Appointment belongs to another record")
	case errors.Is(err, services.ErrFieldNotUpdatable),
		errors.Is(err, services.ErrNoChange),
		errors.Is(err, services.ErrAlreadyReviewed),
		errors.Is(err, services.ErrEmailRegistered),
		errors.Is(err, services.ErrPhoneRegistered),
		errors.Is(err, services.ErrNoAadhaarRecord):
		return response.BadRequest(c, err.Error())
	default:
		return response.InternalServerError(c, err, fallback)
	}
}
