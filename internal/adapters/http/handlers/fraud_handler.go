package handlers

import (
	"errors"

	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/pagination"
	"aadhaar-seva/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// FraudHandler handles fraud log endpoints
type FraudHandler struct {
	fraudService *services.FraudService
}

// NewFraudHandler creates a new fraud handler
func NewFraudHandler(fraudService *services.FraudService) *FraudHandler {
	return &FraudHandler{
		fraudService: fraudService,
	}
}

// Create records a fraud log entry
// @Summary Create fraud log (staff)
// @Tags Fraud Logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.FraudLogInput true "Entry"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /fraud-logs [post]
func (h *FraudHandler) Create(c *fiber.Ctx) error {
	var input services.FraudLogInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	entry, err := h.fraudService.Create(c.UserContext(), &input, c.IP())
	if err != nil {
		return h.fraudError(c, err, "Failed to create fraud log")
	}

	return response.Created(c, "Fraud log created", entry)
}

// List lists fraud log entries
// @Summary List fraud logs (staff)
// @Tags Fraud Logs
// @Produce json
// @Security BearerAuth
// @Param resolved query bool false "Filter by resolved flag"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /fraud-logs [get]
func (h *FraudHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	entries, total, err := h.fraudService.List(c.UserContext(), optionalBool(c.Query("resolved")), params)
	if err != nil {
		return response.InternalServerError(c, err, "Failed to list fraud logs")
	}

	return response.Paginated(c, "Fraud logs retrieved successfully", entries, params, total)
}

// Get returns one fraud log entry
// @Summary Get fraud log (staff)
// @Tags Fraud Logs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Fraud log ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /fraud-logs/{id} [get]
func (h *FraudHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid fraud log ID")
	}

	entry, err := h.fraudService.Get(c.UserContext(), id)
	if err != nil {
		return h.fraudError(c, err, "Failed to get fraud log")
	}

	return response.Success(c, "Fraud log retrieved successfully", entry)
}

// Resolve marks an entry resolved
// @Summary Resolve fraud log (staff)
// @Tags Fraud Logs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Fraud log ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /fraud-logs/{id}/resolve [put]
func (h *FraudHandler) Resolve(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid fraud log ID")
	}

	entry, err := h.fraudService.Resolve(c.UserContext(), id, actorFrom(c).UserID)
	if err != nil {
		return h.fraudError(c, err, "Failed to resolve fraud log")
	}

	return response.Success(c, "Fraud log resolved", entry)
}

func (h *FraudHandler) fraudError(c *fiber.Ctx, err error, fallback string) error {
	if ok, resp := validationFailed(c, err); ok {
		return resp
	}
	switch {
	case errors.Is(err, services.ErrFraudLogNotFound):
		return response.NotFound(c, "Fraud log not found")
	case errors.Is(err, services.ErrAlreadyResolved), errors.Is(err, services.ErrInvalidSeverity):
		return response.BadRequest(c, err.Error())
	default:
		return response.InternalServerError(c, err, fallback)
	}
}
