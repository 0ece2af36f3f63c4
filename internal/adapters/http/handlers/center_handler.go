package handlers

import (
	"errors"
	"strconv"
	"time"

	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/pagination"
	"aadhaar-seva/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CenterHandler handles enrolment center, time slot and update type endpoints
type CenterHandler struct {
	centerService *services.CenterService
	slotDays      int
}

// NewCenterHandler creates a new center handler
func NewCenterHandler(centerService *services.CenterService, slotDays int) *CenterHandler {
	return &CenterHandler{
		centerService: centerService,
		slotDays:      slotDays,
	}
}

// ListCenters lists active centers
// @Summary List centers
// @Tags Centers
// @Produce json
// @Param city query string false "City"
// @Param state query string false "State"
// @Param pincode query string false "Pincode"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /centers [get]
func (h *CenterHandler) ListCenters(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	filter := repositories.CenterFilter{
		City:    c.Query("city"),
		State:   c.Query("state"),
		Pincode: c.Query("pincode"),
	}

	page, err := h.centerService.List(c.UserContext(), filter, params)
	if err != nil {
		return response.InternalServerError(c, err, "Failed to list centers")
	}

	return response.Paginated(c, "Centers retrieved successfully", page.Items, params, page.Total)
}

// NearbyCenters lists active centers around a point
// @Summary Nearby centers
// @Description Active centers within radius_km of (lat, lng), nearest first
// @Tags Centers
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param radius_km query number false "Radius in km" default(10)
// @Param limit query int false "Max results" default(20)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /centers/nearby [get]
func (h *CenterHandler) NearbyCenters(c *fiber.Ctx) error {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		return response.BadRequest(c, "lat and lng are required")
	}
	radius, err := strconv.ParseFloat(c.Query("radius_km", "10"), 64)
	if err != nil {
		return response.BadRequest(c, "Invalid radius_km")
	}

	centers, err := h.centerService.Nearby(c.UserContext(), lat, lng, radius, c.QueryInt("limit", pagination.DefaultLimit))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCoordinates) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, err, "Failed to find nearby centers")
	}

	return response.Success(c, "Nearby centers retrieved successfully", centers)
}

// GetCenter returns one center
// @Summary Get center
// @Tags Centers
// @Produce json
// @Param id path int true "Center ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /centers/{id} [get]
func (h *CenterHandler) GetCenter(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid center ID")
	}

	center, err := h.centerService.Get(c.UserContext(), id)
	if err != nil {
		return h.centerError(c, err, "Failed to get center")
	}

	return response.Success(c, "Center retrieved successfully", center)
}

// ListSlots lists a center's slots for a date
// @Summary List time slots
// @Tags Centers
// @Produce json
// @Param id path int true "Center ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /centers/{id}/slots [get]
func (h *CenterHandler) ListSlots(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid center ID")
	}

	date := c.Query("date", time.Now().Format("2006-01-02"))
	slots, err := h.centerService.Slots(c.UserContext(), id, date)
	if err != nil {
		return h.centerError(c, err, "Failed to list time slots")
	}

	return response.Success(c, "Time slots retrieved successfully", slots)
}

// ListUpdateTypes lists update types
// @Summary List update types
// @Tags Centers
// @Produce json
// @Success 200 {object} response.Response
// @Router /update-types [get]
func (h *CenterHandler) ListUpdateTypes(c *fiber.Ctx) error {
	types, err := h.centerService.UpdateTypes(c.UserContext(), true)
	if err != nil {
		return response.InternalServerError(c, err, "Failed to list update types")
	}
	return response.Success(c, "Update types retrieved successfully", types)
}

// ============================================================
// Admin
// ============================================================

// CreateCenter creates a center
// @Summary Create center
// @Tags Centers (Admin)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CenterInput true "Center"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /centers [post]
func (h *CenterHandler) CreateCenter(c *fiber.Ctx) error {
	var input services.CenterInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	center, err := h.centerService.Create(c.UserContext(), &input)
	if err != nil {
		return h.centerError(c, err, "Failed to create center")
	}

	return response.Created(c, "Center created successfully", center)
}

// UpdateCenter updates a center
// @Summary Update center
// @Tags Centers (Admin)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Center ID"
// @Param body body services.CenterInput true "Center"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /centers/{id} [put]
func (h *CenterHandler) UpdateCenter(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid center ID")
	}

	var input services.CenterInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	center, err := h.centerService.Update(c.UserContext(), id, &input)
	if err != nil {
		return h.centerError(c, err, "Failed to update center")
	}

	return response.Success(c, "Center updated successfully", center)
}

// DeactivateCenter stops bookings at a center
// @Summary Deactivate center
// @Tags Centers (Admin)
// @Produce json
// @Security BearerAuth
// @Param id path int true "Center ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /centers/{id} [delete]
func (h *CenterHandler) DeactivateCenter(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

// ActivateCenter re-opens a center for bookings
// @Summary Activate center
// @Tags Centers (Admin)
// @Produce json
// @Security BearerAuth
// @Param id path int true "Center ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /centers/{id}/activate [put]
func (h *CenterHandler) ActivateCenter(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *CenterHandler) setActive(c *fiber.Ctx, active bool) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid center ID")
	}

	if err := h.centerService.SetActive(c.UserContext(), id, active); err != nil {
		return h.centerError(c, err, "Failed to update center")
	}

	if active {
		return response.Success(c, "Center activated", nil)
	}
	return response.Success(c, "Center deactivated", nil)
}

// CreateSlots creates slots for a center over a date range
// @Summary Create time slots
// @Description Creates missing slots from the center's hours for each day in the range (max 31 days)
// @Tags Centers (Admin)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Center ID"
// @Param body body services.SlotRangeInput true "Date range"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /centers/{id}/slots [post]
func (h *CenterHandler) CreateSlots(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid center ID")
	}

	var input services.SlotRangeInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	created, err := h.centerService.CreateSlots(c.UserContext(), id, &input)
	if err != nil {
		return h.centerError(c, err, "Failed to create time slots")
	}

	return response.Created(c, "Time slots created successfully", fiber.Map{"created": created})
}

// GenerateSlots runs the upcoming slot generation for every active center
// @Summary Generate upcoming slots
// @Tags Centers (Admin)
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /centers/slots/generate [post]
func (h *CenterHandler) GenerateSlots(c *fiber.Ctx) error {
	created, err := h.centerService.GenerateUpcomingSlots(c.UserContext(), h.slotDays)
	if err != nil {
		return response.InternalServerError(c, err, "Failed to generate time slots")
	}
	return response.Success(c, "Time slots generated", fiber.Map{"created": created, "days": h.slotDays})
}

// ListAllUpdateTypes lists update types including inactive ones
// @Summary List all update types
// @Tags Centers (Admin)
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /update-types/all [get]
func (h *CenterHandler) ListAllUpdateTypes(c *fiber.Ctx) error {
	types, err := h.centerService.UpdateTypes(c.UserContext(), false)
	if err != nil {
		return response.InternalServerError(c, err, "Failed to list update types")
	}
	return response.Success(c, "Update types retrieved successfully", types)
}

// CreateUpdateType creates an update type
// @Summary Create update type
// @Tags Centers (Admin)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateTypeInput true "Update type"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /update-types [post]
func (h *CenterHandler) CreateUpdateType(c *fiber.Ctx) error {
	var input services.UpdateTypeInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	updateType, err := h.centerService.CreateUpdateType(c.UserContext(), &input)
	if err != nil {
		return h.centerError(c, err, "Failed to create update type")
	}

	return response.Created(c, "Update type created successfully", updateType)
}

func (h *CenterHandler) centerError(c *fiber.Ctx, err error, fallback string) error {
	if ok, resp := validationFailed(c, err); ok {
		return resp
	}
	switch {
	case errors.Is(err, services.ErrCenterNotFound):
		return response.NotFound(c, "Center not found")
	case errors.Is(err, services.ErrCenterCodeTaken),
		errors.Is(err, services.ErrUpdateTypeCodeTaken),
		errors.Is(err, services.ErrCenterInactive),
		errors.Is(err, services.ErrInvalidHours),
		errors.Is(err, services.ErrInvalidDateRange):
		return response.BadRequest(c, err.Error())
	default:
		return response.InternalServerError(c, err, fallback)
	}
}
