package handlers

import (
	"time"

	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetOverview returns system-wide totals
// @Summary Admin overview
// @Description Users, records, centers, appointments by status and pending work (Admin only)
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /dashboard/overview [get]
func (h *DashboardHandler) GetOverview(c *fiber.Ctx) error {
	data, err := h.dashboardService.Overview(c.UserContext())
	if err != nil {
		return response.InternalServerError(c, err, "Failed to get overview")
	}

	return response.Success(c, "Overview retrieved successfully", data)
}

// GetCenterLoad returns live per-center load for a date
// @Summary Center load
// @Description Capacity, booked seats and utilization per active center
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /dashboard/center-load [get]
func (h *DashboardHandler) GetCenterLoad(c *fiber.Ctx) error {
	date := c.Query("date", time.Now().Format("2006-01-02"))

	rows, err := h.dashboardService.CenterLoad(c.UserContext(), date)
	if err != nil {
		if ok, resp := validationFailed(c, err); ok {
			return resp
		}
		return response.InternalServerError(c, err, "Failed to get center load")
	}

	return response.Success(c, "Center load retrieved successfully", rows)
}

// GetStoredLoad returns the nightly aggregates for a date
// @Summary Center load history
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /dashboard/center-load/history [get]
func (h *DashboardHandler) GetStoredLoad(c *fiber.Ctx) error {
	loads, err := h.dashboardService.StoredLoad(c.UserContext(), c.Query("date"))
	if err != nil {
		if ok, resp := validationFailed(c, err); ok {
			return resp
		}
		return response.InternalServerError(c, err, "Failed to get center load history")
	}

	return response.Success(c, "Center load history retrieved successfully", loads)
}

// GetForecast projects demand from weekday averages
// @Summary Demand forecast
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param center_id query int false "Center ID (all centers when omitted)"
// @Param weeks query int false "History weeks" default(4)
// @Param days query int false "Projected days" default(7)
// @Success 200 {object} response.Response
// @Router /dashboard/forecast [get]
func (h *DashboardHandler) GetForecast(c *fiber.Ctx) error {
	forecast, err := h.dashboardService.Forecast(
		c.UserContext(),
		uint(c.QueryInt("center_id", 0)),
		c.QueryInt("weeks", 0),
		c.QueryInt("days", 0),
	)
	if err != nil {
		return response.InternalServerError(c, err, "Failed to build forecast")
	}

	return response.Success(c, "Forecast retrieved successfully", forecast)
}

// GetFraudStats returns fraud log totals
// @Summary Fraud statistics
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /dashboard/fraud-stats [get]
func (h *DashboardHandler) GetFraudStats(c *fiber.Ctx) error {
	stats, err := h.dashboardService.FraudStats(c.UserContext())
	if err != nil {
		return response.InternalServerError(c, err, "Failed to get fraud statistics")
	}

	return response.Success(c, "Fraud statistics retrieved successfully", stats)
}
