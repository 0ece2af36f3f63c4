package handlers

import (
	"errors"

	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/pagination"
	"aadhaar-seva/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// ListUsers handles listing all users (Admin only)
// @Summary List all users
// @Description Get a paginated list of all users (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param role query string false "USER | OFFICER | ADMIN"
// @Param is_active query bool false "Active flag"
// @Param search query string false "Email, phone or Aadhaar number"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	filter := repositories.UserFilter{
		Role:   c.Query("role"),
		Active: optionalBool(c.Query("is_active")),
		Search: c.Query("search"),
	}

	users, total, err := h.userService.ListUsers(c.UserContext(), filter, params)
	if err != nil {
		return h.userError(c, err, "Failed to list users")
	}

	return response.Paginated(c, "Users retrieved successfully", users, params, total)
}

// GetUser handles getting a user by ID (Admin only)
// @Summary Get user by ID
// @Description Get a specific user with their Aadhaar record (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	profile, err := h.userService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return h.userError(c, err, "Failed to get user")
	}

	return response.Success(c, "User retrieved successfully", profile)
}

// CreateStaff creates an officer or admin account (Admin only)
// @Summary Create staff account
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateStaffInput true "Staff account"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /users/staff [post]
func (h *UserHandler) CreateStaff(c *fiber.Ctx) error {
	var input services.CreateStaffInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.CreateStaff(c.UserContext(), &input)
	if err != nil {
		return h.userError(c, err, "Failed to create staff account")
	}

	return response.Created(c, "Staff account created successfully", user)
}

// UpdateUser handles updating a user (Admin only)
// @Summary Update user
// @Description Change a user's role or active flag. Deactivation ends every session. (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body services.UpdateUserByAdminInput true "Update data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	var input services.UpdateUserByAdminInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	adminID, _ := c.Locals("userID").(uint)

	profile, err := h.userService.UpdateUserByAdmin(c.UserContext(), id, adminID, &input)
	if err != nil {
		return h.userError(c, err, "Failed to update user")
	}

	return response.Success(c, "User updated successfully", profile)
}

// UpdateBiometric records a biometric capture outcome (Officer or Admin)
// @Summary Update biometric status
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Aadhaar record ID"
// @Param body body services.BiometricInput true "pending | captured | updated"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /records/{id}/biometric [put]
func (h *UserHandler) UpdateBiometric(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid record ID")
	}

	var input services.BiometricInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	record, err := h.userService.UpdateBiometricStatus(c.UserContext(), id, &input)
	if err != nil {
		return h.userError(c, err, "Failed to update biometric status")
	}

	return response.Success(c, "Biometric status updated", record)
}

func (h *UserHandler) userError(c *fiber.Ctx, err error, fallback string) error {
	if ok, resp := validationFailed(c, err); ok {
		return resp
	}
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return response.NotFound(c, "User not found")
	case errors.Is(err, services.ErrAadhaarNotFound):
		return response.NotFound(c, "Aadhaar record not found")
	case errors.Is(err, services.ErrCannotChangeOwnRole),
		errors.Is(err, services.ErrCannotDeactivateSelf),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidBiometric),
		errors.Is(err, services.ErrEmailRegistered),
		errors.Is(err, services.ErrPhoneRegistered):
		return response.BadRequest(c, err.Error())
	default:
		return response.InternalServerError(c, err, fallback)
	}
}
