package handlers

import (
	"errors"
	"time"

	"aadhaar-seva/internal/config"
	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
	otpService  *services.OTPService
	cfg         *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, otpService *services.OTPService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		otpService:  otpService,
		cfg:         cfg,
	}
}

// Signup handles citizen registration
// @Summary Register a citizen
// @Description Creates the user and the Aadhaar record together and returns a token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.SignupInput true "Signup data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var input services.SignupInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.authService.Signup(c.UserContext(), &input)
	if err != nil {
		if ok, resp := validationFailed(c, err); ok {
			return resp
		}
		switch {
		case errors.Is(err, services.ErrAadhaarRegistered),
			errors.Is(err, services.ErrEmailRegistered),
			errors.Is(err, services.ErrPhoneRegistered):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, err, "Failed to sign up")
		}
	}

	h.setAuthCookies(c, result.AccessToken, result.RefreshToken)
	return response.Created(c, "Signup successful", result)
}

// Login handles password login
// @Summary Login
// @Description Citizens log in with Aadhaar number, staff with email
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input services.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.authService.Login(c.UserContext(), &input)
	if err != nil {
		return h.loginError(c, err)
	}

	h.setAuthCookies(c, result.AccessToken, result.RefreshToken)
	return response.Success(c, "Login successful", result)
}

// LoginWithOTP handles login with a login OTP
// @Summary Login with OTP
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.OTPLoginInput true "Aadhaar number and OTP"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/login/otp [post]
func (h *AuthHandler) LoginWithOTP(c *fiber.Ctx) error {
	var input services.OTPLoginInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.authService.LoginWithOTP(c.UserContext(), &input)
	if err != nil {
		return h.loginError(c, err)
	}

	h.setAuthCookies(c, result.AccessToken, result.RefreshToken)
	return response.Success(c, "Login successful", result)
}

// SendOTP issues an OTP
// @Summary Send OTP
// @Description Issues a 6 digit OTP by SMS or email. In dev mode the code is echoed as dev_otp.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.IssueOTPInput true "OTP request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/send-otp [post]
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var input services.IssueOTPInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	issued, err := h.otpService.Issue(c.UserContext(), &input)
	if err != nil {
		return h.otpError(c, err, "Failed to send OTP")
	}

	data := fiber.Map{
		"type":        issued.Type,
		"channel":     issued.Channel,
		"destination": issued.Destination,
		"expires_at":  issued.ExpiresAt,
	}
	if h.cfg.IsDev() {
		data["dev_otp"] = issued.Code
	}
	return response.Success(c, "OTP sent successfully", data)
}

// VerifyOTP verifies an OTP
// @Summary Verify OTP
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.VerifyOTPInput true "OTP"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var input services.VerifyOTPInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	otp, err := h.otpService.Verify(c.UserContext(), &input)
	if err != nil {
		return h.otpError(c, err, "Failed to verify OTP")
	}

	return response.Success(c, "OTP verified successfully", fiber.Map{
		"type":        otp.Type,
		"verified_at": otp.VerifiedAt,
	})
}

// ResetPassword replaces a forgotten password
// @Summary Reset password
// @Description Verifies a password_reset OTP, sets the new password and revokes every session
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.ResetPasswordInput true "Reset data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input services.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.authService.ResetPassword(c.UserContext(), &input); err != nil {
		return h.otpError(c, err, "Failed to reset password")
	}

	h.clearAuthCookies(c)
	return response.Success(c, "Password reset successfully", nil)
}

// ChangePassword changes the password of the current user
// @Summary Change password
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ChangePasswordInput true "Passwords"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/change-password [put]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.ChangePasswordInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.authService.ChangePassword(c.UserContext(), userID, &input); err != nil {
		if ok, resp := validationFailed(c, err); ok {
			return resp
		}
		switch {
		case errors.Is(err, services.ErrWrongPassword):
			return response.BadRequest(c, "Current password is incorrect")
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		default:
			return response.InternalServerError(c, err, "Failed to change password")
		}
	}

	h.clearAuthCookies(c)
	return response.Success(c, "Password changed, please login again", nil)
}

// RefreshToken handles token refresh
// @Summary Refresh access token
// @Description Rotates the refresh token (cookie or body) and issues a new pair
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := h.refreshTokenFrom(c)
	if refreshToken == "" {
		return response.Unauthorized(c, "Refresh token not found")
	}

	result, err := h.authService.RefreshToken(c.UserContext(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenExpired):
			h.clearAuthCookies(c)
			return response.Unauthorized(c, "Refresh token expired, please login again")
		case errors.Is(err, services.ErrTokenRevoked):
			h.clearAuthCookies(c)
			return response.Unauthorized(c, "Refresh token revoked, please login again")
		case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrUserNotFound):
			h.clearAuthCookies(c)
			return response.Unauthorized(c, "Invalid refresh token")
		case errors.Is(err, services.ErrUserInactive):
			h.clearAuthCookies(c)
			return response.Unauthorized(c, "User account is inactive")
		default:
			return response.InternalServerError(c, err, "Failed to refresh token")
		}
	}

	h.setAuthCookies(c, result.AccessToken, result.RefreshToken)
	return response.Success(c, "Token refreshed successfully", result)
}

// Logout handles user logout
// @Summary Logout user
// @Description Logout user and revoke refresh token
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if refreshToken := h.refreshTokenFrom(c); refreshToken != "" {
		_ = h.authService.Logout(c.UserContext(), refreshToken)
	}

	h.clearAuthCookies(c)
	return response.Success(c, "Logged out successfully", nil)
}

// LogoutAll handles logout from all devices
// @Summary Logout from all devices
// @Description Revoke all refresh tokens for the user
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.authService.LogoutAll(c.UserContext(), userID); err != nil {
		return response.InternalServerError(c, err, "Failed to logout from all devices")
	}

	h.clearAuthCookies(c)
	return response.Success(c, "Logged out from all devices", nil)
}

// Me returns the current user info
// @Summary Get current user
// @Description Get the authenticated user with their Aadhaar record
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	profile, err := h.authService.Me(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, err, "Failed to get user")
	}

	return response.Success(c, "User retrieved successfully", profile)
}

func (h *AuthHandler) loginError(c *fiber.Ctx, err error) error {
	if ok, resp := validationFailed(c, err); ok {
		return resp
	}
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return response.Unauthorized(c, "Invalid credentials")
	case errors.Is(err, services.ErrUserInactive):
		return response.Unauthorized(c, "User account is inactive")
	default:
		return h.otpError(c, err, "Failed to login")
	}
}

func (h *AuthHandler) otpError(c *fiber.Ctx, err error, fallback string) error {
	if ok, resp := validationFailed(c, err); ok {
		return resp
	}
	switch {
	case errors.Is(err, services.ErrOTPInvalid),
		errors.Is(err, services.ErrOTPNotFound),
		errors.Is(err, services.ErrOTPExpired),
		errors.Is(err, services.ErrOTPExhausted),
		errors.Is(err, services.ErrInvalidOTPType),
		errors.Is(err, services.ErrDestinationMissing),
		errors.Is(err, services.ErrAadhaarRegistered):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAadhaarNotFound):
		return response.NotFound(c, "Aadhaar record not found")
	default:
		return response.InternalServerError(c, err, fallback)
	}
}

// refreshTokenFrom reads the refresh token from the cookie, then the JSON body
func (h *AuthHandler) refreshTokenFrom(c *fiber.Ctx) string {
	if token := c.Cookies("refresh_token"); token != "" {
		return token
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return ""
	}
	return body.RefreshToken
}

// setAuthCookies sets access and refresh token cookies
func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   h.cfg.JWT.AccessTokenMins * 60,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})

	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/api/v1/auth",
		MaxAge:   h.cfg.JWT.RefreshTokenDays * 24 * 60 * 60,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}

// clearAuthCookies clears auth cookies
func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-1 * time.Hour)
	for name, path := range map[string]string{"access_token": "/", "refresh_token": "/api/v1/auth"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			MaxAge:   -1,
			Expires:  expired,
			Secure:   h.cfg.Cookie.Secure,
			HTTPOnly: true,
			SameSite: h.cfg.Cookie.SameSite,
			Domain:   h.cfg.Cookie.Domain,
		})
	}
}
