package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aadhaar-seva/internal/adapters/http/middleware"
	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/config"
	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/jwt"
	"aadhaar-seva/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app     *fiber.App
	db      *gorm.DB
	cfg     *config.Config
	fixture *testutil.Fixture
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "test-access-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
		OTP:    config.OTPConfig{Expiry: 5 * time.Minute, TypeFallback: true},
		Upload: config.UploadConfig{Dir: t.TempDir(), MaxBytes: 1 << 20},
		Redis:  config.RedisConfig{TTL: time.Minute},
		Slots:  config.SlotConfig{GenerationDays: 7},
	}

	db := testutil.NewDB(t)
	fixture := testutil.Seed(t, db, 2)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	Setup(app, services.NewContainer(db, cfg, nil, nil), cfg, nil)

	return &testServer{app: app, db: db, cfg: cfg, fixture: fixture}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

// tokenFor signs an access token for a user without going through login
func (s *testServer) tokenFor(t *testing.T, user *models.User, record *models.AadhaarRecord) string {
	t.Helper()

	sub := jwt.AccessSubject{UserID: user.ID, Role: user.Role}
	if record != nil {
		sub.AadhaarRecordID = record.ID
		sub.AadhaarNumber = record.AadhaarNumber
	}
	token, err := jwt.GenerateAccessToken(sub, s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins)
	require.NoError(t, err)
	return token
}

func (s *testServer) staff(t *testing.T, role string) string {
	t.Helper()

	user := &models.User{
		Email:       fmt.Sprintf("%s@seva.example", role),
		PhoneNumber: fmt.Sprintf("+9190000%05d", len(role)),
		Password:    "x",
		Role:        role,
		IsActive:    true,
	}
	require.NoError(t, s.db.Create(user).Error)
	return s.tokenFor(t, user, nil)
}

func signupBody(number string) fiber.Map {
	return fiber.Map{
		"aadhaar_number": number,
		"full_name":      "Ravi Kumar",
		"email":          "ravi@example.com",
		"phone_number":   "+919812345678",
		"password":       "secret123",
	}
}

func TestSignupAndLogin(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", signupBody("987698769876"))
	require.Equal(t, http.StatusCreated, status, body.Message)

	var auth services.AuthResponse
	require.NoError(t, json.Unmarshal(body.Data, &auth))
	assert.NotEmpty(t, auth.AccessToken)
	assert.NotEmpty(t, auth.RefreshToken)
	require.NotNil(t, auth.AadhaarRecord)
	assert.Equal(t, "987698769876", auth.AadhaarRecord.AadhaarNumber)

	status, body = s.do(t, http.MethodPost, "/api/v1/auth/signup", "", signupBody("987698769876"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, body.Success)

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"aadhaar_number": "987698769876",
		"password":       "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = s.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"aadhaar_number": "987698769876",
		"password":       "secret123",
	})
	require.Equal(t, http.StatusOK, status, body.Message)
	require.NoError(t, json.Unmarshal(body.Data, &auth))

	status, body = s.do(t, http.MethodGet, "/api/v1/auth/me", auth.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", signupBody("12345"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, body.Success)
}

func TestSendOTPEchoesCodeInDev(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/v1/auth/send-otp", "", fiber.Map{
		"aadhaar_number": s.fixture.Record.AadhaarNumber,
		"type":           models.OTPTypeLogin,
	})
	require.Equal(t, http.StatusOK, status, body.Message)

	var data struct {
		DevOTP string `json:"dev_otp"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Len(t, data.DevOTP, 6)

	status, body = s.do(t, http.MethodPost, "/api/v1/auth/login/otp", "", fiber.Map{
		"aadhaar_number": s.fixture.Record.AadhaarNumber,
		"otp":            data.DevOTP,
	})
	assert.Equal(t, http.StatusOK, status, body.Message)

	// consumed
	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/login/otp", "", fiber.Map{
		"aadhaar_number": s.fixture.Record.AadhaarNumber,
		"otp":            data.DevOTP,
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/v1/appointments/my", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/appointments/my", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	citizen := s.tokenFor(t, s.fixture.User, s.fixture.Record)
	officer := s.staff(t, models.RoleOfficer)

	status, _ := s.do(t, http.MethodGet, "/api/v1/dashboard/fraud-stats", citizen, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/dashboard/fraud-stats", officer, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/users", officer, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/centers", officer, fiber.Map{"code": "X1", "name": "X"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestPublicCenterRoutes(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/v1/centers", "", nil)
	require.Equal(t, http.StatusOK, status)
	var centers []models.Center
	require.NoError(t, json.Unmarshal(body.Data, &centers))
	require.Len(t, centers, 1)

	path := fmt.Sprintf("/api/v1/centers/%d/slots?date=%s", s.fixture.Center.ID, s.fixture.Slot.SlotDate)
	status, body = s.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, status)
	var slots []models.TimeSlot
	require.NoError(t, json.Unmarshal(body.Data, &slots))
	assert.Len(t, slots, 1)

	status, _ = s.do(t, http.MethodGet, "/api/v1/centers/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	citizen := s.tokenFor(t, s.fixture.User, s.fixture.Record)
	officer := s.staff(t, models.RoleOfficer)

	book := fiber.Map{
		"time_slot_id":   s.fixture.Slot.ID,
		"center_id":      s.fixture.Center.ID,
		"update_type_id": s.fixture.UpdateType.ID,
	}
	status, body := s.do(t, http.MethodPost, "/api/v1/appointments", citizen, book)
	require.Equal(t, http.StatusCreated, status, body.Message)

	var appt models.Appointment
	require.NoError(t, json.Unmarshal(body.Data, &appt))
	assert.NotEmpty(t, appt.BookingID)
	assert.Equal(t, models.StatusScheduled, appt.Status)
	assert.Equal(t, 1, testutil.Available(t, s.db, s.fixture.Slot.ID))

	status, _ = s.do(t, http.MethodGet, "/api/v1/appointments/"+appt.BookingID, citizen, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/appointments/%d/status", appt.ID), citizen,
		fiber.Map{"status": models.StatusCompleted})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/appointments/%d/cancel", appt.ID), citizen,
		fiber.Map{"reason": "travelling"})
	require.Equal(t, http.StatusOK, status, body.Message)
	assert.Equal(t, 2, testutil.Available(t, s.db, s.fixture.Slot.ID))

	status, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/appointments/%d/status", appt.ID), officer,
		fiber.Map{"status": models.StatusCompleted})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestEventStreamUnknownCenter(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/v1/centers/9999/events", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	citizen := s.tokenFor(t, s.fixture.User, s.fixture.Record)
	path := fmt.Sprintf("/api/v1/dashboard/centers/%d/events", s.fixture.Center.ID)
	status, _ = s.do(t, http.MethodGet, path, citizen, nil)
	assert.Equal(t, http.StatusForbidden, status)
}
