package routes

import (
	"time"

	"aadhaar-seva/internal/adapters/http/handlers"
	"aadhaar-seva/internal/adapters/http/middleware"
	"aadhaar-seva/internal/config"
	"aadhaar-seva/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// publicCacheAge is the Cache-Control max-age of public center listings
const publicCacheAge = 5 * time.Minute

// Setup configures all routes for the application. cache may be nil when Redis is not configured.
func Setup(app *fiber.App, svc *services.Container, cfg *config.Config, cache handlers.Pinger) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg, cache)
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.OTP, cfg)
	userHandler := handlers.NewUserHandler(svc.Users)
	centerHandler := handlers.NewCenterHandler(svc.Centers, cfg.Slots.GenerationDays)
	appointmentHandler := handlers.NewAppointmentHandler(svc.Appointments)
	documentHandler := handlers.NewDocumentHandler(svc.Documents)
	updateRequestHandler := handlers.NewUpdateRequestHandler(svc.UpdateHistory)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard)
	fraudHandler := handlers.NewFraudHandler(svc.Fraud)
	eventHandler := handlers.NewEventHandler(svc.Events, svc.Centers)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	auth := middleware.AuthMiddleware(cfg)

	setupAuthRoutes(apiV1.Group("/auth", middleware.NoCacheHeaders()), authHandler, auth, cfg)
	setupCenterRoutes(apiV1, centerHandler, auth)
	apiV1.Get("/centers/:id/events", eventHandler.CenterEvents)
	setupAppointmentRoutes(apiV1.Group("/appointments", auth), appointmentHandler)
	setupDocumentRoutes(apiV1.Group("/documents", auth), documentHandler)
	setupUpdateRequestRoutes(apiV1.Group("/update-requests", auth), updateRequestHandler)

	// Staff
	dashboard := apiV1.Group("/dashboard", auth, middleware.OfficerOrAdmin())
	setupDashboardRoutes(dashboard, dashboardHandler)
	dashboard.Get("/centers/:id/events", eventHandler.StaffEvents)
	setupFraudRoutes(apiV1.Group("/fraud-logs", auth, middleware.OfficerOrAdmin()), fraudHandler)
	apiV1.Put("/records/:id/biometric", auth, middleware.OfficerOrAdmin(), userHandler.UpdateBiometric)

	// Admin
	setupUserRoutes(apiV1.Group("/users", auth, middleware.AdminOnly()), userHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, auth fiber.Handler, cfg *config.Config) {
	authLimit, strictLimit := passThrough, passThrough
	if cfg.RateLimit {
		authLimit, strictLimit = middleware.AuthRateLimiter(), middleware.StrictRateLimiter()
	}

	// Public routes
	router.Post("/signup", authLimit, handler.Signup)
	router.Post("/login", authLimit, handler.Login)
	router.Post("/login/otp", authLimit, handler.LoginWithOTP)
	router.Post("/send-otp", strictLimit, handler.SendOTP)
	router.Post("/verify-otp", authLimit, handler.VerifyOTP)
	router.Post("/reset-password", strictLimit, handler.ResetPassword)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", auth, handler.Me)
	router.Post("/logout-all", auth, handler.LogoutAll)
	router.Put("/change-password", auth, handler.ChangePassword)
}

// setupCenterRoutes configures center, slot and update type routes
func setupCenterRoutes(router fiber.Router, handler *handlers.CenterHandler, auth fiber.Handler) {
	centers := router.Group("/centers")
	cached := middleware.CacheControl(publicCacheAge)

	// Public
	centers.Get("/", cached, handler.ListCenters)
	centers.Get("/nearby", handler.NearbyCenters)
	centers.Get("/:id", cached, handler.GetCenter)
	centers.Get("/:id/slots", handler.ListSlots)
	router.Get("/update-types", cached, handler.ListUpdateTypes)

	// Admin
	admin := []fiber.Handler{auth, middleware.AdminOnly()}
	centers.Post("/", append(admin, handler.CreateCenter)...)
	centers.Post("/slots/generate", append(admin, handler.GenerateSlots)...)
	centers.Put("/:id", append(admin, handler.UpdateCenter)...)
	centers.Put("/:id/activate", append(admin, handler.ActivateCenter)...)
	centers.Delete("/:id", append(admin, handler.DeactivateCenter)...)
	centers.Post("/:id/slots", append(admin, handler.CreateSlots)...)
	router.Get("/update-types/all", append(admin, handler.ListAllUpdateTypes)...)
	router.Post("/update-types", append(admin, handler.CreateUpdateType)...)
}

// setupAppointmentRoutes configures appointment routes (authenticated)
func setupAppointmentRoutes(router fiber.Router, handler *handlers.AppointmentHandler) {
	router.Post("/", handler.Book)
	router.Get("/my", middleware.PrivateCacheHeaders(0), handler.ListMine)
	router.Put("/:id/cancel", handler.Cancel)
	router.Put("/:id/reschedule", handler.Reschedule)

	// Staff
	router.Get("/", middleware.OfficerOrAdmin(), handler.List)
	router.Put("/:id/status", middleware.OfficerOrAdmin(), handler.UpdateStatus)

	router.Get("/:bookingId", handler.GetByBookingID)
}

// setupDocumentRoutes configures document routes (authenticated)
func setupDocumentRoutes(router fiber.Router, handler *handlers.DocumentHandler) {
	router.Post("/", handler.Upload)
	router.Get("/my", handler.ListMine)
	router.Get("/:id/file", handler.Download)
	router.Delete("/:id", handler.Delete)

	// Staff
	router.Get("/", middleware.OfficerOrAdmin(), handler.ListForReview)
	router.Put("/:id/review", middleware.OfficerOrAdmin(), handler.Review)
}

// setupUpdateRequestRoutes configures update request routes (authenticated)
func setupUpdateRequestRoutes(router fiber.Router, handler *handlers.UpdateRequestHandler) {
	router.Post("/", handler.Submit)
	router.Get("/my", handler.ListMine)

	// Staff
	router.Get("/", middleware.OfficerOrAdmin(), handler.List)
	router.Put("/:id/approve", middleware.OfficerOrAdmin(), handler.Approve)
	router.Put("/:id/reject", middleware.OfficerOrAdmin(), handler.Reject)

	router.Get("/:urn", handler.GetByURN)
}

// setupDashboardRoutes configures dashboard routes (Officer/Admin)
func setupDashboardRoutes(router fiber.Router, handler *handlers.DashboardHandler) {
	router.Get("/overview", middleware.AdminOnly(), handler.GetOverview)
	router.Get("/center-load", handler.GetCenterLoad)
	router.Get("/center-load/history", handler.GetStoredLoad)
	router.Get("/forecast", handler.GetForecast)
	router.Get("/fraud-stats", handler.GetFraudStats)
}

// setupFraudRoutes configures fraud log routes (Officer/Admin)
func setupFraudRoutes(router fiber.Router, handler *handlers.FraudHandler) {
	router.Post("/", handler.Create)
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)
	router.Put("/:id/resolve", handler.Resolve)
}

// setupUserRoutes configures user management routes (Admin only)
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.ListUsers)
	router.Post("/staff", handler.CreateStaff)
	router.Get("/:id", handler.GetUser)
	router.Put("/:id", handler.UpdateUser)
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}
