package services

import (
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/config"
	"aadhaar-seva/internal/pkg/cache"

	"gorm.io/gorm"
)

// Container holds the wired service graph shared by the HTTP layer and the scheduler
type Container struct {
	Auth          *AuthService
	OTP           *OTPService
	Users         *UserService
	Centers       *CenterService
	Appointments  *AppointmentService
	Documents     *DocumentService
	UpdateHistory *UpdateHistoryService
	Fraud         *FraudService
	Dashboard     *DashboardService
	Cron          *CronService
	Events        *EventHub
}

// NewContainer builds repositories and services over db. store may be nil (no caching)
// and notifier may be nil (no delivery).
func NewContainer(db *gorm.DB, cfg *config.Config, store cache.Store, notifier Notifier) *Container {
	if store == nil {
		store = cache.Noop{}
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	recordRepo := repositories.NewAadhaarRecordRepository(db)
	otpRepo := repositories.NewOTPRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	centerRepo := repositories.NewCenterRepository(db)
	updateTypeRepo := repositories.NewUpdateTypeRepository(db)
	slotRepo := repositories.NewTimeSlotRepository(db)
	apptRepo := repositories.NewAppointmentRepository(db)
	docRepo := repositories.NewDocumentRepository(db)
	historyRepo := repositories.NewUpdateHistoryRepository(db)
	fraudRepo := repositories.NewFraudLogRepository(db)
	loadRepo := repositories.NewCenterLoadRepository(db)

	// Services
	c := &Container{}
	c.Fraud = NewFraudService(fraudRepo, store)
	c.OTP = NewOTPService(otpRepo, recordRepo, notifier, c.Fraud, cfg.OTP)
	c.Auth = NewAuthService(userRepo, recordRepo, refreshTokenRepo, c.OTP, cfg)
	c.Users = NewUserService(userRepo, recordRepo, refreshTokenRepo)
	c.Centers = NewCenterService(centerRepo, slotRepo, updateTypeRepo, store, cfg.Redis.TTL)
	c.Appointments = NewAppointmentService(apptRepo, slotRepo, centerRepo, updateTypeRepo, recordRepo, notifier, store)
	c.Events = NewEventHub()
	c.Appointments.SetEvents(c.Events)
	c.Documents = NewDocumentService(docRepo, apptRepo, cfg.Upload)
	c.UpdateHistory = NewUpdateHistoryService(historyRepo, recordRepo, userRepo, apptRepo)
	c.Dashboard = NewDashboardService(db, loadRepo, store, cfg.Redis.TTL)
	c.Cron = NewCronService(c.Centers, c.Appointments, c.Dashboard, c.OTP, c.Auth, cfg.Slots.GenerationDays)
	return c
}
