package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// jobTimeout bounds a single scheduled run
const jobTimeout = 5 * time.Minute

// otpRetention is how long expired OTP rows are kept
const otpRetention = 24 * time.Hour

// CronService runs the scheduled maintenance jobs
type CronService struct {
	cron         *cron.Cron
	centers      *CenterService
	appointments *AppointmentService
	dashboard    *DashboardService
	otp          *OTPService
	auth         *AuthService
	slotDays     int
	now          func() time.Time
}

// NewCronService creates a new cron service
func NewCronService(
	centers *CenterService,
	appointments *AppointmentService,
	dashboard *DashboardService,
	otp *OTPService,
	auth *AuthService,
	slotDays int,
) *CronService {
	return &CronService{
		cron:         cron.New(),
		centers:      centers,
		appointments: appointments,
		dashboard:    dashboard,
		otp:          otp,
		auth:         auth,
		slotDays:     slotDays,
		now:          time.Now,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(ctx context.Context) (int64, error)
	}{
		{"5 0 * * *", "slot generation", s.GenerateSlots},
		{"15 0 * * *", "no-show marking", s.appointments.MarkNoShows},
		{"55 23 * * *", "center load aggregation", s.AggregateLoad},
		{"0 * * * *", "otp purge", s.PurgeOTPs},
		{"0 3 * * *", "refresh token purge", s.auth.PurgeRefreshTokens},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, func() { s.run(job.name, job.run) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.Info().Int("jobs", len(jobs)).Msg("🚀 Cron scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("🛑 Cron scheduler stopped")
}

// GenerateSlots creates missing slots for the upcoming days
func (s *CronService) GenerateSlots(ctx context.Context) (int64, error) {
	return s.centers.GenerateUpcomingSlots(ctx, s.slotDays)
}

// AggregateLoad stores today's center load
func (s *CronService) AggregateLoad(ctx context.Context) (int64, error) {
	n, err := s.dashboard.AggregateCenterLoad(ctx, s.now().Format(dateLayout))
	return int64(n), err
}

// PurgeOTPs removes OTP rows expired for longer than the retention
func (s *CronService) PurgeOTPs(ctx context.Context) (int64, error) {
	return s.otp.PurgeExpired(ctx, otpRetention)
}

func (s *CronService) run(name string, job func(ctx context.Context) (int64, error)) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("job", name).Msg("❌ Cron job panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	started := time.Now()
	n, err := job(ctx)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("❌ Cron job failed")
		return
	}
	log.Info().
		Str("job", name).
		Int64("affected", n).
		Dur("took", time.Since(started)).
		Msg("✅ Cron job finished")
}
