package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/config"
	"aadhaar-seva/internal/pkg/cache"
	"aadhaar-seva/internal/pkg/pagination"
	"aadhaar-seva/internal/testutil"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// fakeNotifier records deliveries instead of sending them
type fakeNotifier struct {
	mu      sync.Mutex
	emails  []string
	sms     []string
	notices []AppointmentNotice
}

func (n *fakeNotifier) SendOTPEmail(_ context.Context, address, code, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, address+":"+code)
	return nil
}

func (n *fakeNotifier) SendOTPSMS(_ context.Context, phone, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sms = append(n.sms, phone+":"+code)
	return nil
}

func (n *fakeNotifier) SendAppointmentNotice(_ context.Context, notice AppointmentNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *fakeNotifier) counts() (emails, sms, notices int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.emails), len(n.sms), len(n.notices)
}

// mockFraudReporter is a testify mock of FraudReporter
type mockFraudReporter struct {
	mock.Mock
}

func (m *mockFraudReporter) Report(ctx context.Context, entry *models.FraudLog) error {
	return m.Called(ctx, entry).Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "test-access-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
		OTP: config.OTPConfig{
			Expiry:       2 * time.Minute,
			TypeFallback: true,
		},
	}
}

// env wires services over one test database
type env struct {
	db       *gorm.DB
	fixture  *testutil.Fixture
	notifier *fakeNotifier
	cfg      *config.Config

	users        repositories.UserRepository
	records      repositories.AadhaarRecordRepository
	otps         repositories.OTPRepository
	tokens       repositories.RefreshTokenRepository
	centers      repositories.CenterRepository
	updateTypes  repositories.UpdateTypeRepository
	slots        repositories.TimeSlotRepository
	appointments repositories.AppointmentRepository
}

func newEnv(t *testing.T, capacity int) *env {
	t.Helper()

	db := testutil.NewDB(t)
	return &env{
		db:           db,
		fixture:      testutil.Seed(t, db, capacity),
		notifier:     &fakeNotifier{},
		cfg:          testConfig(),
		users:        repositories.NewUserRepository(db),
		records:      repositories.NewAadhaarRecordRepository(db),
		otps:         repositories.NewOTPRepository(db),
		tokens:       repositories.NewRefreshTokenRepository(db),
		centers:      repositories.NewCenterRepository(db),
		updateTypes:  repositories.NewUpdateTypeRepository(db),
		slots:        repositories.NewTimeSlotRepository(db),
		appointments: repositories.NewAppointmentRepository(db),
	}
}

func (e *env) otpService(fraud FraudReporter) *OTPService {
	return NewOTPService(e.otps, e.records, e.notifier, fraud, e.cfg.OTP)
}

func (e *env) authService() *AuthService {
	return NewAuthService(e.users, e.records, e.tokens, e.otpService(nil), e.cfg)
}

func (e *env) appointmentService() *AppointmentService {
	return NewAppointmentService(e.appointments, e.slots, e.centers, e.updateTypes, e.records, e.notifier, nil)
}

func (e *env) centerService() *CenterService {
	return NewCenterService(e.centers, e.slots, e.updateTypes, nil, time.Minute)
}

func (e *env) citizen() Actor {
	return Actor{UserID: e.fixture.User.ID, RecordID: e.fixture.Record.ID, Role: models.RoleUser}
}

func officer() Actor {
	return Actor{UserID: 999, Role: models.RoleOfficer}
}

func (e *env) bookInput() *BookInput {
	return &BookInput{
		TimeSlotID:   e.fixture.Slot.ID,
		CenterID:     e.fixture.Center.ID,
		UpdateTypeID: e.fixture.UpdateType.ID,
	}
}

// fixedClock returns a now func pinned to the given RFC3339 instant
func fixedClock(t *testing.T, at string) func() time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, at)
	if err != nil {
		t.Fatalf("bad clock %q: %v", at, err)
	}
	return func() time.Time { return ts }
}

// wrongCode returns a 6 digit code different from code
func wrongCode(code string) string {
	b := []byte(code)
	if b[0] == '9' {
		b[0] = '0'
	} else {
		b[0]++
	}
	return string(b)
}

func newParams() *pagination.Params {
	return pagination.New(1, 20)
}

// prefixRecorder is a cache that never hits and remembers invalidated prefixes
type prefixRecorder struct {
	cache.Noop
	deleted []string
}

func (r *prefixRecorder) DeletePrefix(_ context.Context, prefix string) error {
	r.deleted = append(r.deleted, prefix)
	return nil
}
