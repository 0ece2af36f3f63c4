package services

import (
	"context"
	"testing"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) dashboardService() *DashboardService {
	return NewDashboardService(e.db, repositories.NewCenterLoadRepository(e.db), nil, time.Minute)
}

func TestCenterLoad(t *testing.T) {
	e := newEnv(t, 4)
	ctx := context.Background()

	_, err := e.appointmentService().Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	rows, err := e.dashboardService().CenterLoad(ctx, "2030-01-15")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BLR01", rows[0].Code)
	assert.Equal(t, int64(4), rows[0].Capacity)
	assert.Equal(t, int64(3), rows[0].Available)
	assert.Equal(t, int64(1), rows[0].Booked)
	assert.Equal(t, 25.0, rows[0].Utilization)

	empty, err := e.dashboardService().CenterLoad(ctx, "2030-01-20")
	require.NoError(t, err)
	require.Len(t, empty, 1)
	assert.Zero(t, empty[0].Capacity)
	assert.Zero(t, empty[0].Utilization)

	_, err = e.dashboardService().CenterLoad(ctx, "15/01/2030")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAggregateCenterLoadUpserts(t *testing.T) {
	e := newEnv(t, 4)
	appts := e.appointmentService()
	dash := e.dashboardService()
	ctx := context.Background()

	first, err := appts.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)
	_, err = appts.Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	n, err := dash.AggregateCenterLoad(ctx, "2030-01-15")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = appts.Cancel(ctx, e.citizen(), first.ID, &CancelInput{})
	require.NoError(t, err)
	_, err = dash.AggregateCenterLoad(ctx, "2030-01-15")
	require.NoError(t, err)

	loads, err := dash.StoredLoad(ctx, "2030-01-15")
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, 4, loads[0].TotalCapacity)
	assert.Equal(t, 1, loads[0].Booked)
	assert.Equal(t, 1, loads[0].Cancelled)
	assert.Equal(t, 25.0, loads[0].Utilization)
}

func TestForecastUsesWeekdayAverages(t *testing.T) {
	e := newEnv(t, 10)
	appts := e.appointmentService()
	ctx := context.Background()

	// 2030-01-15 is a Tuesday; two bookings on it and one a week later
	appts.now = fixedClock(t, "2030-01-01T08:00:00Z")
	for i := 0; i < 2; i++ {
		_, err := appts.Book(ctx, e.citizen(), e.bookInput())
		require.NoError(t, err)
	}
	later := testutil.NewSlot(t, e.db, e.fixture.Center.ID, "2030-01-22", "09:00", 10)
	in := e.bookInput()
	in.TimeSlotID = later.ID
	_, err := appts.Book(ctx, e.citizen(), in)
	require.NoError(t, err)

	dash := e.dashboardService()
	dash.now = fixedClock(t, "2030-01-28T12:00:00Z")

	forecast, err := dash.Forecast(ctx, e.fixture.Center.ID, 2, 7)
	require.NoError(t, err)
	assert.Len(t, forecast.History, 14)
	require.Len(t, forecast.Projected, 7)

	for _, p := range forecast.Projected {
		if p.Weekday == time.Tuesday.String() {
			assert.Equal(t, "2030-01-29", p.Date)
			assert.Equal(t, 1.5, p.Bookings)
		} else {
			assert.Zero(t, p.Bookings)
		}
	}

	other, err := dash.Forecast(ctx, 4242, 2, 7)
	require.NoError(t, err)
	for _, p := range other.Projected {
		assert.Zero(t, p.Bookings)
	}
}

func TestFraudStatsAndOverview(t *testing.T) {
	e := newEnv(t, 2)
	fraud := NewFraudService(repositories.NewFraudLogRepository(e.db), nil)
	ctx := context.Background()

	require.NoError(t, fraud.Report(ctx, &models.FraudLog{FraudType: FraudTypeOTPAbuse, Severity: models.SeverityMedium}))
	require.NoError(t, fraud.Report(ctx, &models.FraudLog{FraudType: FraudTypeOTPAbuse}))
	entry, err := fraud.Create(ctx, &FraudLogInput{FraudType: "forged_document", Severity: models.SeverityHigh}, "10.0.0.1")
	require.NoError(t, err)
	_, err = fraud.Resolve(ctx, entry.ID, 999)
	require.NoError(t, err)

	dash := e.dashboardService()
	stats, err := dash.FraudStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Unresolved)
	assert.Equal(t, int64(3), stats.LastWeek)
	assert.Equal(t, int64(2), stats.ByType[FraudTypeOTPAbuse])
	assert.Equal(t, int64(1), stats.BySeverity[models.SeverityLow])
	assert.Equal(t, int64(1), stats.BySeverity[models.SeverityHigh])

	_, err = e.appointmentService().Book(ctx, e.citizen(), e.bookInput())
	require.NoError(t, err)

	overview, err := dash.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), overview.TotalUsers)
	assert.Equal(t, int64(1), overview.TotalRecords)
	assert.Equal(t, int64(1), overview.ActiveCenters)
	assert.Equal(t, int64(1), overview.Appointments[models.StatusScheduled])
	assert.Equal(t, int64(2), overview.UnresolvedFrauds)
	assert.Equal(t, int64(1), overview.BiometricsPending)
}
