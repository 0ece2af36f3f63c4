package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/pkg/cache"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Forecast bounds
const (
	defaultForecastWeeks = 4
	maxForecastWeeks     = 12
	defaultForecastDays  = 7
	maxForecastDays      = 30
)

// DashboardService handles dashboard operations
type DashboardService struct {
	db       *gorm.DB
	loadRepo repositories.CenterLoadRepository
	cache    cache.Store
	cacheTTL time.Duration
	now      func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB, loadRepo repositories.CenterLoadRepository, store cache.Store, cacheTTL time.Duration) *DashboardService {
	if store == nil {
		store = cache.Noop{}
	}
	return &DashboardService{
		db:       db,
		loadRepo: loadRepo,
		cache:    store,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// ============================================================
// Center Load
// ============================================================

// CenterLoadRow is the live load of one center on a date
type CenterLoadRow struct {
	CenterID    uint    `json:"center_id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	City        string  `json:"city"`
	Capacity    int64   `json:"capacity"`
	Available   int64   `json:"available"`
	Booked      int64   `json:"booked"`
	Utilization float64 `json:"utilization"`
}

// CenterLoad returns capacity, booked and utilization per active center for a date
func (s *DashboardService) CenterLoad(ctx context.Context, date string) ([]CenterLoadRow, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, invalid("date must be in YYYY-MM-DD format")
	}

	var rows []CenterLoadRow
	err := s.cached(ctx, dashboardCachePrefix+"load:"+date, &rows, func() error {
		err := s.db.WithContext(ctx).Table("centers AS c").
			Select(`
				c.id AS center_id,
				c.code,
				c.name,
				c.city,
				COALESCE(SUM(ts.total_capacity), 0) AS capacity,
				COALESCE(SUM(ts.available_slots), 0) AS available
			`).
			Joins("LEFT JOIN time_slots ts ON ts.center_id = c.id AND ts.slot_date = ? AND ts.is_active = ?", date, true).
			Where("c.is_active = ?", true).
			Group("c.id, c.code, c.name, c.city").
			Order("c.id ASC").
			Scan(&rows).Error
		if err != nil {
			return err
		}

		for i := range rows {
			rows[i].Booked = rows[i].Capacity - rows[i].Available
			rows[i].Utilization = percent(rows[i].Booked, rows[i].Capacity)
		}
		return nil
	})
	return rows, err
}

// StoredLoad returns the end-of-day aggregates saved for a date
func (s *DashboardService) StoredLoad(ctx context.Context, date string) ([]*models.CenterLoad, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, invalid("date must be in YYYY-MM-DD format")
	}
	return s.loadRepo.ListByDate(ctx, date)
}

// AggregateCenterLoad computes and stores the per-center aggregates for a date (nightly job)
func (s *DashboardService) AggregateCenterLoad(ctx context.Context, date string) (int, error) {
	var capacities []struct {
		CenterID uint
		Capacity int
	}
	err := s.db.WithContext(ctx).Table("time_slots").
		Select("center_id, COALESCE(SUM(total_capacity), 0) AS capacity").
		Where("slot_date = ?", date).
		Group("center_id").
		Scan(&capacities).Error
	if err != nil {
		return 0, err
	}

	var counts []struct {
		CenterID  uint
		Booked    int
		Completed int
		Cancelled int
		NoShow    int
	}
	err = s.db.WithContext(ctx).Table("appointments AS a").
		Select(`
			a.center_id,
			SUM(CASE WHEN a.status <> ? THEN 1 ELSE 0 END) AS booked,
			SUM(CASE WHEN a.status = ? THEN 1 ELSE 0 END) AS completed,
			SUM(CASE WHEN a.status = ? THEN 1 ELSE 0 END) AS cancelled,
			SUM(CASE WHEN a.status = ? THEN 1 ELSE 0 END) AS no_show
		`, models.StatusCancelled, models.StatusCompleted, models.StatusCancelled, models.StatusNoShow).
		Joins("JOIN time_slots ts ON ts.id = a.time_slot_id").
		Where("ts.slot_date = ?", date).
		Group("a.center_id").
		Scan(&counts).Error
	if err != nil {
		return 0, err
	}

	loads := make(map[uint]*models.CenterLoad)
	get := func(centerID uint) *models.CenterLoad {
		l, ok := loads[centerID]
		if !ok {
			l = &models.CenterLoad{CenterID: centerID, LoadDate: date}
			loads[centerID] = l
		}
		return l
	}
	for _, c := range capacities {
		get(c.CenterID).TotalCapacity = c.Capacity
	}
	for _, c := range counts {
		l := get(c.CenterID)
		l.Booked = c.Booked
		l.Completed = c.Completed
		l.Cancelled = c.Cancelled
		l.NoShow = c.NoShow
	}

	batch := make([]*models.CenterLoad, 0, len(loads))
	for _, l := range loads {
		l.Utilization = percent(int64(l.Booked), int64(l.TotalCapacity))
		batch = append(batch, l)
	}
	if err := s.loadRepo.Upsert(ctx, batch); err != nil {
		return 0, err
	}

	log.Info().Str("date", date).Int("centers", len(batch)).Msg("✅ Center load aggregated")
	return len(batch), nil
}

// ============================================================
// Demand Forecast
// ============================================================

// DemandPoint is the booking count of one day
type DemandPoint struct {
	Date     string  `json:"date"`
	Weekday  string  `json:"weekday"`
	Bookings float64 `json:"bookings"`
}

// DemandForecast is recent demand and its projection
type DemandForecast struct {
	CenterID  uint          `json:"center_id,omitempty"`
	Weeks     int           `json:"weeks"`
	History   []DemandPoint `json:"history"`
	Projected []DemandPoint `json:"projected"`
}

// Forecast projects bookings for the next days from weekday averages over the last weeks.
// centerID 0 means all centers.
func (s *DashboardService) Forecast(ctx context.Context, centerID uint, weeks, days int) (*DemandForecast, error) {
	if weeks <= 0 {
		weeks = defaultForecastWeeks
	}
	if weeks > maxForecastWeeks {
		weeks = maxForecastWeeks
	}
	if days <= 0 {
		days = defaultForecastDays
	}
	if days > maxForecastDays {
		days = maxForecastDays
	}

	today, _ := time.Parse(dateLayout, s.now().Format(dateLayout))
	key := fmt.Sprintf("%sforecast:%d:%d:%d:%s", dashboardCachePrefix, centerID, weeks, days, today.Format(dateLayout))

	var forecast DemandForecast
	err := s.cached(ctx, key, &forecast, func() error {
		from := today.AddDate(0, 0, -weeks*7)

		var rows []struct {
			SlotDate string
			Bookings int64
		}
		query := s.db.WithContext(ctx).Table("appointments AS a").
			Select("ts.slot_date, COUNT(*) AS bookings").
			Joins("JOIN time_slots ts ON ts.id = a.time_slot_id").
			Where("ts.slot_date >= ? AND ts.slot_date < ?", from.Format(dateLayout), today.Format(dateLayout)).
			Where("a.status <> ?", models.StatusCancelled)
		if centerID != 0 {
			query = query.Where("a.center_id = ?", centerID)
		}
		if err := query.Group("ts.slot_date").Order("ts.slot_date ASC").Scan(&rows).Error; err != nil {
			return err
		}

		byDate := make(map[string]int64, len(rows))
		for _, r := range rows {
			byDate[r.SlotDate] = r.Bookings
		}

		forecast = DemandForecast{CenterID: centerID, Weeks: weeks}
		var weekdayTotals [7]int64
		for d := from; d.Before(today); d = d.AddDate(0, 0, 1) {
			n := byDate[d.Format(dateLayout)]
			weekdayTotals[d.Weekday()] += n
			forecast.History = append(forecast.History, DemandPoint{
				Date:     d.Format(dateLayout),
				Weekday:  d.Weekday().String(),
				Bookings: float64(n),
			})
		}

		for i := 0; i < days; i++ {
			d := today.AddDate(0, 0, i)
			avg := float64(weekdayTotals[d.Weekday()]) / float64(weeks)
			forecast.Projected = append(forecast.Projected, DemandPoint{
				Date:     d.Format(dateLayout),
				Weekday:  d.Weekday().String(),
				Bookings: math.Round(avg*10) / 10,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &forecast, nil
}

// ============================================================
// Fraud Statistics
// ============================================================

// FraudStats summarises the fraud log
type FraudStats struct {
	Total      int64            `json:"total"`
	Unresolved int64            `json:"unresolved"`
	LastWeek   int64            `json:"last_week"`
	ByType     map[string]int64 `json:"by_type"`
	BySeverity map[string]int64 `json:"by_severity"`
}

// FraudStats returns fraud log totals and breakdowns
func (s *DashboardService) FraudStats(ctx context.Context) (*FraudStats, error) {
	var stats FraudStats
	err := s.cached(ctx, dashboardCachePrefix+"fraud", &stats, func() error {
		db := s.db.WithContext(ctx)
		if err := db.Table("fraud_logs").Count(&stats.Total).Error; err != nil {
			return err
		}
		if err := db.Table("fraud_logs").Where("resolved = ?", false).Count(&stats.Unresolved).Error; err != nil {
			return err
		}
		if err := db.Table("fraud_logs").Where("created_at >= ?", s.now().AddDate(0, 0, -7)).Count(&stats.LastWeek).Error; err != nil {
			return err
		}

		var err error
		if stats.ByType, err = s.countBy(ctx, "fraud_logs", "fraud_type"); err != nil {
			return err
		}
		stats.BySeverity, err = s.countBy(ctx, "fraud_logs", "severity")
		return err
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ============================================================
// Admin Overview
// ============================================================

// Overview is the admin landing dashboard
type Overview struct {
	TotalUsers        int64            `json:"total_users"`
	TotalRecords      int64            `json:"total_records"`
	ActiveCenters     int64            `json:"active_centers"`
	Appointments      map[string]int64 `json:"appointments"`
	TodayBookings     int64            `json:"today_bookings"`
	PendingUpdates    int64            `json:"pending_updates"`
	PendingDocuments  int64            `json:"pending_documents"`
	UnresolvedFrauds  int64            `json:"unresolved_frauds"`
	BiometricsPending int64            `json:"biometrics_pending"`
}

// Overview returns system-wide totals
func (s *DashboardService) Overview(ctx context.Context) (*Overview, error) {
	var data Overview
	err := s.cached(ctx, dashboardCachePrefix+"overview", &data, func() error {
		db := s.db.WithContext(ctx)
		counts := []struct {
			dest  *int64
			query *gorm.DB
		}{
			{&data.TotalUsers, db.Table("users")},
			{&data.TotalRecords, db.Table("aadhaar_records")},
			{&data.ActiveCenters, db.Table("centers").Where("is_active = ?", true)},
			{&data.PendingUpdates, db.Table("update_history").Where("status = ?", models.UpdatePending)},
			{&data.PendingDocuments, db.Table("documents").Where("status = ?", models.DocumentPending)},
			{&data.UnresolvedFrauds, db.Table("fraud_logs").Where("resolved = ?", false)},
			{&data.BiometricsPending, db.Table("aadhaar_records").Where("biometric_status = ?", models.BiometricPending)},
			{&data.TodayBookings, db.Table("appointments AS a").
				Joins("JOIN time_slots ts ON ts.id = a.time_slot_id").
				Where("ts.slot_date = ? AND a.status <> ?", s.now().Format(dateLayout), models.StatusCancelled)},
		}
		for _, c := range counts {
			if err := c.query.Count(c.dest).Error; err != nil {
				return err
			}
		}

		var err error
		data.Appointments, err = s.countBy(ctx, "appointments", "status")
		return err
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// countBy groups a table by one column
func (s *DashboardService) countBy(ctx context.Context, table, column string) (map[string]int64, error) {
	var rows []struct {
		Label string
		Total int64
	}
	err := s.db.WithContext(ctx).Table(table).
		Select(column + " AS label, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.Label] = r.Total
	}
	return result, nil
}

// cached fills dest from the cache, or runs load and stores dest
func (s *DashboardService) cached(ctx context.Context, key string, dest interface{}, load func() error) error {
	if hit, err := s.cache.GetJSON(ctx, key, dest); err == nil && hit {
		return nil
	}
	if err := load(); err != nil {
		return err
	}
	if err := s.cache.SetJSON(ctx, key, dest, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("⚠️ Cache write failed")
	}
	return nil
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)*10000/float64(whole)) / 100
}
