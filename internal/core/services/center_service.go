package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/pkg/cache"
	"aadhaar-seva/internal/pkg/pagination"

	"github.com/rs/zerolog/log"
)

// Center errors
var (
	ErrCenterNotFound      = errors.New("Center not found")
	ErrCenterInactive      = errors.New("Center is not active")
	ErrCenterCodeTaken     = errors.New("Center code already exists")
	ErrUpdateTypeNotFound  = errors.New("Update type not found")
	ErrUpdateTypeInactive  = errors.New("Update type is not active")
	ErrUpdateTypeCodeTaken = errors.New("Update type code already exists")
	ErrInvalidHours        = errors.New("close_time must be after open_time")
	ErrInvalidDateRange    = errors.New("Invalid date range")
	ErrInvalidCoordinates  = errors.New("Invalid coordinates")
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"

	// maxSlotRangeDays bounds one admin slot creation request
	maxSlotRangeDays = 31

	earthRadiusKm = 6371.0

	centersCachePrefix   = "centers:"
	dashboardCachePrefix = "dashboard:"
)

func slotCachePrefix(centerID uint) string {
	return fmt.Sprintf("slots:%d:", centerID)
}

// CenterService handles centers, time slots and update types
type CenterService struct {
	centerRepo     repositories.CenterRepository
	slotRepo       repositories.TimeSlotRepository
	updateTypeRepo repositories.UpdateTypeRepository
	cache          cache.Store
	cacheTTL       time.Duration
	now            func() time.Time
}

// NewCenterService creates a new center service
func NewCenterService(
	centerRepo repositories.CenterRepository,
	slotRepo repositories.TimeSlotRepository,
	updateTypeRepo repositories.UpdateTypeRepository,
	store cache.Store,
	cacheTTL time.Duration,
) *CenterService {
	if store == nil {
		store = cache.Noop{}
	}
	return &CenterService{
		centerRepo:     centerRepo,
		slotRepo:       slotRepo,
		updateTypeRepo: updateTypeRepo,
		cache:          store,
		cacheTTL:       cacheTTL,
		now:            time.Now,
	}
}

// CenterInput represents center create/update input
type CenterInput struct {
	Code            string  `json:"code" validate:"required,max=20"`
	Name            string  `json:"name" validate:"required,max=150"`
	Address         string  `json:"address" validate:"max=255"`
	City            string  `json:"city" validate:"required,max=100"`
	State           string  `json:"state" validate:"required,max=100"`
	Pincode         string  `json:"pincode" validate:"omitempty,numeric,len=6"`
	Latitude        float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude       float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Phone           string  `json:"phone" validate:"omitempty,phone"`
	OpenTime        string  `json:"open_time" validate:"required,clock"`
	CloseTime       string  `json:"close_time" validate:"required,clock"`
	SlotMinutes     int     `json:"slot_minutes" validate:"required,gte=5,lte=240"`
	CapacityPerSlot int     `json:"capacity_per_slot" validate:"required,gte=1,lte=100"`
}

// SlotRangeInput asks for slots over an inclusive date range
type SlotRangeInput struct {
	FromDate string `json:"from_date" validate:"required,isodate"`
	ToDate   string `json:"to_date" validate:"required,isodate"`
}

// UpdateTypeInput represents update type creation input
type UpdateTypeInput struct {
	Code              string  `json:"code" validate:"required,max=30"`
	Name              string  `json:"name" validate:"required,max=100"`
	Description       string  `json:"description"`
	Fee               float64 `json:"fee" validate:"gte=0"`
	RequiredDocuments string  `json:"required_documents" validate:"max=255"`
}

// CenterPage is one page of a center listing
type CenterPage struct {
	Items []*models.Center `json:"items"`
	Total int64            `json:"total"`
}

// NearbyCenter is a center with its distance from the query point
type NearbyCenter struct {
	*models.Center
	DistanceKm float64 `json:"distance_km"`
}

// List lists active centers (cached)
func (s *CenterService) List(ctx context.Context, filter repositories.CenterFilter, params *pagination.Params) (*CenterPage, error) {
	key := fmt.Sprintf("%slist:%s:%s:%s:%t:%d:%d", centersCachePrefix,
		filter.City, filter.State, filter.Pincode, filter.IncludeInactive, params.Page, params.Limit)

	var page CenterPage
	if hit, err := s.cache.GetJSON(ctx, key, &page); err == nil && hit {
		return &page, nil
	}

	items, total, err := s.centerRepo.List(ctx, filter, params)
	if err != nil {
		return nil, err
	}
	page = CenterPage{Items: items, Total: total}
	s.store(ctx, key, page)
	return &page, nil
}

// Get returns a center by ID
func (s *CenterService) Get(ctx context.Context, id uint) (*models.Center, error) {
	center, err := s.centerRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCenterNotFound
		}
		return nil, err
	}
	return center, nil
}

// Nearby returns active centers within radiusKm of (lat, lng), nearest first
func (s *CenterService) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]NearbyCenter, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 || radiusKm <= 0 {
		return nil, ErrInvalidCoordinates
	}
	if limit <= 0 || limit > pagination.MaxLimit {
		limit = pagination.DefaultLimit
	}

	centers, err := s.centerRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]NearbyCenter, 0, len(centers))
	for _, c := range centers {
		d := HaversineKm(lat, lng, c.Latitude, c.Longitude)
		if d <= radiusKm {
			result = append(result, NearbyCenter{Center: c, DistanceKm: math.Round(d*100) / 100})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DistanceKm < result[j].DistanceKm
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Slots lists a center's slots for a date (cached briefly)
func (s *CenterService) Slots(ctx context.Context, centerID uint, date string) ([]*models.TimeSlot, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, invalid("date must be in YYYY-MM-DD format")
	}
	if _, err := s.Get(ctx, centerID); err != nil {
		return nil, err
	}

	key := slotCachePrefix(centerID) + date
	var slots []*models.TimeSlot
	if hit, err := s.cache.GetJSON(ctx, key, &slots); err == nil && hit {
		return slots, nil
	}

	slots, err := s.slotRepo.ListByCenterDate(ctx, centerID, date)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, slots)
	return slots, nil
}

// UpdateTypes lists update types
func (s *CenterService) UpdateTypes(ctx context.Context, activeOnly bool) ([]*models.UpdateType, error) {
	return s.updateTypeRepo.List(ctx, activeOnly)
}

// Create creates a center
func (s *CenterService) Create(ctx context.Context, input *CenterInput) (*models.Center, error) {
	if err := validateCenter(input); err != nil {
		return nil, err
	}

	exists, err := s.centerRepo.ExistsByCode(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrCenterCodeTaken
	}

	center := &models.Center{IsActive: true}
	applyCenterInput(center, input)
	if err := s.centerRepo.Create(ctx, center); err != nil {
		return nil, err
	}

	s.invalidateCenters(ctx)
	log.Info().Str("code", center.Code).Msg("✅ Center created")
	return center, nil
}

// Update replaces a center's details
func (s *CenterService) Update(ctx context.Context, id uint, input *CenterInput) (*models.Center, error) {
	if err := validateCenter(input); err != nil {
		return nil, err
	}

	center, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if center.Code != input.Code {
		exists, err := s.centerRepo.ExistsByCode(ctx, input.Code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrCenterCodeTaken
		}
	}

	applyCenterInput(center, input)
	if err := s.centerRepo.Update(ctx, center); err != nil {
		return nil, err
	}

	s.invalidateCenters(ctx)
	return center, nil
}

// SetActive activates or deactivates a center
func (s *CenterService) SetActive(ctx context.Context, id uint, active bool) error {
	if err := s.centerRepo.SetActive(ctx, id, active); err != nil {
		if isNotFound(err) {
			return ErrCenterNotFound
		}
		return err
	}
	s.invalidateCenters(ctx)
	return nil
}

// CreateSlots creates the center's standard slots for every day in the range
func (s *CenterService) CreateSlots(ctx context.Context, centerID uint, input *SlotRangeInput) (int64, error) {
	if err := validateInput(input); err != nil {
		return 0, err
	}
	from, err := time.Parse(dateLayout, input.FromDate)
	if err != nil {
		return 0, ErrInvalidDateRange
	}
	to, err := time.Parse(dateLayout, input.ToDate)
	if err != nil {
		return 0, ErrInvalidDateRange
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days < 1 || days > maxSlotRangeDays {
		return 0, ErrInvalidDateRange
	}

	center, err := s.Get(ctx, centerID)
	if err != nil {
		return 0, err
	}

	created, err := s.createSlots(ctx, center, from, days)
	if err != nil {
		return 0, err
	}
	if err := s.cache.DeletePrefix(ctx, slotCachePrefix(center.ID)); err != nil {
		log.Warn().Err(err).Msg("⚠️ Cache invalidation failed")
	}
	return created, nil
}

// GenerateUpcomingSlots makes sure every active center has slots for the next days (daily job)
func (s *CenterService) GenerateUpcomingSlots(ctx context.Context, days int) (int64, error) {
	centers, err := s.centerRepo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	today, _ := time.Parse(dateLayout, s.now().Format(dateLayout))
	var total int64
	for _, center := range centers {
		created, err := s.createSlots(ctx, center, today, days)
		if err != nil {
			log.Error().Err(err).Str("center", center.Code).Msg("❌ Slot generation failed")
			continue
		}
		total += created
	}
	return total, nil
}

// CreateUpdateType creates an update type
func (s *CenterService) CreateUpdateType(ctx context.Context, input *UpdateTypeInput) (*models.UpdateType, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	exists, err := s.updateTypeRepo.ExistsByCode(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUpdateTypeCodeTaken
	}

	updateType := &models.UpdateType{
		Code:              input.Code,
		Name:              input.Name,
		Description:       input.Description,
		Fee:               input.Fee,
		RequiredDocuments: input.RequiredDocuments,
		IsActive:          true,
	}
	if err := s.updateTypeRepo.Create(ctx, updateType); err != nil {
		return nil, err
	}
	return updateType, nil
}

func (s *CenterService) createSlots(ctx context.Context, center *models.Center, from time.Time, days int) (int64, error) {
	var slots []*models.TimeSlot
	for d := 0; d < days; d++ {
		date := from.AddDate(0, 0, d).Format(dateLayout)
		slots = append(slots, BuildSlots(center, date)...)
	}
	return s.slotRepo.CreateMissing(ctx, slots)
}

func (s *CenterService) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.SetJSON(ctx, key, value, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("⚠️ Cache write failed")
	}
}

func (s *CenterService) invalidateCenters(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, centersCachePrefix); err != nil {
		log.Warn().Err(err).Msg("⚠️ Cache invalidation failed")
	}
}

// BuildSlots splits a center's opening hours on date into fixed-length slots.
// A trailing interval shorter than the slot length is dropped.
func BuildSlots(center *models.Center, date string) []*models.TimeSlot {
	open, err := time.Parse(clockLayout, center.OpenTime)
	if err != nil {
		return nil
	}
	closeAt, err := time.Parse(clockLayout, center.CloseTime)
	if err != nil || center.SlotMinutes <= 0 {
		return nil
	}

	step := time.Duration(center.SlotMinutes) * time.Minute
	var slots []*models.TimeSlot
	for start := open; !start.Add(step).After(closeAt); start = start.Add(step) {
		slots = append(slots, &models.TimeSlot{
			CenterID:       center.ID,
			SlotDate:       date,
			StartTime:      start.Format(clockLayout),
			EndTime:        start.Add(step).Format(clockLayout),
			TotalCapacity:  center.CapacityPerSlot,
			AvailableSlots: center.CapacityPerSlot,
			IsActive:       true,
		})
	}
	return slots
}

// HaversineKm is the great-circle distance between two points in kilometres
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func validateCenter(input *CenterInput) error {
	if err := validateInput(input); err != nil {
		return err
	}
	if input.CloseTime <= input.OpenTime {
		return ErrInvalidHours
	}
	return nil
}

func applyCenterInput(center *models.Center, input *CenterInput) {
	center.Code = input.Code
	center.Name = input.Name
	center.Address = input.Address
	center.City = input.City
	center.State = input.State
	center.Pincode = input.Pincode
	center.Latitude = input.Latitude
	center.Longitude = input.Longitude
	center.Phone = input.Phone
	center.OpenTime = input.OpenTime
	center.CloseTime = input.CloseTime
	center.SlotMinutes = input.SlotMinutes
	center.CapacityPerSlot = input.CapacityPerSlot
}
