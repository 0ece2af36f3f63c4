package services

import (
	"context"
	"testing"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSlots(t *testing.T) {
	center := &models.Center{ID: 7, OpenTime: "09:00", CloseTime: "11:00", SlotMinutes: 30, CapacityPerSlot: 4}

	slots := BuildSlots(center, "2030-01-15")
	require.Len(t, slots, 4)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "09:30", slots[0].EndTime)
	assert.Equal(t, "10:30", slots[3].StartTime)
	assert.Equal(t, "11:00", slots[3].EndTime)
	for _, s := range slots {
		assert.Equal(t, uint(7), s.CenterID)
		assert.Equal(t, 4, s.TotalCapacity)
		assert.Equal(t, 4, s.AvailableSlots)
	}

	center.CloseTime = "10:45"
	assert.Len(t, BuildSlots(center, "2030-01-15"), 3, "trailing partial slot is dropped")

	center.SlotMinutes = 0
	assert.Empty(t, BuildSlots(center, "2030-01-15"))
}

func TestHaversineKm(t *testing.T) {
	// Bengaluru to Chennai
	d := HaversineKm(12.9716, 77.5946, 13.0827, 80.2707)
	assert.InDelta(t, 290, d, 10)
	assert.InDelta(t, 0, HaversineKm(12.9716, 77.5946, 12.9716, 77.5946), 1e-9)
}

func TestGenerateUpcomingSlotsIsIdempotent(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.centerService()
	svc.now = fixedClock(t, "2030-03-01T00:05:00Z")
	ctx := context.Background()

	created, err := svc.GenerateUpcomingSlots(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(8), created)

	created, err = svc.GenerateUpcomingSlots(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), created)

	slots, err := svc.Slots(ctx, e.fixture.Center.ID, "2030-03-02")
	require.NoError(t, err)
	assert.Len(t, slots, 4)
}

func TestCreateSlotsRange(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.centerService()
	ctx := context.Background()

	created, err := svc.CreateSlots(ctx, e.fixture.Center.ID, &SlotRangeInput{FromDate: "2030-04-01", ToDate: "2030-04-03"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), created)

	_, err = svc.CreateSlots(ctx, e.fixture.Center.ID, &SlotRangeInput{FromDate: "2030-04-03", ToDate: "2030-04-01"})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.CreateSlots(ctx, e.fixture.Center.ID, &SlotRangeInput{FromDate: "2030-04-01", ToDate: "2030-06-01"})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.CreateSlots(ctx, 4242, &SlotRangeInput{FromDate: "2030-04-01", ToDate: "2030-04-01"})
	assert.ErrorIs(t, err, ErrCenterNotFound)
}

func TestNearby(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.centerService()
	ctx := context.Background()

	mysore := &models.Center{Code: "MYS01", Name: "Mysuru", City: "Mysuru", State: "Karnataka",
		Latitude: 12.2958, Longitude: 76.6394, IsActive: true}
	require.NoError(t, e.db.Create(mysore).Error)

	near, err := svc.Nearby(ctx, 12.97, 77.59, 20, 10)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, "BLR01", near[0].Code)

	both, err := svc.Nearby(ctx, 12.97, 77.59, 200, 10)
	require.NoError(t, err)
	require.Len(t, both, 2)
	assert.Equal(t, "BLR01", both[0].Code)
	assert.Equal(t, "MYS01", both[1].Code)
	assert.Less(t, both[0].DistanceKm, both[1].DistanceKm)

	_, err = svc.Nearby(ctx, 95, 77.59, 20, 10)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func validCenterInput() *CenterInput {
	return &CenterInput{
		Code:            "CHN01",
		Name:            "Chennai Main",
		City:            "Chennai",
		State:           "Tamil Nadu",
		Pincode:         "600001",
		Latitude:        13.0827,
		Longitude:       80.2707,
		OpenTime:        "10:00",
		CloseTime:       "16:00",
		SlotMinutes:     20,
		CapacityPerSlot: 3,
	}
}

func TestCreateAndUpdateCenter(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.centerService()
	ctx := context.Background()

	center, err := svc.Create(ctx, validCenterInput())
	require.NoError(t, err)
	assert.True(t, center.IsActive)

	_, err = svc.Create(ctx, validCenterInput())
	assert.ErrorIs(t, err, ErrCenterCodeTaken)

	in := validCenterInput()
	in.Code = "CHN02"
	in.CloseTime = "09:00"
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidHours)

	in = validCenterInput()
	in.Code = "CHN03"
	in.Pincode = "60A001"
	_, err = svc.Create(ctx, in)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	in = validCenterInput()
	in.Name = "Chennai Central"
	updated, err := svc.Update(ctx, center.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Chennai Central", updated.Name)

	in.Code = "BLR01"
	_, err = svc.Update(ctx, center.ID, in)
	assert.ErrorIs(t, err, ErrCenterCodeTaken)

	require.NoError(t, svc.SetActive(ctx, center.ID, false))
	page, err := svc.List(ctx, repositories.CenterFilter{}, newParams())
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	assert.ErrorIs(t, svc.SetActive(ctx, 4242, false), ErrCenterNotFound)
}

func TestCreateUpdateType(t *testing.T) {
	e := newEnv(t, 2)
	svc := e.centerService()
	ctx := context.Background()

	ut, err := svc.CreateUpdateType(ctx, &UpdateTypeInput{Code: "MOBILE", Name: "Mobile number update", Fee: 50})
	require.NoError(t, err)
	assert.True(t, ut.IsActive)

	_, err = svc.CreateUpdateType(ctx, &UpdateTypeInput{Code: "MOBILE", Name: "Again"})
	assert.ErrorIs(t, err, ErrUpdateTypeCodeTaken)

	types, err := svc.UpdateTypes(ctx, true)
	require.NoError(t, err)
	assert.Len(t, types, 2)
}
