package repositories

import (
	"context"
	"testing"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMissingSlotsIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, 2)
	repo := NewTimeSlotRepository(db)
	ctx := context.Background()

	build := func() []*models.TimeSlot {
		return []*models.TimeSlot{
			{CenterID: f.Center.ID, SlotDate: "2030-03-01", StartTime: "09:00", EndTime: "09:30", TotalCapacity: 2, AvailableSlots: 2, IsActive: true},
			{CenterID: f.Center.ID, SlotDate: "2030-03-01", StartTime: "09:30", EndTime: "10:00", TotalCapacity: 2, AvailableSlots: 2, IsActive: true},
		}
	}

	n, err := repo.CreateMissing(ctx, build())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.CreateMissing(ctx, build())
	require.NoError(t, err)
	assert.Zero(t, n)

	slots, err := repo.ListByCenterDate(ctx, f.Center.ID, "2030-03-01")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime)
}

func TestCenterListHidesInactive(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, 2)
	repo := NewCenterRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SetActive(ctx, f.Center.ID, false))

	centers, total, err := repo.List(ctx, CenterFilter{}, newParams())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, centers)

	_, total, err = repo.List(ctx, CenterFilter{IncludeInactive: true, City: "Bengaluru"}, newParams())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	assert.Error(t, repo.SetActive(ctx, 9999, true))
}
