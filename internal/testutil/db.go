// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/config"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory sqlite database private to t.
// One connection serialises transactions the way row locks would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	return open(t, fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name), 1)
}

// NewFileDB opens a migrated WAL sqlite file under t.TempDir with several
// connections, for tests that need transactions to really interleave.
// Writers take the lock at BEGIN and queue on the busy timeout. Foreign keys are enforced.
func NewFileDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seva.db")
	return open(t, fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate&_foreign_keys=on", path), conns)
}

func open(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig(logger.Default.LogMode(logger.Silent)))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

// Fixture is a small, consistent data set: one citizen, one center, one update type, one slot.
type Fixture struct {
	User       *models.User
	Record     *models.AadhaarRecord
	Center     *models.Center
	UpdateType *models.UpdateType
	Slot       *models.TimeSlot
}

// Seed inserts a Fixture whose slot has the given capacity, all seats free
func Seed(t *testing.T, db *gorm.DB, capacity int) *Fixture {
	t.Helper()

	f := &Fixture{
		User: &models.User{
			Email:       "citizen@example.com",
			PhoneNumber: "+919876543210",
			Password:    "x",
			Role:        models.RoleUser,
			IsActive:    true,
		},
		Center: &models.Center{
			Code:            "BLR01",
			Name:            "Bengaluru Central",
			City:            "Bengaluru",
			State:           "Karnataka",
			Latitude:        12.9716,
			Longitude:       77.5946,
			OpenTime:        "09:00",
			CloseTime:       "11:00",
			SlotMinutes:     30,
			CapacityPerSlot: capacity,
			IsActive:        true,
		},
		UpdateType: &models.UpdateType{Code: "ADDRESS", Name: "Address update", Fee: 50, IsActive: true},
	}
	require.NoError(t, db.Create(f.User).Error)

	f.Record = &models.AadhaarRecord{
		AadhaarNumber: "123412341234",
		UserID:        f.User.ID,
		FullName:      "Asha Rao",
		Email:         f.User.Email,
		PhoneNumber:   f.User.PhoneNumber,
	}
	require.NoError(t, db.Create(f.Record).Error)
	require.NoError(t, db.Create(f.Center).Error)
	require.NoError(t, db.Create(f.UpdateType).Error)

	f.Slot = NewSlot(t, db, f.Center.ID, "2030-01-15", "09:00", capacity)
	return f
}

// NewSlot inserts an active slot with every seat free
func NewSlot(t *testing.T, db *gorm.DB, centerID uint, date, start string, capacity int) *models.TimeSlot {
	t.Helper()

	slot := &models.TimeSlot{
		CenterID:       centerID,
		SlotDate:       date,
		StartTime:      start,
		EndTime:        start,
		TotalCapacity:  capacity,
		AvailableSlots: capacity,
		IsActive:       true,
	}
	require.NoError(t, db.Create(slot).Error)
	return slot
}

// Available reloads a slot's free seat count
func Available(t *testing.T, db *gorm.DB, slotID uint) int {
	t.Helper()

	var slot models.TimeSlot
	require.NoError(t, db.First(&slot, slotID).Error)
	return slot.AvailableSlots
}
