package config

import (
	"testing"

	"aadhaar-seva/internal/adapters/persistence/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:seeder?mode=memory&cache=shared"), GormConfig(logger.Default.LogMode(logger.Silent)))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func TestSeederIsIdempotent(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "")
	t.Setenv("SEED_ADMIN_EMAIL", "root@example.com")
	db := newSeedDB(t)
	seeder := NewSeeder(db, &Config{AppMode: "dev"})

	require.NoError(t, seeder.Run())
	require.NoError(t, seeder.Run())

	var admins, types, centers int64
	db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins)
	db.Model(&models.UpdateType{}).Count(&types)
	db.Model(&models.Center{}).Count(&centers)

	assert.Equal(t, int64(1), admins)
	assert.Equal(t, int64(6), types)
	assert.Equal(t, int64(3), centers)

	var admin models.User
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).First(&admin).Error)
	assert.Equal(t, "root@example.com", admin.Email)
}
