package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_MODE", "dev")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("OTP_EXPIRY_MINUTES", "")
	t.Setenv("OTP_MAX_ATTEMPTS", "")
	t.Setenv("OTP_TYPE_FALLBACK", "")
	t.Setenv("RATE_LIMIT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDev())
	assert.True(t, cfg.RateLimit)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "3306", cfg.Database.Port)
	assert.Equal(t, 2*time.Minute, cfg.OTP.Expiry)
	assert.Equal(t, 0, cfg.OTP.MaxAttempts)
	assert.True(t, cfg.OTP.TypeFallback)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, "*", cfg.GetAllowedOrigins())
}

func TestLoadProdPrefixes(t *testing.T) {
	t.Setenv("APP_MODE", "prod")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("PROD_DB_HOST", "db.internal")
	t.Setenv("PROD_DB_PORT", "")
	t.Setenv("PROD_JWT_SECRET", "prod-secret")
	t.Setenv("OTP_MAX_ATTEMPTS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "prod-secret", cfg.JWT.Secret)
	assert.Equal(t, 5, cfg.OTP.MaxAttempts)
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	t.Setenv("APP_MODE", "staging")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("APP_MODE", "dev")
	t.Setenv("DB_DRIVER", "oracle")
	_, err := Load()
	assert.Error(t, err)
}

func TestBuildDialector(t *testing.T) {
	d := DatabaseConfig{Driver: "mysql", Host: "h", Port: "3306", User: "u", Password: "p", DBName: "db"}
	assert.Equal(t, "u:p@tcp(h:3306)/db?charset=utf8mb4&parseTime=True&loc=Local", buildMySQLDSN(d))

	dialector, err := buildDialector(d)
	require.NoError(t, err)
	assert.Equal(t, "mysql", dialector.Name())

	d.Driver = "postgres"
	assert.Contains(t, buildPostgresDSN(d), "dbname=db")
	dialector, err = buildDialector(d)
	require.NoError(t, err)
	assert.Equal(t, "postgres", dialector.Name())

	d.Driver = "mssql"
	_, err = buildDialector(d)
	assert.Error(t, err)
}
