package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the application
type Config struct {
	AppMode   string
	Port      string
	LogLevel  string
	RateLimit bool // per-IP limiters on auth and OTP routes
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	OTP      OTPConfig
	Notify   NotifyConfig
	Upload   UploadConfig
	Slots    SlotConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // mysql | postgres
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RedisConfig holds cache configuration. Empty URL disables caching.
type RedisConfig struct {
	URL    string
	Prefix string
	TTL    time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// OTPConfig holds OTP policy
type OTPConfig struct {
	Expiry       time.Duration
	MaxAttempts  int  // 0 = no lockout
	TypeFallback bool // accept an unused OTP of another type for the same number
}

// NotifyConfig holds email/SMS provider settings
type NotifyConfig struct {
	SendGridAPIKey string
	MailFrom       string
	MailFromName   string
	SMSGatewayURL  string
	SMSAPIKey      string
	SMSSenderID    string
}

// UploadConfig holds document upload settings
type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

// SlotConfig holds slot generation settings
type SlotConfig struct {
	GenerationDays int
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, using environment variables")
	}

	// Trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	dbCfg := loadDatabaseConfig(appMode)
	if dbCfg.Driver != "mysql" && dbCfg.Driver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mysql' or 'postgres')", dbCfg.Driver)
	}

	config := &Config{
		AppMode:   appMode,
		Port:      getEnv("PORT", "3000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		RateLimit: getEnv("RATE_LIMIT", "true") == "true",
		Database:  dbCfg,
		Redis:     loadRedisConfig(),
		JWT:       loadJWTConfig(appMode),
		Cookie:    loadCookieConfig(appMode),
		OTP:       loadOTPConfig(),
		Notify:    loadNotifyConfig(),
		Upload:    loadUploadConfig(),
		Slots: SlotConfig{
			GenerationDays: getEnvInt("SLOT_GENERATION_DAYS", 14),
		},
	}

	// Set global config
	AppConfig = config

	log.Info().Str("mode", appMode).Msg("✅ Configuration loaded successfully")
	return config, nil
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)
	driver := strings.ToLower(getEnv("DB_DRIVER", "mysql"))

	defaultPort := "3306"
	if driver == "postgres" {
		defaultPort = "5432"
	}

	return DatabaseConfig{
		Driver:   driver,
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", defaultPort),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "aadhaar_seva"),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:    getEnv("REDIS_URL", ""),
		Prefix: getEnv("REDIS_PREFIX", "aadhaar:"),
		TTL:    time.Duration(getEnvInt("CACHE_TTL_SECONDS", 60)) * time.Second,
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  getEnvInt("ACCESS_TOKEN_MINUTES", 15),
		RefreshTokenDays: getEnvInt("REFRESH_TOKEN_DAYS", 7),
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := modePrefix(mode)

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

func loadOTPConfig() OTPConfig {
	fallback, err := strconv.ParseBool(getEnv("OTP_TYPE_FALLBACK", "true"))
	if err != nil {
		fallback = true
	}

	return OTPConfig{
		Expiry:       time.Duration(getEnvInt("OTP_EXPIRY_MINUTES", 2)) * time.Minute,
		MaxAttempts:  getEnvInt("OTP_MAX_ATTEMPTS", 0),
		TypeFallback: fallback,
	}
}

func loadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@aadhaarseva.in"),
		MailFromName:   getEnv("MAIL_FROM_NAME", "Aadhaar Seva"),
		SMSGatewayURL:  getEnv("SMS_GATEWAY_URL", ""),
		SMSAPIKey:      getEnv("SMS_API_KEY", ""),
		SMSSenderID:    getEnv("SMS_SENDER_ID", "AADHAR"),
	}
}

func loadUploadConfig() UploadConfig {
	return UploadConfig{
		Dir:      getEnv("UPLOAD_DIR", "./uploads"),
		MaxBytes: int64(getEnvInt("UPLOAD_MAX_MB", 5)) << 20,
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://aadhaarseva.in"
	}
	return origins
}
