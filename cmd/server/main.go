package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aadhaar-seva/internal/adapters/http/handlers"
	"aadhaar-seva/internal/adapters/http/middleware"
	"aadhaar-seva/internal/adapters/http/routes"
	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/config"
	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/cache"
	"aadhaar-seva/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	_ "aadhaar-seva/docs" // Swagger docs
)

// @title Aadhaar Seva API
// @version 1.0
// @description Aadhaar update appointment booking and record management API
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@aadhaar-seva.local

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:3000
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.IsDev())

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to connect to database")
	}
	defer config.CloseDatabase()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to auto migrate")
	}
	log.Info().Msg("✅ Database migration completed")

	if err := config.NewSeeder(db, cfg).Run(); err != nil {
		log.Warn().Err(err).Msg("⚠️ Failed to seed data")
	}

	// Optional cache; the interfaces stay nil when Redis is not configured
	var (
		store  cache.Store
		pinger handlers.Pinger
	)
	if cfg.Redis.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisStore, err := cache.NewRedisStore(ctx, cfg.Redis.URL, cfg.Redis.Prefix)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Redis unavailable, caching disabled")
		} else {
			defer redisStore.Close()
			store, pinger = redisStore, redisStore
			log.Info().Msg("✅ Redis connected")
		}
	}

	notifier := services.NewNotificationService(cfg)
	container := services.NewContainer(db, cfg, store, notifier)

	// Scheduled maintenance: slot generation, no-shows, load aggregation, purges
	if err := container.Cron.Start(); err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to start cron scheduler")
	}
	defer container.Cron.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Aadhaar Seva API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
		BodyLimit:    int(cfg.Upload.MaxBytes) + 1<<20,
	})

	middleware.Setup(app, cfg)
	routes.Setup(app, container, cfg, pinger)

	// Graceful shutdown
	go gracefulShutdown(app)

	log.Info().Str("port", cfg.Port).Str("mode", cfg.AppMode).Msg("🚀 Server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to start server")
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("❌ Error during shutdown")
	}
	log.Info().Msg("✅ Server stopped gracefully")
}
