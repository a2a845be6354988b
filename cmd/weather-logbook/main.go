package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-logbook/internal/api/http"
	"github.com/i474232898/weather-logbook/internal/config"
	"github.com/i474232898/weather-logbook/internal/scheduler"
	"github.com/i474232898/weather-logbook/internal/store"
	"github.com/i474232898/weather-logbook/internal/weather"
	"github.com/i474232898/weather-logbook/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	settings := config.LoadSettings(cfg.SettingsPath)
	log.Printf("INFO: settings file %s, location %s", settings.Path(), settings.Get().Location.Pretty())

	// Outbound client; the timeout is the only time bound on the remote call.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var recordStore weather.Store
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		recordStore = store.NewMemoryStore()
	default:
		recordStore = store.NewFileStore(cfg.DataDir)
	}
	log.Printf("INFO: using %s record store", cfg.StoreBackend)

	fetcher := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherURL)
	hub := weather.NewHub()

	// One Service per active location, rebuilt when the location setting changes.
	tracker := weather.NewTracker(settings.Preferences, hub, func(loc weather.Location) *weather.Service {
		return weather.NewService(loc, recordStore, fetcher, settings.Preferences, weather.WithNotifier(hub))
	})

	// Initial refresh hydrates the cache from disk and fetches if allowed.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout+5*time.Second)
		defer cancel()
		tracker.Refresh(ctx)
	}()

	sched := scheduler.New(tracker, cfg.AutoRefreshInterval, cfg.HTTPTimeout+5*time.Second)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-logbook",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-logbook",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Tracker:  tracker,
		Settings: settings,
		Hub:      hub,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s", cfg.Port)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
