package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/abnvle/ha-imgw-pib-monitor/internal/api/http"
	"github.com/abnvle/ha-imgw-pib-monitor/internal/config"
	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
	"github.com/abnvle/ha-imgw-pib-monitor/internal/monitor"
	"github.com/abnvle/ha-imgw-pib-monitor/internal/poller"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client := imgw.NewClient(httpClient,
		imgw.WithBaseURL(cfg.BaseURL),
		imgw.WithProxyURL(cfg.ProxyURL),
		imgw.WithNominatimURL(cfg.NominatimURL),
	)

	// Optional tracked reference point, seeded from environment.
	location := &monitor.PointSource{}
	if lat, lon, ok := homeFromEnv(); ok {
		location.Set(lat, lon)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Hub orchestrating the shared poller and per-consumer views.
	hub := monitor.NewHub(monitor.Deps{
		Fetcher:   client,
		Forecast:  client,
		Geocoder:  client,
		Locations: location,
		Limiter:   poller.NewLimiter(cfg.FetchSlots, cfg.FetchSettle),
	})
	hub.Start(ctx)
	defer hub.Stop()

	for _, sub := range cfg.Subscriptions {
		handle, err := hub.Register(sub)
		if err != nil {
			log.Fatalf("failed to register subscription %q: %v", sub.Name, err)
		}
		log.Printf("registered subscription %q as %s", sub.Name, handle)
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "imgw-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
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
			"service": "imgw-monitor",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, hub, client, location)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// homeFromEnv reads the optional HOME_LAT/HOME_LON reference point.
func homeFromEnv() (lat, lon float64, ok bool) {
	latStr, lonStr := os.Getenv("HOME_LAT"), os.Getenv("HOME_LON")
	if latStr == "" || lonStr == "" {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil {
		log.Printf("ignoring invalid HOME_LAT/HOME_LON: %q %q", latStr, lonStr)
		return 0, 0, false
	}
	return lat, lon, true
}
