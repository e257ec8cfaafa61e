package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
	"github.com/abnvle/ha-imgw-pib-monitor/internal/monitor"
)

type AppConfig struct {
	// Upstream endpoints.
	BaseURL      string
	ProxyURL     string
	NominatimURL string

	// HTTPTimeout bounds the shared outbound HTTP client; per-endpoint
	// timeouts are tighter and applied by the client itself.
	HTTPTimeout time.Duration

	// Outbound rate limiting.
	FetchSlots  int
	FetchSettle time.Duration

	// Subscriptions registered at startup (optional; consumers can also
	// register over the HTTP API).
	Subscriptions []monitor.Subscription

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		BaseURL:      getenvDefault("IMGW_BASE_URL", imgw.DefaultBaseURL),
		ProxyURL:     getenvDefault("IMGW_PROXY_URL", imgw.DefaultProxyURL),
		NominatimURL: getenvDefault("NOMINATIM_URL", imgw.DefaultNominatimURL),
		FetchSlots:   getenvInt("FETCH_SLOTS", 2),
		Port:         getenvDefault("PORT", "8080"),
	}

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "35s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	settleStr := getenvDefault("FETCH_SETTLE", "200ms")
	settle, err := time.ParseDuration(settleStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_SETTLE: %w", err)
	}
	cfg.FetchSettle = settle

	subs, err := loadStartupSubscriptions()
	if err != nil {
		return nil, err
	}
	cfg.Subscriptions = subs

	return cfg, nil
}

// loadStartupSubscriptions builds optional subscriptions from environment.
// MONITOR_STATIONS takes "synop:12375,hydro:150190370" pairs; MONITOR_REGION
// takes a TERYT code ("14" or "1465").
func loadStartupSubscriptions() ([]monitor.Subscription, error) {
	var subs []monitor.Subscription

	interval := getenvInt("MONITOR_INTERVAL", monitor.DefaultIntervalMinutes)

	if raw := os.Getenv("MONITOR_STATIONS"); raw != "" {
		byEndpoint := make(map[imgw.Endpoint][]string)
		for _, pair := range strings.Split(raw, ",") {
			parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
			if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				return nil, fmt.Errorf("invalid MONITOR_STATIONS entry %q", pair)
			}
			ep := imgw.Endpoint(parts[0])
			byEndpoint[ep] = append(byEndpoint[ep], parts[1])
		}
		for ep, ids := range byEndpoint {
			subs = append(subs, monitor.Subscription{
				Name:           fmt.Sprintf("env-%s", ep),
				Endpoints:      []imgw.Endpoint{ep},
				Mode:           monitor.FilterStations,
				StationIDs:     ids,
				UpdateInterval: interval,
			})
		}
	}

	if region := os.Getenv("MONITOR_REGION"); region != "" {
		sub := monitor.Subscription{
			Name:           "env-region",
			Endpoints:      []imgw.Endpoint{imgw.EndpointWarningsMeteo, imgw.EndpointWarningsHydro},
			Mode:           monitor.FilterRegion,
			UpdateInterval: interval,
		}
		switch len(region) {
		case 2:
			sub.Voivodeship = region
		case 4:
			sub.Voivodeship = region[:2]
			sub.Powiat = region
			sub.PowiatName = os.Getenv("MONITOR_REGION_NAME")
		default:
			return nil, fmt.Errorf("invalid MONITOR_REGION %q: want 2 or 4 digits", region)
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
