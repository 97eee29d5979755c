package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port  string
	Debug bool

	// HTTPTimeout bounds each outbound geocoder/NWS request.
	HTTPTimeout time.Duration

	NWSBaseURL   string
	NWSUserAgent string
	NWSRateLimit float64 // requests per second, 0 = unlimited

	CensusBaseURL string
	// GeocoderAPIKey switches location resolution to Google geocoding when set.
	GeocoderAPIKey string

	GeminiAPIKey string
	GeminiModel  string

	// Reduction settings.
	WindowHours int
	FilterGrid  bool

	// Session retention.
	SessionMaxHistory    int           // max turns kept per session (0 = unlimited)
	SessionMaxIdle       time.Duration // idle sessions are dropped after this (0 = never)
	SessionSweepInterval time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	if cfg.Debug, err = getenvBool("DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.NWSBaseURL = getenvDefault("NWS_BASE_URL", "https://api.weather.gov")
	cfg.NWSUserAgent = getenvDefault("NWS_USER_AGENT", "NWS-Forecast-App/1.0 (contact@example.com)")
	if cfg.NWSRateLimit, err = getenvFloat("NWS_RATE_LIMIT", 5); err != nil {
		return nil, err
	}

	cfg.CensusBaseURL = getenvDefault("CENSUS_BASE_URL", "https://geocoding.geo.census.gov/geocoder")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getenvDefault("GEMINI_MODEL", "gemini-2.5-flash")

	if cfg.WindowHours, err = getenvInt("FORECAST_WINDOW_HOURS", 72); err != nil {
		return nil, err
	}
	if cfg.WindowHours <= 0 {
		return nil, fmt.Errorf("invalid FORECAST_WINDOW_HOURS: must be positive")
	}
	if cfg.FilterGrid, err = getenvBool("REDUCE_FILTER_GRID", false); err != nil {
		return nil, err
	}

	if cfg.SessionMaxHistory, err = getenvInt("SESSION_MAX_HISTORY", 50); err != nil {
		return nil, err
	}
	if cfg.SessionMaxIdle, err = getenvDuration("SESSION_MAX_IDLE", "2h"); err != nil {
		return nil, err
	}
	if cfg.SessionSweepInterval, err = getenvDuration("SESSION_SWEEP_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
