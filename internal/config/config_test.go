package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DEBUG", "HTTP_TIMEOUT", "NWS_RATE_LIMIT", "FORECAST_WINDOW_HOURS",
		"REDUCE_FILTER_GRID", "SESSION_MAX_HISTORY", "SESSION_MAX_IDLE", "GEMINI_MODEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.WindowHours != 72 || cfg.FilterGrid {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.HTTPTimeout != 10*time.Second || cfg.SessionMaxIdle != 2*time.Hour {
		t.Errorf("unexpected duration defaults: %+v", cfg)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("unexpected model %q", cfg.GeminiModel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FORECAST_WINDOW_HOURS", "48")
	t.Setenv("REDUCE_FILTER_GRID", "true")
	t.Setenv("NWS_RATE_LIMIT", "0")
	t.Setenv("SESSION_SWEEP_INTERVAL", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WindowHours != 48 || !cfg.FilterGrid || cfg.NWSRateLimit != 0 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.SessionSweepInterval != time.Minute {
		t.Errorf("unexpected sweep interval %v", cfg.SessionSweepInterval)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"FORECAST_WINDOW_HOURS": "0",
		"REDUCE_FILTER_GRID":    "maybe",
		"HTTP_TIMEOUT":          "soon",
		"NWS_RATE_LIMIT":        "fast",
		"SESSION_MAX_HISTORY":   "many",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", key, value)
			}
		})
	}
}
