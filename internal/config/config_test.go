package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LEADRUSH_API_ADDR", "DATABASE_URL", "LEADRUSH_TICK_EVERY", "LEADRUSH_SPAWN_CHANCE", "LEADRUSH_LOG_LEVEL", "LEADRUSH_STREAM_EVERY"} {
		t.Setenv(k, "")
	}
	cfg, err := LoadServerFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.TickEvery != 100*time.Millisecond || cfg.SpawnChance != 0.3 {
		t.Fatalf("defaults %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.DatabaseURL != "" {
		t.Fatalf("defaults %+v", cfg)
	}
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LEADRUSH_TICK_EVERY", "50ms")
	t.Setenv("LEADRUSH_SPAWN_CHANCE", "0.5")
	t.Setenv("LEADRUSH_LOG_LEVEL", "debug")
	t.Setenv("LEADRUSH_AUTOSAVE_EVERY", "not-a-duration")

	cfg, err := LoadServerFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.TickEvery != 50*time.Millisecond || cfg.SpawnChance != 0.5 {
		t.Fatalf("overrides %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("log level got=%v", cfg.LogLevel)
	}
	if cfg.AutosaveEvery != 30*time.Second {
		t.Fatalf("invalid duration should fall back, got=%v", cfg.AutosaveEvery)
	}
}

func TestLoadServerRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{key: "LEADRUSH_SPAWN_CHANCE", value: "1.5"},
		{key: "LEADRUSH_TICK_EVERY", value: "-1s"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := LoadServerFromEnv(); err == nil {
				t.Fatalf("%s=%s should fail", tc.key, tc.value)
			}
		})
	}
}

func TestLoadCLI(t *testing.T) {
	t.Setenv("LEADRUSH_API_BASE_URL", "http://example.test:8080/")
	cfg := LoadCLIFromEnv()
	if cfg.APIBaseURL != "http://example.test:8080" {
		t.Fatalf("base url got=%q", cfg.APIBaseURL)
	}
}
