package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Addr          string
	DatabaseURL   string
	SaveDir       string
	TickEvery     time.Duration
	AutosaveEvery time.Duration
	SpawnEvery    time.Duration
	SpawnChance   float64
	StreamEvery   time.Duration
	LogLevel      slog.Level
}

type CLIConfig struct {
	APIBaseURL string
	SaveDir    string
	TickEvery  time.Duration
	LogLevel   slog.Level
}

// LoadDotEnv reads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

func LoadServerFromEnv() (ServerConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("LEADRUSH_API_ADDR", ":8080")
	}

	cfg := ServerConfig{
		Addr:          addr,
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SaveDir:       envDefault("LEADRUSH_SAVE_DIR", DefaultSaveDir()),
		TickEvery:     envDurationDefault("LEADRUSH_TICK_EVERY", 100*time.Millisecond),
		AutosaveEvery: envDurationDefault("LEADRUSH_AUTOSAVE_EVERY", 30*time.Second),
		SpawnEvery:    envDurationDefault("LEADRUSH_SPAWN_EVERY", 20*time.Second),
		SpawnChance:   envFloatDefault("LEADRUSH_SPAWN_CHANCE", 0.3),
		StreamEvery:   envDurationDefault("LEADRUSH_STREAM_EVERY", time.Second),
		LogLevel:      envLogLevel("LEADRUSH_LOG_LEVEL", slog.LevelInfo),
	}
	if cfg.TickEvery <= 0 {
		return cfg, fmt.Errorf("LEADRUSH_TICK_EVERY must be > 0")
	}
	if cfg.SpawnChance < 0 || cfg.SpawnChance > 1 {
		return cfg, fmt.Errorf("LEADRUSH_SPAWN_CHANCE must be within [0,1]")
	}
	if cfg.StreamEvery <= 0 {
		return cfg, fmt.Errorf("LEADRUSH_STREAM_EVERY must be > 0")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("LEADRUSH_API_BASE_URL", "http://localhost:8080"), "/"),
		SaveDir:    envDefault("LEADRUSH_SAVE_DIR", DefaultSaveDir()),
		TickEvery:  envDurationDefault("LEADRUSH_TICK_EVERY", 100*time.Millisecond),
		LogLevel:   envLogLevel("LEADRUSH_LOG_LEVEL", slog.LevelWarn),
	}
}

// DefaultSaveDir is ~/.leadrush, or ./.leadrush when the home directory is unknown.
func DefaultSaveDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".leadrush"
	}
	return filepath.Join(home, ".leadrush")
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envLogLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return lvl
}
