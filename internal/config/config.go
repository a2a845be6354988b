package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendFile   = "file"
	StoreBackendMemory = "memory"
)

// AppConfig holds process settings. User-editable settings live in the
// settings file, see SettingsFile.
type AppConfig struct {
	// DataDir is the files root; each location gets a subdirectory.
	DataDir string

	// SettingsPath is the user settings file.
	SettingsPath string

	// HTTPTimeout bounds the single remote call.
	HTTPTimeout time.Duration

	// AutoRefreshInterval controls the periodic refresh (0 = disabled).
	AutoRefreshInterval time.Duration

	StoreBackend   string
	OpenWeatherURL string
	Port           string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.DataDir = getenvDefault("DATA_DIR", "data")
	cfg.SettingsPath = getenvDefault("SETTINGS_FILE", filepath.Join(cfg.DataDir, "settings.json"))

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be positive")
	}
	cfg.HTTPTimeout = timeout

	// Auto refresh: default 15 minutes, matching upstream's recalculation rate.
	interval, err := time.ParseDuration(getenvDefault("AUTO_REFRESH_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_REFRESH_INTERVAL: %w", err)
	}
	if interval < 0 {
		return nil, fmt.Errorf("invalid AUTO_REFRESH_INTERVAL: must not be negative")
	}
	cfg.AutoRefreshInterval = interval

	cfg.StoreBackend = getenvDefault("STORE_BACKEND", StoreBackendFile)
	switch cfg.StoreBackend {
	case StoreBackendFile, StoreBackendMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: use %q or %q", cfg.StoreBackend, StoreBackendFile, StoreBackendMemory)
	}

	cfg.OpenWeatherURL = os.Getenv("OPENWEATHER_BASE_URL")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
