package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/weather-logbook/internal/weather"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"DATA_DIR", "SETTINGS_FILE", "HTTP_TIMEOUT", "AUTO_REFRESH_INTERVAL", "STORE_BACKEND", "OPENWEATHER_BASE_URL", "PORT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DataDir != "data" {
		t.Errorf("expected data dir 'data', got %q", cfg.DataDir)
	}
	if cfg.SettingsPath != filepath.Join("data", "settings.json") {
		t.Errorf("unexpected settings path %q", cfg.SettingsPath)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.AutoRefreshInterval != 15*time.Minute {
		t.Errorf("expected 15m interval, got %s", cfg.AutoRefreshInterval)
	}
	if cfg.StoreBackend != StoreBackendFile {
		t.Errorf("expected file backend, got %q", cfg.StoreBackend)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.Port)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	for _, k := range []string{"DATA_DIR", "SETTINGS_FILE", "HTTP_TIMEOUT", "AUTO_REFRESH_INTERVAL", "STORE_BACKEND", "OPENWEATHER_BASE_URL", "PORT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	env := "DATA_DIR=/var/lib/logbook\nAUTO_REFRESH_INTERVAL=0\nSTORE_BACKEND=memory\nPORT=9090\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DataDir != "/var/lib/logbook" {
		t.Errorf("expected data dir from .env, got %q", cfg.DataDir)
	}
	if cfg.SettingsPath != "/var/lib/logbook/settings.json" {
		t.Errorf("unexpected settings path %q", cfg.SettingsPath)
	}
	if cfg.AutoRefreshInterval != 0 {
		t.Errorf("expected auto refresh disabled, got %s", cfg.AutoRefreshInterval)
	}
	if cfg.StoreBackend != StoreBackendMemory || cfg.Port != "9090" {
		t.Errorf("unexpected backend %q or port %q", cfg.StoreBackend, cfg.Port)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	chdir(t, t.TempDir())
	tests := map[string]string{
		"HTTP_TIMEOUT":          "soon",
		"AUTO_REFRESH_INTERVAL": "-1m",
		"STORE_BACKEND":         "postgres",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected an error for %s=%s", key, value)
			}
		})
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	f := LoadSettings(filepath.Join(t.TempDir(), "missing.json"))

	got := f.Get()
	want := DefaultSettings()
	if got != want {
		t.Fatalf("expected defaults %+v, got %+v", want, got)
	}
	if got.Location.Key() != "London,UK" || got.Units != weather.UnitsMetric || got.DeleteAfterChoice != weather.RetainMonth {
		t.Errorf("unexpected defaults %+v", got)
	}
}

func TestLoadSettingsInvalidFileFallsBack(t *testing.T) {
	tests := map[string]string{
		"not json":     `{"api_key":`,
		"bad units":    `{"units":"kelvin"}`,
		"bad choice":   `{"delete_after_choice":9}`,
		"path in city": `{"location":{"city":"../x","state":"","country":"UK"}}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := LoadSettings(path).Get(); got != DefaultSettings() {
				t.Errorf("expected defaults, got %+v", got)
			}
		})
	}
}

func TestSettingsUpdateSavesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	f := LoadSettings(path)

	next := Settings{
		APIKey:            "abc123",
		Units:             weather.UnitsImperial,
		Location:          weather.Location{City: "Austin", State: "TX", Country: "US"},
		DeleteAfterChoice: weather.RetainForever,
	}
	if err := f.Update(next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected settings file: %v", err)
	}
	var onDisk map[string]any
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"api_key", "units", "location", "delete_after_choice"} {
		if _, ok := onDisk[key]; !ok {
			t.Errorf("expected key %q in settings file", key)
		}
	}
	if onDisk["delete_after_choice"] != float64(4) {
		t.Errorf("expected delete_after_choice 4, got %v", onDisk["delete_after_choice"])
	}

	reloaded := LoadSettings(path).Get()
	if reloaded != next {
		t.Fatalf("expected %+v after reload, got %+v", next, reloaded)
	}
	prefs := reloaded.Preferences()
	if prefs.APIKey != "abc123" || prefs.Retention != weather.RetainForever || prefs.Location.Key() != "Austin,TX,US" {
		t.Errorf("unexpected preferences %+v", prefs)
	}
}

func TestSettingsUpdateRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	f := LoadSettings(path)

	bad := DefaultSettings()
	bad.Units = "furlongs"
	if err := f.Update(bad); err == nil {
		t.Fatal("expected a validation error")
	}
	if f.Get() != DefaultSettings() {
		t.Error("expected current settings to be unchanged")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected nothing to be written")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir on older toolchains).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
