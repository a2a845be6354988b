package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-logbook/internal/weather"
)

var validate = validator.New()

// Settings is the user-editable configuration, persisted as a single JSON
// object.
type Settings struct {
	APIKey            string            `json:"api_key"`
	Units             weather.Units     `json:"units" validate:"oneof=metric imperial standard"`
	Location          weather.Location  `json:"location"`
	DeleteAfterChoice weather.Retention `json:"delete_after_choice" validate:"min=0,max=4"`
}

// DefaultSettings returns the settings used when no valid file exists.
func DefaultSettings() Settings {
	return Settings{
		APIKey:            "",
		Units:             weather.UnitsMetric,
		Location:          weather.Location{City: "London", State: "", Country: "UK"},
		DeleteAfterChoice: weather.RetainMonth,
	}
}

// Validate checks the settings against the allowed values.
func (s Settings) Validate() error {
	return validate.Struct(s)
}

// Preferences converts the settings into the snapshot the core consumes.
func (s Settings) Preferences() weather.Preferences {
	return weather.Preferences{
		APIKey:    s.APIKey,
		Units:     s.Units,
		Location:  s.Location,
		Retention: s.DeleteAfterChoice,
	}
}

// SettingsFile holds the current settings and writes them back to path on
// every update.
type SettingsFile struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// LoadSettings reads path. A missing, unreadable or invalid file yields the
// defaults; it is not an error.
func LoadSettings(path string) *SettingsFile {
	f := &SettingsFile{path: path, current: DefaultSettings()}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("INFO: settings file %s unreadable, using defaults: %v", path, err)
		}
		return f
	}

	// Keys absent from the file keep their default.
	s := DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		log.Printf("INFO: settings file %s is not valid JSON, using defaults: %v", path, err)
		return f
	}
	if err := s.Validate(); err != nil {
		log.Printf("INFO: settings file %s has invalid values, using defaults: %v", path, err)
		return f
	}

	f.current = s
	return f
}

// Path returns the settings file path.
func (f *SettingsFile) Path() string {
	return f.path
}

// Get returns a copy of the current settings.
func (f *SettingsFile) Get() Settings {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Preferences returns the current preferences snapshot.
func (f *SettingsFile) Preferences() weather.Preferences {
	return f.Get().Preferences()
}

// Update validates next, saves it and makes it current. On error the
// current settings are left untouched.
func (f *SettingsFile) Update(next Settings) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.save(next); err != nil {
		return err
	}
	f.current = next
	return nil
}

// save overwrites the whole file through a temp file and rename.
func (f *SettingsFile) save(s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("saving settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
