package weather

import (
	"strings"
	"time"
)

const (
	// MinRecalculateInterval is how often the upstream recomputes an observation.
	MinRecalculateInterval = 15 * time.Minute

	// MinCallInterval is the minimum spacing between two remote calls.
	MinCallInterval = time.Minute

	// Unknown is rendered for any derived view whose source value is absent.
	Unknown = "unknown"
)

// Units is the unit system used for derived views.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
	UnitsStandard Units = "standard" // Kelvin and meters
)

// Location identifies a cache partition and is also the remote query term.
// State may be blank.
type Location struct {
	City    string `json:"city" validate:"required,excludesall=/\\"`
	State   string `json:"state" validate:"excludesall=/\\"`
	Country string `json:"country" validate:"required,excludesall=/\\"`
}

// Key returns the canonical "city,country" or "city,state,country" form.
func (l Location) Key() string {
	if strings.TrimSpace(l.State) == "" {
		return l.City + "," + l.Country
	}
	return l.City + "," + l.State + "," + l.Country
}

// Pretty returns the display form, separated by ", ".
func (l Location) Pretty() string {
	if strings.TrimSpace(l.State) == "" {
		return l.City + ", " + l.Country
	}
	return l.City + ", " + l.State + ", " + l.Country
}

// Preferences is the slice of user configuration the core reads. A copy is
// taken at the start of every refresh so edits never tear a running cycle.
type Preferences struct {
	APIKey    string
	Units     Units
	Location  Location
	Retention Retention
}

// HasAPIKey reports whether an API key is configured.
func (p Preferences) HasAPIKey() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// RecordView is the set of display strings derived from a Record.
type RecordView struct {
	CapturedAt time.Time `json:"capturedAt"`
	Time       string    `json:"time"`
	Condition  string    `json:"condition"`
	Temp       string    `json:"temp"`
	FeelsLike  string    `json:"feelsLike"`
	Humidity   string    `json:"humidity"`
	CloudCover string    `json:"cloudCover"`
	Visibility string    `json:"visibility"`
}
