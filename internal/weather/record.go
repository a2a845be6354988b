package weather

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Record is one immutable observation. Equality is defined on the raw payload
// it was parsed from, never on the parsed fields.
type Record struct {
	capturedAt      time.Time
	condition       string
	tempKelvin      *float64
	feelsLikeKelvin *float64
	humidity        *int
	cloudCover      *int
	visibility      *int
	raw             []byte
}

// ParseRecord builds a Record from an OpenWeatherMap "current weather" payload.
//
// The weather array (with at least one object), the main object, dt and
// timezone are required. Everything else is optional: absent, non-numeric
// and NaN values become unknown, and so does 0 for humidity, cloud cover and
// visibility since upstream does not distinguish 0 from missing.
func ParseRecord(raw []byte) (Record, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if top == nil {
		return Record{}, fmt.Errorf("%w: payload is not an object", ErrMalformedRecord)
	}

	var conditions []json.RawMessage
	if err := json.Unmarshal(top["weather"], &conditions); err != nil || len(conditions) == 0 {
		return Record{}, fmt.Errorf("%w: missing weather array", ErrMalformedRecord)
	}
	first, ok := object(conditions[0])
	if !ok {
		return Record{}, fmt.Errorf("%w: weather[0] is not an object", ErrMalformedRecord)
	}

	main, ok := object(top["main"])
	if !ok {
		return Record{}, fmt.Errorf("%w: missing main object", ErrMalformedRecord)
	}

	dt, ok := number(top["dt"])
	if !ok {
		return Record{}, fmt.Errorf("%w: missing dt", ErrMalformedRecord)
	}
	offset, ok := number(top["timezone"])
	if !ok {
		return Record{}, fmt.Errorf("%w: missing timezone", ErrMalformedRecord)
	}

	r := Record{
		capturedAt:      time.Unix(int64(dt), 0).In(time.FixedZone("", int(offset))),
		tempKelvin:      optFloat(main["temp"]),
		feelsLikeKelvin: optFloat(main["feels_like"]),
		humidity:        optNonZeroInt(main["humidity"]),
		visibility:      optNonZeroInt(top["visibility"]),
		raw:             bytes.Clone(raw),
	}

	var description string
	if err := json.Unmarshal(first["description"], &description); err == nil {
		r.condition = strings.TrimSpace(description)
	}
	if clouds, ok := object(top["clouds"]); ok {
		r.cloudCover = optNonZeroInt(clouds["all"])
	}

	return r, nil
}

func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

func number(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

func optFloat(raw json.RawMessage) *float64 {
	f, ok := number(raw)
	if !ok || math.IsNaN(f) {
		return nil
	}
	return &f
}

func optNonZeroInt(raw json.RawMessage) *int {
	f, ok := number(raw)
	if !ok {
		return nil
	}
	n := int(f)
	if n == 0 {
		return nil
	}
	return &n
}

// CapturedAt is when upstream calculated the observation, in the source's UTC offset.
func (r Record) CapturedAt() time.Time { return r.capturedAt }

// Condition returns the textual description, if any.
func (r Record) Condition() (string, bool) { return r.condition, r.condition != "" }

// TempKelvin returns the temperature in Kelvin, if provided.
func (r Record) TempKelvin() (float64, bool) { return deref(r.tempKelvin) }

// FeelsLikeKelvin returns the perceived temperature in Kelvin, if provided.
func (r Record) FeelsLikeKelvin() (float64, bool) { return deref(r.feelsLikeKelvin) }

// HumidityPercent returns relative humidity, if provided.
func (r Record) HumidityPercent() (int, bool) { return deref(r.humidity) }

// CloudCoverPercent returns cloud cover, if provided.
func (r Record) CloudCoverPercent() (int, bool) { return deref(r.cloudCover) }

// VisibilityMeters returns visibility, if provided.
func (r Record) VisibilityMeters() (int, bool) { return deref(r.visibility) }

// Raw returns a copy of the payload the record was parsed from.
func (r Record) Raw() []byte { return bytes.Clone(r.raw) }

// IsZero reports whether r was never parsed.
func (r Record) IsZero() bool { return r.raw == nil }

// Equal reports whether both records were built from byte-identical payloads.
func (r Record) Equal(other Record) bool {
	return bytes.Equal(r.raw, other.raw)
}

// FileName is the name the record is persisted under.
func (r Record) FileName() string {
	return fmt.Sprintf("%d.json", r.capturedAt.Unix())
}

// TimeSinceCalculated returns how long ago upstream calculated the record.
func (r Record) TimeSinceCalculated(now time.Time) time.Duration {
	return now.UTC().Sub(r.capturedAt)
}

// TimeUntilNextRecalculation returns how long until upstream may have a newer
// observation. Negative once MinRecalculateInterval has passed.
func (r Record) TimeUntilNextRecalculation(now time.Time) time.Duration {
	return MinRecalculateInterval - r.TimeSinceCalculated(now)
}

// SortNewestFirst orders records by capture time, most recent first.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].capturedAt.After(records[j].capturedAt)
	})
}

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
