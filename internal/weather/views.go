package weather

import (
	"fmt"
	"math"
	"time"
)

const (
	timeLayout = "3:04 PM"
	dateLayout = "01/02/06"

	feetPerMeter = 3.28084
	feetPerMile  = 5280.0
)

// Temp renders the temperature in the given units.
func (r Record) Temp(units Units) string {
	k, ok := r.TempKelvin()
	if !ok {
		return Unknown
	}
	return formatTemperature(k, units)
}

// FeelsLike renders the perceived temperature in the given units.
func (r Record) FeelsLike(units Units) string {
	k, ok := r.FeelsLikeKelvin()
	if !ok {
		return Unknown
	}
	return formatTemperature(k, units)
}

// Humidity renders relative humidity as a percentage.
func (r Record) Humidity() string {
	if h, ok := r.HumidityPercent(); ok {
		return fmt.Sprintf("%d%%", h)
	}
	return Unknown
}

// CloudCover renders cloud cover as a percentage.
func (r Record) CloudCover() string {
	if c, ok := r.CloudCoverPercent(); ok {
		return fmt.Sprintf("%d%%", c)
	}
	return Unknown
}

// Visibility renders visibility in the length system of the given units.
func (r Record) Visibility(units Units) string {
	m, ok := r.VisibilityMeters()
	if !ok {
		return Unknown
	}
	return formatDistance(m, units)
}

// FormattedTime renders the capture time of day, followed by sep and the
// date once at least a day has passed since capture.
func (r Record) FormattedTime(sep string, now time.Time) string {
	s := r.capturedAt.Format(timeLayout)
	if r.TimeSinceCalculated(now) >= 24*time.Hour {
		s += sep + r.capturedAt.Format(dateLayout)
	}
	return s
}

// View renders every display string of the record.
func (r Record) View(units Units, now time.Time) RecordView {
	condition, ok := r.Condition()
	if !ok {
		condition = Unknown
	}
	return RecordView{
		CapturedAt: r.capturedAt,
		Time:       r.FormattedTime(" ", now),
		Condition:  condition,
		Temp:       r.Temp(units),
		FeelsLike:  r.FeelsLike(units),
		Humidity:   r.Humidity(),
		CloudCover: r.CloudCover(),
		Visibility: r.Visibility(units),
	}
}

func formatTemperature(kelvin float64, units Units) string {
	switch units {
	case UnitsStandard:
		return fmt.Sprintf("%d K", roundHalfUp(kelvin))
	case UnitsImperial:
		return fmt.Sprintf("%d °F", roundHalfUp(kelvin*1.8-459.67))
	default:
		return fmt.Sprintf("%d °C", roundHalfUp(kelvin-273.15))
	}
}

func formatDistance(meters int, units Units) string {
	if units == UnitsImperial {
		feet := float64(meters) * feetPerMeter
		if feet >= feetPerMile {
			return fmt.Sprintf("%d mi", roundHalfUp(feet/feetPerMile))
		}
		return fmt.Sprintf("%d ft", roundHalfUp(feet))
	}
	if meters >= 1000 {
		return fmt.Sprintf("%d km", roundHalfUp(float64(meters)/1000))
	}
	return fmt.Sprintf("%d m", meters)
}

// roundHalfUp rounds .5 towards positive infinity, so -2.5 becomes -2.
func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}

// FormatWait renders a wait as whole minutes, or seconds under a minute.
// Partial units round up so the user is never told to retry too early.
func FormatWait(d time.Duration) string {
	if d >= time.Minute {
		return plural(int(math.Ceil(d.Minutes())), "minute")
	}
	secs := int(math.Ceil(d.Seconds()))
	if secs >= 60 {
		return plural(1, "minute")
	}
	return plural(secs, "second")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
