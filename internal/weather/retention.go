package weather

import "time"

// Retention is the configured maximum age of stored records. The numeric
// values are the persisted "delete_after_choice" setting.
type Retention int

const (
	RetainDay Retention = iota
	RetainWeek
	RetainMonth
	RetainYear
	RetainForever
)

// Duration maps the choice to a maximum age. ok is false for RetainForever
// and for any unrecognised value.
func (r Retention) Duration() (d time.Duration, ok bool) {
	const day = 24 * time.Hour
	switch r {
	case RetainDay:
		return day, true
	case RetainWeek:
		return 7 * day, true
	case RetainMonth:
		return 31 * day, true
	case RetainYear:
		return 356 * day, true
	default:
		return 0, false
	}
}

func (r Retention) String() string {
	switch r {
	case RetainDay:
		return "1 day"
	case RetainWeek:
		return "7 days"
	case RetainMonth:
		return "31 days"
	case RetainYear:
		return "356 days"
	default:
		return "never"
	}
}

// SelectExpired returns the records strictly older than the retention
// allows. Each record is checked on its own; input order is not trusted.
func SelectExpired(records []Record, r Retention, now time.Time) []Record {
	maxAge, ok := r.Duration()
	if !ok {
		return nil
	}
	var expired []Record
	for _, rec := range records {
		if rec.TimeSinceCalculated(now) > maxAge {
			expired = append(expired, rec)
		}
	}
	return expired
}
