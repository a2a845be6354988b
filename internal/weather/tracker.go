package weather

import (
	"context"
	"log"
	"sync"
	"time"
)

// ServiceFactory builds the Service for a newly activated location.
type ServiceFactory func(loc Location) *Service

// Tracker keeps the Service of the currently configured location. Only one
// location is active at a time; switching drops the old Service and its
// in-memory state (the stored records stay on disk).
type Tracker struct {
	prefs    PreferencesFunc
	factory  ServiceFactory
	notifier Notifier

	mu      sync.Mutex
	current *Service
}

// NewTracker creates a Tracker. notifier may be nil.
func NewTracker(prefs PreferencesFunc, notifier Notifier, factory ServiceFactory) *Tracker {
	return &Tracker{
		prefs:    prefs,
		factory:  factory,
		notifier: notifier,
	}
}

// Active returns the Service for the configured location.
func (t *Tracker) Active() *Service {
	svc, _ := t.active()
	return svc
}

// Refresh refreshes the active location. A location change is reported
// ahead of the refresh notices.
func (t *Tracker) Refresh(ctx context.Context) []Notice {
	svc, changed := t.active()
	notices := svc.Refresh(ctx)
	if changed != nil {
		notices = append([]Notice{*changed}, notices...)
	}
	return notices
}

func (t *Tracker) active() (*Service, *Notice) {
	loc := t.prefs().Location

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil && t.current.Location() == loc {
		return t.current, nil
	}

	previous := t.current
	t.current = t.factory(loc)
	if previous == nil {
		return t.current, nil
	}

	log.Printf("tracker: location changed from %s to %s", previous.Location().Key(), loc.Key())
	n := newNotice(NoticeLocationChanged, "Changed location.", time.Now().UTC())
	if t.notifier != nil {
		t.notifier.Publish(Event{Type: EventNotice, Location: loc.Key(), Notice: &n})
		t.notifier.Publish(Event{Type: EventRecords, Location: loc.Key()})
	}
	return t.current, &n
}
