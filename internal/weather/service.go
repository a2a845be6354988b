package weather

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// PreferencesFunc returns the current user preferences.
type PreferencesFunc func() Preferences

// State is a consistent snapshot of a Service's in-memory data.
type State struct {
	Location   Location
	Records    []Record // newest first
	Selected   int
	Refreshing bool
}

// SelectedRecord returns the record at the selected index, if any.
func (s State) SelectedRecord() (Record, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Records) {
		return Record{}, false
	}
	return s.Records[s.Selected], true
}

// Service owns one location's records. It decides whether the remote
// endpoint may be called and keeps the in-memory list, the Store and the
// retention policy in step. At most one refresh runs at a time.
type Service struct {
	loc      Location
	store    Store
	fetcher  Fetcher
	prefs    PreferencesFunc
	notifier Notifier
	now      func() time.Time

	refreshing atomic.Bool

	// lastCall is only touched by the goroutine holding the refreshing guard.
	lastCall time.Time

	mu       sync.RWMutex
	records  []Record
	selected int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets where change events are published.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService creates a Service for loc. Records are loaded lazily on the
// first refresh.
func NewService(loc Location, store Store, fetcher Fetcher, prefs PreferencesFunc, opts ...Option) *Service {
	s := &Service{
		loc:     loc,
		store:   store,
		fetcher: fetcher,
		prefs:   prefs,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the location this Service owns.
func (s *Service) Location() Location {
	return s.loc
}

// State returns a snapshot of the records and selection. It never blocks on
// a running refresh.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Location:   s.loc,
		Records:    append([]Record(nil), s.records...),
		Selected:   s.selected,
		Refreshing: s.refreshing.Load(),
	}
}

// Select marks the record at index for detailed display. No I/O happens.
func (s *Service) Select(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.records) {
		n := len(s.records)
		s.mu.Unlock()
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidSelection, index, n)
	}
	s.selected = index
	s.mu.Unlock()

	s.publish(Event{Type: EventSelection})
	return nil
}

// Refresh runs one refresh cycle and returns the notices it produced. A
// request made while another refresh runs is rejected immediately.
func (s *Service) Refresh(ctx context.Context) []Notice {
	if !s.refreshing.CAS(false, true) {
		n := newNotice(NoticeInProgress, "Update already in progress.", s.now())
		n.Err = ErrRefreshInProgress
		s.emit(n)
		return []Notice{n}
	}
	defer s.refreshing.Store(false)

	var notices []Notice
	report := func(n Notice) {
		notices = append(notices, n)
		s.emit(n)
	}

	prefs := s.prefs()

	if s.isEmpty() {
		s.hydrate(prefs, report)
	}

	now := s.now()

	if !prefs.HasAPIKey() {
		n := newNotice(NoticeNoAPIKey, "No API key.", now)
		n.Err = ErrConfigurationMissing
		report(n)
		return notices
	}

	if wait := s.timeUntilNextCall(now); wait > 0 {
		n := newNotice(NoticeRateLimited, "Please wait "+FormatWait(wait)+".", now)
		n.Wait = wait
		n.WaitSeconds = int64((wait + time.Second - 1) / time.Second)
		n.Err = &RateLimitError{Wait: wait}
		report(n)
		return notices
	}

	s.callRemote(ctx, prefs, report)
	return notices
}

// hydrate loads the stored records and drops the expired ones.
func (s *Service) hydrate(prefs Preferences, report func(Notice)) {
	records, err := s.store.ListAll(s.loc)
	if err != nil {
		log.Printf("service: loading records for %s: %v", s.loc.Key(), err)
		report(errorNotice(err, s.now()))
	} else if len(records) > 0 {
		SortNewestFirst(records)
		s.mu.Lock()
		s.setRecordsLocked(records)
		s.mu.Unlock()
		s.publish(Event{Type: EventRecords})
	}

	s.purge(prefs, report)
}

// purge deletes expired records from the Store and the in-memory list. A
// failed deletion is reported and the record kept; the loop continues.
func (s *Service) purge(prefs Preferences, report func(Notice)) {
	now := s.now()

	s.mu.RLock()
	expired := SelectExpired(s.records, prefs.Retention, now)
	s.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	deleted := make([]Record, 0, len(expired))
	for _, rec := range expired {
		if err := s.store.Delete(s.loc, rec); err != nil {
			log.Printf("service: deleting %s/%s: %v", s.loc.Key(), rec.FileName(), err)
			report(errorNotice(err, now))
			continue
		}
		deleted = append(deleted, rec)
	}
	if len(deleted) == 0 {
		return
	}

	s.mu.Lock()
	kept := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if !containsRecord(deleted, rec) {
			kept = append(kept, rec)
		}
	}
	s.setRecordsLocked(kept)
	s.mu.Unlock()

	s.publish(Event{Type: EventRecords})
	report(newNotice(NoticePurged, fmt.Sprintf("Deleted %d old weather %s.", len(deleted), pluralWord(len(deleted), "record")), now))
}

func (s *Service) callRemote(ctx context.Context, prefs Preferences, report func(Notice)) {
	rec, err := s.fetcher.FetchLatest(ctx, s.loc, prefs.APIKey)
	now := s.now()
	if err != nil {
		// A failed call does not start the spacing window.
		log.Printf("service: %s fetch failed for %s: %v", s.fetcher.Name(), s.loc.Key(), err)
		report(errorNotice(err, now))
		return
	}
	s.lastCall = now

	if newest, ok := s.newest(); ok && newest.Equal(rec) {
		report(newNotice(NoticeNoNewData, "New weather data is not available yet.", s.lastCall))
		return
	}

	if err := s.store.Save(s.loc, rec); err != nil {
		log.Printf("service: saving %s/%s: %v", s.loc.Key(), rec.FileName(), err)
		report(errorNotice(err, s.lastCall))
		return
	}

	s.mu.Lock()
	next := make([]Record, 0, len(s.records)+1)
	next = append(next, rec)
	next = append(next, s.records...)
	s.setRecordsLocked(next)
	s.mu.Unlock()

	s.publish(Event{Type: EventRecords})
	report(newNotice(NoticeUpdated, "Weather updated.", s.lastCall))

	s.purge(prefs, report)
}

// timeUntilNextCall is the larger of the newest record's recalculation wait
// and the remaining minimum spacing since the last call.
func (s *Service) timeUntilNextCall(now time.Time) time.Duration {
	var wait time.Duration
	if newest, ok := s.newest(); ok {
		if d := newest.TimeUntilNextRecalculation(now); d > wait {
			wait = d
		}
	}
	if !s.lastCall.IsZero() {
		if d := MinCallInterval - now.Sub(s.lastCall); d > wait {
			wait = d
		}
	}
	return wait
}

// setRecordsLocked swaps in a new list. A selection other than the newest
// follows its record; if that record is gone the selection resets to 0.
func (s *Service) setRecordsLocked(next []Record) {
	var prev Record
	follow := s.selected > 0 && s.selected < len(s.records)
	if follow {
		prev = s.records[s.selected]
	}

	s.records = next
	s.selected = 0
	if !follow {
		return
	}
	for i, rec := range next {
		if rec.Equal(prev) {
			s.selected = i
			return
		}
	}
}

func (s *Service) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records) == 0
}

func (s *Service) newest() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[0], true
}

func (s *Service) emit(n Notice) {
	log.Printf("service: %s: %s", s.loc.Key(), n.Message)
	s.publish(Event{Type: EventNotice, Notice: &n})
}

func (s *Service) publish(ev Event) {
	if s.notifier == nil {
		return
	}
	ev.Location = s.loc.Key()
	s.notifier.Publish(ev)
}

func containsRecord(records []Record, rec Record) bool {
	for _, r := range records {
		if r.Equal(rec) {
			return true
		}
	}
	return false
}

func pluralWord(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
