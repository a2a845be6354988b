package weather

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NoticeKind classifies a transient message for the display layer.
type NoticeKind string

const (
	NoticeUpdated         NoticeKind = "updated"
	NoticeNoNewData       NoticeKind = "no_new_data"
	NoticeRateLimited     NoticeKind = "rate_limited"
	NoticeNoAPIKey        NoticeKind = "no_api_key"
	NoticeInProgress      NoticeKind = "in_progress"
	NoticePurged          NoticeKind = "purged"
	NoticeLocationChanged NoticeKind = "location_changed"
	NoticeError           NoticeKind = "error"
)

// Notice is a short user-facing message produced by a refresh.
type Notice struct {
	ID      string        `json:"id"`
	Kind    NoticeKind    `json:"kind"`
	Message string        `json:"message"`
	Wait    time.Duration `json:"-"`
	Time    time.Time     `json:"time"`

	// WaitSeconds mirrors Wait for JSON consumers, rounded up.
	WaitSeconds int64 `json:"waitSeconds,omitempty"`

	// Err is the underlying error for NoticeError and NoticeRateLimited.
	Err error `json:"-"`
}

func newNotice(kind NoticeKind, msg string, now time.Time) Notice {
	return Notice{
		ID:      uuid.NewString(),
		Kind:    kind,
		Message: msg,
		Time:    now,
	}
}

func errorNotice(err error, now time.Time) Notice {
	n := newNotice(NoticeError, errorKind(err)+": "+err.Error(), now)
	n.Err = err
	return n
}

// EventType tells subscribers what changed.
type EventType string

const (
	EventRecords   EventType = "records"
	EventSelection EventType = "selection"
	EventNotice    EventType = "notice"
	EventSettings  EventType = "settings"
)

// Event is published after every successful mutation and for every notice.
type Event struct {
	Type     EventType `json:"type"`
	Location string    `json:"location"`
	Notice   *Notice   `json:"notice,omitempty"`
}

// Notifier receives events from a Service.
type Notifier interface {
	Publish(Event)
}

// Hub fans events out to subscribers. Slow subscribers miss events instead
// of blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]chan Event
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan Event)}
}

// Subscribe registers a subscriber and returns its channel together with a
// cancel func that unregisters and closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, 64)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Publish delivers the event to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("hub: subscriber %s is full, dropping %s event", id, ev.Type)
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
