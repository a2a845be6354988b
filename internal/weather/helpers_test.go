package weather

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// payloadAt builds a minimal valid payload captured at the given instant.
func payloadAt(at time.Time, tempKelvin float64) []byte {
	return []byte(fmt.Sprintf(
		`{"weather":[{"main":"Clear","description":"clear sky"}],"main":{"temp":%g,"feels_like":%g,"humidity":60},"visibility":10000,"clouds":{"all":20},"dt":%d,"timezone":0}`,
		tempKelvin, tempKelvin-1, at.Unix(),
	))
}

func recordAt(t *testing.T, at time.Time) Record {
	t.Helper()
	rec, err := ParseRecord(payloadAt(at, 280))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return rec
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
