package store

import (
	"sync"

	"github.com/i474232898/weather-logbook/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
// Records are keyed like files on disk, so two captures in the same second
// replace each other.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key, value: file name -> raw payload
	data map[string]map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string][]byte),
	}
}

// ListAll returns the location's records, newest first.
func (s *MemoryStore) ListAll(loc weather.Location) ([]weather.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := s.data[loc.Key()]
	records := make([]weather.Record, 0, len(files))
	for _, raw := range files {
		rec, err := weather.ParseRecord(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	weather.SortNewestFirst(records)
	return records, nil
}

// Save stores a copy of the record's payload.
func (s *MemoryStore) Save(loc weather.Location, rec weather.Record) error {
	key := loc.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	files, ok := s.data[key]
	if !ok {
		files = make(map[string][]byte)
		s.data[key] = files
	}
	files[rec.FileName()] = rec.Raw()
	return nil
}

// Delete removes the record if present.
func (s *MemoryStore) Delete(loc weather.Location, rec weather.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if files, ok := s.data[loc.Key()]; ok {
		delete(files, rec.FileName())
	}
	return nil
}

// Len returns the number of records stored for the location.
func (s *MemoryStore) Len(loc weather.Location) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[loc.Key()])
}
