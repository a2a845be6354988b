package weather

import (
	"context"
)

// Fetcher retrieves the latest observation from a remote source with exactly
// one request. Transport failures wrap ErrNetwork, unparseable bodies wrap
// ErrMalformedRecord. Implementations must not retry.
type Fetcher interface {
	Name() string
	FetchLatest(ctx context.Context, loc Location, apiKey string) (Record, error)
}

// Store is the contract for per-location record persistence.
type Store interface {
	// ListAll returns every stored record of the location, newest first.
	// A location with nothing stored yields an empty slice.
	ListAll(loc Location) ([]Record, error)
	// Save persists the record, replacing one captured in the same second.
	Save(loc Location, rec Record) error
	// Delete removes the record. Deleting a missing record is not an error.
	Delete(loc Location, rec Record) error
}
