package weather

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedRecord is returned when a payload misses structurally required fields.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrNetwork is returned when the remote endpoint cannot be reached or answers with an error status.
	ErrNetwork = errors.New("network error")

	// ErrStorage is returned for filesystem failures while reading, writing or deleting records.
	ErrStorage = errors.New("storage error")

	// ErrRateLimited is a policy refusal, not a failure. See RateLimitError.
	ErrRateLimited = errors.New("rate limited")

	// ErrConfigurationMissing is returned when no API key is configured.
	ErrConfigurationMissing = errors.New("no API key")

	// ErrRefreshInProgress is returned when a refresh is requested while another one runs.
	ErrRefreshInProgress = errors.New("update already in progress")

	// ErrInvalidSelection is returned when a selected index is outside the record list.
	ErrInvalidSelection = errors.New("selection out of range")
)

// RateLimitError carries how long the caller has to wait before the next remote call.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v: retry in %s", ErrRateLimited, FormatWait(e.Wait))
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// errorKind names the taxonomy entry an error belongs to.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedRecord):
		return "MalformedRecord"
	case errors.Is(err, ErrNetwork):
		return "NetworkError"
	case errors.Is(err, ErrStorage):
		return "StorageError"
	case errors.Is(err, ErrRateLimited):
		return "RateLimited"
	case errors.Is(err, ErrConfigurationMissing):
		return "ConfigurationMissing"
	default:
		return "Error"
	}
}
