package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 1 << 20

var (
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// newCircuitBreaker trips after consecutive server-side failures and lets a
// probe through once the timeout has passed.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// statusError is a non-2xx answer. Client errors do not count against the
// circuit breaker.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.code >= 500 {
		return fmt.Sprintf("%v: %d %s", errServerError, e.code, e.body)
	}
	return fmt.Sprintf("%v: %d %s", errUnexpected, e.code, e.body)
}

// doRequest executes the request exactly once through the circuit breaker
// and returns the response body. There are no retries.
func doRequest(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, req *http.Request) ([]byte, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	req = req.WithContext(ctx)

	var clientErr *statusError
	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			se := &statusError{code: resp.StatusCode, body: upstreamMessage(body)}
			if resp.StatusCode >= 500 {
				return nil, se
			}
			// Not a breaker failure; surfaced below.
			clientErr = se
			return nil, nil
		}
		return body, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}
	if clientErr != nil {
		return nil, clientErr
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}
