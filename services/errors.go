package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrThrottled is returned when an upstream answers HTTP 429. It is the only retryable error.
	ErrThrottled = errors.New("upstream throttled the request")

	// ErrNoData means the upstream answered but has nothing for the symbol
	ErrNoData = errors.New("upstream returned no data")

	// ErrCircuitOpen is returned while a breaker rejects calls to its service
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// ProviderError describes a failed upstream call
type ProviderError struct {
	Provider   string
	Op         string
	Symbol     string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s %s: status %d: %v", e.Provider, e.Op, e.Symbol, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Provider, e.Op, e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsThrottled reports whether err came from an upstream rate limit response
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// statusError maps a non-200 HTTP status to the matching sentinel
func statusError(code int) error {
	switch code {
	case http.StatusTooManyRequests:
		return ErrThrottled
	case http.StatusNotFound:
		return ErrNoData
	default:
		return fmt.Errorf("unexpected status %s", http.StatusText(code))
	}
}
