package services

import (
	"context"
	"fmt"
	"time"

	"span-screener/observability"
)

// RetryConfig bounds retries of a single upstream call
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration
	// Retryable decides whether an error is worth another attempt. Nil retries throttling only.
	Retryable func(error) bool
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries: 3,
	Backoff:    12 * time.Second,
	Retryable:  IsThrottled,
}

func (c RetryConfig) retryable(err error) bool {
	if c.Retryable == nil {
		return IsThrottled(err)
	}
	return c.Retryable(err)
}

// WithRetry calls fn until it succeeds, returns a non-retryable error, or retries run out.
// Attempts are spaced by a fixed backoff.
func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			case <-time.After(config.Backoff):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !config.retryable(err) {
			return err
		}

		lastErr = err
		if attempt < config.MaxRetries {
			observability.Warn("upstream call throttled, retrying",
				"attempt", attempt+1,
				"max_retries", config.MaxRetries,
				"backoff", config.Backoff.String(),
				"error", err)
		}
	}

	return fmt.Errorf("failed after %d retries: %w", config.MaxRetries, lastErr)
}
