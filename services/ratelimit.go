package services

import (
	"context"
	"sync"
	"time"
)

// RateLimiter allows at most limit calls in any rolling window.
// A nil *RateLimiter never blocks.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

// NewRateLimiter creates a limiter for limit calls per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		stamps: make([]time.Time, 0, limit),
		now:    time.Now,
	}
}

// Wait blocks the calling goroutine until a slot is free or ctx is done.
// Other callers are never held up while one caller sleeps.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	for {
		delay := r.reserve()
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a slot and returns 0, or returns how long until the oldest slot expires
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)
	drop := 0
	for drop < len(r.stamps) && !r.stamps[drop].After(cutoff) {
		drop++
	}
	r.stamps = r.stamps[drop:]

	if len(r.stamps) < r.limit {
		r.stamps = append(r.stamps, now)
		return 0
	}
	return r.stamps[0].Add(r.window).Sub(now)
}

// InFlight returns the number of calls counted against the current window
func (r *RateLimiter) InFlight() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.window)
	n := 0
	for _, ts := range r.stamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}
