package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"span-screener/observability"
)

// Upstream bundles the plumbing every REST market data client shares.
// Each call goes breaker, then retry, then rate limit wait, then the request itself.
type Upstream struct {
	Name       string
	HTTPClient *http.Client
	Limiter    *RateLimiter
	Breakers   *CircuitBreakerRegistry
	Retry      RetryConfig
	Metrics    *observability.Metrics
	// Authorize decorates each request with credentials
	Authorize func(*http.Request)
}

// NewUpstream creates an Upstream with a 30 second HTTP timeout
func NewUpstream(name string, limiter *RateLimiter, breakers *CircuitBreakerRegistry, retry RetryConfig, metrics *observability.Metrics) *Upstream {
	return &Upstream{
		Name:       name,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Limiter:    limiter,
		Breakers:   breakers,
		Retry:      retry,
		Metrics:    metrics,
	}
}

// GetJSON fetches reqURL and decodes the JSON body into out
func (u *Upstream) GetJSON(ctx context.Context, op, symbol, reqURL string, out any) error {
	_, err := WithCircuitBreaker(ctx, u.Breakers, u.Name, func() (struct{}, error) {
		return struct{}{}, WithRetry(ctx, u.Retry, func() error {
			return u.do(ctx, op, symbol, reqURL, out)
		})
	})
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			return err
		}
		return &ProviderError{Provider: u.Name, Op: op, Symbol: symbol, Err: err}
	}
	return nil
}

func (u *Upstream) do(ctx context.Context, op, symbol, reqURL string, out any) error {
	waitStart := time.Now()
	if err := u.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	log := observability.WithProvider(u.Name)
	if waited := time.Since(waitStart); waited > time.Millisecond {
		u.Metrics.RecordRateLimitWait(u.Name, waited)
		log.Debug().
			Str("op", op).
			Dur("waited", waited).
			Int("window_calls", u.Limiter.InFlight()).
			Msg("rate limiter delayed request")
	}

	u.Metrics.RecordExternalAPIRequest(u.Name, op)
	timer := u.Metrics.NewTimer()
	defer timer.ObserveExternalAPI(u.Name, op)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if u.Authorize != nil {
		u.Authorize(req)
	}

	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		u.Metrics.RecordExternalAPIError(u.Name, op, "network")
		return fmt.Errorf("failed to fetch %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		sErr := statusError(resp.StatusCode)
		errType := "status"
		if errors.Is(sErr, ErrThrottled) {
			errType = "throttled"
		}
		u.Metrics.RecordExternalAPIError(u.Name, op, errType)
		log.Warn().Str("op", op).Str("symbol", symbol).Int("status", resp.StatusCode).Msg("upstream returned an error status")
		return &ProviderError{Provider: u.Name, Op: op, Symbol: symbol, StatusCode: resp.StatusCode, Err: sErr}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		u.Metrics.RecordExternalAPIError(u.Name, op, "decode")
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
