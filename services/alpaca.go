package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"span-screener/models"
	"span-screener/observability"
)

// alpacaBarClient is the slice of the marketdata client the provider uses
type alpacaBarClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaProvider serves daily bars from Alpaca market data
type AlpacaProvider struct {
	dataClient alpacaBarClient
	limiter    *RateLimiter
	breakers   *CircuitBreakerRegistry
	retry      RetryConfig
	metrics    *observability.Metrics
}

// NewAlpacaProvider creates a new AlpacaProvider instance
func NewAlpacaProvider(apiKey, apiSecret string, limiter *RateLimiter, breakers *CircuitBreakerRegistry, retry RetryConfig, metrics *observability.Metrics) *AlpacaProvider {
	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		// throttling is retried by WithRetry, not inside the client
		RetryLimit: -1,
	})

	return &AlpacaProvider{
		dataClient: dataClient,
		limiter:    limiter,
		breakers:   breakers,
		retry:      retry,
		metrics:    metrics,
	}
}

// GetDailyBars returns split-adjusted daily bars between from and to, ascending
func (p *AlpacaProvider) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	const op = "GetDailyBars"

	return WithCircuitBreaker(ctx, p.breakers, BreakerAlpaca, func() ([]models.DailyBar, error) {
		var bars []marketdata.Bar
		err := WithRetry(ctx, p.retry, func() error {
			var err error
			bars, err = p.fetchBars(ctx, op, symbol, from, to)
			return err
		})
		if err != nil {
			var perr *ProviderError
			if errors.As(err, &perr) {
				return nil, err
			}
			return nil, &ProviderError{Provider: BreakerAlpaca, Op: op, Symbol: symbol, Err: err}
		}

		result := make([]models.DailyBar, 0, len(bars))
		for _, bar := range bars {
			result = append(result, models.DailyBar{
				Date:   sessionDay(bar.Timestamp.UnixMilli()),
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: int64(bar.Volume),
			})
		}
		return normalizeBars(result), nil
	})
}

// fetchBars makes one rate-limited request. A 429 surfaces as ErrThrottled.
func (p *AlpacaProvider) fetchBars(ctx context.Context, op, symbol string, from, to time.Time) ([]marketdata.Bar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	p.metrics.RecordExternalAPIRequest(BreakerAlpaca, op)
	timer := p.metrics.NewTimer()
	defer timer.ObserveExternalAPI(BreakerAlpaca, op)

	// end is exclusive upstream
	bars, err := p.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Start:      from,
		End:        to.AddDate(0, 0, 1),
		Adjustment: marketdata.Split,
	})
	if err == nil {
		return bars, nil
	}

	perr := &ProviderError{Provider: BreakerAlpaca, Op: op, Symbol: symbol, Err: err}
	errType := "request"
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		perr.StatusCode = apiErr.StatusCode
		if apiErr.StatusCode == http.StatusTooManyRequests {
			perr.Err = fmt.Errorf("%w: %w", ErrThrottled, err)
			errType = "throttled"
		}
	}
	p.metrics.RecordExternalAPIError(BreakerAlpaca, op, errType)
	return nil, perr
}
