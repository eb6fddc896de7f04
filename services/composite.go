package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"span-screener/models"
	"span-screener/observability"
)

const (
	DefaultHighFrequencyLimit = 20
	DefaultLowFrequencyLimit  = 5
)

// CompositeProvider merges a high-frequency (quarterly) source with a low-frequency
// (annual) source that reaches further back. Bars and profiles come from the
// high-frequency source only.
type CompositeProvider struct {
	highFreq  MarketDataProvider
	lowFreq   MarketDataProvider
	highLimit int
	lowLimit  int
	metrics   *observability.Metrics
}

// NewCompositeProvider creates a composite with the default record limits
func NewCompositeProvider(highFreq, lowFreq MarketDataProvider, metrics *observability.Metrics) *CompositeProvider {
	return &CompositeProvider{
		highFreq:  highFreq,
		lowFreq:   lowFreq,
		highLimit: DefaultHighFrequencyLimit,
		lowLimit:  DefaultLowFrequencyLimit,
		metrics:   metrics,
	}
}

// WithLimits overrides how many records are requested from each source
func (p *CompositeProvider) WithLimits(highLimit, lowLimit int) *CompositeProvider {
	if highLimit > 0 {
		p.highLimit = highLimit
	}
	if lowLimit > 0 {
		p.lowLimit = lowLimit
	}
	return p
}

func (p *CompositeProvider) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	return p.highFreq.GetDailyBars(ctx, symbol, from, to)
}

func (p *CompositeProvider) GetCompanyProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	return p.highFreq.GetCompanyProfile(ctx, symbol)
}

// GetQuarterlyFinancials returns the high-frequency records extended backwards with
// low-frequency records that end strictly before the earliest high-frequency period.
// The limit argument is ignored; each source is asked for its configured limit.
func (p *CompositeProvider) GetQuarterlyFinancials(ctx context.Context, symbol string, _ int) ([]models.QuarterlyFinancial, error) {
	high, highErr := p.highFreq.GetQuarterlyFinancials(ctx, symbol, p.highLimit)
	low, lowErr := p.lowFreq.GetQuarterlyFinancials(ctx, symbol, p.lowLimit)

	if highErr != nil && lowErr != nil {
		return nil, fmt.Errorf("all financial sources failed for %s: %w", symbol, errors.Join(highErr, lowErr))
	}

	if highErr != nil || len(high) == 0 {
		observability.Warn("high-frequency financials unavailable, using low-frequency only",
			"symbol", symbol, "error", highErr, "low_records", len(low))
		p.metrics.RecordProviderFallback("composite", "GetQuarterlyFinancials")
		return low, nil
	}
	if lowErr != nil || len(low) == 0 {
		observability.Info("low-frequency financials unavailable, using high-frequency only",
			"symbol", symbol, "error", lowErr, "high_records", len(high))
		return high, nil
	}

	return MergeFinancials(high, low), nil
}

// MergeFinancials keeps every high-frequency record plus the low-frequency records
// ending before the earliest high-frequency EndDate, ascending by EndDate
func MergeFinancials(high, low []models.QuarterlyFinancial) []models.QuarterlyFinancial {
	if len(high) == 0 {
		return low
	}
	cutoff := high[0].EndDate
	for _, r := range high[1:] {
		if r.EndDate.Before(cutoff) {
			cutoff = r.EndDate
		}
	}

	merged := make([]models.QuarterlyFinancial, 0, len(high)+len(low))
	for _, r := range low {
		if r.EndDate.Before(cutoff) {
			merged = append(merged, r)
		}
	}
	merged = append(merged, high...)
	sortFinancials(merged)
	return merged
}
