package services

import (
	"context"
	"time"

	"span-screener/models"
	"span-screener/observability"
)

// BarFallbackProvider serves bars from Fallback whenever Primary fails or returns
// nothing. Financials and profiles always come from Primary.
type BarFallbackProvider struct {
	Primary  MarketDataProvider
	Fallback BarSource
	Metrics  *observability.Metrics
}

// GetDailyBars tries Primary first
func (p *BarFallbackProvider) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	bars, err := p.Primary.GetDailyBars(ctx, symbol, from, to)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}
	if p.Fallback == nil || ctx.Err() != nil {
		return bars, err
	}

	observability.Warn("primary bar source unavailable, using fallback",
		"symbol", symbol,
		"error", err,
		"primary_bars", len(bars))
	p.Metrics.RecordProviderFallback("bars", "GetDailyBars")

	fallbackBars, fbErr := p.Fallback.GetDailyBars(ctx, symbol, from, to)
	if fbErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, fbErr
	}
	return fallbackBars, nil
}

func (p *BarFallbackProvider) GetQuarterlyFinancials(ctx context.Context, symbol string, limit int) ([]models.QuarterlyFinancial, error) {
	return p.Primary.GetQuarterlyFinancials(ctx, symbol, limit)
}

func (p *BarFallbackProvider) GetCompanyProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	return p.Primary.GetCompanyProfile(ctx, symbol)
}
