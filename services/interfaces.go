package services

import (
	"context"
	"time"

	"span-screener/models"
)

// MarketDataProvider is the single boundary between the screening core and upstream data.
// Bars come back ascending by date, financials ascending by period end.
type MarketDataProvider interface {
	GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error)
	GetQuarterlyFinancials(ctx context.Context, symbol string, limit int) ([]models.QuarterlyFinancial, error)
	GetCompanyProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error)
}

// BarSource serves daily bars only
type BarSource interface {
	GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error)
}

// Compile-time interface verification
var _ MarketDataProvider = (*MassiveProvider)(nil)
var _ MarketDataProvider = (*FMPProvider)(nil)
var _ MarketDataProvider = (*CompositeProvider)(nil)
var _ MarketDataProvider = (*BarFallbackProvider)(nil)
var _ BarSource = (*AlpacaProvider)(nil)
