package screener

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"span-screener/indicators"
	"span-screener/models"
	"span-screener/observability"
	"span-screener/services"
)

const (
	// DefaultFinancialLimit is how many financial records a live analysis requests
	DefaultFinancialLimit = 20

	// DefaultBarLookback covers SMA50 and RSI14 with room for holidays
	DefaultBarLookback = 120 * 24 * time.Hour
)

// Analyzer runs the screening rubric against the latest available data for a symbol
type Analyzer struct {
	provider       services.MarketDataProvider
	engine         *Engine
	metrics        *observability.Metrics
	now            func() time.Time
	financialLimit int
	barLookback    time.Duration
}

// AnalyzerOption customizes an Analyzer
type AnalyzerOption func(*Analyzer)

// WithClock overrides the wall clock, used to anchor the bar request
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

// WithFinancialLimit overrides how many financial records are requested
func WithFinancialLimit(limit int) AnalyzerOption {
	return func(a *Analyzer) {
		if limit > 0 {
			a.financialLimit = limit
		}
	}
}

// NewAnalyzer creates an analyzer reading through provider
func NewAnalyzer(provider services.MarketDataProvider, metrics *observability.Metrics, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		provider:       provider,
		engine:         NewEngine(),
		metrics:        metrics,
		now:            time.Now,
		financialLimit: DefaultFinancialLimit,
		barLookback:    DefaultBarLookback,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze screens symbol as of the latest trading day.
// Missing profile, bars or financials fail with models.ErrDataUnavailable.
func (a *Analyzer) Analyze(ctx context.Context, symbol string) (*models.ScreeningResult, error) {
	timer := a.metrics.NewTimer()
	a.metrics.RecordAnalysisRequest(symbol)
	log := observability.WithSymbol(symbol)

	result, err := a.analyze(ctx, symbol)
	if err != nil {
		timer.ObserveAnalysis("error")
		a.metrics.RecordAnalysisError("analyze", errorType(err))
		log.Warn().Err(err).Msg("analysis failed")
		return nil, err
	}

	timer.ObserveAnalysis("success")
	a.metrics.RecordSignal(string(result.Signal), string(result.Confidence))
	log.Info().
		Str("signal", string(result.Signal)).
		Str("confidence", string(result.Confidence)).
		Int("checks", len(result.Checks)).
		Dur("duration", timer.Duration()).
		Msg("analysis complete")
	return result, nil
}

func (a *Analyzer) analyze(ctx context.Context, symbol string) (*models.ScreeningResult, error) {
	profile, err := a.provider.GetCompanyProfile(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: profile for %s: %w", models.ErrDataUnavailable, symbol, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: no profile for %s", models.ErrDataUnavailable, symbol)
	}

	to := models.Day(a.now())
	from := to.Add(-a.barLookback)
	bars, err := a.provider.GetDailyBars(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: bars for %s: %w", models.ErrDataUnavailable, symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s between %s and %s", models.ErrDataUnavailable,
			symbol, from.Format(models.DateLayout), to.Format(models.DateLayout))
	}

	financials, err := a.provider.GetQuarterlyFinancials(ctx, symbol, a.financialLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: financials for %s: %w", models.ErrDataUnavailable, symbol, err)
	}
	if len(financials) == 0 {
		return nil, fmt.Errorf("%w: no financial records for %s", models.ErrDataUnavailable, symbol)
	}

	last := bars[len(bars)-1]
	// a short history still yields a partial trailing window; growth then stays absent
	windows, _ := SelectWindows(financials, 0)
	sma50, rsi14 := indicators.Technicals(bars)

	metrics := Project(Snapshot{
		Price:   last.Close,
		Windows: windows,
		Profile: profile,
		SMA50:   sma50,
		RSI14:   rsi14,
	})
	checks := a.engine.Evaluate(metrics, last.Close)

	name := profile.Name
	if name == "" {
		name = symbol
	}

	return &models.ScreeningResult{
		Symbol:              symbol,
		Name:                name,
		Price:               last.Close,
		AsOf:                last.Date,
		Cadence:             string(windows.Cadence),
		Metrics:             metrics,
		Checks:              checks,
		Signal:              DeriveSignal(checks),
		Confidence:          DeriveConfidence(checks),
		Reasoning:           Reasoning(checks),
		RevenueByFiscalYear: RevenueByFiscalYear(financials),
	}, nil
}

// RevenueByFiscalYear sums reported revenue per fiscal year, oldest year first.
// Annual records take precedence over quarters of the same year.
func RevenueByFiscalYear(records []models.QuarterlyFinancial) []models.FiscalYearRevenue {
	annual := make(map[int]models.FiscalYearRevenue)
	quarterly := make(map[int]models.FiscalYearRevenue)

	for _, r := range records {
		if r.Revenue == nil || r.FiscalYear == 0 {
			continue
		}
		target := quarterly
		if r.IsAnnual() {
			target = annual
		}
		entry := target[r.FiscalYear]
		entry.FiscalYear = r.FiscalYear
		entry.Revenue += *r.Revenue
		entry.Periods++
		target[r.FiscalYear] = entry
	}

	for year, entry := range quarterly {
		if _, ok := annual[year]; !ok {
			annual[year] = entry
		}
	}

	out := make([]models.FiscalYearRevenue, 0, len(annual))
	for _, entry := range annual {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiscalYear < out[j].FiscalYear })
	return out
}

func errorType(err error) string {
	var perr *services.ProviderError
	switch {
	case errors.Is(err, services.ErrThrottled):
		return "throttled"
	case errors.Is(err, services.ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &perr):
		return "provider"
	case errors.Is(err, models.ErrDataUnavailable):
		return "data_unavailable"
	default:
		return "unknown"
	}
}
