// Package backtest replays the screening rubric at every historical filing date
// and trades a single symbol all-in/all-out on the resulting signals.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"span-screener/config"
	"span-screener/indicators"
	"span-screener/models"
	"span-screener/observability"
	"span-screener/screener"
	"span-screener/services"
)

// Simulator runs look-ahead-free backtests through a MarketDataProvider.
// A run is single-threaded and holds no state between calls.
type Simulator struct {
	provider services.MarketDataProvider
	engine   *screener.Engine
	cfg      config.BacktestConfig
	metrics  *observability.Metrics
	now      func() time.Time
}

// Option customizes a Simulator
type Option func(*Simulator)

// WithClock sets the clock that anchors the end of the backtest window
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// NewSimulator creates a simulator
func NewSimulator(provider services.MarketDataProvider, cfg config.BacktestConfig, metrics *observability.Metrics, opts ...Option) *Simulator {
	s := &Simulator{
		provider: provider,
		engine:   screener.NewEngine(),
		cfg:      cfg,
		metrics:  metrics,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// history is the market data loaded for one run
type history struct {
	profile    *models.CompanyProfile
	bars       []models.DailyBar // warm-up and window bars
	firstIdx   int               // index of the first bar inside the window
	financials []models.QuarterlyFinancial
}

func (h history) windowBars() []models.DailyBar {
	return h.bars[h.firstIdx:]
}

// Run backtests symbol over the last yearsBack years
func (s *Simulator) Run(ctx context.Context, symbol string, yearsBack int) (*models.BacktestResult, error) {
	if yearsBack < 1 || (s.cfg.MaxYears > 0 && yearsBack > s.cfg.MaxYears) {
		return nil, fmt.Errorf("%w: %d (allowed 1-%d)", models.ErrInvalidYears, yearsBack, s.cfg.MaxYears)
	}

	start := time.Now()
	log := observability.WithSymbol(symbol)

	end := models.Day(s.now())
	windowStart := end.AddDate(-yearsBack, 0, 0)

	h, err := s.load(ctx, symbol, windowStart, end)
	if err != nil {
		s.metrics.RecordBacktest("error", "", 0, time.Since(start))
		log.Warn().Err(err).Int("years", yearsBack).Msg("backtest failed")
		return nil, err
	}

	events := s.signalEvents(h, windowStart, end)
	result := s.simulate(symbol, h, events, windowStart, end)
	result.YearsBack = yearsBack

	for _, t := range result.Trades {
		s.metrics.RecordBacktestTrade(string(t.Type))
	}
	s.metrics.RecordBacktest("success", string(result.Cadence), len(result.Signals), time.Since(start))
	log.Info().
		Int("years", yearsBack).
		Int("signals", len(result.Signals)).
		Int("trades", result.TotalTrades).
		Float64("strategy_return_pct", result.StrategyReturnPct).
		Float64("buy_and_hold_return_pct", result.BuyAndHoldReturnPct).
		Msg("backtest complete")

	return result, nil
}

func (s *Simulator) load(ctx context.Context, symbol string, windowStart, end time.Time) (history, error) {
	profile, err := s.provider.GetCompanyProfile(ctx, symbol)
	if err != nil {
		return history{}, fmt.Errorf("%w: profile for %s: %w", models.ErrDataUnavailable, symbol, err)
	}
	if profile == nil {
		return history{}, fmt.Errorf("%w: no profile for %s", models.ErrDataUnavailable, symbol)
	}

	from := windowStart.AddDate(0, 0, -s.cfg.WarmupDays)
	raw, err := s.provider.GetDailyBars(ctx, symbol, from, end)
	if err != nil {
		return history{}, fmt.Errorf("%w: bars for %s: %w", models.ErrDataUnavailable, symbol, err)
	}
	bars := usableBars(raw, end)
	firstIdx := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(windowStart) })
	if firstIdx == len(bars) {
		return history{}, fmt.Errorf("%w: no price data for %s since %s", models.ErrDataUnavailable,
			symbol, windowStart.Format(models.DateLayout))
	}

	financials, err := s.provider.GetQuarterlyFinancials(ctx, symbol, s.cfg.QuarterlyLimit)
	if err != nil {
		return history{}, fmt.Errorf("%w: financials for %s: %w", models.ErrDataUnavailable, symbol, err)
	}
	if len(financials) == 0 {
		return history{}, fmt.Errorf("%w: no financial records for %s", models.ErrDataUnavailable, symbol)
	}

	return history{profile: profile, bars: bars, firstIdx: firstIdx, financials: financials}, nil
}

// usableBars sorts bars by day, drops bars without a positive close or after end,
// and keeps the last bar of any duplicated day
func usableBars(raw []models.DailyBar, end time.Time) []models.DailyBar {
	bars := make([]models.DailyBar, 0, len(raw))
	for _, b := range raw {
		b.Date = models.Day(b.Date)
		if b.Close > 0 && !b.Date.After(end) {
			bars = append(bars, b)
		}
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// filingDates returns the distinct filing days inside [windowStart, end], ascending
func filingDates(records []models.QuarterlyFinancial, windowStart, end time.Time) []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, r := range records {
		d := models.Day(r.EffectiveFilingDate())
		if d.Before(windowStart) || d.After(end) || seen[d] {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// knownAt returns the records already filed on day
func knownAt(records []models.QuarterlyFinancial, day time.Time) []models.QuarterlyFinancial {
	known := make([]models.QuarterlyFinancial, 0, len(records))
	for _, r := range records {
		if !models.Day(r.EffectiveFilingDate()).After(day) {
			known = append(known, r)
		}
	}
	return known
}

// signalEvents evaluates the rubric at every filing date. Events are ordered by
// trading day and a later filing mapped to the same day replaces the earlier one.
func (s *Simulator) signalEvents(h history, windowStart, end time.Time) []models.SignalEvent {
	window := h.windowBars()
	var events []models.SignalEvent

	for _, filed := range filingDates(h.financials, windowStart, end) {
		windows, ok := screener.SelectWindows(knownAt(h.financials, filed), 1)
		if !ok {
			continue
		}

		i := sort.Search(len(window), func(i int) bool { return !window[i].Date.Before(filed) })
		if i == len(window) {
			continue
		}
		bar := window[i]

		// technicals see warm-up bars plus the window up to and including the trading day
		sma50, rsi14 := indicators.Technicals(h.bars[:h.firstIdx+i+1])
		metrics := screener.Project(screener.Snapshot{
			Price:   bar.Close,
			Windows: windows,
			Profile: h.profile,
			SMA50:   sma50,
			RSI14:   rsi14,
		})
		checks := s.engine.Evaluate(metrics, bar.Close)
		if len(checks) == 0 {
			continue
		}

		event := models.SignalEvent{
			Date:          bar.Date,
			FilingDate:    filed,
			Signal:        screener.DeriveSignal(checks),
			Confidence:    screener.DeriveConfidence(checks),
			Price:         bar.Close,
			ChecksSummary: screener.Reasoning(checks),
			Checks:        checks,
		}

		if n := len(events); n > 0 && events[n-1].Date.Equal(event.Date) {
			observability.Debug("replacing same-day signal",
				"date", event.Date.Format(models.DateLayout),
				"filing_date", filed.Format(models.DateLayout))
			events[n-1] = event
			continue
		}
		events = append(events, event)
	}
	return events
}

// simulate runs the FLAT/LONG state machine over events and builds the report
func (s *Simulator) simulate(symbol string, h history, events []models.SignalEvent, windowStart, end time.Time) *models.BacktestResult {
	window := h.windowBars()
	initial := decimal.NewFromFloat(s.cfg.InitialInvestment)
	first := decimal.NewFromFloat(window[0].Close)
	last := decimal.NewFromFloat(window[len(window)-1].Close)

	acct := newLedger(initial)
	var trades []models.Trade
	for i := range events {
		e := &events[i]
		price := decimal.NewFromFloat(e.Price)
		state := acct.position()

		switch {
		case e.Signal == models.SignalBuy && state == models.PositionFlat:
			shares := acct.buy(price)
			trades = append(trades, models.Trade{
				Type:   models.TradeTypeBuy,
				Date:   e.Date,
				Price:  e.Price,
				Shares: models.Float(shares.InexactFloat64()),
			})
			e.Action = models.ActionBought
		case e.Signal == models.SignalSell && state == models.PositionLong:
			ret := acct.sell(price)
			win := ret.Sign() >= 0
			trades = append(trades, models.Trade{
				Type:      models.TradeTypeSell,
				Date:      e.Date,
				Price:     e.Price,
				ReturnPct: models.Float(ret.Round(2).InexactFloat64()),
				Win:       &win,
			})
			e.Action = models.ActionSold
		default:
			e.Action = holdAction(e.Signal, state)
		}
	}

	strategyFinal := acct.value(last)
	benchShares := initial.Div(first)
	benchFinal := benchShares.Mul(last)

	curve, maxDrawdown := equityCurve(window, trades, initial, benchShares, s.cfg.EquityStride)

	strategyReturn := returnPct(strategyFinal, initial).Round(2)
	benchReturn := returnPct(benchFinal, initial).Round(2)

	result := &models.BacktestResult{
		Symbol:              symbol,
		Name:                h.profile.Name,
		StartDate:           windowStart,
		EndDate:             end,
		Cadence:             reportCadence(h.financials),
		InitialInvestment:   cents(initial),
		StrategyFinal:       cents(strategyFinal),
		BuyAndHoldFinal:     cents(benchFinal),
		StrategyReturnPct:   strategyReturn.InexactFloat64(),
		BuyAndHoldReturnPct: benchReturn.InexactFloat64(),
		OutperformancePct:   strategyReturn.Sub(benchReturn).InexactFloat64(),
		TotalTrades:         len(trades),
		MaxDrawdownPct:      maxDrawdown.Round(2).InexactFloat64(),
		FinalPosition:       acct.position(),
		Signals:             events,
		Trades:              trades,
		EquityCurve:         curve,
	}
	if result.Name == "" {
		result.Name = symbol
	}
	if result.Signals == nil {
		result.Signals = []models.SignalEvent{}
	}
	if result.Trades == nil {
		result.Trades = []models.Trade{}
	}

	closed := 0
	for _, t := range trades {
		if t.Type != models.TradeTypeSell {
			continue
		}
		closed++
		if t.IsWin() {
			result.WinningTrades++
		}
	}
	result.LosingTrades = closed - result.WinningTrades
	if closed > 0 {
		result.WinRatePct = models.Float(decimal.NewFromInt(int64(result.WinningTrades)).
			Div(decimal.NewFromInt(int64(closed))).Mul(hundred).Round(2).InexactFloat64())
	}
	result.Summary = summary(result)
	return result
}

func holdAction(signal models.Signal, state models.PositionState) string {
	switch {
	case signal == models.SignalBuy:
		return models.ActionAlreadyLong
	case signal == models.SignalSell:
		return models.ActionAlreadyFlat
	case state == models.PositionLong:
		return models.ActionHoldLong
	default:
		return models.ActionHoldFlat
	}
}

// equityCurve samples the strategy and benchmark every stride trading days.
// The strategy is replayed from the trade list on every bar so the maximum
// drawdown covers days between samples too.
func equityCurve(window []models.DailyBar, trades []models.Trade, initial, benchShares decimal.Decimal, stride int) ([]models.EquityPoint, decimal.Decimal) {
	if stride <= 0 {
		stride = 1
	}
	replay := newLedger(initial)
	next := 0
	peak := initial
	maxDrawdown := decimal.Zero
	curve := make([]models.EquityPoint, 0, len(window)/stride+1)

	for i, bar := range window {
		for next < len(trades) && !trades[next].Date.After(bar.Date) {
			replay.apply(trades[next])
			next++
		}
		price := decimal.NewFromFloat(bar.Close)
		value := replay.value(price)

		if value.GreaterThan(peak) {
			peak = value
		}
		if peak.IsPositive() {
			if dd := peak.Sub(value).Div(peak).Mul(hundred); dd.GreaterThan(maxDrawdown) {
				maxDrawdown = dd
			}
		}

		if i%stride == 0 {
			curve = append(curve, models.EquityPoint{
				Date:            bar.Date,
				StrategyValue:   cents(value),
				BuyAndHoldValue: cents(benchShares.Mul(price)),
			})
		}
	}
	return curve, maxDrawdown
}

// reportCadence is annual when any financial record is a fiscal-year report
func reportCadence(records []models.QuarterlyFinancial) models.Cadence {
	return screener.DetectCadence(records)
}

func summary(r *models.BacktestResult) string {
	verdict := "underperformed"
	if r.OutperformancePct >= 0 {
		verdict = "outperformed"
	}
	return fmt.Sprintf("%s %s buy-and-hold by %.2f pts: strategy %+.2f%% vs buy-and-hold %+.2f%% from %s to %s, %d signals, %d trades, ended %s",
		r.Symbol, verdict, abs(r.OutperformancePct), r.StrategyReturnPct, r.BuyAndHoldReturnPct,
		r.StartDate.Format(models.DateLayout), r.EndDate.Format(models.DateLayout),
		len(r.Signals), r.TotalTrades, r.FinalPosition)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
