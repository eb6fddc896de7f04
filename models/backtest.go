package models

import (
	"time"

	"github.com/google/uuid"
)

// Cadence is the reporting frequency detected in a financial history
type Cadence string

const (
	CadenceQuarterly Cadence = "quarterly"
	CadenceAnnual    Cadence = "annual"
)

// SignalEvent is the screening outcome at one filing date, mapped to a trading day
type SignalEvent struct {
	Date          time.Time     `json:"date"`
	FilingDate    time.Time     `json:"filing_date"`
	Signal        Signal        `json:"signal"`
	Confidence    Confidence    `json:"confidence"`
	Price         float64       `json:"price"`
	ChecksSummary string        `json:"checks_summary"`
	Checks        []CheckResult `json:"checks"`
	Action        string        `json:"action"`
}

// EquityPoint is one sample of the strategy and benchmark values
type EquityPoint struct {
	Date            time.Time `json:"date"`
	StrategyValue   float64   `json:"strategy_value"`
	BuyAndHoldValue float64   `json:"buy_and_hold_value"`
}

// BacktestResult is the performance report of one simulated run
type BacktestResult struct {
	Symbol              string        `json:"symbol"`
	Name                string        `json:"name"`
	YearsBack           int           `json:"years_back"`
	StartDate           time.Time     `json:"start_date"`
	EndDate             time.Time     `json:"end_date"`
	Cadence             Cadence       `json:"cadence"`
	InitialInvestment   float64       `json:"initial_investment"`
	StrategyFinal       float64       `json:"strategy_final"`
	BuyAndHoldFinal     float64       `json:"buy_and_hold_final"`
	StrategyReturnPct   float64       `json:"strategy_return_pct"`
	BuyAndHoldReturnPct float64       `json:"buy_and_hold_return_pct"`
	OutperformancePct   float64       `json:"outperformance_pct"`
	TotalTrades         int           `json:"total_trades"`
	WinningTrades       int           `json:"winning_trades"`
	LosingTrades        int           `json:"losing_trades"`
	WinRatePct          *float64      `json:"win_rate_pct,omitempty"`
	MaxDrawdownPct      float64       `json:"max_drawdown_pct"`
	FinalPosition       PositionState `json:"final_position"`
	Signals             []SignalEvent `json:"signals"`
	Trades              []Trade       `json:"trades"`
	EquityCurve         []EquityPoint `json:"equity_curve"`
	Summary             string        `json:"summary"`
}

// BacktestRun is a persisted record of a completed backtest
type BacktestRun struct {
	ID         uuid.UUID       `json:"id"`
	Symbol     string          `json:"symbol"`
	YearsBack  int             `json:"years_back"`
	Result     *BacktestResult `json:"result"`
	DurationMs int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewBacktestRun creates a run record for a finished result
func NewBacktestRun(symbol string, yearsBack int, result *BacktestResult, durationMs int64) *BacktestRun {
	return &BacktestRun{
		ID:         uuid.New(),
		Symbol:     symbol,
		YearsBack:  yearsBack,
		Result:     result,
		DurationMs: durationMs,
		CreatedAt:  time.Now(),
	}
}
