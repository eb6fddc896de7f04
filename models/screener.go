package models

import (
	"time"
)

// Light is the traffic-light outcome of a single screening check
type Light string

const (
	LightGreen  Light = "GREEN"
	LightYellow Light = "YELLOW"
	LightRed    Light = "RED"
)

// Signal is the overall recommendation derived from the checks
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Confidence describes how unanimous the checks were
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Check names, in evaluation order
const (
	CheckMargins       = "Margins"
	CheckPriceToSales  = "Price/Sales"
	CheckRevenueGrowth = "Revenue Growth"
	CheckCashDebt      = "Cash/Debt Ratio"
	CheckTechnicals    = "Technicals"
)

// CheckResult is the outcome of one screening check
type CheckResult struct {
	Name   string `json:"name"`
	Light  Light  `json:"light"`
	Detail string `json:"detail"`
}

// ScreeningMetrics are the derived values the checks are evaluated against.
// A nil field means the metric could not be computed from the available data.
type ScreeningMetrics struct {
	TTMRevenue         *float64 `json:"ttm_revenue,omitempty"`
	TTMNetIncome       *float64 `json:"ttm_net_income,omitempty"`
	MarketCap          *float64 `json:"market_cap,omitempty"`
	EPS                *float64 `json:"eps,omitempty"`
	PERatio            *float64 `json:"pe_ratio,omitempty"`
	PSRatio            *float64 `json:"ps_ratio,omitempty"`
	PFCFRatio          *float64 `json:"pfcf_ratio,omitempty"`
	GrossMarginPct     *float64 `json:"gross_margin_pct,omitempty"`
	OperatingMarginPct *float64 `json:"operating_margin_pct,omitempty"`
	ProfitMarginPct    *float64 `json:"profit_margin_pct,omitempty"`
	FCFMarginPct       *float64 `json:"fcf_margin_pct,omitempty"`
	RevenueGrowthPct   *float64 `json:"revenue_growth_pct,omitempty"`
	Cash               *float64 `json:"cash,omitempty"`
	TotalDebt          *float64 `json:"total_debt,omitempty"`
	CashDebtRatio      *float64 `json:"cash_debt_ratio,omitempty"`
	SMA50              *float64 `json:"sma50,omitempty"`
	RSI14              *float64 `json:"rsi14,omitempty"`
}

// FiscalYearRevenue is the revenue reported for one fiscal year
type FiscalYearRevenue struct {
	FiscalYear int     `json:"fiscal_year"`
	Revenue    float64 `json:"revenue"`
	Periods    int     `json:"periods"`
}

// ScreeningResult is the full output of a live analysis
type ScreeningResult struct {
	Symbol              string              `json:"symbol"`
	Name                string              `json:"name"`
	Price               float64             `json:"price"`
	AsOf                time.Time           `json:"as_of"`
	Cadence             string              `json:"cadence"`
	Metrics             ScreeningMetrics    `json:"metrics"`
	Checks              []CheckResult       `json:"checks"`
	Signal              Signal              `json:"signal"`
	Confidence          Confidence          `json:"confidence"`
	Reasoning           string              `json:"reasoning"`
	RevenueByFiscalYear []FiscalYearRevenue `json:"revenue_by_fiscal_year,omitempty"`
}

// CountLights tallies the checks by light
func CountLights(checks []CheckResult) (greens, yellows, reds int) {
	for _, c := range checks {
		switch c.Light {
		case LightGreen:
			greens++
		case LightYellow:
			yellows++
		case LightRed:
			reds++
		}
	}
	return greens, yellows, reds
}
