package models

import (
	"time"
)

// DateLayout is the ISO calendar-day layout used for every date the system exchanges
const DateLayout = "2006-01-02"

// EstimatedFilingLag is applied to a period end date when the source omits the filing date
const EstimatedFilingLag = 60 * 24 * time.Hour

// DailyBar represents one end-of-day OHLCV bar for a symbol
type DailyBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// FiscalPeriodAnnual marks an annual (10-K style) record
const FiscalPeriodAnnual = "FY"

// QuarterlyFinancial is a single reporting period normalized from any upstream source.
// Line items are optional: nil means the source did not report the item.
type QuarterlyFinancial struct {
	EndDate            time.Time  `json:"end_date"`
	FilingDate         *time.Time `json:"filing_date,omitempty"`
	FiscalYear         int        `json:"fiscal_year"`
	FiscalPeriod       string     `json:"fiscal_period"`
	Revenue            *float64   `json:"revenue,omitempty"`
	GrossProfit        *float64   `json:"gross_profit,omitempty"`
	OperatingIncome    *float64   `json:"operating_income,omitempty"`
	NetIncome          *float64   `json:"net_income,omitempty"`
	CashAndEquivalents *float64   `json:"cash_and_equivalents,omitempty"`
	LongTermDebt       *float64   `json:"long_term_debt,omitempty"`
	CurrentLiabilities *float64   `json:"current_liabilities,omitempty"`
	OperatingCashFlow  *float64   `json:"operating_cash_flow,omitempty"`
	CapitalExpenditure *float64   `json:"capital_expenditure,omitempty"`
}

// EffectiveFilingDate returns the filing date, estimating it from the period end when absent
func (q QuarterlyFinancial) EffectiveFilingDate() time.Time {
	if q.FilingDate != nil && !q.FilingDate.IsZero() {
		return *q.FilingDate
	}
	return q.EndDate.Add(EstimatedFilingLag)
}

// IsAnnual reports whether the record covers a full fiscal year
func (q QuarterlyFinancial) IsAnnual() bool {
	return q.FiscalPeriod == FiscalPeriodAnnual
}

// CompanyProfile holds the per-symbol reference data needed for valuation
type CompanyProfile struct {
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty"`
	MarketCap         *float64 `json:"market_cap,omitempty"`
}

// Float returns a pointer to v, for building optional line items
func Float(v float64) *float64 {
	return &v
}

// Day truncates t to its UTC calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses an ISO calendar day
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
