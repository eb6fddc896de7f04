package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"span-screener/models"
)

// MassiveProvider reads bars, quarterly financials and ticker details from the
// Polygon-compatible Massive REST API
type MassiveProvider struct {
	upstream *Upstream
	baseURL  string
}

// NewMassiveProvider creates a provider authenticating with a bearer token
func NewMassiveProvider(apiKey, baseURL string, upstream *Upstream) *MassiveProvider {
	upstream.Authorize = func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	return &MassiveProvider{
		upstream: upstream,
		baseURL:  baseURL,
	}
}

type massiveAggsResponse struct {
	Status       string       `json:"status"`
	ResultsCount int          `json:"resultsCount"`
	Results      []massiveAgg `json:"results"`
}

type massiveAgg struct {
	T int64   `json:"t"` // unix millis of the session start
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

type massiveValue struct {
	Value *float64 `json:"value"`
}

type massiveFinancialsResponse struct {
	Status  string             `json:"status"`
	Results []massiveFinancial `json:"results"`
}

type massiveFinancial struct {
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	FilingDate   string `json:"filing_date"`
	FiscalPeriod string `json:"fiscal_period"`
	FiscalYear   string `json:"fiscal_year"`
	Financials   struct {
		IncomeStatement struct {
			Revenues            *massiveValue `json:"revenues"`
			GrossProfit         *massiveValue `json:"gross_profit"`
			OperatingIncomeLoss *massiveValue `json:"operating_income_loss"`
			NetIncomeLoss       *massiveValue `json:"net_income_loss"`
		} `json:"income_statement"`
		BalanceSheet struct {
			Cash               *massiveValue `json:"cash"`
			OtherCurrentAssets *massiveValue `json:"other_current_assets"`
			LongTermDebt       *massiveValue `json:"long_term_debt"`
			CurrentLiabilities *massiveValue `json:"current_liabilities"`
		} `json:"balance_sheet"`
		CashFlowStatement struct {
			OperatingActivities *massiveValue `json:"net_cash_flow_from_operating_activities"`
			InvestingActivities *massiveValue `json:"net_cash_flow_from_investing_activities"`
		} `json:"cash_flow_statement"`
	} `json:"financials"`
}

type massiveTickerResponse struct {
	Status  string `json:"status"`
	Results *struct {
		Ticker                    string   `json:"ticker"`
		Name                      string   `json:"name"`
		MarketCap                 *float64 `json:"market_cap"`
		WeightedSharesOutstanding *float64 `json:"weighted_shares_outstanding"`
		ShareClassSharesOutstand  *float64 `json:"share_class_shares_outstanding"`
	} `json:"results"`
}

// GetDailyBars returns adjusted daily aggregates between from and to, inclusive
func (p *MassiveProvider) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	reqURL := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=50000",
		p.baseURL, url.PathEscape(symbol), from.Format(models.DateLayout), to.Format(models.DateLayout))

	var resp massiveAggsResponse
	if err := p.upstream.GetJSON(ctx, "GetDailyBars", symbol, reqURL, &resp); err != nil {
		return nil, err
	}

	bars := make([]models.DailyBar, 0, len(resp.Results))
	for _, agg := range resp.Results {
		bars = append(bars, models.DailyBar{
			Date:   sessionDay(agg.T),
			Open:   agg.O,
			High:   agg.H,
			Low:    agg.L,
			Close:  agg.C,
			Volume: int64(agg.V),
		})
	}
	return normalizeBars(bars), nil
}

// GetQuarterlyFinancials returns up to limit quarterly reports, ascending by period end
func (p *MassiveProvider) GetQuarterlyFinancials(ctx context.Context, symbol string, limit int) ([]models.QuarterlyFinancial, error) {
	params := url.Values{}
	params.Set("ticker", symbol)
	params.Set("timeframe", "quarterly")
	params.Set("order", "desc")
	params.Set("sort", "period_of_report_date")
	params.Set("limit", strconv.Itoa(limit))
	reqURL := p.baseURL + "/vX/reference/financials?" + params.Encode()

	var resp massiveFinancialsResponse
	if err := p.upstream.GetJSON(ctx, "GetQuarterlyFinancials", symbol, reqURL, &resp); err != nil {
		return nil, err
	}

	records := make([]models.QuarterlyFinancial, 0, len(resp.Results))
	for _, r := range resp.Results {
		rec, ok := r.toModel()
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	sortFinancials(records)
	return records, nil
}

// GetCompanyProfile returns the name, market cap and share count from ticker details
func (p *MassiveProvider) GetCompanyProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	reqURL := fmt.Sprintf("%s/v3/reference/tickers/%s", p.baseURL, url.PathEscape(symbol))

	var resp massiveTickerResponse
	if err := p.upstream.GetJSON(ctx, "GetCompanyProfile", symbol, reqURL, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, &ProviderError{Provider: p.upstream.Name, Op: "GetCompanyProfile", Symbol: symbol, Err: ErrNoData}
	}

	shares := resp.Results.WeightedSharesOutstanding
	if shares == nil {
		shares = resp.Results.ShareClassSharesOutstand
	}
	return &models.CompanyProfile{
		Symbol:            symbol,
		Name:              resp.Results.Name,
		SharesOutstanding: shares,
		MarketCap:         resp.Results.MarketCap,
	}, nil
}

func (r massiveFinancial) toModel() (models.QuarterlyFinancial, bool) {
	end, err := models.ParseDay(r.EndDate)
	if err != nil {
		return models.QuarterlyFinancial{}, false
	}
	rec := models.QuarterlyFinancial{
		EndDate:      end,
		FiscalPeriod: r.FiscalPeriod,
	}
	if filed, err := models.ParseDay(r.FilingDate); err == nil {
		rec.FilingDate = &filed
	}
	if fy, err := strconv.Atoi(r.FiscalYear); err == nil {
		rec.FiscalYear = fy
	} else {
		rec.FiscalYear = end.Year()
	}

	is := r.Financials.IncomeStatement
	rec.Revenue = valueOf(is.Revenues)
	rec.GrossProfit = valueOf(is.GrossProfit)
	rec.OperatingIncome = valueOf(is.OperatingIncomeLoss)
	rec.NetIncome = valueOf(is.NetIncomeLoss)

	bs := r.Financials.BalanceSheet
	rec.CashAndEquivalents = valueOf(bs.Cash)
	if rec.CashAndEquivalents == nil {
		// cash is rarely broken out; other current assets is the usual proxy
		rec.CashAndEquivalents = valueOf(bs.OtherCurrentAssets)
	}
	rec.LongTermDebt = valueOf(bs.LongTermDebt)
	rec.CurrentLiabilities = valueOf(bs.CurrentLiabilities)

	cf := r.Financials.CashFlowStatement
	rec.OperatingCashFlow = valueOf(cf.OperatingActivities)
	// investing cash flow stands in for capital expenditure
	rec.CapitalExpenditure = valueOf(cf.InvestingActivities)

	return rec, true
}

func valueOf(v *massiveValue) *float64 {
	if v == nil {
		return nil
	}
	return v.Value
}

// sessionDay converts an aggregate timestamp to its New York trading day
func sessionDay(ms int64) time.Time {
	t := time.UnixMilli(ms)
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// normalizeBars sorts ascending and drops duplicate days, keeping the last
func normalizeBars(bars []models.DailyBar) []models.DailyBar {
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

func sortFinancials(records []models.QuarterlyFinancial) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].EndDate.Before(records[j].EndDate) })
}
