package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"span-screener/models"
	"span-screener/observability"
)

// FMPProvider reads annual statements, company profiles and daily prices from
// Financial Modeling Prep
type FMPProvider struct {
	apiKey   string
	baseURL  string
	upstream *Upstream
}

// NewFMPProvider creates a new FMPProvider instance
func NewFMPProvider(apiKey, baseURL string, upstream *Upstream) *FMPProvider {
	return &FMPProvider{
		apiKey:   apiKey,
		baseURL:  baseURL,
		upstream: upstream,
	}
}

// fmpProfileResponse represents a company profile from the FMP API
type fmpProfileResponse struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"companyName"`
	Price       float64  `json:"price"`
	MktCap      *float64 `json:"mktCap"`
	Exchange    string   `json:"exchangeShortName"`
	IsEtf       bool     `json:"isEtf"`
}

type fmpIncomeStatement struct {
	Date            string   `json:"date"`
	FillingDate     string   `json:"fillingDate"`
	CalendarYear    string   `json:"calendarYear"`
	Period          string   `json:"period"`
	Revenue         *float64 `json:"revenue"`
	GrossProfit     *float64 `json:"grossProfit"`
	OperatingIncome *float64 `json:"operatingIncome"`
	NetIncome       *float64 `json:"netIncome"`
	WeightedShares  *float64 `json:"weightedAverageShsOut"`
}

type fmpBalanceSheet struct {
	Date                    string   `json:"date"`
	CashAndCashEquivalents  *float64 `json:"cashAndCashEquivalents"`
	LongTermDebt            *float64 `json:"longTermDebt"`
	TotalCurrentLiabilities *float64 `json:"totalCurrentLiabilities"`
}

type fmpCashFlow struct {
	Date               string   `json:"date"`
	OperatingCashFlow  *float64 `json:"operatingCashFlow"`
	CapitalExpenditure *float64 `json:"capitalExpenditure"`
}

type fmpHistoricalResponse struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"historical"`
}

// fmpSymbol converts a canonical symbol to FMP's share-class spelling (BRK.B -> BRK-B)
func fmpSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}

func (p *FMPProvider) endpoint(path, symbol string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", p.apiKey)
	return fmt.Sprintf("%s/%s/%s?%s", p.baseURL, path, url.PathEscape(fmpSymbol(symbol)), params.Encode())
}

// GetDailyBars returns daily prices between from and to, ascending
func (p *FMPProvider) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	params := url.Values{}
	params.Set("from", from.Format(models.DateLayout))
	params.Set("to", to.Format(models.DateLayout))

	var resp fmpHistoricalResponse
	if err := p.upstream.GetJSON(ctx, "GetDailyBars", symbol, p.endpoint("historical-price-full", symbol, params), &resp); err != nil {
		return nil, err
	}

	bars := make([]models.DailyBar, 0, len(resp.Historical))
	for _, h := range resp.Historical {
		day, err := models.ParseDay(h.Date)
		if err != nil {
			continue
		}
		bars = append(bars, models.DailyBar{
			Date:   day,
			Open:   h.Open,
			High:   h.High,
			Low:    h.Low,
			Close:  h.Close,
			Volume: int64(h.Volume),
		})
	}
	return normalizeBars(bars), nil
}

// GetQuarterlyFinancials returns up to limit annual (FY) records assembled from the
// income, balance sheet and cash flow statements, ascending by period end
func (p *FMPProvider) GetQuarterlyFinancials(ctx context.Context, symbol string, limit int) ([]models.QuarterlyFinancial, error) {
	params := func() url.Values {
		v := url.Values{}
		v.Set("period", "annual")
		v.Set("limit", strconv.Itoa(limit))
		return v
	}

	var income []fmpIncomeStatement
	if err := p.upstream.GetJSON(ctx, "GetIncomeStatement", symbol, p.endpoint("income-statement", symbol, params()), &income); err != nil {
		return nil, err
	}
	if len(income) == 0 {
		return []models.QuarterlyFinancial{}, nil
	}

	// balance sheet and cash flow only enrich; a failure leaves those items absent
	log := observability.WithProvider(p.upstream.Name)
	var balance []fmpBalanceSheet
	if err := p.upstream.GetJSON(ctx, "GetBalanceSheet", symbol, p.endpoint("balance-sheet-statement", symbol, params()), &balance); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("balance sheet unavailable, cash and debt left absent")
		balance = nil
	}
	var cashFlow []fmpCashFlow
	if err := p.upstream.GetJSON(ctx, "GetCashFlow", symbol, p.endpoint("cash-flow-statement", symbol, params()), &cashFlow); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("cash flow statement unavailable, cash flow items left absent")
		cashFlow = nil
	}

	balanceByDate := make(map[string]fmpBalanceSheet, len(balance))
	for _, b := range balance {
		balanceByDate[b.Date] = b
	}
	cashFlowByDate := make(map[string]fmpCashFlow, len(cashFlow))
	for _, c := range cashFlow {
		cashFlowByDate[c.Date] = c
	}

	records := make([]models.QuarterlyFinancial, 0, len(income))
	for _, is := range income {
		end, err := models.ParseDay(is.Date)
		if err != nil {
			continue
		}
		rec := models.QuarterlyFinancial{
			EndDate:         end,
			FiscalPeriod:    models.FiscalPeriodAnnual,
			FiscalYear:      end.Year(),
			Revenue:         is.Revenue,
			GrossProfit:     is.GrossProfit,
			OperatingIncome: is.OperatingIncome,
			NetIncome:       is.NetIncome,
		}
		if fy, err := strconv.Atoi(is.CalendarYear); err == nil {
			rec.FiscalYear = fy
		}
		if filed, err := models.ParseDay(is.FillingDate); err == nil {
			rec.FilingDate = &filed
		}
		if b, ok := balanceByDate[is.Date]; ok {
			rec.CashAndEquivalents = b.CashAndCashEquivalents
			rec.LongTermDebt = b.LongTermDebt
			rec.CurrentLiabilities = b.TotalCurrentLiabilities
		}
		if c, ok := cashFlowByDate[is.Date]; ok {
			rec.OperatingCashFlow = c.OperatingCashFlow
			rec.CapitalExpenditure = c.CapitalExpenditure
		}
		records = append(records, rec)
	}

	sortFinancials(records)
	return records, nil
}

// GetCompanyProfile returns the company name and market cap for a symbol
func (p *FMPProvider) GetCompanyProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	var profileResp []fmpProfileResponse
	if err := p.upstream.GetJSON(ctx, "GetCompanyProfile", symbol, p.endpoint("profile", symbol, nil), &profileResp); err != nil {
		return nil, err
	}
	if len(profileResp) == 0 {
		return nil, &ProviderError{Provider: p.upstream.Name, Op: "GetCompanyProfile", Symbol: symbol, Err: ErrNoData}
	}

	prof := profileResp[0]
	profile := &models.CompanyProfile{
		Symbol:    symbol,
		Name:      prof.CompanyName,
		MarketCap: prof.MktCap,
	}
	if prof.MktCap != nil && prof.Price > 0 {
		profile.SharesOutstanding = models.Float(*prof.MktCap / prof.Price)
	}
	return profile, nil
}
