package screener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"span-screener/models"
	"span-screener/services"
)

var analysisDay = day("2025-03-14")

func healthyProvider() *fakeProvider {
	return &fakeProvider{
		bars:       risingBars(analysisDay, 80, 21),
		financials: eightQuarters(),
		profile: &models.CompanyProfile{
			Symbol:            "ACME",
			Name:              "Acme Corp",
			SharesOutstanding: models.Float(10),
		},
	}
}

func newTestAnalyzer(p *fakeProvider) *Analyzer {
	return NewAnalyzer(p, nil, WithClock(func() time.Time { return analysisDay.Add(15 * time.Hour) }))
}

func TestAnalyzer_Analyze(t *testing.T) {
	p := healthyProvider()

	result, err := newTestAnalyzer(p).Analyze(context.Background(), "ACME")
	require.NoError(t, err)

	assert.Equal(t, "ACME", result.Symbol)
	assert.Equal(t, "Acme Corp", result.Name)
	assert.Equal(t, 100.0, result.Price)
	assert.Equal(t, analysisDay, result.AsOf)
	assert.Equal(t, string(models.CadenceQuarterly), result.Cadence)

	assert.Equal(t, analysisDay, p.barTo)
	assert.Equal(t, analysisDay.Add(-DefaultBarLookback), p.barFrom)
	assert.Equal(t, DefaultFinancialLimit, p.finLimit)

	// P/S = 1000 / 500; growth 25%; no cash or debt reported
	require.Len(t, result.Checks, 4)
	assert.Equal(t, models.LightGreen, lightOf(t, result.Checks, models.CheckMargins))
	assert.Equal(t, models.LightGreen, lightOf(t, result.Checks, models.CheckPriceToSales))
	assert.Equal(t, models.LightGreen, lightOf(t, result.Checks, models.CheckRevenueGrowth))
	// steadily rising closes: price above SMA50 but RSI pinned at 100
	assert.Equal(t, models.LightYellow, lightOf(t, result.Checks, models.CheckTechnicals))

	assert.Equal(t, models.SignalBuy, result.Signal)
	assert.Equal(t, models.ConfidenceMedium, result.Confidence)
	assert.Equal(t, "3/4 checks GREEN, 1/4 YELLOW, 0/4 RED", result.Reasoning)

	require.Len(t, result.RevenueByFiscalYear, 2)
	assert.Equal(t, models.FiscalYearRevenue{FiscalYear: 2023, Revenue: 400, Periods: 4}, result.RevenueByFiscalYear[0])
	assert.Equal(t, models.FiscalYearRevenue{FiscalYear: 2024, Revenue: 500, Periods: 4}, result.RevenueByFiscalYear[1])
}

func TestAnalyzer_ShortFinancialHistory(t *testing.T) {
	p := healthyProvider()
	p.financials = eightQuarters()[6:]

	result, err := newTestAnalyzer(p).Analyze(context.Background(), "ACME")
	require.NoError(t, err)

	assert.Nil(t, result.Metrics.RevenueGrowthPct)
	require.NotNil(t, result.Metrics.TTMRevenue)
	assert.Equal(t, 250.0, *result.Metrics.TTMRevenue)
	for _, c := range result.Checks {
		assert.NotEqual(t, models.CheckRevenueGrowth, c.Name)
	}
}

func TestAnalyzer_NameFallsBackToSymbol(t *testing.T) {
	p := healthyProvider()
	p.profile.Name = ""

	result, err := newTestAnalyzer(p).Analyze(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "ACME", result.Name)
}

func TestAnalyzer_DataUnavailable(t *testing.T) {
	upstream := &services.ProviderError{Provider: "massive", Op: "GetCompanyProfile", Symbol: "ACME", Err: services.ErrNoData}

	tests := []struct {
		name   string
		modify func(p *fakeProvider)
	}{
		{"profile error", func(p *fakeProvider) { p.profile, p.profileErr = nil, upstream }},
		{"no profile", func(p *fakeProvider) { p.profile = nil }},
		{"bars error", func(p *fakeProvider) { p.bars, p.barsErr = nil, errors.New("timeout") }},
		{"no bars", func(p *fakeProvider) { p.bars = nil }},
		{"financials error", func(p *fakeProvider) { p.financials, p.finErr = nil, errors.New("boom") }},
		{"no financials", func(p *fakeProvider) { p.financials = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := healthyProvider()
			tt.modify(p)

			result, err := newTestAnalyzer(p).Analyze(context.Background(), "ACME")
			assert.Nil(t, result)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrDataUnavailable)
		})
	}
}

func TestAnalyzer_KeepsProviderErrorChain(t *testing.T) {
	p := healthyProvider()
	p.finErr = &services.ProviderError{Provider: "fmp", Op: "GetQuarterlyFinancials", Symbol: "ACME", StatusCode: 429, Err: services.ErrThrottled}

	_, err := newTestAnalyzer(p).Analyze(context.Background(), "ACME")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
	assert.True(t, services.IsThrottled(err))
	assert.Equal(t, "throttled", errorType(err))
}

func TestRevenueByFiscalYear(t *testing.T) {
	records := []models.QuarterlyFinancial{
		quarter("2022-12-31", 2022, "FY", 380),
		// a stray quarter of a year that also has an annual report
		quarter("2022-09-30", 2022, "Q3", 90),
		quarter("2023-03-31", 2023, "Q1", 100),
		quarter("2023-06-30", 2023, "Q2", 110),
		{EndDate: day("2023-09-30"), FiscalYear: 2023, FiscalPeriod: "Q3"},
	}

	got := RevenueByFiscalYear(records)
	assert.Equal(t, []models.FiscalYearRevenue{
		{FiscalYear: 2022, Revenue: 380, Periods: 1},
		{FiscalYear: 2023, Revenue: 210, Periods: 2},
	}, got)

	assert.Empty(t, RevenueByFiscalYear(nil))
}
