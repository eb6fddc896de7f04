package screener

import (
	"context"
	"time"

	"span-screener/models"
)

func day(s string) time.Time {
	d, err := models.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// quarter builds a quarterly record with revenue and a 60% gross margin
func quarter(end string, fy int, fp string, revenue float64) models.QuarterlyFinancial {
	return models.QuarterlyFinancial{
		EndDate:      day(end),
		FiscalYear:   fy,
		FiscalPeriod: fp,
		Revenue:      models.Float(revenue),
		GrossProfit:  models.Float(revenue * 0.6),
		NetIncome:    models.Float(revenue * 0.2),
	}
}

// eightQuarters covers FY2023 and FY2024, revenue 100 per quarter then 125 per quarter
func eightQuarters() []models.QuarterlyFinancial {
	return []models.QuarterlyFinancial{
		quarter("2023-03-31", 2023, "Q1", 100),
		quarter("2023-06-30", 2023, "Q2", 100),
		quarter("2023-09-30", 2023, "Q3", 100),
		quarter("2023-12-31", 2023, "Q4", 100),
		quarter("2024-03-31", 2024, "Q1", 125),
		quarter("2024-06-30", 2024, "Q2", 125),
		quarter("2024-09-30", 2024, "Q3", 125),
		quarter("2024-12-31", 2024, "Q4", 125),
	}
}

// risingBars returns n daily bars ending on end with closes increasing by one
func risingBars(end time.Time, n int, firstClose float64) []models.DailyBar {
	bars := make([]models.DailyBar, n)
	start := end.AddDate(0, 0, -(n - 1))
	for i := range bars {
		c := firstClose + float64(i)
		bars[i] = models.DailyBar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

type fakeProvider struct {
	bars       []models.DailyBar
	barsErr    error
	financials []models.QuarterlyFinancial
	finErr     error
	profile    *models.CompanyProfile
	profileErr error

	barFrom, barTo time.Time
	finLimit       int
}

func (f *fakeProvider) GetDailyBars(_ context.Context, _ string, from, to time.Time) ([]models.DailyBar, error) {
	f.barFrom, f.barTo = from, to
	return f.bars, f.barsErr
}

func (f *fakeProvider) GetQuarterlyFinancials(_ context.Context, _ string, limit int) ([]models.QuarterlyFinancial, error) {
	f.finLimit = limit
	return f.financials, f.finErr
}

func (f *fakeProvider) GetCompanyProfile(_ context.Context, _ string) (*models.CompanyProfile, error) {
	return f.profile, f.profileErr
}
