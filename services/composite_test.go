package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"span-screener/models"
)

func quarter(end string) models.QuarterlyFinancial {
	return models.QuarterlyFinancial{EndDate: day(end), FiscalPeriod: "Q", Revenue: models.Float(100)}
}

func annual(end string) models.QuarterlyFinancial {
	return models.QuarterlyFinancial{EndDate: day(end), FiscalPeriod: models.FiscalPeriodAnnual, Revenue: models.Float(400)}
}

func endDates(records []models.QuarterlyFinancial) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.EndDate.Format(models.DateLayout)
	}
	return out
}

func TestCompositeProvider_MergesOlderAnnualRecords(t *testing.T) {
	high := &fakeProvider{financials: []models.QuarterlyFinancial{
		quarter("2022-12-31"), quarter("2023-03-31"), quarter("2023-06-30"), quarter("2023-09-30"),
	}}
	low := &fakeProvider{financials: []models.QuarterlyFinancial{
		annual("2020-12-31"), annual("2021-12-31"), annual("2022-12-31"), annual("2023-12-31"),
	}}

	composite := NewCompositeProvider(high, low, nil)
	merged, err := composite.GetQuarterlyFinancials(context.Background(), "ACME", 0)
	require.NoError(t, err)

	// annual records on or after the earliest quarter are dropped
	assert.Equal(t, []string{
		"2020-12-31", "2021-12-31",
		"2022-12-31", "2023-03-31", "2023-06-30", "2023-09-30",
	}, endDates(merged))
	assert.True(t, merged[0].IsAnnual())
	assert.False(t, merged[2].IsAnnual())

	assert.Equal(t, []int{DefaultHighFrequencyLimit}, high.finLimits)
	assert.Equal(t, []int{DefaultLowFrequencyLimit}, low.finLimits)
}

func TestCompositeProvider_CutoffUsesMinimumEndDate(t *testing.T) {
	// high-frequency records arrive unordered
	high := []models.QuarterlyFinancial{quarter("2023-09-30"), quarter("2023-03-31"), quarter("2023-06-30")}
	low := []models.QuarterlyFinancial{annual("2022-12-31"), annual("2023-03-31")}

	merged := MergeFinancials(high, low)
	assert.Equal(t, []string{"2022-12-31", "2023-03-31", "2023-06-30", "2023-09-30"}, endDates(merged))
	assert.True(t, merged[0].IsAnnual())
	assert.False(t, merged[1].IsAnnual())
}

func TestCompositeProvider_Degradation(t *testing.T) {
	boom := errors.New("source down")
	quarters := []models.QuarterlyFinancial{quarter("2023-06-30"), quarter("2023-09-30")}
	annuals := []models.QuarterlyFinancial{annual("2021-12-31"), annual("2022-12-31")}

	tests := []struct {
		name    string
		high    *fakeProvider
		low     *fakeProvider
		want    []string
		wantErr bool
	}{
		{
			name: "high fails",
			high: &fakeProvider{finErr: boom},
			low:  &fakeProvider{financials: annuals},
			want: []string{"2021-12-31", "2022-12-31"},
		},
		{
			name: "high empty",
			high: &fakeProvider{},
			low:  &fakeProvider{financials: annuals},
			want: []string{"2021-12-31", "2022-12-31"},
		},
		{
			name: "low fails",
			high: &fakeProvider{financials: quarters},
			low:  &fakeProvider{finErr: boom},
			want: []string{"2023-06-30", "2023-09-30"},
		},
		{
			name: "low empty",
			high: &fakeProvider{financials: quarters},
			low:  &fakeProvider{financials: []models.QuarterlyFinancial{}},
			want: []string{"2023-06-30", "2023-09-30"},
		},
		{
			name: "both empty",
			high: &fakeProvider{},
			low:  &fakeProvider{},
			want: []string{},
		},
		{
			name:    "both fail",
			high:    &fakeProvider{finErr: boom},
			low:     &fakeProvider{finErr: errors.New("also down")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			composite := NewCompositeProvider(tt.high, tt.low, nil)
			records, err := composite.GetQuarterlyFinancials(context.Background(), "ACME", 0)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, boom)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, endDates(records))
		})
	}
}

func TestCompositeProvider_BarsAndProfileFromHighFrequencyOnly(t *testing.T) {
	high := &fakeProvider{
		bars:    []models.DailyBar{{Date: day("2024-01-02"), Close: 10}},
		profile: &models.CompanyProfile{Symbol: "ACME", Name: "Acme"},
	}
	low := &fakeProvider{
		bars:    []models.DailyBar{{Date: day("2024-01-02"), Close: 99}},
		profile: &models.CompanyProfile{Symbol: "ACME", Name: "Other"},
	}
	composite := NewCompositeProvider(high, low, nil)

	bars, err := composite.GetDailyBars(context.Background(), "ACME", day("2024-01-01"), day("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 10.0, bars[0].Close)

	profile, err := composite.GetCompanyProfile(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "Acme", profile.Name)

	assert.Zero(t, low.barCalls)
	assert.Zero(t, low.profCalls)
}

func TestCompositeProvider_WithLimits(t *testing.T) {
	high := &fakeProvider{financials: []models.QuarterlyFinancial{quarter("2023-09-30")}}
	low := &fakeProvider{}
	composite := NewCompositeProvider(high, low, nil).WithLimits(12, 3)

	_, err := composite.GetQuarterlyFinancials(context.Background(), "ACME", 99)
	require.NoError(t, err)
	assert.Equal(t, []int{12}, high.finLimits)
	assert.Equal(t, []int{3}, low.finLimits)
}
