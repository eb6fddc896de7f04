package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"span-screener/models"
)

func series(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		window int
		want   float64
		wantOK bool
	}{
		{"exact window", []float64{1, 2, 3}, 3, 2, true},
		{"uses trailing window only", []float64{100, 1, 2, 3}, 3, 2, true},
		{"too few closes", []float64{1, 2}, 3, 0, false},
		{"empty", nil, 1, 0, false},
		{"zero window", []float64{1}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SMA(tt.closes, tt.window)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRSI_MonotonicIncreaseIsExactly100(t *testing.T) {
	closes := series(15, func(i int) float64 { return 10 + float64(i) })

	got, ok := RSI(closes, 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, got)
}

func TestRSI_FlatSeriesIs100(t *testing.T) {
	// no losses at all, same as the monotonic case
	got, ok := RSI(series(20, func(int) float64 { return 50 }), 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, got)
}

func TestRSI_MonotonicDecreaseIsZero(t *testing.T) {
	got, ok := RSI(series(15, func(i int) float64 { return 100 - float64(i) }), 14)
	require.True(t, ok)
	assert.InDelta(t, 0.0, got, 1e-9)
}

func TestRSI_BalancedMovesIs50(t *testing.T) {
	// alternating +1 / -1 over an even period
	closes := series(15, func(i int) float64 { return 10 + float64(i%2) })

	got, ok := RSI(closes, 14)
	require.True(t, ok)
	assert.InDelta(t, 50.0, got, 1e-9)
}

func TestRSI_KnownValue(t *testing.T) {
	// gains 2+2 = 4, losses 1 over 3 changes -> rs = 4, rsi = 80
	got, ok := RSI([]float64{10, 12, 11, 13}, 3)
	require.True(t, ok)
	assert.InDelta(t, 80.0, got, 1e-9)
}

func TestRSI_UsesOnlyTrailingPeriod(t *testing.T) {
	// a crash before the window must not affect the value
	closes := append([]float64{500, 10}, series(14, func(i int) float64 { return 11 + float64(i) })...)

	got, ok := RSI(closes, 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, got)
}

func TestRSI_InsufficientData(t *testing.T) {
	_, ok := RSI(series(14, func(i int) float64 { return float64(i) }), 14)
	assert.False(t, ok)
}

func TestTechnicals(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.DailyBar, 0, 60)
	for i := 0; i < 60; i++ {
		bars = append(bars, models.DailyBar{Date: start.AddDate(0, 0, i), Close: float64(i + 1)})
	}

	sma50, rsi14 := Technicals(bars)
	require.NotNil(t, sma50)
	require.NotNil(t, rsi14)
	// mean of 11..60
	assert.InDelta(t, 35.5, *sma50, 1e-9)
	assert.Equal(t, 100.0, *rsi14)

	sma50, rsi14 = Technicals(bars[:20])
	assert.Nil(t, sma50)
	assert.NotNil(t, rsi14)

	sma50, rsi14 = Technicals(nil)
	assert.Nil(t, sma50)
	assert.Nil(t, rsi14)
}
