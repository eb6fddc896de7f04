// Package indicators computes trailing technical indicators from daily closes.
// Every function only looks at the tail of the series it is given, so callers
// control look-ahead by slicing bars up to the evaluation day.
package indicators

import (
	"span-screener/models"
)

const (
	SMAWindow = 50
	RSIPeriod = 14
)

// Closes extracts closing prices from bars, preserving order
func Closes(bars []models.DailyBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// SMA returns the arithmetic mean of the last window closes.
// ok is false when fewer than window closes exist.
func SMA(closes []float64, window int) (value float64, ok bool) {
	if window <= 0 || len(closes) < window {
		return 0, false
	}
	sum := 0.0
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	return sum / float64(window), true
}

// RSI returns the relative strength index over the last period close-to-close changes,
// using simple averages of gains and losses. ok is false with fewer than period+1 closes.
func RSI(closes []float64, period int) (value float64, ok bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// Technicals computes SMA50 and RSI14 over bars, returning nil for any that are undefined
func Technicals(bars []models.DailyBar) (sma50, rsi14 *float64) {
	closes := Closes(bars)
	if v, ok := SMA(closes, SMAWindow); ok {
		sma50 = models.Float(v)
	}
	if v, ok := RSI(closes, RSIPeriod); ok {
		rsi14 = models.Float(v)
	}
	return sma50, rsi14
}
