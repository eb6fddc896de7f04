package models

import "errors"

// ErrDataUnavailable means a request cannot be served because required data
// (bars, profile or financials) is missing after all sources were tried.
var ErrDataUnavailable = errors.New("data unavailable")

// ErrInvalidSymbol is returned for empty or malformed ticker symbols
var ErrInvalidSymbol = errors.New("invalid symbol")

// ErrInvalidYears is returned when a backtest lookback is outside the allowed range
var ErrInvalidYears = errors.New("invalid years")
