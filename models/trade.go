package models

import (
	"time"
)

// TradeType is the side of a simulated trade
type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

// Trade is a simulated fill produced by a position-changing signal.
// Shares is set on BUY trades, ReturnPct and Win on SELL trades.
// Win is decided on the exact return, before ReturnPct is rounded.
type Trade struct {
	Type      TradeType `json:"type"`
	Date      time.Time `json:"date"`
	Price     float64   `json:"price"`
	Shares    *float64  `json:"shares,omitempty"`
	ReturnPct *float64  `json:"return_pct,omitempty"`
	Win       *bool     `json:"win,omitempty"`
}

// IsWin reports whether a closed trade returned zero or more
func (t Trade) IsWin() bool {
	return t.Type == TradeTypeSell && t.Win != nil && *t.Win
}

// Position states of the trade state machine
type PositionState string

const (
	PositionFlat PositionState = "FLAT"
	PositionLong PositionState = "LONG"
)

// Action labels recorded against each signal event
const (
	ActionBought      = "BUY executed"
	ActionSold        = "SELL executed"
	ActionAlreadyLong = "BUY ignored (already invested)"
	ActionAlreadyFlat = "SELL ignored (no position)"
	ActionHoldLong    = "HOLD (stay invested)"
	ActionHoldFlat    = "HOLD (stay in cash)"
)
