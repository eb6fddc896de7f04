package backtest

import (
	"github.com/shopspring/decimal"

	"span-screener/models"
)

var hundred = decimal.NewFromInt(100)

// ledger is the all-in/all-out cash and share account of one simulated strategy
type ledger struct {
	cash   decimal.Decimal
	shares decimal.Decimal
	entry  decimal.Decimal
}

func newLedger(initial decimal.Decimal) *ledger {
	return &ledger{cash: initial, shares: decimal.Zero, entry: decimal.Zero}
}

func (l *ledger) position() models.PositionState {
	if l.shares.IsPositive() {
		return models.PositionLong
	}
	return models.PositionFlat
}

// buy converts all cash to shares at price and returns the share count
func (l *ledger) buy(price decimal.Decimal) decimal.Decimal {
	l.shares = l.cash.Div(price)
	l.cash = decimal.Zero
	l.entry = price
	return l.shares
}

// sell converts all shares to cash at price and returns the trade return in percent
func (l *ledger) sell(price decimal.Decimal) decimal.Decimal {
	l.cash = l.shares.Mul(price)
	l.shares = decimal.Zero
	ret := price.Sub(l.entry).Div(l.entry).Mul(hundred)
	l.entry = decimal.Zero
	return ret
}

// apply replays a recorded trade
func (l *ledger) apply(t models.Trade) {
	price := decimal.NewFromFloat(t.Price)
	switch t.Type {
	case models.TradeTypeBuy:
		if !l.shares.IsPositive() {
			l.buy(price)
		}
	case models.TradeTypeSell:
		if l.shares.IsPositive() {
			l.sell(price)
		}
	}
}

// value marks the account to market at price
func (l *ledger) value(price decimal.Decimal) decimal.Decimal {
	if l.shares.IsPositive() {
		return l.shares.Mul(price)
	}
	return l.cash
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func returnPct(final, initial decimal.Decimal) decimal.Decimal {
	if initial.IsZero() {
		return decimal.Zero
	}
	return final.Sub(initial).Div(initial).Mul(hundred)
}
