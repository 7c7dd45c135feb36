// Package strategy implements the trading-decision layer: a common
// interface plus six concrete variants and a composer, all grounded
// line-for-line on original_source/trader/trading_strategy.py. The Go
// teacher has no strategy layer of its own (it trades off inbound
// Telegram signals, not computed indicators), so this package is built
// fresh from the original rather than adapted from teacher code — the
// interface-plus-composer shape is the idiomatic Go replacement for the
// original's abstract-base-class inheritance.
package strategy

import (
	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
)

// Strategy is the contract every trading variant satisfies. Setup runs
// once at engine start with a warm-up window of recent candles.
// OnMarketRefresh runs on every tick and returns nil for no-op.
// CalculateQuantity is the default sizing used when a signal carries no
// explicit quantity.
type Strategy interface {
	Setup(history []model.TickerData)
	OnMarketRefresh(ticker model.TickerData, balance *decimal.Decimal, position *model.Position) (*model.OrderSignal, error)
	CalculateQuantity(balance, price decimal.Decimal) decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// percentChange returns ((to - from) / from) * 100.
func percentChange(from, to decimal.Decimal) decimal.Decimal {
	if from.IsZero() {
		return decimal.Zero
	}
	return to.Sub(from).Div(from).Mul(hundred)
}
