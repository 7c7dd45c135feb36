package model

import "github.com/shopspring/decimal"

// PositionType tags a position's direction. Short is reserved: this engine
// only ever produces Long positions (spec open question — kept as a typed
// tag rather than dead-coded away, in case a future strategy populates it).
type PositionType string

const (
	Long  PositionType = "long"
	Short PositionType = "short"
)

// Position pairs an immutable entry order with an optional exit order. A
// nil ExitOrder means the position is still open.
type Position struct {
	Type       PositionType
	EntryOrder Order
	ExitOrder  *Order
}

// UnrealizedPnL is only meaningful while the position is open.
func (p *Position) UnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Sub(p.EntryOrder.Price).Mul(p.EntryOrder.Quantity)
}

// UnrealizedPnLPercent divides UnrealizedPnL by the entry notional.
func (p *Position) UnrealizedPnLPercent(currentPrice decimal.Decimal) decimal.Decimal {
	pnl := p.UnrealizedPnL(currentPrice)
	return percentOf(pnl, p.entryNotional())
}

// RealizedPnL is only meaningful once the position is closed.
func (p *Position) RealizedPnL() decimal.Decimal {
	if p.ExitOrder == nil {
		return decimal.Zero
	}
	return p.ExitOrder.Price.Sub(p.EntryOrder.Price).Mul(p.EntryOrder.Quantity)
}

// RealizedPnLPercent divides RealizedPnL by the entry notional.
func (p *Position) RealizedPnLPercent() decimal.Decimal {
	return percentOf(p.RealizedPnL(), p.entryNotional())
}

func (p *Position) entryNotional() decimal.Decimal {
	return p.EntryOrder.Price.Mul(p.EntryOrder.Quantity)
}

func percentOf(value, notional decimal.Decimal) decimal.Decimal {
	if notional.IsZero() {
		return decimal.Zero
	}
	return value.Div(notional).Mul(decimal.NewFromInt(100))
}

// IsOpen reports whether the position has not yet been closed by an exit
// order.
func (p *Position) IsOpen() bool {
	return p.ExitOrder == nil
}
