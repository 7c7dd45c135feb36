package strategy

import (
	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
)

// TargetPercent sells once the price has risen TargetPercent above entry,
// expressed as a percentage of the *current* price (not the entry price).
// Like TrailingStopLoss, it always signals Buy when flat and is meant to be
// composed as a sell-only member. Grounded on TargetPercentStrategy.
type TargetPercent struct {
	TargetPercent  decimal.Decimal
	BalancePercent decimal.Decimal
}

// NewTargetPercent constructs a TargetPercent strategy. targetPercent
// defaults to 1, balancePercent to 80, matching the original.
func NewTargetPercent(targetPercent, balancePercent decimal.Decimal) *TargetPercent {
	if targetPercent.IsZero() {
		targetPercent = decimal.NewFromInt(1)
	}
	if balancePercent.IsZero() {
		balancePercent = decimal.NewFromInt(80)
	}
	return &TargetPercent{TargetPercent: targetPercent, BalancePercent: balancePercent}
}

func (s *TargetPercent) Setup(history []model.TickerData) {}

func (s *TargetPercent) CalculateQuantity(balance, price decimal.Decimal) decimal.Decimal {
	if balance.GreaterThanOrEqual(five) {
		return five.Div(price)
	}
	return balance.Mul(s.BalancePercent.Div(hundred)).Div(price)
}

func (s *TargetPercent) OnMarketRefresh(ticker model.TickerData, balance *decimal.Decimal, position *model.Position) (*model.OrderSignal, error) {
	currentPrice := ticker.Buy

	if position == nil {
		return &model.OrderSignal{Side: model.Buy}, nil
	}

	currentPercent := currentPrice.Sub(position.EntryOrder.Price).Div(currentPrice).Mul(hundred)
	if currentPercent.GreaterThanOrEqual(s.TargetPercent) {
		qty := position.EntryOrder.Quantity
		return &model.OrderSignal{Side: model.Sell, Quantity: &qty}, nil
	}
	return nil, nil
}
