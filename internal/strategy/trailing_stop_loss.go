package strategy

import (
	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
)

// TrailingStopLoss tracks the highest price since a position opened and
// signals Sell once the price has dropped StopLossPercent off that peak.
// It always signals Buy when flat — it has no buy logic of its own and is
// meant to be composed as a sell-only member of Composer, which only
// consults its buy-side members while flat. Grounded on
// TrailingStopLossStrategy.
type TrailingStopLoss struct {
	StopLossPercent decimal.Decimal
	BalancePercent  decimal.Decimal

	highestPriceAfterTarget decimal.Decimal
}

// NewTrailingStopLoss constructs a TrailingStopLoss strategy.
// stopLossPercent/balancePercent default to 1/80 when passed as zero.
func NewTrailingStopLoss(stopLossPercent, balancePercent decimal.Decimal) *TrailingStopLoss {
	if stopLossPercent.IsZero() {
		stopLossPercent = decimal.NewFromInt(1)
	}
	if balancePercent.IsZero() {
		balancePercent = decimal.NewFromInt(80)
	}
	return &TrailingStopLoss{StopLossPercent: stopLossPercent, BalancePercent: balancePercent}
}

func (s *TrailingStopLoss) Setup(history []model.TickerData) {}

func (s *TrailingStopLoss) CalculateQuantity(balance, price decimal.Decimal) decimal.Decimal {
	if balance.GreaterThanOrEqual(five) {
		return five.Div(price)
	}
	return balance.Mul(s.BalancePercent.Div(hundred)).Div(price)
}

func (s *TrailingStopLoss) OnMarketRefresh(ticker model.TickerData, balance *decimal.Decimal, position *model.Position) (*model.OrderSignal, error) {
	currentPrice := ticker.Buy

	if position == nil {
		s.highestPriceAfterTarget = decimal.Zero
		return &model.OrderSignal{Side: model.Buy}, nil
	}

	if currentPrice.GreaterThan(s.highestPriceAfterTarget) {
		s.highestPriceAfterTarget = currentPrice
	}

	dropPercent := s.highestPriceAfterTarget.Sub(currentPrice).Div(s.highestPriceAfterTarget).Mul(hundred)
	if dropPercent.GreaterThanOrEqual(s.StopLossPercent) {
		qty := position.EntryOrder.Quantity
		return &model.OrderSignal{Side: model.Sell, Quantity: &qty}, nil
	}
	return nil, nil
}
