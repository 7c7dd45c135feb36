package strategy

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
)

var five = decimal.NewFromInt(5)

// TargetValue buys once the price reaches or drops below a target, then
// tracks a trailing stop loss once a configured profit percentage is
// reached. Grounded on TargetValueStrategy.
type TargetValue struct {
	TargetBuyPrice      decimal.Decimal
	TargetProfitPercent decimal.Decimal
	StopLossPercent     decimal.Decimal
	BalancePercent      decimal.Decimal
	MaxSpread           decimal.Decimal

	targetProfitReached     bool
	highestPriceAfterTarget decimal.Decimal
	lastPrice               *decimal.Decimal
}

// NewTargetValue constructs a TargetValue strategy. stopLossPercent,
// balancePercent and maxSpread take the original's defaults (1, 80, 1.5)
// when passed as zero — callers that need an explicit zero should not use
// this constructor.
func NewTargetValue(targetBuyPrice, targetProfitPercent, stopLossPercent, balancePercent, maxSpread decimal.Decimal) *TargetValue {
	if stopLossPercent.IsZero() {
		stopLossPercent = decimal.NewFromInt(1)
	}
	if balancePercent.IsZero() {
		balancePercent = decimal.NewFromInt(80)
	}
	if maxSpread.IsZero() {
		maxSpread = decimal.NewFromFloat(1.5)
	}
	return &TargetValue{
		TargetBuyPrice:          targetBuyPrice,
		TargetProfitPercent:     targetProfitPercent,
		StopLossPercent:         stopLossPercent,
		BalancePercent:          balancePercent,
		MaxSpread:               maxSpread,
		highestPriceAfterTarget: decimal.Zero,
	}
}

func (s *TargetValue) Setup(history []model.TickerData) {}

func (s *TargetValue) CalculateQuantity(balance, price decimal.Decimal) decimal.Decimal {
	if balance.GreaterThanOrEqual(five) {
		return five.Div(price)
	}
	return balance.Mul(s.BalancePercent.Div(hundred)).Div(price)
}

func (s *TargetValue) OnMarketRefresh(ticker model.TickerData, balance *decimal.Decimal, position *model.Position) (*model.OrderSignal, error) {
	currentPrice := ticker.Buy

	if position == nil {
		s.targetProfitReached = false
		s.highestPriceAfterTarget = decimal.Zero

		if currentPrice.LessThanOrEqual(s.TargetBuyPrice) {
			if ticker.Spread != nil && ticker.Spread.GreaterThan(s.MaxSpread) {
				log.Debug().Str("spread", ticker.Spread.String()).Msg("target_value: skip buy, spread too high")
				return nil, nil
			}
			if s.lastPrice == nil || currentPrice.LessThan(*s.lastPrice) {
				log.Debug().Msg("target_value: skip buy, waiting for price to stop dropping")
				s.lastPrice = &currentPrice
				return nil, nil
			}
			return &model.OrderSignal{Side: model.Buy}, nil
		}
	} else {
		entryPrice := position.EntryOrder.Price
		profitPercent := percentChange(entryPrice, currentPrice)

		reachedNow := profitPercent.GreaterThanOrEqual(s.TargetProfitPercent)
		stillAboveRelaxedTarget := s.targetProfitReached && profitPercent.GreaterThanOrEqual(s.TargetProfitPercent.Sub(decimal.NewFromFloat(1.1)))

		if reachedNow || stillAboveRelaxedTarget {
			if !s.targetProfitReached {
				s.targetProfitReached = true
				s.highestPriceAfterTarget = currentPrice
			}
			if currentPrice.GreaterThan(s.highestPriceAfterTarget) {
				s.highestPriceAfterTarget = currentPrice
			}

			dropPercent := s.highestPriceAfterTarget.Sub(currentPrice).Div(s.highestPriceAfterTarget).Mul(hundred)
			if dropPercent.GreaterThanOrEqual(s.StopLossPercent) {
				qty := position.EntryOrder.Quantity
				return &model.OrderSignal{Side: model.Sell, Quantity: &qty}, nil
			}
		}
	}

	s.lastPrice = &currentPrice
	return nil, nil
}
