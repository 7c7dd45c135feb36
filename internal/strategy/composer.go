package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
)

// SignalMode selects how a Composer aggregates its member strategies'
// signals: All requires every member to agree, Any requires at least one.
type SignalMode string

const (
	All SignalMode = "all"
	Any SignalMode = "any"
)

// Composer runs a fixed list of buy-side strategies while flat and a fixed
// list of sell-side strategies while a position is open, emitting a signal
// only when BuyMode/SellMode's aggregation rule is satisfied across all
// members consulted that tick. Grounded on StrategyComposer, including its
// hardcoded default member lists (three WeightedMovingAverage variants for
// buying, TrailingStopLoss + TargetPercent for selling) when constructed
// via NewDefaultComposer.
type Composer struct {
	BuyMode  SignalMode
	SellMode SignalMode

	BuyStrategies  []Strategy
	SellStrategies []Strategy
}

// NewComposer builds a Composer from explicit member lists.
func NewComposer(buyMode, sellMode SignalMode, buyStrategies, sellStrategies []Strategy) *Composer {
	return &Composer{BuyMode: buyMode, SellMode: sellMode, BuyStrategies: buyStrategies, SellStrategies: sellStrategies}
}

// NewDefaultComposer reproduces the original's hardcoded member lists: three
// WeightedMovingAverage variants on the buy side, TrailingStopLoss (0.2%)
// and TargetPercent (0.5%) on the sell side.
func NewDefaultComposer(buyMode, sellMode SignalMode) *Composer {
	buyStrategies := []Strategy{
		NewWeightedMovingAverage(25, 100, true, 15, 0),
		NewWeightedMovingAverage(6, 12, true, 15, 10),
		NewWeightedMovingAverage(6, 12, false, 15, 0),
	}
	sellStrategies := []Strategy{
		NewTrailingStopLoss(decimal.NewFromFloat(0.2), decimal.Zero),
		NewTargetPercent(decimal.NewFromFloat(0.5), decimal.Zero),
	}
	return NewComposer(buyMode, sellMode, buyStrategies, sellStrategies)
}

func (c *Composer) Setup(history []model.TickerData) {
	for _, s := range c.BuyStrategies {
		s.Setup(history)
	}
	for _, s := range c.SellStrategies {
		s.Setup(history)
	}
}

// CalculateQuantity defers to the first buy strategy, matching the
// original's "use the primary (first) strategy" rule.
func (c *Composer) CalculateQuantity(balance, price decimal.Decimal) decimal.Decimal {
	return c.BuyStrategies[0].CalculateQuantity(balance, price)
}

func checkSignals(signals []*model.OrderSignal, mode SignalMode, side model.OrderSide) bool {
	switch mode {
	case All:
		for _, s := range signals {
			if s == nil || s.Side != side {
				return false
			}
		}
		return true
	case Any:
		for _, s := range signals {
			if s != nil && s.Side == side {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (c *Composer) OnMarketRefresh(ticker model.TickerData, balance *decimal.Decimal, position *model.Position) (*model.OrderSignal, error) {
	if position != nil {
		signals := make([]*model.OrderSignal, 0, len(c.SellStrategies))
		for _, s := range c.SellStrategies {
			sig, err := s.OnMarketRefresh(ticker, balance, position)
			if err != nil {
				return nil, fmt.Errorf("strategy: composer sell member: %w", err)
			}
			signals = append(signals, sig)
		}
		if checkSignals(signals, c.SellMode, model.Sell) {
			qty := position.EntryOrder.Quantity
			return &model.OrderSignal{Side: model.Sell, Quantity: &qty}, nil
		}
		return nil, nil
	}

	signals := make([]*model.OrderSignal, 0, len(c.BuyStrategies))
	for _, s := range c.BuyStrategies {
		sig, err := s.OnMarketRefresh(ticker, balance, position)
		if err != nil {
			return nil, fmt.Errorf("strategy: composer buy member: %w", err)
		}
		signals = append(signals, sig)
	}
	if checkSignals(signals, c.BuyMode, model.Buy) {
		return &model.OrderSignal{Side: model.Buy}, nil
	}
	return nil, nil
}
