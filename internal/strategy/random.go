package strategy

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
)

// half is the fixed 50% balance fraction RandomStrategy's default sizing
// spends per buy, matching the original's `balance * 0.5 / price`.
var half = decimal.NewFromFloat(0.5)

// Random emits a Buy with probability buyChance/100 when flat, and a Sell
// of the whole entry quantity with probability sellChance/100 when a
// position is open. Grounded on RandomStrategy.
type Random struct {
	BuyChance  int
	SellChance int
}

// NewRandom constructs a Random strategy with the given percentage chances
// (each in [0, 100]).
func NewRandom(buyChance, sellChance int) *Random {
	return &Random{BuyChance: buyChance, SellChance: sellChance}
}

func (r *Random) Setup(history []model.TickerData) {}

func (r *Random) CalculateQuantity(balance, price decimal.Decimal) decimal.Decimal {
	return balance.Mul(half).Div(price)
}

func (r *Random) OnMarketRefresh(ticker model.TickerData, balance *decimal.Decimal, position *model.Position) (*model.OrderSignal, error) {
	roll := rand.IntN(100) + 1 // 1..100, matching random.randint(1, 100)

	if position == nil {
		if roll <= r.BuyChance {
			return &model.OrderSignal{Side: model.Buy}, nil
		}
		return nil, nil
	}

	if roll <= r.SellChance {
		qty := position.EntryOrder.Quantity
		return &model.OrderSignal{Side: model.Sell, Quantity: &qty}, nil
	}
	return nil, nil
}
