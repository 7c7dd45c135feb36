package strategy

import (
	"time"

	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
)

var eighty = decimal.NewFromFloat(0.8)

// WeightedMovingAverage buys when a short weighted moving average crosses
// a long one (direction configurable), and never sells on its own — sell
// decisions are left to whatever strategy it is composed with. Samples
// price history at most once per Period seconds, replacing the most recent
// sample in between so the average never goes stale while waiting for the
// next sample. Grounded on WeightedMovingAverageStrategy.
type WeightedMovingAverage struct {
	ShortWindow       int
	LongWindow        int
	BuyWhenShortBelow bool
	Period            int // seconds between samples
	ShiftPast         int

	priceHistory  []decimal.Decimal
	lastPriceTime time.Time
}

// NewWeightedMovingAverage constructs a WeightedMovingAverage strategy.
// shortWindow/longWindow/period default to 15/200/60 when passed as zero,
// matching the original's defaults.
func NewWeightedMovingAverage(shortWindow, longWindow int, buyWhenShortBelow bool, period, shiftPast int) *WeightedMovingAverage {
	if shortWindow == 0 {
		shortWindow = 15
	}
	if longWindow == 0 {
		longWindow = 200
	}
	if period == 0 {
		period = 60
	}
	return &WeightedMovingAverage{
		ShortWindow:       shortWindow,
		LongWindow:        longWindow,
		BuyWhenShortBelow: buyWhenShortBelow,
		Period:            period,
		ShiftPast:         shiftPast,
	}
}

func (s *WeightedMovingAverage) CalculateQuantity(balance, price decimal.Decimal) decimal.Decimal {
	return balance.Mul(eighty).Div(price)
}

func (s *WeightedMovingAverage) weightedMovingAverage(prices []decimal.Decimal, window int) decimal.Decimal {
	if s.ShiftPast > 0 && len(prices) > s.ShiftPast {
		prices = prices[:len(prices)-s.ShiftPast]
	}
	if len(prices) > window {
		prices = prices[len(prices)-window:]
	}

	sumWeighted := decimal.Zero
	sumWeights := 0
	for i, p := range prices {
		weight := i + 1
		sumWeighted = sumWeighted.Add(p.Mul(decimal.NewFromInt(int64(weight))))
		sumWeights += weight
	}
	if sumWeights == 0 {
		return decimal.Zero
	}
	return sumWeighted.Div(decimal.NewFromInt(int64(sumWeights)))
}

// setParameters samples price at most once per Period seconds; between
// samples it overwrites the most recent history entry instead of
// accumulating duplicates, so the average tracks the live price without
// needing a full new sample.
func (s *WeightedMovingAverage) setParameters(price decimal.Decimal, at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	historyLimit := s.LongWindow + s.ShiftPast
	period := time.Duration(s.Period) * time.Second

	if !s.lastPriceTime.Add(period).After(at) {
		s.priceHistory = append(s.priceHistory, price)
		s.lastPriceTime = at
		if len(s.priceHistory) > historyLimit {
			s.priceHistory = s.priceHistory[1:]
		}
	}

	if s.lastPriceTime.Add(period).After(at) && len(s.priceHistory) > 0 {
		s.priceHistory[len(s.priceHistory)-1] = price
	}
}

func (s *WeightedMovingAverage) Setup(history []model.TickerData) {
	for _, t := range history {
		s.setParameters(t.Last, t.Timestamp)
	}
}

func (s *WeightedMovingAverage) OnMarketRefresh(ticker model.TickerData, balance *decimal.Decimal, position *model.Position) (*model.OrderSignal, error) {
	s.setParameters(ticker.Last, time.Time{})

	if len(s.priceHistory) < s.LongWindow {
		return nil, nil
	}

	shortWMA := s.weightedMovingAverage(s.priceHistory, s.ShortWindow)
	longWMA := s.weightedMovingAverage(s.priceHistory, s.LongWindow)

	if position == nil {
		if s.BuyWhenShortBelow && shortWMA.LessThan(longWMA) {
			return &model.OrderSignal{Side: model.Buy}, nil
		}
		if !s.BuyWhenShortBelow && shortWMA.GreaterThan(longWMA) {
			return &model.OrderSignal{Side: model.Buy}, nil
		}
	}
	return nil, nil
}
