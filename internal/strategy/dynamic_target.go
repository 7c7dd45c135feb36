package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
)

var two = decimal.NewFromInt(2)

// DynamicTarget computes buy/sell/stop-loss targets from an EMA and ATR
// recomputed every tick: target_buy = EMA - ATR*buyFactor, target_sell =
// EMA + ATR*sellFactor, stop_loss = EMA - ATR*stopLossATRFactor. Grounded
// on DynamicTargetStrategy.
type DynamicTarget struct {
	EMAPeriod         int
	ATRPeriod         int
	BuyFactor         decimal.Decimal
	SellFactor        decimal.Decimal
	BalancePercent    decimal.Decimal
	StopLossATRFactor decimal.Decimal

	history    []model.TickerData
	currentEMA *decimal.Decimal
}

// NewDynamicTarget constructs a DynamicTarget strategy. emaPeriod/atrPeriod
// default to 20/14, buyFactor/sellFactor to 1.5, balancePercent to 80,
// stopLossATRFactor to 3.0, matching the original's defaults, when passed
// as zero.
func NewDynamicTarget(emaPeriod, atrPeriod int, buyFactor, sellFactor, balancePercent, stopLossATRFactor decimal.Decimal) *DynamicTarget {
	if emaPeriod == 0 {
		emaPeriod = 20
	}
	if atrPeriod == 0 {
		atrPeriod = 14
	}
	if buyFactor.IsZero() {
		buyFactor = decimal.NewFromFloat(1.5)
	}
	if sellFactor.IsZero() {
		sellFactor = decimal.NewFromFloat(1.5)
	}
	if balancePercent.IsZero() {
		balancePercent = decimal.NewFromInt(80)
	}
	if stopLossATRFactor.IsZero() {
		stopLossATRFactor = decimal.NewFromFloat(3.0)
	}
	return &DynamicTarget{
		EMAPeriod:         emaPeriod,
		ATRPeriod:         atrPeriod,
		BuyFactor:         buyFactor,
		SellFactor:        sellFactor,
		BalancePercent:    balancePercent,
		StopLossATRFactor: stopLossATRFactor,
	}
}

func (s *DynamicTarget) Setup(history []model.TickerData) {}

func (s *DynamicTarget) CalculateQuantity(balance, price decimal.Decimal) decimal.Decimal {
	return balance.Mul(s.BalancePercent.Div(hundred)).Div(price)
}

// calculateEMA mirrors calculate_ema's incremental-seed behavior: the first
// call with enough history seeds from an SMA of the first `period` prices,
// every call after that advances the cached EMA by one step using only the
// latest price.
func (s *DynamicTarget) calculateEMA(prices []decimal.Decimal, period int) decimal.Decimal {
	if len(prices) < period {
		return mean(prices)
	}

	alpha := two.Div(decimal.NewFromInt(int64(period + 1)))

	if s.currentEMA != nil {
		next := s.currentEMA.Add(alpha.Mul(prices[len(prices)-1].Sub(*s.currentEMA)))
		s.currentEMA = &next
		return next
	}

	ema := mean(prices[:period])
	for _, p := range prices[period:] {
		ema = ema.Add(alpha.Mul(p.Sub(ema)))
	}
	s.currentEMA = &ema
	return ema
}

func trueRange(current, previous model.TickerData) decimal.Decimal {
	highLow := current.High.Sub(current.Low)
	highClose := current.High.Sub(previous.Last).Abs()
	lowClose := current.Low.Sub(previous.Last).Abs()
	return decimalMax(highLow, highClose, lowClose)
}

func calculateATR(tickers []model.TickerData, period int) decimal.Decimal {
	if len(tickers) < 2 {
		last := tickers[len(tickers)-1]
		return last.High.Sub(last.Low)
	}

	trueRanges := make([]decimal.Decimal, 0, len(tickers)-1)
	for i := 1; i < len(tickers); i++ {
		trueRanges = append(trueRanges, trueRange(tickers[i], tickers[i-1]))
	}

	if len(trueRanges) < period {
		return mean(trueRanges)
	}
	return mean(trueRanges[len(trueRanges)-period:])
}

func (s *DynamicTarget) OnMarketRefresh(ticker model.TickerData, balance *decimal.Decimal, position *model.Position) (*model.OrderSignal, error) {
	s.history = append(s.history, ticker)

	minRequired := s.EMAPeriod
	if s.ATRPeriod > minRequired {
		minRequired = s.ATRPeriod
	}
	if len(s.history) < minRequired {
		return nil, nil
	}

	currentPrice := ticker.Last

	prices := make([]decimal.Decimal, len(s.history))
	for i, t := range s.history {
		prices[i] = t.Last
	}
	ema := s.calculateEMA(prices, s.EMAPeriod)
	atr := calculateATR(s.history, s.ATRPeriod)

	targetBuy := ema.Sub(atr.Mul(s.BuyFactor))
	targetSell := ema.Add(atr.Mul(s.SellFactor))
	stopLoss := ema.Sub(atr.Mul(s.StopLossATRFactor))

	if position == nil {
		if currentPrice.LessThanOrEqual(targetBuy) {
			if balance == nil {
				return nil, fmt.Errorf("strategy: dynamic target buy signal requires a known balance")
			}
			qty := s.CalculateQuantity(*balance, currentPrice)
			return &model.OrderSignal{Side: model.Buy, Quantity: &qty}, nil
		}
		return nil, nil
	}

	if currentPrice.GreaterThanOrEqual(targetSell) || currentPrice.LessThanOrEqual(stopLoss) {
		qty := position.EntryOrder.Quantity
		return &model.OrderSignal{Side: model.Sell, Quantity: &qty}, nil
	}
	return nil, nil
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

func decimalMax(values ...decimal.Decimal) decimal.Decimal {
	max := values[0]
	for _, v := range values[1:] {
		if v.GreaterThan(max) {
			max = v
		}
	}
	return max
}
