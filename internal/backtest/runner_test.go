package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func candle(last string, at time.Time) model.TickerData {
	d := dec(last)
	return model.TickerData{Timestamp: at, Open: d, High: d, Low: d, Last: d, Buy: d, Sell: d, Vol: decimal.Zero}
}

// fakeStrategy buys once on the first tick, sells on the tick where
// sellAt matches the candle price, and otherwise does nothing.
type fakeStrategy struct {
	bought bool
	sellAt string
}

func (f *fakeStrategy) Setup(history []model.TickerData) {}

func (f *fakeStrategy) OnMarketRefresh(ticker model.TickerData, balance *decimal.Decimal, position *model.Position) (*model.OrderSignal, error) {
	if position == nil && !f.bought {
		f.bought = true
		return &model.OrderSignal{Side: model.Buy}, nil
	}
	if position != nil && ticker.Last.String() == f.sellAt {
		return &model.OrderSignal{Side: model.Sell}, nil
	}
	return nil, nil
}

func (f *fakeStrategy) CalculateQuantity(balance, price decimal.Decimal) decimal.Decimal {
	return dec("1")
}

func TestRunnerCompletesABuyThenSellRoundTrip(t *testing.T) {
	candles := []model.TickerData{
		candle("10", time.Unix(0, 0)),
		candle("10", time.Unix(60, 0)),
		candle("12", time.Unix(120, 0)),
		candle("15", time.Unix(180, 0)),
	}

	strat := &fakeStrategy{sellAt: "15"}
	acc := NewSimAccount("USDC", "TOKEN", dec("1000"))
	runner := NewRunner(Config{InputMint: "USDC", OutputMint: "TOKEN", WarmupCount: 1, StartingInputBalance: dec("1000")}, strat, acc)

	result, err := runner.Run(context.Background(), candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalTrades != 2 {
		t.Fatalf("expected 2 trades (1 buy, 1 sell), got %d", result.TotalTrades)
	}
	if result.WinningTrades != 1 {
		t.Fatalf("expected 1 winning trade, got %d", result.WinningTrades)
	}
	if !result.RealizedPnL.Equal(dec("5")) {
		t.Fatalf("expected realized PnL of 5 (buy@10, sell@15, qty 1), got %s", result.RealizedPnL)
	}
	if !result.FirstEntryPrice.Equal(dec("10")) {
		t.Fatalf("expected first entry price 10, got %s", result.FirstEntryPrice)
	}
	if !result.HoldPnL().Equal(dec("5")) {
		t.Fatalf("expected hold PnL of 5 (10 -> 15 final price), got %s", result.HoldPnL())
	}
}

func TestRunnerLeavesUnrealizedPnLOnStillOpenPosition(t *testing.T) {
	candles := []model.TickerData{
		candle("10", time.Unix(0, 0)),
		candle("10", time.Unix(60, 0)),
		candle("20", time.Unix(120, 0)),
	}

	strat := &fakeStrategy{sellAt: "never"}
	acc := NewSimAccount("USDC", "TOKEN", dec("1000"))
	runner := NewRunner(Config{InputMint: "USDC", OutputMint: "TOKEN", WarmupCount: 1, StartingInputBalance: dec("1000")}, strat, acc)

	result, err := runner.Run(context.Background(), candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RealizedPnL.Sign() != 0 {
		t.Fatalf("expected zero realized PnL (position never closed), got %s", result.RealizedPnL)
	}
	if !result.UnrealizedPnL.Equal(dec("10")) {
		t.Fatalf("expected unrealized PnL of 10 (buy@10, mark@20, qty 1), got %s", result.UnrealizedPnL)
	}
}

func TestRunnerRejectsTooFewCandles(t *testing.T) {
	strat := &fakeStrategy{}
	acc := NewSimAccount("USDC", "TOKEN", dec("1000"))
	runner := NewRunner(Config{InputMint: "USDC", OutputMint: "TOKEN", WarmupCount: 5}, strat, acc)

	_, err := runner.Run(context.Background(), []model.TickerData{candle("1", time.Unix(0, 0))})
	if err == nil {
		t.Fatal("expected an error when fewer candles than WarmupCount are supplied")
	}
}

func TestRunnerStopsOnContextCancellation(t *testing.T) {
	candles := make([]model.TickerData, 10)
	for i := range candles {
		candles[i] = candle("10", time.Unix(int64(i*60), 0))
	}

	strat := &fakeStrategy{sellAt: "never"}
	acc := NewSimAccount("USDC", "TOKEN", dec("1000"))
	runner := NewRunner(Config{InputMint: "USDC", OutputMint: "TOKEN", WarmupCount: 1}, strat, acc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, candles)
	if err == nil {
		t.Fatal("expected context.Canceled to propagate")
	}
}
