package backtest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
	"solswap-engine/internal/strategy"
)

// Config parameterizes one backtest run.
type Config struct {
	InputMint  string
	OutputMint string

	// WarmupCount is how many leading candles are handed to
	// strategy.Setup before the simulated tick loop starts, mirroring
	// internal/engine.Engine's warm-up fetch.
	WarmupCount int

	// StartingInputBalance seeds the simulated account, in UI units of
	// InputMint.
	StartingInputBalance decimal.Decimal
}

// Result summarizes one backtest run, grounded on
// backtesting_bot.py's show_execution_report and
// _show_hold_strategy_analysis.
type Result struct {
	CandlesProcessed int
	TotalTrades      int
	WinningTrades    int
	RealizedPnL      decimal.Decimal
	UnrealizedPnL    decimal.Decimal

	// FirstEntryPrice/FirstEntryQuantity/FinalPrice feed the hold-strategy
	// comparison: what the account would have made by buying once at the
	// first entry and holding to the final candle, instead of trading.
	FirstEntryPrice    decimal.Decimal
	FirstEntryQuantity decimal.Decimal
	FinalPrice         decimal.Decimal
}

// HoldPnL returns the PnL of buying FirstEntryQuantity at FirstEntryPrice
// and holding to FinalPrice, for comparison against RealizedPnL+UnrealizedPnL.
func (r Result) HoldPnL() decimal.Decimal {
	if r.FirstEntryQuantity.IsZero() {
		return decimal.Zero
	}
	return r.FinalPrice.Sub(r.FirstEntryPrice).Mul(r.FirstEntryQuantity)
}

// TradingPnL is the bot's actual total PnL (realized plus whatever is
// still open at the final candle).
func (r Result) TradingPnL() decimal.Decimal {
	return r.RealizedPnL.Add(r.UnrealizedPnL)
}

// Runner drives a strategy against a fixed slice of historical candles,
// one simulated tick per candle, using a SimAccount for instant fills.
// Grounded on original_source/trader/backtesting_bot.py's BacktestingBot.run:
// same per-candle order (update position mark, ask strategy, optionally
// fill, accumulate PnL), generalized from a single fixed symbol/account to
// this engine's Strategy/AccountGateway-shaped contracts.
type Runner struct {
	cfg      Config
	strategy strategy.Strategy
	account  *SimAccount
}

// NewRunner creates a backtest runner. account is typically a fresh
// NewSimAccount(cfg.InputMint, cfg.OutputMint, cfg.StartingInputBalance).
func NewRunner(cfg Config, strat strategy.Strategy, account *SimAccount) *Runner {
	return &Runner{cfg: cfg, strategy: strat, account: account}
}

// Run simulates the strategy over candles, oldest first. The leading
// cfg.WarmupCount candles seed strategy.Setup and are not traded on;
// remaining candles each drive one simulated tick.
func (r *Runner) Run(ctx context.Context, candles []model.TickerData) (Result, error) {
	if len(candles) <= r.cfg.WarmupCount {
		return Result{}, fmt.Errorf("backtest: need more than %d candles, got %d", r.cfg.WarmupCount, len(candles))
	}

	warmup := candles[:r.cfg.WarmupCount]
	r.strategy.Setup(warmup)

	var result Result
	for _, candle := range candles[r.cfg.WarmupCount:] {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := r.tick(ctx, candle, &result); err != nil {
			return result, fmt.Errorf("backtest: tick at %s: %w", candle.Timestamp, err)
		}
		result.CandlesProcessed++
		result.FinalPrice = candle.Last
	}

	if pos := r.account.Position(); pos != nil {
		result.UnrealizedPnL = pos.UnrealizedPnL(result.FinalPrice)
	}
	result.RealizedPnL = r.account.RealizedPnL()

	log.Info().Int("candles", result.CandlesProcessed).Int("trades", result.TotalTrades).
		Str("realized_pnl", result.RealizedPnL.String()).Msg("backtest: run complete")
	return result, nil
}

func (r *Runner) tick(ctx context.Context, candle model.TickerData, result *Result) error {
	balance, err := r.account.GetBalance(ctx, r.cfg.InputMint)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	position := r.account.Position()

	signal, err := r.strategy.OnMarketRefresh(candle, &balance, position)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if signal == nil {
		return nil
	}

	quantity := signal.Quantity
	qty := decimal.Zero
	if quantity != nil {
		qty = *quantity
	} else {
		qty = r.strategy.CalculateQuantity(balance, candle.Last)
	}

	order, err := r.account.PlaceOrder(ctx, signal.Side, candle.Last, qty)
	if err != nil {
		// A gate rejection, not a hard failure: matches the live engine's
		// "rejected, logged, loop continues" handling.
		log.Debug().Err(err).Str("side", signal.Side.String()).Msg("backtest: order rejected")
		return nil
	}

	result.TotalTrades++
	if order.Side == model.Sell {
		closed := r.account.ClosedPositions()
		if len(closed) > 0 && closed[len(closed)-1].RealizedPnL().IsPositive() {
			result.WinningTrades++
		}
	}
	if result.FirstEntryQuantity.IsZero() && order.Side == model.Buy {
		result.FirstEntryPrice = order.Price
		result.FirstEntryQuantity = order.Quantity
	}
	return nil
}
