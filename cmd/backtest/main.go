// Command backtest drives a configured strategy against cached historical
// candles and reports the hold-versus-trading comparison, per
// SPEC_FULL.md's backtest mode (spec.md §6 input (5) run_mode=backtest).
// Grounded on the teacher's cmd/bot/main.go wiring shape and on
// original_source/trader/backtesting_bot.py's command-line report, with
// the network/signing half of cmd/engine's wiring dropped entirely: a
// backtest never touches a wallet or the RPC.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"solswap-engine/internal/backtest"
	"solswap-engine/internal/config"
	"solswap-engine/internal/jupiter"
	"solswap-engine/internal/market"
	"solswap-engine/internal/strategy"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

	configPath := os.Getenv("ENGINE_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	if err := run(configPath); err != nil {
		color.Red("backtest failed: %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfgMgr, err := config.NewManager(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	trading := cfgMgr.GetTrading()
	cfg := cfgMgr.Get()

	jupCfg := cfg.Jupiter
	jupClient := jupiter.NewClient(jupCfg.QuoteAPIURL, time.Duration(jupCfg.TimeoutSeconds)*time.Second)

	store, err := backtest.NewCandleStore(cfg.Backtest.SQLitePath)
	if err != nil {
		return fmt.Errorf("open candle store: %w", err)
	}
	defer store.Close()

	cached := backtest.NewCachedSource(jupClient, store)

	ctx := context.Background()
	interval := market.Interval(trading.CandleInterval)
	candles, err := cached.GetCandles(ctx, trading.OutputMint, interval, trading.CandleCount)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candles available for %s", trading.OutputMint)
	}

	strat, err := strategy.New(trading.Strategy, trading.StrategyParams)
	if err != nil {
		return fmt.Errorf("build strategy: %w", err)
	}

	startingInput := decimalDefault(trading.StrategyParams, "starting_balance", "1000")
	account := backtest.NewSimAccount(trading.InputMint, trading.OutputMint, startingInput)

	warmup := trading.CandleCount / 4
	if warmup < 1 {
		warmup = 1
	}
	runnerCfg := backtest.Config{
		InputMint:            trading.InputMint,
		OutputMint:           trading.OutputMint,
		WarmupCount:          warmup,
		StartingInputBalance: startingInput,
	}
	runner := backtest.NewRunner(runnerCfg, strat, account)

	result, err := runner.Run(ctx, candles)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	printReport(trading.Strategy, result)
	return nil
}

func printReport(strategyName string, r backtest.Result) {
	fmt.Println("----------------------------------------")
	color.Cyan("BACKTEST REPORT — %s", strategyName)
	fmt.Println("----------------------------------------")
	fmt.Printf("Candles processed : %d\n", r.CandlesProcessed)
	fmt.Printf("Total trades      : %d\n", r.TotalTrades)
	fmt.Printf("Winning trades     : %d\n", r.WinningTrades)
	fmt.Printf("Realized PnL       : %s\n", r.RealizedPnL.String())
	fmt.Printf("Unrealized PnL     : %s\n", r.UnrealizedPnL.String())

	trading := r.TradingPnL()
	hold := r.HoldPnL()
	if trading.GreaterThanOrEqual(hold) {
		color.Green("Trading PnL %s beat hold PnL %s", trading.String(), hold.String())
	} else {
		color.Yellow("Trading PnL %s underperformed hold PnL %s", trading.String(), hold.String())
	}
}

func decimalDefault(params map[string]string, key, def string) decimal.Decimal {
	v := def
	if params != nil {
		if p, ok := params[key]; ok {
			v = p
		}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}
