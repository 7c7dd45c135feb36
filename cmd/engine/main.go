// Command engine runs one (input_mint, output_mint) trading pair's
// strategy loop per spec.md §4.6, either headless (logs to stderr) or
// with the operator dashboard attached. Grounded on the teacher's
// cmd/bot/main.go: the HEADLESS env toggle, setupLogger's zerolog
// ConsoleWriter, the component-wiring function, the signal.Notify
// graceful shutdown, and the low-balance ANSI banner, all generalized
// from a Telegram-signal executor to the config-driven engine described
// in SPEC_FULL.md.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"solswap-engine/internal/account"
	"solswap-engine/internal/blockchain"
	"solswap-engine/internal/config"
	"solswap-engine/internal/engine"
	"solswap-engine/internal/health"
	"solswap-engine/internal/jupiter"
	"solswap-engine/internal/mint"
	"solswap-engine/internal/market"
	"solswap-engine/internal/notifier"
	"solswap-engine/internal/statusapi"
	"solswap-engine/internal/strategy"
	"solswap-engine/internal/swap"
	"solswap-engine/internal/tui"
)

func main() {
	configPath := os.Getenv("ENGINE_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	headless := os.Getenv("HEADLESS") == "1"
	if headless {
		setupLogger()
		runHeadless(configPath)
	} else {
		runWithTUI(configPath)
	}
}

func setupLogger() {
	log.Logger = zerolog.New(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"},
	).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// components holds everything wireComponents assembles. stats is shared
// with the statusapi server and updated from the event-consuming goroutine.
type components struct {
	cfgMgr         *config.Manager
	eng            *engine.Engine
	checker        *health.Checker
	status         *statusapi.Server
	blockhashCache *blockchain.BlockhashCache
	stats          *sharedStats
}

// sharedStats implements statusapi.StatsSource by recording the engine's
// own event stream, so the status server never calls back into the
// engine loop directly.
type sharedStats struct {
	startedAt time.Time
	lastTick  atomic.Int64 // unix nanos
	ticks     atomic.Uint64
}

func (s *sharedStats) Stats() statusapi.EngineStats {
	last := time.Time{}
	if ns := s.lastTick.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return statusapi.EngineStats{StartedAt: s.startedAt, LastTickAt: last, TicksServed: s.ticks.Load()}
}

func (s *sharedStats) observe(ev engine.Event) {
	if ev.Kind == engine.EventTick {
		s.lastTick.Store(ev.At.UnixNano())
		s.ticks.Add(1)
	}
}

func wireComponents(configPath string) (*components, error) {
	cfgMgr, err := config.NewManager(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	trading := cfgMgr.GetTrading()

	privateKey := cfgMgr.GetPrivateKey()
	if privateKey == "" {
		return nil, fmt.Errorf("wallet private key not set (check %s)", cfgMgr.Get().Wallet.PrivateKeyEnv)
	}
	wallet, err := blockchain.NewWallet(privateKey)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	rpc := blockchain.NewRPCClient(cfgMgr.GetPrimaryRPCURL(), cfgMgr.GetFallbackRPCURL(), "")

	balanceTracker := blockchain.NewBalanceTracker(wallet, rpc)
	if err := balanceTracker.Refresh(context.Background()); err != nil {
		log.Warn().Err(err).Msg("engine: initial balance refresh failed")
	}
	if balanceTracker.BalanceLamports() == 0 {
		printLowBalanceBanner(wallet.Address())
	}

	blockhashCache := blockchain.NewBlockhashCache(rpc, 5*time.Second, 30*time.Second)
	if err := blockhashCache.Start(); err != nil {
		return nil, fmt.Errorf("start blockhash cache: %w", err)
	}

	txBuilder := blockchain.NewTransactionBuilder(wallet, blockhashCache, 0)

	jupCfg := cfgMgr.Get().Jupiter
	jupClient := jupiter.NewClient(jupCfg.QuoteAPIURL, time.Duration(jupCfg.TimeoutSeconds)*time.Second)

	dryRun := trading.RunMode != config.RunModeReal
	pipeline := swap.New(jupClient, rpc, txBuilder, wallet.Address(), dryRun)

	balances := account.NewWalletBalanceSource(rpc, wallet.Address(), mint.Default, "So11111111111111111111111111111111111111112")
	acct := account.New(trading.InputMint, trading.OutputMint, pipeline, balances, mint.Default)

	strat, err := strategy.New(trading.Strategy, trading.StrategyParams)
	if err != nil {
		return nil, fmt.Errorf("build strategy: %w", err)
	}

	var notifySink notifier.Sink = notifier.Null{}
	var pinger health.NotifierPinger = notifier.Null{}
	if cfgMgr.Get().Notifier.Enabled {
		tg := notifier.NewTelegram(cfgMgr.GetNotifierBotToken(), cfgMgr.Get().Notifier.ChatID, "")
		notifySink = tg
		pinger = tg
	}

	engCfg := engine.Config{
		InputMint:      trading.InputMint,
		OutputMint:     trading.OutputMint,
		CandleInterval: market.Interval(trading.CandleInterval),
		CandleCount:    trading.CandleCount,
		StopOnError:    trading.StopOnError,
	}
	eng := engine.New(engCfg, jupClient, acct, strat, notifySink)

	checker := health.NewChecker(rpc, pinger)

	stats := &sharedStats{startedAt: time.Now()}
	statusCfg := cfgMgr.Get().Status
	status := statusapi.NewServer(statusCfg.ListenHost, statusCfg.ListenPort, checker, stats, rpc)

	return &components{
		cfgMgr:         cfgMgr,
		eng:            eng,
		checker:        checker,
		status:         status,
		blockhashCache: blockhashCache,
		stats:          stats,
	}, nil
}

func printLowBalanceBanner(address string) {
	fmt.Printf("\n\033[1;31m")
	fmt.Printf("╔══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║              WALLET HAS 0 SOL                             ║\n")
	fmt.Printf("║  Address: %-50s║\n", address)
	fmt.Printf("╚══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\033[0m\n")
}

func runHeadless(configPath string) {
	color.Cyan("solswap-engine starting (headless mode)...")

	comps, err := wireComponents(configPath)
	if err != nil {
		color.Red("startup failed: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps.checker.Start(ctx, 30*time.Second)

	go func() {
		for ev := range comps.eng.Events() {
			comps.stats.observe(ev)
		}
	}()

	go func() {
		if err := comps.status.Start(); err != nil {
			log.Error().Err(err).Msg("engine: status server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- comps.eng.Run(ctx) }()

	select {
	case <-quit:
		log.Info().Msg("engine: shutdown signal received")
	case err := <-runErrCh:
		if err != nil {
			log.Error().Err(err).Msg("engine: run failed")
		}
	}

	shutdown(comps, cancel)
}

func runWithTUI(configPath string) {
	logFile, err := os.OpenFile("data/engine.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		log.Logger = zerolog.Nop()
	} else {
		defer logFile.Close()
		log.Logger = zerolog.New(logFile).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	comps, err := wireComponents(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	comps.checker.Start(ctx, 30*time.Second)

	go func() {
		if err := comps.status.Start(); err != nil {
			log.Error().Err(err).Msg("engine: status server stopped")
		}
	}()

	pair := comps.cfgMgr.GetTrading().InputMint + "/" + comps.cfgMgr.GetTrading().OutputMint
	events := comps.eng.Events()

	bridged := make(chan engine.Event, 64)
	go func() {
		for ev := range events {
			comps.stats.observe(ev)
			select {
			case bridged <- ev:
			default:
			}
		}
		close(bridged)
	}()

	model := tui.NewModel(pair, bridged)
	program := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		if err := comps.eng.Run(ctx); err != nil {
			log.Error().Err(err).Msg("engine: run failed")
		}
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		log.Error().Err(err).Msg("engine: tui exited with error")
	}

	shutdown(comps, cancel)
}

func shutdown(comps *components, cancel context.CancelFunc) {
	cancel()
	if err := comps.status.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("engine: status server shutdown error")
	}
	comps.blockhashCache.Stop()
	log.Info().Msg("engine: shutdown complete")
}
