// Package engine implements the cooperative single-goroutine trading loop
// described in spec.md §4.6: fetch price, ask the strategy, optionally
// place an order, settle, log. The loop itself has no teacher equivalent
// (the teacher trades off inbound Telegram signals rather than polling a
// price source against a strategy), so its control flow is grounded
// directly on spec.md §4.6's pseudocode and on
// original_source/trader/async_trading_engine.py's run loop, while its
// logging/shutdown idiom follows the teacher's cmd/bot/main.go (zerolog,
// signal.Notify-driven shutdown) and internal/trading/executor.go
// (per-step log lines).
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"solswap-engine/internal/market"
	"solswap-engine/internal/model"
	"solswap-engine/internal/strategy"
)

// postOrderSettle is the fixed wait after a successful order, per spec.md
// §4.6: "let wallet settle before the next balance read." The balance
// cache TTL alone does not protect against this, since a post-trade query
// may still hit a not-yet-updated RPC view.
const postOrderSettle = 2 * time.Second

// Notifier is the ambient notification sink the loop reports through.
// Not core-critical: a failed Notify never aborts the loop. Implemented by
// internal/notifier.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// AccountGateway is the subset of internal/account.Account the loop
// drives. Declared narrowly so the loop can be tested against a fake
// account with no swap pipeline or RPC behind it.
type AccountGateway interface {
	GetBalance(ctx context.Context, mintAddress string) (decimal.Decimal, error)
	Position() *model.Position
	PlaceOrder(ctx context.Context, side model.OrderSide, price, quantity decimal.Decimal) (*model.Order, error)
}

// Config parameterizes one Engine run. Built by cmd/engine from
// internal/config; the engine package itself never imports config, to
// keep the dependency direction pointing from ambient wiring down into
// the core.
type Config struct {
	InputMint  string
	OutputMint string

	CandleInterval market.Interval
	CandleCount    int

	// StopOnError, when true, aborts the loop on the first tick error
	// instead of logging and continuing. spec.md §7 defaults this off:
	// "any exception is caught, logged, and the loop continues."
	StopOnError bool

	EventBufferSize int
}

// Engine drives one trading pair's strategy against its account and
// market source. One Engine per pair per spec.md §4.5/§5; never shared
// across goroutines beyond the single Run loop.
type Engine struct {
	cfg Config

	source   market.Source
	account  AccountGateway
	strategy strategy.Strategy
	notifier Notifier

	events *eventBus
}

// New constructs an Engine. notifier may be nil, in which case
// notifications are silently dropped (equivalent to internal/notifier's
// null sink, but avoids forcing every caller to wire one).
func New(cfg Config, source market.Source, account AccountGateway, strat strategy.Strategy, notifier Notifier) *Engine {
	return &Engine{
		cfg:      cfg,
		source:   source,
		account:  account,
		strategy: strat,
		notifier: notifier,
		events:   newEventBus(cfg.EventBufferSize),
	}
}

// Run executes the loop until ctx is cancelled. It returns nil on a clean
// interrupt (ctx.Done) and a non-nil error for failures that occur
// before the loop can start (warm-up candle fetch), matching spec.md §6's
// "non-zero on unrecoverable configuration error before the loop starts."
// Once inside the loop, every error is caught, logged, optionally
// notified, and the loop continues, per spec.md §7 — unless
// Config.StopOnError is set, in which case Run returns the first tick error.
func (e *Engine) Run(ctx context.Context) error {
	history, err := e.source.GetCandles(ctx, e.cfg.OutputMint, e.cfg.CandleInterval, e.cfg.CandleCount)
	if err != nil {
		return fmt.Errorf("engine: warm-up candle fetch: %w", err)
	}
	e.strategy.Setup(history)

	log.Info().Str("input", e.cfg.InputMint).Str("output", e.cfg.OutputMint).Msg("engine: trading loop starting")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("engine: interrupt received, stopping")
			return nil
		default:
		}

		if err := e.tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info().Msg("engine: interrupt received mid-tick, stopping")
				return nil
			}
			e.publishError(err)
			log.Error().Err(err).Msg("engine: tick failed")
			if e.notifier != nil {
				_ = e.notifier.Notify(ctx, fmt.Sprintf("engine error: %v", err))
			}
			if e.cfg.StopOnError {
				return err
			}
		}
	}
}

// tick runs exactly one loop iteration: price fetch -> strategy call ->
// optional order placement -> settle -> observation, in the strict order
// spec.md §4.6/§5 requires.
func (e *Engine) tick(ctx context.Context) error {
	price, err := e.source.GetPrice(ctx, e.cfg.OutputMint)
	if err != nil {
		return fmt.Errorf("engine: get price: %w", err)
	}
	ticker := model.FromPrice(e.cfg.OutputMint, price, time.Now())
	e.publish(Event{Kind: EventTick, Tick: &ticker})

	balance, err := e.account.GetBalance(ctx, e.cfg.InputMint)
	if err != nil {
		return fmt.Errorf("engine: get balance: %w", err)
	}
	e.publish(Event{Kind: EventBalance, Balance: &balance})
	position := e.account.Position()

	signal, err := e.strategy.OnMarketRefresh(ticker, &balance, position)
	if err != nil {
		return fmt.Errorf("engine: strategy: %w", err)
	}

	log.Debug().Str("price", price.String()).Bool("signal", signal != nil).Msg("engine: tick")

	if signal == nil {
		return nil
	}

	quantity := e.quantityFor(signal, balance, price)

	order, err := e.account.PlaceOrder(ctx, signal.Side, price, quantity)
	if err != nil {
		// A gate rejection (PositionStateError) is not a pipeline
		// failure: log and continue without the 2s settle, matching
		// spec.md §7's "rejected, logged, loop continues."
		return fmt.Errorf("engine: place order: %w", err)
	}

	log.Info().Str("side", signal.Side.String()).Str("quantity", quantity.String()).
		Str("price", price.String()).Str("order_id", order.OrderID).Msg("engine: order placed")
	e.publish(Event{Kind: EventOrder, Order: order})
	if pos := e.account.Position(); pos != nil {
		e.publish(Event{Kind: EventPosition, Position: pos})
	}

	select {
	case <-time.After(postOrderSettle):
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (e *Engine) quantityFor(signal *model.OrderSignal, balance, price decimal.Decimal) decimal.Decimal {
	if signal.Quantity != nil {
		return *signal.Quantity
	}
	return e.strategy.CalculateQuantity(balance, price)
}

func (e *Engine) publish(ev Event) {
	ev.At = time.Now()
	e.events.publish(ev)
}

func (e *Engine) publishError(err error) {
	e.publish(Event{Kind: EventError, Err: err})
}
