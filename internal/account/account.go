// Package account implements the account state machine described in
// spec.md §4.4: a balance cache with a fixed TTL plus position-change
// invalidation, can_buy/can_sell gates, and the None<->Some(Long) position
// transition, all serialized behind one mutex so a PlaceOrder call observes
// and mutates a consistent snapshot of the account's state. Grounded on the
// teacher's internal/trading/executor.go pre-trade checks (balance
// thresholds, logging shape) and, for the authoritative gate thresholds and
// state machine, on original_source/trader/async_account.py.
package account

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
	"solswap-engine/internal/swap"
)

// balanceCacheTTL is the fixed staleness window from spec.md §4.4: a cached
// snapshot older than this is refreshed on the next get_balance, regardless
// of whether the position state changed.
const balanceCacheTTL = 3 * time.Minute

// minInputUIToBuy and minOutputUIToSell are the authoritative gate
// thresholds from async_account.py's can_buy/can_sell.
var (
	minInputUIToBuy    = decimal.New(1, -2) // 0.01
	minOutputUIToSell  = decimal.New(1, -5) // 0.00001
)

// Pipeline is the subset of internal/swap.Pipeline's Execute the account
// needs.
type Pipeline interface {
	Execute(ctx context.Context, inputMint, outputMint string, amountInRaw uint64) (*swap.Result, error)
}

// Account holds one (input_mint, output_mint) trading pair's balance cache,
// swap execution, realized-PnL accumulator and current position. A single
// Account is shared by the engine's strategy loop; PlaceOrder is safe for
// concurrent callers, though spec.md's engine only ever calls it from one
// goroutine at a time.
type Account struct {
	inputMint  string
	outputMint string

	pipeline Pipeline
	balances BalanceSource
	convert  UnitConverter

	mu               sync.Mutex
	position         *model.Position
	realizedPnL      decimal.Decimal
	cache            map[string]decimal.Decimal
	cachedAt         time.Time
	positionChanged  bool
}

// UnitConverter converts between UI and raw units for a mint. Implemented
// by *mint.Registry; declared narrowly here so account doesn't need to
// import the mint package's Mint value type directly.
type UnitConverter interface {
	UIToRaw(mintAddress string, ui decimal.Decimal) (uint64, error)
	RawToUI(mintAddress string, raw uint64) (decimal.Decimal, error)
}

// New creates an Account for the given pair. The balance cache starts
// empty/expired, so the first GetBalance call always refreshes.
func New(inputMint, outputMint string, pipeline Pipeline, balances BalanceSource, convert UnitConverter) *Account {
	return &Account{
		inputMint:  inputMint,
		outputMint: outputMint,
		pipeline:   pipeline,
		balances:   balances,
		convert:    convert,
		cache:      make(map[string]decimal.Decimal),
	}
}

// Position returns a copy of the currently open position, or nil if none is
// open.
func (a *Account) Position() *model.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.position == nil {
		return nil
	}
	p := *a.position
	return &p
}

// RealizedPnL returns the cumulative realized PnL across every closed
// position this Account has produced.
func (a *Account) RealizedPnL() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}

// GetBalance returns the cached available balance for mintAddress,
// refreshing the whole snapshot first if the cache is older than
// balanceCacheTTL or the position state changed since the last read.
func (a *Account) GetBalance(ctx context.Context, mintAddress string) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getBalanceLocked(ctx, mintAddress)
}

func (a *Account) getBalanceLocked(ctx context.Context, mintAddress string) (decimal.Decimal, error) {
	if a.cacheStaleLocked() {
		if err := a.refreshLocked(ctx); err != nil {
			return decimal.Zero, err
		}
	}
	bal, ok := a.cache[mintAddress]
	if !ok {
		return decimal.Zero, nil
	}
	return bal, nil
}

func (a *Account) cacheStaleLocked() bool {
	if a.cachedAt.IsZero() {
		return true
	}
	if a.positionChanged {
		return true
	}
	return time.Since(a.cachedAt) > balanceCacheTTL
}

func (a *Account) refreshLocked(ctx context.Context) error {
	inputBal, err := a.balances.Balance(ctx, a.inputMint)
	if err != nil {
		return fmt.Errorf("account: refresh input balance: %w", err)
	}
	outputBal, err := a.balances.Balance(ctx, a.outputMint)
	if err != nil {
		return fmt.Errorf("account: refresh output balance: %w", err)
	}
	a.cache[a.inputMint] = inputBal
	a.cache[a.outputMint] = outputBal
	a.cachedAt = time.Now()
	a.positionChanged = false
	return nil
}

// canBuyLocked implements spec.md §4.4's can_buy gate.
func (a *Account) canBuyLocked(ctx context.Context) error {
	if a.position != nil {
		return ErrPositionAlreadyOpen
	}
	inputBal, err := a.getBalanceLocked(ctx, a.inputMint)
	if err != nil {
		return err
	}
	if inputBal.LessThan(minInputUIToBuy) {
		return ErrInsufficientInputBalance
	}
	return nil
}

// canSellLocked implements spec.md §4.4's can_sell gate.
func (a *Account) canSellLocked(ctx context.Context) error {
	if a.position == nil {
		return ErrNoPositionOpen
	}
	outputBal, err := a.getBalanceLocked(ctx, a.outputMint)
	if err != nil {
		return err
	}
	if outputBal.LessThan(minOutputUIToSell) {
		return ErrInsufficientOutputBalance
	}
	return nil
}

// CanBuy reports whether a Buy order may currently be placed, without
// placing one. Exposed so a strategy can check eligibility before emitting
// a signal, as well as internally by PlaceOrder.
func (a *Account) CanBuy(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.canBuyLocked(ctx)
}

// CanSell reports whether a Sell order may currently be placed.
func (a *Account) CanSell(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.canSellLocked(ctx)
}

// PlaceOrder executes a buy or sell at the given price and quantity
// (quantity is in output_mint units on both sides: a Buy spends
// quantity*price of input_mint, a Sell sells quantity of output_mint),
// gated atomically against the account's current state.
func (a *Account) PlaceOrder(ctx context.Context, side model.OrderSide, price, quantity decimal.Decimal) (*model.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch side {
	case model.Buy:
		return a.placeBuyLocked(ctx, price, quantity)
	case model.Sell:
		return a.placeSellLocked(ctx, price, quantity)
	default:
		return nil, fmt.Errorf("account: unknown order side %q", side)
	}
}

func (a *Account) placeBuyLocked(ctx context.Context, price, quantity decimal.Decimal) (*model.Order, error) {
	if err := a.canBuyLocked(ctx); err != nil {
		return nil, err
	}

	notional := quantity.Mul(price)
	amountRaw, err := a.convert.UIToRaw(a.inputMint, notional)
	if err != nil {
		return nil, fmt.Errorf("account: convert buy notional: %w", err)
	}

	log.Info().Str("input", a.inputMint).Str("output", a.outputMint).
		Str("quantity", quantity.String()).Str("price", price.String()).Msg("account: placing buy")

	result, err := a.pipeline.Execute(ctx, a.inputMint, a.outputMint, amountRaw)
	if err != nil {
		return nil, fmt.Errorf("account: buy swap failed: %w", err)
	}

	order := model.Order{
		OrderID:    result.Signature,
		InputMint:  a.inputMint,
		OutputMint: a.outputMint,
		Quantity:   quantity,
		Price:      price,
		Side:       model.Buy,
		Timestamp:  time.Now(),
	}
	a.position = &model.Position{Type: model.Long, EntryOrder: order}
	a.bumpPositionChangedLocked()
	return &order, nil
}

func (a *Account) placeSellLocked(ctx context.Context, price, quantity decimal.Decimal) (*model.Order, error) {
	if err := a.canSellLocked(ctx); err != nil {
		return nil, err
	}

	amountRaw, err := a.convert.UIToRaw(a.outputMint, quantity)
	if err != nil {
		return nil, fmt.Errorf("account: convert sell quantity: %w", err)
	}

	log.Info().Str("input", a.outputMint).Str("output", a.inputMint).
		Str("quantity", quantity.String()).Str("price", price.String()).Msg("account: placing sell")

	result, err := a.pipeline.Execute(ctx, a.outputMint, a.inputMint, amountRaw)
	if err != nil {
		return nil, fmt.Errorf("account: sell swap failed: %w", err)
	}

	order := model.Order{
		OrderID:    result.Signature,
		InputMint:  a.outputMint,
		OutputMint: a.inputMint,
		Quantity:   quantity,
		Price:      price,
		Side:       model.Sell,
		Timestamp:  time.Now(),
	}
	a.position.ExitOrder = &order
	a.realizedPnL = a.realizedPnL.Add(a.position.RealizedPnL())
	a.position = nil
	a.bumpPositionChangedLocked()
	return &order, nil
}

// bumpPositionChangedLocked marks the balance cache stale, per spec.md
// §4.4: "after a successful swap the position-last-update timestamp is
// bumped, which forces the next get_balance to refresh."
func (a *Account) bumpPositionChangedLocked() {
	a.positionChanged = true
}
