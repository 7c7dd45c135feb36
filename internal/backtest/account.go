// Package backtest drives a strategy against historical candles instead
// of a live market, so the same strategy implementations used in
// production can be scored offline. Grounded on
// original_source/trader/backtesting_bot.py's BacktestingBot: candle
// iteration order, the simulated account gate logic, and the
// hold-versus-trading comparison in show_execution_report/
// _show_hold_strategy_analysis.
package backtest

import (
	"context"
	"fmt"
	"time"

	"solswap-engine/internal/account"
	"solswap-engine/internal/model"

	"github.com/shopspring/decimal"
)

// SimAccount is a simulated internal/account.Account: it applies the same
// position-state gates and returns internal/account's error values (no
// pipeline round trip, no RPC, fills happen instantly at the quoted price)
// so a backtest exercises the same strategy/account contract the live
// engine does. Its balance checks compare against the order itself (a buy
// needs quantity*price of input, a sell needs quantity of output) rather
// than Account's fixed 0.01 / 1e-5 UI minimums. Implements
// internal/engine.AccountGateway.
type SimAccount struct {
	inputMint  string
	outputMint string

	inputBalance  decimal.Decimal
	outputBalance decimal.Decimal

	position    *model.Position
	realizedPnL decimal.Decimal
	closed      []model.Position

	nextOrderID int
}

// NewSimAccount creates a simulated account starting with startingInput
// units of inputMint and zero units of outputMint.
func NewSimAccount(inputMint, outputMint string, startingInput decimal.Decimal) *SimAccount {
	return &SimAccount{
		inputMint:     inputMint,
		outputMint:    outputMint,
		inputBalance:  startingInput,
		outputBalance: decimal.Zero,
	}
}

// GetBalance returns the simulated balance for mintAddress. Unlike
// internal/account.Account there is no cache or RPC round trip to stale;
// the simulated ledger is always current.
func (s *SimAccount) GetBalance(ctx context.Context, mintAddress string) (decimal.Decimal, error) {
	switch mintAddress {
	case s.inputMint:
		return s.inputBalance, nil
	case s.outputMint:
		return s.outputBalance, nil
	default:
		return decimal.Zero, nil
	}
}

// Position returns a copy of the currently open simulated position, or
// nil if none is open.
func (s *SimAccount) Position() *model.Position {
	if s.position == nil {
		return nil
	}
	p := *s.position
	return &p
}

// RealizedPnL returns the cumulative realized PnL across every closed
// simulated position.
func (s *SimAccount) RealizedPnL() decimal.Decimal {
	return s.realizedPnL
}

// ClosedPositions returns every position this account has closed, oldest
// first, used to build the backtest report.
func (s *SimAccount) ClosedPositions() []model.Position {
	return s.closed
}

// PlaceOrder fills a simulated buy or sell instantly at price, gated by
// the same position-state rules internal/account.Account enforces.
func (s *SimAccount) PlaceOrder(ctx context.Context, side model.OrderSide, price, quantity decimal.Decimal) (*model.Order, error) {
	switch side {
	case model.Buy:
		return s.placeBuy(price, quantity)
	case model.Sell:
		return s.placeSell(price, quantity)
	default:
		return nil, fmt.Errorf("backtest: unknown order side %q", side)
	}
}

func (s *SimAccount) placeBuy(price, quantity decimal.Decimal) (*model.Order, error) {
	if s.position != nil {
		return nil, account.ErrPositionAlreadyOpen
	}
	notional := quantity.Mul(price)
	if s.inputBalance.LessThan(notional) {
		return nil, account.ErrInsufficientInputBalance
	}

	s.nextOrderID++
	order := model.Order{
		OrderID:    fmt.Sprintf("sim-buy-%d", s.nextOrderID),
		InputMint:  s.inputMint,
		OutputMint: s.outputMint,
		Quantity:   quantity,
		Price:      price,
		Side:       model.Buy,
		Timestamp:  time.Now(),
	}
	s.inputBalance = s.inputBalance.Sub(notional)
	s.outputBalance = s.outputBalance.Add(quantity)
	s.position = &model.Position{Type: model.Long, EntryOrder: order}
	return &order, nil
}

func (s *SimAccount) placeSell(price, quantity decimal.Decimal) (*model.Order, error) {
	if s.position == nil {
		return nil, account.ErrNoPositionOpen
	}
	if s.outputBalance.LessThan(quantity) {
		return nil, account.ErrInsufficientOutputBalance
	}

	s.nextOrderID++
	order := model.Order{
		OrderID:    fmt.Sprintf("sim-sell-%d", s.nextOrderID),
		InputMint:  s.outputMint,
		OutputMint: s.inputMint,
		Quantity:   quantity,
		Price:      price,
		Side:       model.Sell,
		Timestamp:  time.Now(),
	}
	s.outputBalance = s.outputBalance.Sub(quantity)
	s.inputBalance = s.inputBalance.Add(quantity.Mul(price))

	s.position.ExitOrder = &order
	s.realizedPnL = s.realizedPnL.Add(s.position.RealizedPnL())
	s.closed = append(s.closed, *s.position)
	s.position = nil
	return &order, nil
}
