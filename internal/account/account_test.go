package account

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
	"solswap-engine/internal/swap"
)

const (
	testInputMint  = "InputMintAddress"
	testOutputMint = "OutputMintAddress"
)

type fakeBalances struct {
	balances map[string]decimal.Decimal
	calls    int
	err      error
}

func (f *fakeBalances) Balance(ctx context.Context, mintAddress string) (decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.balances[mintAddress], nil
}

type fakePipeline struct {
	result *swap.Result
	err    error
	calls  int
}

func (f *fakePipeline) Execute(ctx context.Context, inputMint, outputMint string, amountInRaw uint64) (*swap.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// identityConverter treats UI and raw units as equal (scale 1), so tests
// can reason in plain decimal values without a real mint's decimals table.
type identityConverter struct{}

func (identityConverter) UIToRaw(mintAddress string, ui decimal.Decimal) (uint64, error) {
	return uint64(ui.IntPart()), nil
}

func (identityConverter) RawToUI(mintAddress string, raw uint64) (decimal.Decimal, error) {
	return decimal.NewFromInt(int64(raw)), nil
}

func newTestAccount(balances *fakeBalances, pipeline *fakePipeline) *Account {
	return New(testInputMint, testOutputMint, pipeline, balances, identityConverter{})
}

func TestCanBuyFailsWhenPositionOpen(t *testing.T) {
	balances := &fakeBalances{balances: map[string]decimal.Decimal{testInputMint: decimal.NewFromInt(100)}}
	pipeline := &fakePipeline{result: &swap.Result{Signature: "sig-1", OutAmount: 1000}}
	acc := newTestAccount(balances, pipeline)

	if _, err := acc.PlaceOrder(context.Background(), model.Buy, decimal.NewFromInt(1), decimal.NewFromInt(10)); err != nil {
		t.Fatalf("first buy failed: %v", err)
	}

	if err := acc.CanBuy(context.Background()); !errors.Is(err, ErrPositionAlreadyOpen) {
		t.Fatalf("expected ErrPositionAlreadyOpen, got %v", err)
	}
}

func TestCanBuyFailsBelowMinInputBalance(t *testing.T) {
	balances := &fakeBalances{balances: map[string]decimal.Decimal{testInputMint: decimal.NewFromFloat(0.005)}}
	acc := newTestAccount(balances, &fakePipeline{})

	if err := acc.CanBuy(context.Background()); !errors.Is(err, ErrInsufficientInputBalance) {
		t.Fatalf("expected ErrInsufficientInputBalance, got %v", err)
	}
}

func TestCanBuySucceedsAtExactThreshold(t *testing.T) {
	balances := &fakeBalances{balances: map[string]decimal.Decimal{testInputMint: decimal.NewFromFloat(0.01)}}
	acc := newTestAccount(balances, &fakePipeline{})

	if err := acc.CanBuy(context.Background()); err != nil {
		t.Fatalf("expected buy allowed at exactly 0.01 UI, got %v", err)
	}
}

func TestCanSellFailsWhenNoPosition(t *testing.T) {
	acc := newTestAccount(&fakeBalances{}, &fakePipeline{})
	if err := acc.CanSell(context.Background()); !errors.Is(err, ErrNoPositionOpen) {
		t.Fatalf("expected ErrNoPositionOpen, got %v", err)
	}
}

func TestCanSellFailsBelowMinOutputBalance(t *testing.T) {
	balances := &fakeBalances{balances: map[string]decimal.Decimal{
		testInputMint:  decimal.NewFromInt(100),
		testOutputMint: decimal.NewFromFloat(0.000005),
	}}
	pipeline := &fakePipeline{result: &swap.Result{Signature: "sig-1"}}
	acc := newTestAccount(balances, pipeline)

	if _, err := acc.PlaceOrder(context.Background(), model.Buy, decimal.NewFromInt(1), decimal.NewFromInt(10)); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	if err := acc.CanSell(context.Background()); !errors.Is(err, ErrInsufficientOutputBalance) {
		t.Fatalf("expected ErrInsufficientOutputBalance, got %v", err)
	}
}

func TestPlaceOrderBuyThenSellTransitionsPosition(t *testing.T) {
	balances := &fakeBalances{balances: map[string]decimal.Decimal{
		testInputMint:  decimal.NewFromInt(100),
		testOutputMint: decimal.NewFromInt(50),
	}}
	pipeline := &fakePipeline{result: &swap.Result{Signature: "sig-1"}}
	acc := newTestAccount(balances, pipeline)

	if acc.Position() != nil {
		t.Fatal("expected no position before any order")
	}

	if _, err := acc.PlaceOrder(context.Background(), model.Buy, decimal.NewFromInt(2), decimal.NewFromInt(10)); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	pos := acc.Position()
	if pos == nil || !pos.IsOpen() {
		t.Fatal("expected an open position after buy")
	}

	if _, err := acc.PlaceOrder(context.Background(), model.Sell, decimal.NewFromInt(3), decimal.NewFromInt(10)); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if acc.Position() != nil {
		t.Fatal("expected no position after sell")
	}

	// Entry at price 2, exit at price 3, quantity 10: realized PnL = 10.
	if !acc.RealizedPnL().Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected realized PnL of 10, got %s", acc.RealizedPnL().String())
	}
}

func TestPlaceOrderSellWhenNoPositionRejectedBeforeSwap(t *testing.T) {
	pipeline := &fakePipeline{result: &swap.Result{Signature: "sig-1"}}
	acc := newTestAccount(&fakeBalances{}, pipeline)

	_, err := acc.PlaceOrder(context.Background(), model.Sell, decimal.NewFromInt(1), decimal.NewFromInt(1))
	if !errors.Is(err, ErrNoPositionOpen) {
		t.Fatalf("expected ErrNoPositionOpen, got %v", err)
	}
	if pipeline.calls != 0 {
		t.Fatalf("expected the swap pipeline not to be called, got %d calls", pipeline.calls)
	}
}

func TestBalanceCacheRefreshesOncePerTTLWindow(t *testing.T) {
	balances := &fakeBalances{balances: map[string]decimal.Decimal{
		testInputMint:  decimal.NewFromInt(100),
		testOutputMint: decimal.NewFromInt(50),
	}}
	acc := newTestAccount(balances, &fakePipeline{})

	if _, err := acc.GetBalance(context.Background(), testInputMint); err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if _, err := acc.GetBalance(context.Background(), testOutputMint); err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balances.calls != 2 {
		t.Fatalf("expected exactly one refresh (2 Balance calls for the pair), got %d", balances.calls)
	}
}

func TestBalanceCacheInvalidatedByPositionChange(t *testing.T) {
	balances := &fakeBalances{balances: map[string]decimal.Decimal{
		testInputMint:  decimal.NewFromInt(100),
		testOutputMint: decimal.NewFromInt(50),
	}}
	pipeline := &fakePipeline{result: &swap.Result{Signature: "sig-1"}}
	acc := newTestAccount(balances, pipeline)

	if _, err := acc.GetBalance(context.Background(), testInputMint); err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	callsBefore := balances.calls

	if _, err := acc.PlaceOrder(context.Background(), model.Buy, decimal.NewFromInt(1), decimal.NewFromInt(10)); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	if _, err := acc.GetBalance(context.Background(), testInputMint); err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balances.calls <= callsBefore {
		t.Fatal("expected balance cache to refresh again after a position change")
	}
}
