package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solswap-engine/internal/market"
	"solswap-engine/internal/model"
)

type fakeSource struct {
	mu         sync.Mutex
	priceCalls int
	priceErrAt int // if > 0, GetPrice errors on this call number, then blocks on later calls
	price      decimal.Decimal
	candles    []model.TickerData
	candlesErr error
}

func (f *fakeSource) GetCandles(ctx context.Context, mint string, interval market.Interval, count int) ([]model.TickerData, error) {
	return f.candles, f.candlesErr
}

func (f *fakeSource) GetPrice(ctx context.Context, mint string) (decimal.Decimal, error) {
	f.mu.Lock()
	f.priceCalls++
	call := f.priceCalls
	f.mu.Unlock()

	if f.priceErrAt > 0 && call == f.priceErrAt {
		return decimal.Zero, errors.New("fake: price feed hiccup")
	}
	if f.priceErrAt > 0 && call > f.priceErrAt {
		<-ctx.Done()
		return decimal.Decimal{}, ctx.Err()
	}
	return f.price, nil
}

type fakeAccount struct {
	balance       decimal.Decimal
	balanceErr    error
	position      *model.Position
	placeOrderErr error
	placedSide    model.OrderSide
	placedQty     decimal.Decimal
}

func (f *fakeAccount) GetBalance(ctx context.Context, mintAddress string) (decimal.Decimal, error) {
	return f.balance, f.balanceErr
}

func (f *fakeAccount) Position() *model.Position {
	return f.position
}

func (f *fakeAccount) PlaceOrder(ctx context.Context, side model.OrderSide, price, quantity decimal.Decimal) (*model.Order, error) {
	if f.placeOrderErr != nil {
		return nil, f.placeOrderErr
	}
	f.placedSide = side
	f.placedQty = quantity
	order := &model.Order{OrderID: "fake-order", Side: side, Price: price, Quantity: quantity}
	f.position = &model.Position{Type: model.Long, EntryOrder: *order}
	return order, nil
}

type fakeStrategy struct {
	history       []model.TickerData
	signal        *model.OrderSignal
	signalErr     error
	quantityToUse decimal.Decimal
}

func (f *fakeStrategy) Setup(history []model.TickerData) { f.history = history }

func (f *fakeStrategy) OnMarketRefresh(ticker model.TickerData, balance *decimal.Decimal, position *model.Position) (*model.OrderSignal, error) {
	return f.signal, f.signalErr
}

func (f *fakeStrategy) CalculateQuantity(balance, price decimal.Decimal) decimal.Decimal {
	return f.quantityToUse
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTickPublishesTickEventWhenNoSignal(t *testing.T) {
	src := &fakeSource{price: dec("5")}
	acc := &fakeAccount{balance: dec("100")}
	strat := &fakeStrategy{}
	e := New(Config{InputMint: "USDC", OutputMint: "BONK", EventBufferSize: 8}, src, acc, strat, nil)

	if err := e.tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case ev := <-e.Events():
		if ev.Kind != EventTick {
			t.Fatalf("expected a tick event, got %v", ev.Kind)
		}
	default:
		t.Fatal("expected a published tick event")
	}
}

func TestTickPlacesOrderAndPublishesEventsUsingCalculatedQuantity(t *testing.T) {
	src := &fakeSource{price: dec("2")}
	acc := &fakeAccount{balance: dec("100")}
	strat := &fakeStrategy{signal: &model.OrderSignal{Side: model.Buy}, quantityToUse: dec("7")}
	e := New(Config{InputMint: "USDC", OutputMint: "BONK", EventBufferSize: 8}, src, acc, strat, nil)

	// Cancel immediately so the post-order settle wait short-circuits on
	// ctx.Done instead of sleeping the full 2s in a unit test.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.tick(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled from the settle wait, got %v", err)
	}
	if !acc.placedQty.Equal(dec("7")) {
		t.Fatalf("expected the strategy's calculated quantity 7 to be used, got %s", acc.placedQty)
	}
	if acc.placedSide != model.Buy {
		t.Fatalf("expected a buy order, got %s", acc.placedSide)
	}

	var sawOrder, sawPosition bool
	for i := 0; i < 4; i++ {
		select {
		case ev := <-e.Events():
			switch ev.Kind {
			case EventOrder:
				sawOrder = true
			case EventPosition:
				sawPosition = true
			}
		default:
		}
	}
	if !sawOrder || !sawPosition {
		t.Fatalf("expected both an order and a position event, got order=%v position=%v", sawOrder, sawPosition)
	}
}

func TestTickUsesSignalQuantityWhenProvided(t *testing.T) {
	src := &fakeSource{price: dec("2")}
	acc := &fakeAccount{balance: dec("100"), position: &model.Position{EntryOrder: model.Order{Quantity: dec("9")}}}
	qty := dec("9")
	strat := &fakeStrategy{signal: &model.OrderSignal{Side: model.Sell, Quantity: &qty}}
	e := New(Config{InputMint: "USDC", OutputMint: "BONK", EventBufferSize: 8}, src, acc, strat, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = e.tick(ctx)

	if !acc.placedQty.Equal(dec("9")) {
		t.Fatalf("expected the signal's explicit quantity 9 to be used, got %s", acc.placedQty)
	}
}

func TestTickPropagatesPriceError(t *testing.T) {
	src := &fakeSource{priceErrAt: 1}
	acc := &fakeAccount{balance: dec("100")}
	strat := &fakeStrategy{}
	e := New(Config{InputMint: "USDC", OutputMint: "BONK"}, src, acc, strat, nil)

	if err := e.tick(context.Background()); err == nil {
		t.Fatal("expected the price fetch error to propagate")
	}
}

func TestTickPropagatesPlaceOrderRejection(t *testing.T) {
	src := &fakeSource{price: dec("2")}
	acc := &fakeAccount{balance: dec("100"), placeOrderErr: errors.New("account: position already open")}
	strat := &fakeStrategy{signal: &model.OrderSignal{Side: model.Buy}, quantityToUse: dec("1")}
	e := New(Config{InputMint: "USDC", OutputMint: "BONK"}, src, acc, strat, nil)

	if err := e.tick(context.Background()); err == nil {
		t.Fatal("expected the gate rejection to propagate")
	}
}

func TestRunReturnsErrorOnWarmupCandleFailure(t *testing.T) {
	src := &fakeSource{candlesErr: errors.New("fake: candle fetch failed")}
	acc := &fakeAccount{}
	strat := &fakeStrategy{}
	e := New(Config{InputMint: "USDC", OutputMint: "BONK"}, src, acc, strat, nil)

	if err := e.Run(context.Background()); err == nil {
		t.Fatal("expected Run to surface the warm-up candle fetch failure")
	}
}

func TestRunExitsCleanlyOnInterrupt(t *testing.T) {
	src := &fakeSource{priceErrAt: 1} // errors once, then blocks on ctx.Done
	acc := &fakeAccount{balance: dec("100")}
	strat := &fakeStrategy{}
	e := New(Config{InputMint: "USDC", OutputMint: "BONK"}, src, acc, strat, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected a clean nil return on interrupt, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after cancellation")
	}
}

func TestRunStopsAfterFirstErrorWhenStopOnErrorSet(t *testing.T) {
	src := &fakeSource{priceErrAt: 1}
	acc := &fakeAccount{balance: dec("100")}
	strat := &fakeStrategy{}
	e := New(Config{InputMint: "USDC", OutputMint: "BONK", StopOnError: true}, src, acc, strat, nil)

	err := e.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run to return the tick error when StopOnError is set")
	}
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(ctx context.Context, message string) error {
	f.messages = append(f.messages, message)
	return nil
}

func TestRunNotifiesOnTickError(t *testing.T) {
	src := &fakeSource{priceErrAt: 1}
	acc := &fakeAccount{balance: dec("100")}
	strat := &fakeStrategy{}
	notifier := &fakeNotifier{}
	e := New(Config{InputMint: "USDC", OutputMint: "BONK", StopOnError: true}, src, acc, strat, notifier)

	_ = e.Run(context.Background())

	if len(notifier.messages) == 0 {
		t.Fatal("expected the notifier to receive the tick error")
	}
	if got := notifier.messages[0]; got == "" {
		t.Fatal("expected a non-empty notification message")
	}
}
