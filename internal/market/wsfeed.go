package market

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"solswap-engine/internal/model"
)

// subscribeRequest and priceMessage are the subset of the price-stream
// protocol this feed needs: a subscribe request and the incoming price
// push. Grounded on
// async_jupiter_client.py's _connect_price_ws/_get_price, which sends
// {"type":"subscribe:prices","assets":[mint]} and reads back
// {"type":"prices","data":[{"assetId":...,"price":...}]}.
type subscribeRequest struct {
	Type   string   `json:"type"`
	Assets []string `json:"assets"`
}

type priceMessage struct {
	Type string `json:"type"`
	Data []struct {
		AssetID string          `json:"assetId"`
		Price   decimal.Decimal `json:"price"`
	} `json:"data"`
}

// WSFeed is a streaming price source backed by a single websocket
// connection, reconnecting with a fixed backoff and resubscribing to every
// tracked mint on each reconnect. It implements Source; GetCandles always
// fails since the stream carries no history.
type WSFeed struct {
	url string

	mu       sync.Mutex
	conn     *websocket.Conn
	tracked  map[string]bool
	waiters  map[string][]chan decimal.Decimal
	lastSeen map[string]decimal.Decimal

	closed chan struct{}
	once   sync.Once
}

// NewWSFeed creates a feed that dials url (e.g. a Jupiter-shaped
// "wss://.../ws" price stream endpoint). It does not dial until Start is
// called.
func NewWSFeed(url string) *WSFeed {
	return &WSFeed{
		url:      url,
		tracked:  make(map[string]bool),
		waiters:  make(map[string][]chan decimal.Decimal),
		lastSeen: make(map[string]decimal.Decimal),
		closed:   make(chan struct{}),
	}
}

// Start dials the stream and begins the read loop in the background. Safe
// to call once; subsequent GetPrice calls block on the resulting channel
// fan-out.
func (f *WSFeed) Start(ctx context.Context) {
	go f.runLoop(ctx)
}

// Close stops the feed's reconnect loop and releases any blocked waiters.
func (f *WSFeed) Close() {
	f.once.Do(func() { close(f.closed) })
}

func (f *WSFeed) runLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.closed:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			log.Warn().Err(err).Msg("market: price stream dial failed, retrying")
			if !f.sleep(ctx, reconnectBackoff) {
				return
			}
			continue
		}

		f.mu.Lock()
		f.conn = conn
		assets := make([]string, 0, len(f.tracked))
		for mint := range f.tracked {
			assets = append(assets, mint)
		}
		f.mu.Unlock()

		if len(assets) > 0 {
			if err := conn.WriteJSON(subscribeRequest{Type: "subscribe:prices", Assets: assets}); err != nil {
				log.Warn().Err(err).Msg("market: resubscribe failed")
			}
		}

		f.readUntilClosed(ctx, conn)

		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()

		log.Info().Msg("market: price stream closed, reconnecting")
		if !f.sleep(ctx, reconnectBackoff) {
			return
		}
	}
}

func (f *WSFeed) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-f.closed:
		return false
	case <-t.C:
		return true
	}
}

func (f *WSFeed) readUntilClosed(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg priceMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Warn().Err(err).Msg("market: malformed price message")
			continue
		}
		for _, d := range msg.Data {
			f.deliver(d.AssetID, d.Price)
		}
	}
}

func (f *WSFeed) deliver(mint string, price decimal.Decimal) {
	f.mu.Lock()
	f.lastSeen[mint] = price
	waiters := f.waiters[mint]
	delete(f.waiters, mint)
	f.mu.Unlock()

	for _, ch := range waiters {
		ch <- price
	}
}

// Subscribe marks mint as tracked, sending a subscribe request on the
// active connection if one exists (otherwise it is sent on next connect).
func (f *WSFeed) Subscribe(mint string) {
	f.mu.Lock()
	alreadyTracked := f.tracked[mint]
	f.tracked[mint] = true
	conn := f.conn
	f.mu.Unlock()

	if !alreadyTracked && conn != nil {
		_ = conn.WriteJSON(subscribeRequest{Type: "subscribe:prices", Assets: []string{mint}})
	}
}

// GetPrice blocks until the next price update for mint arrives, or ctx is
// done. It implicitly subscribes to mint.
func (f *WSFeed) GetPrice(ctx context.Context, mint string) (decimal.Decimal, error) {
	f.Subscribe(mint)

	ch := make(chan decimal.Decimal, 1)
	f.mu.Lock()
	f.waiters[mint] = append(f.waiters[mint], ch)
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return decimal.Decimal{}, ctx.Err()
	case <-f.closed:
		return decimal.Decimal{}, fmt.Errorf("market: price feed closed")
	case price := <-ch:
		return price, nil
	}
}

// LastPrice returns the most recently observed price for mint, if any.
func (f *WSFeed) LastPrice(mint string) (decimal.Decimal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.lastSeen[mint]
	return price, ok
}

// GetCandles is unsupported on the streaming feed: it carries no history,
// only live pushes. Callers needing candles use internal/jupiter.
func (f *WSFeed) GetCandles(ctx context.Context, mint string, interval Interval, count int) ([]model.TickerData, error) {
	return nil, fmt.Errorf("market: WSFeed does not support GetCandles, use a candle-backed Source")
}
