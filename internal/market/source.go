// Package market defines the market-data contract the engine trades
// against and a streaming implementation of it. internal/jupiter and
// WSFeed both satisfy Source; the engine and backtest runner depend only
// on this interface, never on a concrete provider.
package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"solswap-engine/internal/model"
)

// Interval names a candle bucket width. Grounded on
// async_jupiter_client.py's Interval StrEnum (15_SECOND/1_MINUTE/1_HOUR).
type Interval string

const (
	Interval15Second Interval = "15_SECOND"
	Interval1Minute  Interval = "1_MINUTE"
	Interval1Hour    Interval = "1_HOUR"
)

// Source is the market-data contract: historical candles for strategy
// warm-up/backtesting, and a blocking call for the next live price.
type Source interface {
	// GetCandles returns up to count most recent candles for mint, oldest
	// first.
	GetCandles(ctx context.Context, mint string, interval Interval, count int) ([]model.TickerData, error)

	// GetPrice blocks until the next price update for mint is available or
	// ctx is done.
	GetPrice(ctx context.Context, mint string) (decimal.Decimal, error)
}

// reconnectBackoff is the fixed delay between stream reconnect attempts,
// matching the teacher's price-feed reconnect behavior.
const reconnectBackoff = 2 * time.Second
