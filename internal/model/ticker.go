package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TickerData is an immutable price snapshot. Streaming last-price updates
// collapse every field to the single streamed price and leave Spread unset;
// historical candles populate the full OHLCV set. Strategies only read
// Last (and occasionally Buy, Spread); the rest exists so candle and stream
// records stay isomorphic.
type TickerData struct {
	Pair      string
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Last      decimal.Decimal
	Buy       decimal.Decimal
	Sell      decimal.Decimal
	Vol       decimal.Decimal
	Spread    *decimal.Decimal
}

// FromPrice builds a TickerData where every OHLC field collapses to price,
// as produced by a streaming last-price update.
func FromPrice(pair string, price decimal.Decimal, at time.Time) TickerData {
	return TickerData{
		Pair:      pair,
		Timestamp: at,
		Open:      price,
		High:      price,
		Low:       price,
		Last:      price,
		Buy:       price,
		Sell:      price,
		Vol:       decimal.Zero,
	}
}
