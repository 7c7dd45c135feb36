package backtest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"solswap-engine/internal/market"
	"solswap-engine/internal/model"
)

// CandleStore caches historical candles fetched from a market.Source in
// SQLite, keyed by mint/interval/timestamp, so repeated backtests over the
// same window don't re-fetch. Grounded on the teacher's
// internal/storage/db.go: same WAL/synchronous/busy_timeout pragma DSN
// construction and create-tables-on-open shape; the schema itself is new
// (candles, not positions/trades/signals) since this is input-data
// caching rather than restart-persisted engine state.
type CandleStore struct {
	db *sql.DB
}

// NewCandleStore opens (creating if absent) a SQLite candle cache at path.
func NewCandleStore(path string) (*CandleStore, error) {
	dsn := path
	if !strings.Contains(path, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("backtest: open candle cache: %w", err)
	}
	if err := createCandleTable(db); err != nil {
		return nil, fmt.Errorf("backtest: create candle table: %w", err)
	}

	log.Info().Str("path", path).Msg("backtest: candle cache initialized")
	return &CandleStore{db: db}, nil
}

func createCandleTable(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS candles (
		mint TEXT NOT NULL,
		interval TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		open TEXT NOT NULL,
		high TEXT NOT NULL,
		low TEXT NOT NULL,
		close TEXT NOT NULL,
		volume TEXT NOT NULL,
		PRIMARY KEY (mint, interval, timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_candles_lookup ON candles(mint, interval, timestamp);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns up to count cached candles for mint/interval, oldest first.
// A short result (len < count) means the cache holds fewer than count
// candles for that key.
func (s *CandleStore) Get(ctx context.Context, mint string, interval market.Interval, count int) ([]model.TickerData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume FROM candles
		WHERE mint = ? AND interval = ?
		ORDER BY timestamp DESC LIMIT ?`, mint, string(interval), count)
	if err != nil {
		return nil, fmt.Errorf("backtest: query candles: %w", err)
	}
	defer rows.Close()

	var out []model.TickerData
	for rows.Next() {
		var ts int64
		var open, high, low, closeStr, volume string
		if err := rows.Scan(&ts, &open, &high, &low, &closeStr, &volume); err != nil {
			return nil, fmt.Errorf("backtest: scan candle: %w", err)
		}
		out = append(out, model.TickerData{
			Pair:      mint,
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      mustDecimal(open),
			High:      mustDecimal(high),
			Low:       mustDecimal(low),
			Last:      mustDecimal(closeStr),
			Buy:       mustDecimal(closeStr),
			Sell:      mustDecimal(closeStr),
			Vol:       mustDecimal(volume),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse: the query above orders DESC for a bounded LIMIT, callers want
	// oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Put inserts or replaces candles for mint/interval.
func (s *CandleStore) Put(ctx context.Context, mint string, interval market.Interval, candles []model.TickerData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("backtest: begin candle insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (mint, interval, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("backtest: prepare candle insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, mint, string(interval), c.Timestamp.Unix(),
			c.Open.String(), c.High.String(), c.Low.String(), c.Last.String(), c.Vol.String())
		if err != nil {
			return fmt.Errorf("backtest: insert candle: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (s *CandleStore) Close() error {
	return s.db.Close()
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CachedSource wraps a market.Source with a CandleStore, serving
// GetCandles from cache when it holds count-or-more rows and otherwise
// fetching from the underlying source and persisting the result. GetPrice
// passes straight through, uncached, since a backtest never calls it (the
// runner iterates historical candles directly).
type CachedSource struct {
	underlying market.Source
	store      *CandleStore
}

// NewCachedSource wraps underlying with a candle cache backed by store.
func NewCachedSource(underlying market.Source, store *CandleStore) *CachedSource {
	return &CachedSource{underlying: underlying, store: store}
}

func (c *CachedSource) GetCandles(ctx context.Context, mint string, interval market.Interval, count int) ([]model.TickerData, error) {
	cached, err := c.store.Get(ctx, mint, interval, count)
	if err != nil {
		return nil, err
	}
	if len(cached) >= count {
		return cached, nil
	}

	fetched, err := c.underlying.GetCandles(ctx, mint, interval, count)
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(ctx, mint, interval, fetched); err != nil {
		log.Warn().Err(err).Msg("backtest: failed to persist fetched candles to cache")
	}
	return fetched, nil
}

func (c *CachedSource) GetPrice(ctx context.Context, mint string) (decimal.Decimal, error) {
	return c.underlying.GetPrice(ctx, mint)
}
