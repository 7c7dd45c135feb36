// Package mint holds the process-wide immutable table mapping a mint
// identifier to its symbol and decimals, and the exact UI<->raw conversion
// spec.md requires. Grounded on the original trader/models/mints.py
// SOLANA_MINTS table, reimplemented as a Go value type with a base58
// canonicalized public-key lookup path (teacher's mr-tron/base58 dep).
package mint

import (
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// Mint is the identity of an on-chain token.
type Mint struct {
	Address  string
	Symbol   string
	Decimals int32
}

// UIToRaw converts a UI-Decimal amount to raw integer units, truncating
// toward zero. raw = ui * 10^decimals, exact arithmetic.
func (m Mint) UIToRaw(ui decimal.Decimal) uint64 {
	scale := decimal.New(1, m.Decimals)
	raw := ui.Mul(scale).Truncate(0)
	return uint64(raw.IntPart())
}

// RawToUI converts a raw integer amount back to UI-Decimal.
func (m Mint) RawToUI(raw uint64) decimal.Decimal {
	scale := decimal.New(1, m.Decimals)
	return decimal.NewFromInt(int64(raw)).Div(scale)
}

// Registry is the process-wide immutable mint table. Zero value is not
// usable; construct with NewRegistry.
type Registry struct {
	byAddress map[string]Mint
	bySymbol  map[string]Mint
}

// NewRegistry builds an immutable registry from a literal mint list. The
// returned Registry is safe to share across goroutines without
// synchronization: it is never mutated after construction.
func NewRegistry(mints []Mint) *Registry {
	r := &Registry{
		byAddress: make(map[string]Mint, len(mints)),
		bySymbol:  make(map[string]Mint, len(mints)),
	}
	for _, m := range mints {
		r.byAddress[m.Address] = m
		r.bySymbol[m.Symbol] = m
	}
	return r
}

// ErrUnknownMint is returned by lookups that miss the table.
type ErrUnknownMint struct{ Key string }

func (e *ErrUnknownMint) Error() string { return fmt.Sprintf("mint: unknown mint %q", e.Key) }

// ByAddress looks up a mint by its base58 address.
func (r *Registry) ByAddress(address string) (Mint, error) {
	if m, ok := r.byAddress[address]; ok {
		return m, nil
	}
	return Mint{}, &ErrUnknownMint{Key: address}
}

// ByPublicKey looks up a mint by a typed 32-byte public key, canonicalizing
// it to the same base58 address form ByAddress uses.
func (r *Registry) ByPublicKey(pubkey [32]byte) (Mint, error) {
	return r.ByAddress(base58.Encode(pubkey[:]))
}

// BySymbol looks up a mint by its display symbol (e.g. "USDC").
func (r *Registry) BySymbol(symbol string) (Mint, error) {
	if m, ok := r.bySymbol[symbol]; ok {
		return m, nil
	}
	return Mint{}, &ErrUnknownMint{Key: symbol}
}

// Contains reports whether address is a known mint. Used when scanning
// wallet token accounts so stray tokens are silently ignored rather than
// breaking balance reading.
func (r *Registry) Contains(address string) bool {
	_, ok := r.byAddress[address]
	return ok
}

// UIToRaw looks up mint and converts a UI amount to raw units.
func (r *Registry) UIToRaw(address string, ui decimal.Decimal) (uint64, error) {
	m, err := r.ByAddress(address)
	if err != nil {
		return 0, err
	}
	return m.UIToRaw(ui), nil
}

// RawToUI looks up mint and converts a raw amount to UI-Decimal.
func (r *Registry) RawToUI(address string, raw uint64) (decimal.Decimal, error) {
	m, err := r.ByAddress(address)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return m.RawToUI(raw), nil
}

// Default is the standard Solana mint table used when no custom list is
// supplied at startup. Grounded on trader/models/mints.py's SOLANA_MINTS.
var Default = NewRegistry([]Mint{
	{Address: "So11111111111111111111111111111111111111112", Symbol: "SOL", Decimals: 9},
	{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Decimals: 6},
	{Address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Symbol: "USDT", Decimals: 6},
	{Address: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Symbol: "BONK", Decimals: 5},
	{Address: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", Symbol: "JUP", Decimals: 6},
	{Address: "pumpCmXqMfrsAkQ5r49WcJnRayYRqmXz6ae8H7H9Dfn", Symbol: "PUMP", Decimals: 6},
	{Address: "2Dyzu65QA9zdX1UeE7Gx71k7fiwyUK6sZdrvJ7auq5wm", Symbol: "TURBO", Decimals: 8},
})
