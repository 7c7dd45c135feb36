package mint

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

func TestUIToRawRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		ui   string
	}{
		{"whole", "12"},
		{"fractional", "0.000001"},
		{"large", "1234567.891011"},
		{"zero", "0"},
	}
	usdc, err := Default.ByAddress("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	if err != nil {
		t.Fatalf("lookup USDC: %v", err)
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ui := decimal.RequireFromString(c.ui)
			raw := usdc.UIToRaw(ui)
			got := usdc.RawToUI(raw)
			if !got.Equal(ui) {
				t.Fatalf("round trip mismatch: in=%s raw=%d out=%s", ui, raw, got)
			}
		})
	}
}

func TestUIToRawTruncates(t *testing.T) {
	sol, err := Default.BySymbol("SOL")
	if err != nil {
		t.Fatalf("lookup SOL: %v", err)
	}
	ui := decimal.RequireFromString("1.0000000005")
	raw := sol.UIToRaw(ui)
	if raw != 1000000000 {
		t.Fatalf("expected truncation to 1000000000 raw units, got %d", raw)
	}
}

func TestByAddressUnknown(t *testing.T) {
	if _, err := Default.ByAddress("not-a-real-mint"); err == nil {
		t.Fatal("expected error for unknown mint")
	}
}

func TestByPublicKeyMatchesByAddress(t *testing.T) {
	want, err := Default.ByAddress("So11111111111111111111111111111111111111112")
	if err != nil {
		t.Fatalf("lookup SOL: %v", err)
	}
	decoded, err := base58.Decode(want.Address)
	if err != nil {
		t.Fatalf("decode address: %v", err)
	}
	var key [32]byte
	copy(key[:], decoded)
	got, err := Default.ByPublicKey(key)
	if err != nil {
		t.Fatalf("ByPublicKey: %v", err)
	}
	if got != want {
		t.Fatalf("ByPublicKey mismatch: got %+v want %+v", got, want)
	}
}

func TestContains(t *testing.T) {
	if !Default.Contains("JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN") {
		t.Fatal("expected JUP to be a known mint")
	}
	if Default.Contains("some-random-spl-token") {
		t.Fatal("expected random address to be unknown")
	}
}

func TestBySymbolCaseSensitive(t *testing.T) {
	if _, err := Default.BySymbol("usdc"); err == nil {
		t.Fatal("expected lowercase symbol to miss, symbols are stored uppercase")
	}
}
