package account

import (
	"context"

	"github.com/shopspring/decimal"

	"solswap-engine/internal/blockchain"
	"solswap-engine/internal/mint"
)

// BalanceSource reads the wallet's available balance in one mint, in UI
// (human-readable) units. Implemented by WalletBalanceSource against the
// blockchain package; a fake in account_test.go drives the gate tests
// without a network call.
type BalanceSource interface {
	Balance(ctx context.Context, mintAddress string) (decimal.Decimal, error)
}

// RPC is the subset of internal/blockchain.RPCClient WalletBalanceSource
// needs.
type RPC interface {
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, mintAddress string) ([]blockchain.TokenAccountInfo, error)
}

// WalletBalanceSource reads a wallet's balance for SOL (the native mint, via
// GetBalance) and any SPL/Token-2022 mint (via GetTokenAccountsByOwner,
// summed across every token account returned for that mint), converting the
// raw result to UI units through the shared mint registry.
type WalletBalanceSource struct {
	rpc     RPC
	owner   string
	mints   *mint.Registry
	solMint string
}

// NewWalletBalanceSource builds a BalanceSource for the given owner address.
// solMint is the wrapped-SOL mint address used for the native-balance
// special case (GetBalance reports lamports directly, bypassing token
// accounts entirely).
func NewWalletBalanceSource(rpc RPC, owner string, mints *mint.Registry, solMint string) *WalletBalanceSource {
	return &WalletBalanceSource{rpc: rpc, owner: owner, mints: mints, solMint: solMint}
}

// Balance returns the available balance of mintAddress, in UI units.
func (s *WalletBalanceSource) Balance(ctx context.Context, mintAddress string) (decimal.Decimal, error) {
	if mintAddress == s.solMint {
		lamports, err := s.rpc.GetBalance(ctx, s.owner)
		if err != nil {
			return decimal.Zero, err
		}
		return s.mints.RawToUI(mintAddress, lamports)
	}

	accounts, err := s.rpc.GetTokenAccountsByOwner(ctx, s.owner, mintAddress)
	if err != nil {
		return decimal.Zero, err
	}

	var totalRaw uint64
	for _, acc := range accounts {
		totalRaw += acc.Amount
	}
	return s.mints.RawToUI(mintAddress, totalRaw)
}
