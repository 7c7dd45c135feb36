// Package swap runs the quote -> build -> sign -> simulate -> submit ->
// confirm swap protocol against a DEX aggregator and an RPC backend, with
// a fixed retry policy and a dry-run short-circuit. Grounded on the
// teacher's internal/trading/executor.go trade flow (ordering, zerolog
// usage, mutex-at-the-call-site idiom) and, for the exact step-by-step
// protocol and retry semantics, on
// original_source/trader/providers/jupiter/async_jupiter_svc.py's
// _do_swap/_do_swap_with_retry chain.
package swap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"solswap-engine/internal/blockchain"
	"solswap-engine/internal/jupiter"
)

// slippageProgression is the per-attempt slippage bps schedule: attempt 2
// repeats attempt 1's tolerance (covers a transient route hiccup), attempt
// 3 widens it (covers a real price move).
var slippageProgression = [3]int{50, 50, 75}

const (
	maxAttempts          = 3
	confirmPollInterval  = 1 * time.Second
	confirmTimeout       = 30 * time.Second
)

// RPC is the subset of internal/blockchain.RPCClient the pipeline needs.
// Declared as an interface so the pipeline can be tested against a fake
// that never makes a network call.
type RPC interface {
	SendTransaction(ctx context.Context, signedTx string, skipPreflight bool) (string, error)
	CheckTransaction(ctx context.Context, signature string) (*blockchain.TxCheckResult, error)
	SimulateTransaction(ctx context.Context, signedTx string) error
}

// Signer signs a serialized transaction with the wallet keypair.
// Implemented by internal/blockchain.TransactionBuilder, which signs the
// message as received: the recent blockhash the aggregator put in it is
// not replaced with a freshly fetched one.
type Signer interface {
	SignSerializedTransaction(serializedTxBase64 string) (string, error)
}

// QuoteBuilder is the subset of internal/jupiter.Client the pipeline needs.
type QuoteBuilder interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amountRaw uint64, slippageBps int) (*jupiter.QuoteResponse, error)
	GetSwapTransaction(ctx context.Context, quote *jupiter.QuoteResponse, userPubkey string) (string, error)
}

// Pipeline executes one swap direction at a time; it holds no per-swap
// state between calls, so a single Pipeline is shared and reused across
// every buy/sell an Account places.
type Pipeline struct {
	quotes    QuoteBuilder
	rpc       RPC
	signer    Signer
	userPubkey string
	dryRun    bool
}

// New creates a swap pipeline. dryRun, once set, applies to every Execute
// call made through this Pipeline.
func New(quotes QuoteBuilder, rpc RPC, signer Signer, userPubkey string, dryRun bool) *Pipeline {
	return &Pipeline{quotes: quotes, rpc: rpc, signer: signer, userPubkey: userPubkey, dryRun: dryRun}
}

// Result is the outcome of a successful Execute.
type Result struct {
	Signature   string
	OutAmount   uint64
	Attempts    int
	DryRun      bool
}

// Execute swaps amountInRaw raw units of inputMint to outputMint, retrying
// the full quote-through-confirm sequence up to maxAttempts times with the
// slippage progression above. The final attempt's failure is returned
// unchanged, matching _do_swap_with_retry's re-raise on the last attempt.
func (p *Pipeline) Execute(ctx context.Context, inputMint, outputMint string, amountInRaw uint64) (*Result, error) {
	var lastErr error
	var lastSignature string

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 && lastSignature != "" {
			landed, err := p.previousAttemptLanded(ctx, lastSignature)
			if err != nil {
				log.Warn().Err(err).Str("signature", lastSignature).Msg("swap: could not re-check previous attempt before retry")
			} else if landed {
				log.Info().Str("signature", lastSignature).Msg("swap: previous attempt already landed, treating as success")
				return &Result{Signature: lastSignature, Attempts: attempt, DryRun: p.dryRun}, nil
			}
		}

		slippageBps := slippageProgression[attempt]
		result, signature, err := p.attempt(ctx, inputMint, outputMint, amountInRaw, slippageBps)
		if err == nil {
			result.Attempts = attempt + 1
			return result, nil
		}

		lastErr = err
		lastSignature = signature

		if attempt == maxAttempts-1 {
			return nil, lastErr
		}

		log.Warn().Err(err).Int("attempt", attempt+1).Msg("swap: attempt failed, retrying")
	}

	return nil, lastErr
}

func (p *Pipeline) attempt(ctx context.Context, inputMint, outputMint string, amountInRaw uint64, slippageBps int) (*Result, string, error) {
	// 1. Quote.
	quote, err := p.quotes.GetQuote(ctx, inputMint, outputMint, amountInRaw, slippageBps)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrNoRoute, blockchain.HumanErrorWithAction(err))
	}

	// 2. Build transaction.
	unsignedTx, err := p.quotes.GetSwapTransaction(ctx, quote, p.userPubkey)
	if err != nil {
		return nil, "", fmt.Errorf("swap: build transaction: %w", err)
	}

	// 3. Sign.
	signedTx, err := p.signer.SignSerializedTransaction(unsignedTx)
	if err != nil {
		return nil, "", fmt.Errorf("swap: sign transaction: %w", err)
	}

	// 4. Simulate.
	if err := p.rpc.SimulateTransaction(ctx, signedTx); err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrSimulationFailed, blockchain.HumanErrorWithAction(err))
	}

	// 5. Submit (or fabricate, in dry-run).
	var signature string
	if p.dryRun {
		signature = "dryrun-" + uuid.NewString()
	} else {
		signature, err = p.rpc.SendTransaction(ctx, signedTx, true)
		if err != nil {
			return nil, "", fmt.Errorf("%w: submit: %s", ErrExecutionFailed, blockchain.HumanErrorWithAction(err))
		}
	}

	// 6. Confirm.
	if p.dryRun {
		outAmount, _ := decimal.NewFromString(quote.OutAmount)
		return &Result{Signature: signature, OutAmount: uint64(outAmount.IntPart()), DryRun: true}, signature, nil
	}

	if err := p.confirm(ctx, signature); err != nil {
		return nil, signature, err
	}

	outAmount, _ := decimal.NewFromString(quote.OutAmount)
	return &Result{Signature: signature, OutAmount: uint64(outAmount.IntPart())}, signature, nil
}

// confirm polls CheckTransaction every confirmPollInterval until the
// transaction status is SUCCESS, FAILED is reported, or confirmTimeout
// elapses.
func (p *Pipeline) confirm(ctx context.Context, signature string) error {
	deadline := time.Now().Add(confirmTimeout)
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		result, err := p.rpc.CheckTransaction(ctx, signature)
		if err == nil && result != nil {
			switch result.Status {
			case "SUCCESS":
				return nil
			case "FAILED":
				return fmt.Errorf("%w: %s", ErrExecutionFailed, blockchain.HumanErrorWithAction(fmt.Errorf("%v", result.ErrorDetails)))
			}
		}

		if time.Now().After(deadline) {
			return ErrConfirmationTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// previousAttemptLanded re-checks a prior attempt's signature before the
// pipeline issues a fresh quote on retry, so a send that actually landed
// (but whose confirm poll timed out) is not silently resubmitted as a
// second, conflicting transfer. This is the resolution to the partial-
// failure open question: the original _do_swap_with_retry retries blindly
// on any exception, which risks a double-spend if the failure was only in
// observing confirmation, not in the transaction itself.
func (p *Pipeline) previousAttemptLanded(ctx context.Context, signature string) (bool, error) {
	result, err := p.rpc.CheckTransaction(ctx, signature)
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, nil
	}
	return result.Status == "SUCCESS", nil
}
