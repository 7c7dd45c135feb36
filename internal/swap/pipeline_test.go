package swap

import (
	"context"
	"errors"
	"testing"

	"solswap-engine/internal/blockchain"
	"solswap-engine/internal/jupiter"
)

type fakeQuotes struct {
	quoteErr      error
	buildErr      error
	slippagesSeen []int
	outAmount     string
}

func (f *fakeQuotes) GetQuote(ctx context.Context, inputMint, outputMint string, amountRaw uint64, slippageBps int) (*jupiter.QuoteResponse, error) {
	f.slippagesSeen = append(f.slippagesSeen, slippageBps)
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return &jupiter.QuoteResponse{
		InputMint:  inputMint,
		OutputMint: outputMint,
		OutAmount:  f.outAmount,
		RoutePlan:  []jupiter.RoutePlanStep{{Percent: 100}},
	}, nil
}

func (f *fakeQuotes) GetSwapTransaction(ctx context.Context, quote *jupiter.QuoteResponse, userPubkey string) (string, error) {
	if f.buildErr != nil {
		return "", f.buildErr
	}
	return "unsigned-tx", nil
}

type fakeSigner struct{ err error }

func (f *fakeSigner) SignSerializedTransaction(tx string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "signed-" + tx, nil
}

type fakeRPC struct {
	simulateErr        error
	simulateFailCount  int
	sendErr            error
	signatures         []string
	statusByAttemptSig map[string]*blockchain.SignatureStatus
}

func (f *fakeRPC) SimulateTransaction(ctx context.Context, signedTx string) error {
	if f.simulateFailCount > 0 {
		f.simulateFailCount--
		return errors.New("transient simulation failure")
	}
	return f.simulateErr
}

func (f *fakeRPC) SendTransaction(ctx context.Context, signedTx string, skipPreflight bool) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	sig := "sig-" + string(rune('A'+len(f.signatures)))
	f.signatures = append(f.signatures, sig)
	return sig, nil
}

func (f *fakeRPC) CheckTransaction(ctx context.Context, signature string) (*blockchain.TxCheckResult, error) {
	status, ok := f.statusByAttemptSig[signature]
	if !ok {
		return &blockchain.TxCheckResult{Signature: signature, Status: "NOT_FOUND"}, nil
	}
	if status.Err != nil {
		return &blockchain.TxCheckResult{Signature: signature, Status: "FAILED", ErrorDetails: status.Err}, nil
	}
	if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
		return &blockchain.TxCheckResult{Signature: signature, Status: "SUCCESS", ConfirmationStatus: status.ConfirmationStatus}, nil
	}
	return &blockchain.TxCheckResult{Signature: signature, Status: "PENDING", ConfirmationStatus: status.ConfirmationStatus}, nil
}

func finalizedStatus() *blockchain.SignatureStatus {
	return &blockchain.SignatureStatus{ConfirmationStatus: "finalized"}
}

func TestExecuteHappyPath(t *testing.T) {
	quotes := &fakeQuotes{outAmount: "1000"}
	signer := &fakeSigner{}
	rpc := &fakeRPC{statusByAttemptSig: map[string]*blockchain.SignatureStatus{"sig-A": finalizedStatus()}}

	p := New(quotes, rpc, signer, "user-pubkey", false)
	result, err := p.Execute(context.Background(), jupiter.SOLMint, "out-mint", 1_000_000)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", result.Attempts)
	}
	if result.Signature != "sig-A" {
		t.Fatalf("unexpected signature: %s", result.Signature)
	}
	if quotes.slippagesSeen[0] != 50 {
		t.Fatalf("expected first attempt slippage 50, got %d", quotes.slippagesSeen[0])
	}
}

func TestExecuteDryRunSkipsSubmitButRunsEverythingElse(t *testing.T) {
	quotes := &fakeQuotes{outAmount: "500"}
	signer := &fakeSigner{}
	rpc := &fakeRPC{}

	p := New(quotes, rpc, signer, "user-pubkey", true)
	result, err := p.Execute(context.Background(), jupiter.SOLMint, "out-mint", 1_000_000)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.DryRun {
		t.Fatal("expected DryRun result")
	}
	if len(rpc.signatures) != 0 {
		t.Fatal("dry run must not call SendTransaction")
	}
	if result.Signature == "" {
		t.Fatal("expected a fabricated signature even in dry run")
	}
	if len(quotes.slippagesSeen) != 1 {
		t.Fatal("dry run must still call GetQuote for real")
	}
}

func TestExecuteNoRouteFails(t *testing.T) {
	quotes := &fakeQuotes{quoteErr: errors.New("empty route plan")}
	signer := &fakeSigner{}
	rpc := &fakeRPC{}

	p := New(quotes, rpc, signer, "user-pubkey", false)
	_, err := p.Execute(context.Background(), jupiter.SOLMint, "out-mint", 1_000_000)
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
	if len(quotes.slippagesSeen) != maxAttempts {
		t.Fatalf("expected all %d attempts consumed, got %d", maxAttempts, len(quotes.slippagesSeen))
	}
	want := []int{50, 50, 75}
	for i, bps := range want {
		if quotes.slippagesSeen[i] != bps {
			t.Fatalf("attempt %d: expected slippage %d, got %d", i, bps, quotes.slippagesSeen[i])
		}
	}
}

func TestExecuteRetriesWithSlippageProgression(t *testing.T) {
	quotes := &fakeQuotes{outAmount: "1000"}
	signer := &fakeSigner{}
	// Simulation fails on the first two attempts (never reaches Submit, so
	// there is no prior signature to re-poll) and succeeds on the third,
	// which lands and confirms immediately.
	rpc := &fakeRPC{
		simulateFailCount:  2,
		statusByAttemptSig: map[string]*blockchain.SignatureStatus{"sig-A": finalizedStatus()},
	}

	p := New(quotes, rpc, signer, "user-pubkey", false)
	result, err := p.Execute(context.Background(), jupiter.SOLMint, "out-mint", 1_000_000)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Attempts != 3 {
		t.Fatalf("expected confirmation on the third attempt, got %d attempts", result.Attempts)
	}
	want := []int{50, 50, 75}
	for i, bps := range want {
		if quotes.slippagesSeen[i] != bps {
			t.Fatalf("attempt %d: expected slippage %d, got %d", i, bps, quotes.slippagesSeen[i])
		}
	}
}

func TestPreviousAttemptLandedTreatsConfirmedAsSuccess(t *testing.T) {
	rpc := &fakeRPC{statusByAttemptSig: map[string]*blockchain.SignatureStatus{
		"sig-A": {ConfirmationStatus: "confirmed"},
	}}
	p := New(&fakeQuotes{}, rpc, &fakeSigner{}, "user-pubkey", false)

	landed, err := p.previousAttemptLanded(context.Background(), "sig-A")
	if err != nil {
		t.Fatalf("previousAttemptLanded: %v", err)
	}
	if !landed {
		t.Fatal("expected confirmed status to count as landed")
	}
}

func TestPreviousAttemptLandedFalseWhenErrorReported(t *testing.T) {
	rpc := &fakeRPC{statusByAttemptSig: map[string]*blockchain.SignatureStatus{
		"sig-A": {ConfirmationStatus: "confirmed", Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
	}}
	p := New(&fakeQuotes{}, rpc, &fakeSigner{}, "user-pubkey", false)

	landed, err := p.previousAttemptLanded(context.Background(), "sig-A")
	if err != nil {
		t.Fatalf("previousAttemptLanded: %v", err)
	}
	if landed {
		t.Fatal("expected a transaction-level error to not count as landed")
	}
}

func TestExecuteSimulationFailure(t *testing.T) {
	quotes := &fakeQuotes{outAmount: "1000"}
	signer := &fakeSigner{}
	rpc := &fakeRPC{simulateErr: errors.New("insufficient funds in pool")}

	p := New(quotes, rpc, signer, "user-pubkey", false)
	_, err := p.Execute(context.Background(), jupiter.SOLMint, "out-mint", 1_000_000)
	if !errors.Is(err, ErrSimulationFailed) {
		t.Fatalf("expected ErrSimulationFailed, got %v", err)
	}
}
