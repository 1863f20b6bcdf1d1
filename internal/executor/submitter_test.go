package executor

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"solana-curve-sniper/internal/errs"
	"solana-curve-sniper/internal/solana"
	"solana-curve-sniper/internal/solana/stub"
)

func testWallet(t *testing.T) *solana.Wallet {
	t.Helper()
	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)
	priv := ed25519.NewKeyFromSeed(seed)
	w, err := solana.NewWalletFromBase58(base58.Encode(priv))
	if err != nil {
		t.Fatalf("build test wallet: %v", err)
	}
	return w
}

func testInstructions(w *solana.Wallet) []solana.Instruction {
	return []solana.Instruction{
		solana.Transfer(w.Pubkey(), solana.MustPubkey("11111111111111111111111111111111"), 1),
	}
}

func newTestSubmitter(t *testing.T, rpc *stub.RPC, clock *fakeClock) *Submitter {
	t.Helper()
	fees := NewFeeEstimator(rpc, FeeOptions{Clock: clock})
	return NewSubmitter(rpc, testWallet(t), fees, zap.NewNop(), SubmitterOptions{
		MaxRetries:     3,
		ConfirmTimeout: 45 * time.Second,
		PollInterval:   2 * time.Second,
		Clock:          clock,
	})
}

func confirmedStatus() []*solana.SignatureStatus {
	return []*solana.SignatureStatus{{ConfirmationStatus: "confirmed"}}
}

func TestSubmit_ConfirmsFirstAttempt(t *testing.T) {
	rpc := &stub.RPC{
		GetSignatureStatusesFunc: func(_ context.Context, sigs []string) ([]*solana.SignatureStatus, error) {
			return confirmedStatus(), nil
		},
	}
	clock := newFakeClock()
	s := newTestSubmitter(t, rpc, clock)

	rep, err := s.SubmitWithReport(context.Background(), testInstructions(testWallet(t)), false)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if rep.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", rep.Attempts)
	}
	if rep.Signature == "" {
		t.Error("Expected a signature")
	}
	if rep.Blockhash == "" {
		t.Error("Expected the anchor blockhash on the report")
	}
	if rpc.SendCount != 1 {
		t.Errorf("Expected exactly 1 send, got %d", rpc.SendCount)
	}
}

func TestSubmit_ResubmitsIdenticalPayloadAfterTimeout(t *testing.T) {
	var payloads []string
	rpc := &stub.RPC{}
	rpc.SendTransactionFunc = func(_ context.Context, tx string) (string, error) {
		payloads = append(payloads, tx)
		return "sig-attempt", nil
	}
	rpc.GetSignatureStatusesFunc = func(_ context.Context, sigs []string) ([]*solana.SignatureStatus, error) {
		// No verdict until the third submission.
		if rpc.SendCount < 3 {
			return []*solana.SignatureStatus{nil}, nil
		}
		return confirmedStatus(), nil
	}
	clock := newFakeClock()
	s := newTestSubmitter(t, rpc, clock)

	rep, err := s.SubmitWithReport(context.Background(), testInstructions(testWallet(t)), false)
	if err != nil {
		t.Fatalf("Submit failed after resubmits: %v", err)
	}
	if rep.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", rep.Attempts)
	}
	if len(payloads) != 3 {
		t.Fatalf("Expected 3 submissions, got %d", len(payloads))
	}
	// Signed once; every resubmission carries the exact same payload.
	if payloads[0] != payloads[1] || payloads[1] != payloads[2] {
		t.Error("resubmissions must reuse the identical signed payload")
	}
}

func TestSubmit_ExhaustionReturnsLastSignature(t *testing.T) {
	rpc := &stub.RPC{
		GetSignatureStatusesFunc: func(_ context.Context, sigs []string) ([]*solana.SignatureStatus, error) {
			return []*solana.SignatureStatus{nil}, nil
		},
	}
	clock := newFakeClock()
	s := newTestSubmitter(t, rpc, clock)

	rep, err := s.SubmitWithReport(context.Background(), testInstructions(testWallet(t)), false)
	if err == nil {
		t.Fatal("exhausted attempts must return an error")
	}
	if rep.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", rep.Attempts)
	}
	// The last signature survives for operator reconciliation.
	if rep.Signature == "" {
		t.Error("exhaustion must still report the last signature")
	}
	if !strings.Contains(err.Error(), rep.Signature) {
		t.Errorf("error should name the last signature, got: %v", err)
	}
	if !errs.IsTransient(err) && !strings.Contains(err.Error(), "exhausted") {
		t.Errorf("Expected exhaustion error, got: %v", err)
	}
}

func TestSubmit_FatalSendErrorStopsRetries(t *testing.T) {
	rpc := &stub.RPC{
		SendTransactionFunc: func(_ context.Context, _ string) (string, error) {
			return "", &solana.RPCError{Code: -32602, Message: "invalid params"}
		},
	}
	clock := newFakeClock()
	s := newTestSubmitter(t, rpc, clock)

	_, err := s.SubmitWithReport(context.Background(), testInstructions(testWallet(t)), false)
	if err == nil {
		t.Fatal("Expected error")
	}
	if !errs.IsFatal(err) {
		t.Errorf("Expected fatal classification, got: %v", err)
	}
	if rpc.SendCount != 1 {
		t.Errorf("fatal error must not be retried, sent %d times", rpc.SendCount)
	}
}

func TestSubmit_CongestionErrorRetries(t *testing.T) {
	rpc := &stub.RPC{}
	rpc.SendTransactionFunc = func(_ context.Context, _ string) (string, error) {
		if rpc.SendCount < 2 {
			return "", &solana.RPCError{Code: -32005, Message: "node is behind"}
		}
		return "sig-ok", nil
	}
	rpc.GetSignatureStatusesFunc = func(_ context.Context, sigs []string) ([]*solana.SignatureStatus, error) {
		return confirmedStatus(), nil
	}
	clock := newFakeClock()
	s := newTestSubmitter(t, rpc, clock)

	rep, err := s.SubmitWithReport(context.Background(), testInstructions(testWallet(t)), false)
	if err != nil {
		t.Fatalf("Submit should recover from congestion: %v", err)
	}
	if rep.Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", rep.Attempts)
	}
}

func TestSubmit_OnChainFailureIsFatal(t *testing.T) {
	rpc := &stub.RPC{
		GetSignatureStatusesFunc: func(_ context.Context, sigs []string) ([]*solana.SignatureStatus, error) {
			return []*solana.SignatureStatus{{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}}}, nil
		},
	}
	clock := newFakeClock()
	s := newTestSubmitter(t, rpc, clock)

	_, err := s.SubmitWithReport(context.Background(), testInstructions(testWallet(t)), false)
	if err == nil {
		t.Fatal("Expected error for on-chain failure")
	}
	if !errs.IsFatal(err) {
		t.Errorf("on-chain failure must be fatal, got: %v", err)
	}
	if rpc.SendCount != 1 {
		t.Errorf("on-chain failure must not be resubmitted, sent %d times", rpc.SendCount)
	}
}

func TestSubmit_SimulationFailureAborts(t *testing.T) {
	rpc := &stub.RPC{
		SimulateTransactionFunc: func(_ context.Context, _ string) (*solana.SimulationResult, error) {
			return &solana.SimulationResult{
				Err:  "InstructionError",
				Logs: []string{"Program log: insufficient funds"},
			}, nil
		},
	}
	clock := newFakeClock()
	s := newTestSubmitter(t, rpc, clock)

	_, err := s.SubmitWithReport(context.Background(), testInstructions(testWallet(t)), false)
	if err == nil {
		t.Fatal("Expected error for failed simulation")
	}
	if !errs.IsFatal(err) {
		t.Errorf("simulation failure must be fatal, got: %v", err)
	}
	if rpc.SendCount != 0 {
		t.Errorf("failed simulation must never submit, sent %d times", rpc.SendCount)
	}
	if !strings.Contains(err.Error(), "insufficient funds") {
		t.Errorf("error should carry simulation logs, got: %v", err)
	}
}

func TestSubmit_StatusBlipsDoNotFailAttempt(t *testing.T) {
	calls := 0
	rpc := &stub.RPC{}
	rpc.GetSignatureStatusesFunc = func(_ context.Context, sigs []string) ([]*solana.SignatureStatus, error) {
		calls++
		if calls < 3 {
			return nil, &solana.RPCError{Code: -32005, Message: "node is behind"}
		}
		return confirmedStatus(), nil
	}
	clock := newFakeClock()
	s := newTestSubmitter(t, rpc, clock)

	rep, err := s.SubmitWithReport(context.Background(), testInstructions(testWallet(t)), false)
	if err != nil {
		t.Fatalf("status blips should not fail the attempt: %v", err)
	}
	if rep.Attempts != 1 {
		t.Errorf("Expected confirmation within attempt 1, got %d attempts", rep.Attempts)
	}
}
