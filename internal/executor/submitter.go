package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"solana-curve-sniper/internal/errs"
	"solana-curve-sniper/internal/solana"
)

// simulationComputeLimit is the generous cap used only for the
// measurement pass; the real transaction carries the measured budget.
const simulationComputeLimit = 1_400_000

// SubmitterOptions tune the submit/poll/retry loop.
type SubmitterOptions struct {
	MaxRetries     int           // full submit+poll cycles, default 3
	ConfirmTimeout time.Duration // per-attempt poll window, default 45s
	PollInterval   time.Duration // default 2s
	ComputeMargin  float64       // headroom over simulated units, default 0.10
	Clock          Clock
}

func (o *SubmitterOptions) defaults() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = 45 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.ComputeMargin <= 0 {
		o.ComputeMargin = 0.10
	}
	if o.Clock == nil {
		o.Clock = RealClock
	}
}

// Submitter signs a transaction once and drives it to a terminal state.
// Resubmissions reuse the identical signed payload, so a retry can
// never double-execute: the cluster rejects an already-landed id.
type Submitter struct {
	rpc    solana.RPCClient
	wallet *solana.Wallet
	fees   *FeeEstimator
	log    *zap.Logger
	opts   SubmitterOptions
}

func NewSubmitter(rpc solana.RPCClient, wallet *solana.Wallet, fees *FeeEstimator, log *zap.Logger, opts SubmitterOptions) *Submitter {
	opts.defaults()
	return &Submitter{rpc: rpc, wallet: wallet, fees: fees, log: log, opts: opts}
}

// Report summarizes one reliable submission.
type Report struct {
	Signature string // last-seen signature, possibly unconfirmed
	Blockhash string // anchor blockhash shared by every attempt
	Attempts  int    // submission attempts actually made
}

// Submit executes the instruction set reliably.
//
// It anchors at a fresh blockhash, prepends compute-budget
// instructions (priority fee from the estimator, doubled when urgent;
// unit limit measured by simulation plus margin), signs once, then
// submits and polls for confirmation, resubmitting the same payload
// on timeout up to the retry cap.
//
// The returned signature is non-empty whenever any submission reached
// the network, including on error: an unconfirmed-but-submitted
// transaction may still land, and the caller must be able to
// reconcile it later.
func (s *Submitter) Submit(ctx context.Context, instructions []solana.Instruction, urgent bool) (string, error) {
	report, err := s.SubmitWithReport(ctx, instructions, urgent)
	return report.Signature, err
}

// SubmitWithReport is Submit plus the attempt count, for persistence.
func (s *Submitter) SubmitWithReport(ctx context.Context, instructions []solana.Instruction, urgent bool) (Report, error) {
	var report Report

	fee, err := s.fees.MicroLamportsPerCU(ctx, urgent)
	if err != nil {
		return report, errs.Transient("estimate priority fee", err)
	}

	bh, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return report, classify("fetch blockhash", err)
	}
	report.Blockhash = bh.Blockhash

	units, err := s.measureComputeUnits(ctx, bh.Blockhash, fee, instructions)
	if err != nil {
		return report, err
	}

	final := make([]solana.Instruction, 0, len(instructions)+2)
	final = append(final, solana.SetComputeUnitLimit(units), solana.SetComputeUnitPrice(fee))
	final = append(final, instructions...)

	tx, err := solana.BuildTransaction(s.wallet, bh.Blockhash, final)
	if err != nil {
		return report, errs.Fatal("build transaction", err)
	}

	payload := tx.Base64()
	var lastErr error

	for attempt := 1; attempt <= s.opts.MaxRetries; attempt++ {
		report.Attempts = attempt
		sig, err := s.rpc.SendTransaction(ctx, payload)
		if err != nil {
			cls := classify("send transaction", err)
			if errs.IsFatal(cls) {
				return report, cls
			}
			lastErr = cls
			s.log.Warn("submission attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		report.Signature = sig

		s.log.Info("transaction submitted",
			zap.String("signature", sig),
			zap.Int("attempt", attempt),
			zap.Uint64("priority_fee", fee),
			zap.Uint32("compute_units", units))

		confirmed, err := s.awaitConfirmation(ctx, sig)
		if err != nil {
			if errs.IsFatal(err) {
				return report, err
			}
			lastErr = err
			continue
		}
		if confirmed {
			return report, nil
		}
		// Poll window elapsed without a verdict. The payload is
		// unchanged, so resubmitting is safe.
		lastErr = errs.Transient("await confirmation",
			fmt.Errorf("not confirmed within %s (attempt %d)", s.opts.ConfirmTimeout, attempt))
		s.log.Warn("confirmation timed out, resubmitting",
			zap.String("signature", sig),
			zap.Int("attempt", attempt))
	}

	if lastErr == nil {
		lastErr = errs.Transient("submit", fmt.Errorf("exhausted %d attempts", s.opts.MaxRetries))
	}
	return report, fmt.Errorf("exhausted %d attempts (last signature %q): %w", s.opts.MaxRetries, report.Signature, lastErr)
}

// measureComputeUnits simulates the instruction set under a generous
// limit and returns the consumed units plus margin.
func (s *Submitter) measureComputeUnits(ctx context.Context, blockhash string, fee uint64, instructions []solana.Instruction) (uint32, error) {
	simIx := make([]solana.Instruction, 0, len(instructions)+2)
	simIx = append(simIx, solana.SetComputeUnitLimit(simulationComputeLimit), solana.SetComputeUnitPrice(fee))
	simIx = append(simIx, instructions...)

	simTx, err := solana.BuildTransaction(s.wallet, blockhash, simIx)
	if err != nil {
		return 0, errs.Fatal("build simulation transaction", err)
	}

	res, err := s.rpc.SimulateTransaction(ctx, simTx.Base64())
	if err != nil {
		return 0, classify("simulate transaction", err)
	}
	if res.Err != nil {
		return 0, errs.Fatal("simulate transaction", fmt.Errorf("simulation failed: %v (logs: %s)", res.Err, strings.Join(res.Logs, "; ")))
	}

	units := uint64(float64(res.UnitsConsumed) * (1 + s.opts.ComputeMargin))
	if units == 0 || units > simulationComputeLimit {
		units = simulationComputeLimit
	}
	return uint32(units), nil
}

// awaitConfirmation polls signature status until confirmed, failed, or
// the per-attempt window elapses. Returns (false, nil) on a clean
// timeout so the caller can resubmit.
func (s *Submitter) awaitConfirmation(ctx context.Context, sig string) (bool, error) {
	deadline := s.opts.Clock.Now().Add(s.opts.ConfirmTimeout)
	for {
		select {
		case <-ctx.Done():
			return false, errs.Transient("await confirmation", ctx.Err())
		case <-s.opts.Clock.After(s.opts.PollInterval):
		}

		statuses, err := s.rpc.GetSignatureStatuses(ctx, []string{sig})
		if err != nil {
			// Status endpoint blips are not submission failures; keep
			// polling until the window closes.
			s.log.Debug("signature status fetch failed", zap.String("signature", sig), zap.Error(err))
		} else if len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return false, errs.Fatal("await confirmation",
					fmt.Errorf("transaction %s failed on chain: %v", sig, st.Err))
			}
			if st.Confirmed() {
				return true, nil
			}
		}

		if s.opts.Clock.Now().After(deadline) {
			return false, nil
		}
	}
}

// classify maps an RPC-layer error onto the execution taxonomy.
// Structured node errors are validation failures unless they name a
// congestion condition; transport errors and timeouts are transient.
func classify(op string, err error) error {
	var rpcErr *solana.RPCError
	if errors.As(err, &rpcErr) {
		msg := strings.ToLower(rpcErr.Message)
		switch {
		case rpcErr.Code == -32004, // block not available
			rpcErr.Code == -32005, // node unhealthy
			rpcErr.Code == -32014, // block status not yet available
			strings.Contains(msg, "congest"),
			strings.Contains(msg, "rate limit"),
			strings.Contains(msg, "too many requests"):
			return errs.Transient(op, err)
		default:
			return errs.Fatal(op, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.Transient(op, err)
	}
	// Anything else came from the transport.
	return errs.Transient(op, err)
}
