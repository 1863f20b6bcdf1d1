// Package decision computes trade/no-trade decisions from pre-fetched inputs.
//
// The engine is pure: the orchestrator fetches safety, holder, and
// reputation data first and passes plain values in, so evaluation is
// deterministic and never blocks.
package decision

import (
	"fmt"
	"time"

	"solana-curve-sniper/internal/domain"
)

// Inputs are everything one evaluation needs. Safety, Holders, and
// Reputation are nil when the corresponding fetch failed; per the
// fail-closed default, nil rejects.
type Inputs struct {
	Candidate  domain.Candidate
	Validation domain.ValidationResult
	Safety     *domain.SafetyVerdict
	Holders    *domain.HolderConcentration
	Reputation *domain.ReputationSignal
}

// Engine applies the ordered admission rules and sizes the position.
type Engine struct {
	profile domain.RiskProfile
	now     func() time.Time
}

// New creates an Engine for the given risk profile.
func New(profile domain.RiskProfile) *Engine {
	return &Engine{profile: profile, now: time.Now}
}

// Evaluate runs the admission steps in order, short-circuiting to a
// reject on the first failure. Every step appends to the audit trail
// regardless of outcome, so approvals carry a full reason chain too.
func (e *Engine) Evaluate(in Inputs) domain.TradeDecision {
	d := domain.TradeDecision{
		Mint:       in.Candidate.Mint,
		ComputedAt: e.now(),
	}
	reject := func(format string, args ...interface{}) domain.TradeDecision {
		d.Reasons = append(d.Reasons, fmt.Sprintf(format, args...))
		return d
	}

	// Step 0: validation gate. No decision without a passing validation.
	if !in.Validation.Passed {
		return reject("validation failed: %s", in.Validation.Reason)
	}
	d.Reasons = append(d.Reasons, "validation passed")

	// Step 1: safety verdict, fail-closed.
	if in.Safety == nil {
		return reject("safety data unavailable, rejecting (fail-closed)")
	}
	if !in.Safety.IsSafe {
		return reject("safety verdict unsafe, flags: %v", in.Safety.Flags)
	}
	if in.Safety.HasCriticalFlag() {
		return reject("critical authority flag present: %v", in.Safety.Flags)
	}
	d.Reasons = append(d.Reasons, fmt.Sprintf("safety verdict clean (%d flags)", len(in.Safety.Flags)))

	// Step 2: holder concentration, fail-closed.
	if in.Holders == nil {
		return reject("holder data unavailable, rejecting (fail-closed)")
	}
	if in.Holders.Top1Percent > e.profile.MaxTop1HolderPct {
		return reject("top holder %.1f%% exceeds %.1f%%", in.Holders.Top1Percent, e.profile.MaxTop1HolderPct)
	}
	if in.Holders.Top10Percent > e.profile.MaxTop10HolderPct {
		return reject("top-10 holders %.1f%% exceed %.1f%%", in.Holders.Top10Percent, e.profile.MaxTop10HolderPct)
	}
	if in.Holders.HolderCount < e.profile.MinHolderCount {
		return reject("holder count %d below floor %d", in.Holders.HolderCount, e.profile.MinHolderCount)
	}
	d.Reasons = append(d.Reasons, fmt.Sprintf("holder distribution acceptable (top1 %.1f%%, top10 %.1f%%, %d holders)",
		in.Holders.Top1Percent, in.Holders.Top10Percent, in.Holders.HolderCount))

	// Step 3: reputation signal.
	wallets := 0
	if in.Reputation != nil {
		wallets = in.Reputation.QualifyingWallet
	}
	if e.profile.RequireSmartWallet && wallets == 0 {
		return reject("no qualifying wallet signal (profile requires at least one)")
	}
	d.Reasons = append(d.Reasons, fmt.Sprintf("reputation signal: %d qualifying wallets", wallets))

	// Step 4: position sizing.
	size := e.profile.BasePositionSol
	if wallets >= 3 {
		size *= 1.5
		d.Reasons = append(d.Reasons, "size scaled up 1.5x for strong reputation signal")
	} else if wallets == 2 {
		size *= 1.25
		d.Reasons = append(d.Reasons, "size scaled up 1.25x for reputation signal")
	}
	for _, f := range in.Safety.Flags {
		if !f.Critical() {
			size *= 0.5
			d.Reasons = append(d.Reasons, fmt.Sprintf("size halved for risk flag %s", f))
			break
		}
	}
	if size < e.profile.MinPositionSol {
		size = e.profile.MinPositionSol
		d.Reasons = append(d.Reasons, fmt.Sprintf("size clamped to minimum %.3f SOL", size))
	}
	if size > e.profile.MaxPositionSol {
		size = e.profile.MaxPositionSol
		d.Reasons = append(d.Reasons, fmt.Sprintf("size clamped to maximum %.3f SOL", size))
	}

	// Step 5: liquidity floor against the final size.
	if in.Validation.LiquiditySol < e.profile.MinLiquiditySol {
		return reject("liquidity %.2f SOL below floor %.2f", in.Validation.LiquiditySol, e.profile.MinLiquiditySol)
	}
	d.Reasons = append(d.Reasons, fmt.Sprintf("liquidity %.2f SOL above floor", in.Validation.LiquiditySol))

	d.ShouldTrade = true
	d.SizeSol = size
	d.Reasons = append(d.Reasons, fmt.Sprintf("approved: size %.3f SOL", size))
	return d
}
