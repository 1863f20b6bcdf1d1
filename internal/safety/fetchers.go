// Package safety defines the external-verdict contracts the decision
// engine depends on, plus fail-closed wrappers around them.
//
// Scoring internals live elsewhere; the pipeline only needs the
// verdicts, and needs fetch failure to read as "unsafe", never "pass".
package safety

import (
	"context"
	"time"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/errs"
)

// VerdictFetcher returns a token-safety assessment.
type VerdictFetcher interface {
	FetchSafetyVerdict(ctx context.Context, mint string) (*domain.SafetyVerdict, error)
}

// HolderFetcher returns a holder-distribution snapshot.
type HolderFetcher interface {
	FetchHolderConcentration(ctx context.Context, mint string) (*domain.HolderConcentration, error)
}

// ReputationFetcher counts qualifying wallets seen in the asset.
type ReputationFetcher interface {
	FetchReputationSignal(ctx context.Context, mint string) (*domain.ReputationSignal, error)
}

// Bundle groups all three fetchers behind one fail-closed gateway.
// Every fetch gets its own timeout; a failed fetch returns
// DataUnavailableError and nil data so the decision engine rejects.
type Bundle struct {
	Verdict    VerdictFetcher
	Holders    HolderFetcher
	Reputation ReputationFetcher
	Timeout    time.Duration
}

func NewBundle(v VerdictFetcher, h HolderFetcher, r ReputationFetcher, timeout time.Duration) *Bundle {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Bundle{Verdict: v, Holders: h, Reputation: r, Timeout: timeout}
}

// SafetyVerdict fetches with a bounded deadline.
func (b *Bundle) SafetyVerdict(ctx context.Context, mint string) (*domain.SafetyVerdict, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()
	v, err := b.Verdict.FetchSafetyVerdict(ctx, mint)
	if err != nil {
		return nil, errs.DataUnavailable("safety", err)
	}
	return v, nil
}

// HolderConcentration fetches with a bounded deadline.
func (b *Bundle) HolderConcentration(ctx context.Context, mint string) (*domain.HolderConcentration, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()
	h, err := b.Holders.FetchHolderConcentration(ctx, mint)
	if err != nil {
		return nil, errs.DataUnavailable("holder", err)
	}
	return h, nil
}

// ReputationSignal fetches with a bounded deadline. Unlike safety and
// holder data, a missing reputation signal is not fatal; callers treat
// a nil result as "no signal".
func (b *Bundle) ReputationSignal(ctx context.Context, mint string) (*domain.ReputationSignal, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()
	r, err := b.Reputation.FetchReputationSignal(ctx, mint)
	if err != nil {
		return nil, errs.DataUnavailable("reputation", err)
	}
	return r, nil
}
