package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"solana-curve-sniper/internal/solana"
)

// FeeEstimator recommends a compute-unit price from recent network
// prioritization fees. Estimates are cached for a short TTL so a burst
// of submissions does not hammer the fee endpoint.
type FeeEstimator struct {
	rpc   solana.RPCClient
	clock Clock

	// Percentile of the recent fee distribution to target, in [0,1].
	percentile float64
	// Floor applied when the network reports no or zero fees.
	baseTipLamports uint64
	ttl             time.Duration

	mu       sync.Mutex
	cached   uint64
	cachedAt time.Time
}

type FeeOptions struct {
	Percentile      float64
	BaseTipLamports uint64
	TTL             time.Duration
	Clock           Clock
}

func NewFeeEstimator(rpc solana.RPCClient, opts FeeOptions) *FeeEstimator {
	if opts.Percentile <= 0 || opts.Percentile > 1 {
		opts.Percentile = 0.75
	}
	if opts.BaseTipLamports == 0 {
		opts.BaseTipLamports = 100_000
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = RealClock
	}
	return &FeeEstimator{
		rpc:             rpc,
		clock:           opts.Clock,
		percentile:      opts.Percentile,
		baseTipLamports: opts.BaseTipLamports,
		ttl:             opts.TTL,
	}
}

// MicroLamportsPerCU returns the recommended compute-unit price.
// urgent doubles the estimate; exits pay up for inclusion speed.
func (f *FeeEstimator) MicroLamportsPerCU(ctx context.Context, urgent bool) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cachedAt.IsZero() || f.clock.Now().Sub(f.cachedAt) > f.ttl {
		est, err := f.estimate(ctx)
		if err != nil {
			if f.cachedAt.IsZero() {
				return 0, err
			}
			// Stale cache beats no estimate during a fee-endpoint blip.
		} else {
			f.cached = est
			f.cachedAt = f.clock.Now()
		}
	}

	fee := f.cached
	if urgent {
		fee *= 2
	}
	return fee, nil
}

func (f *FeeEstimator) estimate(ctx context.Context) (uint64, error) {
	fees, err := f.rpc.GetRecentPrioritizationFees(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("fetch prioritization fees: %w", err)
	}

	nonzero := make([]uint64, 0, len(fees))
	for _, pf := range fees {
		if pf.PrioritizationFee > 0 {
			nonzero = append(nonzero, pf.PrioritizationFee)
		}
	}
	if len(nonzero) == 0 {
		return f.baseTipLamports, nil
	}
	sort.Slice(nonzero, func(i, j int) bool { return nonzero[i] < nonzero[j] })

	idx := int(float64(len(nonzero)-1) * f.percentile)
	est := nonzero[idx]
	if est < f.baseTipLamports {
		est = f.baseTipLamports
	}
	return est, nil
}
