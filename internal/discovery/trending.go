package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-curve-sniper/internal/domain"
)

// TrendingConfig tunes the periodic trending scan.
type TrendingConfig struct {
	// Window bounds how long a mint stays eligible for re-scanning.
	Window time.Duration
	// MinLiquidityGrowthSol is the SOL inflow since first sight that
	// marks a curve as trending.
	MinLiquidityGrowthSol float64
	// MaxTracked bounds the watch set; oldest entries are dropped first.
	MaxTracked int
}

// DefaultTrendingConfig returns the default scan configuration.
func DefaultTrendingConfig() TrendingConfig {
	return TrendingConfig{
		Window:                30 * time.Minute,
		MinLiquidityGrowthSol: 15,
		MaxTracked:            512,
	}
}

type watchedMint struct {
	candidate    domain.Candidate
	firstSeen    time.Time
	baseLiqSol   float64
	emitted      bool
}

// TrendingScanner re-checks recently listed curves and emits those whose
// liquidity grew past the threshold as TRENDING candidates. It is the
// second discovery stream: listings the new-listing path rejected young
// can still be admitted once real inflow shows up.
type TrendingScanner struct {
	cfg    TrendingConfig
	curves CurveReader
	logger *zap.Logger

	mu      sync.Mutex
	watched map[string]*watchedMint
	order   []string

	out chan domain.Candidate
}

// NewTrendingScanner creates a trending scanner.
func NewTrendingScanner(cfg TrendingConfig, curves CurveReader, logger *zap.Logger) *TrendingScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrendingScanner{
		cfg:     cfg,
		curves:  curves,
		logger:  logger,
		watched: make(map[string]*watchedMint),
		out:     make(chan domain.Candidate, 64),
	}
}

// Candidates returns the trending output stream.
func (s *TrendingScanner) Candidates() <-chan domain.Candidate {
	return s.out
}

// Track registers a discovered mint for later re-scanning.
func (s *TrendingScanner) Track(c domain.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.watched[c.Mint]; ok {
		return
	}
	s.watched[c.Mint] = &watchedMint{
		candidate:  c,
		firstSeen:  time.Now(),
		baseLiqSol: c.LiquidityEstimate,
	}
	s.order = append(s.order, c.Mint)

	for len(s.order) > s.cfg.MaxTracked {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.watched, oldest)
	}
}

// Run scans on the given interval until the context is cancelled.
func (s *TrendingScanner) Run(ctx context.Context, interval time.Duration) error {
	defer close(s.out)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *TrendingScanner) scan(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	targets := make([]*watchedMint, 0, len(s.watched))
	for _, w := range s.watched {
		if !w.emitted && now.Sub(w.firstSeen) <= s.cfg.Window {
			targets = append(targets, w)
		}
	}
	s.mu.Unlock()

	for _, w := range targets {
		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		state, err := s.curves.ReadCurve(fetchCtx, w.candidate.Mint)
		cancel()
		if err != nil || state == nil || state.Complete {
			continue
		}

		growth := state.LiquiditySol() - w.baseLiqSol
		if growth < s.cfg.MinLiquidityGrowthSol {
			continue
		}

		c := w.candidate
		c.Source = domain.SourceTrending
		c.MarketCapEstimate = state.MarketCapSol()
		c.LiquidityEstimate = state.LiquiditySol()
		c.DiscoveredAt = now

		select {
		case s.out <- c:
			s.mu.Lock()
			w.emitted = true
			s.mu.Unlock()
			s.logger.Info("trending curve detected",
				zap.String("mint", c.Mint),
				zap.Float64("liquidity_growth_sol", growth))
		case <-ctx.Done():
			return
		}
	}
}
