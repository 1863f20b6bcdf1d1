// Package ledger owns open-position state and exit decisions.
//
// All Position mutation goes through the Ledger; other components read
// snapshots. Tick evaluates exit triggers for a price observation and
// returns exit orders for the execution layer to act on.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/idhash"
)

// ExitOrder instructs the execution layer to sell a fraction of a
// position. FractionOfOriginal is relative to the original entry
// token amount, matching how take-profit levels are configured.
type ExitOrder struct {
	Position           domain.Position
	Reason             string // one of the domain.ExitReason* constants
	FractionOfOriginal float64
	TakeProfitIndex    int // -1 for stop-loss and trailing exits
}

// BuybackEvent fires when a position closes at an overall profit.
type BuybackEvent struct {
	Mint      string
	ProfitSol float64
}

// Ledger tracks open positions keyed by mint.
type Ledger struct {
	mu        sync.Mutex
	positions map[string]*domain.Position
	// mints with a full-exit trade in flight; ticks are suppressed
	// until RecordExit or AbortExit clears the flag.
	exitPending map[string]bool
	// fractions latched by take-profit triggers whose exit trades have
	// not confirmed yet, keyed by mint. RecordExit moves a fraction
	// from here into Position.ExitedFraction; AbortExit returns it to
	// the sellable pool.
	pendingFrac map[string]float64

	profile domain.RiskProfile
	log     *zap.Logger
	now     func() time.Time
}

func New(profile domain.RiskProfile, log *zap.Logger) *Ledger {
	return &Ledger{
		positions:   make(map[string]*domain.Position),
		exitPending: make(map[string]bool),
		pendingFrac: make(map[string]float64),
		profile:     profile,
		log:         log,
		now:         time.Now,
	}
}

// Open records a new position from a confirmed entry trade.
// Returns an error when a position for the mint is already open.
func (l *Ledger) Open(mint, symbol string, entryPrice, amountSol, amountToken float64, signature string) (domain.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.positions[mint]; ok {
		return domain.Position{}, fmt.Errorf("position already open for mint %s", mint)
	}

	now := l.now()
	levels := make([]domain.TakeProfitLevel, len(l.profile.TakeProfits))
	copy(levels, l.profile.TakeProfits)

	p := &domain.Position{
		ID:               idhash.PositionID(mint, signature),
		Mint:             mint,
		Symbol:           symbol,
		EntryPrice:       entryPrice,
		EntryAmountSol:   amountSol,
		EntryAmountToken: amountToken,
		EntrySignature:   signature,
		EntryAt:          now,
		HighestPriceSeen: entryPrice,
		LowestPriceSeen:  entryPrice,
		StopLossPrice:    entryPrice * (1 - l.profile.StopLossPct),
		TrailingStopPct:  l.profile.TrailingStopPct,
		TakeProfitLevels: levels,
		Status:           domain.PositionOpen,
		UpdatedAt:        now,
	}
	l.positions[mint] = p

	l.log.Info("position opened",
		zap.String("mint", mint),
		zap.Float64("entry_price", entryPrice),
		zap.Float64("size_sol", amountSol),
		zap.String("signature", signature))
	return *p, nil
}

// Restore re-inserts a persisted open position after restart.
func (l *Ledger) Restore(p domain.Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.positions[p.Mint]; ok {
		return fmt.Errorf("position already open for mint %s", p.Mint)
	}
	cp := p
	l.positions[p.Mint] = &cp
	return nil
}

// Tick applies a fresh price observation to an open position. It
// updates price extremes and the trailing stop, then evaluates exit
// triggers in priority order: stop-loss first (full exit), trailing
// stop second (full exit of the remainder), take-profit levels last,
// in ascending multiple order, each level firing at most once.
// Multiple take-profit levels crossed by one observation all fire in
// the same call. Emitted triggers are latched immediately (levels
// marked sold, full exits suppress further ticks) so a slow
// confirmation cannot double-fire them; AbortExit unlatches on a
// failed exit trade.
func (l *Ledger) Tick(mint string, price float64) ([]ExitOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[mint]
	if !ok {
		return nil, fmt.Errorf("no open position for mint %s", mint)
	}

	p.UpdatedAt = l.now()
	if price > p.HighestPriceSeen {
		p.HighestPriceSeen = price
	}
	if price < p.LowestPriceSeen {
		p.LowestPriceSeen = price
	}

	// Trailing stop arms once price reaches the first take-profit
	// multiple, then only ratchets upward with new highs.
	if p.TrailingStopPct > 0 && !p.TrailingArmed && len(p.TakeProfitLevels) > 0 {
		if price >= p.EntryPrice*lowestMultiple(p.TakeProfitLevels) {
			p.TrailingArmed = true
		}
	}
	if p.TrailingArmed {
		candidate := p.HighestPriceSeen * (1 - p.TrailingStopPct)
		if candidate > p.TrailingStopPrice {
			p.TrailingStopPrice = candidate
		}
	}

	if l.exitPending[mint] {
		return nil, nil
	}
	// Only the confirmed-held, not-in-flight fraction is sellable.
	remaining := p.RemainingFraction() - l.pendingFrac[mint]
	if remaining <= 0 {
		return nil, nil
	}

	if price <= p.StopLossPrice {
		l.exitPending[mint] = true
		return []ExitOrder{{
			Position:           *p,
			Reason:             domain.ExitReasonStopLoss,
			FractionOfOriginal: remaining,
			TakeProfitIndex:    -1,
		}}, nil
	}

	if p.TrailingArmed && p.TrailingStopPrice > 0 && price <= p.TrailingStopPrice {
		l.exitPending[mint] = true
		return []ExitOrder{{
			Position:           *p,
			Reason:             domain.ExitReasonTrailingStop,
			FractionOfOriginal: remaining,
			TakeProfitIndex:    -1,
		}}, nil
	}

	var orders []ExitOrder
	for _, i := range sortedLevelIndexes(p.TakeProfitLevels) {
		lvl := &p.TakeProfitLevels[i]
		if lvl.Sold {
			continue
		}
		if price < p.EntryPrice*lvl.PriceMultiple {
			break
		}
		frac := lvl.FractionToSell
		if frac > remaining {
			frac = remaining
		}
		if frac <= 0 {
			break
		}
		lvl.Sold = true
		l.pendingFrac[mint] += frac
		orders = append(orders, ExitOrder{
			Position:           *p,
			Reason:             domain.ExitReasonTakeProfit,
			FractionOfOriginal: frac,
			TakeProfitIndex:    i,
		})
		remaining -= frac
	}
	return orders, nil
}

// fracEpsilon absorbs float error when configured level fractions sum
// to exactly 1.
const fracEpsilon = 1e-9

// RecordExit applies a confirmed exit trade to the position. Each order
// from a tick is recorded separately as its trade confirms; the position
// closes only when the confirmed exited fraction covers the whole
// holding. A BuybackEvent is returned on full close at an overall
// profit.
func (l *Ledger) RecordExit(order ExitOrder, exitPrice, pnlSol float64, signature string) (domain.Position, *BuybackEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[order.Position.Mint]
	if !ok {
		return domain.Position{}, nil, fmt.Errorf("no open position for mint %s", order.Position.Mint)
	}

	p.RealizedPnlSol += pnlSol
	p.ExitedFraction += order.FractionOfOriginal
	if p.ExitedFraction > 1 {
		p.ExitedFraction = 1
	}
	p.UpdatedAt = l.now()
	if order.TakeProfitIndex >= 0 {
		l.pendingFrac[p.Mint] -= order.FractionOfOriginal
		if l.pendingFrac[p.Mint] <= fracEpsilon {
			delete(l.pendingFrac, p.Mint)
		}
	} else {
		delete(l.exitPending, p.Mint)
	}

	closed := order.Reason == domain.ExitReasonStopLoss ||
		order.Reason == domain.ExitReasonTrailingStop ||
		order.Reason == domain.ExitReasonManual ||
		p.RemainingFraction() < fracEpsilon
	if closed {
		p.Status = domain.PositionClosed
		delete(l.positions, p.Mint)
	} else {
		p.Status = domain.PositionPartiallyClosed
	}

	l.log.Info("position exit recorded",
		zap.String("mint", p.Mint),
		zap.String("reason", order.Reason),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("pnl_sol", pnlSol),
		zap.Bool("closed", closed),
		zap.String("signature", signature))

	var buyback *BuybackEvent
	if closed && p.RealizedPnlSol > 0 {
		buyback = &BuybackEvent{Mint: p.Mint, ProfitSol: p.RealizedPnlSol}
	}
	return *p, buyback, nil
}

// AbortExit unlatches a trigger emitted by Tick whose exit trade
// failed, so a later tick can fire it again.
func (l *Ledger) AbortExit(order ExitOrder) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[order.Position.Mint]
	if !ok {
		return
	}
	if order.TakeProfitIndex >= 0 && order.TakeProfitIndex < len(p.TakeProfitLevels) {
		p.TakeProfitLevels[order.TakeProfitIndex].Sold = false
		l.pendingFrac[p.Mint] -= order.FractionOfOriginal
		if l.pendingFrac[p.Mint] <= fracEpsilon {
			delete(l.pendingFrac, p.Mint)
		}
		return
	}
	delete(l.exitPending, p.Mint)
}

// CloseManual force-closes a position's tracking without a trade,
// used when the on-chain balance is already gone.
func (l *Ledger) CloseManual(mint string) (domain.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[mint]
	if !ok {
		return domain.Position{}, fmt.Errorf("no open position for mint %s", mint)
	}
	p.Status = domain.PositionClosed
	p.UpdatedAt = l.now()
	delete(l.positions, mint)
	delete(l.exitPending, mint)
	delete(l.pendingFrac, mint)
	return *p, nil
}

// Get returns a snapshot of the open position for a mint.
func (l *Ledger) Get(mint string) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[mint]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// OpenPositions returns snapshots ordered by entry time.
func (l *Ledger) OpenPositions() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryAt.Before(out[j].EntryAt) })
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions)
}

func sortedLevelIndexes(levels []domain.TakeProfitLevel) []int {
	idx := make([]int, len(levels))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return levels[idx[a]].PriceMultiple < levels[idx[b]].PriceMultiple
	})
	return idx
}

func lowestMultiple(levels []domain.TakeProfitLevel) float64 {
	m := levels[0].PriceMultiple
	for _, l := range levels[1:] {
		if l.PriceMultiple < m {
			m = l.PriceMultiple
		}
	}
	return m
}
