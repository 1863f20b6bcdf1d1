// Package risk holds the account-level trading halt logic.
package risk

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"solana-curve-sniper/internal/domain"
)

// State of the breaker. Armed admits trades, tripped blocks them.
type State string

const (
	StateArmed   State = "ARMED"
	StateTripped State = "TRIPPED"
)

// Limits are the trip thresholds. Zero values disable the
// corresponding check.
type Limits struct {
	DailyLossFloorSol    float64 // negative; trips when daily PnL <= floor
	ConsecutiveLossLimit int
	MaxOpenPositions     int
	MaxDailyTrades       int
}

// LimitsFromProfile maps a risk profile's account limits onto breaker limits.
func LimitsFromProfile(p domain.RiskProfile) Limits {
	return Limits{
		DailyLossFloorSol:    p.DailyLossFloorSol,
		ConsecutiveLossLimit: p.ConsecutiveLossLimit,
		MaxOpenPositions:     p.MaxOpenPositions,
		MaxDailyTrades:       p.MaxDailyTrades,
	}
}

// CircuitBreaker serializes all admission checks and outcome
// recording behind one mutex. Once tripped it stays tripped until
// ResetDaily; exits are never blocked, only new admissions.
type CircuitBreaker struct {
	mu sync.Mutex

	limits Limits
	log    *zap.Logger

	state             State
	tripReason        string
	dailyPnlSol       float64
	consecutiveLosses int
	tradesToday       int
	openPositions     int

	onTrip func(class string)
}

func NewCircuitBreaker(limits Limits, log *zap.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		limits: limits,
		log:    log,
		state:  StateArmed,
	}
}

// CanAdmit reports whether a new position may be opened right now.
// When it returns true the breaker also reserves an open-position
// slot, so concurrent admission attempts cannot both pass the
// MaxOpenPositions check. Callers that fail to open the position must
// release the slot with ReleaseSlot.
func (b *CircuitBreaker) CanAdmit() (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateTripped {
		return false, b.tripReason
	}
	if b.limits.MaxOpenPositions > 0 && b.openPositions >= b.limits.MaxOpenPositions {
		b.trip("max_open_positions", fmt.Sprintf("open positions %d at limit %d", b.openPositions, b.limits.MaxOpenPositions))
		return false, b.tripReason
	}
	if b.limits.MaxDailyTrades > 0 && b.tradesToday >= b.limits.MaxDailyTrades {
		b.trip("max_daily_trades", fmt.Sprintf("daily trades %d at limit %d", b.tradesToday, b.limits.MaxDailyTrades))
		return false, b.tripReason
	}
	b.openPositions++
	return true, ""
}

// ReleaseSlot returns an admission slot reserved by CanAdmit when the
// entry trade failed before a position was opened.
func (b *CircuitBreaker) ReleaseSlot() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openPositions > 0 {
		b.openPositions--
	}
}

// RecordExit records a closed (or partially realized) trade outcome.
// closed releases the position slot; pnlSol updates the daily total
// and the consecutive-loss streak.
func (b *CircuitBreaker) RecordExit(pnlSol float64, closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if closed && b.openPositions > 0 {
		b.openPositions--
	}
	b.dailyPnlSol += pnlSol
	if pnlSol < 0 {
		b.consecutiveLosses++
	} else if pnlSol > 0 {
		b.consecutiveLosses = 0
	}

	if b.state == StateTripped {
		return
	}
	if b.limits.DailyLossFloorSol < 0 && b.dailyPnlSol <= b.limits.DailyLossFloorSol {
		b.trip("daily_loss_floor", fmt.Sprintf("daily pnl %.4f SOL at loss floor %.4f", b.dailyPnlSol, b.limits.DailyLossFloorSol))
		return
	}
	if b.limits.ConsecutiveLossLimit > 0 && b.consecutiveLosses >= b.limits.ConsecutiveLossLimit {
		b.trip("consecutive_losses", fmt.Sprintf("consecutive losses %d at limit %d", b.consecutiveLosses, b.limits.ConsecutiveLossLimit))
	}
}

// RecordTrade counts an executed entry toward the daily trade limit.
func (b *CircuitBreaker) RecordTrade() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tradesToday++
	if b.state == StateArmed && b.limits.MaxDailyTrades > 0 && b.tradesToday >= b.limits.MaxDailyTrades {
		b.trip("max_daily_trades", fmt.Sprintf("daily trades %d at limit %d", b.tradesToday, b.limits.MaxDailyTrades))
	}
}

// ResetDaily re-arms the breaker and clears the daily counters. Open
// position count survives the reset.
func (b *CircuitBreaker) ResetDaily() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateArmed
	b.tripReason = ""
	b.dailyPnlSol = 0
	b.consecutiveLosses = 0
	b.tradesToday = 0
	if b.log != nil {
		b.log.Info("circuit breaker daily reset", zap.Int("open_positions", b.openPositions))
	}
}

// Snapshot returns the current counters for observability.
func (b *CircuitBreaker) Snapshot() (state State, reason string, dailyPnl float64, losses, trades, open int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.tripReason, b.dailyPnlSol, b.consecutiveLosses, b.tradesToday, b.openPositions
}

// SetOpenPositions seeds the open-position count after recovery.
func (b *CircuitBreaker) SetOpenPositions(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openPositions = n
}

// OnTrip registers a callback fired once per trip with the reason class.
func (b *CircuitBreaker) OnTrip(fn func(class string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = fn
}

func (b *CircuitBreaker) trip(class, reason string) {
	b.state = StateTripped
	b.tripReason = reason
	if b.log != nil {
		b.log.Warn("circuit breaker tripped",
			zap.String("class", class), zap.String("reason", reason))
	}
	if b.onTrip != nil {
		b.onTrip(class)
	}
}
