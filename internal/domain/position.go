package domain

import "time"

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionOpen            PositionStatus = "OPEN"
	PositionPartiallyClosed PositionStatus = "PARTIALLY_CLOSED"
	PositionClosed          PositionStatus = "CLOSED"
)

// ExitReason codes for position exits.
const (
	ExitReasonStopLoss     = "STOP_LOSS"
	ExitReasonTakeProfit   = "TAKE_PROFIT"
	ExitReasonTrailingStop = "TRAILING_STOP"
	ExitReasonManual       = "MANUAL"
)

// TakeProfitLevel is a partial-exit trigger at a price multiple of entry.
// Sold flips false→true exactly once; the ledger never fires a level twice.
type TakeProfitLevel struct {
	PriceMultiple  float64 // e.g. 2.0 = exit at 2x entry
	FractionToSell float64 // fraction of the original asset amount
	Sold           bool
}

// Position is the authoritative record of an open trade.
// Only the PositionLedger mutates a Position.
type Position struct {
	ID               string // deterministic hash, see idhash
	Mint             string
	Symbol           string
	EntryPrice       float64 // SOL per token
	EntryAmountSol   float64
	EntryAmountToken float64 // original fill amount; current holdings are EntryAmountToken * RemainingFraction()
	EntrySignature   string  // confirmed buy transaction
	EntryAt          time.Time

	HighestPriceSeen float64
	LowestPriceSeen  float64

	StopLossPrice     float64
	TrailingStopPct   float64 // distance below peak; 0 disables trailing
	TrailingStopPrice float64 // highest * (1 - TrailingStopPct), armed after activation
	TrailingArmed     bool
	TakeProfitLevels  []TakeProfitLevel

	// ExitedFraction is the fraction of the original token amount whose
	// exit trades have confirmed. Monotonically increases toward 1.
	// Levels latched Sold but still awaiting confirmation do not count.
	ExitedFraction float64
	RealizedPnlSol float64
	Status         PositionStatus
	UpdatedAt      time.Time
}

// RemainingFraction returns the fraction of the original token amount still held.
func (p *Position) RemainingFraction() float64 {
	if p.ExitedFraction >= 1 {
		return 0
	}
	return 1 - p.ExitedFraction
}

// UnrealizedPnlSol computes open P&L at the given price for the tokens
// still held.
func (p *Position) UnrealizedPnlSol(price float64) float64 {
	return (price - p.EntryPrice) * p.EntryAmountToken * p.RemainingFraction()
}
