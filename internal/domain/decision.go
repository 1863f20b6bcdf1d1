package domain

import "time"

// ValidationResult is produced by one validation attempt against fresh
// curve data. Not persisted; consumed immediately by the decision engine.
type ValidationResult struct {
	Mint                   string
	Passed                 bool
	Reason                 string // set when Passed is false
	Retryable              bool   // fetch failed; fresh data might pass
	LiquiditySol           float64
	BondingProgressPercent float64
	MarketCapSol           float64
}

// TradeDecision is the immutable outcome of evaluating one candidate.
// Reasons carries the full audit trail in evaluation order, for
// approvals as well as rejections.
type TradeDecision struct {
	Mint        string
	ShouldTrade bool
	SizeSol     float64
	Reasons     []string
	ComputedAt  time.Time
}
