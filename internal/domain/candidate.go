package domain

import "time"

// Candidate represents a newly observed tradeable asset awaiting evaluation.
// Immutable after discovery except RetryCount, which only increases.
type Candidate struct {
	Mint               string // venue asset identifier (token mint address)
	Name               string
	Symbol             string
	Source             Source // NEW_LISTING | TRENDING
	MarketCapEstimate  float64
	LiquidityEstimate  float64 // SOL in the bonding curve at discovery
	DiscoveredAt       time.Time
	MaturationDeadline time.Time
	RetryCount         int
}

// Mature reports whether the maturation delay has elapsed at now.
// Freshly listed curve assets are dominated by noise in their first
// seconds; validation before the deadline wastes a data fetch.
func (c *Candidate) Mature(now time.Time) bool {
	return !now.Before(c.MaturationDeadline)
}
