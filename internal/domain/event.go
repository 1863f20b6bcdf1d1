package domain

import "time"

// EventType enumerates pipeline notification events.
type EventType string

const (
	EventCandidateAdmitted    EventType = "CANDIDATE_ADMITTED"
	EventCandidateRejected    EventType = "CANDIDATE_REJECTED"
	EventTradeExecuted        EventType = "TRADE_EXECUTED"
	EventPositionExit         EventType = "POSITION_EXIT"
	EventCircuitBreakerTrip   EventType = "CIRCUIT_BREAKER_TRIPPED"
	EventBuybackTriggered     EventType = "BUYBACK_TRIGGERED"
)

// PipelineEvent is one append-only notification to downstream consumers
// (dashboard, commentary). Delivery is at-least-once.
type PipelineEvent struct {
	Type       EventType
	Mint       string
	Reason     string
	Signature  string
	SizeSol    float64
	PnlSol     float64
	OccurredAt time.Time
}
