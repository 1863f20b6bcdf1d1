package domain

import "time"

// TradeSide distinguishes entries from exits.
type TradeSide string

const (
	TradeBuy  TradeSide = "BUY"
	TradeSell TradeSide = "SELL"
)

// TradeRecord is the persisted record of one executed (or attempted)
// trade. Every submission that was actually sent to the network is
// persisted with its signature, even if never confirmed, so an operator
// can reconcile against chain state.
type TradeRecord struct {
	TradeID     string // deterministic hash
	RequestID   string // shared by all retries of one signed payload, see idhash.RequestID
	Mint        string
	Side        TradeSide
	SizeSol     float64
	AmountToken float64
	Price       float64 // SOL per token at fill
	Signature   string  // last attempt's signature; may be unconfirmed
	Confirmed   bool
	Attempts    int
	ExitReason  string // empty for buys
	PnlSol      float64
	ExecutedAt  time.Time
}

// AttemptOutcome is the terminal (or pending) state of one submission attempt.
type AttemptOutcome string

const (
	AttemptPending   AttemptOutcome = "PENDING"
	AttemptRetrying  AttemptOutcome = "RETRYING"
	AttemptConfirmed AttemptOutcome = "CONFIRMED"
	AttemptFailed    AttemptOutcome = "FAILED"
	AttemptTimedOut  AttemptOutcome = "TIMED_OUT"
)

// SubmissionAttempt records one retry inside the submitter.
type SubmissionAttempt struct {
	RequestID     string
	Signature     string // empty if the send itself failed
	AttemptNumber int
	Outcome       AttemptOutcome
}
