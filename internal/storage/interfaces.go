package storage

import (
	"context"

	"solana-curve-sniper/internal/domain"
)

// TradeStore persists executed and attempted trades. Trades are
// append-only: a submission that reached the network is recorded with
// its signature even when never confirmed.
type TradeStore interface {
	// Insert adds a trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// MarkConfirmed flips the confirmed flag for a trade.
	// Returns ErrNotFound if the trade does not exist.
	MarkConfirmed(ctx context.Context, tradeID string) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByMint retrieves all trades for a mint, ordered by execution time ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TradeRecord, error)

	// GetUnconfirmed retrieves submitted-but-unconfirmed trades for
	// operator reconciliation.
	GetUnconfirmed(ctx context.Context) ([]*domain.TradeRecord, error)
}

// PositionStore persists position snapshots. Upsert semantics: the
// ledger writes the full snapshot after every mutation.
type PositionStore interface {
	// Upsert writes the snapshot, inserting or replacing by position id.
	Upsert(ctx context.Context, p *domain.Position) error

	// GetByID retrieves a position by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Position, error)

	// LoadOpen retrieves every position not yet closed, for recovery
	// after restart.
	LoadOpen(ctx context.Context) ([]*domain.Position, error)
}

// EventArchive records pipeline events for offline analysis.
// Append-only, at-least-once: duplicates are tolerated downstream.
type EventArchive interface {
	// Append writes a batch of events.
	Append(ctx context.Context, events []*domain.PipelineEvent) error

	// GetByMint retrieves archived events for a mint, ordered by time ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.PipelineEvent, error)
}
