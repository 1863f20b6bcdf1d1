package clickhouse

import (
	"context"
	"fmt"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/storage"
)

// EventArchive implements storage.EventArchive using ClickHouse.
// The feed is at-least-once; the MergeTree table tolerates duplicate
// rows and analysis queries deduplicate downstream.
type EventArchive struct {
	conn *Conn
}

// NewEventArchive creates a new EventArchive.
func NewEventArchive(conn *Conn) *EventArchive {
	return &EventArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.EventArchive = (*EventArchive)(nil)

// Append writes a batch of events.
func (s *EventArchive) Append(ctx context.Context, events []*domain.PipelineEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pipeline_events (
			event_type, mint, reason, signature, size_sol, pnl_sol, occurred_at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, ev := range events {
		if ev == nil {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			string(ev.Type), ev.Mint, ev.Reason, ev.Signature,
			ev.SizeSol, ev.PnlSol, uint64(ev.OccurredAt.UnixMilli()),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMint retrieves archived events for a mint, ordered by time ASC.
func (s *EventArchive) GetByMint(ctx context.Context, mint string) ([]*domain.PipelineEvent, error) {
	query := `
		SELECT event_type, mint, reason, signature, size_sol, pnl_sol, occurred_at_ms
		FROM pipeline_events
		WHERE mint = ?
		ORDER BY occurred_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query events by mint: %w", err)
	}
	defer rows.Close()

	var out []*domain.PipelineEvent
	for rows.Next() {
		var ev domain.PipelineEvent
		var eventType string
		var occurredAtMs uint64

		err := rows.Scan(
			&eventType, &ev.Mint, &ev.Reason, &ev.Signature,
			&ev.SizeSol, &ev.PnlSol, &occurredAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		ev.Type = domain.EventType(eventType)
		ev.OccurredAt = msToTime(occurredAtMs)
		out = append(out, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return out, nil
}
