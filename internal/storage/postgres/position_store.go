package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
// Take-profit levels ride along as a JSONB column: they are read and
// written as a unit and never queried individually.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	position_id, mint, symbol,
	entry_price, entry_amount_sol, entry_amount_token, entry_signature, entry_at,
	highest_price_seen, lowest_price_seen,
	stop_loss_price, trailing_stop_pct, trailing_stop_price, trailing_armed,
	take_profit_levels, exited_fraction, realized_pnl_sol, status, updated_at
`

// Upsert writes the snapshot, inserting or replacing by position id.
func (s *PositionStore) Upsert(ctx context.Context, p *domain.Position) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	levels, err := json.Marshal(p.TakeProfitLevels)
	if err != nil {
		return fmt.Errorf("marshal take-profit levels: %w", err)
	}

	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (position_id) DO UPDATE SET
			highest_price_seen = EXCLUDED.highest_price_seen,
			lowest_price_seen = EXCLUDED.lowest_price_seen,
			stop_loss_price = EXCLUDED.stop_loss_price,
			trailing_stop_price = EXCLUDED.trailing_stop_price,
			trailing_armed = EXCLUDED.trailing_armed,
			take_profit_levels = EXCLUDED.take_profit_levels,
			exited_fraction = EXCLUDED.exited_fraction,
			realized_pnl_sol = EXCLUDED.realized_pnl_sol,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		p.ID, p.Mint, p.Symbol,
		p.EntryPrice, p.EntryAmountSol, p.EntryAmountToken, p.EntrySignature, p.EntryAt,
		p.HighestPriceSeen, p.LowestPriceSeen,
		p.StopLossPrice, p.TrailingStopPct, p.TrailingStopPrice, p.TrailingArmed,
		levels, p.ExitedFraction, p.RealizedPnlSol, string(p.Status), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

// GetByID retrieves a position by id. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE position_id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// LoadOpen retrieves every position not yet closed.
func (s *PositionStore) LoadOpen(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status <> 'CLOSED'
		ORDER BY entry_at ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load open positions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return out, nil
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var status string
	var levels []byte

	err := row.Scan(
		&p.ID, &p.Mint, &p.Symbol,
		&p.EntryPrice, &p.EntryAmountSol, &p.EntryAmountToken, &p.EntrySignature, &p.EntryAt,
		&p.HighestPriceSeen, &p.LowestPriceSeen,
		&p.StopLossPrice, &p.TrailingStopPct, &p.TrailingStopPrice, &p.TrailingArmed,
		&levels, &p.ExitedFraction, &p.RealizedPnlSol, &status, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(levels) > 0 {
		if err := json.Unmarshal(levels, &p.TakeProfitLevels); err != nil {
			return nil, fmt.Errorf("unmarshal take-profit levels: %w", err)
		}
	}
	p.Status = domain.PositionStatus(status)
	return &p, nil
}
