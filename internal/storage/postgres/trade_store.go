package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, request_id, mint, side, size_sol, amount_token, price,
	signature, confirmed, attempts, exit_reason, pnl_sol, executed_at
`

// Insert adds a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.RequestID, t.Mint, string(t.Side), t.SizeSol, t.AmountToken, t.Price,
		t.Signature, t.Confirmed, t.Attempts, t.ExitReason, t.PnlSol, t.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// MarkConfirmed flips the confirmed flag for a trade.
func (s *TradeStore) MarkConfirmed(ctx context.Context, tradeID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE trades SET confirmed = TRUE WHERE trade_id = $1`, tradeID)
	if err != nil {
		return fmt.Errorf("mark trade confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByMint retrieves all trades for a mint, ordered by execution time ASC.
func (s *TradeStore) GetByMint(ctx context.Context, mint string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE mint = $1
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get trades by mint: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetUnconfirmed retrieves submitted-but-unconfirmed trades.
func (s *TradeStore) GetUnconfirmed(ctx context.Context) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE confirmed = FALSE AND signature <> ''
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get unconfirmed trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func scanTrade(row pgx.Row) (*domain.TradeRecord, error) {
	var t domain.TradeRecord
	var side string

	err := row.Scan(
		&t.TradeID, &t.RequestID, &t.Mint, &side, &t.SizeSol, &t.AmountToken, &t.Price,
		&t.Signature, &t.Confirmed, &t.Attempts, &t.ExitReason, &t.PnlSol, &t.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Side = domain.TradeSide(side)
	return &t, nil
}

func scanTrades(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
