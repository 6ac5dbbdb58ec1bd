package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// TradeLogStore implements storage.TradeLogStore using PostgreSQL.
// Money columns are NUMERIC and scanned into decimal.Decimal so nothing
// passes through float64 on the way to or from the database.
type TradeLogStore struct {
	pool *Pool
}

// NewTradeLogStore creates a new TradeLogStore.
func NewTradeLogStore(pool *Pool) *TradeLogStore {
	return &TradeLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeLogStore)(nil)

// InsertBulk adds the realized closes of one run atomically. Returns
// ErrDuplicateKey when the run already has trades persisted.
func (s *TradeLogStore) InsertBulk(ctx context.Context, runID string, trades []*domain.TradeLog) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// A sentinel row per run makes re-persisting a run an explicit
	// duplicate instead of silently appending.
	if _, err := tx.Exec(ctx,
		`INSERT INTO trade_log_runs (run_id) VALUES ($1)`, runID,
	); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("register trade log run: %w", err)
	}

	query := `
		INSERT INTO trade_logs (
			run_id, template_id, symbol, direction,
			entry_ts, exit_ts, qty,
			entry_price, exit_price, fee, pnl_net
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, t := range trades {
		if t == nil {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			runID, t.TemplateID, t.Symbol, string(t.Direction),
			t.EntryTS.UTC(), t.ExitTS.UTC(), t.Qty,
			t.EntryPrice, t.ExitPrice, t.Fee, t.PnLNet,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade log in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all trades of a run, ordered by exit_ts ASC,
// template_id ASC. Returns ErrNotFound when the run was never persisted.
func (s *TradeLogStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TradeLog, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM trade_log_runs WHERE run_id = $1)`, runID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check trade log run: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	query := `
		SELECT
			template_id, symbol, direction,
			entry_ts, exit_ts, qty,
			entry_price, exit_price, fee, pnl_net
		FROM trade_logs
		WHERE run_id = $1
		ORDER BY exit_ts ASC, template_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trade logs by run id: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.TradeLog, 0)
	for rows.Next() {
		var (
			t         domain.TradeLog
			direction string
			qty       decimal.Decimal
		)
		err := rows.Scan(
			&t.TemplateID, &t.Symbol, &direction,
			&t.EntryTS, &t.ExitTS, &qty,
			&t.EntryPrice, &t.ExitPrice, &t.Fee, &t.PnLNet,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade log row: %w", err)
		}
		t.Direction = domain.Direction(direction)
		t.Qty = qty
		t.EntryTS = t.EntryTS.UTC()
		t.ExitTS = t.ExitTS.UTC()
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade log rows: %w", err)
	}
	return out, nil
}
