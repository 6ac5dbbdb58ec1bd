package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// TemplateStore implements storage.TemplateStore using PostgreSQL.
type TemplateStore struct {
	pool *Pool
}

// NewTemplateStore creates a new TemplateStore.
func NewTemplateStore(pool *Pool) *TemplateStore {
	return &TemplateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TemplateStore = (*TemplateStore)(nil)

const templateColumns = `
	template_id, symbol, direction,
	entry_ts, entry_price, exit_ts, exit_price,
	entry_reason, exit_reason
`

// Insert adds a new template. Returns ErrDuplicateKey if template_id exists.
func (s *TemplateStore) Insert(ctx context.Context, t *domain.TradeTemplate) error {
	if t == nil || t.TemplateID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TemplateID, t.Symbol, string(t.Direction),
		t.EntryTS.UTC(), t.EntryPrice, nullableTime(t.ExitTS), t.ExitPrice,
		t.EntryReason, t.ExitReason,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade template: %w", err)
	}
	return nil
}

// InsertBulk adds multiple templates atomically. Fails entire batch on any duplicate.
func (s *TemplateStore) InsertBulk(ctx context.Context, templates []*domain.TradeTemplate) error {
	if len(templates) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trade_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, t := range templates {
		if t == nil || t.TemplateID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			t.TemplateID, t.Symbol, string(t.Direction),
			t.EntryTS.UTC(), t.EntryPrice, nullableTime(t.ExitTS), t.ExitPrice,
			t.EntryReason, t.ExitReason,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade template in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a template by its ID. Returns ErrNotFound if not exists.
func (s *TemplateStore) GetByID(ctx context.Context, templateID string) (*domain.TradeTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM trade_templates WHERE template_id = $1`

	row := s.pool.QueryRow(ctx, query, templateID)
	t, err := scanTemplate(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade template by id: %w", err)
	}
	return t, nil
}

// GetBySymbol retrieves all templates for a symbol, ordered by entry_ts ASC,
// template_id ASC.
func (s *TemplateStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.TradeTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM trade_templates
		WHERE symbol = $1
		ORDER BY entry_ts ASC, template_id ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get trade templates by symbol: %w", err)
	}
	defer rows.Close()

	var out []*domain.TradeTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade template row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade template rows: %w", err)
	}
	return out, nil
}

// scanTemplate scans a single row into a TradeTemplate.
func scanTemplate(row pgx.Row) (*domain.TradeTemplate, error) {
	var (
		t         domain.TradeTemplate
		direction string
		exitTS    pgtype.Timestamptz
	)

	err := row.Scan(
		&t.TemplateID, &t.Symbol, &direction,
		&t.EntryTS, &t.EntryPrice, &exitTS, &t.ExitPrice,
		&t.EntryReason, &t.ExitReason,
	)
	if err != nil {
		return nil, err
	}

	t.Direction = domain.Direction(direction)
	t.EntryTS = t.EntryTS.UTC()
	if exitTS.Valid {
		t.ExitTS = exitTS.Time.UTC()
	}
	return &t, nil
}
