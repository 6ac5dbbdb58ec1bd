// Package storage defines the persistence interfaces the pipeline consumes.
// The core depends on these interfaces only; memory, Postgres, ClickHouse,
// and Parquet implementations live in subpackages.
package storage

import (
	"context"
	"time"

	"backtest-lab/internal/domain"
)

// BarStore provides access to OHLCV bar series.
type BarStore interface {
	// InsertBars adds bars for a symbol/timeframe. Duplicate (symbol,
	// timeframe, timestamp) fails the batch with ErrDuplicateKey.
	InsertBars(ctx context.Context, timeframe time.Duration, bars []domain.Bar) error

	// GetBars retrieves bars within [r.Start, r.End], ordered by
	// timestamp ASC.
	GetBars(ctx context.Context, symbol string, timeframe time.Duration, r domain.Range) ([]domain.Bar, error)

	// Coverage returns the cached contiguous ranges for a symbol and
	// timeframe, clipped to r and ordered by start ASC.
	Coverage(ctx context.Context, symbol string, timeframe time.Duration, r domain.Range) ([]domain.Range, error)
}

// TemplateStore provides access to trade_templates storage. Templates are
// retained for audit after event extraction consumes them.
type TemplateStore interface {
	// Insert adds a template. Returns ErrDuplicateKey if template_id exists.
	Insert(ctx context.Context, t *domain.TradeTemplate) error

	// InsertBulk adds multiple templates atomically. Fails the whole
	// batch on any duplicate.
	InsertBulk(ctx context.Context, templates []*domain.TradeTemplate) error

	// GetByID retrieves a template by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, templateID string) (*domain.TradeTemplate, error)

	// GetBySymbol retrieves all templates for a symbol, ordered by
	// entry_ts ASC, template_id ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.TradeTemplate, error)
}

// TradeLogStore provides access to realized trade logs keyed by run.
type TradeLogStore interface {
	// InsertBulk adds the realized closes of one run atomically.
	InsertBulk(ctx context.Context, runID string, trades []*domain.TradeLog) error

	// GetByRunID retrieves all trades of a run, ordered by exit_ts ASC,
	// template_id ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TradeLog, error)
}

// RunRecordStore provides access to run_records storage.
type RunRecordStore interface {
	// Insert adds a run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run record by ID. Returns ErrNotFound if not
	// exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// List retrieves all run records, ordered by started_at DESC.
	List(ctx context.Context) ([]*domain.RunRecord, error)
}
