package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// RunRecordStore implements storage.RunRecordStore using PostgreSQL.
type RunRecordStore struct {
	pool *Pool
}

// NewRunRecordStore creates a new RunRecordStore.
func NewRunRecordStore(pool *Pool) *RunRecordStore {
	return &RunRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunRecordStore = (*RunRecordStore)(nil)

const runRecordColumns = `
	run_id, strategy, version, symbol,
	status, failure_reason, error_id,
	started_at, finished_at, artifacts_dir
`

// Insert adds a run record. Returns ErrDuplicateKey if run_id exists.
func (s *RunRecordStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO run_records (` + runRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.Strategy, r.Version, r.Symbol,
		string(r.Status), string(r.FailureReason), r.ErrorID,
		r.StartedAt.UTC(), nullableTime(r.FinishedAt), r.ArtifactsDir,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// GetByID retrieves a run record by ID. Returns ErrNotFound if not exists.
func (s *RunRecordStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	query := `SELECT ` + runRecordColumns + ` FROM run_records WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRunRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run record by id: %w", err)
	}
	return r, nil
}

// List retrieves all run records, ordered by started_at DESC, run_id ASC.
func (s *RunRecordStore) List(ctx context.Context) ([]*domain.RunRecord, error) {
	query := `
		SELECT ` + runRecordColumns + `
		FROM run_records
		ORDER BY started_at DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}
	defer rows.Close()

	var out []*domain.RunRecord
	for rows.Next() {
		r, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run record row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run record rows: %w", err)
	}
	return out, nil
}

// scanRunRecord scans a single row into a RunRecord.
func scanRunRecord(row pgx.Row) (*domain.RunRecord, error) {
	var (
		r          domain.RunRecord
		status     string
		reason     string
		finishedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&r.RunID, &r.Strategy, &r.Version, &r.Symbol,
		&status, &reason, &r.ErrorID,
		&r.StartedAt, &finishedAt, &r.ArtifactsDir,
	)
	if err != nil {
		return nil, err
	}

	r.Status = domain.RunStatus(status)
	r.FailureReason = domain.FailureReason(reason)
	r.StartedAt = r.StartedAt.UTC()
	if finishedAt.Valid {
		r.FinishedAt = finishedAt.Time.UTC()
	}
	return &r, nil
}
