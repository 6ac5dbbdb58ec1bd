package clickhouse

import (
	"context"
	"fmt"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse. Bars are stored
// in a MergeTree ordered by (symbol, timeframe, timestamp); MergeTree does
// not enforce uniqueness, so duplicates are rejected by explicit checks
// before the batch insert.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBars adds bars. Fails the entire batch on any duplicate
// (symbol, timeframe, timestamp).
func (s *BarStore) InsertBars(ctx context.Context, timeframe time.Duration, bars []domain.Bar) error {
	if timeframe <= 0 {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	tfMinutes := uint32(timeframe / time.Minute)

	// Intra-batch duplicates
	type key struct {
		symbol string
		ms     int64
	}
	seen := make(map[key]struct{}, len(bars))
	for _, b := range bars {
		k := key{b.Symbol, b.Timestamp.UTC().UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Duplicates against existing rows
	for _, b := range bars {
		exists, err := s.exists(ctx, b.Symbol, tfMinutes, b.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			symbol, timeframe_minutes, timestamp, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, tfMinutes, b.Timestamp.UTC(),
			b.Open, b.High, b.Low, b.Close, uint64(b.Volume),
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

// GetBars retrieves bars within [r.Start, r.End], ordered by timestamp ASC.
func (s *BarStore) GetBars(ctx context.Context, symbol string, timeframe time.Duration, r domain.Range) ([]domain.Bar, error) {
	query := `
		SELECT symbol, timestamp, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timeframe_minutes = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query,
		symbol, uint32(timeframe/time.Minute), r.Start.UTC(), r.End.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var (
			b      domain.Bar
			volume uint64
		)
		err := rows.Scan(&b.Symbol, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &volume)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		b.Volume = int64(volume)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}
	return bars, nil
}

// Coverage returns the contiguous cached ranges within r, splitting wherever
// two consecutive bars sit further apart than the timeframe.
func (s *BarStore) Coverage(ctx context.Context, symbol string, timeframe time.Duration, r domain.Range) ([]domain.Range, error) {
	query := `
		SELECT timestamp
		FROM bars
		WHERE symbol = ? AND timeframe_minutes = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query,
		symbol, uint32(timeframe/time.Minute), r.Start.UTC(), r.End.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query bar timestamps: %w", err)
	}
	defer rows.Close()

	var timestamps []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan bar timestamp: %w", err)
		}
		timestamps = append(timestamps, ts.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar timestamps: %w", err)
	}

	if len(timestamps) == 0 {
		return nil, nil
	}

	var ranges []domain.Range
	current := domain.Range{Start: timestamps[0], End: timestamps[0]}
	for _, ts := range timestamps[1:] {
		if ts.Sub(current.End) > timeframe {
			ranges = append(ranges, current)
			current = domain.Range{Start: ts, End: ts}
			continue
		}
		current.End = ts
	}
	ranges = append(ranges, current)
	return ranges, nil
}

// exists checks if a bar with the given key exists.
func (s *BarStore) exists(ctx context.Context, symbol string, tfMinutes uint32, ts time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM bars
		WHERE symbol = ? AND timeframe_minutes = ? AND timestamp = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol, tfMinutes, ts.UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
