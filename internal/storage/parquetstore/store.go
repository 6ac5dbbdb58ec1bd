// Package parquetstore implements the bar cache as Parquet files on disk,
// for fully local runs without a database.
package parquetstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// Store implements storage.BarStore using Parquet files.
// Layout: <DataDir>/<SYMBOL>/<TF>m/<YYYY>.parquet, one file per symbol,
// timeframe and year.
type Store struct {
	DataDir string
}

// New creates a new Store rooted at the given data directory.
func New(dataDir string) *Store {
	return &Store{DataDir: dataDir}
}

// Compile-time interface check.
var _ storage.BarStore = (*Store)(nil)

// barRecord is the on-disk Parquet schema.
type barRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms, UTC
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// InsertBars writes bars grouped by symbol and year. The entire batch fails
// on any duplicate (symbol, timestamp) and no file is rewritten.
func (s *Store) InsertBars(_ context.Context, timeframe time.Duration, bars []domain.Bar) error {
	if timeframe <= 0 {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]barRecord)
	for _, b := range bars {
		ts := b.Timestamp.UTC()
		k := key{symbol: b.Symbol, year: ts.Year()}
		groups[k] = append(groups[k], barRecord{
			Symbol:    b.Symbol,
			Timestamp: ts.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	// Load every affected file and verify uniqueness before touching disk.
	merged := make(map[key][]barRecord, len(groups))
	for k, records := range groups {
		path := s.barPath(k.symbol, timeframe, k.year)
		existing, _ := readParquetFile[barRecord](path)

		seen := make(map[int64]bool, len(existing)+len(records))
		for _, r := range existing {
			seen[r.Timestamp] = true
		}
		for _, r := range records {
			if seen[r.Timestamp] {
				return storage.ErrDuplicateKey
			}
			seen[r.Timestamp] = true
		}

		all := append(existing, records...)
		sort.Slice(all, func(i, j int) bool { return all[i].Timestamp < all[j].Timestamp })
		merged[k] = all
	}

	for k, records := range merged {
		path := s.barPath(k.symbol, timeframe, k.year)
		if err := writeParquetFile(path, records); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// GetBars reads bars within [r.Start, r.End], ordered by timestamp ASC.
func (s *Store) GetBars(_ context.Context, symbol string, timeframe time.Duration, r domain.Range) ([]domain.Bar, error) {
	start := r.Start.UTC()
	end := r.End.UTC()

	var bars []domain.Bar
	for year := start.Year(); year <= end.Year(); year++ {
		path := s.barPath(symbol, timeframe, year)
		records, err := readParquetFile[barRecord](path)
		if err != nil {
			// No file for this year
			continue
		}
		for _, rec := range records {
			ts := time.UnixMilli(rec.Timestamp).UTC()
			if r.Contains(ts) {
				bars = append(bars, domain.Bar{
					Symbol:    rec.Symbol,
					Timestamp: ts,
					Open:      rec.Open,
					High:      rec.High,
					Low:       rec.Low,
					Close:     rec.Close,
					Volume:    rec.Volume,
				})
			}
		}
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

// Coverage returns the contiguous cached ranges within r, splitting wherever
// two consecutive bars sit further apart than the timeframe.
func (s *Store) Coverage(ctx context.Context, symbol string, timeframe time.Duration, r domain.Range) ([]domain.Range, error) {
	bars, err := s.GetBars(ctx, symbol, timeframe, r)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}

	var ranges []domain.Range
	current := domain.Range{Start: bars[0].Timestamp, End: bars[0].Timestamp}
	for _, b := range bars[1:] {
		if b.Timestamp.Sub(current.End) > timeframe {
			ranges = append(ranges, current)
			current = domain.Range{Start: b.Timestamp, End: b.Timestamp}
			continue
		}
		current.End = b.Timestamp
	}
	ranges = append(ranges, current)
	return ranges, nil
}

// barPath returns the file path for one symbol, timeframe and year.
func (s *Store) barPath(symbol string, timeframe time.Duration, year int) string {
	tf := fmt.Sprintf("%dm", int64(timeframe/time.Minute))
	return filepath.Join(s.DataDir, strings.ToUpper(symbol), tf, fmt.Sprintf("%d.parquet", year))
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}
