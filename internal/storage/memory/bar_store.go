// Package memory provides in-memory store implementations, used by tests
// and by fully offline runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Bar // keyed by symbol|timeframe
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{data: make(map[string][]domain.Bar)}
}

var _ storage.BarStore = (*BarStore)(nil)

func barKey(symbol string, timeframe time.Duration) string {
	return fmt.Sprintf("%s|%d", symbol, int64(timeframe/time.Minute))
}

// InsertBars adds bars, keeping each series sorted by timestamp.
func (s *BarStore) InsertBars(_ context.Context, timeframe time.Duration, bars []domain.Bar) error {
	if timeframe <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Duplicate check before any mutation so a failed batch changes nothing.
	seen := make(map[string]map[int64]bool)
	for _, b := range bars {
		key := barKey(b.Symbol, timeframe)
		if seen[key] == nil {
			seen[key] = make(map[int64]bool)
			for _, existing := range s.data[key] {
				seen[key][existing.Timestamp.UTC().UnixMilli()] = true
			}
		}
		ms := b.Timestamp.UTC().UnixMilli()
		if seen[key][ms] {
			return storage.ErrDuplicateKey
		}
		seen[key][ms] = true
	}

	for _, b := range bars {
		key := barKey(b.Symbol, timeframe)
		s.data[key] = append(s.data[key], b)
	}
	for key := range seen {
		series := s.data[key]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		})
		s.data[key] = series
	}
	return nil
}

// GetBars retrieves bars within [r.Start, r.End], ordered by timestamp ASC.
func (s *BarStore) GetBars(_ context.Context, symbol string, timeframe time.Duration, r domain.Range) ([]domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Bar
	for _, b := range s.data[barKey(symbol, timeframe)] {
		if r.Contains(b.Timestamp) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Coverage returns the contiguous cached ranges, splitting wherever two
// consecutive bars sit further apart than the timeframe.
func (s *BarStore) Coverage(_ context.Context, symbol string, timeframe time.Duration, r domain.Range) ([]domain.Range, error) {
	bars, err := s.GetBars(context.Background(), symbol, timeframe, r)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}

	var ranges []domain.Range
	current := domain.Range{Start: bars[0].Timestamp.UTC(), End: bars[0].Timestamp.UTC()}
	for _, b := range bars[1:] {
		ts := b.Timestamp.UTC()
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
