package memory

import (
	"context"
	"sort"
	"sync"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// TradeLogStore is an in-memory implementation of storage.TradeLogStore.
type TradeLogStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TradeLog // keyed by run_id
}

// NewTradeLogStore creates a new in-memory trade log store.
func NewTradeLogStore() *TradeLogStore {
	return &TradeLogStore{data: make(map[string][]*domain.TradeLog)}
}

var _ storage.TradeLogStore = (*TradeLogStore)(nil)

// InsertBulk adds the realized closes of one run atomically.
func (s *TradeLogStore) InsertBulk(_ context.Context, runID string, trades []*domain.TradeLog) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	copies := make([]*domain.TradeLog, 0, len(trades))
	for _, t := range trades {
		if t == nil {
			return storage.ErrInvalidInput
		}
		trCopy := *t
		copies = append(copies, &trCopy)
	}
	s.data[runID] = copies
	return nil
}

// GetByRunID retrieves all trades of a run, ordered by exit_ts ASC,
// template_id ASC.
func (s *TradeLogStore) GetByRunID(_ context.Context, runID string) ([]*domain.TradeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	out := make([]*domain.TradeLog, 0, len(trades))
	for _, t := range trades {
		trCopy := *t
		out = append(out, &trCopy)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExitTS.Equal(out[j].ExitTS) {
			return out[i].ExitTS.Before(out[j].ExitTS)
		}
		return out[i].TemplateID < out[j].TemplateID
	})
	return out, nil
}
