package memory

import (
	"context"
	"sort"
	"sync"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// TemplateStore is an in-memory implementation of storage.TemplateStore.
type TemplateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeTemplate // keyed by template_id
}

// NewTemplateStore creates a new in-memory template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{data: make(map[string]*domain.TradeTemplate)}
}

var _ storage.TemplateStore = (*TemplateStore)(nil)

// Insert adds a template. Returns ErrDuplicateKey if template_id exists.
func (s *TemplateStore) Insert(_ context.Context, t *domain.TradeTemplate) error {
	if t == nil || t.TemplateID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TemplateID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	tplCopy := *t
	s.data[t.TemplateID] = &tplCopy
	return nil
}

// InsertBulk adds multiple templates atomically.
func (s *TemplateStore) InsertBulk(ctx context.Context, templates []*domain.TradeTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(templates))
	for _, t := range templates {
		if t == nil || t.TemplateID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.TemplateID]; exists || seen[t.TemplateID] {
			return storage.ErrDuplicateKey
		}
		seen[t.TemplateID] = true
	}

	for _, t := range templates {
		tplCopy := *t
		s.data[t.TemplateID] = &tplCopy
	}
	return nil
}

// GetByID retrieves a template by ID. Returns ErrNotFound if not exists.
func (s *TemplateStore) GetByID(_ context.Context, templateID string) (*domain.TradeTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[templateID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tplCopy := *t
	return &tplCopy, nil
}

// GetBySymbol retrieves all templates for a symbol, ordered by entry_ts
// ASC, template_id ASC.
func (s *TemplateStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.TradeTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TradeTemplate
	for _, t := range s.data {
		if t.Symbol == symbol {
			tplCopy := *t
			out = append(out, &tplCopy)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryTS.Equal(out[j].EntryTS) {
			return out[i].EntryTS.Before(out[j].EntryTS)
		}
		return out[i].TemplateID < out[j].TemplateID
	})
	return out, nil
}
