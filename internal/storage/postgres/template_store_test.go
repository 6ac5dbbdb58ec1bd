package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func TestTemplateStore_InsertAndGetByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTemplateStore(pool)
	ctx := context.Background()

	tpl := &domain.TradeTemplate{
		TemplateID:  "tpl-1",
		Symbol:      "EURUSD",
		Direction:   domain.DirectionLong,
		EntryTS:     time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC),
		EntryPrice:  1.0852,
		ExitTS:      time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC),
		ExitPrice:   1.0900,
		EntryReason: "breakout",
		ExitReason:  "target",
	}
	require.NoError(t, store.Insert(ctx, tpl))

	got, err := store.GetByID(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, tpl.Symbol, got.Symbol)
	assert.Equal(t, tpl.Direction, got.Direction)
	assert.True(t, tpl.EntryTS.Equal(got.EntryTS))
	assert.True(t, tpl.ExitTS.Equal(got.ExitTS))
	assert.Equal(t, tpl.EntryPrice, got.EntryPrice)
	assert.Equal(t, time.UTC, got.EntryTS.Location())
}

func TestTemplateStore_Duplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTemplateStore(pool)
	ctx := context.Background()

	tpl := &domain.TradeTemplate{
		TemplateID: "tpl-1",
		Symbol:     "EURUSD",
		Direction:  domain.DirectionLong,
		EntryTS:    time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC),
		EntryPrice: 1.0852,
	}
	require.NoError(t, store.Insert(ctx, tpl))
	assert.ErrorIs(t, store.Insert(ctx, tpl), storage.ErrDuplicateKey)
}

func TestTemplateStore_NoExitLegRoundTrips(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTemplateStore(pool)
	ctx := context.Background()

	tpl := &domain.TradeTemplate{
		TemplateID: "tpl-open",
		Symbol:     "DAX",
		Direction:  domain.DirectionShort,
		EntryTS:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		EntryPrice: 18500,
	}
	require.NoError(t, store.Insert(ctx, tpl))

	got, err := store.GetByID(ctx, "tpl-open")
	require.NoError(t, err)
	assert.True(t, got.ExitTS.IsZero())
	assert.False(t, got.HasExit())
}

func TestTemplateStore_GetBySymbolOrdered(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTemplateStore(pool)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertBulk(ctx, []*domain.TradeTemplate{
		{TemplateID: "b", Symbol: "EURUSD", Direction: domain.DirectionLong, EntryTS: base.Add(time.Hour), EntryPrice: 1.09},
		{TemplateID: "a", Symbol: "EURUSD", Direction: domain.DirectionLong, EntryTS: base, EntryPrice: 1.08},
		{TemplateID: "c", Symbol: "DAX", Direction: domain.DirectionShort, EntryTS: base, EntryPrice: 18500},
	}))

	got, err := store.GetBySymbol(ctx, "EURUSD")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].TemplateID)
	assert.Equal(t, "b", got[1].TemplateID)
}

func TestTemplateStore_GetByIDNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTemplateStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
