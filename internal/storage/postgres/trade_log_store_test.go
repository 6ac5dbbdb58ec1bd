package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func TestTradeLogStore_InsertBulkAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeLogStore(pool)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	trades := []*domain.TradeLog{
		{
			TemplateID: "t2",
			Symbol:     "EURUSD",
			Direction:  domain.DirectionLong,
			EntryTS:    base,
			ExitTS:     base.Add(2 * time.Hour),
			Qty:        decimal.NewFromInt(8),
			EntryPrice: decimal.RequireFromString("125.1"),
			ExitPrice:  decimal.RequireFromString("127.0"),
			Fee:        decimal.Zero,
			PnLNet:     decimal.RequireFromString("15.2"),
		},
		{
			TemplateID: "t1",
			Symbol:     "EURUSD",
			Direction:  domain.DirectionShort,
			EntryTS:    base,
			ExitTS:     base.Add(time.Hour),
			Qty:        decimal.NewFromInt(3),
			EntryPrice: decimal.RequireFromString("125.1"),
			ExitPrice:  decimal.RequireFromString("124.0"),
			Fee:        decimal.RequireFromString("0.25"),
			PnLNet:     decimal.RequireFromString("3.05"),
		},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", trades))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by exit_ts ASC
	assert.Equal(t, "t1", got[0].TemplateID)
	assert.Equal(t, "t2", got[1].TemplateID)

	// Decimals survive the round trip exactly
	assert.True(t, got[0].PnLNet.Equal(decimal.RequireFromString("3.05")),
		"pnl_net mismatch: %s", got[0].PnLNet)
	assert.True(t, got[0].Fee.Equal(decimal.RequireFromString("0.25")))
	assert.True(t, got[1].Qty.Equal(decimal.NewFromInt(8)))
}

func TestTradeLogStore_DuplicateRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeLogStore(pool)
	ctx := context.Background()

	trades := []*domain.TradeLog{
		{
			TemplateID: "t1",
			Symbol:     "EURUSD",
			Direction:  domain.DirectionLong,
			EntryTS:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
			ExitTS:     time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
			Qty:        decimal.NewFromInt(1),
			EntryPrice: decimal.NewFromInt(100),
			ExitPrice:  decimal.NewFromInt(101),
			Fee:        decimal.Zero,
			PnLNet:     decimal.NewFromInt(1),
		},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", trades))
	assert.ErrorIs(t, store.InsertBulk(ctx, "run-1", trades), storage.ErrDuplicateKey)
}

func TestTradeLogStore_EmptyRunRoundTrips(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeLogStore(pool)
	ctx := context.Background()

	// A run with zero closes is still a persisted run
	require.NoError(t, store.InsertBulk(ctx, "run-empty", nil))

	got, err := store.GetByRunID(ctx, "run-empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTradeLogStore_GetByRunIDNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeLogStore(pool)

	_, err := store.GetByRunID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
