package reporting

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/ledger"
	"backtest-lab/internal/sla"
)

func TestRenderOrdersCSV_FiltersNonPositiveWindows(t *testing.T) {
	base := time.Date(2025, 1, 6, 15, 30, 0, 0, time.UTC)

	orders := []*domain.Order{
		{
			TemplateID: "ok",
			Symbol:     "EURUSD",
			Direction:  domain.DirectionLong,
			Price:      1.08,
			ValidFrom:  base,
			ValidTo:    base.Add(5 * time.Minute),
		},
		{
			TemplateID: "zero-window",
			Symbol:     "EURUSD",
			Direction:  domain.DirectionLong,
			Price:      1.08,
			ValidFrom:  base,
			ValidTo:    base,
		},
		{
			TemplateID: "negative-window",
			Symbol:     "EURUSD",
			Direction:  domain.DirectionShort,
			Price:      1.08,
			ValidFrom:  base,
			ValidTo:    base.Add(-time.Minute),
		},
	}

	out := RenderOrdersCSV(orders)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, "header plus the single valid row")
	assert.Contains(t, lines[1], "ok")
	assert.NotContains(t, out, "zero-window")
	assert.NotContains(t, out, "negative-window")
}

func TestRenderOrdersCSV_TimestampsCarryOffset(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	orders := []*domain.Order{{
		TemplateID: "t1",
		Symbol:     "DAX",
		Direction:  domain.DirectionLong,
		Price:      18500,
		ValidFrom:  time.Date(2025, 1, 6, 15, 30, 0, 0, berlin),
		ValidTo:    time.Date(2025, 1, 6, 15, 35, 0, 0, berlin),
	}}

	out := RenderOrdersCSV(orders)
	assert.Contains(t, out, "2025-01-06T15:30:00.000+01:00")
	assert.Contains(t, out, "2025-01-06T15:35:00.000+01:00")
}

func TestRenderRejectedOrdersCSV(t *testing.T) {
	out := RenderRejectedOrdersCSV([]*domain.RejectedOrder{
		{TemplateID: "t1", Symbol: "EURUSD", Reason: "signal outside session"},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "t1,EURUSD,signal outside session", lines[1])
}

func TestTradesCSV_RoundTrip(t *testing.T) {
	base := time.Date(2025, 1, 6, 15, 30, 0, 0, time.UTC)

	trades := []*domain.TradeLog{
		{
			TemplateID: "t1",
			Symbol:     "EURUSD",
			Direction:  domain.DirectionLong,
			EntryTS:    base,
			ExitTS:     base.Add(2 * time.Hour),
			Qty:        decimal.NewFromInt(8),
			EntryPrice: decimal.RequireFromString("123"),
			ExitPrice:  decimal.RequireFromString("130"),
			Fee:        decimal.RequireFromString("0.52"),
			PnLNet:     decimal.RequireFromString("55.48"),
		},
		{
			TemplateID: "t2",
			Symbol:     "EURUSD",
			Direction:  domain.DirectionShort,
			EntryTS:    base.Add(3 * time.Hour),
			ExitTS:     base.Add(4 * time.Hour),
			Qty:        decimal.NewFromInt(10),
			EntryPrice: decimal.RequireFromString("129.5"),
			ExitPrice:  decimal.RequireFromString("127.25"),
			Fee:        decimal.Zero,
			PnLNet:     decimal.RequireFromString("22.5"),
		},
	}

	rendered, err := RenderTradesCSV(trades)
	require.NoError(t, err)

	parsed, err := ReadTradesCSV(strings.NewReader(rendered))
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	for i, want := range trades {
		got := parsed[i]
		assert.Equal(t, want.TemplateID, got.TemplateID)
		assert.Equal(t, want.Direction, got.Direction)
		assert.True(t, want.EntryTS.Equal(got.EntryTS))
		assert.True(t, want.ExitTS.Equal(got.ExitTS))
		assert.True(t, want.Qty.Equal(got.Qty), "qty %s != %s", want.Qty, got.Qty)
		assert.True(t, want.PnLNet.Equal(got.PnLNet), "pnl %s != %s", want.PnLNet, got.PnLNet)
		assert.True(t, want.Fee.Equal(got.Fee))
	}
}

func TestReadTradesCSV_RejectsWrongHeader(t *testing.T) {
	_, err := ReadTradesCSV(strings.NewReader("a,b,c,d,e,f,g,h,i,j\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected trades header")
}

func TestRenderSummary(t *testing.T) {
	stats := &ledger.Stats{
		Entries:     3,
		Exits:       3,
		Rejected:    1,
		FeesPaid:    decimal.RequireFromString("1.25"),
		RealizedPnL: decimal.RequireFromString("56.00"),
	}
	s := &Summary{
		RunID:       "run-1",
		Strategy:    "breakout",
		Version:     "v3",
		Symbol:      "EURUSD",
		GeneratedAt: time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC),
		Status:      domain.RunSuccess,
		Coverage: &domain.CoverageCheckResult{
			Symbol: "EURUSD",
			Status: domain.CoverageSufficient,
		},
		SLA:         &sla.Result{},
		Orders:      4,
		Engine:      stats,
		InitialCash: "1000",
		FinalCash:   "1056",
	}

	out := RenderSummary(s)
	assert.Contains(t, out, "# Run run-1")
	assert.Contains(t, out, "| Status | SUCCESS |")
	assert.Contains(t, out, "Result: PASS")
	assert.Contains(t, out, "| Final Cash | 1056 |")
	assert.NotContains(t, out, "Failure Reason", "omitted on success")
}

func TestRenderSummary_FailedPrecondition(t *testing.T) {
	s := &Summary{
		RunID:       "run-gap",
		Strategy:    "breakout",
		Symbol:      "EURUSD",
		GeneratedAt: time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC),
		Status:      domain.RunFailedPrecondition,
		FailureReason: domain.FailureDataCoverageGap,
		Coverage: &domain.CoverageCheckResult{
			Symbol: "EURUSD",
			Status: domain.CoverageGapDetected,
			Gaps: []domain.Range{{
				Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
			}},
		},
	}

	out := RenderSummary(s)
	assert.Contains(t, out, "DATA_COVERAGE_GAP")
	assert.Contains(t, out, "GAP_DETECTED")
	assert.Contains(t, out, "2025-01-01T00:00:00.000Z")
}
