package event

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/idhash"
)

func tpl(symbol string, dir domain.Direction, entry, exit time.Time, entryPx, exitPx float64) *domain.TradeTemplate {
	return &domain.TradeTemplate{
		TemplateID: idhash.ComputeTemplateID(symbol, entry, dir),
		Symbol:     symbol,
		Direction:  dir,
		EntryTS:    entry,
		EntryPrice: entryPx,
		ExitTS:     exit,
		ExitPrice:  exitPx,
	}
}

func TestToEvents_TwoPerTemplate(t *testing.T) {
	entry := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	exit := entry.Add(time.Hour)

	events, err := ToEvents([]*domain.TradeTemplate{
		tpl("EURUSD", domain.DirectionLong, entry, exit, 1.05, 1.06),
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, domain.KindEntry, events[0].Kind)
	assert.Equal(t, domain.SideBuy, events[0].Side)
	assert.Equal(t, domain.KindExit, events[1].Kind)
	assert.Equal(t, domain.SideSell, events[1].Side) // closing a long is a sell
}

func TestToEvents_ShortSidesInverted(t *testing.T) {
	entry := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	exit := entry.Add(time.Hour)

	events, err := ToEvents([]*domain.TradeTemplate{
		tpl("DAX", domain.DirectionShort, entry, exit, 20000, 19900),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SideSell, events[0].Side)
	assert.Equal(t, domain.SideBuy, events[1].Side) // closing a short is a buy
}

func TestToEvents_OpenTemplateEmitsEntryOnly(t *testing.T) {
	entry := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)

	events, err := ToEvents([]*domain.TradeTemplate{
		tpl("EURUSD", domain.DirectionLong, entry, time.Time{}, 1.05, 0),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.KindEntry, events[0].Kind)
}

func TestToEvents_RejectsMalformedTemplates(t *testing.T) {
	entry := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	exit := entry.Add(time.Hour)

	tests := []struct {
		name string
		tpl  *domain.TradeTemplate
	}{
		{"nil template", nil},
		{"zero entry price", tpl("EURUSD", domain.DirectionLong, entry, exit, 0, 1.06)},
		{"negative entry price", tpl("EURUSD", domain.DirectionLong, entry, exit, -1, 1.06)},
		{"zero exit price with exit ts", tpl("EURUSD", domain.DirectionLong, entry, exit, 1.05, 0)},
		{"exit before entry", tpl("EURUSD", domain.DirectionLong, entry, entry.Add(-time.Hour), 1.05, 1.06)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToEvents([]*domain.TradeTemplate{tt.tpl})
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}

func TestOrderEvents_ExitBeforeEntryAtSameInstant(t *testing.T) {
	ts := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	events := []*domain.TradeEvent{
		{Timestamp: ts, Kind: domain.KindEntry, Symbol: "EURUSD", TemplateID: "b", Side: domain.SideBuy},
		{Timestamp: ts, Kind: domain.KindExit, Symbol: "EURUSD", TemplateID: "a", Side: domain.SideSell},
	}

	ordered := OrderEvents(events)
	assert.Equal(t, domain.KindExit, ordered[0].Kind)
	assert.Equal(t, domain.KindEntry, ordered[1].Kind)
}

func TestOrderEvents_ShuffleInvariant(t *testing.T) {
	base := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)

	var events []*domain.TradeEvent
	symbols := []string{"EURUSD", "DAX", "SPX"}
	for i := 0; i < 40; i++ {
		sym := symbols[i%len(symbols)]
		kind := domain.KindEntry
		if i%2 == 0 {
			kind = domain.KindExit
		}
		events = append(events, &domain.TradeEvent{
			// Deliberate timestamp collisions to exercise the tie-breakers
			Timestamp:  base.Add(time.Duration(i/4) * time.Minute),
			Kind:       kind,
			Symbol:     sym,
			TemplateID: idhash.ComputeTemplateID(sym, base.Add(time.Duration(i)*time.Second), domain.DirectionLong),
			Side:       domain.SideBuy,
			Price:      100,
		})
	}

	reference := OrderEvents(events)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 25; trial++ {
		shuffled := make([]*domain.TradeEvent, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := OrderEvents(shuffled)
		require.Equal(t, len(reference), len(got))
		for i := range reference {
			assert.Equal(t, reference[i], got[i], "trial %d diverged at index %d", trial, i)
		}
	}
}

func TestOrderEvents_DoesNotMutateInput(t *testing.T) {
	ts := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	events := []*domain.TradeEvent{
		{Timestamp: ts.Add(time.Minute), Kind: domain.KindEntry, TemplateID: "z"},
		{Timestamp: ts, Kind: domain.KindExit, TemplateID: "a"},
	}

	_ = OrderEvents(events)
	assert.Equal(t, "z", events[0].TemplateID)
}

func TestFromSignals(t *testing.T) {
	entry := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)

	templates, err := FromSignals([]RawSignal{
		{
			Symbol:     "EURUSD",
			Direction:  domain.DirectionLong,
			EntryTS:    entry,
			EntryPrice: 1.05,
			ExitTS:     entry.Add(time.Hour),
			ExitPrice:  1.06,
		},
	})
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Len(t, templates[0].TemplateID, 64)
	assert.Equal(t, entry, templates[0].EntryTS)
}

func TestFromSignals_RejectsZeroTimestamp(t *testing.T) {
	_, err := FromSignals([]RawSignal{{Symbol: "EURUSD", Direction: domain.DirectionLong, EntryPrice: 1}})
	assert.Error(t, err)
}

// Extracting from a shuffled template list yields the same ordered event
// sequence.
func TestExtractThenOrder_ShuffleInvariant(t *testing.T) {
	base := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	var templates []*domain.TradeTemplate
	for i := 0; i < 20; i++ {
		entry := base.Add(time.Duration(i) * 5 * time.Minute)
		templates = append(templates, tpl("EURUSD", domain.DirectionLong, entry, entry.Add(time.Hour), 1.05, 1.06))
	}

	refEvents, err := ToEvents(templates)
	require.NoError(t, err)
	reference := OrderEvents(refEvents)

	shuffled := make([]*domain.TradeTemplate, len(templates))
	copy(shuffled, templates)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	gotEvents, err := ToEvents(shuffled)
	require.NoError(t, err)
	got := OrderEvents(gotEvents)

	assert.Equal(t, reference, got)
}
