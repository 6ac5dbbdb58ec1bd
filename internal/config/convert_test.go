package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
)

func TestSessionSpec(t *testing.T) {
	cfg := &Config{Session: Session{
		Timezone: "America/New_York",
		Windows:  []SessionWindow{{Start: "09:30", End: "16:00"}},
		Mode:     "market",
	}}

	spec, err := cfg.SessionSpec()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", spec.Location.String())
	require.Len(t, spec.Windows, 1)
	assert.Equal(t, domain.ClockTime{Hour: 9, Minute: 30}, spec.Windows[0].Start)
	assert.Equal(t, domain.ClockTime{Hour: 16, Minute: 0}, spec.Windows[0].End)
}

func TestSessionSpec_DefaultsToFullDayUTC(t *testing.T) {
	cfg := &Config{Session: Session{Mode: "market"}}

	spec, err := cfg.SessionSpec()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, spec.Location)
	require.Len(t, spec.Windows, 1)
	assert.Equal(t, domain.ClockTime{Hour: 0, Minute: 0}, spec.Windows[0].Start)
	assert.Equal(t, domain.ClockTime{Hour: 23, Minute: 59}, spec.Windows[0].End)
}

func TestSessionSpec_BadWindow(t *testing.T) {
	cfg := &Config{Session: Session{
		Mode:    "market",
		Windows: []SessionWindow{{Start: "9h30", End: "16:00"}},
	}}
	_, err := cfg.SessionSpec()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "9h30")
}

func TestEndOfDayProvider(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cfg := &Config{Execution: Execution{EodClose: "16:00"}}
	eod, err := cfg.EndOfDayProvider(loc)
	require.NoError(t, err)
	require.NotNil(t, eod)

	// 2024-03-04 is a Monday; 16:00 New York is 21:00 UTC under EST.
	close := eod.EndOfDay(time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC))
	assert.True(t, close.Equal(time.Date(2024, 3, 4, 21, 0, 0, 0, time.UTC)))
}

func TestEndOfDayProvider_Unconfigured(t *testing.T) {
	cfg := &Config{}
	eod, err := cfg.EndOfDayProvider(time.UTC)
	require.NoError(t, err)
	assert.Nil(t, eod)
}

func TestDataRange(t *testing.T) {
	cfg := &Config{Run: Run{
		Start: "2024-03-04T00:00:00+01:00",
		End:   "2024-03-08T00:00:00Z",
	}}

	r, err := cfg.DataRange()
	require.NoError(t, err)
	assert.True(t, r.Start.Equal(time.Date(2024, 3, 3, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, r.Start.Location())

	cfg.Run.End = cfg.Run.Start
	_, err = cfg.DataRange()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not after")
}
