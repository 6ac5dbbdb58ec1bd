package validity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/session"
)

func testSessions(t *testing.T, loc *time.Location) session.Interface {
	t.Helper()
	spec := domain.SessionSpec{
		Windows: []domain.SessionWindow{
			{Start: domain.ClockTime{Hour: 15}, End: domain.ClockTime{Hour: 16}},
		},
		Location: loc,
		Mode:     domain.SessionModeMarket,
	}
	require.NoError(t, spec.Validate())
	return session.NewCalendar(spec)
}

func cet(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func TestCalculate_OneBar(t *testing.T) {
	loc := cet(t)
	calc := New(testSessions(t, loc))

	// Scenario: 5-minute bars, signal 15:30:00+01:00
	signal := time.Date(2025, 1, 6, 15, 30, 0, 0, loc)
	win, err := calc.Calculate(Input{
		SignalTS:        signal,
		Bar:             domain.BarSpec{TimeframeMinutes: 5},
		Policy:          domain.PolicyOneBar,
		ValidFromPolicy: domain.ValidFromSignal,
		ValidityMinutes: 999, // documented as ignored for one_bar
	})
	require.NoError(t, err)

	assert.Equal(t, signal.UTC(), win.ValidFrom)
	assert.Equal(t, signal.Add(5*time.Minute).UTC(), win.ValidTo)
}

func TestCalculate_SessionEnd(t *testing.T) {
	loc := cet(t)
	calc := New(testSessions(t, loc))

	signal := time.Date(2025, 1, 6, 15, 30, 0, 0, loc)
	win, err := calc.Calculate(Input{
		SignalTS: signal,
		Bar:      domain.BarSpec{TimeframeMinutes: 5},
		Policy:   domain.PolicySessionEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 6, 16, 0, 0, 0, loc).UTC(), win.ValidTo)
}

func TestCalculate_SessionEnd_AtCloseRejected(t *testing.T) {
	loc := cet(t)
	calc := New(testSessions(t, loc))

	// Signal exactly at session close: valid_from is outside the session,
	// so the policy must reject rather than return a zero window.
	signal := time.Date(2025, 1, 6, 16, 0, 0, 0, loc)
	_, err := calc.Calculate(Input{
		SignalTS: signal,
		Bar:      domain.BarSpec{TimeframeMinutes: 5},
		Policy:   domain.PolicySessionEnd,
	})
	assert.ErrorIs(t, err, ErrOutsideSession)
}

func TestCalculate_SessionEnd_NextBarOpenResolvesNewSession(t *testing.T) {
	loc := cet(t)
	calc := New(testSessions(t, loc))

	// Signal at 15:58 with next_bar_open: valid_from = 16:00, outside the
	// session. The session is resolved against valid_from, not the signal.
	signal := time.Date(2025, 1, 6, 15, 58, 0, 0, loc)
	_, err := calc.Calculate(Input{
		SignalTS:        signal,
		Bar:             domain.BarSpec{TimeframeMinutes: 5},
		Policy:          domain.PolicySessionEnd,
		ValidFromPolicy: domain.ValidFromNextBarOpen,
	})
	assert.ErrorIs(t, err, ErrOutsideSession)
}

func TestCalculate_FixedMinutes_ClampedToSessionEnd(t *testing.T) {
	loc := cet(t)
	calc := New(testSessions(t, loc))

	// Scenario: session 15:00-16:00, signal 15:45, 30 validity minutes.
	// Would-be 16:15 clamps down to 16:00: effective window 15 minutes.
	signal := time.Date(2025, 1, 6, 15, 45, 0, 0, loc)
	win, err := calc.Calculate(Input{
		SignalTS:        signal,
		Bar:             domain.BarSpec{TimeframeMinutes: 5},
		Policy:          domain.PolicyFixedMinutes,
		ValidityMinutes: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 6, 16, 0, 0, 0, loc).UTC(), win.ValidTo)
	assert.Equal(t, 15*time.Minute, win.Duration())
}

func TestCalculate_FixedMinutes_NoUpwardClamp(t *testing.T) {
	loc := cet(t)
	calc := New(testSessions(t, loc))

	// 10 validity minutes ending before session close stay at 10 minutes.
	signal := time.Date(2025, 1, 6, 15, 15, 0, 0, loc)
	win, err := calc.Calculate(Input{
		SignalTS:        signal,
		Bar:             domain.BarSpec{TimeframeMinutes: 5},
		Policy:          domain.PolicyFixedMinutes,
		ValidityMinutes: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, win.Duration())
}

func TestCalculate_FixedMinutes_DefaultMinutes(t *testing.T) {
	loc := cet(t)
	calc := New(testSessions(t, loc))

	signal := time.Date(2025, 1, 6, 15, 0, 0, 0, loc)
	win, err := calc.Calculate(Input{
		SignalTS: signal,
		Bar:      domain.BarSpec{TimeframeMinutes: 5},
		Policy:   domain.PolicyFixedMinutes,
	})
	require.NoError(t, err)
	// Default 60 minutes clamps to the 60-minute session
	assert.Equal(t, 60*time.Minute, win.Duration())
}

func TestCalculate_EOD(t *testing.T) {
	loc := cet(t)
	provider := &session.FixedCloseProvider{
		Close:    domain.ClockTime{Hour: 17, Minute: 30},
		Location: loc,
	}
	calc := New(testSessions(t, loc), WithEndOfDayProvider(provider))

	signal := time.Date(2025, 1, 6, 15, 30, 0, 0, loc) // Monday
	win, err := calc.Calculate(Input{
		SignalTS: signal,
		Bar:      domain.BarSpec{TimeframeMinutes: 5},
		Policy:   domain.PolicyEOD,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 6, 17, 30, 0, 0, loc).UTC(), win.ValidTo)
}

func TestCalculate_EOD_RollsPastCloseAndWeekend(t *testing.T) {
	loc := cet(t)
	provider := &session.FixedCloseProvider{
		Close:    domain.ClockTime{Hour: 17, Minute: 30},
		Location: loc,
	}
	calc := New(testSessions(t, loc), WithEndOfDayProvider(provider))

	// Friday 18:00, past the close: rolls over the weekend to Monday close.
	signal := time.Date(2025, 1, 3, 18, 0, 0, 0, loc)
	win, err := calc.Calculate(Input{
		SignalTS: signal,
		Bar:      domain.BarSpec{TimeframeMinutes: 5},
		Policy:   domain.PolicyEOD,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 6, 17, 30, 0, 0, loc).UTC(), win.ValidTo)
}

func TestCalculate_EOD_MissingProvider(t *testing.T) {
	loc := cet(t)
	calc := New(testSessions(t, loc))

	_, err := calc.Calculate(Input{
		SignalTS: time.Date(2025, 1, 6, 15, 30, 0, 0, loc),
		Bar:      domain.BarSpec{TimeframeMinutes: 5},
		Policy:   domain.PolicyEOD,
	})
	assert.ErrorIs(t, err, ErrMissingProvider)
}

func TestCalculate_GoodTillCancel(t *testing.T) {
	loc := cet(t)
	calc := New(testSessions(t, loc))

	signal := time.Date(2025, 1, 6, 15, 30, 0, 0, loc)
	horizon := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	win, err := calc.Calculate(Input{
		SignalTS: signal,
		Bar:      domain.BarSpec{TimeframeMinutes: 5},
		Policy:   domain.PolicyGoodTillCancel,
		Horizon:  horizon,
	})
	require.NoError(t, err)
	assert.Equal(t, horizon, win.ValidTo)
}

func TestCalculate_ZeroTimestampRejected(t *testing.T) {
	loc := cet(t)
	calc := New(testSessions(t, loc))

	_, err := calc.Calculate(Input{
		Bar:    domain.BarSpec{TimeframeMinutes: 5},
		Policy: domain.PolicyOneBar,
	})
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestCalculate_UnknownPolicy(t *testing.T) {
	loc := cet(t)
	calc := New(testSessions(t, loc))

	_, err := calc.Calculate(Input{
		SignalTS: time.Date(2025, 1, 6, 15, 30, 0, 0, loc),
		Bar:      domain.BarSpec{TimeframeMinutes: 5},
		Policy:   domain.ValidityPolicy("lunar_cycle"),
	})
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

// Post-condition sweep: every policy either returns a strictly positive
// window or a typed error, for a grid of signal times around the session.
func TestCalculate_PostConditionNeverViolated(t *testing.T) {
	loc := cet(t)
	provider := &session.FixedCloseProvider{
		Close:    domain.ClockTime{Hour: 17, Minute: 30},
		Location: loc,
	}
	calc := New(testSessions(t, loc), WithEndOfDayProvider(provider))

	policies := []domain.ValidityPolicy{
		domain.PolicyOneBar,
		domain.PolicySessionEnd,
		domain.PolicyFixedMinutes,
		domain.PolicyEOD,
		domain.PolicyGoodTillCancel,
	}
	fromPolicies := []domain.ValidFromPolicy{
		domain.ValidFromSignal,
		domain.ValidFromNextBarOpen,
	}
	horizon := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	base := time.Date(2025, 1, 6, 14, 0, 0, 0, loc)
	for offset := 0; offset <= 180; offset += 7 {
		signal := base.Add(time.Duration(offset) * time.Minute)
		for _, policy := range policies {
			for _, fromPolicy := range fromPolicies {
				win, err := calc.Calculate(Input{
					SignalTS:        signal,
					Bar:             domain.BarSpec{TimeframeMinutes: 5},
					Policy:          policy,
					ValidFromPolicy: fromPolicy,
					ValidityMinutes: 30,
					Horizon:         horizon,
				})
				if err != nil {
					continue // typed rejection is a valid outcome
				}
				assert.True(t, win.ValidTo.After(win.ValidFrom),
					"policy %s from %s at %s returned non-positive window",
					policy, fromPolicy, signal)
			}
		}
	}
}
