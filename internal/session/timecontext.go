// Package session resolves canonical UTC timestamps into market-local
// trading session windows. It is a leaf: nothing here depends on strategy,
// storage, or execution code.
package session

import (
	"errors"
	"fmt"
	"time"

	"backtest-lab/internal/domain"
)

// Timestamp boundary errors.
var (
	// ErrNaiveTimestamp is returned when a public entry point receives a
	// timestamp with no usable instant (the zero time). Callers must
	// localize explicitly before calling in.
	ErrNaiveTimestamp = errors.New("naive or zero timestamp rejected")
)

// TimeContext carries the timezone and aggregation context for one
// instrument. The canonical timezone is always UTC: every comparison in the
// core happens on UTC instants, and MarketTZ/DisplayTZ are used only to
// resolve session windows and render output.
type TimeContext struct {
	MarketTZ  *time.Location
	DisplayTZ *time.Location
	Bar       domain.BarSpec
	Session   domain.SessionSpec
}

// NewTimeContext validates and builds a TimeContext. DisplayTZ defaults to
// the market timezone when nil.
func NewTimeContext(marketTZ *time.Location, displayTZ *time.Location, bar domain.BarSpec, spec domain.SessionSpec) (*TimeContext, error) {
	if marketTZ == nil {
		return nil, fmt.Errorf("time context: %w", domain.ErrMissingLocation)
	}
	if displayTZ == nil {
		displayTZ = marketTZ
	}
	if bar.TimeframeMinutes <= 0 {
		return nil, fmt.Errorf("time context: timeframe must be positive, got %d", bar.TimeframeMinutes)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("time context: %w", err)
	}
	return &TimeContext{
		MarketTZ:  marketTZ,
		DisplayTZ: displayTZ,
		Bar:       bar,
		Session:   spec,
	}, nil
}

// CheckAware rejects timestamps that carry no usable instant.
func CheckAware(ts time.Time) error {
	if ts.IsZero() {
		return ErrNaiveTimestamp
	}
	return nil
}

// SessionLocation returns the timezone the session windows are interpreted
// in: the market timezone by default, the display timezone only when the
// spec opts into display mode.
func (tc *TimeContext) SessionLocation() *time.Location {
	if tc.Session.Mode == domain.SessionModeDisplay {
		return tc.DisplayTZ
	}
	if tc.Session.Location != nil {
		return tc.Session.Location
	}
	return tc.MarketTZ
}
