// Package validity derives order validity windows from signal timestamps,
// bar specs, and session semantics.
package validity

import (
	"fmt"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/session"
)

// DefaultValidityMinutes applies when Input.ValidityMinutes is unset.
const DefaultValidityMinutes = 60

// Window is a resolved [ValidFrom, ValidTo] interval. The calculator
// guarantees ValidTo is strictly after ValidFrom.
type Window struct {
	ValidFrom time.Time
	ValidTo   time.Time
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.ValidTo.Sub(w.ValidFrom)
}

// Input carries everything one calculation needs. It is passed explicitly
// per call: the calculator holds no per-run mutable state.
type Input struct {
	SignalTS        time.Time
	Bar             domain.BarSpec
	Policy          domain.ValidityPolicy
	ValidFromPolicy domain.ValidFromPolicy

	// ValidityMinutes applies to the fixed_minutes policy only; one_bar
	// documents it as ignored. Defaults to DefaultValidityMinutes.
	ValidityMinutes int

	// Horizon is the end of the available replay data; good_till_cancel
	// windows extend to it.
	Horizon time.Time
}

// Calculator resolves validity windows. Session resolution goes through the
// injected session.Interface only; the calculator never imports a concrete
// strategy's session implementation.
type Calculator struct {
	sessions session.Interface
	eod      session.EndOfDayProvider
	calendar session.TradingDayCalendar
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithEndOfDayProvider injects the market-close provider the eod policy
// requires.
func WithEndOfDayProvider(p session.EndOfDayProvider) Option {
	return func(c *Calculator) { c.eod = p }
}

// WithTradingDayCalendar injects a real holiday-aware calendar. Without one,
// every weekday counts as a trading day.
func WithTradingDayCalendar(cal session.TradingDayCalendar) Option {
	return func(c *Calculator) { c.calendar = cal }
}

// New creates a Calculator bound to a session implementation.
func New(sessions session.Interface, opts ...Option) *Calculator {
	c := &Calculator{
		sessions: sessions,
		calendar: session.WeekdayCalendar{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate resolves the validity window for one signal.
// Post-condition: the returned window satisfies ValidTo > ValidFrom; any
// policy outcome violating that is rejected with ErrZeroOrNegativeWindow.
func (c *Calculator) Calculate(in Input) (Window, error) {
	if err := session.CheckAware(in.SignalTS); err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}

	validFrom := in.SignalTS.UTC()
	if in.ValidFromPolicy == domain.ValidFromNextBarOpen {
		validFrom = in.Bar.NextBarOpen(in.SignalTS)
	}

	validityMinutes := in.ValidityMinutes
	if validityMinutes <= 0 {
		validityMinutes = DefaultValidityMinutes
	}

	var validTo time.Time
	switch in.Policy {
	case domain.PolicyOneBar:
		validTo = validFrom.Add(in.Bar.Timeframe())

	case domain.PolicySessionEnd:
		// Resolve the session containing valid_from, not the raw signal:
		// a signal landing exactly at session close would otherwise yield
		// a zero-duration window.
		end, ok := c.sessions.SessionEnd(validFrom)
		if !ok {
			return Window{}, fmt.Errorf("%w: %s", ErrOutsideSession, validFrom.Format(time.RFC3339))
		}
		validTo = end

	case domain.PolicyFixedMinutes:
		validTo = validFrom.Add(time.Duration(validityMinutes) * time.Minute)
		// Clamp down to the session close when the window would outlive
		// the session. Never clamp upward.
		if end, ok := c.sessions.SessionEnd(validFrom); ok && validTo.After(end) {
			validTo = end
		}

	case domain.PolicyEOD:
		if c.eod == nil {
			return Window{}, ErrMissingProvider
		}
		validTo = c.endOfDay(validFrom)

	case domain.PolicyGoodTillCancel:
		// No time-based expiry: the window extends to the replay horizon.
		if in.Horizon.IsZero() {
			return Window{}, fmt.Errorf("%w: good_till_cancel needs a replay horizon", ErrInvalidTimestamp)
		}
		validTo = in.Horizon.UTC()

	default:
		return Window{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, in.Policy)
	}

	if !validTo.After(validFrom) {
		return Window{}, fmt.Errorf("%w: valid_from=%s valid_to=%s policy=%s",
			ErrZeroOrNegativeWindow,
			validFrom.Format(time.RFC3339),
			validTo.Format(time.RFC3339),
			in.Policy)
	}

	return Window{ValidFrom: validFrom, ValidTo: validTo}, nil
}

// endOfDay resolves the market close for valid_from, rolling to the next
// trading day's close when valid_from is already past today's close.
func (c *Calculator) endOfDay(validFrom time.Time) time.Time {
	close := c.eod.EndOfDay(validFrom)
	if close.After(validFrom) && c.calendar.IsTradingDay(validFrom) {
		return close
	}

	day := validFrom
	for i := 0; i < 366; i++ {
		day = day.AddDate(0, 0, 1)
		if !c.calendar.IsTradingDay(day) {
			continue
		}
		next := c.eod.EndOfDay(day)
		if next.After(validFrom) {
			return next
		}
	}
	// A calendar with no trading day in a year is a configuration bug.
	return close
}
