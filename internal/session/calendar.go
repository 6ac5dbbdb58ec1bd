package session

import (
	"time"

	"backtest-lab/internal/domain"
)

// Interface resolves timestamps against trading session windows. The
// validity calculator depends only on this interface; each strategy supplies
// its own implementation rather than the core importing a concrete one.
type Interface interface {
	// SessionEnd returns the end of the session window containing ts.
	// ok is false when ts falls outside all windows.
	SessionEnd(ts time.Time) (end time.Time, ok bool)

	// InSession reports whether ts falls inside any session window.
	InSession(ts time.Time) bool
}

// Calendar implements Interface over a validated SessionSpec.
type Calendar struct {
	spec domain.SessionSpec
	loc  *time.Location
}

// NewCalendar builds a Calendar. The spec must already be validated.
func NewCalendar(spec domain.SessionSpec) *Calendar {
	return &Calendar{spec: spec, loc: spec.Location}
}

var _ Interface = (*Calendar)(nil)

// SessionEnd resolves the window containing ts and returns its end as a UTC
// instant. The wall-clock comparison happens in the spec's timezone; the
// returned instant is converted back to UTC.
func (c *Calendar) SessionEnd(ts time.Time) (time.Time, bool) {
	if err := CheckAware(ts); err != nil {
		return time.Time{}, false
	}
	local := ts.In(c.loc)
	minutes := local.Hour()*60 + local.Minute()
	for _, w := range c.spec.Windows {
		if minutes >= w.Start.Minutes() && minutes < w.End.Minutes() {
			end := time.Date(local.Year(), local.Month(), local.Day(),
				w.End.Hour, w.End.Minute, 0, 0, c.loc)
			return end.UTC(), true
		}
	}
	return time.Time{}, false
}

// InSession reports whether ts falls inside any window.
func (c *Calendar) InSession(ts time.Time) bool {
	_, ok := c.SessionEnd(ts)
	return ok
}

// TradingDayCalendar answers whether a given date is a trading day.
type TradingDayCalendar interface {
	IsTradingDay(t time.Time) bool
}

// WeekdayCalendar is the stub trading-day calendar: every weekday trades,
// weekends do not. Holiday awareness requires injecting a real calendar.
type WeekdayCalendar struct{}

// IsTradingDay reports whether t falls on a weekday.
func (WeekdayCalendar) IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// EndOfDayProvider resolves the market close for the trading day containing
// a timestamp. Used only by the eod validity policy.
type EndOfDayProvider interface {
	EndOfDay(ts time.Time) time.Time
}

// FixedCloseProvider is an EndOfDayProvider with one fixed local close time
// per trading day.
type FixedCloseProvider struct {
	Close    domain.ClockTime
	Location *time.Location
}

var _ EndOfDayProvider = (*FixedCloseProvider)(nil)

// EndOfDay returns the close instant for the day containing ts, in UTC.
func (p *FixedCloseProvider) EndOfDay(ts time.Time) time.Time {
	local := ts.In(p.Location)
	close := time.Date(local.Year(), local.Month(), local.Day(),
		p.Close.Hour, p.Close.Minute, 0, 0, p.Location)
	return close.UTC()
}
