package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/session"
)

// SessionSpec converts the session section into a validated domain spec.
// An empty windows list yields a single full-day window, so configs that
// never trade session-bound policies need no session block at all.
func (c *Config) SessionSpec() (domain.SessionSpec, error) {
	tz := c.Session.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return domain.SessionSpec{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	spec := domain.SessionSpec{
		Location: loc,
		Mode:     domain.SessionMode(c.Session.Mode),
	}
	if len(c.Session.Windows) == 0 {
		spec.Windows = []domain.SessionWindow{{
			Start: domain.ClockTime{Hour: 0, Minute: 0},
			End:   domain.ClockTime{Hour: 23, Minute: 59},
		}}
	}
	for _, w := range c.Session.Windows {
		start, err := parseClockTime(w.Start)
		if err != nil {
			return domain.SessionSpec{}, fmt.Errorf("window start: %w", err)
		}
		end, err := parseClockTime(w.End)
		if err != nil {
			return domain.SessionSpec{}, fmt.Errorf("window end: %w", err)
		}
		spec.Windows = append(spec.Windows, domain.SessionWindow{Start: start, End: end})
	}

	if err := spec.Validate(); err != nil {
		return domain.SessionSpec{}, err
	}
	return spec, nil
}

// EndOfDayProvider builds the close provider for the eod validity policy
// from execution.eod_close, resolved in the session timezone. Returns nil
// when no close time is configured.
func (c *Config) EndOfDayProvider(loc *time.Location) (*session.FixedCloseProvider, error) {
	if c.Execution.EodClose == "" {
		return nil, nil
	}
	close, err := parseClockTime(c.Execution.EodClose)
	if err != nil {
		return nil, fmt.Errorf("eod_close: %w", err)
	}
	return &session.FixedCloseProvider{Close: close, Location: loc}, nil
}

// DataRange parses the run start and end into a UTC range.
func (c *Config) DataRange() (domain.Range, error) {
	start, err := time.Parse(time.RFC3339, c.Run.Start)
	if err != nil {
		return domain.Range{}, fmt.Errorf("parse run start %q: %w", c.Run.Start, err)
	}
	end, err := time.Parse(time.RFC3339, c.Run.End)
	if err != nil {
		return domain.Range{}, fmt.Errorf("parse run end %q: %w", c.Run.End, err)
	}
	if !end.After(start) {
		return domain.Range{}, fmt.Errorf("run end %s is not after start %s", c.Run.End, c.Run.Start)
	}
	return domain.Range{Start: start.UTC(), End: end.UTC()}, nil
}

// parseClockTime parses "HH:MM".
func parseClockTime(s string) (domain.ClockTime, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return domain.ClockTime{}, fmt.Errorf("malformed clock time %q, want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return domain.ClockTime{}, fmt.Errorf("bad hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return domain.ClockTime{}, fmt.Errorf("bad minute in %q", s)
	}
	return domain.ClockTime{Hour: hour, Minute: minute}, nil
}
