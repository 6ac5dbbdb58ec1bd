package domain

import (
	"errors"
	"fmt"
	"time"
)

// SessionMode selects the timezone the session windows are interpreted in.
type SessionMode string

// Session mode constants.
const (
	// SessionModeMarket interprets windows in the instrument's trading
	// timezone. This is the default.
	SessionModeMarket SessionMode = "market"

	// SessionModeDisplay interprets windows in a presentation timezone.
	// Opt-in only.
	SessionModeDisplay SessionMode = "display"
)

// ClockTime is a wall-clock time of day within a session timezone.
type ClockTime struct {
	Hour   int
	Minute int
}

// Minutes returns the time of day in minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// SessionWindow is one (start, end) local-time trading window.
type SessionWindow struct {
	Start ClockTime
	End   ClockTime
}

// SessionSpec is an ordered set of local-time trading windows plus the
// timezone they are interpreted in.
type SessionSpec struct {
	Windows  []SessionWindow
	Location *time.Location
	Mode     SessionMode
}

// SessionSpec validation errors.
var (
	ErrEmptySession       = errors.New("session spec has no windows")
	ErrMissingLocation    = errors.New("session spec has no timezone location")
	ErrInvalidWindow      = errors.New("session window start must be before end")
	ErrUnorderedWindows   = errors.New("session windows must be ordered and non-overlapping")
	ErrUnknownSessionMode = errors.New("unknown session mode")
)

// Validate checks the structural invariants: at least one window, an explicit
// timezone, start < end per window, windows ordered and non-overlapping.
func (s SessionSpec) Validate() error {
	if len(s.Windows) == 0 {
		return ErrEmptySession
	}
	if s.Location == nil {
		return ErrMissingLocation
	}
	switch s.Mode {
	case SessionModeMarket, SessionModeDisplay, "":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSessionMode, s.Mode)
	}
	prevEnd := -1
	for i, w := range s.Windows {
		if w.Start.Minutes() >= w.End.Minutes() {
			return fmt.Errorf("%w: window %d (%s-%s)", ErrInvalidWindow, i, w.Start, w.End)
		}
		if w.Start.Minutes() < prevEnd {
			return fmt.Errorf("%w: window %d starts before window %d ends", ErrUnorderedWindows, i, i-1)
		}
		prevEnd = w.End.Minutes()
	}
	return nil
}
