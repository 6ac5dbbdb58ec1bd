package domain

import "time"

// Bar is one OHLCV record for a fixed time interval.
// Timestamps are always UTC instants; conversion to market or display
// timezones happens only at session resolution or rendering.
type Bar struct {
	Symbol    string
	Timestamp time.Time // bar open, UTC
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// BarSpec describes the aggregation grid bars live on.
type BarSpec struct {
	TimeframeMinutes int    // bar length
	Label            string // "left" | "right": which edge the timestamp names
	Closed           string // "left" | "right": which edge is inclusive
	Origin           string // grid anchor, "midnight" unless stated otherwise
	OffsetMinutes    int    // shift of the grid relative to the origin
}

// Timeframe returns the bar length as a duration.
func (s BarSpec) Timeframe() time.Duration {
	return time.Duration(s.TimeframeMinutes) * time.Minute
}

// NextBarOpen returns the open of the first bar strictly after ts on the
// spec's grid. The computation is done on the UTC instant.
func (s BarSpec) NextBarOpen(ts time.Time) time.Time {
	tf := s.Timeframe()
	if tf <= 0 {
		return ts
	}
	utc := ts.UTC()
	offset := time.Duration(s.OffsetMinutes) * time.Minute
	aligned := utc.Add(-offset).Truncate(tf).Add(offset)
	if !aligned.After(utc) {
		aligned = aligned.Add(tf)
	}
	return aligned
}
