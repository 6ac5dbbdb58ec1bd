package domain

import "time"

// Direction is the directional intent of a trade template.
type Direction string

// Direction constants.
const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// EventSide is the side of a single atomic event.
type EventSide string

// Event side constants.
const (
	SideBuy  EventSide = "buy"
	SideSell EventSide = "sell"
)

// EventKind distinguishes position-opening from position-closing events.
type EventKind string

// Event kind constants.
const (
	KindEntry EventKind = "ENTRY"
	KindExit  EventKind = "EXIT"
)

// TradeTemplate is an immutable trade intention produced by a strategy
// adapter. It carries no quantity: sizing happens at execution time from
// live equity, never ahead of time. Consumed once by event extraction,
// then retained only for audit.
type TradeTemplate struct {
	TemplateID  string // deterministic hash of symbol|entry_ts|direction
	Symbol      string
	Direction   Direction
	EntryTS     time.Time
	EntryPrice  float64
	ExitTS      time.Time // zero when the template has no exit yet
	ExitPrice   float64
	EntryReason string
	ExitReason  string
}

// HasExit reports whether the template carries an exit leg.
func (t *TradeTemplate) HasExit() bool {
	return !t.ExitTS.IsZero()
}

// EntrySide returns the side of the opening event.
func (t *TradeTemplate) EntrySide() EventSide {
	if t.Direction == DirectionShort {
		return SideSell
	}
	return SideBuy
}

// ExitSide returns the side of the closing event: the inverse of the entry.
func (t *TradeTemplate) ExitSide() EventSide {
	if t.Direction == DirectionShort {
		return SideBuy
	}
	return SideSell
}

// TradeEvent is one atomic event derived from a template. Two are derived
// per template: the entry and, when present, the exit. Immutable.
type TradeEvent struct {
	Timestamp  time.Time
	Kind       EventKind
	Symbol     string
	TemplateID string
	Side       EventSide
	Price      float64
}
