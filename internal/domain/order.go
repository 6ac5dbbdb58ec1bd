package domain

import "time"

// Order is a trade intention paired with its resolved validity window.
// Orders with ValidTo <= ValidFrom never exist: the validity calculator
// rejects them before construction.
type Order struct {
	TemplateID string
	Symbol     string
	Direction  Direction
	Price      float64
	ValidFrom  time.Time
	ValidTo    time.Time
}

// RejectedOrder records a candidate order excluded during construction,
// kept as an explicit list rather than an exception path.
type RejectedOrder struct {
	TemplateID string
	Symbol     string
	Reason     string
}
