package event

import (
	"fmt"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/idhash"
	"backtest-lab/internal/session"
)

// RawSignal mirrors the external strategy signal source contract: symbol,
// side, entry timestamp/price, protective levels, and an opaque session
// context. The core reads nothing beyond these fields.
type RawSignal struct {
	Symbol         string
	Direction      domain.Direction
	EntryTS        time.Time
	EntryPrice     float64
	Stop           float64
	Target         float64
	ExitTS         time.Time
	ExitPrice      float64
	EntryReason    string
	ExitReason     string
	SessionContext string
}

// FromSignals maps raw strategy signals into immutable TradeTemplates,
// computing the deterministic template ID. Signals with naive timestamps
// are rejected at this boundary.
func FromSignals(signals []RawSignal) ([]*domain.TradeTemplate, error) {
	templates := make([]*domain.TradeTemplate, 0, len(signals))
	for i, s := range signals {
		if err := session.CheckAware(s.EntryTS); err != nil {
			return nil, fmt.Errorf("signal %d (%s): %w", i, s.Symbol, err)
		}
		exitTS := s.ExitTS
		if !exitTS.IsZero() {
			exitTS = exitTS.UTC()
		}
		templates = append(templates, &domain.TradeTemplate{
			TemplateID:  idhash.ComputeTemplateID(s.Symbol, s.EntryTS, s.Direction),
			Symbol:      s.Symbol,
			Direction:   s.Direction,
			EntryTS:     s.EntryTS.UTC(),
			EntryPrice:  s.EntryPrice,
			ExitTS:      exitTS,
			ExitPrice:   s.ExitPrice,
			EntryReason: s.EntryReason,
			ExitReason:  s.ExitReason,
		})
	}
	return templates, nil
}
