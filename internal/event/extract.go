// Package event turns validated trade templates into a deterministically
// ordered stream of atomic events.
package event

import (
	"errors"
	"fmt"

	"backtest-lab/internal/domain"
)

// ErrInvalidTemplate is returned for malformed templates: missing or
// non-positive prices. Validation happens here, at extraction time; the
// execution engine assumes well-formed input.
var ErrInvalidTemplate = errors.New("invalid trade template")

// ToEvents derives the atomic events from templates: one ENTRY per template
// and one EXIT when the template carries an exit leg, the EXIT side being
// the inverse of the ENTRY side. Extraction is deterministic: after
// OrderEvents, a shuffled template list yields the same event sequence.
func ToEvents(templates []*domain.TradeTemplate) ([]*domain.TradeEvent, error) {
	events := make([]*domain.TradeEvent, 0, 2*len(templates))

	for _, tpl := range templates {
		if err := validateTemplate(tpl); err != nil {
			return nil, err
		}

		events = append(events, &domain.TradeEvent{
			Timestamp:  tpl.EntryTS.UTC(),
			Kind:       domain.KindEntry,
			Symbol:     tpl.Symbol,
			TemplateID: tpl.TemplateID,
			Side:       tpl.EntrySide(),
			Price:      tpl.EntryPrice,
		})

		if tpl.HasExit() {
			events = append(events, &domain.TradeEvent{
				Timestamp:  tpl.ExitTS.UTC(),
				Kind:       domain.KindExit,
				Symbol:     tpl.Symbol,
				TemplateID: tpl.TemplateID,
				Side:       tpl.ExitSide(),
				Price:      tpl.ExitPrice,
			})
		}
	}

	return events, nil
}

func validateTemplate(tpl *domain.TradeTemplate) error {
	if tpl == nil {
		return fmt.Errorf("%w: nil template", ErrInvalidTemplate)
	}
	if tpl.TemplateID == "" {
		return fmt.Errorf("%w: empty template_id", ErrInvalidTemplate)
	}
	if tpl.Symbol == "" {
		return fmt.Errorf("%w: empty symbol (template %s)", ErrInvalidTemplate, tpl.TemplateID)
	}
	if tpl.EntryTS.IsZero() {
		return fmt.Errorf("%w: zero entry timestamp (template %s)", ErrInvalidTemplate, tpl.TemplateID)
	}
	if tpl.EntryPrice <= 0 {
		return fmt.Errorf("%w: non-positive entry price %f (template %s)",
			ErrInvalidTemplate, tpl.EntryPrice, tpl.TemplateID)
	}
	if tpl.HasExit() {
		if tpl.ExitPrice <= 0 {
			return fmt.Errorf("%w: non-positive exit price %f (template %s)",
				ErrInvalidTemplate, tpl.ExitPrice, tpl.TemplateID)
		}
		if tpl.ExitTS.Before(tpl.EntryTS) {
			return fmt.Errorf("%w: exit before entry (template %s)", ErrInvalidTemplate, tpl.TemplateID)
		}
	}
	return nil
}
