package run

import (
	"fmt"
	"log"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/validity"
)

// buildOrders resolves a validity window for every template. Templates whose
// window cannot be resolved are excluded into an explicit reject list with a
// logged count; the rest of the batch continues. Rejection here is a typed
// outcome, not an error path.
func buildOrders(templates []*domain.TradeTemplate, calc *validity.Calculator, in validity.Input) (orders []*domain.Order, accepted []*domain.TradeTemplate, rejected []*domain.RejectedOrder) {
	for _, tpl := range templates {
		tplIn := in
		tplIn.SignalTS = tpl.EntryTS

		window, err := calc.Calculate(tplIn)
		if err != nil {
			rejected = append(rejected, &domain.RejectedOrder{
				TemplateID: tpl.TemplateID,
				Symbol:     tpl.Symbol,
				Reason:     err.Error(),
			})
			continue
		}

		orders = append(orders, &domain.Order{
			TemplateID: tpl.TemplateID,
			Symbol:     tpl.Symbol,
			Direction:  tpl.Direction,
			Price:      tpl.EntryPrice,
			ValidFrom:  window.ValidFrom,
			ValidTo:    window.ValidTo,
		})
		accepted = append(accepted, tpl)
	}

	if len(rejected) > 0 {
		log.Printf("[run] filtered %d of %d candidate orders with invalid validity windows", len(rejected), len(templates))
	}
	return orders, accepted, rejected
}

// validateTemplates splits templates into well-formed and rejected before
// event extraction, so one malformed template never aborts the batch.
func validateTemplates(templates []*domain.TradeTemplate) (valid []*domain.TradeTemplate, rejected []*domain.RejectedOrder) {
	for _, tpl := range templates {
		if err := checkTemplate(tpl); err != nil {
			rejected = append(rejected, &domain.RejectedOrder{
				TemplateID: tpl.TemplateID,
				Symbol:     tpl.Symbol,
				Reason:     err.Error(),
			})
			continue
		}
		valid = append(valid, tpl)
	}
	return valid, rejected
}

func checkTemplate(tpl *domain.TradeTemplate) error {
	if tpl.TemplateID == "" {
		return fmt.Errorf("missing template id")
	}
	if tpl.EntryTS.IsZero() {
		return fmt.Errorf("missing entry timestamp")
	}
	if tpl.EntryPrice <= 0 {
		return fmt.Errorf("non-positive entry price %v", tpl.EntryPrice)
	}
	if tpl.HasExit() {
		if tpl.ExitPrice <= 0 {
			return fmt.Errorf("non-positive exit price %v", tpl.ExitPrice)
		}
		if tpl.ExitTS.Before(tpl.EntryTS) {
			return fmt.Errorf("exit before entry")
		}
	}
	return nil
}
