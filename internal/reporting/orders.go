// Package reporting renders run artifacts: orders.csv, trades.csv and the
// human-readable run summary.
package reporting

import (
	"fmt"
	"log"
	"strings"
	"time"

	"backtest-lab/internal/domain"
)

// tsLayout is ISO-8601 with timezone offset, millisecond precision.
const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// RenderOrdersCSV renders orders as CSV. Rows with valid_to <= valid_from
// never appear in the output: they are filtered here with a logged count as
// a last line of defense, even though the validity calculator already
// refuses to produce such windows.
func RenderOrdersCSV(orders []*domain.Order) string {
	var sb strings.Builder

	sb.WriteString("template_id,symbol,direction,price,valid_from,valid_to\n")

	filtered := 0
	for _, o := range orders {
		if !o.ValidTo.After(o.ValidFrom) {
			filtered++
			continue
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s\n",
			o.TemplateID,
			o.Symbol,
			o.Direction,
			formatPrice(o.Price),
			o.ValidFrom.Format(tsLayout),
			o.ValidTo.Format(tsLayout),
		))
	}

	if filtered > 0 {
		log.Printf("[reporting] filtered %d orders with non-positive validity windows", filtered)
	}

	return sb.String()
}

// RenderRejectedOrdersCSV renders the explicit rejection list collected
// during order construction.
func RenderRejectedOrdersCSV(rejected []*domain.RejectedOrder) string {
	var sb strings.Builder

	sb.WriteString("template_id,symbol,reason\n")
	for _, r := range rejected {
		sb.WriteString(fmt.Sprintf("%s,%s,%s\n", r.TemplateID, r.Symbol, csvEscape(r.Reason)))
	}
	return sb.String()
}

func formatPrice(p float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", p), "0"), ".")
}

// csvEscape quotes a field when it contains a comma or a quote.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// parseTS parses a timestamp written by this package.
func parseTS(s string) (time.Time, error) {
	ts, err := time.Parse(tsLayout, s)
	if err != nil {
		// Accept plain RFC3339 written by other tooling
		ts, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return ts.UTC(), nil
}
