// Package verification reconstructs a run's ledger from its trades.csv and
// checks it against the recorded outcome. Reconstruction is idempotent:
// replaying the same export always reproduces the same final cash.
package verification

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/reporting"
)

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// Result contains the outcome of verifying one run.
type Result struct {
	RunID           string
	Match           bool
	Divergences     []FieldDivergence
	StoredFinalCash decimal.Decimal
	ReplayedCash    decimal.Decimal
}

// ReconstructFinalCash replays realized closes against an initial balance.
// pnl_net already includes fees, so the reconstruction is a plain sum;
// subtracting fees again is the documented double-count mistake.
func ReconstructFinalCash(initialCash decimal.Decimal, trades []*domain.TradeLog) decimal.Decimal {
	cash := initialCash
	for _, t := range trades {
		cash = cash.Add(t.PnLNet)
	}
	return cash
}

// VerifyRun reconstructs the ledger from trades and compares the result to
// the stored final cash. Equality is exact decimal equality, not tolerance.
func VerifyRun(runID string, initialCash, storedFinalCash decimal.Decimal, trades []*domain.TradeLog) *Result {
	replayed := ReconstructFinalCash(initialCash, trades)

	r := &Result{
		RunID:           runID,
		StoredFinalCash: storedFinalCash,
		ReplayedCash:    replayed,
	}
	if !storedFinalCash.Equal(replayed) {
		r.Divergences = append(r.Divergences, FieldDivergence{
			Field:    "FinalCash",
			Expected: storedFinalCash.String(),
			Actual:   replayed.String(),
		})
	}
	r.Match = len(r.Divergences) == 0
	return r
}

// VerifyTradesCSV parses a trades.csv export and verifies it.
func VerifyTradesCSV(runID string, initialCash, storedFinalCash decimal.Decimal, csv io.Reader) (*Result, error) {
	trades, err := reporting.ReadTradesCSV(csv)
	if err != nil {
		return nil, fmt.Errorf("parse trades csv: %w", err)
	}
	return VerifyRun(runID, initialCash, storedFinalCash, trades), nil
}

// CompareTradeLogs compares two realized closes field by field and returns
// divergences. Decimal fields compare by value, timestamps by instant.
func CompareTradeLogs(stored, replayed *domain.TradeLog) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.TemplateID != replayed.TemplateID {
		divergences = append(divergences, FieldDivergence{
			Field:    "TemplateID",
			Expected: stored.TemplateID,
			Actual:   replayed.TemplateID,
		})
	}
	if stored.Symbol != replayed.Symbol {
		divergences = append(divergences, FieldDivergence{
			Field:    "Symbol",
			Expected: stored.Symbol,
			Actual:   replayed.Symbol,
		})
	}
	if stored.Direction != replayed.Direction {
		divergences = append(divergences, FieldDivergence{
			Field:    "Direction",
			Expected: stored.Direction,
			Actual:   replayed.Direction,
		})
	}
	if !stored.EntryTS.Equal(replayed.EntryTS) {
		divergences = append(divergences, FieldDivergence{
			Field:    "EntryTS",
			Expected: stored.EntryTS,
			Actual:   replayed.EntryTS,
		})
	}
	if !stored.ExitTS.Equal(replayed.ExitTS) {
		divergences = append(divergences, FieldDivergence{
			Field:    "ExitTS",
			Expected: stored.ExitTS,
			Actual:   replayed.ExitTS,
		})
	}

	decimals := []struct {
		field            string
		stored, replayed decimal.Decimal
	}{
		{"Qty", stored.Qty, replayed.Qty},
		{"EntryPrice", stored.EntryPrice, replayed.EntryPrice},
		{"ExitPrice", stored.ExitPrice, replayed.ExitPrice},
		{"Fee", stored.Fee, replayed.Fee},
		{"PnLNet", stored.PnLNet, replayed.PnLNet},
	}
	for _, d := range decimals {
		if !d.stored.Equal(d.replayed) {
			divergences = append(divergences, FieldDivergence{
				Field:    d.field,
				Expected: d.stored.String(),
				Actual:   d.replayed.String(),
			})
		}
	}

	return divergences
}

// CompareRuns verifies that a re-executed run produced the same closes as
// the stored ones, position by position.
func CompareRuns(stored, replayed []*domain.TradeLog) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored) != len(replayed) {
		return []FieldDivergence{{
			Field:    "TradeCount",
			Expected: len(stored),
			Actual:   len(replayed),
		}}
	}
	for i := range stored {
		divergences = append(divergences, CompareTradeLogs(stored[i], replayed[i])...)
	}
	return divergences
}
