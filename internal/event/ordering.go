package event

import (
	"sort"

	"backtest-lab/internal/domain"
)

// kindRank orders EXIT before ENTRY at an identical timestamp, so capital
// freed by a closing position is available to a position opening in the
// same instant.
func kindRank(k domain.EventKind) int {
	if k == domain.KindExit {
		return 0
	}
	return 1
}

// OrderEvents returns a new slice ordered by
// (timestamp ASC, kind EXIT<ENTRY, symbol ASC, template_id ASC, side ASC).
// The ties beyond kind exist purely to guarantee one canonical order: for
// any permutation of the same event multiset the output is identical.
func OrderEvents(events []*domain.TradeEvent) []*domain.TradeEvent {
	ordered := make([]*domain.TradeEvent, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool {
		return compareEvents(ordered[i], ordered[j]) < 0
	})
	return ordered
}

// compareEvents returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareEvents(a, b *domain.TradeEvent) int {
	if !a.Timestamp.Equal(b.Timestamp) {
		if a.Timestamp.Before(b.Timestamp) {
			return -1
		}
		return 1
	}
	if ra, rb := kindRank(a.Kind), kindRank(b.Kind); ra != rb {
		return ra - rb
	}
	if a.Symbol != b.Symbol {
		if a.Symbol < b.Symbol {
			return -1
		}
		return 1
	}
	if a.TemplateID != b.TemplateID {
		if a.TemplateID < b.TemplateID {
			return -1
		}
		return 1
	}
	if a.Side != b.Side {
		if a.Side < b.Side {
			return -1
		}
		return 1
	}
	return 0
}
