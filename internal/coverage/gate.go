// Package coverage computes the precise set of missing sub-ranges between a
// requested data range and the locally cached ranges. All comparisons run on
// UTC instants: mixing timezone-converted timestamps with date extraction is
// the classic off-by-one-day gap bug and is avoided by construction.
package coverage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"backtest-lab/internal/domain"
)

// FetchFunc backfills one missing sub-range. Injected; the gate itself never
// initiates I/O.
type FetchFunc func(ctx context.Context, symbol string, gap domain.Range) error

// CoverageSource answers which ranges are locally cached for a symbol.
type CoverageSource interface {
	Coverage(ctx context.Context, symbol string, r domain.Range) ([]domain.Range, error)
}

// Gate is the data-coverage gate. Auto-fetch defaults to off: gaps are
// reported, not silently backfilled, unless a fetch callback is supplied.
type Gate struct {
	fetch FetchFunc
}

// Option configures a Gate.
type Option func(*Gate)

// WithFetch opts into backfilling gaps through the given callback.
func WithFetch(fn FetchFunc) Option {
	return func(g *Gate) { g.fetch = fn }
}

// New creates a coverage gate.
func New(opts ...Option) *Gate {
	g := &Gate{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check classifies coverage of requested against cached. Pure: no side
// effects, no I/O.
func (g *Gate) Check(symbol string, requested domain.Range, cached []domain.Range) domain.CoverageCheckResult {
	requested = toUTC(requested)
	merged := mergeRanges(cached)

	result := domain.CoverageCheckResult{
		Symbol:    symbol,
		Requested: requested,
	}
	if len(merged) > 0 {
		result.CachedRange = domain.Range{Start: merged[0].Start, End: merged[len(merged)-1].End}
	}

	result.Gaps = missingRanges(requested, merged)
	if len(result.Gaps) == 0 {
		result.Status = domain.CoverageSufficient
	} else {
		result.Status = domain.CoverageGapDetected
	}
	return result
}

// CheckWithFetch runs Check and, when a fetch callback is configured and
// gaps exist, backfills each gap and re-evaluates against fresh coverage.
// A callback failure yields FETCH_FAILED with the original gap detail.
func (g *Gate) CheckWithFetch(ctx context.Context, symbol string, requested domain.Range, source CoverageSource) (domain.CoverageCheckResult, error) {
	cached, err := source.Coverage(ctx, symbol, requested)
	if err != nil {
		return domain.CoverageCheckResult{}, fmt.Errorf("query coverage for %s: %w", symbol, err)
	}

	result := g.Check(symbol, requested, cached)
	if result.Status != domain.CoverageGapDetected || g.fetch == nil {
		return result, nil
	}

	for _, gap := range result.Gaps {
		if err := g.fetch(ctx, symbol, gap); err != nil {
			result.Status = domain.CoverageFetchFailed
			result.FetchError = err.Error()
			return result, nil
		}
	}

	cached, err = source.Coverage(ctx, symbol, requested)
	if err != nil {
		return domain.CoverageCheckResult{}, fmt.Errorf("re-query coverage for %s: %w", symbol, err)
	}
	return g.Check(symbol, requested, cached), nil
}

// toUTC normalizes a range to UTC instants.
func toUTC(r domain.Range) domain.Range {
	return domain.Range{Start: r.Start.UTC(), End: r.End.UTC()}
}

// mergeRanges sorts and merges overlapping or touching cached ranges.
func mergeRanges(ranges []domain.Range) []domain.Range {
	if len(ranges) == 0 {
		return nil
	}

	normalized := make([]domain.Range, 0, len(ranges))
	for _, r := range ranges {
		if r.IsZero() || r.End.Before(r.Start) {
			continue
		}
		normalized = append(normalized, toUTC(r))
	}
	if len(normalized) == 0 {
		return nil
	}

	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].Start.Before(normalized[j].Start)
	})

	merged := []domain.Range{normalized[0]}
	for _, r := range normalized[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// missingRanges computes the sub-ranges of requested not covered by the
// merged cached ranges: a leading gap before cached data, trailing gap
// after, and interior gaps between cached blocks. Partial coverage is never
// collapsed into a whole-range gap.
func missingRanges(requested domain.Range, merged []domain.Range) []domain.Range {
	if requested.End.Before(requested.Start) {
		return nil
	}
	if len(merged) == 0 {
		return []domain.Range{requested}
	}

	var gaps []domain.Range
	cursor := requested.Start

	for _, r := range merged {
		if r.End.Before(cursor) {
			continue
		}
		if r.Start.After(requested.End) {
			break
		}
		if r.Start.After(cursor) {
			gaps = append(gaps, domain.Range{Start: cursor, End: minTime(r.Start.Add(-time.Nanosecond), requested.End)})
		}
		if r.End.After(cursor) {
			cursor = r.End.Add(time.Nanosecond)
		}
		if cursor.After(requested.End) {
			return gaps
		}
	}

	if !cursor.After(requested.End) {
		gaps = append(gaps, domain.Range{Start: cursor, End: requested.End})
	}
	return gaps
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
