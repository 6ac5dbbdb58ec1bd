package domain

import "time"

// Range is a half-open-free inclusive time range [Start, End] on UTC instants.
type Range struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the range is unset.
func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether ts lies within [Start, End].
func (r Range) Contains(ts time.Time) bool {
	return !ts.Before(r.Start) && !ts.After(r.End)
}

// CoverageStatus classifies a data-coverage check.
type CoverageStatus string

// Coverage status constants.
const (
	CoverageSufficient  CoverageStatus = "SUFFICIENT"
	CoverageGapDetected CoverageStatus = "GAP_DETECTED"
	CoverageFetchFailed CoverageStatus = "FETCH_FAILED"
)

// CoverageCheckResult is the output of the coverage gate. Gaps are always
// the precise missing sub-ranges, never a whole-range approximation when
// partial data exists.
type CoverageCheckResult struct {
	Symbol      string
	Status      CoverageStatus
	Requested   Range
	CachedRange Range   // union bounds of cached data, zero when none
	Gaps        []Range // precise missing sub-ranges
	FetchError  string  // populated only on FETCH_FAILED
}
