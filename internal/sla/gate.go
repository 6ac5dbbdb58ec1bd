// Package sla validates bar series quality before execution. Fatal
// violations block a run; warnings are reported but do not.
package sla

import (
	"fmt"
	"math"
	"time"

	"backtest-lab/internal/domain"
)

// Violation codes.
const (
	CodeNaNOHLC            = "NAN_OHLC"
	CodeBarGap             = "BAR_GAP"
	CodeDuplicateTimestamp = "DUPLICATE_TIMESTAMP"
	CodeLowCompleteness    = "LOW_COMPLETENESS"
	CodeNoBars             = "NO_BARS"
)

// DefaultCompletenessMin is the warning threshold for the completeness
// ratio.
const DefaultCompletenessMin = 0.99

// Violation is one SLA finding.
type Violation struct {
	Code   string
	Detail string
}

// Result holds the gate outcome. Fatal violations block execution; warnings
// are logged by the caller and do not.
type Result struct {
	FatalViolations   []Violation
	WarningViolations []Violation
}

// Pass reports whether the series may be executed against.
func (r Result) Pass() bool {
	return len(r.FatalViolations) == 0
}

// Config parameterizes a check. RequiredTimeframe must be the timeframe the
// strategy actually computes on: when a strategy aggregates M5 into M15, the
// check runs on M5.
type Config struct {
	RequiredTimeframe time.Duration

	// LookbackBars bounds the gap check to the most recent bars. Zero
	// means the whole series.
	LookbackBars int

	// CompletenessMin is the warning threshold; defaults to
	// DefaultCompletenessMin when zero.
	CompletenessMin float64
}

// Check runs all SLA checks over the bar series. Bars are expected in
// ascending timestamp order, as the bar store returns them.
func Check(bars []domain.Bar, cfg Config) Result {
	var result Result

	if len(bars) == 0 {
		result.FatalViolations = append(result.FatalViolations, Violation{
			Code:   CodeNoBars,
			Detail: "empty bar series",
		})
		return result
	}

	result.FatalViolations = append(result.FatalViolations, checkNaN(bars)...)
	result.FatalViolations = append(result.FatalViolations, checkDuplicates(bars)...)

	gaps := checkGaps(bars, cfg)
	result.FatalViolations = append(result.FatalViolations, gaps...)

	// Completeness is a warning only when the gap check already passed:
	// isolated low-volume periods depress the ratio without breaking the
	// consecutive-bar requirement inside the lookback.
	if len(gaps) == 0 {
		if w, ok := checkCompleteness(bars, cfg); ok {
			result.WarningViolations = append(result.WarningViolations, w)
		}
	}

	return result
}

func checkNaN(bars []domain.Bar) []Violation {
	var violations []Violation
	for _, b := range bars {
		if math.IsNaN(b.Open) || math.IsNaN(b.High) || math.IsNaN(b.Low) || math.IsNaN(b.Close) {
			violations = append(violations, Violation{
				Code:   CodeNaNOHLC,
				Detail: fmt.Sprintf("NaN in OHLC at %s", b.Timestamp.UTC().Format(time.RFC3339)),
			})
		}
	}
	return violations
}

func checkDuplicates(bars []domain.Bar) []Violation {
	var violations []Violation
	seen := make(map[int64]bool, len(bars))
	for _, b := range bars {
		key := b.Timestamp.UTC().UnixMilli()
		if seen[key] {
			violations = append(violations, Violation{
				Code:   CodeDuplicateTimestamp,
				Detail: fmt.Sprintf("duplicate bar timestamp %s", b.Timestamp.UTC().Format(time.RFC3339)),
			})
		}
		seen[key] = true
	}
	return violations
}

// checkGaps requires consecutive bars at the required timeframe within the
// lookback window.
func checkGaps(bars []domain.Bar, cfg Config) []Violation {
	if cfg.RequiredTimeframe <= 0 {
		return nil
	}

	window := bars
	if cfg.LookbackBars > 0 && len(bars) > cfg.LookbackBars {
		window = bars[len(bars)-cfg.LookbackBars:]
	}

	var violations []Violation
	for i := 1; i < len(window); i++ {
		delta := window[i].Timestamp.Sub(window[i-1].Timestamp)
		if delta > cfg.RequiredTimeframe {
			violations = append(violations, Violation{
				Code: CodeBarGap,
				Detail: fmt.Sprintf("gap of %s between %s and %s (required %s)",
					delta,
					window[i-1].Timestamp.UTC().Format(time.RFC3339),
					window[i].Timestamp.UTC().Format(time.RFC3339),
					cfg.RequiredTimeframe),
			})
		}
	}
	return violations
}

func checkCompleteness(bars []domain.Bar, cfg Config) (Violation, bool) {
	if cfg.RequiredTimeframe <= 0 || len(bars) < 2 {
		return Violation{}, false
	}

	threshold := cfg.CompletenessMin
	if threshold <= 0 {
		threshold = DefaultCompletenessMin
	}

	span := bars[len(bars)-1].Timestamp.Sub(bars[0].Timestamp)
	expected := int64(span/cfg.RequiredTimeframe) + 1
	ratio := float64(len(bars)) / float64(expected)
	if ratio >= threshold {
		return Violation{}, false
	}

	return Violation{
		Code: CodeLowCompleteness,
		Detail: fmt.Sprintf("completeness %.4f below %.2f (%d of %d expected bars)",
			ratio, threshold, len(bars), expected),
	}, true
}
