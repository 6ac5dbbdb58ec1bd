package run

import (
	"time"

	"backtest-lab/internal/domain"
)

// Manifest captures everything needed to exactly reproduce a run: strategy
// identity and version, the full parameter set, the resolved data range,
// gate results and the final outcome. Written on every path.
type Manifest struct {
	RunID    string `json:"run_id"`
	Strategy string `json:"strategy"`
	Version  string `json:"version"`
	Symbol   string `json:"symbol"`

	Params ManifestParams `json:"params"`

	DataRange ManifestRange `json:"data_range"`

	Gates ManifestGates `json:"gates"`

	Status        domain.RunStatus     `json:"status"`
	FailureReason domain.FailureReason `json:"failure_reason,omitempty"`
	ErrorID       string               `json:"error_id,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// ManifestParams is the full parameter set of the run.
type ManifestParams struct {
	TimeframeMinutes int    `json:"timeframe_minutes"`
	ValidityPolicy   string `json:"validity_policy"`
	ValidFromPolicy  string `json:"valid_from_policy"`
	ValidityMinutes  int    `json:"validity_minutes,omitempty"`
	InitialCash      string `json:"initial_cash"`
	FixedQty         int64  `json:"fixed_qty,omitempty"`
	SlippageBps      int64  `json:"slippage_bps"`
	CommissionBps    int64  `json:"commission_bps"`
}

// ManifestRange is the resolved data range of the run.
type ManifestRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ManifestGates records gate outcomes.
type ManifestGates struct {
	Coverage *ManifestCoverage `json:"coverage,omitempty"`
	SLA      *ManifestSLA      `json:"sla,omitempty"`
}

// ManifestCoverage is the coverage gate record.
type ManifestCoverage struct {
	Status     domain.CoverageStatus `json:"status"`
	Gaps       []ManifestRange       `json:"gaps,omitempty"`
	FetchError string                `json:"fetch_error,omitempty"`
}

// ManifestSLA is the SLA gate record.
type ManifestSLA struct {
	Pass     bool     `json:"pass"`
	Fatal    []string `json:"fatal,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
