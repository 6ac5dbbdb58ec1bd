package domain

import "time"

// RunStatus classifies a backtest run. Every run ends in exactly one of
// these three states.
type RunStatus string

// Run status constants.
const (
	RunSuccess            RunStatus = "SUCCESS"
	RunFailedPrecondition RunStatus = "FAILED_PRECONDITION"
	RunError              RunStatus = "ERROR"
)

// FailureReason is the machine-readable reason attached to a
// FAILED_PRECONDITION run.
type FailureReason string

// Failure reason constants.
const (
	FailureDataCoverageGap FailureReason = "DATA_COVERAGE_GAP"
	FailureDataSLAFailed   FailureReason = "DATA_SLA_FAILED"
)

// RunResult is the always-produced classification of a run.
// FailureReason is set only on FAILED_PRECONDITION, ErrorID only on ERROR.
type RunResult struct {
	RunID          string            `json:"run_id"`
	Status         RunStatus         `json:"status"`
	FailureReason  FailureReason     `json:"failure_reason,omitempty"`
	ErrorID        string            `json:"error_id,omitempty"`
	ArtifactsIndex map[string]string `json:"artifacts_index"`
}

// RunRecord is the persisted row for a completed run, enough to locate and
// reproduce it.
type RunRecord struct {
	RunID         string
	Strategy      string
	Version       string
	Symbol        string
	Status        RunStatus
	FailureReason FailureReason
	ErrorID       string
	StartedAt     time.Time
	FinishedAt    time.Time
	ArtifactsDir  string
}
