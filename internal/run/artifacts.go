package run

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/reporting"
)

// Artifact file names inside a run directory.
const (
	fileRunResult      = "run_result.json"
	fileRunManifest    = "run_manifest.json"
	fileOrders         = "orders.csv"
	fileRejectedOrders = "rejected_orders.csv"
	fileTrades         = "trades.csv"
	fileSummary        = "summary.md"
)

// artifactState accumulates everything the terminal WriteArtifacts step
// renders. Fields stay nil when the run never reached the producing stage.
type artifactState struct {
	dir      string
	manifest *Manifest
	result   *domain.RunResult

	templates []*domain.TradeTemplate
	orders    []*domain.Order
	rejected  []*domain.RejectedOrder
	trades    []*domain.TradeLog
	summary   *reporting.Summary
}

// createRunDir creates the per-run artifact directory.
func createRunDir(root, runID string) (string, error) {
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	return dir, nil
}

// writeArtifacts is the terminal step, reached on every path. Individual
// write failures are logged and never abort the remaining writes;
// run_result.json is written last so the classification survives even when
// earlier artifacts fail.
func writeArtifacts(state *artifactState) {
	if state.dir == "" {
		log.Printf("[run] no run directory, artifacts lost for run %s", state.result.RunID)
		return
	}

	index := map[string]string{}

	if state.orders != nil || state.result.Status == domain.RunSuccess {
		content := reporting.RenderOrdersCSV(state.orders)
		if writeFile(state.dir, fileOrders, []byte(content)) {
			index[fileOrders] = fileOrders
		}
	}
	if len(state.rejected) > 0 {
		content := reporting.RenderRejectedOrdersCSV(state.rejected)
		if writeFile(state.dir, fileRejectedOrders, []byte(content)) {
			index[fileRejectedOrders] = fileRejectedOrders
		}
	}
	if state.trades != nil || state.result.Status == domain.RunSuccess {
		var sb strings.Builder
		if err := reporting.WriteTradesCSV(&sb, state.trades); err != nil {
			log.Printf("[run] render trades.csv: %v", err)
		} else if writeFile(state.dir, fileTrades, []byte(sb.String())) {
			index[fileTrades] = fileTrades
		}
	}
	if state.summary != nil {
		if writeFile(state.dir, fileSummary, []byte(reporting.RenderSummary(state.summary))) {
			index[fileSummary] = fileSummary
		}
	}

	if state.manifest != nil {
		if writeJSON(state.dir, fileRunManifest, state.manifest) {
			index[fileRunManifest] = fileRunManifest
		}
	}

	index[fileRunResult] = fileRunResult
	state.result.ArtifactsIndex = index
	if !writeJSON(state.dir, fileRunResult, state.result) {
		delete(index, fileRunResult)
	}
}

// writeErrorArtifact captures a stack trace under a name correlated to the
// error_id.
func writeErrorArtifact(dir, errorID string, detail []byte) string {
	name := fmt.Sprintf("error_%s.txt", errorID)
	if dir == "" || !writeFile(dir, name, detail) {
		return ""
	}
	return name
}

func writeFile(dir, name string, data []byte) bool {
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		log.Printf("[run] write %s: %v", name, err)
		return false
	}
	return true
}

func writeJSON(dir, name string, v any) bool {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("[run] marshal %s: %v", name, err)
		return false
	}
	return writeFile(dir, name, append(data, '\n'))
}
