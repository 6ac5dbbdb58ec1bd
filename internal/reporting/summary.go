package reporting

import (
	"fmt"
	"strings"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/ledger"
	"backtest-lab/internal/sla"
)

// Summary is the input of the run summary renderer.
type Summary struct {
	RunID       string
	Strategy    string
	Version     string
	Symbol      string
	GeneratedAt time.Time

	Status        domain.RunStatus
	FailureReason domain.FailureReason
	ErrorID       string

	Coverage *domain.CoverageCheckResult
	SLA      *sla.Result

	Orders         int
	RejectedOrders int
	Engine         *ledger.Stats
	FinalCash      string
	InitialCash    string
}

// RenderSummary renders the run summary as Markdown.
func RenderSummary(s *Summary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Run %s\n\n", s.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", s.GeneratedAt.UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Strategy: %s %s | Symbol: %s\n\n", s.Strategy, s.Version, s.Symbol))

	sb.WriteString("## Outcome\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Status | %s |\n", s.Status))
	if s.FailureReason != "" {
		sb.WriteString(fmt.Sprintf("| Failure Reason | %s |\n", s.FailureReason))
	}
	if s.ErrorID != "" {
		sb.WriteString(fmt.Sprintf("| Error ID | %s |\n", s.ErrorID))
	}
	sb.WriteString("\n")

	if s.Coverage != nil {
		sb.WriteString("## Coverage Gate\n\n")
		sb.WriteString(fmt.Sprintf("Status: %s\n\n", s.Coverage.Status))
		if len(s.Coverage.Gaps) > 0 {
			sb.WriteString("| Gap Start | Gap End |\n")
			sb.WriteString("|-----------|--------|\n")
			for _, g := range s.Coverage.Gaps {
				sb.WriteString(fmt.Sprintf("| %s | %s |\n",
					g.Start.Format(tsLayout), g.End.Format(tsLayout)))
			}
			sb.WriteString("\n")
		}
		if s.Coverage.FetchError != "" {
			sb.WriteString(fmt.Sprintf("Fetch error: %s\n\n", s.Coverage.FetchError))
		}
	}

	if s.SLA != nil {
		sb.WriteString("## SLA Gate\n\n")
		if s.SLA.Pass() {
			sb.WriteString("Result: PASS\n\n")
		} else {
			sb.WriteString("Result: FAIL\n\n")
		}
		writeViolations(&sb, "Fatal", s.SLA.FatalViolations)
		writeViolations(&sb, "Warnings", s.SLA.WarningViolations)
	}

	if s.Engine != nil {
		sb.WriteString("## Execution\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Orders | %d |\n", s.Orders))
		sb.WriteString(fmt.Sprintf("| Rejected Orders | %d |\n", s.RejectedOrders))
		sb.WriteString(fmt.Sprintf("| Entries | %d |\n", s.Engine.Entries))
		sb.WriteString(fmt.Sprintf("| Exits | %d |\n", s.Engine.Exits))
		sb.WriteString(fmt.Sprintf("| Rejected Fills | %d |\n", s.Engine.Rejected))
		sb.WriteString(fmt.Sprintf("| Fees Paid | %s |\n", s.Engine.FeesPaid))
		sb.WriteString(fmt.Sprintf("| Realized PnL (net) | %s |\n", s.Engine.RealizedPnL))
		sb.WriteString(fmt.Sprintf("| Initial Cash | %s |\n", s.InitialCash))
		sb.WriteString(fmt.Sprintf("| Final Cash | %s |\n", s.FinalCash))
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeViolations(sb *strings.Builder, title string, violations []sla.Violation) {
	if len(violations) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	for _, v := range violations {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", v.Code, v.Detail))
	}
	sb.WriteString("\n")
}
