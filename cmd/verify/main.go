// Command verify replays a trades.csv against an initial balance and
// checks the stored final cash with exact decimal equality.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/observability"
	"backtest-lab/internal/verification"
)

func main() {
	tradesPath := flag.String("trades", "", "Path to trades.csv (required)")
	runID := flag.String("run-id", "", "Run ID for the report")
	initialCash := flag.String("initial-cash", "", "Initial cash balance (required)")
	finalCash := flag.String("final-cash", "", "Stored final cash to verify (required)")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[verify] ", log.LstdFlags)

	if *tradesPath == "" {
		logger.Fatal("--trades is required")
	}
	if *initialCash == "" || *finalCash == "" {
		logger.Fatal("--initial-cash and --final-cash are required")
	}

	initial, err := decimal.NewFromString(*initialCash)
	if err != nil {
		logger.Fatalf("parse --initial-cash: %v", err)
	}
	final, err := decimal.NewFromString(*finalCash)
	if err != nil {
		logger.Fatalf("parse --final-cash: %v", err)
	}

	f, err := os.Open(*tradesPath)
	if err != nil {
		logger.Fatalf("open trades: %v", err)
	}
	defer f.Close()

	result, err := verification.VerifyTradesCSV(*runID, initial, final, f)
	if err != nil {
		logger.Fatalf("verify: %v", err)
	}
	observability.RecordVerification(result.Match)

	if *outputJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Fatalf("marshal result: %v", err)
		}
		fmt.Println(string(out))
	} else if result.Match {
		fmt.Printf("OK: replayed cash %s matches stored final cash\n", result.ReplayedCash)
	} else {
		fmt.Printf("MISMATCH: stored %s, replayed %s\n", result.StoredFinalCash, result.ReplayedCash)
		for _, d := range result.Divergences {
			fmt.Printf("  %s: stored %v, replayed %v\n", d.Field, d.Expected, d.Actual)
		}
	}

	if !result.Match {
		os.Exit(1)
	}
}
