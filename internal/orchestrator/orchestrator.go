// Package orchestrator coordinates backtest batches: one run per symbol,
// executed concurrently, each fully isolated in its own run directory.
package orchestrator

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/run"
)

// DefaultConcurrency bounds parallel runs when Options leaves it zero.
const DefaultConcurrency = 4

// Options for creating an Orchestrator.
type Options struct {
	Runner *run.Runner

	// Concurrency bounds parallel symbol runs; DefaultConcurrency when
	// zero.
	Concurrency int

	Verbose bool
}

// Orchestrator fans a run spec out across symbols.
type Orchestrator struct {
	runner      *run.Runner
	concurrency int
	verbose     bool
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Orchestrator{
		runner:      opts.Runner,
		concurrency: concurrency,
		verbose:     opts.Verbose,
	}
}

// BatchResult summarizes one batch execution.
type BatchResult struct {
	Runs                []*domain.RunResult
	Succeeded           int
	FailedPreconditions int
	Errored             int
}

// Run executes spec once per symbol. Every run completes and classifies
// itself; a failing symbol never aborts the others. Results come back in
// symbol order.
func (o *Orchestrator) Run(ctx context.Context, spec run.Spec, symbols []string) (*BatchResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to run")
	}

	// Each goroutine writes its own slice slot, so no locking is needed.
	results := make([]*domain.RunResult, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			runSpec := spec
			runSpec.Symbol = symbol
			o.log("running %s %s on %s", spec.Strategy, spec.Version, symbol)
			result := o.runner.Run(ctx, runSpec)
			o.log("%s finished: %s %s", symbol, result.Status, result.FailureReason)
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &BatchResult{Runs: results}
	for _, r := range results {
		switch r.Status {
		case domain.RunSuccess:
			batch.Succeeded++
		case domain.RunFailedPrecondition:
			batch.FailedPreconditions++
		case domain.RunError:
			batch.Errored++
		}
	}
	return batch, nil
}

func (o *Orchestrator) log(format string, args ...any) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
