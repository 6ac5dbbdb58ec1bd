// Package run drives one backtest through the outcome state machine:
// CreateRunDir, WriteRunMeta, CoverageGate, SLAGate, Execute, then a
// terminal WriteArtifacts that is reached on every path. A run always ends
// in exactly one of SUCCESS, FAILED_PRECONDITION or ERROR.
package run

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"backtest-lab/internal/coverage"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/event"
	"backtest-lab/internal/ledger"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/reporting"
	"backtest-lab/internal/sla"
	"backtest-lab/internal/storage"
	"backtest-lab/internal/validity"
)

// SignalSource produces the raw candidate trade intentions of one symbol
// over a range. Injected; the core never inspects strategy internals.
type SignalSource interface {
	Signals(ctx context.Context, symbol string, r domain.Range) ([]event.RawSignal, error)
}

// Spec is the full parameter set of one run, passed explicitly so the
// pipeline stays a pure function of its inputs.
type Spec struct {
	Strategy string
	Version  string
	Symbol   string

	Bar   domain.BarSpec
	Range domain.Range

	Policy          domain.ValidityPolicy
	ValidFromPolicy domain.ValidFromPolicy
	ValidityMinutes int
	Horizon         time.Time

	Engine ledger.Config
	SLA    sla.Config

	// AutoFetch opts into backfilling coverage gaps; off by default.
	AutoFetch bool
}

// Options wires a Runner. Bars, Signals and Calculator are required;
// TradeLogs and RunRecords are optional persistence.
type Options struct {
	Bars       storage.BarStore
	Signals    SignalSource
	Coverage   *coverage.Gate
	Calculator *validity.Calculator

	Templates  storage.TemplateStore
	TradeLogs  storage.TradeLogStore
	RunRecords storage.RunRecordStore

	ArtifactsRoot string
}

// Runner executes backtest runs. Each run constructs its own portfolio and
// ledger; concurrent runs share nothing and need no locking.
type Runner struct {
	bars       storage.BarStore
	signals    SignalSource
	gate       *coverage.Gate
	calc       *validity.Calculator
	templates  storage.TemplateStore
	tradeLogs  storage.TradeLogStore
	runRecords storage.RunRecordStore
	root       string
	now        func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	gate := opts.Coverage
	if gate == nil {
		gate = coverage.New()
	}
	return &Runner{
		bars:       opts.Bars,
		signals:    opts.Signals,
		gate:       gate,
		calc:       opts.Calculator,
		templates:  opts.Templates,
		tradeLogs:  opts.TradeLogs,
		runRecords: opts.RunRecords,
		root:       opts.ArtifactsRoot,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run executes the state machine. The returned RunResult is never nil and
// the run directory always holds run_result.json and run_manifest.json,
// whatever happened in between.
func (r *Runner) Run(ctx context.Context, spec Spec) (result *domain.RunResult) {
	runID := uuid.NewString()
	startedAt := r.now()

	result = &domain.RunResult{RunID: runID, Status: domain.RunError}
	manifest := &Manifest{
		RunID:    runID,
		Strategy: spec.Strategy,
		Version:  spec.Version,
		Symbol:   spec.Symbol,
		Params: ManifestParams{
			TimeframeMinutes: spec.Bar.TimeframeMinutes,
			ValidityPolicy:   string(spec.Policy),
			ValidFromPolicy:  string(spec.ValidFromPolicy),
			ValidityMinutes:  spec.ValidityMinutes,
			InitialCash:      spec.Engine.InitialCash.String(),
			FixedQty:         spec.Engine.FixedQty,
			SlippageBps:      spec.Engine.SlippageBps,
			CommissionBps:    spec.Engine.CommissionBps,
		},
		DataRange: ManifestRange{Start: spec.Range.Start.UTC(), End: spec.Range.End.UTC()},
		StartedAt: startedAt,
	}
	state := &artifactState{manifest: manifest, result: result}

	// CreateRunDir
	dir, err := createRunDir(r.root, runID)
	if err != nil {
		log.Printf("[run] %s: %v", runID, err)
	} else {
		state.dir = dir
	}

	// Terminal WriteArtifacts, registered before the recover handler so
	// it observes the classified status even on panic.
	defer func() {
		finishedAt := r.now()
		manifest.FinishedAt = finishedAt
		manifest.Status = result.Status
		manifest.FailureReason = result.FailureReason
		manifest.ErrorID = result.ErrorID
		writeArtifacts(state)
		r.persist(ctx, spec, result, startedAt, finishedAt, state)
		observability.RecordRun(string(result.Status), finishedAt.Sub(startedAt).Seconds())
	}()

	defer func() {
		if rec := recover(); rec != nil {
			errorID := uuid.NewString()
			detail := fmt.Sprintf("panic: %v\n\n%s", rec, debug.Stack())
			writeErrorArtifact(state.dir, errorID, []byte(detail))
			result.Status = domain.RunError
			result.FailureReason = ""
			result.ErrorID = errorID
			log.Printf("[run] %s: panic captured, error_id=%s", runID, errorID)
		}
	}()

	// WriteRunMeta: the manifest skeleton goes to disk before any gate
	// runs, so even a hard crash leaves the run identifiable.
	if state.dir != "" {
		writeJSON(state.dir, fileRunManifest, manifest)
	}

	r.execute(ctx, spec, state)
	return result
}

// execute runs the gates and the engine, mutating state.result in place.
func (r *Runner) execute(ctx context.Context, spec Spec, state *artifactState) {
	result := state.result
	summary := &reporting.Summary{
		RunID:       result.RunID,
		Strategy:    spec.Strategy,
		Version:     spec.Version,
		Symbol:      spec.Symbol,
		GeneratedAt: r.now(),
		InitialCash: spec.Engine.InitialCash.String(),
	}
	state.summary = summary

	// CoverageGate
	cov, err := r.checkCoverage(ctx, spec)
	if err != nil {
		r.internalError(result, state, fmt.Errorf("coverage gate: %w", err))
		summary.Status, summary.ErrorID = result.Status, result.ErrorID
		return
	}
	summary.Coverage = &cov
	state.manifest.Gates.Coverage = manifestCoverage(cov)
	if cov.Status != domain.CoverageSufficient {
		observability.RecordCoverageFailure(string(cov.Status))
		result.Status = domain.RunFailedPrecondition
		result.FailureReason = domain.FailureDataCoverageGap
		summary.Status, summary.FailureReason = result.Status, result.FailureReason
		return
	}

	// SLAGate
	bars, err := r.bars.GetBars(ctx, spec.Symbol, spec.Bar.Timeframe(), spec.Range)
	if err != nil {
		r.internalError(result, state, fmt.Errorf("load bars: %w", err))
		summary.Status, summary.ErrorID = result.Status, result.ErrorID
		return
	}
	observability.RecordBarsFetched(len(bars))

	slaCfg := spec.SLA
	if slaCfg.RequiredTimeframe == 0 {
		slaCfg.RequiredTimeframe = spec.Bar.Timeframe()
	}
	slaRes := sla.Check(bars, slaCfg)
	summary.SLA = &slaRes
	state.manifest.Gates.SLA = manifestSLA(slaRes)
	for _, w := range slaRes.WarningViolations {
		observability.RecordSLAWarning()
		log.Printf("[run] %s: SLA warning %s: %s", result.RunID, w.Code, w.Detail)
	}
	if !slaRes.Pass() {
		for _, v := range slaRes.FatalViolations {
			observability.RecordSLAFailure(v.Code)
		}
		result.Status = domain.RunFailedPrecondition
		result.FailureReason = domain.FailureDataSLAFailed
		summary.Status, summary.FailureReason = result.Status, result.FailureReason
		return
	}

	// Execute
	signals, err := r.signals.Signals(ctx, spec.Symbol, spec.Range)
	if err != nil {
		r.internalError(result, state, fmt.Errorf("load signals: %w", err))
		summary.Status, summary.ErrorID = result.Status, result.ErrorID
		return
	}
	templates, err := event.FromSignals(signals)
	if err != nil {
		r.internalError(result, state, fmt.Errorf("map signals: %w", err))
		summary.Status, summary.ErrorID = result.Status, result.ErrorID
		return
	}

	wellFormed, malformed := validateTemplates(templates)
	orders, accepted, rejectedWindows := buildOrders(wellFormed, r.calc, validity.Input{
		Bar:             spec.Bar,
		Policy:          spec.Policy,
		ValidFromPolicy: spec.ValidFromPolicy,
		ValidityMinutes: spec.ValidityMinutes,
		Horizon:         spec.Horizon,
	})
	rejected := append(malformed, rejectedWindows...)
	observability.RecordRejectedOrders(len(rejected))
	state.templates = accepted
	state.orders = orders
	state.rejected = rejected

	events, err := event.ToEvents(accepted)
	if err != nil {
		// validateTemplates already excluded malformed input; reaching
		// this is an internal fault.
		r.internalError(result, state, fmt.Errorf("extract events: %w", err))
		summary.Status, summary.ErrorID = result.Status, result.ErrorID
		return
	}

	engine := ledger.NewEngine(spec.Engine)
	engineResult, err := engine.Process(events)
	if err != nil {
		r.internalError(result, state, fmt.Errorf("engine: %w", err))
		summary.Status, summary.ErrorID = result.Status, result.ErrorID
		return
	}
	observability.RecordExecution(
		engineResult.Stats.Entries, engineResult.Stats.Exits,
		engineResult.Stats.Rejected, len(engineResult.Trades))

	state.trades = engineResult.Trades
	result.Status = domain.RunSuccess

	summary.Status = result.Status
	summary.Orders = len(orders)
	summary.RejectedOrders = len(rejected)
	summary.Engine = &engineResult.Stats
	summary.FinalCash = engineResult.FinalCash.String()
}

// checkCoverage runs the coverage gate, with or without auto-fetch.
func (r *Runner) checkCoverage(ctx context.Context, spec Spec) (domain.CoverageCheckResult, error) {
	source := &barCoverageSource{bars: r.bars, timeframe: spec.Bar.Timeframe()}
	if spec.AutoFetch {
		return r.gate.CheckWithFetch(ctx, spec.Symbol, spec.Range, source)
	}

	cached, err := source.Coverage(ctx, spec.Symbol, spec.Range)
	if err != nil {
		return domain.CoverageCheckResult{}, err
	}
	return r.gate.Check(spec.Symbol, spec.Range, cached), nil
}

// internalError classifies an unexpected fault as ERROR with a correlated
// detail artifact.
func (r *Runner) internalError(result *domain.RunResult, state *artifactState, err error) {
	errorID := uuid.NewString()
	writeErrorArtifact(state.dir, errorID, []byte(err.Error()+"\n"))
	result.Status = domain.RunError
	result.ErrorID = errorID
	log.Printf("[run] %s: %v (error_id=%s)", result.RunID, err, errorID)
}

// persist stores trade logs and the run record when stores are configured.
// Persistence failures are logged, never allowed to change the outcome.
func (r *Runner) persist(ctx context.Context, spec Spec, result *domain.RunResult, startedAt, finishedAt time.Time, state *artifactState) {
	if r.templates != nil {
		// Template IDs are deterministic, so a re-run over the same range
		// reproduces the same IDs; duplicates just mean already retained.
		for _, tpl := range state.templates {
			err := r.templates.Insert(ctx, tpl)
			if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				log.Printf("[run] %s: persist template %s: %v", result.RunID, tpl.TemplateID, err)
			}
		}
	}
	if r.tradeLogs != nil && result.Status == domain.RunSuccess {
		if err := r.tradeLogs.InsertBulk(ctx, result.RunID, state.trades); err != nil {
			log.Printf("[run] %s: persist trade logs: %v", result.RunID, err)
		}
	}
	if r.runRecords != nil {
		rec := &domain.RunRecord{
			RunID:         result.RunID,
			Strategy:      spec.Strategy,
			Version:       spec.Version,
			Symbol:        spec.Symbol,
			Status:        result.Status,
			FailureReason: result.FailureReason,
			ErrorID:       result.ErrorID,
			StartedAt:     startedAt,
			FinishedAt:    finishedAt,
			ArtifactsDir:  state.dir,
		}
		if err := r.runRecords.Insert(ctx, rec); err != nil {
			log.Printf("[run] %s: persist run record: %v", result.RunID, err)
		}
	}
}

// barCoverageSource adapts the bar store to the coverage gate's source
// interface by pinning the timeframe.
type barCoverageSource struct {
	bars      storage.BarStore
	timeframe time.Duration
}

func (s *barCoverageSource) Coverage(ctx context.Context, symbol string, r domain.Range) ([]domain.Range, error) {
	return s.bars.Coverage(ctx, symbol, s.timeframe, r)
}

func manifestCoverage(cov domain.CoverageCheckResult) *ManifestCoverage {
	m := &ManifestCoverage{Status: cov.Status, FetchError: cov.FetchError}
	for _, g := range cov.Gaps {
		m.Gaps = append(m.Gaps, ManifestRange{Start: g.Start, End: g.End})
	}
	return m
}

func manifestSLA(res sla.Result) *ManifestSLA {
	m := &ManifestSLA{Pass: res.Pass()}
	for _, v := range res.FatalViolations {
		m.Fatal = append(m.Fatal, fmt.Sprintf("%s: %s", v.Code, v.Detail))
	}
	for _, v := range res.WarningViolations {
		m.Warnings = append(m.Warnings, fmt.Sprintf("%s: %s", v.Code, v.Detail))
	}
	return m
}
