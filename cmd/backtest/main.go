// Command backtest executes a backtest batch: one run per configured
// symbol, each classified into SUCCESS, FAILED_PRECONDITION or ERROR with a
// full artifact directory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/config"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/ledger"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/orchestrator"
	"backtest-lab/internal/run"
	"backtest-lab/internal/session"
	"backtest-lab/internal/sla"
	"backtest-lab/internal/storage"
	chstore "backtest-lab/internal/storage/clickhouse"
	"backtest-lab/internal/storage/memory"
	"backtest-lab/internal/storage/migrations"
	"backtest-lab/internal/storage/parquetstore"
	pgstore "backtest-lab/internal/storage/postgres"
	"backtest-lab/internal/strategy"
	"backtest-lab/internal/validity"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration (required)")
	lookbackBars := flag.Int("lookback-bars", 20, "Strategy lookback in bars")
	holdBars := flag.Int("hold-bars", 4, "Strategy hold duration in bars")
	concurrency := flag.Int("concurrency", 0, "Parallel symbol runs (0 = default)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	outputJSON := flag.Bool("json", false, "Output batch summary as JSON")
	verbose := flag.Bool("verbose", false, "Log per-symbol progress")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("--config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("metrics on %s/metrics", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	bars, templates, tradeLogs, runRecords, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer cleanup()

	spec, err := buildSpec(cfg, *lookbackBars, *holdBars)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	sessionSpec, err := cfg.SessionSpec()
	if err != nil {
		logger.Fatalf("session: %v", err)
	}

	var validityOpts []validity.Option
	eod, err := cfg.EndOfDayProvider(sessionSpec.Location)
	if err != nil {
		logger.Fatalf("session: %v", err)
	}
	if eod != nil {
		validityOpts = append(validityOpts,
			validity.WithEndOfDayProvider(eod),
			validity.WithTradingDayCalendar(session.WeekdayCalendar{}))
	}

	strat, err := strategy.FromConfig(strategy.Config{
		Type:         cfg.Run.Strategy,
		LookbackBars: *lookbackBars,
		HoldBars:     *holdBars,
	})
	if err != nil {
		logger.Fatalf("strategy %q: %v", cfg.Run.Strategy, err)
	}

	runner := run.NewRunner(run.Options{
		Bars:          bars,
		Signals:       strategy.NewSource(bars, spec.Bar.Timeframe(), strat),
		Calculator:    validity.New(session.NewCalendar(sessionSpec), validityOpts...),
		Templates:     templates,
		TradeLogs:     tradeLogs,
		RunRecords:    runRecords,
		ArtifactsRoot: cfg.Storage.ArtifactsDir,
	})

	batch, err := orchestrator.New(orchestrator.Options{
		Runner:      runner,
		Concurrency: *concurrency,
		Verbose:     *verbose,
	}).Run(ctx, spec, cfg.Run.Symbols)
	if err != nil {
		logger.Fatalf("batch: %v", err)
	}

	if *outputJSON {
		out, err := json.MarshalIndent(batch, "", "  ")
		if err != nil {
			logger.Fatalf("marshal result: %v", err)
		}
		fmt.Println(string(out))
	} else {
		for i, r := range batch.Runs {
			fmt.Printf("%-10s %-20s %s", cfg.Run.Symbols[i], r.Status, r.RunID)
			if r.FailureReason != "" {
				fmt.Printf(" (%s)", r.FailureReason)
			}
			if r.ErrorID != "" {
				fmt.Printf(" (error_id=%s)", r.ErrorID)
			}
			fmt.Println()
		}
		fmt.Printf("%d succeeded, %d failed preconditions, %d errored\n",
			batch.Succeeded, batch.FailedPreconditions, batch.Errored)
	}

	if batch.Errored > 0 {
		os.Exit(1)
	}
}

// buildSpec assembles the per-run spec shared by every symbol.
func buildSpec(cfg *config.Config, lookbackBars, holdBars int) (run.Spec, error) {
	dataRange, err := cfg.DataRange()
	if err != nil {
		return run.Spec{}, err
	}

	initialCash, err := decimal.NewFromString(cfg.Execution.InitialCash)
	if err != nil {
		return run.Spec{}, fmt.Errorf("parse initial_cash %q: %w", cfg.Execution.InitialCash, err)
	}

	version := cfg.Run.Version
	if version == "" {
		version = fmt.Sprintf("l%d_h%d", lookbackBars, holdBars)
	}

	return run.Spec{
		Strategy:        cfg.Run.Strategy,
		Version:         version,
		Bar:             domain.BarSpec{TimeframeMinutes: cfg.Run.TimeframeMinutes, Label: "left", Closed: "left"},
		Range:           dataRange,
		Policy:          domain.ValidityPolicy(cfg.Execution.ValidityPolicy),
		ValidFromPolicy: domain.ValidFromPolicy(cfg.Execution.ValidFromPolicy),
		ValidityMinutes: cfg.Execution.ValidityMinutes,
		Horizon:         dataRange.End,
		Engine: ledger.Config{
			InitialCash:   initialCash,
			FixedQty:      cfg.Execution.FixedQty,
			SlippageBps:   cfg.Execution.SlippageBps,
			CommissionBps: cfg.Execution.CommissionBps,
		},
		SLA: sla.Config{
			LookbackBars:    cfg.SLA.LookbackBars,
			CompletenessMin: cfg.SLA.CompletenessMin,
		},
		AutoFetch: cfg.Run.AutoFetch,
	}, nil
}

// buildStores selects the bar store from the configured backend. Trade logs
// and run records go to Postgres whenever a DSN is configured, to memory
// otherwise.
func buildStores(ctx context.Context, cfg *config.Config) (storage.BarStore, storage.TemplateStore, storage.TradeLogStore, storage.RunRecordStore, func(), error) {
	noop := func() {}

	var bars storage.BarStore
	cleanup := noop
	switch cfg.Storage.Backend {
	case "memory", "postgres":
		bars = memory.NewBarStore()
	case "clickhouse":
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, nil, nil, nil, noop, fmt.Errorf("clickhouse: %w", err)
		}
		bars = chstore.NewBarStore(conn)
		cleanup = func() { conn.Close() }
	case "parquet":
		dir := cfg.Storage.ParquetDir
		if dir == "" {
			dir = "data"
		}
		bars = parquetstore.New(dir)
	default:
		return nil, nil, nil, nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.PostgresDSN == "" {
		return bars, memory.NewTemplateStore(), memory.NewTradeLogStore(), memory.NewRunRecordStore(), cleanup, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgstore.NewPool(connectCtx, cfg.Storage.PostgresDSN)
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, noop, fmt.Errorf("postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		cleanup()
		return nil, nil, nil, nil, noop, fmt.Errorf("postgres migrations: %w", err)
	}

	chained := cleanup
	return bars, pgstore.NewTemplateStore(pool), pgstore.NewTradeLogStore(pool), pgstore.NewRunRecordStore(pool), func() {
		pool.Close()
		chained()
	}, nil
}
