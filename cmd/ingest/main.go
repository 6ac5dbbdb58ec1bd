// Command ingest loads CSV bar files into the configured bar store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backtest-lab/internal/ingestion"
	"backtest-lab/internal/storage"
	chstore "backtest-lab/internal/storage/clickhouse"
	"backtest-lab/internal/storage/migrations"
	"backtest-lab/internal/storage/parquetstore"
)

func main() {
	file := flag.String("file", "", "CSV bar file to load (required)")
	symbol := flag.String("symbol", "", "Symbol the file contains (required)")
	timeframeMinutes := flag.Int("timeframe-minutes", 5, "Bar timeframe in minutes")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	parquetDir := flag.String("parquet-dir", "", "Parquet data directory")
	batchSize := flag.Int("batch-size", 0, "Insert batch size (0 = default)")

	flag.Parse()

	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

	if *file == "" {
		logger.Fatal("--file is required")
	}
	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	if (*clickhouseDSN == "") == (*parquetDir == "") {
		logger.Fatal("exactly one of --clickhouse-dsn or --parquet-dir is required")
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

	var store storage.BarStore
	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("clickhouse: %v", err)
		}
		defer conn.Close()
		store = chstore.NewBarStore(conn)
	} else {
		store = parquetstore.New(*parquetDir)
	}

	ingestor := ingestion.NewIngestor(ingestion.Options{Store: store, BatchSize: *batchSize})
	n, err := ingestor.IngestFile(ctx, *file, *symbol, time.Duration(*timeframeMinutes)*time.Minute)
	if err != nil {
		logger.Fatalf("ingest: %v", err)
	}

	fmt.Printf("loaded %d bars of %s from %s\n", n, *symbol, *file)
}
