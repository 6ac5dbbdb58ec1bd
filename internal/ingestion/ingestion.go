// Package ingestion loads bar data into bar stores. The only supported
// on-disk interchange format is CSV with a fixed header; timestamps must be
// timezone-aware.
package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// Parse errors.
var (
	ErrBadHeader      = errors.New("unexpected bars csv header")
	ErrNaiveTimestamp = errors.New("timestamp has no timezone offset")
)

var barHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// ReadBarsCSV parses a bar series for one symbol. The header is mandatory
// and rows must carry explicit timezone offsets; a naive timestamp aborts
// the whole file rather than silently assuming a zone.
func ReadBarsCSV(r io.Reader, symbol string) ([]domain.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(barHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, want := range barHeader {
		if header[i] != want {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i, header[i], want)
		}
	}

	var bars []domain.Bar
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bar, err := parseBarRow(row, symbol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBarRow(row []string, symbol string) (domain.Bar, error) {
	ts, err := time.Parse(tsLayout, row[0])
	if err != nil {
		ts, err = time.Parse(time.RFC3339, row[0])
	}
	if err != nil {
		if _, naiveErr := time.Parse("2006-01-02T15:04:05", row[0]); naiveErr == nil {
			return domain.Bar{}, fmt.Errorf("%w: %s", ErrNaiveTimestamp, row[0])
		}
		return domain.Bar{}, fmt.Errorf("parse timestamp %q: %w", row[0], err)
	}

	var fields [4]float64
	for i, raw := range row[1:5] {
		fields[i], err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("parse %s %q: %w", barHeader[i+1], raw, err)
		}
	}
	volume, err := strconv.ParseInt(row[5], 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parse volume %q: %w", row[5], err)
	}

	return domain.Bar{
		Symbol:    symbol,
		Timestamp: ts.UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    volume,
	}, nil
}

// Ingestor loads bar files into a store in batches.
type Ingestor struct {
	store     storage.BarStore
	batchSize int
}

// DefaultBatchSize is the insert batch size when Options leaves it zero.
const DefaultBatchSize = 1000

// Options contains configuration for creating an Ingestor.
type Options struct {
	Store     storage.BarStore
	BatchSize int
}

// NewIngestor creates an Ingestor.
func NewIngestor(opts Options) *Ingestor {
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	return &Ingestor{store: opts.Store, batchSize: batchSize}
}

// IngestFile loads one CSV file of bars for a symbol and timeframe.
// Returns the number of bars inserted.
func (in *Ingestor) IngestFile(ctx context.Context, path, symbol string, timeframe time.Duration) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	bars, err := ReadBarsCSV(f, symbol)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := in.insert(ctx, timeframe, bars); err != nil {
		return 0, err
	}
	log.Printf("[ingestion] loaded %d bars of %s from %s", len(bars), symbol, path)
	return len(bars), nil
}

func (in *Ingestor) insert(ctx context.Context, timeframe time.Duration, bars []domain.Bar) error {
	for start := 0; start < len(bars); start += in.batchSize {
		end := min(start+in.batchSize, len(bars))
		if err := in.store.InsertBars(ctx, timeframe, bars[start:end]); err != nil {
			return fmt.Errorf("insert bars %d..%d: %w", start, end, err)
		}
	}
	return nil
}
