package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"backtest-lab/internal/coverage"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// BarSource fetches historical bars from an upstream provider.
type BarSource interface {
	FetchBars(ctx context.Context, symbol string, timeframe time.Duration, r domain.Range) ([]domain.Bar, error)
}

// BackfillFunc bridges a bar source to the coverage gate's fetch callback:
// each reported gap is fetched from the source and written to the store.
// An empty fetch result is an error, otherwise the gate would loop on a
// gap the provider cannot fill.
func BackfillFunc(source BarSource, store storage.BarStore, timeframe time.Duration) coverage.FetchFunc {
	return func(ctx context.Context, symbol string, gap domain.Range) error {
		bars, err := source.FetchBars(ctx, symbol, timeframe, gap)
		if err != nil {
			return fmt.Errorf("fetch %s %s..%s: %w", symbol,
				gap.Start.Format(time.RFC3339), gap.End.Format(time.RFC3339), err)
		}
		if len(bars) == 0 {
			return fmt.Errorf("provider returned no bars for %s %s..%s", symbol,
				gap.Start.Format(time.RFC3339), gap.End.Format(time.RFC3339))
		}
		if err := store.InsertBars(ctx, timeframe, bars); err != nil {
			return fmt.Errorf("store backfilled bars: %w", err)
		}
		log.Printf("[ingestion] backfilled %d bars of %s", len(bars), symbol)
		return nil
	}
}
