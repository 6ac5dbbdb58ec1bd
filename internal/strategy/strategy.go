// Package strategy holds the reference signal generators. Strategies are
// pure functions of the bar series: same bars in, same signals out. The
// execution core never inspects strategy internals; it only consumes the
// emitted signals.
package strategy

import (
	"context"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/event"
	"backtest-lab/internal/storage"
)

// Strategy produces trade signals from a bar series.
type Strategy interface {
	// Signals scans the series and returns every entry/exit pair the
	// strategy would have taken. Bars arrive in ascending timestamp
	// order.
	Signals(ctx context.Context, symbol string, bars []domain.Bar) ([]event.RawSignal, error)

	// ID returns the strategy identifier including parameters.
	ID() string
}

// Source adapts a Strategy to the runner's signal source by loading the
// bar series it runs on.
type Source struct {
	bars      storage.BarStore
	timeframe time.Duration
	strategy  Strategy
}

// NewSource creates a Source running strategy on bars of the given
// timeframe.
func NewSource(bars storage.BarStore, timeframe time.Duration, s Strategy) *Source {
	return &Source{bars: bars, timeframe: timeframe, strategy: s}
}

// Signals loads the bars for the range and delegates to the strategy.
func (s *Source) Signals(ctx context.Context, symbol string, r domain.Range) ([]event.RawSignal, error) {
	bars, err := s.bars.GetBars(ctx, symbol, s.timeframe, r)
	if err != nil {
		return nil, err
	}
	return s.strategy.Signals(ctx, symbol, bars)
}
