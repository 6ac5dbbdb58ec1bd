package strategy

import (
	"context"
	"fmt"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/event"
)

// Momentum enters long when a bar closes above the close of lookback bars
// earlier and exits after a fixed number of bars. Like Breakout it holds at
// most one position at a time.
type Momentum struct {
	lookback int
	holdBars int
}

// NewMomentum creates a momentum strategy.
func NewMomentum(lookback, holdBars int) *Momentum {
	return &Momentum{lookback: lookback, holdBars: holdBars}
}

// ID returns the strategy identifier.
func (s *Momentum) ID() string {
	return fmt.Sprintf("momentum_l%d_h%d", s.lookback, s.holdBars)
}

// Signals scans the series once, front to back.
func (s *Momentum) Signals(_ context.Context, symbol string, bars []domain.Bar) ([]event.RawSignal, error) {
	var signals []event.RawSignal
	for i := s.lookback; i < len(bars); i++ {
		if bars[i].Close <= bars[i-s.lookback].Close {
			continue
		}

		signal := event.RawSignal{
			Symbol:      symbol,
			Direction:   domain.DirectionLong,
			EntryTS:     bars[i].Timestamp,
			EntryPrice:  bars[i].Close,
			EntryReason: fmt.Sprintf("close %.8g above close %d bars back", bars[i].Close, s.lookback),
		}

		exit := i + s.holdBars
		if exit < len(bars) {
			signal.ExitTS = bars[exit].Timestamp
			signal.ExitPrice = bars[exit].Close
			signal.ExitReason = fmt.Sprintf("held %d bars", s.holdBars)
			i = exit
		} else {
			i = len(bars)
		}
		signals = append(signals, signal)
	}
	return signals, nil
}
