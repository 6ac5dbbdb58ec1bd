package strategy

import (
	"context"
	"fmt"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/event"
)

// Breakout enters long when a bar closes above the highest high of the
// preceding lookback bars and exits after a fixed number of bars. One
// position at a time: while a trade is open no further entries are taken.
type Breakout struct {
	lookback int
	holdBars int
}

// NewBreakout creates a breakout strategy.
func NewBreakout(lookback, holdBars int) *Breakout {
	return &Breakout{lookback: lookback, holdBars: holdBars}
}

// ID returns the strategy identifier.
func (s *Breakout) ID() string {
	return fmt.Sprintf("breakout_l%d_h%d", s.lookback, s.holdBars)
}

// Signals scans the series once, front to back.
func (s *Breakout) Signals(_ context.Context, symbol string, bars []domain.Bar) ([]event.RawSignal, error) {
	var signals []event.RawSignal
	for i := s.lookback; i < len(bars); i++ {
		if bars[i].Close <= highestHigh(bars[i-s.lookback:i]) {
			continue
		}

		signal := event.RawSignal{
			Symbol:      symbol,
			Direction:   domain.DirectionLong,
			EntryTS:     bars[i].Timestamp,
			EntryPrice:  bars[i].Close,
			EntryReason: fmt.Sprintf("close %.8g above %d-bar high", bars[i].Close, s.lookback),
		}

		exit := i + s.holdBars
		if exit < len(bars) {
			signal.ExitTS = bars[exit].Timestamp
			signal.ExitPrice = bars[exit].Close
			signal.ExitReason = fmt.Sprintf("held %d bars", s.holdBars)
			i = exit
		} else {
			// Series ends before the hold completes; the trade stays
			// open and the scan is done.
			i = len(bars)
		}
		signals = append(signals, signal)
	}
	return signals, nil
}

func highestHigh(bars []domain.Bar) float64 {
	high := bars[0].High
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
	}
	return high
}
