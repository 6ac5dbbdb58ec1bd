package strategy

import "errors"

// Factory errors.
var (
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrInvalidLookback     = errors.New("lookback must be at least 1 bar")
	ErrInvalidHold         = errors.New("hold must be at least 1 bar")
)

// Strategy type names accepted by FromConfig.
const (
	TypeBreakout = "breakout"
	TypeMomentum = "momentum"
)

// Config selects and parameterizes a strategy.
type Config struct {
	Type         string
	LookbackBars int
	HoldBars     int
}

// FromConfig creates a Strategy from its config, validating parameters per
// strategy type.
func FromConfig(cfg Config) (Strategy, error) {
	if cfg.LookbackBars < 1 {
		return nil, ErrInvalidLookback
	}
	if cfg.HoldBars < 1 {
		return nil, ErrInvalidHold
	}

	switch cfg.Type {
	case TypeBreakout:
		return NewBreakout(cfg.LookbackBars, cfg.HoldBars), nil
	case TypeMomentum:
		return NewMomentum(cfg.LookbackBars, cfg.HoldBars), nil
	default:
		return nil, ErrUnknownStrategyType
	}
}
