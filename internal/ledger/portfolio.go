// Package ledger executes ordered trade events against an exact-decimal
// cash ledger. All monetary arithmetic uses decimal representation: binary
// floating point drifts at cent level over many trades.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
)

// Position is one open position. No partial exits: a close always covers
// the full quantity.
type Position struct {
	TemplateID string
	Symbol     string
	Direction  domain.Direction
	Qty        decimal.Decimal
	EntryTS    time.Time
	EntryPrice decimal.Decimal // effective fill, post-slippage
	EntryFee   decimal.Decimal
}

// PortfolioState is the cash-only portfolio of one run. One instance per
// backtest; nothing is shared between runs. Mutated only through the
// engine's fill application.
type PortfolioState struct {
	cash      decimal.Decimal
	positions map[string]*Position // keyed by symbol
	feesPaid  decimal.Decimal
}

// NewPortfolioState creates a portfolio holding only cash.
func NewPortfolioState(initialCash decimal.Decimal) *PortfolioState {
	return &PortfolioState{
		cash:      initialCash,
		positions: make(map[string]*Position),
	}
}

// Cash returns the current cash balance.
func (p *PortfolioState) Cash() decimal.Decimal {
	return p.cash
}

// FeesPaid returns the cumulative fees deducted so far.
func (p *PortfolioState) FeesPaid() decimal.Decimal {
	return p.feesPaid
}

// Equity returns the portfolio value on the cash-only basis: equal to cash
// at all times.
func (p *PortfolioState) Equity() decimal.Decimal {
	return p.cash
}

// MarkToMarket is an explicitly unimplemented extension point. Valuing open
// positions needs an unrealized-P&L and stale-price policy that was never
// specified, so requesting it fails loudly instead of approximating.
func (p *PortfolioState) MarkToMarket() decimal.Decimal {
	panic("ledger: mark-to-market equity is not implemented; equity basis is cash-only")
}

// OpenPosition returns the open position for a symbol, if any.
func (p *PortfolioState) OpenPosition(symbol string) (*Position, bool) {
	pos, ok := p.positions[symbol]
	return pos, ok
}

// OpenCount returns the number of open positions.
func (p *PortfolioState) OpenCount() int {
	return len(p.positions)
}

func (p *PortfolioState) open(pos *Position, cashDelta, fee decimal.Decimal) {
	p.positions[pos.Symbol] = pos
	p.cash = p.cash.Add(cashDelta)
	p.feesPaid = p.feesPaid.Add(fee)
}

func (p *PortfolioState) close(symbol string, cashDelta, fee decimal.Decimal) {
	delete(p.positions, symbol)
	p.cash = p.cash.Add(cashDelta)
	p.feesPaid = p.feesPaid.Add(fee)
}
