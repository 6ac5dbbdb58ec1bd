package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/event"
)

// ErrInvariantViolated marks an internal engine fault: an exit that pairs
// with no entry the engine ever saw, or an unknown event kind. Consequences
// of the engine's own fill decisions (an exit whose entry it rejected) are
// typed rejections, not violations.
var ErrInvariantViolated = errors.New("execution engine invariant violated")

var bpsDenominator = decimal.NewFromInt(10000)

// Config holds the cost and sizing parameters for one run, passed
// explicitly per engine: no process-wide state.
type Config struct {
	InitialCash decimal.Decimal

	// FixedQty sizes every entry when > 0; otherwise entries size as
	// floor(cash / effective_price), so sizing compounds prior realized
	// P&L instead of a static starting balance.
	FixedQty int64

	SlippageBps   int64
	CommissionBps int64
}

// Stats summarizes one engine run.
type Stats struct {
	Entries     int
	Exits       int
	Rejected    int
	FeesPaid    decimal.Decimal
	RealizedPnL decimal.Decimal // net of fees
}

// Result is the engine output: the canonical event order, the append-only
// processed ledger, realized closes, and the final balances.
type Result struct {
	Ordered     []*domain.TradeEvent
	Processed   []*domain.ProcessedEvent
	Trades      []*domain.TradeLog
	FinalCash   decimal.Decimal
	FinalEquity decimal.Decimal
	Stats       Stats
}

// Engine turns ordered events into cash ledger transitions.
type Engine struct {
	cfg Config
}

// NewEngine creates an execution engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Process orders the events deterministically, then applies them one by one
// to a fresh portfolio. With zero slippage and commission the result matches
// the no-cost baseline exactly.
func (e *Engine) Process(events []*domain.TradeEvent) (*Result, error) {
	ordered := event.OrderEvents(events)
	portfolio := NewPortfolioState(e.cfg.InitialCash)

	result := &Result{
		Ordered:   ordered,
		Processed: make([]*domain.ProcessedEvent, 0, len(ordered)),
	}

	// Templates whose entry the engine rejected; their exits are orphans
	// by the engine's own decision and get rejected rather than failing
	// the run.
	rejectedEntries := make(map[string]bool)

	for _, ev := range ordered {
		switch ev.Kind {
		case domain.KindEntry:
			e.processEntry(ev, portfolio, result, rejectedEntries)
		case domain.KindExit:
			if err := e.processExit(ev, portfolio, result, rejectedEntries); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unknown event kind %q", ErrInvariantViolated, ev.Kind)
		}
	}

	result.FinalCash = portfolio.Cash()
	result.FinalEquity = portfolio.Equity()
	result.Stats.FeesPaid = portfolio.FeesPaid()
	return result, nil
}

func (e *Engine) processEntry(ev *domain.TradeEvent, portfolio *PortfolioState, result *Result, rejectedEntries map[string]bool) {
	price := decimal.NewFromFloat(ev.Price)
	eff := e.effectivePrice(price, ev.Side)

	reject := func(reason string) {
		result.Processed = append(result.Processed, rejectedEvent(ev, price, eff, reason))
		result.Stats.Rejected++
		rejectedEntries[ev.TemplateID] = true
	}

	if pos, open := portfolio.OpenPosition(ev.Symbol); open {
		// Single position per symbol: an overlapping entry is a typed
		// rejection, its paired exit follows it into the reject list.
		reject(fmt.Sprintf("position already open on %s (template %s)", ev.Symbol, pos.TemplateID))
		return
	}

	qty := e.entryQty(portfolio.Cash(), eff)
	if qty.Sign() <= 0 {
		reject("insufficient cash for a single unit")
		return
	}

	notional := qty.Mul(eff)
	fee := notional.Mul(decimal.NewFromInt(e.cfg.CommissionBps)).Div(bpsDenominator)
	delta := cashDelta(ev.Side, notional, fee)

	if ev.Side == domain.SideBuy && portfolio.Cash().Add(delta).Sign() < 0 {
		// All-in sizing is fee-aware, so this fires only for a fixed
		// quantity whose all-in cost exceeds available cash. The
		// position never opens on negative cash.
		reject(fmt.Sprintf("insufficient cash for %s units", qty))
		return
	}

	direction := domain.DirectionLong
	if ev.Side == domain.SideSell {
		direction = domain.DirectionShort
	}

	portfolio.open(&Position{
		TemplateID: ev.TemplateID,
		Symbol:     ev.Symbol,
		Direction:  direction,
		Qty:        qty,
		EntryTS:    ev.Timestamp,
		EntryPrice: eff,
		EntryFee:   fee,
	}, delta, fee)

	result.Processed = append(result.Processed, &domain.ProcessedEvent{
		Timestamp:      ev.Timestamp,
		Kind:           ev.Kind,
		Symbol:         ev.Symbol,
		TemplateID:     ev.TemplateID,
		Side:           ev.Side,
		Qty:            qty,
		Price:          price,
		EffectivePrice: eff,
		Fee:            fee,
		CashAfter:      portfolio.Cash(),
		Status:         domain.FillStatusFilled,
	})
	result.Stats.Entries++
}

func (e *Engine) processExit(ev *domain.TradeEvent, portfolio *PortfolioState, result *Result, rejectedEntries map[string]bool) error {
	price := decimal.NewFromFloat(ev.Price)
	eff := e.effectivePrice(price, ev.Side)

	pos, open := portfolio.OpenPosition(ev.Symbol)
	if !open || pos.TemplateID != ev.TemplateID {
		if rejectedEntries[ev.TemplateID] {
			result.Processed = append(result.Processed, rejectedEvent(ev, price, eff,
				"entry was rejected, no position to close"))
			result.Stats.Rejected++
			return nil
		}
		return fmt.Errorf("%w: exit on %s without an open position (template %s)",
			ErrInvariantViolated, ev.Symbol, ev.TemplateID)
	}

	// Full quantity always: this core has no partial exits.
	qty := pos.Qty
	notional := qty.Mul(eff)
	fee := notional.Mul(decimal.NewFromInt(e.cfg.CommissionBps)).Div(bpsDenominator)

	portfolio.close(ev.Symbol, cashDelta(ev.Side, notional, fee), fee)

	pnlNet := realizedPnL(pos, eff, fee)
	result.Trades = append(result.Trades, &domain.TradeLog{
		TemplateID: pos.TemplateID,
		Symbol:     pos.Symbol,
		Direction:  pos.Direction,
		EntryTS:    pos.EntryTS,
		ExitTS:     ev.Timestamp,
		Qty:        qty,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  eff,
		Fee:        pos.EntryFee.Add(fee),
		PnLNet:     pnlNet,
	})

	result.Processed = append(result.Processed, &domain.ProcessedEvent{
		Timestamp:      ev.Timestamp,
		Kind:           ev.Kind,
		Symbol:         ev.Symbol,
		TemplateID:     ev.TemplateID,
		Side:           ev.Side,
		Qty:            qty,
		Price:          price,
		EffectivePrice: eff,
		Fee:            fee,
		CashAfter:      portfolio.Cash(),
		Status:         domain.FillStatusFilled,
	})
	result.Stats.Exits++
	result.Stats.RealizedPnL = result.Stats.RealizedPnL.Add(pnlNet)
	return nil
}

// effectivePrice applies slippage against the trader: a buy fills worse
// (higher), a sell fills worse (lower).
func (e *Engine) effectivePrice(price decimal.Decimal, side domain.EventSide) decimal.Decimal {
	if e.cfg.SlippageBps == 0 {
		return price
	}
	bps := decimal.NewFromInt(e.cfg.SlippageBps)
	if side == domain.SideBuy {
		return price.Mul(bpsDenominator.Add(bps)).Div(bpsDenominator)
	}
	return price.Mul(bpsDenominator.Sub(bps)).Div(bpsDenominator)
}

// entryQty sizes an entry: the configured fixed quantity, or whole units of
// current cash at the all-in cost per unit. Sizing on the bare effective
// price and trimming afterwards can still overdraw when the commission
// exceeds the leftover, so the commission is in the divisor from the start.
func (e *Engine) entryQty(cash, eff decimal.Decimal) decimal.Decimal {
	if e.cfg.FixedQty > 0 {
		return decimal.NewFromInt(e.cfg.FixedQty)
	}
	if eff.Sign() <= 0 {
		return decimal.Zero
	}
	costPerUnit := eff.Mul(bpsDenominator.Add(decimal.NewFromInt(e.cfg.CommissionBps))).Div(bpsDenominator)
	return cash.DivRound(costPerUnit, 16).Floor()
}

// cashDelta is the signed cash movement of a fill: buys pay, sells receive,
// fees always deduct.
func cashDelta(side domain.EventSide, notional, fee decimal.Decimal) decimal.Decimal {
	if side == domain.SideBuy {
		return notional.Neg().Sub(fee)
	}
	return notional.Sub(fee)
}

// realizedPnL computes the net result of a full close, fees included.
func realizedPnL(pos *Position, exitEff, exitFee decimal.Decimal) decimal.Decimal {
	var gross decimal.Decimal
	if pos.Direction == domain.DirectionShort {
		gross = pos.EntryPrice.Sub(exitEff).Mul(pos.Qty)
	} else {
		gross = exitEff.Sub(pos.EntryPrice).Mul(pos.Qty)
	}
	return gross.Sub(pos.EntryFee).Sub(exitFee)
}

func rejectedEvent(ev *domain.TradeEvent, price, eff decimal.Decimal, reason string) *domain.ProcessedEvent {
	return &domain.ProcessedEvent{
		Timestamp:      ev.Timestamp,
		Kind:           ev.Kind,
		Symbol:         ev.Symbol,
		TemplateID:     ev.TemplateID,
		Side:           ev.Side,
		Price:          price,
		EffectivePrice: eff,
		Status:         domain.FillStatusRejected,
		Reason:         reason,
	}
}
