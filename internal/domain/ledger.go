package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FillStatus classifies the outcome of applying one event to the ledger.
type FillStatus string

// Fill status constants.
const (
	FillStatusFilled   FillStatus = "FILLED"
	FillStatusRejected FillStatus = "REJECTED"
)

// ProcessedEvent is the result of applying one TradeEvent to the cash
// ledger. Append-only; never mutated after creation.
type ProcessedEvent struct {
	Timestamp      time.Time
	Kind           EventKind
	Symbol         string
	TemplateID     string
	Side           EventSide
	Qty            decimal.Decimal
	Price          decimal.Decimal // raw signal price
	EffectivePrice decimal.Decimal // post-slippage fill price
	Fee            decimal.Decimal
	CashAfter      decimal.Decimal
	Status         FillStatus
	Reason         string
}

// TradeLog is one realized close: the unit of the trades.csv export.
// PnLNet is net of all fees; downstream consumers must never subtract
// fees again.
type TradeLog struct {
	TemplateID string
	Symbol     string
	Direction  Direction
	EntryTS    time.Time
	ExitTS     time.Time
	Qty        decimal.Decimal
	EntryPrice decimal.Decimal // effective entry fill
	ExitPrice  decimal.Decimal // effective exit fill
	Fee        decimal.Decimal // entry fee + exit fee
	PnLNet     decimal.Decimal
}
