package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
)

// trades.csv column order. pnl_net is net of all fees; consumers must never
// subtract fees again.
var tradeHeader = []string{
	"template_id", "symbol", "direction",
	"entry_ts", "exit_ts", "qty",
	"entry_price", "exit_price", "fee", "pnl_net",
}

// WriteTradesCSV writes realized closes as CSV. The format round-trips
// through ReadTradesCSV without loss.
func WriteTradesCSV(w io.Writer, trades []*domain.TradeLog) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(tradeHeader); err != nil {
		return fmt.Errorf("write trades header: %w", err)
	}

	for _, t := range trades {
		row := []string{
			t.TemplateID,
			t.Symbol,
			string(t.Direction),
			t.EntryTS.Format(tsLayout),
			t.ExitTS.Format(tsLayout),
			t.Qty.String(),
			t.EntryPrice.String(),
			t.ExitPrice.String(),
			t.Fee.String(),
			t.PnLNet.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write trade row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush trades csv: %w", err)
	}
	return nil
}

// RenderTradesCSV is WriteTradesCSV into a string.
func RenderTradesCSV(trades []*domain.TradeLog) (string, error) {
	var sb strings.Builder
	if err := WriteTradesCSV(&sb, trades); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ReadTradesCSV parses a trades.csv written by WriteTradesCSV.
func ReadTradesCSV(r io.Reader) ([]*domain.TradeLog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(tradeHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read trades header: %w", err)
	}
	for i, col := range tradeHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected trades header: got %q at column %d, want %q", header[i], i, col)
		}
	}

	var trades []*domain.TradeLog
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read trade row: %w", err)
		}

		t, err := parseTradeRow(row)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func parseTradeRow(row []string) (*domain.TradeLog, error) {
	t := &domain.TradeLog{
		TemplateID: row[0],
		Symbol:     row[1],
		Direction:  domain.Direction(row[2]),
	}

	var err error
	if t.EntryTS, err = parseTS(row[3]); err != nil {
		return nil, fmt.Errorf("trade %s: %w", t.TemplateID, err)
	}
	if t.ExitTS, err = parseTS(row[4]); err != nil {
		return nil, fmt.Errorf("trade %s: %w", t.TemplateID, err)
	}

	decimals := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"qty", row[5], &t.Qty},
		{"entry_price", row[6], &t.EntryPrice},
		{"exit_price", row[7], &t.ExitPrice},
		{"fee", row[8], &t.Fee},
		{"pnl_net", row[9], &t.PnLNet},
	}
	for _, d := range decimals {
		v, err := decimal.NewFromString(d.value)
		if err != nil {
			return nil, fmt.Errorf("trade %s: parse %s %q: %w", t.TemplateID, d.name, d.value, err)
		}
		*d.dst = v
	}

	return t, nil
}
