package backtest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// csvHeader is the trade export column contract
var csvHeader = []string{
	"Ticker", "Entry Date", "Exit Date", "Entry Price", "Exit Price",
	"Score", "Signal", "Confidence", "Return %", "Holding Days",
}

// WriteCSV writes one row per trade to w
func WriteCSV(w io.Writer, trades []Trade) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, t := range trades {
		row := []string{
			t.Ticker,
			t.EntryDate.Format("2006-01-02"),
			t.ExitDate.Format("2006-01-02"),
			strconv.FormatFloat(t.EntryPrice, 'f', 2, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', 2, 64),
			strconv.FormatFloat(t.Score, 'f', 2, 64),
			string(t.Signal),
			strconv.FormatFloat(t.Confidence, 'f', 2, 64),
			strconv.FormatFloat(t.ReturnPct, 'f', 2, 64),
			strconv.Itoa(t.HoldingDays),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing trade row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// TradesCSV renders the trades as a CSV document
func TradesCSV(trades []Trade) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, trades); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
