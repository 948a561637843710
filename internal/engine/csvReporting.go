package engine

import (
	"coinlab/types"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

type tradeRow struct {
	Index       int    `csv:"trade_id"`
	Coin        string `csv:"coin"`
	Date        string `csv:"date"`
	Action      string `csv:"action"`
	Price       string `csv:"price"`
	Quantity    string `csv:"quantity"`
	Notional    string `csv:"notional"`
	RealizedPnL string `csv:"realized_pnl"`
}

type dailyReturnRow struct {
	Date           string  `csv:"date"`
	Equity         string  `csv:"equity"`
	DailyReturnPct float64 `csv:"daily_return_pct"`
}

// WriteTradesCSVFile writes a result's trades to a CSV file at the given path.
func WriteTradesCSVFile(path string, trades []types.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return WriteTradesCSV(f, trades)
}

// WriteTradesCSV writes trades to any io.Writer as CSV.
func WriteTradesCSV(w io.Writer, trades []types.Trade) error {
	rows := make([]*tradeRow, len(trades))
	for i, t := range trades {
		rows[i] = &tradeRow{
			Index:    i,
			Coin:     t.Coin,
			Date:     t.Date.Format(dateLayout),
			Action:   string(t.Action),
			Price:    t.Price.String(),
			Quantity: t.Quantity.String(),
			Notional: t.Notional.StringFixed(2),
		}
		if t.RealizedPnL.Valid {
			rows[i].RealizedPnL = t.RealizedPnL.Decimal.StringFixed(2)
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write trades csv: %w", err)
	}
	return nil
}

// WriteDailyReturnsCSV writes the per-day equity and return series.
func WriteDailyReturnsCSV(w io.Writer, returns []DailyReturn) error {
	rows := make([]*dailyReturnRow, len(returns))
	for i, r := range returns {
		rows[i] = &dailyReturnRow{
			Date:           r.Date.Format(dateLayout),
			Equity:         r.Equity.StringFixed(2),
			DailyReturnPct: r.DailyReturnPct,
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write daily returns csv: %w", err)
	}
	return nil
}
