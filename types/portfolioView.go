package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint is the mark-to-market portfolio value at the close of one price point.
type EquityPoint struct {
	Date   time.Time       `json:"date"`
	Equity decimal.Decimal `json:"equity"`
}
