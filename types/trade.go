package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one executed buy or sell. RealizedPnL is only valid on sells.
type Trade struct {
	Coin        string              `json:"coin"`
	Date        time.Time           `json:"date"`
	Action      Side                `json:"action"`
	Price       decimal.Decimal     `json:"price"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Notional    decimal.Decimal     `json:"notional"`
	RealizedPnL decimal.NullDecimal `json:"realized_pnl"`
}
