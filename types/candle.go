package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one daily closing price of a coin.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// Closes converts a price series to floats for indicator math.
func Closes(prices []PricePoint) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p.Price.InexactFloat64()
	}
	return out
}
