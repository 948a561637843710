package strategies

import (
	"coinlab/internal/engine"
	"coinlab/types"

	"github.com/shopspring/decimal"
)

// Hodl buys with all capital on the first point and never sells.
func Hodl(coin string, prices []types.PricePoint, capital decimal.Decimal, _ types.Params) (*engine.Execution, error) {
	return runSignals(coin, prices, capital, func(i int, _ types.PricePoint, _ engine.TradingState) types.Side {
		if i == 0 {
			return types.SideTypeBuy
		}
		return ""
	}), nil
}
