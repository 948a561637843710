package strategies

import (
	"coinlab/internal/engine"
	"coinlab/types"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	ParamGridWidthPct = "grid_width_pct"
	ParamGridCount    = "grid_count"
)

// Grid seeds a position with half the capital, then buys one unit each time price
// falls a grid step below the anchor and sells one unit each time it rises a step
// above it. The anchor follows price one step per iteration, at most grid_count*3
// iterations per day.
func Grid(coin string, prices []types.PricePoint, capital decimal.Decimal, params types.Params) (*engine.Execution, error) {
	width, err := floatParam(params, ParamGridWidthPct, 2)
	if err != nil {
		return nil, err
	}
	if width <= 0 || width >= 100 {
		return nil, fmt.Errorf("%w: grid_width_pct must be in (0, 100), got %v", engine.ErrInvalidRequest, width)
	}
	count, err := periodParam(params, ParamGridCount, 5)
	if err != nil {
		return nil, err
	}

	step := decimal.NewFromFloat(width).Div(decimal.NewFromInt(100))
	down := decimal.NewFromInt(1).Sub(step)
	up := decimal.NewFromInt(1).Add(step)
	gridCount := decimal.NewFromInt(int64(count))
	unitNotional := capital.Div(gridCount.Mul(decimal.NewFromInt(2)))
	maxIterations := count * 3

	l := engine.NewLedger(coin, capital)
	if len(prices) == 0 {
		return l.Execution(), nil
	}

	first := prices[0]
	l.BuyByNotional(first, capital.Div(decimal.NewFromInt(2)))
	unitQty := l.State().Quantity.Div(gridCount)
	anchor := first.Price
	l.RecordEquity(first)

	for _, p := range prices[1:] {
		for n := 0; n < maxIterations; n++ {
			if lower := anchor.Mul(down); p.Price.LessThanOrEqual(lower) {
				l.BuyByNotional(p, unitNotional)
				anchor = lower
				continue
			}
			if upper := anchor.Mul(up); p.Price.GreaterThanOrEqual(upper) {
				if unitQty.IsPositive() && l.State().Quantity.GreaterThanOrEqual(unitQty) {
					l.SellByQuantity(p, unitQty)
				}
				anchor = upper
				continue
			}
			break
		}
		l.RecordEquity(p)
	}
	return l.Execution(), nil
}
