package strategies

import (
	"coinlab/internal/engine"
	"coinlab/types"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	ParamInterval     = "interval"
	ParamAmountPerBuy = "amount_per_buy"
)

// DCA buys a fixed notional every interval calendar days starting at the first point.
// Without amount_per_buy the capital is split evenly over the expected number of buys.
func DCA(coin string, prices []types.PricePoint, capital decimal.Decimal, params types.Params) (*engine.Execution, error) {
	name, err := params.String(ParamInterval, string(types.Weekly))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidRequest, err)
	}
	interval, err := types.ParseInterval(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidRequest, err)
	}
	days := types.IntervalToDays[interval]

	amount := capital.Div(decimal.NewFromInt(int64(estimatedBuys(prices, days))))
	if _, ok := params[ParamAmountPerBuy]; ok {
		v, err := floatParam(params, ParamAmountPerBuy, 0)
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, fmt.Errorf("%w: %s must be positive", engine.ErrInvalidRequest, ParamAmountPerBuy)
		}
		amount = decimal.NewFromFloat(v)
	}

	l := engine.NewLedger(coin, capital)
	if len(prices) > 0 {
		next := prices[0].Date
		for _, p := range prices {
			if !p.Date.Before(next) {
				l.BuyByNotional(p, amount)
				for !p.Date.Before(next) {
					next = next.AddDate(0, 0, days)
				}
			}
			l.RecordEquity(p)
		}
	}
	return l.Execution(), nil
}

func estimatedBuys(prices []types.PricePoint, intervalDays int) int {
	if len(prices) < 2 {
		return 1
	}
	span := int(prices[len(prices)-1].Date.Sub(prices[0].Date).Hours() / 24)
	return span/intervalDays + 1
}
