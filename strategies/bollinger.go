package strategies

import (
	"coinlab/internal/engine"
	"coinlab/internal/indicators"
	"coinlab/types"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	ParamPeriod = "period"
	ParamStdDev = "std_dev"
)

// BollingerBands buys at or below the lower band and sells at or above the upper band.
func BollingerBands(coin string, prices []types.PricePoint, capital decimal.Decimal, params types.Params) (*engine.Execution, error) {
	period, err := periodParam(params, ParamPeriod, 20)
	if err != nil {
		return nil, err
	}
	k, err := floatParam(params, ParamStdDev, 2)
	if err != nil {
		return nil, err
	}
	if k < 0 {
		return nil, fmt.Errorf("%w: std_dev must not be negative", engine.ErrInvalidRequest)
	}

	bands := indicators.Bollinger(types.Closes(prices), period, k)
	return runSignals(coin, prices, capital, func(i int, p types.PricePoint, _ engine.TradingState) types.Side {
		lower, okL := bands.Lower.At(i)
		upper, okU := bands.Upper.At(i)
		if !okL || !okU {
			return ""
		}
		price := p.Price.InexactFloat64()
		switch {
		case price <= lower:
			return types.SideTypeBuy
		case price >= upper:
			return types.SideTypeSell
		}
		return ""
	}), nil
}
