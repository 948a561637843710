package strategies

import (
	"coinlab/internal/engine"
	"coinlab/internal/indicators"
	"coinlab/types"
	"fmt"

	"github.com/shopspring/decimal"
)

const ParamDeviationPct = "deviation_pct"

// MeanReversion buys when price sits deviation_pct below its SMA and sells when it is
// deviation_pct above.
func MeanReversion(coin string, prices []types.PricePoint, capital decimal.Decimal, params types.Params) (*engine.Execution, error) {
	period, err := periodParam(params, ParamPeriod, 20)
	if err != nil {
		return nil, err
	}
	dev, err := floatParam(params, ParamDeviationPct, 5)
	if err != nil {
		return nil, err
	}
	if dev <= 0 {
		return nil, fmt.Errorf("%w: deviation_pct must be positive", engine.ErrInvalidRequest)
	}

	sma := indicators.SMA(types.Closes(prices), period)
	return runSignals(coin, prices, capital, func(i int, p types.PricePoint, _ engine.TradingState) types.Side {
		mean, ok := sma.At(i)
		if !ok || mean <= 0 {
			return ""
		}
		pct := (p.Price.InexactFloat64() - mean) / mean * 100
		switch {
		case pct <= -dev:
			return types.SideTypeBuy
		case pct >= dev:
			return types.SideTypeSell
		}
		return ""
	}), nil
}
