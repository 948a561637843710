package strategies

import (
	"coinlab/internal/engine"
	"coinlab/internal/indicators"
	"coinlab/types"

	"github.com/shopspring/decimal"
)

const (
	ParamShortPeriod = "short_period"
	ParamLongPeriod  = "long_period"
)

// MACross trades the golden/death cross of a short and a long SMA. The long period is
// raised to short+1 when it is not already longer.
func MACross(coin string, prices []types.PricePoint, capital decimal.Decimal, params types.Params) (*engine.Execution, error) {
	short, err := periodParam(params, ParamShortPeriod, 50)
	if err != nil {
		return nil, err
	}
	long, err := periodParam(params, ParamLongPeriod, 200)
	if err != nil {
		return nil, err
	}
	long = max(long, short+1)

	closes := types.Closes(prices)
	shortMA := indicators.SMA(closes, short)
	longMA := indicators.SMA(closes, long)
	return runSignals(coin, prices, capital, crossSignal(shortMA, longMA)), nil
}

// crossSignal buys when fast crosses above slow and sells on the opposite cross.
func crossSignal(fast, slow indicators.Series) signalFunc {
	return func(i int, _ types.PricePoint, _ engine.TradingState) types.Side {
		switch {
		case indicators.CrossedAbove(fast, slow, i):
			return types.SideTypeBuy
		case indicators.CrossedBelow(fast, slow, i):
			return types.SideTypeSell
		}
		return ""
	}
}
