package strategies

import (
	"coinlab/internal/engine"
	"coinlab/internal/indicators"
	"coinlab/types"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	ParamRSIPeriod     = "rsi_period"
	ParamBuyThreshold  = "buy_threshold"
	ParamSellThreshold = "sell_threshold"
)

// RSISwing buys when RSI is oversold and sells when it is overbought.
func RSISwing(coin string, prices []types.PricePoint, capital decimal.Decimal, params types.Params) (*engine.Execution, error) {
	period, err := periodParam(params, ParamRSIPeriod, 14)
	if err != nil {
		return nil, err
	}
	buyAt, err := floatParam(params, ParamBuyThreshold, 30)
	if err != nil {
		return nil, err
	}
	sellAt, err := floatParam(params, ParamSellThreshold, 70)
	if err != nil {
		return nil, err
	}
	if buyAt >= sellAt {
		return nil, fmt.Errorf("%w: buy_threshold %v must be below sell_threshold %v", engine.ErrInvalidRequest, buyAt, sellAt)
	}

	rsi := indicators.RSI(types.Closes(prices), period)
	return runSignals(coin, prices, capital, func(i int, _ types.PricePoint, st engine.TradingState) types.Side {
		v, ok := rsi.At(i)
		switch {
		case !ok:
		case v <= buyAt && st.Cash.IsPositive():
			return types.SideTypeBuy
		case v >= sellAt && st.Quantity.IsPositive():
			return types.SideTypeSell
		}
		return ""
	}), nil
}
