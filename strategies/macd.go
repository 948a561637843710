package strategies

import (
	"coinlab/internal/engine"
	"coinlab/internal/indicators"
	"coinlab/types"

	"github.com/shopspring/decimal"
)

const (
	ParamFastPeriod   = "fast_period"
	ParamSlowPeriod   = "slow_period"
	ParamSignalPeriod = "signal_period"
)

// MACD buys when the MACD line crosses above its signal line and sells on the opposite
// cross. The slow period is raised to fast+1 when needed.
func MACD(coin string, prices []types.PricePoint, capital decimal.Decimal, params types.Params) (*engine.Execution, error) {
	fast, err := periodParam(params, ParamFastPeriod, 12)
	if err != nil {
		return nil, err
	}
	slow, err := periodParam(params, ParamSlowPeriod, 26)
	if err != nil {
		return nil, err
	}
	signal, err := periodParam(params, ParamSignalPeriod, 9)
	if err != nil {
		return nil, err
	}
	slow = max(slow, fast+1)

	line, sig := indicators.MACD(types.Closes(prices), fast, slow, signal)
	return runSignals(coin, prices, capital, crossSignal(line, sig)), nil
}
