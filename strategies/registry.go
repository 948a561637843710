// Package strategies holds the trading strategies as pure functions over a price series.
// Each one builds its own ledger, so concurrent runs never share state.
package strategies

import (
	"coinlab/internal/engine"
	"coinlab/types"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	NameHodl           = "hodl"
	NameDCA            = "dca"
	NameRSISwing       = "rsi_swing"
	NameMACross        = "ma_cross"
	NameGrid           = "grid"
	NameBollingerBands = "bollinger_bands"
	NameMACD           = "macd"
	NameMeanReversion  = "mean_reversion"
)

// All lists every strategy name in a stable order.
var All = []string{
	NameHodl,
	NameDCA,
	NameRSISwing,
	NameMACross,
	NameGrid,
	NameBollingerBands,
	NameMACD,
	NameMeanReversion,
}

// Registry returns the lookup table the engine dispatches on.
func Registry() engine.Registry {
	return engine.Registry{
		NameHodl:           Hodl,
		NameDCA:            DCA,
		NameRSISwing:       RSISwing,
		NameMACross:        MACross,
		NameGrid:           Grid,
		NameBollingerBands: BollingerBands,
		NameMACD:           MACD,
		NameMeanReversion:  MeanReversion,
	}
}

func floatParam(params types.Params, name string, def float64) (float64, error) {
	v, err := params.Float(name, def)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", engine.ErrInvalidRequest, err)
	}
	return v, nil
}

func periodParam(params types.Params, name string, def int) (int, error) {
	v, err := params.Int(name, def)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", engine.ErrInvalidRequest, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %d", engine.ErrInvalidRequest, name, v)
	}
	return v, nil
}

// signalFunc decides what to do at index i given the ledger's current state.
type signalFunc func(i int, p types.PricePoint, state engine.TradingState) types.Side

// runSignals drives the common all-in/all-out loop: buy-all on a buy signal, sell-all
// on a sell signal, then mark equity.
func runSignals(coin string, prices []types.PricePoint, capital decimal.Decimal, signal signalFunc) *engine.Execution {
	l := engine.NewLedger(coin, capital)
	for i, p := range prices {
		switch signal(i, p, l.State()) {
		case types.SideTypeBuy:
			l.BuyAll(p)
		case types.SideTypeSell:
			l.SellAll(p)
		}
		l.RecordEquity(p)
	}
	return l.Execution()
}
