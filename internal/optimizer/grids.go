package optimizer

import (
	"coinlab/strategies"
	"coinlab/types"
	"fmt"
)

type axis struct {
	name   string
	values []any
}

func ints(vs ...int) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func floats(vs ...float64) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// product builds the Cartesian product of the axes, in axis order, dropping points
// rejected by keep.
func product(keep func(types.Params) bool, axes ...axis) []types.Params {
	points := []types.Params{{}}
	for _, ax := range axes {
		next := make([]types.Params, 0, len(points)*len(ax.values))
		for _, p := range points {
			for _, v := range ax.values {
				q := p.Clone()
				q[ax.name] = v
				next = append(next, q)
			}
		}
		points = next
	}
	if keep == nil {
		return points
	}
	kept := points[:0]
	for _, p := range points {
		if keep(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

func less(a, b string) func(types.Params) bool {
	return func(p types.Params) bool {
		x, _ := p.Float(a, 0)
		y, _ := p.Float(b, 0)
		return x < y
	}
}

var grids = map[string]func() []types.Params{
	strategies.NameHodl: func() []types.Params {
		return []types.Params{{}}
	},
	strategies.NameDCA: func() []types.Params {
		out := make([]types.Params, 0, len(types.Intervals))
		for _, iv := range types.Intervals {
			out = append(out, types.Params{strategies.ParamInterval: string(iv)})
		}
		return out
	},
	strategies.NameRSISwing: func() []types.Params {
		return product(less(strategies.ParamBuyThreshold, strategies.ParamSellThreshold),
			axis{strategies.ParamRSIPeriod, ints(7, 10, 14, 21, 28)},
			axis{strategies.ParamBuyThreshold, floats(20, 25, 30, 35)},
			axis{strategies.ParamSellThreshold, floats(65, 70, 75, 80)},
		)
	},
	strategies.NameMACross: func() []types.Params {
		return product(less(strategies.ParamShortPeriod, strategies.ParamLongPeriod),
			axis{strategies.ParamShortPeriod, ints(5, 10, 15, 20)},
			axis{strategies.ParamLongPeriod, ints(30, 50, 100, 150, 200, 250)},
		)
	},
	strategies.NameGrid: func() []types.Params {
		return product(nil,
			axis{strategies.ParamGridWidthPct, floats(1, 1.5, 2, 3, 4, 5)},
			axis{strategies.ParamGridCount, ints(3, 4, 5, 7, 10, 15)},
		)
	},
	strategies.NameBollingerBands: func() []types.Params {
		return product(nil,
			axis{strategies.ParamPeriod, ints(10, 20, 30)},
			axis{strategies.ParamStdDev, floats(1.5, 2, 2.5)},
		)
	},
	strategies.NameMACD: func() []types.Params {
		return product(less(strategies.ParamFastPeriod, strategies.ParamSlowPeriod),
			axis{strategies.ParamFastPeriod, ints(8, 12, 20)},
			axis{strategies.ParamSlowPeriod, ints(17, 26, 35)},
			axis{strategies.ParamSignalPeriod, ints(7, 9, 11)},
		)
	},
	strategies.NameMeanReversion: func() []types.Params {
		return product(nil,
			axis{strategies.ParamPeriod, ints(10, 20, 30)},
			axis{strategies.ParamDeviationPct, floats(3, 5, 7, 10)},
		)
	},
}

// ParameterGrid returns the parameter combinations searched for a strategy.
func ParameterGrid(strategy string) ([]types.Params, error) {
	build, ok := grids[strategy]
	if !ok {
		return nil, fmt.Errorf("no parameter grid for strategy %q", strategy)
	}
	return build(), nil
}
