package engine

import (
	"coinlab/types"
	"sort"

	"github.com/shopspring/decimal"
)

// StrategyFunc runs one strategy over an ordered price series. Implementations must call
// Ledger.RecordEquity exactly once per price point.
type StrategyFunc func(coin string, prices []types.PricePoint, initialCapital decimal.Decimal, params types.Params) (*Execution, error)

// Registry maps strategy names to their implementation.
type Registry map[string]StrategyFunc

func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
