package engine

import (
	"coinlab/types"
	"context"
	"time"
)

// PriceProvider returns a coin's daily prices in [start, end], sorted ascending by date
// with no duplicates. It returns an error when no data exists for the range.
type PriceProvider interface {
	GetPriceHistory(ctx context.Context, coin string, start, end time.Time) ([]types.PricePoint, error)
}

// ResultStore persists finished backtests.
type ResultStore interface {
	SaveBacktestResult(ctx context.Context, result *BacktestResult) error
}
