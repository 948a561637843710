package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BacktestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinlab_backtests_total",
			Help: "Total number of backtests run (by strategy and outcome).",
		},
		[]string{"strategy", "status"},
	)

	BacktestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coinlab_backtest_duration_seconds",
			Help:    "Wall time of a single backtest run.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"strategy"},
	)

	GridPointsEvaluated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinlab_optimizer_grid_points_total",
			Help: "Parameter combinations evaluated by the optimizer (by strategy).",
		},
		[]string{"strategy"},
	)

	OptimizationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinlab_optimizations_total",
			Help: "Per-coin optimizations run (by completion state).",
		},
		[]string{"state"},
	)

	PriceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinlab_price_fetches_total",
			Help: "Price history lookups (by source and result).",
		},
		[]string{"source", "result"},
	)
)

func init() {
	prometheus.MustRegister(BacktestsTotal, BacktestDuration, GridPointsEvaluated, OptimizationsTotal, PriceFetches)
}
