package engine

import (
	"coinlab/internal/metrics"
	"coinlab/types"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const unknownStrategyLabel = "unknown"

type BacktestResult struct {
	Strategy       string              `json:"strategy"`
	Coin           string              `json:"coin"`
	InitialCapital decimal.Decimal     `json:"initial_capital"`
	StartDate      time.Time           `json:"start_date"`
	EndDate        time.Time           `json:"end_date"`
	FinalValue     decimal.Decimal     `json:"final_value"`
	Params         types.Params        `json:"params"`
	Metrics        Metrics             `json:"metrics"`
	Trades         []types.Trade       `json:"trades"`
	EquityCurve    []types.EquityPoint `json:"-"`
}

// RunBacktest validates req, resolves prices, runs the strategy and computes metrics.
// The run itself is single threaded and not interruptible; ctx bounds price loading and persistence.
func (e *Engine) RunBacktest(ctx context.Context, req BacktestRequest, opts ...RunOption) (*BacktestResult, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	req, err := e.validate(req)
	if err != nil {
		metrics.BacktestsTotal.WithLabelValues(e.strategyLabel(req.Strategy), "invalid").Inc()
		return nil, err
	}

	prices := o.prices
	if prices == nil {
		prices, err = e.LoadPrices(ctx, req.Coin, req.StartDate, req.EndDate, req.Days)
		if err != nil {
			metrics.BacktestsTotal.WithLabelValues(req.Strategy, "error").Inc()
			return nil, err
		}
	}
	if len(prices) < 2 {
		metrics.BacktestsTotal.WithLabelValues(req.Strategy, "error").Inc()
		return nil, fmt.Errorf("%w: %d points for %s", ErrInsufficientData, len(prices), req.Coin)
	}

	started := time.Now()
	exec, err := e.registry[req.Strategy](req.Coin, prices, req.InitialCapital, req.Params)
	if err != nil {
		metrics.BacktestsTotal.WithLabelValues(req.Strategy, "error").Inc()
		return nil, fmt.Errorf("%s on %s: %w", req.Strategy, req.Coin, err)
	}
	metrics.BacktestDuration.WithLabelValues(req.Strategy).Observe(time.Since(started).Seconds())

	finalValue := calcFinalValue(req.InitialCapital, exec.EquityCurve)
	params := req.Params
	if params == nil {
		params = types.Params{}
	}
	result := &BacktestResult{
		Strategy:       req.Strategy,
		Coin:           req.Coin,
		InitialCapital: req.InitialCapital,
		StartDate:      prices[0].Date,
		EndDate:        prices[len(prices)-1].Date,
		FinalValue:     finalValue,
		Params:         params,
		Metrics:        generateMetrics(req.InitialCapital, finalValue, exec),
		Trades:         exec.Trades,
		EquityCurve:    exec.EquityCurve,
	}

	if o.persist {
		if e.store == nil {
			metrics.BacktestsTotal.WithLabelValues(req.Strategy, "error").Inc()
			return nil, ErrNoResultStore
		}
		if err := e.store.SaveBacktestResult(ctx, result); err != nil {
			metrics.BacktestsTotal.WithLabelValues(req.Strategy, "error").Inc()
			return nil, fmt.Errorf("persist backtest %s/%s: %w", req.Strategy, req.Coin, err)
		}
	}

	metrics.BacktestsTotal.WithLabelValues(req.Strategy, "ok").Inc()
	e.log.Debug("backtest finished",
		zap.String("strategy", result.Strategy),
		zap.String("coin", result.Coin),
		zap.Int("points", len(prices)),
		zap.Int("trades", result.Metrics.TradeCount),
		zap.String("final_value", result.FinalValue.StringFixed(2)),
		zap.Float64("total_return_pct", result.Metrics.TotalReturnPct),
	)
	return result, nil
}

// strategyLabel keeps metric label values within the registered names.
func (e *Engine) strategyLabel(name string) string {
	if e.HasStrategy(name) {
		return name
	}
	return unknownStrategyLabel
}

func (e *Engine) validate(req BacktestRequest) (BacktestRequest, error) {
	req.Strategy = strings.TrimSpace(strings.ToLower(req.Strategy))
	if req.Strategy == "" {
		req.Strategy = DefaultStrategy
	}
	req.Coin = types.NormalizeCoin(req.Coin)

	if !req.InitialCapital.IsPositive() {
		return req, fmt.Errorf("%w: initial capital must be positive, got %s", ErrInvalidRequest, req.InitialCapital)
	}
	if req.Coin == "" {
		return req, fmt.Errorf("%w: coin is required", ErrInvalidRequest)
	}
	if !e.cfg.supportsCoin(req.Coin) {
		return req, fmt.Errorf("%w: unsupported coin %q", ErrInvalidRequest, req.Coin)
	}
	if _, ok := e.registry[req.Strategy]; !ok {
		return req, fmt.Errorf("%w: unknown strategy %q", ErrInvalidRequest, req.Strategy)
	}
	if req.Days < 0 {
		return req, fmt.Errorf("%w: days must not be negative", ErrInvalidRequest)
	}
	if _, _, err := parseRange(req.StartDate, req.EndDate); err != nil {
		return req, err
	}
	return req, nil
}

func parseRange(startDate, endDate string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if startDate != "" {
		t, err := ParseDate(startDate)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: start_date %q: %v", ErrInvalidRequest, startDate, err)
		}
		start = &t
	}
	if endDate != "" {
		t, err := ParseDate(endDate)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: end_date %q: %v", ErrInvalidRequest, endDate, err)
		}
		end = &t
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, nil, fmt.Errorf("%w: start_date %s is after end_date %s", ErrInvalidRequest, startDate, endDate)
	}
	return start, end, nil
}
