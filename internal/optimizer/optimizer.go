// Package optimizer grid-searches strategy parameters and ranks the results.
package optimizer

import (
	"coinlab/internal/engine"
	"coinlab/internal/logger"
	"coinlab/internal/metrics"
	"coinlab/types"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner is the backtest engine as seen by the optimizer.
type Runner interface {
	RunBacktest(ctx context.Context, req engine.BacktestRequest, opts ...engine.RunOption) (*engine.BacktestResult, error)
	LoadPrices(ctx context.Context, coin, startDate, endDate string, days int) ([]types.PricePoint, error)
	Strategies() []string
}

// Filter selects persisted rankings. A zero Limit means no limit.
type Filter struct {
	Coin     string
	Strategy string
	Limit    int
}

// Store persists rankings and lists them back ordered by score.
type Store interface {
	SaveOptimizationResult(ctx context.Context, r Ranking) error
	ListOptimizationResults(ctx context.Context, f Filter) ([]Ranking, error)
}

type Optimizer struct {
	runner Runner
	store  Store
	log    logger.Logger
	cfg    *Config
}

func NewOptimizer(runner Runner, store Store, log logger.Logger, cfg *Config) *Optimizer {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg == nil {
		cfg = NewConfig(0, 0, 0)
	}
	if store != nil {
		store = &serializedStore{store: store}
	}
	return &Optimizer{
		runner: runner,
		store:  store,
		log:    log,
		cfg:    cfg,
	}
}

type job struct {
	strategy string
	params   types.Params
}

// OptimizeCoin evaluates every grid point of the requested strategies for one coin.
// Prices are fetched once and shared by all workers. When the timeout (or ctx) expires,
// scheduling stops and the rankings completed so far come back with Incomplete set.
func (o *Optimizer) OptimizeCoin(ctx context.Context, req CoinRequest) (*CoinResult, error) {
	deadline, cancel := o.deadline(ctx, req.Timeout)
	defer cancel()

	res, err := o.optimizeCoin(ctx, deadline, req)
	if err != nil {
		metrics.OptimizationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if res.Incomplete {
		metrics.OptimizationsTotal.WithLabelValues("incomplete").Inc()
	} else {
		metrics.OptimizationsTotal.WithLabelValues("complete").Inc()
	}
	return res, nil
}

// OptimizeAllCoins runs OptimizeCoin for each coin in turn and merges every ranking
// into one list truncated to TopN. Coins whose prices cannot be loaded are reported in
// Failed and skipped. Running out of time, even while loading prices, marks the result
// Incomplete instead.
func (o *Optimizer) OptimizeAllCoins(ctx context.Context, req AllCoinsRequest) (*AllCoinsResult, error) {
	coins := req.Coins
	if len(coins) == 0 {
		coins = types.DefaultCoins
	}
	topN := req.TopN
	if topN <= 0 {
		topN = o.cfg.topN
	}

	deadline, cancel := o.deadline(ctx, req.Timeout)
	defer cancel()

	out := &AllCoinsResult{Coins: make([]CoinResult, 0, len(coins))}
	var overall []Ranking
	for _, coin := range coins {
		if deadline.Err() != nil {
			out.Incomplete = true
			break
		}
		res, err := o.optimizeCoin(ctx, deadline, CoinRequest{
			Coin:           coin,
			Strategies:     req.Strategies,
			InitialCapital: req.InitialCapital,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			Days:           req.Days,
			Persist:        req.Persist,
		})
		if errors.Is(err, engine.ErrInvalidRequest) || errors.Is(err, engine.ErrNoResultStore) {
			metrics.OptimizationsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		if err != nil && deadline.Err() != nil {
			o.log.Warn("optimization deadline reached", zap.String("coin", coin), zap.Error(err))
			out.Incomplete = true
			break
		}
		if err != nil {
			o.log.Warn("coin skipped", zap.String("coin", coin), zap.Error(err))
			if out.Failed == nil {
				out.Failed = make(map[string]string)
			}
			out.Failed[coin] = err.Error()
			continue
		}
		out.Coins = append(out.Coins, *res)
		out.Incomplete = out.Incomplete || res.Incomplete
		overall = append(overall, res.Rankings...)
	}

	SortRankings(overall)
	if len(overall) > topN {
		overall = overall[:topN]
	}
	out.OverallRankings = overall

	if out.Incomplete {
		metrics.OptimizationsTotal.WithLabelValues("incomplete").Inc()
	} else {
		metrics.OptimizationsTotal.WithLabelValues("complete").Inc()
	}
	return out, nil
}

// ListResults returns persisted rankings.
func (o *Optimizer) ListResults(ctx context.Context, f Filter) ([]Ranking, error) {
	if o.store == nil {
		return nil, engine.ErrNoResultStore
	}
	return o.store.ListOptimizationResults(ctx, f)
}

func (o *Optimizer) deadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = o.cfg.timeout
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (o *Optimizer) jobs(names []string) ([]job, error) {
	if len(names) == 0 {
		names = o.runner.Strategies()
	}
	var jobs []job
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		points, err := ParameterGrid(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", engine.ErrInvalidRequest, err)
		}
		for _, p := range points {
			jobs = append(jobs, job{strategy: name, params: p})
		}
	}
	return jobs, nil
}

// optimizeCoin runs the grid for one coin. deadline stops scheduling; ctx is used for
// persistence so completed rankings are still written after the deadline passes.
func (o *Optimizer) optimizeCoin(ctx, deadline context.Context, req CoinRequest) (*CoinResult, error) {
	req.Coin = types.NormalizeCoin(req.Coin)
	if !req.InitialCapital.IsPositive() {
		return nil, fmt.Errorf("%w: initial capital must be positive", engine.ErrInvalidRequest)
	}
	if req.Persist && o.store == nil {
		return nil, engine.ErrNoResultStore
	}
	jobs, err := o.jobs(req.Strategies)
	if err != nil {
		return nil, err
	}

	prices := req.Prices
	if prices == nil {
		prices, err = o.runner.LoadPrices(deadline, req.Coin, req.StartDate, req.EndDate, req.Days)
		if err != nil {
			return nil, err
		}
	}
	if len(prices) < 2 {
		return nil, fmt.Errorf("%w: %d points for %s", engine.ErrInsufficientData, len(prices), req.Coin)
	}

	started := time.Now()
	o.log.Info("optimization started",
		zap.String("coin", req.Coin),
		zap.Int("grid_points", len(jobs)),
		zap.Int("workers", o.cfg.workers),
	)

	var bar *progressbar.ProgressBar
	if o.cfg.progress {
		bar = initProgressBar(len(jobs), req.Coin)
	}

	results := make([]*Ranking, len(jobs))
	var skipped atomic.Int64

	g, gctx := errgroup.WithContext(deadline)
	g.SetLimit(o.cfg.workers)
	for i, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, err := o.runner.RunBacktest(gctx, req.backtestRequest(j.strategy, j.params), engine.WithPrices(prices))
			if errors.Is(err, engine.ErrInvalidRequest) || errors.Is(err, engine.ErrInsufficientData) {
				return err
			}
			if err != nil {
				skipped.Add(1)
				o.log.Warn("grid point failed",
					zap.String("coin", req.Coin),
					zap.String("strategy", j.strategy),
					zap.String("params", j.params.Key()),
					zap.Error(err),
				)
				return nil
			}
			r := newRanking(res)
			if req.Persist {
				if err := o.store.SaveOptimizationResult(ctx, r); err != nil {
					return fmt.Errorf("persist %s %s: %w", j.strategy, j.params.Key(), err)
				}
			}
			results[i] = &r
			metrics.GridPointsEvaluated.WithLabelValues(j.strategy).Inc()
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	rankings := make([]Ranking, 0, len(jobs))
	for _, r := range results {
		if r != nil {
			rankings = append(rankings, *r)
		}
	}
	SortRankings(rankings)

	out := &CoinResult{
		Coin:           req.Coin,
		Rankings:       rankings,
		EvaluatedCount: len(rankings),
		Incomplete:     len(rankings)+int(skipped.Load()) < len(jobs),
	}
	if len(rankings) > 0 {
		best := rankings[0]
		out.Best = &best
	}

	o.log.Info("optimization finished",
		zap.String("coin", req.Coin),
		zap.Int("evaluated", out.EvaluatedCount),
		zap.Int64("failed", skipped.Load()),
		zap.Bool("incomplete", out.Incomplete),
		zap.Duration("elapsed", time.Since(started)),
	)
	return out, nil
}

// serializedStore funnels concurrent worker writes through one lock.
type serializedStore struct {
	mu    sync.Mutex
	store Store
}

func (s *serializedStore) SaveOptimizationResult(ctx context.Context, r Ranking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.SaveOptimizationResult(ctx, r)
}

func (s *serializedStore) ListOptimizationResults(ctx context.Context, f Filter) ([]Ranking, error) {
	return s.store.ListOptimizationResults(ctx, f)
}

func initProgressBar(maxTicks int, coin string) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(fmt.Sprintf("Optimizing %s...", coin)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
