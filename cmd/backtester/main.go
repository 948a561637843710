package main

import (
	"coinlab/internal/api"
	"coinlab/internal/config"
	"coinlab/internal/engine"
	"coinlab/internal/logger"
	"coinlab/internal/optimizer"
	"coinlab/internal/pricefeed"
	"coinlab/internal/repository"
	"coinlab/strategies"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const usage = `usage: backtester <command> [flags]

commands:
  backtest      run one strategy against one coin
  optimize      grid-search strategies for one coin
  optimize-all  grid-search strategies for every configured coin
  results       list persisted optimization rankings
  import        load <coin>.csv files from COINLAB_PRICE_DIR into the database
  serve         start the HTTP API
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg       config.Config
	log       logger.Logger
	db        *repository.Database
	engine    *engine.Engine
	optimizer *optimizer.Optimizer
}

func run(ctx context.Context, cmd string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	switch cmd {
	case "backtest":
		return a.backtest(ctx, args)
	case "optimize":
		return a.optimize(ctx, args)
	case "optimize-all":
		return a.optimizeAll(ctx, args)
	case "results":
		return a.results(ctx, args)
	case "import":
		return a.importPrices(ctx, args)
	case "serve":
		return api.NewServer(a.engine, a.optimizer, log).ListenAndServe(ctx, cfg.HTTPAddr)
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func newApp(ctx context.Context, cfg config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	var (
		provider engine.PriceProvider
		results  engine.ResultStore
		rankings optimizer.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := repository.NewDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		provider, results, rankings = db, db, db
	}
	if cfg.PriceDir != "" && provider == nil {
		provider = pricefeed.NewCSVProvider(cfg.PriceDir)
	}

	engCfg := engine.NewConfig(engine.DefaultLookbackDays, cfg.Coins...)
	a.engine = engine.NewEngine(strategies.Registry(), pricefeed.NewCache(provider, pricefeed.WithTTL(cfg.PriceCacheTTL)), results, log, engCfg)

	optCfg := optimizer.NewConfig(cfg.Workers, cfg.TopN, cfg.OptimizerTimeout)
	a.optimizer = optimizer.NewOptimizer(a.engine, rankings, log, optCfg.WithProgress(true))
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

type runFlags struct {
	capital   string
	startDate string
	endDate   string
	days      int
	persist   bool
}

func (f *runFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.capital, "capital", "10000", "initial capital")
	fs.StringVar(&f.startDate, "start", "", "start date (YYYY-MM-DD)")
	fs.StringVar(&f.endDate, "end", "", "end date (YYYY-MM-DD), defaults to today")
	fs.IntVar(&f.days, "days", 0, "lookback days when -start is omitted")
	fs.BoolVar(&f.persist, "persist", false, "store results in the database")
}

func (f *runFlags) initialCapital() (decimal.Decimal, error) {
	c, err := decimal.NewFromString(f.capital)
	if err != nil {
		return decimal.Zero, fmt.Errorf("capital %q: %w", f.capital, err)
	}
	return c, nil
}

func (a *app) backtest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	var rf runFlags
	rf.register(fs)
	strategy := fs.String("strategy", strategies.NameHodl, "strategy name: "+strings.Join(strategies.All, ", "))
	coin := fs.String("coin", "bitcoin", "coin id")
	params := fs.String("params", "", `strategy params as JSON, e.g. {"rsi_period":14}`)
	tradesOut := fs.String("trades-csv", "", "write trades to this CSV file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	capital, err := rf.initialCapital()
	if err != nil {
		return err
	}
	req := engine.BacktestRequest{
		Strategy:       *strategy,
		Coin:           *coin,
		InitialCapital: capital,
		StartDate:      rf.startDate,
		EndDate:        rf.endDate,
		Days:           rf.days,
	}
	if *params != "" {
		if err := json.Unmarshal([]byte(*params), &req.Params); err != nil {
			return fmt.Errorf("params: %w", err)
		}
	}

	res, err := a.engine.RunBacktest(ctx, req, engine.WithPersist(rf.persist))
	if err != nil {
		return err
	}
	engine.PrintReport(os.Stdout, res)
	if *tradesOut != "" {
		if err := engine.WriteTradesCSVFile(*tradesOut, res.Trades); err != nil {
			return err
		}
		a.log.Info("trades written", zap.String("path", *tradesOut), zap.Int("count", len(res.Trades)))
	}
	return nil
}

func (a *app) optimize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	var rf runFlags
	rf.register(fs)
	coin := fs.String("coin", "bitcoin", "coin id")
	strats := fs.String("strategies", "", "comma separated strategies (default all)")
	top := fs.Int("top", 10, "rankings to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	capital, err := rf.initialCapital()
	if err != nil {
		return err
	}

	res, err := a.optimizer.OptimizeCoin(ctx, optimizer.CoinRequest{
		Coin:           *coin,
		Strategies:     splitList(*strats),
		InitialCapital: capital,
		StartDate:      rf.startDate,
		EndDate:        rf.endDate,
		Days:           rf.days,
		Persist:        rf.persist,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d grid points evaluated", res.Coin, res.EvaluatedCount)
	if res.Incomplete {
		fmt.Print(" (incomplete: timed out)")
	}
	fmt.Println()
	printRankings(res.Rankings, *top)
	return nil
}

func (a *app) optimizeAll(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize-all", flag.ContinueOnError)
	var rf runFlags
	rf.register(fs)
	coins := fs.String("coins", "", "comma separated coins (default COINLAB_COINS)")
	strats := fs.String("strategies", "", "comma separated strategies (default all)")
	top := fs.Int("top", a.cfg.TopN, "overall rankings to keep")
	if err := fs.Parse(args); err != nil {
		return err
	}
	capital, err := rf.initialCapital()
	if err != nil {
		return err
	}
	coinList := splitList(*coins)
	if len(coinList) == 0 {
		coinList = a.cfg.Coins
	}

	res, err := a.optimizer.OptimizeAllCoins(ctx, optimizer.AllCoinsRequest{
		Coins:          coinList,
		Strategies:     splitList(*strats),
		InitialCapital: capital,
		StartDate:      rf.startDate,
		EndDate:        rf.endDate,
		Days:           rf.days,
		Persist:        rf.persist,
		TopN:           *top,
	})
	if err != nil {
		return err
	}
	for coin, reason := range res.Failed {
		fmt.Printf("skipped %s: %s\n", coin, reason)
	}
	printRankings(res.OverallRankings, *top)
	return nil
}

func (a *app) results(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	coin := fs.String("coin", "", "filter by coin")
	strategy := fs.String("strategy", "", "filter by strategy")
	limit := fs.Int("limit", 20, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rankings, err := a.optimizer.ListResults(ctx, optimizer.Filter{Coin: *coin, Strategy: *strategy, Limit: *limit})
	if err != nil {
		return err
	}
	printRankings(rankings, *limit)
	return nil
}

func (a *app) importPrices(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	coins := fs.String("coins", "", "comma separated coins (default COINLAB_COINS)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.db == nil || a.cfg.PriceDir == "" {
		return errors.New("import needs both COINLAB_DATABASE_URL and COINLAB_PRICE_DIR")
	}
	coinList := splitList(*coins)
	if len(coinList) == 0 {
		coinList = a.cfg.Coins
	}

	src := pricefeed.NewCSVProvider(a.cfg.PriceDir)
	for _, coin := range coinList {
		prices, err := src.Load(coin)
		if errors.Is(err, pricefeed.ErrNoData) {
			a.log.Warn("no csv for coin", zap.String("coin", coin))
			continue
		}
		if err != nil {
			return err
		}
		if err := a.db.SavePrices(ctx, coin, prices); err != nil {
			return err
		}
		a.log.Info("prices imported", zap.String("coin", coin), zap.Int("points", len(prices)))
	}
	return nil
}

func printRankings(rankings []optimizer.Ranking, limit int) {
	if limit > 0 && len(rankings) > limit {
		rankings = rankings[:limit]
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tCOIN\tSTRATEGY\tPARAMS\tSCORE\tRETURN %\tMAX DD %\tSHARPE\tWIN %\tTRADES\tFINAL")
	for i, r := range rankings {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.3f\t%.1f\t%d\t%s\n",
			i+1, r.Coin, r.Strategy, r.Params.Key(), r.Score, r.TotalReturnPct, r.MaxDrawdownPct,
			r.SharpeRatio, r.WinRatePct, r.TradeCount, r.FinalValue.StringFixed(2))
	}
	w.Flush()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
