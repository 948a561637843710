package optimizer

import (
	"coinlab/internal/engine"
	"coinlab/strategies"
	"coinlab/types"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mockPrices(prices ...float64) []types.PricePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = types.PricePoint{Date: start.AddDate(0, 0, i), Price: decimal.NewFromFloat(p)}
	}
	return out
}

type mockProvider struct {
	prices map[string][]types.PricePoint
	calls  atomic.Int64
}

func (m *mockProvider) GetPriceHistory(_ context.Context, coin string, _, _ time.Time) ([]types.PricePoint, error) {
	m.calls.Add(1)
	p, ok := m.prices[coin]
	if !ok {
		return nil, errors.New("no prices")
	}
	return p, nil
}

type mockStore struct {
	saved []Ranking
	err   error
}

// Not locked: the optimizer is expected to serialize writes.
func (m *mockStore) SaveOptimizationResult(_ context.Context, r Ranking) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, r)
	return nil
}

func (m *mockStore) ListOptimizationResults(_ context.Context, f Filter) ([]Ranking, error) {
	out := make([]Ranking, 0, len(m.saved))
	for _, r := range m.saved {
		if f.Coin == "" || r.Coin == f.Coin {
			out = append(out, r)
		}
	}
	SortRankings(out)
	return out, nil
}

// stallingProvider serves prices for known coins and blocks on any other coin until
// the context is done.
type stallingProvider struct {
	prices map[string][]types.PricePoint
}

func (s stallingProvider) GetPriceHistory(ctx context.Context, coin string, _, _ time.Time) ([]types.PricePoint, error) {
	if p, ok := s.prices[coin]; ok {
		return p, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// slowRunner delays every backtest so deadlines can be hit deterministically.
type slowRunner struct {
	*engine.Engine
	delay time.Duration
}

func (s slowRunner) RunBacktest(ctx context.Context, req engine.BacktestRequest, opts ...engine.RunOption) (*engine.BacktestResult, error) {
	time.Sleep(s.delay)
	return s.Engine.RunBacktest(ctx, req, opts...)
}

var capital = decimal.RequireFromString("10000")

func scenarioPrices() []types.PricePoint {
	return mockPrices(100, 105, 110, 120, 115, 125, 130, 140)
}

func newEngine(provider engine.PriceProvider) *engine.Engine {
	return engine.NewEngine(strategies.Registry(), provider, nil, nil, nil)
}

func assertSorted(t *testing.T, rs []Ranking) {
	t.Helper()
	for i := 1; i < len(rs); i++ {
		if Better(rs[i], rs[i-1]) {
			t.Fatalf("rankings out of order at %d: %+v before %+v", i, rs[i-1], rs[i])
		}
	}
}

func TestParameterGrid_Sizes(t *testing.T) {
	want := map[string]int{
		strategies.NameHodl:           1,
		strategies.NameDCA:            4,
		strategies.NameRSISwing:       80,
		strategies.NameMACross:        24,
		strategies.NameGrid:           36,
		strategies.NameBollingerBands: 9,
		strategies.NameMACD:           24,
		strategies.NameMeanReversion:  12,
	}
	for _, name := range strategies.All {
		t.Run(name, func(t *testing.T) {
			grid, err := ParameterGrid(name)
			if err != nil {
				t.Fatal(err)
			}
			if len(grid) != want[name] {
				t.Fatalf("grid size = %d, want %d", len(grid), want[name])
			}
			seen := make(map[string]bool, len(grid))
			for _, p := range grid {
				if seen[p.Key()] {
					t.Fatalf("duplicate grid point %s", p.Key())
				}
				seen[p.Key()] = true
			}
		})
	}

	if _, err := ParameterGrid("martingale"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestParameterGrid_PrunesMACD(t *testing.T) {
	grid, err := ParameterGrid(strategies.NameMACD)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range grid {
		fast, _ := p.Int(strategies.ParamFastPeriod, 0)
		slow, _ := p.Int(strategies.ParamSlowPeriod, 0)
		if fast >= slow {
			t.Fatalf("unpruned point %s", p.Key())
		}
	}
}

func TestScore(t *testing.T) {
	got := Score(engine.Metrics{TotalReturnPct: 20, SharpeRatio: 1.5, WinRatePct: 60, MaxDrawdownPct: 10})
	if want := 20 + 15 + 3 - 5.0; got != want {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestSortRankings_TieBreaks(t *testing.T) {
	rs := []Ranking{
		{Strategy: "a", Score: 1, TotalReturnPct: 5, SharpeRatio: 1, FinalValue: decimal.NewFromInt(100)},
		{Strategy: "b", Score: 2},
		{Strategy: "c", Score: 1, TotalReturnPct: 5, SharpeRatio: 2, FinalValue: decimal.NewFromInt(100)},
		{Strategy: "d", Score: 1, TotalReturnPct: 6},
		{Strategy: "e", Score: 1, TotalReturnPct: 5, SharpeRatio: 1, FinalValue: decimal.NewFromInt(200)},
	}
	SortRankings(rs)

	want := []string{"b", "d", "c", "e", "a"}
	for i, w := range want {
		if rs[i].Strategy != w {
			t.Fatalf("position %d = %s, want %s (order %v)", i, rs[i].Strategy, w, rs)
		}
	}
	assertSorted(t, rs)
}

func TestOptimizeCoin_HodlAndDCA(t *testing.T) {
	opt := NewOptimizer(newEngine(nil), nil, nil, NewConfig(4, 0, 0))
	res, err := opt.OptimizeCoin(context.Background(), CoinRequest{
		Coin:           "bitcoin",
		Strategies:     []string{strategies.NameHodl, strategies.NameDCA},
		InitialCapital: capital,
		Prices:         scenarioPrices(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.EvaluatedCount != 5 || len(res.Rankings) != 5 {
		t.Fatalf("evaluated = %d rankings = %d, want 5", res.EvaluatedCount, len(res.Rankings))
	}
	if res.Incomplete {
		t.Fatal("unexpected incomplete result")
	}
	assertSorted(t, res.Rankings)
	if res.Best == nil || res.Best.Score < res.Rankings[len(res.Rankings)-1].Score {
		t.Fatalf("best = %+v", res.Best)
	}
}

func TestOptimizeCoin_FetchesPricesOnce(t *testing.T) {
	provider := &mockProvider{prices: map[string][]types.PricePoint{"bitcoin": scenarioPrices()}}
	opt := NewOptimizer(newEngine(provider), nil, nil, NewConfig(8, 0, 0))
	res, err := opt.OptimizeCoin(context.Background(), CoinRequest{
		Coin:           "bitcoin",
		Strategies:     []string{strategies.NameBollingerBands, strategies.NameMeanReversion},
		InitialCapital: capital,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.EvaluatedCount != 21 {
		t.Fatalf("evaluated = %d, want 21", res.EvaluatedCount)
	}
	if n := provider.calls.Load(); n != 1 {
		t.Fatalf("provider called %d times, want 1", n)
	}
}

func TestOptimizeCoin_AllStrategiesByDefault(t *testing.T) {
	opt := NewOptimizer(newEngine(nil), nil, nil, NewConfig(0, 0, 0))
	res, err := opt.OptimizeCoin(context.Background(), CoinRequest{
		Coin:           "bitcoin",
		InitialCapital: capital,
		Prices:         scenarioPrices(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := 1 + 4 + 80 + 24 + 36 + 9 + 24 + 12; res.EvaluatedCount != want {
		t.Fatalf("evaluated = %d, want %d", res.EvaluatedCount, want)
	}
	assertSorted(t, res.Rankings)
}

func TestOptimizeCoin_Persist(t *testing.T) {
	store := &mockStore{}
	opt := NewOptimizer(newEngine(nil), store, nil, NewConfig(8, 0, 0))
	_, err := opt.OptimizeCoin(context.Background(), CoinRequest{
		Coin:           "bitcoin",
		Strategies:     []string{strategies.NameRSISwing},
		InitialCapital: capital,
		Prices:         scenarioPrices(),
		Persist:        true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 80 {
		t.Fatalf("saved = %d, want 80", len(store.saved))
	}

	listed, err := opt.ListResults(context.Background(), Filter{Coin: "bitcoin"})
	if err != nil {
		t.Fatal(err)
	}
	assertSorted(t, listed)
}

func TestOptimizeCoin_PersistErrors(t *testing.T) {
	t.Run("store failure", func(t *testing.T) {
		boom := errors.New("disk full")
		opt := NewOptimizer(newEngine(nil), &mockStore{err: boom}, nil, NewConfig(2, 0, 0))
		_, err := opt.OptimizeCoin(context.Background(), CoinRequest{
			Coin:           "bitcoin",
			Strategies:     []string{strategies.NameDCA},
			InitialCapital: capital,
			Prices:         scenarioPrices(),
			Persist:        true,
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected store error, got %v", err)
		}
	})
	t.Run("no store", func(t *testing.T) {
		opt := NewOptimizer(newEngine(nil), nil, nil, nil)
		_, err := opt.OptimizeCoin(context.Background(), CoinRequest{
			Coin:           "bitcoin",
			InitialCapital: capital,
			Prices:         scenarioPrices(),
			Persist:        true,
		})
		if !errors.Is(err, engine.ErrNoResultStore) {
			t.Fatalf("expected ErrNoResultStore, got %v", err)
		}
	})
}

func TestOptimizeCoin_InvalidRequests(t *testing.T) {
	opt := NewOptimizer(newEngine(nil), nil, nil, nil)
	tests := []struct {
		name string
		req  CoinRequest
		want error
	}{
		{"unknown strategy", CoinRequest{Coin: "bitcoin", Strategies: []string{"martingale"}, InitialCapital: capital, Prices: scenarioPrices()}, engine.ErrInvalidRequest},
		{"zero capital", CoinRequest{Coin: "bitcoin", Prices: scenarioPrices()}, engine.ErrInvalidRequest},
		{"missing coin", CoinRequest{InitialCapital: capital, Prices: scenarioPrices()}, engine.ErrInvalidRequest},
		{"single price", CoinRequest{Coin: "bitcoin", InitialCapital: capital, Prices: mockPrices(100)}, engine.ErrInsufficientData},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := opt.OptimizeCoin(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestOptimizeCoin_TimeoutKeepsCompletedRankings(t *testing.T) {
	runner := slowRunner{Engine: newEngine(nil), delay: 30 * time.Millisecond}
	opt := NewOptimizer(runner, nil, nil, NewConfig(1, 0, 0))
	res, err := opt.OptimizeCoin(context.Background(), CoinRequest{
		Coin:           "bitcoin",
		Strategies:     []string{strategies.NameHodl, strategies.NameDCA, strategies.NameBollingerBands},
		InitialCapital: capital,
		Prices:         scenarioPrices(),
		Timeout:        100 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Incomplete {
		t.Fatal("expected an incomplete result")
	}
	if res.EvaluatedCount == 0 || res.EvaluatedCount >= 14 {
		t.Fatalf("evaluated = %d, want a partial sweep", res.EvaluatedCount)
	}
	assertSorted(t, res.Rankings)
}

func TestOptimizeCoin_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opt := NewOptimizer(newEngine(nil), nil, nil, nil)
	res, err := opt.OptimizeCoin(ctx, CoinRequest{
		Coin:           "bitcoin",
		InitialCapital: capital,
		Prices:         scenarioPrices(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Incomplete || res.EvaluatedCount != 0 || res.Best != nil {
		t.Fatalf("expected nothing evaluated, got %+v", res)
	}
}

func TestOptimizeAllCoins(t *testing.T) {
	provider := &mockProvider{prices: map[string][]types.PricePoint{
		"bitcoin":  scenarioPrices(),
		"ethereum": mockPrices(100, 90, 80, 85, 70, 75, 60, 65),
	}}
	opt := NewOptimizer(newEngine(provider), nil, nil, NewConfig(4, 3, 0))
	res, err := opt.OptimizeAllCoins(context.Background(), AllCoinsRequest{
		Coins:          []string{"bitcoin", "ethereum", "dogecoin"},
		Strategies:     []string{strategies.NameHodl, strategies.NameDCA},
		InitialCapital: capital,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Coins) != 2 {
		t.Fatalf("coins = %d, want 2", len(res.Coins))
	}
	if _, ok := res.Failed["dogecoin"]; !ok {
		t.Fatalf("expected dogecoin to be reported as failed, got %v", res.Failed)
	}
	if len(res.OverallRankings) != 3 {
		t.Fatalf("overall = %d, want top 3", len(res.OverallRankings))
	}
	assertSorted(t, res.OverallRankings)
	for _, r := range res.OverallRankings {
		if r.Coin != "bitcoin" {
			t.Fatalf("rising bitcoin should dominate the top 3, got %+v", r)
		}
	}

	res, err = opt.OptimizeAllCoins(context.Background(), AllCoinsRequest{
		Coins:          []string{"bitcoin", "ethereum"},
		Strategies:     []string{strategies.NameHodl, strategies.NameDCA},
		InitialCapital: capital,
		TopN:           100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.OverallRankings) != 10 {
		t.Fatalf("overall = %d, want all 10", len(res.OverallRankings))
	}
}

func TestOptimizeAllCoins_DeadlineDuringPriceLoad(t *testing.T) {
	provider := stallingProvider{prices: map[string][]types.PricePoint{"bitcoin": scenarioPrices()}}
	opt := NewOptimizer(newEngine(provider), nil, nil, NewConfig(2, 10, 0))

	res, err := opt.OptimizeAllCoins(context.Background(), AllCoinsRequest{
		Coins:          []string{"bitcoin", "ethereum", "solana"},
		Strategies:     []string{strategies.NameHodl, strategies.NameDCA},
		InitialCapital: capital,
		Timeout:        200 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Incomplete {
		t.Fatal("expected Incomplete when the deadline hits during a price load")
	}
	if len(res.Failed) != 0 {
		t.Fatalf("timed out coins must not be reported as failed, got %v", res.Failed)
	}
	if len(res.Coins) != 1 || res.Coins[0].Coin != "bitcoin" {
		t.Fatalf("coins = %+v, want only bitcoin", res.Coins)
	}
	if len(res.OverallRankings) != 5 {
		t.Fatalf("overall = %d, want 5", len(res.OverallRankings))
	}
}
