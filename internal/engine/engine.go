package engine

import (
	"coinlab/internal/logger"
	"coinlab/types"
	"context"
	"fmt"
)

type Engine struct {
	registry Registry
	provider PriceProvider
	store    ResultStore
	log      logger.Logger
	cfg      *Config
}

// NewEngine wires a strategy registry to its price source and optional result store.
// A nil logger or config falls back to a no-op logger and NewConfig defaults.
func NewEngine(registry Registry, provider PriceProvider, store ResultStore, log logger.Logger, cfg *Config) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg == nil {
		cfg = NewConfig(DefaultLookbackDays)
	}
	return &Engine{
		registry: registry,
		provider: provider,
		store:    store,
		log:      log,
		cfg:      cfg,
	}
}

func (e *Engine) Strategies() []string {
	return e.registry.Names()
}

func (e *Engine) HasStrategy(name string) bool {
	_, ok := e.registry[name]
	return ok
}

// LoadPrices resolves the request's date range and fetches prices from the provider.
func (e *Engine) LoadPrices(ctx context.Context, coin, startDate, endDate string, days int) ([]types.PricePoint, error) {
	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	feed := newDataFeed(types.NormalizeCoin(coin), start, end, days, e.cfg)
	prices, err := feed.GetData(ctx, e.provider)
	if err != nil {
		return nil, err
	}
	if len(prices) < 2 {
		return nil, fmt.Errorf("%w: %d points for %s", ErrInsufficientData, len(prices), feed.Coin)
	}
	return prices, nil
}
