package engine

import (
	"coinlab/types"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"

	DefaultStrategy     = "hodl"
	DefaultLookbackDays = 365
)

// BacktestRequest is the caller-facing description of one run.
type BacktestRequest struct {
	Strategy       string          `json:"strategy"`
	Coin           string          `json:"coin"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	StartDate      string          `json:"start_date,omitempty"`
	EndDate        string          `json:"end_date,omitempty"`
	Days           int             `json:"days,omitempty"`
	Params         types.Params    `json:"params,omitempty"`
}

type Config struct {
	supportedCoins map[string]bool
	lookbackDays   int
	now            func() time.Time
}

// NewConfig builds an engine config. An empty coin list accepts any coin id.
func NewConfig(lookbackDays int, supportedCoins ...string) *Config {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	coins := make(map[string]bool, len(supportedCoins))
	for _, c := range supportedCoins {
		coins[types.NormalizeCoin(c)] = true
	}
	return &Config{
		supportedCoins: coins,
		lookbackDays:   lookbackDays,
		now:            time.Now,
	}
}

// WithClock replaces the clock used to default end dates.
func (c *Config) WithClock(now func() time.Time) *Config {
	c.now = now
	return c
}

func (c *Config) supportsCoin(coin string) bool {
	return len(c.supportedCoins) == 0 || c.supportedCoins[coin]
}

type runOptions struct {
	prices  []types.PricePoint
	persist bool
}

type RunOption func(*runOptions)

// WithPrices injects a pre-fetched price series; the provider is not consulted.
func WithPrices(prices []types.PricePoint) RunOption {
	return func(o *runOptions) {
		o.prices = prices
	}
}

// WithPersist saves the result through the engine's ResultStore.
func WithPersist(persist bool) RunOption {
	return func(o *runOptions) {
		o.persist = persist
	}
}
