package optimizer

import (
	"coinlab/internal/engine"
	"coinlab/types"
	"runtime"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultTopN = 20

type Config struct {
	workers  int
	topN     int
	timeout  time.Duration
	progress bool
}

// NewConfig builds optimizer settings. Non-positive workers use runtime.NumCPU() and
// non-positive topN uses DefaultTopN. A zero timeout means no default deadline.
func NewConfig(workers, topN int, timeout time.Duration) *Config {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Config{
		workers: workers,
		topN:    topN,
		timeout: timeout,
	}
}

// WithProgress renders a progress bar on stderr while grid points run.
func (c *Config) WithProgress(enabled bool) *Config {
	c.progress = enabled
	return c
}

// CoinRequest sweeps the parameter grids of Strategies for one coin. Empty Strategies
// means every registered strategy. Prices, when set, skip the provider.
type CoinRequest struct {
	Coin           string             `json:"coin"`
	Strategies     []string           `json:"strategies,omitempty"`
	InitialCapital decimal.Decimal    `json:"initial_capital"`
	StartDate      string             `json:"start_date,omitempty"`
	EndDate        string             `json:"end_date,omitempty"`
	Days           int                `json:"days,omitempty"`
	Timeout        time.Duration      `json:"-"`
	Persist        bool               `json:"persist,omitempty"`
	Prices         []types.PricePoint `json:"-"`
}

type AllCoinsRequest struct {
	Coins          []string        `json:"coins,omitempty"`
	Strategies     []string        `json:"strategies,omitempty"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	StartDate      string          `json:"start_date,omitempty"`
	EndDate        string          `json:"end_date,omitempty"`
	Days           int             `json:"days,omitempty"`
	Timeout        time.Duration   `json:"-"`
	Persist        bool            `json:"persist,omitempty"`
	TopN           int             `json:"top_n,omitempty"`
}

type CoinResult struct {
	Coin           string    `json:"coin"`
	Best           *Ranking  `json:"best,omitempty"`
	Rankings       []Ranking `json:"rankings"`
	EvaluatedCount int       `json:"evaluated_count"`
	Incomplete     bool      `json:"incomplete,omitempty"`
}

type AllCoinsResult struct {
	Coins           []CoinResult      `json:"coins"`
	OverallRankings []Ranking         `json:"overall_rankings"`
	Failed          map[string]string `json:"failed,omitempty"`
	Incomplete      bool              `json:"incomplete,omitempty"`
}

func (r CoinRequest) backtestRequest(strategy string, params types.Params) engine.BacktestRequest {
	return engine.BacktestRequest{
		Strategy:       strategy,
		Coin:           r.Coin,
		InitialCapital: r.InitialCapital,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		Days:           r.Days,
		Params:         params,
	}
}
