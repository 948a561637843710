package optimizer

import (
	"coinlab/internal/engine"
	"coinlab/types"
	"sort"

	"github.com/shopspring/decimal"
)

// Ranking is one evaluated (strategy, params) point for a coin.
type Ranking struct {
	Coin           string          `json:"coin"`
	Strategy       string          `json:"strategy"`
	Params         types.Params    `json:"params"`
	FinalValue     decimal.Decimal `json:"final_value"`
	TotalReturnPct float64         `json:"total_return_pct"`
	MaxDrawdownPct float64         `json:"max_drawdown_pct"`
	SharpeRatio    float64         `json:"sharpe_ratio"`
	WinRatePct     float64         `json:"win_rate_pct"`
	TradeCount     int             `json:"trade_count"`
	Score          float64         `json:"score"`
}

// Score weighs return against risk: return + sharpe*10 + win_rate*0.05 - drawdown*0.5.
func Score(m engine.Metrics) float64 {
	return m.TotalReturnPct + m.SharpeRatio*10 + m.WinRatePct*0.05 - m.MaxDrawdownPct*0.5
}

func newRanking(res *engine.BacktestResult) Ranking {
	return Ranking{
		Coin:           res.Coin,
		Strategy:       res.Strategy,
		Params:         res.Params,
		FinalValue:     res.FinalValue,
		TotalReturnPct: res.Metrics.TotalReturnPct,
		MaxDrawdownPct: res.Metrics.MaxDrawdownPct,
		SharpeRatio:    res.Metrics.SharpeRatio,
		WinRatePct:     res.Metrics.WinRatePct,
		TradeCount:     res.Metrics.TradeCount,
		Score:          Score(res.Metrics),
	}
}

// Better reports whether a ranks strictly ahead of b: score, then total return, then
// sharpe, then final value, all descending.
func Better(a, b Ranking) bool {
	switch {
	case a.Score != b.Score:
		return a.Score > b.Score
	case a.TotalReturnPct != b.TotalReturnPct:
		return a.TotalReturnPct > b.TotalReturnPct
	case a.SharpeRatio != b.SharpeRatio:
		return a.SharpeRatio > b.SharpeRatio
	}
	return a.FinalValue.GreaterThan(b.FinalValue)
}

// SortRankings orders rankings best first. Equal rankings keep their input order.
func SortRankings(rs []Ranking) {
	sort.SliceStable(rs, func(i, j int) bool {
		return Better(rs[i], rs[j])
	})
}
