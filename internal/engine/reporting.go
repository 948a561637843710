package engine

import (
	"coinlab/types"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// periodsPerYear annualizes daily Sharpe ratios; crypto trades every calendar day.
const periodsPerYear = 365.0

var hundred = decimal.NewFromInt(100)

type Metrics struct {
	TotalReturnPct float64       `json:"total_return_pct"`
	MaxDrawdownPct float64       `json:"max_drawdown_pct"`
	SharpeRatio    float64       `json:"sharpe_ratio"`
	WinRatePct     float64       `json:"win_rate_pct"`
	TradeCount     int           `json:"trade_count"`
	DailyReturns   []DailyReturn `json:"daily_returns"`
}

type DailyReturn struct {
	Date           time.Time       `json:"date"`
	DailyReturnPct float64         `json:"daily_return_pct"`
	Equity         decimal.Decimal `json:"equity"`
}

func generateMetrics(initialCapital, finalValue decimal.Decimal, exec *Execution) Metrics {
	return Metrics{
		TotalReturnPct: calcTotalReturnPct(initialCapital, finalValue),
		MaxDrawdownPct: calcMaxDrawdownPct(exec.EquityCurve),
		SharpeRatio:    calcSharpeRatio(exec.EquityCurve),
		WinRatePct:     calcWinRatePct(exec.Trades),
		TradeCount:     len(exec.Trades),
		DailyReturns:   calcDailyReturns(exec.EquityCurve),
	}
}

// calcFinalValue is the last equity point, or the starting capital for an empty curve.
func calcFinalValue(initialCapital decimal.Decimal, curve []types.EquityPoint) decimal.Decimal {
	if len(curve) == 0 {
		return initialCapital
	}
	return curve[len(curve)-1].Equity
}

func calcTotalReturnPct(initialCapital, finalValue decimal.Decimal) float64 {
	if !initialCapital.IsPositive() {
		return 0
	}
	return finalValue.Sub(initialCapital).Div(initialCapital).Mul(hundred).InexactFloat64()
}

// calcMaxDrawdownPct returns the largest peak-to-trough decline as a positive percentage.
func calcMaxDrawdownPct(curve []types.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	minDD := decimal.Zero
	for _, point := range curve {
		if point.Equity.GreaterThan(peak) {
			peak = point.Equity
		}
		if !peak.IsPositive() {
			continue
		}
		dd := point.Equity.Sub(peak).Div(peak)
		if dd.LessThan(minDD) {
			minDD = dd
		}
	}
	return minDD.Abs().Mul(hundred).InexactFloat64()
}

// calcSharpeRatio annualizes the mean/sample-stddev of step returns. Steps whose prior
// equity is not positive are skipped.
func calcSharpeRatio(curve []types.EquityPoint) float64 {
	returns := make([]float64, 0, len(curve))
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if !prev.IsPositive() {
			continue
		}
		returns = append(returns, curve[i].Equity.Sub(prev).Div(prev).InexactFloat64())
	}
	if len(returns) < 2 {
		return 0
	}

	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

// calcWinRatePct is the share of sells with a positive realized P&L.
func calcWinRatePct(trades []types.Trade) float64 {
	sells, wins := 0, 0
	for _, tr := range trades {
		if tr.Action != types.SideTypeSell || !tr.RealizedPnL.Valid {
			continue
		}
		sells++
		if tr.RealizedPnL.Decimal.IsPositive() {
			wins++
		}
	}
	if sells == 0 {
		return 0
	}
	return float64(wins) / float64(sells) * 100
}

func calcDailyReturns(curve []types.EquityPoint) []DailyReturn {
	out := make([]DailyReturn, len(curve))
	for i, point := range curve {
		out[i] = DailyReturn{Date: point.Date, Equity: point.Equity}
		if i == 0 {
			continue
		}
		prev := curve[i-1].Equity
		if prev.IsPositive() {
			out[i].DailyReturnPct = point.Equity.Sub(prev).Div(prev).Mul(hundred).InexactFloat64()
		}
	}
	return out
}

// PrintReport writes a human readable summary of a backtest.
func PrintReport(w io.Writer, r *BacktestResult) {
	fmt.Fprintln(w, "===== Backtest Report =====")
	fmt.Fprintf(w, "Strategy:              %s\n", r.Strategy)
	fmt.Fprintf(w, "Coin:                  %s\n", r.Coin)
	fmt.Fprintf(w, "Period:                %s -> %s\n", r.StartDate.Format(dateLayout), r.EndDate.Format(dateLayout))
	if len(r.Params) > 0 {
		fmt.Fprintf(w, "Params:                %s\n", r.Params.Key())
	}

	fmt.Fprintln(w, "\n-- Absolute Performance --")
	fmt.Fprintf(w, "Initial Capital:       %s\n", r.InitialCapital.StringFixed(2))
	fmt.Fprintf(w, "Final Value:           %s\n", r.FinalValue.StringFixed(2))
	fmt.Fprintf(w, "Total Return %%:        %.2f\n", r.Metrics.TotalReturnPct)

	fmt.Fprintln(w, "\n-- Risk Metrics --")
	fmt.Fprintf(w, "Max Drawdown %%:        %.2f\n", r.Metrics.MaxDrawdownPct)
	fmt.Fprintf(w, "Sharpe Ratio:          %.4f\n", r.Metrics.SharpeRatio)

	fmt.Fprintln(w, "\n-- Trades --")
	fmt.Fprintf(w, "Total Trades:          %d\n", r.Metrics.TradeCount)
	fmt.Fprintf(w, "Win Rate %%:            %.2f\n", r.Metrics.WinRatePct)

	fmt.Fprintln(w, "===========================")
}
