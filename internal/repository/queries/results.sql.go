package queries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const insertBacktestResult = `-- name: InsertBacktestResult :exec
INSERT INTO backtest_results (id, strategy, coin, initial_capital, start_date, end_date, final_value, params, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type InsertBacktestResultParams struct {
	ID             uuid.UUID
	Strategy       string
	Coin           string
	InitialCapital decimal.Decimal
	StartDate      time.Time
	EndDate        time.Time
	FinalValue     decimal.Decimal
	Params         []byte
	Payload        []byte
}

func (q *Queries) InsertBacktestResult(ctx context.Context, arg InsertBacktestResultParams) error {
	_, err := q.db.Exec(ctx, insertBacktestResult,
		arg.ID,
		arg.Strategy,
		arg.Coin,
		arg.InitialCapital,
		arg.StartDate,
		arg.EndDate,
		arg.FinalValue,
		arg.Params,
		arg.Payload,
	)
	return err
}

const insertOptimizationResult = `-- name: InsertOptimizationResult :exec
INSERT INTO optimization_results (id, coin, strategy, params, final_value, total_return_pct, max_drawdown_pct,
                                  sharpe_ratio, win_rate_pct, trade_count, score)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

type InsertOptimizationResultParams struct {
	ID             uuid.UUID
	Coin           string
	Strategy       string
	Params         []byte
	FinalValue     decimal.Decimal
	TotalReturnPct float64
	MaxDrawdownPct float64
	SharpeRatio    float64
	WinRatePct     float64
	TradeCount     int32
	Score          float64
}

func (q *Queries) InsertOptimizationResult(ctx context.Context, arg InsertOptimizationResultParams) error {
	_, err := q.db.Exec(ctx, insertOptimizationResult,
		arg.ID,
		arg.Coin,
		arg.Strategy,
		arg.Params,
		arg.FinalValue,
		arg.TotalReturnPct,
		arg.MaxDrawdownPct,
		arg.SharpeRatio,
		arg.WinRatePct,
		arg.TradeCount,
		arg.Score,
	)
	return err
}

const listOptimizationResults = `-- name: ListOptimizationResults :many
SELECT id, coin, strategy, params, final_value, total_return_pct, max_drawdown_pct, sharpe_ratio,
       win_rate_pct, trade_count, score, created_at
FROM optimization_results
WHERE ($1::text = '' OR coin = $1)
  AND ($2::text = '' OR strategy = $2)
ORDER BY score DESC, total_return_pct DESC, sharpe_ratio DESC, final_value DESC
LIMIT NULLIF($3::int, 0)
`

type ListOptimizationResultsParams struct {
	Coin     string
	Strategy string
	Limit    int32
}

func (q *Queries) ListOptimizationResults(ctx context.Context, arg ListOptimizationResultsParams) ([]OptimizationResult, error) {
	rows, err := q.db.Query(ctx, listOptimizationResults, arg.Coin, arg.Strategy, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OptimizationResult
	for rows.Next() {
		var i OptimizationResult
		if err := rows.Scan(
			&i.ID,
			&i.Coin,
			&i.Strategy,
			&i.Params,
			&i.FinalValue,
			&i.TotalReturnPct,
			&i.MaxDrawdownPct,
			&i.SharpeRatio,
			&i.WinRatePct,
			&i.TradeCount,
			&i.Score,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
