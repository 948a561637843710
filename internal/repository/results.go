package repository

import (
	"coinlab/internal/engine"
	"coinlab/internal/optimizer"
	"coinlab/internal/repository/queries"
	"coinlab/types"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SaveBacktestResult stores a backtest with its full JSON payload.
func (db *Database) SaveBacktestResult(ctx context.Context, r *engine.BacktestResult) error {
	params, err := marshalParams(r.Params)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal backtest payload: %w", err)
	}
	return db.results.InsertBacktestResult(ctx, queries.InsertBacktestResultParams{
		ID:             uuid.New(),
		Strategy:       r.Strategy,
		Coin:           r.Coin,
		InitialCapital: r.InitialCapital,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		FinalValue:     r.FinalValue,
		Params:         params,
		Payload:        payload,
	})
}

func (db *Database) SaveOptimizationResult(ctx context.Context, r optimizer.Ranking) error {
	params, err := marshalParams(r.Params)
	if err != nil {
		return err
	}
	return db.results.InsertOptimizationResult(ctx, queries.InsertOptimizationResultParams{
		ID:             uuid.New(),
		Coin:           r.Coin,
		Strategy:       r.Strategy,
		Params:         params,
		FinalValue:     r.FinalValue,
		TotalReturnPct: r.TotalReturnPct,
		MaxDrawdownPct: r.MaxDrawdownPct,
		SharpeRatio:    r.SharpeRatio,
		WinRatePct:     r.WinRatePct,
		TradeCount:     int32(r.TradeCount),
		Score:          r.Score,
	})
}

// ListOptimizationResults returns stored rankings, best first.
func (db *Database) ListOptimizationResults(ctx context.Context, f optimizer.Filter) ([]optimizer.Ranking, error) {
	rows, err := db.results.ListOptimizationResults(ctx, queries.ListOptimizationResultsParams{
		Coin:     f.Coin,
		Strategy: f.Strategy,
		Limit:    int32(max(f.Limit, 0)),
	})
	if err != nil {
		return nil, err
	}
	out := make([]optimizer.Ranking, 0, len(rows))
	for _, row := range rows {
		var params types.Params
		if len(row.Params) > 0 {
			if err := json.Unmarshal(row.Params, &params); err != nil {
				return nil, fmt.Errorf("decode params of %s: %w", row.ID, err)
			}
		}
		out = append(out, optimizer.Ranking{
			Coin:           row.Coin,
			Strategy:       row.Strategy,
			Params:         params,
			FinalValue:     row.FinalValue,
			TotalReturnPct: row.TotalReturnPct,
			MaxDrawdownPct: row.MaxDrawdownPct,
			SharpeRatio:    row.SharpeRatio,
			WinRatePct:     row.WinRatePct,
			TradeCount:     int(row.TradeCount),
			Score:          row.Score,
		})
	}
	return out, nil
}

func marshalParams(p types.Params) ([]byte, error) {
	if p == nil {
		p = types.Params{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return b, nil
}

var (
	_ engine.PriceProvider = (*Database)(nil)
	_ engine.ResultStore   = (*Database)(nil)
	_ optimizer.Store      = (*Database)(nil)
)
