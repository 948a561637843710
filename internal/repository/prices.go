package repository

import (
	"coinlab/internal/metrics"
	"coinlab/internal/repository/queries"
	"coinlab/types"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetPriceHistory returns the daily prices of coin in [start, end], oldest first.
func (db *Database) GetPriceHistory(ctx context.Context, coin string, start, end time.Time) ([]types.PricePoint, error) {
	rows, err := db.prices.GetPriceHistory(ctx, queries.GetPriceHistoryParams{
		Coin:     coin,
		StartDay: start,
		EndDay:   end,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			metrics.PriceFetches.WithLabelValues("postgres", "empty").Inc()
			return nil, fmt.Errorf("coin %s %w", coin, ErrNoPrices)
		}
		metrics.PriceFetches.WithLabelValues("postgres", "error").Inc()
		return nil, err
	}
	if len(rows) == 0 {
		metrics.PriceFetches.WithLabelValues("postgres", "empty").Inc()
		return nil, fmt.Errorf("coin %s %w", coin, ErrNoPrices)
	}
	metrics.PriceFetches.WithLabelValues("postgres", "ok").Inc()
	return convertPrices(rows), nil
}

// SavePrices upserts a price series for coin.
func (db *Database) SavePrices(ctx context.Context, coin string, prices []types.PricePoint) error {
	for _, p := range prices {
		err := db.prices.UpsertPrice(ctx, queries.UpsertPriceParams{
			Coin:  coin,
			Day:   p.Date,
			Price: p.Price,
		})
		if err != nil {
			return fmt.Errorf("upsert %s %s: %w", coin, p.Date.Format(time.DateOnly), err)
		}
	}
	return nil
}

func convertPrices(rows []queries.Price) []types.PricePoint {
	out := make([]types.PricePoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.PricePoint{
			Date:  r.Day,
			Price: r.Price,
		})
	}
	return out
}
