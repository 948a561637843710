package queries

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const getPriceHistory = `-- name: GetPriceHistory :many
SELECT coin, day, price
FROM prices
WHERE coin = $1 AND day >= $2 AND day <= $3
ORDER BY day ASC
`

type GetPriceHistoryParams struct {
	Coin     string
	StartDay time.Time
	EndDay   time.Time
}

func (q *Queries) GetPriceHistory(ctx context.Context, arg GetPriceHistoryParams) ([]Price, error) {
	rows, err := q.db.Query(ctx, getPriceHistory, arg.Coin, arg.StartDay, arg.EndDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Price
	for rows.Next() {
		var i Price
		if err := rows.Scan(&i.Coin, &i.Day, &i.Price); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertPrice = `-- name: UpsertPrice :exec
INSERT INTO prices (coin, day, price)
VALUES ($1, $2, $3)
ON CONFLICT (coin, day) DO UPDATE SET price = EXCLUDED.price
`

type UpsertPriceParams struct {
	Coin  string
	Day   time.Time
	Price decimal.Decimal
}

func (q *Queries) UpsertPrice(ctx context.Context, arg UpsertPriceParams) error {
	_, err := q.db.Exec(ctx, upsertPrice, arg.Coin, arg.Day, arg.Price)
	return err
}
