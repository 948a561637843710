package engine

import (
	"coinlab/types"
	"context"
	"fmt"
	"time"
)

// DataFeed is a resolved price request for one coin.
type DataFeed struct {
	Coin  string
	Start time.Time
	End   time.Time
}

func newDataFeed(coin string, start, end *time.Time, days int, cfg *Config) DataFeed {
	feed := DataFeed{Coin: coin}
	if end != nil {
		feed.End = *end
	} else {
		feed.End = truncateDay(cfg.now())
	}
	if start != nil {
		feed.Start = *start
	} else {
		if days <= 0 {
			days = cfg.lookbackDays
		}
		feed.Start = feed.End.AddDate(0, 0, -days)
	}
	return feed
}

func (df DataFeed) GetData(ctx context.Context, provider PriceProvider) ([]types.PricePoint, error) {
	if provider == nil {
		return nil, fmt.Errorf("no price provider configured for %s", df.Coin)
	}
	prices, err := provider.GetPriceHistory(ctx, df.Coin, df.Start, df.End)
	if err != nil {
		return nil, fmt.Errorf("price history %s %s..%s: %w", df.Coin, df.Start.Format(dateLayout), df.End.Format(dateLayout), err)
	}
	return prices, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar day in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}
