// Package pricefeed provides file-backed and cached price providers.
package pricefeed

import (
	"coinlab/internal/metrics"
	"coinlab/types"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

var ErrNoData = errors.New("no price data")

const dateLayout = "2006-01-02"

type priceRow struct {
	Date  string `csv:"date"`
	Price string `csv:"price"`
}

// CSVProvider reads daily prices from <dir>/<coin>.csv with a date,price header.
type CSVProvider struct {
	dir string
}

func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

func (p *CSVProvider) GetPriceHistory(_ context.Context, coin string, start, end time.Time) ([]types.PricePoint, error) {
	all, err := p.Load(coin)
	if err != nil {
		metrics.PriceFetches.WithLabelValues("csv", "error").Inc()
		return nil, err
	}
	out := make([]types.PricePoint, 0, len(all))
	for _, pt := range all {
		if pt.Date.Before(start) || pt.Date.After(end) {
			continue
		}
		out = append(out, pt)
	}
	if len(out) == 0 {
		metrics.PriceFetches.WithLabelValues("csv", "empty").Inc()
		return nil, fmt.Errorf("%s between %s and %s: %w", coin, start.Format(dateLayout), end.Format(dateLayout), ErrNoData)
	}
	metrics.PriceFetches.WithLabelValues("csv", "ok").Inc()
	return out, nil
}

// Load reads the whole file for coin, sorted by date with duplicate days collapsed
// (the last row for a day wins).
func (p *CSVProvider) Load(coin string) ([]types.PricePoint, error) {
	name := strings.ToLower(strings.TrimSpace(coin))
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid coin %q", coin)
	}
	f, err := os.Open(filepath.Join(p.dir, name+".csv"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", coin, ErrNoData)
		}
		return nil, err
	}
	defer f.Close()

	var rows []*priceRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Name(), err)
	}
	return parseRows(rows)
}

func parseRows(rows []*priceRow) ([]types.PricePoint, error) {
	byDay := make(map[time.Time]decimal.Decimal, len(rows))
	for i, r := range rows {
		day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(r.Date), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("row %d: date %q: %w", i+1, r.Date, err)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
		if err != nil {
			return nil, fmt.Errorf("row %d: price %q: %w", i+1, r.Price, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("row %d: price must be positive, got %s", i+1, price)
		}
		byDay[day] = price
	}

	out := make([]types.PricePoint, 0, len(byDay))
	for day, price := range byDay {
		out = append(out, types.PricePoint{Date: day, Price: price})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// WritePrices writes a series in the format Load reads.
func WritePrices(path string, prices []types.PricePoint) error {
	rows := make([]*priceRow, len(prices))
	for i, p := range prices {
		rows[i] = &priceRow{Date: p.Date.Format(dateLayout), Price: p.Price.String()}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
