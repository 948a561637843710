package pricefeed

import (
	"coinlab/types"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCSVProvider_SortsAndDeduplicates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bitcoin.csv", "date,price\n2024-01-03,103\n2024-01-01,101\n2024-01-02,99\n2024-01-02,102\n")

	p := NewCSVProvider(dir)
	got, err := p.GetPriceHistory(context.Background(), "bitcoin", day("2024-01-01"), day("2024-01-31"))
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		date  string
		price string
	}{
		{"2024-01-01", "101"},
		{"2024-01-02", "102"},
		{"2024-01-03", "103"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i, w := range want {
		if !got[i].Date.Equal(day(w.date)) || !got[i].Price.Equal(decimal.RequireFromString(w.price)) {
			t.Errorf("[%d] = %s %s, want %s %s", i, got[i].Date.Format(dateLayout), got[i].Price, w.date, w.price)
		}
	}
}

func TestCSVProvider_FiltersRange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ethereum.csv", "date,price\n2024-01-01,1\n2024-01-02,2\n2024-01-03,3\n2024-01-04,4\n")

	p := NewCSVProvider(dir)
	got, err := p.GetPriceHistory(context.Background(), "ethereum", day("2024-01-02"), day("2024-01-03"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got[0].Price.Equal(decimal.NewFromInt(2)) || !got[1].Price.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("got %+v", got)
	}

	_, err = p.GetPriceHistory(context.Background(), "ethereum", day("2025-01-01"), day("2025-02-01"))
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for an empty range, got %v", err)
	}
}

func TestCSVProvider_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "baddate.csv", "date,price\n01/02/2024,1\n")
	writeFile(t, dir, "badprice.csv", "date,price\n2024-01-01,abc\n")
	writeFile(t, dir, "negative.csv", "date,price\n2024-01-01,-3\n")

	p := NewCSVProvider(dir)
	for _, coin := range []string{"baddate", "badprice", "negative", "../etc/passwd", ""} {
		t.Run(coin, func(t *testing.T) {
			if _, err := p.Load(coin); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
	if _, err := p.Load("missing"); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for a missing file, got %v", err)
	}
}

func TestWritePrices_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	prices := []types.PricePoint{
		{Date: day("2024-02-01"), Price: decimal.RequireFromString("0.0812")},
		{Date: day("2024-02-02"), Price: decimal.RequireFromString("0.0799")},
	}
	if err := WritePrices(filepath.Join(dir, "dogecoin.csv"), prices); err != nil {
		t.Fatal(err)
	}
	got, err := NewCSVProvider(dir).Load("dogecoin")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got[0].Price.Equal(prices[0].Price) || !got[1].Date.Equal(prices[1].Date) {
		t.Fatalf("got %+v", got)
	}
}

type countingProvider struct {
	calls atomic.Int64
	delay time.Duration
	err   error
}

func (c *countingProvider) GetPriceHistory(_ context.Context, coin string, start, _ time.Time) ([]types.PricePoint, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	if c.err != nil {
		return nil, c.err
	}
	return []types.PricePoint{{Date: start, Price: decimal.NewFromInt(1)}}, nil
}

func TestCache_MemoizesPerRange(t *testing.T) {
	upstream := &countingProvider{}
	c := NewCache(upstream)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.GetPriceHistory(ctx, "bitcoin", day("2024-01-01"), day("2024-02-01")); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.GetPriceHistory(ctx, "bitcoin", day("2024-01-02"), day("2024-02-01")); err != nil {
		t.Fatal(err)
	}
	if n := upstream.calls.Load(); n != 2 {
		t.Fatalf("upstream calls = %d, want 2", n)
	}

	c.Invalidate()
	if _, err := c.GetPriceHistory(ctx, "bitcoin", day("2024-01-01"), day("2024-02-01")); err != nil {
		t.Fatal(err)
	}
	if n := upstream.calls.Load(); n != 3 {
		t.Fatalf("upstream calls after invalidate = %d, want 3", n)
	}
}

func TestCache_CollapsesConcurrentMisses(t *testing.T) {
	upstream := &countingProvider{delay: 50 * time.Millisecond}
	c := NewCache(upstream)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetPriceHistory(context.Background(), "solana", day("2024-01-01"), day("2024-01-31")); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if n := upstream.calls.Load(); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}
}

func TestCache_DoesNotCacheErrors(t *testing.T) {
	upstream := &countingProvider{err: errors.New("rate limited")}
	c := NewCache(upstream)
	for i := 0; i < 2; i++ {
		if _, err := c.GetPriceHistory(context.Background(), "bitcoin", day("2024-01-01"), day("2024-01-31")); err == nil {
			t.Fatal("expected error")
		}
	}
	if n := upstream.calls.Load(); n != 2 {
		t.Fatalf("upstream calls = %d, want 2", n)
	}
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	upstream := &countingProvider{}
	c := NewCache(upstream, WithTTL(time.Minute))
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	fetch := func() {
		t.Helper()
		if _, err := c.GetPriceHistory(ctx, "bitcoin", day("2024-01-01"), day("2024-02-01")); err != nil {
			t.Fatal(err)
		}
	}

	fetch()
	now = now.Add(59 * time.Second)
	fetch()
	if n := upstream.calls.Load(); n != 1 {
		t.Fatalf("upstream calls before expiry = %d, want 1", n)
	}
	now = now.Add(time.Second)
	fetch()
	if n := upstream.calls.Load(); n != 2 {
		t.Fatalf("upstream calls after expiry = %d, want 2", n)
	}
}

func TestCache_EvictsOldestWhenFull(t *testing.T) {
	upstream := &countingProvider{}
	c := NewCache(upstream, WithMaxEntries(2), WithTTL(0))
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	ctx := context.Background()

	for _, start := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		if _, err := c.GetPriceHistory(ctx, "bitcoin", day(start), day("2024-02-01")); err != nil {
			t.Fatal(err)
		}
	}
	if n := c.Len(); n != 2 {
		t.Fatalf("cached ranges = %d, want 2", n)
	}

	// Newest range is still cached, the oldest was evicted.
	if _, err := c.GetPriceHistory(ctx, "bitcoin", day("2024-01-03"), day("2024-02-01")); err != nil {
		t.Fatal(err)
	}
	if n := upstream.calls.Load(); n != 3 {
		t.Fatalf("upstream calls = %d, want 3", n)
	}
	if _, err := c.GetPriceHistory(ctx, "bitcoin", day("2024-01-01"), day("2024-02-01")); err != nil {
		t.Fatal(err)
	}
	if n := upstream.calls.Load(); n != 4 {
		t.Fatalf("upstream calls = %d, want 4", n)
	}
}

type gatedProvider struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int64
	ctxErr  error
}

func (g *gatedProvider) GetPriceHistory(ctx context.Context, _ string, start, _ time.Time) ([]types.PricePoint, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
	}
	<-g.release
	g.ctxErr = ctx.Err()
	if g.ctxErr != nil {
		return nil, g.ctxErr
	}
	return []types.PricePoint{{Date: start, Price: decimal.NewFromInt(1)}}, nil
}

func TestCache_CanceledCallerDoesNotFailOthers(t *testing.T) {
	upstream := &gatedProvider{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCache(upstream)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetPriceHistory(ctx, "bitcoin", day("2024-01-01"), day("2024-01-31"))
		firstErr <- err
	}()
	<-upstream.started

	type result struct {
		prices []types.PricePoint
		err    error
	}
	second := make(chan result, 1)
	go func() {
		p, err := c.GetPriceHistory(context.Background(), "bitcoin", day("2024-01-01"), day("2024-01-31"))
		second <- result{p, err}
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller err = %v, want context.Canceled", err)
	}

	time.Sleep(20 * time.Millisecond)
	close(upstream.release)

	res := <-second
	if res.err != nil {
		t.Fatalf("second caller err = %v", res.err)
	}
	if len(res.prices) != 1 {
		t.Fatalf("got %d points, want 1", len(res.prices))
	}
	if upstream.ctxErr != nil {
		t.Fatalf("upstream saw canceled context: %v", upstream.ctxErr)
	}
	if n := upstream.calls.Load(); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}
}
