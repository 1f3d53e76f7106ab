package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/sepa/internal/core"
)

// countingProvider counts inner fetches
type countingProvider struct {
	calls int
	bars  []core.OHLCV
	err   error
}

func (p *countingProvider) History(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error) {
	p.calls++
	return p.bars, p.err
}

func testBars(n int) []core.OHLCV {
	bars := make([]core.OHLCV, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = core.OHLCV{
			Symbol: "TEST",
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100 + float64(i),
			Volume: 1000,
			Time:   base.AddDate(0, 0, i),
		}
	}
	return bars
}

func TestCache_MissThenHit(t *testing.T) {
	inner := &countingProvider{bars: testBars(3)}
	cache, err := NewCache(inner, t.TempDir(), time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)

	first, err := cache.History(context.Background(), "TEST", start, end)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.History(context.Background(), "TEST", start, end)
	if err != nil {
		t.Fatal(err)
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1 (second read should hit cache)", inner.calls)
	}
	if len(first) != len(second) {
		t.Fatalf("cached result length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Close != second[i].Close || !first[i].Time.Equal(second[i].Time) {
			t.Errorf("bar %d differs after cache round trip", i)
		}
	}
}

// rendezvousProvider blocks every fetch until enough callers arrive,
// so the test deadlocks unless fetches for different symbols can run
// concurrently.
type rendezvousProvider struct {
	arrivals chan struct{}
	release  chan struct{}
	bars     []core.OHLCV
}

func (p *rendezvousProvider) History(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error) {
	p.arrivals <- struct{}{}
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.bars, nil
}

func TestCache_DistinctSymbolsFetchConcurrently(t *testing.T) {
	inner := &rendezvousProvider{
		arrivals: make(chan struct{}, 2),
		release:  make(chan struct{}),
		bars:     testBars(1),
	}
	cache, err := NewCache(inner, t.TempDir(), time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	done := make(chan error, 2)
	for _, symbol := range []string{"AAPL", "MSFT"} {
		go func(s string) {
			_, err := cache.History(ctx, s, start, start.AddDate(0, 0, 1))
			done <- err
		}(symbol)
	}

	// Both fetches must be in flight at once; a cache-wide lock would
	// let only one arrive and time out here
	for i := 0; i < 2; i++ {
		select {
		case <-inner.arrivals:
		case <-ctx.Done():
			t.Fatal("fetches for distinct symbols serialized")
		}
	}
	close(inner.release)

	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Errorf("History: %v", err)
		}
	}
}

func TestCache_SameKeySharesOneFetch(t *testing.T) {
	inner := &countingProvider{bars: testBars(2)}
	cache, err := NewCache(inner, t.TempDir(), time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := cache.History(context.Background(), "TEST", start, end)
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1 (same-key callers must share the fetch)", inner.calls)
	}
}

func TestCache_Expiry(t *testing.T) {
	inner := &countingProvider{bars: testBars(2)}
	dir := t.TempDir()
	cache, err := NewCache(inner, dir, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	if _, err := cache.History(context.Background(), "TEST", start, end); err != nil {
		t.Fatal(err)
	}

	// Age the cache file beyond the TTL
	entries, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(entries) != 1 {
		t.Fatalf("expected one cache file, got %d", len(entries))
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(entries[0], old, old); err != nil {
		t.Fatal(err)
	}

	if _, err := cache.History(context.Background(), "TEST", start, end); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2 (expired entry must refetch)", inner.calls)
	}
}

func TestCache_CorruptedEntry(t *testing.T) {
	inner := &countingProvider{bars: testBars(2)}
	dir := t.TempDir()
	cache, err := NewCache(inner, dir, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	if _, err := cache.History(context.Background(), "TEST", start, end); err != nil {
		t.Fatal(err)
	}

	entries, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if err := os.WriteFile(entries[0], []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := cache.History(context.Background(), "TEST", start, end); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2 (corrupted entry must refetch)", inner.calls)
	}
}

func TestCache_KeySanitized(t *testing.T) {
	inner := &countingProvider{bars: testBars(1)}
	dir := t.TempDir()
	cache, err := NewCache(inner, dir, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := cache.History(context.Background(), "^GSPC", start, start.AddDate(0, 0, 1)); err != nil {
		t.Fatal(err)
	}

	entries, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(entries) != 1 {
		t.Fatalf("expected one cache file, got %d", len(entries))
	}
	if filepath.Base(entries[0])[0] == '^' {
		t.Error("cache key should not contain '^'")
	}
}
