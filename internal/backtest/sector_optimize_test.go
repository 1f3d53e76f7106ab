package backtest

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/newthinker/sepa/internal/core"
)

func sectorFixture() (*Optimizer, Params, map[string][]string) {
	start := day(2023, time.March, 1)
	data := &fakeData{priceAt: stepPrice(start, 110)}
	engine := NewEngine(data, weightScorer{})
	opt := NewOptimizer(engine, 0.02, nil, nil)

	p := Params{
		Tickers: []string{"AAPL", "MSFT", "XOM"},
		Start:   start,
		End:     start.AddDate(0, 0, 1),
		Weights: core.DefaultWeights(),
	}
	sectors := map[string][]string{
		"technology": {"AAPL", "MSFT"},
		"energy":     {"XOM"},
	}
	return opt, p, sectors
}

func TestOptimizer_OptimizeBySector(t *testing.T) {
	opt, p, sectors := sectorFixture()

	ranges := WeightRanges{
		TrendMomentum: []float64{0.30},
		Volume:        []float64{0.15},
		Fundamental:   []float64{0.22},
		MarketContext: []float64{0.18},
		Advanced:      []float64{0.15},
	}
	rng := rand.New(rand.NewSource(1))

	results, err := opt.OptimizeBySector(context.Background(), p, ranges, sectors, 3, 0, rng)
	if err != nil {
		t.Fatalf("OptimizeBySector failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d sector results, want 2", len(results))
	}

	tech, ok := results["technology"]
	if !ok {
		t.Fatal("missing technology result")
	}
	if tech.Baseline.TotalTrades != 2 {
		t.Errorf("technology baseline trades = %d, want 2", tech.Baseline.TotalTrades)
	}
	if !tech.Best.Valid {
		t.Error("expected a valid search result for technology")
	}
	// Every simulated trade wins on stepped-up prices, so the sector
	// clears the default 75% target with no room to improve
	if tech.Optimized.WinRatePct != 100 {
		t.Errorf("technology optimized win rate = %v, want 100", tech.Optimized.WinRatePct)
	}
	if !tech.TargetMet {
		t.Error("expected technology to meet the default target")
	}
	if tech.ImprovementPct != 0 {
		t.Errorf("technology improvement = %v, want 0", tech.ImprovementPct)
	}

	energy := results["energy"]
	if energy.Baseline.TotalTrades != 1 {
		t.Errorf("energy baseline trades = %d, want 1", energy.Baseline.TotalTrades)
	}
}

func TestOptimizer_OptimizeBySector_NoValidCombinations(t *testing.T) {
	opt, p, sectors := sectorFixture()

	// Every candidate sums to 0.5 and is filtered out; each sector must
	// keep its baseline
	ranges := WeightRanges{
		TrendMomentum: []float64{0.1},
		Volume:        []float64{0.1},
		Fundamental:   []float64{0.1},
		MarketContext: []float64{0.1},
		Advanced:      []float64{0.1},
	}
	rng := rand.New(rand.NewSource(1))

	results, err := opt.OptimizeBySector(context.Background(), p, ranges, sectors, 3, 80, rng)
	if err != nil {
		t.Fatalf("OptimizeBySector failed: %v", err)
	}

	tech := results["technology"]
	if tech.Best.Valid {
		t.Error("expected an invalid search result")
	}
	if tech.Optimized != tech.Baseline {
		t.Error("expected baseline metrics to carry over when the search finds nothing")
	}
	if tech.ImprovementPct != 0 {
		t.Errorf("improvement = %v, want 0", tech.ImprovementPct)
	}
}

func TestOptimizer_OptimizeBySector_SkipsEmptySector(t *testing.T) {
	opt, p, _ := sectorFixture()

	sectors := map[string][]string{
		"technology": {"AAPL"},
		"empty":      {},
	}
	ranges := WeightRanges{
		TrendMomentum: []float64{0.30},
		Volume:        []float64{0.15},
		Fundamental:   []float64{0.22},
		MarketContext: []float64{0.18},
		Advanced:      []float64{0.15},
	}

	results, err := opt.OptimizeBySector(context.Background(), p, ranges, sectors, 2, 75, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("OptimizeBySector failed: %v", err)
	}
	if _, ok := results["empty"]; ok {
		t.Error("expected empty sector to be skipped")
	}
	if _, ok := results["technology"]; !ok {
		t.Error("expected technology result")
	}
}
