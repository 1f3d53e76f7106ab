package backtest

import (
	"context"
	"math/rand"
	"sort"

	"github.com/newthinker/sepa/internal/core"
	"go.uber.org/zap"
)

// DefaultTargetWinRate is the per-sector win rate the search tries to
// reach, in percent.
const DefaultTargetWinRate = 75.0

// Sector searches run on a shortened window and a ticker subset so a
// full multi-sector pass stays tractable.
const (
	sectorOptYears   = 3
	maxSectorTickers = 3
)

// SectorResult records the outcome of one sector's weight search
type SectorResult struct {
	Sector    string
	Tickers   []string
	Baseline  OverallMetrics
	Best      OptimizationResult
	Optimized OverallMetrics
	TargetMet bool
	// Win-rate points gained over the baseline
	ImprovementPct float64
}

// OptimizeBySector runs a baseline backtest per sector and then
// searches each sector's weight space independently. Sectors whose
// search finds no valid combination keep the baseline weights.
func (o *Optimizer) OptimizeBySector(ctx context.Context, p Params, ranges WeightRanges, sectors map[string][]string, samples int, targetWinRate float64, rng *rand.Rand) (map[string]SectorResult, error) {
	if targetWinRate <= 0 {
		targetWinRate = DefaultTargetWinRate
	}

	// Shortened optimization window, clamped to the requested range
	opt := p
	if start := p.End.AddDate(-sectorOptYears, 0, 0); start.After(p.Start) {
		opt.Start = start
	}

	names := make([]string, 0, len(sectors))
	for name := range sectors {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]SectorResult, len(sectors))
	for _, name := range names {
		tickers := sectors[name]
		if len(tickers) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		baseline, err := o.sectorMetrics(ctx, p, tickers, p.Weights)
		if err != nil {
			return results, err
		}

		o.logger.Info("optimizing sector",
			zap.String("sector", name),
			zap.Float64("baseline_win_rate", baseline.WinRatePct),
			zap.Float64("target_win_rate", targetWinRate),
		)

		scoped := opt
		scoped.Tickers = tickers
		if len(scoped.Tickers) > maxSectorTickers {
			scoped.Tickers = scoped.Tickers[:maxSectorTickers]
		}

		best, err := o.RandomSearch(ctx, scoped, ranges, ObjectiveWinRate, samples, rng)
		if err != nil {
			return results, err
		}

		optimized := baseline
		if best.Valid {
			optimized, err = o.sectorMetrics(ctx, p, tickers, best.BestWeights)
			if err != nil {
				return results, err
			}
		}

		results[name] = SectorResult{
			Sector:         name,
			Tickers:        tickers,
			Baseline:       baseline,
			Best:           best,
			Optimized:      optimized,
			TargetMet:      optimized.WinRatePct >= targetWinRate,
			ImprovementPct: optimized.WinRatePct - baseline.WinRatePct,
		}
	}

	return results, nil
}

// sectorMetrics backtests one sector's tickers over the full window
// with the given weights
func (o *Optimizer) sectorMetrics(ctx context.Context, p Params, tickers []string, weights core.Weights) (OverallMetrics, error) {
	run := p
	run.Tickers = tickers
	run.Weights = weights

	result, err := o.engine.Run(ctx, run)
	if err != nil {
		return OverallMetrics{}, err
	}
	return Overall(result.Trades), nil
}
