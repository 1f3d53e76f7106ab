package backtest

import (
	"context"
	"math"
	"math/rand"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/metrics"
	"go.uber.org/zap"
)

// Objective selects the quantity a weight search maximizes
type Objective string

const (
	// ObjectiveWinRate maximizes win rate on strong signals only
	// (|score| >= 3), the trades the strategy would actually act on
	ObjectiveWinRate Objective = "win_rate"
	// ObjectiveAvgReturn maximizes mean return over all trades
	ObjectiveAvgReturn Objective = "avg_return"
	// ObjectiveSharpe maximizes the annualized Sharpe ratio
	ObjectiveSharpe Objective = "sharpe_ratio"
)

// strongSignalScore is the |score| cutoff for the win_rate objective
const strongSignalScore = 3.0

// Candidate weight sums outside this band are rejected before
// renormalization
const (
	minWeightSum = 0.98
	maxWeightSum = 1.02
)

// WeightRanges lists the candidate values per category for a search
type WeightRanges struct {
	TrendMomentum []float64 `mapstructure:"trend_momentum" yaml:"trend_momentum"`
	Volume        []float64 `mapstructure:"volume" yaml:"volume"`
	Fundamental   []float64 `mapstructure:"fundamental" yaml:"fundamental"`
	MarketContext []float64 `mapstructure:"market_context" yaml:"market_context"`
	Advanced      []float64 `mapstructure:"advanced" yaml:"advanced"`
}

// DefaultWeightRanges centers the grid on the production weights
func DefaultWeightRanges() WeightRanges {
	return WeightRanges{
		TrendMomentum: []float64{0.25, 0.30, 0.35},
		Volume:        []float64{0.10, 0.15, 0.20},
		Fundamental:   []float64{0.18, 0.22, 0.26},
		MarketContext: []float64{0.15, 0.18, 0.21},
		Advanced:      []float64{0.10, 0.15, 0.20},
	}
}

// Combinations counts the full Cartesian product size
func (r WeightRanges) Combinations() int {
	return len(r.TrendMomentum) * len(r.Volume) * len(r.Fundamental) *
		len(r.MarketContext) * len(r.Advanced)
}

// OptimizationResult is the outcome of one weight search. When no
// candidate passed the sum filter, Valid is false and BestWeights
// holds the fallback default weights.
type OptimizationResult struct {
	BestWeights core.Weights
	BestScore   float64
	Tested      int
	Valid       bool
	Objective   Objective
}

// Optimizer searches the weight space for a backtest configuration.
// Each trial passes its candidate weights by value through Params, so
// trials cannot contaminate each other and no state needs restoring.
type Optimizer struct {
	engine       *Engine
	riskFreeRate float64
	logger       *zap.Logger
	metrics      *metrics.Registry
}

// NewOptimizer creates a weight optimizer
func NewOptimizer(engine *Engine, riskFreeRate float64, logger *zap.Logger, m *metrics.Registry) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{
		engine:       engine,
		riskFreeRate: riskFreeRate,
		logger:       logger,
		metrics:      m,
	}
}

// GridSearch evaluates the full Cartesian product of the ranges,
// rejecting combinations whose raw sum falls outside [0.98, 1.02] and
// renormalizing the rest to sum exactly 1.0. Honors ctx deadlines
// between candidates and returns the best found so far on
// cancellation.
func (o *Optimizer) GridSearch(ctx context.Context, p Params, ranges WeightRanges, objective Objective) (OptimizationResult, error) {
	result := OptimizationResult{
		BestWeights: core.DefaultWeights(),
		BestScore:   math.Inf(-1),
		Objective:   objective,
	}

	o.logger.Info("grid search started",
		zap.String("objective", string(objective)),
		zap.Int("combinations", ranges.Combinations()),
	)

	var err error
	for _, tm := range ranges.TrendMomentum {
		for _, v := range ranges.Volume {
			for _, f := range ranges.Fundamental {
				for _, mc := range ranges.MarketContext {
					for _, a := range ranges.Advanced {
						if ctxErr := ctx.Err(); ctxErr != nil {
							return o.finish(result), ctxErr
						}
						candidate := core.Weights{
							TrendMomentum: tm,
							Volume:        v,
							Fundamental:   f,
							MarketContext: mc,
							Advanced:      a,
						}
						if err = o.trial(ctx, p, candidate, objective, &result); err != nil {
							return o.finish(result), err
						}
					}
				}
			}
		}
	}

	return o.finish(result), nil
}

// RandomSearch samples n candidates uniformly from the ranges. The
// same sum filter and renormalization apply; duplicate draws are
// evaluated again rather than tracked.
func (o *Optimizer) RandomSearch(ctx context.Context, p Params, ranges WeightRanges, objective Objective, n int, rng *rand.Rand) (OptimizationResult, error) {
	result := OptimizationResult{
		BestWeights: core.DefaultWeights(),
		BestScore:   math.Inf(-1),
		Objective:   objective,
	}

	if ranges.Combinations() == 0 {
		return o.finish(result), nil
	}

	pick := func(vals []float64) float64 {
		return vals[rng.Intn(len(vals))]
	}

	for i := 0; i < n; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return o.finish(result), ctxErr
		}
		candidate := core.Weights{
			TrendMomentum: pick(ranges.TrendMomentum),
			Volume:        pick(ranges.Volume),
			Fundamental:   pick(ranges.Fundamental),
			MarketContext: pick(ranges.MarketContext),
			Advanced:      pick(ranges.Advanced),
		}
		if err := o.trial(ctx, p, candidate, objective, &result); err != nil {
			return o.finish(result), err
		}
	}

	return o.finish(result), nil
}

// trial filters, renormalizes and evaluates one candidate
func (o *Optimizer) trial(ctx context.Context, p Params, candidate core.Weights, objective Objective, result *OptimizationResult) error {
	sum := candidate.Sum()
	if sum < minWeightSum || sum > maxWeightSum {
		return nil
	}
	candidate = candidate.Normalized()

	result.Tested++
	if o.metrics != nil {
		o.metrics.IncCombinations()
	}

	trial := p
	trial.Weights = candidate

	run, err := o.engine.Run(ctx, trial)
	if err != nil {
		return err
	}

	score := o.objectiveScore(run.Trades, objective)
	if score > result.BestScore {
		result.BestScore = score
		result.BestWeights = candidate
		result.Valid = true
	}
	return nil
}

// finish resolves the no-valid-candidate fallback
func (o *Optimizer) finish(result OptimizationResult) OptimizationResult {
	if !result.Valid {
		result.BestWeights = core.DefaultWeights()
		result.BestScore = 0
		o.logger.Warn("no valid weight combinations found, falling back to defaults")
	}
	o.logger.Info("search finished",
		zap.Int("tested", result.Tested),
		zap.Bool("valid", result.Valid),
		zap.Float64("best_score", result.BestScore),
	)
	return result
}

// objectiveScore computes the objective over a trade population
func (o *Optimizer) objectiveScore(trades []Trade, objective Objective) float64 {
	switch objective {
	case ObjectiveWinRate:
		var strong, winners int
		for _, t := range trades {
			if math.Abs(t.Score) >= strongSignalScore {
				strong++
				if t.IsWin() {
					winners++
				}
			}
		}
		if strong == 0 {
			return 0
		}
		return float64(winners) / float64(strong) * 100
	case ObjectiveAvgReturn:
		return Overall(trades).AvgReturnPct
	case ObjectiveSharpe:
		return RiskAdjusted(trades, o.riskFreeRate).SharpeRatio
	default:
		return Overall(trades).AvgReturnPct
	}
}
