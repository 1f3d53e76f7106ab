package backtest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/sepa/internal/core"
	"go.uber.org/zap"
)

// Trailing test windows shorter than this are dropped rather than
// evaluated on a sliver of data
const minTestWindowDays = 30

// WalkPeriod is one train/test split of an expanding-window schedule.
// Every period trains from the same start date; the train window grows
// as the test window slides forward.
type WalkPeriod struct {
	Index      int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// GeneratePeriods builds an expanding-window schedule between start and
// end. The first split trains on trainYears of data; each test window
// spans testMonths and becomes training data for the next split.
func GeneratePeriods(start, end time.Time, trainYears float64, testMonths int) []WalkPeriod {
	var periods []WalkPeriod

	trainDays := int(trainYears * daysPerYear)
	testDays := int(float64(testMonths) / 12 * daysPerYear)
	if trainDays <= 0 || testDays <= 0 {
		return nil
	}

	trainEnd := start.AddDate(0, 0, trainDays)
	for trainEnd.Before(end) {
		testEnd := trainEnd.AddDate(0, 0, testDays)
		if testEnd.After(end) {
			testEnd = end
		}
		if int(testEnd.Sub(trainEnd).Hours()/24) < minTestWindowDays {
			break
		}
		periods = append(periods, WalkPeriod{
			Index:      len(periods) + 1,
			TrainStart: start,
			TrainEnd:   trainEnd,
			TestStart:  trainEnd,
			TestEnd:    testEnd,
		})
		trainEnd = testEnd
	}

	return periods
}

// PeriodResult records the optimized weights and out-of-sample outcome
// for one split
type PeriodResult struct {
	Period       WalkPeriod
	TrainedOn    OptimizationResult
	TestResult   Result
	TestMetrics  OverallMetrics
	RiskAdjusted RiskMetrics
}

// WalkForwardResult aggregates every split plus the pooled
// out-of-sample trades
type WalkForwardResult struct {
	RunID            string
	Periods          []PeriodResult
	AggregateTrades  []Trade
	AggregateMetrics OverallMetrics
	AggregateRisk    RiskMetrics
}

// WalkForward chains weight optimization and out-of-sample evaluation
// over an expanding-window schedule. Weights are fit only on each
// train window and scored only on the following unseen test window.
type WalkForward struct {
	optimizer    *Optimizer
	engine       *Engine
	riskFreeRate float64
	logger       *zap.Logger
}

// NewWalkForward creates a walk-forward runner
func NewWalkForward(optimizer *Optimizer, engine *Engine, riskFreeRate float64, logger *zap.Logger) *WalkForward {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalkForward{
		optimizer:    optimizer,
		engine:       engine,
		riskFreeRate: riskFreeRate,
		logger:       logger,
	}
}

// Run executes the full schedule. An empty schedule is an explicit
// failure, not a silent empty result.
func (w *WalkForward) Run(ctx context.Context, p Params, ranges WeightRanges, objective Objective, trainYears float64, testMonths int) (WalkForwardResult, error) {
	periods := GeneratePeriods(p.Start, p.End, trainYears, testMonths)
	if len(periods) == 0 {
		return WalkForwardResult{}, core.WrapError(core.ErrNoPeriods,
			fmt.Errorf("range %s to %s cannot fit %.1f train years plus a %d month test window",
				p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"), trainYears, testMonths))
	}

	out := WalkForwardResult{RunID: uuid.NewString()}
	for _, period := range periods {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		w.logger.Info("walk-forward period",
			zap.Int("index", period.Index),
			zap.Time("train_start", period.TrainStart),
			zap.Time("train_end", period.TrainEnd),
			zap.Time("test_end", period.TestEnd),
		)

		train := p
		train.Start = period.TrainStart
		train.End = period.TrainEnd
		optimized, err := w.optimizer.GridSearch(ctx, train, ranges, objective)
		if err != nil {
			return out, err
		}

		test := p
		test.Start = period.TestStart
		test.End = period.TestEnd
		test.Weights = optimized.BestWeights
		testResult, err := w.engine.Run(ctx, test)
		if err != nil {
			return out, err
		}

		out.Periods = append(out.Periods, PeriodResult{
			Period:       period,
			TrainedOn:    optimized,
			TestResult:   *testResult,
			TestMetrics:  Overall(testResult.Trades),
			RiskAdjusted: RiskAdjusted(testResult.Trades, w.riskFreeRate),
		})
		out.AggregateTrades = append(out.AggregateTrades, testResult.Trades...)
	}

	out.AggregateMetrics = Overall(out.AggregateTrades)
	out.AggregateRisk = RiskAdjusted(out.AggregateTrades, w.riskFreeRate)
	return out, nil
}

// WriteReport renders the walk-forward outcome as a markdown table,
// one row per split plus a pooled aggregate row.
func (r WalkForwardResult) WriteReport(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# Walk-Forward Report\n\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "| Period | Train | Test | Trades | Win Rate | Avg Return | Sharpe | Max DD |\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "|--------|-------|------|--------|----------|------------|--------|--------|\n"); err != nil {
		return err
	}

	const day = "2006-01-02"
	for _, p := range r.Periods {
		_, err := fmt.Fprintf(w, "| %d | %s to %s | %s to %s | %d | %.1f%% | %.2f%% | %.2f | %.2f%% |\n",
			p.Period.Index,
			p.Period.TrainStart.Format(day), p.Period.TrainEnd.Format(day),
			p.Period.TestStart.Format(day), p.Period.TestEnd.Format(day),
			p.TestMetrics.TotalTrades,
			p.TestMetrics.WinRatePct,
			p.TestMetrics.AvgReturnPct,
			p.RiskAdjusted.SharpeRatio,
			p.RiskAdjusted.MaxDrawdownPct,
		)
		if err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "| **All** | | | %d | %.1f%% | %.2f%% | %.2f | %.2f%% |\n",
		r.AggregateMetrics.TotalTrades,
		r.AggregateMetrics.WinRatePct,
		r.AggregateMetrics.AvgReturnPct,
		r.AggregateRisk.SharpeRatio,
		r.AggregateRisk.MaxDrawdownPct,
	)
	return err
}
