package backtest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/sepa/internal/core"
)

func TestGeneratePeriods(t *testing.T) {
	start := day(2018, time.January, 1)
	end := day(2023, time.January, 1)

	periods := GeneratePeriods(start, end, 2, 6)
	if len(periods) == 0 {
		t.Fatal("expected at least one period")
	}

	for i, p := range periods {
		if !p.TrainStart.Equal(start) {
			t.Errorf("period %d: train start = %v, want %v (expanding window)", i, p.TrainStart, start)
		}
		if !p.TestStart.Equal(p.TrainEnd) {
			t.Errorf("period %d: test start %v != train end %v", i, p.TestStart, p.TrainEnd)
		}
		if !p.TestEnd.After(p.TestStart) {
			t.Errorf("period %d: empty test window", i)
		}
		if p.TestEnd.After(end) {
			t.Errorf("period %d: test end %v past range end %v", i, p.TestEnd, end)
		}
		if days := int(p.TestEnd.Sub(p.TestStart).Hours() / 24); days < minTestWindowDays {
			t.Errorf("period %d: test window %d days, want >= %d", i, days, minTestWindowDays)
		}
		if p.Index != i+1 {
			t.Errorf("period %d: index = %d", i, p.Index)
		}
	}

	// Each test window becomes training data for the next split
	for i := 1; i < len(periods); i++ {
		if !periods[i].TrainEnd.Equal(periods[i-1].TestEnd) {
			t.Errorf("period %d train end %v != period %d test end %v",
				i, periods[i].TrainEnd, i-1, periods[i-1].TestEnd)
		}
	}
}

func TestGeneratePeriods_TooShort(t *testing.T) {
	start := day(2023, time.January, 1)

	if p := GeneratePeriods(start, start.AddDate(0, 6, 0), 1, 3); len(p) != 0 {
		t.Errorf("expected no periods for a 6 month range with 1 train year, got %d", len(p))
	}
	if p := GeneratePeriods(start, start.AddDate(1, 0, 20), 1, 3); len(p) != 0 {
		t.Errorf("expected no periods when the trailing test window is under 30 days, got %d", len(p))
	}
}

func TestGeneratePeriods_InvalidInputs(t *testing.T) {
	start := day(2018, time.January, 1)
	end := day(2023, time.January, 1)

	if p := GeneratePeriods(start, end, 0, 6); p != nil {
		t.Error("expected nil for zero train years")
	}
	if p := GeneratePeriods(start, end, 2, 0); p != nil {
		t.Error("expected nil for zero test months")
	}
}

func TestWalkForward_Run(t *testing.T) {
	data := &fakeData{priceAt: func(t time.Time) float64 {
		// Gentle uptrend keeps every test window profitable
		return 100 + float64(t.Unix())/1e7
	}}
	engine := NewEngine(data, &fakeScorer{score: 4})
	opt := NewOptimizer(engine, 0.02, nil, nil)
	wf := NewWalkForward(opt, engine, 0.02, nil)

	ranges := WeightRanges{
		TrendMomentum: []float64{0.30},
		Volume:        []float64{0.15},
		Fundamental:   []float64{0.22},
		MarketContext: []float64{0.18},
		Advanced:      []float64{0.15},
	}

	p := Params{
		Tickers: []string{"AAPL"},
		Start:   day(2019, time.January, 1),
		End:     day(2022, time.January, 1),
	}

	result, err := wf.Run(context.Background(), p, ranges, ObjectiveAvgReturn, 1, 6)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Periods) == 0 {
		t.Fatal("expected at least one period result")
	}
	if result.RunID == "" {
		t.Error("expected a run ID for artifact archiving")
	}
	for i, pr := range result.Periods {
		if !pr.TrainedOn.Valid {
			t.Errorf("period %d: optimization produced no valid weights", i)
		}
	}

	// Aggregate pools only out-of-sample trades
	var total int
	for _, pr := range result.Periods {
		total += len(pr.TestResult.Trades)
	}
	if len(result.AggregateTrades) != total {
		t.Errorf("aggregate trades = %d, want %d", len(result.AggregateTrades), total)
	}
	if result.AggregateMetrics.TotalTrades != total {
		t.Errorf("aggregate metrics trades = %d, want %d", result.AggregateMetrics.TotalTrades, total)
	}
}

func TestWalkForward_Run_NoPeriods(t *testing.T) {
	engine := NewEngine(&fakeData{priceAt: func(time.Time) float64 { return 100 }}, &fakeScorer{score: 1})
	opt := NewOptimizer(engine, 0.02, nil, nil)
	wf := NewWalkForward(opt, engine, 0.02, nil)

	p := Params{
		Tickers: []string{"AAPL"},
		Start:   day(2023, time.January, 1),
		End:     day(2023, time.March, 1),
	}

	_, err := wf.Run(context.Background(), p, DefaultWeightRanges(), ObjectiveAvgReturn, 2, 6)
	if !errors.Is(err, core.ErrNoPeriods) {
		t.Errorf("expected ErrNoPeriods, got %v", err)
	}
}

func TestWalkForwardResult_WriteReport(t *testing.T) {
	result := WalkForwardResult{
		Periods: []PeriodResult{
			{
				Period: WalkPeriod{
					Index:      1,
					TrainStart: day(2019, time.January, 1),
					TrainEnd:   day(2021, time.January, 1),
					TestStart:  day(2021, time.January, 1),
					TestEnd:    day(2021, time.July, 1),
				},
				TestMetrics:  OverallMetrics{TotalTrades: 12, WinRatePct: 58.3, AvgReturnPct: 1.4},
				RiskAdjusted: RiskMetrics{SharpeRatio: 0.9, MaxDrawdownPct: 7.25},
			},
		},
		AggregateMetrics: OverallMetrics{TotalTrades: 12, WinRatePct: 58.3, AvgReturnPct: 1.4},
		AggregateRisk:    RiskMetrics{SharpeRatio: 0.9, MaxDrawdownPct: 7.25},
	}

	var sb strings.Builder
	if err := result.WriteReport(&sb); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	report := sb.String()
	for _, want := range []string{
		"# Walk-Forward Report",
		"2019-01-01 to 2021-01-01",
		"2021-01-01 to 2021-07-01",
		"58.3%",
		"| Max DD |",
		"7.25%",
		"**All**",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}
