// Package stats quantifies confidence in backtest results instead of
// reporting bare point estimates.
package stats

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SignificanceLevel is the two-sided alpha for every test
const SignificanceLevel = 0.05

// Defaults for the resampling procedures
const (
	DefaultBootstrapResamples = 10000
	DefaultSimulations        = 1000
)

// WinRateResult is the outcome of a binomial win rate test
type WinRateResult struct {
	WinRate     float64
	Baseline    float64
	PValue      float64
	Significant bool
	Conclusion  string
	Winners     int
	Total       int
}

// WinRateSignificance runs a two-sided exact binomial test of the
// observed win count against a baseline probability. A zero-trade
// population reports p=1 rather than erroring.
func WinRateSignificance(winners, total int, baseline float64) WinRateResult {
	if total == 0 {
		return WinRateResult{
			Baseline:   baseline,
			PValue:     1.0,
			Conclusion: "no trades to test",
		}
	}

	observed := float64(winners) / float64(total)
	p := binomialTwoSided(winners, total, baseline)

	r := WinRateResult{
		WinRate:     observed,
		Baseline:    baseline,
		PValue:      p,
		Significant: p < SignificanceLevel,
		Winners:     winners,
		Total:       total,
	}

	switch {
	case !r.Significant:
		r.Conclusion = fmt.Sprintf("win rate (%.1f%%) is not significantly different from %.1f%%",
			observed*100, baseline*100)
	case observed > baseline:
		r.Conclusion = fmt.Sprintf("win rate (%.1f%%) is significantly better than %.1f%%",
			observed*100, baseline*100)
	default:
		r.Conclusion = fmt.Sprintf("win rate (%.1f%%) is significantly worse than %.1f%%",
			observed*100, baseline*100)
	}
	return r
}

// binomialTwoSided sums the probability of every outcome at most as
// likely as the observed one. The relative tolerance absorbs floating
// point noise in the equality comparison.
func binomialTwoSided(k, n int, p float64) float64 {
	dist := distuv.Binomial{N: float64(n), P: p}
	observed := dist.Prob(float64(k))

	const relTol = 1 + 1e-7
	var sum float64
	for i := 0; i <= n; i++ {
		if pr := dist.Prob(float64(i)); pr <= observed*relTol {
			sum += pr
		}
	}
	return math.Min(sum, 1.0)
}

// MeanReturnResult is the outcome of a one-sample t-test
type MeanReturnResult struct {
	MeanReturn  float64
	Baseline    float64
	TStatistic  float64
	PValue      float64
	Significant bool
	Conclusion  string
	N           int
}

// MeanReturnSignificance runs a two-sided one-sample t-test of the
// trade returns against a baseline. Fewer than two returns is an
// insufficient-data result, never an error.
func MeanReturnSignificance(returns []float64, baseline float64) MeanReturnResult {
	if len(returns) < 2 {
		return MeanReturnResult{
			Baseline:   baseline,
			PValue:     1.0,
			Conclusion: "insufficient data for t-test",
			N:          len(returns),
		}
	}

	mean := stat.Mean(returns, nil)
	sd := stat.StdDev(returns, nil)

	r := MeanReturnResult{
		MeanReturn: mean,
		Baseline:   baseline,
		PValue:     1.0,
		N:          len(returns),
	}

	if sd > 0 {
		r.TStatistic = (mean - baseline) / (sd / math.Sqrt(float64(len(returns))))
		r.PValue = tTwoSided(r.TStatistic, float64(len(returns)-1))
	}
	r.Significant = r.PValue < SignificanceLevel

	switch {
	case !r.Significant:
		r.Conclusion = fmt.Sprintf("mean return (%+.2f%%) is not significantly different from %+.2f%%",
			mean, baseline)
	case mean > baseline:
		r.Conclusion = fmt.Sprintf("mean return (%+.2f%%) is significantly better than %+.2f%%",
			mean, baseline)
	default:
		r.Conclusion = fmt.Sprintf("mean return (%+.2f%%) is significantly worse than %+.2f%%",
			mean, baseline)
	}
	return r
}

// tTwoSided is the two-sided p-value of a t statistic with df degrees
// of freedom
func tTwoSided(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.CDF(-math.Abs(t))
}

// ComparisonResult is the outcome of an unpaired two-sample t-test
type ComparisonResult struct {
	NameA       string
	NameB       string
	MeanA       float64
	MeanB       float64
	StdDevA     float64
	StdDevB     float64
	NA          int
	NB          int
	TStatistic  float64
	PValue      float64
	Significant bool
	Conclusion  string
}

// CompareStrategies runs an unpaired two-sample t-test with pooled
// variance between two return populations.
func CompareStrategies(returnsA, returnsB []float64, nameA, nameB string) ComparisonResult {
	if len(returnsA) < 2 || len(returnsB) < 2 {
		return ComparisonResult{
			NameA:      nameA,
			NameB:      nameB,
			NA:         len(returnsA),
			NB:         len(returnsB),
			PValue:     1.0,
			Conclusion: "insufficient data for comparison",
		}
	}

	meanA := stat.Mean(returnsA, nil)
	meanB := stat.Mean(returnsB, nil)
	sdA := stat.StdDev(returnsA, nil)
	sdB := stat.StdDev(returnsB, nil)
	na := float64(len(returnsA))
	nb := float64(len(returnsB))

	r := ComparisonResult{
		NameA:   nameA,
		NameB:   nameB,
		MeanA:   meanA,
		MeanB:   meanB,
		StdDevA: sdA,
		StdDevB: sdB,
		NA:      len(returnsA),
		NB:      len(returnsB),
		PValue:  1.0,
	}

	pooled := ((na-1)*sdA*sdA + (nb-1)*sdB*sdB) / (na + nb - 2)
	se := math.Sqrt(pooled * (1/na + 1/nb))
	if se > 0 {
		r.TStatistic = (meanA - meanB) / se
		r.PValue = tTwoSided(r.TStatistic, na+nb-2)
	}
	r.Significant = r.PValue < SignificanceLevel

	switch {
	case !r.Significant:
		r.Conclusion = fmt.Sprintf("no significant difference between %s (%+.2f%%) and %s (%+.2f%%)",
			nameA, meanA, nameB, meanB)
	case meanA > meanB:
		r.Conclusion = fmt.Sprintf("%s (%+.2f%%) significantly outperforms %s (%+.2f%%)",
			nameA, meanA, nameB, meanB)
	default:
		r.Conclusion = fmt.Sprintf("%s (%+.2f%%) significantly outperforms %s (%+.2f%%)",
			nameB, meanB, nameA, meanA)
	}
	return r
}

// CompareRegimePerformance compares returns earned in bull versus bear
// market regimes.
func CompareRegimePerformance(bullReturns, bearReturns []float64) ComparisonResult {
	return CompareStrategies(bullReturns, bearReturns, "bull market", "bear market")
}

// PairedResult is the outcome of a paired t-test
type PairedResult struct {
	NameBefore     string
	NameAfter      string
	MeanBefore     float64
	MeanAfter      float64
	MeanDifference float64
	TStatistic     float64
	PValue         float64
	Significant    bool
	Conclusion     string
	Pairs          int
}

// PairedComparison runs a paired t-test on index-aligned return lists.
// Mismatched lengths are an invalid-data result, never an error.
func PairedComparison(before, after []float64, nameBefore, nameAfter string) PairedResult {
	if len(before) < 2 || len(before) != len(after) {
		return PairedResult{
			NameBefore: nameBefore,
			NameAfter:  nameAfter,
			PValue:     1.0,
			Conclusion: "invalid data for paired comparison, lists must be equal length with at least two pairs",
		}
	}

	diffs := make([]float64, len(before))
	for i := range before {
		diffs[i] = after[i] - before[i]
	}

	meanBefore := stat.Mean(before, nil)
	meanAfter := stat.Mean(after, nil)
	meanDiff := stat.Mean(diffs, nil)
	sdDiff := stat.StdDev(diffs, nil)

	r := PairedResult{
		NameBefore:     nameBefore,
		NameAfter:      nameAfter,
		MeanBefore:     meanBefore,
		MeanAfter:      meanAfter,
		MeanDifference: meanDiff,
		PValue:         1.0,
		Pairs:          len(before),
	}

	if sdDiff > 0 {
		r.TStatistic = meanDiff / (sdDiff / math.Sqrt(float64(len(diffs))))
		r.PValue = tTwoSided(r.TStatistic, float64(len(diffs)-1))
	}
	r.Significant = r.PValue < SignificanceLevel

	switch {
	case !r.Significant:
		r.Conclusion = fmt.Sprintf("no significant difference between %s and %s", nameAfter, nameBefore)
	case meanDiff > 0:
		r.Conclusion = fmt.Sprintf("%s (%+.2f%%) significantly better than %s (%+.2f%%)",
			nameAfter, meanAfter, nameBefore, meanBefore)
	default:
		r.Conclusion = fmt.Sprintf("%s (%+.2f%%) significantly worse than %s (%+.2f%%)",
			nameAfter, meanAfter, nameBefore, meanBefore)
	}
	return r
}

// BootstrapResult is a percentile confidence interval for the mean
// return
type BootstrapResult struct {
	Mean       float64
	Lower      float64
	Upper      float64
	Confidence float64
	Resamples  int
}

// BootstrapCI estimates a nonparametric confidence interval for the
// mean return by resampling with replacement. A nil rng gets a fixed
// seed, making the default deterministic.
func BootstrapCI(returns []float64, confidence float64, resamples int, rng *rand.Rand) BootstrapResult {
	if len(returns) == 0 {
		return BootstrapResult{Confidence: confidence}
	}
	if resamples <= 0 {
		resamples = DefaultBootstrapResamples
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	means := make([]float64, resamples)
	for i := 0; i < resamples; i++ {
		var sum float64
		for j := 0; j < len(returns); j++ {
			sum += returns[rng.Intn(len(returns))]
		}
		means[i] = sum / float64(len(returns))
	}
	sort.Float64s(means)

	alpha := 1 - confidence
	return BootstrapResult{
		Mean:       stat.Mean(returns, nil),
		Lower:      stat.Quantile(alpha/2, stat.LinInterp, means, nil),
		Upper:      stat.Quantile(1-alpha/2, stat.LinInterp, means, nil),
		Confidence: confidence,
		Resamples:  resamples,
	}
}

// MonteCarloResult summarizes the distribution of summed returns over
// resampled trade sequences
type MonteCarloResult struct {
	Mean         float64
	Median       float64
	StdDev       float64
	PctPositive  float64
	WorstCase    float64
	BestCase     float64
	Percentile5  float64
	Percentile95 float64
	Simulations  int
}

// MonteCarlo resamples the observed per-trade returns with replacement
// into simulated trade sequences and reports the distribution of the
// summed return. Bounds how much of the observed result plain variance
// could explain.
func MonteCarlo(returns []float64, simulations, tradesPerSim int, rng *rand.Rand) MonteCarloResult {
	if len(returns) == 0 {
		return MonteCarloResult{}
	}
	if simulations <= 0 {
		simulations = DefaultSimulations
	}
	if tradesPerSim <= 0 {
		tradesPerSim = len(returns)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	totals := make([]float64, simulations)
	positive := 0
	for i := 0; i < simulations; i++ {
		var sum float64
		for j := 0; j < tradesPerSim; j++ {
			sum += returns[rng.Intn(len(returns))]
		}
		totals[i] = sum
		if sum > 0 {
			positive++
		}
	}
	sort.Float64s(totals)

	mean := stat.Mean(totals, nil)
	var variance float64
	for _, v := range totals {
		d := v - mean
		variance += d * d
	}

	return MonteCarloResult{
		Mean:         mean,
		Median:       stat.Quantile(0.5, stat.LinInterp, totals, nil),
		StdDev:       math.Sqrt(variance / float64(simulations)),
		PctPositive:  float64(positive) / float64(simulations) * 100,
		WorstCase:    totals[0],
		BestCase:     totals[simulations-1],
		Percentile5:  stat.Quantile(0.05, stat.LinInterp, totals, nil),
		Percentile95: stat.Quantile(0.95, stat.LinInterp, totals, nil),
		Simulations:  simulations,
	}
}
