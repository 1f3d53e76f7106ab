package backtest

import (
	"math"
	"sort"

	"github.com/newthinker/sepa/internal/core"
)

// daysPerYear is used to annualize per-trade statistics
const daysPerYear = 365.25

// OverallMetrics summarizes a trade population. The zero value is the
// correct answer for an empty population.
type OverallMetrics struct {
	TotalTrades        int
	Winners            int
	Losers             int
	WinRatePct         float64
	AvgReturnPct       float64
	MedianReturnPct    float64
	AvgWinnerReturnPct float64
	AvgLoserReturnPct  float64
	BestTradePct       float64
	WorstTradePct      float64
	AvgHoldingDays     float64
}

// Overall computes summary metrics across all trades
func Overall(trades []Trade) OverallMetrics {
	if len(trades) == 0 {
		return OverallMetrics{}
	}

	var m OverallMetrics
	m.TotalTrades = len(trades)

	returns := make([]float64, 0, len(trades))
	var sum, winnerSum, loserSum, holdingSum float64

	m.BestTradePct = trades[0].ReturnPct
	m.WorstTradePct = trades[0].ReturnPct

	for _, t := range trades {
		returns = append(returns, t.ReturnPct)
		sum += t.ReturnPct
		holdingSum += float64(t.HoldingDays)

		if t.IsWin() {
			m.Winners++
			winnerSum += t.ReturnPct
		} else {
			m.Losers++
			loserSum += t.ReturnPct
		}
		if t.ReturnPct > m.BestTradePct {
			m.BestTradePct = t.ReturnPct
		}
		if t.ReturnPct < m.WorstTradePct {
			m.WorstTradePct = t.ReturnPct
		}
	}

	m.WinRatePct = float64(m.Winners) / float64(m.TotalTrades) * 100
	m.AvgReturnPct = sum / float64(m.TotalTrades)
	m.AvgHoldingDays = holdingSum / float64(m.TotalTrades)
	if m.Winners > 0 {
		m.AvgWinnerReturnPct = winnerSum / float64(m.Winners)
	}
	if m.Losers > 0 {
		m.AvgLoserReturnPct = loserSum / float64(m.Losers)
	}

	sort.Float64s(returns)
	m.MedianReturnPct = returns[len(returns)/2]

	return m
}

// ScoreRangeMetrics holds the metrics for one score bucket
type ScoreRangeMetrics struct {
	Name     string
	MinScore float64
	MaxScore float64
	OverallMetrics
}

// ScoreRanges partitions trades into the fixed score buckets and
// summarizes each. Empty buckets report zeroed metrics.
func ScoreRanges(trades []Trade) []ScoreRangeMetrics {
	buckets := []struct {
		name     string
		min, max float64
	}{
		{"Strong Sell", -10.0, -6.0},
		{"Sell/Avoid", -6.0, -3.0},
		{"Neutral", -3.0, 3.0},
		{"Buy", 3.0, 6.0},
		{"Strong Buy", 6.0, 10.1},
	}

	out := make([]ScoreRangeMetrics, 0, len(buckets))
	for _, b := range buckets {
		var selected []Trade
		for _, t := range trades {
			if t.Score >= b.min && t.Score < b.max {
				selected = append(selected, t)
			}
		}
		out = append(out, ScoreRangeMetrics{
			Name:           b.name,
			MinScore:       b.min,
			MaxScore:       b.max,
			OverallMetrics: Overall(selected),
		})
	}
	return out
}

// BySignal summarizes trades grouped by signal label. Every label is
// present in the result, zeroed when it has no trades.
func BySignal(trades []Trade) map[core.Signal]OverallMetrics {
	out := make(map[core.Signal]OverallMetrics, 5)
	for _, sig := range core.Signals() {
		var selected []Trade
		for _, t := range trades {
			if t.Signal == sig {
				selected = append(selected, t)
			}
		}
		out[sig] = Overall(selected)
	}
	return out
}

// TickerMetrics extends the overall metrics with the average score
// assigned to the ticker
type TickerMetrics struct {
	OverallMetrics
	AvgScore float64
}

// ByTicker summarizes trades grouped by ticker
func ByTicker(trades []Trade) map[string]TickerMetrics {
	grouped := make(map[string][]Trade)
	for _, t := range trades {
		grouped[t.Ticker] = append(grouped[t.Ticker], t)
	}

	out := make(map[string]TickerMetrics, len(grouped))
	for ticker, selected := range grouped {
		var scoreSum float64
		for _, t := range selected {
			scoreSum += t.Score
		}
		out[ticker] = TickerMetrics{
			OverallMetrics: Overall(selected),
			AvgScore:       scoreSum / float64(len(selected)),
		}
	}
	return out
}

// RiskMetrics holds risk-adjusted performance statistics. Any ratio
// with a zero denominator reports 0, never NaN or Inf.
type RiskMetrics struct {
	MeanReturnPct           float64
	StdDevPct               float64
	AnnualizedReturnPct     float64
	AnnualizedVolatilityPct float64
	SharpeRatio             float64
	SortinoRatio            float64
	MaxDrawdownPct          float64
	CalmarRatio             float64
	TradesPerYear           float64
}

// RiskAdjusted computes risk-adjusted metrics from per-trade returns.
// riskFreeRate is a fraction (0.02 for 2%). Annualization assumes
// sequential non-overlapping trades: trades_per_year is derived from
// the mean holding period, which overstates compounding when positions
// overlap.
func RiskAdjusted(trades []Trade, riskFreeRate float64) RiskMetrics {
	if len(trades) == 0 {
		return RiskMetrics{}
	}

	var m RiskMetrics

	var sum, holdingSum float64
	for _, t := range trades {
		sum += t.ReturnPct
		holdingSum += float64(t.HoldingDays)
	}
	m.MeanReturnPct = sum / float64(len(trades))
	meanHolding := holdingSum / float64(len(trades))

	if len(trades) > 1 {
		var variance, downVariance float64
		downCount := 0
		for _, t := range trades {
			d := t.ReturnPct - m.MeanReturnPct
			variance += d * d
			if t.ReturnPct < 0 {
				downVariance += t.ReturnPct * t.ReturnPct
				downCount++
			}
		}
		m.StdDevPct = math.Sqrt(variance / float64(len(trades)-1))

		if meanHolding > 0 {
			m.TradesPerYear = daysPerYear / meanHolding
		}

		m.AnnualizedReturnPct = m.MeanReturnPct * m.TradesPerYear
		m.AnnualizedVolatilityPct = m.StdDevPct * math.Sqrt(m.TradesPerYear)

		excess := m.AnnualizedReturnPct - riskFreeRate*100
		if m.AnnualizedVolatilityPct > 0 {
			m.SharpeRatio = excess / m.AnnualizedVolatilityPct
		}

		if downCount > 0 {
			downDev := math.Sqrt(downVariance/float64(downCount)) * math.Sqrt(m.TradesPerYear)
			if downDev > 0 {
				m.SortinoRatio = excess / downDev
			}
		}
	}

	m.MaxDrawdownPct = maxDrawdown(Returns(trades))
	if m.MaxDrawdownPct > 0 {
		m.CalmarRatio = m.AnnualizedReturnPct / m.MaxDrawdownPct
	}

	return m
}

// maxDrawdown is the largest peak-to-trough decline of the running sum
// of per-trade returns. Summing rather than compounding matches how
// the per-trade returns are aggregated elsewhere.
func maxDrawdown(returns []float64) float64 {
	var cumulative, peak, maxDD float64
	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// StreakMetrics holds the longest winning and losing runs
type StreakMetrics struct {
	LongestWinStreak  int
	LongestLossStreak int
}

// Streaks computes win/loss streaks with trades ordered by entry date
func Streaks(trades []Trade) StreakMetrics {
	ordered := make([]Trade, len(trades))
	copy(ordered, trades)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].EntryDate.Before(ordered[j].EntryDate)
	})

	var m StreakMetrics
	var wins, losses int
	for _, t := range ordered {
		if t.IsWin() {
			wins++
			losses = 0
		} else {
			losses++
			wins = 0
		}
		if wins > m.LongestWinStreak {
			m.LongestWinStreak = wins
		}
		if losses > m.LongestLossStreak {
			m.LongestLossStreak = losses
		}
	}
	return m
}

// Annual summarizes trades grouped by entry year
func Annual(trades []Trade) map[int]OverallMetrics {
	grouped := make(map[int][]Trade)
	for _, t := range trades {
		grouped[t.EntryDate.Year()] = append(grouped[t.EntryDate.Year()], t)
	}

	out := make(map[int]OverallMetrics, len(grouped))
	for year, selected := range grouped {
		out[year] = Overall(selected)
	}
	return out
}
