package scoring

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/indicator"
	"github.com/newthinker/sepa/internal/marketdata"
	"go.uber.org/zap"
)

// Veto thresholds. A vetoed ticker is excluded from trading regardless
// of its score.
const (
	minPrice        = 1.0    // penny stock floor
	minAvgVolume    = 100000 // 20-day average share volume
	historyLookback = 600    // calendar days fetched before asOf
)

// Composite scores a ticker by combining five category sub-scores with
// the supplied weight vector. All price inputs are clipped to asOf.
type Composite struct {
	data         marketdata.Provider
	fundamentals marketdata.FundamentalsProvider // optional
	indexSymbol  string
	logger       *zap.Logger
}

// NewComposite creates a composite scorer. fundamentals may be nil, in
// which case the fundamental category scores zero with reduced
// confidence.
func NewComposite(data marketdata.Provider, fundamentals marketdata.FundamentalsProvider, indexSymbol string, logger *zap.Logger) *Composite {
	if logger == nil {
		logger = zap.NewNop()
	}
	if indexSymbol == "" {
		indexSymbol = "^GSPC"
	}
	return &Composite{
		data:         data,
		fundamentals: fundamentals,
		indexSymbol:  indexSymbol,
		logger:       logger,
	}
}

// Score evaluates the ticker as of the given date
func (c *Composite) Score(ctx context.Context, ticker string, asOf time.Time, weights core.Weights) (Result, error) {
	if err := weights.Validate(); err != nil {
		return Result{}, err
	}

	start := asOf.AddDate(0, 0, -historyLookback)
	bars, err := c.data.History(ctx, ticker, start, asOf)
	if err != nil {
		return Result{}, err
	}

	bars = clipToDate(bars, asOf)
	if len(bars) < core.MinWarmupBars {
		return Result{}, core.WrapError(core.ErrInsufficientData,
			errors.New("need at least a year of daily bars"))
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}

	result := Result{
		Ticker:     ticker,
		AsOf:       asOf,
		Confidence: 1.0,
	}

	// Hard veto rules run before any scoring
	if reasons := c.applyVetoes(closes, volumes); len(reasons) > 0 {
		result.Vetoed = true
		result.VetoReasons = reasons
		result.Signal = core.SignalNeutral
		return result, nil
	}

	cat := core.CategoryScores{
		TrendMomentum: scoreTrendMomentum(closes),
		Volume:        scoreVolume(volumes, closes),
		Advanced:      scoreAdvanced(closes),
	}

	cat.MarketContext = c.scoreMarketContext(ctx, asOf)

	fundamental, ok := c.scoreFundamental(ctx, ticker, asOf)
	cat.Fundamental = fundamental
	if !ok {
		// Missing fundamentals never veto, they just weaken conviction
		result.Confidence *= 0.85
	}

	result.Categories = cat
	result.FinalScore = clamp(cat.Weighted(weights.Normalized()), -10, 10)
	result.Signal = core.SignalForScore(result.FinalScore)
	result.Confidence *= agreementMultiplier(cat)

	return result, nil
}

// applyVetoes returns the list of triggered veto reasons
func (c *Composite) applyVetoes(closes, volumes []float64) []string {
	var reasons []string

	if closes[len(closes)-1] < minPrice {
		reasons = append(reasons, "price below penny-stock floor")
	}

	n := len(volumes)
	window := volumes[n-20:]
	var avg float64
	for _, v := range window {
		avg += v
	}
	avg /= 20
	if avg < minAvgVolume {
		reasons = append(reasons, "insufficient liquidity")
	}

	return reasons
}

// scoreTrendMomentum blends price-versus-MA positioning with trailing
// momentum
func scoreTrendMomentum(closes []float64) float64 {
	last := closes[len(closes)-1]

	sma50 := indicator.SMA(closes, 50)
	sma200 := indicator.SMA(closes, 200)
	if len(sma50) == 0 || len(sma200) == 0 {
		return 0
	}

	var score float64
	if last > sma50[len(sma50)-1] {
		score += 3
	} else {
		score -= 3
	}
	if last > sma200[len(sma200)-1] {
		score += 3
	} else {
		score -= 3
	}
	if sma50[len(sma50)-1] > sma200[len(sma200)-1] {
		score += 1
	} else {
		score -= 1
	}

	// Quarterly momentum, saturating at +/-30%
	mom := indicator.Momentum(closes, 63)
	score += clamp(mom/10, -3, 3)

	return clamp(score, -10, 10)
}

// scoreVolume compares recent volume against its baseline, signed by
// the direction of recent price movement
func scoreVolume(volumes, closes []float64) float64 {
	recent := indicator.SMA(volumes, 20)
	baseline := indicator.SMA(volumes, 50)
	if len(recent) == 0 || len(baseline) == 0 || baseline[len(baseline)-1] == 0 {
		return 0
	}

	ratio := recent[len(recent)-1] / baseline[len(baseline)-1]
	surge := clamp((ratio-1)*20, 0, 10)

	// Rising volume confirms the prevailing move, it does not create one
	if indicator.Momentum(closes, 20) < 0 {
		surge = -surge
	}
	return surge
}

// scoreAdvanced uses RSI positioning as a mean-reversion overlay
func scoreAdvanced(closes []float64) float64 {
	rsi := indicator.RSI(closes, 14)
	switch {
	case rsi >= 70:
		return -clamp((rsi-70)/3, 0, 10)
	case rsi <= 30:
		return clamp((30-rsi)/3, 0, 10)
	default:
		// Mildly reward bullish but not overbought momentum
		return (rsi - 50) / 10
	}
}

// scoreMarketContext scores the broad market trend as of the date.
// A failed index fetch contributes a neutral zero.
func (c *Composite) scoreMarketContext(ctx context.Context, asOf time.Time) float64 {
	start := asOf.AddDate(0, 0, -historyLookback)
	bars, err := c.data.History(ctx, c.indexSymbol, start, asOf)
	if err != nil {
		c.logger.Debug("index history unavailable", zap.String("symbol", c.indexSymbol), zap.Error(err))
		return 0
	}
	bars = clipToDate(bars, asOf)

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	ma := indicator.SMA(closes, 200)
	if len(ma) == 0 {
		return 0
	}
	last := closes[len(closes)-1]
	spread := (last - ma[len(ma)-1]) / ma[len(ma)-1] * 100
	return clamp(spread/2, -10, 10)
}

// scoreFundamental scores the fundamental snapshot; ok is false when
// no fundamentals are available
func (c *Composite) scoreFundamental(ctx context.Context, ticker string, asOf time.Time) (float64, bool) {
	if c.fundamentals == nil {
		return 0, false
	}

	f, err := c.fundamentals.Fundamentals(ctx, ticker, asOf)
	if err != nil {
		c.logger.Debug("fundamentals unavailable", zap.String("ticker", ticker), zap.Error(err))
		return 0, false
	}

	var score float64

	switch {
	case f.PERatio <= 0:
		score -= 3 // unprofitable
	case f.PERatio < 15:
		score += 3
	case f.PERatio > 40:
		score -= 2
	}

	score += clamp(f.EPSGrowthPct/10, -3, 3)

	if f.DebtToEquity > 2 {
		score -= 2
	}
	if f.ReturnOnEquity > 0.15 {
		score += 2
	}

	return clamp(score, -10, 10), true
}

// agreementMultiplier adjusts confidence by how many categories agree
// on direction
func agreementMultiplier(cat core.CategoryScores) float64 {
	scores := []float64{cat.TrendMomentum, cat.Volume, cat.Fundamental, cat.MarketContext, cat.Advanced}
	var positive, negative int
	for _, s := range scores {
		if s > 1 {
			positive++
		} else if s < -1 {
			negative++
		}
	}

	switch {
	case positive >= 4 || negative >= 4:
		return 1.2
	case positive >= 2 && negative >= 2:
		return 0.8 // major conflict between categories
	default:
		return 1.0
	}
}

// clipToDate drops bars after the cutoff, preserving order
func clipToDate(bars []core.OHLCV, cutoff time.Time) []core.OHLCV {
	out := bars[:0:0]
	for _, b := range bars {
		if !b.Time.After(cutoff) {
			out = append(out, b)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
