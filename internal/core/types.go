package core

import (
	"math"
	"time"
)

// MinWarmupBars is the minimum number of daily bars that must exist
// strictly before a trade's entry date. Indicators with 200-day
// windows need roughly a year of history to be meaningful.
const MinWarmupBars = 252

// OHLCV represents a daily candlestick/bar
type OHLCV struct {
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Time   time.Time
}

// Signal represents the trading signal derived from a composite score
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG BUY"
	SignalBuy        Signal = "BUY"
	SignalNeutral    Signal = "NEUTRAL"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG SELL"
)

// Signal thresholds on the -10..+10 composite score scale.
const (
	StrongBuyThreshold  = 6.0
	BuyThreshold        = 3.0
	SellThreshold       = -3.0
	StrongSellThreshold = -6.0
)

// SignalForScore maps a composite score to its signal label
func SignalForScore(score float64) Signal {
	switch {
	case score >= StrongBuyThreshold:
		return SignalStrongBuy
	case score >= BuyThreshold:
		return SignalBuy
	case score > SellThreshold:
		return SignalNeutral
	case score > StrongSellThreshold:
		return SignalSell
	default:
		return SignalStrongSell
	}
}

// Signals lists all signal labels in score order, strongest buy first
func Signals() []Signal {
	return []Signal{SignalStrongBuy, SignalBuy, SignalNeutral, SignalSell, SignalStrongSell}
}

// WeightTolerance is the allowed deviation of a weight vector's sum from 1.0
const WeightTolerance = 0.02

// Weights holds the per-category weights of the composite score.
// Weights are plain values passed explicitly through scoring and
// optimization; there is no shared mutable weight configuration.
type Weights struct {
	TrendMomentum float64 `mapstructure:"trend_momentum" yaml:"trend_momentum"`
	Volume        float64 `mapstructure:"volume" yaml:"volume"`
	Fundamental   float64 `mapstructure:"fundamental" yaml:"fundamental"`
	MarketContext float64 `mapstructure:"market_context" yaml:"market_context"`
	Advanced      float64 `mapstructure:"advanced" yaml:"advanced"`
}

// DefaultWeights returns the production weight vector
func DefaultWeights() Weights {
	return Weights{
		TrendMomentum: 0.30,
		Volume:        0.15,
		Fundamental:   0.22,
		MarketContext: 0.18,
		Advanced:      0.15,
	}
}

// Sum returns the total of all category weights
func (w Weights) Sum() float64 {
	return w.TrendMomentum + w.Volume + w.Fundamental + w.MarketContext + w.Advanced
}

// Normalized returns a copy rescaled so the weights sum to exactly 1.0.
// A zero vector is returned unchanged.
func (w Weights) Normalized() Weights {
	sum := w.Sum()
	if sum == 0 {
		return w
	}
	return Weights{
		TrendMomentum: w.TrendMomentum / sum,
		Volume:        w.Volume / sum,
		Fundamental:   w.Fundamental / sum,
		MarketContext: w.MarketContext / sum,
		Advanced:      w.Advanced / sum,
	}
}

// Validate checks that all weights are non-negative and the sum is
// within WeightTolerance of 1.0
func (w Weights) Validate() error {
	if w.TrendMomentum < 0 || w.Volume < 0 || w.Fundamental < 0 || w.MarketContext < 0 || w.Advanced < 0 {
		return WrapError(ErrConfigInvalid, errNegativeWeight)
	}
	if math.Abs(w.Sum()-1.0) > WeightTolerance {
		return WrapError(ErrConfigInvalid, errWeightSum)
	}
	return nil
}

// CategoryScores holds the per-category sub-scores, each on the
// -10..+10 scale
type CategoryScores struct {
	TrendMomentum float64 `yaml:"trend_momentum"`
	Volume        float64 `yaml:"volume"`
	Fundamental   float64 `yaml:"fundamental"`
	MarketContext float64 `yaml:"market_context"`
	Advanced      float64 `yaml:"advanced"`
}

// Weighted combines the category scores using the given weights
func (c CategoryScores) Weighted(w Weights) float64 {
	return c.TrendMomentum*w.TrendMomentum +
		c.Volume*w.Volume +
		c.Fundamental*w.Fundamental +
		c.MarketContext*w.MarketContext +
		c.Advanced*w.Advanced
}
