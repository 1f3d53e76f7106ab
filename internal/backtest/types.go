// Package backtest replays the scoring strategy over historical data
// and measures what would have happened.
package backtest

import (
	"time"

	"github.com/newthinker/sepa/internal/core"
)

// Default simulation parameters
const (
	DefaultHoldingPeriodDays      = 60
	DefaultRebalanceFrequencyDays = 30
)

// Trade is a single simulated trade record. Trades are immutable once
// recorded.
type Trade struct {
	Ticker      string
	EntryDate   time.Time
	ExitDate    time.Time
	EntryPrice  float64
	ExitPrice   float64
	Score       float64
	Signal      core.Signal
	Confidence  float64
	ReturnPct   float64
	HoldingDays int
}

// IsWin reports whether the trade was profitable
func (t Trade) IsWin() bool {
	return t.ReturnPct > 0
}

// Params configures one backtest run. Weights are carried by value so
// concurrent runs can never contaminate each other.
type Params struct {
	Tickers                []string
	Start                  time.Time
	End                    time.Time
	HoldingPeriodDays      int
	RebalanceFrequencyDays int
	Weights                core.Weights
}

// withDefaults fills zero fields with the default cadence
func (p Params) withDefaults() Params {
	if p.HoldingPeriodDays <= 0 {
		p.HoldingPeriodDays = DefaultHoldingPeriodDays
	}
	if p.RebalanceFrequencyDays <= 0 {
		p.RebalanceFrequencyDays = DefaultRebalanceFrequencyDays
	}
	return p
}

// Result holds the complete backtest output. Skipped counts units
// omitted for missing or insufficient data, Vetoed counts units
// excluded by hard veto rules.
type Result struct {
	RunID   string
	Params  Params
	Trades  []Trade
	Skipped int
	Vetoed  int
}

// Returns extracts the per-trade return percentages in trade order
func Returns(trades []Trade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.ReturnPct
	}
	return out
}
