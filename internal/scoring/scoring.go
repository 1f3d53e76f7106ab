// Package scoring computes composite multi-factor scores for equities.
package scoring

import (
	"context"
	"time"

	"github.com/newthinker/sepa/internal/core"
)

// Result is the output of scoring one ticker at one point in time
type Result struct {
	Ticker      string
	AsOf        time.Time
	FinalScore  float64 // -10..+10
	Signal      core.Signal
	Confidence  float64
	Vetoed      bool
	VetoReasons []string
	Categories  core.CategoryScores
}

// Provider evaluates the composite score for a ticker as of a given
// date. Implementations must only use information available at asOf so
// that backtests are free of lookahead bias. Weights are passed
// explicitly; providers hold no mutable weight state.
type Provider interface {
	Score(ctx context.Context, ticker string, asOf time.Time, weights core.Weights) (Result, error)
}
