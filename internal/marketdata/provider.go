// Package marketdata provides historical price data for backtesting.
package marketdata

import (
	"context"
	"time"

	"github.com/newthinker/sepa/internal/core"
)

// Provider fetches daily OHLCV history for a symbol. Implementations
// must return bars in ascending time order.
type Provider interface {
	History(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error)
}

// Fundamentals holds the point-in-time fundamental snapshot used by
// the fundamental category scorer. Fields that a source cannot supply
// are left at zero and scored as unavailable.
type Fundamentals struct {
	Symbol         string
	AsOf           time.Time
	PERatio        float64
	EPSGrowthPct   float64
	DebtToEquity   float64
	ReturnOnEquity float64
}

// FundamentalsProvider fetches fundamentals as of a given date.
// Quarterly statements are approximated with a fixed reporting lag
// rather than true as-reported snapshots.
type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, symbol string, asOf time.Time) (Fundamentals, error)
}

// ReportingLagDays approximates the delay between a fiscal quarter end
// and the data being publicly available.
const ReportingLagDays = 45
