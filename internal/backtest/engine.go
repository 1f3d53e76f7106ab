package backtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/marketdata"
	"github.com/newthinker/sepa/internal/metrics"
	"github.com/newthinker/sepa/internal/scoring"
	"go.uber.org/zap"
)

// warmupFetchDays is how far before the backtest window price history
// is fetched, so indicators have a full year of bars at the first
// rebalance date.
const warmupFetchDays = 600

// Engine replays the scoring strategy over a historical window.
// Per-(ticker, rebalance date) units are independent and evaluated by
// a bounded worker pool.
type Engine struct {
	data    marketdata.Provider
	scorer  scoring.Provider
	workers int
	logger  *zap.Logger
	metrics *metrics.Registry
}

// Option configures an Engine
type Option func(*Engine)

// WithWorkers sets the worker pool size
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics attaches a metrics registry
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates a backtest engine
func NewEngine(data marketdata.Provider, scorer scoring.Provider, opts ...Option) *Engine {
	e := &Engine{
		data:    data,
		scorer:  scorer,
		workers: 4,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// unit is one (ticker, rebalance date) evaluation
type unit struct {
	ticker    string
	entryDate time.Time
}

// outcome is the result of evaluating one unit
type outcome struct {
	trade  *Trade
	vetoed bool
	err    error
}

// Run executes the backtest. Individual unit failures are counted and
// skipped; the run only fails on invalid parameters or cancellation.
func (e *Engine) Run(ctx context.Context, p Params) (*Result, error) {
	p = p.withDefaults()

	if len(p.Tickers) == 0 {
		return nil, core.WrapError(core.ErrConfigInvalid, errors.New("no tickers"))
	}
	if !p.End.After(p.Start) {
		return nil, core.WrapError(core.ErrConfigInvalid, errors.New("end date must be after start date"))
	}
	if err := p.Weights.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()

	var units []unit
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, p.RebalanceFrequencyDays) {
		for _, ticker := range p.Tickers {
			units = append(units, unit{ticker: ticker, entryDate: d})
		}
	}

	e.logger.Info("backtest started",
		zap.Time("start", p.Start),
		zap.Time("end", p.End),
		zap.Int("tickers", len(p.Tickers)),
		zap.Int("units", len(units)),
	)

	jobs := make(chan unit)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				outcomes <- e.evaluate(ctx, u, p)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, u := range units {
			select {
			case <-ctx.Done():
				return
			case jobs <- u:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := &Result{
		RunID:  uuid.NewString(),
		Params: p,
	}

	for o := range outcomes {
		switch {
		case o.trade != nil:
			result.Trades = append(result.Trades, *o.trade)
		case o.vetoed:
			result.Vetoed++
		default:
			result.Skipped++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Workers complete in arbitrary order; normalize for reporting
	sort.Slice(result.Trades, func(i, j int) bool {
		if result.Trades[i].EntryDate.Equal(result.Trades[j].EntryDate) {
			return result.Trades[i].Ticker < result.Trades[j].Ticker
		}
		return result.Trades[i].EntryDate.Before(result.Trades[j].EntryDate)
	})

	if e.metrics != nil {
		e.metrics.ObserveBacktest(time.Since(started))
		e.metrics.AddTrades(len(result.Trades))
		e.metrics.AddSkipped(result.Skipped)
		e.metrics.AddVetoed(result.Vetoed)
	}

	e.logger.Info("backtest complete",
		zap.String("run_id", result.RunID),
		zap.Int("trades", len(result.Trades)),
		zap.Int("skipped", result.Skipped),
		zap.Int("vetoed", result.Vetoed),
		zap.Duration("elapsed", time.Since(started)),
	)

	return result, nil
}

// evaluate simulates the trade for one (ticker, date) unit
func (e *Engine) evaluate(ctx context.Context, u unit, p Params) outcome {
	fetchStart := p.Start.AddDate(0, 0, -warmupFetchDays)
	fetchEnd := p.End.AddDate(0, 0, p.HoldingPeriodDays)

	bars, err := e.data.History(ctx, u.ticker, fetchStart, fetchEnd)
	if err != nil {
		e.logger.Debug("history unavailable",
			zap.String("ticker", u.ticker),
			zap.Time("entry", u.entryDate),
			zap.Error(err),
		)
		return outcome{err: err}
	}

	// Split strictly around the entry date to avoid lookahead
	var past, future []core.OHLCV
	for _, b := range bars {
		if b.Time.After(u.entryDate) {
			future = append(future, b)
		} else {
			past = append(past, b)
		}
	}

	// The entry-dated bar prices the entry but does not count toward
	// warm-up; indicators need history strictly before the entry date
	warmup := len(past)
	if warmup > 0 && past[warmup-1].Time.Equal(u.entryDate) {
		warmup--
	}
	if warmup < core.MinWarmupBars {
		return outcome{err: core.ErrInsufficientData}
	}
	if len(future) == 0 {
		return outcome{err: core.ErrNoData}
	}

	entryPrice := past[len(past)-1].Close
	if entryPrice <= 0 {
		return outcome{err: core.ErrNoData}
	}

	res, err := e.scorer.Score(ctx, u.ticker, u.entryDate, p.Weights)
	if err != nil {
		e.logger.Debug("scoring failed",
			zap.String("ticker", u.ticker),
			zap.Time("entry", u.entryDate),
			zap.Error(err),
		)
		return outcome{err: err}
	}
	if res.Vetoed {
		return outcome{vetoed: true}
	}

	// Exit at the bar closest to entry + holding period; if data ends
	// first, the last available bar wins the distance comparison
	target := u.entryDate.AddDate(0, 0, p.HoldingPeriodDays)
	exitBar := future[0]
	bestDiff := absDuration(exitBar.Time.Sub(target))
	for _, b := range future[1:] {
		diff := absDuration(b.Time.Sub(target))
		if diff < bestDiff {
			exitBar = b
			bestDiff = diff
		}
	}

	trade := &Trade{
		Ticker:      u.ticker,
		EntryDate:   u.entryDate,
		ExitDate:    exitBar.Time,
		EntryPrice:  entryPrice,
		ExitPrice:   exitBar.Close,
		Score:       res.FinalScore,
		Signal:      res.Signal,
		Confidence:  res.Confidence,
		ReturnPct:   (exitBar.Close - entryPrice) / entryPrice * 100,
		HoldingDays: int(exitBar.Time.Sub(u.entryDate).Hours() / 24),
	}
	return outcome{trade: trade}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
