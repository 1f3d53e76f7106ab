package main

import (
	"fmt"
	"net/http"

	"github.com/newthinker/sepa/internal/archive"
	"github.com/newthinker/sepa/internal/backtest"
	"github.com/newthinker/sepa/internal/config"
	"github.com/newthinker/sepa/internal/logger"
	"github.com/newthinker/sepa/internal/marketdata"
	"github.com/newthinker/sepa/internal/metrics"
	"github.com/newthinker/sepa/internal/scoring"
	"go.uber.org/zap"
)

// app bundles the wired components shared by the subcommands
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Registry
	data    marketdata.Provider
	scorer  scoring.Provider
	engine  *backtest.Engine
	runs    *archive.Runs
}

// newApp loads config and wires the component graph
func newApp() (*app, error) {
	log := logger.Must(debug)

	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	reg := metrics.NewRegistry()
	if cfg.Metrics.Enabled {
		serveMetrics(log, reg, cfg.Metrics)
	}

	yahoo := marketdata.NewYahoo()
	cache, err := marketdata.NewCache(yahoo, cfg.Data.CacheDir, cfg.Data.CacheTTL, log)
	if err != nil {
		return nil, fmt.Errorf("creating data cache: %w", err)
	}
	cache.SetRecorder(reg)

	scorer := scoring.NewComposite(cache, yahoo, cfg.Data.IndexSymbol, log)

	engine := backtest.NewEngine(cache, scorer,
		backtest.WithWorkers(cfg.Backtest.Workers),
		backtest.WithLogger(log),
		backtest.WithMetrics(reg),
	)

	store, err := newStorage(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	return &app{
		cfg:     cfg,
		log:     log,
		metrics: reg,
		data:    cache,
		scorer:  scorer,
		engine:  engine,
		runs:    archive.NewRuns(store),
	}, nil
}

// serveMetrics exposes the registry for scraping while a command runs.
func serveMetrics(log *zap.Logger, reg *metrics.Registry, cfg config.MetricsConfig) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, reg.Handler())

	log.Info("metrics listener started",
		zap.String("listen", cfg.Listen),
		zap.String("path", cfg.Path))

	go func() {
		if err := http.ListenAndServe(cfg.Listen, mux); err != nil {
			log.Warn("metrics listener stopped", zap.Error(err))
		}
	}()
}

func newStorage(cfg config.ArchiveConfig) (archive.Storage, error) {
	switch cfg.Type {
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return archive.NewLocalFS(cfg.Path)
	}
}

// optimizer builds a weight optimizer over the wired engine
func (a *app) optimizer() *backtest.Optimizer {
	return backtest.NewOptimizer(a.engine, a.cfg.Backtest.RiskFreeRate, a.log, a.metrics)
}

func backtestWalkForward(a *app) *backtest.WalkForward {
	return backtest.NewWalkForward(a.optimizer(), a.engine, a.cfg.Backtest.RiskFreeRate, a.log)
}

// ranges converts the configured candidate values, falling back to the
// default grid when unset
func (a *app) ranges() backtest.WeightRanges {
	r := backtest.WeightRanges{
		TrendMomentum: a.cfg.Optimizer.Ranges.TrendMomentum,
		Volume:        a.cfg.Optimizer.Ranges.Volume,
		Fundamental:   a.cfg.Optimizer.Ranges.Fundamental,
		MarketContext: a.cfg.Optimizer.Ranges.MarketContext,
		Advanced:      a.cfg.Optimizer.Ranges.Advanced,
	}
	if r.Combinations() == 0 {
		return backtest.DefaultWeightRanges()
	}
	return r
}

// backtestParams builds engine parameters from the configuration
func (a *app) backtestParams() (backtest.Params, error) {
	start, end, err := a.cfg.Backtest.Window()
	if err != nil {
		return backtest.Params{}, err
	}
	if len(a.cfg.Tickers) == 0 {
		return backtest.Params{}, fmt.Errorf("no tickers configured")
	}
	return backtest.Params{
		Tickers:                a.cfg.Tickers,
		Start:                  start,
		End:                    end,
		HoldingPeriodDays:      a.cfg.Backtest.HoldingPeriodDays,
		RebalanceFrequencyDays: a.cfg.Backtest.RebalanceFrequencyDays,
		Weights:                a.cfg.Weights,
	}, nil
}

func objective(name string) backtest.Objective {
	switch name {
	case "avg_return":
		return backtest.ObjectiveAvgReturn
	case "sharpe_ratio":
		return backtest.ObjectiveSharpe
	default:
		return backtest.ObjectiveWinRate
	}
}
