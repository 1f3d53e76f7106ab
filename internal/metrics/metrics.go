package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Backtest metrics
	backtestsTotal     prometheus.Counter
	backtestDuration   prometheus.Histogram
	tradesTotal        prometheus.Counter
	unitsSkippedTotal  prometheus.Counter
	unitsVetoedTotal   prometheus.Counter
	combinationsTested prometheus.Counter
	scoringDuration    prometheus.Histogram

	// Data cache metrics
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		backtestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sepa_backtests_total",
			Help: "Total number of backtest runs completed",
		}),
		backtestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sepa_backtest_duration_seconds",
			Help:    "Backtest run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		tradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sepa_trades_simulated_total",
			Help: "Total number of simulated trades across all backtests",
		}),
		unitsSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sepa_units_skipped_total",
			Help: "Total number of evaluation units skipped for missing data",
		}),
		unitsVetoedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sepa_units_vetoed_total",
			Help: "Total number of evaluation units excluded by veto rules",
		}),
		combinationsTested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sepa_weight_combinations_tested_total",
			Help: "Total number of weight combinations evaluated by optimizers",
		}),
		scoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sepa_scoring_duration_seconds",
			Help:    "Single-ticker scoring duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sepa_data_cache_hits_total",
			Help: "Total number of market data cache hits",
		}),
		cacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sepa_data_cache_misses_total",
			Help: "Total number of market data cache misses",
		}),
	}

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.unitsSkippedTotal)
	reg.MustRegister(r.unitsVetoedTotal)
	reg.MustRegister(r.combinationsTested)
	reg.MustRegister(r.scoringDuration)
	reg.MustRegister(r.cacheHitsTotal)
	reg.MustRegister(r.cacheMissesTotal)

	return r
}

// Handler exposes the registry in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}

// ObserveBacktest records one completed backtest run.
func (r *Registry) ObserveBacktest(d time.Duration) {
	r.backtestsTotal.Inc()
	r.backtestDuration.Observe(d.Seconds())
}

// ObserveScoring records one scoring call.
func (r *Registry) ObserveScoring(d time.Duration) {
	r.scoringDuration.Observe(d.Seconds())
}

// AddTrades records simulated trades produced by a run.
func (r *Registry) AddTrades(n int) {
	r.tradesTotal.Add(float64(n))
}

// AddSkipped records units skipped for missing data.
func (r *Registry) AddSkipped(n int) {
	r.unitsSkippedTotal.Add(float64(n))
}

// AddVetoed records units excluded by veto rules.
func (r *Registry) AddVetoed(n int) {
	r.unitsVetoedTotal.Add(float64(n))
}

// IncCombinations records one weight combination evaluated.
func (r *Registry) IncCombinations() {
	r.combinationsTested.Inc()
}

// CacheHit records a market data cache hit.
func (r *Registry) CacheHit() {
	r.cacheHitsTotal.Inc()
}

// CacheMiss records a market data cache miss.
func (r *Registry) CacheMiss() {
	r.cacheMissesTotal.Inc()
}
