package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/newthinker/sepa/internal/core"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
tickers:
  - AAPL
  - MSFT

data:
  index_symbol: "^GSPC"
  cache_dir: "/tmp/sepa/cache"
  cache_ttl: 12h

weights:
  trend_momentum: 0.35
  volume: 0.10
  fundamental: 0.22
  market_context: 0.18
  advanced: 0.15

backtest:
  start_date: "2020-01-01"
  end_date: "2023-01-01"
  holding_period_days: 90

archive:
  type: localfs
  path: "/tmp/sepa/runs"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Tickers) != 2 {
		t.Errorf("expected 2 tickers, got %d", len(cfg.Tickers))
	}
	if cfg.Weights.TrendMomentum != 0.35 {
		t.Errorf("expected trend weight 0.35, got %f", cfg.Weights.TrendMomentum)
	}
	if cfg.Backtest.HoldingPeriodDays != 90 {
		t.Errorf("expected holding period 90, got %d", cfg.Backtest.HoldingPeriodDays)
	}
	// Unset fields keep their defaults
	if cfg.Backtest.RebalanceFrequencyDays != 30 {
		t.Errorf("expected default rebalance 30, got %d", cfg.Backtest.RebalanceFrequencyDays)
	}
	if cfg.Archive.Path != "/tmp/sepa/runs" {
		t.Errorf("expected archive path override, got %s", cfg.Archive.Path)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Weights != core.DefaultWeights() {
		t.Errorf("expected default weights, got %+v", cfg.Weights)
	}
	if cfg.Backtest.HoldingPeriodDays != 60 {
		t.Errorf("expected default holding period 60, got %d", cfg.Backtest.HoldingPeriodDays)
	}
	if cfg.Data.IndexSymbol != "^GSPC" {
		t.Errorf("expected default index ^GSPC, got %s", cfg.Data.IndexSymbol)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return Defaults() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad weights", func(c *Config) { c.Weights.TrendMomentum = 0.9 }, true},
		{"zero holding period", func(c *Config) { c.Backtest.HoldingPeriodDays = 0 }, true},
		{"zero rebalance", func(c *Config) { c.Backtest.RebalanceFrequencyDays = 0 }, true},
		{"risk free rate too large", func(c *Config) { c.Backtest.RiskFreeRate = 2 }, true},
		{"unknown objective", func(c *Config) { c.Optimizer.Objective = "sortino" }, true},
		{"zero train years", func(c *Config) { c.WalkForward.TrainYears = 0 }, true},
		{"zero ma period", func(c *Config) { c.Regime.MAPeriod = 0 }, true},
		{"s3 without bucket", func(c *Config) { c.Archive.Type = "s3" }, true},
		{"s3 with bucket", func(c *Config) {
			c.Archive.Type = "s3"
			c.Archive.S3.Bucket = "sepa-runs"
		}, false},
		{"unknown archive type", func(c *Config) { c.Archive.Type = "ftp" }, true},
		{"zero target win rate", func(c *Config) { c.Optimizer.TargetWinRate = 0 }, true},
		{"target win rate over 100", func(c *Config) { c.Optimizer.TargetWinRate = 120 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBacktestConfig_Window(t *testing.T) {
	b := BacktestConfig{StartDate: "2020-01-01", EndDate: "2023-01-01"}
	start, end, err := b.Window()
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if !end.After(start) {
		t.Error("expected end after start")
	}

	if _, _, err := (BacktestConfig{StartDate: "bad", EndDate: "2023-01-01"}).Window(); err == nil {
		t.Error("expected error for malformed start date")
	}
}

func TestSaveLoadWeights(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "weights.yaml")

	w := core.Weights{
		TrendMomentum: 0.35,
		Volume:        0.10,
		Fundamental:   0.22,
		MarketContext: 0.18,
		Advanced:      0.15,
	}
	if err := SaveWeights(path, w, nil, nil); err != nil {
		t.Fatalf("SaveWeights failed: %v", err)
	}

	doc, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("LoadWeights failed: %v", err)
	}
	if doc.Weights != w {
		t.Errorf("round trip mismatch: %+v", doc.Weights)
	}
	if doc.BullMarket != nil || doc.BearMarket != nil {
		t.Error("expected no regime sections")
	}
}

func TestSaveLoadWeights_RegimeSections(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "weights.yaml")

	bull := core.Weights{TrendMomentum: 0.40, Volume: 0.15, Fundamental: 0.15, MarketContext: 0.15, Advanced: 0.15}
	bear := core.Weights{TrendMomentum: 0.20, Volume: 0.10, Fundamental: 0.35, MarketContext: 0.20, Advanced: 0.15}

	if err := SaveWeights(path, core.DefaultWeights(), &bull, &bear); err != nil {
		t.Fatalf("SaveWeights failed: %v", err)
	}

	doc, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("LoadWeights failed: %v", err)
	}
	if doc.BullMarket == nil || *doc.BullMarket != bull {
		t.Errorf("bull section mismatch: %+v", doc.BullMarket)
	}
	if doc.BearMarket == nil || *doc.BearMarket != bear {
		t.Errorf("bear section mismatch: %+v", doc.BearMarket)
	}
}

func TestSaveLoadSectorWeights(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sector_weights.yaml")

	sectors := map[string]SectorWeights{
		"technology": {
			Weights:        core.Weights{TrendMomentum: 0.40, Volume: 0.15, Fundamental: 0.15, MarketContext: 0.15, Advanced: 0.15},
			WinRatePct:     78.5,
			AvgReturnPct:   2.1,
			ImprovementPct: 6.0,
		},
		"energy": {
			Weights:    core.DefaultWeights(),
			WinRatePct: 61.0,
		},
	}

	if err := SaveSectorWeights(path, sectors); err != nil {
		t.Fatalf("SaveSectorWeights failed: %v", err)
	}

	doc, err := LoadSectorWeights(path)
	if err != nil {
		t.Fatalf("LoadSectorWeights failed: %v", err)
	}
	if len(doc.Sectors) != 2 {
		t.Fatalf("got %d sectors, want 2", len(doc.Sectors))
	}
	tech := doc.Sectors["technology"]
	if tech.Weights.TrendMomentum != 0.40 {
		t.Errorf("trend weight = %v, want 0.40", tech.Weights.TrendMomentum)
	}
	if tech.WinRatePct != 78.5 || tech.ImprovementPct != 6.0 {
		t.Errorf("performance mismatch: %+v", tech)
	}
}

func TestLoadSectorWeights_InvalidWeights(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sector_weights.yaml")

	bad := map[string]SectorWeights{
		"technology": {Weights: core.Weights{TrendMomentum: 0.9, Volume: 0.9}},
	}
	if err := SaveSectorWeights(path, bad); err != nil {
		t.Fatalf("SaveSectorWeights failed: %v", err)
	}
	if _, err := LoadSectorWeights(path); err == nil {
		t.Error("expected validation error for invalid sector weights")
	}
}
