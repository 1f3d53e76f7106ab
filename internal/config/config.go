// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Tickers     []string            `mapstructure:"tickers"`
	Sectors     map[string][]string `mapstructure:"sectors"`
	Data        DataConfig          `mapstructure:"data"`
	Weights     core.Weights        `mapstructure:"weights"`
	Backtest    BacktestConfig      `mapstructure:"backtest"`
	Optimizer   OptimizerConfig     `mapstructure:"optimizer"`
	WalkForward WalkForwardConfig   `mapstructure:"walk_forward"`
	Regime      RegimeConfig        `mapstructure:"regime"`
	Archive     ArchiveConfig       `mapstructure:"archive"`
	Metrics     MetricsConfig       `mapstructure:"metrics"`
}

// DataConfig holds market data source settings.
type DataConfig struct {
	IndexSymbol string        `mapstructure:"index_symbol"`
	CacheDir    string        `mapstructure:"cache_dir"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// BacktestConfig holds simulation settings. Dates use YYYY-MM-DD.
type BacktestConfig struct {
	StartDate              string  `mapstructure:"start_date"`
	EndDate                string  `mapstructure:"end_date"`
	HoldingPeriodDays      int     `mapstructure:"holding_period_days"`
	RebalanceFrequencyDays int     `mapstructure:"rebalance_frequency_days"`
	RiskFreeRate           float64 `mapstructure:"risk_free_rate"`
	Workers                int     `mapstructure:"workers"`
}

// Window parses the configured backtest date range.
func (b BacktestConfig) Window() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", b.StartDate)
	if err != nil {
		return start, end, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("start_date %q: %w", b.StartDate, err))
	}
	end, err = time.Parse("2006-01-02", b.EndDate)
	if err != nil {
		return start, end, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("end_date %q: %w", b.EndDate, err))
	}
	return start, end, nil
}

// OptimizerConfig holds weight search settings.
type OptimizerConfig struct {
	Objective     string             `mapstructure:"objective"`
	Ranges        WeightRangesConfig `mapstructure:"ranges"`
	RandomSamples int                `mapstructure:"random_samples"`
	TargetWinRate float64            `mapstructure:"target_win_rate"`
	Timeout       time.Duration      `mapstructure:"timeout"`
}

// WeightRangesConfig lists candidate weight values per category.
type WeightRangesConfig struct {
	TrendMomentum []float64 `mapstructure:"trend_momentum"`
	Volume        []float64 `mapstructure:"volume"`
	Fundamental   []float64 `mapstructure:"fundamental"`
	MarketContext []float64 `mapstructure:"market_context"`
	Advanced      []float64 `mapstructure:"advanced"`
}

// WalkForwardConfig holds expanding-window validation settings.
type WalkForwardConfig struct {
	TrainYears float64 `mapstructure:"train_years"`
	TestMonths int     `mapstructure:"test_months"`
}

// RegimeConfig holds market regime classification settings.
type RegimeConfig struct {
	MAPeriod int `mapstructure:"ma_period"`
}

// ArchiveConfig holds run artifact archive settings.
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

// S3Config holds S3 archive settings.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Data: DataConfig{
			IndexSymbol: "^GSPC",
			CacheDir:    ".cache/marketdata",
			CacheTTL:    24 * time.Hour,
		},
		Weights: core.DefaultWeights(),
		Backtest: BacktestConfig{
			HoldingPeriodDays:      60,
			RebalanceFrequencyDays: 30,
			RiskFreeRate:           0.02,
			Workers:                4,
		},
		Optimizer: OptimizerConfig{
			Objective:     "win_rate",
			RandomSamples: 100,
			TargetWinRate: 75,
			Timeout:       30 * time.Minute,
		},
		WalkForward: WalkForwardConfig{
			TrainYears: 2,
			TestMonths: 6,
		},
		Regime: RegimeConfig{
			MAPeriod: 200,
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "runs",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}

	if c.Backtest.HoldingPeriodDays <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("holding_period_days must be positive, got %d", c.Backtest.HoldingPeriodDays))
	}
	if c.Backtest.RebalanceFrequencyDays <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rebalance_frequency_days must be positive, got %d", c.Backtest.RebalanceFrequencyDays))
	}
	if c.Backtest.RiskFreeRate < 0 || c.Backtest.RiskFreeRate > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk_free_rate must be a fraction between 0 and 1, got %f", c.Backtest.RiskFreeRate))
	}
	if c.Backtest.Workers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("workers cannot be negative, got %d", c.Backtest.Workers))
	}

	switch c.Optimizer.Objective {
	case "win_rate", "avg_return", "sharpe_ratio":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("objective must be win_rate, avg_return or sharpe_ratio, got %q", c.Optimizer.Objective))
	}

	if c.Optimizer.TargetWinRate <= 0 || c.Optimizer.TargetWinRate > 100 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("target_win_rate must be between 0 and 100, got %f", c.Optimizer.TargetWinRate))
	}

	if c.WalkForward.TrainYears <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("train_years must be positive, got %f", c.WalkForward.TrainYears))
	}
	if c.WalkForward.TestMonths <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("test_months must be positive, got %d", c.WalkForward.TestMonths))
	}

	if c.Regime.MAPeriod <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("ma_period must be positive, got %d", c.Regime.MAPeriod))
	}

	switch c.Archive.Type {
	case "", "localfs":
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("archive type must be localfs or s3, got %q", c.Archive.Type))
	}

	return nil
}
