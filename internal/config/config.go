// Package config defines all configuration for the trading bot.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via CROSS_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Run modes.
const (
	ModeBacktest = "backtest"
	ModeLive     = "live"
)

// Averager selection for the aggregator stage.
const (
	AveragerEMA      = "ema"
	AveragerWindowed = "windowed"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Mode     string         `mapstructure:"mode"`
	Pair     PairConfig     `mapstructure:"pair"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	API      APIConfig      `mapstructure:"api"`
	Store    StoreConfig    `mapstructure:"store"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PairConfig names the traded pair. ID is the stable pair identifier
// carried in price events; Base and Quote are the venue currency codes.
type PairConfig struct {
	ID    string `mapstructure:"id"`
	Base  string `mapstructure:"base"`
	Quote string `mapstructure:"quote"`
}

// StrategyConfig tunes the pipeline's decision stages.
//
//   - Averager: "ema" (exponential with warm-up) or "windowed" (arithmetic
//     mean over the trailing window).
//   - Window:   the averaging window W.
//   - Interval: the reporting interval I; the EMA needs W/I points before
//     it starts emitting. Matches the candle cadence in backtests.
//   - Offset:   crossover hysteresis band as a fraction (0.005 = 0.5%).
type StrategyConfig struct {
	Averager string        `mapstructure:"averager"`
	Window   time.Duration `mapstructure:"window"`
	Interval time.Duration `mapstructure:"interval"`
	Offset   float64       `mapstructure:"offset"`
}

// BacktestConfig drives the simulated exchange. StartingQuote also anchors
// the buy-and-hold baseline in the run report.
type BacktestConfig struct {
	CandleFile    string  `mapstructure:"candle_file"`
	Fee           float64 `mapstructure:"fee"`
	StartingQuote float64 `mapstructure:"starting_quote"`
}

// APIConfig holds live venue endpoints and credentials. Credentials are
// normally supplied via CROSS_API_KEY, CROSS_API_SECRET, CROSS_PASSPHRASE.
type APIConfig struct {
	RESTURL    string `mapstructure:"rest_url"`
	WSURL      string `mapstructure:"ws_url"`
	APIKey     string `mapstructure:"api_key"`
	Secret     string `mapstructure:"secret"`
	Passphrase string `mapstructure:"passphrase"`
}

// StoreConfig sets where run reports are persisted (JSON files) and how
// much history to keep. KeepRuns 0 keeps everything.
type StoreConfig struct {
	DataDir  string `mapstructure:"data_dir"`
	KeepRuns int    `mapstructure:"keep_runs"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: CROSS_API_KEY, CROSS_API_SECRET, CROSS_PASSPHRASE.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CROSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", ModeBacktest)
	v.SetDefault("strategy.averager", AveragerEMA)
	v.SetDefault("store.data_dir", "data")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override sensitive fields from env
	if key := os.Getenv("CROSS_API_KEY"); key != "" {
		cfg.API.APIKey = key
	}
	if secret := os.Getenv("CROSS_API_SECRET"); secret != "" {
		cfg.API.Secret = secret
	}
	if pass := os.Getenv("CROSS_PASSPHRASE"); pass != "" {
		cfg.API.Passphrase = pass
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeBacktest, ModeLive:
	default:
		return fmt.Errorf("mode must be %q or %q", ModeBacktest, ModeLive)
	}
	if c.Pair.ID == "" || c.Pair.Base == "" || c.Pair.Quote == "" {
		return fmt.Errorf("pair.id, pair.base and pair.quote are required")
	}
	switch c.Strategy.Averager {
	case AveragerEMA, AveragerWindowed:
	default:
		return fmt.Errorf("strategy.averager must be %q or %q", AveragerEMA, AveragerWindowed)
	}
	if c.Strategy.Window <= 0 {
		return fmt.Errorf("strategy.window must be > 0")
	}
	if c.Strategy.Interval <= 0 || c.Strategy.Interval > c.Strategy.Window {
		return fmt.Errorf("strategy.interval must be > 0 and <= strategy.window")
	}
	if c.Strategy.Offset < 0 || c.Strategy.Offset >= 1 {
		return fmt.Errorf("strategy.offset must be in [0, 1)")
	}
	if c.Store.KeepRuns < 0 {
		return fmt.Errorf("store.keep_runs must be >= 0")
	}

	if c.Mode == ModeBacktest {
		if c.Backtest.CandleFile == "" {
			return fmt.Errorf("backtest.candle_file is required in backtest mode")
		}
		if c.Backtest.Fee < 0 || c.Backtest.Fee >= 1 {
			return fmt.Errorf("backtest.fee must be in [0, 1)")
		}
		if c.Backtest.StartingQuote <= 0 {
			return fmt.Errorf("backtest.starting_quote must be > 0")
		}
		return nil
	}

	if c.API.RESTURL == "" || c.API.WSURL == "" {
		return fmt.Errorf("api.rest_url and api.ws_url are required in live mode")
	}
	if c.API.APIKey == "" || c.API.Secret == "" || c.API.Passphrase == "" {
		return fmt.Errorf("api credentials are required in live mode (set CROSS_API_KEY, CROSS_API_SECRET, CROSS_PASSPHRASE)")
	}
	return nil
}
