// FILE: config.go
// Package config – the runtime configuration model and its validation.
//
// The recognised sections follow the external contract: trading,
// optimization, backtesting, monitoring. Config-file parsing itself (TOML/
// JSON/YAML) and the CLI surface are out of scope; this struct is meant to
// be populated from the environment (see env.go) by an external
// collaborator, or built directly by callers embedding this package.
package config

import (
	"fmt"

	"github.com/cryptomegabyte/gridsim/internal/errs"
)

// OptimizerStrategy names the available parameter-generation strategies.
type OptimizerStrategy string

const (
	StrategyGridSearch       OptimizerStrategy = "grid-search"
	StrategyRandomSearch     OptimizerStrategy = "random-search"
	StrategyGeneticAlgorithm OptimizerStrategy = "genetic-algorithm"
)

// TradingConfig is the "trading" configuration section.
type TradingConfig struct {
	DefaultCapital      float64
	DefaultGridLevels   int
	DefaultGridSpacing  float64
	MaxPositionSize     float64 // fraction of portfolio value, (0,1]
	MaxDrawdown         float64 // fraction, e.g. 0.15
	StopLoss            float64 // fraction
}

// OptimizationConfig is the "optimization" configuration section.
type OptimizationConfig struct {
	DefaultIterations  int
	DefaultStrategy    OptimizerStrategy
	TargetMetric       string
	GridLevelsRange    [2]int
	GridSpacingRange   [2]float64
}

// BacktestingConfig is the "backtesting" configuration section.
type BacktestingConfig struct {
	DefaultLookbackDays int
	TransactionFeePct   float64
	SlippageBps         float64
}

// MonitoringConfig is the "monitoring" configuration section.
type MonitoringConfig struct {
	CheckIntervalSeconds int
	LogLevel             string
	LogDir               string
}

// Config is the aggregate of all recognised sections plus the ambient
// knobs (rate limiting, REST/WS endpoints, strategy/journal directories)
// this implementation needs to run.
type Config struct {
	Pair            string
	TimeframeMin    int
	Trading         TradingConfig
	Optimization    OptimizationConfig
	Backtesting     BacktestingConfig
	Monitoring      MonitoringConfig
	RateLimitPerMin int
	RESTBaseURL     string
	WSURL           string
	StrategyDir     string
	JournalDir      string
	Port            int
}

// FromEnv populates a Config from the process environment, applying
// sensible defaults for every unset variable. Call LoadEnvFile first if
// a .env file should seed the environment.
func FromEnv() Config {
	return Config{
		Pair:         getEnv("GRIDSIM_PAIR", "XRPGBP"),
		TimeframeMin: getEnvInt("GRIDSIM_TIMEFRAME_MIN", 60),
		Trading: TradingConfig{
			DefaultCapital:     getEnvFloat("GRIDSIM_CAPITAL", 10000.0),
			DefaultGridLevels:  getEnvInt("GRIDSIM_GRID_LEVELS", 5),
			DefaultGridSpacing: getEnvFloat("GRIDSIM_GRID_SPACING", 0.01),
			MaxPositionSize:    getEnvFloat("GRIDSIM_MAX_POSITION_PCT", 0.25),
			MaxDrawdown:        getEnvFloat("GRIDSIM_MAX_DRAWDOWN_PCT", 0.15),
			StopLoss:           getEnvFloat("GRIDSIM_STOP_LOSS_PCT", 0.05),
		},
		Optimization: OptimizationConfig{
			DefaultIterations: getEnvInt("GRIDSIM_OPTIMIZER_ITERATIONS", 200),
			DefaultStrategy:   OptimizerStrategy(getEnv("GRIDSIM_OPTIMIZER_STRATEGY", string(StrategyGeneticAlgorithm))),
			TargetMetric:      getEnv("GRIDSIM_TARGET_METRIC", "composite_score"),
			GridLevelsRange:   [2]int{3, 15},
			GridSpacingRange:  [2]float64{0.005, 0.05},
		},
		Backtesting: BacktestingConfig{
			DefaultLookbackDays: getEnvInt("GRIDSIM_LOOKBACK_DAYS", 90),
			TransactionFeePct:   getEnvFloat("GRIDSIM_TAKER_FEE_BPS", 26.0) / 10000.0,
			SlippageBps:         getEnvFloat("GRIDSIM_BASE_SLIPPAGE_BPS", 2.5),
		},
		Monitoring: MonitoringConfig{
			CheckIntervalSeconds: getEnvInt("GRIDSIM_CHECK_INTERVAL_SEC", 10),
			LogLevel:             getEnv("GRIDSIM_LOG_LEVEL", "info"),
			LogDir:               getEnv("GRIDSIM_JOURNAL_DIR", "logs"),
		},
		RateLimitPerMin: getEnvInt("GRIDSIM_RATE_LIMIT_PER_MIN", 60),
		RESTBaseURL:     getEnv("GRIDSIM_REST_BASE_URL", ""),
		WSURL:           getEnv("GRIDSIM_WS_URL", ""),
		StrategyDir:     getEnv("GRIDSIM_STRATEGY_DIR", "strategies"),
		JournalDir:      getEnv("GRIDSIM_JOURNAL_DIR", "logs"),
		Port:            getEnvInt("GRIDSIM_PORT", 9090),
	}
}

// Validate enforces numeric-sanity rules on the config. requireLiveCreds
// gates the non-placeholder-credential check that only applies to live
// mode.
func (c Config) Validate(requireLiveCreds bool, apiKey string) error {
	if c.Trading.DefaultGridSpacing <= 0 || c.Trading.DefaultGridSpacing >= 1 {
		return errs.New(errs.Validation, false, fmt.Errorf("grid_spacing must be in (0,1), got %v", c.Trading.DefaultGridSpacing))
	}
	if c.Trading.MaxPositionSize <= 0 || c.Trading.MaxPositionSize > 1 {
		return errs.New(errs.Validation, false, fmt.Errorf("max_position_size must be in (0,1], got %v", c.Trading.MaxPositionSize))
	}
	if c.Trading.DefaultCapital <= 0 {
		return errs.New(errs.Configuration, false, fmt.Errorf("default_capital must be positive"))
	}
	if c.Trading.DefaultGridLevels < 2 {
		return errs.New(errs.Validation, false, fmt.Errorf("grid levels must be >= 2, got %d", c.Trading.DefaultGridLevels))
	}
	if c.RateLimitPerMin <= 0 {
		return errs.New(errs.Configuration, false, fmt.Errorf("rate_limit_per_min must be positive"))
	}
	if requireLiveCreds {
		if apiKey == "" || apiKey == "YOUR_API_KEY_HERE" || apiKey == "placeholder" {
			return errs.New(errs.Configuration, false, fmt.Errorf("live trading requires a non-placeholder API key"))
		}
	}
	return nil
}
