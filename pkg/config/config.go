package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full run configuration, loaded from a JSON file with
// selected .env overrides.
type Config struct {
	InitialBalance  float64 `json:"initial_balance"`
	BaseFraction    float64 `json:"base_fraction"`
	LeverageCap     float64 `json:"leverage_cap"`
	ExpansionFactor float64 `json:"expansion_factor"`
	DailyLossCap    float64 `json:"daily_loss_cap"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
	CommissionRate  float64 `json:"commission_rate"`
	SlippageRate    float64 `json:"slippage_rate"`
	From            string  `json:"from"` // 2006-01-02
	To              string  `json:"to"`
	Timezone        string  `json:"timezone"`
	Workers         int     `json:"workers"`
	FallbackRegime  bool    `json:"fallback_regime"`

	// ToleratePartialDays skips only the affected session on a data gap
	// instead of aborting the whole day.
	ToleratePartialDays bool `json:"tolerate_partial_days"`

	Data        DataConfig        `json:"data"`
	Strategy    StrategyConfig    `json:"strategy"`
	MonteCarlo  MonteCarloConfig  `json:"monte_carlo"`
	WalkForward WalkForwardConfig `json:"walk_forward"`
	Logging     LoggingConfig     `json:"logging"`
	Metrics     MetricsConfig     `json:"metrics"`
	Report      ReportConfig      `json:"report"`
}

// DataConfig locates the materialized input data.
type DataConfig struct {
	// MarketFiles maps market name to its price CSV.
	MarketFiles map[string]string `json:"market_files"`
	// VolatilityFile is the daily index CSV (date,close).
	VolatilityFile string `json:"volatility_file"`
	// Synthetic replaces file loading with a seeded random walk.
	Synthetic     bool  `json:"synthetic"`
	SyntheticSeed int64 `json:"synthetic_seed"`
}

// StrategyConfig selects and parameterizes the signal strategy.
type StrategyConfig struct {
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params"`
}

// MonteCarloConfig parameterizes the resampling stage.
type MonteCarloConfig struct {
	Enabled   bool    `json:"enabled"`
	Paths     int     `json:"paths"`
	Horizon   int     `json:"horizon"`
	Seed      int64   `json:"seed"`
	Method    string  `json:"method"`
	RuinFloor float64 `json:"ruin_floor"`
}

// WalkForwardConfig parameterizes walk-forward validation.
type WalkForwardConfig struct {
	Enabled       bool                 `json:"enabled"`
	InSampleDays  int                  `json:"in_sample_days"`
	OutSampleDays int                  `json:"out_sample_days"`
	Grid          map[string][]float64 `json:"grid"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// MetricsConfig controls the prometheus endpoint for long batches.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// ReportConfig controls the output artifacts.
type ReportConfig struct {
	OutputDir string `json:"output_dir"`
	CSV       bool   `json:"csv"`
	Excel     bool   `json:"excel"`
	JSON      bool   `json:"json"`
}

// Load reads a JSON config file, applies defaults, then applies environment
// overrides (a .env file is honored when present).
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		InitialBalance:  100000,
		BaseFraction:    0.95,
		LeverageCap:     3,
		ExpansionFactor: 1.25,
		DailyLossCap:    0.087,
		StopLossPct:     0.01,
		TakeProfitPct:   0.02,
		Timezone:        "America/New_York",
		Workers:         1,
		Strategy: StrategyConfig{
			Name:   "opening_range",
			Params: map[string]float64{"range_points": 12},
		},
		MonteCarlo: MonteCarloConfig{
			Paths:     1000,
			Horizon:   252,
			Seed:      42,
			Method:    "bootstrap",
			RuinFloor: 0.5,
		},
		WalkForward: WalkForwardConfig{
			InSampleDays:  126,
			OutSampleDays: 42,
		},
		Logging: LoggingConfig{Level: "info", Pretty: true},
		Metrics: MetricsConfig{Addr: ":9090"},
		Report:  ReportConfig{OutputDir: "results", CSV: true},
	}
}

// applyEnvOverrides layers environment variables over file values. Only
// operational knobs are overridable; simulation parameters stay in the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BACKTEST_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BACKTEST_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("BACKTEST_OUTPUT_DIR"); v != "" {
		c.Report.OutputDir = v
	}
	if v := os.Getenv("BACKTEST_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// FromDate parses the configured start date in the configured timezone.
func (c *Config) FromDate() (time.Time, error) {
	return c.parseDate(c.From)
}

// ToDate parses the configured end date in the configured timezone.
func (c *Config) ToDate() (time.Time, error) {
	return c.parseDate(c.To)
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) parseDate(s string) (time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
