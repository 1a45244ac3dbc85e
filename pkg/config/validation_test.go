package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.From = "2024-01-02"
	cfg.To = "2024-06-28"
	cfg.Data.Synthetic = true
	return cfg
}

// TestValidate_AcceptsDefaults verifies the default config passes with dates
// and a data source filled in
func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

// TestValidate_RejectsOutOfRangeValues verifies each range check fails fast
func TestValidate_RejectsOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero initial balance", func(c *Config) { c.InitialBalance = 0 }},
		{"negative base fraction", func(c *Config) { c.BaseFraction = -0.5 }},
		{"zero leverage cap", func(c *Config) { c.LeverageCap = 0 }},
		{"expansion factor of one", func(c *Config) { c.ExpansionFactor = 1 }},
		{"daily loss cap of one", func(c *Config) { c.DailyLossCap = 1 }},
		{"zero daily loss cap", func(c *Config) { c.DailyLossCap = 0 }},
		{"stop loss of one", func(c *Config) { c.StopLossPct = 1 }},
		{"zero take profit", func(c *Config) { c.TakeProfitPct = 0 }},
		{"commission above cap", func(c *Config) { c.CommissionRate = 0.02 }},
		{"negative slippage", func(c *Config) { c.SlippageRate = -0.001 }},
		{"missing from date", func(c *Config) { c.From = "" }},
		{"unparseable date", func(c *Config) { c.From = "02/01/2024" }},
		{"to before from", func(c *Config) { c.To = "2023-12-29" }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestValidate_RequiresDataSource verifies file-based runs need market files
func TestValidate_RequiresDataSource(t *testing.T) {
	cfg := validConfig()
	cfg.Data.Synthetic = false
	cfg.Data.MarketFiles = nil
	assert.Error(t, cfg.Validate())

	cfg.Data.MarketFiles = map[string]string{"DAX": "dax.csv"}
	assert.NoError(t, cfg.Validate())
}

// TestValidate_MonteCarloOnlyWhenEnabled verifies MC settings are checked
// only for enabled runs
func TestValidate_MonteCarloOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.MonteCarlo.Paths = 0
	assert.NoError(t, cfg.Validate(), "disabled stage is not validated")

	cfg.MonteCarlo.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.MonteCarlo.Paths = 500
	cfg.MonteCarlo.Method = "quantum"
	assert.Error(t, cfg.Validate())

	cfg.MonteCarlo.Method = "parametric"
	assert.NoError(t, cfg.Validate())
}

// TestValidate_WalkForwardOnlyWhenEnabled verifies WF settings are checked
// only for enabled runs
func TestValidate_WalkForwardOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.WalkForward.Grid = nil
	assert.NoError(t, cfg.Validate())

	cfg.WalkForward.Enabled = true
	assert.Error(t, cfg.Validate(), "enabled walk-forward needs a grid")

	cfg.WalkForward.Grid = map[string][]float64{"range_points": {6, 12, 18}}
	assert.NoError(t, cfg.Validate())

	cfg.WalkForward.Grid["buffer"] = nil
	assert.Error(t, cfg.Validate(), "grid parameter without values")
}

// TestFromToDate_ParseInConfiguredTimezone verifies date parsing respects the
// timezone setting
func TestFromToDate_ParseInConfiguredTimezone(t *testing.T) {
	cfg := validConfig()

	from, err := cfg.FromDate()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", from.Location().String())
	assert.Equal(t, 2024, from.Year())

	cfg.Timezone = "Not/AZone"
	_, err = cfg.FromDate()
	assert.Error(t, err)
}

// TestApplyEnvOverrides verifies operational knobs can be overridden from the
// environment
func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("BACKTEST_LOG_LEVEL", "debug")
	t.Setenv("BACKTEST_WORKERS", "8")
	t.Setenv("BACKTEST_OUTPUT_DIR", "/tmp/out")

	cfg := validConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "/tmp/out", cfg.Report.OutputDir)
}

// TestApplyEnvOverrides_IgnoresBadValues verifies malformed numeric overrides
// are ignored
func TestApplyEnvOverrides_IgnoresBadValues(t *testing.T) {
	t.Setenv("BACKTEST_WORKERS", "many")

	cfg := validConfig()
	cfg.applyEnvOverrides()
	assert.Equal(t, 1, cfg.Workers)
}
