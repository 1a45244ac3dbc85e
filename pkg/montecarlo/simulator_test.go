package montecarlo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgeforge/session-backtester/internal/logger"
)

var testReturns = []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02, -0.005, 0.008}

func testConfig() Config {
	return Config{
		Paths:          200,
		Horizon:        50,
		Seed:           42,
		Method:         MethodBootstrap,
		InitialBalance: 100000,
		RuinFloor:      0.5,
		Workers:        4,
	}
}

// TestRun_SameSeedIsBitIdentical verifies two runs with the same seed produce
// exactly the same distribution
func TestRun_SameSeedIsBitIdentical(t *testing.T) {
	sim, err := New(testConfig(), logger.Nop())
	require.NoError(t, err)

	first, err := sim.Run(context.Background(), testReturns)
	require.NoError(t, err)
	second, err := sim.Run(context.Background(), testReturns)
	require.NoError(t, err)

	assert.Equal(t, first.TerminalBalances, second.TerminalBalances)
	assert.Equal(t, first.BandP50, second.BandP50)
	assert.Equal(t, first.MaxDrawdowns, second.MaxDrawdowns)
	assert.Equal(t, first.RiskOfRuin, second.RiskOfRuin)
}

// TestRun_WorkerCountDoesNotChangeResults verifies per-path seeding decouples
// the outcome from goroutine scheduling
func TestRun_WorkerCountDoesNotChangeResults(t *testing.T) {
	single := testConfig()
	single.Workers = 1
	many := testConfig()
	many.Workers = 8

	simSingle, err := New(single, logger.Nop())
	require.NoError(t, err)
	simMany, err := New(many, logger.Nop())
	require.NoError(t, err)

	a, err := simSingle.Run(context.Background(), testReturns)
	require.NoError(t, err)
	b, err := simMany.Run(context.Background(), testReturns)
	require.NoError(t, err)

	assert.Equal(t, a.TerminalBalances, b.TerminalBalances)
	assert.Equal(t, a.BandP5, b.BandP5)
	assert.Equal(t, a.BandP95, b.BandP95)
}

// TestRun_DifferentSeedsDiffer verifies the seed actually drives the draw
func TestRun_DifferentSeedsDiffer(t *testing.T) {
	cfgA := testConfig()
	cfgB := testConfig()
	cfgB.Seed = 43

	simA, err := New(cfgA, logger.Nop())
	require.NoError(t, err)
	simB, err := New(cfgB, logger.Nop())
	require.NoError(t, err)

	a, err := simA.Run(context.Background(), testReturns)
	require.NoError(t, err)
	b, err := simB.Run(context.Background(), testReturns)
	require.NoError(t, err)

	assert.NotEqual(t, a.TerminalBalances, b.TerminalBalances)
}

// TestRun_InputNeverMutated verifies the observed returns survive a run
// untouched
func TestRun_InputNeverMutated(t *testing.T) {
	input := make([]float64, len(testReturns))
	copy(input, testReturns)

	sim, err := New(testConfig(), logger.Nop())
	require.NoError(t, err)
	_, err = sim.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, testReturns, input)
}

// TestRun_BandsStartAtInitialBalance verifies band index 0 and ordering
func TestRun_BandsStartAtInitialBalance(t *testing.T) {
	sim, err := New(testConfig(), logger.Nop())
	require.NoError(t, err)

	res, err := sim.Run(context.Background(), testReturns)
	require.NoError(t, err)

	require.Len(t, res.BandP50, 51)
	assert.Equal(t, 100000.0, res.BandP5[0])
	assert.Equal(t, 100000.0, res.BandP50[0])
	assert.Equal(t, 100000.0, res.BandP95[0])

	for day := range res.BandP50 {
		assert.LessOrEqual(t, res.BandP5[day], res.BandP50[day], "day %d", day)
		assert.LessOrEqual(t, res.BandP50[day], res.BandP95[day], "day %d", day)
	}
}

// TestRun_BootstrapOfConstantReturns verifies resampling a constant series is
// fully deterministic
func TestRun_BootstrapOfConstantReturns(t *testing.T) {
	cfg := testConfig()
	cfg.Paths = 20
	cfg.Horizon = 10
	sim, err := New(cfg, logger.Nop())
	require.NoError(t, err)

	res, err := sim.Run(context.Background(), []float64{0.01})
	require.NoError(t, err)

	want := 100000.0
	for i := 0; i < 10; i++ {
		want *= 1.01
	}
	for _, terminal := range res.TerminalBalances {
		assert.InDelta(t, want, terminal, 1e-6)
	}
	assert.Equal(t, 1.0, res.ProbProfit)
	assert.Equal(t, 0.0, res.RiskOfRuin)
	assert.Equal(t, 0.0, res.WorstMaxDrawdown)
}

// TestRun_ParametricRejectsZeroVariance verifies the normal fit refuses a
// degenerate series
func TestRun_ParametricRejectsZeroVariance(t *testing.T) {
	cfg := testConfig()
	cfg.Method = MethodParametric
	sim, err := New(cfg, logger.Nop())
	require.NoError(t, err)

	_, err = sim.Run(context.Background(), []float64{0.01, 0.01, 0.01})
	assert.Error(t, err)
}

// TestRun_ParametricProducesPaths verifies the normal-fit path end to end
func TestRun_ParametricProducesPaths(t *testing.T) {
	cfg := testConfig()
	cfg.Method = MethodParametric
	sim, err := New(cfg, logger.Nop())
	require.NoError(t, err)

	res, err := sim.Run(context.Background(), testReturns)
	require.NoError(t, err)
	assert.Len(t, res.TerminalBalances, cfg.Paths)
	assert.Equal(t, MethodParametric, res.Method)
}

// TestRun_EmptyReturns verifies an empty series is a stats error
func TestRun_EmptyReturns(t *testing.T) {
	sim, err := New(testConfig(), logger.Nop())
	require.NoError(t, err)

	_, err = sim.Run(context.Background(), nil)
	assert.Error(t, err)
}

// TestRun_CancellationReturnsError verifies a canceled context aborts the run
func TestRun_CancellationReturnsError(t *testing.T) {
	cfg := testConfig()
	cfg.Paths = 100000
	sim, err := New(cfg, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sim.Run(ctx, testReturns)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRun_RuinDetection verifies paths that touch the ruin floor are counted
func TestRun_RuinDetection(t *testing.T) {
	cfg := testConfig()
	cfg.Paths = 50
	cfg.Horizon = 30
	cfg.RuinFloor = 0.9
	sim, err := New(cfg, logger.Nop())
	require.NoError(t, err)

	// Heavily negative returns: every path collapses through 90% of start.
	res, err := sim.Run(context.Background(), []float64{-0.1, -0.15, -0.2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.RiskOfRuin)
	assert.Equal(t, 0.0, res.ProbProfit)
}

// TestNew_Validation verifies configuration rejections
func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero paths", func(c *Config) { c.Paths = 0 }},
		{"zero horizon", func(c *Config) { c.Horizon = 0 }},
		{"unknown method", func(c *Config) { c.Method = "quantum" }},
		{"zero initial balance", func(c *Config) { c.InitialBalance = 0 }},
		{"ruin floor of one", func(c *Config) { c.RuinFloor = 1 }},
		{"negative ruin floor", func(c *Config) { c.RuinFloor = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, logger.Nop())
			assert.Error(t, err)
		})
	}
}
