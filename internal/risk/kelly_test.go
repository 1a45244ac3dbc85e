package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestKellyFraction_KnownValues checks the closed-form result for textbook
// inputs
func TestKellyFraction_KnownValues(t *testing.T) {
	// p=0.6, b=1: f = (0.6*1 - 0.4) / 1 = 0.2
	assert.InDelta(t, 0.2, KellyFraction(0.6, 1.0), 1e-12)

	// p=0.55, b=2: f = (1.1 - 0.45) / 2 = 0.325
	assert.InDelta(t, 0.325, KellyFraction(0.55, 2.0), 1e-12)
}

// TestKellyFraction_NoEdge verifies a non-positive edge returns zero
func TestKellyFraction_NoEdge(t *testing.T) {
	assert.Equal(t, 0.0, KellyFraction(0.4, 1.0))
	assert.Equal(t, 0.0, KellyFraction(0.5, 1.0))
	assert.Equal(t, 0.0, KellyFraction(0, 2.0))
	assert.Equal(t, 0.0, KellyFraction(1, 2.0))
}

// TestFractionalKelly applies the quarter-Kelly safety factor
func TestFractionalKelly(t *testing.T) {
	assert.InDelta(t, 0.05, FractionalKelly(0.6, 1.0, 0.25), 1e-12)
}

// TestRiskOfRuin_Bounds verifies degenerate probabilities pin the estimate
func TestRiskOfRuin_Bounds(t *testing.T) {
	assert.Equal(t, 1.0, RiskOfRuin(0, 2, 20))
	assert.Equal(t, 0.0, RiskOfRuin(1, 2, 20))
	assert.Equal(t, 1.0, RiskOfRuin(0.4, 1.0, 20), "negative edge ruins with certainty")
	assert.Equal(t, 1.0, RiskOfRuin(0.6, 1.0, 0))
}

// TestRiskOfRuin_PositiveEdge verifies more units means less ruin
func TestRiskOfRuin_PositiveEdge(t *testing.T) {
	few := RiskOfRuin(0.55, 1.5, 5)
	many := RiskOfRuin(0.55, 1.5, 50)

	assert.Greater(t, few, many)
	assert.Greater(t, few, 0.0)
	assert.Less(t, few, 1.0)
}

// TestComputeTradeStats derives win probability and payoff ratio
func TestComputeTradeStats(t *testing.T) {
	stats := ComputeTradeStats([]float64{0.02, -0.01, 0.04, -0.01})

	assert.InDelta(t, 0.5, stats.WinProb, 1e-12)
	assert.InDelta(t, 3.0, stats.PayoffRatio, 1e-12) // avg win 0.03 / avg loss 0.01
}

// TestComputeTradeStats_Empty verifies empty input yields zero stats
func TestComputeTradeStats_Empty(t *testing.T) {
	stats := ComputeTradeStats(nil)
	assert.Equal(t, 0.0, stats.WinProb)
	assert.Equal(t, 0.0, stats.PayoffRatio)
}
