package regime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClassifier_Thresholds verifies the regime buckets including the exact
// boundary values
func TestClassifier_Thresholds(t *testing.T) {
	tests := []struct {
		name string
		vix  float64
		want Regime
	}{
		{"deep low", 10.0, RegimeLow},
		{"just under low ceiling", 14.99, RegimeLow},
		{"exactly 15 is normal", 15.0, RegimeNormal},
		{"mid normal", 18.0, RegimeNormal},
		{"exactly 20 is elevated", 20.0, RegimeElevated},
		{"mid elevated", 25.0, RegimeElevated},
		{"exactly 30 is crisis", 30.0, RegimeCrisis},
		{"deep crisis", 80.0, RegimeCrisis},
	}

	c := &Classifier{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.vix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestClassifier_InvalidReadings verifies non-finite and non-positive values
// are rejected
func TestClassifier_InvalidReadings(t *testing.T) {
	c := &Classifier{}

	for _, vix := range []float64{0, -5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := c.Classify(vix)
		assert.Error(t, err, "vix=%v", vix)
	}
}

// TestRegime_Multipliers verifies the sizing multiplier per regime
func TestRegime_Multipliers(t *testing.T) {
	assert.Equal(t, 1.0, RegimeLow.Multiplier())
	assert.Equal(t, 0.75, RegimeNormal.Multiplier())
	assert.Equal(t, 0.5, RegimeElevated.Multiplier())
	assert.Equal(t, 0.3, RegimeCrisis.Multiplier())
}

// TestClassifyOrFallback_MissingReading verifies the missing-data policy in
// both configurations
func TestClassifyOrFallback_MissingReading(t *testing.T) {
	strict := &Classifier{}
	_, fellBack, err := strict.ClassifyOrFallback(0, false)
	assert.Error(t, err)
	assert.False(t, fellBack)

	lenient := &Classifier{FallbackOnMissing: true}
	r, fellBack, err := lenient.ClassifyOrFallback(0, false)
	require.NoError(t, err)
	assert.True(t, fellBack)
	assert.Equal(t, RegimeNormal, r)
}

// TestClassifyOrFallback_PresentReading verifies a present reading classifies
// normally regardless of the fallback setting
func TestClassifyOrFallback_PresentReading(t *testing.T) {
	c := &Classifier{FallbackOnMissing: true}
	r, fellBack, err := c.ClassifyOrFallback(32.0, true)
	require.NoError(t, err)
	assert.False(t, fellBack)
	assert.Equal(t, RegimeCrisis, r)
}

// TestRegime_String verifies the display names used in reports
func TestRegime_String(t *testing.T) {
	assert.Equal(t, "LOW", RegimeLow.String())
	assert.Equal(t, "NORMAL", RegimeNormal.String())
	assert.Equal(t, "ELEVATED", RegimeElevated.String())
	assert.Equal(t, "CRISIS", RegimeCrisis.String())
}
