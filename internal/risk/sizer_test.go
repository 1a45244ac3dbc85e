package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSizer_MultiplierChain verifies balance x base x regime x expansion
func TestSizer_MultiplierChain(t *testing.T) {
	sizer, err := NewSizer(0.95, 3)
	require.NoError(t, err)

	notional := sizer.Size(1000, 0.75, 1.25)
	assert.InDelta(t, 1000*0.95*0.75*1.25, notional, 1e-9)
}

// TestSizer_LeverageCapClamps verifies the notional never exceeds the cap
func TestSizer_LeverageCapClamps(t *testing.T) {
	sizer, err := NewSizer(2.5, 2)
	require.NoError(t, err)

	notional := sizer.Size(1000, 1.0, 1.25)
	assert.Equal(t, 2000.0, notional, "clamped at leverage cap x balance")
}

// TestSizer_NonPositiveBalance verifies a depleted balance sizes to zero
func TestSizer_NonPositiveBalance(t *testing.T) {
	sizer, err := NewSizer(0.95, 3)
	require.NoError(t, err)

	assert.Equal(t, 0.0, sizer.Size(0, 1.0, 1.0))
	assert.Equal(t, 0.0, sizer.Size(-50, 1.0, 1.0))
}

// TestNewSizer_Validation verifies constructor rejections
func TestNewSizer_Validation(t *testing.T) {
	_, err := NewSizer(0, 3)
	assert.Error(t, err)

	_, err = NewSizer(0.95, 0)
	assert.Error(t, err)
}
