package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgeforge/session-backtester/pkg/types"
)

func seriesFromPrices(t *testing.T, prices []float64) *types.SessionSeries {
	t.Helper()
	base := time.Date(2024, 3, 6, 3, 0, 0, 0, time.UTC)
	points := make([]types.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = types.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Price: p}
	}
	return &types.SessionSeries{Market: "DAX", Date: base, Points: points}
}

// TestOpeningRange_BreakoutLong verifies a close above the opening range
// produces a single long entry
func TestOpeningRange_BreakoutLong(t *testing.T) {
	strat, err := NewOpeningRange(3, 0)
	require.NoError(t, err)

	series := seriesFromPrices(t, []float64{100, 102, 101, 101.5, 103, 105})
	signals, err := strat.Signals(series)
	require.NoError(t, err)

	require.Len(t, signals, 1)
	assert.Equal(t, ActionEnterLong, signals[0].Action)
	// Range high is 102; the first close above it is the 103 print.
	assert.Equal(t, series.Points[4].Timestamp, signals[0].Timestamp)
}

// TestOpeningRange_BreakdownShort verifies a close below the opening range
// produces a single short entry
func TestOpeningRange_BreakdownShort(t *testing.T) {
	strat, err := NewOpeningRange(3, 0)
	require.NoError(t, err)

	series := seriesFromPrices(t, []float64{100, 102, 101, 100.5, 99, 97})
	signals, err := strat.Signals(series)
	require.NoError(t, err)

	require.Len(t, signals, 1)
	assert.Equal(t, ActionEnterShort, signals[0].Action)
	assert.Equal(t, series.Points[4].Timestamp, signals[0].Timestamp)
}

// TestOpeningRange_NoBreakout verifies a range-bound session stands aside
func TestOpeningRange_NoBreakout(t *testing.T) {
	strat, err := NewOpeningRange(3, 0)
	require.NoError(t, err)

	series := seriesFromPrices(t, []float64{100, 102, 101, 101.5, 100.5, 101})
	signals, err := strat.Signals(series)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

// TestOpeningRange_BufferWidensLevels verifies a marginal breakout inside the
// buffer is ignored
func TestOpeningRange_BufferWidensLevels(t *testing.T) {
	strat, err := NewOpeningRange(3, 0.01)
	require.NoError(t, err)

	// Range 100..102, mid 101, upper level 102 + 1.01 = 103.01.
	series := seriesFromPrices(t, []float64{100, 102, 101, 103, 103.005})
	signals, err := strat.Signals(series)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

// TestOpeningRange_SessionTooShort verifies a session shorter than the range
// window yields no signal and no error
func TestOpeningRange_SessionTooShort(t *testing.T) {
	strat, err := NewOpeningRange(12, 0)
	require.NoError(t, err)

	series := seriesFromPrices(t, []float64{100, 101, 102})
	signals, err := strat.Signals(series)
	assert.NoError(t, err)
	assert.Empty(t, signals)
}

// TestOpeningRange_EmptySeries verifies an empty session is a data error
func TestOpeningRange_EmptySeries(t *testing.T) {
	strat, err := NewOpeningRange(3, 0)
	require.NoError(t, err)

	_, err = strat.Signals(&types.SessionSeries{Market: "DAX"})
	assert.Error(t, err)

	_, err = strat.Signals(nil)
	assert.Error(t, err)
}

// TestOpeningRangeFactory verifies parameter mapping and defaults
func TestOpeningRangeFactory(t *testing.T) {
	strat, err := OpeningRangeFactory(map[string]float64{"range_points": 6})
	require.NoError(t, err)
	assert.Equal(t, "opening_range_6", strat.GetName())

	strat, err = OpeningRangeFactory(nil)
	require.NoError(t, err)
	assert.Equal(t, "opening_range_12", strat.GetName())

	_, err = OpeningRangeFactory(map[string]float64{"range_points": 1})
	assert.Error(t, err)
}
