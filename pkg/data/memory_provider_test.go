package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgeforge/session-backtester/pkg/types"
)

// TestMemoryProvider_AddPointsKeepsOrder verifies points are sorted on insert
func TestMemoryProvider_AddPointsKeepsOrder(t *testing.T) {
	base := time.Date(2024, 3, 6, 3, 0, 0, 0, time.UTC)
	p := NewMemoryProvider()

	p.AddPoints("DAX", []types.PricePoint{
		{Timestamp: base.Add(10 * time.Minute), Price: 102},
		{Timestamp: base, Price: 100},
		{Timestamp: base.Add(5 * time.Minute), Price: 101},
	})

	series, err := p.SessionSeries("DAX", base, base.Add(time.Hour))
	require.NoError(t, err)

	require.Len(t, series.Points, 3)
	assert.Equal(t, 100.0, series.Points[0].Price)
	assert.Equal(t, 101.0, series.Points[1].Price)
	assert.Equal(t, 102.0, series.Points[2].Price)
}

// TestMemoryProvider_SessionSeriesCopies verifies the returned slice is
// independent of the stored data
func TestMemoryProvider_SessionSeriesCopies(t *testing.T) {
	base := time.Date(2024, 3, 6, 3, 0, 0, 0, time.UTC)
	p := NewMemoryProvider()
	p.AddPoints("DAX", []types.PricePoint{{Timestamp: base, Price: 100}})

	series, err := p.SessionSeries("DAX", base, base.Add(time.Hour))
	require.NoError(t, err)
	series.Points[0].Price = -1

	again, err := p.SessionSeries("DAX", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 100.0, again.Points[0].Price)
}

// TestMemoryProvider_Readings verifies volatility readings round-trip by day
func TestMemoryProvider_Readings(t *testing.T) {
	day := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	p := NewMemoryProvider()
	p.SetReading(day, 17.5)

	v, ok, err := p.DailyReading(day)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 17.5, v)

	// Time of day does not matter, only the calendar date.
	v, ok, err = p.DailyReading(day.Add(14 * time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 17.5, v)

	_, ok, err = p.DailyReading(day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestGenerateRandomWalk_Deterministic verifies the same seed reproduces the
// same series
func TestGenerateRandomWalk_Deterministic(t *testing.T) {
	start := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)

	a := GenerateRandomWalk(start, end, 5*time.Minute, 18000, 0.002, 7)
	b := GenerateRandomWalk(start, end, 5*time.Minute, 18000, 0.002, 7)
	c := GenerateRandomWalk(start, end, 5*time.Minute, 18000, 0.002, 8)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	require.NotEmpty(t, a)
	assert.Equal(t, start, a[0].Timestamp)
	for _, pt := range a {
		assert.Greater(t, pt.Price, 0.0)
	}
}
