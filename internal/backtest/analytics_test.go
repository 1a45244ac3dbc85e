package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgeforge/session-backtester/pkg/types"
)

func equityCurve(balances ...float64) []types.EquityPoint {
	base := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	curve := make([]types.EquityPoint, len(balances))
	for i, b := range balances {
		curve[i] = types.EquityPoint{Date: base.AddDate(0, 0, i), Balance: b}
	}
	return curve
}

// TestMaxDrawdown_PeakToTrough verifies the largest decline is measured from
// the running peak
func TestMaxDrawdown_PeakToTrough(t *testing.T) {
	curve := equityCurve(100, 120, 90, 150)
	assert.InDelta(t, 0.25, MaxDrawdown(curve), 1e-12) // 120 -> 90
}

// TestMaxDrawdown_MonotonicCurve verifies a rising curve has zero drawdown
func TestMaxDrawdown_MonotonicCurve(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(equityCurve(100, 110, 125)))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

// TestDailyReturns verifies simple fractional returns between points
func TestDailyReturns(t *testing.T) {
	returns := DailyReturns(equityCurve(100, 110, 99))
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, -0.10, returns[1], 1e-12)

	assert.Nil(t, DailyReturns(equityCurve(100)))
	assert.Nil(t, DailyReturns(nil))
}

// TestComputeMetrics_BasicCurve verifies the headline metrics on a small
// hand-checked curve
func TestComputeMetrics_BasicCurve(t *testing.T) {
	curve := equityCurve(100, 120, 90, 150)
	m := ComputeMetrics(curve, nil)

	assert.InDelta(t, 0.5, m.TotalReturn, 1e-12)
	assert.InDelta(t, 0.25, m.MaxDrawdown, 1e-12)
	assert.False(t, Undefined(m.SharpeRatio))
	assert.False(t, Undefined(m.Volatility))
	assert.Equal(t, 0, m.TotalTrades)
}

// TestComputeMetrics_EmptyCurve verifies degenerate inputs yield the NaN
// sentinel, never a zero that reads as a real value
func TestComputeMetrics_EmptyCurve(t *testing.T) {
	m := ComputeMetrics(nil, nil)

	assert.True(t, Undefined(m.TotalReturn))
	assert.True(t, Undefined(m.SharpeRatio))
	assert.True(t, Undefined(m.SortinoRatio))
	assert.True(t, Undefined(m.CalmarRatio))
	assert.True(t, Undefined(m.VaR95))
	assert.Equal(t, 0.0, m.MaxDrawdown)
}

// TestComputeMetrics_ZeroVolatility verifies a flat curve has an undefined
// Sharpe ratio rather than a divide-by-zero
func TestComputeMetrics_ZeroVolatility(t *testing.T) {
	m := ComputeMetrics(equityCurve(100, 100, 100), nil)

	assert.True(t, Undefined(m.SharpeRatio))
	assert.Equal(t, 0.0, m.Volatility)
	assert.InDelta(t, 0.0, m.TotalReturn, 1e-12)
}

// TestComputeMetrics_SortinoNoDownside verifies Sortino is +Inf when every
// return is non-negative
func TestComputeMetrics_SortinoNoDownside(t *testing.T) {
	m := ComputeMetrics(equityCurve(100, 105, 105, 112), nil)
	assert.True(t, math.IsInf(m.SortinoRatio, 1))
}

// TestComputeMetrics_CalmarZeroDrawdown verifies Calmar is +Inf on a curve
// that never draws down
func TestComputeMetrics_CalmarZeroDrawdown(t *testing.T) {
	m := ComputeMetrics(equityCurve(100, 105, 110), nil)
	assert.True(t, math.IsInf(m.CalmarRatio, 1))
}

// TestComputeMetrics_TradeStats verifies win rate and profit factor over a
// mixed trade list
func TestComputeMetrics_TradeStats(t *testing.T) {
	trades := []Trade{
		{PnL: 30, Return: 0.03},
		{PnL: -10, Return: -0.01},
		{PnL: 20, Return: 0.02},
		{PnL: -10, Return: -0.01},
	}
	m := ComputeMetrics(equityCurve(100, 103), trades)

	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 2, m.LosingTrades)
	assert.InDelta(t, 0.5, m.WinRate, 1e-12)
	assert.InDelta(t, 2.5, m.ProfitFactor, 1e-12) // 50 / 20
	assert.Greater(t, m.KellyFraction, 0.0)
	assert.Less(t, m.RiskOfRuin, 1.0)
}

// TestComputeMetrics_ProfitFactorNoLosses verifies an all-winning trade list
// reports an infinite profit factor
func TestComputeMetrics_ProfitFactorNoLosses(t *testing.T) {
	trades := []Trade{{PnL: 10, Return: 0.01}, {PnL: 5, Return: 0.005}}
	m := ComputeMetrics(equityCurve(100, 101), trades)
	assert.True(t, math.IsInf(m.ProfitFactor, 1))
}

// TestPercentile_LinearInterpolation verifies the interpolated percentile on
// known values
func TestPercentile_LinearInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 1.2, percentile(values, 5), 1e-12)
	assert.InDelta(t, 3.0, percentile(values, 50), 1e-12)
	assert.InDelta(t, 5.0, percentile(values, 100), 1e-12)
	assert.Equal(t, 7.0, percentile([]float64{7}, 5))
	assert.True(t, Undefined(percentile(nil, 5)))
}

// TestCVaR_TailMean verifies the expected shortfall averages the tail at or
// below the VaR level
func TestCVaR_TailMean(t *testing.T) {
	returns := []float64{-0.05, -0.03, 0.01, 0.02, 0.04}
	assert.InDelta(t, -0.04, cvar(returns, -0.03), 1e-12)
	assert.InDelta(t, -0.10, cvar(returns, -0.10), 1e-12, "empty tail falls back to the level itself")
}

func benchmarkCurve(n int) []types.EquityPoint {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := make([]types.EquityPoint, n)
	balance := 100000.0
	for i := range curve {
		balance *= 1 + 0.001*float64(i%7-3)
		curve[i] = types.EquityPoint{Date: base.AddDate(0, 0, i), Balance: balance}
	}
	return curve
}

func BenchmarkComputeMetrics(b *testing.B) {
	curve := benchmarkCurve(2520)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ComputeMetrics(curve, nil)
	}
}

func BenchmarkMaxDrawdown(b *testing.B) {
	curve := benchmarkCurve(2520)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MaxDrawdown(curve)
	}
}
