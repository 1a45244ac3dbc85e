package backtest

import (
	"math"
	"sort"

	"github.com/hedgeforge/session-backtester/internal/risk"
	"github.com/hedgeforge/session-backtester/pkg/types"
)

// Metrics summarizes a backtest. Ratio metrics over degenerate inputs (zero
// variance, empty series) are NaN; use Undefined to test for it. Sortino
// with no downside returns and Calmar with zero drawdown are +Inf.
type Metrics struct {
	TotalReturn      float64
	AnnualizedReturn float64
	Volatility       float64
	SharpeRatio      float64
	SortinoRatio     float64
	CalmarRatio      float64
	MaxDrawdown      float64
	VaR95            float64 // 5th percentile daily return
	CVaR95           float64 // mean daily return at or below VaR95
	VaR99            float64
	CVaR99           float64
	WinRate          float64
	ProfitFactor     float64
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	KellyFraction    float64
	RiskOfRuin       float64
}

// Undefined reports whether a metric value is the NaN sentinel.
func Undefined(v float64) bool {
	return math.IsNaN(v)
}

var undefined = math.NaN()

// TradingPeriodsPerYear is the annualization base for daily equity points.
const TradingPeriodsPerYear = 252.0

// ComputeMetrics derives the full metric set from a daily equity curve and
// the realized trades.
func ComputeMetrics(equity []types.EquityPoint, trades []Trade) Metrics {
	m := Metrics{
		TotalReturn:      undefined,
		AnnualizedReturn: undefined,
		Volatility:       undefined,
		SharpeRatio:      undefined,
		SortinoRatio:     undefined,
		CalmarRatio:      undefined,
		VaR95:            undefined,
		CVaR95:           undefined,
		VaR99:            undefined,
		CVaR99:           undefined,
	}

	returns := DailyReturns(equity)
	if len(equity) >= 2 && equity[0].Balance > 0 {
		first, last := equity[0].Balance, equity[len(equity)-1].Balance
		m.TotalReturn = last/first - 1
		// Log-space power keeps extreme compounding finite-safe.
		if last > 0 {
			m.AnnualizedReturn = math.Expm1(TradingPeriodsPerYear / float64(len(returns)) * math.Log(last/first))
		}
	}

	m.MaxDrawdown = MaxDrawdown(equity)

	if len(returns) > 0 {
		mean, std := meanStd(returns)
		m.Volatility = std * math.Sqrt(TradingPeriodsPerYear)

		if std > 0 {
			m.SharpeRatio = mean / std * math.Sqrt(TradingPeriodsPerYear)
		}
		m.SortinoRatio = sortino(returns, mean)
		m.VaR95 = percentile(returns, 5)
		m.CVaR95 = cvar(returns, m.VaR95)
		m.VaR99 = percentile(returns, 1)
		m.CVaR99 = cvar(returns, m.VaR99)
	}

	if !Undefined(m.AnnualizedReturn) {
		if m.MaxDrawdown == 0 {
			m.CalmarRatio = math.Inf(1)
		} else {
			m.CalmarRatio = m.AnnualizedReturn / m.MaxDrawdown
		}
	}

	m.fillTradeStats(trades)
	return m
}

func (m *Metrics) fillTradeStats(trades []Trade) {
	tradeReturns := make([]float64, 0, len(trades))
	grossProfit, grossLoss := 0.0, 0.0
	for _, t := range trades {
		tradeReturns = append(tradeReturns, t.Return)
		if t.PnL > 0 {
			m.WinningTrades++
			grossProfit += t.PnL
		} else if t.PnL < 0 {
			m.LosingTrades++
			grossLoss += -t.PnL
		}
	}
	m.TotalTrades = len(trades)

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	}
	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}

	stats := risk.ComputeTradeStats(tradeReturns)
	m.KellyFraction = risk.KellyFraction(stats.WinProb, stats.PayoffRatio)
	m.RiskOfRuin = risk.RiskOfRuin(stats.WinProb, stats.PayoffRatio, 20)
}

// DailyReturns converts an equity curve into simple fractional returns.
func DailyReturns(equity []types.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Balance
		if prev > 0 {
			returns = append(returns, equity[i].Balance/prev-1)
		}
	}
	return returns
}

// MaxDrawdown is the largest peak-to-trough decline as a positive fraction.
func MaxDrawdown(equity []types.EquityPoint) float64 {
	maxDD := 0.0
	peak := math.Inf(-1)
	for _, p := range equity {
		if p.Balance > peak {
			peak = p.Balance
		}
		if peak > 0 {
			dd := (peak - p.Balance) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func sortino(returns []float64, mean float64) float64 {
	downsideVariance := 0.0
	downsideCount := 0
	for _, r := range returns {
		if r < 0 {
			downsideVariance += r * r
			downsideCount++
		}
	}
	if downsideCount == 0 || downsideVariance == 0 {
		return math.Inf(1)
	}
	downsideStd := math.Sqrt(downsideVariance / float64(downsideCount))
	return mean / downsideStd * math.Sqrt(TradingPeriodsPerYear)
}

func meanStd(values []float64) (mean, std float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// percentile computes the p-th percentile with linear interpolation.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return undefined
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// cvar averages the returns at or below the VaR threshold.
func cvar(returns []float64, varLevel float64) float64 {
	if Undefined(varLevel) {
		return undefined
	}
	sum, n := 0.0, 0
	for _, r := range returns {
		if r <= varLevel {
			sum += r
			n++
		}
	}
	if n == 0 {
		return varLevel
	}
	return sum / float64(n)
}
