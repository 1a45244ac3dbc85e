package risk

import "math"

// Analytic risk toolkit reported alongside backtest metrics. These are
// descriptive statistics over realized trade outcomes, not sizing inputs.

// KellyFraction returns the full-Kelly bet fraction f = (p*b - q) / b for
// win probability p and payoff ratio b (avg win / avg loss). Non-positive
// edge returns 0.
func KellyFraction(winProb, payoffRatio float64) float64 {
	if winProb <= 0 || winProb >= 1 || payoffRatio <= 0 {
		return 0
	}
	f := (winProb*payoffRatio - (1 - winProb)) / payoffRatio
	if f < 0 {
		return 0
	}
	return f
}

// FractionalKelly scales the full-Kelly fraction by a safety factor,
// conventionally 0.25.
func FractionalKelly(winProb, payoffRatio, safety float64) float64 {
	return KellyFraction(winProb, payoffRatio) * safety
}

// RiskOfRuin estimates the probability of losing ruinUnits risk units using
// the gambler's-ruin approximation ((q / (p*b)) ^ units. A non-positive edge
// returns 1.
func RiskOfRuin(winProb, payoffRatio float64, ruinUnits int) float64 {
	if ruinUnits <= 0 {
		return 1
	}
	if winProb <= 0 {
		return 1
	}
	if winProb >= 1 {
		return 0
	}
	edge := winProb*payoffRatio - (1 - winProb)
	if edge <= 0 {
		return 1
	}
	ratio := (1 - winProb) / (winProb * payoffRatio)
	return math.Min(1, math.Pow(ratio, float64(ruinUnits)))
}

// TradeStats summarizes realized trade outcomes for the risk toolkit.
type TradeStats struct {
	WinProb     float64
	PayoffRatio float64
}

// ComputeTradeStats derives win probability and payoff ratio from a list of
// per-trade returns. Flat trades count as losses for win probability and are
// excluded from the payoff ratio.
func ComputeTradeStats(returns []float64) TradeStats {
	if len(returns) == 0 {
		return TradeStats{}
	}

	wins, losses := 0, 0
	winSum, lossSum := 0.0, 0.0
	for _, r := range returns {
		if r > 0 {
			wins++
			winSum += r
		} else if r < 0 {
			losses++
			lossSum += -r
		}
	}

	stats := TradeStats{WinProb: float64(wins) / float64(len(returns))}
	if wins > 0 && losses > 0 {
		stats.PayoffRatio = (winSum / float64(wins)) / (lossSum / float64(losses))
	}
	return stats
}
