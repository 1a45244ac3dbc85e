package regime

import (
	"fmt"
	"math"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
)

// Regime buckets the daily volatility index into a sizing posture.
type Regime int

const (
	RegimeLow Regime = iota
	RegimeNormal
	RegimeElevated
	RegimeCrisis
)

func (r Regime) String() string {
	switch r {
	case RegimeLow:
		return "LOW"
	case RegimeNormal:
		return "NORMAL"
	case RegimeElevated:
		return "ELEVATED"
	case RegimeCrisis:
		return "CRISIS"
	default:
		return "UNKNOWN"
	}
}

// Multiplier is the position-size scaling applied for the whole trading day.
func (r Regime) Multiplier() float64 {
	switch r {
	case RegimeLow:
		return 1.0
	case RegimeNormal:
		return 0.75
	case RegimeElevated:
		return 0.5
	case RegimeCrisis:
		return 0.3
	default:
		return 0
	}
}

// Volatility-index thresholds separating the regimes.
const (
	lowCeiling      = 15.0
	normalCeiling   = 20.0
	elevatedCeiling = 30.0
)

// Classifier maps a daily volatility reading to a regime. The regime is
// classified once per day, before the first session, and held for the day.
type Classifier struct {
	// FallbackOnMissing makes a missing reading classify as NORMAL instead
	// of failing the day. Off by default; enabling it is an explicit,
	// logged configuration decision.
	FallbackOnMissing bool
}

// Classify buckets a volatility value. Non-finite or non-positive values are
// data errors.
func (c *Classifier) Classify(vix float64) (Regime, error) {
	if math.IsNaN(vix) || math.IsInf(vix, 0) || vix <= 0 {
		return RegimeCrisis, simerrors.NewDataError("regime", "classify",
			fmt.Errorf("invalid volatility reading %v", vix))
	}

	switch {
	case vix < lowCeiling:
		return RegimeLow, nil
	case vix < normalCeiling:
		return RegimeNormal, nil
	case vix < elevatedCeiling:
		return RegimeElevated, nil
	default:
		return RegimeCrisis, nil
	}
}

// ClassifyOrFallback applies the configured missing-data policy: when ok is
// false it either returns NORMAL (fallback enabled) or a data error.
func (c *Classifier) ClassifyOrFallback(vix float64, ok bool) (Regime, bool, error) {
	if !ok {
		if c.FallbackOnMissing {
			return RegimeNormal, true, nil
		}
		return RegimeCrisis, false, simerrors.NewDataError("regime", "classify",
			fmt.Errorf("no volatility reading for day"))
	}
	r, err := c.Classify(vix)
	return r, false, err
}
