package strategy

import (
	"fmt"
	"math"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
	"github.com/hedgeforge/session-backtester/pkg/types"
)

// OpeningRange is the baseline breakout strategy: it watches the first
// rangePoints observations of a session, then enters in the direction of the
// first close beyond that range. At most one entry per session; the
// simulator handles every exit.
type OpeningRange struct {
	rangePoints int
	buffer      float64
}

// NewOpeningRange builds the strategy. rangePoints is the number of
// observations forming the opening range; buffer widens the breakout levels
// by a fraction of the range midpoint (0 disables it).
func NewOpeningRange(rangePoints int, buffer float64) (*OpeningRange, error) {
	if rangePoints < 2 {
		return nil, simerrors.NewConfigError("opening_range", "new",
			fmt.Sprintf("range must span at least 2 points, got %d", rangePoints))
	}
	if buffer < 0 {
		return nil, simerrors.NewConfigError("opening_range", "new",
			fmt.Sprintf("buffer must be non-negative, got %v", buffer))
	}
	return &OpeningRange{rangePoints: rangePoints, buffer: buffer}, nil
}

// OpeningRangeFactory adapts NewOpeningRange to the grid-search Factory
// shape. Recognized parameters: "range_points", "buffer".
func OpeningRangeFactory(params map[string]float64) (Strategy, error) {
	points := 12
	if v, ok := params["range_points"]; ok {
		points = int(v)
	}
	buffer := 0.0
	if v, ok := params["buffer"]; ok {
		buffer = v
	}
	return NewOpeningRange(points, buffer)
}

// GetName returns the name of the strategy
func (o *OpeningRange) GetName() string {
	return fmt.Sprintf("opening_range_%d", o.rangePoints)
}

// ResetForNewPeriod is a no-op: the strategy carries no cross-session state.
func (o *OpeningRange) ResetForNewPeriod() {}

// Signals scans the session for the first breakout beyond the opening range.
func (o *OpeningRange) Signals(series *types.SessionSeries) ([]Signal, error) {
	if series == nil || len(series.Points) == 0 {
		return nil, simerrors.NewDataError("opening_range", "signals",
			fmt.Errorf("empty session series"))
	}
	if len(series.Points) <= o.rangePoints {
		// Session too short to form a range; stand aside.
		return nil, nil
	}

	high := math.Inf(-1)
	low := math.Inf(1)
	for _, p := range series.Points[:o.rangePoints] {
		if p.Price > high {
			high = p.Price
		}
		if p.Price < low {
			low = p.Price
		}
	}
	mid := (high + low) / 2
	upper := high + mid*o.buffer
	lower := low - mid*o.buffer

	for _, p := range series.Points[o.rangePoints:] {
		if p.Price > upper {
			return []Signal{{
				Timestamp: p.Timestamp,
				Action:    ActionEnterLong,
				Reason:    fmt.Sprintf("breakout above %.2f", upper),
			}}, nil
		}
		if p.Price < lower {
			return []Signal{{
				Timestamp: p.Timestamp,
				Action:    ActionEnterShort,
				Reason:    fmt.Sprintf("breakdown below %.2f", lower),
			}}, nil
		}
	}
	return nil, nil
}
