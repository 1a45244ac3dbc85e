package types

import "time"

// PricePoint is a single timestamped price observation inside a session.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// SessionSeries holds the materialized intraday price series for one market
// session on one trading day. Points are chronological.
type SessionSeries struct {
	Market string
	Date   time.Time
	Points []PricePoint
}

// First returns the opening point of the series, or false when empty.
func (s *SessionSeries) First() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[0], true
}

// Last returns the closing point of the series, or false when empty.
func (s *SessionSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// EquityPoint is one point on the daily equity curve.
type EquityPoint struct {
	Date    time.Time
	Balance float64
}

// VolatilityReading is a daily volatility-index observation (e.g. VIX close).
type VolatilityReading struct {
	Date  time.Time
	Value float64
}

// Side is the direction of a position.
type Side int

const (
	SideLong Side = iota
	SideShort
)

func (s Side) String() string {
	switch s {
	case SideLong:
		return "LONG"
	case SideShort:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}
