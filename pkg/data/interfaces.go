package data

import (
	"time"

	"github.com/hedgeforge/session-backtester/pkg/types"
)

// MarketDataProvider serves materialized session price series. All data is
// loaded before a run starts; the engine never performs I/O mid-run.
type MarketDataProvider interface {
	// SessionSeries returns the chronological points for one market inside
	// [start, end]. A missing market or empty window is a data error.
	SessionSeries(market string, start, end time.Time) (*types.SessionSeries, error)

	// GetName returns the name of the data provider
	GetName() string
}

// VolatilityProvider serves daily volatility-index readings (e.g. VIX close).
type VolatilityProvider interface {
	// DailyReading returns the reading for the given calendar day. ok is
	// false when no reading exists for that day.
	DailyReading(day time.Time) (value float64, ok bool, err error)
}

// CSVColumnMapping defines the column positions for price-series CSV files.
type CSVColumnMapping struct {
	TimestampCol int
	PriceCol     int
	MinColumns   int
	DateFormat   string
}

// DefaultCSVFormat matches the exported session data files:
// timestamp,price with a full datetime.
var DefaultCSVFormat = CSVColumnMapping{
	TimestampCol: 0,
	PriceCol:     1,
	MinColumns:   2,
	DateFormat:   "2006-01-02 15:04:05",
}

// DailyCSVFormat matches daily index files: date,close.
var DailyCSVFormat = CSVColumnMapping{
	TimestampCol: 0,
	PriceCol:     1,
	MinColumns:   2,
	DateFormat:   "2006-01-02",
}
