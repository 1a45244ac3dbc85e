package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
	"github.com/hedgeforge/session-backtester/pkg/types"
)

// CSVProvider implements MarketDataProvider over per-market CSV files of
// timestamped prices. All files are loaded up front.
type CSVProvider struct {
	format CSVColumnMapping
	points map[string][]types.PricePoint
	log    zerolog.Logger
}

// NewCSVProvider creates an empty provider with the default column format.
func NewCSVProvider(log zerolog.Logger) *CSVProvider {
	return &CSVProvider{
		format: DefaultCSVFormat,
		points: make(map[string][]types.PricePoint),
		log:    log,
	}
}

// NewCSVProviderWithFormat creates an empty provider with a custom format.
func NewCSVProviderWithFormat(format CSVColumnMapping, log zerolog.Logger) *CSVProvider {
	return &CSVProvider{
		format: format,
		points: make(map[string][]types.PricePoint),
		log:    log,
	}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadMarket reads one market's price file. Malformed lines are logged and
// skipped; an out-of-order timestamp fails the whole file.
func (p *CSVProvider) LoadMarket(market, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return simerrors.NewDataError("csv_provider", "load", err).WithContext("market", market)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return simerrors.NewDataError("csv_provider", "load", err).WithContext("market", market)
	}

	var points []types.PricePoint

	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return simerrors.NewDataError("csv_provider", "load",
				fmt.Errorf("error reading CSV at line %d: %w", lineNum, err))
		}
		lineNum++

		if len(record) < p.format.MinColumns {
			p.log.Warn().Str("market", market).Int("line", lineNum).
				Msgf("insufficient columns (expected %d, got %d), skipping", p.format.MinColumns, len(record))
			continue
		}

		timestamp, err := time.Parse(p.format.DateFormat, record[p.format.TimestampCol])
		if err != nil {
			p.log.Warn().Str("market", market).Int("line", lineNum).Err(err).
				Msgf("invalid timestamp %q, skipping", record[p.format.TimestampCol])
			continue
		}

		price, err := strconv.ParseFloat(record[p.format.PriceCol], 64)
		if err != nil {
			p.log.Warn().Str("market", market).Int("line", lineNum).Err(err).
				Msgf("invalid price %q, skipping", record[p.format.PriceCol])
			continue
		}
		if price <= 0 {
			p.log.Warn().Str("market", market).Int("line", lineNum).
				Msg("non-positive price, skipping")
			continue
		}

		if n := len(points); n > 0 && timestamp.Before(points[n-1].Timestamp) {
			return simerrors.NewDataError("csv_provider", "load",
				fmt.Errorf("timestamps out of order at line %d", lineNum)).
				WithContext("market", market)
		}

		points = append(points, types.PricePoint{Timestamp: timestamp, Price: price})
	}

	if len(points) == 0 {
		return simerrors.NewDataError("csv_provider", "load",
			fmt.Errorf("no usable rows in %s", filename)).WithContext("market", market)
	}

	p.points[market] = points
	p.log.Debug().Str("market", market).Int("points", len(points)).Msg("market data loaded")
	return nil
}

// SessionSeries slices the loaded points for one market to [start, end].
func (p *CSVProvider) SessionSeries(market string, start, end time.Time) (*types.SessionSeries, error) {
	pts, ok := p.points[market]
	if !ok {
		return nil, simerrors.NewDataError("csv_provider", "session_series",
			fmt.Errorf("no data loaded for market %q", market))
	}

	lo := sort.Search(len(pts), func(i int) bool { return !pts[i].Timestamp.Before(start) })
	hi := sort.Search(len(pts), func(i int) bool { return pts[i].Timestamp.After(end) })
	if lo >= hi {
		return nil, simerrors.NewDataError("csv_provider", "session_series",
			fmt.Errorf("no data for %s in [%s, %s]", market, start, end))
	}

	out := make([]types.PricePoint, hi-lo)
	copy(out, pts[lo:hi])
	return &types.SessionSeries{Market: market, Date: end, Points: out}, nil
}

// CSVVolatilityProvider loads a daily date,close index file into memory.
type CSVVolatilityProvider struct {
	readings map[string]float64
}

// NewCSVVolatilityProvider loads the whole file. Dates must parse; values
// must be positive.
func NewCSVVolatilityProvider(filename string) (*CSVVolatilityProvider, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, simerrors.NewDataError("vix_provider", "load", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return nil, simerrors.NewDataError("vix_provider", "load", err)
	}

	readings := make(map[string]float64)
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, simerrors.NewDataError("vix_provider", "load",
				fmt.Errorf("error reading CSV at line %d: %w", lineNum, err))
		}
		lineNum++

		if len(record) < 2 {
			continue
		}
		day, err := time.Parse(DailyCSVFormat.DateFormat, record[0])
		if err != nil {
			return nil, simerrors.NewDataError("vix_provider", "load",
				fmt.Errorf("invalid date %q at line %d: %w", record[0], lineNum, err))
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil || value <= 0 {
			return nil, simerrors.NewDataError("vix_provider", "load",
				fmt.Errorf("invalid reading %q at line %d", record[1], lineNum))
		}
		readings[day.Format("2006-01-02")] = value
	}

	return &CSVVolatilityProvider{readings: readings}, nil
}

// DailyReading returns the reading for the given calendar day.
func (p *CSVVolatilityProvider) DailyReading(day time.Time) (float64, bool, error) {
	v, ok := p.readings[day.Format("2006-01-02")]
	return v, ok, nil
}
