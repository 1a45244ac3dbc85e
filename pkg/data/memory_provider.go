package data

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
	"github.com/hedgeforge/session-backtester/pkg/types"
)

// MemoryProvider is an in-memory MarketDataProvider used by tests and by the
// synthetic-data path of the CLI.
type MemoryProvider struct {
	points   map[string][]types.PricePoint
	readings map[string]float64
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		points:   make(map[string][]types.PricePoint),
		readings: make(map[string]float64),
	}
}

// GetName returns the name of the data provider
func (p *MemoryProvider) GetName() string {
	return "Memory Provider"
}

// AddPoints appends points for a market, keeping the series sorted.
func (p *MemoryProvider) AddPoints(market string, pts []types.PricePoint) {
	p.points[market] = append(p.points[market], pts...)
	sort.Slice(p.points[market], func(i, j int) bool {
		return p.points[market][i].Timestamp.Before(p.points[market][j].Timestamp)
	})
}

// SetReading stores a daily volatility reading.
func (p *MemoryProvider) SetReading(day time.Time, value float64) {
	p.readings[day.Format("2006-01-02")] = value
}

// SessionSeries slices the stored points for one market to [start, end].
func (p *MemoryProvider) SessionSeries(market string, start, end time.Time) (*types.SessionSeries, error) {
	pts, ok := p.points[market]
	if !ok {
		return nil, simerrors.NewDataError("memory_provider", "session_series",
			fmt.Errorf("no data for market %q", market))
	}

	lo := sort.Search(len(pts), func(i int) bool { return !pts[i].Timestamp.Before(start) })
	hi := sort.Search(len(pts), func(i int) bool { return pts[i].Timestamp.After(end) })
	if lo >= hi {
		return nil, simerrors.NewDataError("memory_provider", "session_series",
			fmt.Errorf("no data for %s in [%s, %s]", market, start, end))
	}

	out := make([]types.PricePoint, hi-lo)
	copy(out, pts[lo:hi])
	return &types.SessionSeries{Market: market, Date: end, Points: out}, nil
}

// DailyReading returns the stored volatility reading for the given day.
func (p *MemoryProvider) DailyReading(day time.Time) (float64, bool, error) {
	v, ok := p.readings[day.Format("2006-01-02")]
	return v, ok, nil
}

// GenerateRandomWalk fills a time window with a seeded random walk at the
// given step. Used for demos and smoke tests when no real data is on disk.
func GenerateRandomWalk(start, end time.Time, step time.Duration, basePrice, volatility float64, seed int64) []types.PricePoint {
	rng := rand.New(rand.NewSource(seed))
	price := basePrice

	var pts []types.PricePoint
	for t := start; !t.After(end); t = t.Add(step) {
		price *= 1 + (rng.Float64()-0.5)*volatility
		if price < basePrice*0.1 {
			price = basePrice * 0.1
		}
		pts = append(pts, types.PricePoint{Timestamp: t, Price: price})
	}
	return pts
}
