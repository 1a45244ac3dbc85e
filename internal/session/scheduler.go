package session

import (
	"fmt"
	"time"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
)

// ClockTime is a wall-clock time of day in the scheduler's location.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Template describes one market session in the fixed daily rotation.
// Overnight sessions open on the calendar day before the trading day they
// belong to.
type Template struct {
	Market     string
	Ticker     string
	PointValue float64
	TickSize   float64
	Open       ClockTime
	Close      ClockTime
	Sequence   int
	Overnight  bool
}

// Window is a concrete session on a concrete trading day, with absolute
// open/close instants.
type Window struct {
	Template
	Start time.Time
	End   time.Time
}

// Scheduler produces the fixed ordered session rotation for each trading day.
type Scheduler struct {
	templates []Template
	loc       *time.Location
}

// DefaultTemplates is the production rotation: Nikkei overnight, then DAX,
// then Nasdaq, all expressed in US Eastern time.
func DefaultTemplates() []Template {
	return []Template{
		{Market: "Nikkei", Ticker: "NIY=F", PointValue: 5, TickSize: 5, Open: ClockTime{19, 0}, Close: ClockTime{3, 0}, Sequence: 1, Overnight: true},
		{Market: "DAX", Ticker: "FDAX=F", PointValue: 25, TickSize: 0.5, Open: ClockTime{3, 0}, Close: ClockTime{11, 0}, Sequence: 2},
		{Market: "Nasdaq", Ticker: "NQ=F", PointValue: 20, TickSize: 0.25, Open: ClockTime{11, 0}, Close: ClockTime{19, 0}, Sequence: 3},
	}
}

// NewScheduler validates the rotation and builds a scheduler. Sequences must
// be 1..N with no gaps and market names must be unique.
func NewScheduler(templates []Template, loc *time.Location) (*Scheduler, error) {
	if len(templates) == 0 {
		return nil, simerrors.NewConfigError("scheduler", "new", "at least one session template required")
	}
	if loc == nil {
		loc = time.UTC
	}

	bySeq := make(map[int]bool, len(templates))
	byMarket := make(map[string]bool, len(templates))
	for _, t := range templates {
		if t.Market == "" {
			return nil, simerrors.NewConfigError("scheduler", "new", "session template missing market name")
		}
		if byMarket[t.Market] {
			return nil, simerrors.NewConfigError("scheduler", "new",
				fmt.Sprintf("duplicate market %q in session templates", t.Market))
		}
		byMarket[t.Market] = true
		if t.Sequence < 1 || t.Sequence > len(templates) {
			return nil, simerrors.NewConfigError("scheduler", "new",
				fmt.Sprintf("session %q has sequence %d, want 1..%d", t.Market, t.Sequence, len(templates)))
		}
		if bySeq[t.Sequence] {
			return nil, simerrors.NewConfigError("scheduler", "new",
				fmt.Sprintf("duplicate sequence %d in session templates", t.Sequence))
		}
		bySeq[t.Sequence] = true
	}

	ordered := make([]Template, len(templates))
	for _, t := range templates {
		ordered[t.Sequence-1] = t
	}

	return &Scheduler{templates: ordered, loc: loc}, nil
}

// Templates returns the rotation in execution order.
func (s *Scheduler) Templates() []Template {
	out := make([]Template, len(s.templates))
	copy(out, s.templates)
	return out
}

// SessionsFor returns the ordered session windows for one trading day.
// day is interpreted as a calendar date; its time component is ignored.
func (s *Scheduler) SessionsFor(day time.Time) []Window {
	y, m, d := day.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, s.loc)

	windows := make([]Window, 0, len(s.templates))
	for _, t := range s.templates {
		openDay := midnight
		if t.Overnight {
			openDay = midnight.AddDate(0, 0, -1)
		}
		start := time.Date(openDay.Year(), openDay.Month(), openDay.Day(), t.Open.Hour, t.Open.Minute, 0, 0, s.loc)
		end := time.Date(y, m, d, t.Close.Hour, t.Close.Minute, 0, 0, s.loc)
		windows = append(windows, Window{Template: t, Start: start, End: end})
	}
	return windows
}

// TradingDays returns every weekday in [from, to] as midnight dates in the
// scheduler's location. Holiday handling is the data provider's problem: a
// day with no data is skipped by the engine, not by the calendar.
func (s *Scheduler) TradingDays(from, to time.Time) []time.Time {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	cur := time.Date(fy, fm, fd, 0, 0, 0, 0, s.loc)
	last := time.Date(ty, tm, td, 0, 0, 0, 0, s.loc)

	var days []time.Time
	for !cur.After(last) {
		wd := cur.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			days = append(days, cur)
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return days
}
