package strategy

import (
	"time"

	"github.com/hedgeforge/session-backtester/pkg/types"
)

// Strategy turns one session's materialized price series into an ordered
// decision sequence. Implementations see only data inside the session; exits
// via stop, target and the forced session-end close belong to the simulator.
type Strategy interface {
	// Signals analyzes one session series and returns chronological signals.
	Signals(series *types.SessionSeries) ([]Signal, error)

	// GetName returns the name of the strategy
	GetName() string

	// ResetForNewPeriod resets strategy state between walk-forward periods
	// so no state leaks across validation windows.
	ResetForNewPeriod()
}

// Signal is one timestamped decision inside a session.
type Signal struct {
	Timestamp time.Time
	Action    Action
	Reason    string
}

// Action represents the type of trading action
type Action int

const (
	ActionHold Action = iota
	ActionEnterLong
	ActionEnterShort
	ActionExit
)

func (a Action) String() string {
	switch a {
	case ActionHold:
		return "HOLD"
	case ActionEnterLong:
		return "ENTER_LONG"
	case ActionEnterShort:
		return "ENTER_SHORT"
	case ActionExit:
		return "EXIT"
	default:
		return "UNKNOWN"
	}
}

// Factory builds a strategy from a named parameter set. Grid search uses it
// to instantiate fresh candidates per window.
type Factory func(params map[string]float64) (Strategy, error)
