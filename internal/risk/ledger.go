package risk

import (
	"fmt"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
)

// Ledger tracks a sequentially compounding balance. Session results multiply
// into the balance in order; a configurable daily loss limit freezes the
// balance for the rest of the day once crossed.
type Ledger struct {
	balance       float64
	dayStart      float64
	highWaterMark float64
	dailyLossCap  float64
	broken        bool
}

// DefaultDailyLossCap is the daily drawdown, as a positive fraction of the
// day-start balance, at which the circuit breaker trips.
const DefaultDailyLossCap = 0.087

// NewLedger creates a ledger. initial must be positive; dailyLossCap is a
// positive fraction (0.087 means stop the day at -8.7%).
func NewLedger(initial, dailyLossCap float64) (*Ledger, error) {
	if initial <= 0 {
		return nil, simerrors.NewConfigError("ledger", "new",
			fmt.Sprintf("initial balance must be positive, got %v", initial))
	}
	if dailyLossCap <= 0 || dailyLossCap >= 1 {
		return nil, simerrors.NewConfigError("ledger", "new",
			fmt.Sprintf("daily loss cap must be in (0,1), got %v", dailyLossCap))
	}
	return &Ledger{
		balance:       initial,
		dayStart:      initial,
		highWaterMark: initial,
		dailyLossCap:  dailyLossCap,
	}, nil
}

// StartDay marks the current balance as the day-start reference and re-arms
// the circuit breaker.
func (l *Ledger) StartDay() {
	l.dayStart = l.balance
	l.broken = false
}

// ApplySessionResult compounds one session's return, expressed as a fraction
// of the balance at session start, into the ledger. Calling it after the
// breaker has tripped is a programming error. A non-positive resulting
// balance is a fatal capital error.
func (l *Ledger) ApplySessionResult(pnlFraction float64) error {
	if l.broken {
		return simerrors.NewCapitalError("ledger", "apply_session",
			"session result applied after circuit breaker tripped")
	}

	l.balance *= 1 + pnlFraction
	if l.balance <= 0 {
		l.broken = true
		return simerrors.NewCapitalError("ledger", "apply_session",
			fmt.Sprintf("balance depleted: %v", l.balance)).
			WithContext("day_start", l.dayStart)
	}

	if l.balance > l.highWaterMark {
		l.highWaterMark = l.balance
	}
	if l.DailyReturn() <= -l.dailyLossCap {
		l.broken = true
	}
	return nil
}

// ApplyDayReturn compounds a whole-day return into the ledger. Used by the
// engine's serial reduction when days are evaluated in parallel.
func (l *Ledger) ApplyDayReturn(dayReturn float64) error {
	l.dayStart = l.balance
	l.balance *= 1 + dayReturn
	if l.balance <= 0 {
		return simerrors.NewCapitalError("ledger", "apply_day",
			fmt.Sprintf("balance depleted: %v", l.balance))
	}
	if l.balance > l.highWaterMark {
		l.highWaterMark = l.balance
	}
	return nil
}

// Balance returns the current balance.
func (l *Ledger) Balance() float64 { return l.balance }

// DayStart returns the balance at the last StartDay call.
func (l *Ledger) DayStart() float64 { return l.dayStart }

// HighWaterMark returns the highest balance seen so far.
func (l *Ledger) HighWaterMark() float64 { return l.highWaterMark }

// CircuitBroken reports whether the daily loss limit has been crossed. The
// caller must skip remaining sessions for the day when true.
func (l *Ledger) CircuitBroken() bool { return l.broken }

// DailyReturn is the fractional return since the last StartDay call.
func (l *Ledger) DailyReturn() float64 {
	if l.dayStart == 0 {
		return 0
	}
	return l.balance/l.dayStart - 1
}
