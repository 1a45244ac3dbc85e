package backtest

import (
	"time"

	"github.com/hedgeforge/session-backtester/internal/regime"
	"github.com/hedgeforge/session-backtester/pkg/types"
)

// TradeState is the lifecycle state of a session trade.
type TradeState int

const (
	TradePending TradeState = iota
	TradeOpen
	TradeClosedByStop
	TradeClosedByTarget
	TradeClosedBySignal
	TradeClosedBySessionEnd
)

func (s TradeState) String() string {
	switch s {
	case TradePending:
		return "PENDING"
	case TradeOpen:
		return "OPEN"
	case TradeClosedByStop:
		return "CLOSED_BY_STOP"
	case TradeClosedByTarget:
		return "CLOSED_BY_TARGET"
	case TradeClosedBySignal:
		return "CLOSED_BY_SIGNAL"
	case TradeClosedBySessionEnd:
		return "CLOSED_BY_SESSION_END"
	default:
		return "UNKNOWN"
	}
}

// Trade is one realized session trade. Every trade is flat by session close;
// there is no overnight exposure.
type Trade struct {
	Market     string
	Day        time.Time
	Sequence   int
	Side       types.Side
	State      TradeState
	Notional   float64
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Commission float64
	PnL        float64
	Return     float64 // PnL as a fraction of Notional
	Reason     string
}

// SessionResult records what happened in one session slot of a trading day.
type SessionResult struct {
	Market     string
	Sequence   int
	Skipped    bool
	SkipReason string
	Notional   float64
	Trade      *Trade  // nil when the strategy stood aside
	Return     float64 // fraction of the balance at session start
}

// DayResult is the outcome of one trading day. Days are first evaluated
// against a normalized balance of 1.0; the engine's serial reduction scales
// monetary fields to the actual day-start balance.
type DayResult struct {
	Date           time.Time
	Skipped        bool
	SkipReason     string
	Regime         regime.Regime
	RegimeFallback bool
	Sessions       []SessionResult
	DayReturn      float64
	CircuitBroken  bool
	StartBalance   float64
	EndBalance     float64
}

// Result is a complete backtest outcome.
type Result struct {
	InitialBalance float64
	FinalBalance   float64
	Days           []DayResult
	EquityCurve    []types.EquityPoint
	Trades         []Trade
	Metrics        Metrics
	DaysSimulated  int
	DaysSkipped    int
	Duration       time.Duration
}
