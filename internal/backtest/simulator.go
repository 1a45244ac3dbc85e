package backtest

import (
	"fmt"
	"time"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
	"github.com/hedgeforge/session-backtester/internal/session"
	"github.com/hedgeforge/session-backtester/internal/strategy"
	"github.com/hedgeforge/session-backtester/pkg/types"
)

// SimConfig holds execution parameters for the trade simulator.
type SimConfig struct {
	StopLossPct    float64 // adverse move from entry that closes the trade
	TakeProfitPct  float64 // favorable move from entry that closes the trade
	CommissionRate float64 // per side, fraction of traded notional
	SlippageRate   float64 // per side, adverse, fraction of price
}

// Simulator executes at most one trade per session against a materialized
// price series. Decisions fill at the next tick after the signal; any open
// position is closed unconditionally at the last tick of the session.
type Simulator struct {
	cfg SimConfig
}

// NewSimulator validates the execution parameters.
func NewSimulator(cfg SimConfig) (*Simulator, error) {
	if cfg.StopLossPct <= 0 || cfg.StopLossPct >= 1 {
		return nil, simerrors.NewConfigError("simulator", "new",
			fmt.Sprintf("stop loss must be in (0,1), got %v", cfg.StopLossPct))
	}
	if cfg.TakeProfitPct <= 0 {
		return nil, simerrors.NewConfigError("simulator", "new",
			fmt.Sprintf("take profit must be positive, got %v", cfg.TakeProfitPct))
	}
	if cfg.CommissionRate < 0 || cfg.SlippageRate < 0 {
		return nil, simerrors.NewConfigError("simulator", "new",
			"commission and slippage must be non-negative")
	}
	return &Simulator{cfg: cfg}, nil
}

// RunSession executes the signal sequence against the session series with
// the given notional. Returns nil when no trade was opened.
func (s *Simulator) RunSession(win session.Window, series *types.SessionSeries, signals []strategy.Signal, notional float64) (*Trade, error) {
	if series == nil || len(series.Points) < 2 {
		return nil, simerrors.NewDataError("simulator", "run_session",
			fmt.Errorf("session %s needs at least 2 points", win.Market))
	}
	if notional <= 0 {
		return nil, nil
	}

	entrySig, ok := firstEntry(signals)
	if !ok {
		return nil, nil
	}

	pts := series.Points
	sigIdx := indexAtOrAfter(pts, entrySig)
	if sigIdx < 0 || sigIdx+1 >= len(pts) {
		// Signal on the last tick cannot fill.
		return nil, nil
	}

	// Fill at the tick after the decision, slipped against us.
	fillIdx := sigIdx + 1
	side := types.SideLong
	if entrySig.Action == strategy.ActionEnterShort {
		side = types.SideShort
	}
	entryPrice := slip(pts[fillIdx].Price, side, true, s.cfg.SlippageRate)
	units := notional / entryPrice

	trade := &Trade{
		Market:     win.Market,
		Day:        series.Date,
		Sequence:   win.Sequence,
		Side:       side,
		State:      TradeOpen,
		Notional:   notional,
		EntryTime:  pts[fillIdx].Timestamp,
		EntryPrice: entryPrice,
		Reason:     entrySig.Reason,
	}

	stop, target := exitLevels(entryPrice, side, s.cfg.StopLossPct, s.cfg.TakeProfitPct)
	exitAt, hasExit := firstExitAfter(signals, trade.EntryTime)

	for i := fillIdx + 1; i < len(pts); i++ {
		p := pts[i]

		// Stop first: when a tick satisfies both levels the loss is taken.
		if hitStop(p.Price, stop, side) {
			s.close(trade, p, units, TradeClosedByStop)
			return trade, nil
		}
		if hitTarget(p.Price, target, side) {
			s.close(trade, p, units, TradeClosedByTarget)
			return trade, nil
		}
		if hasExit && p.Timestamp.After(exitAt) {
			s.close(trade, p, units, TradeClosedBySignal)
			trade.Reason = "strategy exit"
			return trade, nil
		}
	}

	// Forced flat at session close.
	s.close(trade, pts[len(pts)-1], units, TradeClosedBySessionEnd)
	return trade, nil
}

// close fills the exit leg and finalizes PnL net of both commission sides.
func (s *Simulator) close(t *Trade, p types.PricePoint, units float64, state TradeState) {
	exitPrice := slip(p.Price, t.Side, false, s.cfg.SlippageRate)
	t.ExitTime = p.Timestamp
	t.ExitPrice = exitPrice
	t.State = state

	gross := units * (exitPrice - t.EntryPrice)
	if t.Side == types.SideShort {
		gross = units * (t.EntryPrice - exitPrice)
	}
	t.Commission = s.cfg.CommissionRate * (t.Notional + units*exitPrice)
	t.PnL = gross - t.Commission
	t.Return = t.PnL / t.Notional
}

func firstEntry(signals []strategy.Signal) (strategy.Signal, bool) {
	for _, sig := range signals {
		if sig.Action == strategy.ActionEnterLong || sig.Action == strategy.ActionEnterShort {
			return sig, true
		}
	}
	return strategy.Signal{}, false
}

// firstExitAfter finds the first explicit exit signal after the entry fill.
func firstExitAfter(signals []strategy.Signal, entry time.Time) (time.Time, bool) {
	for _, sig := range signals {
		if sig.Action == strategy.ActionExit && sig.Timestamp.After(entry) {
			return sig.Timestamp, true
		}
	}
	return time.Time{}, false
}

func indexAtOrAfter(pts []types.PricePoint, sig strategy.Signal) int {
	for i, p := range pts {
		if !p.Timestamp.Before(sig.Timestamp) {
			return i
		}
	}
	return -1
}

// slip moves a price against the trader: entries pay up, exits give back.
func slip(price float64, side types.Side, entry bool, rate float64) float64 {
	adverse := side == types.SideLong
	if !entry {
		adverse = !adverse
	}
	if adverse {
		return price * (1 + rate)
	}
	return price * (1 - rate)
}

func exitLevels(entry float64, side types.Side, stopPct, targetPct float64) (stop, target float64) {
	if side == types.SideLong {
		return entry * (1 - stopPct), entry * (1 + targetPct)
	}
	return entry * (1 + stopPct), entry * (1 - targetPct)
}

func hitStop(price, stop float64, side types.Side) bool {
	if side == types.SideLong {
		return price <= stop
	}
	return price >= stop
}

func hitTarget(price, target float64, side types.Side) bool {
	if side == types.SideLong {
		return price >= target
	}
	return price <= target
}
