package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
	"github.com/hedgeforge/session-backtester/internal/regime"
	"github.com/hedgeforge/session-backtester/internal/risk"
	"github.com/hedgeforge/session-backtester/internal/session"
	"github.com/hedgeforge/session-backtester/internal/strategy"
	"github.com/hedgeforge/session-backtester/pkg/data"
	"github.com/hedgeforge/session-backtester/pkg/types"
)

// EngineConfig holds the run-level parameters of a backtest.
type EngineConfig struct {
	InitialBalance  float64
	BaseFraction    float64
	LeverageCap     float64
	ExpansionFactor float64
	DailyLossCap    float64
	From            time.Time
	To              time.Time
	Workers         int // <=1 runs days serially

	// ToleratePartialDays keeps a day running after a session-level data
	// gap, skipping only the affected session. When false (the default)
	// any gap aborts the whole day.
	ToleratePartialDays bool
}

// Engine drives the day-by-day simulation. Each trading day is evaluated
// against a normalized balance of 1.0; because all sizing is fractional, day
// returns are balance-independent, which lets days run in parallel while a
// serial date-ordered reduction compounds the real balance. Serial and
// parallel runs produce identical results.
//
// When Workers > 1 the strategy's Signals method must be safe for
// concurrent use.
type Engine struct {
	cfg        EngineConfig
	sim        *Simulator
	scheduler  *session.Scheduler
	classifier *regime.Classifier
	sizer      *risk.Sizer
	strat      strategy.Strategy
	market     data.MarketDataProvider
	vol        data.VolatilityProvider
	log        zerolog.Logger
}

// NewEngine validates the configuration and wires the collaborators.
func NewEngine(
	cfg EngineConfig,
	simCfg SimConfig,
	scheduler *session.Scheduler,
	classifier *regime.Classifier,
	strat strategy.Strategy,
	market data.MarketDataProvider,
	vol data.VolatilityProvider,
	log zerolog.Logger,
) (*Engine, error) {
	if cfg.InitialBalance <= 0 {
		return nil, simerrors.NewConfigError("engine", "new",
			fmt.Sprintf("initial balance must be positive, got %v", cfg.InitialBalance))
	}
	if !cfg.From.Before(cfg.To) && !cfg.From.Equal(cfg.To) {
		return nil, simerrors.NewConfigError("engine", "new", "from date must not be after to date")
	}

	sim, err := NewSimulator(simCfg)
	if err != nil {
		return nil, err
	}
	sizer, err := risk.NewSizer(cfg.BaseFraction, cfg.LeverageCap)
	if err != nil {
		return nil, err
	}
	// Validate the expansion factor once up front; per-day gates reuse it.
	if _, err := risk.NewExpansionGate(cfg.ExpansionFactor); err != nil {
		return nil, err
	}
	if cfg.DailyLossCap == 0 {
		cfg.DailyLossCap = risk.DefaultDailyLossCap
	}

	return &Engine{
		cfg:        cfg,
		sim:        sim,
		scheduler:  scheduler,
		classifier: classifier,
		sizer:      sizer,
		strat:      strat,
		market:     market,
		vol:        vol,
		log:        log,
	}, nil
}

// Run executes the backtest over the configured date range. Cancellation is
// honored between days; a partial result is returned with the error.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	days := e.scheduler.TradingDays(e.cfg.From, e.cfg.To)
	e.log.Info().Int("trading_days", len(days)).
		Time("from", e.cfg.From).Time("to", e.cfg.To).
		Msg("backtest starting")

	var dayResults []DayResult
	var err error
	if e.cfg.Workers > 1 {
		dayResults, err = e.evaluateDaysParallel(ctx, days)
	} else {
		dayResults, err = e.evaluateDaysSerial(ctx, days)
	}
	if err != nil {
		return nil, err
	}

	result, err := e.reduce(dayResults)
	if result != nil {
		result.Duration = time.Since(started)
	}
	return result, err
}

func (e *Engine) evaluateDaysSerial(ctx context.Context, days []time.Time) ([]DayResult, error) {
	results := make([]DayResult, 0, len(days))
	for _, day := range days {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		results = append(results, e.evaluateDay(day))
	}
	return results, nil
}

// evaluateDay simulates one trading day against a normalized balance of 1.0.
func (e *Engine) evaluateDay(day time.Time) DayResult {
	result := DayResult{Date: day}

	reading, ok, err := e.vol.DailyReading(day)
	if err != nil {
		return skipDay(day, fmt.Sprintf("volatility lookup failed: %v", err))
	}
	reg, fellBack, err := e.classifier.ClassifyOrFallback(reading, ok)
	if err != nil {
		return skipDay(day, "no volatility reading")
	}
	result.Regime = reg
	result.RegimeFallback = fellBack
	if fellBack {
		e.log.Warn().Time("day", day).Msg("missing volatility reading, falling back to NORMAL regime")
	}

	ledger, lerr := risk.NewLedger(1.0, e.cfg.DailyLossCap)
	if lerr != nil {
		return skipDay(day, lerr.Error())
	}
	ledger.StartDay()
	gate, _ := risk.NewExpansionGate(e.cfg.ExpansionFactor)
	gate.Reset()

	windows := e.scheduler.SessionsFor(day)
	sessionsWithData := 0

	for _, win := range windows {
		sr := SessionResult{Market: win.Market, Sequence: win.Sequence}

		if ledger.CircuitBroken() {
			sr.Skipped = true
			sr.SkipReason = "circuit breaker tripped"
			result.Sessions = append(result.Sessions, sr)
			continue
		}

		series, serr := e.market.SessionSeries(win.Market, win.Start, win.End)
		if serr != nil {
			if !e.cfg.ToleratePartialDays {
				return skipDay(day, fmt.Sprintf("partial day: no session data for %s", win.Market))
			}
			sr.Skipped = true
			sr.SkipReason = "no session data"
			result.Sessions = append(result.Sessions, sr)
			if win.Sequence == 1 {
				gate.ObserveFirstSession(0)
			}
			continue
		}
		series.Date = day
		sessionsWithData++

		signals, strr := e.strat.Signals(series)
		if strr != nil {
			if !e.cfg.ToleratePartialDays {
				return skipDay(day, fmt.Sprintf("partial day: strategy error in %s: %v", win.Market, strr))
			}
			sr.Skipped = true
			sr.SkipReason = fmt.Sprintf("strategy error: %v", strr)
			result.Sessions = append(result.Sessions, sr)
			if win.Sequence == 1 {
				gate.ObserveFirstSession(0)
			}
			continue
		}

		balanceBefore := ledger.Balance()
		notional := e.sizer.Size(balanceBefore, reg.Multiplier(), gate.Multiplier(win.Sequence))
		sr.Notional = notional

		trade, terr := e.sim.RunSession(win, series, signals, notional)
		if terr != nil {
			if !e.cfg.ToleratePartialDays {
				return skipDay(day, fmt.Sprintf("partial day: simulation error in %s: %v", win.Market, terr))
			}
			sr.Skipped = true
			sr.SkipReason = fmt.Sprintf("simulation error: %v", terr)
			result.Sessions = append(result.Sessions, sr)
			if win.Sequence == 1 {
				gate.ObserveFirstSession(0)
			}
			continue
		}

		sessionReturn := 0.0
		if trade != nil {
			sessionReturn = trade.PnL / balanceBefore
			sr.Trade = trade
		}
		sr.Return = sessionReturn

		if win.Sequence == 1 {
			gate.ObserveFirstSession(sessionReturn)
		}
		if aerr := ledger.ApplySessionResult(sessionReturn); aerr != nil {
			// Normalized balance depleted intraday; surface as a skipped
			// remainder, the reduction turns it into a capital error.
			sr.SkipReason = aerr.Error()
		}
		result.Sessions = append(result.Sessions, sr)
	}

	if sessionsWithData == 0 {
		return skipDay(day, "no session data for any market")
	}

	result.DayReturn = ledger.DailyReturn()
	result.CircuitBroken = ledger.CircuitBroken()
	if result.CircuitBroken {
		e.log.Debug().Time("day", day).Float64("day_return", result.DayReturn).
			Msg("daily circuit breaker tripped")
	}
	return result
}

// reduce compounds normalized day results into the real equity curve, in
// date order, scaling monetary trade fields by the day-start balance.
func (e *Engine) reduce(dayResults []DayResult) (*Result, error) {
	sort.Slice(dayResults, func(i, j int) bool {
		return dayResults[i].Date.Before(dayResults[j].Date)
	})

	ledger, err := risk.NewLedger(e.cfg.InitialBalance, e.cfg.DailyLossCap)
	if err != nil {
		return nil, err
	}

	result := &Result{
		InitialBalance: e.cfg.InitialBalance,
		Days:           dayResults,
	}

	for i := range dayResults {
		day := &dayResults[i]
		if day.Skipped {
			result.DaysSkipped++
			day.StartBalance = ledger.Balance()
			day.EndBalance = ledger.Balance()
			result.EquityCurve = append(result.EquityCurve, types.EquityPoint{Date: day.Date, Balance: ledger.Balance()})
			continue
		}

		dayStart := ledger.Balance()
		day.StartBalance = dayStart
		scaleDay(day, dayStart)

		if aerr := ledger.ApplyDayReturn(day.DayReturn); aerr != nil {
			result.FinalBalance = ledger.Balance()
			result.Metrics = ComputeMetrics(result.EquityCurve, result.Trades)
			return result, aerr
		}
		day.EndBalance = ledger.Balance()
		result.DaysSimulated++

		for _, sr := range day.Sessions {
			if sr.Trade != nil {
				result.Trades = append(result.Trades, *sr.Trade)
			}
		}
		result.EquityCurve = append(result.EquityCurve, types.EquityPoint{Date: day.Date, Balance: ledger.Balance()})
	}

	result.FinalBalance = ledger.Balance()
	result.Metrics = ComputeMetrics(result.EquityCurve, result.Trades)
	e.log.Info().Float64("final_balance", result.FinalBalance).
		Int("days_simulated", result.DaysSimulated).
		Int("days_skipped", result.DaysSkipped).
		Msg("backtest finished")
	return result, nil
}

// scaleDay rescales normalized monetary fields to the actual balance.
func scaleDay(day *DayResult, dayStart float64) {
	for i := range day.Sessions {
		sr := &day.Sessions[i]
		sr.Notional *= dayStart
		if sr.Trade != nil {
			sr.Trade.Notional *= dayStart
			sr.Trade.PnL *= dayStart
			sr.Trade.Commission *= dayStart
		}
	}
}

func skipDay(day time.Time, reason string) DayResult {
	return DayResult{Date: day, Skipped: true, SkipReason: reason}
}
