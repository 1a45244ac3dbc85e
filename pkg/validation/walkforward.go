package validation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
)

// Outcome is what one backtest run reports back to the optimizer.
type Outcome struct {
	Score       float64 // objective value; higher is better
	TotalReturn float64
	SharpeRatio float64
	MaxDrawdown float64
	Trades      int
}

// Backtester runs one backtest over [from, to] with the given parameters.
// The optimizer only ever scores out-of-sample periods it has not optimized
// on; implementations must not look outside the given range.
type Backtester func(ctx context.Context, params map[string]float64, from, to time.Time) (Outcome, error)

// Window is one walk-forward fold: optimize on the in-sample span, score on
// the out-of-sample span that immediately follows it.
type Window struct {
	Index   int
	ISFrom  time.Time
	ISTo    time.Time
	OOSFrom time.Time
	OOSTo   time.Time
}

// WindowResult holds one fold's selected parameters and both outcomes.
type WindowResult struct {
	Window      Window
	BestParams  map[string]float64
	InSample    Outcome
	OutOfSample Outcome
	Degradation float64 // percent score lost from IS to OOS
}

// ParamStability describes how one parameter's selected value varied across
// windows.
type ParamStability struct {
	Mean   float64
	StdDev float64
	CV     float64 // StdDev / |Mean|; NaN when the mean is zero
}

// Report aggregates the walk-forward run. Scores are OOS-only.
type Report struct {
	Windows         []WindowResult
	AvgISScore      float64
	AvgOOSScore     float64
	AvgDegradation  float64
	OverfittingRisk string
	RobustParams    map[string]float64        // median selected value per parameter
	Stability       map[string]ParamStability // selection stability per parameter
	Sensitivity     map[string]float64        // corr(selected value, OOS score)
}

// Config parameterizes the optimizer. Window lengths are in trading days.
type Config struct {
	InSampleDays  int
	OutSampleDays int
	Grid          Grid
	Workers       int // <=1 evaluates windows serially
}

// Optimizer runs rolling-window walk-forward validation: each window's grid
// search sees only its in-sample days, and windows advance by the
// out-of-sample length so the OOS segments tile the evaluated timeline
// exactly once with no overlap.
type Optimizer struct {
	cfg Config
	run Backtester
	log zerolog.Logger
}

// NewOptimizer validates the configuration.
func NewOptimizer(cfg Config, run Backtester, log zerolog.Logger) (*Optimizer, error) {
	if cfg.InSampleDays <= 0 || cfg.OutSampleDays <= 0 {
		return nil, simerrors.NewConfigError("walkforward", "new",
			fmt.Sprintf("window lengths must be positive, got IS=%d OOS=%d", cfg.InSampleDays, cfg.OutSampleDays))
	}
	if len(cfg.Grid) == 0 {
		return nil, simerrors.NewConfigError("walkforward", "new", "parameter grid is empty")
	}
	if run == nil {
		return nil, simerrors.NewConfigError("walkforward", "new", "backtester is required")
	}
	return &Optimizer{cfg: cfg, run: run, log: log}, nil
}

// BuildWindows folds the trading-day calendar into walk-forward windows.
// Trailing days that cannot fill a complete OOS span are dropped.
func (o *Optimizer) BuildWindows(days []time.Time) []Window {
	var windows []Window
	is, oos := o.cfg.InSampleDays, o.cfg.OutSampleDays
	for start := 0; start+is+oos <= len(days); start += oos {
		windows = append(windows, Window{
			Index:   len(windows),
			ISFrom:  days[start],
			ISTo:    days[start+is-1],
			OOSFrom: days[start+is],
			OOSTo:   days[start+is+oos-1],
		})
	}
	return windows
}

// Run executes the full walk-forward pass over the given trading-day
// calendar. Cancellation is honored between grid evaluations.
func (o *Optimizer) Run(ctx context.Context, days []time.Time) (*Report, error) {
	windows := o.BuildWindows(days)
	if len(windows) == 0 {
		return nil, simerrors.NewConfigError("walkforward", "run",
			fmt.Sprintf("%d trading days cannot fill a %d+%d day window",
				len(days), o.cfg.InSampleDays, o.cfg.OutSampleDays))
	}
	o.log.Info().Int("windows", len(windows)).Int("grid_size", o.cfg.Grid.Size()).
		Msg("walk-forward starting")

	results := make([]WindowResult, len(windows))
	errs := make([]error, len(windows))

	if o.cfg.Workers > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, o.cfg.Workers)
		for i := range windows {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[i], errs[i] = o.evaluateWindow(ctx, windows[i])
			}(i)
		}
		wg.Wait()
	} else {
		for i := range windows {
			results[i], errs[i] = o.evaluateWindow(ctx, windows[i])
		}
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return o.aggregate(results), nil
}

// evaluateWindow grid-searches the in-sample span and scores the winner on
// the out-of-sample span.
func (o *Optimizer) evaluateWindow(ctx context.Context, win Window) (WindowResult, error) {
	combos := o.cfg.Grid.Combinations()

	best := combos[0]
	bestOutcome := Outcome{Score: math.Inf(-1)}
	for _, params := range combos {
		select {
		case <-ctx.Done():
			return WindowResult{}, ctx.Err()
		default:
		}

		outcome, err := o.run(ctx, params, win.ISFrom, win.ISTo)
		if err != nil {
			return WindowResult{}, simerrors.WrapError(err, simerrors.ErrorCategoryData, "walkforward", "in_sample")
		}
		if outcome.Score > bestOutcome.Score {
			bestOutcome = outcome
			best = params
		}
	}

	oosOutcome, err := o.run(ctx, best, win.OOSFrom, win.OOSTo)
	if err != nil {
		return WindowResult{}, simerrors.WrapError(err, simerrors.ErrorCategoryData, "walkforward", "out_of_sample")
	}

	result := WindowResult{
		Window:      win,
		BestParams:  best,
		InSample:    bestOutcome,
		OutOfSample: oosOutcome,
		Degradation: degradation(bestOutcome.Score, oosOutcome.Score),
	}
	o.log.Debug().Int("window", win.Index).
		Float64("is_score", bestOutcome.Score).
		Float64("oos_score", oosOutcome.Score).
		Msg("window evaluated")
	return result, nil
}

func (o *Optimizer) aggregate(results []WindowResult) *Report {
	report := &Report{
		Windows:      results,
		RobustParams: make(map[string]float64),
		Stability:    make(map[string]ParamStability),
		Sensitivity:  make(map[string]float64),
	}

	for _, r := range results {
		report.AvgISScore += r.InSample.Score
		report.AvgOOSScore += r.OutOfSample.Score
		report.AvgDegradation += r.Degradation
	}
	n := float64(len(results))
	report.AvgISScore /= n
	report.AvgOOSScore /= n
	report.AvgDegradation /= n

	switch {
	case report.AvgDegradation > 30:
		report.OverfittingRisk = "HIGH"
	case report.AvgDegradation > 15:
		report.OverfittingRisk = "MODERATE"
	default:
		report.OverfittingRisk = "LOW"
	}

	// Per-parameter selection statistics across windows.
	oosScores := make([]float64, len(results))
	for i, r := range results {
		oosScores[i] = r.OutOfSample.Score
	}
	for param := range o.cfg.Grid {
		values := make([]float64, len(results))
		for i, r := range results {
			values[i] = r.BestParams[param]
		}
		report.RobustParams[param] = median(values)
		mean, std := meanStd(values)
		cv := math.NaN()
		if mean != 0 {
			cv = std / math.Abs(mean)
		}
		report.Stability[param] = ParamStability{Mean: mean, StdDev: std, CV: cv}
		report.Sensitivity[param] = correlation(values, oosScores)
	}
	return report
}

// degradation is the percent of in-sample score lost out of sample.
func degradation(is, oos float64) float64 {
	if is == 0 {
		return 0
	}
	return (is - oos) / math.Abs(is) * 100
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// correlation is the Pearson coefficient; NaN when either side is constant.
func correlation(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return math.NaN()
	}
	mx, sx := meanStd(xs)
	my, sy := meanStd(ys)
	if sx == 0 || sy == 0 {
		return math.NaN()
	}
	cov := 0.0
	for i := range xs {
		cov += (xs[i] - mx) * (ys[i] - my)
	}
	cov /= float64(len(xs))
	return cov / (sx * sy)
}
