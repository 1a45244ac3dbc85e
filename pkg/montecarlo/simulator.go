package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
)

// Method selects how paths are generated from the observed daily returns.
type Method string

const (
	// MethodBootstrap resamples observed returns with replacement.
	MethodBootstrap Method = "bootstrap"
	// MethodParametric draws from a normal fit of the observed returns.
	MethodParametric Method = "parametric"
)

// Config parameterizes a Monte Carlo run. Seed is mandatory and explicit:
// path i uses its own generator seeded with Seed+i, so results are
// bit-identical across runs and worker counts.
type Config struct {
	Paths          int
	Horizon        int // trading days per path
	Seed           int64
	Method         Method
	InitialBalance float64
	RuinFloor      float64 // ruin threshold as a fraction of initial balance
	Workers        int
}

// Result summarizes the simulated path distribution.
type Result struct {
	Paths   int
	Horizon int
	Method  Method
	Seed    int64

	// Percentile bands over the balance trajectory, length Horizon+1
	// (index 0 is the initial balance).
	BandP5  []float64
	BandP50 []float64
	BandP95 []float64

	TerminalBalances []float64 // indexed by path
	MaxDrawdowns     []float64 // indexed by path

	MedianTerminal    float64
	ProbProfit        float64
	ProbLoss          float64
	VaR95             float64 // 5th percentile terminal return
	CVaR95            float64
	VaR99             float64
	CVaR99            float64
	MedianMaxDrawdown float64
	WorstMaxDrawdown  float64
	RiskOfRuin        float64
}

// Simulator resamples a realized daily-return series into forward paths.
type Simulator struct {
	cfg Config
	log zerolog.Logger
}

// New validates the configuration.
func New(cfg Config, log zerolog.Logger) (*Simulator, error) {
	if cfg.Paths <= 0 {
		return nil, simerrors.NewConfigError("montecarlo", "new",
			fmt.Sprintf("paths must be positive, got %d", cfg.Paths))
	}
	if cfg.Horizon <= 0 {
		return nil, simerrors.NewConfigError("montecarlo", "new",
			fmt.Sprintf("horizon must be positive, got %d", cfg.Horizon))
	}
	if cfg.Method != MethodBootstrap && cfg.Method != MethodParametric {
		return nil, simerrors.NewConfigError("montecarlo", "new",
			fmt.Sprintf("unknown method %q", cfg.Method))
	}
	if cfg.InitialBalance <= 0 {
		return nil, simerrors.NewConfigError("montecarlo", "new",
			fmt.Sprintf("initial balance must be positive, got %v", cfg.InitialBalance))
	}
	if cfg.RuinFloor < 0 || cfg.RuinFloor >= 1 {
		return nil, simerrors.NewConfigError("montecarlo", "new",
			fmt.Sprintf("ruin floor must be in [0,1), got %v", cfg.RuinFloor))
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Simulator{cfg: cfg, log: log}, nil
}

// Run simulates the configured number of paths from the observed daily
// returns. The input slice is never mutated. Cancellation is honored
// between paths; a canceled run returns ctx.Err with no partial result.
func (s *Simulator) Run(ctx context.Context, dailyReturns []float64) (*Result, error) {
	if len(dailyReturns) == 0 {
		return nil, simerrors.NewStatsError("montecarlo", "run", "no daily returns to resample")
	}

	// Parametric fit happens once, outside the path loop.
	mean, std := meanStd(dailyReturns)
	if s.cfg.Method == MethodParametric && std == 0 {
		return nil, simerrors.NewStatsError("montecarlo", "run",
			"zero-variance returns cannot be fit parametrically")
	}

	trajectories := make([][]float64, s.cfg.Paths)
	maxDrawdowns := make([]float64, s.cfg.Paths)
	ruined := make([]bool, s.cfg.Paths)

	pathCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range pathCh {
				trajectories[idx], maxDrawdowns[idx], ruined[idx] = s.simulatePath(idx, dailyReturns, mean, std)
			}
		}()
	}

	canceled := false
	for i := 0; i < s.cfg.Paths && !canceled; i++ {
		select {
		case pathCh <- i:
		case <-ctx.Done():
			canceled = true
		}
	}
	close(pathCh)
	wg.Wait()
	if canceled {
		return nil, ctx.Err()
	}

	return s.summarize(trajectories, maxDrawdowns, ruined), nil
}

// simulatePath generates one balance trajectory with its own seeded RNG so
// goroutine scheduling cannot affect the outcome.
func (s *Simulator) simulatePath(idx int, returns []float64, mean, std float64) (trajectory []float64, maxDD float64, ruin bool) {
	rng := rand.New(rand.NewSource(s.cfg.Seed + int64(idx)))

	trajectory = make([]float64, s.cfg.Horizon+1)
	trajectory[0] = s.cfg.InitialBalance
	balance := s.cfg.InitialBalance
	peak := balance
	floor := s.cfg.RuinFloor * s.cfg.InitialBalance

	for day := 1; day <= s.cfg.Horizon; day++ {
		var r float64
		if s.cfg.Method == MethodBootstrap {
			r = returns[rng.Intn(len(returns))]
		} else {
			r = rng.NormFloat64()*std + mean
		}

		balance *= 1 + r
		if balance < 0 {
			balance = 0
		}
		trajectory[day] = balance

		if balance > peak {
			peak = balance
		}
		if peak > 0 {
			if dd := (peak - balance) / peak; dd > maxDD {
				maxDD = dd
			}
		}
		if balance <= floor {
			ruin = true
		}
	}
	return trajectory, maxDD, ruin
}

func (s *Simulator) summarize(trajectories [][]float64, maxDrawdowns []float64, ruined []bool) *Result {
	res := &Result{
		Paths:        s.cfg.Paths,
		Horizon:      s.cfg.Horizon,
		Method:       s.cfg.Method,
		Seed:         s.cfg.Seed,
		BandP5:       make([]float64, s.cfg.Horizon+1),
		BandP50:      make([]float64, s.cfg.Horizon+1),
		BandP95:      make([]float64, s.cfg.Horizon+1),
		MaxDrawdowns: maxDrawdowns,
	}

	column := make([]float64, s.cfg.Paths)
	for day := 0; day <= s.cfg.Horizon; day++ {
		for p := 0; p < s.cfg.Paths; p++ {
			column[p] = trajectories[p][day]
		}
		res.BandP5[day] = percentile(column, 5)
		res.BandP50[day] = percentile(column, 50)
		res.BandP95[day] = percentile(column, 95)
	}

	res.TerminalBalances = make([]float64, s.cfg.Paths)
	terminalReturns := make([]float64, s.cfg.Paths)
	profitable, ruinCount := 0, 0
	for p := 0; p < s.cfg.Paths; p++ {
		terminal := trajectories[p][s.cfg.Horizon]
		res.TerminalBalances[p] = terminal
		terminalReturns[p] = terminal/s.cfg.InitialBalance - 1
		if terminal > s.cfg.InitialBalance {
			profitable++
		}
		if ruined[p] {
			ruinCount++
		}
	}

	res.MedianTerminal = percentile(res.TerminalBalances, 50)
	res.ProbProfit = float64(profitable) / float64(s.cfg.Paths)
	res.ProbLoss = 1 - res.ProbProfit
	res.VaR95 = percentile(terminalReturns, 5)
	res.CVaR95 = tailMean(terminalReturns, res.VaR95)
	res.VaR99 = percentile(terminalReturns, 1)
	res.CVaR99 = tailMean(terminalReturns, res.VaR99)
	res.MedianMaxDrawdown = percentile(maxDrawdowns, 50)
	res.WorstMaxDrawdown = maxOf(maxDrawdowns)
	res.RiskOfRuin = float64(ruinCount) / float64(s.cfg.Paths)

	s.log.Debug().Int("paths", res.Paths).Int("horizon", res.Horizon).
		Str("method", string(res.Method)).
		Float64("median_terminal", res.MedianTerminal).
		Float64("risk_of_ruin", res.RiskOfRuin).
		Msg("monte carlo run complete")
	return res
}

func meanStd(values []float64) (mean, std float64) {
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

func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func tailMean(values []float64, threshold float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if v <= threshold {
			sum += v
			n++
		}
	}
	if n == 0 {
		return threshold
	}
	return sum / float64(n)
}

func maxOf(values []float64) float64 {
	out := 0.0
	for _, v := range values {
		if v > out {
			out = v
		}
	}
	return out
}
