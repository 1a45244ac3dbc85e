package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hedgeforge/session-backtester/internal/backtest"
	simerrors "github.com/hedgeforge/session-backtester/internal/errors"
	"github.com/hedgeforge/session-backtester/internal/logger"
	"github.com/hedgeforge/session-backtester/internal/monitoring"
	"github.com/hedgeforge/session-backtester/internal/regime"
	"github.com/hedgeforge/session-backtester/internal/session"
	"github.com/hedgeforge/session-backtester/internal/strategy"
	"github.com/hedgeforge/session-backtester/pkg/config"
	"github.com/hedgeforge/session-backtester/pkg/data"
	"github.com/hedgeforge/session-backtester/pkg/montecarlo"
	"github.com/hedgeforge/session-backtester/pkg/reporting"
	"github.com/hedgeforge/session-backtester/pkg/validation"
)

const version = "1.2.0"

func main() {
	flags := NewBacktestFlags()
	flag.Parse()

	if *flags.ShowVersion {
		fmt.Printf("session-backtester v%s\n", version)
		return
	}
	if *flags.ShowHelp {
		flag.Usage()
		PrintUsageExamples()
		return
	}

	if *flags.EnvFile != "" {
		_ = godotenv.Load(*flags.EnvFile)
	}

	cfg, err := config.Load(*flags.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg, flags)

	log := logger.New(cfg.Logging.Level, cfg.Logging.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	if err := run(ctx, cfg, flags, log); err != nil {
		monitoring.RecordError(errorCategory(err))
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func applyFlagOverrides(cfg *config.Config, flags *BacktestFlags) {
	if *flags.From != "" {
		cfg.From = *flags.From
	}
	if *flags.To != "" {
		cfg.To = *flags.To
	}
	if *flags.Workers > 0 {
		cfg.Workers = *flags.Workers
	}
	if *flags.LogLevel != "" {
		cfg.Logging.Level = *flags.LogLevel
	}
	if *flags.OutputDir != "" {
		cfg.Report.OutputDir = *flags.OutputDir
	}
	if *flags.MonteCarlo {
		cfg.MonteCarlo.Enabled = true
	}
	if *flags.WalkForward {
		cfg.WalkForward.Enabled = true
	}
	if *flags.Synthetic {
		cfg.Data.Synthetic = true
	}
	if *flags.ConsoleOnly {
		cfg.Report.CSV = false
		cfg.Report.Excel = false
		cfg.Report.JSON = false
	}
	if *flags.Metrics {
		cfg.Metrics.Enabled = true
	}
}

func run(ctx context.Context, cfg *config.Config, flags *BacktestFlags, log zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	from, err := cfg.FromDate()
	if err != nil {
		return err
	}
	to, err := cfg.ToDate()
	if err != nil {
		return err
	}

	scheduler, err := session.NewScheduler(session.DefaultTemplates(), loc)
	if err != nil {
		return err
	}
	classifier := &regime.Classifier{FallbackOnMissing: cfg.FallbackRegime}

	market, vol, err := buildProviders(cfg, scheduler, from, to, log)
	if err != nil {
		return err
	}

	strat, err := buildStrategy(cfg.Strategy)
	if err != nil {
		return err
	}

	engineCfg := engineConfig(cfg, from, to)
	simCfg := simConfig(cfg)

	engine, err := backtest.NewEngine(engineCfg, simCfg, scheduler, classifier, strat, market, vol, log)
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	recordRunMetrics(result)

	console := reporting.NewConsoleReporter()
	console.OutputResults(result)

	var mcResult *montecarlo.Result
	if cfg.MonteCarlo.Enabled {
		mcResult, err = runMonteCarlo(ctx, cfg, result, log)
		if err != nil {
			return err
		}
		console.OutputMonteCarlo(mcResult)
	}

	var wfReport *validation.Report
	if cfg.WalkForward.Enabled {
		wfReport, err = runWalkForward(ctx, cfg, scheduler, classifier, market, vol, from, to, log)
		if err != nil {
			return err
		}
		console.OutputWalkForward(wfReport)
	}

	return writeReports(cfg, result, mcResult, wfReport, log)
}

// buildProviders wires either the CSV files from the config or a seeded
// synthetic data set covering the run range.
func buildProviders(cfg *config.Config, scheduler *session.Scheduler, from, to time.Time, log zerolog.Logger) (data.MarketDataProvider, data.VolatilityProvider, error) {
	if cfg.Data.Synthetic {
		mem := data.NewMemoryProvider()
		seed := cfg.Data.SyntheticSeed
		if seed == 0 {
			seed = 1
		}
		// Pad one day either side so overnight sessions have data.
		start := from.AddDate(0, 0, -1)
		end := to.AddDate(0, 0, 1)
		for i, tpl := range scheduler.Templates() {
			pts := data.GenerateRandomWalk(start, end, 5*time.Minute, 10000*float64(i+1), 0.002, seed+int64(i))
			mem.AddPoints(tpl.Market, pts)
		}
		for _, day := range scheduler.TradingDays(from, to) {
			mem.SetReading(day, 18)
		}
		log.Info().Msg("using synthetic market data")
		return mem, mem, nil
	}

	csvProvider := data.NewCSVProvider(log)
	for market, file := range cfg.Data.MarketFiles {
		if err := csvProvider.LoadMarket(market, file); err != nil {
			return nil, nil, err
		}
	}
	vol, err := data.NewCSVVolatilityProvider(cfg.Data.VolatilityFile)
	if err != nil {
		return nil, nil, err
	}
	return csvProvider, vol, nil
}

func buildStrategy(cfg config.StrategyConfig) (strategy.Strategy, error) {
	factory, err := strategyFactory(cfg.Name)
	if err != nil {
		return nil, err
	}
	return factory(cfg.Params)
}

func strategyFactory(name string) (strategy.Factory, error) {
	switch name {
	case "opening_range", "":
		return strategy.OpeningRangeFactory, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

func engineConfig(cfg *config.Config, from, to time.Time) backtest.EngineConfig {
	return backtest.EngineConfig{
		InitialBalance:      cfg.InitialBalance,
		BaseFraction:        cfg.BaseFraction,
		LeverageCap:         cfg.LeverageCap,
		ExpansionFactor:     cfg.ExpansionFactor,
		DailyLossCap:        cfg.DailyLossCap,
		From:                from,
		To:                  to,
		Workers:             cfg.Workers,
		ToleratePartialDays: cfg.ToleratePartialDays,
	}
}

func simConfig(cfg *config.Config) backtest.SimConfig {
	return backtest.SimConfig{
		StopLossPct:    cfg.StopLossPct,
		TakeProfitPct:  cfg.TakeProfitPct,
		CommissionRate: cfg.CommissionRate,
		SlippageRate:   cfg.SlippageRate,
	}
}

func runMonteCarlo(ctx context.Context, cfg *config.Config, result *backtest.Result, log zerolog.Logger) (*montecarlo.Result, error) {
	returns := backtest.DailyReturns(result.EquityCurve)
	sim, err := montecarlo.New(montecarlo.Config{
		Paths:          cfg.MonteCarlo.Paths,
		Horizon:        cfg.MonteCarlo.Horizon,
		Seed:           cfg.MonteCarlo.Seed,
		Method:         montecarlo.Method(cfg.MonteCarlo.Method),
		InitialBalance: result.FinalBalance,
		RuinFloor:      cfg.MonteCarlo.RuinFloor,
		Workers:        cfg.Workers,
	}, log)
	if err != nil {
		return nil, err
	}
	mcResult, err := sim.Run(ctx, returns)
	if err != nil {
		return nil, err
	}
	monitoring.RecordMonteCarloPaths(mcResult.Paths)
	return mcResult, nil
}

// runWalkForward wraps the engine in a validation.Backtester so each window
// sees only its own date range.
func runWalkForward(
	ctx context.Context,
	cfg *config.Config,
	scheduler *session.Scheduler,
	classifier *regime.Classifier,
	market data.MarketDataProvider,
	vol data.VolatilityProvider,
	from, to time.Time,
	log zerolog.Logger,
) (*validation.Report, error) {
	runner := func(ctx context.Context, params map[string]float64, wfrom, wto time.Time) (validation.Outcome, error) {
		strat, err := buildStrategy(config.StrategyConfig{Name: cfg.Strategy.Name, Params: params})
		if err != nil {
			return validation.Outcome{}, err
		}
		engineCfg := engineConfig(cfg, wfrom, wto)
		engineCfg.Workers = 1 // windows already run concurrently
		engine, err := backtest.NewEngine(engineCfg, simConfig(cfg), scheduler, classifier, strat, market, vol, logger.Nop())
		if err != nil {
			return validation.Outcome{}, err
		}
		result, err := engine.Run(ctx)
		if err != nil {
			return validation.Outcome{}, err
		}
		return outcomeFromResult(result), nil
	}

	optimizer, err := validation.NewOptimizer(validation.Config{
		InSampleDays:  cfg.WalkForward.InSampleDays,
		OutSampleDays: cfg.WalkForward.OutSampleDays,
		Grid:          validation.Grid(cfg.WalkForward.Grid),
		Workers:       cfg.Workers,
	}, runner, log)
	if err != nil {
		return nil, err
	}

	report, err := optimizer.Run(ctx, scheduler.TradingDays(from, to))
	if err != nil {
		return nil, err
	}
	monitoring.RecordWalkForwardWindows(len(report.Windows))
	return report, nil
}

// outcomeFromResult scores a window by Sharpe, falling back to total return
// when the ratio is undefined (flat or degenerate equity).
func outcomeFromResult(result *backtest.Result) validation.Outcome {
	m := result.Metrics
	score := m.SharpeRatio
	if backtest.Undefined(score) {
		score = m.TotalReturn
	}
	if backtest.Undefined(score) {
		score = 0
	}
	return validation.Outcome{
		Score:       score,
		TotalReturn: m.TotalReturn,
		SharpeRatio: m.SharpeRatio,
		MaxDrawdown: m.MaxDrawdown,
		Trades:      m.TotalTrades,
	}
}

func writeReports(cfg *config.Config, result *backtest.Result, mc *montecarlo.Result, wf *validation.Report, log zerolog.Logger) error {
	dir := cfg.Report.OutputDir
	stamp := time.Now().Format("20060102_150405")

	if cfg.Report.CSV {
		csvReporter := reporting.NewCSVReporter()
		tradesPath := filepath.Join(dir, fmt.Sprintf("trades_%s.csv", stamp))
		if err := csvReporter.WriteTradesCSV(result, tradesPath); err != nil {
			return err
		}
		equityPath := filepath.Join(dir, fmt.Sprintf("equity_%s.csv", stamp))
		if err := csvReporter.WriteEquityCSV(result, equityPath); err != nil {
			return err
		}
		log.Info().Str("trades", tradesPath).Str("equity", equityPath).Msg("csv reports written")
	}

	if cfg.Report.Excel {
		excelPath := filepath.Join(dir, fmt.Sprintf("backtest_%s.xlsx", stamp))
		if err := reporting.NewExcelReporter().WriteWorkbook(result, mc, wf, excelPath); err != nil {
			return err
		}
		log.Info().Str("path", excelPath).Msg("excel report written")
	}

	if cfg.Report.JSON {
		jsonPath := filepath.Join(dir, fmt.Sprintf("summary_%s.json", stamp))
		if err := reporting.NewJSONReporter().WriteSummaryJSON(result, mc, wf, jsonPath); err != nil {
			return err
		}
		log.Info().Str("path", jsonPath).Msg("json summary written")
	}
	return nil
}

// errorCategory maps a run failure onto its metrics label.
func errorCategory(err error) string {
	var simErr *simerrors.SimError
	if errors.As(err, &simErr) {
		return string(simErr.Category)
	}
	return "UNKNOWN"
}

func recordRunMetrics(result *backtest.Result) {
	for _, day := range result.Days {
		if day.Skipped {
			monitoring.RecordDay("skipped", 0)
			monitoring.RecordError(string(simerrors.ErrorCategoryData))
			continue
		}
		monitoring.RecordDay("simulated", day.DayReturn)
		for _, sr := range day.Sessions {
			if sr.Trade != nil {
				monitoring.RecordSession(sr.Market)
			}
		}
	}
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	log.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn().Err(err).Msg("metrics endpoint stopped")
	}
}
