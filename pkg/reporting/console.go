package reporting

import (
	"fmt"
	"math"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hedgeforge/session-backtester/internal/backtest"
	"github.com/hedgeforge/session-backtester/pkg/montecarlo"
	"github.com/hedgeforge/session-backtester/pkg/validation"
)

// ConsoleReporter renders run summaries as tables on stdout.
type ConsoleReporter struct{}

// NewConsoleReporter creates a new console reporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// OutputResults prints the backtest summary table.
func (r *ConsoleReporter) OutputResults(result *backtest.Result) {
	m := result.Metrics

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Backtest Results")
	t.AppendRows([]table.Row{
		{"Initial Balance", money(result.InitialBalance)},
		{"Final Balance", money(result.FinalBalance)},
		{"Total Return", pct(m.TotalReturn)},
		{"Annualized Return", pct(m.AnnualizedReturn)},
		{"Max Drawdown", pct(m.MaxDrawdown)},
		{"Volatility (ann.)", pct(m.Volatility)},
		{"Sharpe Ratio", ratio(m.SharpeRatio)},
		{"Sortino Ratio", ratio(m.SortinoRatio)},
		{"Calmar Ratio", ratio(m.CalmarRatio)},
		{"VaR 95 (daily)", pct(m.VaR95)},
		{"CVaR 95 (daily)", pct(m.CVaR95)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Days Simulated", result.DaysSimulated},
		{"Days Skipped", result.DaysSkipped},
		{"Total Trades", m.TotalTrades},
		{"Winning Trades", m.WinningTrades},
		{"Losing Trades", m.LosingTrades},
		{"Win Rate", pct(m.WinRate)},
		{"Profit Factor", ratio(m.ProfitFactor)},
		{"Kelly Fraction", ratio(m.KellyFraction)},
		{"Risk of Ruin (analytic)", pct(m.RiskOfRuin)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.Render()
}

// OutputMonteCarlo prints the Monte Carlo distribution summary.
func (r *ConsoleReporter) OutputMonteCarlo(res *montecarlo.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Monte Carlo (%d paths, %d days, %s)", res.Paths, res.Horizon, res.Method))
	t.AppendRows([]table.Row{
		{"Median Terminal", money(res.MedianTerminal)},
		{"Terminal P5", money(res.BandP5[len(res.BandP5)-1])},
		{"Terminal P95", money(res.BandP95[len(res.BandP95)-1])},
		{"Prob. of Profit", pct(res.ProbProfit)},
		{"VaR 95 (terminal)", pct(res.VaR95)},
		{"CVaR 95 (terminal)", pct(res.CVaR95)},
		{"VaR 99 (terminal)", pct(res.VaR99)},
		{"Median Max Drawdown", pct(res.MedianMaxDrawdown)},
		{"Worst Max Drawdown", pct(res.WorstMaxDrawdown)},
		{"Risk of Ruin", pct(res.RiskOfRuin)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.Render()
}

// OutputWalkForward prints per-window results plus the aggregate verdict.
func (r *ConsoleReporter) OutputWalkForward(report *validation.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Walk-Forward Windows")
	t.AppendHeader(table.Row{"#", "IS From", "IS To", "OOS From", "OOS To", "IS Score", "OOS Score", "Degradation"})
	for _, w := range report.Windows {
		t.AppendRow(table.Row{
			w.Window.Index,
			w.Window.ISFrom.Format("2006-01-02"),
			w.Window.ISTo.Format("2006-01-02"),
			w.Window.OOSFrom.Format("2006-01-02"),
			w.Window.OOSTo.Format("2006-01-02"),
			ratio(w.InSample.Score),
			ratio(w.OutOfSample.Score),
			fmt.Sprintf("%.1f%%", w.Degradation),
		})
	}
	t.Render()

	s := table.NewWriter()
	s.SetOutputMirror(os.Stdout)
	s.SetTitle("Walk-Forward Summary")
	s.AppendRows([]table.Row{
		{"Avg IS Score", ratio(report.AvgISScore)},
		{"Avg OOS Score", ratio(report.AvgOOSScore)},
		{"Avg Degradation", fmt.Sprintf("%.1f%%", report.AvgDegradation)},
		{"Overfitting Risk", report.OverfittingRisk},
	})
	s.AppendSeparator()
	for param, stability := range report.Stability {
		s.AppendRow(table.Row{
			fmt.Sprintf("%s (robust / cv / corr)", param),
			fmt.Sprintf("%.3g / %s / %s",
				report.RobustParams[param], ratio(stability.CV), ratio(report.Sensitivity[param])),
		})
	}
	s.Render()
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func pct(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func ratio(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
