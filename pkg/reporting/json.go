package reporting

import (
	"encoding/json"
	"math"

	"github.com/hedgeforge/session-backtester/internal/backtest"
	"github.com/hedgeforge/session-backtester/pkg/montecarlo"
	"github.com/hedgeforge/session-backtester/pkg/validation"
)

// JSONReporter writes a machine-readable run summary.
type JSONReporter struct{}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{}
}

// runSummary is the serialized shape. Metric values are strings because the
// NaN/Inf sentinels have no JSON representation.
type runSummary struct {
	InitialBalance float64           `json:"initial_balance"`
	FinalBalance   float64           `json:"final_balance"`
	DaysSimulated  int               `json:"days_simulated"`
	DaysSkipped    int               `json:"days_skipped"`
	TotalTrades    int               `json:"total_trades"`
	Metrics        map[string]string `json:"metrics"`
	MonteCarlo     map[string]string `json:"monte_carlo,omitempty"`
	WalkForward    map[string]string `json:"walk_forward,omitempty"`
}

// WriteSummaryJSON writes the summary file. mc and wf may be nil.
func (r *JSONReporter) WriteSummaryJSON(result *backtest.Result, mc *montecarlo.Result, wf *validation.Report, path string) error {
	m := result.Metrics
	summary := runSummary{
		InitialBalance: result.InitialBalance,
		FinalBalance:   result.FinalBalance,
		DaysSimulated:  result.DaysSimulated,
		DaysSkipped:    result.DaysSkipped,
		TotalTrades:    m.TotalTrades,
		Metrics: map[string]string{
			"total_return":      jsonNum(m.TotalReturn),
			"annualized_return": jsonNum(m.AnnualizedReturn),
			"max_drawdown":      jsonNum(m.MaxDrawdown),
			"volatility":        jsonNum(m.Volatility),
			"sharpe_ratio":      jsonNum(m.SharpeRatio),
			"sortino_ratio":     jsonNum(m.SortinoRatio),
			"calmar_ratio":      jsonNum(m.CalmarRatio),
			"var_95":            jsonNum(m.VaR95),
			"cvar_95":           jsonNum(m.CVaR95),
			"win_rate":          jsonNum(m.WinRate),
			"profit_factor":     jsonNum(m.ProfitFactor),
			"kelly_fraction":    jsonNum(m.KellyFraction),
			"risk_of_ruin":      jsonNum(m.RiskOfRuin),
		},
	}

	if mc != nil {
		summary.MonteCarlo = map[string]string{
			"median_terminal":     jsonNum(mc.MedianTerminal),
			"prob_profit":         jsonNum(mc.ProbProfit),
			"var_95":              jsonNum(mc.VaR95),
			"cvar_95":             jsonNum(mc.CVaR95),
			"median_max_drawdown": jsonNum(mc.MedianMaxDrawdown),
			"risk_of_ruin":        jsonNum(mc.RiskOfRuin),
		}
	}
	if wf != nil {
		summary.WalkForward = map[string]string{
			"avg_is_score":     jsonNum(wf.AvgISScore),
			"avg_oos_score":    jsonNum(wf.AvgOOSScore),
			"avg_degradation":  jsonNum(wf.AvgDegradation),
			"overfitting_risk": wf.OverfittingRisk,
		}
	}

	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}

	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(raw)
	return err
}

func jsonNum(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	raw, _ := json.Marshal(v)
	return string(raw)
}
