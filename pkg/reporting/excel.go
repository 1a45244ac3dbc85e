package reporting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/hedgeforge/session-backtester/internal/backtest"
	"github.com/hedgeforge/session-backtester/pkg/montecarlo"
	"github.com/hedgeforge/session-backtester/pkg/validation"
)

// ExcelReporter writes the full run into one workbook.
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header   int
	currency int
	percent  int
}

// WriteWorkbook writes Summary, Equity and Trades sheets, plus MonteCarlo
// and WalkForward sheets when those stages ran (pass nil to omit).
func (r *ExcelReporter) WriteWorkbook(result *backtest.Result, mc *montecarlo.Result, wf *validation.Report, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const equitySheet = "Equity"
	const tradesSheet = "Trades"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	fx.NewSheet(equitySheet)
	fx.NewSheet(tradesSheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, result, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, equitySheet, result, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, result, styles); err != nil {
		return err
	}

	if mc != nil {
		const mcSheet = "MonteCarlo"
		fx.NewSheet(mcSheet)
		if err := r.writeMonteCarloSheet(fx, mcSheet, mc, styles); err != nil {
			return err
		}
	}
	if wf != nil {
		const wfSheet = "WalkForward"
		fx.NewSheet(wfSheet)
		if err := r.writeWalkForwardSheet(fx, wfSheet, wf, styles); err != nil {
			return err
		}
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return styles, err
	}

	styles.currency, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return styles, err
	}

	styles.percent, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	return styles, err
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	m := result.Metrics
	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Initial Balance", result.InitialBalance, styles.currency},
		{"Final Balance", result.FinalBalance, styles.currency},
		{"Total Return", cell(m.TotalReturn), styles.percent},
		{"Annualized Return", cell(m.AnnualizedReturn), styles.percent},
		{"Max Drawdown", cell(m.MaxDrawdown), styles.percent},
		{"Volatility (ann.)", cell(m.Volatility), styles.percent},
		{"Sharpe Ratio", cell(m.SharpeRatio), 0},
		{"Sortino Ratio", cell(m.SortinoRatio), 0},
		{"Calmar Ratio", cell(m.CalmarRatio), 0},
		{"VaR 95 (daily)", cell(m.VaR95), styles.percent},
		{"CVaR 95 (daily)", cell(m.CVaR95), styles.percent},
		{"Days Simulated", result.DaysSimulated, 0},
		{"Days Skipped", result.DaysSkipped, 0},
		{"Total Trades", m.TotalTrades, 0},
		{"Win Rate", cell(m.WinRate), styles.percent},
		{"Profit Factor", cell(m.ProfitFactor), 0},
		{"Kelly Fraction", cell(m.KellyFraction), 0},
		{"Risk of Ruin (analytic)", cell(m.RiskOfRuin), styles.percent},
	}

	for i, row := range rows {
		if err := fx.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), row.label); err != nil {
			return err
		}
		ref := fmt.Sprintf("B%d", i+1)
		if err := fx.SetCellValue(sheet, ref, row.value); err != nil {
			return err
		}
		if row.style != 0 {
			if err := fx.SetCellStyle(sheet, ref, ref, row.style); err != nil {
				return err
			}
		}
	}
	return fx.SetColWidth(sheet, "A", "A", 26)
}

func (r *ExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	headers := []string{"Date", "Balance", "Day Return", "Regime", "Circuit Broken", "Skipped", "Skip Reason"}
	if err := writeHeaderRow(fx, sheet, headers, styles.header); err != nil {
		return err
	}

	for i, day := range result.Days {
		rowIdx := i + 2
		values := []interface{}{
			day.Date.Format("2006-01-02"),
			day.EndBalance,
			day.DayReturn,
			day.Regime.String(),
			day.CircuitBroken,
			day.Skipped,
			day.SkipReason,
		}
		if err := writeRow(fx, sheet, rowIdx, values); err != nil {
			return err
		}
	}
	if n := len(result.Days); n > 0 {
		if err := fx.SetCellStyle(sheet, "B2", fmt.Sprintf("B%d", n+1), styles.currency); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, "C2", fmt.Sprintf("C%d", n+1), styles.percent); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	headers := []string{"Day", "Market", "Seq", "Side", "State", "Entry Time", "Exit Time",
		"Entry Price", "Exit Price", "Notional", "Commission", "PnL", "Return", "Reason"}
	if err := writeHeaderRow(fx, sheet, headers, styles.header); err != nil {
		return err
	}

	for i, t := range result.Trades {
		rowIdx := i + 2
		values := []interface{}{
			t.Day.Format("2006-01-02"),
			t.Market,
			t.Sequence,
			t.Side.String(),
			t.State.String(),
			t.EntryTime.Format("2006-01-02 15:04:05"),
			t.ExitTime.Format("2006-01-02 15:04:05"),
			t.EntryPrice,
			t.ExitPrice,
			t.Notional,
			t.Commission,
			t.PnL,
			t.Return,
			t.Reason,
		}
		if err := writeRow(fx, sheet, rowIdx, values); err != nil {
			return err
		}
	}
	if n := len(result.Trades); n > 0 {
		// Entry/exit prices through PnL are money; the return column is a
		// fraction.
		if err := fx.SetCellStyle(sheet, "H2", fmt.Sprintf("L%d", n+1), styles.currency); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, "M2", fmt.Sprintf("M%d", n+1), styles.percent); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExcelReporter) writeMonteCarloSheet(fx *excelize.File, sheet string, mc *montecarlo.Result, styles excelStyles) error {
	summary := []struct {
		label string
		value interface{}
	}{
		{"Paths", mc.Paths},
		{"Horizon (days)", mc.Horizon},
		{"Method", string(mc.Method)},
		{"Seed", mc.Seed},
		{"Median Terminal", mc.MedianTerminal},
		{"Prob. of Profit", mc.ProbProfit},
		{"VaR 95 (terminal)", cell(mc.VaR95)},
		{"CVaR 95 (terminal)", cell(mc.CVaR95)},
		{"VaR 99 (terminal)", cell(mc.VaR99)},
		{"Median Max Drawdown", mc.MedianMaxDrawdown},
		{"Worst Max Drawdown", mc.WorstMaxDrawdown},
		{"Risk of Ruin", mc.RiskOfRuin},
	}
	for i, row := range summary {
		if err := fx.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), row.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, fmt.Sprintf("B%d", i+1), row.value); err != nil {
			return err
		}
	}

	// Percentile bands, one row per horizon day.
	bandStart := len(summary) + 2
	if err := writeRow(fx, sheet, bandStart, []interface{}{"Day", "P5", "P50", "P95"}); err != nil {
		return err
	}
	for day := 0; day < len(mc.BandP50); day++ {
		values := []interface{}{day, mc.BandP5[day], mc.BandP50[day], mc.BandP95[day]}
		if err := writeRow(fx, sheet, bandStart+1+day, values); err != nil {
			return err
		}
	}
	return fx.SetColWidth(sheet, "A", "A", 24)
}

func (r *ExcelReporter) writeWalkForwardSheet(fx *excelize.File, sheet string, wf *validation.Report, styles excelStyles) error {
	headers := []string{"Window", "IS From", "IS To", "OOS From", "OOS To", "IS Score", "OOS Score", "Degradation %"}
	if err := writeHeaderRow(fx, sheet, headers, styles.header); err != nil {
		return err
	}

	for i, w := range wf.Windows {
		rowIdx := i + 2
		values := []interface{}{
			w.Window.Index,
			w.Window.ISFrom.Format("2006-01-02"),
			w.Window.ISTo.Format("2006-01-02"),
			w.Window.OOSFrom.Format("2006-01-02"),
			w.Window.OOSTo.Format("2006-01-02"),
			cell(w.InSample.Score),
			cell(w.OutOfSample.Score),
			w.Degradation,
		}
		if err := writeRow(fx, sheet, rowIdx, values); err != nil {
			return err
		}
	}

	summaryStart := len(wf.Windows) + 3
	summary := []struct {
		label string
		value interface{}
	}{
		{"Avg IS Score", cell(wf.AvgISScore)},
		{"Avg OOS Score", cell(wf.AvgOOSScore)},
		{"Avg Degradation %", wf.AvgDegradation},
		{"Overfitting Risk", wf.OverfittingRisk},
	}
	for i, row := range summary {
		if err := fx.SetCellValue(sheet, fmt.Sprintf("A%d", summaryStart+i), row.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, fmt.Sprintf("B%d", summaryStart+i), row.value); err != nil {
			return err
		}
	}
	return nil
}

func writeHeaderRow(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		cellRef := fmt.Sprintf("%s1", col)
		if err := fx.SetCellValue(sheet, cellRef, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cellRef, cellRef, style); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(fx *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v); err != nil {
			return err
		}
	}
	return nil
}

// cell maps non-finite metric values to strings Excel can display.
func cell(v float64) interface{} {
	if math.IsNaN(v) {
		return "n/a"
	}
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return v
}
