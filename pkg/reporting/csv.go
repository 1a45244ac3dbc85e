package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hedgeforge/session-backtester/internal/backtest"
)

// CSVReporter writes the trade log and equity curve as CSV files.
type CSVReporter struct{}

// NewCSVReporter creates a new CSV reporter
func NewCSVReporter() *CSVReporter {
	return &CSVReporter{}
}

// WriteTradesCSV writes the session-level trade log.
func (r *CSVReporter) WriteTradesCSV(result *backtest.Result, path string) error {
	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"Day",
		"Market",
		"Sequence",
		"Side",
		"State",
		"Entry_Time",
		"Exit_Time",
		"Entry_Price",
		"Exit_Price",
		"Notional",
		"Commission",
		"PnL",
		"Return",
		"Reason",
	}); err != nil {
		return err
	}

	for _, t := range result.Trades {
		record := []string{
			t.Day.Format("2006-01-02"),
			t.Market,
			strconv.Itoa(t.Sequence),
			t.Side.String(),
			t.State.String(),
			t.EntryTime.Format("2006-01-02 15:04:05"),
			t.ExitTime.Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(t.EntryPrice, 'f', 4, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', 4, 64),
			strconv.FormatFloat(t.Notional, 'f', 2, 64),
			strconv.FormatFloat(t.Commission, 'f', 2, 64),
			strconv.FormatFloat(t.PnL, 'f', 2, 64),
			strconv.FormatFloat(t.Return, 'f', 6, 64),
			t.Reason,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteEquityCSV writes one row per trading day, skipped days included.
func (r *CSVReporter) WriteEquityCSV(result *backtest.Result, path string) error {
	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"Date",
		"Balance",
		"Day_Return",
		"Regime",
		"Circuit_Broken",
		"Skipped",
		"Skip_Reason",
	}); err != nil {
		return err
	}

	for _, day := range result.Days {
		record := []string{
			day.Date.Format("2006-01-02"),
			strconv.FormatFloat(day.EndBalance, 'f', 2, 64),
			strconv.FormatFloat(day.DayReturn, 'f', 6, 64),
			day.Regime.String(),
			strconv.FormatBool(day.CircuitBroken),
			strconv.FormatBool(day.Skipped),
			day.SkipReason,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func createWithDir(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return os.Create(path)
}
