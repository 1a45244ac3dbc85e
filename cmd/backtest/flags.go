package main

import (
	"flag"
	"fmt"
	"strings"
)

// BacktestFlags holds all command line flags for the backtest command
type BacktestFlags struct {
	// Configuration
	ConfigFile *string
	EnvFile    *string

	// Overrides
	From      *string
	To        *string
	Workers   *int
	LogLevel  *string
	OutputDir *string

	// Stage toggles
	MonteCarlo  *bool
	WalkForward *bool
	Synthetic   *bool

	// Output options
	ConsoleOnly *bool
	Metrics     *bool

	// Help and version
	ShowVersion *bool
	ShowHelp    *bool
}

// NewBacktestFlags creates and registers all command line flags
func NewBacktestFlags() *BacktestFlags {
	return &BacktestFlags{
		// Configuration
		ConfigFile: flag.String("config", "configs/backtest.json", "Path to configuration file"),
		EnvFile:    flag.String("env", ".env", "Environment file path"),

		// Overrides
		From:      flag.String("from", "", "Override start date (2006-01-02)"),
		To:        flag.String("to", "", "Override end date (2006-01-02)"),
		Workers:   flag.Int("workers", 0, "Override worker count (0 = config value)"),
		LogLevel:  flag.String("log-level", "", "Override log level (debug, info, warn, error)"),
		OutputDir: flag.String("output", "", "Override report output directory"),

		// Stage toggles
		MonteCarlo:  flag.Bool("monte-carlo", false, "Force Monte Carlo stage on"),
		WalkForward: flag.Bool("walk-forward", false, "Force walk-forward stage on"),
		Synthetic:   flag.Bool("synthetic", false, "Use seeded synthetic data instead of files"),

		// Output options
		ConsoleOnly: flag.Bool("console-only", false, "Console output only (no files)"),
		Metrics:     flag.Bool("metrics", false, "Expose prometheus /metrics during the run"),

		// Help and version
		ShowVersion: flag.Bool("version", false, "Show version information"),
		ShowHelp:    flag.Bool("help", false, "Show detailed help"),
	}
}

// PrintUsageExamples prints usage examples for the backtest command
func PrintUsageExamples() {
	examples := []struct {
		command     string
		description string
	}{
		{
			"backtest -config configs/backtest.json",
			"Run the backtest described by the config file",
		},
		{
			"backtest -config configs/backtest.json -from 2023-01-02 -to 2023-12-29",
			"Run on a different date range",
		},
		{
			"backtest -config configs/backtest.json -monte-carlo -walk-forward",
			"Run the full pipeline including both validation stages",
		},
		{
			"backtest -synthetic -console-only",
			"Seeded synthetic smoke run with no file output",
		},
		{
			"backtest -config configs/backtest.json -workers 8 -metrics",
			"Parallel day evaluation with the prometheus endpoint exposed",
		},
	}

	fmt.Printf("\nUSAGE EXAMPLES:\n")
	fmt.Printf("%s\n", strings.Repeat("-", 60))

	for _, example := range examples {
		fmt.Printf("\n- %s\n", example.description)
		fmt.Printf("  %s\n", example.command)
	}
}
