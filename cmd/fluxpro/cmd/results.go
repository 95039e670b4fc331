package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/atmoslab/fluxpro/internal/storage"
)

var (
	resultsInput       string
	resultsLimit       int
	resultsJSON        bool
	resultsSince       string
	resultsGas         string
	resultsStatsPeriod string
)

// resultsCmd represents the results command
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show stored flux runs",
	Long: `Display runs recorded in the database.

Examples:
  # Show recent runs
  fluxpro results

  # Show runs for a specific input file
  fluxpro results --input measurement.csv

  # Show the last 10 runs as JSON
  fluxpro results --limit 10 --json

  # Show runs from the last 24 hours
  fluxpro results --since 24h

  # Show aggregated statistics for one gas
  fluxpro results --gas N2O --period 168h`,
	RunE: runResults,
}

func runResults(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	// Initialize storage
	store, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	if err := store.Init(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	// Show gas statistics if requested
	if resultsGas != "" {
		return showGasStats(ctx, store)
	}

	// Build filter
	filter := storage.RunFilter{
		InputFile: resultsInput,
		Limit:     resultsLimit,
	}

	// Parse since duration
	if resultsSince != "" {
		duration, err := time.ParseDuration(resultsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format for --since: %w", err)
		}
		filter.Since = time.Now().Add(-duration)
	}

	// Get runs
	runs, err := store.GetRuns(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to get runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	// Output runs
	if resultsJSON {
		data, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal runs: %w", err)
		}
		fmt.Println(string(data))
	} else {
		printRunsTable(runs)
	}

	return nil
}

func showGasStats(ctx context.Context, store storage.Storage) error {
	// Parse period
	period := 24 * time.Hour // Default 24h
	if resultsStatsPeriod != "" {
		var err error
		period, err = time.ParseDuration(resultsStatsPeriod)
		if err != nil {
			return fmt.Errorf("invalid duration format for --period: %w", err)
		}
	}

	stats, err := store.GetGasStats(ctx, resultsGas, period)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if resultsJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		fmt.Println(string(data))
	} else {
		printGasStats(stats)
	}

	return nil
}

func printRunsTable(runs []storage.Run) {
	fmt.Println()
	fmt.Println("Flux Runs")
	fmt.Println("=========")
	fmt.Println()

	// Header
	fmt.Printf("%-5s | %-28s | %-18s | %8s | %-12s | %s\n",
		"ID", "Input", "Gases", "Readings", "Blank", "Time")
	fmt.Println("------+------------------------------+--------------------+----------+--------------+---------------------")

	for _, r := range runs {
		timeStr := r.CreatedAt.Local().Format("2006-01-02 15:04:05")
		blank := fmt.Sprintf("%s %d", r.BlankMode, r.BlankIndex)

		fmt.Printf("%-5d | %-28s | %-18s | %8d | %-12s | %s\n",
			r.ID, truncate(r.InputFile, 28), truncate(strings.Join(r.Gases, ","), 18),
			r.Readings, blank, timeStr)
	}

	fmt.Println()
	fmt.Printf("Total: %d runs\n", len(runs))
}

func printGasStats(stats *storage.GasStats) {
	fmt.Println()
	fmt.Printf("Statistics for: %s\n", stats.Gas)
	fmt.Printf("Period: %s (from %s to %s)\n",
		stats.Period,
		stats.Since.Local().Format("2006-01-02 15:04"),
		stats.Until.Local().Format("2006-01-02 15:04"))
	fmt.Println("==========================================")
	fmt.Println()

	fmt.Printf("Runs:      %d\n", stats.RunCount)
	fmt.Printf("Records:   %d\n", stats.RecordCount)
	fmt.Println()

	if stats.RecordCount > 0 {
		fmt.Println("Corrected flux (mol/min/m^2):")
		fmt.Printf("  Average: %.4g | Min: %.4g | Max: %.4g\n",
			stats.AvgFlux, stats.MinFlux, stats.MaxFlux)
	} else {
		fmt.Println("No flux records in this period.")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.Flags().StringVar(&resultsInput, "input", "",
		"filter runs by input file name")
	resultsCmd.Flags().IntVarP(&resultsLimit, "limit", "n", 10,
		"maximum number of runs to show")
	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false,
		"output as JSON")
	resultsCmd.Flags().StringVar(&resultsSince, "since", "",
		"show runs since duration (e.g., 24h, 168h)")
	resultsCmd.Flags().StringVar(&resultsGas, "gas", "",
		"show aggregated statistics for a gas instead of runs")
	resultsCmd.Flags().StringVar(&resultsStatsPeriod, "period", "24h",
		"time period for gas statistics (e.g., 24h, 168h)")
}
