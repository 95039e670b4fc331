package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atmoslab/fluxpro/internal/api"
	"github.com/atmoslab/fluxpro/internal/config"
	"github.com/atmoslab/fluxpro/internal/flux"
	"github.com/atmoslab/fluxpro/internal/logger"
	"github.com/atmoslab/fluxpro/internal/output"
	"github.com/atmoslab/fluxpro/internal/storage"
)

const (
	colorGreen = "\033[32m"
	colorReset = "\033[0m"

	asciiArt = ` ___ _
|  _| |_ _ _ _ ___ ___ ___
|  _| | | |_'_| . |  _| . |
|_| |_|___|_,_|  _|_| |___|
              |_|
`
)

var (
	runOutDir string
	runNoSave bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <input-file>",
	Short: "Process an instrument file and write per-sample flux outputs",
	Long: `Run the flux pipeline for one instrument output file.

The input is parsed (separator and header are detected automatically),
gas concentrations are converted to mol/L, readings are labelled with
cycle and sample, transition minutes are discarded, fluxes are derived
and blank-corrected, and one output CSV per sample is written.

Examples:
  # Process a file with the default config
  fluxpro run measurement.csv

  # Use a specific config and output directory
  fluxpro run measurement.csv --config lab.yaml --out results/

  # Process without recording the run in the database
  fluxpro run measurement.csv --no-save`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	inputFile := args[0]

	// Initialize storage if saving results
	var store storage.Storage
	var err error
	if !runNoSave {
		store, err = storage.NewStorage(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		if err := store.Init(context.Background()); err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received interrupt, cancelling run...")
		cancel()
	}()

	printRunHeader(cfg, inputFile)

	processor := flux.NewProcessor(cfg, logger.Log)
	result, err := processor.ProcessFile(ctx, inputFile)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	outDir := runOutDir
	if outDir == "" {
		outDir = cfg.Files.OutputDirectory
	}
	paths, err := output.Write(result, outDir)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	api.UpdateMetricsForRun(result)

	saved := saveRun(ctx, store, result, cfg, inputFile)

	fmt.Printf("Processed %d readings across %d gas(es) in %s\n",
		result.Readings, len(result.Gases), result.Duration.Round(time.Millisecond))
	fmt.Println()
	for _, p := range paths {
		fmt.Printf("  %s\n", p)
	}
	fmt.Println()
	if saved {
		fmt.Println("Run saved to database")
	}

	return nil
}

// saveRun records the result in storage and reports whether it was stored.
// Save failures are logged, not fatal: the output files are already written.
func saveRun(ctx context.Context, store storage.Storage, result *flux.RunResult, cfg *config.Config, inputFile string) bool {
	if store == nil {
		return false
	}

	run, records := storage.FromRunResult(result, cfg)
	if err := store.SaveRun(ctx, run, records); err != nil {
		logger.Warn("Failed to save run",
			zap.String("file", inputFile),
			zap.Error(err),
		)
		return false
	}

	logger.Debug("Run saved",
		zap.Int64("id", run.ID),
		zap.Int("records", len(records)),
	)
	return true
}

// printRunHeader prints the banner and the active pipeline settings.
func printRunHeader(cfg *config.Config, inputFile string) {
	fmt.Printf("%s%s%s\n", colorGreen, asciiArt, colorReset)
	fmt.Println("Input file:", inputFile)
	fmt.Println("Cycles:", cfg.Samples.TotalCycles)
	fmt.Println("Samples per cycle:", cfg.Samples.SamplesPerCycle)
	fmt.Println("Minutes per sample:", cfg.Samples.MinutesPerSample)
	fmt.Println("Discard minutes:", cfg.Samples.DiscardMinutes)
	fmt.Printf("Blank: %s %d\n", cfg.Blank.Mode, cfg.Blank.Index)
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runOutDir, "out", "",
		"output directory (default: next to the input file)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false,
		"don't record the run in the database")
}
