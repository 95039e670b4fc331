// Package cmd contains all CLI commands for fluxpro.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atmoslab/fluxpro/internal/config"
	"github.com/atmoslab/fluxpro/internal/logger"
	"github.com/atmoslab/fluxpro/pkg/version"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	// Loaded configuration (available to subcommands)
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fluxpro",
	Short: "fluxpro - Gas flux analysis for chamber measurements",
	Long: `fluxpro processes output files from a Teledyne NOy analyser and an
FTIR instrument and computes blank-corrected gas fluxes per sample:

  • Automatic Parsing - Separator and header detection per file
  • Flux Pipeline - Unit standardization, cycle labelling, blank correction
  • Per-Sample Output - One CSV per measured sample
  • Interactive Plots - Flux-over-cycle charts in the browser
  • Run History - Results stored in SQLite or PostgreSQL

Documentation: https://github.com/atmoslab/fluxpro`,
	Version: version.GetVersion(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "generate" {
			return nil
		}

		// Initialize logger based on verbose flag
		development := logger.IsDevelopment()
		logLevel := "info"
		if verbose {
			logLevel = "debug"
		}
		if err := logger.Init(logLevel, development); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// Load configuration (for commands that need it)
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			// Plotting an existing output file works fine on defaults.
			if cmd.Name() == "plot" {
				cfg = config.NewDefault()
				return nil
			}
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// Reinitialize logger with config settings (verbose flag takes precedence)
		finalLogLevel := cfg.General.LogLevel
		if verbose {
			finalLogLevel = "debug"
		}
		if err := logger.Init(finalLogLevel, development); err != nil {
			return fmt.Errorf("failed to reinitialize logger: %w", err)
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")

	// Version template
	rootCmd.SetVersionTemplate(`{{printf "fluxpro %s\n" .Version}}`)
}

// GetConfig returns the loaded configuration.
// Returns nil if config hasn't been loaded yet.
func GetConfig() *config.Config {
	return cfg
}

// SetConfig sets the configuration (useful for testing).
func SetConfig(c *config.Config) {
	cfg = c
}
