// Package main is the entry point for the fluxpro CLI application.
package main

import (
	"os"

	"github.com/atmoslab/fluxpro/cmd/fluxpro/cmd"
	"github.com/atmoslab/fluxpro/internal/logger"
)

func main() {
	// Initialize default logger (will be reconfigured after config is loaded)
	logger.InitDefault()
	defer logger.Sync()

	// Execute the root command
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
