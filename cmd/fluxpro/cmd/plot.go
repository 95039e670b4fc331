package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atmoslab/fluxpro/internal/api"
	"github.com/atmoslab/fluxpro/internal/config"
	"github.com/atmoslab/fluxpro/internal/logger"
	"github.com/atmoslab/fluxpro/internal/output"
	"github.com/atmoslab/fluxpro/internal/storage"
)

var (
	plotListen    string
	plotNoBrowser bool
)

// plotCmd represents the plot command
var plotCmd = &cobra.Command{
	Use:   "plot <output-file>",
	Short: "Plot flux over cycle for every gas in an output file",
	Long: `Serve an interactive chart page for a fluxpro output file and open
it in the browser. One chart per gas, corrected flux per cycle with the
cycle means overlaid.

Examples:
  # Plot an output file
  fluxpro plot measurement_2_out.csv

  # Serve on a specific address without opening a browser
  fluxpro plot measurement_2_out.csv --listen 0.0.0.0:9090 --no-browser`,
	Args: cobra.ExactArgs(1),
	RunE: runPlot,
}

func runPlot(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		cfg = config.NewDefault()
	}

	table, err := output.ReadTable(args[0])
	if err != nil {
		return fmt.Errorf("failed to read output file: %w", err)
	}
	if len(table.Gases) == 0 {
		return fmt.Errorf("no flux columns found in %s", args[0])
	}

	plotCfg := cfg.Plot
	if plotListen != "" {
		plotCfg.Listen = plotListen
	}
	if plotNoBrowser {
		plotCfg.OpenBrowser = false
	}

	// Run history endpoints are only served when a database already exists.
	store := openExistingStorage(cfg)
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	server, err := api.NewServer(&plotCfg, table, store, logger.Log)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
	}()

	url := "http://" + plotCfg.Listen
	fmt.Printf("Serving flux charts for %s (sample %d) at %s\n", table.Path, table.Sample, url)
	fmt.Println("Press Ctrl+C to stop")

	if plotCfg.OpenBrowser {
		go func() {
			// Give the listener a moment to come up.
			time.Sleep(300 * time.Millisecond)
			if err := openBrowser(url); err != nil {
				logger.Warn("Failed to open browser", zap.Error(err))
				fmt.Printf("Open %s manually\n", url)
			}
		}()
	}

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		select {
		case <-ctx.Done():
			return nil
		default:
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}

// openExistingStorage attaches run history if a database is already there.
// It never creates one just to serve a plot.
func openExistingStorage(cfg *config.Config) storage.Storage {
	if cfg.Storage.Type == "sqlite" {
		if _, err := os.Stat(cfg.Storage.SQLite.Path); err != nil {
			return nil
		}
	}

	store, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		logger.Debug("Run history unavailable", zap.Error(err))
		return nil
	}
	if err := store.Init(context.Background()); err != nil {
		logger.Debug("Run history unavailable", zap.Error(err))
		_ = store.Close()
		return nil
	}
	return store
}

// openBrowser opens the given URL with the platform's default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

func init() {
	rootCmd.AddCommand(plotCmd)

	plotCmd.Flags().StringVar(&plotListen, "listen", "",
		"listen address (default from config, 127.0.0.1:8080)")
	plotCmd.Flags().BoolVar(&plotNoBrowser, "no-browser", false,
		"don't open the chart page in the browser")
}
