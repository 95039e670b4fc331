package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atmoslab/fluxpro/internal/api"
	"github.com/atmoslab/fluxpro/internal/flux"
	"github.com/atmoslab/fluxpro/internal/logger"
	"github.com/atmoslab/fluxpro/internal/storage"
	"github.com/atmoslab/fluxpro/internal/watch"
)

var watchNoSave bool

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a directory and process new instrument files",
	Long: `Watch a directory for new instrument files and run the flux pipeline
for each one as it appears. A scheduled rescan picks up files whose
filesystem events were missed.

Examples:
  # Watch the instrument export directory
  fluxpro watch /data/noy-exports

  # Watch without recording runs in the database
  fluxpro watch /data/noy-exports --no-save`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	dir := args[0]

	// Initialize storage if saving results
	var store storage.Storage
	var err error
	if !watchNoSave {
		store, err = storage.NewStorage(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		if err := store.Init(context.Background()); err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	processor := flux.NewProcessor(cfg, logger.Log)
	job := watch.NewProcessJob(cfg, processor, store, logger.Log)

	watcher, err := watch.NewWatcher(dir, cfg, job, logger.Log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received signal, stopping watcher", zap.String("signal", sig.String()))
		cancel()
	}()

	// Serve Prometheus metrics so long-running watchers can be scraped
	if cfg.Watch.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", api.MetricsHandler())
		metricsSrv := &http.Server{Addr: cfg.Watch.MetricsListen, Handler: mux}
		go func() {
			logger.Info("Metrics listener started", zap.String("addr", cfg.Watch.MetricsListen))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics listener failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
		fmt.Printf("Serving metrics on http://%s/metrics\n", cfg.Watch.MetricsListen)
	}

	fmt.Printf("Watching %s for instrument files (%v)\n", dir, cfg.Watch.Extensions)
	if cfg.Watch.Enabled {
		fmt.Printf("Rescan schedule: %s\n", cfg.Watch.Schedule)
	}
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	// Blocks until the context is cancelled
	return watcher.Run(ctx)
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchNoSave, "no-save", false,
		"don't record runs in the database")
}
