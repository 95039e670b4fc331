package watch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atmoslab/fluxpro/internal/api"
	"github.com/atmoslab/fluxpro/internal/config"
	"github.com/atmoslab/fluxpro/internal/flux"
	"github.com/atmoslab/fluxpro/internal/output"
	"github.com/atmoslab/fluxpro/internal/storage"
)

// ProcessJob runs the flux pipeline for one instrument file and fans the
// result out to output files, storage and metrics.
type ProcessJob struct {
	cfg       *config.Config
	processor *flux.Processor
	storage   storage.Storage
	logger    *zap.Logger
}

// NewProcessJob creates a new process job.
func NewProcessJob(cfg *config.Config, processor *flux.Processor, store storage.Storage, logger *zap.Logger) *ProcessJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProcessJob{
		cfg:       cfg,
		processor: processor,
		storage:   store,
		logger:    logger,
	}
}

// Process runs the pipeline for one file.
func (j *ProcessJob) Process(ctx context.Context, path string) error {
	start := time.Now()
	j.logger.Info("Processing instrument file", zap.String("file", path))

	result, err := j.processor.ProcessFile(ctx, path)
	if err != nil {
		return err
	}

	paths, err := output.Write(result, j.cfg.Files.OutputDirectory)
	if err != nil {
		return err
	}
	j.logger.Info("Output written",
		zap.String("file", path),
		zap.Strings("outputs", paths),
	)

	api.UpdateMetricsForRun(result)

	if j.storage != nil {
		run, records := storage.FromRunResult(result, j.cfg)
		if err := j.storage.SaveRun(ctx, run, records); err != nil {
			j.logger.Error("Failed to save run",
				zap.String("file", path),
				zap.Error(err),
			)
		} else {
			j.logger.Debug("Run saved",
				zap.String("file", path),
				zap.Int64("id", run.ID),
				zap.Int("records", len(records)),
			)
		}
	}

	j.logger.Info("File processed",
		zap.String("file", path),
		zap.Int("readings", result.Readings),
		zap.Duration("duration", time.Since(start)),
	)

	return nil
}
