package flux

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/atmoslab/fluxpro/internal/config"
	"github.com/atmoslab/fluxpro/internal/instrument"
)

// RunResult is the outcome of processing one instrument file.
type RunResult struct {
	InputFile string
	Gases     []string
	Points    []Point // blank-corrected, blank readings removed
	Stats     map[GroupKey]GroupStats
	Readings  int // data rows read from the input
	StartedAt time.Time
	Duration  time.Duration
}

// Samples returns the sorted distinct sample indices present in the result.
func (r *RunResult) Samples() []int {
	seen := make(map[int]bool)
	for _, p := range r.Points {
		seen[p.Sample] = true
	}
	samples := make([]int, 0, len(seen))
	for s := range seen {
		samples = append(samples, s)
	}
	sort.Ints(samples)
	return samples
}

// Processor runs the full pipeline for instrument files.
type Processor struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewProcessor creates a Processor for the given configuration.
func NewProcessor(cfg *config.Config, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{cfg: cfg, logger: logger}
}

// ProcessFile reads, standardizes and corrects one instrument file.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*RunResult, error) {
	start := time.Now()

	table, err := instrument.Read(path)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Input parsed",
		zap.String("file", path),
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(table.Header)),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := instrument.NewStandardizer().Run(table)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Readings standardized",
		zap.String("file", path),
		zap.Strings("gases", frame.Gases),
		zap.Int("readings", frame.Len()),
	)

	points := Derive(frame, p.cfg.Samples, p.cfg.Flux)

	corrector, err := NewCorrector(p.cfg.Blank)
	if err != nil {
		return nil, err
	}
	corrected := corrector.Apply(points)
	p.logger.Debug("Blank subtracted",
		zap.String("mode", p.cfg.Blank.Mode),
		zap.Int("blank_index", p.cfg.Blank.Index),
		zap.Int("points", len(corrected)),
	)

	result := &RunResult{
		InputFile: path,
		Gases:     frame.Gases,
		Points:    corrected,
		Stats:     ComputeStats(corrected),
		Readings:  frame.Len(),
		StartedAt: start,
		Duration:  time.Since(start),
	}

	p.logger.Info("Run complete",
		zap.String("file", path),
		zap.Int("gases", len(result.Gases)),
		zap.Int("groups", len(result.Stats)),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}
