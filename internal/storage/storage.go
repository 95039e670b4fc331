// Package storage provides database storage for processed flux runs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/atmoslab/fluxpro/internal/config"
)

// Storage defines the interface for storing and retrieving flux runs.
type Storage interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error

	// Runs
	SaveRun(ctx context.Context, run *Run, records []FluxRecord) error
	GetRun(ctx context.Context, id int64) (*Run, error)
	GetRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	GetFluxRecords(ctx context.Context, runID int64) ([]FluxRecord, error)

	// Stats
	GetGasStats(ctx context.Context, gas string, period time.Duration) (*GasStats, error)

	// Cleanup
	DeleteOldRuns(ctx context.Context, olderThan time.Time) (int64, error)
}

// RunFilter defines criteria for filtering runs.
type RunFilter struct {
	InputFile string
	Since     time.Time
	Until     time.Time
	Limit     int
	Offset    int
}

// NewStorage creates a new Storage instance based on the configuration.
func NewStorage(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStorage(cfg.SQLite)
	case "postgres":
		return NewPostgresStorage(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
