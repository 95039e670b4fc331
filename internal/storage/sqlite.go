package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/atmoslab/fluxpro/internal/config"
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(cfg config.SQLiteConfig) (*SQLiteStorage, error) {
	return &SQLiteStorage{
		path: cfg.Path,
	}, nil
}

// Init initializes the SQLite database connection and schema.
func (s *SQLiteStorage) Init(ctx context.Context) error {
	// Ensure directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	// Enable WAL mode for better concurrency
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Create schema
	if err := s.createSchema(ctx); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStorage) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		input_file TEXT NOT NULL,
		gases TEXT NOT NULL,
		total_cycles INTEGER,
		samples_per_cycle INTEGER,
		minutes_per_sample INTEGER,
		discard_minutes INTEGER,
		blank_mode TEXT,
		blank_index INTEGER,
		flow_rate REAL,
		chamber_volume REAL,
		soil_surface_area REAL,
		readings INTEGER,
		duration_seconds REAL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS flux_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		gas TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		sample INTEGER NOT NULL,
		mean_flux REAL,
		std REAL,
		sem REAL,
		n INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_input ON runs(input_file);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_records_run ON flux_records(run_id);
	CREATE INDEX IF NOT EXISTS idx_records_gas ON flux_records(gas);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun saves a run and its flux records in one transaction.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *Run, records []FluxRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (
		input_file, gases, total_cycles, samples_per_cycle, minutes_per_sample,
		discard_minutes, blank_mode, blank_index, flow_rate, chamber_volume,
		soil_surface_area, readings, duration_seconds, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.InputFile,
		joinGases(run.Gases),
		run.TotalCycles,
		run.SamplesPerCycle,
		run.MinutesPerSample,
		run.DiscardMinutes,
		run.BlankMode,
		run.BlankIndex,
		run.FlowRate,
		run.ChamberVolume,
		run.SoilSurfaceArea,
		run.Readings,
		run.DurationSeconds,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	run.ID = id

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO flux_records (run_id, gas, cycle, sample, mean_flux, std, sem, n)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		records[i].RunID = id
		r := &records[i]
		if _, err := stmt.ExecContext(ctx,
			r.RunID, r.Gas, r.Cycle, r.Sample,
			nullFloat(r.MeanFlux), nullFloat(r.Std), nullFloat(r.SEM), r.N,
		); err != nil {
			return fmt.Errorf("failed to insert flux record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun retrieves a single run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, input_file, gases, total_cycles, samples_per_cycle, minutes_per_sample,
	       discard_minutes, blank_mode, blank_index, flow_rate, chamber_volume,
	       soil_surface_area, readings, duration_seconds, created_at
	FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetRuns retrieves runs based on filter criteria.
func (s *SQLiteStorage) GetRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `
	SELECT id, input_file, gases, total_cycles, samples_per_cycle, minutes_per_sample,
	       discard_minutes, blank_mode, blank_index, flow_rate, chamber_volume,
	       soil_surface_area, readings, duration_seconds, created_at
	FROM runs
	WHERE 1=1
	`
	args := []interface{}{}

	if filter.InputFile != "" {
		query += " AND input_file LIKE ?"
		args = append(args, "%"+filter.InputFile+"%")
	}

	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since)
	}

	if !filter.Until.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.Until)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetFluxRecords retrieves the flux records for a run.
func (s *SQLiteStorage) GetFluxRecords(ctx context.Context, runID int64) ([]FluxRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, run_id, gas, cycle, sample, mean_flux, std, sem, n
	FROM flux_records
	WHERE run_id = ?
	ORDER BY gas, cycle, sample`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flux records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []FluxRecord
	for rows.Next() {
		var r FluxRecord
		var mean, std, sem sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.RunID, &r.Gas, &r.Cycle, &r.Sample, &mean, &std, &sem, &r.N); err != nil {
			return nil, fmt.Errorf("failed to scan flux record: %w", err)
		}
		r.MeanFlux = floatOrNaN(mean)
		r.Std = floatOrNaN(std)
		r.SEM = floatOrNaN(sem)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flux records: %w", err)
	}

	return records, nil
}

// GetGasStats calculates statistics for a gas over a time period.
func (s *SQLiteStorage) GetGasStats(ctx context.Context, gas string, period time.Duration) (*GasStats, error) {
	since := time.Now().Add(-period)
	until := time.Now()

	query := `
	SELECT
		COUNT(*) as record_count,
		COUNT(DISTINCT f.run_id) as run_count,
		AVG(f.mean_flux) as avg_flux,
		MIN(f.mean_flux) as min_flux,
		MAX(f.mean_flux) as max_flux
	FROM flux_records f
	INNER JOIN runs r ON r.id = f.run_id
	WHERE f.gas = ? AND r.created_at >= ? AND r.created_at <= ?
	`

	stats := &GasStats{
		Gas:    gas,
		Period: period,
		Since:  since,
		Until:  until,
	}

	var avg, min, max sql.NullFloat64
	err := s.db.QueryRowContext(ctx, query, gas, since, until).Scan(
		&stats.RecordCount,
		&stats.RunCount,
		&avg,
		&min,
		&max,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas stats: %w", err)
	}

	stats.AvgFlux = floatOrNaN(avg)
	stats.MinFlux = floatOrNaN(min)
	stats.MaxFlux = floatOrNaN(max)

	return stats, nil
}

// DeleteOldRuns removes runs (and their records) older than the given time.
func (s *SQLiteStorage) DeleteOldRuns(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE created_at < ?", olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return count, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*Run, error) {
	run := &Run{}
	var gases string
	err := sc.Scan(
		&run.ID,
		&run.InputFile,
		&gases,
		&run.TotalCycles,
		&run.SamplesPerCycle,
		&run.MinutesPerSample,
		&run.DiscardMinutes,
		&run.BlankMode,
		&run.BlankIndex,
		&run.FlowRate,
		&run.ChamberVolume,
		&run.SoilSurfaceArea,
		&run.Readings,
		&run.DurationSeconds,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Gases = splitGases(gases)
	return run, nil
}

// nullFloat maps NaN to NULL for storage.
func nullFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
