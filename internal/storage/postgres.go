package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/atmoslab/fluxpro/internal/config"
)

// PostgresStorage implements the Storage interface using PostgreSQL.
type PostgresStorage struct {
	db  *sql.DB
	cfg config.PostgresConfig
}

// NewPostgresStorage creates a new PostgreSQL storage instance.
func NewPostgresStorage(cfg config.PostgresConfig) (*PostgresStorage, error) {
	return &PostgresStorage{
		cfg: cfg,
	}, nil
}

// buildDSN creates the PostgreSQL connection string.
func (s *PostgresStorage) buildDSN() string {
	// Build connection string for pgx
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=%s",
		s.cfg.Host,
		s.cfg.Port,
		s.cfg.Database,
		s.cfg.User,
		s.cfg.SSLMode,
	)

	if s.cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", s.cfg.Password)
	}

	return dsn
}

// Init initializes the PostgreSQL database connection and schema.
func (s *PostgresStorage) Init(ctx context.Context) error {
	dsn := s.buildDSN()

	// Open database connection using pgx stdlib driver
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	// Configure connection pool
	s.db.SetMaxOpenConns(25)
	s.db.SetMaxIdleConns(5)
	s.db.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create schema
	if err := s.createSchema(ctx); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// createSchema creates the database tables if they don't exist.
func (s *PostgresStorage) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id BIGSERIAL PRIMARY KEY,
		input_file TEXT NOT NULL,
		gases TEXT NOT NULL,
		total_cycles INTEGER,
		samples_per_cycle INTEGER,
		minutes_per_sample INTEGER,
		discard_minutes INTEGER,
		blank_mode TEXT,
		blank_index INTEGER,
		flow_rate DOUBLE PRECISION,
		chamber_volume DOUBLE PRECISION,
		soil_surface_area DOUBLE PRECISION,
		readings INTEGER,
		duration_seconds DOUBLE PRECISION,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS flux_records (
		id BIGSERIAL PRIMARY KEY,
		run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		gas TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		sample INTEGER NOT NULL,
		mean_flux DOUBLE PRECISION,
		std DOUBLE PRECISION,
		sem DOUBLE PRECISION,
		n INTEGER,
		created_at TIMESTAMPTZ DEFAULT NOW()
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
func (s *PostgresStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun saves a run and its flux records in one transaction.
func (s *PostgresStorage) SaveRun(ctx context.Context, run *Run, records []FluxRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
	INSERT INTO runs (
		input_file, gases, total_cycles, samples_per_cycle, minutes_per_sample,
		discard_minutes, blank_mode, blank_index, flow_rate, chamber_volume,
		soil_surface_area, readings, duration_seconds, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	RETURNING id`,
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
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO flux_records (run_id, gas, cycle, sample, mean_flux, std, sem, n)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		records[i].RunID = run.ID
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
func (s *PostgresStorage) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, input_file, gases, total_cycles, samples_per_cycle, minutes_per_sample,
	       discard_minutes, blank_mode, blank_index, flow_rate, chamber_volume,
	       soil_surface_area, readings, duration_seconds, created_at
	FROM runs WHERE id = $1`, id)

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
func (s *PostgresStorage) GetRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `
	SELECT id, input_file, gases, total_cycles, samples_per_cycle, minutes_per_sample,
	       discard_minutes, blank_mode, blank_index, flow_rate, chamber_volume,
	       soil_surface_area, readings, duration_seconds, created_at
	FROM runs
	WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.InputFile != "" {
		query += fmt.Sprintf(" AND input_file LIKE $%d", argNum)
		args = append(args, "%"+filter.InputFile+"%")
		argNum++
	}

	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argNum)
		args = append(args, filter.Since)
		argNum++
	}

	if !filter.Until.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argNum)
		args = append(args, filter.Until)
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
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
func (s *PostgresStorage) GetFluxRecords(ctx context.Context, runID int64) ([]FluxRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, run_id, gas, cycle, sample, mean_flux, std, sem, n
	FROM flux_records
	WHERE run_id = $1
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
func (s *PostgresStorage) GetGasStats(ctx context.Context, gas string, period time.Duration) (*GasStats, error) {
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
	WHERE f.gas = $1 AND r.created_at >= $2 AND r.created_at <= $3
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
func (s *PostgresStorage) DeleteOldRuns(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE created_at < $1", olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return count, nil
}
