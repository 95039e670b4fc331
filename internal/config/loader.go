package config

import (
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPaths defines the search order for configuration files.
var DefaultConfigPaths = []string{
	"./config.yaml",
	"./config.yml",
	"./fluxpro.yaml",
	"./fluxpro.yml",
}

// Load reads and parses a configuration file from the given path.
// If path is empty, it searches DefaultConfigPaths.
// Environment variable FLUXPRO_CONFIG takes precedence over defaults.
func Load(path string) (*Config, error) {
	configPath, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Unmarshal on top of the defaults so omitted sections keep them,
	// including false/zero-valued ones like plot.open_browser and
	// samples.discard_minutes.
	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	// Backfill values cleared by the file (e.g. an empty sqlite path)
	ApplyDefaults(cfg)

	// Validate the configuration
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// resolveConfigPath determines which config file to use.
// Priority: explicit path > FLUXPRO_CONFIG env > default paths
func resolveConfigPath(path string) (string, error) {
	// 1. Explicit path provided
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file not found: %s", path)
		}
		return path, nil
	}

	// 2. Environment variable
	if envPath := os.Getenv("FLUXPRO_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("config file from FLUXPRO_CONFIG not found: %s", envPath)
		}
		return envPath, nil
	}

	// 3. Search default paths
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultConfigPaths)
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.General.LogLevel] {
		return fmt.Errorf("invalid log_level: %q (must be debug, info, warn, or error)", cfg.General.LogLevel)
	}

	// Validate sampling parameters
	if cfg.Samples.TotalCycles < 1 {
		return fmt.Errorf("samples.total_cycles must be at least 1, got %d", cfg.Samples.TotalCycles)
	}
	if cfg.Samples.SamplesPerCycle < 1 {
		return fmt.Errorf("samples.samples_per_cycle must be at least 1, got %d", cfg.Samples.SamplesPerCycle)
	}
	if cfg.Samples.MinutesPerSample < 1 {
		return fmt.Errorf("samples.minutes_per_sample must be at least 1, got %d", cfg.Samples.MinutesPerSample)
	}
	if cfg.Samples.DiscardMinutes < 0 {
		return fmt.Errorf("samples.discard_minutes must not be negative, got %d", cfg.Samples.DiscardMinutes)
	}
	if cfg.Samples.DiscardMinutes >= cfg.Samples.MinutesPerSample {
		return fmt.Errorf("samples.discard_minutes (%d) must be smaller than minutes_per_sample (%d)",
			cfg.Samples.DiscardMinutes, cfg.Samples.MinutesPerSample)
	}

	// Validate flux parameters
	if cfg.Flux.FlowRate <= 0 {
		return fmt.Errorf("flux.flow_rate must be positive, got %g", cfg.Flux.FlowRate)
	}
	if cfg.Flux.ChamberVolume <= 0 {
		return fmt.Errorf("flux.chamber_volume must be positive, got %g", cfg.Flux.ChamberVolume)
	}
	if cfg.Flux.SoilSurfaceArea <= 0 {
		return fmt.Errorf("flux.soil_surface_area must be positive, got %g", cfg.Flux.SoilSurfaceArea)
	}

	// Validate blank settings
	switch cfg.Blank.Mode {
	case BlankModeSample:
		if cfg.Blank.Index < 1 || cfg.Blank.Index > cfg.Samples.SamplesPerCycle {
			return fmt.Errorf("blank.index %d out of range for mode %q (1..%d)",
				cfg.Blank.Index, cfg.Blank.Mode, cfg.Samples.SamplesPerCycle)
		}
	case BlankModeCycle:
		if cfg.Blank.Index < 1 || cfg.Blank.Index > cfg.Samples.TotalCycles {
			return fmt.Errorf("blank.index %d out of range for mode %q (1..%d)",
				cfg.Blank.Index, cfg.Blank.Mode, cfg.Samples.TotalCycles)
		}
	default:
		return fmt.Errorf("invalid blank.mode: %q (must be %q or %q)",
			cfg.Blank.Mode, BlankModeSample, BlankModeCycle)
	}

	// Validate storage type
	validStorageTypes := map[string]bool{
		"sqlite":   true,
		"postgres": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("invalid storage type: %q (must be sqlite or postgres)", cfg.Storage.Type)
	}

	// Validate SQLite path if using SQLite
	if cfg.Storage.Type == "sqlite" && cfg.Storage.SQLite.Path == "" {
		return fmt.Errorf("sqlite path is required when storage type is sqlite")
	}

	// Validate PostgreSQL config if using PostgreSQL
	if cfg.Storage.Type == "postgres" {
		if cfg.Storage.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required when storage type is postgres")
		}
		if cfg.Storage.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required when storage type is postgres")
		}
	}

	// Validate plot listen address
	if _, _, err := net.SplitHostPort(cfg.Plot.Listen); err != nil {
		return fmt.Errorf("invalid plot listen address %q: %w", cfg.Plot.Listen, err)
	}

	// Validate metrics listen address (empty disables the listener)
	if cfg.Watch.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(cfg.Watch.MetricsListen); err != nil {
			return fmt.Errorf("invalid metrics listen address %q: %w", cfg.Watch.MetricsListen, err)
		}
	}

	return nil
}

// MustLoad is like Load but panics on error.
// Useful for initialization where config errors should be fatal.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
