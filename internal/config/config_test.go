package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	assert.Equal(t, 22, cfg.Samples.TotalCycles)
	assert.Equal(t, 6, cfg.Samples.SamplesPerCycle)
	assert.Equal(t, 10, cfg.Samples.MinutesPerSample)
	assert.Equal(t, 2, cfg.Samples.DiscardMinutes)
	assert.Equal(t, BlankModeSample, cfg.Blank.Mode)
	assert.Equal(t, 1, cfg.Blank.Index)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "127.0.0.1:8080", cfg.Plot.Listen)
	assert.Equal(t, "127.0.0.1:9090", cfg.Watch.MetricsListen)
	assert.Contains(t, cfg.Watch.Extensions, ".csv")

	require.NoError(t, Validate(cfg))
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
samples:
  total_cycles: 5
flux:
  flow_rate: 0.2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Samples.TotalCycles)
	assert.Equal(t, 0.2, cfg.Flux.FlowRate)
	// Unset fields fall back to defaults.
	assert.Equal(t, 6, cfg.Samples.SamplesPerCycle)
	assert.Equal(t, 0.01, cfg.Flux.ChamberVolume)
	assert.Equal(t, "info", cfg.General.LogLevel)
	// Including defaults that are not the zero value.
	assert.Equal(t, 2, cfg.Samples.DiscardMinutes)
	assert.True(t, cfg.Plot.OpenBrowser)
	assert.True(t, cfg.Watch.Enabled)
}

func TestLoadKeepsExplicitFalse(t *testing.T) {
	path := writeConfig(t, `
plot:
  open_browser: false
watch:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Plot.OpenBrowser)
	assert.False(t, cfg.Watch.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "samples:\n  total_cycles: 7\n")
	t.Setenv("FLUXPRO_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Samples.TotalCycles)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "discard minutes too large",
			mutate:  func(c *Config) { c.Samples.DiscardMinutes = 10 },
			wantErr: "discard_minutes",
		},
		{
			name:    "zero cycles",
			mutate:  func(c *Config) { c.Samples.TotalCycles = 0 },
			wantErr: "total_cycles",
		},
		{
			name:    "negative flow rate",
			mutate:  func(c *Config) { c.Flux.FlowRate = -1 },
			wantErr: "flow_rate",
		},
		{
			name:    "bad blank mode",
			mutate:  func(c *Config) { c.Blank.Mode = "row" },
			wantErr: "blank.mode",
		},
		{
			name:    "blank sample index out of range",
			mutate:  func(c *Config) { c.Blank.Index = 7 },
			wantErr: "out of range",
		},
		{
			name: "blank cycle index out of range",
			mutate: func(c *Config) {
				c.Blank.Mode = BlankModeCycle
				c.Blank.Index = 23
			},
			wantErr: "out of range",
		},
		{
			name:    "bad storage type",
			mutate:  func(c *Config) { c.Storage.Type = "redis" },
			wantErr: "storage type",
		},
		{
			name: "postgres without host",
			mutate: func(c *Config) {
				c.Storage.Type = "postgres"
				c.Storage.Postgres.Host = ""
			},
			wantErr: "postgres host",
		},
		{
			name:    "bad listen address",
			mutate:  func(c *Config) { c.Plot.Listen = "nonsense" },
			wantErr: "listen address",
		},
		{
			name:    "bad metrics listen address",
			mutate:  func(c *Config) { c.Watch.MetricsListen = "nonsense" },
			wantErr: "metrics listen address",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.General.LogLevel = "trace" },
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExampleYAMLIsValid(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, yaml.Unmarshal([]byte(ExampleYAML()), cfg))

	ApplyDefaults(cfg)
	require.NoError(t, Validate(cfg))

	// The documented example values survive the round trip.
	assert.Equal(t, 22, cfg.Samples.TotalCycles)
	assert.Equal(t, 0.1, cfg.Flux.FlowRate)
	assert.Equal(t, "sample", cfg.Blank.Mode)
}

func TestWriteExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, WriteExample(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ExampleYAML(), string(data))

	// Refuses to overwrite without force.
	err = WriteExample(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite")

	require.NoError(t, WriteExample(path, true))
}

func TestHasExtension(t *testing.T) {
	cfg := NewDefault()

	assert.True(t, cfg.Watch.HasExtension("measurement.csv"))
	assert.True(t, cfg.Watch.HasExtension("export.DAT"))
	assert.False(t, cfg.Watch.HasExtension("notes.md"))
}
