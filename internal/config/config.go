// Package config provides configuration structures and loading for fluxpro.
package config

import "strings"

// Config is the main configuration structure for fluxpro.
type Config struct {
	General GeneralConfig `yaml:"general"`
	Files   FilesConfig   `yaml:"files"`
	Samples SamplesConfig `yaml:"samples"`
	Flux    FluxConfig    `yaml:"flux"`
	Blank   BlankConfig   `yaml:"blank"`
	Storage StorageConfig `yaml:"storage"`
	Plot    PlotConfig    `yaml:"plot"`
	Watch   WatchConfig   `yaml:"watch"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	// LogLevel sets the logging verbosity: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
	// DataDir is the directory for storing application data
	DataDir string `yaml:"data_dir"`
}

// FilesConfig describes the default input and output locations.
type FilesConfig struct {
	// InputFile is the file containing the gas flux data
	InputFile string `yaml:"input_file"`
	// OutputDirectory is the path to the output directory.
	// Empty means "write next to the input file".
	OutputDirectory string `yaml:"output_directory"`
}

// SamplesConfig describes how a measurement campaign is divided into
// cycles and samples.
type SamplesConfig struct {
	// TotalCycles is the total number of cycles
	TotalCycles int `yaml:"total_cycles"`
	// SamplesPerCycle is the number of samples per cycle (including the blank)
	SamplesPerCycle int `yaml:"samples_per_cycle"`
	// MinutesPerSample is the number of minutes per sample
	MinutesPerSample int `yaml:"minutes_per_sample"`
	// DiscardMinutes is the number of minutes at the start of each sample
	// that are removed from the analysis to allow the readings to settle
	DiscardMinutes int `yaml:"discard_minutes"`
}

// FluxConfig holds the chamber parameters used to derive flux from
// concentration.
type FluxConfig struct {
	// FlowRate is the flow rate through the chamber (L/min)
	FlowRate float64 `yaml:"flow_rate"`
	// ChamberVolume is the volume of the chamber headspace (m^3)
	ChamberVolume float64 `yaml:"chamber_volume"`
	// SoilSurfaceArea is the surface area of the soil (m^2)
	SoilSurfaceArea float64 `yaml:"soil_surface_area"`
}

// Blank correction modes.
const (
	BlankModeSample = "sample"
	BlankModeCycle  = "cycle"
)

// BlankConfig selects which readings serve as the blank reference.
type BlankConfig struct {
	// Mode specifies whether to use a sample or a cycle as the blank
	// reading. Options: "sample" or "cycle"
	Mode string `yaml:"mode"`
	// Index of the blank (counting up from 1)
	Index int `yaml:"index"`
}

// StorageConfig defines the storage backend settings.
type StorageConfig struct {
	// Type is the storage backend: sqlite or postgres
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database
	Path string `yaml:"path"`
}

// PostgresConfig contains PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

// PlotConfig defines the plot web server settings.
type PlotConfig struct {
	// Listen is the address and port to bind to (e.g., "127.0.0.1:8080")
	Listen string `yaml:"listen"`
	// OpenBrowser controls whether the browser is opened automatically
	OpenBrowser bool `yaml:"open_browser"`
	// Auth contains optional authentication settings
	Auth *AuthConfig `yaml:"auth,omitempty"`
}

// AuthConfig contains optional Basic Auth settings for the plot server.
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WatchConfig defines directory watching and the scheduled rescan.
type WatchConfig struct {
	// Enabled controls whether the cron rescan runs in watch mode
	Enabled bool `yaml:"enabled"`
	// Schedule is a cron expression for the directory rescan
	// (e.g., "*/15 * * * *" for every 15 minutes)
	Schedule string `yaml:"schedule"`
	// Extensions lists instrument file extensions to pick up
	Extensions []string `yaml:"extensions"`
	// MetricsListen is the Prometheus scrape address served in watch
	// mode. Empty disables the listener.
	MetricsListen string `yaml:"metrics_listen"`
}

// HasExtension reports whether path ends in one of the watched extensions.
// The comparison is case-insensitive, instruments export .DAT and .dat alike.
func (w *WatchConfig) HasExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range w.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
