package config

// Default values for configuration
const (
	DefaultLogLevel        = "info"
	DefaultDataDir         = "."
	DefaultInputFile       = "input.csv"
	DefaultTotalCycles     = 22
	DefaultSamplesPerCycle = 6
	DefaultMinutesPerSample = 10
	DefaultDiscardMinutes  = 2
	DefaultFlowRate        = 0.1
	DefaultChamberVolume   = 0.01
	DefaultSoilSurfaceArea = 0.05
	DefaultBlankMode       = BlankModeSample
	DefaultBlankIndex      = 1
	DefaultStorageType     = "sqlite"
	DefaultSQLitePath      = "fluxpro.db"
	DefaultPlotListen      = "127.0.0.1:8080"
	DefaultMetricsListen   = "127.0.0.1:9090"
	DefaultSchedule        = "*/15 * * * *" // Every 15 minutes
	DefaultPostgresPort    = 5432
	DefaultPostgresSSL     = "disable"
)

// DefaultExtensions are the instrument file extensions picked up in watch mode.
var DefaultExtensions = []string{".csv", ".dat", ".log", ".txt"}

// NewDefault creates a new Config with all default values applied.
func NewDefault() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: DefaultLogLevel,
			DataDir:  DefaultDataDir,
		},
		Files: FilesConfig{
			InputFile:       DefaultInputFile,
			OutputDirectory: "",
		},
		Samples: SamplesConfig{
			TotalCycles:      DefaultTotalCycles,
			SamplesPerCycle:  DefaultSamplesPerCycle,
			MinutesPerSample: DefaultMinutesPerSample,
			DiscardMinutes:   DefaultDiscardMinutes,
		},
		Flux: FluxConfig{
			FlowRate:        DefaultFlowRate,
			ChamberVolume:   DefaultChamberVolume,
			SoilSurfaceArea: DefaultSoilSurfaceArea,
		},
		Blank: BlankConfig{
			Mode:  DefaultBlankMode,
			Index: DefaultBlankIndex,
		},
		Storage: StorageConfig{
			Type: DefaultStorageType,
			SQLite: SQLiteConfig{
				Path: DefaultSQLitePath,
			},
			Postgres: PostgresConfig{
				Port:    DefaultPostgresPort,
				SSLMode: DefaultPostgresSSL,
			},
		},
		Plot: PlotConfig{
			Listen:      DefaultPlotListen,
			OpenBrowser: true,
		},
		Watch: WatchConfig{
			Enabled:       true,
			Schedule:      DefaultSchedule,
			Extensions:    append([]string(nil), DefaultExtensions...),
			MetricsListen: DefaultMetricsListen,
		},
	}
}

// ApplyDefaults fills in default values for any unset configuration options.
func ApplyDefaults(cfg *Config) {
	// General defaults
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = DefaultLogLevel
	}
	if cfg.General.DataDir == "" {
		cfg.General.DataDir = DefaultDataDir
	}

	// Sampling defaults
	if cfg.Samples.TotalCycles == 0 {
		cfg.Samples.TotalCycles = DefaultTotalCycles
	}
	if cfg.Samples.SamplesPerCycle == 0 {
		cfg.Samples.SamplesPerCycle = DefaultSamplesPerCycle
	}
	if cfg.Samples.MinutesPerSample == 0 {
		cfg.Samples.MinutesPerSample = DefaultMinutesPerSample
	}

	// Flux defaults
	if cfg.Flux.FlowRate == 0 {
		cfg.Flux.FlowRate = DefaultFlowRate
	}
	if cfg.Flux.ChamberVolume == 0 {
		cfg.Flux.ChamberVolume = DefaultChamberVolume
	}
	if cfg.Flux.SoilSurfaceArea == 0 {
		cfg.Flux.SoilSurfaceArea = DefaultSoilSurfaceArea
	}

	// Blank defaults
	if cfg.Blank.Mode == "" {
		cfg.Blank.Mode = DefaultBlankMode
	}
	if cfg.Blank.Index == 0 {
		cfg.Blank.Index = DefaultBlankIndex
	}

	// Storage defaults
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = DefaultStorageType
	}
	if cfg.Storage.Type == "sqlite" && cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Storage.Postgres.Port == 0 {
		cfg.Storage.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Storage.Postgres.SSLMode == "" {
		cfg.Storage.Postgres.SSLMode = DefaultPostgresSSL
	}

	// Plot defaults
	if cfg.Plot.Listen == "" {
		cfg.Plot.Listen = DefaultPlotListen
	}

	// Watch defaults
	if cfg.Watch.Schedule == "" {
		cfg.Watch.Schedule = DefaultSchedule
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = append([]string(nil), DefaultExtensions...)
	}
}
