package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// exampleYAML is the commented configuration template written by
// `fluxpro generate`. Every field carries its doc string and the example
// values match a typical 22-cycle chamber campaign.
const exampleYAML = `# fluxpro configuration

files:
  # file containing the gas flux data
  input_file: input.csv
  # path to the output directory (empty: write next to the input file)
  output_directory: output

samples:
  # total number of cycles
  total_cycles: 22
  # number of samples per cycle (including the blank)
  samples_per_cycle: 6
  # number of minutes per sample
  minutes_per_sample: 10
  # number of minutes at the start of each sample that are removed from the
  # analysis to allow the readings to settle
  discard_minutes: 2

flux:
  # flow rate through the chamber (L/min)
  flow_rate: 0.1
  # volume of the chamber headspace (m^3)
  chamber_volume: 0.01
  # surface area of the soil (m^2)
  soil_surface_area: 0.05

blank:
  # specifies whether to use a sample or a cycle as the blank reading.
  # Options: "sample" or "cycle"
  mode: sample
  # index of the blank (counting up from 1)
  index: 1

storage:
  # storage backend for processed runs: sqlite or postgres
  type: sqlite
  sqlite:
    path: fluxpro.db
  # postgres:
  #   host: localhost
  #   port: 5432
  #   database: fluxpro
  #   user: fluxpro
  #   password: ""
  #   ssl_mode: disable

plot:
  # address the plot server binds to
  listen: 127.0.0.1:8080
  # open the browser automatically when plotting
  open_browser: true
  # auth:
  #   username: fluxpro
  #   password: secret

watch:
  # run a scheduled rescan in watch mode
  enabled: true
  # cron expression for the directory rescan
  schedule: "*/15 * * * *"
  # instrument file extensions picked up in watch mode
  extensions: [".csv", ".dat", ".log", ".txt"]
  # Prometheus scrape address served in watch mode (empty: disabled)
  metrics_listen: 127.0.0.1:9090

general:
  # logging verbosity: debug, info, warn, error
  log_level: info
  # directory for application data
  data_dir: .
`

// ExampleYAML returns the commented example configuration.
func ExampleYAML() string {
	return exampleYAML
}

// WriteExample writes the example configuration to the given path.
// It refuses to overwrite an existing file unless force is set.
func WriteExample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("refusing to overwrite existing file %s (use --force)", path)
		}
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(exampleYAML), 0644); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}

	return nil
}
