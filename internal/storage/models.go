package storage

import (
	"strings"
	"time"

	"github.com/atmoslab/fluxpro/internal/config"
	"github.com/atmoslab/fluxpro/internal/flux"
)

// Run represents one processed instrument file stored in the database,
// together with the parameters it was processed with.
type Run struct {
	ID               int64     `json:"id"`
	InputFile        string    `json:"input_file"`
	Gases            []string  `json:"gases"`
	TotalCycles      int       `json:"total_cycles"`
	SamplesPerCycle  int       `json:"samples_per_cycle"`
	MinutesPerSample int       `json:"minutes_per_sample"`
	DiscardMinutes   int       `json:"discard_minutes"`
	BlankMode        string    `json:"blank_mode"`
	BlankIndex       int       `json:"blank_index"`
	FlowRate         float64   `json:"flow_rate"`
	ChamberVolume    float64   `json:"chamber_volume"`
	SoilSurfaceArea  float64   `json:"soil_surface_area"`
	Readings         int       `json:"readings"`
	DurationSeconds  float64   `json:"duration_seconds"`
	CreatedAt        time.Time `json:"created_at"`
}

// FluxRecord is one aggregated (cycle, sample, gas) flux statistic.
type FluxRecord struct {
	ID       int64   `json:"id"`
	RunID    int64   `json:"run_id"`
	Gas      string  `json:"gas"`
	Cycle    int     `json:"cycle"`
	Sample   int     `json:"sample"`
	MeanFlux float64 `json:"mean_flux"`
	Std      float64 `json:"std"`
	SEM      float64 `json:"sem"`
	N        int     `json:"n"`
}

// GasStats contains aggregated flux statistics for one gas across runs.
type GasStats struct {
	Gas         string        `json:"gas"`
	RecordCount int           `json:"record_count"`
	RunCount    int           `json:"run_count"`
	AvgFlux     float64       `json:"avg_flux"`
	MinFlux     float64       `json:"min_flux"`
	MaxFlux     float64       `json:"max_flux"`
	Period      time.Duration `json:"period"`
	Since       time.Time     `json:"since"`
	Until       time.Time     `json:"until"`
}

// FromRunResult converts a pipeline result into storable models.
func FromRunResult(result *flux.RunResult, cfg *config.Config) (*Run, []FluxRecord) {
	run := &Run{
		InputFile:        result.InputFile,
		Gases:            result.Gases,
		TotalCycles:      cfg.Samples.TotalCycles,
		SamplesPerCycle:  cfg.Samples.SamplesPerCycle,
		MinutesPerSample: cfg.Samples.MinutesPerSample,
		DiscardMinutes:   cfg.Samples.DiscardMinutes,
		BlankMode:        cfg.Blank.Mode,
		BlankIndex:       cfg.Blank.Index,
		FlowRate:         cfg.Flux.FlowRate,
		ChamberVolume:    cfg.Flux.ChamberVolume,
		SoilSurfaceArea:  cfg.Flux.SoilSurfaceArea,
		Readings:         result.Readings,
		DurationSeconds:  result.Duration.Seconds(),
		CreatedAt:        result.StartedAt,
	}

	records := make([]FluxRecord, 0, len(result.Stats))
	for key, stats := range result.Stats {
		records = append(records, FluxRecord{
			Gas:      key.Gas,
			Cycle:    key.Cycle,
			Sample:   key.Sample,
			MeanFlux: stats.Mean,
			Std:      stats.Std,
			SEM:      stats.SEM,
			N:        stats.N,
		})
	}
	return run, records
}

// joinGases flattens the gas list for storage in a single column.
func joinGases(gases []string) string {
	return strings.Join(gases, ",")
}

// splitGases restores the gas list from its stored form.
func splitGases(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
