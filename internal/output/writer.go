// Package output writes and reads the per-sample result files produced by
// a fluxpro run.
package output

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/atmoslab/fluxpro/internal/flux"
)

const timeLayout = "2006-01-02 15:04:05"

// FileName returns the output file name for one sample of an input file,
// e.g. FTIR_0304.csv sample 2 -> FTIR_0304_2_out.csv.
func FileName(inputPath string, sample int) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%d_out.csv", stem, sample)
}

// Write writes one CSV per sample into outDir. When outDir is empty the
// files land next to the input file. Returns the written paths.
func Write(result *flux.RunResult, outDir string) ([]string, error) {
	if outDir == "" {
		outDir = filepath.Dir(result.InputFile)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string
	for _, sample := range result.Samples() {
		path := filepath.Join(outDir, FileName(result.InputFile, sample))
		if err := writeSample(path, result, sample); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeSample(path string, result *flux.RunResult, sample int) error {
	// Pivot the long point list into one row per timestamp.
	type row struct {
		cycle     int
		flux      map[string]float64
		corrected map[string]float64
	}
	rows := make(map[int64]*row)
	var order []int64
	for _, p := range result.Points {
		if p.Sample != sample {
			continue
		}
		key := p.Time.UnixNano()
		r, ok := rows[key]
		if !ok {
			r = &row{
				cycle:     p.Cycle,
				flux:      make(map[string]float64),
				corrected: make(map[string]float64),
			}
			rows[key] = r
			order = append(order, key)
		}
		r.flux[p.Gas] = p.Flux
		r.corrected[p.Gas] = p.Corrected
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)

	header := []string{"datetime", "cycle"}
	for _, gas := range result.Gases {
		header = append(header,
			gas+"_flux",
			gas+"_flux_corrected",
			gas+"_flux_corrected_avg",
			gas+"_flux_corrected_sem",
		)
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, key := range order {
		r := rows[key]
		record := []string{
			timeFromUnixNano(key).Format(timeLayout),
			strconv.Itoa(r.cycle),
		}
		for _, gas := range result.Gases {
			stats := result.Stats[flux.GroupKey{Cycle: r.cycle, Sample: sample, Gas: gas}]
			record = append(record,
				formatFloat(value(r.flux, gas)),
				formatFloat(value(r.corrected, gas)),
				formatFloat(stats.Mean),
				formatFloat(stats.SEM),
			)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	return nil
}

func timeFromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns)
}

func value(m map[string]float64, gas string) float64 {
	if v, ok := m[gas]; ok {
		return v
	}
	return math.NaN()
}

// formatFloat renders a float for CSV; NaN becomes an empty cell.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
