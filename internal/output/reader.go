package output

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Table is a parsed per-sample output file.
type Table struct {
	Path   string
	Sample int
	Gases  []string
	Rows   []Row
}

// Row is one reading row across all gases.
type Row struct {
	Time      time.Time
	Cycle     int
	Flux      map[string]float64
	Corrected map[string]float64
	Avg       map[string]float64
	SEM       map[string]float64
}

// Series is chart-ready data for one gas: corrected flux per reading plus
// the per-cycle mean and standard error.
type Series struct {
	Gas       string    `json:"gas"`
	Cycles    []float64 `json:"cycles"`
	Corrected []float64 `json:"corrected"`
	AvgCycles []float64 `json:"avg_cycles"`
	Avg       []float64 `json:"avg"`
	SEM       []float64 `json:"sem"`
}

var sampleFromName = regexp.MustCompile(`_(\d+)_out\.csv$`)

// ReadTable parses a file previously written by Write.
func ReadTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("empty output file: %s", path)
	}

	header := records[0]
	if len(header) < 3 || header[0] != "datetime" || header[1] != "cycle" {
		return nil, fmt.Errorf("%s is not a fluxpro output file", path)
	}

	table := &Table{Path: path}
	if m := sampleFromName.FindStringSubmatch(filepath.Base(path)); m != nil {
		table.Sample, _ = strconv.Atoi(m[1])
	}

	// Gas columns come in fixed groups of four.
	columns := make(map[string]int) // gas -> index of its _flux column
	for i, name := range header {
		if strings.HasSuffix(name, "_flux") {
			gas := strings.TrimSuffix(name, "_flux")
			table.Gases = append(table.Gases, gas)
			columns[gas] = i
		}
	}
	if len(table.Gases) == 0 {
		return nil, fmt.Errorf("no gas columns in %s", path)
	}

	for _, record := range records[1:] {
		ts, err := time.Parse(timeLayout, record[0])
		if err != nil {
			return nil, fmt.Errorf("bad datetime in %s: %w", path, err)
		}
		cycle, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("bad cycle in %s: %w", path, err)
		}

		row := Row{
			Time:      ts,
			Cycle:     cycle,
			Flux:      make(map[string]float64),
			Corrected: make(map[string]float64),
			Avg:       make(map[string]float64),
			SEM:       make(map[string]float64),
		}
		for _, gas := range table.Gases {
			base := columns[gas]
			row.Flux[gas] = parseCell(record, base)
			row.Corrected[gas] = parseCell(record, base+1)
			row.Avg[gas] = parseCell(record, base+2)
			row.SEM[gas] = parseCell(record, base+3)
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func parseCell(record []string, i int) float64 {
	if i >= len(record) || record[i] == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(record[i], 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Series builds chart data for one gas.
func (t *Table) Series(gas string) Series {
	s := Series{Gas: gas}

	seenCycle := make(map[int]bool)
	for _, row := range t.Rows {
		if v := row.Corrected[gas]; !math.IsNaN(v) {
			s.Cycles = append(s.Cycles, float64(row.Cycle))
			s.Corrected = append(s.Corrected, v)
		}
		if seenCycle[row.Cycle] {
			continue
		}
		if avg := row.Avg[gas]; !math.IsNaN(avg) {
			seenCycle[row.Cycle] = true
			s.AvgCycles = append(s.AvgCycles, float64(row.Cycle))
			s.Avg = append(s.Avg, avg)
			s.SEM = append(s.SEM, row.SEM[gas])
		}
	}
	return s
}

// HasGas reports whether the table contains the given gas.
func (t *Table) HasGas(gas string) bool {
	for _, g := range t.Gases {
		if g == gas {
			return true
		}
	}
	return false
}
