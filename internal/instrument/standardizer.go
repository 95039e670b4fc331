package instrument

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Conditions the instruments are calibrated against.
const (
	gasConstant = 0.082057366080960 // L*atm/K/mol
	temperature = 298.15            // K
	pressure    = 1.0               // atm
)

// molarVolume in L/mol at the calibration conditions.
var molarVolume = gasConstant * temperature / pressure

// GasIdentifiers maps raw instrument column names to gas symbols.
var GasIdentifiers = map[string]string{
	"Ammonia / ppm (cal)":          "NH3",
	"NO2 (ppb)":                    "NO2",
	"Nitrogen Dioxide / ppm (cal)": "NO2",
	"Nitrous Oxide / ppm (cal)":    "N2O",
	"Ozone / ppm (cal)":            "O3",
	"HONO (ppb)":                   "HONO",
	"NO Conc":                      "NO",
	"NOY Conc":                     "NOY",
	"NOY-NO Conc":                  "NOY-NO",
	"Carbon Monoxide / ppm (cal)":  "CO",
	"CO2 (ppm)":                    "CO2",
	"Carbon Dioxide / ppm (cal)":   "CO2",
	"Methane / ppm (cal)":          "CH4",
}

// Standardizer turns a RawTable into a Frame: the first column becomes the
// timestamp, known gas columns are selected and renamed to their symbol, and
// all concentrations are converted to mol/L.
type Standardizer struct {
	// Identifiers maps raw column names to gas symbols.
	// Defaults to GasIdentifiers.
	Identifiers map[string]string
}

// NewStandardizer creates a Standardizer with the default gas identifiers.
func NewStandardizer() *Standardizer {
	return &Standardizer{Identifiers: GasIdentifiers}
}

// DetectUnit derives the concentration unit from a raw column name.
// Teledyne "Conc" columns report ppm.
func DetectUnit(name string) (string, error) {
	switch {
	case strings.Contains(name, "ppm"):
		return "ppm", nil
	case strings.Contains(name, "ppb"):
		return "ppb", nil
	case strings.Contains(name, "Conc"):
		return "ppm", nil
	}
	return "", fmt.Errorf("failed to detect unit for column %q", name)
}

// scaleFactor converts a unit to a mole fraction multiplier.
func scaleFactor(unit string) float64 {
	switch unit {
	case "ppm":
		return 1e-6
	case "ppb":
		return 1e-9
	}
	return 0
}

// Run standardizes a raw instrument table.
func (s *Standardizer) Run(table *RawTable) (*Frame, error) {
	if len(table.Header) < 2 {
		return nil, fmt.Errorf("input has %d columns, need a timestamp and at least one gas", len(table.Header))
	}

	identifiers := s.Identifiers
	if identifiers == nil {
		identifiers = GasIdentifiers
	}

	// Column index -> gas symbol and unit scale, for known columns only.
	type gasColumn struct {
		index int
		gas   string
		scale float64
	}
	var columns []gasColumn
	for i, name := range table.Header {
		if i == 0 {
			continue // timestamp column
		}
		gas, ok := identifiers[strings.TrimSpace(name)]
		if !ok {
			continue
		}
		unit, err := DetectUnit(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		columns = append(columns, gasColumn{index: i, gas: gas, scale: scaleFactor(unit)})
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no known gas columns in input (header: %v)", table.Header)
	}

	frame := &Frame{Values: make(map[string][]float64)}
	for _, col := range columns {
		if _, ok := frame.Values[col.gas]; ok {
			continue // duplicate identifier for the same gas, keep the first
		}
		frame.Gases = append(frame.Gases, col.gas)
		frame.Values[col.gas] = make([]float64, 0, len(table.Rows))
	}

	for _, row := range table.Rows {
		ts, err := ParseTimestamp(row[0])
		if err != nil {
			return nil, err
		}
		frame.Times = append(frame.Times, ts)

		seen := make(map[string]bool, len(columns))
		for _, col := range columns {
			if seen[col.gas] {
				continue
			}
			seen[col.gas] = true

			value := math.NaN()
			if col.index < len(row) {
				if v, err := strconv.ParseFloat(strings.TrimSpace(row[col.index]), 64); err == nil {
					// mole fraction -> mol/L
					value = v * col.scale / molarVolume
				}
			}
			frame.Values[col.gas] = append(frame.Values[col.gas], value)
		}
	}

	return frame, nil
}
