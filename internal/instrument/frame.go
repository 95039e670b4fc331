// Package instrument reads and standardizes output files from the
// supported gas analysers (Teledyne NOy, FTIR).
package instrument

import "time"

// Frame holds time-aligned readings for a set of gases. All value slices
// have the same length as Times and concentrations are in mol/L.
type Frame struct {
	Times  []time.Time
	Gases  []string
	Values map[string][]float64
}

// Len returns the number of readings in the frame.
func (f *Frame) Len() int {
	return len(f.Times)
}

// RawTable is a parsed but not yet standardized instrument file.
type RawTable struct {
	Header    []string
	Rows      [][]string
	Separator rune
}
