package instrument

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectUnit(t *testing.T) {
	tests := []struct {
		column string
		want   string
	}{
		{"Ammonia / ppm (cal)", "ppm"},
		{"CO2 (ppm)", "ppm"},
		{"NO2 (ppb)", "ppb"},
		{"HONO (ppb)", "ppb"},
		{"NO Conc", "ppm"},
		{"NOY-NO Conc", "ppm"},
	}

	for _, tt := range tests {
		got, err := DetectUnit(tt.column)
		require.NoError(t, err, "column %q", tt.column)
		assert.Equal(t, tt.want, got, "column %q", tt.column)
	}
}

func TestDetectUnitUnknown(t *testing.T) {
	_, err := DetectUnit("Temperature / C")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to detect unit")
}

func TestStandardizerRun(t *testing.T) {
	table := &RawTable{
		Header: []string{"Time", "NO Conc", "NO2 (ppb)", "Chamber Temp"},
		Rows: [][]string{
			{"2025-03-01 10:30:00", "1.5", "300", "21.3"},
			{"2025-03-01 10:31:00", "1.6", "310", "21.4"},
		},
	}

	frame, err := NewStandardizer().Run(table)
	require.NoError(t, err)

	// Unknown columns are dropped, known ones renamed to their symbol.
	assert.Equal(t, []string{"NO", "NO2"}, frame.Gases)
	require.Len(t, frame.Times, 2)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), frame.Times[0])

	// ppm and ppb mole fractions end up as mol/L.
	assert.InEpsilon(t, 1.5e-6/molarVolume, frame.Values["NO"][0], 1e-12)
	assert.InEpsilon(t, 300e-9/molarVolume, frame.Values["NO2"][0], 1e-12)
	assert.InEpsilon(t, 1.6e-6/molarVolume, frame.Values["NO"][1], 1e-12)
}

func TestStandardizerUnparsableValue(t *testing.T) {
	table := &RawTable{
		Header: []string{"Time", "NO Conc"},
		Rows: [][]string{
			{"2025-03-01 10:30:00", "bad"},
			{"2025-03-01 10:31:00", ""},
			{"2025-03-01 10:32:00", "1.5"},
		},
	}

	frame, err := NewStandardizer().Run(table)
	require.NoError(t, err)

	require.Len(t, frame.Values["NO"], 3)
	assert.True(t, math.IsNaN(frame.Values["NO"][0]))
	assert.True(t, math.IsNaN(frame.Values["NO"][1]))
	assert.False(t, math.IsNaN(frame.Values["NO"][2]))
}

func TestStandardizerShortRow(t *testing.T) {
	table := &RawTable{
		Header: []string{"Time", "NO Conc", "NOY Conc"},
		Rows: [][]string{
			{"2025-03-01 10:30:00", "1.5"},
		},
	}

	frame, err := NewStandardizer().Run(table)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(frame.Values["NOY"][0]))
	assert.False(t, math.IsNaN(frame.Values["NO"][0]))
}

func TestStandardizerNoGasColumns(t *testing.T) {
	table := &RawTable{
		Header: []string{"Time", "Chamber Temp"},
		Rows:   [][]string{{"2025-03-01 10:30:00", "21.3"}},
	}

	_, err := NewStandardizer().Run(table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no known gas columns")
}

func TestStandardizerBadTimestamp(t *testing.T) {
	table := &RawTable{
		Header: []string{"Time", "NO Conc"},
		Rows:   [][]string{{"yesterday", "1.5"}},
	}

	_, err := NewStandardizer().Run(table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected datetime format")
}
