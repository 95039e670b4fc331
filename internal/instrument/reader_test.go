package instrument

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-03-01 10:30:00", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2025-03-01T10:30:00", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"01/03/2025 10:30:00", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"01/03/2025 10:30", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"  2025-03-01 10:30:00  ", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseTimestamp(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.True(t, got.Equal(tt.want), "input %q: got %v", tt.input, got)
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	for _, input := range []string{"1/2/2025 11:00AM", "not a time", "", "10:30:00"} {
		_, err := ParseTimestamp(input)
		require.Error(t, err, "input %q", input)
		assert.Contains(t, err.Error(), "unexpected datetime format")
	}
}

func TestDetectSeparator(t *testing.T) {
	tab := writeTemp(t, "tab.dat", "Time\tNO Conc\n01/03/2025 10:30\t1.5\n")
	sep, err := DetectSeparator(tab)
	require.NoError(t, err)
	assert.Equal(t, '\t', sep)

	comma := writeTemp(t, "comma.csv", "Time,CO2 (ppm)\n2025-03-01 10:30:00,410.2\n")
	sep, err = DetectSeparator(comma)
	require.NoError(t, err)
	assert.Equal(t, ',', sep)
}

func TestDetectSeparatorPrefersTab(t *testing.T) {
	// FTIR preamble lines may contain commas; a tab on any sniffed line wins.
	path := writeTemp(t, "mixed.log",
		"Instrument log, exported 2025-03-01\nTime\tCO2 (ppm)\n2025-03-01 10:30:00\t410.2\n")
	sep, err := DetectSeparator(path)
	require.NoError(t, err)
	assert.Equal(t, '\t', sep)
}

func TestDetectSeparatorFailure(t *testing.T) {
	path := writeTemp(t, "plain.txt", "just one column\nno separators here\n")
	_, err := DetectSeparator(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to detect separator")
}

func TestDetectHeaderRow(t *testing.T) {
	path := writeTemp(t, "input.csv",
		"exported by instrument\n"+
			"Time,NO Conc,NOY Conc\n"+
			"2025-03-01 10:30:00,1.5,2.5\n"+
			"2025-03-01 10:31:00,1.6,2.6\n")

	row, err := DetectHeaderRow(path, ',')
	require.NoError(t, err)
	assert.Equal(t, 1, row)
}

func TestDetectHeaderRowNoPreamble(t *testing.T) {
	path := writeTemp(t, "input.csv",
		"Time,NO Conc\n2025-03-01 10:30:00,1.5\n")

	row, err := DetectHeaderRow(path, ',')
	require.NoError(t, err)
	assert.Equal(t, 0, row)
}

func TestDetectHeaderRowFailure(t *testing.T) {
	path := writeTemp(t, "input.csv", "a,b\nc,d\n")
	_, err := DetectHeaderRow(path, ',')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to detect header")
}

func TestRead(t *testing.T) {
	path := writeTemp(t, "input.csv",
		"some preamble line\n"+
			"Time,NO Conc,NOY Conc\n"+
			"2025-03-01 10:30:00,1.5,2.5\n"+
			"2025-03-01 10:31:00,1.6,2.6\n")

	table, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Time", "NO Conc", "NOY Conc"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"2025-03-01 10:30:00", "1.5", "2.5"}, table.Rows[0])
	assert.Equal(t, ',', table.Separator)
}

func TestReadBlankPreambleLine(t *testing.T) {
	// Exports often carry a blank line between preamble and header; the
	// physical header index must survive the CSV reader dropping it.
	path := writeTemp(t, "input.csv",
		"exported by instrument\n"+
			"\n"+
			"Time,NO Conc,NOY Conc\n"+
			"2025-03-01 10:30:00,1.5,2.5\n"+
			"2025-03-01 10:31:00,1.6,2.6\n")

	table, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Time", "NO Conc", "NOY Conc"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"2025-03-01 10:30:00", "1.5", "2.5"}, table.Rows[0])
	assert.Equal(t, []string{"2025-03-01 10:31:00", "1.6", "2.6"}, table.Rows[1])
}

func TestReadTabSeparated(t *testing.T) {
	path := writeTemp(t, "input.dat",
		"Time\tCO2 (ppm)\n"+
			"01/03/2025 10:30\t410.2\n")

	table, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, '\t', table.Separator)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "410.2", table.Rows[0][1])
}

func TestReadNoData(t *testing.T) {
	path := writeTemp(t, "empty.csv", "a,b\n")
	_, err := Read(path)
	require.Error(t, err)
}
