package instrument

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"
)

// detectLines is how many leading lines are inspected when sniffing the
// separator and header position. Instrument files carry at most a couple of
// preamble lines before the header.
const detectLines = 10

// timestampLayouts are the datetime formats emitted by the supported
// instruments. The first column of every input file must match one of them.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// ParseTimestamp parses an instrument timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unexpected datetime format: %q", s)
}

// DetectSeparator sniffs the column separator of an instrument file.
// Tab-separated .dat/.log exports win over comma since their preamble
// lines may contain commas.
func DetectSeparator(path string) (rune, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	sawComma := false
	for i := 0; scanner.Scan() && i < detectLines; i++ {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.ContainsRune(line, '\t') {
			return '\t', nil
		}
		if strings.ContainsRune(line, ',') {
			sawComma = true
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read input file: %w", err)
	}
	if sawComma {
		return ',', nil
	}

	return 0, fmt.Errorf("failed to detect separator in %s", path)
}

// DetectHeaderRow finds the zero-based line index of the header row: the
// line immediately above the first line whose first field parses as a
// timestamp.
func DetectHeaderRow(path string, separator rune) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for i := 0; scanner.Scan(); i++ {
		fields := strings.Split(scanner.Text(), string(separator))
		if len(fields) < 2 {
			continue
		}
		if _, err := ParseTimestamp(fields[0]); err == nil {
			if i == 0 {
				return 0, fmt.Errorf("no header row above first data line in %s", path)
			}
			return i - 1, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read input file: %w", err)
	}

	return 0, fmt.Errorf("failed to detect header in %s", path)
}

// Read parses an instrument file into a RawTable, auto-detecting the
// separator and skipping any preamble lines before the header.
func Read(path string) (*RawTable, error) {
	separator, err := DetectSeparator(path)
	if err != nil {
		return nil, err
	}

	headerRow, err := DetectHeaderRow(path, separator)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	// DetectHeaderRow counts physical lines, the CSV reader drops blank
	// ones. Skip the preamble here so the two cannot drift apart.
	buffered := bufio.NewReader(file)
	for i := 0; i < headerRow; i++ {
		if _, err := buffered.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("failed to skip preamble in %s: %w", path, err)
		}
	}

	reader := csv.NewReader(buffered)
	reader.Comma = separator
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	table := &RawTable{
		Header:    records[0],
		Separator: separator,
	}
	for _, row := range records[1:] {
		if len(row) == 0 {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	return table, nil
}
