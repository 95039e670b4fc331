package flux

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmoslab/fluxpro/internal/config"
)

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()

	// Two cycles of two two-minute samples, one reading per minute.
	var sb strings.Builder
	sb.WriteString("Time,NO Conc,NOY Conc\n")
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		sb.WriteString(fmt.Sprintf("%s,%0.1f,%0.1f\n",
			start.Add(time.Duration(i)*time.Minute).Format("2006-01-02 15:04:05"),
			1.0+float64(i), 2.0+float64(i),
		))
	}
	path := filepath.Join(dir, "measurement.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))

	cfg := config.NewDefault()
	cfg.Samples.TotalCycles = 2
	cfg.Samples.SamplesPerCycle = 2
	cfg.Samples.MinutesPerSample = 2
	cfg.Samples.DiscardMinutes = 1

	result, err := NewProcessor(cfg, nil).ProcessFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, result.InputFile)
	assert.Equal(t, []string{"NO", "NOY"}, result.Gases)
	assert.Equal(t, 8, result.Readings)

	// The blank sample is removed, leaving only sample 2.
	assert.Equal(t, []int{2}, result.Samples())

	// One kept reading per (cycle, sample, gas) after trimming.
	for key, stats := range result.Stats {
		assert.Equal(t, 2, key.Sample)
		assert.Equal(t, 1, stats.N, "group %+v", key)
	}
	require.Len(t, result.Stats, 4) // 2 cycles x 2 gases
}

func TestProcessFileCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "measurement.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("Time,NO Conc\n2025-03-01 10:00:00,1.5\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProcessor(config.NewDefault(), nil).ProcessFile(ctx, path)
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessFileMissing(t *testing.T) {
	_, err := NewProcessor(config.NewDefault(), nil).ProcessFile(
		context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}
