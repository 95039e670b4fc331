package flux

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmoslab/fluxpro/internal/config"
)

func TestNewCorrector(t *testing.T) {
	c, err := NewCorrector(config.BlankConfig{Mode: config.BlankModeSample, Index: 1})
	require.NoError(t, err)
	assert.IsType(t, &sampleCorrector{}, c)

	c, err = NewCorrector(config.BlankConfig{Mode: config.BlankModeCycle, Index: 1})
	require.NoError(t, err)
	assert.IsType(t, &cycleCorrector{}, c)

	_, err = NewCorrector(config.BlankConfig{Mode: "row"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported blank mode")
}

func TestSampleCorrector(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	points := []Point{
		// Blank sample (index 1), mean flux 2.0
		{Time: ts, Cycle: 1, Sample: 1, Gas: "NO", Flux: 1.0},
		{Time: ts, Cycle: 1, Sample: 1, Gas: "NO", Flux: 3.0},
		// Measured samples
		{Time: ts, Cycle: 1, Sample: 2, Gas: "NO", Flux: 5.0},
		{Time: ts, Cycle: 1, Sample: 3, Gas: "NO", Flux: 2.5},
	}

	c := &sampleCorrector{index: 1}
	out := c.Apply(points)

	// Blank readings are dropped from the output.
	require.Len(t, out, 2)
	assert.InEpsilon(t, 3.0, out[0].Corrected, 1e-12)
	assert.InEpsilon(t, 0.5, out[1].Corrected, 1e-12)
}

func TestSampleCorrectorPerCycleMeans(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	points := []Point{
		{Time: ts, Cycle: 1, Sample: 1, Gas: "NO", Flux: 1.0},
		{Time: ts, Cycle: 2, Sample: 1, Gas: "NO", Flux: 10.0},
		{Time: ts, Cycle: 1, Sample: 2, Gas: "NO", Flux: 5.0},
		{Time: ts, Cycle: 2, Sample: 2, Gas: "NO", Flux: 5.0},
	}

	out := (&sampleCorrector{index: 1}).Apply(points)

	require.Len(t, out, 2)
	assert.InEpsilon(t, 4.0, out[0].Corrected, 1e-12)  // cycle 1: 5 - 1
	assert.InEpsilon(t, -5.0, out[1].Corrected, 1e-12) // cycle 2: 5 - 10
}

func TestSampleCorrectorMissingBlank(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	points := []Point{
		// Cycle 2 has no blank readings for this gas.
		{Time: ts, Cycle: 2, Sample: 2, Gas: "NO", Flux: 5.0},
	}

	out := (&sampleCorrector{index: 1}).Apply(points)
	require.Len(t, out, 1)
	assert.True(t, math.IsNaN(out[0].Corrected))
}

func TestSampleCorrectorSkipsNaNBlanks(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	points := []Point{
		{Time: ts, Cycle: 1, Sample: 1, Gas: "NO", Flux: math.NaN()},
		{Time: ts, Cycle: 1, Sample: 1, Gas: "NO", Flux: 2.0},
		{Time: ts, Cycle: 1, Sample: 2, Gas: "NO", Flux: 5.0},
	}

	out := (&sampleCorrector{index: 1}).Apply(points)
	require.Len(t, out, 1)
	assert.InEpsilon(t, 3.0, out[0].Corrected, 1e-12)
}

func TestCycleCorrector(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	points := []Point{
		// Blank cycle (index 1), mean flux per gas
		{Time: ts, Cycle: 1, Sample: 2, Gas: "NO", Flux: 1.0},
		{Time: ts, Cycle: 1, Sample: 3, Gas: "NO", Flux: 3.0},
		{Time: ts, Cycle: 1, Sample: 2, Gas: "N2O", Flux: 0.5},
		// Measured cycles
		{Time: ts, Cycle: 2, Sample: 2, Gas: "NO", Flux: 5.0},
		{Time: ts, Cycle: 2, Sample: 2, Gas: "N2O", Flux: 1.5},
	}

	out := (&cycleCorrector{index: 1}).Apply(points)

	require.Len(t, out, 2)
	assert.InEpsilon(t, 3.0, out[0].Corrected, 1e-12) // NO: 5 - 2
	assert.InEpsilon(t, 1.0, out[1].Corrected, 1e-12) // N2O: 1.5 - 0.5
}
