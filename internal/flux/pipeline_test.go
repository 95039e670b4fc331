package flux

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmoslab/fluxpro/internal/config"
	"github.com/atmoslab/fluxpro/internal/instrument"
)

func timesEvery(start time.Time, interval time.Duration, n int) []time.Time {
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * interval)
	}
	return times
}

func TestLabelCycles(t *testing.T) {
	cfg := config.SamplesConfig{
		TotalCycles:      3,
		SamplesPerCycle:  2,
		MinutesPerSample: 1,
	}

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	times := timesEvery(start, 30*time.Second, 12)

	cycles, samples := LabelCycles(times, cfg)

	assert.Equal(t, []int{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}, cycles)
	assert.Equal(t, []int{1, 1, 2, 2, 1, 1, 2, 2, 1, 1, 2, 2}, samples)
}

func TestLabelCyclesClipsOverrun(t *testing.T) {
	cfg := config.SamplesConfig{
		TotalCycles:      2,
		SamplesPerCycle:  2,
		MinutesPerSample: 1,
	}

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	// Last reading is past the end of the final cycle.
	times := []time.Time{start, start.Add(5 * time.Minute)}

	cycles, samples := LabelCycles(times, cfg)
	assert.Equal(t, 2, cycles[1])
	assert.Equal(t, 2, samples[1])
}

func TestLabelCyclesEmpty(t *testing.T) {
	cycles, samples := LabelCycles(nil, config.SamplesConfig{})
	assert.Nil(t, cycles)
	assert.Nil(t, samples)
}

func TestTrimTransition(t *testing.T) {
	cfg := config.SamplesConfig{
		TotalCycles:      1,
		SamplesPerCycle:  2,
		MinutesPerSample: 4,
	}

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	times := timesEvery(start, time.Minute, 8)
	cycles, samples := LabelCycles(times, cfg)

	keep := TrimTransition(times, cycles, samples, 2)

	// First two minutes of each sample are discarded.
	assert.Equal(t, []bool{false, false, true, true, false, false, true, true}, keep)
}

func TestTrimTransitionZeroDiscard(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	times := timesEvery(start, time.Minute, 4)
	cycles := []int{1, 1, 1, 1}
	samples := []int{1, 1, 2, 2}

	keep := TrimTransition(times, cycles, samples, 0)
	assert.Equal(t, []bool{true, true, true, true}, keep)
}

func TestDerive(t *testing.T) {
	samplesCfg := config.SamplesConfig{
		TotalCycles:      1,
		SamplesPerCycle:  2,
		MinutesPerSample: 2,
		DiscardMinutes:   1,
	}
	fluxCfg := config.FluxConfig{
		FlowRate:        0.1,
		ChamberVolume:   0.01,
		SoilSurfaceArea: 0.05,
	}

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	frame := &instrument.Frame{
		Times: timesEvery(start, time.Minute, 4),
		Gases: []string{"NO"},
		Values: map[string][]float64{
			"NO": {1.0, 2.0, 3.0, 4.0},
		},
	}

	points := Derive(frame, samplesCfg, fluxCfg)

	// One transition minute per sample is dropped.
	require.Len(t, points, 2)

	factor := 0.1 * 0.01 / 0.05
	assert.Equal(t, 1, points[0].Cycle)
	assert.Equal(t, 1, points[0].Sample)
	assert.InEpsilon(t, 2.0*factor, points[0].Flux, 1e-12)
	assert.Equal(t, 2, points[1].Sample)
	assert.InEpsilon(t, 4.0*factor, points[1].Flux, 1e-12)
}

func TestDerivePropagatesNaN(t *testing.T) {
	samplesCfg := config.SamplesConfig{
		TotalCycles:      1,
		SamplesPerCycle:  1,
		MinutesPerSample: 2,
	}
	fluxCfg := config.FluxConfig{FlowRate: 1, ChamberVolume: 1, SoilSurfaceArea: 1}

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	frame := &instrument.Frame{
		Times:  timesEvery(start, time.Minute, 2),
		Gases:  []string{"NO"},
		Values: map[string][]float64{"NO": {math.NaN(), 1.0}},
	}

	points := Derive(frame, samplesCfg, fluxCfg)
	require.Len(t, points, 2)
	assert.True(t, math.IsNaN(points[0].Flux))
	assert.False(t, math.IsNaN(points[1].Flux))
}
