package flux

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWelford(t *testing.T) {
	w := &welford{}
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		w.add(x)
	}

	assert.InEpsilon(t, 5.0, w.mean(), 1e-12)
	// Sample standard deviation (ddof=1) of the series above.
	assert.InEpsilon(t, math.Sqrt(32.0/7.0), w.std(), 1e-12)
}

func TestWelfordEmpty(t *testing.T) {
	w := &welford{}
	assert.True(t, math.IsNaN(w.mean()))
	assert.True(t, math.IsNaN(w.std()))
}

func TestWelfordSingleValue(t *testing.T) {
	w := &welford{}
	w.add(3.5)
	assert.InEpsilon(t, 3.5, w.mean(), 1e-12)
	assert.True(t, math.IsNaN(w.std()))
}

func TestComputeStats(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	points := []Point{
		{Time: ts, Cycle: 1, Sample: 2, Gas: "NO", Corrected: 1.0},
		{Time: ts, Cycle: 1, Sample: 2, Gas: "NO", Corrected: 2.0},
		{Time: ts, Cycle: 1, Sample: 2, Gas: "NO", Corrected: 3.0},
		{Time: ts, Cycle: 1, Sample: 3, Gas: "NO", Corrected: 10.0},
	}

	stats := ComputeStats(points)
	require.Len(t, stats, 2)

	g := stats[GroupKey{Cycle: 1, Sample: 2, Gas: "NO"}]
	assert.Equal(t, 3, g.N)
	assert.InEpsilon(t, 2.0, g.Mean, 1e-12)
	assert.InEpsilon(t, 1.0, g.Std, 1e-12)
	assert.InEpsilon(t, 1.0/math.Sqrt(3), g.SEM, 1e-12)

	single := stats[GroupKey{Cycle: 1, Sample: 3, Gas: "NO"}]
	assert.Equal(t, 1, single.N)
	assert.InEpsilon(t, 10.0, single.Mean, 1e-12)
	assert.True(t, math.IsNaN(single.Std))
	assert.True(t, math.IsNaN(single.SEM))
}

func TestComputeStatsSkipsNaN(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	points := []Point{
		{Time: ts, Cycle: 1, Sample: 2, Gas: "NO", Corrected: math.NaN()},
		{Time: ts, Cycle: 1, Sample: 2, Gas: "NO", Corrected: 4.0},
	}

	stats := ComputeStats(points)
	g := stats[GroupKey{Cycle: 1, Sample: 2, Gas: "NO"}]
	assert.Equal(t, 1, g.N)
	assert.InEpsilon(t, 4.0, g.Mean, 1e-12)
}

func TestComputeStatsEmpty(t *testing.T) {
	assert.Empty(t, ComputeStats(nil))
}
