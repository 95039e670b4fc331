package flux

import "math"

// GroupKey identifies one (cycle, sample, gas) statistics group.
type GroupKey struct {
	Cycle  int
	Sample int
	Gas    string
}

// GroupStats holds mean, sample standard deviation (ddof=1) and the
// standard error of the mean for corrected flux within one group.
type GroupStats struct {
	Mean float64
	Std  float64
	SEM  float64
	N    int
}

// welford accumulates mean and variance in one pass. NaN values must be
// filtered by the caller.
type welford struct {
	n    int
	avg  float64
	m2   float64
}

func (w *welford) add(x float64) {
	w.n++
	delta := x - w.avg
	w.avg += delta / float64(w.n)
	w.m2 += delta * (x - w.avg)
}

func (w *welford) mean() float64 {
	if w.n == 0 {
		return math.NaN()
	}
	return w.avg
}

// std returns the sample standard deviation (ddof=1).
func (w *welford) std() float64 {
	if w.n < 2 {
		return math.NaN()
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}

// ComputeStats aggregates corrected flux per (cycle, sample, gas).
func ComputeStats(points []Point) map[GroupKey]GroupStats {
	acc := make(map[GroupKey]*welford)
	for _, p := range points {
		if math.IsNaN(p.Corrected) {
			continue
		}
		k := GroupKey{p.Cycle, p.Sample, p.Gas}
		if acc[k] == nil {
			acc[k] = &welford{}
		}
		acc[k].add(p.Corrected)
	}

	stats := make(map[GroupKey]GroupStats, len(acc))
	for k, w := range acc {
		std := w.std()
		stats[k] = GroupStats{
			Mean: w.mean(),
			Std:  std,
			SEM:  std / math.Sqrt(float64(w.n)),
			N:    w.n,
		}
	}
	return stats
}
