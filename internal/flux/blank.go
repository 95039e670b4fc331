package flux

import (
	"fmt"
	"math"

	"github.com/atmoslab/fluxpro/internal/config"
)

// Corrector subtracts the blank reference from flux points. The returned
// slice excludes the blank readings themselves.
type Corrector interface {
	Apply(points []Point) []Point
}

// NewCorrector builds the corrector for the configured blank mode.
func NewCorrector(cfg config.BlankConfig) (Corrector, error) {
	switch cfg.Mode {
	case config.BlankModeSample:
		return &sampleCorrector{index: cfg.Index}, nil
	case config.BlankModeCycle:
		return &cycleCorrector{index: cfg.Index}, nil
	}
	return nil, fmt.Errorf("unsupported blank mode: %q", cfg.Mode)
}

// sampleCorrector uses one sample slot per cycle as the blank: its mean flux
// per (cycle, gas) is subtracted from every other sample in that cycle.
type sampleCorrector struct {
	index int
}

func (c *sampleCorrector) Apply(points []Point) []Point {
	type key struct {
		cycle int
		gas   string
	}

	means := make(map[key]*welford)
	for _, p := range points {
		if p.Sample != c.index || math.IsNaN(p.Flux) {
			continue
		}
		k := key{p.Cycle, p.Gas}
		if means[k] == nil {
			means[k] = &welford{}
		}
		means[k].add(p.Flux)
	}

	var out []Point
	for _, p := range points {
		if p.Sample == c.index {
			continue
		}
		p.Corrected = math.NaN()
		if m, ok := means[key{p.Cycle, p.Gas}]; ok {
			p.Corrected = p.Flux - m.mean()
		}
		out = append(out, p)
	}
	return out
}

// cycleCorrector uses a whole cycle as the blank: its mean flux per gas is
// subtracted from all other cycles.
type cycleCorrector struct {
	index int
}

func (c *cycleCorrector) Apply(points []Point) []Point {
	means := make(map[string]*welford)
	for _, p := range points {
		if p.Cycle != c.index || math.IsNaN(p.Flux) {
			continue
		}
		if means[p.Gas] == nil {
			means[p.Gas] = &welford{}
		}
		means[p.Gas].add(p.Flux)
	}

	var out []Point
	for _, p := range points {
		if p.Cycle == c.index {
			continue
		}
		p.Corrected = math.NaN()
		if m, ok := means[p.Gas]; ok {
			p.Corrected = p.Flux - m.mean()
		}
		out = append(out, p)
	}
	return out
}
