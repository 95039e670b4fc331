// Package flux implements the chamber flux pipeline: cycle/sample
// labelling, transition trimming, flux derivation, blank correction and
// per-group statistics.
package flux

import (
	"math"
	"time"

	"github.com/atmoslab/fluxpro/internal/config"
	"github.com/atmoslab/fluxpro/internal/instrument"
)

// Point is one labelled flux reading for one gas.
type Point struct {
	Time      time.Time
	Cycle     int
	Sample    int
	Gas       string
	Flux      float64
	Corrected float64
}

// LabelCycles assigns cycle and sample numbers from elapsed minutes since
// the first reading. Both are clipped to the configured maxima so trailing
// readings stay in the last cycle/sample instead of spilling over.
func LabelCycles(times []time.Time, cfg config.SamplesConfig) (cycles, samples []int) {
	if len(times) == 0 {
		return nil, nil
	}

	cycleDuration := float64(cfg.MinutesPerSample * cfg.SamplesPerCycle)
	start := times[0]

	cycles = make([]int, len(times))
	samples = make([]int, len(times))
	for i, t := range times {
		elapsed := t.Sub(start).Minutes()

		cycle := int(math.Floor(elapsed/cycleDuration)) + 1
		if cycle > cfg.TotalCycles {
			cycle = cfg.TotalCycles
		}

		sample := int(math.Floor(math.Mod(elapsed, cycleDuration)/float64(cfg.MinutesPerSample))) + 1
		if sample > cfg.SamplesPerCycle {
			sample = cfg.SamplesPerCycle
		}

		cycles[i] = cycle
		samples[i] = sample
	}
	return cycles, samples
}

// TrimTransition marks the readings to keep: within each (cycle, sample)
// group the first discardMinutes after the group's first reading are
// dropped so the analyser can settle.
func TrimTransition(times []time.Time, cycles, samples []int, discardMinutes int) []bool {
	type group struct{ cycle, sample int }

	first := make(map[group]time.Time)
	for i, t := range times {
		g := group{cycles[i], samples[i]}
		if f, ok := first[g]; !ok || t.Before(f) {
			first[g] = t
		}
	}

	keep := make([]bool, len(times))
	discard := time.Duration(discardMinutes) * time.Minute
	for i, t := range times {
		g := group{cycles[i], samples[i]}
		keep[i] = t.Sub(first[g]) >= discard
	}
	return keep
}

// Derive turns a standardized frame into labelled flux points:
// flux = concentration (mol/L) x flow rate (L/min) x chamber volume / soil area.
// Readings inside the transition window are dropped.
func Derive(frame *instrument.Frame, samples config.SamplesConfig, fc config.FluxConfig) []Point {
	cycles, sampleIdx := LabelCycles(frame.Times, samples)
	keep := TrimTransition(frame.Times, cycles, sampleIdx, samples.DiscardMinutes)

	factor := fc.FlowRate * fc.ChamberVolume / fc.SoilSurfaceArea

	var points []Point
	for _, gas := range frame.Gases {
		values := frame.Values[gas]
		for i := range frame.Times {
			if !keep[i] {
				continue
			}
			points = append(points, Point{
				Time:   frame.Times[i],
				Cycle:  cycles[i],
				Sample: sampleIdx[i],
				Gas:    gas,
				Flux:   values[i] * factor,
			})
		}
	}
	return points
}
