package domain

import (
	"fmt"
	"math"
)

// FluxSample is one point of the flux-vs-distance curve.
type FluxSample struct {
	Distance float64 `json:"distance"`  // meters
	HeatFlux float64 `json:"heat_flux"` // kW/m²
}

// SweepRange is an inclusive distance range walked in fixed steps.
type SweepRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Step  float64 `json:"step"`
}

// DefaultSweep covers 1 m to 100 m in 1 m steps.
var DefaultSweep = SweepRange{Start: 1, End: 100, Step: 1}

// MaxSweepSamples caps the number of points a single sweep may produce.
const MaxSweepSamples = 100_000

// stepTolerance absorbs float error in (End-Start)/Step so an End that is a
// whole number of steps away is included.
const stepTolerance = 1e-9

// Samples returns the number of points the range produces, or 0 for a range
// that Sweep would reject.
func (r SweepRange) Samples() int {
	if r.validate() != nil {
		return 0
	}
	return int(r.count())
}

func (r SweepRange) count() float64 {
	return math.Floor((r.End-r.Start)/r.Step+stepTolerance) + 1
}

func (r SweepRange) validate() error {
	const op = "sweep"
	if !positive(r.Start) {
		return domainErr(op, "start", r.Start, "> 0")
	}
	if !positive(r.Step) {
		return domainErr(op, "step", r.Step, "> 0")
	}
	if !positive(r.End) || r.End < r.Start {
		return domainErr(op, "end", r.End, ">= start")
	}
	if n := r.count(); n > MaxSweepSamples {
		return domainErr(op, "samples", n, fmt.Sprintf("<= %d", MaxSweepSamples))
	}
	return nil
}

// Sweep evaluates HeatFlux at every distance in r.
func Sweep(in FlareInputs, r SweepRange) ([]FluxSample, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if err := in.check("sweep", domainErr); err != nil {
		return nil, err
	}
	q := in.HeatRelease()
	n := r.Samples()
	out := make([]FluxSample, n)
	for i := range n {
		// Multiply rather than accumulate so integer sweeps stay exact.
		d := min(r.Start+float64(i)*r.Step, r.End)
		flux := fluxAt(q, in.RadFraction, d)
		if !finite(flux) {
			return nil, domainErr("sweep", "distance", d, "large enough for a finite flux")
		}
		out[i] = FluxSample{Distance: d, HeatFlux: flux}
	}
	return out, nil
}
