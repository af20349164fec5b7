package domain

import "time"

// Report is everything a presentation layer needs to render one input set.
type Report struct {
	ID             string               `json:"id"`
	Inputs         FlareInputs          `json:"inputs"`
	HeatRelease    HeatReleaseBreakdown `json:"heat_release"`
	Curve          []FluxSample         `json:"curve"`
	ReferenceLines []SafetyThreshold    `json:"reference_lines"`
	SafeDistances  []ThresholdDistance  `json:"safe_distances"`
	ComputedAt     time.Time            `json:"computed_at"`
}

// BuildReport computes the heat release, the default curve and the safe
// distances for in.
func BuildReport(in FlareInputs) (Report, error) {
	if err := in.Validate(); err != nil {
		return Report{}, err
	}
	curve, err := Sweep(in, DefaultSweep)
	if err != nil {
		return Report{}, err
	}
	distances, err := SafetyDistances(in)
	if err != nil {
		return Report{}, err
	}
	return Report{
		ID:             in.Fingerprint(),
		Inputs:         in,
		HeatRelease:    BreakdownHeatRelease(in.FlowRate, in.HeatContent),
		Curve:          curve,
		ReferenceLines: Thresholds(),
		SafeDistances:  distances,
		ComputedAt:     clock.Now().UTC(),
	}, nil
}

// SafeDistanceFor returns the distance for the named threshold, or false.
func (r Report) SafeDistanceFor(name string) (float64, bool) {
	for _, d := range r.SafeDistances {
		if d.Threshold.Name == name {
			return d.Distance, true
		}
	}
	return 0, false
}
