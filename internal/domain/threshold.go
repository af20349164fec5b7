package domain

// Threshold flux levels in kW/m².
const (
	SafeFlux              = 1.5
	ShortExposureFlux     = 3.0
	VeryShortExposureFlux = 4.6
)

// SafetyThreshold is a fixed exposure limit drawn as a reference line.
type SafetyThreshold struct {
	Name     string  `json:"name"`
	Label    string  `json:"label"`
	Flux     float64 `json:"flux"` // kW/m²
	Exposure string  `json:"exposure,omitempty"`
}

// ThresholdDistance pairs a threshold with the minimum distance at which the
// flux drops to its level.
type ThresholdDistance struct {
	Threshold SafetyThreshold `json:"threshold"`
	Distance  float64         `json:"distance"` // meters, one decimal
}

var thresholds = [...]SafetyThreshold{
	{Name: "safe", Label: "Safe Working Distance", Flux: SafeFlux},
	{Name: "shortExposure", Label: "Short Exposure Limit", Flux: ShortExposureFlux, Exposure: "~48s"},
	{Name: "veryShortExposure", Label: "Very Short Exposure Limit", Flux: VeryShortExposureFlux, Exposure: "~45s"},
}

// Thresholds returns the reference limits ordered from lowest to highest flux.
func Thresholds() []SafetyThreshold {
	out := make([]SafetyThreshold, len(thresholds))
	copy(out, thresholds[:])
	return out
}

// ThresholdByName looks up a threshold by its Name.
func ThresholdByName(name string) (SafetyThreshold, bool) {
	for _, t := range thresholds {
		if t.Name == name {
			return t, true
		}
	}
	return SafetyThreshold{}, false
}

// SafetyDistances computes the rounded safe distance for every threshold.
func SafetyDistances(in FlareInputs) ([]ThresholdDistance, error) {
	if err := in.check("safety_distances", domainErr); err != nil {
		return nil, err
	}
	q := in.HeatRelease()
	out := make([]ThresholdDistance, 0, len(thresholds))
	for _, t := range thresholds {
		d, err := SafeDistance(q, in.RadFraction, t.Flux)
		if err != nil {
			return nil, err
		}
		out = append(out, ThresholdDistance{Threshold: t, Distance: d})
	}
	return out, nil
}
