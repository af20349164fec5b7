package domain

import (
	"math"
)

// Unit conversion constants for the heat release chain.
const (
	MinutesPerDay = 1440.0
	BTUPerKWh     = 3412.0
	HoursPerDay   = 24.0
)

// sphere is the 4π factor of the point-source model.
const sphere = 4 * math.Pi

// HeatReleaseBreakdown records every step of the heat release conversion.
type HeatReleaseBreakdown struct {
	BTUPerMinute float64 `json:"btu_per_minute"`
	BTUPerDay    float64 `json:"btu_per_day"`
	KWhPerDay    float64 `json:"kwh_per_day"`
	KW           float64 `json:"kw"`
}

// HeatRelease converts a gas flow (SCFM) and heat content (BTU/SCF) into
// total heat release in kW. Callers validate inputs; it never fails.
func HeatRelease(flowRate, heatContent float64) float64 {
	return BreakdownHeatRelease(flowRate, heatContent).KW
}

// BreakdownHeatRelease is HeatRelease with the intermediate values kept.
func BreakdownHeatRelease(flowRate, heatContent float64) HeatReleaseBreakdown {
	btuPerMin := flowRate * heatContent
	btuPerDay := btuPerMin * MinutesPerDay
	kwhPerDay := btuPerDay / BTUPerKWh
	return HeatReleaseBreakdown{
		BTUPerMinute: btuPerMin,
		BTUPerDay:    btuPerDay,
		KWhPerDay:    kwhPerDay,
		KW:           kwhPerDay / HoursPerDay,
	}
}

// HeatFlux returns the radiant flux in kW/m² at distance meters from the flare.
// A non-positive or non-finite distance is rejected with a *DomainError rather
// than returning +Inf.
func HeatFlux(flowRate, heatContent, radFraction, distance float64) (float64, error) {
	const op = "heat_flux"
	in := FlareInputs{FlowRate: flowRate, HeatContent: heatContent, RadFraction: radFraction}
	if err := in.check(op, domainErr); err != nil {
		return 0, err
	}
	if !positive(distance) {
		return 0, domainErr(op, "distance", distance, "> 0")
	}
	q := fluxAt(HeatRelease(flowRate, heatContent), radFraction, distance)
	if !finite(q) {
		return 0, domainErr(op, "heat_flux", q, "finite")
	}
	return q, nil
}

// SafeDistance solves the point-source law for the distance at which the
// flux falls to targetFlux, rounded to the nearest tenth of a meter.
func SafeDistance(heatRelease, radFraction, targetFlux float64) (float64, error) {
	d, err := UnroundedSafeDistance(heatRelease, radFraction, targetFlux)
	if err != nil {
		return 0, err
	}
	return RoundTenth(d), nil
}

// UnroundedSafeDistance is SafeDistance without display rounding.
func UnroundedSafeDistance(heatRelease, radFraction, targetFlux float64) (float64, error) {
	const op = "safe_distance"
	if !finite(heatRelease) {
		return 0, domainErr(op, "heat_release", heatRelease, "finite")
	}
	if heatRelease < 0 {
		return 0, domainErr(op, "heat_release", heatRelease, ">= 0")
	}
	if !validFraction(radFraction) {
		return 0, domainErr(op, "rad_fraction", radFraction, "in (0, 1]")
	}
	if !positive(targetFlux) {
		return 0, domainErr(op, "target_flux", targetFlux, "> 0")
	}
	d := math.Sqrt((radFraction * heatRelease) / (sphere * targetFlux))
	if !finite(d) {
		return 0, domainErr(op, "distance", d, "finite")
	}
	return d, nil
}

// RoundTenth rounds to one decimal place, halves away from zero.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func fluxAt(heatRelease, radFraction, distance float64) float64 {
	return (radFraction * heatRelease) / (sphere * distance * distance)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validFraction(v float64) bool {
	return v > 0 && v <= 1
}
