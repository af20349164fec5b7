package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Defaults for a typical landfill biogas flare.
const (
	DefaultFlowRate    = 150.0 // SCFM
	DefaultHeatContent = 650.0 // BTU/SCF
	DefaultRadFraction = 0.35
)

// FlareInputs describes the operating point of a flare.
type FlareInputs struct {
	FlowRate    float64 `json:"flow_rate"`    // SCFM
	HeatContent float64 `json:"heat_content"` // BTU/SCF
	RadFraction float64 `json:"rad_fraction"` // (0, 1]
}

// DefaultInputs returns the operating point a new calculation starts from.
func DefaultInputs() FlareInputs {
	return FlareInputs{
		FlowRate:    DefaultFlowRate,
		HeatContent: DefaultHeatContent,
		RadFraction: DefaultRadFraction,
	}
}

// Validate reports whether all fields are positive and the radiation
// fraction does not exceed 1.
func (in FlareInputs) Validate() error {
	return in.check("flare_inputs", inputErr)
}

func (in FlareInputs) check(op string, mk func(op, param string, v float64, rule string) *DomainError) error {
	if !positive(in.FlowRate) {
		return mk(op, "flow_rate", in.FlowRate, "> 0")
	}
	if !positive(in.HeatContent) {
		return mk(op, "heat_content", in.HeatContent, "> 0")
	}
	if !validFraction(in.RadFraction) {
		return mk(op, "rad_fraction", in.RadFraction, "in (0, 1]")
	}
	// Each factor can be finite while the product overflows.
	if q := in.HeatRelease(); !finite(q) {
		return mk(op, "heat_release", q, "finite")
	}
	return nil
}

// HeatRelease is the total heat release for these inputs in kW.
func (in FlareInputs) HeatRelease() float64 {
	return HeatRelease(in.FlowRate, in.HeatContent)
}

// RadFractionPercent returns the radiation fraction as a percentage.
func (in FlareInputs) RadFractionPercent() float64 {
	return in.RadFraction * 100
}

// Fingerprint is a deterministic identifier for the input set, so identical
// inputs always map to the same report ID.
func (in FlareInputs) Fingerprint() string {
	key := fmt.Sprintf("%g|%g|%g", in.FlowRate, in.HeatContent, in.RadFraction)
	sum := sha256.Sum256([]byte(key))
	return "flux-" + hex.EncodeToString(sum[:8])
}

// ParsePositive parses a form value that must be a number greater than zero.
func ParsePositive(param, raw string) (float64, error) {
	v, err := parseNumber(param, raw)
	if err != nil {
		return 0, err
	}
	if !positive(v) {
		return 0, inputErr("parse", param, v, "> 0")
	}
	return v, nil
}

// ParsePercentFraction parses a percentage in (0, 100] and returns it as a
// fraction in (0, 1]. "100" maps to exactly 1.
func ParsePercentFraction(param, raw string) (float64, error) {
	v, err := parseNumber(param, raw)
	if err != nil {
		return 0, err
	}
	return PercentToFraction(param, v)
}

// PercentToFraction converts an already-parsed percentage.
func PercentToFraction(param string, pct float64) (float64, error) {
	f := pct / 100
	if !validFraction(f) {
		return 0, inputErr("parse", param, pct, "in (0, 100]")
	}
	return f, nil
}

func parseNumber(param, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) {
		return 0, inputErr("parse", param, math.NaN(), "numeric")
	}
	return v, nil
}
