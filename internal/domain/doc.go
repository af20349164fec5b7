// Package domain models radiant heat exposure around a biogas flare.
//
// # Heat Release
//
// Total heat release is derived from the metered gas flow and its heating
// value through a fixed chain of unit conversions:
//
//	BTU/min = flow rate (SCFM) × heat content (BTU/SCF)
//	BTU/day = BTU/min × 1440
//	kWh/day = BTU/day ÷ 3412
//	kW      = kWh/day ÷ 24
//
// The steps are applied in exactly this order so results match the values
// shown to operators digit for digit. See [HeatRelease].
//
// # Point-Source Model
//
// The flame is treated as a point source radiating a fixed fraction of its
// heat release uniformly over a sphere:
//
//	q(d) = (F × Q) / (4π d²)
//
// where F is the radiation fraction, Q the heat release in kW and d the
// distance in meters. Inverting for d gives the distance at which a target
// flux is reached. See [HeatFlux] and [SafeDistance].
//
// No flame geometry, wind tilt, atmospheric transmissivity or emissivity
// beyond F is modelled.
//
// # Exposure Thresholds
//
// Reference flux levels come from thermal manikin trials on protective
// clothing at petro-chemical plants (Heus & Denhartog, 2017, Industrial
// Health 55, 529-536), with time to the 43°C pain threshold as cut-off:
//
//	1.5 kW/m²  safe working distance
//	3.0 kW/m²  short exposure (~48 s)
//	4.6 kW/m²  very short exposure (~45 s)
//
// # Domain Errors
//
// Operations never clamp or coerce. Arguments outside the physical domain
// produce a [*DomainError] matching [ErrDomain]; boundary parsing failures
// additionally match [ErrInvalidInput].
package domain
