// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package score

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/AleutianAI/AleutianStress/services/stress/geom"
	"github.com/AleutianAI/AleutianStress/services/stress/load"
	"github.com/AleutianAI/AleutianStress/services/stress/shape"
)

// Scorer calibration defaults. Hand-tuned against example shapes; tunables,
// not mechanics.
const (
	// DefaultSharpAngleDeg mirrors the analyzer's sharp threshold; the
	// geometry factor ramps up above it.
	DefaultSharpAngleDeg = 45.0

	// DefaultGentleMinDeg is the lower edge of the gentle-curve band.
	// Angles in [GentleMinDeg, SharpAngleDeg] reduce fragility: curves
	// distribute load better than flats or corners.
	DefaultGentleMinDeg = 15.0

	// DefaultSharpGain scales how fast the geometry factor grows with the
	// angle in excess of the sharp threshold.
	DefaultSharpGain = 1.0

	// DefaultCurveRelief is the geometry factor inside the gentle band.
	DefaultCurveRelief = 0.7

	// DefaultThinThreshold is the wall thickness below which the thickness
	// factor ramps up.
	DefaultThinThreshold = 0.5

	// DefaultThickThreshold is the wall thickness above which the thickness
	// factor relieves.
	DefaultThickThreshold = 2.0

	// DefaultThinGain is the extra factor reached as thickness approaches 0.
	DefaultThinGain = 1.5

	// DefaultThickRelief is the thickness factor for comfortably thick walls.
	DefaultThickRelief = 0.8

	// DefaultCriticalBandWidth is how far past the supporting edge the
	// bending moment is treated as locally maximal.
	DefaultCriticalBandWidth = 0.5

	// DefaultEdgeBandFactor applies inside the critical band.
	DefaultEdgeBandFactor = 1.6

	// DefaultBehindEdgeFactor applies to free vertices behind the edge.
	DefaultBehindEdgeFactor = 1.2

	// DefaultHangProximityRadius is the distance to the hanging point below
	// which the position factor relieves (little remaining lever arm).
	DefaultHangProximityRadius = 1.0

	// DefaultHangRelief multiplies the position factor near the hang point.
	DefaultHangRelief = 0.8

	// DefaultTransitionBandWidth is the half-width of the elevated band at
	// the embedded-to-free height transition.
	DefaultTransitionBandWidth = 0.3

	// DefaultTransitionFactor applies inside the transition band.
	DefaultTransitionFactor = 1.4
)

// ScorerConfig holds the per-vertex factor tunables.
type ScorerConfig struct {
	SharpAngleDeg       float64 `json:"sharp_angle_deg" yaml:"sharp_angle_deg"`
	GentleMinDeg        float64 `json:"gentle_min_deg" yaml:"gentle_min_deg"`
	SharpGain           float64 `json:"sharp_gain" yaml:"sharp_gain"`
	CurveRelief         float64 `json:"curve_relief" yaml:"curve_relief"`
	ThinThreshold       float64 `json:"thin_threshold" yaml:"thin_threshold"`
	ThickThreshold      float64 `json:"thick_threshold" yaml:"thick_threshold"`
	ThinGain            float64 `json:"thin_gain" yaml:"thin_gain"`
	ThickRelief         float64 `json:"thick_relief" yaml:"thick_relief"`
	CriticalBandWidth   float64 `json:"critical_band_width" yaml:"critical_band_width"`
	EdgeBandFactor      float64 `json:"edge_band_factor" yaml:"edge_band_factor"`
	BehindEdgeFactor    float64 `json:"behind_edge_factor" yaml:"behind_edge_factor"`
	HangProximityRadius float64 `json:"hang_proximity_radius" yaml:"hang_proximity_radius"`
	HangRelief          float64 `json:"hang_relief" yaml:"hang_relief"`
	TransitionBandWidth float64 `json:"transition_band_width" yaml:"transition_band_width"`
	TransitionFactor    float64 `json:"transition_factor" yaml:"transition_factor"`
}

// DefaultScorerConfig returns the shipped factor calibration.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		SharpAngleDeg:       DefaultSharpAngleDeg,
		GentleMinDeg:        DefaultGentleMinDeg,
		SharpGain:           DefaultSharpGain,
		CurveRelief:         DefaultCurveRelief,
		ThinThreshold:       DefaultThinThreshold,
		ThickThreshold:      DefaultThickThreshold,
		ThinGain:            DefaultThinGain,
		ThickRelief:         DefaultThickRelief,
		CriticalBandWidth:   DefaultCriticalBandWidth,
		EdgeBandFactor:      DefaultEdgeBandFactor,
		BehindEdgeFactor:    DefaultBehindEdgeFactor,
		HangProximityRadius: DefaultHangProximityRadius,
		HangRelief:          DefaultHangRelief,
		TransitionBandWidth: DefaultTransitionBandWidth,
		TransitionFactor:    DefaultTransitionFactor,
	}
}

// Validate replaces non-positive tunables with defaults and keeps the band
// edges ordered.
func (c *ScorerConfig) Validate() {
	def := DefaultScorerConfig()
	if c.SharpAngleDeg <= 0 {
		c.SharpAngleDeg = def.SharpAngleDeg
	}
	if c.GentleMinDeg <= 0 || c.GentleMinDeg >= c.SharpAngleDeg {
		c.GentleMinDeg = def.GentleMinDeg
	}
	if c.SharpGain <= 0 {
		c.SharpGain = def.SharpGain
	}
	if c.CurveRelief <= 0 || c.CurveRelief > 1 {
		c.CurveRelief = def.CurveRelief
	}
	if c.ThinThreshold <= 0 {
		c.ThinThreshold = def.ThinThreshold
	}
	if c.ThickThreshold <= c.ThinThreshold {
		c.ThickThreshold = c.ThinThreshold * (def.ThickThreshold / def.ThinThreshold)
	}
	if c.ThinGain <= 0 {
		c.ThinGain = def.ThinGain
	}
	if c.ThickRelief <= 0 || c.ThickRelief > 1 {
		c.ThickRelief = def.ThickRelief
	}
	if c.CriticalBandWidth <= 0 {
		c.CriticalBandWidth = def.CriticalBandWidth
	}
	if c.EdgeBandFactor <= 0 {
		c.EdgeBandFactor = def.EdgeBandFactor
	}
	if c.BehindEdgeFactor <= 0 {
		c.BehindEdgeFactor = def.BehindEdgeFactor
	}
	if c.HangProximityRadius <= 0 {
		c.HangProximityRadius = def.HangProximityRadius
	}
	if c.HangRelief <= 0 || c.HangRelief > 1 {
		c.HangRelief = def.HangRelief
	}
	if c.TransitionBandWidth <= 0 {
		c.TransitionBandWidth = def.TransitionBandWidth
	}
	if c.TransitionFactor <= 0 {
		c.TransitionFactor = def.TransitionFactor
	}
}

// Score combines shape descriptors and load geometry into one FragilityRecord
// per occurrence.
//
// Description:
//
//	For every non-anchored occurrence, four independent multiplicative
//	factors (geometry, thickness, position, height) are combined by product
//	and scaled by the partition's global lever factor. Anchored occurrences
//	score exactly zero, always — an invariant the classifier relies on, not
//	a default.
//
// Inputs:
//   - soup: the indexed soup.
//   - analyses: one VertexAnalysis per occurrence (shape.Analyze output).
//   - part: the anchor partition and lever geometry (load.Config.Partition).
//   - anchor: the anchor configuration the partition was built with (edge
//     and surface coordinates drive the position and height factors).
//   - cfg: scorer calibration. Zero value uses defaults.
//
// Outputs:
//   - []FragilityRecord: one per occurrence, in occurrence order.
//
// Thread Safety: pure function; safe for concurrent use.
func Score(soup *geom.Soup, analyses []shape.VertexAnalysis, part *load.Partition, anchor load.Config, cfg ScorerConfig) []FragilityRecord {
	cfg.Validate()
	records := make([]FragilityRecord, len(soup.Occurrences))
	for i := range soup.Occurrences {
		occ := &soup.Occurrences[i]
		rec := &records[i]
		rec.OccurrenceIndex = i
		rec.Position = occ.Position

		if part.Anchored[i] {
			rec.InAnchorZone = true
			continue
		}

		va := &analyses[i]
		rec.Factors = FactorBreakdown{
			Geometry:  cfg.geometryFactor(va),
			Thickness: cfg.thicknessFactor(va),
			Position:  cfg.positionFactor(occ.Position, part.HangingPoint, anchor),
			Height:    cfg.heightFactor(occ.Position, anchor),
			Lever:     part.LeverFactor,
		}
		rec.Score = rec.Factors.Geometry *
			rec.Factors.Thickness *
			rec.Factors.Position *
			rec.Factors.Height *
			rec.Factors.Lever
	}
	return records
}

// geometryFactor: sharp corners concentrate stress proportionally to the
// angle in excess of the threshold; the gentle-curve band relieves; flats
// are neutral.
func (c *ScorerConfig) geometryFactor(va *shape.VertexAnalysis) float64 {
	angle := va.MaxPairAngleDeg
	switch {
	case angle > c.SharpAngleDeg:
		return 1 + c.SharpGain*(angle-c.SharpAngleDeg)/c.SharpAngleDeg
	case angle >= c.GentleMinDeg:
		return c.CurveRelief
	default:
		return 1.0
	}
}

// thicknessFactor: thin walls ramp up inversely with thickness, thick walls
// relieve, the mid-band interpolates linearly. Sharp vertices are clamped to
// the thin threshold regardless of the raycast: creases concentrate stress
// independent of raw wall thickness.
func (c *ScorerConfig) thicknessFactor(va *shape.VertexAnalysis) float64 {
	t := va.Thickness
	if va.Sharp && t > c.ThinThreshold {
		t = c.ThinThreshold
	}
	switch {
	case t <= c.ThinThreshold:
		return 1 + c.ThinGain*(c.ThinThreshold-t)/c.ThinThreshold
	case t >= c.ThickThreshold:
		return c.ThickRelief
	default:
		frac := (t - c.ThinThreshold) / (c.ThickThreshold - c.ThinThreshold)
		return 1 + frac*(c.ThickRelief-1)
	}
}

// positionFactor: the band just past the supporting edge is where the bending
// moment peaks; behind the edge is a flat moderate factor; near the hanging
// point the remaining lever arm is short contribution, so the factor relieves.
func (c *ScorerConfig) positionFactor(pos, hangingPoint r3.Vec, anchor load.Config) float64 {
	depth := pos.X - anchor.EdgeX
	var factor float64
	switch {
	case depth < 0:
		factor = c.BehindEdgeFactor
	case depth <= c.CriticalBandWidth:
		factor = c.EdgeBandFactor
	default:
		factor = 1.0
	}
	if r3.Norm(r3.Sub(pos, hangingPoint)) <= c.HangProximityRadius {
		factor *= c.HangRelief
	}
	return factor
}

// heightFactor: the narrow band at the supporting surface's underside is the
// embedded-to-free transition, a known stress concentrator.
func (c *ScorerConfig) heightFactor(pos r3.Vec, anchor load.Config) float64 {
	transitionY := anchor.SurfaceY - anchor.SurfaceThickness
	if math.Abs(pos.Y-transitionY) <= c.TransitionBandWidth {
		return c.TransitionFactor
	}
	return 1.0
}
