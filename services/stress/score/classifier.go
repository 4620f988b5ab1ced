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
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Classifier calibration defaults.
const (
	// DefaultReferenceWeight is the calibration reference load: the weight a
	// geometrically ideal part at zero lever arm is assumed to hold. A tuned
	// constant, documented as such, not derived from beam theory.
	DefaultReferenceWeight = 10.0

	// DefaultWeightGranularity is the rounding step for MaxSafeWeight.
	DefaultWeightGranularity = 0.5

	// DefaultMinSafeWeight is the floor for MaxSafeWeight; the classifier
	// never reports zero or negative safe load.
	DefaultMinSafeWeight = 0.5

	// DefaultGeometryFloor is the small positive floor of the geometry
	// factor; keeping it above zero avoids a hard discontinuity at total
	// criticality.
	DefaultGeometryFloor = 0.05

	// DefaultSafeWeightMin: a maximum safe weight at or above this is safe.
	DefaultSafeWeightMin = 5.0

	// DefaultWarningWeightMin: at or above this (but below the safe band)
	// is a warning.
	DefaultWarningWeightMin = 2.0

	// DefaultSafeLoadRatio is the fraction of MaxSafeWeight the trial weight
	// may use before the verdict is escalated one band.
	DefaultSafeLoadRatio = 0.8

	// DefaultCriticalScoreFloor is the absolute score a vertex must exceed
	// before it counts toward the critical or medium bands. The bands are
	// relative to the per-soup maximum, so without the floor a near-uniform
	// low-stress distribution would read as fully critical. Calibrated just
	// above the flat-plate baseline (edge band x thick relief at unit lever).
	DefaultCriticalScoreFloor = 1.5

	// criticalScoreFraction and mediumScoreFraction bound the critical and
	// medium score bands relative to the maximum score.
	criticalScoreFraction = 0.8
	mediumScoreFraction   = 0.6
)

// CurveKnot is one knot of a piecewise-linear calibration curve.
type CurveKnot struct {
	At     float64 `json:"at" yaml:"at"`
	Factor float64 `json:"factor" yaml:"factor"`
}

// defaultGeometryCurve maps the critical ratio to the geometry factor:
// near 1.0 while critical vertices are rare, dropping fast past the second
// band toward the positive floor.
func defaultGeometryCurve() []CurveKnot {
	return []CurveKnot{
		{At: 0.02, Factor: 1.0},
		{At: 0.05, Factor: 0.85},
		{At: 0.15, Factor: 0.5},
		{At: 0.30, Factor: 0.2},
		{At: 1.00, Factor: DefaultGeometryFloor},
	}
}

// defaultDistanceCurve maps lever arm to the distance factor. Non-increasing
// by construction; the flat tail is the saturation the monotonicity property
// allows.
func defaultDistanceCurve() []CurveKnot {
	return []CurveKnot{
		{At: 2, Factor: 1.0},
		{At: 5, Factor: 0.7},
		{At: 10, Factor: 0.4},
		{At: 20, Factor: 0.15},
	}
}

// ClassifierConfig holds the verdict calibration.
type ClassifierConfig struct {
	// ReferenceWeight is the calibration reference load.
	ReferenceWeight float64 `json:"reference_weight" yaml:"reference_weight"`

	// WeightGranularity is the rounding step for MaxSafeWeight.
	WeightGranularity float64 `json:"weight_granularity" yaml:"weight_granularity"`

	// MinSafeWeight floors MaxSafeWeight above zero.
	MinSafeWeight float64 `json:"min_safe_weight" yaml:"min_safe_weight"`

	// GeometryCurve maps critical ratio to the geometry factor (0, 1].
	GeometryCurve []CurveKnot `json:"geometry_curve" yaml:"geometry_curve"`

	// DistanceCurve maps lever arm to the distance factor (0, 1].
	DistanceCurve []CurveKnot `json:"distance_curve" yaml:"distance_curve"`

	// SafeWeightMin and WarningWeightMin are the verdict breakpoints on the
	// computed MaxSafeWeight.
	SafeWeightMin    float64 `json:"safe_weight_min" yaml:"safe_weight_min"`
	WarningWeightMin float64 `json:"warning_weight_min" yaml:"warning_weight_min"`

	// SafeLoadRatio escalates the verdict one band when the trial weight
	// exceeds this fraction of MaxSafeWeight.
	SafeLoadRatio float64 `json:"safe_load_ratio" yaml:"safe_load_ratio"`

	// CriticalScoreFloor is the absolute score below which a vertex never
	// counts toward the critical or medium bands.
	CriticalScoreFloor float64 `json:"critical_score_floor" yaml:"critical_score_floor"`
}

// DefaultClassifierConfig returns the shipped verdict calibration.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		ReferenceWeight:    DefaultReferenceWeight,
		WeightGranularity:  DefaultWeightGranularity,
		MinSafeWeight:      DefaultMinSafeWeight,
		GeometryCurve:      defaultGeometryCurve(),
		DistanceCurve:      defaultDistanceCurve(),
		SafeWeightMin:      DefaultSafeWeightMin,
		WarningWeightMin:   DefaultWarningWeightMin,
		SafeLoadRatio:      DefaultSafeLoadRatio,
		CriticalScoreFloor: DefaultCriticalScoreFloor,
	}
}

// Validate applies defaults to zero or unusable values.
func (c *ClassifierConfig) Validate() {
	if c.ReferenceWeight <= 0 {
		c.ReferenceWeight = DefaultReferenceWeight
	}
	if c.WeightGranularity <= 0 {
		c.WeightGranularity = DefaultWeightGranularity
	}
	if c.MinSafeWeight <= 0 {
		c.MinSafeWeight = DefaultMinSafeWeight
	}
	if len(c.GeometryCurve) == 0 || !curveUsable(c.GeometryCurve) {
		c.GeometryCurve = defaultGeometryCurve()
	}
	if len(c.DistanceCurve) == 0 || !curveUsable(c.DistanceCurve) {
		c.DistanceCurve = defaultDistanceCurve()
	}
	if c.SafeWeightMin <= 0 {
		c.SafeWeightMin = DefaultSafeWeightMin
	}
	if c.WarningWeightMin <= 0 || c.WarningWeightMin >= c.SafeWeightMin {
		c.WarningWeightMin = DefaultWarningWeightMin
		if c.WarningWeightMin >= c.SafeWeightMin {
			c.SafeWeightMin = DefaultSafeWeightMin
		}
	}
	if c.SafeLoadRatio <= 0 || c.SafeLoadRatio > 1 {
		c.SafeLoadRatio = DefaultSafeLoadRatio
	}
	if c.CriticalScoreFloor <= 0 {
		c.CriticalScoreFloor = DefaultCriticalScoreFloor
	}
}

// curveUsable checks a calibration curve is strictly increasing in At,
// non-increasing in Factor, and strictly positive.
func curveUsable(curve []CurveKnot) bool {
	for i, b := range curve {
		if b.Factor <= 0 || b.Factor > 1 {
			return false
		}
		if i > 0 && (b.At <= curve[i-1].At || b.Factor > curve[i-1].Factor) {
			return false
		}
	}
	return true
}

// Classify aggregates the score distribution into a failure verdict.
//
// Description:
//
//	Computes the maximum score and the critical (>80% of max) and medium
//	(60-80%) ratios over the free vertices only, maps them through the
//	calibrated geometry and distance curves, and derives the maximum safe
//	weight as reference x geometry x distance, rounded to the configured
//	granularity and floored above zero.
//
//	The bands are relative to the per-soup maximum, gated by the absolute
//	CriticalScoreFloor: a vertex at or below the floor never counts, so a
//	near-uniform low-stress distribution reads as healthy rather than as
//	100% critical.
//
//	A partition with no free vertices produces the documented degenerate
//	verdict (danger, "no analyzable structure") instead of dividing by zero.
//
// Inputs:
//   - records: scorer output, one per occurrence.
//   - leverArm: horizontal hang-to-edge distance.
//   - trialWeight: the caller's trial load; used to escalate the verdict
//     when it exceeds the safe fraction of the estimated capacity.
//   - cfg: classifier calibration. Zero value uses defaults.
//
// Outputs:
//   - *Verdict: never nil; MaxSafeWeight always > 0.
//
// Thread Safety: pure function; safe for concurrent use.
func Classify(records []FragilityRecord, leverArm, trialWeight float64, cfg ClassifierConfig) *Verdict {
	cfg.Validate()

	var (
		freeCount int
		maxScore  float64
		critPos   r3.Vec
	)
	for i := range records {
		rec := &records[i]
		if rec.InAnchorZone {
			continue
		}
		freeCount++
		if rec.Score > maxScore {
			maxScore = rec.Score
			critPos = rec.Position
		}
	}

	if freeCount == 0 {
		return &Verdict{
			Safety:        SafetyDanger,
			MaxSafeWeight: cfg.MinSafeWeight,
			LeverArm:      leverArm,
			Advisory:      "no analyzable structure outside the anchor zone",
			Degenerate:    true,
		}
	}

	var critical, medium int
	if maxScore > 0 {
		for i := range records {
			rec := &records[i]
			if rec.InAnchorZone {
				continue
			}
			if rec.Score <= cfg.CriticalScoreFloor {
				continue
			}
			switch {
			case rec.Score > criticalScoreFraction*maxScore:
				critical++
			case rec.Score > mediumScoreFraction*maxScore:
				medium++
			}
		}
	}
	criticalRatio := float64(critical) / float64(freeCount)
	mediumRatio := float64(medium) / float64(freeCount)

	geomFactor := evalCurve(cfg.GeometryCurve, criticalRatio)
	distFactor := evalCurve(cfg.DistanceCurve, leverArm)

	maxSafe := cfg.ReferenceWeight * geomFactor * distFactor
	maxSafe = math.Round(maxSafe/cfg.WeightGranularity) * cfg.WeightGranularity
	if maxSafe < cfg.MinSafeWeight {
		maxSafe = cfg.MinSafeWeight
	}

	safety := cfg.band(maxSafe)
	if trialWeight > maxSafe {
		safety = SafetyDanger
	} else if trialWeight > cfg.SafeLoadRatio*maxSafe && safety == SafetySafe {
		safety = SafetyWarning
	}

	return &Verdict{
		Safety:        safety,
		MaxSafeWeight: maxSafe,
		CriticalPoint: critPos,
		LeverArm:      leverArm,
		Advisory:      advisory(safety, maxSafe, trialWeight, criticalRatio),
		CriticalRatio: criticalRatio,
		MediumRatio:   mediumRatio,
	}
}

// band partitions the maximum safe weight into the configured verdict bands.
func (c *ClassifierConfig) band(maxSafe float64) Safety {
	switch {
	case maxSafe >= c.SafeWeightMin:
		return SafetySafe
	case maxSafe >= c.WarningWeightMin:
		return SafetyWarning
	default:
		return SafetyDanger
	}
}

// evalCurve evaluates a piecewise-linear calibration curve: flat before the
// first knot, linear between knots, flat after the last.
func evalCurve(curve []CurveKnot, x float64) float64 {
	if x <= curve[0].At {
		return curve[0].Factor
	}
	last := curve[len(curve)-1]
	if x >= last.At {
		return last.Factor
	}
	for i := 1; i < len(curve); i++ {
		if x <= curve[i].At {
			prev := curve[i-1]
			t := (x - prev.At) / (curve[i].At - prev.At)
			return prev.Factor + t*(curve[i].Factor-prev.Factor)
		}
	}
	return last.Factor
}

// advisory renders the human-readable assessment.
func advisory(s Safety, maxSafe, trial, criticalRatio float64) string {
	switch s {
	case SafetySafe:
		return fmt.Sprintf("structure holds up to %.1f units with margin", maxSafe)
	case SafetyWarning:
		return fmt.Sprintf("load %.1f approaches the estimated capacity of %.1f units; reduce weight or shorten the lever arm", trial, maxSafe)
	default:
		return fmt.Sprintf("load %.1f likely exceeds safe capacity %.1f units (%.0f%% of vertices critical); expect failure near the supporting edge", trial, maxSafe, criticalRatio*100)
	}
}
