// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package score combines local shape descriptors with load geometry into
// per-vertex fragility scores and aggregates them into a failure verdict.
//
// The scores are a calibrated heuristic, not a stress field: the numeric
// constants in this package were tuned against example shapes for behavioral
// continuity and are exposed as configuration, never asserted as physics.
package score

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Safety is the overall verdict classification.
type Safety string

const (
	// SafetySafe means the estimated safe load comfortably covers the range
	// of expected use.
	SafetySafe Safety = "safe"

	// SafetyWarning means the part holds but with little margin.
	SafetyWarning Safety = "warning"

	// SafetyDanger means failure is likely at or near the trial load.
	SafetyDanger Safety = "danger"
)

// FactorBreakdown records the multiplicative components of one vertex score,
// kept as a fixed-shape struct so visualizations and debugging can inspect
// which input drove the score.
type FactorBreakdown struct {
	// Geometry reflects sharp edges (up), gentle curvature (down), flats
	// (neutral).
	Geometry float64 `json:"geometry"`

	// Thickness reflects the local wall thickness band.
	Thickness float64 `json:"thickness"`

	// Position reflects proximity to the supporting edge and hanging point.
	Position float64 `json:"position"`

	// Height reflects the embedded-to-free transition band.
	Height float64 `json:"height"`

	// Lever is the global lever-arm factor shared by all free vertices.
	Lever float64 `json:"lever"`
}

// FragilityRecord is the scored result for one vertex occurrence. Produced
// and consumed within a single analysis call; callers may retain it for
// visualization (vertex-color mapping).
type FragilityRecord struct {
	// OccurrenceIndex is the index into Soup.Occurrences.
	OccurrenceIndex int `json:"occurrence_index"`

	// Position is the occurrence's world position.
	Position r3.Vec `json:"position"`

	// Score is the combined fragility score. Always >= 0; exactly 0 for
	// anchored vertices.
	Score float64 `json:"score"`

	// InAnchorZone marks anchored vertices, which are excluded from every
	// ratio computation in the classifier.
	InAnchorZone bool `json:"in_anchor_zone"`

	// Factors is the multiplicative breakdown. Zeroed for anchored vertices.
	Factors FactorBreakdown `json:"factors"`
}

// Verdict is the aggregated failure classification: the single externally
// consumed output besides the record list.
type Verdict struct {
	// Safety is the overall classification.
	Safety Safety `json:"safety"`

	// MaxSafeWeight is the estimated maximum safe load, rounded to the
	// configured granularity. Always > 0.
	MaxSafeWeight float64 `json:"max_safe_weight"`

	// CriticalPoint is the world position of the highest-scoring vertex.
	CriticalPoint r3.Vec `json:"critical_point"`

	// LeverArm is the horizontal hang-to-edge distance the verdict used.
	LeverArm float64 `json:"lever_arm"`

	// Advisory is the human-readable assessment.
	Advisory string `json:"advisory"`

	// CriticalRatio is the fraction of free vertices scoring above 80% of
	// the maximum score.
	CriticalRatio float64 `json:"critical_ratio"`

	// MediumRatio is the fraction of free vertices scoring between 60% and
	// 80% of the maximum score.
	MediumRatio float64 `json:"medium_ratio"`

	// Degenerate is set when no free vertices existed to analyze; the
	// verdict is then the documented conservative fallback, not a crash.
	Degenerate bool `json:"degenerate,omitempty"`
}
