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
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// freeRecords builds one free record per score, positioned along X so the
// critical point is identifiable.
func freeRecords(scores ...float64) []FragilityRecord {
	records := make([]FragilityRecord, len(scores))
	for i, s := range scores {
		records[i] = FragilityRecord{
			OccurrenceIndex: i,
			Position:        r3.Vec{X: float64(i)},
			Score:           s,
		}
	}
	return records
}

// spread returns n records: one hot spot and n-1 low scores, giving a
// critical ratio of 1/n.
func spread(n int) []FragilityRecord {
	scores := make([]float64, n)
	scores[0] = 100
	for i := 1; i < n; i++ {
		scores[i] = 1
	}
	return freeRecords(scores...)
}

func TestEvalCurve(t *testing.T) {
	curve := []CurveKnot{
		{At: 2, Factor: 1.0},
		{At: 4, Factor: 0.5},
		{At: 8, Factor: 0.1},
	}
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{"flat before first knot", 0, 1.0},
		{"at first knot", 2, 1.0},
		{"midway first segment", 3, 0.75},
		{"at interior knot", 4, 0.5},
		{"midway second segment", 6, 0.3},
		{"at last knot", 8, 0.1},
		{"flat past last knot", 100, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalCurve(curve, tt.x)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("evalCurve(%v) = %v, want %v", tt.x, got, tt.want)
			}
		})
	}
}

func TestClassifierConfig_ValidateRepairsCurves(t *testing.T) {
	tests := []struct {
		name  string
		curve []CurveKnot
	}{
		{"empty", nil},
		{"non-increasing At", []CurveKnot{{At: 2, Factor: 1}, {At: 2, Factor: 0.5}}},
		{"increasing Factor", []CurveKnot{{At: 2, Factor: 0.5}, {At: 4, Factor: 0.9}}},
		{"zero Factor", []CurveKnot{{At: 2, Factor: 1}, {At: 4, Factor: 0}}},
		{"Factor above one", []CurveKnot{{At: 2, Factor: 1.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClassifierConfig()
			cfg.GeometryCurve = tt.curve
			cfg.Validate()
			if !curveUsable(cfg.GeometryCurve) {
				t.Fatalf("Validate left unusable curve %v", cfg.GeometryCurve)
			}
		})
	}
}

func TestClassifierConfig_ValidateRepairsFloor(t *testing.T) {
	var cfg ClassifierConfig
	cfg.Validate()
	if cfg.CriticalScoreFloor != DefaultCriticalScoreFloor {
		t.Errorf("CriticalScoreFloor = %v, want %v", cfg.CriticalScoreFloor, DefaultCriticalScoreFloor)
	}
}

func TestClassify_UniformLowScoresNotCritical(t *testing.T) {
	// Every vertex of a near-uniform distribution sits at 100% of the
	// per-soup maximum. The absolute floor keeps such low-stress soups out
	// of the critical band instead of reading them as maximally critical.
	scores := make([]float64, 50)
	for i := range scores {
		scores[i] = 0.9
	}
	v := Classify(freeRecords(scores...), 0, 1, ClassifierConfig{})
	if v.CriticalRatio != 0 || v.MediumRatio != 0 {
		t.Fatalf("ratios = %v/%v, want 0/0", v.CriticalRatio, v.MediumRatio)
	}
	if v.MaxSafeWeight != DefaultReferenceWeight {
		t.Errorf("MaxSafeWeight = %v, want %v", v.MaxSafeWeight, DefaultReferenceWeight)
	}
	if v.Safety != SafetySafe {
		t.Errorf("Safety = %v, want safe", v.Safety)
	}
}

func TestClassify_ScoreFloorConfigurable(t *testing.T) {
	cfg := DefaultClassifierConfig()
	cfg.CriticalScoreFloor = 0.5
	v := Classify(freeRecords(0.9, 0.9, 0.9, 0.9), 0, 1, cfg)
	if v.CriticalRatio != 1 {
		t.Errorf("CriticalRatio = %v, want 1 with the floor lowered", v.CriticalRatio)
	}
}

func TestClassify_DegenerateAllAnchored(t *testing.T) {
	records := []FragilityRecord{
		{InAnchorZone: true},
		{InAnchorZone: true},
	}
	v := Classify(records, 3, 1, ClassifierConfig{})
	if !v.Degenerate {
		t.Fatal("Degenerate not set")
	}
	if v.Safety != SafetyDanger {
		t.Errorf("Safety = %v, want danger", v.Safety)
	}
	if v.MaxSafeWeight != DefaultMinSafeWeight {
		t.Errorf("MaxSafeWeight = %v, want floor %v", v.MaxSafeWeight, DefaultMinSafeWeight)
	}
	if v.LeverArm != 3 {
		t.Errorf("LeverArm = %v, want 3", v.LeverArm)
	}
}

func TestClassify_EmptyRecords(t *testing.T) {
	v := Classify(nil, 0, 1, ClassifierConfig{})
	if !v.Degenerate || v.Safety != SafetyDanger {
		t.Fatalf("verdict = %+v, want degenerate danger", v)
	}
}

func TestClassify_HealthyShortLeverIsSafe(t *testing.T) {
	// One hot vertex in a hundred keeps the critical ratio inside the flat
	// region of the geometry curve; zero lever arm keeps the distance factor
	// at 1. Capacity is then the full reference weight.
	v := Classify(spread(100), 0, 1, ClassifierConfig{})
	if v.Safety != SafetySafe {
		t.Errorf("Safety = %v, want safe", v.Safety)
	}
	if v.MaxSafeWeight != DefaultReferenceWeight {
		t.Errorf("MaxSafeWeight = %v, want %v", v.MaxSafeWeight, DefaultReferenceWeight)
	}
	if v.CriticalRatio != 0.01 {
		t.Errorf("CriticalRatio = %v, want 0.01", v.CriticalRatio)
	}
	if v.CriticalPoint.X != 0 {
		t.Errorf("CriticalPoint = %v, want the hot vertex at x=0", v.CriticalPoint)
	}
}

func TestClassify_TrialWeightEscalates(t *testing.T) {
	tests := []struct {
		name  string
		trial float64
		want  Safety
	}{
		{"light load stays safe", 1, SafetySafe},
		{"at the safe ratio boundary", 8, SafetySafe},
		{"past the safe ratio warns", 8.5, SafetyWarning},
		{"at capacity warns", 10, SafetyWarning},
		{"over capacity is danger", 10.5, SafetyDanger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Classify(spread(100), 0, tt.trial, ClassifierConfig{})
			if v.MaxSafeWeight != 10 {
				t.Fatalf("MaxSafeWeight = %v, want 10", v.MaxSafeWeight)
			}
			if v.Safety != tt.want {
				t.Errorf("Safety = %v, want %v", v.Safety, tt.want)
			}
		})
	}
}

func TestClassify_CriticalRatioDegradesCapacity(t *testing.T) {
	// Half the free vertices at the hot score push the critical ratio deep
	// into the geometry curve's falling segment.
	scores := make([]float64, 100)
	for i := range scores {
		if i < 50 {
			scores[i] = 100
		} else {
			scores[i] = 1
		}
	}
	v := Classify(freeRecords(scores...), 0, 1, ClassifierConfig{})
	if v.CriticalRatio != 0.5 {
		t.Fatalf("CriticalRatio = %v, want 0.5", v.CriticalRatio)
	}
	if v.MaxSafeWeight >= DefaultSafeWeightMin {
		t.Errorf("MaxSafeWeight = %v, want degraded below the safe band", v.MaxSafeWeight)
	}
	if v.Safety != SafetyDanger {
		t.Errorf("Safety = %v, want danger", v.Safety)
	}
}

func TestClassify_MediumRatio(t *testing.T) {
	// Scores at 70% of the max land between the 60% and 80% fractions.
	v := Classify(freeRecords(100, 70, 70, 1, 1, 1, 1, 1, 1, 1), 0, 1, ClassifierConfig{})
	if v.CriticalRatio != 0.1 {
		t.Errorf("CriticalRatio = %v, want 0.1", v.CriticalRatio)
	}
	if v.MediumRatio != 0.2 {
		t.Errorf("MediumRatio = %v, want 0.2", v.MediumRatio)
	}
}

func TestClassify_LeverArmDegradesCapacity(t *testing.T) {
	prev := math.Inf(1)
	for _, arm := range []float64{0, 2, 5, 10, 20, 40} {
		v := Classify(spread(100), arm, 1, ClassifierConfig{})
		if v.MaxSafeWeight > prev {
			t.Fatalf("MaxSafeWeight grew from %v to %v at arm %v", prev, v.MaxSafeWeight, arm)
		}
		prev = v.MaxSafeWeight
	}

	// Spot-check the curve: arm 5 maps to factor 0.7, arm 10 to 0.4.
	if v := Classify(spread(100), 5, 1, ClassifierConfig{}); v.MaxSafeWeight != 7 {
		t.Errorf("MaxSafeWeight at arm 5 = %v, want 7", v.MaxSafeWeight)
	}
	if v := Classify(spread(100), 10, 1, ClassifierConfig{}); v.MaxSafeWeight != 4 {
		t.Errorf("MaxSafeWeight at arm 10 = %v, want 4", v.MaxSafeWeight)
	}
}

func TestClassify_MaxSafeWeightGranularityAndFloor(t *testing.T) {
	v := Classify(spread(100), 100, 1, ClassifierConfig{})
	// Distance curve tail is 0.15: 10 * 0.15 = 1.5, already on the grid.
	if v.MaxSafeWeight != 1.5 {
		t.Errorf("MaxSafeWeight = %v, want 1.5", v.MaxSafeWeight)
	}
	if math.Mod(v.MaxSafeWeight, DefaultWeightGranularity) != 0 {
		t.Errorf("MaxSafeWeight %v not on the %v grid", v.MaxSafeWeight, DefaultWeightGranularity)
	}
	if v.MaxSafeWeight < DefaultMinSafeWeight {
		t.Errorf("MaxSafeWeight %v below floor", v.MaxSafeWeight)
	}
}

func TestClassify_AdvisoryMentionsCapacity(t *testing.T) {
	v := Classify(spread(100), 0, 11, ClassifierConfig{})
	if v.Safety != SafetyDanger {
		t.Fatalf("Safety = %v, want danger", v.Safety)
	}
	if !strings.Contains(v.Advisory, "10.0") {
		t.Errorf("Advisory %q does not mention the capacity", v.Advisory)
	}
}

func TestClassify_ZeroScoresStillClassify(t *testing.T) {
	v := Classify(freeRecords(0, 0, 0), 0, 1, ClassifierConfig{})
	if v.Degenerate {
		t.Fatal("zero scores must not be degenerate")
	}
	if v.CriticalRatio != 0 || v.MediumRatio != 0 {
		t.Errorf("ratios = %v/%v, want 0/0", v.CriticalRatio, v.MediumRatio)
	}
	if v.Safety != SafetySafe {
		t.Errorf("Safety = %v, want safe", v.Safety)
	}
}
