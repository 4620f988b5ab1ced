// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package shape

import (
	"context"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/AleutianAI/AleutianStress/services/stress/geom"
)

func mustBuild(t *testing.T, positions []float64) *geom.Soup {
	t.Helper()
	soup, err := geom.Build(positions, geom.Identity(), geom.BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return soup
}

// flatQuad is two coplanar triangles in the y=0 plane sharing a diagonal,
// both wound so their normals agree.
func flatQuad() []float64 {
	return []float64{
		0, 0, 0, 1, 0, 0, 1, 0, 1,
		0, 0, 0, 1, 0, 1, 0, 0, 1,
	}
}

func TestOptions_ValidateDefaults(t *testing.T) {
	o := &Options{}
	o.Validate()
	if o.SharpAngleDeg != DefaultSharpAngleDeg {
		t.Errorf("SharpAngleDeg = %v, want %v", o.SharpAngleDeg, DefaultSharpAngleDeg)
	}
	if o.ThicknessDefault != DefaultThickness {
		t.Errorf("ThicknessDefault = %v, want %v", o.ThicknessDefault, DefaultThickness)
	}
	if o.RayOffset != DefaultRayOffset {
		t.Errorf("RayOffset = %v, want %v", o.RayOffset, DefaultRayOffset)
	}
	if o.Workers < 1 || o.Workers > maxAnalyzeWorkers {
		t.Errorf("Workers = %d, want in [1, %d]", o.Workers, maxAnalyzeWorkers)
	}

	o = &Options{SharpAngleDeg: -3, ThicknessDefault: -1, RayOffset: 0, Workers: 99}
	o.Validate()
	if o.SharpAngleDeg != DefaultSharpAngleDeg || o.ThicknessDefault != DefaultThickness {
		t.Errorf("invalid values not defaulted: %+v", o)
	}
	if o.Workers != maxAnalyzeWorkers {
		t.Errorf("Workers = %d, want capped at %d", o.Workers, maxAnalyzeWorkers)
	}
}

func TestAnalyze_FlatPlate(t *testing.T) {
	soup := mustBuild(t, flatQuad())
	analyses, err := Analyze(context.Background(), soup, nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(analyses) != len(soup.Occurrences) {
		t.Fatalf("got %d analyses, want %d", len(analyses), len(soup.Occurrences))
	}
	for i, va := range analyses {
		if va.OccurrenceIndex != i {
			t.Errorf("analysis %d: OccurrenceIndex = %d", i, va.OccurrenceIndex)
		}
		if va.Sharp {
			t.Errorf("analysis %d: flat plate flagged sharp", i)
		}
		if va.NormalVariation > 1e-9 {
			t.Errorf("analysis %d: NormalVariation = %v, want ~0", i, va.NormalVariation)
		}
		if va.MaxPairAngleDeg > 1e-6 {
			t.Errorf("analysis %d: MaxPairAngleDeg = %v, want ~0", i, va.MaxPairAngleDeg)
		}
		if math.Abs(va.AvgNormal.Y+1) > 1e-9 {
			t.Errorf("analysis %d: AvgNormal = %v, want (0,-1,0)", i, va.AvgNormal)
		}
		if va.NormalDefaulted || va.MissingAdjacency {
			t.Errorf("analysis %d: unexpected fallback flags %+v", i, va)
		}
	}
	// Diagonal corners (0,0,0) and (1,0,1) are shared by both triangles.
	shared := 0
	for _, va := range analyses {
		if va.AdjacentCount == 2 {
			shared++
		}
	}
	if shared != 4 {
		t.Errorf("shared-corner analyses = %d, want 4", shared)
	}
}

func TestAnalyze_SharpCrease(t *testing.T) {
	// Two triangles meeting at 90 degrees along the edge (0,0,0)-(1,0,0).
	positions := []float64{
		0, 0, 0, 1, 0, 0, 0, 0, 1, // horizontal, normal (0,-1,0)
		0, 0, 0, 1, 0, 0, 0, 1, 0, // vertical, normal (0,0,1)
	}
	soup := mustBuild(t, positions)
	analyses, err := Analyze(context.Background(), soup, nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	for _, va := range analyses {
		occ := soup.Occurrences[va.OccurrenceIndex]
		onCrease := occ.Position.Y == 0 && occ.Position.Z == 0
		if onCrease {
			if !va.Sharp {
				t.Errorf("crease vertex at %v not flagged sharp", occ.Position)
			}
			if math.Abs(va.MaxPairAngleDeg-90) > 1e-6 {
				t.Errorf("crease vertex MaxPairAngleDeg = %v, want 90", va.MaxPairAngleDeg)
			}
			if va.NormalVariation < 0.3 {
				t.Errorf("crease vertex NormalVariation = %v, want substantial", va.NormalVariation)
			}
		} else {
			if va.Sharp {
				t.Errorf("lone vertex at %v flagged sharp", occ.Position)
			}
			if va.AdjacentCount != 1 {
				t.Errorf("lone vertex AdjacentCount = %d, want 1", va.AdjacentCount)
			}
		}
	}
}

func TestAnalyze_SharpThresholdConfigurable(t *testing.T) {
	// Same crease, but with the threshold raised past 90 degrees nothing
	// should be flagged.
	positions := []float64{
		0, 0, 0, 1, 0, 0, 0, 0, 1,
		0, 0, 0, 1, 0, 0, 0, 1, 0,
	}
	soup := mustBuild(t, positions)
	analyses, err := Analyze(context.Background(), soup, &Options{SharpAngleDeg: 120})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	for _, va := range analyses {
		if va.Sharp {
			t.Errorf("vertex flagged sharp with 120 degree threshold: %+v", va)
		}
	}
}

func TestAnalyze_ThicknessMeasured(t *testing.T) {
	// A single top triangle at y=1 with normal +Y, over a large bottom plate
	// at y=0. Probes from the top cast down and measure thickness 1.
	positions := []float64{
		0, 1, 0, 0, 1, 1, 1, 1, 0, // top, normal (0,1,0)
		-2, 0, -1, 3, 0, -1, 3, 0, 2, // bottom plate half A
		-2, 0, -1, 3, 0, 2, -2, 0, 2, // bottom plate half B
	}
	soup := mustBuild(t, positions)
	analyses, err := Analyze(context.Background(), soup, nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	for _, va := range analyses {
		occ := soup.Occurrences[va.OccurrenceIndex]
		if occ.Position.Y != 1 {
			continue
		}
		if va.ThicknessDefaulted {
			t.Errorf("top vertex at %v: thickness defaulted, want measured", occ.Position)
			continue
		}
		if math.Abs(va.Thickness-1) > 1e-6 {
			t.Errorf("top vertex at %v: Thickness = %v, want ~1", occ.Position, va.Thickness)
		}
	}
}

func TestAnalyze_ThicknessSentinelOnMiss(t *testing.T) {
	// An open plate has nothing behind it: every probe misses and falls back
	// to the configured sentinel.
	soup := mustBuild(t, flatQuad())
	opts := &Options{ThicknessDefault: 42}
	analyses, err := Analyze(context.Background(), soup, opts)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	for i, va := range analyses {
		if !va.ThicknessDefaulted {
			t.Errorf("analysis %d: expected defaulted thickness", i)
		}
		if va.Thickness != 42 {
			t.Errorf("analysis %d: Thickness = %v, want sentinel 42", i, va.Thickness)
		}
	}
}

func TestAnalyze_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	soup := mustBuild(t, flatQuad())
	if _, err := Analyze(ctx, soup, nil); err == nil {
		t.Fatal("Analyze() with cancelled context: expected error")
	}
}

func TestAnalyze_DeterministicAcrossWorkers(t *testing.T) {
	// Enough triangles to cross the parallelism threshold.
	rng := rand.New(rand.NewSource(7))
	var positions []float64
	for i := 0; i < 100; i++ {
		ox := rng.Float64() * 50
		oz := rng.Float64() * 50
		positions = append(positions,
			ox, 0, oz,
			ox+1, 0, oz,
			ox, 0, oz+1,
		)
	}
	soup := mustBuild(t, positions)
	if len(soup.Occurrences) < minParallelOccurrences {
		t.Fatalf("test soup too small: %d occurrences", len(soup.Occurrences))
	}

	seq, err := Analyze(context.Background(), soup, &Options{Workers: 1})
	if err != nil {
		t.Fatalf("Analyze(workers=1) error = %v", err)
	}
	par, err := Analyze(context.Background(), soup, &Options{Workers: 4})
	if err != nil {
		t.Fatalf("Analyze(workers=4) error = %v", err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Fatal("results differ between worker counts")
	}
}
