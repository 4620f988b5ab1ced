// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.SpatialResolution != 0.01 {
		t.Errorf("SpatialResolution = %v, want 0.01", cfg.SpatialResolution)
	}
	if cfg.SharpAngleDeg != 45 {
		t.Errorf("SharpAngleDeg = %v, want 45", cfg.SharpAngleDeg)
	}
	if cfg.CacheEnabled {
		t.Error("CacheEnabled defaults on, want off")
	}
	if cfg.CacheMaxEntries != 256 {
		t.Errorf("CacheMaxEntries = %v, want 256", cfg.CacheMaxEntries)
	}
	if len(cfg.Classifier.GeometryCurve) == 0 {
		t.Error("Classifier.GeometryCurve empty")
	}
}

func TestValidate_RepairsZeroValues(t *testing.T) {
	cfg := Config{}
	cfg.Validate()
	def := Default()
	if cfg.SpatialResolution != def.SpatialResolution {
		t.Errorf("SpatialResolution = %v", cfg.SpatialResolution)
	}
	if cfg.SharpAngleDeg != def.SharpAngleDeg {
		t.Errorf("SharpAngleDeg = %v", cfg.SharpAngleDeg)
	}
	if cfg.ThicknessDefault != def.ThicknessDefault {
		t.Errorf("ThicknessDefault = %v", cfg.ThicknessDefault)
	}
	if cfg.RayOffset != def.RayOffset {
		t.Errorf("RayOffset = %v", cfg.RayOffset)
	}
	if cfg.CacheMaxEntries != def.CacheMaxEntries {
		t.Errorf("CacheMaxEntries = %v", cfg.CacheMaxEntries)
	}
	if cfg.Anchor.LeverBreakpoints == ([4]float64{}) {
		t.Error("Anchor lever ramp not defaulted")
	}
}

func TestValidate_SharpAngleSharedWithScorer(t *testing.T) {
	cfg := Default()
	cfg.SharpAngleDeg = 60
	cfg.Scorer.SharpAngleDeg = 10 // must be overridden by the shared value
	cfg.Validate()
	if cfg.Scorer.SharpAngleDeg != 60 {
		t.Errorf("Scorer.SharpAngleDeg = %v, want shared 60", cfg.Scorer.SharpAngleDeg)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stress.yaml")
	body := []byte(`
spatial_resolution: 0.05
sharp_angle_deg: 30
cache_enabled: true
anchor:
  surface_thickness: 2.5
classifier:
  reference_weight: 20
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SpatialResolution != 0.05 {
		t.Errorf("SpatialResolution = %v, want 0.05", cfg.SpatialResolution)
	}
	if cfg.SharpAngleDeg != 30 {
		t.Errorf("SharpAngleDeg = %v, want 30", cfg.SharpAngleDeg)
	}
	if !cfg.CacheEnabled {
		t.Error("CacheEnabled not loaded")
	}
	if cfg.Anchor.SurfaceThickness != 2.5 {
		t.Errorf("Anchor.SurfaceThickness = %v, want 2.5", cfg.Anchor.SurfaceThickness)
	}
	if cfg.Classifier.ReferenceWeight != 20 {
		t.Errorf("Classifier.ReferenceWeight = %v, want 20", cfg.Classifier.ReferenceWeight)
	}
	// Fields absent from the file keep their defaults.
	if cfg.ThicknessDefault != 100 {
		t.Errorf("ThicknessDefault = %v, want default 100", cfg.ThicknessDefault)
	}
	if cfg.Scorer.SharpAngleDeg != 30 {
		t.Errorf("Scorer.SharpAngleDeg = %v, want shared 30", cfg.Scorer.SharpAngleDeg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() on missing file: expected error")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("spatial_resolution: [not a number"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() on malformed YAML: expected error")
	}
}

func TestWriteDefault_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stress.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Default()
	if cfg.SpatialResolution != def.SpatialResolution ||
		cfg.SharpAngleDeg != def.SharpAngleDeg ||
		cfg.CacheMaxEntries != def.CacheMaxEntries {
		t.Errorf("roundtripped config differs from defaults: %+v", cfg)
	}
	if len(cfg.Classifier.DistanceCurve) != len(def.Classifier.DistanceCurve) {
		t.Errorf("DistanceCurve lost in roundtrip")
	}
}
