// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the analysis tunables as one explicit, immutable value
// passed into each run. No tunable lives as a magic literal in the algorithm
// bodies and no process-wide mutable state is required: callers load a Config
// once (file or defaults) and hand copies to the engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianStress/services/stress/load"
	"github.com/AleutianAI/AleutianStress/services/stress/score"
)

// Config aggregates every tunable of the analysis pipeline.
type Config struct {
	// SpatialResolution is the quantization spacing that decides when two
	// soup corners are the same geometric point (the adjacency tolerance).
	// Default: 0.01 working units.
	SpatialResolution float64 `json:"spatial_resolution" yaml:"spatial_resolution"`

	// SharpAngleDeg is the sharp-edge threshold shared by the shape analyzer
	// and the geometry factor. Default: 45.
	SharpAngleDeg float64 `json:"sharp_angle_deg" yaml:"sharp_angle_deg"`

	// ThicknessDefault is the sentinel used when the wall probe cannot
	// measure. Default: 100.
	ThicknessDefault float64 `json:"thickness_default" yaml:"thickness_default"`

	// RayOffset is the thickness probe origin offset. Default: 1e-3.
	RayOffset float64 `json:"ray_offset" yaml:"ray_offset"`

	// Workers bounds thickness probe parallelism. 0 = min(NumCPU, 8).
	Workers int `json:"workers" yaml:"workers"`

	// Anchor describes the anchor zone and lever ramp.
	Anchor load.Config `json:"anchor" yaml:"anchor"`

	// Scorer holds the per-vertex factor calibration.
	Scorer score.ScorerConfig `json:"scorer" yaml:"scorer"`

	// Classifier holds the verdict calibration.
	Classifier score.ClassifierConfig `json:"classifier" yaml:"classifier"`

	// CacheEnabled turns on the opt-in verdict cache keyed by a content
	// hash of the analysis inputs. Default: off (each run is stateless).
	CacheEnabled bool `json:"cache_enabled" yaml:"cache_enabled"`

	// CacheMaxEntries bounds the verdict cache. Default: 256.
	CacheMaxEntries int `json:"cache_max_entries" yaml:"cache_max_entries"`
}

// Default returns the shipped tunables.
func Default() Config {
	return Config{
		SpatialResolution: 0.01,
		SharpAngleDeg:     45,
		ThicknessDefault:  100,
		RayOffset:         1e-3,
		Anchor:            load.DefaultConfig(),
		Scorer:            score.DefaultScorerConfig(),
		Classifier:        score.DefaultClassifierConfig(),
		CacheMaxEntries:   256,
	}
}

// Validate repairs unusable values with defaults and keeps the shared
// sharp-angle threshold consistent between the analyzer and the scorer.
func (c *Config) Validate() {
	def := Default()
	if c.SpatialResolution <= 0 {
		c.SpatialResolution = def.SpatialResolution
	}
	if c.SharpAngleDeg <= 0 {
		c.SharpAngleDeg = def.SharpAngleDeg
	}
	if c.ThicknessDefault <= 0 {
		c.ThicknessDefault = def.ThicknessDefault
	}
	if c.RayOffset <= 0 {
		c.RayOffset = def.RayOffset
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = def.CacheMaxEntries
	}
	c.Anchor.Validate()
	c.Scorer.SharpAngleDeg = c.SharpAngleDeg
	c.Scorer.Validate()
	c.Classifier.Validate()
}

// Load reads a YAML config file and validates it.
//
// Inputs:
//   - path: config file path.
//
// Outputs:
//   - Config: the loaded tunables with defaults applied.
//   - error: non-nil when the file cannot be read or parsed.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Validate()
	return cfg, nil
}

// WriteDefault writes the default tunables to path, creating parent
// directories. Used by `stressctl config --write` to scaffold a file the
// operator can edit.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
