// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for numeric and
// geometric payloads.
//
// This package contains validators for user-provided inputs that reach the
// analysis pipeline: coordinate slices, load weights, and file paths that
// come from CLI flags. Validating here keeps NaN and Inf values out of the
// math downstream, where they would silently poison every derived quantity.
package validation

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidateFinite validates that a named value is finite.
//
// Example:
//
//	if err := validation.ValidateFinite("trial_weight", w); err != nil {
//	    return nil, err
//	}
func ValidateFinite(name string, v float64) error {
	if !Finite(v) {
		return fmt.Errorf("%s must be finite, got %v", name, v)
	}
	return nil
}

// ValidatePositive validates that a named value is finite and > 0.
func ValidatePositive(name string, v float64) error {
	if err := ValidateFinite(name, v); err != nil {
		return err
	}
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %v", name, v)
	}
	return nil
}

// ValidateFiniteSlice validates every element of a coordinate slice.
// Returns an error naming the first offending index.
func ValidateFiniteSlice(name string, vs []float64) error {
	for i, v := range vs {
		if !Finite(v) {
			return fmt.Errorf("%s[%d] must be finite, got %v", name, i, v)
		}
	}
	return nil
}

// ValidateSoupLength validates that a flat coordinate slice holds whole
// triangles (9 values per triangle) and is non-empty.
func ValidateSoupLength(vs []float64) error {
	if len(vs) == 0 {
		return fmt.Errorf("triangle soup cannot be empty")
	}
	if len(vs)%9 != 0 {
		return fmt.Errorf("triangle soup length %d is not a multiple of 9", len(vs))
	}
	return nil
}

// SanitizePath normalizes a user-provided file path from a CLI flag.
// Returns the cleaned absolute path, or an error for empty input.
//
// Example:
//
//	path, err := validation.SanitizePath(flagValue)
//	if err != nil {
//	    return err
//	}
func SanitizePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	abs, err := filepath.Abs(filepath.Clean(trimmed))
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return abs, nil
}
