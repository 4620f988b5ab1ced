// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is the rigid-body placement of the solid: uniform scale, then
// Euler rotation (X, then Y, then Z, angles in radians), then translation.
// A zero-value Transform with Scale 0 is treated as identity scale 1.
type Transform struct {
	// Translation is added after scaling and rotation.
	Translation r3.Vec `json:"translation" yaml:"translation"`

	// Rotation holds Euler angles in radians, applied X then Y then Z.
	Rotation r3.Vec `json:"rotation" yaml:"rotation"`

	// Scale is the uniform scale factor. Zero means 1.0.
	Scale float64 `json:"scale" yaml:"scale"`
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

// Validate reports whether the transform's fields are finite and the scale
// is usable (positive after the zero-means-one default).
func (tr Transform) Validate() error {
	vals := []float64{
		tr.Translation.X, tr.Translation.Y, tr.Translation.Z,
		tr.Rotation.X, tr.Rotation.Y, tr.Rotation.Z,
		tr.Scale,
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrBadTransform
		}
	}
	if tr.Scale < 0 {
		return ErrBadTransform
	}
	return nil
}

// effectiveScale applies the zero-means-one default.
func (tr Transform) effectiveScale() float64 {
	if tr.Scale == 0 {
		return 1
	}
	return tr.Scale
}

// Apply maps a solid-space position into world space.
func (tr Transform) Apply(p r3.Vec) r3.Vec {
	v := r3.Scale(tr.effectiveScale(), p)
	v = rotateEulerXYZ(v, tr.Rotation)
	return r3.Add(v, tr.Translation)
}

// rotateEulerXYZ applies intrinsic rotations about X, then Y, then Z.
func rotateEulerXYZ(v, angles r3.Vec) r3.Vec {
	// Rotation about X.
	sx, cx := math.Sincos(angles.X)
	v = r3.Vec{
		X: v.X,
		Y: cx*v.Y - sx*v.Z,
		Z: sx*v.Y + cx*v.Z,
	}
	// Rotation about Y.
	sy, cy := math.Sincos(angles.Y)
	v = r3.Vec{
		X: cy*v.X + sy*v.Z,
		Y: v.Y,
		Z: -sy*v.X + cy*v.Z,
	}
	// Rotation about Z.
	sz, cz := math.Sincos(angles.Z)
	return r3.Vec{
		X: cz*v.X - sz*v.Y,
		Y: sz*v.X + cz*v.Y,
		Z: v.Z,
	}
}
