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

// rayEps guards the Möller–Trumbore determinant and the minimum accepted hit
// distance. Hits closer than rayEps are rejected so a ray started on a
// surface does not report its own triangle.
const rayEps = 1e-9

// Raycast finds the nearest triangle intersection along a ray.
//
// Description:
//
//	Double-sided Möller–Trumbore intersection against the soup's triangles,
//	walked through the uniform grid in near-to-far cell order so the scan
//	stops at the first cell whose entry distance exceeds the best hit.
//	Degenerate triangles never produce hits.
//
// Inputs:
//   - origin: ray origin in world space.
//   - dir: ray direction. Need not be normalized; Distance is reported in
//     units of |dir|.
//   - maxDist: upper bound on accepted hit distance. <= 0 means unbounded.
//
// Outputs:
//   - RayHit: nearest intersection when found.
//   - bool: false when nothing was hit within maxDist.
//
// Thread Safety: Safe for concurrent use; the soup is immutable.
func (s *Soup) Raycast(origin, dir r3.Vec, maxDist float64) (RayHit, bool) {
	if r3.Norm2(dir) < rayEps {
		return RayHit{}, false
	}
	if maxDist <= 0 {
		maxDist = math.Inf(1)
	}
	if s.grid != nil {
		return s.grid.raycast(s, origin, dir, maxDist)
	}
	return s.raycastBrute(origin, dir, maxDist)
}

// raycastBrute is the linear-scan fallback used when the grid could not be
// built (single-cell geometry). Also the reference in grid equivalence tests.
func (s *Soup) raycastBrute(origin, dir r3.Vec, maxDist float64) (RayHit, bool) {
	best := RayHit{Distance: maxDist}
	found := false
	for i := range s.Triangles {
		t := &s.Triangles[i]
		if t.Degenerate {
			continue
		}
		if dist, ok := intersectTriangle(origin, dir, t); ok && dist < best.Distance {
			best = RayHit{Distance: dist, Point: r3.Add(origin, r3.Scale(dist, dir)), Triangle: t}
			found = true
		}
	}
	return best, found
}

// intersectTriangle is double-sided Möller–Trumbore. It returns the
// parametric distance along dir, which is only a metric distance when dir is
// unit length. Back faces count: the soup is treated as double-sided so
// thickness probes work regardless of winding.
func intersectTriangle(origin, dir r3.Vec, t *Triangle) (float64, bool) {
	e1 := r3.Sub(t.B, t.A)
	e2 := r3.Sub(t.C, t.A)

	p := r3.Cross(dir, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) < rayEps {
		// Ray parallel to the triangle plane.
		return 0, false
	}
	inv := 1.0 / det

	tvec := r3.Sub(origin, t.A)
	u := r3.Dot(tvec, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := r3.Cross(tvec, e1)
	v := r3.Dot(dir, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	dist := r3.Dot(e2, q) * inv
	if dist <= rayEps {
		return 0, false
	}
	return dist, true
}
