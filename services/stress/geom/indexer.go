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
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BuildOptions configures soup construction.
type BuildOptions struct {
	// Resolution is the spatial quantization spacing.
	// Must be > 0. Default: DefaultSpatialResolution (0.01).
	Resolution float64
}

// Validate checks options and applies defaults for zero values.
func (o *BuildOptions) Validate() error {
	if o.Resolution == 0 {
		o.Resolution = DefaultSpatialResolution
	}
	if o.Resolution < 0 {
		return ErrBadResolution
	}
	return nil
}

// Build indexes a triangle soup.
//
// Description:
//
//	Validates the raw position list, applies the rigid transform to every
//	corner, computes per-triangle normals and centroids, flags zero-area
//	triangles as degenerate, and groups the corners of non-degenerate
//	triangles by SpatialKey. Grouping is keyed purely by quantized position,
//	so permuting the input triangle order produces identical adjacency
//	groups (the invariant the whole pipeline rests on).
//
// Inputs:
//   - positions: flat [x0 y0 z0 x1 y1 z1 ...] list, length a multiple of 9.
//   - tr: rigid transform applied to every corner before indexing.
//   - opts: build options. Zero value uses defaults.
//
// Outputs:
//   - *Soup: the indexed soup. Nil on error.
//   - error: ErrEmptySoup, ErrBadSoupLength, ErrNonFiniteCoordinate,
//     ErrBadTransform, or ErrBadResolution. These are the engine's only
//     fail-fast conditions; degenerate triangles are not errors.
//
// Complexity: O(T) time and space for T input triangles.
func Build(positions []float64, tr Transform, opts BuildOptions) (*Soup, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, ErrEmptySoup
	}
	if len(positions)%9 != 0 {
		return nil, fmt.Errorf("%w: got %d values", ErrBadSoupLength, len(positions))
	}
	for i, v := range positions {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: index %d", ErrNonFiniteCoordinate, i)
		}
	}

	triCount := len(positions) / 9
	s := &Soup{
		Triangles:   make([]Triangle, triCount),
		Occurrences: make([]VertexOccurrence, 0, triCount*3),
		Adjacency:   make(map[SpatialKey][]*Triangle, triCount*2),
		Resolution:  opts.Resolution,
	}

	for i := 0; i < triCount; i++ {
		base := i * 9
		a := tr.Apply(r3.Vec{X: positions[base], Y: positions[base+1], Z: positions[base+2]})
		b := tr.Apply(r3.Vec{X: positions[base+3], Y: positions[base+4], Z: positions[base+5]})
		c := tr.Apply(r3.Vec{X: positions[base+6], Y: positions[base+7], Z: positions[base+8]})

		t := &s.Triangles[i]
		t.A, t.B, t.C = a, b, c
		t.Index = i
		t.Centroid = r3.Scale(1.0/3.0, r3.Add(a, r3.Add(b, c)))

		cross := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		if r3.Norm2(cross) < degenerateNormalEps {
			t.Degenerate = true
			s.DegenerateCount++
			continue
		}
		t.Normal = r3.Unit(cross)

		for corner := 0; corner < 3; corner++ {
			pos := t.Corner(corner)
			key := Quantize(pos, opts.Resolution)
			s.Occurrences = append(s.Occurrences, VertexOccurrence{
				Position: pos,
				Key:      key,
				Triangle: t,
				Corner:   corner,
				Index:    len(s.Occurrences),
			})
			s.Adjacency[key] = append(s.Adjacency[key], t)
		}
	}

	if s.DegenerateCount == triCount {
		return nil, fmt.Errorf("%w: all %d triangles are degenerate", ErrEmptySoup, triCount)
	}

	s.grid = buildUniformGrid(s)
	return s, nil
}

// quantizeCoord rounds one coordinate onto the grid, half away from zero.
func quantizeCoord(v, resolution float64) int64 {
	return int64(math.Round(v / resolution))
}

// Bounds returns the axis-aligned bounding box of the non-degenerate
// triangles. ok is false when the soup has no usable geometry.
func (s *Soup) Bounds() (min, max r3.Vec, ok bool) {
	min = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := range s.Triangles {
		t := &s.Triangles[i]
		if t.Degenerate {
			continue
		}
		for corner := 0; corner < 3; corner++ {
			p := t.Corner(corner)
			min = vecMin(min, p)
			max = vecMax(max, p)
			ok = true
		}
	}
	return min, max, ok
}

func vecMin(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func vecMax(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}
