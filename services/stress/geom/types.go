// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package geom builds the geometric index of a triangle soup.
//
// # Description
//
// A triangle soup is a flat list of corner positions with no shared-vertex
// index buffer: corners that are geometrically the same point arrive as
// unrelated array slots. This package reconstructs adjacency by quantizing
// every corner onto a fixed spatial grid (SpatialKey) and grouping the
// triangles that touch each grid cell. It also owns the ray/triangle
// intersection used for wall-thickness probing, accelerated by a uniform
// grid so large soups avoid a linear scan per ray.
//
// # Thread Safety
//
// A Soup is immutable after Build and safe for concurrent reads.
package geom

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultSpatialResolution is the grid spacing used to decide that two corner
// positions are the same geometric point. Two decimal places in the solid's
// working units; this is the adjacency tolerance and is a tunable, not a law.
const DefaultSpatialResolution = 0.01

// degenerateNormalEps is the squared cross-product magnitude below which a
// triangle is considered zero-area (collinear edges).
const degenerateNormalEps = 1e-12

// Triangle is one world-space triangle of the soup.
//
// Created once per analysis run and never mutated. Normal is unit length for
// non-degenerate triangles and the zero vector otherwise.
type Triangle struct {
	// A, B, C are the world-space corner positions.
	A, B, C r3.Vec

	// Normal is the unit normal from the cross product of (B-A) and (C-A).
	Normal r3.Vec

	// Centroid is the arithmetic mean of the three corners.
	Centroid r3.Vec

	// Index is the triangle's position in the source soup (0-based).
	Index int

	// Degenerate marks zero-area triangles. Degenerate triangles contribute
	// no adjacency, no occurrences, and no raycast hits.
	Degenerate bool
}

// Corner returns the position of corner i (0, 1, or 2).
func (t *Triangle) Corner(i int) r3.Vec {
	switch i {
	case 0:
		return t.A
	case 1:
		return t.B
	default:
		return t.C
	}
}

// SpatialKey is a quantized coordinate tuple. Two corners with the same key
// are treated as topologically identical regardless of which triangle or
// winding produced them. Integer cell indices avoid the locale and formatting
// ambiguity of string-based hashing and make the tolerance an explicit number.
type SpatialKey struct {
	X, Y, Z int64
}

// VertexOccurrence is one triangle corner. A soup with N triangles has 3N
// occurrences; occurrences sharing a SpatialKey are still distinct records,
// because downstream scores are keyed per original vertex slot.
type VertexOccurrence struct {
	// Position is the world-space corner position.
	Position r3.Vec

	// Key is the occurrence's quantized spatial key.
	Key SpatialKey

	// Triangle is the owning triangle.
	Triangle *Triangle

	// Corner is which corner of the triangle this is (0, 1, or 2).
	Corner int

	// Index is the occurrence's position in Soup.Occurrences.
	Index int
}

// RayHit is the result of a successful raycast.
type RayHit struct {
	// Distance is the parametric distance along the (unit) ray direction.
	Distance float64

	// Point is the world-space intersection point.
	Point r3.Vec

	// Triangle is the triangle that was hit.
	Triangle *Triangle
}

// Soup is the indexed triangle soup: the input geometry after transform,
// with adjacency groups and the raycast accelerator built.
type Soup struct {
	// Triangles holds every input triangle, degenerate ones included
	// (flagged). Slice order matches the input soup.
	Triangles []Triangle

	// Occurrences holds one entry per corner of every non-degenerate
	// triangle, in input order.
	Occurrences []VertexOccurrence

	// Adjacency maps each SpatialKey to the triangles touching that point.
	// Every non-degenerate triangle appears in exactly three groups.
	Adjacency map[SpatialKey][]*Triangle

	// Resolution is the quantization spacing the keys were built with.
	Resolution float64

	// DegenerateCount is the number of triangles excluded as zero-area.
	DegenerateCount int

	grid *uniformGrid
}

// Quantize maps a world position to its SpatialKey at the given resolution.
// Rounding is half-away-from-zero so the mapping is symmetric about zero.
func Quantize(v r3.Vec, resolution float64) SpatialKey {
	return SpatialKey{
		X: quantizeCoord(v.X, resolution),
		Y: quantizeCoord(v.Y, resolution),
		Z: quantizeCoord(v.Z, resolution),
	}
}

// AdjacentTriangles returns the adjacency group for a key. The returned slice
// is shared with the index and must not be mutated.
func (s *Soup) AdjacentTriangles(key SpatialKey) []*Triangle {
	return s.Adjacency[key]
}

// TriangleCount returns the number of non-degenerate triangles.
func (s *Soup) TriangleCount() int {
	return len(s.Triangles) - s.DegenerateCount
}
