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

// Uniform grid sizing constants.
const (
	// maxGridAxisCells caps the grid resolution per axis.
	maxGridAxisCells = 64

	// minGridTriangles is the triangle count below which a grid is not worth
	// building and raycasts fall back to the linear scan.
	minGridTriangles = 16
)

// gridCell addresses one cell of the uniform grid.
type gridCell struct {
	x, y, z int32
}

// uniformGrid is the raycast accelerator: triangles bucketed into an
// axis-aligned grid of cubic cells overlaying the soup's bounding box.
// Rays walk cells front to back with a 3D-DDA and stop as soon as the best
// hit is closer than the next cell boundary.
type uniformGrid struct {
	min, max   r3.Vec
	cellSize   float64
	nx, ny, nz int32
	cells      map[gridCell][]*Triangle
}

// buildUniformGrid buckets the soup's triangles. Returns nil when the soup is
// too small or too flat for a grid to pay off; callers fall back to the
// brute-force scan.
func buildUniformGrid(s *Soup) *uniformGrid {
	if s.TriangleCount() < minGridTriangles {
		return nil
	}
	min, max, ok := s.Bounds()
	if !ok {
		return nil
	}

	extent := r3.Sub(max, min)
	longest := math.Max(extent.X, math.Max(extent.Y, extent.Z))
	if longest <= 0 {
		return nil
	}

	// Aim for roughly cube-root-of-T cells per axis.
	axis := int32(math.Cbrt(float64(s.TriangleCount())) * 2)
	if axis < 2 {
		axis = 2
	}
	if axis > maxGridAxisCells {
		axis = maxGridAxisCells
	}

	g := &uniformGrid{
		min:      min,
		max:      max,
		cellSize: longest / float64(axis),
		cells:    make(map[gridCell][]*Triangle),
	}
	g.nx = g.axisCells(extent.X)
	g.ny = g.axisCells(extent.Y)
	g.nz = g.axisCells(extent.Z)

	for i := range s.Triangles {
		t := &s.Triangles[i]
		if t.Degenerate {
			continue
		}
		lo := g.cellOf(vecMin(t.A, vecMin(t.B, t.C)))
		hi := g.cellOf(vecMax(t.A, vecMax(t.B, t.C)))
		for x := lo.x; x <= hi.x; x++ {
			for y := lo.y; y <= hi.y; y++ {
				for z := lo.z; z <= hi.z; z++ {
					c := gridCell{x, y, z}
					g.cells[c] = append(g.cells[c], t)
				}
			}
		}
	}
	return g
}

func (g *uniformGrid) axisCells(extent float64) int32 {
	n := int32(math.Ceil(extent/g.cellSize)) + 1
	if n < 1 {
		n = 1
	}
	return n
}

// cellOf maps a world position to its cell, clamped into the grid.
func (g *uniformGrid) cellOf(p r3.Vec) gridCell {
	return gridCell{
		x: clampCell(int32(math.Floor((p.X-g.min.X)/g.cellSize)), g.nx),
		y: clampCell(int32(math.Floor((p.Y-g.min.Y)/g.cellSize)), g.ny),
		z: clampCell(int32(math.Floor((p.Z-g.min.Z)/g.cellSize)), g.nz),
	}
}

func clampCell(i, n int32) int32 {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// raycast walks grid cells along the ray in near-to-far order.
func (g *uniformGrid) raycast(s *Soup, origin, dir r3.Vec, maxDist float64) (RayHit, bool) {
	tEnter, tExit, ok := g.clipRay(origin, dir)
	if !ok || tEnter > maxDist {
		return RayHit{}, false
	}
	if tExit > maxDist {
		tExit = maxDist
	}

	start := r3.Add(origin, r3.Scale(math.Max(tEnter, 0), dir))
	cell := g.cellOf(start)

	// DDA setup: per-axis step direction, distance along the ray between
	// cell boundaries (tDelta), and distance to the first boundary (tMax).
	step := [3]int32{}
	tDelta := [3]float64{}
	tMax := [3]float64{}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	o := [3]float64{origin.X, origin.Y, origin.Z}
	gmin := [3]float64{g.min.X, g.min.Y, g.min.Z}
	pos := [3]int32{cell.x, cell.y, cell.z}
	for i := 0; i < 3; i++ {
		if d[i] > 0 {
			step[i] = 1
			tDelta[i] = g.cellSize / d[i]
			boundary := gmin[i] + float64(pos[i]+1)*g.cellSize
			tMax[i] = (boundary - o[i]) / d[i]
		} else if d[i] < 0 {
			step[i] = -1
			tDelta[i] = -g.cellSize / d[i]
			boundary := gmin[i] + float64(pos[i])*g.cellSize
			tMax[i] = (boundary - o[i]) / d[i]
		} else {
			step[i] = 0
			tDelta[i] = math.Inf(1)
			tMax[i] = math.Inf(1)
		}
	}

	best := RayHit{Distance: maxDist}
	found := false
	tested := make(map[int]struct{}, 64)
	cellEnter := math.Max(tEnter, 0)
	bounds := [3]int32{g.nx, g.ny, g.nz}

	for {
		// The best hit so far is closer than this cell's entry point, so no
		// later cell can improve it.
		if found && best.Distance < cellEnter {
			break
		}
		for _, t := range g.cells[gridCell{pos[0], pos[1], pos[2]}] {
			if _, seen := tested[t.Index]; seen {
				continue
			}
			tested[t.Index] = struct{}{}
			if dist, ok := intersectTriangle(origin, dir, t); ok && dist < best.Distance {
				best = RayHit{Distance: dist, Point: r3.Add(origin, r3.Scale(dist, dir)), Triangle: t}
				found = true
			}
		}

		// Advance to the neighbor across the nearest boundary.
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		cellEnter = tMax[axis]
		if cellEnter > tExit {
			break
		}
		pos[axis] += step[axis]
		if pos[axis] < 0 || pos[axis] >= bounds[axis] {
			break
		}
		tMax[axis] += tDelta[axis]
	}
	return best, found
}

// clipRay intersects the ray with the grid's bounding box (slab method).
func (g *uniformGrid) clipRay(origin, dir r3.Vec) (tEnter, tExit float64, ok bool) {
	tEnter = math.Inf(-1)
	tExit = math.Inf(1)
	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	lo := [3]float64{g.min.X, g.min.Y, g.min.Z}
	hi := [3]float64{g.max.X, g.max.Y, g.max.Z}
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, 0, false
			}
			continue
		}
		t0 := (lo[i] - o[i]) / d[i]
		t1 := (hi[i] - o[i]) / d[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tEnter = math.Max(tEnter, t0)
		tExit = math.Min(tExit, t1)
	}
	if tEnter > tExit || tExit < 0 {
		return 0, 0, false
	}
	return tEnter, tExit, true
}
