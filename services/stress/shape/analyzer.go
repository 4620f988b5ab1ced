// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package shape derives per-vertex local shape descriptors from an indexed
// triangle soup: averaged normals, normal variation, sharp-edge flags, and a
// raycast wall-thickness estimate.
//
// # Failure Semantics
//
// Degenerate geometry never aborts an analysis. Every failure path (missing
// adjacency, degenerate averaged normal, raycast miss) degrades to a
// conservative default and sets a flag on the VertexAnalysis so callers can
// tell measured values from defaulted ones.
//
// # Thread Safety
//
// Analyze is a pure function of its inputs and safe for concurrent calls.
package shape

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/AleutianAI/AleutianStress/services/stress/geom"
)

// Analyzer defaults. All of these are tunables surfaced through the service
// configuration, not physical constants.
const (
	// DefaultSharpAngleDeg is the max pairwise normal angle above which a
	// vertex is flagged as a sharp edge.
	DefaultSharpAngleDeg = 45.0

	// DefaultThickness is the sentinel thickness used when the wall probe
	// cannot measure (degenerate normal or raycast miss). Deliberately large:
	// "unknown" is treated as "thick", i.e. not fragile by this criterion.
	DefaultThickness = 100.0

	// DefaultRayOffset is how far the thickness probe origin is pushed along
	// the probe direction so the ray does not hit the vertex's own surface.
	DefaultRayOffset = 1e-3

	// maxAnalyzeWorkers caps probe parallelism regardless of CPU count.
	maxAnalyzeWorkers = 8

	// minParallelOccurrences is the occurrence count below which the
	// analyzer stays sequential.
	minParallelOccurrences = 256

	// zeroNormalEps is the squared magnitude below which an averaged normal
	// is considered degenerate.
	zeroNormalEps = 1e-12
)

// Options configures the analyzer.
type Options struct {
	// SharpAngleDeg flags a vertex as sharp when the maximum pairwise angle
	// between adjacent triangle normals exceeds it.
	// Must be > 0. Default: 45.
	SharpAngleDeg float64

	// ThicknessDefault is the fallback thickness for unmeasurable vertices.
	// Must be > 0. Default: 100.
	ThicknessDefault float64

	// RayOffset is the probe origin offset along the probe direction.
	// Must be > 0. Default: 1e-3.
	RayOffset float64

	// Workers bounds probe parallelism. 0 means min(NumCPU, 8). Results are
	// deterministic regardless of worker count: each occurrence writes only
	// its own output slot.
	Workers int
}

// Validate applies defaults for zero or invalid values.
func (o *Options) Validate() {
	if o.SharpAngleDeg <= 0 {
		o.SharpAngleDeg = DefaultSharpAngleDeg
	}
	if o.ThicknessDefault <= 0 {
		o.ThicknessDefault = DefaultThickness
	}
	if o.RayOffset <= 0 {
		o.RayOffset = DefaultRayOffset
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Workers > maxAnalyzeWorkers {
		o.Workers = maxAnalyzeWorkers
	}
}

// DefaultOptions returns the analyzer defaults.
func DefaultOptions() *Options {
	o := &Options{}
	o.Validate()
	return o
}

// VertexAnalysis is the derived local shape descriptor for one vertex
// occurrence. Produced here, consumed by the scorer, never mutated after.
type VertexAnalysis struct {
	// OccurrenceIndex is the index into Soup.Occurrences.
	OccurrenceIndex int `json:"occurrence_index"`

	// AvgNormal is the renormalized mean of adjacent triangle normals.
	AvgNormal r3.Vec `json:"avg_normal"`

	// NormalVariation is the mean angular deviation of adjacent normals from
	// AvgNormal, clamped to [0, pi/2] and normalized to [0, 1].
	// 0 = flat or uniform, 1 = highly divergent.
	NormalVariation float64 `json:"normal_variation"`

	// MaxPairAngleDeg is the maximum pairwise angle between any two adjacent
	// triangle normals, in degrees.
	MaxPairAngleDeg float64 `json:"max_pair_angle_deg"`

	// Sharp is true when MaxPairAngleDeg exceeds the sharp-angle threshold.
	Sharp bool `json:"sharp"`

	// Thickness is the local wall thickness estimate from the inverse-normal
	// raycast, or the configured default when unmeasurable.
	Thickness float64 `json:"thickness"`

	// AdjacentCount is the number of triangles meeting at this point.
	AdjacentCount int `json:"adjacent_count"`

	// NormalDefaulted is set when the averaged normal degenerated and the
	// occurrence's own triangle normal was used instead.
	NormalDefaulted bool `json:"normal_defaulted,omitempty"`

	// ThicknessDefaulted is set when Thickness is the fallback sentinel
	// rather than a measured value.
	ThicknessDefaulted bool `json:"thickness_defaulted,omitempty"`

	// MissingAdjacency is set when the spatial key had no adjacency group.
	// Should not occur by construction; recorded as a data-quality signal.
	MissingAdjacency bool `json:"missing_adjacency,omitempty"`
}

// Analyze computes a VertexAnalysis for every occurrence in the soup.
//
// Description:
//
//	Runs once per corner, not per deduplicated point: two corners sharing a
//	SpatialKey produce two records, because downstream scores are keyed per
//	original vertex slot. Thickness probes are distributed over a bounded
//	worker pool when the soup is large enough to benefit.
//
// Inputs:
//   - ctx: context for cancellation. Must not be nil.
//   - soup: the indexed soup from geom.Build.
//   - opts: analyzer options. Nil uses defaults.
//
// Outputs:
//   - []VertexAnalysis: one record per occurrence, in occurrence order.
//   - error: only ctx.Err() when the run was cancelled; geometry problems
//     degrade, they do not error.
//
// Complexity: O(V * k^2) for adjacency math (k = triangles per point, small)
// plus O(V * raycast) for thickness probes.
func Analyze(ctx context.Context, soup *geom.Soup, opts *Options) ([]VertexAnalysis, error) {
	if opts == nil {
		opts = DefaultOptions()
	} else {
		opts.Validate()
	}

	analyses := make([]VertexAnalysis, len(soup.Occurrences))

	workers := opts.Workers
	if len(soup.Occurrences) < minParallelOccurrences {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := (len(soup.Occurrences) + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}
	for start := 0; start < len(soup.Occurrences); start += chunk {
		end := start + chunk
		if end > len(soup.Occurrences) {
			end = len(soup.Occurrences)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				analyses[i] = analyzeOccurrence(soup, &soup.Occurrences[i], opts)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return analyses, nil
}

// analyzeOccurrence derives the descriptor for a single corner.
func analyzeOccurrence(soup *geom.Soup, occ *geom.VertexOccurrence, opts *Options) VertexAnalysis {
	va := VertexAnalysis{OccurrenceIndex: occ.Index}

	adjacent := soup.AdjacentTriangles(occ.Key)
	va.AdjacentCount = len(adjacent)
	if len(adjacent) == 0 {
		// Defensive: by construction every occurrence registered its own
		// triangle. Fall back to the owning triangle's data.
		va.MissingAdjacency = true
		adjacent = []*geom.Triangle{occ.Triangle}
		va.AdjacentCount = 1
	}

	// Averaged normal, renormalized. Opposing normals can cancel to near
	// zero; the occurrence's own triangle normal is the documented fallback.
	sum := r3.Vec{}
	for _, t := range adjacent {
		sum = r3.Add(sum, t.Normal)
	}
	if r3.Norm2(sum) < zeroNormalEps {
		va.AvgNormal = occ.Triangle.Normal
		va.NormalDefaulted = true
	} else {
		va.AvgNormal = r3.Unit(sum)
	}

	// Mean angular deviation from the averaged normal, normalized to [0,1].
	var devSum float64
	for _, t := range adjacent {
		a := angleBetween(t.Normal, va.AvgNormal)
		if a > math.Pi/2 {
			a = math.Pi / 2
		}
		devSum += a
	}
	va.NormalVariation = devSum / float64(len(adjacent)) / (math.Pi / 2)

	// Max pairwise angle catches creases regardless of fan size.
	for i := 0; i < len(adjacent); i++ {
		for j := i + 1; j < len(adjacent); j++ {
			deg := angleBetween(adjacent[i].Normal, adjacent[j].Normal) * 180 / math.Pi
			if deg > va.MaxPairAngleDeg {
				va.MaxPairAngleDeg = deg
			}
		}
	}
	va.Sharp = va.MaxPairAngleDeg > opts.SharpAngleDeg

	va.Thickness, va.ThicknessDefaulted = probeThickness(soup, occ.Position, va.AvgNormal, opts)
	return va
}

// probeThickness casts into the solid along the negated averaged normal. The
// distance to the first (double-sided) hit is the local wall thickness. A
// degenerate direction or a miss yields the documented "thick" sentinel.
func probeThickness(soup *geom.Soup, pos, avgNormal r3.Vec, opts *Options) (thickness float64, defaulted bool) {
	if r3.Norm2(avgNormal) < zeroNormalEps {
		return opts.ThicknessDefault, true
	}
	dir := r3.Scale(-1, avgNormal)
	origin := r3.Add(pos, r3.Scale(opts.RayOffset, dir))
	hit, ok := soup.Raycast(origin, dir, 0)
	if !ok {
		return opts.ThicknessDefault, true
	}
	return hit.Distance + opts.RayOffset, false
}

// angleBetween returns the angle between two unit vectors in radians.
func angleBetween(a, b r3.Vec) float64 {
	dot := r3.Dot(a, b)
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return math.Acos(dot)
}
