// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package load partitions the soup into anchored and free regions and derives
// the lever geometry of the hanging load.
//
// The anchor rule is configuration, not business logic baked into the
// algorithm: a vertex is anchored when it sits at or above the supporting
// surface's underside and behind the supporting edge. Anchored vertices
// contribute zero fragility by invariant.
package load

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/AleutianAI/AleutianStress/services/stress/geom"
)

// Anchor zone and lever defaults. Calibration constants carried from the
// shipped heuristic, exposed as tunables.
const (
	// DefaultSurfaceY is the world Y of the supporting surface top.
	DefaultSurfaceY = 0.0

	// DefaultSurfaceThickness is the supporting surface thickness. Vertices
	// at or above SurfaceY - SurfaceThickness count as embedded in height.
	DefaultSurfaceThickness = 1.0

	// DefaultEdgeX is the world X of the supporting edge plane. Vertices at
	// or behind it (X <= EdgeX) count as embedded in depth.
	DefaultEdgeX = 0.0
)

// DefaultLeverBreakpoints are the lever-arm lengths (working units) where the
// lever factor ramp changes slope.
var DefaultLeverBreakpoints = [4]float64{2, 4, 6, 8}

// DefaultLeverFactors are the factor values reached at each breakpoint. The
// factor is 1.0 up to the first breakpoint and ramps linearly between the
// rest; beyond the last breakpoint it continues at DefaultLeverTailSlope.
var DefaultLeverFactors = [4]float64{1.0, 1.5, 2.2, 3.0}

// DefaultLeverTailSlope is the open-ended ramp slope past the last breakpoint.
const DefaultLeverTailSlope = 0.25

// Config describes the anchor zone and the lever-arm factor ramp.
type Config struct {
	// SurfaceY is the world Y coordinate of the supporting surface top.
	SurfaceY float64 `json:"surface_y" yaml:"surface_y"`

	// SurfaceThickness is the supporting surface thickness.
	// Must be >= 0. Default: 1.
	SurfaceThickness float64 `json:"surface_thickness" yaml:"surface_thickness"`

	// EdgeX is the world X coordinate of the supporting edge plane.
	EdgeX float64 `json:"edge_x" yaml:"edge_x"`

	// LeverBreakpoints are strictly increasing lever-arm lengths bounding
	// the piecewise-linear factor ramp.
	LeverBreakpoints [4]float64 `json:"lever_breakpoints" yaml:"lever_breakpoints"`

	// LeverFactors are the non-decreasing factor values at each breakpoint.
	LeverFactors [4]float64 `json:"lever_factors" yaml:"lever_factors"`

	// LeverTailSlope is the linear slope applied past the last breakpoint.
	// Must be >= 0. Default: 0.25.
	LeverTailSlope float64 `json:"lever_tail_slope" yaml:"lever_tail_slope"`
}

// DefaultConfig returns the shipped anchor and lever tunables.
func DefaultConfig() Config {
	return Config{
		SurfaceY:         DefaultSurfaceY,
		SurfaceThickness: DefaultSurfaceThickness,
		EdgeX:            DefaultEdgeX,
		LeverBreakpoints: DefaultLeverBreakpoints,
		LeverFactors:     DefaultLeverFactors,
		LeverTailSlope:   DefaultLeverTailSlope,
	}
}

// Validate applies defaults to zero values and repairs non-monotonic ramps.
func (c *Config) Validate() {
	if c.SurfaceThickness < 0 {
		c.SurfaceThickness = DefaultSurfaceThickness
	}
	var zero [4]float64
	if c.LeverBreakpoints == zero {
		c.LeverBreakpoints = DefaultLeverBreakpoints
	}
	if c.LeverFactors == zero {
		c.LeverFactors = DefaultLeverFactors
	}
	for i := 1; i < 4; i++ {
		if c.LeverBreakpoints[i] <= c.LeverBreakpoints[i-1] {
			c.LeverBreakpoints = DefaultLeverBreakpoints
			break
		}
	}
	for i := 1; i < 4; i++ {
		if c.LeverFactors[i] < c.LeverFactors[i-1] {
			c.LeverFactors = DefaultLeverFactors
			break
		}
	}
	if c.LeverTailSlope < 0 {
		c.LeverTailSlope = DefaultLeverTailSlope
	}
}

// Partition is the anchored/free classification of one soup plus the global
// lever geometry for the given hanging point.
type Partition struct {
	// Anchored has one entry per occurrence; true means the occurrence is in
	// the anchor zone and scores exactly zero.
	Anchored []bool

	// FreeCount is the number of non-anchored occurrences.
	FreeCount int

	// LeverArm is the horizontal distance from the hanging point to the
	// supporting edge plane, floored at zero.
	LeverArm float64

	// LeverFactor is the global factor derived from LeverArm.
	LeverFactor float64

	// HangingPoint is the load application point the partition was built for.
	HangingPoint r3.Vec
}

// Partition classifies every occurrence against the anchor rule and computes
// the lever arm and lever factor for the hanging point.
//
// Thread Safety: pure function; safe for concurrent use.
func (c Config) Partition(soup *geom.Soup, hangingPoint r3.Vec) *Partition {
	c.Validate()
	p := &Partition{
		Anchored:     make([]bool, len(soup.Occurrences)),
		HangingPoint: hangingPoint,
	}
	for i := range soup.Occurrences {
		occ := &soup.Occurrences[i]
		if c.InAnchorZone(occ.Position) {
			p.Anchored[i] = true
		} else {
			p.FreeCount++
		}
	}
	p.LeverArm = math.Max(0, hangingPoint.X-c.EdgeX)
	p.LeverFactor = c.LeverFactor(p.LeverArm)
	return p
}

// InAnchorZone reports whether a world position is embedded: at or above the
// supporting surface underside and at or behind the supporting edge.
func (c Config) InAnchorZone(pos r3.Vec) bool {
	return pos.Y >= c.SurfaceY-c.SurfaceThickness && pos.X <= c.EdgeX
}

// LeverFactor evaluates the monotonically non-decreasing piecewise-linear
// lever ramp: flat at 1.0 up to the first breakpoint, linear between
// breakpoints, then an open-ended linear ramp past the last one.
func (c Config) LeverFactor(arm float64) float64 {
	b, f := c.LeverBreakpoints, c.LeverFactors
	switch {
	case arm <= b[0]:
		return f[0]
	case arm >= b[3]:
		return f[3] + (arm-b[3])*c.LeverTailSlope
	}
	for i := 1; i < 4; i++ {
		if arm <= b[i] {
			t := (arm - b[i-1]) / (b[i] - b[i-1])
			return f[i-1] + t*(f[i]-f[i-1])
		}
	}
	return f[3]
}
