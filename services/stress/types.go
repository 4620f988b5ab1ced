// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stress

import (
	"github.com/AleutianAI/AleutianStress/services/stress/geom"
	"github.com/AleutianAI/AleutianStress/services/stress/score"
)

// AnalyzeRequest is the request body for POST /v1/stress/analyze.
type AnalyzeRequest struct {
	// Positions is the flat triangle soup: 9 floats per triangle
	// (x,y,z for each of three corners). Required, length must be a
	// positive multiple of 9.
	Positions []float64 `json:"positions" binding:"required"`

	// Transform is applied to every corner before indexing.
	// Zero value means identity.
	Transform geom.Transform `json:"transform"`

	// HangingPoint is the world-space point the trial weight hangs from.
	HangingPoint [3]float64 `json:"hanging_point"`

	// TrialWeight is the load to classify against, in working weight
	// units. Must be positive.
	TrialWeight float64 `json:"trial_weight" binding:"required"`

	// IncludeRecords requests the full per-vertex fragility records in
	// the response. Default: verdict only.
	IncludeRecords bool `json:"include_records"`

	// SessionID associates the request with a live session for
	// supersede semantics. Optional for one-shot requests.
	SessionID string `json:"session_id,omitempty"`
}

// AnalyzeStats summarizes the work done for one analysis.
type AnalyzeStats struct {
	// TriangleCount is the number of non-degenerate triangles indexed.
	TriangleCount int `json:"triangle_count"`

	// DegenerateCount is the number of triangles dropped during indexing.
	DegenerateCount int `json:"degenerate_count"`

	// VertexCount is the number of vertex occurrences analyzed.
	VertexCount int `json:"vertex_count"`

	// FreeCount is the number of occurrences outside the anchor zone.
	FreeCount int `json:"free_count"`

	// CacheHit is true if the result came from the result cache.
	CacheHit bool `json:"cache_hit"`

	// DurationMs is the wall-clock analysis time in milliseconds.
	DurationMs float64 `json:"duration_ms"`
}

// AnalyzeResponse is the response for POST /v1/stress/analyze.
type AnalyzeResponse struct {
	// RunID uniquely identifies this analysis run.
	RunID string `json:"run_id"`

	// Verdict is the failure classification for the trial weight.
	Verdict *score.Verdict `json:"verdict"`

	// Records holds the per-vertex fragility breakdown when requested.
	Records []score.FragilityRecord `json:"records,omitempty"`

	// Stats summarizes the analysis.
	Stats AnalyzeStats `json:"stats"`
}

// HealthResponse is the response for GET /v1/stress/health.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/stress/ready.
type ReadyResponse struct {
	// Ready is true if the service is ready to accept requests.
	Ready bool `json:"ready"`

	// CacheEnabled is true if the result cache is active.
	CacheEnabled bool `json:"cache_enabled"`

	// ActiveRuns is the number of in-flight analyses.
	ActiveRuns int `json:"active_runs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
