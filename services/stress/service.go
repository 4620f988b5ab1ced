// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stress orchestrates the structural fragility pipeline: triangle
// soup indexing, per-vertex shape analysis, anchor partitioning, fragility
// scoring, and failure classification. The engine is stateless per run; the
// only cross-run state is the opt-in result cache and the supersede tracking
// for live sessions.
package stress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/AleutianAI/AleutianStress/services/stress/cache"
	"github.com/AleutianAI/AleutianStress/services/stress/config"
	"github.com/AleutianAI/AleutianStress/services/stress/geom"
	"github.com/AleutianAI/AleutianStress/services/stress/score"
	"github.com/AleutianAI/AleutianStress/services/stress/shape"
)

// ServiceVersion is the stress service version.
const ServiceVersion = "0.1.0"

// Engine runs fragility analyses.
//
// Thread Safety: Safe for concurrent use. Configuration swaps are atomic
// with respect to in-flight runs: each run works on the snapshot it took.
type Engine struct {
	cfgMu sync.RWMutex
	cfg   config.Config

	cache *cache.ResultCache
	runs  *RunController

	logger *slog.Logger

	closedMu sync.RWMutex
	closed   bool
}

// NewEngine creates an Engine with the given tunables.
//
// Inputs:
//   - cfg: Analysis tunables. Validated in place; unusable values are
//     replaced with defaults.
//   - logger: Logger for analysis events. If nil, uses slog.Default().
//
// Outputs:
//   - *Engine: The created engine. Never nil.
func NewEngine(cfg config.Config, logger *slog.Logger) *Engine {
	cfg.Validate()
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:    cfg,
		runs:   NewRunController(),
		logger: logger.With(slog.String("component", "stress_engine")),
	}
	if cfg.CacheEnabled {
		e.cache = cache.New(cfg.CacheMaxEntries)
	}
	return e
}

// Config returns a snapshot of the current tunables.
func (e *Engine) Config() config.Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// SetConfig swaps the tunables, validating first. The result cache is purged
// because cached verdicts embed the old calibration.
//
// Thread Safety: Safe for concurrent use. In-flight runs keep the snapshot
// they started with.
func (e *Engine) SetConfig(cfg config.Config) {
	cfg.Validate()

	e.cfgMu.Lock()
	e.cfg = cfg
	if cfg.CacheEnabled && e.cache == nil {
		e.cache = cache.New(cfg.CacheMaxEntries)
	} else if !cfg.CacheEnabled {
		e.cache = nil
	} else {
		e.cache.Purge()
	}
	e.cfgMu.Unlock()

	e.logger.Info("configuration reloaded",
		slog.Float64("spatial_resolution", cfg.SpatialResolution),
		slog.Float64("sharp_angle_deg", cfg.SharpAngleDeg),
		slog.Bool("cache_enabled", cfg.CacheEnabled),
	)
}

// CacheEnabled reports whether the result cache is active.
func (e *Engine) CacheEnabled() bool {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cache != nil
}

// ActiveRuns returns the number of in-flight analyses.
func (e *Engine) ActiveRuns() int {
	return e.runs.Active()
}

// Runs exposes the run controller for session management.
func (e *Engine) Runs() *RunController {
	return e.runs
}

// Close shuts the engine down. Subsequent Analyze calls fail with
// ErrEngineClosed. Idempotent.
func (e *Engine) Close() {
	e.closedMu.Lock()
	e.closed = true
	e.closedMu.Unlock()
}

// Analyze runs the full pipeline for one request.
//
// Description:
//
//	Validates the request, indexes the soup, computes per-vertex shape
//	descriptors, partitions against the anchor zone, scores each free
//	vertex, and classifies the trial weight. Invalid input is the only
//	abort path; geometric oddities degrade with flags on the records.
//
// Inputs:
//   - ctx: Cancellation context. Checked between pipeline stages.
//   - req: The analysis request. Must not be nil.
//
// Outputs:
//   - *AnalyzeResponse: The verdict, optional records, and run stats.
//   - error: ErrNonPositiveWeight, ErrNonFiniteHangPoint, a geom build
//     error, ErrSuperseded, or a context error.
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	e.closedMu.RLock()
	if e.closed {
		e.closedMu.RUnlock()
		return nil, ErrEngineClosed
	}
	e.closedMu.RUnlock()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	cfg := e.Config()
	runID := uuid.NewString()

	runCtx, done := e.runs.Begin(ctx, req.SessionID, runID)
	defer done()

	spanCtx, span := startAnalyzeSpan(runCtx, runID, len(req.Positions)/9)
	defer span.End()

	start := time.Now()
	logger := e.logger.With(
		slog.String("run_id", runID),
		slog.String("session_id", req.SessionID),
	)

	result, hit, err := e.compute(spanCtx, req, cfg)
	duration := time.Since(start)

	if err != nil {
		// A run cancelled by a newer request reports supersession, not
		// the generic context error.
		if cause := context.Cause(runCtx); errors.Is(cause, ErrSuperseded) {
			logger.Info("run superseded", slog.Duration("after", duration))
			recordAnalyzeMetrics(spanCtx, duration, 0, "", false)
			return nil, ErrSuperseded
		}
		logger.Error("analysis failed", "error", err)
		recordAnalyzeMetrics(spanCtx, duration, 0, "", false)
		return nil, err
	}

	resp := &AnalyzeResponse{
		RunID:   runID,
		Verdict: result.Verdict,
		Stats: AnalyzeStats{
			TriangleCount:   result.Triangles,
			DegenerateCount: result.Degenerate,
			VertexCount:     len(result.Records),
			FreeCount:       result.Free,
			CacheHit:        hit,
			DurationMs:      float64(duration.Microseconds()) / 1000.0,
		},
	}
	if req.IncludeRecords {
		resp.Records = result.Records
	}

	logger.Info("analysis complete",
		slog.String("safety", string(result.Verdict.Safety)),
		slog.Float64("max_safe_weight", result.Verdict.MaxSafeWeight),
		slog.Int("vertices", len(result.Records)),
		slog.Bool("cache_hit", hit),
		slog.Duration("duration", duration),
	)
	recordAnalyzeMetrics(spanCtx, duration, len(result.Records), string(result.Verdict.Safety), true)

	return resp, nil
}

// compute runs or retrieves the cached pipeline output.
func (e *Engine) compute(ctx context.Context, req *AnalyzeRequest, cfg config.Config) (*cache.Result, bool, error) {
	e.cfgMu.RLock()
	rc := e.cache
	e.cfgMu.RUnlock()

	if rc == nil {
		res, err := e.pipeline(ctx, req, cfg)
		return res, false, err
	}

	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		// Config is plain data; a marshal failure means a programming
		// error, so fall back to an uncached run.
		e.logger.Warn("cache key marshal failed, bypassing cache", "error", err)
		res, perr := e.pipeline(ctx, req, cfg)
		return res, false, perr
	}

	inputs := []float64{
		req.Transform.Translation.X, req.Transform.Translation.Y, req.Transform.Translation.Z,
		req.Transform.Rotation.X, req.Transform.Rotation.Y, req.Transform.Rotation.Z,
		req.Transform.Scale,
		req.HangingPoint[0], req.HangingPoint[1], req.HangingPoint[2],
		req.TrialWeight,
	}
	key := cache.Key(req.Positions, inputs, cfgBytes)

	return rc.GetOrCompute(ctx, key, func(ctx context.Context) (*cache.Result, error) {
		return e.pipeline(ctx, req, cfg)
	})
}

// pipeline executes the five analysis stages in order.
func (e *Engine) pipeline(ctx context.Context, req *AnalyzeRequest, cfg config.Config) (*cache.Result, error) {
	soup, err := geom.Build(req.Positions, req.Transform, geom.BuildOptions{
		Resolution: cfg.SpatialResolution,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analyses, err := shape.Analyze(ctx, soup, &shape.Options{
		SharpAngleDeg:    cfg.SharpAngleDeg,
		ThicknessDefault: cfg.ThicknessDefault,
		RayOffset:        cfg.RayOffset,
		Workers:          cfg.Workers,
	})
	if err != nil {
		return nil, err
	}
	if n := countMissingAdjacency(analyses); n > 0 {
		// Data quality signal, not an error: the affected occurrences fell
		// back to their own triangle's normal.
		e.logger.Warn("occurrences missing adjacency groups",
			slog.Int("count", n),
			slog.Int("occurrences", len(analyses)))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hang := r3.Vec{X: req.HangingPoint[0], Y: req.HangingPoint[1], Z: req.HangingPoint[2]}
	part := cfg.Anchor.Partition(soup, hang)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := score.Score(soup, analyses, part, cfg.Anchor, cfg.Scorer)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	verdict := score.Classify(records, part.LeverArm, req.TrialWeight, cfg.Classifier)

	return &cache.Result{
		Records:    records,
		Verdict:    verdict,
		Triangles:  soup.TriangleCount(),
		Degenerate: soup.DegenerateCount,
		Free:       part.FreeCount,
	}, nil
}

// countMissingAdjacency tallies occurrences whose spatial key resolved to no
// adjacency group.
func countMissingAdjacency(analyses []shape.VertexAnalysis) int {
	n := 0
	for i := range analyses {
		if analyses[i].MissingAdjacency {
			n++
		}
	}
	return n
}

// validateRequest applies the fail-fast input checks. Soup shape and
// coordinate finiteness are checked by the indexer.
func validateRequest(req *AnalyzeRequest) error {
	if req.TrialWeight <= 0 || math.IsNaN(req.TrialWeight) || math.IsInf(req.TrialWeight, 0) {
		return ErrNonPositiveWeight
	}
	for _, v := range req.HangingPoint {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFiniteHangPoint
		}
	}
	return nil
}
