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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianStress/services/stress/geom"
)

// Handlers contains the HTTP handlers for the stress service.
type Handlers struct {
	svc *Engine
}

// NewHandlers creates handlers for the given engine.
func NewHandlers(svc *Engine) *Handlers {
	return &Handlers{svc: svc}
}

// HandleAnalyze handles POST /v1/stress/analyze.
//
// Description:
//
//	Runs a full fragility analysis: soup indexing, shape analysis, anchor
//	partitioning, scoring, and classification against the trial weight.
//
// Request Body:
//
//	AnalyzeRequest
//
// Response:
//
//	200 OK: AnalyzeResponse
//	400 Bad Request: Validation error (only invalid input aborts)
//	409 Conflict: Run superseded by a newer request for the session
//	503 Service Unavailable: Engine shut down
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAnalyze")

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Starting analysis",
		"triangles", len(req.Positions)/9,
		"trial_weight", req.TrialWeight,
		"session_id", req.SessionID)

	resp, err := h.svc.Analyze(c.Request.Context(), &req)
	if err != nil {
		status, code := analyzeErrorStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Error("Analysis failed", "error", err)
		} else {
			logger.Warn("Analysis rejected", "error", err, "code", code)
		}
		c.JSON(status, ErrorResponse{
			Error: err.Error(),
			Code:  code,
		})
		return
	}

	logger.Info("Analysis complete",
		"run_id", resp.RunID,
		"safety", resp.Verdict.Safety,
		"max_safe_weight", resp.Verdict.MaxSafeWeight,
		"duration_ms", resp.Stats.DurationMs)

	c.JSON(http.StatusOK, resp)
}

// analyzeErrorStatus maps engine errors to HTTP status and error codes.
func analyzeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNonPositiveWeight):
		return http.StatusBadRequest, "NON_POSITIVE_WEIGHT"
	case errors.Is(err, ErrNonFiniteHangPoint):
		return http.StatusBadRequest, "NON_FINITE_HANG_POINT"
	case errors.Is(err, geom.ErrEmptySoup):
		return http.StatusBadRequest, "EMPTY_SOUP"
	case errors.Is(err, geom.ErrBadSoupLength):
		return http.StatusBadRequest, "BAD_SOUP_LENGTH"
	case errors.Is(err, geom.ErrNonFiniteCoordinate):
		return http.StatusBadRequest, "NON_FINITE_COORDINATE"
	case errors.Is(err, geom.ErrBadTransform):
		return http.StatusBadRequest, "BAD_TRANSFORM"
	case errors.Is(err, ErrSuperseded):
		return http.StatusConflict, "SUPERSEDED"
	case errors.Is(err, ErrEngineClosed):
		return http.StatusServiceUnavailable, "ENGINE_CLOSED"
	default:
		return http.StatusInternalServerError, "ANALYZE_FAILED"
	}
}

// HandleConfig handles GET /v1/stress/config.
//
// Description:
//
//	Returns the engine's current tunables, defaults applied. Useful for
//	clients that render the anchor zone or calibrate sliders.
//
// Response:
//
//	200 OK: config.Config
func (h *Handlers) HandleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Config())
}

// HandleHealth handles GET /v1/stress/health.
//
// Description:
//
//	Returns the health status of the service. Always returns 200 if running.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/stress/ready.
//
// Description:
//
//	Returns the readiness status of the service. The engine has no warmup
//	phase, so readiness only reflects shutdown state.
//
// Response:
//
//	200 OK: ReadyResponse (Ready=true)
//	503 Service Unavailable: ReadyResponse (Ready=false) after shutdown
func (h *Handlers) HandleReady(c *gin.Context) {
	h.svc.closedMu.RLock()
	closed := h.svc.closed
	h.svc.closedMu.RUnlock()

	resp := ReadyResponse{
		Ready:        !closed,
		CacheEnabled: h.svc.CacheEnabled(),
		ActiveRuns:   h.svc.ActiveRuns(),
	}

	if closed {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
