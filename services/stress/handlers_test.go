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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianStress/services/stress/config"
)

func init() {
	// Set Gin to test mode to reduce noise
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(e *Engine) *gin.Engine {
	router := gin.New()
	handlers := NewHandlers(e)
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}

func postAnalyze(t *testing.T, router *gin.Engine, req *AnalyzeRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	httpReq, _ := http.NewRequest("POST", "/v1/stress/analyze", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)
	return w
}

func TestHandlers_HandleHealth(t *testing.T) {
	router := setupTestRouter(newTestEngine(t, nil))

	req, _ := http.NewRequest("GET", "/v1/stress/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", resp.Status)
	}

	if resp.Version != ServiceVersion {
		t.Errorf("expected version %q, got %q", ServiceVersion, resp.Version)
	}
}

func TestHandlers_HandleReady(t *testing.T) {
	e := newTestEngine(t, func(cfg *config.Config) {
		cfg.CacheEnabled = true
	})
	router := setupTestRouter(e)

	req, _ := http.NewRequest("GET", "/v1/stress/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp ReadyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if !resp.Ready {
		t.Error("expected Ready=true")
	}
	if !resp.CacheEnabled {
		t.Error("expected CacheEnabled=true")
	}
	if resp.ActiveRuns != 0 {
		t.Errorf("expected 0 active runs, got %d", resp.ActiveRuns)
	}
}

func TestHandlers_HandleReady_AfterShutdown(t *testing.T) {
	e := newTestEngine(t, nil)
	router := setupTestRouter(e)
	e.Close()

	req, _ := http.NewRequest("GET", "/v1/stress/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}

	var resp ReadyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Ready {
		t.Error("expected Ready=false after shutdown")
	}
}

func TestHandlers_HandleConfig(t *testing.T) {
	router := setupTestRouter(newTestEngine(t, nil))

	req, _ := http.NewRequest("GET", "/v1/stress/config", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp config.Config
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.SharpAngleDeg != 45 {
		t.Errorf("expected sharp_angle_deg 45, got %v", resp.SharpAngleDeg)
	}
	if resp.SpatialResolution != 0.01 {
		t.Errorf("expected spatial_resolution 0.01, got %v", resp.SpatialResolution)
	}
}

func TestHandlers_HandleAnalyze(t *testing.T) {
	router := setupTestRouter(newTestEngine(t, nil))

	w := postAnalyze(t, router, &AnalyzeRequest{
		Positions:    flatStrip(overhangStations()...),
		HangingPoint: [3]float64{4, -2, 0.5},
		TrialWeight:  1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.RunID == "" {
		t.Error("expected a run ID")
	}
	if resp.Verdict == nil {
		t.Fatal("expected a verdict")
	}
	if resp.Verdict.MaxSafeWeight <= 0 {
		t.Errorf("expected positive max safe weight, got %v", resp.Verdict.MaxSafeWeight)
	}
	if resp.Records != nil {
		t.Error("records returned without include_records")
	}
}

func TestHandlers_HandleAnalyze_IncludeRecords(t *testing.T) {
	router := setupTestRouter(newTestEngine(t, nil))

	w := postAnalyze(t, router, &AnalyzeRequest{
		Positions:      flatStrip(-1, 0, 1, 2),
		HangingPoint:   [3]float64{2, -1, 0.5},
		TrialWeight:    1,
		IncludeRecords: true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Records) != resp.Stats.VertexCount {
		t.Errorf("expected %d records, got %d", resp.Stats.VertexCount, len(resp.Records))
	}
}

func TestHandlers_HandleAnalyze_Errors(t *testing.T) {
	router := setupTestRouter(newTestEngine(t, nil))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed json",
			body:       `{"positions": [`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "missing trial weight",
			body:       `{"positions": [0,0,0, 1,0,0, 0,0,1]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "negative trial weight",
			body:       `{"positions": [0,0,0, 1,0,0, 0,0,1], "trial_weight": -1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "NON_POSITIVE_WEIGHT",
		},
		{
			name:       "all triangles degenerate",
			body:       `{"positions": [0,0,0, 0,0,0, 0,0,0], "trial_weight": 1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "EMPTY_SOUP",
		},
		{
			name:       "ragged position list",
			body:       `{"positions": [0,0,0, 1,0,0, 0,0,1, 5], "trial_weight": 1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_SOUP_LENGTH",
		},
		{
			name:       "negative scale",
			body:       `{"positions": [0,0,0, 1,0,0, 0,0,1], "trial_weight": 1, "transform": {"scale": -2}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_TRANSFORM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("POST", "/v1/stress/analyze", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}

			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal error response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestHandlers_HandleAnalyze_EngineClosed(t *testing.T) {
	e := newTestEngine(t, nil)
	router := setupTestRouter(e)
	e.Close()

	w := postAnalyze(t, router, &AnalyzeRequest{
		Positions:   flatStrip(-1, 0, 1),
		TrialWeight: 1,
	})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}
	if resp.Code != "ENGINE_CLOSED" {
		t.Errorf("expected code ENGINE_CLOSED, got %q", resp.Code)
	}
}

func TestHandlers_RequestIDEcho(t *testing.T) {
	router := setupTestRouter(newTestEngine(t, nil))

	body, _ := json.Marshal(&AnalyzeRequest{
		Positions:   flatStrip(-1, 0, 1),
		TrialWeight: 1,
	})
	req, _ := http.NewRequest("POST", "/v1/stress/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("expected X-Request-ID echoed, got %q", got)
	}
}
