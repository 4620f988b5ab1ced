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
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianStress/services/stress/geom"
)

const (
	// liveWriteWait bounds a single websocket write.
	liveWriteWait = 10 * time.Second

	// liveUpdatesPerSecond caps how fast a client can request re-analysis.
	liveUpdatesPerSecond = 10

	// liveUpdateBurst allows short slider-drag bursts above the steady rate.
	liveUpdateBurst = 5
)

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The service binds to localhost in the default deployment; origin
		// enforcement belongs to the reverse proxy in front of it.
		return true
	},
}

// liveMessage is a client frame on the live socket.
type liveMessage struct {
	// Type is "init" to load the session soup or "update" to re-analyze.
	Type string `json:"type"`

	// Positions carries the triangle soup. Required on init, ignored after.
	Positions []float64 `json:"positions,omitempty"`

	// Transform places the solid. Zero value means identity.
	Transform geom.Transform `json:"transform"`

	// HangingPoint is the load application point for this update.
	HangingPoint [3]float64 `json:"hanging_point"`

	// TrialWeight is the load to classify. Must be positive.
	TrialWeight float64 `json:"trial_weight"`

	// IncludeRecords requests per-vertex records in every reply.
	IncludeRecords bool `json:"include_records"`
}

// liveReply is a server frame on the live socket.
type liveReply struct {
	// Type is "result" or "error".
	Type string `json:"type"`

	// Result is the analysis outcome for a "result" frame.
	Result *AnalyzeResponse `json:"result,omitempty"`

	// Error and Code describe an "error" frame.
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// HandleLive handles GET /v1/stress/live.
//
// Description:
//
//	Upgrades to a websocket session for interactive re-analysis. The first
//	frame must be an "init" carrying the triangle soup; each following
//	"update" frame re-runs the pipeline with new placement parameters.
//	A new update supersedes any in-flight run for the session, and
//	superseded runs publish nothing. Updates are rate limited.
//
// Response:
//
//	101 Switching Protocols on success; ErrorResponse otherwise.
func (h *Handlers) HandleLive(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleLive")

	conn, err := liveUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	sessionID := uuid.NewString()
	session := &liveSession{
		svc:       h.svc,
		conn:      conn,
		sessionID: sessionID,
		limiter:   rate.NewLimiter(rate.Limit(liveUpdatesPerSecond), liveUpdateBurst),
		logger:    logger.With("session_id", sessionID),
	}
	session.run(c)
}

// liveSession is the per-connection state of one live socket.
type liveSession struct {
	svc       *Engine
	conn      *websocket.Conn
	sessionID string
	limiter   *rate.Limiter
	logger    *slog.Logger

	// writeMu serializes frames from concurrent analysis goroutines.
	writeMu sync.Mutex

	// positions is the session soup, set by the init frame.
	positions []float64

	// pending tracks in-flight analysis goroutines for drain on close.
	pending sync.WaitGroup
}

// run drives the session read loop until the client disconnects.
func (s *liveSession) run(c *gin.Context) {
	defer func() {
		s.svc.Runs().CancelSession(s.sessionID)
		s.pending.Wait()
		s.conn.Close()
		s.logger.Info("live session closed")
	}()

	s.logger.Info("live session opened")

	for {
		var msg liveMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("live session read error", "error", err)
			}
			return
		}

		switch msg.Type {
		case "init":
			if len(msg.Positions) == 0 {
				s.writeError("init frame requires positions", "EMPTY_SOUP")
				continue
			}
			s.positions = msg.Positions
			s.logger.Info("live session soup loaded", "triangles", len(msg.Positions)/9)
			if msg.TrialWeight > 0 {
				s.dispatch(c, msg)
			}

		case "update":
			if s.positions == nil {
				s.writeError("no soup loaded, send an init frame first", "NOT_INITIALIZED")
				continue
			}
			if !s.limiter.Allow() {
				s.writeError("update rate limit exceeded", "RATE_LIMITED")
				continue
			}
			s.dispatch(c, msg)

		default:
			s.writeError("unknown frame type", "INVALID_REQUEST")
		}
	}
}

// dispatch starts the analysis for one frame. The run controller cancels any
// older in-flight run for this session.
func (s *liveSession) dispatch(c *gin.Context, msg liveMessage) {
	req := &AnalyzeRequest{
		Positions:      s.positions,
		Transform:      msg.Transform,
		HangingPoint:   msg.HangingPoint,
		TrialWeight:    msg.TrialWeight,
		IncludeRecords: msg.IncludeRecords,
		SessionID:      s.sessionID,
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		resp, err := s.svc.Analyze(c.Request.Context(), req)
		if err != nil {
			if errors.Is(err, ErrSuperseded) {
				return
			}
			_, code := analyzeErrorStatus(err)
			s.writeError(err.Error(), code)
			return
		}
		s.writeReply(liveReply{Type: "result", Result: resp})
	}()
}

func (s *liveSession) writeError(message, code string) {
	s.writeReply(liveReply{Type: "error", Error: message, Code: code})
}

func (s *liveSession) writeReply(reply liveReply) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := s.conn.WriteJSON(reply); err != nil {
		s.logger.Warn("live session write failed", "error", err)
	}
}
