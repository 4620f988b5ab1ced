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
	"context"
	"sync"
	"sync/atomic"
)

// RunController enforces supersede semantics: each session holds at most one
// in-flight analysis, and a newer request for the same session cancels the
// older one. Sessionless runs are tracked only for the active count.
//
// Thread Safety: Safe for concurrent use.
type RunController struct {
	mu   sync.Mutex
	runs map[string]*runHandle

	active atomic.Int64
}

type runHandle struct {
	runID  string
	cancel context.CancelCauseFunc
}

// NewRunController creates an empty controller.
func NewRunController() *RunController {
	return &RunController{
		runs: make(map[string]*runHandle),
	}
}

// Begin registers a run and returns its context.
//
// Description:
//
//	For a non-empty sessionID, any in-flight run of the same session is
//	cancelled with ErrSuperseded before the new run's context is created.
//	The returned done function must be called when the run finishes; it
//	releases the slot only if the run is still the session's current one.
//
// Inputs:
//   - parent: Parent context. Must not be nil.
//   - sessionID: Session key, or "" for a one-shot run.
//   - runID: Unique ID of the new run.
//
// Outputs:
//   - context.Context: Context cancelled when the run is superseded.
//   - func(): Completion callback. Safe to call exactly once.
//
// Thread Safety: Safe for concurrent use.
func (rc *RunController) Begin(parent context.Context, sessionID, runID string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	rc.active.Add(1)

	if sessionID == "" {
		var once sync.Once
		return ctx, func() {
			once.Do(func() {
				cancel(nil)
				rc.active.Add(-1)
			})
		}
	}

	rc.mu.Lock()
	if prev, ok := rc.runs[sessionID]; ok {
		prev.cancel(ErrSuperseded)
	}
	handle := &runHandle{runID: runID, cancel: cancel}
	rc.runs[sessionID] = handle
	rc.mu.Unlock()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			rc.mu.Lock()
			if cur, ok := rc.runs[sessionID]; ok && cur == handle {
				delete(rc.runs, sessionID)
			}
			rc.mu.Unlock()
			cancel(nil)
			rc.active.Add(-1)
		})
	}
}

// Active returns the number of in-flight runs.
func (rc *RunController) Active() int {
	return int(rc.active.Load())
}

// CancelSession cancels the session's in-flight run, if any.
func (rc *RunController) CancelSession(sessionID string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if prev, ok := rc.runs[sessionID]; ok {
		prev.cancel(ErrSuperseded)
		delete(rc.runs, sessionID)
	}
}
