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

import "errors"

// Sentinel errors returned by the engine and its handlers.
//
// Only invalid input aborts an analysis. Geometric oddities (degenerate
// triangles, missing adjacency, raycast misses) degrade with flags on the
// per-vertex records and are never surfaced as errors.
var (
	// ErrNonPositiveWeight indicates the trial weight was zero or negative.
	ErrNonPositiveWeight = errors.New("trial weight must be positive")

	// ErrNonFiniteHangPoint indicates the hanging point contains NaN or Inf.
	ErrNonFiniteHangPoint = errors.New("hanging point must be finite")

	// ErrSuperseded indicates a newer request for the same session cancelled
	// this run before it completed. Superseded runs publish nothing.
	ErrSuperseded = errors.New("analysis superseded by a newer request")

	// ErrEngineClosed indicates the engine has been shut down.
	ErrEngineClosed = errors.New("engine is closed")
)
