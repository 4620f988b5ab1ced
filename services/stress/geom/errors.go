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

import "errors"

// Sentinel errors for the geom package. These are the only abort paths in the
// pipeline: everything downstream of soup construction degrades instead of
// failing (see the shape and score packages).
var (
	// ErrEmptySoup indicates the position list contained no triangles.
	ErrEmptySoup = errors.New("empty triangle soup")

	// ErrBadSoupLength indicates the position list length is not a multiple
	// of 9 (three corners of three coordinates per triangle).
	ErrBadSoupLength = errors.New("triangle soup length is not a multiple of 9")

	// ErrNonFiniteCoordinate indicates a NaN or infinite input coordinate.
	ErrNonFiniteCoordinate = errors.New("non-finite coordinate in triangle soup")

	// ErrBadTransform indicates a non-finite or non-positive-scale transform.
	ErrBadTransform = errors.New("invalid rigid transform")

	// ErrBadResolution indicates a non-positive spatial resolution.
	ErrBadResolution = errors.New("spatial resolution must be positive")
)
