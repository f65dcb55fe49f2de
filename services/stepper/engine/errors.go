// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import "errors"

// Sentinel errors for RunOperation and NewStructure.
//
// These cover caller mistakes only. Domain failures such as an index out of
// range or an empty stack are never errors; they arrive as a rejected
// terminal step inside a successful trace.
var (
	// ErrUnknownFamily is returned for a family with no registered operations.
	ErrUnknownFamily = errors.New("unknown family")

	// ErrUnknownOp is returned for an operation the family does not support.
	ErrUnknownOp = errors.New("unknown operation")

	// ErrKindMismatch is returned when the state's container does not belong
	// to the requested family.
	ErrKindMismatch = errors.New("container does not match family")

	// ErrMissingParam is returned when a required parameter is absent.
	ErrMissingParam = errors.New("missing parameter")

	// ErrDuplicateOp is returned by Register for an already-registered pair.
	ErrDuplicateOp = errors.New("operation already registered")

	// ErrCapacity is returned when a requested capacity or element count is
	// outside the configured limits.
	ErrCapacity = errors.New("capacity out of bounds")

	// ErrInvalidStructure is returned when structure inputs cannot be parsed.
	ErrInvalidStructure = errors.New("invalid structure")
)
