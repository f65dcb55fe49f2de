// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stepper

import "errors"

var (
	// ErrTraceNotFound is returned when a trace id is unknown or evicted.
	ErrTraceNotFound = errors.New("trace not found")

	// ErrUnknownAction is returned for an unsupported playback action.
	ErrUnknownAction = errors.New("unknown playback action")

	// ErrInvalidArgument is returned when an action is missing its argument.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrServiceClosed is returned after Close.
	ErrServiceClosed = errors.New("service is closed")
)
