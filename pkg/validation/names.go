// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// namePattern matches structure names. They become badger key segments and
// URL path parameters, so separators and whitespace are excluded.
// Max length: 64 characters
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// opPattern matches canonical operation names such as PUSH or DELETE_BY_INDEX.
var opPattern = regexp.MustCompile(`^[A-Z][A-Z_]{0,31}$`)

// ValidateName validates a structure name.
//
// Valid names:
//   - 1-64 characters
//   - Letters and digits
//   - Dots, underscores and hyphens after the first character
//
// Example:
//
//	if err := validation.ValidateName(name); err != nil {
//	    return fmt.Errorf("%w: %v", ErrInvalidName, err)
//	}
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid name format: %q (must be 1-64 letters, digits, dots, underscores or hyphens)", name)
	}
	return nil
}

// SanitizeOp normalizes and validates an operation name.
// Returns the uppercase name if valid, or an error if invalid.
//
//	op, err := validation.SanitizeOp("push")
//	// op == "PUSH"
func SanitizeOp(op string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(op))
	if normalized == "" {
		return "", fmt.Errorf("operation cannot be empty")
	}
	if !opPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid operation format: %q (must be letters and underscores)", op)
	}
	return normalized, nil
}
