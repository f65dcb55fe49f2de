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

import (
	"fmt"
	"strings"
)

// Param names one field of Params.
type Param string

const (
	ParamIndex   Param = "index"
	ParamValue   Param = "value"
	ParamSecond  Param = "second"
	ParamK       Param = "k"
	ParamValues  Param = "values"
	ParamVertex  Param = "vertex"
	ParamText    Param = "text"
	ParamPattern Param = "pattern"
)

// Params are the primitive arguments of an operation. Pointer fields
// distinguish "absent" from zero.
type Params struct {
	Index   *int   `json:"index,omitempty"`
	Value   *int   `json:"value,omitempty"`
	Second  *int   `json:"second,omitempty"`
	K       *int   `json:"k,omitempty"`
	Values  []int  `json:"values,omitempty"`
	Vertex  string `json:"vertex,omitempty"`
	Text    string `json:"text,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// Int returns a pointer to v, for building Params literals.
func Int(v int) *int { return &v }

// Has reports whether p is present.
func (p Params) Has(name Param) bool {
	switch name {
	case ParamIndex:
		return p.Index != nil
	case ParamValue:
		return p.Value != nil
	case ParamSecond:
		return p.Second != nil
	case ParamK:
		return p.K != nil
	case ParamValues:
		return p.Values != nil
	case ParamVertex:
		return p.Vertex != ""
	case ParamText:
		return p.Text != ""
	case ParamPattern:
		return p.Pattern != ""
	}
	return false
}

// Require returns ErrMissingParam naming every absent parameter.
func (p Params) Require(names ...Param) error {
	var missing []string
	for _, n := range names {
		if !p.Has(n) {
			missing = append(missing, string(n))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingParam, strings.Join(missing, ", "))
	}
	return nil
}

// String renders the present parameters as "index=1 value=5".
func (p Params) String() string {
	var parts []string
	add := func(name Param, v *int) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s=%d", name, *v))
		}
	}
	add(ParamIndex, p.Index)
	add(ParamValue, p.Value)
	add(ParamSecond, p.Second)
	add(ParamK, p.K)
	if p.Values != nil {
		parts = append(parts, fmt.Sprintf("%s=%v", ParamValues, p.Values))
	}
	if p.Vertex != "" {
		parts = append(parts, fmt.Sprintf("%s=%s", ParamVertex, p.Vertex))
	}
	if p.Text != "" {
		parts = append(parts, fmt.Sprintf("%s=%q", ParamText, p.Text))
	}
	if p.Pattern != "" {
		parts = append(parts, fmt.Sprintf("%s=%q", ParamPattern, p.Pattern))
	}
	return strings.Join(parts, " ")
}
