// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot defines the immutable record of one instant of an
// algorithm run.
//
// # Description
//
// A Step carries a full copy of the data structure (Container), role-tagged
// points of interest, pointer labels, a message, an optional pseudo-code
// line, and whether it is the last step of its trace.
//
// # Value Semantics
//
// Steps are values. The builder methods (Mark, Label, Done, ...) never write
// into maps shared with the receiver; they return a modified copy. Use Clone
// before handing a Step to a second owner.
//
// # Thread Safety
//
// A Step that is not being mutated may be read from any goroutine.
package snapshot

import (
	"fmt"
	"maps"
	"slices"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
)

// Role tags a set of indices or identities as interesting for one reason.
type Role string

const (
	RoleComparing  Role = "comparing"
	RoleSwapping   Role = "swapping"
	RoleReading    Role = "reading"
	RoleWriting    Role = "writing"
	RoleSorted     Role = "sorted"
	RoleVisited    Role = "visited"
	RoleFound      Role = "found"
	RoleActiveEdge Role = "active-edge"
	RoleTreeEdge   Role = "tree-edge"
	RoleRejected   Role = "rejected"
	RoleCandidate  Role = "candidate-set"
	RolePath       Role = "path"
	RolePivot      Role = "pivot"
	RoleMatched    Role = "matched"
	RoleMismatch   Role = "mismatch"
	RoleHighlight  Role = "highlight"
)

// Selection is the set of indices and identities tagged with one role.
type Selection struct {
	Indices []int         `json:"indices,omitempty"`
	IDs     []identity.ID `json:"ids,omitempty"`
}

// Outcome describes how a terminal step ended the trace.
type Outcome string

const (
	// OutcomePending marks a non-terminal step.
	OutcomePending Outcome = ""

	// OutcomeCompleted marks normal completion.
	OutcomeCompleted Outcome = "completed"

	// OutcomeRejected marks a failed precondition (range, underflow, ...).
	OutcomeRejected Outcome = "rejected"
)

// Step is one recorded instant of an operation.
type Step struct {
	Container   Container              `json:"container"`
	Points      map[Role]Selection     `json:"points,omitempty"`
	IndexLabels map[int]string         `json:"index_labels,omitempty"`
	IDLabels    map[identity.ID]string `json:"id_labels,omitempty"`
	Message     string                 `json:"message"`
	CodeLine    int                    `json:"code_line,omitempty"`
	Terminal    bool                   `json:"terminal,omitempty"`
	Outcome     Outcome                `json:"outcome,omitempty"`
	Result      *int                   `json:"result,omitempty"`
}

// New returns a step over a clone of c.
func New(c Container, format string, args ...any) Step {
	return Step{Container: c.Clone(), Message: fmt.Sprintf(format, args...)}
}

// Rejected returns a terminal step reporting a failed precondition.
func Rejected(c Container, format string, args ...any) Step {
	s := New(c, format, args...)
	s.Terminal = true
	s.Outcome = OutcomeRejected
	return s
}

// Mark returns a copy of s with indices added to role.
func (s Step) Mark(role Role, indices ...int) Step {
	if len(indices) == 0 {
		return s
	}
	s.Points = clonePoints(s.Points)
	if s.Points == nil {
		s.Points = make(map[Role]Selection, 1)
	}
	sel := s.Points[role]
	sel.Indices = append(slices.Clone(sel.Indices), indices...)
	s.Points[role] = sel
	return s
}

// MarkIDs returns a copy of s with identities added to role.
func (s Step) MarkIDs(role Role, ids ...identity.ID) Step {
	ids = slices.DeleteFunc(slices.Clone(ids), identity.ID.IsNone)
	if len(ids) == 0 {
		return s
	}
	s.Points = clonePoints(s.Points)
	if s.Points == nil {
		s.Points = make(map[Role]Selection, 1)
	}
	sel := s.Points[role]
	sel.IDs = append(slices.Clone(sel.IDs), ids...)
	s.Points[role] = sel
	return s
}

// Label returns a copy of s with a pointer label on index i.
//
// Labels on the same index are joined with "/".
func (s Step) Label(i int, text string) Step {
	s.IndexLabels = maps.Clone(s.IndexLabels)
	if s.IndexLabels == nil {
		s.IndexLabels = make(map[int]string)
	}
	if prev, ok := s.IndexLabels[i]; ok && prev != text {
		text = prev + "/" + text
	}
	s.IndexLabels[i] = text
	return s
}

// LabelID returns a copy of s with a pointer label on an identity.
//
// Labels on None are dropped. Labels on the same identity are joined with "/".
func (s Step) LabelID(id identity.ID, text string) Step {
	if id.IsNone() {
		return s
	}
	s.IDLabels = maps.Clone(s.IDLabels)
	if s.IDLabels == nil {
		s.IDLabels = make(map[identity.ID]string)
	}
	if prev, ok := s.IDLabels[id]; ok && prev != text {
		text = prev + "/" + text
	}
	s.IDLabels[id] = text
	return s
}

// Line returns a copy of s pointing at pseudo-code line n.
func (s Step) Line(n int) Step {
	s.CodeLine = n
	return s
}

// Done returns a copy of s marked as the successful terminal step.
func (s Step) Done() Step {
	s.Terminal = true
	s.Outcome = OutcomeCompleted
	return s
}

// WithResult returns a copy of s carrying a scalar result (found index,
// extracted value, root, ...).
func (s Step) WithResult(v int) Step {
	s.Result = &v
	return s
}

// Has reports whether role selects the given index.
func (s Step) Has(role Role, index int) bool {
	return slices.Contains(s.Points[role].Indices, index)
}

// HasID reports whether role selects the given identity.
func (s Step) HasID(role Role, id identity.ID) bool {
	return slices.Contains(s.Points[role].IDs, id)
}

// Clone returns a deep copy of s.
func (s Step) Clone() Step {
	out := s
	out.Container = s.Container.Clone()
	out.Points = clonePoints(s.Points)
	out.IndexLabels = maps.Clone(s.IndexLabels)
	out.IDLabels = maps.Clone(s.IDLabels)
	if s.Result != nil {
		v := *s.Result
		out.Result = &v
	}
	return out
}

// RemapIDs returns a deep copy of s with every identity rewritten by f.
//
// Used to compare traces whose freshly created elements received different
// identities.
func (s Step) RemapIDs(f func(identity.ID) identity.ID) Step {
	out := s.Clone()
	out.Container.remap(f)
	for role, sel := range out.Points {
		for i, id := range sel.IDs {
			sel.IDs[i] = f(id)
		}
		out.Points[role] = sel
	}
	if out.IDLabels != nil {
		labels := make(map[identity.ID]string, len(out.IDLabels))
		for id, text := range out.IDLabels {
			labels[f(id)] = text
		}
		out.IDLabels = labels
	}
	return out
}

func clonePoints(p map[Role]Selection) map[Role]Selection {
	if p == nil {
		return nil
	}
	out := make(map[Role]Selection, len(p)+1)
	for role, sel := range p {
		out[role] = Selection{Indices: slices.Clone(sel.Indices), IDs: slices.Clone(sel.IDs)}
	}
	return out
}
