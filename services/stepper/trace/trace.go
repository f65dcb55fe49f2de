// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trace turns lazy step sequences into indexable traces.
//
// # Overview
//
// Producers expose an operation as a Sequence: a single-pass, finite,
// pull-driven iterator of snapshot.Step. A Sequence cannot be restarted in
// place; running the same operation again means calling the producer again.
//
// Materialize drains a Sequence into a Trace so that playback can scrub to an
// arbitrary index.
//
// # Lifecycle
//
//  1. A producer builds a Recorder around the iterator's yield function.
//  2. The producer emits steps; the Recorder clones each one and stops calling
//     yield as soon as the consumer stops.
//  3. Materialize (or a Puller) consumes the steps.
//
// # Thread Safety
//
// A Trace is immutable after Materialize returns and may be shared. Sequences
// and Pullers must be consumed from one goroutine.
package trace

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
)

// Sentinel errors for materialization.
var (
	// ErrEmptyTrace is returned when a sequence yields no steps at all.
	ErrEmptyTrace = errors.New("trace has no steps")

	// ErrNotTerminated is returned when the last step is not terminal.
	ErrNotTerminated = errors.New("trace does not end with a terminal step")

	// ErrTerminalNotLast is returned when a terminal step is followed by more steps.
	ErrTerminalNotLast = errors.New("terminal step is not the last step")

	// ErrIndexOutOfRange is returned by At for an index outside the trace.
	ErrIndexOutOfRange = errors.New("step index out of range")
)

// Sequence is a lazy, single-pass, finite stream of steps.
type Sequence = iter.Seq[snapshot.Step]

// Trace is a materialized, non-empty, ordered list of steps produced by one
// operation invocation.
type Trace struct {
	Family string          `json:"family"`
	Op     string          `json:"op"`
	Steps  []snapshot.Step `json:"steps"`
}

// Materialize pulls seq to exhaustion.
//
// Description:
//
//	Preserves order and never skips or deduplicates steps, even value-equal
//	ones. Validates that the trace is non-empty and that exactly the last
//	step is terminal.
//
// Inputs:
//   - family, op: Names recorded on the trace.
//   - seq: The producer's sequence. Consumed once.
//
// Outputs:
//   - Trace: The materialized trace.
//   - error: ErrEmptyTrace, ErrNotTerminated or ErrTerminalNotLast.
func Materialize(family, op string, seq Sequence) (Trace, error) {
	t := Trace{Family: family, Op: op}
	for step := range seq {
		t.Steps = append(t.Steps, step)
	}
	if err := t.Validate(); err != nil {
		return Trace{}, fmt.Errorf("materialize %s/%s: %w", family, op, err)
	}
	return t, nil
}

// Validate checks the terminal-step invariants.
func (t Trace) Validate() error {
	if len(t.Steps) == 0 {
		return ErrEmptyTrace
	}
	for i, s := range t.Steps[:len(t.Steps)-1] {
		if s.Terminal {
			return fmt.Errorf("%w: step %d of %d", ErrTerminalNotLast, i, len(t.Steps))
		}
	}
	if !t.Steps[len(t.Steps)-1].Terminal {
		return ErrNotTerminated
	}
	return nil
}

// Len returns the number of steps.
func (t Trace) Len() int { return len(t.Steps) }

// At returns step i.
func (t Trace) At(i int) (snapshot.Step, error) {
	if i < 0 || i >= len(t.Steps) {
		return snapshot.Step{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(t.Steps))
	}
	return t.Steps[i], nil
}

// Last returns the terminal step. The trace must be non-empty.
func (t Trace) Last() snapshot.Step {
	return t.Steps[len(t.Steps)-1]
}

// Final returns a copy of the container the trace commits.
func (t Trace) Final() snapshot.Container {
	return t.Last().Container.Clone()
}

// Rejected reports whether the trace ended on a failed precondition.
func (t Trace) Rejected() bool {
	return len(t.Steps) > 0 && t.Last().Outcome == snapshot.OutcomeRejected
}

// Canonical returns a copy of t with identities renumbered by order of first
// appearance. Two runs of the same operation over the same input are
// Canonical-equal even though new elements received fresh identities.
func Canonical(t Trace) Trace {
	mapping := map[identity.ID]identity.ID{identity.None: identity.None}
	next := identity.ID(0)
	f := func(id identity.ID) identity.ID {
		if v, ok := mapping[id]; ok {
			return v
		}
		next++
		mapping[id] = next
		return next
	}
	out := Trace{Family: t.Family, Op: t.Op, Steps: make([]snapshot.Step, len(t.Steps))}
	for i, s := range t.Steps {
		for _, id := range s.Container.IDs() {
			f(id)
		}
		roles := slices.Sorted(maps.Keys(s.Points))
		for _, role := range roles {
			for _, id := range s.Points[role].IDs {
				f(id)
			}
		}
		for _, id := range slices.Sorted(maps.Keys(s.IDLabels)) {
			f(id)
		}
		out.Steps[i] = s.RemapIDs(f)
	}
	return out
}
