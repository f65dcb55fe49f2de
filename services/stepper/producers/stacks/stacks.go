// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stacks produces traces for an array-backed stack. Index 0 is the
// bottom; the last cell is the top. Capacity 0 means unbounded.
package stacks

import (
	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Operation names.
const (
	OpPush = "PUSH"
	OpPop  = "POP"
	OpPeek = "PEEK"
)

// Push places value on top of the stack.
func Push(a *snapshot.ArrayState, value int) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		if work.Capacity > 0 && len(work.Cells) >= work.Capacity {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Overflow: stack is full (capacity %d)", work.Capacity))
			return
		}
		if !rec.Emit(view(work, "Push %d", value)) {
			return
		}
		work.Cells = append(work.Cells, snapshot.Cell{ID: identity.Allocate(), Value: value})
		top := len(work.Cells) - 1
		rec.Emit(view(work, "Pushed %d; top is now index %d", value, top).Mark(snapshot.RoleWriting, top).Done())
	})
}

// Pop removes the top element. The terminal step's result is its value.
func Pop(a *snapshot.ArrayState) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		if len(work.Cells) == 0 {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Underflow: stack is empty"))
			return
		}
		top := len(work.Cells) - 1
		value := work.Cells[top].Value
		if !rec.Emit(view(work, "Top is %d", value).Mark(snapshot.RoleReading, top)) {
			return
		}
		work.Cells = work.Cells[:top]
		rec.Emit(view(work, "Popped %d", value).WithResult(value).Done())
	})
}

// Peek reads the top element without removing it.
func Peek(a *snapshot.ArrayState) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		if len(work.Cells) == 0 {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Underflow: stack is empty"))
			return
		}
		top := len(work.Cells) - 1
		value := work.Cells[top].Value
		rec.Emit(view(work, "Top is %d", value).Mark(snapshot.RoleFound, top).WithResult(value).Done())
	})
}

func run(a *snapshot.ArrayState, body func(*trace.Recorder, *snapshot.ArrayState)) trace.Sequence {
	base := a.Clone()
	return func(yield func(snapshot.Step) bool) {
		body(trace.NewRecorder(yield), base.Clone())
	}
}

func view(a *snapshot.ArrayState, format string, args ...any) snapshot.Step {
	s := snapshot.New(snapshot.OfArray(a), format, args...)
	if len(a.Cells) > 0 {
		s = s.Label(len(a.Cells)-1, "Top")
	}
	return s
}
