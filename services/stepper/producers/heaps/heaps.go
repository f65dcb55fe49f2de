// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package heaps produces traces for a binary heap stored in a flat array.
//
// # Description
//
// The array is read as a complete binary tree through index arithmetic:
// parent(i) = (i-1)/2, left(i) = 2i+1, right(i) = 2i+2. Swaps move whole
// cells, so an element's identity travels with its value.
package heaps

import (
	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Operation names.
const (
	OpInsert  = "INSERT"
	OpExtract = "EXTRACT"
	OpPeek    = "PEEK"
	OpBuild   = "BUILD"
)

// Kind selects the heap order.
type Kind string

const (
	Min Kind = "min"
	Max Kind = "max"
)

// before reports whether x belongs above y.
func (k Kind) before(x, y int) bool {
	if k == Max {
		return x > y
	}
	return x < y
}

func (k Kind) extreme() string {
	if k == Max {
		return "maximum"
	}
	return "minimum"
}

// Parent, Left and Right are the implicit tree links of index i.
func Parent(i int) int { return (i - 1) / 2 }
func Left(i int) int   { return 2*i + 1 }
func Right(i int) int  { return 2*i + 2 }

// Valid reports whether values satisfy the heap property for k.
func Valid(values []int, k Kind) bool {
	for i := 1; i < len(values); i++ {
		if k.before(values[i], values[Parent(i)]) {
			return false
		}
	}
	return true
}

// Insert appends value and sifts it up.
func Insert(a *snapshot.ArrayState, k Kind, value int) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		if work.Capacity > 0 && len(work.Cells) >= work.Capacity {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Overflow: heap is full (capacity %d)", work.Capacity))
			return
		}
		work.Cells = append(work.Cells, snapshot.Cell{ID: identity.Allocate(), Value: value})
		i := len(work.Cells) - 1
		if !rec.Emit(view(work, "Append %d at index %d", value, i).Mark(snapshot.RoleWriting, i)) {
			return
		}
		i, ok := siftUp(rec, work, k, i)
		if !ok {
			return
		}
		rec.Emit(view(work, "Inserted %d at index %d", value, i).Mark(snapshot.RoleFound, i).Done())
	})
}

// Extract removes the root. The terminal step's result is the removed value.
func Extract(a *snapshot.ArrayState, k Kind) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		if len(work.Cells) == 0 {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Underflow: heap is empty"))
			return
		}
		root := work.Cells[0].Value
		if !rec.Emit(view(work, "Root %d is the %s", root, k.extreme()).Mark(snapshot.RoleReading, 0)) {
			return
		}
		last := len(work.Cells) - 1
		if last > 0 {
			work.Cells[0] = work.Cells[last]
			work.Cells = work.Cells[:last]
			if !rec.Emit(view(work, "Move last element %d to the root", work.Cells[0].Value).Mark(snapshot.RoleWriting, 0)) {
				return
			}
			if !siftDown(rec, work, k, 0) {
				return
			}
		} else {
			work.Cells = work.Cells[:0]
		}
		rec.Emit(view(work, "Extracted %d", root).WithResult(root).Done())
	})
}

// Peek reads the root.
func Peek(a *snapshot.ArrayState, k Kind) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		if len(work.Cells) == 0 {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Underflow: heap is empty"))
			return
		}
		v := work.Cells[0].Value
		rec.Emit(view(work, "The %s is %d", k.extreme(), v).Mark(snapshot.RoleFound, 0).WithResult(v).Done())
	})
}

// Build heapifies the array bottom-up, sifting down every internal node from
// the last one to the root.
func Build(a *snapshot.ArrayState, k Kind) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		if work.Capacity > 0 && len(work.Cells) > work.Capacity {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Overflow: %d values exceed capacity %d", len(work.Cells), work.Capacity))
			return
		}
		heapify(rec, work, k)
	})
}

// Rebuild replaces the heap's contents with fresh cells for values and
// heapifies them. The capacity of a is kept.
func Rebuild(a *snapshot.ArrayState, k Kind, values []int) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		if work.Capacity > 0 && len(values) > work.Capacity {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Overflow: %d values exceed capacity %d", len(values), work.Capacity))
			return
		}
		work.Cells = snapshot.NewArray(values, 0).Cells
		if !rec.Emit(view(work, "Load %d values", len(values))) {
			return
		}
		heapify(rec, work, k)
	})
}

func heapify(rec *trace.Recorder, work *snapshot.ArrayState, k Kind) {
	work.Heap = string(k)
	for i := len(work.Cells)/2 - 1; i >= 0; i-- {
		if !rec.Emit(view(work, "Sift down from index %d (%d)", i, work.Cells[i].Value).Mark(snapshot.RoleHighlight, i)) {
			return
		}
		if !siftDown(rec, work, k, i) {
			return
		}
	}
	rec.Emit(view(work, "Built a %s-heap of %d elements", k, len(work.Cells)).Done())
}

// siftUp swaps i with its parent while it belongs above it. It returns the
// final index.
func siftUp(rec *trace.Recorder, a *snapshot.ArrayState, k Kind, i int) (int, bool) {
	for i > 0 {
		p := Parent(i)
		cv, pv := a.Cells[i].Value, a.Cells[p].Value
		if !rec.Emit(view(a, "Compare %d with parent %d", cv, pv).Mark(snapshot.RoleComparing, i, p)) {
			return i, false
		}
		if !k.before(cv, pv) {
			break
		}
		a.Cells[i], a.Cells[p] = a.Cells[p], a.Cells[i]
		if !rec.Emit(view(a, "Swap %d and %d", cv, pv).Mark(snapshot.RoleSwapping, i, p)) {
			return p, false
		}
		i = p
	}
	return i, true
}

// siftDown swaps i with its preferred child until both children are in order.
func siftDown(rec *trace.Recorder, a *snapshot.ArrayState, k Kind, i int) bool {
	n := len(a.Cells)
	for {
		l, r := Left(i), Right(i)
		if l >= n {
			return true
		}
		best := l
		if r < n && k.before(a.Cells[r].Value, a.Cells[l].Value) {
			best = r
		}
		children := []int{l}
		if r < n {
			children = append(children, r)
		}
		cv, bv := a.Cells[i].Value, a.Cells[best].Value
		if !rec.Emit(view(a, "Compare %d with child %d", cv, bv).
			Mark(snapshot.RoleComparing, append(children, i)...).Mark(snapshot.RoleCandidate, best)) {
			return false
		}
		if !k.before(bv, cv) {
			return true
		}
		a.Cells[i], a.Cells[best] = a.Cells[best], a.Cells[i]
		if !rec.Emit(view(a, "Swap %d and %d", cv, bv).Mark(snapshot.RoleSwapping, i, best)) {
			return false
		}
		i = best
	}
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
		s = s.Label(0, "Root")
	}
	return s
}
