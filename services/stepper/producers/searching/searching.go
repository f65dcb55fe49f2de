// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package searching produces traces for linear and binary search. The
// terminal step's result is the index found, or -1.
package searching

import (
	"fmt"
	"slices"

	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Operation names.
const (
	OpLinear = "LINEAR"
	OpBinary = "BINARY"
)

// Linear scans from the front.
func Linear(a *snapshot.ArrayState, value int) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		for i, c := range work.Cells {
			if c.Value == value {
				rec.Emit(view(work, "Found %d at index %d", value, i).
					Mark(snapshot.RoleFound, i).Mark(snapshot.RoleVisited, span(0, i)...).WithResult(i).Done())
				return
			}
			if !rec.Emit(view(work, "%d at index %d is not %d", c.Value, i, value).
				Mark(snapshot.RoleComparing, i).Mark(snapshot.RoleVisited, span(0, i)...).Label(i, "i")) {
				return
			}
		}
		rec.Emit(view(work, "%d not found", value).Mark(snapshot.RoleVisited, span(0, len(work.Cells))...).WithResult(-1).Done())
	})
}

// Binary halves a sorted array around its middle element. Unsorted input is
// rejected before the first probe.
func Binary(a *snapshot.ArrayState, value int) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		if !slices.IsSorted(work.Values()) {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Binary search needs a sorted array"))
			return
		}
		lo, hi := 0, len(work.Cells)-1
		for lo <= hi {
			mid := lo + (hi-lo)/2
			v := work.Cells[mid].Value
			s := view(work, "%s", "").Label(lo, "Low").Label(mid, "Mid").Label(hi, "High").
				Mark(snapshot.RoleCandidate, span(lo, hi+1)...)
			switch {
			case v == value:
				s.Message = fmt.Sprintf("Found %d at index %d", value, mid)
				rec.Emit(s.Mark(snapshot.RoleFound, mid).WithResult(mid).Done())
				return
			case v < value:
				s.Message = fmt.Sprintf("%d at index %d is less than %d: search the right half", v, mid, value)
				lo = mid + 1
			default:
				s.Message = fmt.Sprintf("%d at index %d is greater than %d: search the left half", v, mid, value)
				hi = mid - 1
			}
			if !rec.Emit(s.Mark(snapshot.RoleComparing, mid)) {
				return
			}
		}
		rec.Emit(view(work, "%d not found", value).WithResult(-1).Done())
	})
}

func run(a *snapshot.ArrayState, body func(*trace.Recorder, *snapshot.ArrayState)) trace.Sequence {
	base := a.Clone()
	return func(yield func(snapshot.Step) bool) {
		body(trace.NewRecorder(yield), base.Clone())
	}
}

func view(a *snapshot.ArrayState, format string, args ...any) snapshot.Step {
	return snapshot.New(snapshot.OfArray(a), format, args...)
}

func span(lo, hi int) []int {
	var out []int
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}
