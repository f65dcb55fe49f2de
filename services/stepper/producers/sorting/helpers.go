// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sorting

import (
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

func run(a *snapshot.ArrayState, body func(*trace.Recorder, *snapshot.ArrayState)) trace.Sequence {
	base := a.Clone()
	return func(yield func(snapshot.Step) bool) {
		body(trace.NewRecorder(yield), base.Clone())
	}
}

func view(a *snapshot.ArrayState, format string, args ...any) snapshot.Step {
	return snapshot.New(snapshot.OfArray(a), format, args...)
}

func sorted(a *snapshot.ArrayState) snapshot.Step {
	return view(a, "Sorted: %v", a.Values()).Mark(snapshot.RoleSorted, span(0, len(a.Cells))...).Done()
}

func value(a *snapshot.ArrayState, i int) int { return a.Cells[i].Value }

func swap(a *snapshot.ArrayState, i, j int) {
	a.Cells[i], a.Cells[j] = a.Cells[j], a.Cells[i]
}

// rotate moves the cell at j to i, shifting [i, j) right by one.
func rotate(a *snapshot.ArrayState, i, j int) {
	c := a.Cells[j]
	copy(a.Cells[i+1:j+1], a.Cells[i:j])
	a.Cells[i] = c
}

// span returns the indices [lo, hi).
func span(lo, hi int) []int {
	if hi <= lo {
		return nil
	}
	out := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}

// pointers labels the three DNF cursors, skipping any past the end.
func pointers(s snapshot.Step, low, mid, high int) snapshot.Step {
	n := len(s.Container.Array.Cells)
	for _, p := range []struct {
		i    int
		name string
	}{{low, "Low"}, {mid, "Mid"}, {high, "High"}} {
		if p.i >= 0 && p.i < n {
			s = s.Label(p.i, p.name)
		}
	}
	return s
}
