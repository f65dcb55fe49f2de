// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sorting produces traces for comparison sorts over an array.
//
// # Description
//
// Every algorithm rearranges whole cells, never copies values, so each
// element keeps its identity from the first step to the last. Merge sort
// merges in place by rotating the smaller right-hand element into position,
// which keeps the array free of duplicated cells between steps.
package sorting

import (
	"fmt"

	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Operation names.
const (
	OpBubble    = "BUBBLE"
	OpSelection = "SELECTION"
	OpInsertion = "INSERTION"
	OpMerge     = "MERGE"
	OpQuick     = "QUICK"
	OpDNF       = "DNF"
)

// Bubble sorts by repeatedly swapping adjacent out-of-order pairs. A pass
// without swaps ends the sort early.
func Bubble(a *snapshot.ArrayState) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		n := len(work.Cells)
		for pass := 0; pass < n-1; pass++ {
			swapped := false
			last := n - 1 - pass
			for j := 0; j < last; j++ {
				x, y := value(work, j), value(work, j+1)
				if !rec.Emit(view(work, "Compare %d and %d", x, y).
					Mark(snapshot.RoleComparing, j, j+1).Mark(snapshot.RoleSorted, span(last+1, n)...)) {
					return
				}
				if x <= y {
					continue
				}
				swap(work, j, j+1)
				swapped = true
				if !rec.Emit(view(work, "Swap %d and %d", x, y).
					Mark(snapshot.RoleSwapping, j, j+1).Mark(snapshot.RoleSorted, span(last+1, n)...)) {
					return
				}
			}
			if !swapped {
				if !rec.Emit(view(work, "No swaps in pass %d: the array is sorted", pass+1)) {
					return
				}
				break
			}
			if !rec.Emit(view(work, "Pass %d done: %d is in place", pass+1, value(work, last)).
				Mark(snapshot.RoleSorted, span(last, n)...)) {
				return
			}
		}
		rec.Emit(sorted(work))
	})
}

// Selection swaps the minimum of the unsorted suffix into its front.
func Selection(a *snapshot.ArrayState) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		n := len(work.Cells)
		for i := 0; i < n-1; i++ {
			m := i
			for j := i + 1; j < n; j++ {
				if !rec.Emit(view(work, "Compare %d with minimum %d", value(work, j), value(work, m)).
					Mark(snapshot.RoleComparing, j).Mark(snapshot.RoleCandidate, m).
					Mark(snapshot.RoleSorted, span(0, i)...).Label(m, "Min")) {
					return
				}
				if value(work, j) < value(work, m) {
					m = j
				}
			}
			if m == i {
				if !rec.Emit(view(work, "%d is already in place at index %d", value(work, i), i).
					Mark(snapshot.RoleSorted, span(0, i+1)...)) {
					return
				}
				continue
			}
			swap(work, i, m)
			if !rec.Emit(view(work, "Swap minimum %d into index %d", value(work, i), i).
				Mark(snapshot.RoleSwapping, i, m).Mark(snapshot.RoleSorted, span(0, i+1)...)) {
				return
			}
		}
		rec.Emit(sorted(work))
	})
}

// Insertion grows a sorted prefix, swapping each new element left until it
// is not smaller than its neighbour.
func Insertion(a *snapshot.ArrayState) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		for i := 1; i < len(work.Cells); i++ {
			key := value(work, i)
			if !rec.Emit(view(work, "Take %d", key).Mark(snapshot.RoleHighlight, i).
				Mark(snapshot.RoleSorted, span(0, i)...).Label(i, "Key")) {
				return
			}
			j := i
			for ; j > 0 && value(work, j-1) > key; j-- {
				swap(work, j-1, j)
				if !rec.Emit(view(work, "%d is larger: move it right", value(work, j)).
					Mark(snapshot.RoleSwapping, j-1, j).Label(j-1, "Key")) {
					return
				}
			}
			if !rec.Emit(view(work, "Insert %d at index %d", key, j).
				Mark(snapshot.RoleWriting, j).Mark(snapshot.RoleSorted, span(0, i+1)...)) {
				return
			}
		}
		rec.Emit(sorted(work))
	})
}

// Merge is top-down merge sort.
func Merge(a *snapshot.ArrayState) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		if mergeSort(rec, work, 0, len(work.Cells)) {
			rec.Emit(sorted(work))
		}
	})
}

func mergeSort(rec *trace.Recorder, a *snapshot.ArrayState, lo, hi int) bool {
	if hi-lo < 2 {
		return true
	}
	mid := (lo + hi) / 2
	if !rec.Emit(view(a, "Split [%d, %d) at %d", lo, hi, mid).
		Mark(snapshot.RoleHighlight, span(lo, hi)...).Label(lo, "Lo").Label(mid, "Mid")) {
		return false
	}
	if !mergeSort(rec, a, lo, mid) || !mergeSort(rec, a, mid, hi) {
		return false
	}

	i, j := lo, mid
	for i < j && j < hi {
		x, y := value(a, i), value(a, j)
		if !rec.Emit(view(a, "Compare %d and %d", x, y).
			Mark(snapshot.RoleComparing, i, j).Mark(snapshot.RoleSorted, span(lo, i)...)) {
			return false
		}
		if x <= y {
			i++
			continue
		}
		rotate(a, i, j)
		if !rec.Emit(view(a, "Move %d in front of %d", y, x).
			Mark(snapshot.RoleWriting, i).Mark(snapshot.RoleSorted, span(lo, i+1)...)) {
			return false
		}
		i++
		j++
	}
	return rec.Emit(view(a, "Merged [%d, %d)", lo, hi).Mark(snapshot.RoleSorted, span(lo, hi)...))
}

// Quick is quicksort with the Lomuto partition, pivoting on the last element.
func Quick(a *snapshot.ArrayState) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		if quickSort(rec, work, 0, len(work.Cells)-1) {
			rec.Emit(sorted(work))
		}
	})
}

func quickSort(rec *trace.Recorder, a *snapshot.ArrayState, lo, hi int) bool {
	if lo >= hi {
		return true
	}
	pivot := value(a, hi)
	if !rec.Emit(view(a, "Partition [%d, %d] around pivot %d", lo, hi, pivot).
		Mark(snapshot.RolePivot, hi).Mark(snapshot.RoleHighlight, span(lo, hi+1)...)) {
		return false
	}
	i := lo
	for j := lo; j < hi; j++ {
		if !rec.Emit(view(a, "Compare %d with pivot %d", value(a, j), pivot).
			Mark(snapshot.RoleComparing, j).Mark(snapshot.RolePivot, hi).Label(i, "Store")) {
			return false
		}
		if value(a, j) >= pivot {
			continue
		}
		if i != j {
			swap(a, i, j)
			if !rec.Emit(view(a, "Swap %d and %d", value(a, i), value(a, j)).
				Mark(snapshot.RoleSwapping, i, j).Mark(snapshot.RolePivot, hi)) {
				return false
			}
		}
		i++
	}
	swap(a, i, hi)
	if !rec.Emit(view(a, "Place pivot %d at index %d", pivot, i).Mark(snapshot.RoleSorted, i)) {
		return false
	}
	return quickSort(rec, a, lo, i-1) && quickSort(rec, a, i+1, hi)
}

// DNF is the Dutch national flag three-way partition over the values 0, 1
// and 2. Any other value rejects the run.
func DNF(a *snapshot.ArrayState) trace.Sequence {
	return run(a, func(rec *trace.Recorder, work *snapshot.ArrayState) {
		for i := range work.Cells {
			if v := value(work, i); v < 0 || v > 2 {
				rec.Emit(snapshot.Rejected(snapshot.OfArray(work),
					"Dutch national flag sort needs values 0, 1 or 2; index %d holds %d", i, v))
				return
			}
		}
		low, mid, high := 0, 0, len(work.Cells)-1
		for mid <= high {
			v := value(work, mid)
			var msg string
			switch v {
			case 0:
				swap(work, low, mid)
				msg = fmt.Sprintf("0 goes to the low region: swap indices %d and %d", low, mid)
				low++
				mid++
			case 1:
				msg = fmt.Sprintf("1 stays in the middle at index %d", mid)
				mid++
			default:
				swap(work, mid, high)
				msg = fmt.Sprintf("2 goes to the high region: swap indices %d and %d", mid, high)
				high--
			}
			if !rec.Emit(pointers(view(work, "%s", msg), low, mid, high)) {
				return
			}
		}
		rec.Emit(sorted(work))
	})
}
