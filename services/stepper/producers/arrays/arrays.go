// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package arrays produces traces for array mutation: insert, update and
// delete at an index or by value, plus a linear search.
//
// Insert and delete emit one step per slot moved during the shift, marking
// the slot read from and the slot written to. Moved cells keep their
// identity; the vacated slot is shown empty until it is overwritten.
package arrays

import (
	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Operation names.
const (
	OpInsert        = "INSERT"
	OpUpdate        = "UPDATE"
	OpDeleteByIndex = "DELETE_BY_INDEX"
	OpDeleteByValue = "DELETE_BY_VALUE"
	OpSearch        = "SEARCH"
)

// Code is the pseudo-code shown next to each operation. Steps reference it
// by 1-based line number.
var Code = map[string][]string{
	OpInsert: {
		"if n == capacity: overflow",
		"if index < 0 or index > n: reject",
		"for i = n; i > index; i--",
		"    a[i] = a[i-1]",
		"a[index] = value",
	},
	OpDeleteByIndex: {
		"if index < 0 or index >= n: reject",
		"for i = index; i < n-1; i++",
		"    a[i] = a[i+1]",
		"n = n - 1",
	},
	OpUpdate: {
		"if index < 0 or index >= n: reject",
		"a[index] = value",
	},
	OpDeleteByValue: {
		"for i = 0; i < n; i++",
		"    if a[i] == value: break",
		"if i == n: reject",
		"for j = i; j < n-1; j++",
		"    a[j] = a[j+1]",
		"n = n - 1",
	},
	OpSearch: {
		"for i = 0; i < n; i++",
		"    if a[i] == value: return i",
		"return -1",
	},
}

// Insert inserts value at index, shifting later elements right.
//
// # Inputs
//
//   - a: Current array. Not modified.
//   - index: Target position in [0, len].
//   - value: Value to insert.
//
// # Outputs
//
//   - trace.Sequence: Initial step, one step per shifted slot, the write,
//     and a terminal step. A full array or an out-of-range index yields a
//     single rejected step.
func Insert(a *snapshot.ArrayState, index, value int) trace.Sequence {
	base := a.Clone()
	return func(yield func(snapshot.Step) bool) {
		rec := trace.NewRecorder(yield)
		work := base.Clone()
		n := len(work.Cells)

		if work.Capacity > 0 && n >= work.Capacity {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Overflow: array is full (capacity %d)", work.Capacity).Line(1))
			return
		}
		if index < 0 || index > n {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Index %d out of range [0, %d]", index, n).Line(2))
			return
		}

		work.Cells = append(work.Cells, snapshot.Cell{Empty: true})
		if !rec.Emit(snapshot.New(snapshot.OfArray(work), "Insert %d at index %d: open a slot at the end", value, index).
			Mark(snapshot.RoleWriting, n).Label(index, "Target").Line(3)) {
			return
		}

		for i := n; i > index; i-- {
			work.Cells[i] = work.Cells[i-1]
			work.Cells[i-1] = snapshot.Cell{Empty: true}
			if !rec.Emit(snapshot.New(snapshot.OfArray(work), "Shift %d from index %d to %d", work.Cells[i].Value, i-1, i).
				Mark(snapshot.RoleReading, i-1).Mark(snapshot.RoleWriting, i).Label(index, "Target").Line(4)) {
				return
			}
		}

		work.Cells[index] = snapshot.Cell{ID: identity.Allocate(), Value: value}
		if !rec.Emit(snapshot.New(snapshot.OfArray(work), "Write %d at index %d", value, index).
			Mark(snapshot.RoleWriting, index).Line(5)) {
			return
		}
		rec.Emit(snapshot.New(snapshot.OfArray(work), "Inserted %d at index %d", value, index).
			Mark(snapshot.RoleHighlight, index).Done())
	}
}

// Update overwrites the element at index. The new value is a new element and
// receives a fresh identity.
func Update(a *snapshot.ArrayState, index, value int) trace.Sequence {
	base := a.Clone()
	return func(yield func(snapshot.Step) bool) {
		rec := trace.NewRecorder(yield)
		work := base.Clone()
		n := len(work.Cells)

		if index < 0 || index >= n {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Index %d out of range [0, %d)", index, n).Line(1))
			return
		}

		old := work.Cells[index].Value
		if !rec.Emit(snapshot.New(snapshot.OfArray(work), "Read index %d (value %d)", index, old).
			Mark(snapshot.RoleReading, index).Label(index, "Target").Line(1)) {
			return
		}
		work.Cells[index] = snapshot.Cell{ID: identity.Allocate(), Value: value}
		rec.Emit(snapshot.New(snapshot.OfArray(work), "Updated index %d from %d to %d", index, old, value).
			Mark(snapshot.RoleWriting, index).Line(2).Done())
	}
}

// DeleteByIndex removes the element at index, shifting later elements left.
func DeleteByIndex(a *snapshot.ArrayState, index int) trace.Sequence {
	base := a.Clone()
	return func(yield func(snapshot.Step) bool) {
		rec := trace.NewRecorder(yield)
		work := base.Clone()
		n := len(work.Cells)

		if index < 0 || index >= n {
			rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Index %d out of range [0, %d)", index, n).Line(1))
			return
		}
		deleteAt(rec, work, index, [3]int{2, 3, 4})
	}
}

// DeleteByValue scans for the first occurrence of value and deletes it.
func DeleteByValue(a *snapshot.ArrayState, value int) trace.Sequence {
	base := a.Clone()
	return func(yield func(snapshot.Step) bool) {
		rec := trace.NewRecorder(yield)
		work := base.Clone()

		for i, cell := range work.Cells {
			if cell.Value == value {
				if !rec.Emit(snapshot.New(snapshot.OfArray(work), "Found %d at index %d", value, i).
					Mark(snapshot.RoleFound, i).Label(i, "i").Line(2)) {
					return
				}
				deleteAt(rec, work, i, [3]int{4, 5, 6})
				return
			}
			if !rec.Emit(snapshot.New(snapshot.OfArray(work), "Compare a[%d] = %d with %d", i, cell.Value, value).
				Mark(snapshot.RoleComparing, i).Label(i, "i").Line(1)) {
				return
			}
		}
		rec.Emit(snapshot.Rejected(snapshot.OfArray(work), "Value %d not found", value).Line(3))
	}
}

// Search scans for value. The terminal step carries the found index, or -1.
func Search(a *snapshot.ArrayState, value int) trace.Sequence {
	base := a.Clone()
	return func(yield func(snapshot.Step) bool) {
		rec := trace.NewRecorder(yield)
		work := base.Clone()

		for i, cell := range work.Cells {
			if cell.Value == value {
				rec.Emit(snapshot.New(snapshot.OfArray(work), "Found %d at index %d", value, i).
					Mark(snapshot.RoleFound, i).Label(i, "i").Line(2).WithResult(i).Done())
				return
			}
			if !rec.Emit(snapshot.New(snapshot.OfArray(work), "Compare a[%d] = %d with %d", i, cell.Value, value).
				Mark(snapshot.RoleComparing, i).Label(i, "i").Line(1)) {
				return
			}
		}
		rec.Emit(snapshot.New(snapshot.OfArray(work), "%d is not in the array", value).Line(3).WithResult(-1).Done())
	}
}

// deleteAt vacates index, shifts the tail left one slot per step and
// shrinks the array. index must be valid. lines holds the code lines of the
// vacate, shift and shrink steps.
func deleteAt(rec *trace.Recorder, work *snapshot.ArrayState, index int, lines [3]int) {
	n := len(work.Cells)
	removed := work.Cells[index].Value
	work.Cells[index] = snapshot.Cell{Empty: true}
	if !rec.Emit(snapshot.New(snapshot.OfArray(work), "Remove %d from index %d", removed, index).
		Mark(snapshot.RoleWriting, index).Line(lines[0])) {
		return
	}

	for i := index; i < n-1; i++ {
		work.Cells[i] = work.Cells[i+1]
		work.Cells[i+1] = snapshot.Cell{Empty: true}
		if !rec.Emit(snapshot.New(snapshot.OfArray(work), "Shift %d from index %d to %d", work.Cells[i].Value, i+1, i).
			Mark(snapshot.RoleReading, i+1).Mark(snapshot.RoleWriting, i).Line(lines[1])) {
			return
		}
	}

	work.Cells = work.Cells[:n-1]
	rec.Emit(snapshot.New(snapshot.OfArray(work), "Deleted %d; length is now %d", removed, n-1).Line(lines[2]).WithResult(removed).Done())
}
