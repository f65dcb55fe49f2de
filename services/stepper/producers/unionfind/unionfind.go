// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package unionfind produces traces for a disjoint-set forest.
//
// # Description
//
// The forest is a pair of parallel slices (snapshot.ForestState): Parent[i]
// is i's parent and Size[r] is the element count of the set rooted at r.
// Elements are their own identities, so steps mark them by index.
//
// # Union Policy
//
// Union by size: the root of the smaller set is attached under the root of
// the larger one. On equal sizes y's root goes under x's root. Find always
// compresses: every node on the walked path is pointed straight at the root.
package unionfind

import (
	"fmt"
	"slices"

	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Operation names.
const (
	OpFind      = "FIND"
	OpUnion     = "UNION"
	OpConnected = "CONNECTED"
)

// =============================================================================
// Plain forest operations
// =============================================================================

// Compress returns x's root and points every node on the path at it.
func Compress(f *snapshot.ForestState, x int) int {
	root := f.Root(x)
	for x != root {
		next := f.Parent[x]
		f.Parent[x] = root
		x = next
	}
	return root
}

// Link merges the sets holding x and y under the size policy. It returns
// false when they were already one set.
func Link(f *snapshot.ForestState, x, y int) bool {
	rx, ry := Compress(f, x), Compress(f, y)
	if rx == ry {
		return false
	}
	child, parent := order(f, rx, ry)
	f.Parent[child] = parent
	f.Size[parent] += f.Size[child]
	return true
}

// order picks which root goes under which.
func order(f *snapshot.ForestState, rx, ry int) (child, parent int) {
	if f.Size[rx] < f.Size[ry] {
		return rx, ry
	}
	return ry, rx
}

// =============================================================================
// Producers
// =============================================================================

// Find walks from x to its root with one step per hop, then compresses the
// path in a final step. The terminal step's result is the root.
func Find(f *snapshot.ForestState, x int) trace.Sequence {
	return run(f, func(rec *trace.Recorder, work *snapshot.ForestState) {
		if !inRange(rec, work, x) {
			return
		}
		root, ok := walk(rec, work, x)
		if !ok {
			return
		}
		path := pathOf(work, x)
		Compress(work, x)
		rec.Emit(compressed(work, path, root).WithResult(root).Done())
	})
}

// Union merges the sets of x and y. The roots are shown before any path
// moves; each path longer than one hop is then compressed in its own step.
// The terminal step's result is 1 when a link was made and 0 when x and y
// were already connected.
func Union(f *snapshot.ForestState, x, y int) trace.Sequence {
	return run(f, func(rec *trace.Recorder, work *snapshot.ForestState) {
		if !inRange(rec, work, x, y) {
			return
		}
		rx, ry := work.Root(x), work.Root(y)
		if !rec.Emit(view(work, "Roots: %d (size %d) for %d and %d (size %d) for %d",
			rx, work.Size[rx], x, ry, work.Size[ry], y).
			Mark(snapshot.RoleComparing, rx, ry).Label(rx, "Root x").Label(ry, "Root y")) {
			return
		}
		for _, e := range []int{x, y} {
			path := pathOf(work, e)
			if len(path) <= 1 {
				continue
			}
			root := Compress(work, e)
			if !rec.Emit(compressed(work, path, root)) {
				return
			}
		}
		if rx == ry {
			rec.Emit(view(work, "%d and %d are already in the same set", x, y).
				Mark(snapshot.RoleFound, rx).WithResult(0).Done())
			return
		}
		child, parent := order(work, rx, ry)
		work.Parent[child] = parent
		work.Size[parent] += work.Size[child]
		rec.Emit(view(work, "Attach root %d under %d; set size is now %d", child, parent, work.Size[parent]).
			Mark(snapshot.RoleTreeEdge, child, parent).WithResult(1).Done())
	})
}

// Connected finds both roots and compares them. The terminal step's result
// is 1 for connected and 0 otherwise.
func Connected(f *snapshot.ForestState, x, y int) trace.Sequence {
	return run(f, func(rec *trace.Recorder, work *snapshot.ForestState) {
		if !inRange(rec, work, x, y) {
			return
		}
		rx, ok := walk(rec, work, x)
		if !ok {
			return
		}
		px := pathOf(work, x)
		Compress(work, x)
		if !rec.Emit(compressed(work, px, rx)) {
			return
		}
		ry, ok := walk(rec, work, y)
		if !ok {
			return
		}
		py := pathOf(work, y)
		Compress(work, y)
		if !rec.Emit(compressed(work, py, ry)) {
			return
		}

		if rx == ry {
			rec.Emit(view(work, "%d and %d share root %d: connected", x, y, rx).
				Mark(snapshot.RoleFound, x, y, rx).WithResult(1).Done())
			return
		}
		rec.Emit(view(work, "Roots %d and %d differ: not connected", rx, ry).
			Mark(snapshot.RoleMismatch, rx, ry).WithResult(0).Done())
	})
}

// walk emits a start step and one step per parent hop. It returns the root.
func walk(rec *trace.Recorder, f *snapshot.ForestState, x int) (int, bool) {
	if !rec.Emit(view(f, "Find %d", x).Mark(snapshot.RoleVisited, x).Label(x, "Curr")) {
		return 0, false
	}
	visited := []int{x}
	for cur := x; f.Parent[cur] != cur; {
		next := f.Parent[cur]
		visited = append(visited, next)
		if !rec.Emit(view(f, "Follow parent of %d to %d", cur, next).
			Mark(snapshot.RoleVisited, visited...).Mark(snapshot.RolePath, cur, next).Label(next, "Curr")) {
			return 0, false
		}
		cur = next
	}
	return visited[len(visited)-1], true
}

// pathOf returns the non-root nodes between x and its root.
func pathOf(f *snapshot.ForestState, x int) []int {
	var path []int
	for ; f.Parent[x] != x; x = f.Parent[x] {
		path = append(path, x)
	}
	return path
}

func compressed(f *snapshot.ForestState, path []int, root int) snapshot.Step {
	if len(path) <= 1 {
		return view(f, "Root is %d; path is already flat", root).Mark(snapshot.RoleFound, root)
	}
	return view(f, "Root is %d; compress %s to point at it", root, fmt.Sprint(path)).
		Mark(snapshot.RoleWriting, path...).Mark(snapshot.RoleFound, root)
}

func inRange(rec *trace.Recorder, f *snapshot.ForestState, xs ...int) bool {
	n := len(f.Parent)
	if i := slices.IndexFunc(xs, func(x int) bool { return x < 0 || x >= n }); i >= 0 {
		rec.Emit(snapshot.Rejected(snapshot.OfForest(f), "Element %d out of range [0, %d)", xs[i], n))
		return false
	}
	return true
}

func run(f *snapshot.ForestState, body func(*trace.Recorder, *snapshot.ForestState)) trace.Sequence {
	base := f.Clone()
	return func(yield func(snapshot.Step) bool) {
		body(trace.NewRecorder(yield), base.Clone())
	}
}

func view(f *snapshot.ForestState, format string, args ...any) snapshot.Step {
	return snapshot.New(snapshot.OfForest(f), format, args...)
}
