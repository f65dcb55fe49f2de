// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lists

import (
	"slices"
	"strconv"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Reverse reverses the list in place.
//
// # Description
//
// Walks with Prev/Curr/Next pointers and emits one step per flipped link for
// every list kind, so the intermediate half-reversed list is always visible.
// Doubly linked nodes also swap their Prev link in the same step. For
// circular lists the walk starts with Prev = tail, which leaves the old head
// pointing at the new head once every link has been flipped.
func Reverse(l *snapshot.ListState) trace.Sequence {
	return run(l, func(rec *trace.Recorder, work *snapshot.ListState) {
		order := work.Order()
		if len(order) < 2 {
			rec.Emit(view(work, "Lists with fewer than two nodes are their own reverse").Done())
			return
		}

		prev := identity.None
		if work.Kind == snapshot.ListCircular {
			prev = work.Tail
		}
		cur := work.Head
		if !rec.Emit(view(work, "Start with Prev = %s and Curr = head", valueOf(work, prev)).
			LabelID(prev, "Prev").LabelID(cur, "Curr")) {
			return
		}

		for range order {
			n := node(work, cur)
			next := n.Next
			n.Next = prev
			if work.Kind == snapshot.ListDoubly {
				n.Prev = next
			}
			if !rec.Emit(view(work, "Flip %d: next now points to %s", n.Value, valueOf(work, prev)).
				MarkIDs(snapshot.RoleWriting, cur).
				LabelID(prev, "Prev").LabelID(cur, "Curr").LabelID(next, "Next")) {
				return
			}
			prev, cur = cur, next
		}

		work.Head, work.Tail = work.Tail, work.Head
		rec.Emit(view(work, "Reversed: head is now %d", node(work, work.Head).Value).
			MarkIDs(snapshot.RoleHighlight, work.Head).Done())
	})
}

// MergeSorted merges the sorted list l with a second sorted list built from
// values. The second list's nodes receive fresh identities and join the
// arena before merging. Circular lists and unsorted inputs are rejected.
func MergeSorted(l *snapshot.ListState, values []int) trace.Sequence {
	values = slices.Clone(values)
	return run(l, func(rec *trace.Recorder, work *snapshot.ListState) {
		switch {
		case work.Kind == snapshot.ListCircular:
			rec.Emit(snapshot.Rejected(snapshot.OfList(work), "Merge is only defined for linear lists"))
			return
		case !slices.IsSorted(work.Values()):
			rec.Emit(snapshot.Rejected(snapshot.OfList(work), "List is not sorted"))
			return
		case !slices.IsSorted(values):
			rec.Emit(snapshot.Rejected(snapshot.OfList(work), "Second list %v is not sorted", values))
			return
		case len(values) == 0:
			rec.Emit(view(work, "Second list is empty; nothing to merge").Done())
			return
		}

		second := snapshot.NewList(work.Kind, values)
		work.Nodes = append(work.Nodes, second.Nodes...)
		ids := make([]identity.ID, len(second.Nodes))
		for i, n := range second.Nodes {
			ids[i] = n.ID
		}
		if !rec.Emit(view(work, "Second list %v joins the arena", values).
			MarkIDs(snapshot.RoleCandidate, ids...).LabelID(second.Head, "B")) {
			return
		}

		var head, tail identity.ID
		link := func(id identity.ID) {
			if tail.IsNone() {
				head = id
			} else {
				node(work, tail).Next = id
			}
			if work.Kind == snapshot.ListDoubly {
				node(work, id).Prev = tail
			}
			tail = id
		}

		a, b := work.Head, second.Head
		for !a.IsNone() && !b.IsNone() {
			na, nb := *node(work, a), *node(work, b)
			if !rec.Emit(view(work, "Compare %d with %d", na.Value, nb.Value).
				MarkIDs(snapshot.RoleComparing, a, b).
				LabelID(a, "A").LabelID(b, "B").LabelID(tail, "Merged")) {
				return
			}
			taken := na
			if na.Value <= nb.Value {
				link(a)
				a = na.Next
			} else {
				taken = nb
				link(b)
				b = nb.Next
			}
			work.Head = head
			if !rec.Emit(view(work, "Take %d", taken.Value).
				MarkIDs(snapshot.RoleWriting, taken.ID).LabelID(a, "A").LabelID(b, "B")) {
				return
			}
		}

		rest := a
		if rest.IsNone() {
			rest = b
		}
		if !rest.IsNone() {
			link(rest)
			for !node(work, tail).Next.IsNone() {
				tail = node(work, tail).Next
			}
			work.Head = head
			if !rec.Emit(view(work, "Append the remaining nodes from %d", node(work, rest).Value).
				MarkIDs(snapshot.RoleWriting, rest)) {
				return
			}
		}

		work.Head, work.Tail = head, tail
		rec.Emit(view(work, "Merged list has %d nodes", len(work.Order())).Done())
	})
}

// valueOf renders the value behind id, or "nil".
func valueOf(l *snapshot.ListState, id identity.ID) string {
	if id.IsNone() {
		return "nil"
	}
	n, ok := l.Node(id)
	if !ok {
		return id.String()
	}
	return strconv.Itoa(n.Value)
}
