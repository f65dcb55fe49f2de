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

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// DetectCycle runs Floyd's tortoise and hare on a singly linked list.
//
// # Description
//
// pos is the position the tail is temporarily linked back to (-1 plants no
// cycle). After detection the tail link is restored, so the terminal
// container equals the input. The terminal step's result is the position
// where the cycle starts, or -1.
func DetectCycle(l *snapshot.ListState, pos int) trace.Sequence {
	return run(l, func(rec *trace.Recorder, work *snapshot.ListState) {
		order := work.Order()
		switch {
		case work.Kind != snapshot.ListSingly:
			rec.Emit(snapshot.Rejected(snapshot.OfList(work), "Cycle detection applies to singly linked lists"))
			return
		case pos < -1 || pos >= len(order):
			rec.Emit(snapshot.Rejected(snapshot.OfList(work), "Position %d out of range [-1, %d)", pos, len(order)))
			return
		case len(order) == 0:
			rec.Emit(view(work, "Empty list has no cycle").WithResult(-1).Done())
			return
		}

		if pos >= 0 {
			node(work, work.Tail).Next = order[pos].ID
			if !rec.Emit(view(work, "Link tail back to position %d (%d)", pos, order[pos].Value).
				MarkIDs(snapshot.RoleWriting, work.Tail)) {
				return
			}
		}

		slow, fast := work.Head, work.Head
		if !rec.Emit(pointers(work, "Slow and fast start at head", slow, fast)) {
			return
		}

		met := false
		for {
			f1 := node(work, fast).Next
			if f1.IsNone() {
				break
			}
			f2 := node(work, f1).Next
			if f2.IsNone() {
				break
			}
			slow, fast = node(work, slow).Next, f2
			if slow == fast {
				met = true
				if !rec.Emit(pointers(work, "Slow and fast meet at %d: the list has a cycle", slow, fast, node(work, slow).Value).
					MarkIDs(snapshot.RoleFound, slow)) {
					return
				}
				break
			}
			if !rec.Emit(pointers(work, "Slow moves to %d, fast moves to %d", slow, fast, node(work, slow).Value, node(work, fast).Value)) {
				return
			}
		}

		result := -1
		if met {
			p := work.Head
			if !rec.Emit(pointers(work, "Reset slow to head; advance both one node at a time", p, fast)) {
				return
			}
			for p != fast {
				p, fast = node(work, p).Next, node(work, fast).Next
				if !rec.Emit(pointers(work, "Advance both to %d and %d", p, fast, node(work, p).Value, node(work, fast).Value)) {
					return
				}
			}
			result = slices.IndexFunc(order, func(n snapshot.ListNode) bool { return n.ID == p })
			if !rec.Emit(view(work, "Cycle starts at %d (position %d)", node(work, p).Value, result).
				MarkIDs(snapshot.RoleFound, p)) {
				return
			}
		} else if !rec.Emit(view(work, "Fast reached the end: no cycle")) {
			return
		}

		node(work, work.Tail).Next = identity.None
		rec.Emit(view(work, "Restore the tail link").WithResult(result).Done())
	})
}

// Josephus eliminates every k-th node of a circular list until one remains.
// The terminal step's result is the survivor's value.
func Josephus(l *snapshot.ListState, k int) trace.Sequence {
	return run(l, func(rec *trace.Recorder, work *snapshot.ListState) {
		switch {
		case work.Kind != snapshot.ListCircular:
			rec.Emit(snapshot.Rejected(snapshot.OfList(work), "Josephus requires a circular list"))
			return
		case k < 1:
			rec.Emit(snapshot.Rejected(snapshot.OfList(work), "k must be at least 1, got %d", k))
			return
		case work.Head.IsNone():
			rec.Emit(snapshot.Rejected(snapshot.OfList(work), "Underflow: list is empty"))
			return
		}

		prev, cur := work.Tail, work.Head
		if !rec.Emit(view(work, "Start counting at head with k = %d", k).LabelID(cur, "Curr")) {
			return
		}

		for work.Head != work.Tail {
			for i := 1; i < k; i++ {
				prev, cur = cur, node(work, cur).Next
				if !rec.Emit(view(work, "Count %d: %d", i+1, node(work, cur).Value).
					MarkIDs(snapshot.RoleVisited, cur).LabelID(prev, "Prev").LabelID(cur, "Curr")) {
					return
				}
			}

			victim := *node(work, cur)
			node(work, prev).Next = victim.Next
			if cur == work.Head {
				work.Head = victim.Next
			}
			if cur == work.Tail {
				work.Tail = prev
			}
			if !rec.Emit(view(work, "Eliminate %d", victim.Value).
				MarkIDs(snapshot.RoleRejected, cur).LabelID(prev, "Prev")) {
				return
			}
			remove(work, cur)
			cur = victim.Next
		}

		survivor := node(work, work.Head)
		rec.Emit(view(work, "Survivor: %d", survivor.Value).
			MarkIDs(snapshot.RoleFound, survivor.ID).WithResult(survivor.Value).Done())
	})
}

// pointers is a view with Slow and Fast labels.
func pointers(l *snapshot.ListState, format string, slow, fast identity.ID, args ...any) snapshot.Step {
	return view(l, format, args...).LabelID(slow, "Slow").LabelID(fast, "Fast")
}
