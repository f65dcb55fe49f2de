// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lists produces traces for singly, doubly and circular linked lists.
//
// # Description
//
// Nodes live in an arena (snapshot.ListState.Nodes) and link to each other by
// identity. Every step carries the whole arena plus Head and Tail labels, so
// a consumer never needs an earlier step to draw the current one. A node that
// has been unlinked stays in the arena for exactly one step before it is
// removed.
//
// # Circular Lists
//
// The tail's successor is the head. Operations that change the head or tail
// of a circular list re-target that wrap-around link and emit a step that
// documents it. A single-node circular list points at itself.
package lists

import (
	"slices"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Operation names.
const (
	OpInsertHead    = "INSERT_HEAD"
	OpInsertTail    = "INSERT_TAIL"
	OpInsertAt      = "INSERT_AT"
	OpDeleteHead    = "DELETE_HEAD"
	OpDeleteTail    = "DELETE_TAIL"
	OpDeleteByValue = "DELETE_BY_VALUE"
	OpSearch        = "SEARCH"
	OpReverse       = "REVERSE"
	OpMergeSorted   = "MERGE_SORTED"
	OpDetectCycle   = "DETECT_CYCLE"
	OpJosephus      = "JOSEPHUS"
)

var common = []string{OpInsertHead, OpInsertTail, OpInsertAt, OpDeleteHead, OpDeleteTail, OpDeleteByValue, OpSearch, OpReverse}

// Ops returns the operations a list kind supports.
func Ops(kind snapshot.ListKind) []string {
	switch kind {
	case snapshot.ListSingly:
		return append(slices.Clone(common), OpMergeSorted, OpDetectCycle)
	case snapshot.ListDoubly:
		return append(slices.Clone(common), OpMergeSorted)
	case snapshot.ListCircular:
		return append(slices.Clone(common), OpJosephus)
	default:
		return nil
	}
}

// =============================================================================
// Insert
// =============================================================================

// InsertHead makes value the new head.
func InsertHead(l *snapshot.ListState, value int) trace.Sequence {
	return run(l, func(rec *trace.Recorder, work *snapshot.ListState) {
		insertHead(rec, work, value)
	})
}

// InsertTail appends value after walking to the tail.
func InsertTail(l *snapshot.ListState, value int) trace.Sequence {
	return run(l, func(rec *trace.Recorder, work *snapshot.ListState) {
		insertTail(rec, work, value)
	})
}

// InsertAt inserts value so that it ends up at position index (0 = head).
// index must be in [0, len].
func InsertAt(l *snapshot.ListState, index, value int) trace.Sequence {
	return run(l, func(rec *trace.Recorder, work *snapshot.ListState) {
		n := len(work.Order())
		switch {
		case index < 0 || index > n:
			rec.Emit(snapshot.Rejected(snapshot.OfList(work), "Position %d out of range [0, %d]", index, n))
		case index == 0:
			insertHead(rec, work, value)
		case index == n:
			insertTail(rec, work, value)
		default:
			insertAfter(rec, work, index, value)
		}
	})
}

func insertHead(rec *trace.Recorder, l *snapshot.ListState, value int) {
	id := create(l, value)
	if !rec.Emit(view(l, "Create node %d", value).MarkIDs(snapshot.RoleWriting, id).LabelID(id, "New")) {
		return
	}

	if l.Head.IsNone() {
		l.Head, l.Tail = id, id
		msg := "List was empty: %d is now head and tail"
		if l.Kind == snapshot.ListCircular {
			node(l, id).Next = id
			msg = "List was empty: %d is now head and tail and points to itself"
		}
		rec.Emit(view(l, msg, value).MarkIDs(snapshot.RoleHighlight, id).Done())
		return
	}

	oldHead := l.Head
	node(l, id).Next = oldHead
	if l.Kind == snapshot.ListDoubly {
		node(l, oldHead).Prev = id
	}
	if !rec.Emit(view(l, "Point new node at current head").
		MarkIDs(snapshot.RoleWriting, id).MarkIDs(snapshot.RoleReading, oldHead).LabelID(id, "New")) {
		return
	}

	l.Head = id
	if l.Kind != snapshot.ListCircular {
		rec.Emit(view(l, "Move head to %d", value).MarkIDs(snapshot.RoleHighlight, id).Done())
		return
	}
	if !rec.Emit(view(l, "Move head to %d", value).MarkIDs(snapshot.RoleHighlight, id)) {
		return
	}
	node(l, l.Tail).Next = id
	rec.Emit(view(l, "Re-link tail to new head %d to close the circle", value).
		MarkIDs(snapshot.RoleWriting, l.Tail).Done())
}

func insertTail(rec *trace.Recorder, l *snapshot.ListState, value int) {
	if l.Head.IsNone() {
		insertHead(rec, l, value)
		return
	}

	id := create(l, value)
	if !rec.Emit(view(l, "Create node %d", value).MarkIDs(snapshot.RoleWriting, id).LabelID(id, "New")) {
		return
	}
	if !walk(rec, l, len(l.Order())-1) {
		return
	}

	oldTail := l.Tail
	node(l, oldTail).Next = id
	if l.Kind == snapshot.ListDoubly {
		node(l, id).Prev = oldTail
	}
	if !rec.Emit(view(l, "Link tail %d to new node", node(l, oldTail).Value).
		MarkIDs(snapshot.RoleWriting, oldTail).LabelID(id, "New")) {
		return
	}

	l.Tail = id
	if l.Kind != snapshot.ListCircular {
		rec.Emit(view(l, "Move tail to %d", value).MarkIDs(snapshot.RoleHighlight, id).Done())
		return
	}
	if !rec.Emit(view(l, "Move tail to %d", value).MarkIDs(snapshot.RoleHighlight, id)) {
		return
	}
	node(l, id).Next = l.Head
	rec.Emit(view(l, "Link new tail %d back to head to close the circle", value).
		MarkIDs(snapshot.RoleWriting, id).Done())
}

// insertAfter splices a node in at a middle position 0 < index < len.
func insertAfter(rec *trace.Recorder, l *snapshot.ListState, index, value int) {
	id := create(l, value)
	if !rec.Emit(view(l, "Create node %d", value).MarkIDs(snapshot.RoleWriting, id).LabelID(id, "New")) {
		return
	}
	if !walk(rec, l, index-1) {
		return
	}

	prev := l.Order()[index-1].ID
	next := node(l, prev).Next
	node(l, id).Next = next
	if l.Kind == snapshot.ListDoubly {
		node(l, id).Prev = prev
		node(l, next).Prev = id
	}
	if !rec.Emit(view(l, "Point new node at %d", node(l, next).Value).
		MarkIDs(snapshot.RoleWriting, id).LabelID(prev, "Prev").LabelID(id, "New")) {
		return
	}

	node(l, prev).Next = id
	rec.Emit(view(l, "Link %d to new node; %d is now at position %d", node(l, prev).Value, value, index).
		MarkIDs(snapshot.RoleHighlight, id).Done())
}

// =============================================================================
// Delete
// =============================================================================

// DeleteHead removes the head. Underflow on an empty list.
func DeleteHead(l *snapshot.ListState) trace.Sequence {
	return run(l, func(rec *trace.Recorder, work *snapshot.ListState) {
		if work.Head.IsNone() {
			rec.Emit(snapshot.Rejected(snapshot.OfList(work), "Underflow: list is empty"))
			return
		}
		if !rec.Emit(view(work, "Remove head %d", node(work, work.Head).Value).MarkIDs(snapshot.RoleReading, work.Head)) {
			return
		}
		unlink(rec, work, identity.None, work.Head)
	})
}

// DeleteTail walks to the node before the tail and removes the tail.
func DeleteTail(l *snapshot.ListState) trace.Sequence {
	return run(l, func(rec *trace.Recorder, work *snapshot.ListState) {
		if work.Head.IsNone() {
			rec.Emit(snapshot.Rejected(snapshot.OfList(work), "Underflow: list is empty"))
			return
		}
		order := work.Order()
		if len(order) == 1 {
			if !rec.Emit(view(work, "Remove tail %d", order[0].Value).MarkIDs(snapshot.RoleReading, work.Tail)) {
				return
			}
			unlink(rec, work, identity.None, work.Tail)
			return
		}
		if !walk(rec, work, len(order)-2) {
			return
		}
		unlink(rec, work, order[len(order)-2].ID, work.Tail)
	})
}

// DeleteByValue removes the first node holding value.
func DeleteByValue(l *snapshot.ListState, value int) trace.Sequence {
	return run(l, func(rec *trace.Recorder, work *snapshot.ListState) {
		prev := identity.None
		for _, n := range work.Order() {
			if !rec.Emit(view(work, "Compare %d with %d", n.Value, value).
				MarkIDs(snapshot.RoleComparing, n.ID).LabelID(prev, "Prev").LabelID(n.ID, "Curr")) {
				return
			}
			if n.Value == value {
				unlink(rec, work, prev, n.ID)
				return
			}
			prev = n.ID
		}
		rec.Emit(snapshot.Rejected(snapshot.OfList(work), "Value %d not found", value))
	})
}

// unlink detaches cur, whose predecessor is prev (None for the head), emits
// the relinked list and then the list without the node.
func unlink(rec *trace.Recorder, l *snapshot.ListState, prev, cur identity.ID) {
	n := *node(l, cur)
	var step snapshot.Step

	switch {
	case cur == l.Head && cur == l.Tail:
		l.Head, l.Tail = identity.None, identity.None
		step = view(l, "%d was the only node; the list is now empty", n.Value)
	case cur == l.Head:
		l.Head = n.Next
		if l.Kind == snapshot.ListDoubly {
			node(l, n.Next).Prev = identity.None
		}
		step = view(l, "Move head to %d", node(l, n.Next).Value)
		if l.Kind == snapshot.ListCircular {
			if !rec.Emit(step.MarkIDs(snapshot.RoleRejected, cur)) {
				return
			}
			node(l, l.Tail).Next = l.Head
			step = view(l, "Re-link tail to new head %d to close the circle", node(l, l.Head).Value).
				MarkIDs(snapshot.RoleWriting, l.Tail)
		}
	case cur == l.Tail:
		p := node(l, prev)
		p.Next = identity.None
		msg := "Unlink tail; %d is the new tail"
		if l.Kind == snapshot.ListCircular {
			p.Next = l.Head
			msg = "Link %d back to head; it is the new tail"
		}
		l.Tail = prev
		step = view(l, msg, p.Value).MarkIDs(snapshot.RoleWriting, prev)
	default:
		node(l, prev).Next = n.Next
		if l.Kind == snapshot.ListDoubly {
			node(l, n.Next).Prev = prev
		}
		step = view(l, "Bypass %d: link %d to %d", n.Value, node(l, prev).Value, node(l, n.Next).Value).
			MarkIDs(snapshot.RoleWriting, prev)
	}
	if !rec.Emit(step.MarkIDs(snapshot.RoleRejected, cur)) {
		return
	}

	remove(l, cur)
	rec.Emit(view(l, "Deleted %d", n.Value).WithResult(n.Value).Done())
}

// =============================================================================
// Search
// =============================================================================

// Search walks the list; the terminal step carries the position or -1.
func Search(l *snapshot.ListState, value int) trace.Sequence {
	return run(l, func(rec *trace.Recorder, work *snapshot.ListState) {
		for i, n := range work.Order() {
			if n.Value == value {
				rec.Emit(view(work, "Found %d at position %d", value, i).
					MarkIDs(snapshot.RoleFound, n.ID).LabelID(n.ID, "Curr").WithResult(i).Done())
				return
			}
			if !rec.Emit(view(work, "Compare %d with %d", n.Value, value).
				MarkIDs(snapshot.RoleComparing, n.ID).LabelID(n.ID, "Curr")) {
				return
			}
		}
		rec.Emit(view(work, "%d is not in the list", value).WithResult(-1).Done())
	})
}

// =============================================================================
// Helpers
// =============================================================================

// run clones l once for the sequence and once per iteration.
func run(l *snapshot.ListState, body func(*trace.Recorder, *snapshot.ListState)) trace.Sequence {
	base := l.Clone()
	return func(yield func(snapshot.Step) bool) {
		body(trace.NewRecorder(yield), base.Clone())
	}
}

// view is a step over l with Head and Tail labels.
func view(l *snapshot.ListState, format string, args ...any) snapshot.Step {
	return snapshot.New(snapshot.OfList(l), format, args...).
		LabelID(l.Head, "Head").
		LabelID(l.Tail, "Tail")
}

// walk emits one visit step per node from the head through position last.
func walk(rec *trace.Recorder, l *snapshot.ListState, last int) bool {
	for i, n := range l.Order() {
		if i > last {
			break
		}
		if !rec.Emit(view(l, "Visit %d at position %d", n.Value, i).
			MarkIDs(snapshot.RoleVisited, n.ID).LabelID(n.ID, "Curr")) {
			return false
		}
	}
	return true
}

func node(l *snapshot.ListState, id identity.ID) *snapshot.ListNode {
	return &l.Nodes[l.Index(id)]
}

func create(l *snapshot.ListState, value int) identity.ID {
	id := identity.Allocate()
	l.Nodes = append(l.Nodes, snapshot.ListNode{ID: id, Value: value})
	return id
}

func remove(l *snapshot.ListState, id identity.ID) {
	l.Nodes = slices.DeleteFunc(l.Nodes, func(n snapshot.ListNode) bool { return n.ID == id })
}
