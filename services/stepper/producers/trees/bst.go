// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trees produces traces for binary search trees and AVL trees.
//
// # Description
//
// Trees are arenas of identity-linked nodes (snapshot.TreeState). Rotations
// and successor moves relink existing nodes; a node's identity always stays
// with its value. Node heights are recomputed from links after every
// structural change.
//
// Traversals use an explicit stack of frames instead of recursion so that a
// step can be emitted between any two visits.
package trees

import (
	"strconv"
	"strings"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Operation names.
const (
	OpInsert    = "INSERT"
	OpSearch    = "SEARCH"
	OpDelete    = "DELETE"
	OpInOrder   = "INORDER"
	OpPreOrder  = "PREORDER"
	OpPostOrder = "POSTORDER"
)

// Build inserts values one by one into an empty tree without recording.
// Duplicates are skipped. When balanced is true AVL insertion is used.
func Build(values []int, balanced bool) *snapshot.TreeState {
	t := &snapshot.TreeState{Nodes: []snapshot.TreeNode{}}
	for _, v := range values {
		seq := Insert(t, v)
		if balanced {
			seq = InsertAVL(t, v)
		}
		var last snapshot.Step
		for s := range seq {
			last = s
		}
		t = last.Container.Tree
	}
	return t
}

// =============================================================================
// Insert / Search / Delete
// =============================================================================

// Insert adds value as a new leaf. Duplicates are rejected after the walk.
func Insert(t *snapshot.TreeState, value int) trace.Sequence {
	return run(t, func(rec *trace.Recorder, work *snapshot.TreeState) {
		path, dup, ok := descend(rec, work, value)
		if !ok {
			return
		}
		if dup {
			rec.Emit(snapshot.Rejected(snapshot.OfTree(work), "%d is already in the tree", value))
			return
		}
		id, msg := attach(work, path, value)
		rec.Emit(view(work, "%s", msg).MarkIDs(snapshot.RoleHighlight, id).Done())
	})
}

// Search walks from the root. The terminal step's result is the depth of the
// matching node (root = 0), or -1.
func Search(t *snapshot.TreeState, value int) trace.Sequence {
	return run(t, func(rec *trace.Recorder, work *snapshot.TreeState) {
		cur := work.Root
		for depth := 0; !cur.IsNone(); depth++ {
			n := node(work, cur)
			if n.Value == value {
				rec.Emit(view(work, "Found %d at depth %d", value, depth).
					MarkIDs(snapshot.RoleFound, cur).LabelID(cur, "Curr").WithResult(depth).Done())
				return
			}
			next, dir := n.Right, "right"
			if value < n.Value {
				next, dir = n.Left, "left"
			}
			if !rec.Emit(view(work, "Compare %d with %d: go %s", value, n.Value, dir).
				MarkIDs(snapshot.RoleComparing, cur).LabelID(cur, "Curr")) {
				return
			}
			cur = next
		}
		rec.Emit(view(work, "%d is not in the tree", value).WithResult(-1).Done())
	})
}

// Delete removes value. A node with two children is replaced by its
// in-order successor, which is relinked into place rather than copied.
func Delete(t *snapshot.TreeState, value int) trace.Sequence {
	return run(t, func(rec *trace.Recorder, work *snapshot.TreeState) {
		parent, cur := identity.None, work.Root
		for !cur.IsNone() {
			n := node(work, cur)
			if n.Value == value {
				break
			}
			next, dir := n.Right, "right"
			if value < n.Value {
				next, dir = n.Left, "left"
			}
			if !rec.Emit(view(work, "Compare %d with %d: go %s", value, n.Value, dir).
				MarkIDs(snapshot.RoleComparing, cur).LabelID(cur, "Curr")) {
				return
			}
			parent, cur = cur, next
		}
		if cur.IsNone() {
			rec.Emit(snapshot.Rejected(snapshot.OfTree(work), "Value %d not found", value))
			return
		}

		target := *node(work, cur)
		if !rec.Emit(view(work, "Found %d", value).MarkIDs(snapshot.RoleFound, cur).LabelID(cur, "Curr")) {
			return
		}

		switch {
		case target.Left.IsNone() || target.Right.IsNone():
			child := target.Left
			if child.IsNone() {
				child = target.Right
			}
			replaceChild(work, parent, cur, child)
			msg := "Unlink leaf %d"
			if !child.IsNone() {
				msg = "Replace %d with its only child"
			}
			if !rec.Emit(view(work, msg, value).MarkIDs(snapshot.RoleRejected, cur)) {
				return
			}
		default:
			succParent, succ := cur, target.Right
			for !node(work, succ).Left.IsNone() {
				if !rec.Emit(view(work, "Look for the successor: go left from %d", node(work, succ).Value).
					MarkIDs(snapshot.RoleVisited, succ).LabelID(succ, "Succ")) {
					return
				}
				succParent, succ = succ, node(work, succ).Left
			}
			s := node(work, succ)
			if !rec.Emit(view(work, "Successor of %d is %d", value, s.Value).
				MarkIDs(snapshot.RoleCandidate, succ).LabelID(succ, "Succ").LabelID(cur, "Curr")) {
				return
			}
			if succParent != cur {
				node(work, succParent).Left = s.Right
				s.Right = target.Right
			}
			s.Left = target.Left
			replaceChild(work, parent, cur, succ)
			if !rec.Emit(view(work, "Move %d into the place of %d", s.Value, value).
				MarkIDs(snapshot.RoleWriting, succ).MarkIDs(snapshot.RoleRejected, cur)) {
				return
			}
		}

		remove(work, cur)
		fixHeights(work)
		rec.Emit(view(work, "Deleted %d", value).WithResult(value).Done())
	})
}

// descend emits one comparison step per node on the way to value's
// position. It returns the visited path, whether value is present (the path
// then ends at the match) and false if the consumer stopped.
func descend(rec *trace.Recorder, t *snapshot.TreeState, value int) ([]identity.ID, bool, bool) {
	var path []identity.ID
	for cur := t.Root; !cur.IsNone(); {
		n := node(t, cur)
		path = append(path, cur)
		if n.Value == value {
			return path, true, rec.Emit(view(t, "Compare %d with %d: equal", value, n.Value).
				MarkIDs(snapshot.RoleFound, cur).LabelID(cur, "Curr"))
		}
		next, dir := n.Right, "right"
		if value < n.Value {
			next, dir = n.Left, "left"
		}
		if !rec.Emit(view(t, "Compare %d with %d: go %s", value, n.Value, dir).
			MarkIDs(snapshot.RoleComparing, cur).LabelID(cur, "Curr")) {
			return path, false, false
		}
		cur = next
	}
	return path, false, true
}

// attach creates a leaf for value under the last node of path.
func attach(t *snapshot.TreeState, path []identity.ID, value int) (identity.ID, string) {
	id := identity.Allocate()
	t.Nodes = append(t.Nodes, snapshot.TreeNode{ID: id, Value: value, Height: 1})
	if len(path) == 0 {
		t.Root = id
		return id, "Tree was empty: " + strconv.Itoa(value) + " becomes the root"
	}
	p := node(t, path[len(path)-1])
	side := "right"
	if value < p.Value {
		p.Left = id
		side = "left"
	} else {
		p.Right = id
	}
	fixHeights(t)
	return id, "Insert " + strconv.Itoa(value) + " as " + side + " child of " + strconv.Itoa(p.Value)
}

// =============================================================================
// Traversal
// =============================================================================

type order int

const (
	preOrder order = iota
	inOrder
	postOrder
)

func (o order) String() string {
	switch o {
	case preOrder:
		return "Pre-order"
	case inOrder:
		return "In-order"
	default:
		return "Post-order"
	}
}

// InOrder visits left subtree, node, right subtree.
func InOrder(t *snapshot.TreeState) trace.Sequence { return traverse(t, inOrder) }

// PreOrder visits node, left subtree, right subtree.
func PreOrder(t *snapshot.TreeState) trace.Sequence { return traverse(t, preOrder) }

// PostOrder visits left subtree, right subtree, node.
func PostOrder(t *snapshot.TreeState) trace.Sequence { return traverse(t, postOrder) }

// frame is one suspended call of the recursive traversal: stage 0 has not
// descended yet, stage 1 has finished the left subtree, stage 2 the right.
type frame struct {
	id    identity.ID
	stage int
}

func traverse(t *snapshot.TreeState, o order) trace.Sequence {
	return run(t, func(rec *trace.Recorder, work *snapshot.TreeState) {
		var visited []identity.ID
		var values []string
		visit := func(id identity.ID) bool {
			n := node(work, id)
			visited = append(visited, id)
			values = append(values, strconv.Itoa(n.Value))
			return rec.Emit(view(work, "Visit %d", n.Value).
				MarkIDs(snapshot.RoleVisited, visited...).MarkIDs(snapshot.RoleHighlight, id).LabelID(id, "Curr"))
		}

		var stack []frame
		if !work.Root.IsNone() {
			stack = append(stack, frame{id: work.Root})
		}
		for len(stack) > 0 {
			top := len(stack) - 1
			f := stack[top]
			n := node(work, f.id)
			switch f.stage {
			case 0:
				stack[top].stage = 1
				if o == preOrder && !visit(f.id) {
					return
				}
				if !n.Left.IsNone() {
					stack = append(stack, frame{id: n.Left})
				}
			case 1:
				stack[top].stage = 2
				if o == inOrder && !visit(f.id) {
					return
				}
				if !n.Right.IsNone() {
					stack = append(stack, frame{id: n.Right})
				}
			default:
				stack = stack[:top]
				if o == postOrder && !visit(f.id) {
					return
				}
			}
		}

		rec.Emit(view(work, "%s: %s", o, strings.Join(values, " ")).
			MarkIDs(snapshot.RoleVisited, visited...).WithResult(len(visited)).Done())
	})
}

// =============================================================================
// Helpers
// =============================================================================

func run(t *snapshot.TreeState, body func(*trace.Recorder, *snapshot.TreeState)) trace.Sequence {
	base := t.Clone()
	return func(yield func(snapshot.Step) bool) {
		body(trace.NewRecorder(yield), base.Clone())
	}
}

func view(t *snapshot.TreeState, format string, args ...any) snapshot.Step {
	return snapshot.New(snapshot.OfTree(t), format, args...).LabelID(t.Root, "Root")
}

func node(t *snapshot.TreeState, id identity.ID) *snapshot.TreeNode {
	return &t.Nodes[t.Index(id)]
}

// replaceChild points parent's link to old at repl instead; a None parent
// means old was the root.
func replaceChild(t *snapshot.TreeState, parent, old, repl identity.ID) {
	if parent.IsNone() {
		t.Root = repl
		return
	}
	p := node(t, parent)
	if p.Left == old {
		p.Left = repl
	} else {
		p.Right = repl
	}
}

func remove(t *snapshot.TreeState, id identity.ID) {
	i := t.Index(id)
	t.Nodes = append(t.Nodes[:i], t.Nodes[i+1:]...)
}

func fixHeights(t *snapshot.TreeState) {
	for i := range t.Nodes {
		t.Nodes[i].Height = t.HeightOf(t.Nodes[i].ID)
	}
}

func balance(t *snapshot.TreeState, id identity.ID) int {
	n := node(t, id)
	return t.HeightOf(n.Left) - t.HeightOf(n.Right)
}
