// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trees

import (
	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Rotation names the four AVL imbalance cases.
type Rotation string

const (
	RotationLL Rotation = "LL"
	RotationRR Rotation = "RR"
	RotationLR Rotation = "LR"
	RotationRL Rotation = "RL"
)

// InsertAVL inserts value and restores the AVL balance.
//
// # Description
//
// Performs the plain BST insert, then retraces the insertion path bottom-up.
// Each ancestor gets a step showing its balance factor
// (height(left) - height(right)). The first ancestor with |balance| > 1 is
// fixed with one of the LL, RR, LR or RL rotations, its parent is relinked
// to the new subtree root, and the retrace stops: one fix restores balance
// for the whole tree after an insertion.
//
// # Outputs
//
//   - trace.Sequence: Comparison steps, the attach step, one balance step
//     per ancestor visited, one step per single rotation, and a terminal
//     step. Duplicates are rejected after the walk.
func InsertAVL(t *snapshot.TreeState, value int) trace.Sequence {
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
		if !rec.Emit(view(work, "%s", msg).MarkIDs(snapshot.RoleHighlight, id)) {
			return
		}

		for i := len(path) - 1; i >= 0; i-- {
			cur := path[i]
			parent := identity.None
			if i > 0 {
				parent = path[i-1]
			}

			bf := balance(work, cur)
			n := node(work, cur)
			if !rec.Emit(view(work, "Balance factor of %d is %d", n.Value, bf).
				MarkIDs(snapshot.RoleComparing, cur).LabelID(cur, "Curr")) {
				return
			}
			if bf >= -1 && bf <= 1 {
				continue
			}

			var rot Rotation
			switch {
			case bf > 1 && value < node(work, n.Left).Value:
				rot = RotationLL
			case bf > 1:
				rot = RotationLR
			case value > node(work, n.Right).Value:
				rot = RotationRR
			default:
				rot = RotationRL
			}
			if !rebalance(rec, work, parent, cur, rot) {
				return
			}
			rec.Emit(view(work, "Rebalanced with %s rotation at %d", rot, node(work, cur).Value).Done())
			return
		}

		rec.Emit(view(work, "Tree is balanced").Done())
	})
}

// rebalance applies rot at cur and relinks parent. It emits one step per
// single rotation.
func rebalance(rec *trace.Recorder, t *snapshot.TreeState, parent, cur identity.ID, rot Rotation) bool {
	n := node(t, cur)
	switch rot {
	case RotationLL:
		return rotateRight(rec, t, parent, cur, rot)
	case RotationRR:
		return rotateLeft(rec, t, parent, cur, rot)
	case RotationLR:
		return rotateLeft(rec, t, cur, n.Left, rot) && rotateRight(rec, t, parent, cur, rot)
	default:
		return rotateRight(rec, t, cur, n.Right, rot) && rotateLeft(rec, t, parent, cur, rot)
	}
}

// rotateRight lifts y's left child x into y's place.
func rotateRight(rec *trace.Recorder, t *snapshot.TreeState, parent, y identity.ID, rot Rotation) bool {
	x := node(t, y).Left
	node(t, y).Left = node(t, x).Right
	node(t, x).Right = y
	replaceChild(t, parent, y, x)
	fixHeights(t)
	return rec.Emit(view(t, "%s case: rotate right at %d", rot, node(t, y).Value).
		MarkIDs(snapshot.RoleSwapping, x, y).LabelID(x, "New root"))
}

// rotateLeft lifts x's right child y into x's place.
func rotateLeft(rec *trace.Recorder, t *snapshot.TreeState, parent, x identity.ID, rot Rotation) bool {
	y := node(t, x).Right
	node(t, x).Right = node(t, y).Left
	node(t, y).Left = x
	replaceChild(t, parent, x, y)
	fixHeights(t)
	return rec.Emit(view(t, "%s case: rotate left at %d", rot, node(t, x).Value).
		MarkIDs(snapshot.RoleSwapping, x, y).LabelID(y, "New root"))
}
