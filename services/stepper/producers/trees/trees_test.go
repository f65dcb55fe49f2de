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
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/internal/steptest"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// shape renders a subtree as "(v left right)" with "-" for a missing child
// and a bare value for a leaf.
func shape(t *snapshot.TreeState, id identity.ID) string {
	if id.IsNone() {
		return "-"
	}
	n, _ := t.Node(id)
	if n.Left.IsNone() && n.Right.IsNone() {
		return fmt.Sprint(n.Value)
	}
	return fmt.Sprintf("(%d %s %s)", n.Value, shape(t, n.Left), shape(t, n.Right))
}

func messages(tr trace.Trace) []string {
	out := make([]string, tr.Len())
	for i, s := range tr.Steps {
		out[i] = shape(s.Container.Tree, s.Container.Tree.Root) + " " + s.Message
	}
	return out
}

func TestInsertAVL_RRSteps(t *testing.T) {
	tree := Build([]int{1, 2}, true)
	require.Equal(t, "(1 - 2)", shape(tree, tree.Root))

	tr := steptest.Run(t, "avl", OpInsert, InsertAVL(tree, 3))
	assert.Equal(t, []string{
		"(1 - 2) Compare 3 with 1: go right",
		"(1 - 2) Compare 3 with 2: go right",
		"(1 - (2 - 3)) Insert 3 as right child of 2",
		"(1 - (2 - 3)) Balance factor of 2 is -1",
		"(1 - (2 - 3)) Balance factor of 1 is -2",
		"(2 1 3) RR case: rotate left at 1",
		"(2 1 3) Rebalanced with RR rotation at 1",
	}, messages(tr))
}

func TestInsertAVL_Cases(t *testing.T) {
	tests := []struct {
		name     string
		values   []int
		rotation Rotation
		steps    int
	}{
		{"LL", []int{3, 2, 1}, RotationLL, 1},
		{"RR", []int{1, 2, 3}, RotationRR, 1},
		{"LR", []int{3, 1, 2}, RotationLR, 2},
		{"RL", []int{1, 3, 2}, RotationRL, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Build(tt.values[:2], true)
			tr := steptest.Run(t, "avl", OpInsert, InsertAVL(tree, tt.values[2]))

			final := tr.Final().Tree
			assert.Equal(t, "(2 1 3)", shape(final, final.Root))
			assert.Contains(t, tr.Last().Message, string(tt.rotation))

			rotations := 0
			for _, s := range tr.Steps {
				if len(s.Points[snapshot.RoleSwapping].IDs) > 0 {
					rotations++
				}
			}
			assert.Equal(t, tt.steps, rotations)
		})
	}
}

func requireAVL(t *testing.T, tree *snapshot.TreeState) {
	t.Helper()
	for _, n := range tree.Nodes {
		bf := tree.HeightOf(n.Left) - tree.HeightOf(n.Right)
		require.True(t, bf >= -1 && bf <= 1, "node %d has balance %d", n.Value, bf)
		require.Equal(t, tree.HeightOf(n.ID), n.Height, "cached height of %d", n.Value)
	}
}

func TestInsertAVL_StaysBalanced(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	tree := Build(nil, true)
	inserted := map[int]bool{}

	for i := 0; i < 60; i++ {
		v := rng.IntN(200)
		tr := steptest.Run(t, "avl", OpInsert, InsertAVL(tree, v))
		tree = tr.Final().Tree
		if inserted[v] {
			assert.True(t, tr.Rejected())
			continue
		}
		inserted[v] = true
		requireAVL(t, tree)
	}

	values := tree.InOrder()
	assert.Len(t, values, len(inserted))
	assert.IsIncreasing(t, values)
}

func TestInsertAVL_OnlyOneFix(t *testing.T) {
	tree := Build([]int{50, 25, 75, 10, 30, 60, 80, 5}, true)
	tr := steptest.Run(t, "avl", OpInsert, InsertAVL(tree, 1))

	fixes := 0
	for _, s := range tr.Steps {
		if s.Points[snapshot.RoleSwapping].IDs != nil {
			fixes++
		}
	}
	assert.Equal(t, 1, fixes)
	requireAVL(t, tr.Final().Tree)
}

func TestInsert_BST(t *testing.T) {
	tree := Build([]int{8, 3, 10}, false)
	tr := steptest.Run(t, "bst", OpInsert, Insert(tree, 6))

	assert.Equal(t, []string{
		"(8 3 10) Compare 6 with 8: go left",
		"(8 3 10) Compare 6 with 3: go right",
		"(8 (3 - 6) 10) Insert 6 as right child of 3",
	}, messages(tr))

	dup := steptest.Run(t, "bst", OpInsert, Insert(tree, 3))
	assert.True(t, dup.Rejected())
	assert.Equal(t, tree.InOrder(), dup.Final().Tree.InOrder())
}

func TestSearch(t *testing.T) {
	tree := Build([]int{8, 3, 10, 1, 6}, false)

	tests := []struct {
		value, depth int
	}{
		{8, 0},
		{10, 1},
		{6, 2},
		{7, -1},
	}
	for _, tt := range tests {
		tr := steptest.Run(t, "bst", OpSearch, Search(tree, tt.value))
		require.NotNil(t, tr.Last().Result)
		assert.Equal(t, tt.depth, *tr.Last().Result, "search %d", tt.value)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		expected string
	}{
		{"leaf", 1, "(8 (3 - (6 4 7)) (10 - 14))"},
		{"one child", 10, "(8 (3 1 (6 4 7)) 14)"},
		{"two children, deep successor", 3, "(8 (4 1 (6 - 7)) (10 - 14))"},
		{"root with direct successor", 8, "(10 (3 1 (6 4 7)) 14)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Build([]int{8, 3, 10, 1, 6, 14, 4, 7}, false)
			ids := steptest.IDSet(snapshot.OfTree(tree))

			tr := steptest.Run(t, "bst", OpDelete, Delete(tree, tt.value))
			final := tr.Final().Tree
			assert.Equal(t, tt.expected, shape(final, final.Root))
			assert.Len(t, final.Nodes, len(ids)-1)
			for id := range steptest.IDSet(tr.Final()) {
				assert.True(t, ids[id], "no new identities on delete")
			}
			steptest.RequireIdentityContinuity(t, tr, func(c snapshot.Container, id identity.ID) (int, bool) {
				n, ok := c.Tree.Node(id)
				return n.Value, ok
			})
		})
	}

	missing := steptest.Run(t, "bst", OpDelete, Delete(Build([]int{2}, false), 5))
	assert.True(t, missing.Rejected())
}

func TestTraversals(t *testing.T) {
	tree := Build([]int{4, 2, 6, 1, 3, 5, 7}, false)

	tests := []struct {
		name     string
		seq      trace.Sequence
		expected string
	}{
		{"in", InOrder(tree), "In-order: 1 2 3 4 5 6 7"},
		{"pre", PreOrder(tree), "Pre-order: 4 2 1 3 6 5 7"},
		{"post", PostOrder(tree), "Post-order: 1 3 2 5 7 6 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := steptest.Run(t, "bst", tt.name, tt.seq)
			assert.Equal(t, 8, tr.Len(), "one step per visit plus the summary")
			assert.Equal(t, tt.expected, tr.Last().Message)
			assert.Equal(t, 7, *tr.Last().Result)
		})
	}

	empty := steptest.Run(t, "bst", OpInOrder, InOrder(Build(nil, false)))
	assert.Equal(t, 1, empty.Len())
}

func TestDeterminism(t *testing.T) {
	tree := Build([]int{5, 2, 8}, true)
	a := steptest.Run(t, "avl", OpInsert, InsertAVL(tree, 1))
	b := steptest.Run(t, "avl", OpInsert, InsertAVL(tree, 1))
	assert.Equal(t, trace.Canonical(a), trace.Canonical(b))
}
