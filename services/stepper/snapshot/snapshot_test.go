// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
)

func TestContainer_CloneDoesNotAlias(t *testing.T) {
	arr := OfArray(NewArray([]int{1, 2, 3}, 5))
	clone := arr.Clone()
	clone.Array.Cells[0].Value = 99

	assert.Equal(t, 1, arr.Array.Cells[0].Value)
	assert.Equal(t, 99, clone.Array.Cells[0].Value)

	g := OfGraph(&GraphState{
		Vertices:  []Vertex{{ID: 1, Name: "A"}},
		Distances: map[string]int{"A": 0},
	})
	gc := g.Clone()
	gc.Graph.Distances["A"] = 7
	gc.Graph.Vertices[0].Name = "Z"
	assert.Equal(t, 0, g.Graph.Distances["A"])
	assert.Equal(t, "A", g.Graph.Vertices[0].Name)
}

func TestContainer_Valid(t *testing.T) {
	tests := []struct {
		name     string
		c        Container
		expected bool
	}{
		{"array", OfArray(&ArrayState{}), true},
		{"list", OfList(&ListState{}), true},
		{"empty", Container{}, false},
		{"kind mismatch", Container{Kind: KindTree, Array: &ArrayState{}}, false},
		{"two states", Container{Kind: KindArray, Array: &ArrayState{}, Text: &TextState{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.c.Valid())
		})
	}
}

func TestNewList_Links(t *testing.T) {
	t.Run("singly", func(t *testing.T) {
		l := NewList(ListSingly, []int{10, 20, 30})
		assert.Equal(t, []int{10, 20, 30}, l.Values())
		assert.Equal(t, l.Nodes[0].ID, l.Head)
		assert.Equal(t, l.Nodes[2].ID, l.Tail)
		assert.True(t, l.Nodes[2].Next.IsNone())
	})

	t.Run("doubly", func(t *testing.T) {
		l := NewList(ListDoubly, []int{1, 2})
		assert.Equal(t, l.Nodes[0].ID, l.Nodes[1].Prev)
		assert.True(t, l.Nodes[0].Prev.IsNone())
	})

	t.Run("circular wraps and terminates", func(t *testing.T) {
		l := NewList(ListCircular, []int{1, 2, 3})
		assert.Equal(t, l.Head, l.Nodes[2].Next)
		assert.Equal(t, []int{1, 2, 3}, l.Values())
	})

	t.Run("circular single node self references", func(t *testing.T) {
		l := NewList(ListCircular, []int{5})
		assert.Equal(t, l.Head, l.Nodes[0].Next)
	})
}

func TestTreeState_InOrderAndHeight(t *testing.T) {
	tree := &TreeState{
		Root: 2,
		Nodes: []TreeNode{
			{ID: 2, Value: 20, Left: 1, Right: 3},
			{ID: 1, Value: 10},
			{ID: 3, Value: 30, Right: 4},
			{ID: 4, Value: 40},
		},
	}
	assert.Equal(t, []int{10, 20, 30, 40}, tree.InOrder())
	assert.Equal(t, 3, tree.HeightOf(tree.Root))
	assert.Equal(t, 0, tree.HeightOf(identity.None))
}

func TestArrayState_CircularValues(t *testing.T) {
	a := &ArrayState{
		Cells:    []Cell{{ID: 1, Value: 3}, {Empty: true}, {ID: 2, Value: 1}, {ID: 3, Value: 2}},
		Capacity: 4,
		Front:    2,
		Count:    3,
		Circular: true,
	}
	assert.Equal(t, []int{1, 2, 3}, a.Values())
}

func TestStep_BuildersDoNotAlias(t *testing.T) {
	base := New(OfArray(NewArray([]int{4, 5}, 0)), "start").Mark(RoleComparing, 0)
	derived := base.Mark(RoleComparing, 1).Label(0, "Low").Label(0, "Mid")

	assert.Equal(t, []int{0}, base.Points[RoleComparing].Indices)
	assert.Equal(t, []int{0, 1}, derived.Points[RoleComparing].Indices)
	assert.Nil(t, base.IndexLabels)
	assert.Equal(t, "Low/Mid", derived.IndexLabels[0])
	assert.True(t, derived.Has(RoleComparing, 1))
	assert.False(t, base.Has(RoleComparing, 1))
}

func TestStep_TerminalHelpers(t *testing.T) {
	c := OfArray(NewArray(nil, 0))

	done := New(c, "finished").Done().WithResult(3)
	assert.True(t, done.Terminal)
	assert.Equal(t, OutcomeCompleted, done.Outcome)
	require.NotNil(t, done.Result)
	assert.Equal(t, 3, *done.Result)

	rej := Rejected(c, "Index %d out of range", 9)
	assert.True(t, rej.Terminal)
	assert.Equal(t, OutcomeRejected, rej.Outcome)
	assert.Equal(t, "Index 9 out of range", rej.Message)
}

func TestStep_CloneIsDeep(t *testing.T) {
	s := New(OfArray(NewArray([]int{1}, 0)), "x").
		Mark(RoleSorted, 0).
		LabelID(identity.ID(1), "Head").
		WithResult(1)
	c := s.Clone()

	require.Equal(t, s, c)
	c.Container.Array.Cells[0].Value = 42
	*c.Result = 8
	sel := c.Points[RoleSorted]
	sel.Indices[0] = 7

	assert.Equal(t, 1, s.Container.Array.Cells[0].Value)
	assert.Equal(t, 1, *s.Result)
	assert.Equal(t, 0, s.Points[RoleSorted].Indices[0])
}

func TestStep_RemapIDs(t *testing.T) {
	l := &ListState{
		Kind:  ListSingly,
		Head:  10,
		Tail:  11,
		Nodes: []ListNode{{ID: 10, Value: 1, Next: 11}, {ID: 11, Value: 2}},
	}
	s := New(OfList(l), "walk").MarkIDs(RoleVisited, 10).LabelID(11, "Curr")

	out := s.RemapIDs(func(id identity.ID) identity.ID {
		if id.IsNone() {
			return id
		}
		return id - 9
	})

	assert.Equal(t, identity.ID(1), out.Container.List.Head)
	assert.Equal(t, identity.ID(2), out.Container.List.Nodes[0].Next)
	assert.Equal(t, identity.None, out.Container.List.Nodes[1].Next)
	assert.Equal(t, []identity.ID{1}, out.Points[RoleVisited].IDs)
	assert.Equal(t, "Curr", out.IDLabels[2])
	assert.Equal(t, identity.ID(10), s.Container.List.Head)
}

func TestStep_JSONRoundTripKeepsLabels(t *testing.T) {
	s := New(OfArray(NewArray([]int{7}, 0)), "hello").
		Label(0, "Top").
		LabelID(identity.ID(99), "Head").
		Done()

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var back Step
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "Top", back.IndexLabels[0])
	assert.Equal(t, "Head", back.IDLabels[identity.ID(99)])
	assert.True(t, back.Terminal)
	assert.Equal(t, KindArray, back.Container.Kind)
}
