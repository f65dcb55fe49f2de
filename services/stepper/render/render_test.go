// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/trees"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
)

func TestStep_Array(t *testing.T) {
	a := snapshot.NewArray([]int{12, 45, 7}, 0)
	s := snapshot.New(snapshot.OfArray(a), "Pushed 7").
		Label(2, "Top").Mark(snapshot.RoleWriting, 2).Done()

	want := strings.Join([]string{
		"0    1    2",
		"[12] [45] [7]",
		"          Top",
		"writing: 2",
		"Pushed 7",
		"✓ completed",
	}, "\n")
	assert.Equal(t, want, Step(s))
}

func TestStep_Rejected(t *testing.T) {
	s := snapshot.Rejected(snapshot.OfArray(snapshot.NewArray(nil, 4)), "Underflow: stack is empty")
	assert.Equal(t, "[]\nUnderflow: stack is empty\n✗ rejected", Step(s))
}

func TestStep_Result(t *testing.T) {
	s := snapshot.New(snapshot.OfArray(snapshot.NewArray([]int{1}, 0)), "Found").WithResult(0).Done()
	assert.True(t, strings.HasSuffix(Step(s), "✓ completed (result 0)"))
}

func TestContainer_Lists(t *testing.T) {
	tests := []struct {
		name string
		kind snapshot.ListKind
		want string
	}{
		{"singly", snapshot.ListSingly, "head -> [1] -> [2] -> [3] -> nil"},
		{"doubly", snapshot.ListDoubly, "head <-> [1] <-> [2] <-> [3] <-> nil"},
		{"circular", snapshot.ListCircular, "head -> [1] -> [2] -> [3] -> (head)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := snapshot.NewList(tt.kind, []int{1, 2, 3})
			s := snapshot.New(snapshot.OfList(l), "x")
			assert.Equal(t, tt.want, Plain().Container(s))
		})
	}
}

func TestContainer_ListLabelsAndDetached(t *testing.T) {
	l := snapshot.NewList(snapshot.ListSingly, []int{1, 2, 3})
	second := l.Nodes[1].ID
	// Cut the chain after the head, leaving 2 and 3 detached.
	l.Nodes[0].Next = identity.None
	s := snapshot.New(snapshot.OfList(l), "x").LabelID(l.Head, "Head").LabelID(second, "Curr")

	out := Plain().Container(s)
	assert.Contains(t, out, "head -> [1] -> nil")
	assert.Contains(t, out, "detached: [2]->3 [3]->nil")
	assert.Contains(t, out, "labels: Curr=2 Head=1")
}

func TestContainer_Tree(t *testing.T) {
	tr := trees.Build([]int{8, 3, 10, 5}, false)
	s := snapshot.New(snapshot.OfTree(tr), "x").LabelID(tr.Root, "Root")

	want := strings.Join([]string{
		"[8] (Root)",
		"├─L [3]",
		"│   └─R [5]",
		"└─R [10]",
	}, "\n")
	assert.Equal(t, want, Plain().Container(s))
	assert.Equal(t, "(empty tree)", Plain().Container(snapshot.New(snapshot.OfTree(&snapshot.TreeState{}), "x")))
}

func TestContainer_Forest(t *testing.T) {
	f := snapshot.NewForest(3)
	f.Parent[2] = 0
	f.Size[0] = 2
	s := snapshot.New(snapshot.OfForest(f), "x").Label(0, "Root x")

	out := Plain().Container(s)
	assert.Contains(t, out, "↑1 ↑0")
	assert.Contains(t, out, "Root x")
	assert.Contains(t, out, "roots: 0(size 2) 1(size 1)")
}

func TestContainer_Graph(t *testing.T) {
	ids := identity.AllocateN(3)
	g := &snapshot.GraphState{
		Vertices:  []snapshot.Vertex{{ID: ids[0], Name: "A"}, {ID: ids[1], Name: "B"}},
		Edges:     []snapshot.Edge{{ID: ids[2], From: "A", To: "B", Weight: 4}},
		Distances: map[string]int{"A": 0},
	}
	s := snapshot.New(snapshot.OfGraph(g), "x").MarkIDs(snapshot.RoleTreeEdge, ids[2])

	out := Plain().Container(s)
	assert.Contains(t, out, "vertices: A=0 B=∞")
	assert.Contains(t, out, "A - B (4) [tree-edge]")
	assert.Equal(t, "tree-edge: A-B", Roles(s))

	g.Directed = true
	assert.Contains(t, Plain().Container(s), "A -> B (4)")
}

func TestContainer_Text(t *testing.T) {
	txt := &snapshot.TextState{Text: "abcab", Pattern: "cab", Shift: 2, Prefix: []int{0, 0, 0}}
	s := snapshot.New(snapshot.OfText(txt), "x").Mark(snapshot.RoleMatched, 2, 3)

	assert.Equal(t, "text:    abcab\npattern:   cab\nprefix:  0 0 0", Plain().Container(s))
	assert.Equal(t, "matched: 2 3", Roles(s))
}

func TestRoles_PriorityOrder(t *testing.T) {
	s := snapshot.New(snapshot.OfArray(snapshot.NewArray([]int{1, 2}, 0)), "x").
		Mark(snapshot.RoleVisited, 0).Mark(snapshot.RoleFound, 1)
	assert.Equal(t, "found: 1\nvisited: 0", Roles(s))

	role, ok := roleOf(s, 1, identity.None)
	assert.True(t, ok)
	assert.Equal(t, snapshot.RoleFound, role)
}

func TestNew_Color(t *testing.T) {
	a := snapshot.NewArray([]int{12, 45}, 0)
	s := snapshot.New(snapshot.OfArray(a), "x").Mark(snapshot.RoleComparing, 0, 1)
	out := New(true).Step(s)
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "45")
	assert.Contains(t, out, "comparing: 0 1")
}
