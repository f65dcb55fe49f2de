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
	"maps"
	"slices"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
)

// =============================================================================
// Container Kinds
// =============================================================================

// Kind identifies which state a Container carries.
type Kind string

const (
	// KindArray is a flat slot sequence (arrays, stacks, queues, heaps).
	KindArray Kind = "array"

	// KindList is an identity-linked node sequence.
	KindList Kind = "list"

	// KindTree is an identity-linked binary tree.
	KindTree Kind = "tree"

	// KindForest is a union-find parent-pointer forest.
	KindForest Kind = "forest"

	// KindGraph is a weighted vertex/edge graph.
	KindGraph Kind = "graph"

	// KindText is a text/pattern pair for string matching.
	KindText Kind = "text"
)

// Container is a full value copy of one data structure at one instant.
//
// # Description
//
// Exactly one of the state pointers is non-nil and it matches Kind. The
// container never shares memory with another Container once Clone has been
// called; producers always emit clones.
type Container struct {
	Kind   Kind         `json:"kind"`
	Array  *ArrayState  `json:"array,omitempty"`
	List   *ListState   `json:"list,omitempty"`
	Tree   *TreeState   `json:"tree,omitempty"`
	Forest *ForestState `json:"forest,omitempty"`
	Graph  *GraphState  `json:"graph,omitempty"`
	Text   *TextState   `json:"text,omitempty"`
}

// OfArray wraps an array state.
func OfArray(a *ArrayState) Container { return Container{Kind: KindArray, Array: a} }

// OfList wraps a list state.
func OfList(l *ListState) Container { return Container{Kind: KindList, List: l} }

// OfTree wraps a tree state.
func OfTree(t *TreeState) Container { return Container{Kind: KindTree, Tree: t} }

// OfForest wraps a union-find forest.
func OfForest(f *ForestState) Container { return Container{Kind: KindForest, Forest: f} }

// OfGraph wraps a graph state.
func OfGraph(g *GraphState) Container { return Container{Kind: KindGraph, Graph: g} }

// OfText wraps a text state.
func OfText(t *TextState) Container { return Container{Kind: KindText, Text: t} }

// Valid reports whether exactly the state matching Kind is present.
func (c Container) Valid() bool {
	present := 0
	for _, ok := range []bool{c.Array != nil, c.List != nil, c.Tree != nil, c.Forest != nil, c.Graph != nil, c.Text != nil} {
		if ok {
			present++
		}
	}
	if present != 1 {
		return false
	}
	switch c.Kind {
	case KindArray:
		return c.Array != nil
	case KindList:
		return c.List != nil
	case KindTree:
		return c.Tree != nil
	case KindForest:
		return c.Forest != nil
	case KindGraph:
		return c.Graph != nil
	case KindText:
		return c.Text != nil
	default:
		return false
	}
}

// Clone returns a deep copy that shares no mutable memory with c.
func (c Container) Clone() Container {
	out := Container{Kind: c.Kind}
	if c.Array != nil {
		out.Array = c.Array.Clone()
	}
	if c.List != nil {
		out.List = c.List.Clone()
	}
	if c.Tree != nil {
		out.Tree = c.Tree.Clone()
	}
	if c.Forest != nil {
		out.Forest = c.Forest.Clone()
	}
	if c.Graph != nil {
		out.Graph = c.Graph.Clone()
	}
	if c.Text != nil {
		out.Text = c.Text.Clone()
	}
	return out
}

// IDs returns every identity present in the container, in container order.
func (c Container) IDs() []identity.ID {
	var ids []identity.ID
	switch {
	case c.Array != nil:
		for _, cell := range c.Array.Cells {
			if !cell.Empty && !cell.ID.IsNone() {
				ids = append(ids, cell.ID)
			}
		}
	case c.List != nil:
		for _, n := range c.List.Nodes {
			ids = append(ids, n.ID)
		}
	case c.Tree != nil:
		for _, n := range c.Tree.Nodes {
			ids = append(ids, n.ID)
		}
	case c.Graph != nil:
		for _, v := range c.Graph.Vertices {
			ids = append(ids, v.ID)
		}
		for _, e := range c.Graph.Edges {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// remap rewrites every identity in place using f.
func (c *Container) remap(f func(identity.ID) identity.ID) {
	switch {
	case c.Array != nil:
		for i := range c.Array.Cells {
			c.Array.Cells[i].ID = f(c.Array.Cells[i].ID)
		}
	case c.List != nil:
		c.List.Head = f(c.List.Head)
		c.List.Tail = f(c.List.Tail)
		for i := range c.List.Nodes {
			n := &c.List.Nodes[i]
			n.ID, n.Next, n.Prev = f(n.ID), f(n.Next), f(n.Prev)
		}
	case c.Tree != nil:
		c.Tree.Root = f(c.Tree.Root)
		for i := range c.Tree.Nodes {
			n := &c.Tree.Nodes[i]
			n.ID, n.Left, n.Right = f(n.ID), f(n.Left), f(n.Right)
		}
	case c.Graph != nil:
		for i := range c.Graph.Vertices {
			c.Graph.Vertices[i].ID = f(c.Graph.Vertices[i].ID)
		}
		for i := range c.Graph.Edges {
			c.Graph.Edges[i].ID = f(c.Graph.Edges[i].ID)
		}
	}
}

// =============================================================================
// Array
// =============================================================================

// Cell is one slot of an array-backed container.
type Cell struct {
	ID    identity.ID `json:"id"`
	Value int         `json:"value"`
	Empty bool        `json:"empty,omitempty"`
}

// ArrayState is a slot sequence.
//
// Capacity is 0 for unbounded arrays. Circular buffers (queues, deques) keep
// len(Cells) == Capacity and use Front plus Empty flags to locate elements.
type ArrayState struct {
	Cells    []Cell `json:"cells"`
	Capacity int    `json:"capacity,omitempty"`
	Front    int    `json:"front,omitempty"`
	Count    int    `json:"count,omitempty"`
	Circular bool   `json:"circular,omitempty"`
	// Heap is "min" or "max" once the cells are in heap order.
	Heap string `json:"heap,omitempty"`
}

// NewArray builds an array of fresh cells holding values.
func NewArray(values []int, capacity int) *ArrayState {
	ids := identity.AllocateN(len(values))
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Cell{ID: ids[i], Value: v}
	}
	return &ArrayState{Cells: cells, Capacity: capacity}
}

// Clone deep-copies the array.
func (a *ArrayState) Clone() *ArrayState {
	if a == nil {
		return nil
	}
	out := *a
	out.Cells = slices.Clone(a.Cells)
	return &out
}

// Len returns the number of slots.
func (a *ArrayState) Len() int { return len(a.Cells) }

// Values returns the values of occupied cells in slot order.
//
// For circular buffers the order is logical (front to rear).
func (a *ArrayState) Values() []int {
	out := make([]int, 0, len(a.Cells))
	if a.Circular {
		for i := 0; i < a.Count; i++ {
			out = append(out, a.Cells[(a.Front+i)%len(a.Cells)].Value)
		}
		return out
	}
	for _, c := range a.Cells {
		if !c.Empty {
			out = append(out, c.Value)
		}
	}
	return out
}

// =============================================================================
// Linked List
// =============================================================================

// ListKind selects the linking discipline of a list.
type ListKind string

const (
	// ListSingly links each node to its successor only.
	ListSingly ListKind = "singly"

	// ListDoubly links each node to successor and predecessor.
	ListDoubly ListKind = "doubly"

	// ListCircular is singly linked with the tail pointing back at the head.
	ListCircular ListKind = "circular"
)

// ListNode is one identity-bearing list record. Links are identities.
type ListNode struct {
	ID    identity.ID `json:"id"`
	Value int         `json:"value"`
	Next  identity.ID `json:"next,omitempty"`
	Prev  identity.ID `json:"prev,omitempty"`
}

// ListState is an arena of nodes plus head and tail identities.
//
// Nodes are kept in arena order; the logical order is given by following
// Next from Head.
type ListState struct {
	Kind  ListKind    `json:"kind"`
	Head  identity.ID `json:"head,omitempty"`
	Tail  identity.ID `json:"tail,omitempty"`
	Nodes []ListNode  `json:"nodes"`
}

// NewList builds a properly linked list of fresh nodes.
func NewList(kind ListKind, values []int) *ListState {
	l := &ListState{Kind: kind, Nodes: make([]ListNode, len(values))}
	ids := identity.AllocateN(len(values))
	for i, v := range values {
		n := ListNode{ID: ids[i], Value: v}
		if i+1 < len(values) {
			n.Next = ids[i+1]
		}
		if kind == ListDoubly && i > 0 {
			n.Prev = ids[i-1]
		}
		l.Nodes[i] = n
	}
	if len(ids) > 0 {
		l.Head = ids[0]
		l.Tail = ids[len(ids)-1]
		if kind == ListCircular {
			l.Nodes[len(ids)-1].Next = l.Head
		}
	}
	return l
}

// Clone deep-copies the list.
func (l *ListState) Clone() *ListState {
	if l == nil {
		return nil
	}
	out := *l
	out.Nodes = slices.Clone(l.Nodes)
	return &out
}

// Len returns the number of nodes in the arena.
func (l *ListState) Len() int { return len(l.Nodes) }

// Index returns the arena position of id, or -1.
func (l *ListState) Index(id identity.ID) int {
	for i, n := range l.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Node returns the node with the given identity.
func (l *ListState) Node(id identity.ID) (ListNode, bool) {
	if i := l.Index(id); i >= 0 {
		return l.Nodes[i], true
	}
	return ListNode{}, false
}

// Order walks from Head following Next and returns the visited nodes.
//
// The walk stops at a None link or at the first repeated identity, so it
// terminates for circular lists and for lists with a cycle.
func (l *ListState) Order() []ListNode {
	out := make([]ListNode, 0, len(l.Nodes))
	seen := make(map[identity.ID]struct{}, len(l.Nodes))
	for id := l.Head; !id.IsNone(); {
		if _, dup := seen[id]; dup {
			break
		}
		n, ok := l.Node(id)
		if !ok {
			break
		}
		seen[id] = struct{}{}
		out = append(out, n)
		id = n.Next
	}
	return out
}

// Values returns values in logical order.
func (l *ListState) Values() []int {
	order := l.Order()
	out := make([]int, len(order))
	for i, n := range order {
		out[i] = n.Value
	}
	return out
}

// =============================================================================
// Binary Tree
// =============================================================================

// TreeNode is one identity-bearing binary tree record.
type TreeNode struct {
	ID     identity.ID `json:"id"`
	Value  int         `json:"value"`
	Left   identity.ID `json:"left,omitempty"`
	Right  identity.ID `json:"right,omitempty"`
	Height int         `json:"height,omitempty"`
}

// TreeState is an arena of tree nodes plus the root identity.
type TreeState struct {
	Root  identity.ID `json:"root,omitempty"`
	Nodes []TreeNode  `json:"nodes"`
}

// Clone deep-copies the tree.
func (t *TreeState) Clone() *TreeState {
	if t == nil {
		return nil
	}
	out := *t
	out.Nodes = slices.Clone(t.Nodes)
	return &out
}

// Index returns the arena position of id, or -1.
func (t *TreeState) Index(id identity.ID) int {
	for i, n := range t.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Node returns the node with the given identity.
func (t *TreeState) Node(id identity.ID) (TreeNode, bool) {
	if i := t.Index(id); i >= 0 {
		return t.Nodes[i], true
	}
	return TreeNode{}, false
}

// InOrder returns the values reachable from Root in sorted (in-order) order.
func (t *TreeState) InOrder() []int {
	var out []int
	var stack []identity.ID
	cur := t.Root
	for !cur.IsNone() || len(stack) > 0 {
		for !cur.IsNone() {
			stack = append(stack, cur)
			n, _ := t.Node(cur)
			cur = n.Left
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, _ := t.Node(top)
		out = append(out, n.Value)
		cur = n.Right
	}
	return out
}

// HeightOf computes the height of the subtree rooted at id from links,
// ignoring any cached Height field. An empty subtree has height 0.
func (t *TreeState) HeightOf(id identity.ID) int {
	if id.IsNone() {
		return 0
	}
	n, ok := t.Node(id)
	if !ok {
		return 0
	}
	return 1 + max(t.HeightOf(n.Left), t.HeightOf(n.Right))
}

// =============================================================================
// Union-Find Forest
// =============================================================================

// ForestState is a parent-pointer forest over elements 0..n-1.
type ForestState struct {
	Parent []int `json:"parent"`
	Size   []int `json:"size"`
}

// NewForest returns n singleton sets.
func NewForest(n int) *ForestState {
	f := &ForestState{Parent: make([]int, n), Size: make([]int, n)}
	for i := range f.Parent {
		f.Parent[i] = i
		f.Size[i] = 1
	}
	return f
}

// Clone deep-copies the forest.
func (f *ForestState) Clone() *ForestState {
	if f == nil {
		return nil
	}
	return &ForestState{Parent: slices.Clone(f.Parent), Size: slices.Clone(f.Size)}
}

// Root follows parent pointers without compressing.
func (f *ForestState) Root(x int) int {
	for f.Parent[x] != x {
		x = f.Parent[x]
	}
	return x
}

// =============================================================================
// Graph
// =============================================================================

// Vertex is a named graph vertex.
type Vertex struct {
	ID   identity.ID `json:"id"`
	Name string      `json:"name"`
}

// Edge is a weighted edge between two vertex names.
type Edge struct {
	ID     identity.ID `json:"id"`
	From   string      `json:"from"`
	To     string      `json:"to"`
	Weight int         `json:"weight"`
}

// GraphState is a vertex list plus a flat edge list.
//
// Distances holds per-vertex path costs for shortest-path producers; a
// missing key means "not reached".
type GraphState struct {
	Directed  bool           `json:"directed,omitempty"`
	Vertices  []Vertex       `json:"vertices"`
	Edges     []Edge         `json:"edges"`
	Distances map[string]int `json:"distances,omitempty"`
}

// Clone deep-copies the graph.
func (g *GraphState) Clone() *GraphState {
	if g == nil {
		return nil
	}
	return &GraphState{
		Directed:  g.Directed,
		Vertices:  slices.Clone(g.Vertices),
		Edges:     slices.Clone(g.Edges),
		Distances: maps.Clone(g.Distances),
	}
}

// HasVertex reports whether a vertex with the given name exists.
func (g *GraphState) HasVertex(name string) bool {
	return slices.ContainsFunc(g.Vertices, func(v Vertex) bool { return v.Name == name })
}

// VertexID returns the identity of the named vertex, or None.
func (g *GraphState) VertexID(name string) identity.ID {
	for _, v := range g.Vertices {
		if v.Name == name {
			return v.ID
		}
	}
	return identity.None
}

// =============================================================================
// Text
// =============================================================================

// TextState is a text with a pattern aligned at Shift.
//
// Prefix holds the KMP failure table when one has been computed.
type TextState struct {
	Text    string `json:"text"`
	Pattern string `json:"pattern"`
	Shift   int    `json:"shift"`
	Prefix  []int  `json:"prefix,omitempty"`
}

// Clone deep-copies the text state.
func (t *TextState) Clone() *TextState {
	if t == nil {
		return nil
	}
	out := *t
	out.Prefix = slices.Clone(t.Prefix)
	return &out
}
