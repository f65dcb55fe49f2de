// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/graphs"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/heaps"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/queues"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/trees"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/unionfind"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
)

// Limits bound the structures Build will create.
type Limits struct {
	// Capacity is the default capacity per bounded family.
	Capacity map[Family]int

	// MaxCapacity caps any requested capacity.
	MaxCapacity int

	// MaxElements caps the number of initial values and union-find elements.
	MaxElements int

	// ForestSize is the default number of union-find elements.
	ForestSize int
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		Capacity: map[Family]int{
			FamilyArray:   10,
			FamilyStack:   8,
			FamilyQueue:   8,
			FamilyDeque:   8,
			FamilyMinHeap: 15,
			FamilyMaxHeap: 15,
		},
		MaxCapacity: 64,
		MaxElements: 64,
		ForestSize:  8,
	}
}

// CapacityFor returns the capacity to use for f when the caller asked for
// requested (0 means "default").
func (l Limits) CapacityFor(f Family, requested int) (int, error) {
	c := requested
	if c == 0 {
		c = l.Capacity[f]
	}
	if c < 1 || c > l.MaxCapacity {
		return 0, fmt.Errorf("%w: %s capacity %d not in [1, %d]", ErrCapacity, f, c, l.MaxCapacity)
	}
	return c, nil
}

// Spec describes a structure to build.
type Spec struct {
	Family Family `json:"family"`

	// Values are the initial elements. For union-find they are pairs of
	// elements to join.
	Values []int `json:"values,omitempty"`

	// Capacity is the bound for bounded families and the element count for
	// union-find. 0 selects the configured default.
	Capacity int `json:"capacity,omitempty"`

	// Text is the haystack for string matching.
	Text string `json:"text,omitempty"`

	// Edges lists graph edges as "A-B:4, B-C:2" or, for a directed graph,
	// "A>B:4, B>C:2". Empty selects the sample graph.
	Edges string `json:"edges,omitempty"`

	// Directed makes every parsed edge one-way, including edges written
	// with '-'. The sample graph is always undirected.
	Directed bool `json:"directed,omitempty"`
}

// NewStructure builds a fresh structure of family f from values.
func (e *Engine) NewStructure(f Family, values []int, capacity int) (snapshot.Container, error) {
	return e.Build(Spec{Family: f, Values: values, Capacity: capacity})
}

// Build creates the container described by spec. Every element receives a
// fresh identity.
//
// # Outputs
//
//   - snapshot.Container: The new structure.
//   - error: ErrUnknownFamily, ErrCapacity or ErrInvalidStructure.
func (e *Engine) Build(spec Spec) (snapshot.Container, error) {
	f := spec.Family
	if len(e.registry.Ops(f)) == 0 {
		return snapshot.Container{}, fmt.Errorf("%w: %q", ErrUnknownFamily, f)
	}
	if len(spec.Values) > e.limits.MaxElements {
		return snapshot.Container{}, fmt.Errorf("%w: %d values, limit %d", ErrCapacity, len(spec.Values), e.limits.MaxElements)
	}

	capacity := 0
	if f.Bounded() {
		c, err := e.limits.CapacityFor(f, spec.Capacity)
		if err != nil {
			return snapshot.Container{}, err
		}
		if len(spec.Values) > c {
			return snapshot.Container{}, fmt.Errorf("%w: %d values exceed %s capacity %d", ErrCapacity, len(spec.Values), f, c)
		}
		capacity = c
	}

	switch f {
	case FamilyArray, FamilyStack, FamilySorting, FamilySearching:
		return snapshot.OfArray(snapshot.NewArray(spec.Values, capacity)), nil

	case FamilyQueue, FamilyDeque:
		a, err := queues.New(spec.Values, capacity)
		if err != nil {
			return snapshot.Container{}, fmt.Errorf("%w: %w", ErrCapacity, err)
		}
		return snapshot.OfArray(a), nil

	case FamilyMinHeap, FamilyMaxHeap:
		return heapify(snapshot.NewArray(spec.Values, capacity), heapKind(f)), nil

	case FamilySinglyList, FamilyDoublyList, FamilyCircularList:
		kind, _ := f.ListKind()
		return snapshot.OfList(snapshot.NewList(kind, spec.Values)), nil

	case FamilyBST, FamilyAVL:
		return snapshot.OfTree(trees.Build(spec.Values, f == FamilyAVL)), nil

	case FamilyUnionFind:
		return e.buildForest(spec)

	case FamilyGraph:
		return buildGraph(spec)

	case FamilyStringMatch:
		return snapshot.OfText(&snapshot.TextState{Text: spec.Text}), nil
	}
	return snapshot.Container{}, fmt.Errorf("%w: %q has no builder", ErrUnknownFamily, f)
}

// heapify arranges a into heap order without recording steps.
func heapify(a *snapshot.ArrayState, k heaps.Kind) snapshot.Container {
	out := snapshot.OfArray(a)
	for s := range heaps.Build(a, k) {
		out = s.Container
	}
	return out
}

func (e *Engine) buildForest(spec Spec) (snapshot.Container, error) {
	n := spec.Capacity
	if n == 0 {
		n = e.limits.ForestSize
	}
	if n < 1 || n > e.limits.MaxElements {
		return snapshot.Container{}, fmt.Errorf("%w: %d elements not in [1, %d]", ErrCapacity, n, e.limits.MaxElements)
	}
	if len(spec.Values)%2 != 0 {
		return snapshot.Container{}, fmt.Errorf("%w: union-find values must be pairs, got %d", ErrInvalidStructure, len(spec.Values))
	}
	f := snapshot.NewForest(n)
	for i := 0; i < len(spec.Values); i += 2 {
		x, y := spec.Values[i], spec.Values[i+1]
		if x < 0 || x >= n || y < 0 || y >= n {
			return snapshot.Container{}, fmt.Errorf("%w: pair (%d, %d) out of range [0, %d)", ErrInvalidStructure, x, y, n)
		}
		unionfind.Link(f, x, y)
	}
	return snapshot.OfForest(f), nil
}

func buildGraph(spec Spec) (snapshot.Container, error) {
	if strings.TrimSpace(spec.Edges) == "" {
		return snapshot.OfGraph(graphs.SampleGraph()), nil
	}
	links, arrows, err := graphs.ParseLinks(spec.Edges)
	if err != nil {
		return snapshot.Container{}, fmt.Errorf("%w: %w", ErrInvalidStructure, err)
	}
	return snapshot.OfGraph(graphs.New(spec.Directed || arrows, nil, links)), nil
}
