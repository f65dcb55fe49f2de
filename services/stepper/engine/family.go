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
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
)

// Family names a kind of structure together with the operations it offers.
type Family string

const (
	FamilyArray        Family = "array"
	FamilySinglyList   Family = "singly-list"
	FamilyDoublyList   Family = "doubly-list"
	FamilyCircularList Family = "circular-list"
	FamilyStack        Family = "stack"
	FamilyQueue        Family = "queue"
	FamilyDeque        Family = "deque"
	FamilyBST          Family = "bst"
	FamilyAVL          Family = "avl"
	FamilyMinHeap      Family = "min-heap"
	FamilyMaxHeap      Family = "max-heap"
	FamilyUnionFind    Family = "union-find"
	FamilyGraph        Family = "graph"
	FamilySorting      Family = "sorting"
	FamilySearching    Family = "searching"
	FamilyStringMatch  Family = "string-match"
)

// Op names an operation within a family, e.g. "INSERT".
type Op string

// Kind returns the container kind the family operates on.
func (f Family) Kind() snapshot.Kind {
	switch f {
	case FamilySinglyList, FamilyDoublyList, FamilyCircularList:
		return snapshot.KindList
	case FamilyBST, FamilyAVL:
		return snapshot.KindTree
	case FamilyUnionFind:
		return snapshot.KindForest
	case FamilyGraph:
		return snapshot.KindGraph
	case FamilyStringMatch:
		return snapshot.KindText
	default:
		return snapshot.KindArray
	}
}

// ListKind returns the list flavour of a list family.
func (f Family) ListKind() (snapshot.ListKind, bool) {
	switch f {
	case FamilySinglyList:
		return snapshot.ListSingly, true
	case FamilyDoublyList:
		return snapshot.ListDoubly, true
	case FamilyCircularList:
		return snapshot.ListCircular, true
	}
	return "", false
}

// Bounded reports whether structures of the family carry a capacity.
func (f Family) Bounded() bool {
	switch f {
	case FamilyArray, FamilyStack, FamilyQueue, FamilyDeque, FamilyMinHeap, FamilyMaxHeap:
		return true
	}
	return false
}

// Accepts reports whether c is a structure of family f.
func (f Family) Accepts(c snapshot.Container) bool {
	if !c.Valid() || c.Kind != f.Kind() {
		return false
	}
	if lk, ok := f.ListKind(); ok {
		return c.List.Kind == lk
	}
	switch f {
	case FamilyQueue, FamilyDeque:
		return c.Array.Circular
	case FamilyMinHeap, FamilyMaxHeap:
		return !c.Array.Circular && c.Array.Heap == string(heapKind(f))
	case FamilyArray, FamilyStack, FamilySorting, FamilySearching:
		return !c.Array.Circular && c.Array.Heap == ""
	}
	return true
}
