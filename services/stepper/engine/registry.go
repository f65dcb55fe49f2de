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
	"slices"
	"sync"

	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/arrays"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/graphs"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/heaps"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/lists"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/queues"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/searching"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/sorting"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/stacks"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/strmatch"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/trees"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/unionfind"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// RunFunc starts a producer on a container that has already been checked
// against the family, with every required parameter present.
type RunFunc func(c snapshot.Container, p Params) trace.Sequence

// Handler binds one operation to its producer.
type Handler struct {
	// Needs lists the parameters the operation requires.
	Needs []Param

	// Run starts the producer.
	Run RunFunc
}

// Registry maps family and operation names to handlers.
//
// # Thread Safety
//
// Safe for concurrent use. Registration is expected at startup; lookups
// take a read lock.
type Registry struct {
	mu       sync.RWMutex
	families []Family
	ops      map[Family][]Op
	handlers map[Family]map[Op]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ops:      make(map[Family][]Op),
		handlers: make(map[Family]map[Op]Handler),
	}
}

// Register adds a handler. Registering the same pair twice returns
// ErrDuplicateOp.
func (r *Registry) Register(f Family, op Op, h Handler) error {
	if h.Run == nil {
		return fmt.Errorf("register %s/%s: nil run func", f, op)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	byOp, ok := r.handlers[f]
	if !ok {
		byOp = make(map[Op]Handler)
		r.handlers[f] = byOp
		r.families = append(r.families, f)
	}
	if _, dup := byOp[op]; dup {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateOp, f, op)
	}
	byOp[op] = h
	r.ops[f] = append(r.ops[f], op)
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(f Family, op Op, h Handler) {
	if err := r.Register(f, op, h); err != nil {
		panic(err)
	}
}

// Lookup returns the handler for op within family f.
func (r *Registry) Lookup(f Family, op Op) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byOp, ok := r.handlers[f]
	if !ok {
		return Handler{}, fmt.Errorf("%w: %q", ErrUnknownFamily, f)
	}
	h, ok := byOp[op]
	if !ok {
		return Handler{}, fmt.Errorf("%w: %q for family %s", ErrUnknownOp, op, f)
	}
	return h, nil
}

// Families returns the registered families in registration order.
func (r *Registry) Families() []Family {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.families)
}

// Ops returns the operations of f in registration order, or nil.
func (r *Registry) Ops(f Family) []Op {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.ops[f])
}

// =============================================================================
// Default Registry
// =============================================================================

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the shared registry of every built-in producer.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

func onArray(fn func(*snapshot.ArrayState, Params) trace.Sequence) RunFunc {
	return func(c snapshot.Container, p Params) trace.Sequence { return fn(c.Array, p) }
}

func onList(fn func(*snapshot.ListState, Params) trace.Sequence) RunFunc {
	return func(c snapshot.Container, p Params) trace.Sequence { return fn(c.List, p) }
}

func onTree(fn func(*snapshot.TreeState, Params) trace.Sequence) RunFunc {
	return func(c snapshot.Container, p Params) trace.Sequence { return fn(c.Tree, p) }
}

func onForest(fn func(*snapshot.ForestState, Params) trace.Sequence) RunFunc {
	return func(c snapshot.Container, p Params) trace.Sequence { return fn(c.Forest, p) }
}

func onGraph(fn func(*snapshot.GraphState, Params) trace.Sequence) RunFunc {
	return func(c snapshot.Container, p Params) trace.Sequence { return fn(c.Graph, p) }
}

// onText runs fn on the container's text, or on Params.Text when given.
func onText(fn func(*snapshot.TextState, string) trace.Sequence) RunFunc {
	return func(c snapshot.Container, p Params) trace.Sequence {
		t := c.Text
		if p.Text != "" {
			t = &snapshot.TextState{Text: p.Text}
		}
		return fn(t, p.Pattern)
	}
}

func needs(ps ...Param) []Param { return ps }

func registerBuiltins(r *Registry) {
	// Arrays.
	r.MustRegister(FamilyArray, arrays.OpInsert, Handler{needs(ParamIndex, ParamValue), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
		return arrays.Insert(a, *p.Index, *p.Value)
	})})
	r.MustRegister(FamilyArray, arrays.OpUpdate, Handler{needs(ParamIndex, ParamValue), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
		return arrays.Update(a, *p.Index, *p.Value)
	})})
	r.MustRegister(FamilyArray, arrays.OpDeleteByIndex, Handler{needs(ParamIndex), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
		return arrays.DeleteByIndex(a, *p.Index)
	})})
	r.MustRegister(FamilyArray, arrays.OpDeleteByValue, Handler{needs(ParamValue), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
		return arrays.DeleteByValue(a, *p.Value)
	})})
	r.MustRegister(FamilyArray, arrays.OpSearch, Handler{needs(ParamValue), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
		return arrays.Search(a, *p.Value)
	})})

	// Lists share one handler table; each kind registers the subset it
	// supports.
	listHandlers := map[string]Handler{
		lists.OpInsertHead: {needs(ParamValue), onList(func(l *snapshot.ListState, p Params) trace.Sequence {
			return lists.InsertHead(l, *p.Value)
		})},
		lists.OpInsertTail: {needs(ParamValue), onList(func(l *snapshot.ListState, p Params) trace.Sequence {
			return lists.InsertTail(l, *p.Value)
		})},
		lists.OpInsertAt: {needs(ParamIndex, ParamValue), onList(func(l *snapshot.ListState, p Params) trace.Sequence {
			return lists.InsertAt(l, *p.Index, *p.Value)
		})},
		lists.OpDeleteHead: {nil, onList(func(l *snapshot.ListState, _ Params) trace.Sequence {
			return lists.DeleteHead(l)
		})},
		lists.OpDeleteTail: {nil, onList(func(l *snapshot.ListState, _ Params) trace.Sequence {
			return lists.DeleteTail(l)
		})},
		lists.OpDeleteByValue: {needs(ParamValue), onList(func(l *snapshot.ListState, p Params) trace.Sequence {
			return lists.DeleteByValue(l, *p.Value)
		})},
		lists.OpSearch: {needs(ParamValue), onList(func(l *snapshot.ListState, p Params) trace.Sequence {
			return lists.Search(l, *p.Value)
		})},
		lists.OpReverse: {nil, onList(func(l *snapshot.ListState, _ Params) trace.Sequence {
			return lists.Reverse(l)
		})},
		lists.OpMergeSorted: {needs(ParamValues), onList(func(l *snapshot.ListState, p Params) trace.Sequence {
			return lists.MergeSorted(l, p.Values)
		})},
		lists.OpDetectCycle: {needs(ParamIndex), onList(func(l *snapshot.ListState, p Params) trace.Sequence {
			return lists.DetectCycle(l, *p.Index)
		})},
		lists.OpJosephus: {needs(ParamK), onList(func(l *snapshot.ListState, p Params) trace.Sequence {
			return lists.Josephus(l, *p.K)
		})},
	}
	for _, f := range []Family{FamilySinglyList, FamilyDoublyList, FamilyCircularList} {
		kind, _ := f.ListKind()
		for _, op := range lists.Ops(kind) {
			r.MustRegister(f, Op(op), listHandlers[op])
		}
	}

	// Stack.
	r.MustRegister(FamilyStack, stacks.OpPush, Handler{needs(ParamValue), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
		return stacks.Push(a, *p.Value)
	})})
	r.MustRegister(FamilyStack, stacks.OpPop, Handler{nil, onArray(func(a *snapshot.ArrayState, _ Params) trace.Sequence {
		return stacks.Pop(a)
	})})
	r.MustRegister(FamilyStack, stacks.OpPeek, Handler{nil, onArray(func(a *snapshot.ArrayState, _ Params) trace.Sequence {
		return stacks.Peek(a)
	})})

	// Queue and deque.
	r.MustRegister(FamilyQueue, queues.OpEnqueue, Handler{needs(ParamValue), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
		return queues.Enqueue(a, *p.Value)
	})})
	r.MustRegister(FamilyQueue, queues.OpDequeue, Handler{nil, onArray(func(a *snapshot.ArrayState, _ Params) trace.Sequence {
		return queues.Dequeue(a)
	})})
	r.MustRegister(FamilyQueue, queues.OpPeek, Handler{nil, onArray(func(a *snapshot.ArrayState, _ Params) trace.Sequence {
		return queues.Peek(a)
	})})
	r.MustRegister(FamilyDeque, queues.OpPushFront, Handler{needs(ParamValue), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
		return queues.PushFront(a, *p.Value)
	})})
	r.MustRegister(FamilyDeque, queues.OpPushBack, Handler{needs(ParamValue), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
		return queues.PushBack(a, *p.Value)
	})})
	r.MustRegister(FamilyDeque, queues.OpPopFront, Handler{nil, onArray(func(a *snapshot.ArrayState, _ Params) trace.Sequence {
		return queues.PopFront(a)
	})})
	r.MustRegister(FamilyDeque, queues.OpPopBack, Handler{nil, onArray(func(a *snapshot.ArrayState, _ Params) trace.Sequence {
		return queues.PopBack(a)
	})})

	// Trees. AVL trees support no plain delete: it would leave them
	// unbalanced.
	for _, f := range []Family{FamilyBST, FamilyAVL} {
		insert := trees.Insert
		if f == FamilyAVL {
			insert = trees.InsertAVL
		}
		r.MustRegister(f, trees.OpInsert, Handler{needs(ParamValue), onTree(func(t *snapshot.TreeState, p Params) trace.Sequence {
			return insert(t, *p.Value)
		})})
		r.MustRegister(f, trees.OpSearch, Handler{needs(ParamValue), onTree(func(t *snapshot.TreeState, p Params) trace.Sequence {
			return trees.Search(t, *p.Value)
		})})
		if f == FamilyBST {
			r.MustRegister(f, trees.OpDelete, Handler{needs(ParamValue), onTree(func(t *snapshot.TreeState, p Params) trace.Sequence {
				return trees.Delete(t, *p.Value)
			})})
		}
		r.MustRegister(f, trees.OpInOrder, Handler{nil, onTree(func(t *snapshot.TreeState, _ Params) trace.Sequence {
			return trees.InOrder(t)
		})})
		r.MustRegister(f, trees.OpPreOrder, Handler{nil, onTree(func(t *snapshot.TreeState, _ Params) trace.Sequence {
			return trees.PreOrder(t)
		})})
		r.MustRegister(f, trees.OpPostOrder, Handler{nil, onTree(func(t *snapshot.TreeState, _ Params) trace.Sequence {
			return trees.PostOrder(t)
		})})
	}

	// Heaps.
	for _, f := range []Family{FamilyMinHeap, FamilyMaxHeap} {
		k := heapKind(f)
		r.MustRegister(f, heaps.OpInsert, Handler{needs(ParamValue), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
			return heaps.Insert(a, k, *p.Value)
		})})
		r.MustRegister(f, heaps.OpExtract, Handler{nil, onArray(func(a *snapshot.ArrayState, _ Params) trace.Sequence {
			return heaps.Extract(a, k)
		})})
		r.MustRegister(f, heaps.OpPeek, Handler{nil, onArray(func(a *snapshot.ArrayState, _ Params) trace.Sequence {
			return heaps.Peek(a, k)
		})})
		r.MustRegister(f, heaps.OpBuild, Handler{needs(ParamValues), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
			return heaps.Rebuild(a, k, p.Values)
		})})
	}

	// Union-find. Value and Second name the elements.
	r.MustRegister(FamilyUnionFind, unionfind.OpFind, Handler{needs(ParamValue), onForest(func(f *snapshot.ForestState, p Params) trace.Sequence {
		return unionfind.Find(f, *p.Value)
	})})
	r.MustRegister(FamilyUnionFind, unionfind.OpUnion, Handler{needs(ParamValue, ParamSecond), onForest(func(f *snapshot.ForestState, p Params) trace.Sequence {
		return unionfind.Union(f, *p.Value, *p.Second)
	})})
	r.MustRegister(FamilyUnionFind, unionfind.OpConnected, Handler{needs(ParamValue, ParamSecond), onForest(func(f *snapshot.ForestState, p Params) trace.Sequence {
		return unionfind.Connected(f, *p.Value, *p.Second)
	})})

	// Graphs.
	fromVertex := func(fn func(*snapshot.GraphState, string) trace.Sequence) Handler {
		return Handler{needs(ParamVertex), onGraph(func(g *snapshot.GraphState, p Params) trace.Sequence {
			return fn(g, p.Vertex)
		})}
	}
	r.MustRegister(FamilyGraph, graphs.OpPrim, fromVertex(graphs.Prim))
	r.MustRegister(FamilyGraph, graphs.OpKruskal, Handler{nil, onGraph(func(g *snapshot.GraphState, _ Params) trace.Sequence {
		return graphs.Kruskal(g)
	})})
	r.MustRegister(FamilyGraph, graphs.OpBellmanFord, fromVertex(graphs.BellmanFord))
	r.MustRegister(FamilyGraph, graphs.OpDijkstra, fromVertex(graphs.Dijkstra))
	r.MustRegister(FamilyGraph, graphs.OpBFS, fromVertex(graphs.BFS))
	r.MustRegister(FamilyGraph, graphs.OpDFS, fromVertex(graphs.DFS))

	// Sorting.
	for _, op := range []string{sorting.OpBubble, sorting.OpSelection, sorting.OpInsertion, sorting.OpMerge, sorting.OpQuick, sorting.OpDNF} {
		fn := sortFuncs[op]
		r.MustRegister(FamilySorting, Op(op), Handler{nil, onArray(func(a *snapshot.ArrayState, _ Params) trace.Sequence {
			return fn(a)
		})})
	}

	// Searching.
	r.MustRegister(FamilySearching, searching.OpLinear, Handler{needs(ParamValue), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
		return searching.Linear(a, *p.Value)
	})})
	r.MustRegister(FamilySearching, searching.OpBinary, Handler{needs(ParamValue), onArray(func(a *snapshot.ArrayState, p Params) trace.Sequence {
		return searching.Binary(a, *p.Value)
	})})

	// String matching.
	r.MustRegister(FamilyStringMatch, strmatch.OpNaive, Handler{needs(ParamPattern), onText(strmatch.Naive)})
	r.MustRegister(FamilyStringMatch, strmatch.OpKMP, Handler{needs(ParamPattern), onText(strmatch.KMP)})
}

var sortFuncs = map[string]func(*snapshot.ArrayState) trace.Sequence{
	sorting.OpBubble:    sorting.Bubble,
	sorting.OpSelection: sorting.Selection,
	sorting.OpInsertion: sorting.Insertion,
	sorting.OpMerge:     sorting.Merge,
	sorting.OpQuick:     sorting.Quick,
	sorting.OpDNF:       sorting.DNF,
}

// heapKind returns the ordering of a heap family.
func heapKind(f Family) heaps.Kind {
	if f == FamilyMaxHeap {
		return heaps.Max
	}
	return heaps.Min
}
