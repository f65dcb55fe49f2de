// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphs

import (
	"cmp"
	"slices"
	"strings"

	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/unionfind"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Prim grows a minimum spanning tree from start.
//
// # Description
//
// Keeps a visited set and a pool of candidate edges leaving it. Each step
// takes the lightest pool edge whose far end is still unvisited. Among equal
// weights the edge added to the pool first wins, which depends on the order
// vertices were reached; tie-breaking is therefore not canonical and two
// equal-weight trees may differ in their edges, never in their weight.
//
// # Outputs
//
//   - trace.Sequence: A start step, one step per tree edge, and a terminal
//     step whose result is the total weight. A disconnected graph yields the
//     tree of start's component.
func Prim(g *snapshot.GraphState, start string) trace.Sequence {
	return run(g, func(rec *trace.Recorder, work *snapshot.GraphState) {
		if !requireUndirected(rec, work) || !requireVertex(rec, work, start) {
			return
		}
		visited := map[string]bool{start: true}
		order := []string{start}
		var pool []arc
		var tree []snapshot.Edge
		total := 0

		grow := func(v string) {
			for _, a := range neighbors(work, v) {
				if !visited[a.to] {
					pool = append(pool, a)
				}
			}
			pool = slices.DeleteFunc(pool, func(a arc) bool { return visited[a.to] })
		}
		candidates := func() []snapshot.Edge {
			out := make([]snapshot.Edge, len(pool))
			for i, a := range pool {
				out[i] = a.edge
			}
			return out
		}

		grow(start)
		if !rec.Emit(view(work, "Start at %s with %d candidate edges", start, len(pool)).
			MarkIDs(snapshot.RoleVisited, vertexIDs(work, order...)...).
			MarkIDs(snapshot.RoleCandidate, edgeIDs(candidates())...)) {
			return
		}

		for len(tree) < len(work.Vertices)-1 && len(pool) > 0 {
			best := 0
			for i, a := range pool {
				if a.edge.Weight < pool[best].edge.Weight {
					best = i
				}
			}
			a := pool[best]
			visited[a.to] = true
			order = append(order, a.to)
			tree = append(tree, a.edge)
			total += a.edge.Weight
			grow(a.to)

			if !rec.Emit(view(work, "Take %s, the lightest edge crossing the cut; %s joins the tree", label(work, a.edge), a.to).
				MarkIDs(snapshot.RoleVisited, vertexIDs(work, order...)...).
				MarkIDs(snapshot.RoleTreeEdge, edgeIDs(tree)...).
				MarkIDs(snapshot.RoleActiveEdge, a.edge.ID).
				MarkIDs(snapshot.RoleCandidate, edgeIDs(candidates())...)) {
				return
			}
		}

		rec.Emit(finish(work, tree, total, "Unreachable from "+start).
			MarkIDs(snapshot.RoleVisited, vertexIDs(work, order...)...))
	})
}

// Kruskal sorts edges by weight once and takes every edge that joins two
// components, using union-find as the cycle test. It stops as soon as the
// tree has |V|-1 edges.
func Kruskal(g *snapshot.GraphState) trace.Sequence {
	return run(g, func(rec *trace.Recorder, work *snapshot.GraphState) {
		if !requireUndirected(rec, work) {
			return
		}
		sorted := slices.Clone(work.Edges)
		slices.SortStableFunc(sorted, func(a, b snapshot.Edge) int { return cmp.Compare(a.Weight, b.Weight) })
		labels := make([]string, len(sorted))
		for i, e := range sorted {
			labels[i] = label(work, e)
		}
		if !rec.Emit(view(work, "Sort edges by weight: %s", strings.Join(labels, ", ")).
			MarkIDs(snapshot.RoleCandidate, edgeIDs(sorted)...)) {
			return
		}

		index := make(map[string]int, len(work.Vertices))
		for i, v := range work.Vertices {
			index[v.Name] = i
		}
		forest := snapshot.NewForest(len(work.Vertices))
		var tree []snapshot.Edge
		total := 0

		for _, e := range sorted {
			if len(tree) == len(work.Vertices)-1 {
				break
			}
			if !unionfind.Link(forest, index[e.From], index[e.To]) {
				if !rec.Emit(view(work, "Skip %s: it would close a cycle", label(work, e)).
					MarkIDs(snapshot.RoleTreeEdge, edgeIDs(tree)...).
					MarkIDs(snapshot.RoleRejected, e.ID)) {
					return
				}
				continue
			}
			tree = append(tree, e)
			total += e.Weight
			if !rec.Emit(view(work, "Take %s: it joins two components", label(work, e)).
				MarkIDs(snapshot.RoleTreeEdge, edgeIDs(tree)...).
				MarkIDs(snapshot.RoleActiveEdge, e.ID)) {
				return
			}
		}

		rec.Emit(finish(work, tree, total, "Graph is disconnected"))
	})
}

// finish is the terminal spanning-tree step. prefix introduces the
// disconnected case.
func finish(g *snapshot.GraphState, tree []snapshot.Edge, total int, prefix string) snapshot.Step {
	s := view(g, "Minimum spanning tree: %d edges, weight %d", len(tree), total)
	if len(g.Vertices) > 0 && len(tree) < len(g.Vertices)-1 {
		s = view(g, "%s; spanning forest has %d edges, weight %d", prefix, len(tree), total)
	}
	return s.MarkIDs(snapshot.RoleTreeEdge, edgeIDs(tree)...).WithResult(total).Done()
}
