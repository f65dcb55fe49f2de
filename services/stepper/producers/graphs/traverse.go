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
	"strings"

	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// BFS visits vertices in breadth-first order from start. The terminal step's
// result is the number of vertices reached.
func BFS(g *snapshot.GraphState, start string) trace.Sequence {
	return run(g, func(rec *trace.Recorder, work *snapshot.GraphState) {
		if !requireVertex(rec, work, start) {
			return
		}
		discovered := map[string]bool{start: true}
		queue := []string{start}
		var order []string
		var tree []snapshot.Edge

		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			order = append(order, u)
			if !rec.Emit(view(work, "Dequeue and visit %s; queue: [%s]", u, strings.Join(queue, " ")).
				MarkIDs(snapshot.RoleVisited, vertexIDs(work, order...)...).
				MarkIDs(snapshot.RoleCandidate, vertexIDs(work, queue...)...).
				MarkIDs(snapshot.RoleTreeEdge, edgeIDs(tree)...).
				MarkIDs(snapshot.RoleHighlight, work.VertexID(u))) {
				return
			}
			for _, a := range neighbors(work, u) {
				if discovered[a.to] {
					continue
				}
				discovered[a.to] = true
				queue = append(queue, a.to)
				tree = append(tree, a.edge)
				if !rec.Emit(view(work, "Discover %s from %s", a.to, u).
					MarkIDs(snapshot.RoleVisited, vertexIDs(work, order...)...).
					MarkIDs(snapshot.RoleCandidate, vertexIDs(work, queue...)...).
					MarkIDs(snapshot.RoleTreeEdge, edgeIDs(tree)...).
					MarkIDs(snapshot.RoleActiveEdge, a.edge.ID)) {
					return
				}
			}
		}

		rec.Emit(view(work, "BFS order: %s", strings.Join(order, " ")).
			MarkIDs(snapshot.RoleVisited, vertexIDs(work, order...)...).
			MarkIDs(snapshot.RoleTreeEdge, edgeIDs(tree)...).WithResult(len(order)).Done())
	})
}

// dfsFrame is a vertex on the explicit DFS stack and the index of the next
// neighbour to try.
type dfsFrame struct {
	vertex string
	next   int
}

// DFS visits vertices in depth-first order from start, trying neighbours in
// name order. The terminal step's result is the number of vertices reached.
func DFS(g *snapshot.GraphState, start string) trace.Sequence {
	return run(g, func(rec *trace.Recorder, work *snapshot.GraphState) {
		if !requireVertex(rec, work, start) {
			return
		}
		visited := map[string]bool{start: true}
		order := []string{start}
		var tree []snapshot.Edge
		stack := []dfsFrame{{vertex: start}}

		if !rec.Emit(view(work, "Visit %s", start).
			MarkIDs(snapshot.RoleVisited, work.VertexID(start)).
			MarkIDs(snapshot.RoleHighlight, work.VertexID(start))) {
			return
		}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			adj := neighbors(work, top.vertex)
			for top.next < len(adj) && visited[adj[top.next].to] {
				top.next++
			}
			if top.next == len(adj) {
				done := top.vertex
				stack = stack[:len(stack)-1]
				msg := "Backtrack from " + done
				if len(stack) == 0 {
					msg = done + " has no unvisited neighbours left"
				}
				if !rec.Emit(view(work, "%s", msg).
					MarkIDs(snapshot.RoleVisited, vertexIDs(work, order...)...).
					MarkIDs(snapshot.RoleTreeEdge, edgeIDs(tree)...).
					MarkIDs(snapshot.RolePath, vertexIDs(work, pathOf(stack)...)...)) {
					return
				}
				continue
			}

			a := adj[top.next]
			top.next++
			visited[a.to] = true
			order = append(order, a.to)
			tree = append(tree, a.edge)
			stack = append(stack, dfsFrame{vertex: a.to})
			if !rec.Emit(view(work, "Go deeper to %s via %s", a.to, label(work, a.edge)).
				MarkIDs(snapshot.RoleVisited, vertexIDs(work, order...)...).
				MarkIDs(snapshot.RoleTreeEdge, edgeIDs(tree)...).
				MarkIDs(snapshot.RoleActiveEdge, a.edge.ID).
				MarkIDs(snapshot.RolePath, vertexIDs(work, pathOf(stack)...)...)) {
				return
			}
		}

		rec.Emit(view(work, "DFS order: %s", strings.Join(order, " ")).
			MarkIDs(snapshot.RoleVisited, vertexIDs(work, order...)...).
			MarkIDs(snapshot.RoleTreeEdge, edgeIDs(tree)...).WithResult(len(order)).Done())
	})
}

func pathOf(stack []dfsFrame) []string {
	out := make([]string, len(stack))
	for i, f := range stack {
		out[i] = f.vertex
	}
	return out
}
