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
	"fmt"

	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// BellmanFord computes shortest distances from source.
//
// # Description
//
// Runs up to |V|-1 rounds, each relaxing every edge (both directions for
// undirected graphs). A step is emitted for every successful relaxation and
// at the end of every round; a round that changes nothing ends the loop
// early. One extra pass then looks for an edge that can still be relaxed;
// the first one found is reported as evidence of a negative cycle and the
// cycle itself is not enumerated.
//
// The terminal step's result is 1 when a negative cycle was found, else 0.
func BellmanFord(g *snapshot.GraphState, source string) trace.Sequence {
	return run(g, func(rec *trace.Recorder, work *snapshot.GraphState) {
		if !requireVertex(rec, work, source) {
			return
		}
		dist := initDistances(work, source)
		if !rec.Emit(view(work, "Initialize: %s = 0, every other vertex ∞", source).
			MarkIDs(snapshot.RoleFound, work.VertexID(source))) {
			return
		}

		all := hops(work)
		for round := 1; round < len(work.Vertices); round++ {
			changed := false
			for _, h := range all {
				du := dist[h.from]
				if du == Infinity || du+h.edge.Weight >= dist[h.to] {
					continue
				}
				dist[h.to] = du + h.edge.Weight
				changed = true
				if !rec.Emit(view(work, "Round %d: relax %s, %s = %d", round, hopLabel(h), h.to, dist[h.to]).
					MarkIDs(snapshot.RoleActiveEdge, h.edge.ID).
					MarkIDs(snapshot.RoleWriting, work.VertexID(h.to))) {
					return
				}
			}
			if !changed {
				if !rec.Emit(view(work, "Round %d changed nothing: stop early", round)) {
					return
				}
				break
			}
			if !rec.Emit(view(work, "Round %d complete: %s", round, FormatDistances(work))) {
				return
			}
		}

		for _, h := range all {
			du := dist[h.from]
			if du != Infinity && du+h.edge.Weight < dist[h.to] {
				rec.Emit(view(work, "Negative cycle: %s can still be relaxed", hopLabel(h)).
					MarkIDs(snapshot.RoleRejected, h.edge.ID).WithResult(1).Done())
				return
			}
		}
		rec.Emit(view(work, "Shortest distances from %s: %s", source, FormatDistances(work)).WithResult(0).Done())
	})
}

// Dijkstra computes shortest distances from source on non-negative weights.
// Each round settles the unsettled vertex with the smallest distance, ties
// going to the earlier vertex, then relaxes its outgoing edges.
func Dijkstra(g *snapshot.GraphState, source string) trace.Sequence {
	return run(g, func(rec *trace.Recorder, work *snapshot.GraphState) {
		if !requireVertex(rec, work, source) {
			return
		}
		for _, e := range work.Edges {
			if e.Weight < 0 {
				rec.Emit(snapshot.Rejected(snapshot.OfGraph(work),
					"Dijkstra requires non-negative weights; %s is negative", label(work, e)))
				return
			}
		}
		dist := initDistances(work, source)
		if !rec.Emit(view(work, "Initialize: %s = 0, every other vertex ∞", source).
			MarkIDs(snapshot.RoleFound, work.VertexID(source))) {
			return
		}

		settled := make(map[string]bool, len(work.Vertices))
		var order []string
		for {
			u := ""
			for _, v := range work.Vertices {
				if !settled[v.Name] && dist[v.Name] != Infinity && (u == "" || dist[v.Name] < dist[u]) {
					u = v.Name
				}
			}
			if u == "" {
				break
			}
			settled[u] = true
			order = append(order, u)
			if !rec.Emit(view(work, "Settle %s at distance %d", u, dist[u]).
				MarkIDs(snapshot.RoleVisited, vertexIDs(work, order...)...).
				MarkIDs(snapshot.RoleHighlight, work.VertexID(u))) {
				return
			}
			for _, a := range neighbors(work, u) {
				if settled[a.to] || dist[u]+a.edge.Weight >= dist[a.to] {
					continue
				}
				dist[a.to] = dist[u] + a.edge.Weight
				if !rec.Emit(view(work, "Relax %s, %s = %d", hopLabel(hop{from: u, to: a.to, edge: a.edge}), a.to, dist[a.to]).
					MarkIDs(snapshot.RoleActiveEdge, a.edge.ID).
					MarkIDs(snapshot.RoleWriting, work.VertexID(a.to))) {
					return
				}
			}
		}

		rec.Emit(view(work, "Shortest distances from %s: %s", source, FormatDistances(work)).
			MarkIDs(snapshot.RoleVisited, vertexIDs(work, order...)...).WithResult(len(order)).Done())
	})
}

// initDistances sets every distance to Infinity and source to 0. The map is
// the graph's own, so later writes show up in emitted steps.
func initDistances(g *snapshot.GraphState, source string) map[string]int {
	g.Distances = make(map[string]int, len(g.Vertices))
	for _, v := range g.Vertices {
		g.Distances[v.Name] = Infinity
	}
	g.Distances[source] = 0
	return g.Distances
}

func hopLabel(h hop) string {
	return fmt.Sprintf("%s->%s (%d)", h.from, h.to, h.edge.Weight)
}
