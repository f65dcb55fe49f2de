// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphs produces traces for weighted graph algorithms.
//
// # Description
//
// A graph is a vertex list plus a flat edge list (snapshot.GraphState).
// Undirected edges are stored once and de-duplicated by their unordered
// endpoint pair; adjacency is derived from the edge list on demand and is
// ordered by neighbour name so traversals are reproducible.
//
// Algorithms:
//   - PRIM, KRUSKAL: minimum spanning tree (undirected only).
//   - BELLMAN_FORD, DIJKSTRA: single-source shortest paths.
//   - BFS, DFS: traversal order from a start vertex.
package graphs

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Operation names.
const (
	OpPrim        = "PRIM"
	OpKruskal     = "KRUSKAL"
	OpBellmanFord = "BELLMAN_FORD"
	OpDijkstra    = "DIJKSTRA"
	OpBFS         = "BFS"
	OpDFS         = "DFS"
)

// Infinity stands for "not reached" in rendered distances.
const Infinity = math.MaxInt

// Link describes an edge before it is given an identity.
type Link struct {
	From   string
	To     string
	Weight int
}

// Dedup drops repeated edges, keeping the first occurrence. Undirected edges
// are keyed by their unordered endpoint pair, directed ones by (from, to).
func Dedup(links []Link, directed bool) []Link {
	seen := make(map[[2]string]bool, len(links))
	out := make([]Link, 0, len(links))
	for _, l := range links {
		key := [2]string{l.From, l.To}
		if !directed && key[1] < key[0] {
			key[0], key[1] = key[1], key[0]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

// New builds a graph with fresh identities. Vertices named only by edges are
// appended after the listed ones, in first-appearance order.
func New(directed bool, vertices []string, links []Link) *snapshot.GraphState {
	links = Dedup(links, directed)
	names := slices.Clone(vertices)
	for _, l := range links {
		for _, n := range []string{l.From, l.To} {
			if !slices.Contains(names, n) {
				names = append(names, n)
			}
		}
	}
	g := &snapshot.GraphState{
		Directed: directed,
		Vertices: make([]snapshot.Vertex, 0, len(names)),
		Edges:    make([]snapshot.Edge, 0, len(links)),
	}
	for _, n := range names {
		if !g.HasVertex(n) {
			g.Vertices = append(g.Vertices, snapshot.Vertex{ID: identity.Allocate(), Name: n})
		}
	}
	for _, l := range links {
		g.Edges = append(g.Edges, snapshot.Edge{ID: identity.Allocate(), From: l.From, To: l.To, Weight: l.Weight})
	}
	return g
}

// SampleGraph is the six-vertex undirected teaching graph. Its minimum
// spanning tree weighs 16.
func SampleGraph() *snapshot.GraphState {
	return New(false, []string{"A", "B", "C", "D", "E", "F"}, []Link{
		{"A", "B", 4},
		{"A", "C", 3},
		{"B", "C", 1},
		{"B", "D", 2},
		{"C", "D", 4},
		{"D", "E", 2},
		{"C", "E", 5},
		{"E", "F", 8},
		{"D", "F", 9},
	})
}

// ParseLinks reads edges written as "A-B:4" (undirected) or "A>B:4"
// (directed), separated by whitespace or commas. directed reports whether
// the edges used '>'; one list cannot mix both styles.
func ParseLinks(s string) (links []Link, directed bool, err error) {
	var dashes, arrows int
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' }) {
		ends, weight, ok := strings.Cut(f, ":")
		if !ok {
			return nil, false, fmt.Errorf("edge %q: missing weight", f)
		}
		from, to, ok := strings.Cut(ends, "-")
		if ok {
			dashes++
		} else if from, to, ok = strings.Cut(ends, ">"); ok {
			arrows++
		}
		if !ok || from == "" || to == "" {
			return nil, false, fmt.Errorf("edge %q: expected FROM-TO:WEIGHT or FROM>TO:WEIGHT", f)
		}
		var w int
		if _, err := fmt.Sscan(weight, &w); err != nil {
			return nil, false, fmt.Errorf("edge %q: weight: %w", f, err)
		}
		links = append(links, Link{From: from, To: to, Weight: w})
	}
	if dashes > 0 && arrows > 0 {
		return nil, false, fmt.Errorf("edges mix '-' and '>' (%d undirected, %d directed)", dashes, arrows)
	}
	return links, arrows > 0, nil
}

// =============================================================================
// Helpers
// =============================================================================

// arc is one traversable direction of an edge.
type arc struct {
	to   string
	edge snapshot.Edge
}

// neighbors lists the arcs leaving v, ordered by neighbour name then weight.
func neighbors(g *snapshot.GraphState, v string) []arc {
	var out []arc
	for _, e := range g.Edges {
		switch {
		case e.From == v:
			out = append(out, arc{to: e.To, edge: e})
		case !g.Directed && e.To == v:
			out = append(out, arc{to: e.From, edge: e})
		}
	}
	slices.SortStableFunc(out, func(a, b arc) int {
		return cmp.Or(cmp.Compare(a.to, b.to), cmp.Compare(a.edge.Weight, b.edge.Weight))
	})
	return out
}

// hop is an arc that remembers its tail.
type hop struct {
	from, to string
	edge     snapshot.Edge
}

// hops lists every traversable direction of every edge, in edge order.
func hops(g *snapshot.GraphState) []hop {
	out := make([]hop, 0, 2*len(g.Edges))
	for _, e := range g.Edges {
		out = append(out, hop{from: e.From, to: e.To, edge: e})
		if !g.Directed {
			out = append(out, hop{from: e.To, to: e.From, edge: e})
		}
	}
	return out
}

func label(g *snapshot.GraphState, e snapshot.Edge) string {
	sep := "-"
	if g.Directed {
		sep = "->"
	}
	return fmt.Sprintf("%s%s%s (%d)", e.From, sep, e.To, e.Weight)
}

func vertexIDs(g *snapshot.GraphState, vs ...string) []identity.ID {
	ids := make([]identity.ID, 0, len(vs))
	for _, v := range vs {
		ids = append(ids, g.VertexID(v))
	}
	return ids
}

func edgeIDs(es []snapshot.Edge) []identity.ID {
	ids := make([]identity.ID, len(es))
	for i, e := range es {
		ids[i] = e.ID
	}
	return ids
}

// FormatDistances renders distances in vertex order, "∞" for unreached.
func FormatDistances(g *snapshot.GraphState) string {
	parts := make([]string, len(g.Vertices))
	for i, v := range g.Vertices {
		d, ok := g.Distances[v.Name]
		if !ok || d == Infinity {
			parts[i] = v.Name + "=∞"
		} else {
			parts[i] = fmt.Sprintf("%s=%d", v.Name, d)
		}
	}
	return strings.Join(parts, " ")
}

func run(g *snapshot.GraphState, body func(*trace.Recorder, *snapshot.GraphState)) trace.Sequence {
	base := g.Clone()
	return func(yield func(snapshot.Step) bool) {
		body(trace.NewRecorder(yield), base.Clone())
	}
}

func view(g *snapshot.GraphState, format string, args ...any) snapshot.Step {
	return snapshot.New(snapshot.OfGraph(g), format, args...)
}

// requireVertex rejects an unknown start vertex.
func requireVertex(rec *trace.Recorder, g *snapshot.GraphState, v string) bool {
	if g.HasVertex(v) {
		return true
	}
	rec.Emit(snapshot.Rejected(snapshot.OfGraph(g), "Vertex %q not found", v))
	return false
}

// requireUndirected rejects spanning-tree requests on directed graphs.
func requireUndirected(rec *trace.Recorder, g *snapshot.GraphState) bool {
	if !g.Directed {
		return true
	}
	rec.Emit(snapshot.Rejected(snapshot.OfGraph(g), "Minimum spanning trees need an undirected graph"))
	return false
}
