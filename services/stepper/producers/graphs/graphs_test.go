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
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/internal/steptest"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

func summary(tr trace.Trace) string {
	return steptest.Summary(tr, func(c snapshot.Container) string {
		if len(c.Graph.Distances) == 0 {
			return ""
		}
		return FormatDistances(c.Graph)
	})
}

func TestGraphs_DataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/graphs", func(t *testing.T, td *datadriven.TestData) string {
		var source string
		td.MaybeScanArgs(t, "source", &source)
		links, arrows, err := ParseLinks(td.Input)
		require.NoError(t, err)
		g := New(td.HasArg("directed") || arrows, nil, links)

		var seq trace.Sequence
		switch td.Cmd {
		case "prim":
			seq = Prim(g, source)
		case "kruskal":
			seq = Kruskal(g)
		case "bellman-ford":
			seq = BellmanFord(g, source)
		case "dijkstra":
			seq = Dijkstra(g, source)
		case "bfs":
			seq = BFS(g, source)
		case "dfs":
			seq = DFS(g, source)
		default:
			return "unknown command"
		}
		// Lines without distances carry an empty state column.
		out := summary(steptest.Run(t, "graphs", td.Cmd, seq))
		return strings.ReplaceAll(strings.TrimPrefix(out, " "), "\n ", "\n")
	})
}

func TestSampleGraph_MSTWeight(t *testing.T) {
	g := SampleGraph()
	require.Len(t, g.Vertices, 6)

	prim := steptest.Run(t, "graphs", OpPrim, Prim(g, "A"))
	kruskal := steptest.Run(t, "graphs", OpKruskal, Kruskal(g))

	assert.Equal(t, 16, *prim.Last().Result)
	assert.Equal(t, 16, *kruskal.Last().Result)
	assert.Len(t, prim.Last().Points[snapshot.RoleTreeEdge].IDs, 5)
	assert.Len(t, kruskal.Last().Points[snapshot.RoleTreeEdge].IDs, 5)
}

func TestPrim_WeightIndependentOfStart(t *testing.T) {
	g := SampleGraph()
	for _, v := range g.Vertices {
		tr := steptest.Run(t, "graphs", OpPrim, Prim(g, v.Name))
		assert.Equal(t, 16, *tr.Last().Result, "start %s", v.Name)
	}
}

func TestKruskal_StopsAtVMinusOne(t *testing.T) {
	g := SampleGraph()
	tr := steptest.Run(t, "graphs", OpKruskal, Kruskal(g))

	considered := 0
	for _, s := range tr.Steps[1 : tr.Len()-1] {
		if strings.HasPrefix(s.Message, "Take") || strings.HasPrefix(s.Message, "Skip") {
			considered++
		}
	}
	// E-F (8) completes the tree; D-F (9) is never considered.
	assert.Equal(t, len(g.Edges)-1, considered)
	assert.NotContains(t, tr.Steps[tr.Len()-2].Message, "D-F")
}

func TestDedup(t *testing.T) {
	links := []Link{{"A", "B", 1}, {"B", "A", 7}, {"A", "B", 3}, {"B", "C", 2}}

	undirected := Dedup(links, false)
	assert.Equal(t, []Link{{"A", "B", 1}, {"B", "C", 2}}, undirected)

	directed := Dedup(links, true)
	assert.Equal(t, []Link{{"A", "B", 1}, {"B", "A", 7}, {"B", "C", 2}}, directed)

	g := New(false, []string{"C"}, links)
	assert.Len(t, g.Edges, 2)
	assert.Equal(t, "C", g.Vertices[0].Name, "listed vertices come first")
}

func TestParseLinks(t *testing.T) {
	tests := []struct {
		in           string
		want         []Link
		wantDirected bool
		wantErr      bool
	}{
		{"A-B:4, B-C:-2", []Link{{"A", "B", 4}, {"B", "C", -2}}, false, false},
		{"A>B:4 B>C:-2", []Link{{"A", "B", 4}, {"B", "C", -2}}, true, false},
		{"", nil, false, false},
		{"A-B:4, B>C:2", nil, false, true},
		{"A-B", nil, false, true},
		{"AB:3", nil, false, true},
		{"A-B:x", nil, false, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got, directed, err := ParseLinks(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDirected, directed)
		})
	}
}

func TestShortestPaths_Agree(t *testing.T) {
	g := SampleGraph()
	bf := steptest.Run(t, "graphs", OpBellmanFord, BellmanFord(g, "A"))
	dj := steptest.Run(t, "graphs", OpDijkstra, Dijkstra(g, "A"))

	assert.Equal(t, 0, *bf.Last().Result)
	assert.Equal(t, bf.Final().Graph.Distances, dj.Final().Graph.Distances)
	assert.Equal(t, map[string]int{"A": 0, "B": 4, "C": 3, "D": 6, "E": 8, "F": 15}, dj.Final().Graph.Distances)
	assert.Nil(t, g.Distances, "input must not be mutated")
}

func TestUnreachableVertices(t *testing.T) {
	g := New(false, []string{"A", "B", "Z"}, []Link{{"A", "B", 2}})

	bf := steptest.Run(t, "graphs", OpBellmanFord, BellmanFord(g, "A"))
	assert.Contains(t, bf.Last().Message, "Z=∞")

	bfs := steptest.Run(t, "graphs", OpBFS, BFS(g, "A"))
	assert.Equal(t, 2, *bfs.Last().Result)
}

func TestDeterminism(t *testing.T) {
	g := SampleGraph()
	for name, seq := range map[string]func() trace.Sequence{
		OpPrim:    func() trace.Sequence { return Prim(g, "A") },
		OpKruskal: func() trace.Sequence { return Kruskal(g) },
		OpDFS:     func() trace.Sequence { return DFS(g, "A") },
	} {
		a := steptest.Run(t, "graphs", name, seq())
		b := steptest.Run(t, "graphs", name, seq())
		assert.Equal(t, trace.Canonical(a), trace.Canonical(b), name)
	}
}
