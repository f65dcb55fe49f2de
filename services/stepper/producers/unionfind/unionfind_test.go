// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package unionfind

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/internal/steptest"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

func TestUnionFind_DataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/unionfind", func(t *testing.T, td *datadriven.TestData) string {
		var n, x, y int
		td.ScanArgs(t, "n", &n)
		td.MaybeScanArgs(t, "x", &x)
		td.MaybeScanArgs(t, "y", &y)

		f := snapshot.NewForest(n)
		for _, line := range strings.Split(td.Input, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			pair := steptest.Ints(t, line)
			require.Len(t, pair, 2)
			Link(f, pair[0], pair[1])
		}

		var seq trace.Sequence
		switch td.Cmd {
		case "find":
			seq = Find(f, x)
		case "union":
			seq = Union(f, x, y)
		case "connected":
			seq = Connected(f, x, y)
		default:
			return "unknown command"
		}
		return steptest.Summary(steptest.Run(t, "unionfind", td.Cmd, seq), func(c snapshot.Container) string {
			return fmt.Sprint(c.Forest.Parent)
		})
	})
}

func TestScenario(t *testing.T) {
	f := snapshot.NewForest(8)
	f = steptest.Run(t, "unionfind", OpUnion, Union(f, 0, 1)).Final().Forest
	f = steptest.Run(t, "unionfind", OpUnion, Union(f, 1, 2)).Final().Forest

	r0 := steptest.Run(t, "unionfind", OpFind, Find(f, 0))
	r2 := steptest.Run(t, "unionfind", OpFind, Find(f, 2))
	assert.Equal(t, *r0.Last().Result, *r2.Last().Result)

	conn := steptest.Run(t, "unionfind", OpConnected, Connected(f, 0, 2))
	assert.Equal(t, 1, *conn.Last().Result)
	apart := steptest.Run(t, "unionfind", OpConnected, Connected(f, 0, 7))
	assert.Equal(t, 0, *apart.Last().Result)
}

func TestFind_CompressesEveryVisitedNode(t *testing.T) {
	// 4 -> 3 -> 2 -> 1 -> 0, built by hand since the size policy keeps
	// trees shallow.
	f := &snapshot.ForestState{Parent: []int{0, 0, 1, 2, 3}, Size: []int{5, 4, 3, 2, 1}}

	tr := steptest.Run(t, "unionfind", OpFind, Find(f, 4))
	assert.Equal(t, 1+4+1, tr.Len(), "start, one step per hop, compression")
	assert.Equal(t, []int{0, 0, 0, 0, 0}, tr.Final().Forest.Parent)
	assert.Equal(t, []int{0, 0, 1, 2, 3}, f.Parent, "input must not be mutated")
}

func TestUnion_ShowsRootsBeforeCompressing(t *testing.T) {
	f := &snapshot.ForestState{Parent: []int{0, 0, 1, 2, 3, 5}, Size: []int{5, 4, 3, 2, 1, 1}}

	tr := steptest.Run(t, "unionfind", OpUnion, Union(f, 4, 5))
	require.Equal(t, 3, tr.Len(), "roots, compression of 4's path, attach")
	assert.Equal(t, f.Parent, tr.Steps[0].Container.Forest.Parent, "the first step shows the input forest")
	assert.Contains(t, tr.Steps[1].Message, "compress [4 3 2 1]")
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, tr.Final().Forest.Parent)
	assert.Equal(t, 6, tr.Final().Forest.Size[0])
}

func TestLink_MatchesUnion(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 9))
	plain := snapshot.NewForest(12)
	traced := snapshot.NewForest(12)

	for i := 0; i < 30; i++ {
		x, y := rng.IntN(12), rng.IntN(12)
		linked := Link(plain, x, y)
		tr := steptest.Run(t, "unionfind", OpUnion, Union(traced, x, y))
		traced = tr.Final().Forest

		want := 0
		if linked {
			want = 1
		}
		require.Equal(t, want, *tr.Last().Result)
		require.Equal(t, plain.Parent, traced.Parent, "union %d %d", x, y)
	}

	total := 0
	for i, p := range traced.Parent {
		if p == i {
			total += traced.Size[i]
		}
	}
	assert.Equal(t, 12, total, "root sizes cover every element")
}

func TestRejections(t *testing.T) {
	f := snapshot.NewForest(3)
	input := snapshot.OfForest(f)
	for _, seq := range []trace.Sequence{Find(f, 3), Union(f, 0, 9), Connected(f, -1, 1)} {
		steptest.RequireRejectedUnchanged(t, steptest.Run(t, "unionfind", "op", seq), input)
	}
}
