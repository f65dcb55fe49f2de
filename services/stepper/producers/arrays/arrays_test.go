// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package arrays

import (
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/internal/steptest"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

func TestArrays_DataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/arrays", func(t *testing.T, td *datadriven.TestData) string {
		var capacity, index, value int
		td.MaybeScanArgs(t, "capacity", &capacity)
		td.MaybeScanArgs(t, "index", &index)
		td.MaybeScanArgs(t, "value", &value)
		a := snapshot.NewArray(steptest.Ints(t, td.Input), capacity)

		var seq trace.Sequence
		switch td.Cmd {
		case "insert":
			seq = Insert(a, index, value)
		case "update":
			seq = Update(a, index, value)
		case "delete-by-index":
			seq = DeleteByIndex(a, index)
		case "delete-by-value":
			seq = DeleteByValue(a, value)
		case "search":
			seq = Search(a, value)
		default:
			return "unknown command"
		}
		return steptest.ArraySummary(steptest.Run(t, "arrays", td.Cmd, seq))
	})
}

func TestInsert_Scenario(t *testing.T) {
	a := snapshot.NewArray([]int{12, 45, 7, 23, 56}, 0)
	before := snapshot.OfArray(a).Clone()

	tr := steptest.Run(t, "arrays", OpInsert, Insert(a, 1, 99))

	assert.Equal(t, []int{12, 99, 45, 7, 23, 56}, tr.Final().Array.Values())
	assert.Equal(t, before, snapshot.OfArray(a), "input must not be mutated")
	assert.Equal(t, a.Cells[1].ID, tr.Final().Array.Cells[2].ID, "45 keeps its identity after the shift")
}

func TestIndexSafety(t *testing.T) {
	a := snapshot.NewArray([]int{1, 2, 3}, 0)
	input := snapshot.OfArray(a).Clone()

	tests := []struct {
		name string
		seq  trace.Sequence
	}{
		{"insert negative", Insert(a, -1, 5)},
		{"insert past end", Insert(a, 4, 5)},
		{"update at len", Update(a, 3, 5)},
		{"delete negative", DeleteByIndex(a, -2)},
		{"delete at len", DeleteByIndex(a, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := steptest.Run(t, "arrays", tt.name, tt.seq)
			steptest.RequireRejectedUnchanged(t, tr, input)
		})
	}
}

func TestDeterminism(t *testing.T) {
	a := snapshot.NewArray([]int{4, 8, 15, 16}, 0)

	first := steptest.Run(t, "arrays", OpInsert, Insert(a, 2, 42))
	second := steptest.Run(t, "arrays", OpInsert, Insert(a, 2, 42))

	require.Equal(t, first.Len(), second.Len())
	assert.Equal(t, trace.Canonical(first), trace.Canonical(second))
}

func TestIdentityContinuity(t *testing.T) {
	a := snapshot.NewArray([]int{3, 1, 4, 1, 5}, 0)
	valueOf := func(c snapshot.Container, id identity.ID) (int, bool) {
		for _, cell := range c.Array.Cells {
			if cell.ID == id && !cell.Empty {
				return cell.Value, true
			}
		}
		return 0, false
	}

	for _, seq := range []trace.Sequence{Insert(a, 0, 9), DeleteByIndex(a, 1), DeleteByValue(a, 5), Update(a, 2, 7)} {
		tr := steptest.Run(t, "arrays", "continuity", seq)
		steptest.RequireIdentityContinuity(t, tr, valueOf)
	}
}

func TestCode_LinesInRange(t *testing.T) {
	a := snapshot.NewArray([]int{2, 7, 1}, 0)
	ops := map[string]trace.Sequence{
		OpInsert:        Insert(a, 1, 5),
		OpUpdate:        Update(a, 0, 3),
		OpDeleteByIndex: DeleteByIndex(a, 0),
		OpDeleteByValue: DeleteByValue(a, 1),
		OpSearch:        Search(a, 9),
	}
	for op, seq := range ops {
		for _, s := range steptest.Run(t, "arrays", op, seq).Steps {
			assert.LessOrEqual(t, s.CodeLine, len(Code[op]), "%s: %q", op, s.Message)
		}
	}
}
