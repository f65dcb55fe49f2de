// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package searching

import (
	"slices"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/internal/steptest"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

func TestSearching_DataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/searching", func(t *testing.T, td *datadriven.TestData) string {
		var value int
		td.ScanArgs(t, "value", &value)
		a := snapshot.NewArray(steptest.Ints(t, td.Input), 0)

		var seq trace.Sequence
		switch td.Cmd {
		case "linear":
			seq = Linear(a, value)
		case "binary":
			seq = Binary(a, value)
		default:
			return "unknown command"
		}
		return steptest.ArraySummary(steptest.Run(t, "searching", td.Cmd, seq))
	})
}

func TestBinary_AgreesWithLinear(t *testing.T) {
	values := []int{-4, -1, 0, 3, 8, 13, 21, 34}
	a := snapshot.NewArray(values, 0)

	for target := -6; target <= 36; target++ {
		lin := steptest.Run(t, "searching", OpLinear, Linear(a, target))
		bin := steptest.Run(t, "searching", OpBinary, Binary(a, target))
		assert.Equal(t, *lin.Last().Result, *bin.Last().Result, "target %d", target)
		assert.Equal(t, slices.Index(values, target), *bin.Last().Result, "target %d", target)
	}
}

func TestBinary_ProbeCountIsLogarithmic(t *testing.T) {
	values := make([]int, 1024)
	for i := range values {
		values[i] = 2 * i
	}
	tr := steptest.Run(t, "searching", OpBinary, Binary(snapshot.NewArray(values, 0), 1))
	assert.LessOrEqual(t, tr.Len(), 12)
	assert.Equal(t, -1, *tr.Last().Result)
}
