// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AlgoTrace/services/stepper/producers/internal/steptest"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

func TestStack(t *testing.T) {
	tests := []struct {
		name     string
		values   []int
		capacity int
		op       func(*snapshot.ArrayState) trace.Sequence
		final    []int
		result   *int
		rejected string
	}{
		{
			name:   "push",
			values: []int{1, 2},
			op:     func(a *snapshot.ArrayState) trace.Sequence { return Push(a, 3) },
			final:  []int{1, 2, 3},
		},
		{
			name:     "push overflow",
			values:   []int{1, 2},
			capacity: 2,
			op:       func(a *snapshot.ArrayState) trace.Sequence { return Push(a, 3) },
			rejected: "Overflow: stack is full (capacity 2)",
		},
		{
			name:   "pop",
			values: []int{4, 5},
			op:     Pop,
			final:  []int{4},
			result: ptr(5),
		},
		{
			name:     "pop underflow",
			op:       Pop,
			rejected: "Underflow: stack is empty",
		},
		{
			name:   "peek",
			values: []int{4, 5},
			op:     Peek,
			final:  []int{4, 5},
			result: ptr(5),
		},
		{
			name:     "peek underflow",
			op:       Peek,
			rejected: "Underflow: stack is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := snapshot.NewArray(tt.values, tt.capacity)
			input := snapshot.OfArray(a).Clone()
			tr := steptest.Run(t, "stacks", tt.name, tt.op(a))

			assert.Equal(t, input, snapshot.OfArray(a))
			if tt.rejected != "" {
				steptest.RequireRejectedUnchanged(t, tr, input)
				assert.Equal(t, tt.rejected, tr.Last().Message)
				return
			}
			assert.Equal(t, tt.final, tr.Final().Array.Values())
			if tt.result != nil {
				require.NotNil(t, tr.Last().Result)
				assert.Equal(t, *tt.result, *tr.Last().Result)
			}
		})
	}
}

func TestPush_LabelsTop(t *testing.T) {
	tr := steptest.Run(t, "stacks", OpPush, Push(snapshot.NewArray([]int{7}, 0), 8))
	assert.Equal(t, "Top", tr.Steps[0].IndexLabels[0])
	assert.Equal(t, "Top", tr.Last().IndexLabels[1])
	assert.True(t, tr.Last().Has(snapshot.RoleWriting, 1))
}

func ptr(v int) *int { return &v }
