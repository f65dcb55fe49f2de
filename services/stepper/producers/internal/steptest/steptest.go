// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package steptest holds helpers shared by producer tests.
package steptest

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Ints parses whitespace-separated integers.
func Ints(t testing.TB, s string) []int {
	t.Helper()
	fields := strings.Fields(s)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		require.NoError(t, err, "parse %q", f)
		out = append(out, v)
	}
	return out
}

// Run materializes seq and fails the test on a malformed trace.
func Run(t testing.TB, family, op string, seq trace.Sequence) trace.Trace {
	t.Helper()
	tr, err := trace.Materialize(family, op, seq)
	require.NoError(t, err)
	return tr
}

// Cells renders an array state as "[1 _ 3]" with "_" for empty slots.
func Cells(a *snapshot.ArrayState) string {
	parts := make([]string, len(a.Cells))
	for i, c := range a.Cells {
		if c.Empty {
			parts[i] = "_"
		} else {
			parts[i] = strconv.Itoa(c.Value)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Summary renders one line per step, "<state> <message>", followed by the
// outcome and result of the terminal step.
func Summary(tr trace.Trace, state func(snapshot.Container) string) string {
	var b strings.Builder
	for _, s := range tr.Steps {
		fmt.Fprintf(&b, "%s %s\n", state(s.Container), s.Message)
	}
	last := tr.Last()
	fmt.Fprintf(&b, "outcome: %s", last.Outcome)
	if last.Result != nil {
		fmt.Fprintf(&b, " result=%d", *last.Result)
	}
	b.WriteString("\n")
	return b.String()
}

// ArraySummary is Summary for array containers.
func ArraySummary(tr trace.Trace) string {
	return Summary(tr, func(c snapshot.Container) string { return Cells(c.Array) })
}

// IDSet collects the identities present in a container.
func IDSet(c snapshot.Container) map[identity.ID]bool {
	out := make(map[identity.ID]bool)
	for _, id := range c.IDs() {
		out[id] = true
	}
	return out
}

// RequireIdentityContinuity checks that once an identity disappears from a
// trace it never comes back, and that an identity never changes value.
func RequireIdentityContinuity(t testing.TB, tr trace.Trace, valueOf func(snapshot.Container, identity.ID) (int, bool)) {
	t.Helper()
	retired := make(map[identity.ID]bool)
	values := make(map[identity.ID]int)
	var prev map[identity.ID]bool
	for i, s := range tr.Steps {
		cur := IDSet(s.Container)
		for id := range cur {
			require.False(t, retired[id], "step %d: identity %s reappeared", i, id)
			if v, ok := valueOf(s.Container, id); ok {
				if old, seen := values[id]; seen {
					require.Equal(t, old, v, "step %d: identity %s changed value", i, id)
				}
				values[id] = v
			}
		}
		for id := range prev {
			if !cur[id] {
				retired[id] = true
			}
		}
		prev = cur
	}
}

// RequireRejectedUnchanged checks the index-safety contract: exactly one
// terminal rejected step whose container equals the input.
func RequireRejectedUnchanged(t testing.TB, tr trace.Trace, input snapshot.Container) {
	t.Helper()
	require.Equal(t, 1, tr.Len())
	require.True(t, tr.Rejected(), "expected rejection, got %q", tr.Last().Message)
	require.Equal(t, input, tr.Last().Container)
}
