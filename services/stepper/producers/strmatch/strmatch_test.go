// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package strmatch

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

func TestStrmatch_DataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/strmatch", func(t *testing.T, td *datadriven.TestData) string {
		var pattern string
		td.ScanArgs(t, "pattern", &pattern)
		text := &snapshot.TextState{Text: strings.TrimSpace(td.Input)}

		var seq trace.Sequence
		switch td.Cmd {
		case "naive":
			seq = Naive(text, pattern)
		case "kmp":
			seq = KMP(text, pattern)
		default:
			return "unknown command"
		}
		return steptest.Summary(steptest.Run(t, "strmatch", td.Cmd, seq), func(c snapshot.Container) string {
			return fmt.Sprintf("shift=%d", c.Text.Shift)
		})
	})
}

func TestPrefixFunction(t *testing.T) {
	tests := []struct {
		pattern string
		want    []int
	}{
		{"a", []int{0}},
		{"aab", []int{0, 1, 0}},
		{"abab", []int{0, 0, 1, 2}},
		{"aabaaab", []int{0, 1, 0, 1, 2, 2, 3}},
		{"abcabcd", []int{0, 0, 0, 1, 2, 3, 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PrefixFunction(tt.pattern), tt.pattern)

		tr := steptest.Run(t, "strmatch", OpKMP, KMP(&snapshot.TextState{Text: tt.pattern}, tt.pattern))
		assert.Equal(t, tt.want, tr.Final().Text.Prefix, "table built step by step for %s", tt.pattern)
	}
}

func TestNaiveAndKMPAgree(t *testing.T) {
	cases := []struct{ text, pattern string }{
		{"abababab", "abab"},
		{"aaaaa", "aa"},
		{"mississippi", "issi"},
		{"mississippi", "ppi"},
		{"abc", "d"},
		{"héllo héllo", "é"},
	}
	for _, c := range cases {
		text := &snapshot.TextState{Text: c.text}
		naive := steptest.Run(t, "strmatch", OpNaive, Naive(text, c.pattern))
		kmp := steptest.Run(t, "strmatch", OpKMP, KMP(text, c.pattern))

		require.Equal(t, *naive.Last().Result, *kmp.Last().Result, "%s in %s", c.pattern, c.text)
		assert.Equal(t, naive.Last().Message, kmp.Last().Message)
		assert.LessOrEqual(t, strings.Count(c.text, c.pattern), *naive.Last().Result, "overlapping matches count too")
	}
}

func TestRejections(t *testing.T) {
	text := &snapshot.TextState{Text: "abc"}
	for _, seq := range []trace.Sequence{Naive(text, ""), KMP(text, ""), KMP(text, "abcd")} {
		tr := steptest.Run(t, "strmatch", OpKMP, seq)
		assert.Equal(t, 1, tr.Len())
		assert.True(t, tr.Rejected())
		assert.Equal(t, "abc", tr.Final().Text.Text)
	}
}
