// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package strmatch produces traces for substring search.
//
// # Description
//
// The container is a snapshot.TextState: the text, the pattern and the
// shift at which the pattern is currently aligned. Points of interest are
// rune indices into the text. The terminal step's result is the number of
// matches.
package strmatch

import (
	"slices"

	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
)

// Operation names.
const (
	OpNaive = "NAIVE"
	OpKMP   = "KMP"
)

// Naive tries every shift and compares left to right until a mismatch.
func Naive(t *snapshot.TextState, pattern string) trace.Sequence {
	return run(t, pattern, func(rec *trace.Recorder, work *snapshot.TextState, text, pat []rune) {
		var matches []int
		for s := 0; s+len(pat) <= len(text); s++ {
			work.Shift = s
			j := 0
			for ; j < len(pat); j++ {
				i := s + j
				if text[i] != pat[j] {
					if !rec.Emit(view(work, "text[%d] = %c differs from pattern[%d] = %c: slide by 1", i, text[i], j, pat[j]).
						Mark(snapshot.RoleMatched, span(s, i)...).Mark(snapshot.RoleMismatch, i)) {
						return
					}
					break
				}
				if !rec.Emit(view(work, "text[%d] = %c matches pattern[%d]", i, text[i], j).
					Mark(snapshot.RoleMatched, span(s, i+1)...)) {
					return
				}
			}
			if j == len(pat) {
				matches = append(matches, s)
				if !rec.Emit(view(work, "Match at shift %d", s).Mark(snapshot.RoleFound, span(s, s+len(pat))...)) {
					return
				}
			}
		}
		rec.Emit(summary(work, matches))
	})
}

// KMP builds the prefix function of the pattern, one step per entry, then
// scans the text once, falling back through the table on mismatches.
func KMP(t *snapshot.TextState, pattern string) trace.Sequence {
	return run(t, pattern, func(rec *trace.Recorder, work *snapshot.TextState, text, pat []rune) {
		pi := make([]int, len(pat))
		for q, k := 1, 0; q <= len(pat); q++ {
			work.Prefix = slices.Clone(pi[:q])
			if !rec.Emit(view(work, "prefix[%d] = %d", q-1, pi[q-1])) {
				return
			}
			if q == len(pat) {
				break
			}
			for k > 0 && pat[k] != pat[q] {
				k = pi[k-1]
			}
			if pat[k] == pat[q] {
				k++
			}
			pi[q] = k
		}

		var matches []int
		q := 0
		for i, c := range text {
			for q > 0 && pat[q] != c {
				old := q
				q = pi[q-1]
				work.Shift = i - q
				if !rec.Emit(view(work, "text[%d] = %c differs from pattern[%d] = %c: fall back to prefix[%d] = %d",
					i, c, old, pat[old], old-1, q).Mark(snapshot.RoleMismatch, i)) {
					return
				}
			}
			work.Shift = i - q
			if pat[q] == c {
				if !rec.Emit(view(work, "text[%d] = %c matches pattern[%d]", i, c, q).
					Mark(snapshot.RoleMatched, span(i-q, i+1)...)) {
					return
				}
				q++
			} else if !rec.Emit(view(work, "text[%d] = %c differs from pattern[0] = %c: move on", i, c, pat[0]).
				Mark(snapshot.RoleMismatch, i)) {
				return
			}
			if q == len(pat) {
				s := i - len(pat) + 1
				matches = append(matches, s)
				work.Shift = s
				if !rec.Emit(view(work, "Match at shift %d", s).Mark(snapshot.RoleFound, span(s, i+1)...)) {
					return
				}
				q = pi[q-1]
			}
		}
		rec.Emit(summary(work, matches))
	})
}

// PrefixFunction returns the KMP failure table of pattern: entry q is the
// length of the longest proper prefix of pattern[:q+1] that is also its
// suffix.
func PrefixFunction(pattern string) []int {
	p := []rune(pattern)
	pi := make([]int, len(p))
	for q, k := 1, 0; q < len(p); q++ {
		for k > 0 && p[k] != p[q] {
			k = pi[k-1]
		}
		if p[k] == p[q] {
			k++
		}
		pi[q] = k
	}
	return pi
}

func summary(t *snapshot.TextState, matches []int) snapshot.Step {
	var s snapshot.Step
	switch len(matches) {
	case 0:
		s = view(t, "No match for %q", t.Pattern)
	case 1:
		s = view(t, "Found 1 match at shift %d", matches[0])
	default:
		s = view(t, "Found %d matches at shifts %v", len(matches), matches)
	}
	for _, m := range matches {
		s = s.Mark(snapshot.RoleFound, span(m, m+len([]rune(t.Pattern)))...)
	}
	return s.WithResult(len(matches)).Done()
}

func run(t *snapshot.TextState, pattern string, body func(*trace.Recorder, *snapshot.TextState, []rune, []rune)) trace.Sequence {
	base := t.Clone()
	base.Pattern, base.Shift, base.Prefix = pattern, 0, nil
	return func(yield func(snapshot.Step) bool) {
		rec := trace.NewRecorder(yield)
		work := base.Clone()
		text, pat := []rune(work.Text), []rune(pattern)
		switch {
		case len(pat) == 0:
			rec.Emit(snapshot.Rejected(snapshot.OfText(work), "Pattern is empty"))
			return
		case len(pat) > len(text):
			rec.Emit(snapshot.Rejected(snapshot.OfText(work), "Pattern %q is longer than the text", pattern))
			return
		}
		body(rec, work, text, pat)
	}
}

func view(t *snapshot.TextState, format string, args ...any) snapshot.Step {
	return snapshot.New(snapshot.OfText(t), format, args...)
}

func span(lo, hi int) []int {
	var out []int
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}
