// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"
)

// capture runs f at the given level and returns what it wrote to stdout
// and stderr.
func capture(level PersonalityLevel, f func()) (string, string) {
	orig := GetPersonality()
	defer SetPersonality(orig)
	SetPersonality(Personality{Level: level})

	var out, errOut bytes.Buffer
	restore := SetOutput(&out, &errOut)
	defer restore()

	f()
	return out.String(), errOut.String()
}

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow, IconBullet} {
		if got := icon.Render(); !strings.Contains(got, string(icon)) {
			t.Errorf("Render(%q) = %q, missing glyph", icon, got)
		}
	}
}

func TestIcon_Render_NoColor(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)
	SetPersonality(Personality{Level: PersonalityStandard, NoColor: true})

	if got := IconSuccess.Render(); got != "✓" {
		t.Errorf("expected plain glyph, got %q", got)
	}
}

// =============================================================================
// Print helper Tests
// =============================================================================

func TestPrintHelpers_Machine(t *testing.T) {
	tests := []struct {
		name    string
		print   func()
		wantOut string
		wantErr string
	}{
		{"success", func() { Success("saved") }, "OK: saved\n", ""},
		{"warning", func() { Warning("slow") }, "", "WARN: slow\n"},
		{"error", func() { Error("boom") }, "", "ERROR: boom\n"},
		{"info", func() { Info("note") }, "note\n", ""},
		{"title", func() { Title("Stepper") }, "", ""},
		{"muted", func() { Muted("quiet") }, "", ""},
		{"box", func() { Box("Families", "stack") }, "Families\nstack\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := capture(PersonalityMachine, tt.print)
			if out != tt.wantOut {
				t.Errorf("stdout = %q, want %q", out, tt.wantOut)
			}
			if errOut != tt.wantErr {
				t.Errorf("stderr = %q, want %q", errOut, tt.wantErr)
			}
		})
	}
}

func TestPrintHelpers_Standard(t *testing.T) {
	out, errOut := capture(PersonalityStandard, func() {
		Title("Stepper")
		Success("saved")
		Error("boom")
		Info("note")
	})
	if errOut != "" {
		t.Errorf("expected nothing on stderr, got %q", errOut)
	}
	for _, want := range []string{"Stepper", "✓", "saved", "✗", "boom", "│", "note"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintHelpers_Minimal(t *testing.T) {
	out, _ := capture(PersonalityMinimal, func() { Success("saved") })
	if out != "✓ saved\n" {
		t.Errorf("got %q", out)
	}
}

// =============================================================================
// ProgressBar Tests
// =============================================================================

func TestProgressBar(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonality(Personality{Level: PersonalityStandard, NoColor: true})
	if got := ProgressBar(1, 2, 4); got != "██░░  50%" {
		t.Errorf("half bar = %q", got)
	}
	if got := ProgressBar(5, 2, 4); got != "████ 100%" {
		t.Errorf("overfull bar = %q", got)
	}
	if got := ProgressBar(0, 0, 4); got != "0/0" {
		t.Errorf("empty total = %q", got)
	}

	SetPersonality(Personality{Level: PersonalityMachine})
	if got := ProgressBar(3, 7, 10); got != "3/7" {
		t.Errorf("machine bar = %q", got)
	}
}
