// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kr/pretty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AlgoTrace/pkg/ux"
	"github.com/AleutianAI/AlgoTrace/pkg/validation"
	"github.com/AleutianAI/AlgoTrace/services/stepper/engine"
	"github.com/AleutianAI/AlgoTrace/services/stepper/playback"
	"github.com/AleutianAI/AlgoTrace/services/stepper/render"
	"github.com/AleutianAI/AlgoTrace/services/stepper/trace"
	"github.com/AleutianAI/AlgoTrace/services/stepper/tui"
)

// =============================================================================
// families
// =============================================================================

func (a *app) familiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List structure families and their operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ux.Title("Structure families")
			writeFamilies(cmd.OutOrStdout(), a.engine().Registry())
			return nil
		},
	}
}

func writeFamilies(w io.Writer, reg *engine.Registry) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"Family", "Kind", "Capacity", "Operations"})
	tbl.SetAutoWrapText(false)
	for _, f := range reg.Families() {
		var ops []string
		for _, op := range reg.Ops(f) {
			h, err := reg.Lookup(f, op)
			if err != nil {
				continue
			}
			if len(h.Needs) == 0 {
				ops = append(ops, string(op))
				continue
			}
			needs := make([]string, len(h.Needs))
			for i, n := range h.Needs {
				needs[i] = string(n)
			}
			ops = append(ops, fmt.Sprintf("%s(%s)", op, strings.Join(needs, ",")))
		}
		bounded := "unbounded"
		if f.Bounded() {
			bounded = "bounded"
		}
		tbl.Append([]string{string(f), string(f.Kind()), bounded, strings.Join(ops, " ")})
	}
	tbl.Render()
}

// =============================================================================
// run
// =============================================================================

func (a *app) runCmd() *cobra.Command {
	var flags opFlags
	var format string
	cmd := &cobra.Command{
		Use:   "run <family> <op>",
		Short: "Materialize an operation and print every step",
		Example: `  stepper run stack PUSH --values 1,2 --value 3
  stepper run graph DIJKSTRA --edges "A-B:4, A-C:1, C-B:2" --vertex A
  stepper run string-match KMP --text abcabd --pattern abd --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := validation.SanitizeOp(args[1])
			if err != nil {
				return err
			}
			tr, err := a.materialize(cmd.Context(), &flags, engine.Family(args[0]), engine.Op(op))
			if err != nil {
				return err
			}
			return writeTrace(cmd.OutOrStdout(), tr, format)
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, debug)")
	return cmd
}

// materialize builds the structure described by flags and runs op on it.
func (a *app) materialize(ctx context.Context, flags *opFlags, family engine.Family, op engine.Op) (trace.Trace, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	spec, err := flags.spec(family)
	if err != nil {
		return trace.Trace{}, err
	}
	params, err := flags.params()
	if err != nil {
		return trace.Trace{}, err
	}
	eng := a.engine()
	c, err := eng.Build(spec)
	if err != nil {
		return trace.Trace{}, err
	}
	return eng.RunOperation(ctx, c, family, op, params)
}

func writeTrace(w io.Writer, tr trace.Trace, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tr)
	case "debug":
		_, err := fmt.Fprintln(w, pretty.Sprint(tr))
		return err
	case "text", "":
		r := render.New(ux.ShouldShowColors())
		code := engine.Pseudocode(engine.Family(tr.Family), engine.Op(tr.Op))
		for i, s := range tr.Steps {
			fmt.Fprintln(w, ux.Styles.Muted.Render(fmt.Sprintf("── step %d/%d ──", i+1, tr.Len())))
			fmt.Fprintln(w, r.Step(s))
			if s.CodeLine > 0 && s.CodeLine <= len(code) {
				fmt.Fprintf(w, "  %d: %s\n", s.CodeLine, code[s.CodeLine-1])
			}
			fmt.Fprintln(w)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or debug)", format)
	}
}

// =============================================================================
// play
// =============================================================================

func (a *app) playCmd() *cobra.Command {
	var flags opFlags
	var period time.Duration
	var plain bool
	cmd := &cobra.Command{
		Use:   "play <family> <op>",
		Short: "Play an operation step by step",
		Long: `Materializes the operation and plays it back. In a terminal the
interactive player opens: space toggles play, arrows step, +/- change
speed and c jumps to the result. Otherwise steps print as they play.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := validation.SanitizeOp(args[1])
			if err != nil {
				return err
			}
			tr, err := a.materialize(cmd.Context(), &flags, engine.Family(args[0]), engine.Op(op))
			if err != nil {
				return err
			}
			return a.play(cmd.Context(), cmd.OutOrStdout(), tr, period, plain)
		},
	}
	flags.bind(cmd)
	cmd.Flags().DurationVar(&period, "period", 0, "Tick period (default from playback.period)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print steps instead of opening the player")
	return cmd
}

// play loads tr into a local controller and drives it with the player or
// the plain printer.
func (a *app) play(ctx context.Context, w io.Writer, tr trace.Trace, period time.Duration, plain bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	bounds := a.cfg.PlaybackBounds()
	if period > 0 {
		bounds.Period = period
	}
	ctrl, err := playback.NewController(bounds, nil, nil, slog.Default())
	if err != nil {
		return err
	}
	defer ctrl.Close()
	if err := ctrl.Load(tr); err != nil {
		return err
	}

	if !plain && ux.IsInteractive() {
		st, err := tui.Run(ctx, ctrl, ux.ShouldShowColors())
		if err != nil {
			return err
		}
		if st.Step != nil && st.Cursor == st.Len-1 {
			fmt.Fprintln(w, render.New(ux.ShouldShowColors()).Outcome(*st.Step))
		}
		return nil
	}
	return playPlain(ctx, w, ctrl)
}

// playPlain prints each step as the controller reaches it.
func playPlain(ctx context.Context, w io.Writer, ctrl *playback.Controller) error {
	updates, unsubscribe := ctrl.Subscribe(16)
	defer unsubscribe()

	r := render.New(ux.ShouldShowColors())
	printed := -1
	show := func(st playback.Status) {
		if st.Step == nil || st.Cursor == printed {
			return
		}
		printed = st.Cursor
		fmt.Fprintf(w, "%s\n%s\n\n", ux.ProgressBar(st.Cursor+1, st.Len, 20), r.Step(*st.Step))
	}

	show(ctrl.Status())
	if ctrl.Len() == 1 {
		return nil
	}
	if err := ctrl.Play(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			ctrl.Cancel()
			return ctx.Err()
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			show(st)
			if st.Phase == playback.PhaseFinished {
				return nil
			}
		}
	}
}
