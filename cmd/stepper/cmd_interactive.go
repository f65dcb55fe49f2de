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
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AlgoTrace/pkg/ux"
	"github.com/AleutianAI/AlgoTrace/services/stepper/engine"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
)

func (a *app) interactiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Pick a family, operation and inputs from forms, then play",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ux.IsInteractive() {
				return errors.New("interactive mode needs a terminal; use run or play")
			}
			flags, family, op, err := a.askOperation()
			if err != nil {
				return err
			}
			tr, err := a.materialize(cmd.Context(), flags, family, op)
			if err != nil {
				return err
			}
			return a.play(cmd.Context(), cmd.OutOrStdout(), tr, 0, false)
		},
	}
}

// askOperation runs the forms: family first, then the operation, the
// structure inputs and every parameter the operation needs.
func (a *app) askOperation() (*opFlags, engine.Family, engine.Op, error) {
	reg := a.engine().Registry()

	var family engine.Family
	familyOpts := make([]huh.Option[engine.Family], 0, len(reg.Families()))
	for _, f := range reg.Families() {
		familyOpts = append(familyOpts, huh.NewOption(string(f), f))
	}
	if err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[engine.Family]().
			Title("Structure family").
			Options(familyOpts...).
			Value(&family),
	)).Run(); err != nil {
		return nil, "", "", err
	}

	var op engine.Op
	opOpts := make([]huh.Option[engine.Op], 0)
	for _, o := range reg.Ops(family) {
		opOpts = append(opOpts, huh.NewOption(string(o), o))
	}
	flags := &opFlags{}
	fields := []huh.Field{
		huh.NewSelect[engine.Op]().Title("Operation").Options(opOpts...).Value(&op),
	}
	switch family.Kind() {
	case snapshot.KindGraph:
		fields = append(fields,
			huh.NewInput().Title("Edges").Placeholder("A-B:4, B-C:2").Value(&flags.edges),
			huh.NewConfirm().Title("Directed?").Value(&flags.directed),
		)
	case snapshot.KindText:
		fields = append(fields, huh.NewInput().Title("Text").Value(&flags.text))
	default:
		fields = append(fields, huh.NewInput().
			Title("Initial values").
			Placeholder("5, 1, 4").
			Value(&flags.values).
			Validate(func(s string) error {
				_, err := parseInts(s)
				return err
			}))
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return nil, "", "", err
	}

	h, err := reg.Lookup(family, op)
	if err != nil {
		return nil, "", "", err
	}
	if len(h.Needs) == 0 {
		return flags, family, op, nil
	}

	raw := make([]string, len(h.Needs))
	inputs := make([]huh.Field, len(h.Needs))
	for i, need := range h.Needs {
		inputs[i] = huh.NewInput().
			Title(fmt.Sprintf("%s %s", op, need)).
			Value(&raw[i]).
			Validate(func(s string) error {
				var p engine.Params
				return setParam(&p, need, s)
			})
	}
	if err := huh.NewForm(huh.NewGroup(inputs...)).Run(); err != nil {
		return nil, "", "", err
	}

	var p engine.Params
	for i, need := range h.Needs {
		if err := setParam(&p, need, raw[i]); err != nil {
			return nil, "", "", err
		}
	}
	flags.preset = &p
	return flags, family, op, nil
}
