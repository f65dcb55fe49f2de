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
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AlgoTrace/pkg/ux"
	"github.com/AleutianAI/AlgoTrace/services/stepper/render"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
	"github.com/AleutianAI/AlgoTrace/services/stepper/store"
)

// stateCmd inspects the persisted structures directly. The store is locked
// while a server runs, so use the HTTP API then.
func (a *app) stateCmd() *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect persisted structures",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored structures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store) error {
				recs, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				writeRecords(cmd.OutOrStdout(), recs)
				return nil
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Render a stored structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store) error {
				rec, err := st.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				step := snapshot.Step{Container: rec.Container}
				ux.Box(fmt.Sprintf("%s (%s, version %d)", rec.Name, rec.Family, rec.Version),
					render.New(ux.ShouldShowColors()).Container(step))
				ux.Muted("updated " + rec.UpdatedAt.Format(time.RFC3339))
				return nil
			})
		},
	}

	var limit int
	historyCmd := &cobra.Command{
		Use:   "history <name>",
		Short: "Show committed operations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store) error {
				entries, err := st.History(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					ux.Info("no operations committed to " + args[0])
					return nil
				}
				writeHistory(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Newest entries to show (0 for all)")

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a structure and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store) error {
				if err := st.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				ux.Success("deleted " + args[0])
				return nil
			})
		},
	}

	stateCmd.AddCommand(listCmd, showCmd, historyCmd, deleteCmd)
	return stateCmd
}

func (a *app) withStore(fn func(*store.Store) error) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func writeRecords(w io.Writer, recs []store.Record) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"Name", "Family", "Version", "Updated"})
	for _, r := range recs {
		tbl.Append([]string{r.Name, r.Family, strconv.Itoa(r.Version), r.UpdatedAt.Format(time.RFC3339)})
	}
	tbl.Render()
}

func writeHistory(w io.Writer, entries []store.Entry) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"Version", "Op", "Params", "Steps", "Outcome", "Committed"})
	for _, e := range entries {
		tbl.Append([]string{
			strconv.Itoa(e.Version),
			e.Op,
			e.Params,
			strconv.Itoa(e.Steps),
			e.Outcome,
			e.Committed.Format(time.RFC3339),
		})
	}
	tbl.Render()
}
