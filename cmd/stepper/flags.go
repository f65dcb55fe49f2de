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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AlgoTrace/services/stepper/engine"
)

// opFlags are the structure and parameter flags shared by run and play.
type opFlags struct {
	// Structure
	values   string
	capacity int
	text     string
	edges    string
	directed bool

	// Operation parameters
	index       int
	value       int
	second      int
	k           int
	paramValues string
	vertex      string
	pattern     string
	opText      string

	// preset replaces the parameter flags when set.
	preset *engine.Params

	cmd *cobra.Command
}

func (o *opFlags) bind(cmd *cobra.Command) {
	o.cmd = cmd
	f := cmd.Flags()
	f.StringVar(&o.values, "values", "", "Initial values, e.g. 5,1,4 (union-find: pairs to union)")
	f.IntVar(&o.capacity, "capacity", 0, "Capacity of bounded families (0 uses the family default)")
	f.StringVar(&o.text, "text", "", "Text for string matching")
	f.StringVar(&o.edges, "edges", "", `Graph edges, e.g. "A-B:4, B-C:2" (use ">" for directed edges)`)
	f.BoolVar(&o.directed, "directed", false, "Treat graph edges as directed")

	f.IntVar(&o.index, "index", 0, "Operation index")
	f.IntVar(&o.value, "value", 0, "Operation value")
	f.IntVar(&o.second, "second", 0, "Second operand (union, find pairs)")
	f.IntVar(&o.k, "k", 0, "Step count or k-th element")
	f.StringVar(&o.paramValues, "param-values", "", "Operation values, e.g. 3,7")
	f.StringVar(&o.vertex, "vertex", "", "Start vertex for graph algorithms")
	f.StringVar(&o.pattern, "pattern", "", "Pattern for string matching")
	f.StringVar(&o.opText, "op-text", "", "Text override for string matching")
}

// spec returns the build spec for family.
func (o *opFlags) spec(family engine.Family) (engine.Spec, error) {
	values, err := parseInts(o.values)
	if err != nil {
		return engine.Spec{}, fmt.Errorf("--values: %w", err)
	}
	return engine.Spec{
		Family:   family,
		Values:   values,
		Capacity: o.capacity,
		Text:     o.text,
		Edges:    o.edges,
		Directed: o.directed,
	}, nil
}

// params returns the operation parameters set on the command line. Unset
// numeric flags stay absent.
func (o *opFlags) params() (engine.Params, error) {
	if o.preset != nil {
		return *o.preset, nil
	}
	var p engine.Params
	set := func(name string, v int) *int {
		if o.cmd != nil && o.cmd.Flags().Changed(name) {
			return engine.Int(v)
		}
		return nil
	}
	p.Index = set("index", o.index)
	p.Value = set("value", o.value)
	p.Second = set("second", o.second)
	p.K = set("k", o.k)

	values, err := parseInts(o.paramValues)
	if err != nil {
		return engine.Params{}, fmt.Errorf("--param-values: %w", err)
	}
	p.Values = values
	p.Vertex = o.vertex
	p.Pattern = o.pattern
	p.Text = o.opText
	return p, nil
}

// parseInts splits on commas and whitespace.
func parseInts(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) == 0 {
		return nil, nil
	}
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", f)
		}
		out = append(out, n)
	}
	return out, nil
}

// setParam parses raw into the named parameter.
func setParam(p *engine.Params, name engine.Param, raw string) error {
	raw = strings.TrimSpace(raw)
	num := func() (*int, error) {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", name, raw)
		}
		return &n, nil
	}
	var err error
	switch name {
	case engine.ParamIndex:
		p.Index, err = num()
	case engine.ParamValue:
		p.Value, err = num()
	case engine.ParamSecond:
		p.Second, err = num()
	case engine.ParamK:
		p.K, err = num()
	case engine.ParamValues:
		p.Values, err = parseInts(raw)
	case engine.ParamVertex:
		p.Vertex = raw
	case engine.ParamText:
		p.Text = raw
	case engine.ParamPattern:
		p.Pattern = raw
	default:
		err = fmt.Errorf("unknown parameter %q", name)
	}
	return err
}
