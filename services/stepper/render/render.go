// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package render draws snapshot steps as terminal text.
//
// Every container kind has a text layout. Role annotations are listed on a
// "roles" line by index or by the value behind an identity, and labels are
// drawn under the element they name. With colour enabled, the highest
// priority role of each element also picks its lipgloss style.
package render

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/AlgoTrace/pkg/ux"
	"github.com/AleutianAI/AlgoTrace/services/stepper/identity"
	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
)

// priority orders roles for styling; the first role an element carries wins.
var priority = []snapshot.Role{
	snapshot.RoleFound,
	snapshot.RoleRejected,
	snapshot.RoleMismatch,
	snapshot.RoleMatched,
	snapshot.RoleSwapping,
	snapshot.RoleComparing,
	snapshot.RoleWriting,
	snapshot.RoleReading,
	snapshot.RoleActiveEdge,
	snapshot.RolePath,
	snapshot.RolePivot,
	snapshot.RoleHighlight,
	snapshot.RoleCandidate,
	snapshot.RoleTreeEdge,
	snapshot.RoleSorted,
	snapshot.RoleVisited,
}

// Renderer draws steps. The zero value is not usable; use New or Plain.
type Renderer struct {
	color  bool
	styles map[snapshot.Role]lipgloss.Style
}

// New returns a renderer. color enables lipgloss styling.
func New(color bool) *Renderer {
	r := &Renderer{color: color}
	if color {
		r.styles = map[snapshot.Role]lipgloss.Style{
			snapshot.RoleFound:      lipgloss.NewStyle().Bold(true).Foreground(ux.ColorSuccess),
			snapshot.RoleRejected:   lipgloss.NewStyle().Strikethrough(true).Foreground(ux.ColorError),
			snapshot.RoleMismatch:   lipgloss.NewStyle().Foreground(ux.ColorError),
			snapshot.RoleMatched:    lipgloss.NewStyle().Foreground(ux.ColorTealBright),
			snapshot.RoleSwapping:   lipgloss.NewStyle().Bold(true).Foreground(ux.ColorWarning),
			snapshot.RoleComparing:  lipgloss.NewStyle().Foreground(ux.ColorWarning),
			snapshot.RoleWriting:    lipgloss.NewStyle().Bold(true).Foreground(ux.ColorTealPrimary),
			snapshot.RoleReading:    lipgloss.NewStyle().Underline(true).Foreground(ux.ColorTealVibrant),
			snapshot.RoleActiveEdge: lipgloss.NewStyle().Bold(true).Foreground(ux.ColorWarning),
			snapshot.RolePath:       lipgloss.NewStyle().Foreground(ux.ColorTealMedium),
			snapshot.RolePivot:      lipgloss.NewStyle().Reverse(true),
			snapshot.RoleHighlight:  lipgloss.NewStyle().Bold(true).Foreground(ux.ColorTealBright),
			snapshot.RoleCandidate:  lipgloss.NewStyle().Foreground(ux.ColorTealOcean),
			snapshot.RoleTreeEdge:   lipgloss.NewStyle().Foreground(ux.ColorTealDeep),
			snapshot.RoleSorted:     lipgloss.NewStyle().Foreground(ux.ColorTealDeep),
			snapshot.RoleVisited:    lipgloss.NewStyle().Faint(true),
		}
	}
	return r
}

var plain = New(false)

// Plain returns the shared colourless renderer.
func Plain() *Renderer { return plain }

// Step renders s without colour.
func Step(s snapshot.Step) string { return plain.Step(s) }

// Step renders the container, the roles line, the message and, for a
// terminal step, its outcome and result.
func (r *Renderer) Step(s snapshot.Step) string {
	var b strings.Builder
	b.WriteString(r.Container(s))
	if roles := Roles(s); roles != "" {
		b.WriteString("\n")
		b.WriteString(roles)
	}
	b.WriteString("\n")
	b.WriteString(s.Message)
	if s.Terminal {
		b.WriteString("\n")
		b.WriteString(r.Outcome(s))
	}
	return b.String()
}

// Outcome renders a terminal step's outcome and optional result.
func (r *Renderer) Outcome(s snapshot.Step) string {
	var text string
	switch s.Outcome {
	case snapshot.OutcomeRejected:
		text = string(ux.IconError) + " rejected"
		if r.color {
			text = ux.Styles.Error.Render(text)
		}
	case snapshot.OutcomeCompleted:
		text = string(ux.IconSuccess) + " completed"
		if r.color {
			text = ux.Styles.Success.Render(text)
		}
	default:
		text = string(ux.IconPending) + " pending"
	}
	if s.Result != nil {
		text += " (result " + strconv.Itoa(*s.Result) + ")"
	}
	return text
}

// Container renders the step's container with its labels.
func (r *Renderer) Container(s snapshot.Step) string {
	c := s.Container
	switch {
	case c.Array != nil:
		return r.array(s, c.Array)
	case c.List != nil:
		return r.list(s, c.List)
	case c.Tree != nil:
		return r.tree(s, c.Tree)
	case c.Forest != nil:
		return r.forest(s, c.Forest)
	case c.Graph != nil:
		return r.graph(s, c.Graph)
	case c.Text != nil:
		return r.text(s, c.Text)
	default:
		return "(empty)"
	}
}

// Roles lists each role's selection as "role: a b c", one role per line, in
// priority order. Identities are shown as the value or name behind them.
func Roles(s snapshot.Step) string {
	var lines []string
	for _, role := range priority {
		sel, ok := s.Points[role]
		if !ok {
			continue
		}
		var parts []string
		for _, i := range sel.Indices {
			parts = append(parts, strconv.Itoa(i))
		}
		for _, id := range sel.IDs {
			parts = append(parts, nameOf(s.Container, id))
		}
		if len(parts) > 0 {
			lines = append(lines, string(role)+": "+strings.Join(parts, " "))
		}
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// Per-kind layouts
// =============================================================================

func (r *Renderer) array(s snapshot.Step, a *snapshot.ArrayState) string {
	if len(a.Cells) == 0 {
		return "[]"
	}
	cols := make([]column, len(a.Cells))
	for i, c := range a.Cells {
		text := "[" + strconv.Itoa(c.Value) + "]"
		if c.Empty {
			text = "[·]"
		}
		role, _ := roleOf(s, i, c.ID)
		cols[i] = column{
			head:  strconv.Itoa(i),
			body:  text,
			foot:  joinLabels(s.IndexLabels[i], s.IDLabels[c.ID]),
			role:  role,
			valid: !c.Empty,
		}
	}
	return r.grid(cols)
}

func (r *Renderer) forest(s snapshot.Step, f *snapshot.ForestState) string {
	if len(f.Parent) == 0 {
		return "(empty forest)"
	}
	cols := make([]column, len(f.Parent))
	for x := range f.Parent {
		role, _ := roleOf(s, x, identity.None)
		cols[x] = column{
			head:  strconv.Itoa(x),
			body:  "↑" + strconv.Itoa(f.Parent[x]),
			foot:  s.IndexLabels[x],
			role:  role,
			valid: true,
		}
	}
	var roots []string
	for x, p := range f.Parent {
		if p == x {
			roots = append(roots, fmt.Sprintf("%d(size %d)", x, f.Size[x]))
		}
	}
	return r.grid(cols) + "\nroots: " + strings.Join(roots, " ")
}

func (r *Renderer) list(s snapshot.Step, l *snapshot.ListState) string {
	order := l.Order()
	if len(order) == 0 && len(l.Nodes) == 0 {
		return "head -> nil"
	}
	link := " -> "
	if l.Kind == snapshot.ListDoubly {
		link = " <-> "
	}

	var b strings.Builder
	b.WriteString("head")
	reached := make(map[identity.ID]bool, len(order))
	for _, n := range order {
		reached[n.ID] = true
		b.WriteString(link)
		b.WriteString(r.node(s, n.ID, n.Value))
	}
	switch {
	case len(order) > 0 && order[len(order)-1].Next == l.Head && !l.Head.IsNone():
		b.WriteString(link + "(head)")
	case len(order) > 0 && !order[len(order)-1].Next.IsNone():
		b.WriteString(link + "(" + nameOf(snapshot.OfList(l), order[len(order)-1].Next) + ")")
	default:
		b.WriteString(link + "nil")
	}

	var detached []string
	for _, n := range l.Nodes {
		if reached[n.ID] {
			continue
		}
		next := "nil"
		if !n.Next.IsNone() {
			next = nameOf(snapshot.OfList(l), n.Next)
		}
		detached = append(detached, r.node(s, n.ID, n.Value)+"->"+next)
	}
	if len(detached) > 0 {
		b.WriteString("\ndetached: " + strings.Join(detached, " "))
	}
	if labels := idLabels(s, snapshot.OfList(l)); labels != "" {
		b.WriteString("\nlabels: " + labels)
	}
	return b.String()
}

func (r *Renderer) tree(s snapshot.Step, t *snapshot.TreeState) string {
	if t.Root.IsNone() {
		return "(empty tree)"
	}
	var b strings.Builder
	var walk func(id identity.ID, prefix, branch string)
	walk = func(id identity.ID, prefix, branch string) {
		n, ok := t.Node(id)
		if !ok {
			return
		}
		b.WriteString(prefix + branch + r.node(s, id, n.Value))
		if label := s.IDLabels[id]; label != "" {
			b.WriteString(" (" + label + ")")
		}
		b.WriteString("\n")

		childPrefix := prefix
		switch branch {
		case "":
		case "├─L ", "├─R ":
			childPrefix += "│   "
		default:
			childPrefix += "    "
		}
		switch {
		case !n.Left.IsNone() && !n.Right.IsNone():
			walk(n.Left, childPrefix, "├─L ")
			walk(n.Right, childPrefix, "└─R ")
		case !n.Left.IsNone():
			walk(n.Left, childPrefix, "└─L ")
		case !n.Right.IsNone():
			walk(n.Right, childPrefix, "└─R ")
		}
	}
	walk(t.Root, "", "")
	return strings.TrimSuffix(b.String(), "\n")
}

func (r *Renderer) graph(s snapshot.Step, g *snapshot.GraphState) string {
	var b strings.Builder
	b.WriteString("vertices:")
	for _, v := range g.Vertices {
		b.WriteString(" ")
		text := v.Name
		if d, ok := g.Distances[v.Name]; ok {
			text += "=" + strconv.Itoa(d)
		} else if g.Distances != nil {
			text += "=∞"
		}
		b.WriteString(r.styled(s, -1, v.ID, text))
		if label := s.IDLabels[v.ID]; label != "" {
			b.WriteString("(" + label + ")")
		}
	}
	sep := " - "
	if g.Directed {
		sep = " -> "
	}
	b.WriteString("\nedges:")
	for _, e := range g.Edges {
		b.WriteString("\n  ")
		b.WriteString(r.styled(s, -1, e.ID, e.From+sep+e.To+" ("+strconv.Itoa(e.Weight)+")"))
		if role, ok := roleOf(s, -1, e.ID); ok {
			b.WriteString(" [" + string(role) + "]")
		}
	}
	return b.String()
}

func (r *Renderer) text(s snapshot.Step, t *snapshot.TextState) string {
	var b strings.Builder
	b.WriteString("text:    ")
	for i, ch := range []rune(t.Text) {
		b.WriteString(r.styled(s, i, identity.None, string(ch)))
	}
	b.WriteString("\npattern: ")
	b.WriteString(strings.Repeat(" ", max(t.Shift, 0)))
	b.WriteString(t.Pattern)
	if len(t.Prefix) > 0 {
		parts := make([]string, len(t.Prefix))
		for i, p := range t.Prefix {
			parts[i] = strconv.Itoa(p)
		}
		b.WriteString("\nprefix:  " + strings.Join(parts, " "))
	}
	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

// column is one aligned cell of a grid layout.
type column struct {
	head  string
	body  string
	foot  string
	role  snapshot.Role
	valid bool
}

// grid lays columns out as three rows: header, body and footer.
func (r *Renderer) grid(cols []column) string {
	var head, body, foot []string
	hasFoot := false
	for _, c := range cols {
		w := max(len([]rune(c.head)), len([]rune(c.body)), len([]rune(c.foot)))
		head = append(head, pad(c.head, w))
		text := c.body
		if c.role != "" && c.valid {
			text = r.style(c.role, text)
		}
		body = append(body, text+strings.Repeat(" ", w-len([]rune(c.body))))
		foot = append(foot, pad(c.foot, w))
		if c.foot != "" {
			hasFoot = true
		}
	}
	rows := []string{
		strings.TrimRight(strings.Join(head, " "), " "),
		strings.TrimRight(strings.Join(body, " "), " "),
	}
	if hasFoot {
		rows = append(rows, strings.TrimRight(strings.Join(foot, " "), " "))
	}
	return strings.Join(rows, "\n")
}

func (r *Renderer) node(s snapshot.Step, id identity.ID, value int) string {
	return r.styled(s, -1, id, "["+strconv.Itoa(value)+"]")
}

func (r *Renderer) styled(s snapshot.Step, index int, id identity.ID, text string) string {
	role, ok := roleOf(s, index, id)
	if !ok {
		return text
	}
	return r.style(role, text)
}

func (r *Renderer) style(role snapshot.Role, text string) string {
	if !r.color {
		return text
	}
	st, ok := r.styles[role]
	if !ok {
		return text
	}
	return st.Render(text)
}

// roleOf returns the highest priority role selecting index or id.
func roleOf(s snapshot.Step, index int, id identity.ID) (snapshot.Role, bool) {
	for _, role := range priority {
		if index >= 0 && s.Has(role, index) {
			return role, true
		}
		if !id.IsNone() && s.HasID(role, id) {
			return role, true
		}
	}
	return "", false
}

// nameOf renders the value, name or edge behind id in c.
func nameOf(c snapshot.Container, id identity.ID) string {
	switch {
	case c.Array != nil:
		for _, cell := range c.Array.Cells {
			if cell.ID == id {
				return strconv.Itoa(cell.Value)
			}
		}
	case c.List != nil:
		if n, ok := c.List.Node(id); ok {
			return strconv.Itoa(n.Value)
		}
	case c.Tree != nil:
		if n, ok := c.Tree.Node(id); ok {
			return strconv.Itoa(n.Value)
		}
	case c.Graph != nil:
		for _, v := range c.Graph.Vertices {
			if v.ID == id {
				return v.Name
			}
		}
		for _, e := range c.Graph.Edges {
			if e.ID == id {
				return e.From + "-" + e.To
			}
		}
	}
	return id.String()
}

// idLabels renders "Label=value" pairs sorted by label.
func idLabels(s snapshot.Step, c snapshot.Container) string {
	var parts []string
	for id, label := range s.IDLabels {
		parts = append(parts, label+"="+nameOf(c, id))
	}
	slices.Sort(parts)
	return strings.Join(parts, " ")
}

func joinLabels(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "" || a == b:
		return a
	default:
		return a + "/" + b
	}
}

func pad(s string, w int) string {
	return s + strings.Repeat(" ", w-len([]rune(s)))
}
