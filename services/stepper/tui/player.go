// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui provides the interactive trace player.
//
// # Description
//
// PlayerModel is a bubbletea model over a playback controller. Keys drive
// the controller; controller status updates arrive as messages through a
// subscription, so auto-play ticks redraw the view without polling.
//
// # Thread Safety
//
// The model is used from the bubbletea event loop only. The controller it
// drives is safe for concurrent use.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AleutianAI/AlgoTrace/pkg/ux"
	"github.com/AleutianAI/AlgoTrace/services/stepper/playback"
	"github.com/AleutianAI/AlgoTrace/services/stepper/render"
)

// =============================================================================
// Player
// =============================================================================

// Player is the playback surface the model drives. *playback.Controller
// implements it.
type Player interface {
	Play() error
	Pause() error
	Seek(i int) (int, error)
	Step(delta int) (int, error)
	SetSpeed(period time.Duration) error
	Commit() error
	Status() playback.Status
	Config() playback.Config
	Subscribe(buffer int) (<-chan playback.Status, func())
}

// =============================================================================
// Messages
// =============================================================================

// statusMsg carries a controller status update.
type statusMsg playback.Status

// closedMsg signals the subscription channel was closed.
type closedMsg struct{}

// =============================================================================
// Keys
// =============================================================================

// KeyMap holds the player's key bindings.
type KeyMap struct {
	Toggle  key.Binding
	Back    key.Binding
	Forward key.Binding
	First   key.Binding
	Last    key.Binding
	Faster  key.Binding
	Slower  key.Binding
	Commit  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle:  key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/pause")),
		Back:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "step back")),
		Forward: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "step forward")),
		First:   key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("home", "first step")),
		Last:    key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("end", "last step")),
		Faster:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
		Commit:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "commit")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Back, k.Forward, k.Commit, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Back, k.Forward},
		{k.First, k.Last},
		{k.Faster, k.Slower},
		{k.Commit, k.Help, k.Quit},
	}
}

// =============================================================================
// Model
// =============================================================================

// PlayerModel is the bubbletea model for trace playback.
type PlayerModel struct {
	player   Player
	renderer *render.Renderer
	keys     KeyMap

	updates     <-chan playback.Status
	unsubscribe func()

	help     help.Model
	progress progress.Model
	viewport viewport.Model

	status playback.Status
	err    error

	width    int
	height   int
	ready    bool
	quitting bool
}

// NewPlayerModel subscribes to player and returns a model showing its
// current status. color enables styled rendering.
func NewPlayerModel(player Player, color bool) PlayerModel {
	updates, unsubscribe := player.Subscribe(16)
	return PlayerModel{
		player:      player,
		renderer:    render.New(color),
		keys:        DefaultKeyMap(),
		updates:     updates,
		unsubscribe: unsubscribe,
		help:        help.New(),
		progress:    progress.New(progress.WithDefaultGradient()),
		status:      player.Status(),
	}
}

// Init implements tea.Model.
func (m PlayerModel) Init() tea.Cmd {
	return waitForStatus(m.updates)
}

// waitForStatus delivers the next subscription update as a message.
func waitForStatus(ch <-chan playback.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return statusMsg(st)
	}
}

// Update implements tea.Model.
func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(msg.Width-4, 10)
		m.help.Width = msg.Width

		headerHeight := 3
		footerHeight := 3
		bodyHeight := max(m.height-headerHeight-footerHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(m.width, bodyHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = bodyHeight
		}
		m.updateViewportContent()
		return m, nil

	case statusMsg:
		m.status = playback.Status(msg)
		m.updateViewportContent()
		return m, waitForStatus(m.updates)

	case closedMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m PlayerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.unsubscribe()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if m.player.Status().Phase == playback.PhaseRunning {
			err = m.player.Pause()
		} else {
			err = m.player.Play()
		}

	case key.Matches(msg, m.keys.Back):
		err = m.stepBy(-1)

	case key.Matches(msg, m.keys.Forward):
		err = m.stepBy(1)

	case key.Matches(msg, m.keys.First):
		_, err = m.player.Seek(0)

	case key.Matches(msg, m.keys.Last):
		_, err = m.player.Seek(m.player.Status().Len - 1)

	case key.Matches(msg, m.keys.Faster):
		err = m.player.SetSpeed(m.nextPeriod(0.5))

	case key.Matches(msg, m.keys.Slower):
		err = m.player.SetSpeed(m.nextPeriod(2))

	case key.Matches(msg, m.keys.Commit):
		err = m.player.Commit()

	default:
		return m, nil
	}

	m.err = err
	m.status = m.player.Status()
	m.updateViewportContent()
	return m, nil
}

// stepBy pauses auto-play and moves the cursor.
func (m PlayerModel) stepBy(delta int) error {
	if m.player.Status().Phase == playback.PhaseRunning {
		if err := m.player.Pause(); err != nil {
			return err
		}
	}
	_, err := m.player.Step(delta)
	return err
}

// nextPeriod scales the current period, clamped to the configured bounds.
func (m PlayerModel) nextPeriod(factor float64) time.Duration {
	cfg := m.player.Config()
	next := time.Duration(float64(m.player.Status().Period) * factor)
	return min(max(next, cfg.MinPeriod), cfg.MaxPeriod)
}

func (m *PlayerModel) updateViewportContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.body())
}

// View implements tea.Model.
func (m PlayerModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.progressBar())
	b.WriteString("\n\n")
	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.body())
	}
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

// Status returns the last status the model has seen.
func (m PlayerModel) Status() playback.Status {
	return m.status
}

// Err returns the error of the last key action, if any.
func (m PlayerModel) Err() error {
	return m.err
}

// =============================================================================
// Rendering
// =============================================================================

func (m PlayerModel) header() string {
	st := m.status
	if st.Phase == playback.PhaseIdle {
		return ux.Styles.Title.Render("Stepper") + "  " + ux.Styles.Muted.Render("no trace loaded")
	}
	title := ux.Styles.Title.Render(fmt.Sprintf("%s %s", st.Family, st.Op))
	info := fmt.Sprintf("%s  step %d/%d  %v/step", st.Phase, st.Cursor+1, st.Len, st.Period)
	if st.Committed {
		info += "  " + ux.IconSuccess.Render() + " committed"
	}
	return title + "  " + ux.Styles.Subtitle.Render(info)
}

func (m PlayerModel) progressBar() string {
	if m.status.Len == 0 {
		return m.progress.ViewAs(0)
	}
	return m.progress.ViewAs(float64(m.status.Cursor+1) / float64(m.status.Len))
}

func (m PlayerModel) body() string {
	if m.status.Step == nil {
		return ux.Styles.Muted.Render("(nothing to show)")
	}
	return m.renderer.Step(*m.status.Step)
}

func (m PlayerModel) footer() string {
	var b strings.Builder
	switch {
	case m.err != nil:
		b.WriteString(ux.Styles.Error.Render(m.err.Error()))
		b.WriteString("\n")
	case m.status.Error != "":
		b.WriteString(ux.Styles.Error.Render("commit failed: " + m.status.Error))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// =============================================================================
// Program
// =============================================================================

// Run shows the player until the user quits or ctx is done. It returns the
// last status seen.
func Run(ctx context.Context, player Player, color bool) (playback.Status, error) {
	model := NewPlayerModel(player, color)
	defer model.unsubscribe()

	final, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return player.Status(), fmt.Errorf("run player: %w", err)
	}
	if pm, ok := final.(PlayerModel); ok {
		return pm.Status(), nil
	}
	return player.Status(), nil
}
