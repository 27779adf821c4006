// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the sirsi TUI.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/jeranaias/sirsi/internal/lifecycle"
	"github.com/jeranaias/sirsi/internal/ui/styles"
)

// Controller is the part of the lifecycle controller the view drives.
type Controller interface {
	Submit(ctx context.Context, text string) error
	Retry(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	State() lifecycle.State
	Subscribe(fn lifecycle.StateListener) (cancel func())
}

// Options configures the view.
type Options struct {
	// Markdown renders bot replies through glamour.
	Markdown bool

	// CharLimit caps the input length. 0 uses a default.
	CharLimit int
}

// stateBuffer is how many published states may queue before older ones
// are dropped. SendDoneMsg always re-reads the final state.
const stateBuffer = 64

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctrl  Controller
	ctx   context.Context
	theme *styles.Theme
	keys  KeyMap
	opts  Options

	// Latest controller state
	state lifecycle.State

	// selected is the failed message C-r retries. Empty means the most
	// recent one.
	selected string

	// State subscription
	states      chan lifecycle.State
	unsubscribe func()

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	// Dimensions
	width  int
	height int
	ready  bool
}

// New creates the chat view. The controller should already be loaded.
func New(ctrl Controller, theme *styles.Theme, opts Options) *Model {
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	if opts.CharLimit <= 0 {
		opts.CharLimit = 4000
	}

	input := textinput.New()
	input.Placeholder = "Type your message..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = opts.CharLimit
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := &Model{
		ctrl:    ctrl,
		ctx:     context.Background(),
		theme:   theme,
		keys:    DefaultKeyMap(),
		opts:    opts,
		state:   ctrl.State(),
		states:  make(chan lifecycle.State, stateBuffer),
		input:   input,
		spinner: sp,
	}
	m.unsubscribe = ctrl.Subscribe(m.publish)
	return m
}

// publish queues a state for the UI goroutine without ever blocking the
// controller.
func (m *Model) publish(s lifecycle.State) {
	select {
	case m.states <- s:
	default:
	}
}

// Close stops listening to the controller.
func (m *Model) Close() {
	m.unsubscribe()
}

// Init starts the cursor blink, the spinner and the state listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.listen())
}

// listen waits for the next published state.
func (m *Model) listen() tea.Cmd {
	states := m.states
	return func() tea.Msg {
		return StateMsg{State: <-states}
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

// submitCmd runs Submit off the UI goroutine.
func (m *Model) submitCmd(text string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return SendDoneMsg{Err: ctrl.Submit(ctx, text)}
	}
}

// retryCmd retries the failed message with the given id.
func (m *Model) retryCmd(id string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return SendDoneMsg{Err: ctrl.Retry(ctx, id)}
	}
}

// =============================================================================
// FAILED MESSAGE SELECTION
// =============================================================================

// failedIDs returns the ids of failed messages in display order.
func (m *Model) failedIDs() []string {
	var ids []string
	for _, msg := range m.state.Conversation {
		if msg.Error {
			ids = append(ids, msg.ID)
		}
	}
	return ids
}

// retryTarget returns the selected failed message, falling back to the most
// recent one once the selection is no longer failed.
func (m *Model) retryTarget() string {
	if msg, ok := m.state.Conversation.Find(m.selected); ok && msg.Error {
		return msg.ID
	}
	if msg, ok := m.state.Conversation.LastFailed(); ok {
		return msg.ID
	}
	return ""
}

// moveSelection steps the selection through failed messages, wrapping at
// either end.
func (m *Model) moveSelection(delta int) {
	ids := m.failedIDs()
	if len(ids) == 0 {
		return
	}
	current := m.retryTarget()
	idx := len(ids) - 1
	for i, id := range ids {
		if id == current {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(ids)) % len(ids)
	m.selected = ids[idx]
	m.refresh()
}

// clearCmd resets the conversation.
func (m *Model) clearCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return SendDoneMsg{Err: ctrl.Clear(ctx)}
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

// Fixed rows around the viewport: header, typing line, input (with its
// top border) and status bar.
const chromeHeight = 1 + 1 + 2 + 1

// resize applies a new terminal size.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	vpHeight := height - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 4

	m.renderer = nil
	if m.opts.Markdown {
		m.renderer = newRenderer(m.theme, styles.BubbleWidth(width)-4)
	}
	m.refresh()
}

// refresh re-renders the conversation and keeps the newest message in view
// when the user was already at the bottom.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() == 0
	m.viewport.SetContent(m.renderConversation())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// newRenderer builds a glamour renderer matching the theme. Plain terminals
// get the notty style so no escape codes leak through.
func newRenderer(theme *styles.Theme, wrap int) *glamour.TermRenderer {
	if wrap < 20 {
		wrap = 20
	}
	style := "light"
	switch {
	case theme.ColorProfile == termenv.Ascii:
		style = "notty"
	case theme.IsDark:
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return r
}
