// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sirsi/internal/model"
	"github.com/jeranaias/sirsi/internal/ui/styles"
)

const (
	headerTitle  = "Sirsi AI Chatbot"
	onlineLabel  = "Online"
	typingLabel  = "Sirsi is typing..."
	failedLabel  = "Message failed."
	retryLabel   = "C-r to retry"
	selectLabel  = "Tab to select"
	selectMark   = "▸"
	loadingLabel = "Loading..."
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the chat: header, messages, typing line, input, status bar.
func (m *Model) View() string {
	if !m.ready {
		return loadingLabel
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderTyping(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// =============================================================================
// HEADER AND FOOTER
// =============================================================================

func (m *Model) renderHeader() string {
	t := m.theme
	left := t.HeaderAvatar.Render("S") + " " + t.HeaderTitle.Render(headerTitle)
	right := t.OnlineDot.Render("●") + " " + t.OnlineText.Render(onlineLabel)

	gap := m.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return t.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderTyping shows the spinner while a reply is pending. An empty string
// still takes one row in the layout.
func (m *Model) renderTyping() string {
	if !m.state.AwaitingReply {
		return ""
	}
	return " " + m.spinner.View() + " " + m.theme.TypingText.Render(typingLabel)
}

func (m *Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

func (m *Model) renderStatusBar() string {
	t := m.theme
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, t.ShortcutKey.Render(h.Key)+" "+t.ShortcutDesc.Render(h.Desc))
	}
	return t.StatusBar.Width(m.width).MaxWidth(m.width).Render(strings.Join(parts, "  "))
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderConversation renders every message in order.
func (m *Model) renderConversation() string {
	conv := m.state.Conversation
	target := m.retryTarget()
	blocks := make([]string, 0, len(conv))
	for _, msg := range conv {
		blocks = append(blocks, m.renderMessage(msg, msg.ID == target))
	}
	return strings.Join(blocks, "\n\n")
}

// renderMessage renders one bubble with its sender label. User bubbles sit
// on the right, bot bubbles on the left. A failed message that C-r would
// retry is marked as selected.
func (m *Model) renderMessage(msg model.Message, selected bool) string {
	t := m.theme
	maxWidth := styles.BubbleWidth(m.width)

	style := t.BotBubble
	body := m.renderBody(msg, maxWidth-4)
	switch {
	case msg.Error:
		style = t.FailedBubble
	case msg.Role == model.RoleUser:
		style = t.UserBubble
	}

	bubble := style.Render(body)

	lines := []string{t.SenderLabel.Render(msg.Role.DisplayName()), bubble}
	if msg.Error {
		if selected {
			lines = append(lines, t.FailedMarker.Render(selectMark+" "+failedLabel)+" "+t.RetryHint.Render(retryLabel))
		} else {
			lines = append(lines, t.FailedMarker.Render(failedLabel)+" "+t.RetryHint.Render(selectLabel))
		}
	}

	pos := lipgloss.Left
	if msg.Role == model.RoleUser {
		pos = lipgloss.Right
	}
	block := lipgloss.JoinVertical(pos, lines...)
	return lipgloss.PlaceHorizontal(m.width, pos, block)
}

// renderBody returns the bubble text. Bot replies go through glamour when
// markdown is enabled; user text is shown as typed.
func (m *Model) renderBody(msg model.Message, wrap int) string {
	if wrap < 10 {
		wrap = 10
	}
	if msg.Role == model.RoleBot && m.renderer != nil {
		if out, err := m.renderer.Render(msg.Text); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return wrapText(msg.Text, wrap)
}

// wrapText wraps text to at most width cells. Short text keeps its natural
// width so small bubbles stay small.
func wrapText(text string, width int) string {
	if lipgloss.Width(text) <= width {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}
