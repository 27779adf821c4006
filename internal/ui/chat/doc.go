// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat view for the sirsi TUI.

The view is a Bubble Tea model over a lifecycle controller. It never changes
the conversation itself: Enter submits the input text and Ctrl+R retries the
most recent failed message, both through the controller, and every state
change the controller publishes is re-rendered.

# Layout

  - Header: assistant avatar, "Sirsi AI Chatbot" and an online indicator
  - Viewport: message bubbles, user on the right and Sirsi on the left;
    failed messages carry a "Message failed." marker with a retry hint
  - Typing indicator: "Sirsi is typing..." while a reply is pending
  - Input line and a status bar with key hints

# Usage

	m := chat.New(ctrl, theme, chat.Options{Markdown: true})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
*/
package chat
