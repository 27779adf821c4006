// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the sirsi TUI.
package chat

import "github.com/jeranaias/sirsi/internal/lifecycle"

// =============================================================================
// STATE MESSAGES
// =============================================================================

// StateMsg carries a state published by the controller.
type StateMsg struct {
	State lifecycle.State
}

// SendDoneMsg is returned when a submit, retry or clear command finishes.
// Err is only set for rejected requests, which the view ignores.
type SendDoneMsg struct {
	Err error
}
