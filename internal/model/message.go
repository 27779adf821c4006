// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jeranaias/sirsi/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleBot:
		return AssistantName
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// =============================================================================
// FIXED CONTENT
// =============================================================================

const (
	// AssistantName is the display name of the bot.
	AssistantName = "Sirsi"

	// GreetingID is the fixed id of the greeting message.
	GreetingID = "initial-greeting"

	// GreetingText is shown as the first message of every fresh conversation.
	GreetingText = "Hello! I'm Sirsi, your virtual assistant. How can I help you today with your products, orders, or any technical questions?"

	// FailureNotice is the synthetic bot message appended after a failed send.
	// The underlying error is never shown to the user.
	FailureNotice = "I'm having trouble connecting right now. Please check your connection or try again later."
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
// The JSON shape is the persisted format: {id, role, text, error?}.
type Message struct {
	ID    string `json:"id" yaml:"id"`
	Role  Role   `json:"role" yaml:"role"`
	Text  string `json:"text" yaml:"text"`
	Error bool   `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:   NewID(),
		Role: role,
		Text: text,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, text)
}

// NewBotMessage creates a new bot message.
func NewBotMessage(text string) Message {
	return NewMessage(RoleBot, text)
}

// NewFailureNotice creates the synthetic bot message that follows a failed send.
func NewFailureNotice() Message {
	return NewBotMessage(FailureNotice)
}

// Greeting returns the fixed greeting message.
func Greeting() Message {
	return Message{
		ID:   GreetingID,
		Role: RoleBot,
		Text: GreetingText,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// IsGreeting returns true if the message is the fixed greeting.
func (m Message) IsGreeting() bool {
	return m.ID == GreetingID
}

// IsFailureNotice returns true if the message is a synthetic failure notice.
func (m Message) IsFailureNotice() bool {
	return m.Role == RoleBot && m.Text == FailureNotice
}

// Preview returns a single-line preview of at most maxLen runes.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(util.SingleLine(m.Text), maxLen)
}

// Validate checks the per-message invariants of the persisted format.
func (m Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("message has empty id")
	}
	if !m.Role.Valid() {
		return fmt.Errorf("message %s: unknown role %q", m.ID, m.Role)
	}
	if m.Error && m.Role != RoleUser {
		return fmt.Errorf("message %s: error flag set on %s message", m.ID, m.Role)
	}
	return nil
}

// =============================================================================
// PATCH TYPE
// =============================================================================

// Patch describes a partial update to a message. Nil fields are left unchanged.
type Patch struct {
	Text  *string
	Error *bool
}

// SetError returns a patch that sets the error flag.
func SetError(failed bool) Patch {
	return Patch{Error: &failed}
}

// apply merges the patch into a copy of m.
func (p Patch) apply(m Message) Message {
	if p.Text != nil {
		m.Text = *p.Text
	}
	if p.Error != nil {
		m.Error = *p.Error
	}
	return m
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// NewID creates a unique, time-ordered message ID.
// UUIDv7 embeds a millisecond timestamp, so ids sort in creation order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
