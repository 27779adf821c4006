// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"fmt"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered message list. Insertion order is display order.
//
// All operations are copy-on-write: they return a new Conversation and never
// modify the receiver, so a value handed to a subscriber stays stable.
type Conversation []Message

// NewConversation returns the default conversation holding only the greeting.
func NewConversation() Conversation {
	return Conversation{Greeting()}
}

// =============================================================================
// MUTATIONS (COPY-ON-WRITE)
// =============================================================================

// Append returns a new conversation with msg appended.
func (c Conversation) Append(msg Message) Conversation {
	out := make(Conversation, len(c), len(c)+1)
	copy(out, c)
	return append(out, msg)
}

// UpdateByID returns a new conversation where the message with the given id
// has patch merged into it. Returns c unchanged if no message matches.
func (c Conversation) UpdateByID(id string, patch Patch) Conversation {
	idx := c.Index(id)
	if idx < 0 {
		return c
	}
	out := c.Clone()
	out[idx] = patch.apply(out[idx])
	return out
}

// RemoveFollowerOf returns a new conversation without the message that
// immediately follows the one with the given id. Returns c unchanged if the
// id is unknown or the message is last.
func (c Conversation) RemoveFollowerOf(id string) Conversation {
	idx := c.Index(id)
	if idx < 0 || idx+1 >= len(c) {
		return c
	}
	out := make(Conversation, 0, len(c)-1)
	out = append(out, c[:idx+1]...)
	return append(out, c[idx+2:]...)
}

// DropNoticeAfter returns a new conversation without the failure notice that
// follows the message with the given id. Any other follower is kept.
func (c Conversation) DropNoticeAfter(id string) Conversation {
	idx := c.Index(id)
	if idx < 0 || idx+1 >= len(c) || !c[idx+1].IsFailureNotice() {
		return c
	}
	return c.RemoveFollowerOf(id)
}

// =============================================================================
// QUERIES
// =============================================================================

// Index returns the position of the message with the given id, or -1.
func (c Conversation) Index(id string) int {
	for i, msg := range c {
		if msg.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the message with the given id.
func (c Conversation) Find(id string) (Message, bool) {
	idx := c.Index(id)
	if idx < 0 {
		return Message{}, false
	}
	return c[idx], true
}

// LastFailed returns the most recent message with the error flag set.
func (c Conversation) LastFailed() (Message, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Error {
			return c[i], true
		}
	}
	return Message{}, false
}

// IsDefault returns true if the conversation is exactly the untouched greeting.
func (c Conversation) IsDefault() bool {
	return len(c) == 1 && c[0].IsGreeting()
}

// Clone returns an independent copy of the conversation.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// Equal reports whether both conversations hold the same messages in order.
func (c Conversation) Equal(other Conversation) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the conversation invariants: valid messages, unique ids,
// and the greeting (if present) first.
func (c Conversation) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for i, msg := range c {
		if err := msg.Validate(); err != nil {
			return err
		}
		if _, dup := seen[msg.ID]; dup {
			return fmt.Errorf("duplicate message id %s", msg.ID)
		}
		seen[msg.ID] = struct{}{}
		if msg.IsGreeting() && (i != 0 || msg.Role != RoleBot) {
			return fmt.Errorf("greeting must be the first bot message")
		}
	}
	return nil
}

// =============================================================================
// MODEL CONTEXT
// =============================================================================

// History returns the turns worth sending to the model as context.
//
// The greeting, every failed user message and the failure notice that
// follows a failed message are dropped. Any id in exclude is dropped too;
// the controller uses this for the message that is about to be sent.
func (c Conversation) History(exclude ...string) []Message {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	out := make([]Message, 0, len(c))
	for i, msg := range c {
		if msg.IsGreeting() || msg.Error {
			continue
		}
		if _, ok := skip[msg.ID]; ok {
			continue
		}
		if i > 0 && c[i-1].Error && msg.IsFailureNotice() {
			continue
		}
		out = append(out, msg)
	}
	return out
}
