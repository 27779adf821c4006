// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing a chat thread with the Sirsi assistant.
//
// # Key Types
//
//   - Message: Single message with id, role, text and a failed-send flag
//   - Conversation: Ordered message list with copy-on-write operations
//   - Patch: Partial message update used by Conversation.UpdateByID
//   - Role: Message role enumeration (user, bot)
//
// # Usage
//
// Start from the greeting and record a failed send:
//
//	conv := model.NewConversation()
//	msg := model.NewUserMessage("Where is my order?")
//	conv = conv.Append(msg)
//	conv = conv.UpdateByID(msg.ID, model.SetError(true))
//	conv = conv.Append(model.NewFailureNotice())
//
// Prepare the same message for a retry:
//
//	conv = conv.UpdateByID(msg.ID, model.SetError(false)).DropNoticeAfter(msg.ID)
package model
