// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for sirsi.
//
// The whole conversation is kept as one JSON array under a single key of a
// pluggable key-value backend, and the ConversationStore owns the in-memory
// copy, saving and notifying subscribers on every change.
//
// # Key Types
//
//   - KV: Key-value backend interface (MemoryKV, FileKV, SQLiteKV)
//   - ConversationStore: Current conversation, persistence and notifications
//   - PersistenceError: Failed load, save or clear with the key involved
//
// # Usage
//
// Open a backend and load the saved conversation:
//
//	kv, err := storage.Open(storage.BackendFile, "~/.sirsi")
//	store := storage.NewConversationStore(kv, storage.DefaultKey, logger)
//	conv := store.Load(ctx)
//
// Change it and have the change saved:
//
//	store.Update(ctx, func(c model.Conversation) model.Conversation {
//		return c.Append(model.NewUserMessage("hi"))
//	})
//
// # Storage Location
//
// The file backend writes ~/.sirsi/chatHistory.json. The sqlite backend
// keeps the same value in a kv table.
package storage
