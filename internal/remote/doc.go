// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package remote provides the chat session with the hosted language model.
//
// A Client creates Sessions seeded with prior turns; a Session sends one
// message and returns one reply. GeminiClient implements both on top of the
// Gemini API with a fixed model, persona and sampling configuration.
//
// # Usage
//
//	client, err := remote.NewGeminiClient(ctx, remote.GeminiConfig{APIKey: key}, logger)
//	session, err := client.CreateSession(ctx, conv.History())
//	reply, err := session.Send(ctx, "Where is my order?")
//
// Every failure is a *remote.Error; use errors.Is with ErrAuthFailed,
// ErrRateLimited or ErrEmptyReply to tell them apart.
package remote
