// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lifecycle drives messages from submission to reply or failure.
//
// The Controller is the only writer of the conversation during a chat. It
// appends the user message, holds the awaiting-reply flag while the remote
// session answers, and records either the reply or a failed message plus
// the fixed failure notice. A failed message can be retried under its
// original id.
//
// # Usage
//
//	ctrl := lifecycle.New(store, client, lifecycle.Options{Logger: logger})
//	defer ctrl.Close()
//	ctrl.Load(ctx)
//
//	cancel := ctrl.Subscribe(func(s lifecycle.State) { render(s) })
//	defer cancel()
//
//	_ = ctrl.Submit(ctx, "Where is my order?")
//	if msg, ok := ctrl.State().Conversation.LastFailed(); ok {
//		_ = ctrl.Retry(ctx, msg.ID)
//	}
//
// Submit and Retry block until the outcome is recorded. Interactive callers
// run them off the UI goroutine.
package lifecycle
