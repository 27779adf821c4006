// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package remote provides the chat session with the hosted language model.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/sirsi/internal/model"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Client creates remote chat sessions.
type Client interface {
	// CreateSession starts a chat seeded with prior turns. The greeting,
	// failed messages and the failure notices that follow them are never
	// sent as context.
	CreateSession(ctx context.Context, seed []model.Message) (Session, error)
}

// Session is one remote chat. The remote side keeps the turn history.
type Session interface {
	// Send delivers one user message and returns the reply text.
	// There is no internal retry; every failure is returned as *Error.
	Send(ctx context.Context, text string) (string, error)
}

// =============================================================================
// ERRORS
// =============================================================================

// Error variables for common remote failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates the request quota was exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmptyReply indicates the model returned no text.
	ErrEmptyReply = errors.New("empty reply")
)

// Error is a failed remote operation.
type Error struct {
	// Op is "create" or "send".
	Op  string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRemoteError reports whether err came from the remote client.
func IsRemoteError(err error) bool {
	var rerr *Error
	return errors.As(err, &rerr)
}
