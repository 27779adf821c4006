// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lifecycle

import (
	"errors"
	"fmt"
)

// Rejected requests. Front-ends ignore these; nothing in the conversation
// changes when one is returned.
var (
	// ErrEmptyText indicates the submitted text was empty or whitespace.
	ErrEmptyText = errors.New("message text is empty")

	// ErrAwaitingReply indicates another send is still outstanding.
	ErrAwaitingReply = errors.New("awaiting reply")

	// ErrNotRetryable indicates the id is unknown or the message did not fail.
	ErrNotRetryable = errors.New("message is not retryable")
)

// ValidationError is a rejected Submit or Retry.
type ValidationError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a rejected request.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

func reject(op string, err error) error {
	return &ValidationError{Op: op, Err: err}
}
