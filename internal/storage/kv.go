// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for sirsi.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// KEY-VALUE INTERFACE
// =============================================================================

// KV is a string-keyed byte store. The conversation store keeps the whole
// history under a single key, so backends only need whole-value semantics.
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates a KV for the named backend. path is a directory for the file
// backend and a database file for sqlite; it is ignored for memory.
func Open(backend, path string) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemoryKV(), nil
	case BackendFile, "":
		return NewFileKV(path)
	case BackendSQLite:
		return NewSQLiteKV(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned by KV.Get when the key has no value.
	// Use errors.Is(err, ErrNotFound) to check for this error.
	ErrNotFound = &StorageError{Message: "key not found"}

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = &StorageError{Message: "unknown storage backend"}

	// ErrCorrupt is returned when a persisted value cannot be decoded.
	ErrCorrupt = &StorageError{Message: "persisted conversation is corrupt"}

	// ErrClosed is returned when a closed KV is used.
	ErrClosed = &StorageError{Message: "storage is closed"}
)

// StorageError represents a storage-related error.
// It implements the error interface and can be compared using errors.Is.
type StorageError struct {
	Message string
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing storage errors.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// PersistenceError wraps a failed load or save with the operation and key.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
