// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/sirsi/internal/util"
)

// FileKV stores each key as a JSON file in a directory.
// Writes go through util.AtomicWriteFile so a crash never leaves a torn value.
type FileKV struct {
	// BaseDir holds one file per key.
	// Default: ~/.sirsi/
	BaseDir string

	mu sync.Mutex
}

// NewFileKV creates a file store rooted at baseDir, creating it if needed.
func NewFileKV(baseDir string) (*FileKV, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("file storage: empty directory")
	}
	dir, err := util.ExpandHome(baseDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("file storage: %w", err)
	}
	return &FileKV{BaseDir: dir}, nil
}

// Get reads the file for key.
func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.filePath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set atomically replaces the file for key.
func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return util.AtomicWriteFile(f.filePath(key), value, 0600)
}

// Delete removes the file for key.
func (f *FileKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.filePath(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Close is a no-op for the file backend.
func (f *FileKV) Close() error {
	return nil
}

// filePath maps a key to a file name. Keys are escaped so a key can never
// point outside BaseDir.
func (f *FileKV) filePath(key string) string {
	return filepath.Join(f.BaseDir, url.PathEscape(key)+".json")
}
