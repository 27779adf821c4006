// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()

	fileKV, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	sqliteKV, err := NewSQLiteKV(filepath.Join(t.TempDir(), "sirsi.db"))
	require.NoError(t, err)

	kvs := map[string]KV{
		BackendMemory: NewMemoryKV(),
		BackendFile:   fileKV,
		BackendSQLite: sqliteKV,
	}
	t.Cleanup(func() {
		for _, kv := range kvs {
			kv.Close()
		}
	})
	return kvs
}

func TestKV_Contract(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := kv.Get(ctx, "chatHistory")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, "chatHistory", []byte("[1]")))
			require.NoError(t, kv.Set(ctx, "chatHistory", []byte("[1,2]")))

			got, err := kv.Get(ctx, "chatHistory")
			require.NoError(t, err)
			assert.Equal(t, "[1,2]", string(got))

			require.NoError(t, kv.Delete(ctx, "chatHistory"))
			require.NoError(t, kv.Delete(ctx, "chatHistory"))

			_, err = kv.Get(ctx, "chatHistory")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileKV_KeyEscaping(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	require.NoError(t, kv.Set(context.Background(), "../escape", []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestSQLiteKV_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sirsi.db")

	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "k", []byte("v")))
	require.NoError(t, kv.Close())

	kv, err = NewSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestMemoryKV_Closed(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Close())
	_, err := kv.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen(t *testing.T) {
	kv, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	kv, err = Open("FILE", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileKV{}, kv)

	_, err = Open("redis", "")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
