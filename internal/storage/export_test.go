// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/sirsi/internal/model"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"md":       FormatMarkdown,
		"Markdown": FormatMarkdown,
		".json":    FormatJSON,
		"yml":      FormatYAML,
		"yaml":     FormatYAML,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestExport_JSONLoadsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sampleConversation(), FormatJSON))

	conv, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, conv.Equal(sampleConversation()))
}

func TestExport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sampleConversation(), FormatYAML))

	var conv model.Conversation
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &conv))
	assert.True(t, conv.Equal(sampleConversation()))
}

func TestExportMarkdown(t *testing.T) {
	md := ExportMarkdown(sampleConversation())

	assert.True(t, strings.HasPrefix(md, "# Conversation with Sirsi"))
	assert.Contains(t, md, "**You** _(message failed)_:\n\nwhere is my order?")
	assert.Contains(t, md, "**Sirsi**:\n\nhello")
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "No saved conversation.", FormatHistory(model.NewConversation(), 40))

	out := FormatHistory(sampleConversation(), 40)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[5], "failed")
	assert.Contains(t, lines[5], "where is my order?")
}
