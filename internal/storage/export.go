// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/sirsi/internal/model"
	"github.com/jeranaias/sirsi/internal/util"
)

// =============================================================================
// EXPORT FORMATS
// =============================================================================

// Format is an export format for the history command.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat resolves a user-supplied format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "md", "markdown", "":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want markdown, json or yaml)", s)
	}
}

// Export writes conv to w in the given format.
// JSON output matches the persisted shape, so it can be loaded back.
func Export(w io.Writer, conv model.Conversation, format Format) error {
	switch format {
	case FormatMarkdown:
		_, err := io.WriteString(w, ExportMarkdown(conv))
		return err
	case FormatJSON:
		data, err := json.MarshalIndent(conv, "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(conv); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ExportMarkdown renders the conversation as a Markdown transcript.
// Failed messages are marked so the export reflects what the user saw.
func ExportMarkdown(conv model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# Conversation with " + model.AssistantName + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range conv {
		sb.WriteString("**" + msg.Role.DisplayName() + "**")
		if msg.Error {
			sb.WriteString(" _(message failed)_")
		}
		sb.WriteString(":\n\n")
		sb.WriteString(msg.Text)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// =============================================================================
// HISTORY LISTING
// =============================================================================

// FormatHistory formats a conversation as a table for the terminal.
func FormatHistory(conv model.Conversation, previewWidth int) string {
	if conv.IsDefault() {
		return "No saved conversation."
	}
	if previewWidth <= 0 {
		previewWidth = 50
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("#", 4) + " " + util.PadRight("From", 8) + " " + util.PadRight("Status", 8) + " Text\n")
	sb.WriteString(strings.Repeat("-", 22+previewWidth) + "\n")

	for i, msg := range conv {
		status := "ok"
		if msg.Error {
			status = "failed"
		}
		preview := util.TruncateWidth(util.SingleLine(msg.Text), previewWidth)
		sb.WriteString(util.PadRight(strconv.Itoa(i+1), 4) + " " +
			util.PadRight(msg.Role.DisplayName(), 8) + " " +
			util.PadRight(status, 8) + " " + preview + "\n")
	}

	return sb.String()
}
