// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Saved conversation management for the sirsi CLI.
//
// Command: history [show|export|clear]
//
// Examples:
//   sirsi history                     Show the saved conversation
//   sirsi history export -f json      Export as JSON (loadable format)
//   sirsi history export -o chat.md   Export to a file
//   sirsi history clear --confirm     Delete the saved conversation

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sirsi/internal/storage"
	"github.com/jeranaias/sirsi/internal/ui/styles"
	"github.com/jeranaias/sirsi/internal/util"
)

func (e *env) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show, export or clear the saved conversation",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  e.runHistoryShow,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the saved conversation",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  e.runHistoryShow,
	}

	var format, output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the saved conversation",
		Long: `Writes the saved conversation as markdown, json or yaml. The json form is
the persisted format. Without --output the export goes to stdout; the
format defaults to the output file's extension.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.runHistoryExport(cmd, format, output)
		},
	}
	export.Flags().StringVarP(&format, "format", "f", "", "markdown, json or yaml")
	export.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")

	var confirm bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved conversation",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return &UsageError{Err: errors.New("refusing to clear without --confirm")}
			}
			return e.runHistoryClear(cmd)
		},
	}
	clearCmd.Flags().BoolVar(&confirm, "confirm", false, "required to delete the conversation")

	cmd.AddCommand(show, export, clearCmd)
	return cmd
}

func (e *env) runHistoryShow(cmd *cobra.Command, _ []string) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	app, err := e.openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	out := storage.FormatHistory(app.Store.Current(), GetTerminalWidth()-30)
	fmt.Fprint(cmd.OutOrStdout(), out)
	if app.Store.Current().IsDefault() {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func (e *env) runHistoryExport(cmd *cobra.Command, formatName, output string) error {
	if formatName == "" && output != "" {
		formatName = filepath.Ext(output)
	}
	format, err := storage.ParseFormat(formatName)
	if err != nil {
		return &UsageError{Err: err}
	}

	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	app, err := e.openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if output == "" {
		return storage.Export(cmd.OutOrStdout(), app.Store.Current(), format)
	}

	var buf bytes.Buffer
	if err := storage.Export(&buf, app.Store.Current(), format); err != nil {
		return &CommandError{Command: "history", Action: "export", Reason: "encoding failed", Err: err}
	}
	if err := util.AtomicWriteFile(output, buf.Bytes(), 0600); err != nil {
		return &CommandError{Command: "history", Action: "export", Reason: "write failed", Err: err}
	}
	fmt.Fprintln(cmd.ErrOrStderr(), styles.RenderSuccess("Exported to "+output))
	return nil
}

func (e *env) runHistoryClear(cmd *cobra.Command) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	app, err := e.openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Store.Clear(cmd.Context()); err != nil {
		return &CommandError{Command: "history", Action: "clear", Reason: "storage error", Err: err}
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Conversation cleared."))
	return nil
}
