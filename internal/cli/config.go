// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for sirsi.
//
// Command: config [subcommand]
// Short:   View the configuration
//
// Subcommands:
//   show (default)      Display current configuration (API key redacted)
//   get <key>           Print one value by dotted key
//   path                Show configuration file path
//   init                Write a default config file
//
// Examples:
//   sirsi config                          Show current config
//   sirsi config show --json              Config in JSON format
//   sirsi config get storage.backend      Print one value
//   sirsi config init --force             Overwrite with defaults

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sirsi/internal/config"
	"github.com/jeranaias/sirsi/internal/ui/styles"
)

func (e *env) newConfigCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View the configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.runConfigShow(cmd, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")

	var showJSON bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Display the current configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.runConfigShow(cmd, showJSON)
		},
	}
	show.Flags().BoolVar(&showJSON, "json", false, "output in JSON format")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Example: `  sirsi config get storage.backend
  sirsi config get client.send_timeout_secs`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: e.runConfigGet,
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  e.runConfigPath,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.runConfigInit(cmd, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, get, path, initCmd)
	return cmd
}

func (e *env) runConfigShow(cmd *cobra.Command, asJSON bool) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}

	if !asJSON {
		fmt.Fprint(cmd.OutOrStdout(), cfg.String())
		return nil
	}

	safe := cfg.Clone()
	if safe.APIKey != "" {
		safe.APIKey = "[REDACTED]"
	}
	data, err := json.MarshalIndent(safe, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func (e *env) runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	value, err := cfg.Get(args[0])
	if err != nil {
		return &UsageError{Err: err}
	}
	if args[0] == "api_key" && value != "" {
		value = "[REDACTED]"
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func (e *env) runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := e.targetPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func (e *env) runConfigInit(cmd *cobra.Command, force bool) error {
	path, err := e.targetPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return &UsageError{Err: fmt.Errorf("%s already exists (use --force to overwrite)", path)}
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &CommandError{Command: "config", Action: "init", Reason: "cannot stat file", Err: err}
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return &CommandError{Command: "config", Action: "init", Reason: "write failed", Err: err}
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Wrote "+path))
	return nil
}

// targetPath is --config when given, else the default TOML path.
func (e *env) targetPath() (string, error) {
	if e.configPath != "" {
		return e.configPath, nil
	}
	return config.ConfigPathTOML()
}
