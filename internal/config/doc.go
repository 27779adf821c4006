// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for sirsi.
//
// # Loading
//
//	cfg, err := config.Load()
//	key, err := cfg.RequireAPIKey()
//
// Load reads ~/.sirsi/config.toml (or config.json), applies environment
// overrides, fills defaults and validates the result.
//
// # Example config.toml
//
//	[storage]
//	backend = "sqlite"
//	dir = "~/.sirsi"
//
//	[client]
//	send_timeout_secs = 30
//	requests_per_minute = 10
//
//	[logging]
//	level = "debug"
package config
