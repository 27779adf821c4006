// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the sirsi command tree.
//
// Every command that talks to the model wires the same stack: config,
// zap logging, a storage backend, the conversation store, the Gemini
// client and the lifecycle controller. A missing API key stops the
// command with an initialization error and exit status 1.
//
// # Commands
//
//   - (none): full-screen chat (Bubble Tea)
//   - chat: line-based chat with /retry, /history, /export and /clear
//   - ask: one question, reply on stdout
//   - history: show, export or clear the saved conversation
//   - config: show, get, path and init
//   - version: build information
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
package cli
