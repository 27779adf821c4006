// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the sirsi TUI.
//
// Colors are Lip Gloss AdaptiveColors, so one palette serves light and dark
// terminals. A Theme bundles the styles the chat view renders with.
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	fmt.Println(theme.UserBubble.Render("hi"))
//
// Status helpers pair every color with an ASCII shape ([OK], [X], [!], [i])
// so state is readable without color.
package styles
