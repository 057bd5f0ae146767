// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// markdownStyle picks the glamour style for the current output: the
// terminal's own background when colors are on, plain "notty" otherwise.
func markdownStyle() string {
	if ColorsEnabled() {
		return styles.AutoStyle
	}
	return styles.NoTTYStyle
}

// renderMarkdown formats an answer in the named glamour style, wrapped to
// width. If rendering fails the answer is returned as is.
func renderMarkdown(content string, width int, style string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content + "\n"
	}
	out, err := r.Render(content)
	if err != nil {
		return content + "\n"
	}
	return strings.TrimLeft(out, "\n")
}
