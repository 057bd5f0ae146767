// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for the enchanted CLI.
//
// Interactive terminals get colors and markdown rendering; piped output
// gets plain text. NO_COLOR and FORCE_COLOR are honored.
package cli

import (
	"os"
	"sync"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// fdHolder is satisfied by *os.File.
type fdHolder interface {
	Fd() uintptr
}

// isTerminal reports whether stream (a reader or writer) is a terminal.
// Buffers and pipes are not.
func isTerminal(stream any) bool {
	f, ok := stream.(fdHolder)
	return ok && term.IsTerminal(int(f.Fd()))
}

const (
	// DefaultTerminalWidth is used when the width cannot be read.
	DefaultTerminalWidth = 80

	// minRenderWidth keeps rendered markdown readable in narrow panes.
	minRenderWidth = 40
)

// terminalWidth returns the width of stream in cells.
func terminalWidth(stream any) int {
	f, ok := stream.(fdHolder)
	if !ok {
		return DefaultTerminalWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	switch {
	case err != nil || width <= 0:
		return DefaultTerminalWidth
	case width < minRenderWidth:
		return minRenderWidth
	}
	return width
}

// Truncate shortens s to at most width display cells, ending with "…"
// when cut. Wide characters count as two cells.
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// PadRight pads s with spaces to width display cells.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

var colorProfile = sync.OnceValue(func() termenv.Profile {
	switch {
	case os.Getenv("NO_COLOR") != "":
		return termenv.Ascii
	case os.Getenv("FORCE_COLOR") != "":
		return termenv.ANSI256
	case !isTerminal(os.Stdout):
		return termenv.Ascii
	}
	return termenv.ColorProfile()
})

// ColorsEnabled reports whether styled output is written to stdout.
func ColorsEnabled() bool {
	return colorProfile() != termenv.Ascii
}
