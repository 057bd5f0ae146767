// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styles for enchanted commands.

package cli

import (
	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(colorProfile())
}

// Palette, in 256-color codes.
const (
	colorAccent = lipgloss.Color("39")
	colorMuted  = lipgloss.Color("242")
	colorLabel  = lipgloss.Color("245")
	colorText   = lipgloss.Color("252")
	colorOK     = lipgloss.Color("42")
	colorFail   = lipgloss.Color("196")
	colorWarn   = lipgloss.Color("214")
	colorPick   = lipgloss.Color("82")
)

var (
	// TitleStyle heads each block of command output.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)

	// LabelStyle aligns "Label  value" rows.
	LabelStyle = lipgloss.NewStyle().Foreground(colorLabel).Width(16)

	ValueStyle   = lipgloss.NewStyle().Foreground(colorText)
	SuccessStyle = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorFail).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(colorWarn)

	// DimStyle is for stream stats and hints.
	DimStyle = lipgloss.NewStyle().Foreground(colorMuted)

	// HighlightStyle marks the model requests go to.
	HighlightStyle = lipgloss.NewStyle().Foreground(colorPick)
)

// RenderStatus renders a reachability marker.
func RenderStatus(ok bool) string {
	if ok {
		return SuccessStyle.Render("[OK]")
	}
	return ErrorStyle.Render("[FAIL]")
}

// RenderLabel renders a fixed-width label.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}
