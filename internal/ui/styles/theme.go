// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the travelmind TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantText  lipgloss.Style
	SystemNotice   lipgloss.Style
	WarningNotice  lipgloss.Style
	ErrorNotice    lipgloss.Style
	Attachment     lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusKey    lipgloss.Style
	StatusDesc   lipgloss.Style
	StatusActive lipgloss.Style

	// Spinner accent
	Spinner lipgloss.Style
}

// palette holds the raw colors a theme is built from.
type palette struct {
	accent    lipgloss.Color
	secondary lipgloss.Color
	text      lipgloss.Color
	muted     lipgloss.Color
	warning   lipgloss.Color
	errorC    lipgloss.Color
	surface   lipgloss.Color
}

var darkPalette = palette{
	accent:    lipgloss.Color("39"),  // bright blue
	secondary: lipgloss.Color("141"), // violet
	text:      lipgloss.Color("252"),
	muted:     lipgloss.Color("243"),
	warning:   lipgloss.Color("214"),
	errorC:    lipgloss.Color("203"),
	surface:   lipgloss.Color("236"),
}

var lightPalette = palette{
	accent:    lipgloss.Color("26"),
	secondary: lipgloss.Color("91"),
	text:      lipgloss.Color("235"),
	muted:     lipgloss.Color("245"),
	warning:   lipgloss.Color("130"),
	errorC:    lipgloss.Color("160"),
	surface:   lipgloss.Color("254"),
}

// NewTheme builds a theme for the given name: "dark", "light", or "auto".
// Auto queries the terminal background via termenv.
func NewTheme(name string) *Theme {
	isDark := true
	switch name {
	case "light":
		isDark = false
	case "dark":
		isDark = true
	default:
		isDark = termenv.HasDarkBackground()
	}

	p := darkPalette
	if !isDark {
		p = lightPalette
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}

	t.Header = lipgloss.NewStyle().
		Foreground(p.text).
		Background(p.surface).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(p.accent).
		Bold(true)
	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(p.muted)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(p.accent).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(p.secondary).
		Bold(true)
	t.UserBubble = lipgloss.NewStyle().
		Foreground(p.text).
		PaddingLeft(2)
	t.AssistantText = lipgloss.NewStyle().
		Foreground(p.text)
	t.SystemNotice = lipgloss.NewStyle().
		Foreground(p.muted).
		Italic(true)
	t.WarningNotice = lipgloss.NewStyle().
		Foreground(p.warning)
	t.ErrorNotice = lipgloss.NewStyle().
		Foreground(p.errorC).
		Bold(true)
	t.Attachment = lipgloss.NewStyle().
		Foreground(p.secondary)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.accent).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(p.accent).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(p.muted).
		Background(p.surface).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().
		Foreground(p.accent).
		Bold(true)
	t.StatusDesc = lipgloss.NewStyle().
		Foreground(p.muted)
	t.StatusActive = lipgloss.NewStyle().
		Foreground(p.warning).
		Bold(true)

	t.Spinner = lipgloss.NewStyle().
		Foreground(p.secondary)

	return t
}
