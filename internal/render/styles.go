// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// COLORS
// =============================================================================

var (
	// Purple - assistant output and thinking
	Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	// Cyan - prompts and conversation info
	Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}
	// Emerald - resolved tools
	Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	// Rose - errors
	Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	// Amber - pending tools and aborted turns
	Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	// TextMuted - usage and hints
	TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
)

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styles used by Printer.
type Theme struct {
	Prompt   lipgloss.Style
	Thinking lipgloss.Style
	Tool     lipgloss.Style
	ToolDone lipgloss.Style
	Info     lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Muted    lipgloss.Style
}

// NewTheme builds a theme whose color profile matches w. Writers that are
// not terminals get unstyled text.
func NewTheme(w io.Writer) *Theme {
	r := lipgloss.NewRenderer(w)
	return &Theme{
		Prompt:   r.NewStyle().Foreground(Cyan).Bold(true),
		Thinking: r.NewStyle().Foreground(Purple).Italic(true),
		Tool:     r.NewStyle().Foreground(Amber),
		ToolDone: r.NewStyle().Foreground(Emerald),
		Info:     r.NewStyle().Foreground(Cyan),
		Error:    r.NewStyle().Foreground(Rose).Bold(true),
		Warning:  r.NewStyle().Foreground(Amber),
		Muted:    r.NewStyle().Foreground(TextMuted),
	}
}
