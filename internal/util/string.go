// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TruncateWidth truncates s to at most width terminal cells, appending "..."
// when something was cut. Wide characters (CJK, emoji) count as two cells
// and are never split.
func TruncateWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

// PadWidth pads s with spaces to width terminal cells. Longer strings are
// returned unchanged.
func PadWidth(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// OneLine collapses all whitespace runs, newlines included, to single
// spaces and trims the ends. Used for titles and status lines.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Summarize returns a single-line preview of s at most width cells wide.
func Summarize(s string, width int) string {
	return TruncateWidth(OneLine(s), width)
}
