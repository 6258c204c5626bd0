// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// IntToStr converts an int to its decimal string form.
func IntToStr(n int) string {
	return strconv.Itoa(n)
}

// TruncateRunes truncates s to at most max runes, appending an ellipsis
// when anything was cut. Safe for multi-byte text; never splits a rune.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// TruncateWidth truncates s to at most max terminal cells, accounting for
// wide (CJK) runes, appending an ellipsis when anything was cut.
func TruncateWidth(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "...")
}

// PadWidth pads s with trailing spaces to the given terminal-cell width,
// measuring wide (CJK) runes as two cells so padded columns stay aligned.
func PadWidth(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// FirstLine returns the first non-empty line of s with surrounding
// whitespace trimmed, or "" if s has none.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
