// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jeranaias/travelmind-tui/internal/util"
)

// =============================================================================
// SESSION EXPORT
// =============================================================================

// ExportMarkdown exports the session as a Markdown formatted string.
// Includes session metadata, timestamps, and all messages with role labels.
func (s *Session) ExportMarkdown() string {
	var sb strings.Builder
	title := s.Title
	if title == "" {
		title = s.ID
	}
	sb.WriteString("# " + title + "\n\n")
	sb.WriteString("Created: " + s.Timestamp.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range s.Messages {
		role := "**User**"
		if msg.Role == "assistant" {
			role = "**Assistant**"
		}
		sb.WriteString(role + ":\n\n")
		sb.WriteString(msg.Content)
		for _, fi := range msg.FileInfo {
			sb.WriteString("\n\n> attachment: " + fi.Name + " (" + fi.Kind + ")")
		}
		for _, img := range msg.Images {
			sb.WriteString("\n\n> image: " + img)
		}
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// ExportJSON exports the session as a pretty-printed JSON byte array.
func (s *Session) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionList formats sessions for display in a table layout.
func FormatSessionList(sessions []SessionMeta) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString("Sessions:\n")
	sb.WriteString("-----------------------------------------------------\n")
	sb.WriteString(formatPadded("ID", 22) + " " + formatPadded("Updated", 18) + " " + formatPadded("Msgs", 5) + " Title\n")
	sb.WriteString("-----------------------------------------------------\n")

	for _, s := range sessions {
		idStr := s.ID
		if len(idStr) > 22 {
			idStr = idStr[:22]
		}
		updatedStr := s.LastUpdated.Format("2006-01-02 15:04")
		title := util.TruncateWidth(s.Title, 30)

		sb.WriteString(formatPadded(idStr, 22) + " " +
			formatPadded(updatedStr, 18) + " " +
			formatPadded(util.IntToStr(s.MessageCount), 5) + " " +
			title + "\n")
	}
	return sb.String()
}

// formatPadded pads a string to the specified terminal-cell width, so
// columns stay aligned when titles carry wide (CJK) runes.
func formatPadded(s string, width int) string {
	return util.PadWidth(s, width)
}
