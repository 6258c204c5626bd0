// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains the rendering logic: the main view, transcript
// rendering with markdown for finished answers, and the fixed chrome
// (header, input area, status bar).
package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/travelmind-tui/internal/history"
)

// chromeHeight is the fixed vertical space used by the header (1),
// input area (3, bordered), and status bar (1).
const chromeHeight = 5

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the complete chat interface.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.renderHeader()
	input := m.renderInput()
	status := m.renderStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		input,
		status,
	)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("TravelMind")
	subtitle := m.theme.HeaderSubtitle.Render(" · travel planning assistant")
	line := title + subtitle
	if m.streaming {
		line += "  " + m.spin.View()
	}
	return m.theme.Header.Width(m.width).Render(line)
}

func (m Model) renderInput() string {
	var pending string
	if n := len(m.pendingAttachments); n > 0 {
		names := make([]string, n)
		for i, att := range m.pendingAttachments {
			names[i] = att.Name
		}
		pending = m.theme.Attachment.Render(" [" + strings.Join(names, ", ") + "]")
	}
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View() + pending)
}

func (m Model) renderStatusBar() string {
	if m.statusMsg != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.theme.StatusActive.Render(m.statusMsg))
	}

	hints := []string{
		m.theme.StatusKey.Render("enter") + m.theme.StatusDesc.Render(" send"),
		m.theme.StatusKey.Render("esc") + m.theme.StatusDesc.Render(" cancel"),
		m.theme.StatusKey.Render("ctrl+n") + m.theme.StatusDesc.Render(" new"),
		m.theme.StatusKey.Render("ctrl+c") + m.theme.StatusDesc.Render(" quit"),
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(hints, "  "))
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// refreshViewport re-renders the transcript into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
}

func (m Model) renderMessages() string {
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderMessage(msg displayMessage) string {
	switch msg.role {
	case roleUser:
		out := m.theme.UserLabel.Render("You") + "\n" +
			m.theme.UserBubble.Width(m.width-4).Render(msg.content)
		if len(msg.attachments) > 0 {
			out += "\n" + m.theme.Attachment.Render("  📎 "+strings.Join(msg.attachments, ", "))
		}
		return out

	case roleAssistant:
		label := m.theme.AssistantLabel.Render("TravelMind")
		body := msg.content
		if msg.streaming {
			if body == "" {
				body = m.theme.SystemNotice.Render("thinking...")
			}
		} else {
			body = m.renderMarkdown(body)
		}
		out := label + "\n" + m.theme.AssistantText.Render(body)
		for _, name := range msg.attachments {
			out += "\n" + m.theme.Attachment.Render("  📎 "+name)
		}
		return out

	case roleWarning:
		return m.theme.WarningNotice.Render("⚠ " + msg.content)

	case roleError:
		return m.theme.ErrorNotice.Render(msg.content)

	default:
		return m.theme.SystemNotice.Render(msg.content)
	}
}

// renderMarkdown renders a finished answer with glamour. Falls back to
// the raw text when rendering fails or before the first resize.
func (m Model) renderMarkdown(text string) string {
	if text == "" || m.width < 10 {
		return text
	}

	style := "dark"
	if !m.theme.IsDark {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(m.width-4),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// fromHistoryMessage converts a stored message for display when a
// session is resumed.
func fromHistoryMessage(msg history.Message) displayMessage {
	dm := displayMessage{content: msg.Content}
	if msg.Role == "user" {
		dm.role = roleUser
	} else {
		dm.role = roleAssistant
	}
	for _, fi := range msg.FileInfo {
		dm.attachments = append(dm.attachments, fi.Name)
	}
	dm.attachments = append(dm.attachments, msg.Images...)
	return dm
}
