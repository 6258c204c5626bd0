// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/travelmind-tui/internal/dify"
	"github.com/jeranaias/travelmind-tui/internal/history"
	"github.com/jeranaias/travelmind-tui/internal/turn"
	"github.com/jeranaias/travelmind-tui/internal/typewriter"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	store, err := history.NewStoreWithPath(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatal(err)
	}
	client := dify.NewClient("test-key")
	runner := turn.NewRunner(client, store, typewriter.New(0), true)
	m := New(runner, NewProgramSink(), "dark")

	sized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return sized.(Model)
}

func TestNewModelShowsWelcome(t *testing.T) {
	m := newTestModel(t)
	if len(m.messages) != 1 || m.messages[0].role != roleSystem {
		t.Fatalf("fresh model messages = %+v, want one system welcome", m.messages)
	}
	if !strings.Contains(m.View(), "TravelMind") {
		t.Error("view missing application header")
	}
}

func TestNewModelShowsResumedTranscript(t *testing.T) {
	store, err := history.NewStoreWithPath(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatal(err)
	}
	id, err := store.Upsert([]history.Message{
		{Role: "user", Content: "ferry times to Naoshima?"},
		{Role: "assistant", Content: "Hourly from Uno port."},
	}, "")
	if err != nil {
		t.Fatal(err)
	}

	runner := turn.NewRunner(dify.NewClient("test-key"), store, typewriter.New(0), true)
	if err := runner.ResumeSession(id); err != nil {
		t.Fatalf("ResumeSession failed: %v", err)
	}

	m := New(runner, NewProgramSink(), "dark")
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = sized.(Model)

	// Welcome notice plus the two restored messages.
	if len(m.messages) != 3 {
		t.Fatalf("resumed model messages = %d, want 3", len(m.messages))
	}
	if m.messages[1].role != roleUser || m.messages[2].role != roleAssistant {
		t.Errorf("restored roles = %v / %v", m.messages[1].role, m.messages[2].role)
	}
	if !strings.Contains(m.View(), "Naoshima") {
		t.Error("view missing restored user message")
	}
}

func TestStreamDeltaAndTickUpdateTranscript(t *testing.T) {
	m := newTestModel(t)
	m.messages = append(m.messages, displayMessage{role: roleAssistant, streaming: true})
	m.streaming = true

	updated, cmd := m.Update(StreamDeltaMsg{Text: "Par"})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("first delta must schedule a flush tick")
	}
	updated, _ = m.Update(StreamDeltaMsg{Text: "is"})
	m = updated.(Model)

	updated, _ = m.Update(StreamTickMsg{})
	m = updated.(Model)

	i := m.streamingIndex()
	if i < 0 || m.messages[i].content != "Paris" {
		t.Fatalf("streaming message content = %q, want \"Paris\"", m.messages[i].content)
	}
}

func TestTurnFinishedCompleted(t *testing.T) {
	m := newTestModel(t)
	m.messages = append(m.messages, displayMessage{role: roleAssistant, streaming: true})
	m.streaming = true

	updated, _ := m.Update(TurnFinishedMsg{State: turn.StateCompleted, FullText: "Visit Kyoto in autumn."})
	m = updated.(Model)

	last := m.messages[len(m.messages)-1]
	if last.streaming || last.content != "Visit Kyoto in autumn." {
		t.Errorf("final message = %+v, want completed answer", last)
	}
	if m.streaming {
		t.Error("model must leave streaming state")
	}
}

func TestTurnFinishedFailedKeepsPartial(t *testing.T) {
	m := newTestModel(t)
	m.messages = append(m.messages, displayMessage{role: roleAssistant, content: "half", streaming: true})
	m.streaming = true

	updated, _ := m.Update(TurnFinishedMsg{State: turn.StateFailed, Reason: "boom", Partial: "half"})
	m = updated.(Model)

	var sawPartial, sawError bool
	for _, msg := range m.messages {
		if msg.role == roleAssistant && msg.content == "half" && !msg.streaming {
			sawPartial = true
		}
		if msg.role == roleError && strings.Contains(msg.content, "boom") {
			sawError = true
		}
	}
	if !sawPartial || !sawError {
		t.Errorf("failed turn must keep partial text and show the error, messages = %+v", m.messages)
	}
}

func TestTurnFinishedCancelledDropsEmptyAnswer(t *testing.T) {
	m := newTestModel(t)
	m.messages = append(m.messages, displayMessage{role: roleAssistant, streaming: true})
	m.streaming = true

	updated, _ := m.Update(TurnFinishedMsg{State: turn.StateCancelled})
	m = updated.(Model)

	for _, msg := range m.messages {
		if msg.role == roleAssistant && msg.content == "" {
			t.Error("empty cancelled answer must be removed")
		}
	}
	last := m.messages[len(m.messages)-1]
	if last.role != roleSystem || !strings.Contains(last.content, "Cancelled") {
		t.Errorf("last message = %+v, want cancellation notice", last)
	}
}

func TestAttachCommandQueuesFile(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("/attach /tmp/beach.jpg")

	updated, _ := m.handleSubmit()
	m = updated.(Model)

	if len(m.pendingAttachments) != 1 {
		t.Fatalf("pending attachments = %d, want 1", len(m.pendingAttachments))
	}
	if m.pendingAttachments[0].Name != "beach.jpg" {
		t.Errorf("attachment name = %q, want base name", m.pendingAttachments[0].Name)
	}
	if m.input.Value() != "" {
		t.Error("input must be cleared after a command")
	}
}

func TestUnknownCommand(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("/teleport")

	updated, _ := m.handleSubmit()
	m = updated.(Model)

	if !strings.Contains(m.statusMsg, "unknown command") {
		t.Errorf("statusMsg = %q, want unknown command notice", m.statusMsg)
	}
}

func TestWarningInsertedBeforeStreamingMessage(t *testing.T) {
	m := newTestModel(t)
	m.messages = append(m.messages,
		displayMessage{role: roleUser, content: "q"},
		displayMessage{role: roleAssistant, streaming: true},
	)

	updated, _ := m.Update(StreamWarningMsg{Text: "could not upload notes.pdf"})
	m = updated.(Model)

	i := m.streamingIndex()
	if i < 1 || m.messages[i-1].role != roleWarning {
		t.Errorf("warning must sit directly above the in-progress answer, messages = %+v", m.messages)
	}
}

func TestFromHistoryMessage(t *testing.T) {
	dm := fromHistoryMessage(history.Message{
		Role:     "user",
		Content:  "see attached",
		FileInfo: []history.FileInfo{{Name: "itinerary.pdf", Kind: "file"}},
		Images:   []string{"beach.png"},
	})
	if dm.role != roleUser {
		t.Errorf("role = %v, want user", dm.role)
	}
	if len(dm.attachments) != 2 {
		t.Errorf("attachments = %v, want file then image", dm.attachments)
	}
}
