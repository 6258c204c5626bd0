// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file bridges turn events into the Bubble Tea loop. Turn callbacks
// fire on the network goroutine; Program.Send is the only safe way to get
// them into Update.
package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/travelmind-tui/internal/dify"
)

// =============================================================================
// PROGRAM SINK
// =============================================================================

// ProgramSink delivers turn events to a running Bubble Tea program.
//
// The program reference is set after tea.NewProgram and guarded by a mutex:
// events can arrive while the program pointer is still nil during startup,
// in which case they are dropped rather than crash.
type ProgramSink struct {
	mu sync.Mutex
	p  *tea.Program

	// Terminal payloads, read by the submit command after the turn ends.
	completedText string
	failedReason  string
	failedPartial string
}

// NewProgramSink creates a sink with no program attached yet.
func NewProgramSink() *ProgramSink {
	return &ProgramSink{}
}

// SetProgram attaches the running program. Call before the first submit.
func (s *ProgramSink) SetProgram(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = p
}

func (s *ProgramSink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.p
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Delta delivers one paced text increment.
func (s *ProgramSink) Delta(text string) {
	s.send(StreamDeltaMsg{Text: text})
}

// FileReceived announces an assistant file attachment.
func (s *ProgramSink) FileReceived(f dify.RemoteFile) {
	s.send(StreamFileMsg{File: f})
}

// Warning surfaces a non-fatal problem.
func (s *ProgramSink) Warning(msg string) {
	s.send(StreamWarningMsg{Text: msg})
}

// Completed records the full answer for the submit command to collect.
func (s *ProgramSink) Completed(fullText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completedText = fullText
}

// Failed records the failure for the submit command to collect.
func (s *ProgramSink) Failed(reason, partial string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedReason = reason
	s.failedPartial = partial
}

// collect returns and clears the recorded terminal payloads.
func (s *ProgramSink) collect() (completed, reason, partial string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	completed, reason, partial = s.completedText, s.failedReason, s.failedPartial
	s.completedText, s.failedReason, s.failedPartial = "", "", ""
	return
}
