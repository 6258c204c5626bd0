// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements streaming optimization for smooth, flicker-free
// rendering. The StreamingBuffer batches paced increments so the viewport
// re-renders at a capped frame rate instead of once per increment.
package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches text increments for efficient rendering.
//
// Increments arrive from the network goroutine while rendering happens in
// the main Bubble Tea loop, so all operations are mutex-protected. Flushes
// happen on StreamTickMsg, giving a steady frame rate regardless of how
// fast increments arrive.
type StreamingBuffer struct {
	mu     sync.Mutex
	buffer strings.Builder
	count  int
}

// NewStreamingBuffer creates an empty streaming buffer.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{}
}

// Write adds an increment to the buffer. Safe from any goroutine.
func (sb *StreamingBuffer) Write(text string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(text)
	sb.count++
}

// Flush returns and clears the accumulated content. The boolean is false
// when there was nothing buffered.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.buffer.Len() == 0 {
		return "", false
	}
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.count = 0
	return content, true
}

// Reset clears the buffer without flushing. Used when a stream is
// cancelled or a new message starts.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.Reset()
	sb.count = 0
}

// Pending returns the number of unflushed increments.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.count
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// frameInterval caps viewport re-renders at roughly 30fps during streaming.
const frameInterval = 33 * time.Millisecond

// streamTickCmd schedules the next buffered flush.
func streamTickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
