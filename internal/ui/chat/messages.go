// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea message types used by the chat
// interface. Streaming messages are delivered from the network goroutine
// via Program.Send; everything else originates inside the Update loop.
package chat

import (
	"time"

	"github.com/jeranaias/travelmind-tui/internal/dify"
	"github.com/jeranaias/travelmind-tui/internal/turn"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamDeltaMsg delivers one paced text increment from the active turn.
type StreamDeltaMsg struct {
	Text string
}

// StreamFileMsg announces a file the assistant attached to its answer.
type StreamFileMsg struct {
	File dify.RemoteFile
}

// StreamWarningMsg surfaces a non-fatal problem during a turn, such as a
// failed attachment upload.
type StreamWarningMsg struct {
	Text string
}

// StreamTickMsg drives batched flushes of buffered deltas into the
// viewport at a capped frame rate.
type StreamTickMsg struct {
	Time time.Time
}

// TurnFinishedMsg reports the terminal state of a submitted turn.
type TurnFinishedMsg struct {
	State    turn.State
	FullText string // set on completion
	Reason   string // set on failure
	Partial  string // text collected before a failure
	Err      error  // submission errors (busy, empty)
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// StatusMsg shows a transient line in the status bar.
type StatusMsg struct {
	Text string
}

// clearStatusMsg removes an expired status line.
type clearStatusMsg struct{}
