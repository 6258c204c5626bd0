// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/travelmind-tui/internal/dify"
	"github.com/jeranaias/travelmind-tui/internal/turn"
	"github.com/jeranaias/travelmind-tui/internal/ui/styles"
)

// =============================================================================
// DISPLAY MESSAGES
// =============================================================================

type displayRole int

const (
	roleUser displayRole = iota
	roleAssistant
	roleSystem
	roleWarning
	roleError
)

// displayMessage is one rendered entry in the transcript viewport.
type displayMessage struct {
	role        displayRole
	content     string
	attachments []string
	streaming   bool
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme  *styles.Theme
	keyMap KeyMap

	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	runner *turn.Runner
	sink   *ProgramSink

	// Streaming display state
	streamBuf *StreamingBuffer
	streaming bool
	ticking   bool

	messages           []displayMessage
	pendingAttachments []dify.Attachment

	statusMsg string
}

// New creates the chat model.
func New(runner *turn.Runner, sink *ProgramSink, themeName string) Model {
	theme := styles.NewTheme(themeName)

	input := textinput.New()
	input.Placeholder = "Ask about your trip, or /help for commands"
	input.Prompt = theme.InputPrompt.Render("> ")
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := Model{
		theme:     theme,
		keyMap:    DefaultKeyMap(),
		input:     input,
		spin:      sp,
		runner:    runner,
		sink:      sink,
		streamBuf: NewStreamingBuffer(),
	}
	m.messages = append(m.messages, displayMessage{
		role:    roleSystem,
		content: "Welcome to TravelMind. Type a question and press enter.",
	})
	for _, msg := range runner.Transcript() {
		m.messages = append(m.messages, fromHistoryMessage(msg))
	}
	return m
}

// Init starts the spinner tick loop.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case StreamDeltaMsg:
		m.streamBuf.Write(msg.Text)
		if !m.ticking {
			m.ticking = true
			return m, streamTickCmd()
		}
		return m, nil

	case StreamTickMsg:
		m = m.flushStream()
		if m.streaming {
			return m, streamTickCmd()
		}
		m.ticking = false
		return m, nil

	case StreamFileMsg:
		if i := m.streamingIndex(); i >= 0 {
			m.messages[i].attachments = append(m.messages[i].attachments, msg.File.Name)
			m.refreshViewport()
		}
		return m, nil

	case StreamWarningMsg:
		m.messages = m.insertBeforeStreaming(displayMessage{role: roleWarning, content: msg.Text})
		m.refreshViewport()
		return m, nil

	case TurnFinishedMsg:
		return m.handleTurnFinished(msg)

	case StatusMsg:
		m.statusMsg = msg.Text
		return m, tea.Tick(4*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{} })

	case clearStatusMsg:
		m.statusMsg = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	// header + input + status are fixed-height; the viewport gets the rest
	vpHeight := m.height - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.input.Width = m.width - 6
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.runner.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.streaming {
			m.runner.Cancel()
			return m, nil
		}
		m.input.SetValue("")
		return m, nil

	case key.Matches(msg, m.keyMap.NewChat):
		if m.streaming {
			return m, nil
		}
		return m.startNewChat()

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.handleSubmit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// SUBMIT
// =============================================================================

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())

	if strings.HasPrefix(text, "/") {
		return m.handleCommand(text)
	}

	if text == "" && len(m.pendingAttachments) == 0 {
		return m, nil
	}
	if m.runner.Busy() {
		m.statusMsg = "still answering; press esc to cancel"
		return m, nil
	}

	user := displayMessage{role: roleUser, content: text}
	for _, att := range m.pendingAttachments {
		user.attachments = append(user.attachments, att.Name)
	}
	m.messages = append(m.messages, user)
	m.messages = append(m.messages, displayMessage{role: roleAssistant, streaming: true})

	atts := m.pendingAttachments
	m.pendingAttachments = nil
	m.input.SetValue("")
	m.streaming = true
	m.streamBuf.Reset()
	m.refreshViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(m.spin.Tick, submitCmd(m.runner, m.sink, text, atts))
}

// submitCmd runs the turn off the display lane and reports its outcome.
func submitCmd(runner *turn.Runner, sink *ProgramSink, text string, atts []dify.Attachment) tea.Cmd {
	return func() tea.Msg {
		state, err := runner.Submit(context.Background(), text, atts, sink)
		completed, reason, partial := sink.collect()
		return TurnFinishedMsg{
			State:    state,
			FullText: completed,
			Reason:   reason,
			Partial:  partial,
			Err:      err,
		}
	}
}

func (m Model) handleTurnFinished(msg TurnFinishedMsg) (tea.Model, tea.Cmd) {
	// Flush whatever the frame cap was still holding back.
	m = m.flushStream()
	m.streaming = false
	m.ticking = false

	i := m.streamingIndex()
	switch {
	case msg.Err != nil:
		if i >= 0 {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
		}
		m.statusMsg = msg.Err.Error()

	case msg.State == turn.StateCompleted:
		if i >= 0 {
			m.messages[i].content = msg.FullText
			m.messages[i].streaming = false
		}

	case msg.State == turn.StateFailed:
		if i >= 0 {
			m.messages[i].streaming = false
			if msg.Partial != "" {
				m.messages[i].content = msg.Partial
			} else {
				m.messages = append(m.messages[:i], m.messages[i+1:]...)
			}
		}
		m.messages = append(m.messages, displayMessage{role: roleError, content: "Request failed: " + msg.Reason})

	case msg.State == turn.StateCancelled:
		if i >= 0 {
			m.messages[i].streaming = false
			if m.messages[i].content == "" {
				m.messages = append(m.messages[:i], m.messages[i+1:]...)
			}
		}
		m.messages = append(m.messages, displayMessage{role: roleSystem, content: "Cancelled."})
	}

	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (m Model) handleCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	cmd, args := fields[0], fields[1:]
	m.input.SetValue("")

	switch cmd {
	case "/quit", "/exit":
		m.runner.Cancel()
		return m, tea.Quit

	case "/new":
		if m.streaming {
			m.statusMsg = "finish or cancel the current answer first"
			return m, nil
		}
		return m.startNewChat()

	case "/attach":
		if len(args) == 0 {
			m.statusMsg = "usage: /attach <path>"
			return m, nil
		}
		path := strings.Join(args, " ")
		m.pendingAttachments = append(m.pendingAttachments, dify.Attachment{
			Path: path,
			Name: filepath.Base(path),
		})
		m.statusMsg = fmt.Sprintf("attached %s (%d pending)", filepath.Base(path), len(m.pendingAttachments))
		return m, nil

	case "/help":
		m.messages = append(m.messages, displayMessage{role: roleSystem, content: helpText})
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	default:
		m.statusMsg = "unknown command: " + cmd
		return m, nil
	}
}

func (m Model) startNewChat() (tea.Model, tea.Cmd) {
	m.runner.Reset()
	m.messages = []displayMessage{{
		role:    roleSystem,
		content: "Started a new conversation.",
	}}
	m.pendingAttachments = nil
	m.streamBuf.Reset()
	m.refreshViewport()
	return m, nil
}

const helpText = `Commands:
  /new            start a new conversation
  /attach <path>  attach a file or image to the next message
  /help           show this help
  /quit           exit

Keys: enter send, esc cancel, ctrl+n new chat, pgup/pgdn scroll, ctrl+c quit`

// =============================================================================
// HELPERS
// =============================================================================

// flushStream moves buffered deltas into the streaming message and
// refreshes the viewport.
func (m Model) flushStream() Model {
	content, ok := m.streamBuf.Flush()
	if !ok {
		return m
	}
	if i := m.streamingIndex(); i >= 0 {
		m.messages[i].content += content
	}
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m
}

// streamingIndex returns the index of the in-progress assistant message,
// or -1 when none exists.
func (m Model) streamingIndex() int {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].streaming {
			return i
		}
	}
	return -1
}

// insertBeforeStreaming places a message just above the in-progress
// answer so warnings read in submission order.
func (m Model) insertBeforeStreaming(msg displayMessage) []displayMessage {
	i := m.streamingIndex()
	if i < 0 {
		return append(m.messages, msg)
	}
	out := make([]displayMessage, 0, len(m.messages)+1)
	out = append(out, m.messages[:i]...)
	out = append(out, msg)
	out = append(out, m.messages[i:]...)
	return out
}
