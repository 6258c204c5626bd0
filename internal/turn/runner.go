// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn orchestrates one chat turn end to end: request submission,
// event draining, typewriter pacing, and session persistence.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/travelmind-tui/internal/dify"
	"github.com/jeranaias/travelmind-tui/internal/history"
	"github.com/jeranaias/travelmind-tui/internal/typewriter"
)

// =============================================================================
// STATES AND ERRORS
// =============================================================================

// State tracks the lifecycle of a turn.
type State int

const (
	// StateIdle means no turn is in flight.
	StateIdle State = iota
	// StateSending means the request is being prepared and connected.
	StateSending
	// StateStreaming means events are arriving from the remote endpoint.
	StateStreaming
	// StateCompleted is the terminal state of a successful turn.
	StateCompleted
	// StateFailed is the terminal state of a failed turn.
	StateFailed
	// StateCancelled is the terminal state of a user-cancelled turn.
	StateCancelled
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

var (
	// ErrBusy is returned when a turn is submitted while one is in flight.
	// The default policy is reject, not queue.
	ErrBusy = errors.New("a turn is already in flight")

	// ErrEmptySubmission is returned for a submission with no text and no
	// attachments. Rejected at the boundary, not treated as a failure.
	ErrEmptySubmission = errors.New("nothing to send")
)

// =============================================================================
// SINK
// =============================================================================

// Sink receives display-facing events from a turn. Implementations must be
// cheap and non-blocking: all heavy work stays on the network lane.
type Sink interface {
	// Delta delivers one paced text increment.
	Delta(text string)
	// FileReceived announces a file the assistant attached to its answer.
	FileReceived(file dify.RemoteFile)
	// Warning surfaces a non-fatal problem (a failed attachment upload).
	Warning(msg string)
	// Completed delivers the full accumulated answer on success.
	Completed(fullText string)
	// Failed delivers the failure reason and any partial text collected.
	Failed(reason string, partial string)
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes turns against one conversation. Only one turn may be in
// flight at a time; Submit rejects while busy. The Runner is the single
// writer to the session store, so each upsert fully completes before the
// next begins.
type Runner struct {
	client *dify.Client
	store  *history.Store
	sched  *typewriter.Scheduler

	// streamEnabled selects streaming or blocking requests.
	streamEnabled bool

	mu             sync.Mutex
	state          State
	cancel         context.CancelFunc
	sessionID      string
	conversationID string
	transcript     []history.Message
}

// NewRunner creates a turn runner.
func NewRunner(client *dify.Client, store *history.Store, sched *typewriter.Scheduler, streamEnabled bool) *Runner {
	return &Runner{
		client:        client,
		store:         store,
		sched:         sched,
		streamEnabled: streamEnabled,
	}
}

// State returns the current turn state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Busy reports whether a turn is in flight.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateSending || r.state == StateStreaming
}

// SessionID returns the store session id for this conversation, empty
// before the first persisted turn.
func (r *Runner) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// Transcript returns a copy of the committed conversation so far.
func (r *Runner) Transcript() []history.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]history.Message, len(r.transcript))
	copy(out, r.transcript)
	return out
}

// Reset starts a fresh conversation: transcript, session id, and remote
// correlation id are all cleared. No effect on a turn in flight.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateSending || r.state == StateStreaming {
		return
	}
	r.state = StateIdle
	r.sessionID = ""
	r.conversationID = ""
	r.transcript = nil
}

// ResumeSession loads a stored session and continues its conversation.
func (r *Runner) ResumeSession(id string) error {
	sess, err := r.store.Get(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateSending || r.state == StateStreaming {
		return ErrBusy
	}
	r.state = StateIdle
	r.sessionID = sess.ID
	r.transcript = sess.Messages
	r.conversationID = ""
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].RemoteConversationID != "" {
			r.conversationID = sess.Messages[i].RemoteConversationID
			break
		}
	}
	return nil
}

// Cancel aborts the in-flight turn, if any. The connection is closed and
// nothing is appended to history for that turn.
func (r *Runner) Cancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit runs one turn synchronously and returns its terminal state.
//
// Callers run it off the display lane (a bubbletea command goroutine or
// similar); sink callbacks deliver display events as they happen.
// A busy runner rejects with ErrBusy; an empty submission rejects with
// ErrEmptySubmission.
func (r *Runner) Submit(ctx context.Context, text string, attachments []dify.Attachment, sink Sink) (State, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(attachments) == 0 {
		return StateIdle, ErrEmptySubmission
	}

	r.mu.Lock()
	if r.state == StateSending || r.state == StateStreaming {
		r.mu.Unlock()
		return r.state, ErrBusy
	}
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.state = StateSending
	r.cancel = cancel
	conversationID := r.conversationID
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
	}()

	// Upload attachments first; the chat payload references their opaque
	// file ids. A failed upload degrades to text-only with a warning,
	// unless the attachment was the only content.
	files, userMsg, err := r.prepareTurn(turnCtx, text, attachments, sink)
	if err != nil {
		return r.finishFailed(sink, err.Error(), "", nil)
	}

	req := &dify.ChatRequest{
		Query:          text,
		ConversationID: conversationID,
		Files:          files,
	}

	if r.streamEnabled {
		return r.runStreaming(turnCtx, req, userMsg, sink)
	}
	return r.runBlocking(turnCtx, req, userMsg, sink)
}

// prepareTurn uploads attachments and builds the user message.
func (r *Runner) prepareTurn(ctx context.Context, text string, attachments []dify.Attachment, sink Sink) ([]dify.FilePayload, history.Message, error) {
	userMsg := history.Message{Role: "user", Content: text}

	var files []dify.FilePayload
	failed := 0
	for _, att := range attachments {
		name := att.Name
		if name == "" {
			name = att.Path
		}

		fileID, err := r.client.UploadFile(ctx, att.Path)
		if err != nil {
			failed++
			log.Printf("Warning: attachment upload failed: %v", err)
			sink.Warning(fmt.Sprintf("could not upload %s; sending without it", name))
			continue
		}

		kind := dify.KindForPath(att.Path)
		files = append(files, dify.FilePayload{
			Type:           kind,
			TransferMethod: "local_file",
			UploadFileID:   fileID,
		})
		if kind == "image" {
			userMsg.Images = append(userMsg.Images, name)
		} else {
			userMsg.FileInfo = append(userMsg.FileInfo, history.FileInfo{Name: name, Kind: kind})
		}
	}

	// An attachment-only submission whose every upload failed has nothing
	// left to send: hard failure.
	if text == "" && len(attachments) > 0 && failed == len(attachments) {
		return nil, userMsg, errors.New("all attachments failed to upload")
	}

	return files, userMsg, nil
}

// =============================================================================
// STREAMING TURN
// =============================================================================

// runStreaming drains the event channel through the typewriter into the sink.
func (r *Runner) runStreaming(ctx context.Context, req *dify.ChatRequest, userMsg history.Message, sink Sink) (State, error) {
	events, err := r.client.ChatStream(ctx, req)
	if err != nil {
		return r.finishFailed(sink, err.Error(), "", &userMsg)
	}

	var accumulated strings.Builder
	var remoteFiles []dify.RemoteFile
	first := true

	for ev := range events {
		if first {
			first = false
			r.setState(StateStreaming)
		}

		switch ev.Kind {
		case dify.EventTextDelta:
			if err := r.sched.Type(ctx, ev.Text, sink.Delta); err != nil {
				// Cancelled mid-increment. Keep draining below.
				accumulated.WriteString(ev.Text)
				continue
			}
			accumulated.WriteString(ev.Text)

		case dify.EventFileRef:
			remoteFiles = append(remoteFiles, *ev.File)
			sink.FileReceived(*ev.File)

		case dify.EventCompleted:
			if ev.ConversationID != "" {
				r.adoptConversationID(ev.ConversationID)
			}
			return r.finishCompleted(sink, accumulated.String(), remoteFiles, userMsg)

		case dify.EventFailed:
			return r.finishFailed(sink, ev.Err.Error(), accumulated.String(), &userMsg)
		}

		if ctx.Err() != nil {
			// Cancelled: stop consuming promptly; the producer notices the
			// same context and closes the channel.
			break
		}
	}

	// Channel closed without a terminal event: the turn was cancelled.
	// Nothing is appended to history.
	r.setState(StateCancelled)
	return StateCancelled, nil
}

// =============================================================================
// BLOCKING TURN
// =============================================================================

// runBlocking performs a single request and paces the whole answer.
func (r *Runner) runBlocking(ctx context.Context, req *dify.ChatRequest, userMsg history.Message, sink Sink) (State, error) {
	resp, err := r.client.Chat(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			r.setState(StateCancelled)
			return StateCancelled, nil
		}
		return r.finishFailed(sink, err.Error(), "", &userMsg)
	}

	r.setState(StateStreaming)
	if resp.ConversationID != "" {
		r.adoptConversationID(resp.ConversationID)
	}

	if err := r.sched.Type(ctx, resp.Answer, sink.Delta); err != nil {
		r.setState(StateCancelled)
		return StateCancelled, nil
	}

	return r.finishCompleted(sink, resp.Answer, nil, userMsg)
}

// =============================================================================
// TERMINAL TRANSITIONS
// =============================================================================

// finishCompleted persists the finished turn and reports success.
func (r *Runner) finishCompleted(sink Sink, fullText string, remoteFiles []dify.RemoteFile, userMsg history.Message) (State, error) {
	assistant := history.Message{
		Role:    "assistant",
		Content: fullText,
	}
	for _, f := range remoteFiles {
		if f.Kind == "image" {
			assistant.Images = append(assistant.Images, f.Name)
		} else {
			assistant.FileInfo = append(assistant.FileInfo, history.FileInfo{Name: f.Name, Kind: f.Kind})
		}
	}

	if err := r.commit(userMsg, assistant); err != nil {
		// The answer arrived but could not be saved. Data loss risk is
		// real: fail loudly rather than pretend the turn succeeded.
		return r.finishFailed(sink, fmt.Sprintf("failed to save session: %v", err), fullText, nil)
	}

	r.setState(StateCompleted)
	sink.Completed(fullText)
	return StateCompleted, nil
}

// finishFailed persists the partial turn with an explicit failure marker
// and reports the failure. The partial text is preserved, never silently
// dropped, but is clearly not a successful assistant turn.
func (r *Runner) finishFailed(sink Sink, reason, partial string, userMsg *history.Message) (State, error) {
	if userMsg != nil {
		assistant := history.Message{
			Role:    "assistant",
			Content: FailureMarker(reason, partial),
		}
		if err := r.commit(*userMsg, assistant); err != nil {
			log.Printf("Warning: could not persist failed turn: %v", err)
		}
	}

	r.setState(StateFailed)
	sink.Failed(reason, partial)
	return StateFailed, nil
}

// FailureMarker formats the persisted content of a failed assistant turn:
// the failure indicator prefixed to whatever partial text was collected.
func FailureMarker(reason, partial string) string {
	marker := "[error: " + reason + "]"
	if partial == "" {
		return marker
	}
	return marker + "\n\n" + partial
}

// commit appends the turn to the transcript and upserts it into the store.
func (r *Runner) commit(userMsg, assistant history.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	assistant.RemoteConversationID = r.conversationID
	transcript := append(r.transcript, userMsg, assistant)

	id, err := r.store.Upsert(transcript, r.sessionID)
	if err != nil {
		return err
	}
	r.transcript = transcript
	r.sessionID = id
	return nil
}

// adoptConversationID captures the upstream correlation id, first value wins.
func (r *Runner) adoptConversationID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conversationID == "" {
		r.conversationID = id
	}
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}
