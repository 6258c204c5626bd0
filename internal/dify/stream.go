// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dify

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

// STREAMING: Robust SSE parsing with error handling

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxChunkSize is the maximum allowed size for a single SSE data line (64KB)
const MaxChunkSize = 64 * 1024

// doneToken is the literal terminal payload ending a stream.
const doneToken = "[DONE]"

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadData reads the next data payload from the stream, skipping comments,
// blank separators, and other SSE framing. Returns io.EOF when the stream
// ends.
func (s *SSEReader) ReadData() ([]byte, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(line)) == 0 {
				return nil, io.EOF
			}
			if err != io.EOF {
				return nil, err
			}
		}

		line = bytes.TrimRight(line, "\r\n")

		if len(line) > MaxChunkSize {
			return nil, fmt.Errorf("SSE line too large: %d bytes", len(line))
		}

		if !bytes.HasPrefix(line, []byte("data:")) {
			// Ignore other fields (event:, id:, retry:, comments starting
			// with :) and blank separators.
			if err == io.EOF {
				return nil, io.EOF
			}
			continue
		}

		data := bytes.TrimSpace(line[5:])
		if len(data) == 0 {
			continue
		}
		return data, nil
	}
}

// =============================================================================
// MESSAGE ASSEMBLER
// =============================================================================

// assembler tracks message-id boundaries within one turn.
//
// Each answer frame carries an increment of text. Frames belonging to a
// single message id accumulate into one buffer; when the id changes
// mid-stream the previous buffer is flushed (reset) before the new message
// starts, so two messages never concatenate.
type assembler struct {
	messageID   string
	accumulated string
}

// push feeds one message frame and returns the text to emit.
func (a *assembler) push(id, answer string) string {
	if id != a.messageID {
		// New message boundary: flush the previous buffer.
		a.messageID = id
		a.accumulated = ""
	}

	a.accumulated += answer
	return answer
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream issues a streaming chat request and returns a channel of
// normalized events.
//
// The channel is closed when the stream terminates: after EventCompleted or
// EventFailed, or silently on context cancellation (a cancelled turn emits
// no terminal event). The producer goroutine owns the HTTP response body
// and closes it on every path.
func (c *Client) ChatStream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	req.ResponseMode = "streaming"
	if req.Inputs == nil {
		req.Inputs = map[string]interface{}{}
	}
	if req.User == "" {
		req.User = c.user
	}

	events := make(chan StreamEvent, 64)

	go func() {
		defer close(events)

		resp, err := c.sendStreamRequest(ctx, req)
		if err != nil {
			c.emit(ctx, events, StreamEvent{Kind: EventFailed, Err: err})
			return
		}
		defer resp.Body.Close()

		c.processStream(ctx, resp.Body, events)
	}()

	return events, nil
}

// sendStreamRequest sends the streaming HTTP request and returns the response.
func (c *Client) sendStreamRequest(ctx context.Context, req *ChatRequest) (*http.Response, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat-messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("Connection", "keep-alive")

	c.logRequest(httpReq)
	// PERFORMANCE: Use shared streaming client with connection pooling
	// (lifetime controlled via context, no overall timeout)
	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	return resp, nil
}

// processStream reads and decodes the SSE stream into normalized events.
func (c *Client) processStream(ctx context.Context, body io.Reader, events chan<- StreamEvent) {
	reader := NewSSEReader(body)
	asm := &assembler{}

	// The first conversation_id seen on the wire wins; later frames that
	// carry a different value are ignored.
	conversationID := ""

	for {
		select {
		case <-ctx.Done():
			// Cancelled: stop promptly, no terminal event.
			return
		default:
		}

		data, err := reader.ReadData()
		if err != nil {
			if err == io.EOF {
				// Stream ended without an explicit terminal frame; treat
				// as complete so buffered text is not lost.
				c.emit(ctx, events, StreamEvent{Kind: EventCompleted, ConversationID: conversationID})
				return
			}
			c.emit(ctx, events, StreamEvent{Kind: EventFailed, Err: fmt.Errorf("read error: %w", err)})
			return
		}

		if bytes.Equal(data, []byte(doneToken)) {
			c.emit(ctx, events, StreamEvent{Kind: EventCompleted, ConversationID: conversationID})
			return
		}

		var frame sseFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// Skip malformed frames, not fatal
			log.Printf("Warning: skipping malformed SSE frame: %v", err)
			continue
		}

		if conversationID == "" && frame.ConversationID != "" {
			conversationID = frame.ConversationID
		}

		switch frame.Event {
		case "message", "agent_message":
			if delta := asm.push(frame.ID, frame.Answer); delta != "" {
				if !c.emit(ctx, events, StreamEvent{Kind: EventTextDelta, Text: delta}) {
					return
				}
			}

		case "message_end":
			for i := range frame.Files {
				f := frame.Files[i]
				if !c.emit(ctx, events, StreamEvent{Kind: EventFileRef, File: &f}) {
					return
				}
			}
			c.emit(ctx, events, StreamEvent{Kind: EventCompleted, ConversationID: conversationID})
			return

		case "message_file":
			f := RemoteFile{Name: frame.Message, URL: frame.URL, Kind: frame.Type}
			if f.Name == "" {
				f.Name = "attachment"
			}
			if !c.emit(ctx, events, StreamEvent{Kind: EventFileRef, File: &f}) {
				return
			}

		case "error":
			reason := frame.Message
			if reason == "" {
				reason = "remote error"
			}
			c.emit(ctx, events, StreamEvent{Kind: EventFailed, Err: &APIError{Code: frame.Event, Message: reason}})
			return

		default:
			// ping and other keepalive events are ignored
		}
	}
}

// emit delivers an event unless the context is already cancelled.
// Returns false when the consumer is gone.
func (c *Client) emit(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
