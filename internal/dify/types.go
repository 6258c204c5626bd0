// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dify

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatRequest represents a request to the chat-messages endpoint.
type ChatRequest struct {
	Inputs map[string]interface{} `json:"inputs"`
	Query  string                 `json:"query"`
	// ResponseMode is "streaming" or "blocking".
	ResponseMode string        `json:"response_mode"`
	User         string        `json:"user"`
	Files        []FilePayload `json:"files,omitempty"`
	// ConversationID correlates multi-turn context upstream. Sent even when
	// empty: the server allocates one on the first turn.
	ConversationID string `json:"conversation_id"`
}

// FilePayload references an uploaded file inside a chat request.
type FilePayload struct {
	Type           string `json:"type"` // "image" or "file"
	TransferMethod string `json:"transfer_method"`
	UploadFileID   string `json:"upload_file_id"`
}

// Attachment is a local file queued for upload with a chat turn.
type Attachment struct {
	Path string // local filesystem path, never persisted
	Name string // display name
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse represents a blocking-mode response from chat-messages.
type ChatResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// RemoteFile describes a file the assistant attached to its answer.
type RemoteFile struct {
	Name string `json:"filename"`
	URL  string `json:"url"`
	Kind string `json:"type"` // "image" or "file"
}

// uploadResponse is the body returned by the file upload endpoint.
type uploadResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// apiErrorResponse represents an error response from the API.
type apiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventKind discriminates normalized stream events.
type EventKind int

const (
	// EventTextDelta carries an incremental slice of the answer text.
	EventTextDelta EventKind = iota
	// EventFileRef announces a downloadable file attached to the answer.
	EventFileRef
	// EventCompleted marks a successful end of stream.
	EventCompleted
	// EventFailed marks a terminal failure; the turn ends here.
	EventFailed
)

// String returns the event kind name for logging.
func (k EventKind) String() string {
	switch k {
	case EventTextDelta:
		return "text_delta"
	case EventFileRef:
		return "file_ref"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// StreamEvent is the normalized event emitted by the stream consumer.
// Produced by the network lane, consumed exactly once by the display lane,
// never persisted.
type StreamEvent struct {
	Kind EventKind

	// Text is set for EventTextDelta.
	Text string

	// File is set for EventFileRef.
	File *RemoteFile

	// ConversationID is set for EventCompleted: the upstream correlation id
	// for this conversation (first value seen on the wire wins).
	ConversationID string

	// Err is set for EventFailed.
	Err error
}

// sseFrame is the wire shape of one decoded SSE data payload.
type sseFrame struct {
	Event          string       `json:"event"`
	Answer         string       `json:"answer"`
	ConversationID string       `json:"conversation_id"`
	ID             string       `json:"id"`
	Message        string       `json:"message"`
	Files          []RemoteFile `json:"files"`
	// Set for message_file events, which carry the file fields inline.
	URL  string `json:"url"`
	Type string `json:"type"`
}
