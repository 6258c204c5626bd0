// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides chat session persistence for travelmind TUI.
//
// All sessions live in a single JSON array file, most-recently-updated
// first, rewritten wholesale on every mutation. The store self-heals on
// read: a missing or corrupt file is treated as an empty store, while
// write failures are surfaced loudly since they risk data loss.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/travelmind-tui/internal/util"
)

// =============================================================================
// SESSION TYPES
// =============================================================================

// Session represents one persisted conversation.
type Session struct {
	// ID is opaque, time-derived, unique, and immutable once created.
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	LastUpdated time.Time `json:"last_updated"`
	Title       string    `json:"title"`
	Messages    []Message `json:"messages"`
}

// Message represents one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
	// FileInfo records non-image attachments by name and kind only, never
	// by transient local path, so records survive restarts and machine moves.
	FileInfo []FileInfo `json:"file_info,omitempty"`
	// Images records image attachments by display name.
	Images []string `json:"images,omitempty"`
	// RemoteConversationID is the upstream correlation id, kept so a
	// reopened session can continue its multi-turn context.
	RemoteConversationID string `json:"remote_conversation_id,omitempty"`
}

// FileInfo identifies an attachment by name and kind.
type FileInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// SessionMeta contains metadata for listing sessions.
type SessionMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Timestamp    time.Time `json:"timestamp"`
	LastUpdated  time.Time `json:"last_updated"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First user message truncated
}

// =============================================================================
// SESSION STORE
// =============================================================================

// Store handles session persistence in a single JSON array file.
type Store struct {
	// Path is the history file location.
	// Default: ~/.travelmind/history.json
	Path string

	// MaxSessions limits stored sessions; oldest evicted on overflow.
	MaxSessions int

	// Serializes read-modify-write cycles so each mutation fully
	// completes before the next begins.
	mu sync.Mutex

	// Last allocated id timestamp, guarding against clock ties under
	// rapid successive upserts.
	lastIDNano int64
}

// DefaultMaxSessions is the session cap when none is configured.
const DefaultMaxSessions = 50

// NewStore creates a session store at the default location.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(homeDir, ".travelmind", "history.json")
	return NewStoreWithPath(path)
}

// NewStoreWithPath creates a store backed by a custom file path.
func NewStoreWithPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &Store{
		Path:        path,
		MaxSessions: DefaultMaxSessions,
	}, nil
}

// =============================================================================
// UPSERT
// =============================================================================

// Upsert saves a session's messages and returns the session id.
//
// When sessionID matches an existing record, that record's messages are
// replaced and last_updated is bumped; the id and creation time never
// change. Otherwise a new record is prepended with a freshly allocated id
// and the store is trimmed to its cap. Calling with no messages is a
// no-op that returns an empty id.
func (s *Store) Upsert(messages []Message, sessionID string) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	now := time.Now()

	if sessionID != "" {
		for i := range sessions {
			if sessions[i].ID == sessionID {
				sessions[i].Messages = copyMessages(messages)
				sessions[i].LastUpdated = now
				if sessions[i].Title == "" {
					sessions[i].Title = deriveTitle(messages)
				}
				sortByUpdated(sessions)
				if err := s.save(sessions); err != nil {
					return "", err
				}
				return sessionID, nil
			}
		}
	}

	sess := Session{
		ID:          s.nextID(now),
		Timestamp:   now,
		LastUpdated: now,
		Title:       deriveTitle(messages),
		Messages:    copyMessages(messages),
	}

	sessions = append([]Session{sess}, sessions...)

	// Evict oldest past the cap
	limit := s.MaxSessions
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}

	if err := s.save(sessions); err != nil {
		return "", err
	}
	return sess.ID, nil
}

// nextID allocates a time-derived session id that stays unique even when
// successive calls land on the same wall-clock nanosecond.
func (s *Store) nextID(now time.Time) string {
	nano := now.UnixNano()
	if nano <= s.lastIDNano {
		nano = s.lastIDNano + 1
	}
	s.lastIDNano = nano
	return "sess_" + strconv.FormatInt(nano, 10)
}

// deriveTitle creates a title from the first user message, using its
// first non-empty line so multi-line prompts stay readable in listings.
func deriveTitle(messages []Message) string {
	for _, msg := range messages {
		if msg.Role == "user" && msg.Content != "" {
			if title := util.FirstLine(msg.Content); title != "" {
				return util.TruncateRunes(title, 47)
			}
		}
	}
	return "New conversation"
}

// =============================================================================
// LOAD / LIST
// =============================================================================

// Get retrieves a session by id, or ErrSessionNotFound.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.load() {
		if sess.ID == id {
			c := copySession(sess)
			return &c, nil
		}
	}
	return nil, ErrSessionNotFound
}

// List returns all saved sessions, most-recently-updated first.
// Never fails: a missing or corrupt store reads as empty.
func (s *Store) List() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	out := make([]Session, len(sessions))
	for i, sess := range sessions {
		out[i] = copySession(sess)
	}
	return out
}

// ListMeta returns listing metadata for all saved sessions.
func (s *Store) ListMeta() []SessionMeta {
	sessions := s.List()
	metas := make([]SessionMeta, 0, len(sessions))

	for _, sess := range sessions {
		metas = append(metas, metaOf(sess))
	}
	return metas
}

// metaOf builds listing metadata for one session. The preview is the
// first user message, trimmed to fit a list row.
func metaOf(sess Session) SessionMeta {
	preview := ""
	for _, msg := range sess.Messages {
		if msg.Role == "user" {
			preview = util.TruncateRunes(msg.Content, 77)
			break
		}
	}

	return SessionMeta{
		ID:           sess.ID,
		Title:        sess.Title,
		Timestamp:    sess.Timestamp,
		LastUpdated:  sess.LastUpdated,
		MessageCount: len(sess.Messages),
		Preview:      preview,
	}
}

// Search finds sessions whose title or message content matches a query
// string (case-insensitive).
func (s *Store) Search(query string) []SessionMeta {
	if query == "" {
		return s.ListMeta()
	}

	query = strings.ToLower(query)
	sessions := s.List()
	var results []SessionMeta

	for _, sess := range sessions {
		matched := strings.Contains(strings.ToLower(sess.Title), query)
		if !matched {
			for _, msg := range sess.Messages {
				if strings.Contains(strings.ToLower(msg.Content), query) {
					matched = true
					break
				}
			}
		}
		if matched {
			results = append(results, metaOf(sess))
		}
	}
	return results
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a session by id. Idempotent: deleting an absent id is
// not an error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	kept := sessions[:0]
	removed := false
	for _, sess := range sessions {
		if sess.ID == id {
			removed = true
			continue
		}
		kept = append(kept, sess)
	}
	if !removed {
		return nil
	}
	return s.save(kept)
}

// Clear removes all saved sessions.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save([]Session{})
}

// =============================================================================
// FILE I/O
// =============================================================================

// load reads the backing file. Missing or corrupt files read as empty;
// corruption is self-healing since the next save rewrites the whole file.
func (s *Store) load() []Session {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return []Session{}
	}

	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return []Session{}
	}
	return sessions
}

// save rewrites the backing file wholesale.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func (s *Store) save(sessions []Session) error {
	if sessions == nil {
		sessions = []Session{}
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return &SessionError{Message: "failed to encode history: " + err.Error()}
	}
	if err := util.AtomicWriteFile(s.Path, data, 0644); err != nil {
		return &SessionError{Message: "failed to write history: " + err.Error()}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sortByUpdated orders sessions most-recently-updated first.
func sortByUpdated(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastUpdated.After(sessions[j].LastUpdated)
	})
}

// copySession deep-copies a session so callers never alias store state.
func copySession(sess Session) Session {
	c := sess
	c.Messages = copyMessages(sess.Messages)
	return c
}

// copyMessages deep-copies a message slice, including nested attachment
// slices.
func copyMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, msg := range messages {
		c := msg
		if msg.FileInfo != nil {
			c.FileInfo = make([]FileInfo, len(msg.FileInfo))
			copy(c.FileInfo, msg.FileInfo)
		}
		if msg.Images != nil {
			c.Images = make([]string, len(msg.Images))
			copy(c.Images, msg.Images)
		}
		out[i] = c
	}
	return out
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned when a session doesn't exist.
// Use errors.Is(err, ErrSessionNotFound) to check for this error.
var ErrSessionNotFound = &SessionError{Message: "session not found"}

// SessionError represents a session-store error.
// It implements the error interface and can be compared using errors.Is.
type SessionError struct {
	Message string
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing session errors.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
