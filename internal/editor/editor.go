// Package editor defines the SharedEditor record and the pure operations on
// it described in spec §3/§4.4 (component C7). Like internal/terminal,
// Editor carries no lock of its own — mutations run under the owning
// session's lock (spec §5).
package editor

import (
	"path/filepath"
	"strings"
	"time"
)

// State is a SharedEditor's lifecycle state.
type State string

// State values.
const (
	StateActive State = "active"
	StateClosed State = "closed"
)

// DefaultMaxHistorySize bounds the change history when unspecified.
const DefaultMaxHistorySize = 100

// Cursor is one participant's cursor position.
type Cursor struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Selection is one participant's selection range.
type Selection struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

// ChangeEntry is one accepted content update, recorded in history.
type ChangeEntry struct {
	ClientID  string    `json:"clientId"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// Editor is the SharedEditor record (spec §3).
type Editor struct {
	EditorID string
	SessionID string
	FilePath  string
	Language  string
	CreatedBy string

	Content      string
	Version      int
	MaxHistorySize int
	history      []ChangeEntry

	participants map[string]struct{}
	cursors      map[string]Cursor
	selections   map[string]Selection

	State        State
	LastActivity time.Time
}

// New creates an Editor for (sessionID, filePath). language, if empty, is
// inferred from the file extension (spec §4.4 "Language is inferred from
// extension when omitted").
func New(editorID, sessionID, filePath, language, createdBy, content string, maxHistorySize int) *Editor {
	if language == "" {
		language = InferLanguage(filePath)
	}
	if maxHistorySize <= 0 {
		maxHistorySize = DefaultMaxHistorySize
	}
	return &Editor{
		EditorID:       editorID,
		SessionID:      sessionID,
		FilePath:       filePath,
		Language:       language,
		CreatedBy:      createdBy,
		Content:        content,
		Version:        1,
		MaxHistorySize: maxHistorySize,
		participants:   map[string]struct{}{createdBy: {}},
		cursors:        make(map[string]Cursor),
		selections:     make(map[string]Selection),
		State:          StateActive,
		LastActivity:   time.Now(),
	}
}

// languageByExt mirrors the common extension-to-language table; unmatched
// extensions fall back to "plaintext".
var languageByExt = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".rb":   "ruby",
	".rs":   "rust",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".md":   "markdown",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".sh":   "shell",
	".html": "html",
	".css":  "css",
}

// InferLanguage maps a file path's extension to a language tag.
func InferLanguage(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	if lang, ok := languageByExt[ext]; ok {
		return lang
	}
	return "plaintext"
}

// HasParticipant reports whether clientID is a participant.
func (e *Editor) HasParticipant(clientID string) bool {
	_, ok := e.participants[clientID]
	return ok
}

// AddParticipant adds clientID (spec §4.4 "registerEditor ... adds the
// client to its participants" when the record already exists).
func (e *Editor) AddParticipant(clientID string) {
	e.participants[clientID] = struct{}{}
}

// RemoveParticipant removes clientID, reporting whether the set is empty.
func (e *Editor) RemoveParticipant(clientID string) (empty bool) {
	delete(e.participants, clientID)
	delete(e.cursors, clientID)
	delete(e.selections, clientID)
	return len(e.participants) == 0
}

// Participants returns a snapshot of the current participant set.
func (e *Editor) Participants() []string {
	out := make([]string, 0, len(e.participants))
	for id := range e.participants {
		out = append(out, id)
	}
	return out
}

// UpdateContent applies spec §4.4's version-gated accept/reject rule.
// accepted is false for a stale version, in which case the caller should
// echo back CurrentVersion as a silent no-op (spec: "rejected silently to
// the caller as a no-op with the current version echoed").
func (e *Editor) UpdateContent(clientID, content string, version int) (accepted bool, currentVersion int) {
	if version < e.Version {
		return false, e.Version
	}
	e.Content = content
	e.Version++
	e.history = append(e.history, ChangeEntry{ClientID: clientID, Version: e.Version, Timestamp: time.Now()})
	if over := len(e.history) - e.MaxHistorySize; over > 0 {
		e.history = e.history[over:]
	}
	e.LastActivity = time.Now()
	return true, e.Version
}

// UpdateCursor records clientID's cursor; never changes Version (spec §4.4).
func (e *Editor) UpdateCursor(clientID string, c Cursor) {
	e.cursors[clientID] = c
	e.LastActivity = time.Now()
}

// UpdateSelections records clientID's selections; never changes Version.
func (e *Editor) UpdateSelections(clientID string, sel Selection) {
	e.selections[clientID] = sel
	e.LastActivity = time.Now()
}

// History returns a snapshot of the change history.
func (e *Editor) History() []ChangeEntry {
	out := make([]ChangeEntry, len(e.history))
	copy(out, e.history)
	return out
}

// Close marks the editor closed and clears its participant set (spec §4.4
// "closeEditor marks state closed, unmaps filePath, clears participants").
func (e *Editor) Close() {
	e.State = StateClosed
	e.participants = make(map[string]struct{})
	e.LastActivity = time.Now()
}

// IsClosed reports whether the editor has been closed.
func (e *Editor) IsClosed() bool { return e.State == StateClosed }
