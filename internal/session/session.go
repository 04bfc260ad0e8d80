// Package session implements the Session Manager (spec §4.2 data model,
// §4.4, component C5): sessions, their participant set, and the three
// per-session resource registries (terminals, editors, extensions).
//
// Per spec §5 "Locking discipline", each Session owns a single lock guarding
// its participants and all three registries; terminal/editor/extension
// values never take independent locks.
package session

import (
	"sync"
	"time"

	"github.com/mcp-collab/collabd/internal/editor"
	"github.com/mcp-collab/collabd/internal/extension"
	"github.com/mcp-collab/collabd/internal/terminal"
)

// State is a Session's lifecycle state.
type State string

// State values.
const (
	StateActive State = "active"
	StatePaused State = "paused"
	StateEnded  State = "ended"
)

// Session is the record described in spec §3.
type Session struct {
	mu sync.Mutex

	SessionID   string
	CreatedBy   string
	WorkspaceID string
	Name        string
	CreatedAt   time.Time

	lastActivity time.Time
	participants []string // insertion order; creator first
	memberOf     map[string]struct{}
	state        State

	terminals  map[string]*terminal.Terminal
	editors    map[string]*editor.Editor
	editorByPath map[string]string // filePath -> editorID, for idempotent registerEditor
	extensions map[string]*extension.ExtensionState
}

func newSession(sessionID, createdBy, workspaceID, name string) *Session {
	now := time.Now()
	return &Session{
		SessionID:    sessionID,
		CreatedBy:    createdBy,
		WorkspaceID:  workspaceID,
		Name:         name,
		CreatedAt:    now,
		lastActivity: now,
		participants: []string{createdBy},
		memberOf:     map[string]struct{}{createdBy: {}},
		state:        StateActive,
		terminals:    make(map[string]*terminal.Terminal),
		editors:      make(map[string]*editor.Editor),
		editorByPath: make(map[string]string),
		extensions:   make(map[string]*extension.ExtensionState),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActivity returns the session's last-activity timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// touch refreshes lastActivity; caller must hold s.mu.
func (s *Session) touch() { s.lastActivity = time.Now() }

// HasParticipant reports whether clientID is a current participant.
func (s *Session) HasParticipant(clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.memberOf[clientID]
	return ok
}

// Participants returns a snapshot of the participant set in insertion order.
func (s *Session) Participants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.participants))
	copy(out, s.participants)
	return out
}

// ParticipantCount returns the number of current participants.
func (s *Session) ParticipantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// addParticipant appends clientID if not already present; caller must hold
// s.mu.
func (s *Session) addParticipant(clientID string) {
	if _, ok := s.memberOf[clientID]; ok {
		return
	}
	s.memberOf[clientID] = struct{}{}
	s.participants = append(s.participants, clientID)
}

// removeParticipant drops clientID; caller must hold s.mu. Reports whether
// the session is now empty (spec §3 "removing the last participant removes
// the session atomically").
func (s *Session) removeParticipant(clientID string) (empty bool) {
	if _, ok := s.memberOf[clientID]; !ok {
		return len(s.participants) == 0
	}
	delete(s.memberOf, clientID)
	filtered := s.participants[:0]
	for _, id := range s.participants {
		if id != clientID {
			filtered = append(filtered, id)
		}
	}
	s.participants = filtered
	return len(s.participants) == 0
}
