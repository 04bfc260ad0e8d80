package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcp-collab/collabd/internal/editor"
	"github.com/mcp-collab/collabd/internal/extension"
	"github.com/mcp-collab/collabd/internal/httpstatus"
	"github.com/mcp-collab/collabd/internal/protoerr"
	"github.com/mcp-collab/collabd/internal/terminal"
)

// Config bounds the resource managers' defaults (spec §6 "Configuration").
type Config struct {
	MaxParticipants         int
	TerminalBufferMaxSize   int
	EditorMaxHistorySize    int
	ExtensionMaxHistorySize int
}

// Manager is the Session Manager (component C5): it owns the global
// sessions map and, through it, every per-session resource registry.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
	metrics  *httpstatus.Metrics
}

// NewManager builds a Manager.
func NewManager(cfg Config) *Manager {
	return &Manager{sessions: make(map[string]*Session), cfg: cfg}
}

// SetMetrics attaches the Prometheus instruments this Manager reports to.
// A nil metrics (the default) disables reporting.
func (m *Manager) SetMetrics(metrics *httpstatus.Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = metrics
}

// reportSessionCountLocked refreshes the active-sessions gauge. Caller must
// hold m.mu.
func (m *Manager) reportSessionCountLocked() {
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
}

// Get returns the live Session for sessionID, if any.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ListByClient returns every session clientID currently participates in.
func (m *Manager) ListByClient(clientID string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Session
	for _, s := range m.sessions {
		if s.HasParticipant(clientID) {
			out = append(out, s)
		}
	}
	return out
}

// CreateSession implements `session_create` (spec §3/§4.4). An empty
// sessionID is server-generated; a caller-asserted ID that's already in use
// yields SESSION_ALREADY_EXISTS.
func (m *Manager) CreateSession(sessionID, createdBy, workspaceID, name string) (*Session, *protoerr.Error) {
	if createdBy == "" {
		return nil, protoerr.New(protoerr.MissingRequiredField, "", "createdBy is required")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[sessionID]; exists {
		return nil, protoerr.New(protoerr.SessionAlreadyExists, sessionID, fmt.Sprintf("session %q already exists", sessionID))
	}
	s := newSession(sessionID, createdBy, workspaceID, name)
	m.sessions[sessionID] = s
	m.reportSessionCountLocked()
	return s, nil
}

// Join implements `session_join`. It returns SESSION_NOT_FOUND for a missing
// or ended session and SESSION_FULL once MaxParticipants (when > 0) is
// reached; there is no invite policy, so SESSION_JOIN_REJECTED is never
// returned.
func (m *Manager) Join(sessionID, clientID string) (*Session, *protoerr.Error) {
	s, ok := m.Get(sessionID)
	if !ok {
		return nil, protoerr.New(protoerr.SessionNotFound, sessionID, "no such session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEnded {
		return nil, protoerr.New(protoerr.SessionNotFound, sessionID, "session has ended")
	}
	if _, already := s.memberOf[clientID]; !already {
		if m.cfg.MaxParticipants > 0 && len(s.participants) >= m.cfg.MaxParticipants {
			return nil, protoerr.New(protoerr.SessionFull, sessionID, "session has reached its participant limit")
		}
	}
	s.addParticipant(clientID)
	s.touch()
	return s, nil
}

// Leave implements `session_leave`. Removing the last participant deletes
// the session (spec §3 invariant).
func (m *Manager) Leave(sessionID, clientID string) (ended bool, err *protoerr.Error) {
	s, ok := m.Get(sessionID)
	if !ok {
		return false, protoerr.New(protoerr.SessionNotFound, sessionID, "no such session")
	}

	s.mu.Lock()
	empty := s.removeParticipant(clientID)
	if empty {
		s.state = StateEnded
	}
	s.touch()
	s.mu.Unlock()

	if empty {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.reportSessionCountLocked()
		m.mu.Unlock()
	}
	return empty, nil
}

// End implements `session_end`: only a participant may end a session, and
// doing so removes it unconditionally.
func (m *Manager) End(sessionID, clientID string) *protoerr.Error {
	s, ok := m.Get(sessionID)
	if !ok {
		return protoerr.New(protoerr.SessionNotFound, sessionID, "no such session")
	}
	s.mu.Lock()
	if !mustBeParticipantLocked(s, clientID) {
		s.mu.Unlock()
		return protoerr.New(protoerr.PermissionDenied, sessionID, "only a participant may end this session")
	}
	s.state = StateEnded
	s.touch()
	s.mu.Unlock()

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.reportSessionCountLocked()
	m.mu.Unlock()
	return nil
}

// Pause implements `session_pause`.
func (m *Manager) Pause(sessionID, clientID string) *protoerr.Error {
	return m.setState(sessionID, clientID, StatePaused)
}

// Resume implements `session_resume`.
func (m *Manager) Resume(sessionID, clientID string) *protoerr.Error {
	return m.setState(sessionID, clientID, StateActive)
}

func (m *Manager) setState(sessionID, clientID string, state State) *protoerr.Error {
	s, ok := m.Get(sessionID)
	if !ok {
		return protoerr.New(protoerr.SessionNotFound, sessionID, "no such session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !mustBeParticipantLocked(s, clientID) {
		return protoerr.New(protoerr.PermissionDenied, sessionID, "only a participant may change session state")
	}
	s.state = state
	s.touch()
	return nil
}

func mustBeParticipantLocked(s *Session, clientID string) bool {
	_, ok := s.memberOf[clientID]
	return ok
}

// EvictInactive ends every session whose lastActivity predates the cutoff,
// returning the evicted session IDs (spec §3 "destroyed ... on inactivity
// eviction").
func (m *Manager) EvictInactive(maxIdle time.Duration) []string {
	cutoff := time.Now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()

	var evicted []string
	for id, s := range m.sessions {
		s.mu.Lock()
		stale := s.lastActivity.Before(cutoff)
		if stale {
			s.state = StateEnded
		}
		s.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		m.reportSessionCountLocked()
	}
	return evicted
}
