package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcp-collab/collabd/internal/editor"
	"github.com/mcp-collab/collabd/internal/extension"
	"github.com/mcp-collab/collabd/internal/protoerr"
	"github.com/mcp-collab/collabd/internal/terminal"
)

// requireParticipant enforces spec §4.4's "Mutations require the caller to
// be a participant" common-contract rule. Caller must hold s.mu.
func requireParticipant(s *Session, clientID string) *protoerr.Error {
	if _, ok := s.memberOf[clientID]; !ok {
		return protoerr.New(protoerr.PermissionDenied, s.SessionID, "caller is not a participant of this session")
	}
	return nil
}

func (m *Manager) sessionFor(sessionID string) (*Session, *protoerr.Error) {
	s, ok := m.Get(sessionID)
	if !ok {
		return nil, protoerr.New(protoerr.SessionNotFound, sessionID, "no such session")
	}
	return s, nil
}

// CreateTerminal implements `createTerminal` (spec §4.4).
func (m *Manager) CreateTerminal(sessionID, terminalID, createdBy, name, shell, cwd string, dims terminal.Dimensions) (*terminal.Terminal, *protoerr.Error) {
	s, err := m.sessionFor(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := requireParticipant(s, createdBy); err != nil {
		return nil, err
	}
	if terminalID == "" {
		terminalID = uuid.NewString()
	}
	t := terminal.New(terminalID, sessionID, createdBy, name, shell, cwd, dims, m.cfg.TerminalBufferMaxSize, s.participants)
	s.terminals[terminalID] = t
	s.touch()
	return t, nil
}

func (m *Manager) terminalFor(s *Session, terminalID string) (*terminal.Terminal, *protoerr.Error) {
	t, ok := s.terminals[terminalID]
	if !ok {
		return nil, protoerr.New(protoerr.ResourceNotFound, terminalID, "no such terminal")
	}
	return t, nil
}

// ProcessTerminalOutput implements `processOutput`, returning the full
// participant list to notify (spec §4.4).
func (m *Manager) ProcessTerminalOutput(sessionID, terminalID, data string) (terminal.BufferEntry, []string, *protoerr.Error) {
	s, err := m.sessionFor(sessionID)
	if err != nil {
		return terminal.BufferEntry{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := m.terminalFor(s, terminalID)
	if err != nil {
		return terminal.BufferEntry{}, nil, err
	}
	if t.IsClosed() {
		return terminal.BufferEntry{}, nil, protoerr.New(protoerr.ResourceConflict, terminalID, "terminal is closed")
	}
	entry := t.AppendOutput(data)
	s.touch()
	return entry, t.Participants(), nil
}

// ProcessTerminalInput implements `processInput`, returning the recipient
// list with the origin excluded (spec §4.4 "fans out to other participants").
func (m *Manager) ProcessTerminalInput(sessionID, terminalID, clientID, data string) (terminal.BufferEntry, []string, *protoerr.Error) {
	s, err := m.sessionFor(sessionID)
	if err != nil {
		return terminal.BufferEntry{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := m.terminalFor(s, terminalID)
	if err != nil {
		return terminal.BufferEntry{}, nil, err
	}
	if !t.HasParticipant(clientID) {
		return terminal.BufferEntry{}, nil, protoerr.New(protoerr.PermissionDenied, terminalID, "caller is not a participant of this terminal")
	}
	if t.IsClosed() {
		return terminal.BufferEntry{}, nil, protoerr.New(protoerr.ResourceConflict, terminalID, "terminal is closed")
	}
	entry := t.AppendInput(clientID, data)
	s.touch()
	return entry, excluding(t.Participants(), clientID), nil
}

// ResizeTerminal implements `resizeTerminal`.
func (m *Manager) ResizeTerminal(sessionID, terminalID, clientID string, cols, rows int) ([]string, *protoerr.Error) {
	s, err := m.sessionFor(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := m.terminalFor(s, terminalID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(s, clientID); err != nil {
		return nil, err
	}
	if t.IsClosed() {
		return nil, protoerr.New(protoerr.ResourceConflict, terminalID, "terminal is closed")
	}
	t.Resize(cols, rows)
	s.touch()
	return t.Participants(), nil
}

// GetTerminalBuffer implements `getTerminalBuffer`.
func (m *Manager) GetTerminalBuffer(sessionID, terminalID string, limit int) ([]terminal.BufferEntry, *protoerr.Error) {
	s, err := m.sessionFor(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := m.terminalFor(s, terminalID)
	if err != nil {
		return nil, err
	}
	return t.RecentBuffer(limit), nil
}

// CloseTerminal closes terminalID if clientID is its last participant, or
// simply removes clientID otherwise (shared common-contract behavior).
func (m *Manager) CloseTerminal(sessionID, terminalID, clientID string) (closed bool, participants []string, err *protoerr.Error) {
	s, serr := m.sessionFor(sessionID)
	if serr != nil {
		return false, nil, serr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, terr := m.terminalFor(s, terminalID)
	if terr != nil {
		return false, nil, terr
	}
	remaining := t.Participants()
	if t.RemoveParticipant(clientID) {
		t.Close()
		s.touch()
		return true, remaining, nil
	}
	s.touch()
	return false, t.Participants(), nil
}

// RegisterEditor implements `registerEditor`: idempotent on
// (sessionId, filePath) (spec §4.4).
func (m *Manager) RegisterEditor(sessionID, editorID, clientID, filePath, language, content string) (*editor.Editor, bool, *protoerr.Error) {
	s, err := m.sessionFor(sessionID)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := requireParticipant(s, clientID); err != nil {
		return nil, false, err
	}

	if existingID, ok := s.editorByPath[filePath]; ok {
		ed := s.editors[existingID]
		ed.AddParticipant(clientID)
		s.touch()
		return ed, true, nil
	}

	if editorID == "" {
		editorID = uuid.NewString()
	}
	ed := editor.New(editorID, sessionID, filePath, language, clientID, content, m.cfg.EditorMaxHistorySize)
	s.editors[editorID] = ed
	s.editorByPath[filePath] = editorID
	s.touch()
	return ed, false, nil
}

func (m *Manager) editorFor(s *Session, editorID string) (*editor.Editor, *protoerr.Error) {
	ed, ok := s.editors[editorID]
	if !ok {
		return nil, protoerr.New(protoerr.ResourceNotFound, editorID, "no such editor")
	}
	return ed, nil
}

// UpdateEditorContent implements `updateContent`.
func (m *Manager) UpdateEditorContent(sessionID, editorID, clientID, content string, version int) (accepted bool, currentVersion int, participants []string, err *protoerr.Error) {
	s, serr := m.sessionFor(sessionID)
	if serr != nil {
		return false, 0, nil, serr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ed, eerr := m.editorFor(s, editorID)
	if eerr != nil {
		return false, 0, nil, eerr
	}
	if err := requireParticipant(s, clientID); err != nil {
		return false, 0, nil, err
	}
	if ed.IsClosed() {
		return false, ed.Version, nil, protoerr.New(protoerr.ResourceConflict, editorID, "editor is closed")
	}
	accepted, cur := ed.UpdateContent(clientID, content, version)
	s.touch()
	return accepted, cur, excluding(ed.Participants(), clientID), nil
}

// UpdateEditorCursor implements `updateCursor`.
func (m *Manager) UpdateEditorCursor(sessionID, editorID, clientID string, c editor.Cursor) ([]string, *protoerr.Error) {
	s, serr := m.sessionFor(sessionID)
	if serr != nil {
		return nil, serr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ed, eerr := m.editorFor(s, editorID)
	if eerr != nil {
		return nil, eerr
	}
	if err := requireParticipant(s, clientID); err != nil {
		return nil, err
	}
	ed.UpdateCursor(clientID, c)
	s.touch()
	return excluding(ed.Participants(), clientID), nil
}

// UpdateEditorSelections implements `updateSelections`.
func (m *Manager) UpdateEditorSelections(sessionID, editorID, clientID string, sel editor.Selection) ([]string, *protoerr.Error) {
	s, serr := m.sessionFor(sessionID)
	if serr != nil {
		return nil, serr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ed, eerr := m.editorFor(s, editorID)
	if eerr != nil {
		return nil, eerr
	}
	if err := requireParticipant(s, clientID); err != nil {
		return nil, err
	}
	ed.UpdateSelections(clientID, sel)
	s.touch()
	return excluding(ed.Participants(), clientID), nil
}

// CloseEditor implements `closeEditor`.
func (m *Manager) CloseEditor(sessionID, editorID, clientID string) ([]string, *protoerr.Error) {
	s, serr := m.sessionFor(sessionID)
	if serr != nil {
		return nil, serr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ed, eerr := m.editorFor(s, editorID)
	if eerr != nil {
		return nil, eerr
	}
	if err := requireParticipant(s, clientID); err != nil {
		return nil, err
	}
	participants := ed.Participants()
	delete(s.editorByPath, ed.FilePath)
	ed.Close()
	s.touch()
	return participants, nil
}

// RegisterExtension implements extension `register`.
func (m *Manager) RegisterExtension(sessionID, extensionID, clientID string, initial map[string]any) (*extension.ExtensionState, *protoerr.Error) {
	s, err := m.sessionFor(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := requireParticipant(s, clientID); err != nil {
		return nil, err
	}

	if existing, ok := s.extensions[extensionID]; ok {
		existing.AddClient(clientID)
		s.touch()
		return existing, nil
	}
	st := extension.New(extensionID, sessionID, clientID, initial, m.cfg.ExtensionMaxHistorySize)
	s.extensions[extensionID] = st
	s.touch()
	return st, nil
}

func (m *Manager) extensionFor(s *Session, extensionID string) (*extension.ExtensionState, *protoerr.Error) {
	st, ok := s.extensions[extensionID]
	if !ok {
		return nil, protoerr.New(protoerr.ResourceNotFound, extensionID, "no such extension")
	}
	return st, nil
}

// UpdateExtension implements extension `update`. As with
// UpdateEditorContent, a stale version is rejected without mutating state
// and the current version is echoed back to the caller.
func (m *Manager) UpdateExtension(sessionID, extensionID, clientID string, patch map[string]any, version int) (accepted bool, currentVersion int, participants []string, err *protoerr.Error) {
	s, serr := m.sessionFor(sessionID)
	if serr != nil {
		return false, 0, nil, serr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, eerr := m.extensionFor(s, extensionID)
	if eerr != nil {
		return false, 0, nil, eerr
	}
	if err := requireParticipant(s, clientID); err != nil {
		return false, 0, nil, err
	}
	if !st.HasClient(clientID) {
		return false, 0, nil, protoerr.New(protoerr.PermissionDenied, extensionID, "caller has not registered this extension")
	}
	accepted, cur := st.Update(clientID, patch, version)
	s.touch()
	return accepted, cur, excluding(st.Clients(), clientID), nil
}

// ResetExtension implements `resetExtensionState`.
func (m *Manager) ResetExtension(sessionID, extensionID, clientID string, data map[string]any) (int, []string, *protoerr.Error) {
	s, serr := m.sessionFor(sessionID)
	if serr != nil {
		return 0, nil, serr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, eerr := m.extensionFor(s, extensionID)
	if eerr != nil {
		return 0, nil, eerr
	}
	if err := requireParticipant(s, clientID); err != nil {
		return 0, nil, err
	}
	v := st.Reset(clientID, data)
	s.touch()
	return v, excluding(st.Clients(), clientID), nil
}

// UnregisterExtension implements `unregister`.
func (m *Manager) UnregisterExtension(sessionID, extensionID, clientID string) ([]string, *protoerr.Error) {
	s, serr := m.sessionFor(sessionID)
	if serr != nil {
		return nil, serr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, eerr := m.extensionFor(s, extensionID)
	if eerr != nil {
		return nil, eerr
	}
	remaining := st.Clients()
	if st.RemoveClient(clientID) {
		delete(s.extensions, extensionID)
	}
	s.touch()
	return remaining, nil
}

// CleanupInactive sweeps every session's resource registries, closing
// active resources past their inactivity timeout and deleting closed
// resources past maxAge (spec §4.4 "Cleanup sweep").
func (m *Manager) CleanupInactive(terminalIdle, editorIdle, extensionIdle, maxAge time.Duration) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	now := time.Now()
	for _, s := range sessions {
		s.mu.Lock()
		for id, t := range s.terminals {
			if t.State == terminal.StateActive && now.Sub(t.LastActivity) > terminalIdle {
				t.Close()
			}
			if t.IsClosed() && now.Sub(t.LastActivity) > maxAge {
				delete(s.terminals, id)
			}
		}
		for id, ed := range s.editors {
			if !ed.IsClosed() && now.Sub(ed.LastActivity) > editorIdle {
				delete(s.editorByPath, ed.FilePath)
				ed.Close()
			}
			if ed.IsClosed() && now.Sub(ed.LastActivity) > maxAge {
				delete(s.editors, id)
			}
		}
		for id, st := range s.extensions {
			if !st.IsClosed() && now.Sub(st.LastActivity) > extensionIdle {
				st.Close()
			}
			if st.IsClosed() && now.Sub(st.LastActivity) > maxAge {
				delete(s.extensions, id)
			}
		}
		s.mu.Unlock()
	}
}

func excluding(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
