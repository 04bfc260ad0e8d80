// Package extension defines the ExtensionState record and operations from
// spec §3/§4.4 (component C8). As with terminal and editor, State carries no
// lock of its own — mutations run under the owning session's lock.
package extension

import "time"

// State is an ExtensionState's lifecycle state.
type State string

// State values.
const (
	StateActive State = "active"
	StateClosed State = "closed"
)

// HistoryKind distinguishes history entries.
type HistoryKind string

// HistoryKind values.
const (
	HistoryUpdate HistoryKind = "update"
	HistoryReset  HistoryKind = "reset"
)

// HistoryEntry is one recorded state change.
type HistoryEntry struct {
	Kind      HistoryKind `json:"kind"`
	ClientID  string      `json:"clientId"`
	Version   int         `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
}

// DefaultMaxHistorySize bounds the history when unspecified.
const DefaultMaxHistorySize = 20

// ExtensionState is the record identified by (sessionId, extensionId)
// (spec §3).
type ExtensionState struct {
	ExtensionID  string
	SessionID    string
	RegisteredBy string

	Data           map[string]any
	Version        int
	MaxHistorySize int
	history        []HistoryEntry

	clients map[string]struct{}

	State        State
	LastActivity time.Time
}

// New creates an ExtensionState (spec §3 "first register creates the
// record").
func New(extensionID, sessionID, registeredBy string, initial map[string]any, maxHistorySize int) *ExtensionState {
	if maxHistorySize <= 0 {
		maxHistorySize = DefaultMaxHistorySize
	}
	data := make(map[string]any, len(initial))
	for k, v := range initial {
		data[k] = v
	}
	return &ExtensionState{
		ExtensionID:    extensionID,
		SessionID:      sessionID,
		RegisteredBy:   registeredBy,
		Data:           data,
		MaxHistorySize: maxHistorySize,
		clients:        map[string]struct{}{registeredBy: {}},
		State:          StateActive,
		LastActivity:   time.Now(),
	}
}

// HasClient reports whether clientID holds this extension open.
func (s *ExtensionState) HasClient(clientID string) bool {
	_, ok := s.clients[clientID]
	return ok
}

// AddClient adds clientID (spec §3 "later registrations add clients").
func (s *ExtensionState) AddClient(clientID string) {
	s.clients[clientID] = struct{}{}
}

// RemoveClient removes clientID, reporting whether the set is now empty
// ("unregister of the last client removes the record").
func (s *ExtensionState) RemoveClient(clientID string) (empty bool) {
	delete(s.clients, clientID)
	return len(s.clients) == 0
}

// Clients returns a snapshot of the current client set.
func (s *ExtensionState) Clients() []string {
	out := make([]string, 0, len(s.clients))
	for id := range s.clients {
		out = append(out, id)
	}
	return out
}

func (s *ExtensionState) record(kind HistoryKind, clientID string) {
	s.history = append(s.history, HistoryEntry{Kind: kind, ClientID: clientID, Version: s.Version, Timestamp: time.Now()})
	if over := len(s.history) - s.MaxHistorySize; over > 0 {
		s.history = s.history[over:]
	}
	s.LastActivity = time.Now()
}

// Update shallow-merges patch into Data and bumps Version, subject to the
// same version-gating rule as editor.Editor.UpdateContent: a caller version
// behind the server's is rejected silently, echoing the current version.
func (s *ExtensionState) Update(clientID string, patch map[string]any, version int) (accepted bool, currentVersion int) {
	if version < s.Version {
		return false, s.Version
	}
	for k, v := range patch {
		s.Data[k] = v
	}
	s.Version++
	s.record(HistoryUpdate, clientID)
	return true, s.Version
}

// Reset replaces Data wholesale (spec §4.4 "resetExtensionState replaces
// state wholesale and appends a history entry of kind reset").
func (s *ExtensionState) Reset(clientID string, data map[string]any) int {
	fresh := make(map[string]any, len(data))
	for k, v := range data {
		fresh[k] = v
	}
	s.Data = fresh
	s.Version++
	s.record(HistoryReset, clientID)
	return s.Version
}

// History returns a snapshot of the recorded history.
func (s *ExtensionState) History() []HistoryEntry {
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// Close marks the extension state closed.
func (s *ExtensionState) Close() {
	s.State = StateClosed
	s.LastActivity = time.Now()
}

// IsClosed reports whether the extension state has been closed.
func (s *ExtensionState) IsClosed() bool { return s.State == StateClosed }
