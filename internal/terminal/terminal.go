// Package terminal defines the SharedTerminal record and the pure
// operations on it described in spec §3/§4.4 (component C6). Terminal
// values carry no lock of their own: per spec §5 "Locking discipline", every
// mutation here runs under the owning session's lock, held by the caller
// (internal/session.Manager).
package terminal

import "time"

// State is a SharedTerminal's lifecycle state.
type State string

// State values.
const (
	StateActive   State = "active"
	StateInactive State = "inactive"
	StateClosed   State = "closed"
)

// EntryKind distinguishes ring-buffer entries.
type EntryKind string

// EntryKind values.
const (
	EntryInput  EntryKind = "input"
	EntryOutput EntryKind = "output"
)

// BufferEntry is one ring-buffer record (spec §3 "buffer").
type BufferEntry struct {
	Kind      EntryKind `json:"kind"`
	ClientID  string    `json:"clientId,omitempty"`
	Data      string    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Dimensions is a terminal's column/row size.
type Dimensions struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// DefaultBufferMaxSize is the ring buffer capacity when unspecified.
const DefaultBufferMaxSize = 1000

// DefaultBufferLimit is getTerminalBuffer's default entry count.
const DefaultBufferLimit = 100

// Terminal is the SharedTerminal record (spec §3).
type Terminal struct {
	TerminalID   string
	SessionID    string
	CreatedBy    string
	Name         string
	Shell        string
	Cwd          string
	Dimensions   Dimensions
	BufferMaxSize int

	participants map[string]struct{}
	buffer       []BufferEntry

	State        State
	LastActivity time.Time
}

// New creates a Terminal seeded from the session's current participant
// snapshot (spec §4.4 "createTerminal ... seeds participants from the
// session's participants").
func New(terminalID, sessionID, createdBy, name, shell, cwd string, dims Dimensions, bufferMaxSize int, seedParticipants []string) *Terminal {
	if bufferMaxSize <= 0 {
		bufferMaxSize = DefaultBufferMaxSize
	}
	participants := make(map[string]struct{}, len(seedParticipants))
	for _, id := range seedParticipants {
		participants[id] = struct{}{}
	}
	return &Terminal{
		TerminalID:    terminalID,
		SessionID:     sessionID,
		CreatedBy:     createdBy,
		Name:          name,
		Shell:         shell,
		Cwd:           cwd,
		Dimensions:    dims,
		BufferMaxSize: bufferMaxSize,
		participants:  participants,
		State:         StateActive,
		LastActivity:  time.Now(),
	}
}

// HasParticipant reports whether clientID is a participant.
func (t *Terminal) HasParticipant(clientID string) bool {
	_, ok := t.participants[clientID]
	return ok
}

// AddParticipant adds clientID to the terminal's participant set.
func (t *Terminal) AddParticipant(clientID string) {
	t.participants[clientID] = struct{}{}
}

// RemoveParticipant removes clientID, reporting whether the set is now
// empty (caller closes the terminal when it is, per the common contract).
func (t *Terminal) RemoveParticipant(clientID string) (empty bool) {
	delete(t.participants, clientID)
	return len(t.participants) == 0
}

// Participants returns a snapshot of the current participant set.
func (t *Terminal) Participants() []string {
	out := make([]string, 0, len(t.participants))
	for id := range t.participants {
		out = append(out, id)
	}
	return out
}

func (t *Terminal) appendEntry(e BufferEntry) {
	t.buffer = append(t.buffer, e)
	if over := len(t.buffer) - t.BufferMaxSize; over > 0 {
		t.buffer = t.buffer[over:]
	}
	t.LastActivity = e.Timestamp
}

// AppendOutput records one output chunk (spec §4.4 "processOutput").
func (t *Terminal) AppendOutput(data string) BufferEntry {
	e := BufferEntry{Kind: EntryOutput, Data: data, Timestamp: time.Now()}
	t.appendEntry(e)
	return e
}

// AppendInput records one input chunk from clientID (spec §4.4
// "processInput").
func (t *Terminal) AppendInput(clientID, data string) BufferEntry {
	e := BufferEntry{Kind: EntryInput, ClientID: clientID, Data: data, Timestamp: time.Now()}
	t.appendEntry(e)
	return e
}

// Resize updates the terminal's dimensions (spec §4.4 "resizeTerminal").
func (t *Terminal) Resize(cols, rows int) {
	t.Dimensions = Dimensions{Cols: cols, Rows: rows}
	t.LastActivity = time.Now()
}

// RecentBuffer returns the last limit entries (spec §4.4
// "getTerminalBuffer"); limit <= 0 uses DefaultBufferLimit.
func (t *Terminal) RecentBuffer(limit int) []BufferEntry {
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	if limit >= len(t.buffer) {
		out := make([]BufferEntry, len(t.buffer))
		copy(out, t.buffer)
		return out
	}
	start := len(t.buffer) - limit
	out := make([]BufferEntry, limit)
	copy(out, t.buffer[start:])
	return out
}

// Close transitions the terminal to the closed state (spec §4.4 "common
// contract").
func (t *Terminal) Close() {
	t.State = StateClosed
	t.LastActivity = time.Now()
}

// IsClosed reports whether the terminal has been closed.
func (t *Terminal) IsClosed() bool { return t.State == StateClosed }
