package connection

import (
	"fmt"
	"sync"
	"time"

	"github.com/mcp-collab/collabd/internal/httpstatus"
	"github.com/mcp-collab/collabd/internal/protoerr"
)

// Manager tracks every live Client. It is the sole owner of the clientId
// uniqueness invariant (spec §3 "a clientId appears in exactly one live
// Client record at any instant").
type Manager struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	maxClients int
	metrics    *httpstatus.Metrics
}

// SetMetrics attaches the Prometheus instruments this Manager reports to.
// A nil metrics (the default) disables reporting.
func (m *Manager) SetMetrics(metrics *httpstatus.Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = metrics
}

// reportClientCountLocked refreshes the connected-clients gauge. Caller must
// hold m.mu.
func (m *Manager) reportClientCountLocked() {
	if m.metrics != nil {
		m.metrics.ConnectedClients.Set(float64(len(m.clients)))
	}
}

// NewManager creates a Manager admitting up to maxClients concurrently.
func NewManager(maxClients int) *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		maxClients: maxClients,
	}
}

// Connect applies the admission policies of spec §4.2 "Connections" and
// registers a new, unauthenticated Client.
func (m *Manager) Connect(clientID, workspaceID string, capabilities []string, metadata map[string]string, ip, ua string) (*Client, *protoerr.Error) {
	if clientID == "" {
		return nil, protoerr.New(protoerr.MissingRequiredField, "", "clientId is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.clients) >= m.maxClients {
		return nil, protoerr.New(protoerr.MaxClientsReached, "", fmt.Sprintf("server at capacity (%d clients)", m.maxClients))
	}
	if _, exists := m.clients[clientID]; exists {
		return nil, protoerr.New(protoerr.ClientIDInUse, "", fmt.Sprintf("clientId %q is already connected", clientID))
	}

	caps := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		caps[c] = struct{}{}
	}

	now := time.Now()
	client := &Client{
		ClientID:       clientID,
		WorkspaceID:    workspaceID,
		Capabilities:   caps,
		Metadata:       metadata,
		IPAddress:      ip,
		UserAgent:      ua,
		ConnectionTime: now,
		LastActivity:   now,
		Permissions:    make(map[string]struct{}),
		JoinedSessions: make(map[string]SessionMembership),
		State:          StateConnected,
	}
	m.clients[clientID] = client
	m.reportClientCountLocked()
	return client, nil
}

// MarkAuthenticatedOnConnect flips a Client authenticated with no explicit
// authenticate step, for deployments with auth.enabled=false (spec §4.2).
func (m *Manager) MarkAuthenticatedOnConnect(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[clientID]; ok {
		c.Authenticated = true
		c.State = StateAuthenticated
		c.AuthMethod = "none"
		c.AuthTime = time.Now()
	}
}

// MarkAuthenticated records a successful authenticate/token_refresh result.
func (m *Manager) MarkAuthenticated(clientID, method string, permissions []string, validUntil time.Time) *protoerr.Error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clients[clientID]
	if !ok {
		return protoerr.New(protoerr.ClientNotAuthed, "", "client not connected")
	}
	perms := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		perms[p] = struct{}{}
	}
	c.Authenticated = true
	c.State = StateAuthenticated
	c.AuthMethod = method
	c.AuthTime = time.Now()
	c.TokenValidUntil = validUntil
	c.Permissions = perms
	return nil
}

// Demote drops a client from Authenticated back to Connected, e.g. on
// AUTH_EXPIRED (spec §4.2 "State machine").
func (m *Manager) Demote(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[clientID]; ok {
		c.Authenticated = false
		c.State = StateConnected
	}
}

// Get returns the live Client for clientID, if any.
func (m *Manager) Get(clientID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[clientID]
	return c, ok
}

// Remove deletes clientID's Client record (disconnect, spec §4.2).
func (m *Manager) Remove(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, clientID)
	m.reportClientCountLocked()
}

// Count returns the number of live clients.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Touch refreshes lastActivityTime (used by `ping` and general traffic).
func (m *Manager) Touch(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[clientID]; ok {
		c.LastActivity = time.Now()
	}
}

// AddSession records that clientID joined sessionID.
func (m *Manager) AddSession(clientID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[clientID]; ok {
		c.JoinedSessions[sessionID] = SessionMembership{SessionID: sessionID, JoinedAt: time.Now()}
	}
}

// RemoveSession forgets clientID's membership in sessionID.
func (m *Manager) RemoveSession(clientID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[clientID]; ok {
		delete(c.JoinedSessions, sessionID)
	}
}

// JoinedSessionIDs returns a snapshot of the sessions clientID currently
// belongs to (used to fan out session_participant_left on disconnect).
func (m *Manager) JoinedSessionIDs(clientID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[clientID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(c.JoinedSessions))
	for id := range c.JoinedSessions {
		ids = append(ids, id)
	}
	return ids
}

// SetEndpoint attaches the transport-level Endpoint the Notification
// Dispatcher should use to reach clientID.
func (m *Manager) SetEndpoint(clientID string, ep Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[clientID]; ok {
		c.Endpoint = ep
	}
}

// Snapshot returns a copy of all live clients, safe to range over without
// holding the manager's lock (spec §5 "Notification fan-out copies the
// participant list under the session lock, releases it, then dispatches").
func (m *Manager) Snapshot() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out
}
