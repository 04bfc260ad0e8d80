// Package connection implements the Connection Manager (spec §4.2,
// component C3): live client identity, activity tracking, and the
// connect/authenticate/disconnect state machine.
package connection

import (
	"time"
)

// State is the per-client connection state machine (spec §4.2).
type State string

// State values.
const (
	StateDisconnected  State = "disconnected"
	StateConnecting    State = "connecting"
	StateConnected     State = "connected"
	StateAuthenticating State = "authenticating"
	StateAuthenticated State = "authenticated"
	StateReconnecting  State = "reconnecting"
)

// SessionMembership records when a client joined a session.
type SessionMembership struct {
	SessionID string
	JoinedAt  time.Time
}

// Client is the record described in spec §3 "Client".
type Client struct {
	ClientID      string
	WorkspaceID   string
	Capabilities  map[string]struct{}
	Metadata      map[string]string
	IPAddress     string
	UserAgent     string
	ConnectionTime time.Time
	LastActivity  time.Time

	Authenticated   bool
	AuthMethod      string
	AuthTime        time.Time
	TokenValidUntil time.Time
	Permissions     map[string]struct{}

	JoinedSessions map[string]SessionMembership

	State State

	// Endpoint is the transport-level send function for this client,
	// resolved by the Notification Dispatcher at fan-out time (spec §9
	// "Cyclic references") rather than stored on the Session.
	Endpoint Endpoint
}

// Endpoint abstracts the per-connection outbound channel so the core never
// depends on a concrete transport (spec §1).
type Endpoint interface {
	// Send delivers env to the client. A returned error is logged by the
	// Notification Dispatcher and counted as a dropped notification. The
	// TCP implementation (internal/transport) writes synchronously and has
	// no outbound queue, so a slow reader blocks the caller until the write
	// completes.
	Send(env any) error
}

// HasCapability reports whether the client declared capability.
func (c *Client) HasCapability(capability string) bool {
	_, ok := c.Capabilities[capability]
	return ok
}

// HasPermission reports whether the client holds permission, honoring a
// trailing "*" wildcard segment (e.g. "session:*" covers "session:read").
func (c *Client) HasPermission(permission string) bool {
	if _, ok := c.Permissions[permission]; ok {
		return true
	}
	for p := range c.Permissions {
		if len(p) > 0 && p[len(p)-1] == '*' && len(permission) >= len(p)-1 &&
			permission[:len(p)-1] == p[:len(p)-1] {
			return true
		}
	}
	return false
}

// IsTokenExpired reports whether the client's authentication has lapsed.
func (c *Client) IsTokenExpired() bool {
	return c.Authenticated && !c.TokenValidUntil.IsZero() && !c.TokenValidUntil.After(time.Now())
}
