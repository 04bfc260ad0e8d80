// Package notify implements the Notification Dispatcher (spec §4.5,
// component C9): best-effort fan-out of session events to participant
// endpoints resolved through the Connection Manager.
package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mcp-collab/collabd/internal/connection"
	"github.com/mcp-collab/collabd/internal/httpstatus"
	"github.com/mcp-collab/collabd/internal/logging"
	"github.com/mcp-collab/collabd/internal/protocol"
)

// EventType is one of the notification event types in spec §4.5.
type EventType string

// Event types.
const (
	EventParticipantJoined EventType = "session_participant_joined"
	EventParticipantLeft   EventType = "session_participant_left"
	EventTerminalOutput    EventType = "terminal_output"
	EventTerminalInput     EventType = "terminal_input"
	EventEditorChanged     EventType = "editor_changed"
	EventCursorMoved       EventType = "cursor_moved"
	EventSelectionChanged  EventType = "selection_changed"
	EventExtensionChanged  EventType = "extension_state_changed"
	EventServerShutdown    EventType = "server_shutdown"
)

// Payload is the payload shape carried by a `notification` envelope.
type Payload struct {
	EventType EventType `json:"eventType"`
	SessionID string    `json:"sessionId,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Dispatcher resolves participant endpoints through a *connection.Manager
// and delivers notification envelopes to them.
type Dispatcher struct {
	connections *connection.Manager
	metrics     *httpstatus.Metrics
}

// New builds a Dispatcher over connections.
func New(connections *connection.Manager) *Dispatcher {
	return &Dispatcher{connections: connections}
}

// SetMetrics attaches the Prometheus instruments this Dispatcher reports
// to. A nil metrics (the default) disables reporting.
func (d *Dispatcher) SetMetrics(metrics *httpstatus.Metrics) {
	d.metrics = metrics
}

// NotifySessionParticipants implements spec §4.5's
// `notifySessionParticipants`: it sends eventType/data to every ID in
// participantIDs except excludeClientID. Delivery is best-effort — a failed
// Send logs a warning and does not abort the fan-out.
func (d *Dispatcher) NotifySessionParticipants(participantIDs []string, excludeClientID, sessionID string, eventType EventType, data any) {
	env := d.buildEnvelope(sessionID, eventType, data)
	for _, clientID := range participantIDs {
		if clientID == excludeClientID {
			continue
		}
		d.deliver(clientID, env)
	}
}

// SendDirect delivers env to exactly one client, bypassing the
// exclusion/fan-out logic. It uses the same delivery path as
// NotifySessionParticipants: a missing endpoint or failed Send is logged
// and counted as a drop.
func (d *Dispatcher) SendDirect(clientID string, env *protocol.Envelope) {
	d.deliver(clientID, env)
}

func (d *Dispatcher) deliver(clientID string, env *protocol.Envelope) {
	client, ok := d.connections.Get(clientID)
	if !ok || client.Endpoint == nil {
		logging.Warnf("notify: no endpoint for client %s, dropping %s", clientID, env.Type)
		d.reportDrop()
		return
	}
	if err := client.Endpoint.Send(env); err != nil {
		logging.Warnf("notify: delivery to client %s failed: %v", clientID, err)
		d.reportDrop()
	}
}

func (d *Dispatcher) reportDrop() {
	if d.metrics != nil {
		d.metrics.NotificationDrops.Inc()
	}
}

func (d *Dispatcher) buildEnvelope(sessionID string, eventType EventType, data any) *protocol.Envelope {
	payload := Payload{EventType: eventType, SessionID: sessionID, Data: data}
	raw, _ := json.Marshal(payload)
	return &protocol.Envelope{
		Type:      protocol.TypeNotification,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Payload:   raw,
	}
}
