// Package protocol defines the wire envelope for the collaboration fabric:
// the closed set of message types, the four-field envelope, and the
// type-dispatched payload validators described in spec §4.1 and §6.
package protocol

import "encoding/json"

// Type is one member of the closed set of message types (spec §6).
type Type string

// The closed set of message types.
const (
	TypeConnection       Type = "connection"
	TypeConnectionAck    Type = "connection_ack"
	TypeDisconnect       Type = "disconnect"
	TypeDisconnectAck    Type = "disconnect_ack"
	TypePing             Type = "ping"
	TypePong             Type = "pong"
	TypeAuthenticate     Type = "authenticate"
	TypeAuthenticateAck  Type = "authenticate_ack"
	TypeTokenRefresh     Type = "token_refresh"
	TypeTokenRefreshAck  Type = "token_refresh_ack"
	TypeTokenValidate    Type = "token_validate"
	TypeTokenValidateAck Type = "token_validate_ack"
	TypeSessionCreate    Type = "session_create"
	TypeSessionCreateAck Type = "session_create_ack"
	TypeSessionJoin      Type = "session_join"
	TypeSessionJoinAck   Type = "session_join_ack"
	TypeSessionLeave     Type = "session_leave"
	TypeSessionLeaveAck  Type = "session_leave_ack"
	TypeSessionEnd       Type = "session_end"
	TypeSessionEndAck    Type = "session_end_ack"
	TypeSessionPause     Type = "session_pause"
	TypeSessionPauseAck  Type = "session_pause_ack"
	TypeSessionResume    Type = "session_resume"
	TypeSessionResumeAck Type = "session_resume_ack"
	TypeTerminal         Type = "terminal"
	TypeEditor           Type = "editor"
	TypeExtension        Type = "extension"
	TypeNotification     Type = "notification"
	TypeServerShutdown   Type = "server_shutdown"
	TypeError            Type = "error"
	TypeClientInfo       Type = "client_info"
	TypeClientUpdate     Type = "client_update"
	TypeToolInvoke       Type = "tool_invoke"
	TypeToolResponse     Type = "tool_response"
)

// knownTypes is the closed set, used by the validator to reject unknown tags.
var knownTypes = map[Type]bool{
	TypeConnection: true, TypeConnectionAck: true,
	TypeDisconnect: true, TypeDisconnectAck: true,
	TypePing: true, TypePong: true,
	TypeAuthenticate: true, TypeAuthenticateAck: true,
	TypeTokenRefresh: true, TypeTokenRefreshAck: true,
	TypeTokenValidate: true, TypeTokenValidateAck: true,
	TypeSessionCreate: true, TypeSessionCreateAck: true,
	TypeSessionJoin: true, TypeSessionJoinAck: true,
	TypeSessionLeave: true, TypeSessionLeaveAck: true,
	TypeSessionEnd: true, TypeSessionEndAck: true,
	TypeSessionPause: true, TypeSessionPauseAck: true,
	TypeSessionResume: true, TypeSessionResumeAck: true,
	TypeTerminal: true, TypeEditor: true, TypeExtension: true,
	TypeNotification: true, TypeServerShutdown: true, TypeError: true,
	TypeClientInfo: true, TypeClientUpdate: true,
	TypeToolInvoke: true, TypeToolResponse: true,
}

// IsKnown reports whether t is a member of the closed message-type set.
func IsKnown(t Type) bool { return knownTypes[t] }

// AckOf returns the response type for a request type, per §4.3(d). Most
// types get a mechanical `_ack` suffix; `ping` is the one irregular pair,
// answered with `pong` rather than `ping_ack`.
func AckOf(t Type) Type {
	if t == TypePing {
		return TypePong
	}
	return Type(string(t) + "_ack")
}

// Envelope is the four-field message record described in spec §4.1.
type Envelope struct {
	Type       Type            `json:"type"`
	ID         string          `json:"id"`
	Timestamp  string          `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
	ResponseTo string          `json:"responseTo,omitempty"`
}

// ErrorPayload is the payload shape for type="error" responses (§4.1).
type ErrorPayload struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	RelatedTo      string `json:"relatedTo,omitempty"`
	Fatal          bool   `json:"fatal,omitempty"`
	Category       string `json:"category,omitempty"`
	RecoveryAction string `json:"recoveryAction,omitempty"`
	Details        any    `json:"details,omitempty"`
}
