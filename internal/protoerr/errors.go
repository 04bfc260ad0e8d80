// Package protoerr implements the error taxonomy from the protocol
// specification §6/§7: a closed set of error codes, each carrying a
// category, a retryable flag, and an advisory recovery action.
package protoerr

// Category groups error codes for propagation-policy decisions (§7).
type Category string

// Category values, per spec §6.
const (
	CategoryProtocol Category = "PROTOCOL"
	CategoryAuth     Category = "AUTH"
	CategorySession  Category = "SESSION"
	CategoryResource Category = "RESOURCE"
	CategoryServer   Category = "SERVER"
	CategoryClient   Category = "CLIENT"
)

// Code is one member of the closed error-code set in spec §6.
type Code string

// The closed set of error codes.
const (
	InvalidMessageFormat  Code = "INVALID_MESSAGE_FORMAT"
	UnknownMessageType    Code = "UNKNOWN_MESSAGE_TYPE"
	MissingRequiredField  Code = "MISSING_REQUIRED_FIELD"
	InvalidFieldValue     Code = "INVALID_FIELD_VALUE"
	AuthFailed            Code = "AUTH_FAILED"
	AuthExpired           Code = "AUTH_EXPIRED"
	AuthRequired          Code = "AUTH_REQUIRED"
	ClientNotAuthed       Code = "CLIENT_NOT_AUTHENTICATED"
	SessionNotFound       Code = "SESSION_NOT_FOUND"
	SessionAlreadyExists  Code = "SESSION_ALREADY_EXISTS"
	SessionJoinRejected   Code = "SESSION_JOIN_REJECTED"
	SessionFull           Code = "SESSION_FULL"
	ResourceNotFound      Code = "RESOURCE_NOT_FOUND"
	ResourceLocked        Code = "RESOURCE_LOCKED"
	ResourceLimitExceeded Code = "RESOURCE_LIMIT_EXCEEDED"
	ResourceConflict      Code = "RESOURCE_CONFLICT"
	ServerError           Code = "SERVER_ERROR"
	ServerOverloaded      Code = "SERVER_OVERLOADED"
	ServerMaintenance     Code = "SERVER_MAINTENANCE"
	ServerShuttingDown    Code = "SERVER_SHUTTING_DOWN"
	ClientTimeout         Code = "CLIENT_TIMEOUT"
	ClientRateLimited     Code = "CLIENT_RATE_LIMITED"
	ClientVersionUnsupp   Code = "CLIENT_VERSION_UNSUPPORTED"
	MaxClientsReached     Code = "MAX_CLIENTS_REACHED"
	ClientIDInUse         Code = "CLIENT_ID_IN_USE"
	PermissionDenied      Code = "PERMISSION_DENIED"
)

type meta struct {
	category       Category
	retryable      bool
	recoveryAction string
}

// registry is read-only after init(); never mutated at runtime.
var registry = map[Code]meta{
	InvalidMessageFormat:  {CategoryProtocol, true, "Fix the message envelope and resend."},
	UnknownMessageType:    {CategoryProtocol, true, "Use one of the supported message types."},
	MissingRequiredField:  {CategoryProtocol, true, "Add the missing field and resend."},
	InvalidFieldValue:     {CategoryProtocol, true, "Correct the field value and resend."},
	AuthFailed:            {CategoryAuth, false, "Re-authenticate with a valid token."},
	AuthExpired:           {CategoryAuth, false, "Refresh the token and re-authenticate."},
	AuthRequired:          {CategoryAuth, false, "Authenticate before retrying."},
	ClientNotAuthed:       {CategoryAuth, false, "Authenticate before retrying."},
	SessionNotFound:       {CategorySession, true, "Verify the session ID and retry."},
	SessionAlreadyExists:  {CategorySession, false, "Use a different session ID or join the existing session."},
	SessionJoinRejected:   {CategorySession, false, "Request access from the session owner."},
	SessionFull:           {CategorySession, false, "Wait for a participant to leave or create a new session."},
	ResourceNotFound:      {CategoryResource, true, "Verify the resource ID and retry."},
	ResourceLocked:        {CategoryResource, true, "Retry after the current holder releases the resource."},
	ResourceLimitExceeded: {CategoryResource, false, "Remove unused resources before creating more."},
	ResourceConflict:      {CategoryResource, false, "Reconcile state before retrying."},
	ServerError:           {CategoryServer, true, "Retry; contact the operator if this persists."},
	ServerOverloaded:      {CategoryServer, true, "Retry with backoff."},
	ServerMaintenance:     {CategoryServer, false, "Wait for maintenance to complete."},
	ServerShuttingDown:    {CategoryServer, false, "Reconnect once the server restarts."},
	ClientTimeout:         {CategoryClient, true, "Resend the request."},
	ClientRateLimited:     {CategoryClient, true, "Slow down and retry with backoff."},
	ClientVersionUnsupp:   {CategoryClient, false, "Upgrade the client."},
	MaxClientsReached:     {CategoryClient, false, "Retry once capacity is available."},
	ClientIDInUse:         {CategoryClient, false, "Choose a different client ID."},
	PermissionDenied:      {CategoryClient, false, "Request access or use an authorized client."},
}

// Error is the canonical error value carried in an `error` response payload.
type Error struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	RelatedTo  string `json:"relatedTo,omitempty"`
	Fatal      bool   `json:"fatal,omitempty"`
	Category   Category `json:"category,omitempty"`
	Recovery   string   `json:"recoveryAction,omitempty"`
	Details    any      `json:"details,omitempty"`
	Retryable_ bool     `json:"-"`
}

// New builds an Error, filling in category/retryable/recoveryAction from the
// code's taxonomy entry. An unknown code defaults to SERVER_ERROR semantics
// so callers can never construct an Error outside the closed set silently.
func New(code Code, relatedTo, message string) *Error {
	m, ok := registry[code]
	if !ok {
		m = registry[ServerError]
		code = ServerError
	}
	return &Error{
		Code:       code,
		Message:    message,
		RelatedTo:  relatedTo,
		Category:   m.category,
		Recovery:   m.recoveryAction,
		Retryable_: m.retryable,
	}
}

// Retryable reports whether this code's taxonomy entry marks it retryable.
func (e *Error) Retryable() bool { return e.Retryable_ }

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Code) + ": " + e.Message
}

// CategoryOf returns the category for a code, defaulting to SERVER for codes
// outside the closed set (defensive against future additions).
func CategoryOf(code Code) Category {
	if m, ok := registry[code]; ok {
		return m.category
	}
	return CategoryServer
}
