package router

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mcp-collab/collabd/internal/auth"
	"github.com/mcp-collab/collabd/internal/connection"
	"github.com/mcp-collab/collabd/internal/protoerr"
	"github.com/mcp-collab/collabd/internal/protocol"
)

// HandlerFunc handles one decoded, auth-gated request envelope and returns
// either an ack payload or a protoerr.Error. client is nil only for message
// types in the pre-connect exemption set (spec §4.3 "Auth gating").
type HandlerFunc func(ctx context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error)

// preAuthTypes never require an authenticated — or even connected — client,
// since they are how a client becomes one (spec §4.2/§4.3).
var preAuthTypes = map[protocol.Type]bool{
	protocol.TypeConnection:    true,
	protocol.TypeAuthenticate:  true,
	protocol.TypePing:          true,
	protocol.TypeTokenRefresh:  true,
	protocol.TypeTokenValidate: true,
	protocol.TypeDisconnect:    true,
}

// Router implements the Request/Response Router (spec §4.3, component C4):
// phase-two (payload) dispatch, auth gating, rate limiting, and the
// pending-request bookkeeping for requests the server itself originates.
type Router struct {
	connections *connection.Manager
	authn       *auth.Authenticator
	limiter     *RateLimiter
	errors      *ErrorTracker
	Pending     *PendingStore

	handlers map[protocol.Type]HandlerFunc
}

// New builds a Router. ctx governs the lifetime of the pending-request
// expiry goroutine.
func New(ctx context.Context, connections *connection.Manager, authn *auth.Authenticator, limiter *RateLimiter, errors *ErrorTracker) *Router {
	return &Router{
		connections: connections,
		authn:       authn,
		limiter:     limiter,
		errors:      errors,
		Pending:     NewPendingStore(ctx),
		handlers:    make(map[protocol.Type]HandlerFunc),
	}
}

// Handle registers the handler responsible for message type t.
func (r *Router) Handle(t protocol.Type, h HandlerFunc) {
	r.handlers[t] = h
}

// Dispatch runs one inbound envelope through rate limiting, auth gating, and
// the registered handler, always returning a response envelope (an `_ack` on
// success, an `error` on rejection) per spec §4.3(d).
func (r *Router) Dispatch(ctx context.Context, clientID string, env *protocol.Envelope) *protocol.Envelope {
	if r.limiter != nil && !r.limiter.Allow(clientID) {
		return r.errorResponse(env, protoerr.New(protoerr.ClientRateLimited, env.ID, "too many requests, slow down"))
	}

	client, hasClient := r.connections.Get(clientID)
	exempt := preAuthTypes[env.Type]

	if !exempt {
		if !hasClient {
			return r.errorResponse(env, protoerr.New(protoerr.ClientNotAuthed, env.ID, "no active connection for this client"))
		}
		if r.authn != nil && r.authn.Enabled() {
			if !client.Authenticated {
				return r.errorResponse(env, protoerr.New(protoerr.AuthRequired, env.ID, "authenticate before sending this message"))
			}
			if client.IsTokenExpired() {
				return r.errorResponse(env, protoerr.New(protoerr.AuthExpired, env.ID, "token has expired, refresh and re-authenticate"))
			}
		}
	}

	handler, ok := r.handlers[env.Type]
	if !ok {
		return r.errorResponse(env, protoerr.New(protoerr.UnknownMessageType, env.ID, "no handler registered for this message type"))
	}

	payload, herr := handler(ctx, client, env)
	if herr != nil {
		if herr.Category == protoerr.CategoryProtocol && r.errors != nil {
			r.errors.Record(clientID)
		}
		return r.errorResponse(env, herr)
	}
	return r.ackResponse(env, payload)
}

// RejectDecodeError builds the `error` response for a frame that failed
// phase-one validation before an Envelope could even be fully trusted
// (spec §4.1 "Validation").
func (r *Router) RejectDecodeError(relatedID string, code protoerr.Code) *protocol.Envelope {
	return r.errorResponse(&protocol.Envelope{ID: relatedID}, protoerr.New(code, relatedID, "malformed message"))
}

func (r *Router) ackResponse(env *protocol.Envelope, payload any) *protocol.Envelope {
	raw, _ := json.Marshal(payload)
	return &protocol.Envelope{
		Type:       protocol.AckOf(env.Type),
		ID:         uuid.NewString(),
		Timestamp:  nowISO(),
		Payload:    raw,
		ResponseTo: env.ID,
	}
}

func (r *Router) errorResponse(env *protocol.Envelope, err *protoerr.Error) *protocol.Envelope {
	payload := protocol.ErrorPayload{
		Code:           string(err.Code),
		Message:        err.Message,
		RelatedTo:      env.ID,
		Fatal:          err.Fatal,
		Category:       string(err.Category),
		RecoveryAction: err.Recovery,
		Details:        err.Details,
	}
	raw, _ := json.Marshal(payload)
	return &protocol.Envelope{
		Type:       protocol.TypeError,
		ID:         uuid.NewString(),
		Timestamp:  nowISO(),
		Payload:    raw,
		ResponseTo: env.ID,
	}
}

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
