package mcpserver

import (
	"context"
	"time"

	"github.com/mcp-collab/collabd/internal/auth"
	"github.com/mcp-collab/collabd/internal/connection"
	"github.com/mcp-collab/collabd/internal/notify"
	"github.com/mcp-collab/collabd/internal/protoerr"
	"github.com/mcp-collab/collabd/internal/protocol"
)

func (s *Server) registerHandlers() {
	s.Router.Handle(protocol.TypeConnection, s.handleConnection)
	s.Router.Handle(protocol.TypeDisconnect, s.handleDisconnect)
	s.Router.Handle(protocol.TypePing, s.handlePing)
	s.Router.Handle(protocol.TypeAuthenticate, s.handleAuthenticate)
	s.Router.Handle(protocol.TypeTokenRefresh, s.handleTokenRefresh)
	s.Router.Handle(protocol.TypeTokenValidate, s.handleTokenValidate)

	s.Router.Handle(protocol.TypeSessionCreate, s.handleSessionCreate)
	s.Router.Handle(protocol.TypeSessionJoin, s.handleSessionJoin)
	s.Router.Handle(protocol.TypeSessionLeave, s.handleSessionLeave)
	s.Router.Handle(protocol.TypeSessionEnd, s.handleSessionEnd)
	s.Router.Handle(protocol.TypeSessionPause, s.handleSessionPause)
	s.Router.Handle(protocol.TypeSessionResume, s.handleSessionResume)

	s.Router.Handle(protocol.TypeTerminal, s.handleTerminal)
	s.Router.Handle(protocol.TypeEditor, s.handleEditor)
	s.Router.Handle(protocol.TypeExtension, s.handleExtension)
	s.Router.Handle(protocol.TypeToolInvoke, s.handleToolInvoke)
}

func (s *Server) handleConnection(_ context.Context, _ *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req connectionRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed connection payload")
	}
	if s.IsShuttingDown() {
		return nil, protoerr.New(protoerr.ServerShuttingDown, env.ID, "server is shutting down")
	}

	client, err := s.Connections.Connect(req.ClientID, req.WorkspaceID, req.Capabilities, req.Metadata, "", "")
	if err != nil {
		return nil, err
	}
	if !s.Auth.Enabled() {
		s.Connections.MarkAuthenticatedOnConnect(client.ClientID)
	}

	return connectionResponse{
		Status:             "connected",
		ServerTime:         time.Now(),
		ConnectedClients:   s.Connections.Count(),
		AuthRequired:       s.Auth.Enabled(),
		ServerCapabilities: []string{"terminal", "editor", "extension", "tool_invoke"},
		SessionCount:       s.Sessions.Count(),
	}, nil
}

func (s *Server) handleDisconnect(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	if client == nil {
		return map[string]string{"status": "disconnected"}, nil
	}
	clientID := client.ClientID
	go func() {
		time.Sleep(disconnectGrace)
		s.finishDisconnect(clientID)
	}()
	return map[string]string{"status": "disconnected"}, nil
}

// disconnectGrace is how long an explicit `disconnect` waits after its ack
// before the Client is removed.
const disconnectGrace = 100 * time.Millisecond

// HandleAbruptDisconnect runs the same session-leave/cleanup sequence as an
// explicit `disconnect` message, for transports that detect a dropped
// connection without ever receiving one (spec §4.2 "Disconnection").
func (s *Server) HandleAbruptDisconnect(clientID string) {
	if clientID == "" {
		return
	}
	s.finishDisconnect(clientID)
}

// finishDisconnect is the removal half of spec §4.2's "acknowledges first,
// then after a brief grace removes the Client" sequence (handleDisconnect
// supplies the ack and the grace delay): every joined session is left,
// fanning out session_participant_left, before the Client record itself is
// dropped.
func (s *Server) finishDisconnect(clientID string) {
	for _, sessionID := range s.Connections.JoinedSessionIDs(clientID) {
		ended, err := s.Sessions.Leave(sessionID, clientID)
		if err != nil {
			continue
		}
		if !ended {
			if sess, ok := s.Sessions.Get(sessionID); ok {
				s.Notify.NotifySessionParticipants(sess.Participants(), "", sessionID, notify.EventParticipantLeft, map[string]string{"clientId": clientID})
			}
		}
	}
	s.Connections.Remove(clientID)
}

func (s *Server) handlePing(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	if client != nil {
		s.Connections.Touch(client.ClientID)
	}
	return pingResponse{ServerTime: time.Now(), ConnectedClients: s.Connections.Count()}, nil
}

func (s *Server) handleAuthenticate(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req authenticateRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed authenticate payload")
	}
	if client == nil {
		return nil, protoerr.New(protoerr.ClientNotAuthed, env.ID, "connect before authenticating")
	}

	res, authErr := s.Auth.Authenticate(auth.Method(req.AuthMethod), req.Token)
	if authErr != nil {
		return nil, protoerr.New(protoerr.AuthFailed, env.ID, authErr.Error())
	}
	s.Connections.MarkAuthenticated(client.ClientID, req.AuthMethod, res.Permissions, res.TokenValidUntil)

	return authenticateResponse{
		Status:          "authenticated",
		Permissions:     res.Permissions,
		TokenValidUntil: res.TokenValidUntil,
		RefreshToken:    res.RefreshToken,
	}, nil
}

func (s *Server) handleTokenRefresh(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req tokenRefreshRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed token_refresh payload")
	}
	if client == nil || !client.Authenticated {
		return nil, protoerr.New(protoerr.ClientNotAuthed, env.ID, "authenticate before refreshing a token")
	}

	res, authErr := s.Auth.RefreshOpaqueToken(req.Token)
	if authErr != nil {
		return nil, protoerr.New(protoerr.AuthFailed, env.ID, authErr.Error())
	}
	s.Connections.MarkAuthenticated(client.ClientID, client.AuthMethod, res.Permissions, res.TokenValidUntil)

	return authenticateResponse{
		Status:          "accepted",
		Permissions:     res.Permissions,
		TokenValidUntil: res.TokenValidUntil,
		RefreshToken:    res.RefreshToken,
	}, nil
}

func (s *Server) handleTokenValidate(_ context.Context, client *connection.Client, _ *protocol.Envelope) (any, *protoerr.Error) {
	if client == nil || !client.Authenticated || client.IsTokenExpired() {
		return tokenValidateResponse{Valid: false}, nil
	}
	return tokenValidateResponse{Valid: true, TokenValidUntil: client.TokenValidUntil}, nil
}

func (s *Server) handleSessionCreate(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req sessionCreateRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed session_create payload")
	}
	sess, err := s.Sessions.CreateSession(req.SessionID, client.ClientID, req.WorkspaceID, req.Name)
	if err != nil {
		return nil, err
	}
	s.Connections.AddSession(client.ClientID, sess.SessionID)
	return sessionResponse{Status: "created", SessionID: sess.SessionID, Participants: sess.Participants()}, nil
}

func (s *Server) handleSessionJoin(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req sessionJoinRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed session_join payload")
	}
	sess, err := s.Sessions.Join(req.SessionID, client.ClientID)
	if err != nil {
		return nil, err
	}
	s.Connections.AddSession(client.ClientID, sess.SessionID)
	s.Notify.NotifySessionParticipants(sess.Participants(), client.ClientID, sess.SessionID, notify.EventParticipantJoined, map[string]string{"clientId": client.ClientID})
	return sessionResponse{Status: "joined", SessionID: sess.SessionID, Participants: sess.Participants()}, nil
}

func (s *Server) handleSessionLeave(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req sessionLeaveRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed session_leave payload")
	}
	sess, stillExists := s.Sessions.Get(req.SessionID)
	ended, err := s.Sessions.Leave(req.SessionID, client.ClientID)
	if err != nil {
		return nil, err
	}
	s.Connections.RemoveSession(client.ClientID, req.SessionID)
	if !ended && stillExists {
		s.Notify.NotifySessionParticipants(sess.Participants(), "", req.SessionID, notify.EventParticipantLeft, map[string]string{"clientId": client.ClientID})
	}
	return map[string]string{"status": "left", "sessionId": req.SessionID}, nil
}

func (s *Server) handleSessionEnd(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req sessionLeaveRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed session_end payload")
	}
	sess, _ := s.Sessions.Get(req.SessionID)
	var participants []string
	if sess != nil {
		participants = sess.Participants()
	}
	if err := s.Sessions.End(req.SessionID, client.ClientID); err != nil {
		return nil, err
	}
	s.Notify.NotifySessionParticipants(participants, client.ClientID, req.SessionID, notify.EventParticipantLeft, map[string]string{"reason": "session_ended"})
	return map[string]string{"status": "ended", "sessionId": req.SessionID}, nil
}

func (s *Server) handleSessionPause(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req sessionLeaveRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed session_pause payload")
	}
	if err := s.Sessions.Pause(req.SessionID, client.ClientID); err != nil {
		return nil, err
	}
	return map[string]string{"status": "paused", "sessionId": req.SessionID}, nil
}

func (s *Server) handleSessionResume(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req sessionLeaveRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed session_resume payload")
	}
	if err := s.Sessions.Resume(req.SessionID, client.ClientID); err != nil {
		return nil, err
	}
	return map[string]string{"status": "resumed", "sessionId": req.SessionID}, nil
}
