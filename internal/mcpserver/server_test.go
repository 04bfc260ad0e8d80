package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-collab/collabd/internal/config"
	"github.com/mcp-collab/collabd/internal/protocol"
	"github.com/mcp-collab/collabd/internal/tool"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return New(context.Background(), cfg, tool.NewRegistry(), nil)
}

func envelope(t *testing.T, typ protocol.Type, payload any) *protocol.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &protocol.Envelope{
		Type:      typ,
		ID:        uuid.NewString(),
		Timestamp: "2026-07-30T00:00:00.000Z",
		Payload:   raw,
	}
}

func decodeAck[T any](t *testing.T, resp *protocol.Envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Payload, &out))
	return out
}

func connectClient(t *testing.T, s *Server, clientID string) {
	t.Helper()
	resp := s.Router.Dispatch(context.Background(), clientID, envelope(t, protocol.TypeConnection, connectionRequest{ClientID: clientID}))
	require.Equal(t, protocol.TypeConnectionAck, resp.Type)
}

func TestConnectWithAuthDisabledIsImmediatelyAuthenticated(t *testing.T) {
	s := testServer(t)
	connectClient(t, s, "alice")

	client, ok := s.Connections.Get("alice")
	require.True(t, ok)
	assert.True(t, client.Authenticated)
}

func TestSessionCreateJoinAndLeaveLifecycle(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()
	connectClient(t, s, "alice")
	connectClient(t, s, "bob")

	createResp := s.Router.Dispatch(ctx, "alice", envelope(t, protocol.TypeSessionCreate, sessionCreateRequest{Name: "pairing"}))
	require.Equal(t, protocol.TypeSessionCreateAck, createResp.Type)
	created := decodeAck[sessionResponse](t, createResp)
	require.NotEmpty(t, created.SessionID)

	joinResp := s.Router.Dispatch(ctx, "bob", envelope(t, protocol.TypeSessionJoin, sessionJoinRequest{SessionID: created.SessionID}))
	require.Equal(t, protocol.TypeSessionJoinAck, joinResp.Type)
	joined := decodeAck[sessionResponse](t, joinResp)
	assert.ElementsMatch(t, []string{"alice", "bob"}, joined.Participants)

	leaveResp := s.Router.Dispatch(ctx, "bob", envelope(t, protocol.TypeSessionLeave, sessionLeaveRequest{SessionID: created.SessionID}))
	require.Equal(t, protocol.TypeSessionLeaveAck, leaveResp.Type)

	sess, ok := s.Sessions.Get(created.SessionID)
	require.True(t, ok)
	assert.Equal(t, []string{"alice"}, sess.Participants())
}

func TestTerminalInputFansOutExcludingOrigin(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()
	connectClient(t, s, "alice")
	connectClient(t, s, "bob")

	createResp := s.Router.Dispatch(ctx, "alice", envelope(t, protocol.TypeSessionCreate, sessionCreateRequest{}))
	created := decodeAck[sessionResponse](t, createResp)
	s.Router.Dispatch(ctx, "bob", envelope(t, protocol.TypeSessionJoin, sessionJoinRequest{SessionID: created.SessionID}))

	termResp := s.Router.Dispatch(ctx, "alice", envelope(t, protocol.TypeTerminal, terminalRequest{Action: "create", SessionID: created.SessionID, Shell: "/bin/bash"}))
	require.Equal(t, protocol.AckOf(protocol.TypeTerminal), termResp.Type)
	term := decodeAck[terminalResponse](t, termResp)
	require.NotEmpty(t, term.TerminalID)

	epAlice := &captureEndpoint{}
	epBob := &captureEndpoint{}
	s.Connections.SetEndpoint("alice", epAlice)
	s.Connections.SetEndpoint("bob", epBob)

	inputResp := s.Router.Dispatch(ctx, "bob", envelope(t, protocol.TypeTerminal, terminalRequest{Action: "input", SessionID: created.SessionID, TerminalID: term.TerminalID, Data: "ls\n"}))
	require.Equal(t, protocol.AckOf(protocol.TypeTerminal), inputResp.Type)

	assert.Empty(t, epBob.received, "origin must not receive its own input notification")
	require.Len(t, epAlice.received, 1)
	assert.Equal(t, protocol.TypeNotification, epAlice.received[0].Type)
}

func TestEditorStaleContentUpdateIsSilentlyRejected(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()
	connectClient(t, s, "alice")

	createResp := s.Router.Dispatch(ctx, "alice", envelope(t, protocol.TypeSessionCreate, sessionCreateRequest{}))
	created := decodeAck[sessionResponse](t, createResp)

	regResp := s.Router.Dispatch(ctx, "alice", envelope(t, protocol.TypeEditor, editorRequest{Action: "register", SessionID: created.SessionID, FilePath: "main.go", Content: "package main\n"}))
	reg := decodeAck[editorResponse](t, regResp)

	updateResp := s.Router.Dispatch(ctx, "alice", envelope(t, protocol.TypeEditor, editorRequest{Action: "updateContent", SessionID: created.SessionID, EditorID: reg.EditorID, Content: "new", Version: reg.Version + 5}))
	update := decodeAck[editorResponse](t, updateResp)
	require.True(t, update.Accepted)

	staleResp := s.Router.Dispatch(ctx, "alice", envelope(t, protocol.TypeEditor, editorRequest{Action: "updateContent", SessionID: created.SessionID, EditorID: reg.EditorID, Content: "stale write", Version: reg.Version}))
	stale := decodeAck[editorResponse](t, staleResp)
	assert.False(t, stale.Accepted)
	assert.Equal(t, update.Version, stale.Version)
}

func TestDisconnectRemovesClientAndLeavesSessions(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()
	connectClient(t, s, "alice")
	connectClient(t, s, "bob")

	createResp := s.Router.Dispatch(ctx, "alice", envelope(t, protocol.TypeSessionCreate, sessionCreateRequest{}))
	created := decodeAck[sessionResponse](t, createResp)
	s.Router.Dispatch(ctx, "bob", envelope(t, protocol.TypeSessionJoin, sessionJoinRequest{SessionID: created.SessionID}))

	s.HandleAbruptDisconnect("bob")

	_, ok := s.Connections.Get("bob")
	assert.False(t, ok)

	sess, ok := s.Sessions.Get(created.SessionID)
	require.True(t, ok)
	assert.Equal(t, []string{"alice"}, sess.Participants())
}

type captureEndpoint struct {
	received []*protocol.Envelope
}

func (e *captureEndpoint) Send(env any) error {
	e.received = append(e.received, env.(*protocol.Envelope))
	return nil
}
