package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-collab/collabd/internal/auth"
	"github.com/mcp-collab/collabd/internal/connection"
	"github.com/mcp-collab/collabd/internal/protoerr"
	"github.com/mcp-collab/collabd/internal/protocol"
)

func newTestRouter(t *testing.T, authEnabled bool) (*Router, *connection.Manager) {
	t.Helper()
	conns := connection.NewManager(10)
	authn := auth.NewAuthenticator(auth.Config{Enabled: authEnabled, TokenExpiration: time.Hour})
	r := New(context.Background(), conns, authn, NewRateLimiter(RateLimiterConfig{}), NewErrorTracker(time.Minute, 100))
	return r, conns
}

func TestDispatchRejectsUnauthenticatedWhenAuthEnabled(t *testing.T) {
	t.Parallel()
	r, conns := newTestRouter(t, true)
	_, err := conns.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err)
	r.Handle(protocol.TypeSessionCreate, func(context.Context, *connection.Client, *protocol.Envelope) (any, *protoerr.Error) {
		return map[string]string{"ok": "true"}, nil
	})

	resp := r.Dispatch(context.Background(), "A", &protocol.Envelope{Type: protocol.TypeSessionCreate, ID: "req-1"})
	assert.Equal(t, protocol.TypeError, resp.Type)
	assert.Equal(t, "req-1", resp.ResponseTo)
}

func TestDispatchAllowsPreAuthTypes(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t, true)
	r.Handle(protocol.TypePing, func(context.Context, *connection.Client, *protocol.Envelope) (any, *protoerr.Error) {
		return map[string]string{}, nil
	})

	resp := r.Dispatch(context.Background(), "unknown-client", &protocol.Envelope{Type: protocol.TypePing, ID: "req-2"})
	assert.Equal(t, protocol.TypePong, resp.Type)
}

func TestDispatchSucceedsForAuthenticatedClient(t *testing.T) {
	t.Parallel()
	r, conns := newTestRouter(t, true)
	_, err := conns.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err)
	require.Nil(t, conns.MarkAuthenticated("A", "token", []string{"session:*"}, time.Now().Add(time.Hour)))

	r.Handle(protocol.TypeSessionCreate, func(context.Context, *connection.Client, *protocol.Envelope) (any, *protoerr.Error) {
		return map[string]string{"sessionId": "S1"}, nil
	})

	resp := r.Dispatch(context.Background(), "A", &protocol.Envelope{Type: protocol.TypeSessionCreate, ID: "req-3"})
	assert.Equal(t, protocol.TypeSessionCreateAck, resp.Type)
	assert.Equal(t, "req-3", resp.ResponseTo)
}

func TestDispatchUnknownMessageType(t *testing.T) {
	t.Parallel()
	r, conns := newTestRouter(t, false)
	_, err := conns.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err)

	resp := r.Dispatch(context.Background(), "A", &protocol.Envelope{Type: protocol.TypeSessionCreate, ID: "req-4"})
	assert.Equal(t, protocol.TypeError, resp.Type)
}

func TestPendingStoreResolveBeforeTimeout(t *testing.T) {
	t.Parallel()
	s := NewPendingStore(context.Background())
	fired := false
	ok := s.Register("r1", "tool_invoke", 50*time.Millisecond, func() { fired = true })
	require.True(t, ok)
	assert.True(t, s.Resolve("r1"))
	time.Sleep(100 * time.Millisecond)
	assert.False(t, fired)
	assert.False(t, s.Resolve("r1"), "second resolve of the same id must be a no-op")
}

func TestPendingStoreTimeoutFires(t *testing.T) {
	t.Parallel()
	s := NewPendingStore(context.Background())
	done := make(chan struct{})
	ok := s.Register("r2", "tool_invoke", 10*time.Millisecond, func() { close(done) })
	require.True(t, ok)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected timeout callback to fire")
	}
	assert.False(t, s.Resolve("r2"), "resolving an already-expired id must be a no-op")
}

func TestRateLimiterBurst(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, Burst: 2})
	assert.True(t, rl.Allow("c1"))
	assert.True(t, rl.Allow("c1"))
	assert.False(t, rl.Allow("c1"))
}

func TestErrorTrackerThreshold(t *testing.T) {
	t.Parallel()
	tr := NewErrorTracker(time.Minute, 3)
	assert.False(t, tr.Record("c1"))
	assert.False(t, tr.Record("c1"))
	assert.True(t, tr.Record("c1"))
}
