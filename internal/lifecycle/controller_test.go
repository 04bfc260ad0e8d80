package lifecycle

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-collab/collabd/internal/connection"
	"github.com/mcp-collab/collabd/internal/notify"
	"github.com/mcp-collab/collabd/internal/protocol"
)

type fakeEndpoint struct {
	got chan *protocol.Envelope
}

func (e *fakeEndpoint) Send(env any) error {
	e.got <- env.(*protocol.Envelope)
	return nil
}

func TestShutdownNotifiesAndIsIdempotent(t *testing.T) {
	t.Parallel()
	conns := connection.NewManager(10)
	_, err := conns.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err)
	ep := &fakeEndpoint{got: make(chan *protocol.Envelope, 1)}
	conns.SetEndpoint("A", ep)

	d := notify.New(conns)
	c := New(conns, d, 200*time.Millisecond)

	var hookCalls int32
	c.RegisterCleanupHook(func() { atomic.AddInt32(&hookCalls, 1) })

	c.Shutdown("maintenance", false, "")
	assert.True(t, c.IsShuttingDown())

	select {
	case env := <-ep.got:
		assert.Equal(t, protocol.TypeNotification, env.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a server_shutdown notification")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&hookCalls))

	c.Shutdown("maintenance", false, "")
	assert.EqualValues(t, 1, atomic.LoadInt32(&hookCalls), "a second shutdown must be a no-op")
}

func TestDrainReturnsOnceClientsDisconnect(t *testing.T) {
	t.Parallel()
	conns := connection.NewManager(10)
	_, err := conns.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		conns.Remove("A")
	}()

	d := notify.New(conns)
	c := New(conns, d, time.Second)
	start := time.Now()
	c.drain()
	assert.Less(t, time.Since(start), time.Second)
}
