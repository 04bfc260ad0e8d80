package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-collab/collabd/internal/connection"
	"github.com/mcp-collab/collabd/internal/protocol"
)

type recordingEndpoint struct {
	received []*protocol.Envelope
	fail     bool
}

func (e *recordingEndpoint) Send(env any) error {
	if e.fail {
		return assert.AnError
	}
	e.received = append(e.received, env.(*protocol.Envelope))
	return nil
}

func TestNotifySessionParticipantsExcludesOrigin(t *testing.T) {
	t.Parallel()
	conns := connection.NewManager(10)
	_, err := conns.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err)
	_, err = conns.Connect("B", "W1", nil, nil, "", "")
	require.Nil(t, err)

	epA := &recordingEndpoint{}
	epB := &recordingEndpoint{}
	conns.SetEndpoint("A", epA)
	conns.SetEndpoint("B", epB)

	d := New(conns)
	d.NotifySessionParticipants([]string{"A", "B"}, "A", "S1", EventEditorChanged, map[string]string{"path": "main.go"})

	assert.Empty(t, epA.received, "origin must be excluded")
	require.Len(t, epB.received, 1)
	assert.Equal(t, protocol.TypeNotification, epB.received[0].Type)

	var payload Payload
	require.NoError(t, json.Unmarshal(epB.received[0].Payload, &payload))
	assert.Equal(t, EventEditorChanged, payload.EventType)
}

func TestNotifyContinuesPastDeliveryFailure(t *testing.T) {
	t.Parallel()
	conns := connection.NewManager(10)
	_, err := conns.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err)
	_, err = conns.Connect("B", "W1", nil, nil, "", "")
	require.Nil(t, err)

	epA := &recordingEndpoint{fail: true}
	epB := &recordingEndpoint{}
	conns.SetEndpoint("A", epA)
	conns.SetEndpoint("B", epB)

	d := New(conns)
	assert.NotPanics(t, func() {
		d.NotifySessionParticipants([]string{"A", "B"}, "", "S1", EventTerminalOutput, nil)
	})
	assert.Len(t, epB.received, 1, "failure delivering to A must not block delivery to B")
}
