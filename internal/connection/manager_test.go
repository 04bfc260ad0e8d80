package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-collab/collabd/internal/protoerr"
)

func TestConnectRejectsMissingClientID(t *testing.T) {
	t.Parallel()
	m := NewManager(10)
	_, err := m.Connect("", "W1", nil, nil, "", "")
	require.Error(t, err)
	assert.Equal(t, protoerr.MissingRequiredField, err.Code)
}

func TestConnectEnforcesMaxClients(t *testing.T) {
	t.Parallel()
	m := NewManager(1)

	_, err := m.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err)

	_, err = m.Connect("B", "W1", nil, nil, "", "")
	require.Error(t, err)
	assert.Equal(t, protoerr.MaxClientsReached, err.Code)
}

func TestConnectRejectsDuplicateClientID(t *testing.T) {
	t.Parallel()
	m := NewManager(10)

	_, err := m.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err)

	_, err = m.Connect("A", "W1", nil, nil, "", "")
	require.Error(t, err)
	assert.Equal(t, protoerr.ClientIDInUse, err.Code)
}

func TestDisconnectFreesClientID(t *testing.T) {
	t.Parallel()
	m := NewManager(10)

	_, err := m.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err)
	m.Remove("A")
	assert.Equal(t, 0, m.Count())

	_, err = m.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err, "clientId should be reusable once freed")
}

func TestSessionMembershipTracking(t *testing.T) {
	t.Parallel()
	m := NewManager(10)
	_, err := m.Connect("A", "W1", nil, nil, "", "")
	require.Nil(t, err)

	m.AddSession("A", "S1")
	assert.Equal(t, []string{"S1"}, m.JoinedSessionIDs("A"))

	m.RemoveSession("A", "S1")
	assert.Empty(t, m.JoinedSessionIDs("A"))
}
