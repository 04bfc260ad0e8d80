package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateShallowMerges(t *testing.T) {
	t.Parallel()
	s := New("X1", "S1", "A", map[string]any{"theme": "dark", "zoom": 1}, 10)
	accepted, v := s.Update("A", map[string]any{"zoom": 2}, 0)
	assert.True(t, accepted)
	assert.Equal(t, 1, v)
	assert.Equal(t, "dark", s.Data["theme"])
	assert.Equal(t, 2, s.Data["zoom"])
}

func TestUpdateRejectsStaleVersion(t *testing.T) {
	t.Parallel()
	s := New("X1", "S1", "A", map[string]any{"zoom": 1}, 10)
	accepted, v := s.Update("A", map[string]any{"zoom": 2}, 0)
	require.True(t, accepted)
	require.Equal(t, 1, v)

	accepted, v = s.Update("A", map[string]any{"zoom": 3}, 0)
	assert.False(t, accepted, "a version behind the server's must be rejected")
	assert.Equal(t, 1, v, "current version must be echoed back")
	assert.Equal(t, 2, s.Data["zoom"], "rejected update must not mutate state")
}

func TestResetReplacesWholesale(t *testing.T) {
	t.Parallel()
	s := New("X1", "S1", "A", map[string]any{"theme": "dark"}, 10)
	s.Update("A", map[string]any{"zoom": 2}, 0)
	s.Reset("A", map[string]any{"fresh": true})

	assert.Equal(t, map[string]any{"fresh": true}, s.Data)
	hist := s.History()
	assert.Equal(t, HistoryReset, hist[len(hist)-1].Kind)
}

func TestClientLifecycle(t *testing.T) {
	t.Parallel()
	s := New("X1", "S1", "A", nil, 10)
	s.AddClient("B")
	assert.False(t, s.RemoveClient("A"))
	assert.True(t, s.RemoveClient("B"))
}
