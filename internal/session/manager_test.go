package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-collab/collabd/internal/protoerr"
	"github.com/mcp-collab/collabd/internal/terminal"
)

func newTestManager() *Manager {
	return NewManager(Config{
		MaxParticipants:         5,
		TerminalBufferMaxSize:   100,
		EditorMaxHistorySize:    50,
		ExtensionMaxHistorySize: 50,
	})
}

func TestCreateSessionRejectsDuplicateID(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	_, err := m.CreateSession("S1", "A", "W1", "demo")
	require.Nil(t, err)

	_, err = m.CreateSession("S1", "B", "W1", "demo")
	require.Error(t, err)
	assert.Equal(t, protoerr.SessionAlreadyExists, err.Code)
}

func TestJoinAddsParticipantOnce(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	_, err := m.CreateSession("S1", "A", "W1", "demo")
	require.Nil(t, err)

	s, err := m.Join("S1", "B")
	require.Nil(t, err)
	assert.Equal(t, []string{"A", "B"}, s.Participants())

	s, err = m.Join("S1", "B")
	require.Nil(t, err)
	assert.Equal(t, []string{"A", "B"}, s.Participants(), "re-joining must not duplicate")
}

func TestLeaveRemovesSessionWhenEmpty(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	_, err := m.CreateSession("S1", "A", "W1", "demo")
	require.Nil(t, err)

	ended, err := m.Leave("S1", "A")
	require.Nil(t, err)
	assert.True(t, ended)
	_, ok := m.Get("S1")
	assert.False(t, ok)
}

func TestLeaveKeepsSessionWithRemainingParticipants(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	_, err := m.CreateSession("S1", "A", "W1", "demo")
	require.Nil(t, err)
	_, err = m.Join("S1", "B")
	require.Nil(t, err)

	ended, err := m.Leave("S1", "A")
	require.Nil(t, err)
	assert.False(t, ended)
	s, ok := m.Get("S1")
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, s.Participants())
}

func TestTerminalFanOutExcludesOriginOnInput(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	_, err := m.CreateSession("S1", "A", "W1", "demo")
	require.Nil(t, err)
	_, err = m.Join("S1", "B")
	require.Nil(t, err)

	term, err := m.CreateTerminal("S1", "", "A", "main", "/bin/bash", "/home", terminal.Dimensions{Cols: 80, Rows: 24})
	require.Nil(t, err)

	_, recipients, err := m.ProcessTerminalInput("S1", term.TerminalID, "A", "ls\n")
	require.Nil(t, err)
	assert.Equal(t, []string{"B"}, recipients)
}

func TestEditorRegisterIsIdempotentOnFilePath(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	_, err := m.CreateSession("S1", "A", "W1", "demo")
	require.Nil(t, err)
	_, err = m.Join("S1", "B")
	require.Nil(t, err)

	ed1, existed1, err := m.RegisterEditor("S1", "", "A", "main.go", "", "package main")
	require.Nil(t, err)
	assert.False(t, existed1)

	ed2, existed2, err := m.RegisterEditor("S1", "", "B", "main.go", "", "ignored")
	require.Nil(t, err)
	assert.True(t, existed2)
	assert.Equal(t, ed1.EditorID, ed2.EditorID)
	assert.ElementsMatch(t, []string{"A", "B"}, ed2.Participants())
}

func TestUpdateEditorContentRejectsNonParticipant(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	_, err := m.CreateSession("S1", "A", "W1", "demo")
	require.Nil(t, err)
	ed, _, err := m.RegisterEditor("S1", "", "A", "main.go", "", "")
	require.Nil(t, err)

	_, _, _, uerr := m.UpdateEditorContent("S1", ed.EditorID, "stranger", "x", 0)
	require.Error(t, uerr)
	assert.Equal(t, protoerr.PermissionDenied, uerr.Code)
}

func TestExtensionUpdateAndUnregister(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	_, err := m.CreateSession("S1", "A", "W1", "demo")
	require.Nil(t, err)

	_, err = m.RegisterExtension("S1", "X1", "A", map[string]any{"theme": "dark"})
	require.Nil(t, err)

	accepted, v, _, err := m.UpdateExtension("S1", "X1", "A", map[string]any{"zoom": 2}, 0)
	require.Nil(t, err)
	assert.True(t, accepted)
	assert.Equal(t, 1, v)

	accepted, v, _, err = m.UpdateExtension("S1", "X1", "A", map[string]any{"zoom": 3}, 0)
	require.Nil(t, err)
	assert.False(t, accepted, "stale version must be rejected")
	assert.Equal(t, 1, v, "current version must be echoed back")

	_, err = m.UnregisterExtension("S1", "X1", "A")
	require.Nil(t, err)
	s, _ := m.Get("S1")
	_, uerr := m.extensionFor(s, "X1")
	assert.Error(t, uerr, "unregistering the last client must remove the record")
}
