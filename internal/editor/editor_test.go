package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateContentAcceptsCurrentVersion(t *testing.T) {
	t.Parallel()
	ed := New("E1", "S1", "main.go", "", "A", "", 10)
	accepted, v := ed.UpdateContent("A", "package main", 1)
	assert.True(t, accepted)
	assert.Equal(t, 2, v)
	assert.Equal(t, "package main", ed.Content)
}

func TestUpdateContentRejectsStaleVersion(t *testing.T) {
	t.Parallel()
	ed := New("E1", "S1", "main.go", "", "A", "", 10)
	ed.UpdateContent("A", "v1", 1)

	accepted, v := ed.UpdateContent("B", "stale write", 1)
	assert.False(t, accepted, "a version behind the server's must be rejected")
	assert.Equal(t, 2, v, "current version must be echoed back")
	assert.Equal(t, "v1", ed.Content, "rejected update must not mutate content")
}

func TestLanguageInference(t *testing.T) {
	t.Parallel()
	ed := New("E1", "S1", "main.go", "", "A", "", 10)
	assert.Equal(t, "go", ed.Language)

	ed2 := New("E2", "S1", "README", "", "A", "", 10)
	assert.Equal(t, "plaintext", ed2.Language)
}

func TestCursorAndSelectionDoNotBumpVersion(t *testing.T) {
	t.Parallel()
	ed := New("E1", "S1", "main.go", "", "A", "", 10)
	ed.UpdateCursor("A", Cursor{Line: 1, Column: 2})
	ed.UpdateSelections("A", Selection{StartLine: 1, EndLine: 2})
	assert.Equal(t, 1, ed.Version)
}

func TestCloseClearsParticipants(t *testing.T) {
	t.Parallel()
	ed := New("E1", "S1", "main.go", "", "A", "", 10)
	ed.AddParticipant("B")
	ed.Close()
	assert.True(t, ed.IsClosed())
	assert.Empty(t, ed.Participants())
}

func TestHistoryTrimsToMax(t *testing.T) {
	t.Parallel()
	ed := New("E1", "S1", "main.go", "", "A", "", 2)
	ed.UpdateContent("A", "1", 1)
	ed.UpdateContent("A", "2", 2)
	ed.UpdateContent("A", "3", 3)
	assert.Len(t, ed.History(), 2)
}
