package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBufferTrimsToCapacity(t *testing.T) {
	t.Parallel()
	term := New("T1", "S1", "A", "main", "/bin/bash", "/home", Dimensions{80, 24}, 3, []string{"A"})

	term.AppendOutput("1")
	term.AppendOutput("2")
	term.AppendOutput("3")
	term.AppendOutput("4")

	all := term.RecentBuffer(10)
	assert.Len(t, all, 3)
	assert.Equal(t, "2", all[0].Data)
	assert.Equal(t, "4", all[2].Data)
}

func TestRecentBufferDefaultLimit(t *testing.T) {
	t.Parallel()
	term := New("T1", "S1", "A", "main", "/bin/bash", "/home", Dimensions{80, 24}, DefaultBufferMaxSize, nil)
	for i := 0; i < 5; i++ {
		term.AppendOutput("x")
	}
	assert.Len(t, term.RecentBuffer(0), 5)
}

func TestParticipantLifecycle(t *testing.T) {
	t.Parallel()
	term := New("T1", "S1", "A", "main", "/bin/bash", "/home", Dimensions{80, 24}, 10, []string{"A", "B"})
	assert.True(t, term.HasParticipant("A"))
	assert.True(t, term.HasParticipant("B"))

	empty := term.RemoveParticipant("A")
	assert.False(t, empty)
	empty = term.RemoveParticipant("B")
	assert.True(t, empty, "removing the last participant should report empty")
}

func TestAppendInputRecordsOrigin(t *testing.T) {
	t.Parallel()
	term := New("T1", "S1", "A", "main", "/bin/bash", "/home", Dimensions{80, 24}, 10, []string{"A"})
	e := term.AppendInput("A", "ls\n")
	assert.Equal(t, EntryInput, e.Kind)
	assert.Equal(t, "A", e.ClientID)
}
