package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySetAndVerify(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.SetToken("srv1", "secret-token", nil)

	ok, err := r.Verify("srv1", "secret-token")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Verify("srv1", "wrong-token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistryUnknownServer(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Verify("missing", "anything")
	assert.ErrorIs(t, err, ErrUnknownServer)
}

func TestRegistryExpiry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	past := time.Now().Add(-time.Second)
	r.SetToken("srv1", "secret-token", &past)

	_, err := r.GetTokenHash("srv1")
	assert.ErrorIs(t, err, ErrTokenExpired)

	// Evicted: a second lookup reports unknown, not expired.
	_, err = r.GetTokenHash("srv1")
	assert.ErrorIs(t, err, ErrUnknownServer)
}

func TestIsTokenAboutToExpire(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	soon := time.Now().Add(5 * time.Second)
	r.SetToken("srv1", "secret-token", &soon)

	assert.True(t, r.IsTokenAboutToExpire("srv1", 10*time.Second))
	assert.False(t, r.IsTokenAboutToExpire("srv1", time.Second))
}

func TestRefreshTokenAtomicallyReplaces(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.SetToken("srv1", "old-token", nil)

	future := time.Now().Add(time.Hour)
	require.NoError(t, r.RefreshToken("srv1", "new-token", &future))

	ok, err := r.Verify("srv1", "old-token")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Verify("srv1", "new-token")
	require.NoError(t, err)
	assert.True(t, ok)
}
