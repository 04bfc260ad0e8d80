package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatorOpaqueTokenFlow(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator(Config{Enabled: true, TokenExpiration: time.Hour})
	a.IssueToken("shared-secret")

	res, err := a.Authenticate(MethodToken, "shared-secret")
	require.NoError(t, err)
	assert.NotEmpty(t, res.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.TokenValidUntil, 5*time.Second)

	_, err = a.Authenticate(MethodToken, "wrong-secret")
	assert.Error(t, err)
}

func TestAuthenticatorRefresh(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator(Config{Enabled: true, TokenExpiration: time.Minute})
	a.IssueToken("shared-secret")
	_, err := a.Authenticate(MethodToken, "shared-secret")
	require.NoError(t, err)

	res, err := a.RefreshOpaqueToken("rotated-secret")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), res.TokenValidUntil, 5*time.Second)

	_, err = a.Authenticate(MethodToken, "shared-secret")
	assert.Error(t, err, "old token must be rejected after rotation")

	_, err = a.Authenticate(MethodToken, "rotated-secret")
	assert.NoError(t, err)
}

func TestAuthenticatorDisabled(t *testing.T) {
	t.Parallel()
	a := NewAuthenticator(Config{Enabled: false})
	assert.False(t, a.Enabled())
}
