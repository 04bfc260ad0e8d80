package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.MaxClients)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, 1000, cfg.Terminal.MaxBufferSize)
}

func TestLoadHonorsEnvOverride(t *testing.T) {
	os.Setenv("MCP_SERVER_PORT", "9999")
	os.Setenv("MCP_AUTH_ENABLED", "true")
	defer os.Unsetenv("MCP_SERVER_PORT")
	defer os.Unsetenv("MCP_AUTH_ENABLED")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.True(t, cfg.Auth.Enabled)
}
