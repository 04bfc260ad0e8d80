// Package config loads the server's runtime configuration (spec §6
// "Configuration") via github.com/spf13/viper, layering a config file,
// environment variables, and flag-bound defaults the way the teacher's
// cmd/thv/app commands do for its own config keys.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved set of options from spec §6's table.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Session   SessionConfig
	Terminal  TerminalConfig
	Editor    EditorConfig
	Extension ExtensionConfig
}

// ServerConfig is the `server.*` group.
type ServerConfig struct {
	Port              int
	Host              string
	MaxClients        int
	ShutdownTimeoutMs int
}

// AuthConfig is the `auth.*` group.
type AuthConfig struct {
	Enabled                       bool
	TokenExpirationSeconds        int
	RefreshTokenExpirationSeconds int
	// JWTSigningKey validates authMethod:"oauth" bearer tokens (spec §4.2).
	// Sourced from auth.jwtSigningKey / MCP_AUTH_JWTSIGNINGKEY; oauth
	// authentication is rejected while this is empty.
	JWTSigningKey string
}

// SessionConfig is the `session.*` group.
type SessionConfig struct {
	InactivityTimeoutMs int
	CleanupIntervalMs   int
}

// TerminalConfig is the `terminal.*` group.
type TerminalConfig struct {
	MaxBufferSize       int
	InactivityTimeoutMs int
}

// EditorConfig is the `editor.*` group.
type EditorConfig struct {
	MaxHistorySize      int
	InactivityTimeoutMs int
}

// ExtensionConfig is the `extension.*` group.
type ExtensionConfig struct {
	MaxHistorySize      int
	InactivityTimeoutMs int
}

// setDefaults installs spec §6's documented defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.maxClients", 10)
	v.SetDefault("server.shutdownTimeoutMs", 5000)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.tokenExpirationSeconds", 3600)
	v.SetDefault("auth.refreshTokenExpirationSeconds", 86400)
	v.SetDefault("auth.jwtSigningKey", "")

	v.SetDefault("session.inactivityTimeoutMs", 86_400_000)
	v.SetDefault("session.cleanupIntervalMs", 3_600_000)

	v.SetDefault("terminal.maxBufferSize", 1000)
	v.SetDefault("terminal.inactivityTimeoutMs", 3_600_000)

	v.SetDefault("editor.maxHistorySize", 100)
	v.SetDefault("editor.inactivityTimeoutMs", 3_600_000)

	v.SetDefault("extension.maxHistorySize", 20)
	v.SetDefault("extension.inactivityTimeoutMs", 86_400_000)
}

// Load resolves configuration from (in ascending priority) defaults, an
// optional config file at path, and `MCP_`-prefixed environment variables
// (e.g. MCP_SERVER_PORT overrides server.port), matching the teacher's
// viper.AutomaticEnv + SetEnvKeyReplacer convention. server.port and
// server.host also accept the short MCP_PORT / MCP_HOST names.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "MCP_SERVER_PORT", "MCP_PORT")
	_ = v.BindEnv("server.host", "MCP_SERVER_HOST", "MCP_HOST")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:              v.GetInt("server.port"),
			Host:              v.GetString("server.host"),
			MaxClients:        v.GetInt("server.maxClients"),
			ShutdownTimeoutMs: v.GetInt("server.shutdownTimeoutMs"),
		},
		Auth: AuthConfig{
			Enabled:                       v.GetBool("auth.enabled"),
			TokenExpirationSeconds:        v.GetInt("auth.tokenExpirationSeconds"),
			RefreshTokenExpirationSeconds: v.GetInt("auth.refreshTokenExpirationSeconds"),
			JWTSigningKey:                 v.GetString("auth.jwtSigningKey"),
		},
		Session: SessionConfig{
			InactivityTimeoutMs: v.GetInt("session.inactivityTimeoutMs"),
			CleanupIntervalMs:   v.GetInt("session.cleanupIntervalMs"),
		},
		Terminal: TerminalConfig{
			MaxBufferSize:       v.GetInt("terminal.maxBufferSize"),
			InactivityTimeoutMs: v.GetInt("terminal.inactivityTimeoutMs"),
		},
		Editor: EditorConfig{
			MaxHistorySize:      v.GetInt("editor.maxHistorySize"),
			InactivityTimeoutMs: v.GetInt("editor.inactivityTimeoutMs"),
		},
		Extension: ExtensionConfig{
			MaxHistorySize:      v.GetInt("extension.maxHistorySize"),
			InactivityTimeoutMs: v.GetInt("extension.inactivityTimeoutMs"),
		},
	}, nil
}

// ShutdownTimeout returns server.shutdownTimeoutMs as a time.Duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutMs) * time.Millisecond
}

// TokenExpiration returns auth.tokenExpirationSeconds as a time.Duration.
func (c *Config) TokenExpiration() time.Duration {
	return time.Duration(c.Auth.TokenExpirationSeconds) * time.Second
}

// RefreshTokenExpiration returns auth.refreshTokenExpirationSeconds as a
// time.Duration.
func (c *Config) RefreshTokenExpiration() time.Duration {
	return time.Duration(c.Auth.RefreshTokenExpirationSeconds) * time.Second
}

// SessionInactivityTimeout returns session.inactivityTimeoutMs as a
// time.Duration.
func (c *Config) SessionInactivityTimeout() time.Duration {
	return time.Duration(c.Session.InactivityTimeoutMs) * time.Millisecond
}

// SessionCleanupInterval returns session.cleanupIntervalMs as a
// time.Duration.
func (c *Config) SessionCleanupInterval() time.Duration {
	return time.Duration(c.Session.CleanupIntervalMs) * time.Millisecond
}

// TerminalInactivityTimeout returns terminal.inactivityTimeoutMs as a
// time.Duration.
func (c *Config) TerminalInactivityTimeout() time.Duration {
	return time.Duration(c.Terminal.InactivityTimeoutMs) * time.Millisecond
}

// EditorInactivityTimeout returns editor.inactivityTimeoutMs as a
// time.Duration.
func (c *Config) EditorInactivityTimeout() time.Duration {
	return time.Duration(c.Editor.InactivityTimeoutMs) * time.Millisecond
}

// ExtensionInactivityTimeout returns extension.inactivityTimeoutMs as a
// time.Duration.
func (c *Config) ExtensionInactivityTimeout() time.Duration {
	return time.Duration(c.Extension.InactivityTimeoutMs) * time.Millisecond
}
