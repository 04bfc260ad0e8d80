package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Method is the authMethod value presented in an `authenticate` request
// (spec §4.2).
type Method string

// Method values.
const (
	MethodToken Method = "token"
	MethodOAuth Method = "oauth"
)

// DefaultServerID is used when the deployment has a single logical server
// identity — the common case for this collaboration fabric, which does not
// multiplex multiple Auth Registry tenants per spec §3.
const DefaultServerID = "default"

// Result is what a successful authenticate/token_refresh call returns to the
// caller (spec §4.2): the granted permission set, the new expiry, and an
// optional refresh token.
type Result struct {
	Permissions     []string
	TokenValidUntil time.Time
	RefreshToken    string
}

// Config configures the server's accepted credentials.
type Config struct {
	Enabled             bool
	TokenExpiration     time.Duration
	RefreshExpiration   time.Duration
	// JWTSigningKey validates MethodOAuth bearer tokens when non-empty.
	// A MethodOAuth authenticate request whose claims validate yields
	// permissions from the token's "permissions"/"scope" claim.
	JWTSigningKey []byte
}

// Authenticator wraps a Registry with the authenticate/refresh/validate
// request semantics of spec §4.2.
type Authenticator struct {
	cfg      Config
	registry *Registry
}

// NewAuthenticator builds an Authenticator. cfg.Enabled only drives
// Enabled(); Authenticate verifies the presented credential either way
// (with auth disabled, clients are marked authenticated at connect
// instead, spec §4.2 "With auth disabled").
func NewAuthenticator(cfg Config) *Authenticator {
	return &Authenticator{cfg: cfg, registry: NewRegistry()}
}

// Enabled reports whether authentication is required.
func (a *Authenticator) Enabled() bool { return a.cfg.Enabled }

// IssueToken registers a freshly-minted opaque token for DefaultServerID,
// used when the server itself is the source of truth for credentials
// (development/shared-secret deployments).
func (a *Authenticator) IssueToken(token string) {
	expiry := time.Now().Add(a.cfg.TokenExpiration)
	a.registry.SetToken(DefaultServerID, token, &expiry)
}

// Authenticate validates an authenticate{token, authMethod} request.
func (a *Authenticator) Authenticate(method Method, token string) (*Result, error) {
	switch method {
	case MethodToken:
		return a.authenticateOpaqueToken(token)
	case MethodOAuth:
		return a.authenticateJWT(token)
	default:
		return nil, fmt.Errorf("unsupported auth method %q", method)
	}
}

func (a *Authenticator) authenticateOpaqueToken(token string) (*Result, error) {
	ok, err := a.registry.Verify(DefaultServerID, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("token verification failed")
	}
	validUntil := time.Now().Add(a.cfg.TokenExpiration)
	refresh := newOpaqueSecret()
	a.registry.SetRefreshToken(DefaultServerID, refresh)
	return &Result{
		Permissions:     []string{"session:*", "terminal:*", "editor:*", "extension:*"},
		TokenValidUntil: validUntil,
		RefreshToken:    refresh,
	}, nil
}

func (a *Authenticator) authenticateJWT(tokenString string) (*Result, error) {
	if len(a.cfg.JWTSigningKey) == 0 {
		return nil, fmt.Errorf("oauth authentication is not configured")
	}
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.cfg.JWTSigningKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid oauth token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("oauth token missing expiration")
	}

	var permissions []string
	if raw, ok := claims["permissions"].([]interface{}); ok {
		for _, p := range raw {
			if s, ok := p.(string); ok {
				permissions = append(permissions, s)
			}
		}
	}
	if len(permissions) == 0 {
		if scope, ok := claims["scope"].(string); ok {
			permissions = strings.Fields(scope)
		}
	}
	if len(permissions) == 0 {
		permissions = []string{"session:read"}
	}

	return &Result{
		Permissions:     permissions,
		TokenValidUntil: exp.Time,
	}, nil
}

// RefreshOpaqueToken handles a token_refresh request for the opaque-token
// method: it rotates the stored token and issues a fresh expiry.
func (a *Authenticator) RefreshOpaqueToken(newToken string) (*Result, error) {
	validUntil := time.Now().Add(a.cfg.TokenExpiration)
	if err := a.registry.RefreshToken(DefaultServerID, newToken, &validUntil); err != nil {
		return nil, err
	}
	refresh := newOpaqueSecret()
	a.registry.SetRefreshToken(DefaultServerID, refresh)
	return &Result{
		Permissions:     []string{"session:*", "terminal:*", "editor:*", "extension:*"},
		TokenValidUntil: validUntil,
		RefreshToken:    refresh,
	}, nil
}

// IsAboutToExpire reports whether the configured token is near expiry.
func (a *Authenticator) IsAboutToExpire(threshold time.Duration) bool {
	return a.registry.IsTokenAboutToExpire(DefaultServerID, threshold)
}
