// Package mcpserver assembles the ten components (C1–C10) into one
// *Server value (spec SPEC_FULL.md §2 "[ADDED]"), the way the teacher's
// pkg/mcp/server.New builds a *Server from a *Config rather than relying on
// package-scope globals.
package mcpserver

import (
	"context"
	"time"

	"github.com/mcp-collab/collabd/internal/auth"
	"github.com/mcp-collab/collabd/internal/config"
	"github.com/mcp-collab/collabd/internal/connection"
	"github.com/mcp-collab/collabd/internal/httpstatus"
	"github.com/mcp-collab/collabd/internal/lifecycle"
	"github.com/mcp-collab/collabd/internal/notify"
	"github.com/mcp-collab/collabd/internal/router"
	"github.com/mcp-collab/collabd/internal/session"
	"github.com/mcp-collab/collabd/internal/tool"
)

// Server holds every core component for one running instance of the
// collaboration fabric.
type Server struct {
	cfg *config.Config

	Connections *connection.Manager
	Auth        *auth.Authenticator
	Sessions    *session.Manager
	Notify      *notify.Dispatcher
	Router      *router.Router
	Lifecycle   *lifecycle.Controller
	Tools       *tool.Registry
	Metrics     *httpstatus.Metrics
}

// New assembles a Server from cfg and wires every message-type handler.
// ctx governs the pending-request store's expiry goroutine and should be
// the process's shutdown context; the cleanup sweep takes its own context
// in StartCleanupSweep. metrics may
// be nil, in which case the server runs without Prometheus instrumentation.
func New(ctx context.Context, cfg *config.Config, tools *tool.Registry, metrics *httpstatus.Metrics) *Server {
	connections := connection.NewManager(cfg.Server.MaxClients)
	connections.SetMetrics(metrics)
	authn := auth.NewAuthenticator(auth.Config{
		Enabled:           cfg.Auth.Enabled,
		TokenExpiration:   cfg.TokenExpiration(),
		RefreshExpiration: cfg.RefreshTokenExpiration(),
		JWTSigningKey:     []byte(cfg.Auth.JWTSigningKey),
	})
	sessions := session.NewManager(session.Config{
		TerminalBufferMaxSize:   cfg.Terminal.MaxBufferSize,
		EditorMaxHistorySize:    cfg.Editor.MaxHistorySize,
		ExtensionMaxHistorySize: cfg.Extension.MaxHistorySize,
	})
	sessions.SetMetrics(metrics)
	dispatcher := notify.New(connections)
	dispatcher.SetMetrics(metrics)
	lifecycleCtl := lifecycle.New(connections, dispatcher, cfg.ShutdownTimeout())

	limiter := router.NewRateLimiter(router.DefaultRateLimiterConfig)
	errTracker := router.NewErrorTracker(time.Minute, 20)
	errTracker.SetMetrics(metrics)
	r := router.New(ctx, connections, authn, limiter, errTracker)

	s := &Server{
		cfg:         cfg,
		Connections: connections,
		Auth:        authn,
		Sessions:    sessions,
		Notify:      dispatcher,
		Router:      r,
		Lifecycle:   lifecycleCtl,
		Tools:       tools,
		Metrics:     metrics,
	}
	s.registerHandlers()
	return s
}

// StartCleanupSweep runs the periodic session-eviction and
// resource-inactivity sweep (spec §4.4 "Cleanup sweep", §3 "inactivity
// eviction") until ctx is cancelled.
func (s *Server) StartCleanupSweep(ctx context.Context) {
	go lifecycle.RunCleanupSweep(ctx, s.cfg.SessionCleanupInterval(), func() {
		s.Sessions.EvictInactive(s.cfg.SessionInactivityTimeout())
		s.Sessions.CleanupInactive(
			s.cfg.TerminalInactivityTimeout(),
			s.cfg.EditorInactivityTimeout(),
			s.cfg.ExtensionInactivityTimeout(),
			24*time.Hour,
		)
	})
}

// IsShuttingDown reports whether graceful shutdown has begun (used to gate
// new connections and to answer the ambient health probe).
func (s *Server) IsShuttingDown() bool { return s.Lifecycle.IsShuttingDown() }
