// Package lifecycle implements the Lifecycle/Shutdown Controller (spec
// §4.6, component C10): graceful drain on shutdown and the periodic
// inactivity sweep across sessions and resources.
package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcp-collab/collabd/internal/connection"
	"github.com/mcp-collab/collabd/internal/logging"
	"github.com/mcp-collab/collabd/internal/notify"
)

// DefaultShutdownTimeout is used when Config.ShutdownTimeout is zero.
const DefaultShutdownTimeout = 5 * time.Second

// DefaultDrainPoll is how often Shutdown checks for drain completion.
const DefaultDrainPoll = 50 * time.Millisecond

// ShutdownInfo is the payload carried by the `server_shutdown` notification
// (spec §4.6).
type ShutdownInfo struct {
	Reason            string    `json:"reason"`
	Time              time.Time `json:"time"`
	PlannedRestart    bool      `json:"plannedRestart"`
	EstimatedDowntime string    `json:"estimatedDowntime,omitempty"`
}

// Controller drives the shutdown sequence and rejects new connections once
// shutdown begins.
type Controller struct {
	connections *connection.Manager
	dispatcher  *notify.Dispatcher
	timeout     time.Duration

	shuttingDown atomic.Bool
	cleanupMu    sync.Mutex
	cleanupHooks []func()
}

// New builds a Controller. A zero timeout uses DefaultShutdownTimeout.
func New(connections *connection.Manager, dispatcher *notify.Dispatcher, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	return &Controller{connections: connections, dispatcher: dispatcher, timeout: timeout}
}

// IsShuttingDown reports whether Shutdown has been initiated. The
// `connection` handler in internal/mcpserver consults this to reject new
// connections with SERVER_SHUTTING_DOWN (spec §4.6 step 1).
func (c *Controller) IsShuttingDown() bool { return c.shuttingDown.Load() }

// RegisterCleanupHook adds a hook invoked once, after the drain phase of the
// first Shutdown call (registration order); later calls run no hooks.
func (c *Controller) RegisterCleanupHook(hook func()) {
	c.cleanupMu.Lock()
	defer c.cleanupMu.Unlock()
	c.cleanupHooks = append(c.cleanupHooks, hook)
}

// Shutdown runs the sequence in spec §4.6. A second call while already
// shutting down is a no-op (idempotent).
func (c *Controller) Shutdown(reason string, plannedRestart bool, estimatedDowntime string) {
	if !c.shuttingDown.CompareAndSwap(false, true) {
		return
	}

	info := ShutdownInfo{Reason: reason, Time: time.Now(), PlannedRestart: plannedRestart, EstimatedDowntime: estimatedDowntime}

	clients := c.connections.Snapshot()
	var wg sync.WaitGroup
	for _, client := range clients {
		wg.Add(1)
		go func(clientID string) {
			defer wg.Done()
			c.dispatcher.NotifySessionParticipants([]string{clientID}, "", "", notify.EventServerShutdown, info)
		}(client.ClientID)
	}
	wg.Wait()

	c.drain()

	c.cleanupMu.Lock()
	hooks := append([]func(){}, c.cleanupHooks...)
	c.cleanupMu.Unlock()
	for _, hook := range hooks {
		hook()
	}
}

// drain races client-initiated disconnects against c.timeout (spec §4.6
// step 4).
func (c *Controller) drain() {
	deadline := time.Now().Add(c.timeout)
	ticker := time.NewTicker(DefaultDrainPoll)
	defer ticker.Stop()

	for {
		if c.connections.Count() == 0 {
			return
		}
		if time.Now().After(deadline) {
			logging.Warnf("lifecycle: shutdown drain timed out with %d client(s) still connected", c.connections.Count())
			return
		}
		<-ticker.C
	}
}

// RunCleanupSweep runs fn every interval until ctx is cancelled (spec §4.4
// "Cleanup sweep", cooperatively cancellable per spec §5).
func RunCleanupSweep(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
