// Package tool backs the `tool_invoke`/`tool_response` message pair
// (spec §6). Tool implementations are reached only through the opaque
// Invoker interface — anything heavier than the one workspace-provisioning
// tool wired here stays out of scope per spec §1.
package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcp-collab/collabd/internal/protoerr"
)

// Invoker runs one named tool with the given arguments and returns a result
// document.
type Invoker interface {
	Invoke(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Registry maps tool names to Invokers, dispatched by `tool_invoke.name`.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Invoker
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Invoker)}
}

// Register adds or replaces the Invoker for name.
func (r *Registry) Register(name string, inv Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = inv
}

// Invoke runs the named tool, returning RESOURCE_NOT_FOUND if unregistered
// and SERVER_ERROR if the tool itself fails.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (map[string]any, *protoerr.Error) {
	r.mu.RLock()
	inv, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, protoerr.New(protoerr.ResourceNotFound, name, fmt.Sprintf("no such tool %q", name))
	}
	result, err := inv.Invoke(ctx, args)
	if err != nil {
		return nil, protoerr.New(protoerr.ServerError, name, err.Error())
	}
	return result, nil
}
