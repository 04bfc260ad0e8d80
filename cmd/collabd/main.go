// Package main is the entry point for the collabd collaboration-fabric
// server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcp-collab/collabd/cmd/collabd/app"
	"github.com/mcp-collab/collabd/internal/logging"
)

func main() {
	logging.Initialize()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		logging.Errorf("collabd exited with error: %v", err)
		os.Exit(1)
	}
}
