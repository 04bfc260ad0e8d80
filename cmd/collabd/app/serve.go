package app

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mcp-collab/collabd/internal/config"
	"github.com/mcp-collab/collabd/internal/httpstatus"
	"github.com/mcp-collab/collabd/internal/logging"
	"github.com/mcp-collab/collabd/internal/mcpserver"
	"github.com/mcp-collab/collabd/internal/tool"
	"github.com/mcp-collab/collabd/internal/transport"
)

const defaultWorkspaceImage = "ghcr.io/mcp-collab/workspace:latest"

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the collabd collaboration-fabric server",
		Long: `Start the collabd server: it accepts client connections over a
newline-delimited JSON protocol, dispatches session, terminal, editor, and
extension messages, and serves a liveness probe and Prometheus metrics on a
separate HTTP port.`,
		RunE: runServe,
	}

	cmd.Flags().String("metrics-addr", ":9090", "Address for the health/metrics HTTP server")
	cmd.Flags().String("workspace-image", defaultWorkspaceImage, "Container image used by the workspace_provision tool")
	if err := viper.BindPFlag("metricsAddr", cmd.Flags().Lookup("metrics-addr")); err != nil {
		logging.Errorf("error binding metrics-addr flag: %v", err)
	}
	if err := viper.BindPFlag("workspaceImage", cmd.Flags().Lookup("workspace-image")); err != nil {
		logging.Errorf("error binding workspace-image flag: %v", err)
	}

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	tools := tool.NewRegistry()
	if dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation()); err != nil {
		logging.Warnf("docker client unavailable, workspace_provision will be disabled: %v", err)
	} else {
		tools.Register("workspace_provision", tool.NewWorkspaceProvisioner(dockerClient, viper.GetString("workspaceImage")))
	}

	registry := prometheus.NewRegistry()
	metrics := httpstatus.NewMetrics(registry)

	srv := mcpserver.New(ctx, cfg, tools, metrics)
	srv.StartCleanupSweep(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := transport.NewListener(addr, srv)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}

	statusSrv := httpstatus.NewServer(viper.GetString("metricsAddr"), registry, srv)

	go func() {
		logging.Infof("collabd listening for clients on %s", addr)
		if err := listener.Serve(ctx); err != nil {
			logging.Errorf("transport listener stopped: %v", err)
		}
	}()
	go func() {
		logging.Infof("collabd health/metrics listening on %s", viper.GetString("metricsAddr"))
		if err := statusSrv.ListenAndServe(); err != nil {
			logging.Debugf("health/metrics server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logging.Infof("collabd shutting down")

	srv.Lifecycle.Shutdown("server restarting", false, "")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout()+5*time.Second)
	defer cancel()
	if err := httpstatus.Shutdown(shutdownCtx, statusSrv); err != nil {
		logging.Warnf("error shutting down health/metrics server: %v", err)
	}
	_ = listener.Close()

	return nil
}
