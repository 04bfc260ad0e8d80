package tool

import (
	"context"
	"fmt"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// dockerAPI is the slice of the docker client this package depends on,
// mirrored as an interface so tests can substitute a fake (the shape the
// teacher's container/docker client tests use against their own `api`
// abstraction).
type dockerAPI interface {
	ContainerCreate(ctx context.Context, cfg *container.Config, host *container.HostConfig, netCfg *network.NetworkingConfig, platform *v1.Platform, name string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, id string, opts container.StartOptions) error
}

// WorkspaceProvisioner implements the `workspace_provision` tool: it starts
// a container hosting a remote editor/terminal backend for a session. It is
// the one concrete tool reachable through `tool_invoke` (spec §1 explicitly
// keeps anything heavier, e.g. cloud-provider SDKs, out of scope).
type WorkspaceProvisioner struct {
	api   dockerAPI
	image string
}

// NewWorkspaceProvisioner builds a WorkspaceProvisioner using image for
// every provisioned workspace container.
func NewWorkspaceProvisioner(api dockerAPI, image string) *WorkspaceProvisioner {
	return &WorkspaceProvisioner{api: api, image: image}
}

// Invoke provisions one workspace container for args["sessionId"]. It
// returns the container ID and the exposed port.
func (w *WorkspaceProvisioner) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	sessionID, _ := args["sessionId"].(string)
	if sessionID == "" {
		return nil, fmt.Errorf("workspace_provision requires a sessionId argument")
	}

	port := "39378/tcp"
	exposedPorts := nat.PortSet{nat.Port(port): struct{}{}}
	portBindings := nat.PortMap{nat.Port(port): []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: "0"}}}

	cfg := &container.Config{
		Image: w.image,
		Labels: map[string]string{
			"mcp-collab.session-id": sessionID,
			"mcp-collab.role":       "workspace",
		},
		ExposedPorts: exposedPorts,
	}
	hostCfg := &container.HostConfig{
		PortBindings: portBindings,
		AutoRemove:   true,
	}
	netCfg := &network.NetworkingConfig{}

	name := "mcp-workspace-" + sessionID
	resp, err := w.api.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, name)
	if err != nil {
		return nil, fmt.Errorf("creating workspace container: %w", err)
	}
	if err := w.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("starting workspace container: %w", err)
	}

	return map[string]any{
		"containerId": resp.ID,
		"port":        strconv.Itoa(39378),
	}, nil
}
