package tool

import (
	"context"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDockerAPI struct {
	createFunc func(ctx context.Context, cfg *container.Config, host *container.HostConfig, netCfg *network.NetworkingConfig, platform *v1.Platform, name string) (container.CreateResponse, error)
	startFunc  func(ctx context.Context, id string, opts container.StartOptions) error
}

func (f *fakeDockerAPI) ContainerCreate(ctx context.Context, cfg *container.Config, host *container.HostConfig, netCfg *network.NetworkingConfig, platform *v1.Platform, name string) (container.CreateResponse, error) {
	return f.createFunc(ctx, cfg, host, netCfg, platform, name)
}

func (f *fakeDockerAPI) ContainerStart(ctx context.Context, id string, opts container.StartOptions) error {
	return f.startFunc(ctx, id, opts)
}

func TestWorkspaceProvisionerCreatesAndStartsContainer(t *testing.T) {
	t.Parallel()
	var createdName string
	api := &fakeDockerAPI{
		createFunc: func(_ context.Context, cfg *container.Config, _ *container.HostConfig, _ *network.NetworkingConfig, _ *v1.Platform, name string) (container.CreateResponse, error) {
			createdName = name
			assert.Equal(t, "workspace-img", cfg.Image)
			return container.CreateResponse{ID: "cid-1"}, nil
		},
		startFunc: func(_ context.Context, id string, _ container.StartOptions) error {
			assert.Equal(t, "cid-1", id)
			return nil
		},
	}
	w := NewWorkspaceProvisioner(api, "workspace-img")

	result, err := w.Invoke(context.Background(), map[string]any{"sessionId": "S1"})
	require.NoError(t, err)
	assert.Equal(t, "cid-1", result["containerId"])
	assert.Equal(t, "mcp-workspace-S1", createdName)
}

func TestWorkspaceProvisionerRequiresSessionID(t *testing.T) {
	t.Parallel()
	w := NewWorkspaceProvisioner(&fakeDockerAPI{}, "workspace-img")
	_, err := w.Invoke(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestRegistryInvokeUnknownTool(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	_, err := r.Invoke(context.Background(), "nope", nil)
	require.Error(t, err)
}
