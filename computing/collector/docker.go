package collector

import (
	"context"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"golang.org/x/xerrors"
)

// DockerAPI is the part of the docker client the collector uses.
type DockerAPI interface {
	ContainerList(ctx context.Context, options types.ContainerListOptions) ([]types.Container, error)
	ContainerInspect(ctx context.Context, container string) (types.ContainerJSON, error)
}

var _ DockerAPI = (*client.Client)(nil)

// NewDockerClient connects using the DOCKER_* environment.
func NewDockerClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, xerrors.Errorf("docker client: %w", err)
	}
	return cli, nil
}

type DockerSource struct {
	api DockerAPI
	now func() time.Time
}

func NewDockerSource(api DockerAPI) *DockerSource {
	return &DockerSource{api: api, now: time.Now}
}

func (d *DockerSource) Containers(ctx context.Context) ([]protocol.ContainerStatus, error) {
	list, err := d.api.ContainerList(ctx, types.ContainerListOptions{All: true})
	if err != nil {
		return nil, xerrors.Errorf("list containers: %w", err)
	}

	now := d.now().Unix()
	out := make([]protocol.ContainerStatus, 0, len(list))
	for _, c := range list {
		st := protocol.ContainerStatus{Status: dockerStatus(c.State)}
		if st.Running() {
			started, err := d.startedAt(ctx, c.ID)
			if err != nil {
				// the container may have gone away since the list
				logger.Debugf("inspect %s: %s", c.ID, err)
				continue
			}
			st.Uptime = uptimeSeconds(now, started)
		}
		out = append(out, st)
	}
	return out, nil
}

func (d *DockerSource) startedAt(ctx context.Context, id string) (int64, error) {
	info, err := d.api.ContainerInspect(ctx, id)
	if err != nil {
		return 0, err
	}
	if info.ContainerJSONBase == nil || info.State == nil {
		return 0, xerrors.Errorf("container %s has no state", id)
	}
	t, err := time.Parse(time.RFC3339Nano, info.State.StartedAt)
	if err != nil {
		return 0, xerrors.Errorf("container %s start time: %w", id, err)
	}
	return t.Unix(), nil
}

func dockerStatus(state string) int {
	switch state {
	case "running":
		return protocol.ContainerRunning
	case "paused":
		return StatusPaused
	case "restarting":
		return StatusRestarting
	}
	return StatusStopped
}
