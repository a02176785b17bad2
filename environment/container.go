package environment

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
)

// ContainerStarter runs the dependency as a single container. Ports use the docker
// "host:container" syntax and are bound to fixed host ports, so the dependency's health URL can
// be known in advance.
type ContainerStarter struct {
	Name  string
	Image string
	Ports []string
	Env   map[string]string
	Cmd   []string
}

func (c ContainerStarter) Describe() string {
	return fmt.Sprintf("container %s (ports %s)", c.Image, strings.Join(c.Ports, ", "))
}

func (c ContainerStarter) Start(ctx context.Context) (Handle, error) {
	exposed, bindings, err := nat.ParsePortSpecs(c.Ports)
	if err != nil {
		return nil, fmt.Errorf("invalid port mapping for %s: %w", c.Image, err)
	}
	exposedPorts := make([]string, 0, len(exposed))
	for p := range exposed {
		exposedPorts = append(exposedPorts, string(p))
	}
	req := testcontainers.ContainerRequest{
		Name:         c.Name,
		Image:        c.Image,
		ExposedPorts: exposedPorts,
		Env:          c.Env,
		Cmd:          c.Cmd,
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.PortBindings = bindings
		},
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start container %s: %w", c.Image, err)
	}
	return containerHandle{container: ctr}, nil
}

type containerHandle struct {
	container testcontainers.Container
}

func (h containerHandle) Stop(ctx context.Context) error {
	return h.container.Terminate(ctx)
}

func (h containerHandle) LogTail(ctx context.Context, n int) []string {
	logs, err := h.container.Logs(ctx)
	if err != nil {
		return []string{fmt.Sprintf("(could not read container logs: %s)", err)}
	}
	defer logs.Close() //nolint:errcheck
	return tailLines(logs, n)
}
