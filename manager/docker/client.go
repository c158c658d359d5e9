package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/jorenkoyen/go-logger"
	"github.com/jorenkoyen/go-logger/log"
	swarmgate "github.com/jorenkoyen/swarmgate/manager/types"
)

// Client wraps the docker daemon API for swarm service discovery.
type Client struct {
	logger *logger.Logger
	docker *client.Client
}

// NewClient will connect to the docker daemon on the given endpoint. An empty
// endpoint falls back to the environment configuration (DOCKER_HOST et al).
func NewClient(endpoint string) (*Client, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if endpoint == "" {
		opts = append(opts, client.FromEnv)
	} else {
		opts = append(opts, client.WithHost(endpoint))
	}

	docker, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &Client{
		logger: log.WithName("docker"),
		docker: docker,
	}, nil
}

// ProxiedServices returns all swarm services carrying the proxy-enabled
// label, reduced to the fields the reconciler cares about.
func (c *Client) ProxiedServices(ctx context.Context) ([]swarmgate.DiscoveredService, error) {
	args := filters.NewArgs(filters.Arg("label", LabelProxyEnabled+"=true"))
	services, err := c.docker.ServiceList(ctx, types.ServiceListOptions{Filters: args})
	if err != nil {
		return nil, fmt.Errorf("failed to list swarm services: %w", err)
	}

	discovered := make([]swarmgate.DiscoveredService, 0, len(services))
	for _, service := range services {
		parsed, ok := ParseService(service.Spec.Name, service.Spec.Labels)
		if !ok {
			c.logger.Tracef("Skipping service=%s, no usable proxy labels", service.Spec.Name)
			continue
		}

		discovered = append(discovered, parsed)
	}

	return discovered, nil
}

// Close will close the open connection to the docker daemon.
func (c *Client) Close() error {
	if c.docker != nil {
		return c.docker.Close()
	}
	return nil
}
