package docker

import (
	"github.com/docker/go-connections/nat"
	"github.com/jorenkoyen/swarmgate/manager/types"
)

// Labels recognised on swarm services. Only services carrying
// LabelProxyEnabled=true are considered; LabelDomain is mandatory for a
// service to be routable.
const (
	LabelProxyEnabled = "proxy-enabled"
	LabelDomain       = "proxy.domain"
	LabelPort         = "proxy.port"
	LabelOrganization = "org.id"

	DefaultServicePort = 80
)

// ParseService reduces a swarm service spec to a DiscoveredService. It
// returns false when the service is missing the mandatory domain label.
func ParseService(name string, labels map[string]string) (types.DiscoveredService, bool) {
	domain, ok := labels[LabelDomain]
	if !ok || domain == "" || name == "" {
		return types.DiscoveredService{}, false
	}

	return types.DiscoveredService{
		Name:         name,
		Domain:       domain,
		Port:         parsePort(labels[LabelPort]),
		Organization: labels[LabelOrganization],
	}, true
}

// parsePort reads the port label, falling back to the default on absence or
// malformed input.
func parsePort(raw string) int {
	if raw == "" {
		return DefaultServicePort
	}

	port, err := nat.ParsePort(raw)
	if err != nil || port == 0 {
		return DefaultServicePort
	}
	return port
}
