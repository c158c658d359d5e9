package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jorenkoyen/go-logger"
	"github.com/jorenkoyen/go-logger/log"
)

// DefaultProbeTimeout bounds the TCP liveness probe for a single candidate.
// Swarm DNS entries can lag service creation, a hanging probe must never
// stall the request for longer than this.
const DefaultProbeTimeout = 2 * time.Second

var ErrNoLiveCandidate = errors.New("no resolution strategy produced a live backend")

// strategy produces one candidate address for a service name.
type strategy struct {
	name      string
	candidate func(service string, port int) string
}

// strategies is the fixed order in which candidate forms are tried. Swarm DNS
// conventions differ between overlay networks and ingress routing meshes, so
// progressively more specific forms are attempted until one answers.
var strategies = []strategy{
	{"direct", func(s string, _ int) string {
		return s
	}},
	{"direct-port", func(s string, p int) string {
		return fmt.Sprintf("%s:%d", s, p)
	}},
	{"tasks", func(s string, _ int) string {
		return withTasksPrefix(s)
	}},
	{"tasks-port", func(s string, p int) string {
		return fmt.Sprintf("%s:%d", withTasksPrefix(s), p)
	}},
	{"ingress", func(s string, p int) string {
		return fmt.Sprintf("%s.ingress:%d", strings.TrimPrefix(s, TasksPrefix), p)
	}},
}

// Resolver resolves swarm service names to concrete, reachable addresses.
type Resolver struct {
	logger *logger.Logger

	// ProbeTimeout overrides the connect-liveness timeout when set.
	ProbeTimeout time.Duration

	// lookup and dial are swapped out by tests.
	lookup func(ctx context.Context, host string) ([]string, error)
	dial   func(ctx context.Context, address string) (net.Conn, error)
}

func NewResolver() *Resolver {
	r := &Resolver{
		logger:       log.WithName("resolver"),
		ProbeTimeout: DefaultProbeTimeout,
	}
	r.lookup = func(ctx context.Context, host string) ([]string, error) {
		return net.DefaultResolver.LookupHost(ctx, host)
	}
	r.dial = func(ctx context.Context, address string) (net.Conn, error) {
		d := net.Dialer{}
		return d.DialContext(ctx, "tcp", address)
	}
	return r
}

// Resolve tries every strategy in order until a candidate both resolves via
// DNS and accepts a TCP connection. It returns the live host:port address.
// Exhausting all strategies is a resolution failure; the caller is expected
// to degrade to its default backend instead of failing the request.
func (r *Resolver) Resolve(ctx context.Context, service string, defaultPort int) (string, error) {
	if defaultPort <= 0 {
		defaultPort = DefaultPort
	}

	seen := make(map[string]bool)
	for _, s := range strategies {
		candidate := s.candidate(service, defaultPort)
		address := ensurePort(candidate, defaultPort)
		if seen[address] {
			continue
		}
		seen[address] = true

		if r.probe(ctx, address) {
			r.logger.Debugf("Resolved service=%s to address=%s (strategy=%s)", service, address, s.name)
			return address, nil
		}

		r.logger.Tracef("Strategy=%s yielded no live backend for service=%s (candidate=%s)", s.name, service, address)
	}

	return "", fmt.Errorf("%w: service=%s", ErrNoLiveCandidate, service)
}

// probe checks that the address resolves and accepts a TCP connection within
// the probe timeout.
func (r *Resolver) probe(ctx context.Context, address string) bool {
	timeout := r.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return false
	}

	if _, err = r.lookup(ctx, host); err != nil {
		return false
	}

	conn, err := r.dial(ctx, address)
	if err != nil {
		return false
	}

	_ = conn.Close()
	return true
}

// ValidateTenantAccess reports whether the resolved service name is plausibly
// reachable for the given organization. This is a textual, advisory check
// only; real isolation is enforced by the overlay network boundary.
func ValidateTenantAccess(resolved string, organization string) bool {
	if organization == "" {
		return false
	}

	if strings.Contains(resolved, organization) || strings.HasPrefix(resolved, TasksPrefix) {
		return true
	}

	// default to deny
	return false
}

func withTasksPrefix(service string) string {
	if strings.HasPrefix(service, TasksPrefix) {
		return service
	}
	return TasksPrefix + service
}

func ensurePort(candidate string, port int) string {
	if _, _, err := net.SplitHostPort(candidate); err == nil {
		return candidate
	}
	return fmt.Sprintf("%s:%d", candidate, port)
}
