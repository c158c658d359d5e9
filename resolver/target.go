package resolver

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// TasksPrefix is the Docker Swarm DNS convention for resolving the task
// replicas of a named service.
const TasksPrefix = "tasks."

const DefaultPort = 80

// Target is the parsed form of a stored backend target string.
type Target struct {
	Host         string
	Port         int
	Organization string
}

// Address returns the dialable host:port form of the target.
func (t Target) Address() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// IsSwarmService reports whether a stored target refers to a swarm service
// rather than a literal network address. IP addresses always forward
// directly, they never go through service name resolution.
func IsSwarmService(target string) bool {
	if strings.HasPrefix(target, TasksPrefix) {
		return true
	}

	host := target
	if h, _, err := net.SplitHostPort(target); err == nil {
		host = h
	}
	if net.ParseIP(host) != nil {
		return false
	}

	return strings.Contains(host, ".")
}

// ParseTarget splits a stored backend target into its host, port and optional
// organization identifier. Supported forms:
//
//	tasks.service[:port]
//	org.service.network[:port]
//	service.network[:port]
//	host[:port]
//
// A missing or unparsable port defaults to 80. Organization-scoped and
// service.network forms are canonicalized to the tasks.<service> DNS name.
func ParseTarget(raw string) Target {
	host := raw
	port := DefaultPort

	if idx := strings.LastIndex(raw, ":"); idx != -1 {
		host = raw[:idx]
		if p, err := strconv.Atoi(raw[idx+1:]); err == nil {
			port = p
		}
	}

	if strings.HasPrefix(host, TasksPrefix) {
		return Target{Host: host, Port: port}
	}

	labels := strings.Split(host, ".")
	if len(labels) >= 3 && !isNumeric(labels[0]) {
		// org.service.network -> scope to the organization, resolve the service
		return Target{
			Host:         TasksPrefix + labels[1],
			Port:         port,
			Organization: labels[0],
		}
	}

	if len(labels) == 2 {
		// service.network
		return Target{Host: TasksPrefix + labels[0], Port: port}
	}

	return Target{Host: host, Port: port}
}

// CleanAddress strips trailing separator noise from a backend address and
// ensures it carries a port.
func CleanAddress(address string) string {
	cleaned := strings.TrimRight(address, ",; \t")
	if !strings.Contains(cleaned, ":") {
		return fmt.Sprintf("%s:%d", cleaned, DefaultPort)
	}
	return cleaned
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
