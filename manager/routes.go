package manager

import (
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/jorenkoyen/go-logger"
	"github.com/jorenkoyen/go-logger/log"
	"github.com/jorenkoyen/swarmgate/manager/store"
	"github.com/jorenkoyen/swarmgate/resolver"
)

// RouteManager owns the hostname to backend-target mapping that drives
// request dispatch. All access goes through its methods; the internal lock is
// only ever held for the in-memory map operation, never across persistence or
// name resolution.
type RouteManager struct {
	logger *logger.Logger
	store  *store.File

	mutex  sync.Mutex
	routes map[string]string
}

// NewRouteManager creates a routing table backed by the given store and
// populates it with the persisted state. Stored backend addresses are
// scrubbed of trailing separator noise on load.
func NewRouteManager(s *store.File) *RouteManager {
	m := &RouteManager{
		logger: log.WithName("route-mgr"),
		store:  s,
		routes: make(map[string]string),
	}

	for domain, target := range s.Load() {
		m.routes[normalizeDomain(domain)] = resolver.CleanAddress(target)
	}

	return m
}

// Get returns the backend target for the hostname. Hostnames are matched
// exactly after lowercasing; absence of a route is an expected state.
func (m *RouteManager) Get(hostname string) (string, bool) {
	hostname = normalizeDomain(hostname)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	target, ok := m.routes[hostname]
	return target, ok
}

// Upsert adds or overwrites the route for the hostname. Last write wins.
func (m *RouteManager) Upsert(hostname string, target string) {
	hostname = normalizeDomain(hostname)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.logger.Debugf("Registering route for domain=%s (target=%s)", hostname, target)
	m.routes[hostname] = target
}

// Remove deletes the route for the hostname and reports whether it existed.
func (m *RouteManager) Remove(hostname string) bool {
	hostname = normalizeDomain(hostname)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.routes[hostname]; !ok {
		return false
	}

	m.logger.Debugf("Removing route for domain=%s", hostname)
	delete(m.routes, hostname)
	return true
}

// Snapshot returns an owned copy of all current mappings, sorted by domain
// for stable persistence and listing output.
func (m *RouteManager) Snapshot() []store.Mapping {
	m.mutex.Lock()
	mappings := make([]store.Mapping, 0, len(m.routes))
	for domain, target := range m.routes {
		mappings = append(mappings, store.Mapping{From: domain, To: target})
	}
	m.mutex.Unlock()

	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].From < mappings[j].From
	})
	return mappings
}

// Domains returns all hostnames currently routed.
func (m *RouteManager) Domains() []string {
	snapshot := m.Snapshot()
	domains := make([]string, len(snapshot))
	for i, mapping := range snapshot {
		domains[i] = mapping.From
	}
	return domains
}

// Persist writes the full current snapshot to the durable store. A failure
// is reported to the caller but never rolls back the in-memory table; the
// running process stays authoritative even when the disk is not.
func (m *RouteManager) Persist() error {
	snapshot := m.Snapshot()

	// the write happens outside the lock, a slow disk must not block lookups
	if err := m.store.Save(snapshot); err != nil {
		m.logger.Errorf("Failed to persist routing table: %v", err)
		return err
	}
	return nil
}

// normalizeDomain lowercases the hostname and strips an optional port so
// table keys stay in canonical form.
func normalizeDomain(hostname string) string {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if host, _, err := net.SplitHostPort(hostname); err == nil {
		return host
	}
	return hostname
}
