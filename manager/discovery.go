package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/jorenkoyen/go-logger"
	"github.com/jorenkoyen/go-logger/log"
	"github.com/jorenkoyen/swarmgate/manager/types"
	"github.com/jorenkoyen/swarmgate/resolver"
)

// DefaultDiscoveryInterval is the time between reconciliation cycles.
const DefaultDiscoveryInterval = 30 * time.Second

// ServiceLister is the orchestrator boundary the reconciler polls. The real
// implementation lives in manager/docker; tests inject a fake.
type ServiceLister interface {
	ProxiedServices(ctx context.Context) ([]types.DiscoveredService, error)
}

// Discovery continuously reconciles the routing table against the swarm's
// live service inventory.
type Discovery struct {
	logger   *logger.Logger
	Routes   *RouteManager
	Services ServiceLister
	Interval time.Duration
}

func NewDiscovery(routes *RouteManager, services ServiceLister) *Discovery {
	return &Discovery{
		logger:   log.WithName("discovery"),
		Routes:   routes,
		Services: services,
		Interval: DefaultDiscoveryInterval,
	}
}

// Run polls the orchestrator until the context is cancelled. A failing cycle
// is logged and skipped; it never terminates the loop.
func (d *Discovery) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultDiscoveryInterval
	}

	d.logger.Infof("Starting service discovery (interval=%s)", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := d.RunCycle(ctx); err != nil {
			d.logger.Warningf("Discovery cycle failed, retrying next interval: %v", err)
		}

		select {
		case <-ctx.Done():
			d.logger.Trace("Shutting down service discovery")
			return
		case <-ticker.C:
		}
	}
}

// RunCycle performs one reconciliation pass: query the proxy-enabled swarm
// services, derive their routes and merge them into the routing table.
// Merges are pure upserts; running the same cycle twice against unchanged
// orchestrator state leaves the table byte-for-byte identical.
func (d *Discovery) RunCycle(ctx context.Context) error {
	services, err := d.Services.ProxiedServices(ctx)
	if err != nil {
		return fmt.Errorf("failed to query orchestrator: %w", err)
	}

	updated := 0
	for _, service := range services {
		target := fmt.Sprintf("%s%s:%d", resolver.TasksPrefix, service.Name, service.Port)
		d.logger.Tracef("Discovered service mapping: %s -> %s (org=%s)", service.Domain, target, service.Organization)

		if current, ok := d.Routes.Get(service.Domain); !ok || current != target {
			updated++
		}
		d.Routes.Upsert(service.Domain, target)
	}

	if updated > 0 {
		d.logger.Debugf("Reconciled %d route(s) from %d discovered service(s)", updated, len(services))
	}

	// persist once per cycle, not once per entry
	if err = d.Routes.Persist(); err != nil {
		return fmt.Errorf("failed to persist discovered routes: %w", err)
	}
	return nil
}
