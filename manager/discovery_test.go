package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jorenkoyen/swarmgate/manager/store"
	"github.com/jorenkoyen/swarmgate/manager/types"
)

type fakeLister struct {
	services []types.DiscoveredService
	err      error
}

func (f *fakeLister) ProxiedServices(_ context.Context) ([]types.DiscoveredService, error) {
	return f.services, f.err
}

func TestDiscovery_RunCycle(t *testing.T) {
	routes := newTestRoutes(t)
	lister := &fakeLister{services: []types.DiscoveredService{
		{Name: "webapp", Domain: "app.example.com", Port: 8080, Organization: "org1"},
		{Name: "blog", Domain: "blog.example.com", Port: 80},
	}}

	discovery := NewDiscovery(routes, lister)
	if err := discovery.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	target, ok := routes.Get("app.example.com")
	AssertEquals(t, true, ok)
	AssertEquals(t, "tasks.webapp:8080", target)

	target, ok = routes.Get("blog.example.com")
	AssertEquals(t, true, ok)
	AssertEquals(t, "tasks.blog:80", target)
}

func TestDiscovery_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	routes := NewRouteManager(store.NewFile(path))
	lister := &fakeLister{services: []types.DiscoveredService{
		{Name: "webapp", Domain: "app.example.com", Port: 8080},
		{Name: "blog", Domain: "blog.example.com", Port: 80},
	}}

	discovery := NewDiscovery(routes, lister)
	if err := discovery.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err = discovery.RunCycle(context.Background()); err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	AssertEquals(t, string(first), string(second))
}

func TestDiscovery_OrchestratorFailure(t *testing.T) {
	routes := newTestRoutes(t)
	routes.Upsert("existing.example.com", "10.0.0.1:80")

	discovery := NewDiscovery(routes, &fakeLister{err: errors.New("daemon unreachable")})
	if err := discovery.RunCycle(context.Background()); err == nil {
		t.Fatal("expected cycle error when orchestrator is unreachable")
	}

	// existing routes are untouched by a failing cycle
	target, ok := routes.Get("existing.example.com")
	AssertEquals(t, true, ok)
	AssertEquals(t, "10.0.0.1:80", target)
}

func TestDiscovery_MergePreservesManualRoutes(t *testing.T) {
	routes := newTestRoutes(t)
	routes.Upsert("manual.example.com", "10.0.0.1:80")

	discovery := NewDiscovery(routes, &fakeLister{services: []types.DiscoveredService{
		{Name: "webapp", Domain: "app.example.com", Port: 8080},
	}})
	if err := discovery.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	// merges are pure upserts, never deletions
	_, ok := routes.Get("manual.example.com")
	AssertEquals(t, true, ok)
	AssertEquals(t, 2, len(routes.Snapshot()))
}
