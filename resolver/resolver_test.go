package resolver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// fakeNetwork simulates DNS and TCP reachability for a fixed set of addresses.
type fakeNetwork struct {
	hosts map[string]bool // resolvable hostnames
	live  map[string]bool // dialable host:port addresses
}

func (f *fakeNetwork) install(r *Resolver) {
	r.lookup = func(_ context.Context, host string) ([]string, error) {
		if f.hosts[host] {
			return []string{"10.0.0.2"}, nil
		}
		return nil, errors.New("no such host")
	}
	r.dial = func(_ context.Context, address string) (net.Conn, error) {
		if f.live[address] {
			client, server := net.Pipe()
			go server.Close()
			return client, nil
		}
		return nil, errors.New("connection refused")
	}
}

func TestResolver_directStrategy(t *testing.T) {
	r := NewResolver()
	(&fakeNetwork{
		hosts: map[string]bool{"svc": true},
		live:  map[string]bool{"svc:8080": true},
	}).install(r)

	address, err := r.Resolve(context.Background(), "svc", 8080)
	if err != nil {
		t.Fatalf("expected resolution to succeed: %v", err)
	}
	AssertEquals(t, "svc:8080", address)
}

func TestResolver_tasksFallback(t *testing.T) {
	r := NewResolver()
	(&fakeNetwork{
		hosts: map[string]bool{"tasks.svc": true},
		live:  map[string]bool{"tasks.svc:9000": true},
	}).install(r)

	address, err := r.Resolve(context.Background(), "svc", 9000)
	if err != nil {
		t.Fatalf("expected resolution to succeed: %v", err)
	}
	AssertEquals(t, "tasks.svc:9000", address)
}

func TestResolver_ingressFallback(t *testing.T) {
	r := NewResolver()
	(&fakeNetwork{
		hosts: map[string]bool{"svc.ingress": true},
		live:  map[string]bool{"svc.ingress:80": true},
	}).install(r)

	address, err := r.Resolve(context.Background(), "svc", 80)
	if err != nil {
		t.Fatalf("expected resolution to succeed: %v", err)
	}
	AssertEquals(t, "svc.ingress:80", address)
}

func TestResolver_exhaustion(t *testing.T) {
	r := NewResolver()
	(&fakeNetwork{hosts: map[string]bool{}, live: map[string]bool{}}).install(r)

	_, err := r.Resolve(context.Background(), "missing", 80)
	if !errors.Is(err, ErrNoLiveCandidate) {
		t.Fatalf("expected ErrNoLiveCandidate, got: %v", err)
	}
}

func TestResolver_resolvableButNotDialable(t *testing.T) {
	// DNS answering without a listening socket must not count as live
	r := NewResolver()
	(&fakeNetwork{
		hosts: map[string]bool{"svc": true, "tasks.svc": true, "svc.ingress": true},
		live:  map[string]bool{},
	}).install(r)

	_, err := r.Resolve(context.Background(), "svc", 80)
	if !errors.Is(err, ErrNoLiveCandidate) {
		t.Fatalf("expected ErrNoLiveCandidate, got: %v", err)
	}
}

func TestResolver_probeTimeout(t *testing.T) {
	r := NewResolver()
	r.ProbeTimeout = 10 * time.Millisecond
	r.lookup = func(ctx context.Context, host string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	r.dial = func(_ context.Context, _ string) (net.Conn, error) {
		return nil, errors.New("unreachable")
	}

	start := time.Now()
	_, err := r.Resolve(context.Background(), "svc", 80)
	if !errors.Is(err, ErrNoLiveCandidate) {
		t.Fatalf("expected ErrNoLiveCandidate, got: %v", err)
	}

	// 5 strategies bounded by 10ms each, allow generous slack
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("resolution was not bounded by the probe timeout (took %s)", elapsed)
	}
}
