package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/jorenkoyen/swarmgate/manager"
	"github.com/jorenkoyen/swarmgate/manager/store"
	"github.com/jorenkoyen/swarmgate/resolver"
)

type capturedRequest struct {
	header http.Header
	host   string
}

// newEchoBackend starts a backend that records the forwarded request.
func newEchoBackend(t *testing.T, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := new(capturedRequest)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.header = r.Header.Clone()
		captured.host = r.Host
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(backend.Close)
	return backend, captured
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer()
	s.Routes = manager.NewRouteManager(store.NewFile(filepath.Join(t.TempDir(), "routes.json")))
	s.Resolver = resolver.NewResolver()
	s.WebrootDir = t.TempDir()
	return s
}

func backendAddress(t *testing.T, backend *httptest.Server) string {
	t.Helper()
	u, err := url.Parse(backend.URL)
	if err != nil {
		t.Fatal(err)
	}
	return u.Host
}

func TestDispatch_RouteHit(t *testing.T) {
	backend, captured := newEchoBackend(t, "routed")
	s := newTestServer(t)
	s.Routes.Upsert("example.com", backendAddress(t, backend))

	r := httptest.NewRequest(http.MethodGet, "http://example.com/page", nil)
	w := httptest.NewRecorder()
	s.handler(false).ServeHTTP(w, r)

	AssertEquals(t, http.StatusOK, w.Code)
	AssertEquals(t, "routed", w.Body.String())
	AssertEquals(t, "http", captured.header.Get("X-Forwarded-Proto"))
	AssertEquals(t, "swarmgate", captured.header.Get(HeaderProxySource))
	AssertEquals(t, "example.com", captured.host)
	if captured.header.Get(HeaderRequestID) == "" {
		t.Error("expected a trace id on the forwarded request")
	}
	if got := w.Header().Get("Server"); got == "" {
		t.Error("expected the Server header to be rewritten")
	}
}

func TestDispatch_RouteMissUsesDefaultBackend(t *testing.T) {
	backend, _ := newEchoBackend(t, "fallback")
	s := newTestServer(t)
	s.DefaultBackendAddress = backendAddress(t, backend)

	r := httptest.NewRequest(http.MethodGet, "http://unknown.example.com/", nil)
	w := httptest.NewRecorder()
	s.handler(false).ServeHTTP(w, r)

	// a missing route is invisible to the client
	AssertEquals(t, http.StatusOK, w.Code)
	AssertEquals(t, "fallback", w.Body.String())
}

func TestDispatch_SecureProtoHeader(t *testing.T) {
	backend, captured := newEchoBackend(t, "ok")
	s := newTestServer(t)
	s.Routes.Upsert("example.com", backendAddress(t, backend))

	r := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	w := httptest.NewRecorder()
	s.handler(true).ServeHTTP(w, r)

	AssertEquals(t, "https", captured.header.Get("X-Forwarded-Proto"))
}

func TestForward_OrganizationHeaders(t *testing.T) {
	backend, captured := newEchoBackend(t, "ok")
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "http://app.example.com/", nil)
	w := httptest.NewRecorder()
	s.forward(w, r, backendAddress(t, backend), false, resolver.Target{Organization: "org1"})

	AssertEquals(t, "org1", captured.header.Get(HeaderOrganizationID))
	AssertEquals(t, "strict", captured.header.Get(HeaderNetworkIsolation))
	AssertEquals(t, "enforced", captured.header.Get(HeaderOrganizationBoundary))
}

func TestAcmeChallenge_Served(t *testing.T) {
	s := newTestServer(t)
	dir := filepath.Join(s.WebrootDir, ".well-known", "acme-challenge")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "token123"), []byte("proof-content"), 0644); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodGet, "http://example.com/.well-known/acme-challenge/token123", nil)
	w := httptest.NewRecorder()
	s.handler(false).ServeHTTP(w, r)

	AssertEquals(t, http.StatusOK, w.Code)
	AssertEquals(t, "proof-content", w.Body.String())
	AssertEquals(t, "text/plain", w.Header().Get("Content-Type"))
}

func TestAcmeChallenge_MissingToken(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "http://example.com/.well-known/acme-challenge/absent", nil)
	w := httptest.NewRecorder()
	s.handler(false).ServeHTTP(w, r)

	AssertEquals(t, http.StatusNotFound, w.Code)
}

func TestAcmeChallenge_NotInterceptedOnSecureListener(t *testing.T) {
	backend, _ := newEchoBackend(t, "fallback")
	s := newTestServer(t)
	s.DefaultBackendAddress = backendAddress(t, backend)

	r := httptest.NewRequest(http.MethodGet, "https://example.com/.well-known/acme-challenge/token123", nil)
	w := httptest.NewRecorder()
	s.handler(true).ServeHTTP(w, r)

	// TLS traffic never carries challenges, the path routes like any other
	AssertEquals(t, "fallback", w.Body.String())
}
