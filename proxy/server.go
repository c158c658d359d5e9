package proxy

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/google/uuid"
	"github.com/jorenkoyen/go-logger"
	"github.com/jorenkoyen/go-logger/log"
	"github.com/jorenkoyen/swarmgate/manager"
	"github.com/jorenkoyen/swarmgate/resolver"
	"github.com/jorenkoyen/swarmgate/version"

	defaultLog "log"
)

const (
	AddressHTTP  = "0.0.0.0:80"
	AddressHTTPS = "0.0.0.0:443"

	// DefaultBackend receives requests for hostnames without a route, so a
	// missing route is indistinguishable from a configured one upstream.
	DefaultBackend = "127.0.0.1:5500"
)

// Headers attached to forwarded requests.
const (
	HeaderOrganizationID       = "X-Organization-ID"
	HeaderNetworkIsolation     = "X-Network-Isolation"
	HeaderOrganizationBoundary = "X-Organization-Boundary"
	HeaderProxySource          = "X-Proxy-Source"
	HeaderRequestID            = "X-Request-ID"
)

// Server is the reverse proxy dispatching requests by hostname. The same
// dispatch logic backs both listeners; only the challenge interception and
// the forwarded-protocol header differ between HTTP and HTTPS.
type Server struct {
	logger       *logger.Logger
	Routes       *manager.RouteManager
	Resolver     *resolver.Resolver
	Certificates *manager.CertificateManager

	// DefaultBackendAddress overrides DefaultBackend when set.
	DefaultBackendAddress string

	// WebrootDir holds ACME HTTP-01 challenge proofs served on the
	// insecure listener.
	WebrootDir string
}

func NewServer() *Server {
	return &Server{
		logger: log.WithName("proxy"),
	}
}

// SetLogLevel overrides the log level for the reverse proxy logger.
func (s *Server) SetLogLevel(l logger.Level) {
	s.logger.SetLogLevel(l)
}

// handler returns the request handler for one listener role.
func (s *Server) handler(secure bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !secure && s.IsAcmeChallenge(r) {
			// TLS-terminated traffic never carries challenges
			s.HandleAcmeChallenge(w, r)
			return
		}

		s.dispatch(w, r, secure)
	})
}

// dispatch resolves the request's hostname to a backend and proxies the
// request through. Route misses and resolution failures degrade to the
// default backend; end clients never see a gateway error for an unknown
// hostname.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, secure bool) {
	hostname := ExtractDomain(r.Host)

	// copy the target out of the shared table before any operation that can
	// block; the table lock must never cover name resolution
	target, ok := s.Routes.Get(hostname)
	if !ok {
		s.logger.Debugf("No route found for domain=%s, using default backend", hostname)
		s.forward(w, r, s.defaultBackend(), secure, resolver.Target{})
		return
	}

	if !resolver.IsSwarmService(target) {
		s.forward(w, r, resolver.CleanAddress(target), secure, resolver.Target{})
		return
	}

	parsed := resolver.ParseTarget(target)
	address, err := s.Resolver.Resolve(r.Context(), parsed.Host, parsed.Port)
	if err != nil {
		s.logger.Warningf("Failed to resolve target=%s for domain=%s, using default backend: %v", target, hostname, err)
		s.forward(w, r, s.defaultBackend(), secure, resolver.Target{})
		return
	}

	if parsed.Organization != "" && !resolver.ValidateTenantAccess(address, parsed.Organization) {
		// advisory check only, isolation is enforced by the overlay network
		s.logger.Warningf("Service address=%s is not authorized for org=%s", address, parsed.Organization)
	}

	s.logger.Tracef("Routing request for domain=%s to backend=%s (method=%s, path=%s)", hostname, address, r.Method, r.URL.Path)
	s.forward(w, r, address, secure, parsed)
}

// forward proxies the request to the backend address, attaching scope and
// trace headers.
func (s *Server) forward(w http.ResponseWriter, r *http.Request, address string, secure bool, target resolver.Target) {
	endpoint, err := url.Parse(fmt.Sprintf("http://%s", address))
	if err != nil {
		s.logger.Errorf("Failed to create proxy target for address=%s: %v", address, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	proxy := httputil.NewSingleHostReverseProxy(endpoint)

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = r.Host

		if secure {
			req.Header.Set("X-Forwarded-Proto", "https")
		} else {
			req.Header.Set("X-Forwarded-Proto", "http")
		}

		req.Header.Set(HeaderProxySource, "swarmgate")
		req.Header.Set(HeaderRequestID, uuid.NewString())

		if target.Organization != "" {
			req.Header.Set(HeaderOrganizationID, target.Organization)
			req.Header.Set(HeaderNetworkIsolation, "strict")
			req.Header.Set(HeaderOrganizationBoundary, "enforced")
		}
	}

	proxy.ModifyResponse = func(resp *http.Response) error {
		// overwrite Server header
		resp.Header.Set("Server", fmt.Sprintf("swarmgate/%s", version.Version))
		return nil
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.Errorf("Failed to route request to backend=%s: %v", address, err)
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	proxy.ServeHTTP(w, r)
}

func (s *Server) defaultBackend() string {
	if s.DefaultBackendAddress != "" {
		return s.DefaultBackendAddress
	}
	return DefaultBackend
}

// ListenForHTTP will start listening for incoming HTTP requests that require to be proxied through.
func (s *Server) ListenForHTTP(ctx context.Context, addr string) error {
	if addr == "" {
		addr = AddressHTTP
	}

	server := &http.Server{
		Addr:     addr,
		Handler:  s.handler(false),
		ErrorLog: defaultLog.New(io.Discard, "", 0),
	}

	go func() {
		<-ctx.Done()
		s.logger.Trace("Gracefully shutting down HTTP proxy")
		if err := server.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("Failed to shutdown server: %v", err)
		}
	}()

	s.logger.Debugf("Starting HTTP proxy on address=%s", addr)
	return server.ListenAndServe()
}

// ListenForHTTPS will start listening for incoming HTTPS requests that require to be proxied through.
// Certificate selection happens per-connection based on the SNI hostname.
func (s *Server) ListenForHTTPS(ctx context.Context, addr string) error {
	if addr == "" {
		addr = AddressHTTPS
	}

	server := &http.Server{
		Addr:    addr,
		Handler: s.handler(true),
		TLSConfig: &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: s.getCertificate,
		},
		ErrorLog: defaultLog.New(io.Discard, "", 0),
	}

	go func() {
		<-ctx.Done()
		s.logger.Trace("Gracefully shutting down HTTPS proxy")
		if err := server.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("Failed to shutdown server: %v", err)
		}
	}()

	s.logger.Debugf("Starting HTTPS proxy on address=%s", addr)
	return server.ListenAndServeTLS("", "")
}

func (s *Server) getCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	keypair, err := s.Certificates.Keypair(ExtractDomain(hello.ServerName))
	if err != nil {
		return nil, fmt.Errorf("no certificate available for %s: %w", hello.ServerName, err)
	}
	return keypair, nil
}
