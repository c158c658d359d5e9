package server

import (
	"context"
	"net/http"

	"github.com/jorenkoyen/go-logger"
	"github.com/jorenkoyen/go-logger/log"
	"github.com/jorenkoyen/swarmgate/manager"
)

// Server is the administrative HTTP endpoint mutating the routing table and
// driving certificate issuance.
type Server struct {
	logger       *logger.Logger
	addr         string
	Routes       *manager.RouteManager
	Certificates *manager.CertificateManager
	handler      http.Handler
}

// NewServer will create a new management HTTP server.
func NewServer(addr string) *Server {
	mux := NewMux()
	s := &Server{
		logger:  log.WithName("server"),
		addr:    addr,
		handler: mux,
	}

	// register middleware
	mux.Use(s.LoggerMiddleware())
	mux.Use(s.CloseConnectionMiddleware())

	// register routes; only method-qualified patterns are used, a method-less
	// wildcard would conflict with the method-qualified ones during
	// registration
	mux.Handle("GET /{$}", s.HandleRouteList)
	mux.Handle("POST /certificates", s.HandleCertificateRequest)
	mux.Handle("GET /certificates/{domain}", s.HandleCertificateStatus)
	mux.Handle("POST /{domain}/{backend}", s.HandleRouteApply)
	mux.Handle("PUT /{domain}/{backend}", s.HandleRouteApply)
	mux.Handle("DELETE /{domain}", s.HandleRouteDelete)
	mux.Handle("/", s.HandleFallback)

	return s
}

// Listen will actively start listening for connections on the management HTTP address.
// It will gracefully shut down the HTTP server when the context is cancelled.
func (s *Server) Listen(ctx context.Context) error {
	server := &http.Server{Addr: s.addr, Handler: s.handler}

	go func() {
		<-ctx.Done()
		s.logger.Trace("Gracefully shutting down management server")
		if err := server.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("Failed to shutdown server: %v", err)
		}
	}()

	// create HTTP server
	s.logger.Infof("Starting management server on address=%s", s.addr)
	return server.ListenAndServe()
}
