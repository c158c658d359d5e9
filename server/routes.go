package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jorenkoyen/swarmgate/manager/types"
	"github.com/jorenkoyen/swarmgate/resolver"
	"github.com/karlseguin/jsonwriter"
)

// HandleRouteList returns the full routing table snapshot.
func (s *Server) HandleRouteList(w http.ResponseWriter, r *http.Request) error {
	snapshot := s.Routes.Snapshot()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	writer := jsonwriter.New(w)
	writer.RootObject(func() {
		writer.KeyString("status", "success")
		writer.Array("mappings", func() {
			for _, mapping := range snapshot {
				writer.ArrayObject(func() {
					writer.KeyString("from", mapping.From)
					writer.KeyString("to", mapping.To)
				})
			}
		})
	})
	return nil
}

// HandleRouteApply adds or updates the route for a domain. The in-memory
// mutation is applied first; a persistence failure is surfaced as a 500
// while the live table keeps the change.
func (s *Server) HandleRouteApply(w http.ResponseWriter, r *http.Request) error {
	domain := r.PathValue("domain")
	backend := resolver.CleanAddress(r.PathValue("backend"))

	if domain == "" || backend == "" {
		return NewError(http.StatusBadRequest, "invalid domain or backend address")
	}

	s.logger.Debugf("Applying route mapping %s -> %s (method=%s)", domain, backend, r.Method)
	s.Routes.Upsert(domain, backend)

	if err := s.Routes.Persist(); err != nil {
		return NewError(http.StatusInternalServerError, fmt.Sprintf("failed to persist configuration: %v", err))
	}

	writeSuccess(w)
	return nil
}

// HandleRouteDelete removes the route for a domain. Removing an absent
// domain is reported as not found without touching the store.
func (s *Server) HandleRouteDelete(w http.ResponseWriter, r *http.Request) error {
	domain := r.PathValue("domain")
	if domain == "" {
		return NewError(http.StatusBadRequest, "invalid domain")
	}

	if !s.Routes.Remove(domain) {
		return NewError(http.StatusNotFound, fmt.Sprintf("domain %s not found", domain))
	}

	s.logger.Debugf("Removed route mapping for domain=%s", domain)
	if err := s.Routes.Persist(); err != nil {
		return NewError(http.StatusInternalServerError, fmt.Sprintf("failed to persist configuration change: %v", err))
	}

	writeSuccess(w)
	return nil
}

// HandleCertificateRequest drives the full issuance flow and returns the
// resulting certificate record.
func (s *Server) HandleCertificateRequest(w http.ResponseWriter, r *http.Request) error {
	if !IsJson(r) {
		return NewError(http.StatusBadRequest, "invalid content type")
	}

	decoder := json.NewDecoder(r.Body)
	defer r.Body.Close()

	request := new(types.CertificateRequest)
	if err := decoder.Decode(request); err != nil {
		return NewError(http.StatusBadRequest, fmt.Sprintf("invalid request format: %v", err))
	}

	if err := validateCertificateRequest(request); err != nil {
		return err
	}

	s.logger.Infof("Processing certificate request for domain=%s", request.Domain)
	record := s.Certificates.Process(r.Context(), *request)

	code := http.StatusOK
	if record.Status == types.StatusFailed {
		code = http.StatusBadRequest
	}
	return writeJSON(w, code, record)
}

// HandleCertificateStatus returns the check-only certificate record for a
// domain; unknown domains yield a synthetic not_found record.
func (s *Server) HandleCertificateStatus(w http.ResponseWriter, r *http.Request) error {
	domain := r.PathValue("domain")
	if domain == "" {
		return NewError(http.StatusBadRequest, "domain parameter required")
	}

	return writeJSON(w, http.StatusOK, s.Certificates.Status(domain))
}

// HandleNotFound is the fallback for unknown administrative paths.
func (s *Server) HandleNotFound(http.ResponseWriter, *http.Request) error {
	return NewError(http.StatusNotFound, "no such endpoint")
}

// HandleMethodNotAllowed rejects known paths called with the wrong method.
func (s *Server) HandleMethodNotAllowed(http.ResponseWriter, *http.Request) error {
	return NewError(http.StatusMethodNotAllowed, "method not allowed")
}

// HandleFallback catches every request no explicit route matched. Paths
// deeper than the two-segment management protocol do not exist; everything
// else is a known path shape called with an unsupported method.
func (s *Server) HandleFallback(w http.ResponseWriter, r *http.Request) error {
	trimmed := strings.Trim(r.URL.Path, "/")
	if trimmed != "" && len(strings.Split(trimmed, "/")) > 2 {
		return s.HandleNotFound(w, r)
	}
	return s.HandleMethodNotAllowed(w, r)
}

func validateCertificateRequest(request *types.CertificateRequest) error {
	err := new(types.ValidationError)
	if request.Domain == "" {
		err.Append("domain", "Domain is required")
	}
	if request.Email == "" {
		err.Append("email", "Email address is required")
	}

	if err.HasFailures() {
		return err
	}
	return nil
}
