package proxy

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const AcmePrefix = "/.well-known/acme-challenge/"

// IsAcmeChallenge will return true when the request contains the expected path for an ACME challenge.
func (s *Server) IsAcmeChallenge(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, AcmePrefix)
}

// HandleAcmeChallenge serves the domain-ownership proof for the requested
// token from the configured webroot. This path never reaches the routing
// table.
func (s *Server) HandleAcmeChallenge(w http.ResponseWriter, r *http.Request) {
	token := filepath.Base(strings.TrimPrefix(r.URL.Path, AcmePrefix))
	if token == "" || token == "." || token == "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	host := ExtractDomain(r.Host)
	s.logger.Debugf("Handling incoming ACME request for host=%s (token=%s)", host, token)

	proof, err := os.ReadFile(filepath.Join(s.WebrootDir, ".well-known", "acme-challenge", token))
	if err != nil {
		s.logger.Debugf("No challenge proof for token=%s (host=%s): %v", token, host, err)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(proof)
}
