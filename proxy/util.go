package proxy

import (
	"net"
	"strings"
)

// ExtractDomain reduces a Host header value to the bare lowercase hostname.
func ExtractDomain(host string) string {
	if stripped, _, err := net.SplitHostPort(host); err == nil {
		host = stripped
	}
	return strings.ToLower(strings.TrimSpace(host))
}
