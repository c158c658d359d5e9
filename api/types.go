package api

import "fmt"

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string `json:"status"`
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the swarmgate server logs for details"
	}
}

// Mapping is one routing table entry as exposed by the management protocol.
type Mapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RouteList is the response envelope of the route listing endpoint.
type RouteList struct {
	Status   string    `json:"status"`
	Mappings []Mapping `json:"mappings"`
}

// CertificateRequest drives an issuance attempt for a single domain.
type CertificateRequest struct {
	Domain     string `json:"domain"`
	Email      string `json:"email"`
	Staging    bool   `json:"staging,omitempty"`
	ForceRenew bool   `json:"force_renew,omitempty"`
}

// CertificateRecord describes the lifecycle state of a domain's certificate.
type CertificateRecord struct {
	Domain   string `json:"domain"`
	Status   string `json:"status"`
	CertPath string `json:"cert_path,omitempty"`
	KeyPath  string `json:"key_path,omitempty"`
	Expiry   string `json:"expiry,omitempty"`
	Error    string `json:"error,omitempty"`
}
