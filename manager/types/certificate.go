package types

import (
	"time"
)

// CertificateStatus describes the lifecycle state of a domain certificate.
type CertificateStatus string

const (
	StatusValid         CertificateStatus = "valid"
	StatusExpiringSoon  CertificateStatus = "expiring_soon"
	StatusUnknownExpiry CertificateStatus = "unknown_expiry"
	StatusIssued        CertificateStatus = "issued"
	StatusFailed        CertificateStatus = "failed"
	StatusNotFound      CertificateStatus = "not_found"
)

// CertificateRecord is the result of a certificate lifecycle operation for a
// single domain. Records with status valid, expiring_soon or unknown_expiry
// still point at usable certificate and key files; failed and not_found do
// not.
type CertificateRecord struct {
	Domain   string            `json:"domain"`
	Status   CertificateStatus `json:"status"`
	CertPath string            `json:"cert_path,omitempty"`
	KeyPath  string            `json:"key_path,omitempty"`
	Expiry   string            `json:"expiry,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Usable reports whether the record points at certificate files that can
// back a TLS listener.
func (r *CertificateRecord) Usable() bool {
	switch r.Status {
	case StatusValid, StatusExpiringSoon, StatusUnknownExpiry, StatusIssued:
		return r.CertPath != "" && r.KeyPath != ""
	default:
		return false
	}
}

// ExpiryTime parses the expiry timestamp of the record. The zero time is
// returned when no expiry is known.
func (r *CertificateRecord) ExpiryTime() time.Time {
	if r.Expiry == "" {
		return time.Time{}
	}

	expiry, err := time.Parse(time.RFC3339, r.Expiry)
	if err != nil {
		return time.Time{}
	}
	return expiry
}

// CertificateRequest is the payload driving a full issuance flow.
type CertificateRequest struct {
	Domain     string `json:"domain"`
	Email      string `json:"email"`
	Staging    bool   `json:"staging,omitempty"`
	ForceRenew bool   `json:"force_renew,omitempty"`
}
