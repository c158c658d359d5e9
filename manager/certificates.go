package manager

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/lego"
	"github.com/jorenkoyen/go-logger"
	"github.com/jorenkoyen/go-logger/log"
	"github.com/jorenkoyen/swarmgate/manager/db"
	"github.com/jorenkoyen/swarmgate/manager/types"
)

const (
	// RenewalWindow is how close to expiry a certificate is still reported
	// as valid; anything closer is expiring_soon.
	RenewalWindow = 30 * 24 * time.Hour

	certFileName = "fullchain.pem"
	keyFileName  = "privkey.pem"
)

// CertificateManager drives the certificate lifecycle for proxied domains:
// validate that the domain points at this host, check existing artifacts for
// freshness and invoke the external issuance tool when renewal is due.
type CertificateManager struct {
	logger *logger.Logger
	data   *db.Client

	// CertbotDir is the issuance tool's configuration directory; live
	// certificates are expected under <CertbotDir>/live/<domain>/.
	CertbotDir string

	// OutputDir receives a copy of issued artifacts for listener setup.
	OutputDir string

	// WebrootDir is where the issuance tool drops HTTP-01 challenge proofs.
	WebrootDir string

	// PublicIP is the address domains are expected to resolve to.
	PublicIP string

	// AllowPrivateNetworks accepts loopback and private-range resolutions
	// during domain validation. Meant for local and staging setups only.
	AllowPrivateNetworks bool

	// DummyMode synthesizes a self-signed certificate instead of invoking
	// the issuance tool.
	DummyMode bool

	// test hooks
	lookup func(ctx context.Context, host string) ([]string, error)
	run    func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewCertificateManager(data *db.Client, certbotDir string, outputDir string) *CertificateManager {
	c := &CertificateManager{
		logger:     log.WithName("certificate-mgr"),
		data:       data,
		CertbotDir: certbotDir,
		OutputDir:  outputDir,
	}
	c.lookup = func(ctx context.Context, host string) ([]string, error) {
		return net.DefaultResolver.LookupHost(ctx, host)
	}
	c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).CombinedOutput()
	}
	return c
}

// Process runs the full issuance flow for a certificate request: validate the
// domain, short-circuit on a fresh existing certificate unless force_renew is
// set, otherwise issue. Failures are returned as a record with status failed,
// never as an error.
func (c *CertificateManager) Process(ctx context.Context, request types.CertificateRequest) types.CertificateRecord {
	if err := c.validateDomain(ctx, request.Domain); err != nil {
		c.logger.Warningf("Domain validation failed for domain=%s: %v", request.Domain, err)
		return c.remember(types.CertificateRecord{
			Domain: request.Domain,
			Status: types.StatusFailed,
			Error:  fmt.Sprintf("domain validation failed: %v", err),
		})
	}

	if !request.ForceRenew {
		if existing := c.Check(request.Domain); existing != nil && existing.Status == types.StatusValid {
			c.logger.Debugf("Existing certificate for domain=%s is still fresh, skipping issuance", request.Domain)
			return c.remember(*existing)
		}
	}

	record := c.issue(ctx, request)
	return c.remember(record)
}

// Check inspects the existing certificate files for the domain. It returns
// nil when no artifacts exist. Existing files are reported usable even when
// renewal is due or the expiry cannot be read.
func (c *CertificateManager) Check(domain string) *types.CertificateRecord {
	certPath := filepath.Join(c.liveDir(domain), certFileName)
	keyPath := filepath.Join(c.liveDir(domain), keyFileName)

	if !fileExists(certPath) || !fileExists(keyPath) {
		return nil
	}

	record := &types.CertificateRecord{
		Domain:   domain,
		CertPath: certPath,
		KeyPath:  keyPath,
	}

	expiry, err := readExpiry(certPath)
	if err != nil {
		record.Status = types.StatusUnknownExpiry
		record.Error = "could not determine certificate expiry"
		return record
	}

	record.Expiry = expiry.UTC().Format(time.RFC3339)
	if time.Until(expiry) > RenewalWindow {
		record.Status = types.StatusValid
	} else {
		record.Status = types.StatusExpiringSoon
	}
	return record
}

// Status is the check-only path behind GET /certificates/{domain}. When no
// artifacts exist on disk it falls back to the last persisted record, and
// finally to a synthetic not_found.
func (c *CertificateManager) Status(domain string) types.CertificateRecord {
	if record := c.Check(domain); record != nil {
		return *record
	}

	if c.data != nil {
		if record, err := c.data.GetCertificateRecord(domain); err == nil {
			return *record
		} else if !errors.Is(err, db.ErrItemNotFound) {
			c.logger.Warningf("Failed to read certificate record for domain=%s: %v", domain, err)
		}
	}

	return types.CertificateRecord{Domain: domain, Status: types.StatusNotFound}
}

// UsableDomains filters the given domains down to those with certificate
// files that can back a TLS listener.
func (c *CertificateManager) UsableDomains(domains []string) []string {
	usable := make([]string, 0, len(domains))
	for _, domain := range domains {
		if record := c.Check(domain); record != nil && record.Usable() {
			usable = append(usable, domain)
		}
	}
	return usable
}

// Keypair loads the TLS keypair for the domain, for SNI-based certificate
// selection on the HTTPS listener.
func (c *CertificateManager) Keypair(domain string) (*tls.Certificate, error) {
	record := c.Check(domain)
	if record == nil || !record.Usable() {
		return nil, fmt.Errorf("no usable certificate for domain=%s", domain)
	}

	keypair, err := tls.LoadX509KeyPair(record.CertPath, record.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair for domain=%s: %w", domain, err)
	}
	return &keypair, nil
}

// validateDomain checks that the domain resolves to an address this host
// plausibly answers on. Loopback and private ranges only pass when
// AllowPrivateNetworks is set.
func (c *CertificateManager) validateDomain(ctx context.Context, domain string) error {
	if domain == "" {
		return errors.New("domain is required")
	}

	addresses, err := c.lookup(ctx, domain)
	if err != nil {
		return fmt.Errorf("dns resolution failed: %w", err)
	}

	for _, address := range addresses {
		if address == c.PublicIP && c.PublicIP != "" {
			return nil
		}

		ip := net.ParseIP(address)
		if ip == nil {
			continue
		}

		if c.AllowPrivateNetworks && (ip.IsLoopback() || ip.IsPrivate()) {
			c.logger.Debugf("Accepting private address=%s for domain=%s", address, domain)
			return nil
		}
	}

	return fmt.Errorf("domain does not resolve to this host (expected %s)", c.PublicIP)
}

// issue invokes the external issuance tool, or synthesizes placeholder
// artifacts in dummy mode, and copies the results to the output directory.
func (c *CertificateManager) issue(ctx context.Context, request types.CertificateRequest) types.CertificateRecord {
	c.logger.Infof("Issuing certificate for domain=%s (staging=%t)", request.Domain, request.Staging)

	if c.DummyMode {
		return c.issueSelfSigned(request.Domain)
	}

	directory := lego.LEDirectoryProduction
	if request.Staging {
		directory = lego.LEDirectoryStaging
	}

	args := []string{
		"certonly",
		"--webroot", "-w", c.WebrootDir,
		"--email", request.Email,
		"--agree-tos",
		"--no-eff-email",
		"--non-interactive",
		"-d", request.Domain,
		"--config-dir", c.CertbotDir,
		"--server", directory,
	}
	if request.ForceRenew {
		args = append(args, "--force-renewal")
	}

	output, err := c.run(ctx, "certbot", args...)
	if err != nil {
		c.logger.Errorf("Issuance tool failed for domain=%s: %v", request.Domain, err)
		return types.CertificateRecord{
			Domain: request.Domain,
			Status: types.StatusFailed,
			Error:  fmt.Sprintf("certbot failed: %v: %s", err, string(output)),
		}
	}

	record := c.Check(request.Domain)
	if record == nil {
		return types.CertificateRecord{
			Domain: request.Domain,
			Status: types.StatusFailed,
			Error:  "issuance tool reported success but produced no certificate files",
		}
	}

	if err = c.export(request.Domain, record.CertPath, record.KeyPath); err != nil {
		c.logger.Warningf("Failed to copy artifacts for domain=%s: %v", request.Domain, err)
	}

	record.Status = types.StatusIssued
	return *record
}

// issueSelfSigned writes a freshly generated self-signed keypair in place of
// the issuance tool's output. The certificate is real enough for expiry
// parsing and TLS listener setup in local environments.
func (c *CertificateManager) issueSelfSigned(domain string) types.CertificateRecord {
	failed := func(err error) types.CertificateRecord {
		return types.CertificateRecord{
			Domain: domain,
			Status: types.StatusFailed,
			Error:  fmt.Sprintf("self-signed issuance failed: %v", err),
		}
	}

	key, err := certcrypto.GeneratePrivateKey(certcrypto.EC256)
	if err != nil {
		return failed(err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return failed(errors.New("generated key does not implement crypto.Signer"))
	}

	expiry := time.Now().Add(90 * 24 * time.Hour)
	template := x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: domain},
		DNSNames:              []string{domain},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              expiry,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, signer.Public(), signer)
	if err != nil {
		return failed(err)
	}

	if err = os.MkdirAll(c.liveDir(domain), 0700); err != nil {
		return failed(err)
	}

	certPath := filepath.Join(c.liveDir(domain), certFileName)
	keyPath := filepath.Join(c.liveDir(domain), keyFileName)
	if err = os.WriteFile(certPath, certcrypto.PEMEncode(certcrypto.DERCertificateBytes(der)), 0644); err != nil {
		return failed(err)
	}
	if err = os.WriteFile(keyPath, certcrypto.PEMEncode(key), 0600); err != nil {
		return failed(err)
	}

	if err = c.export(domain, certPath, keyPath); err != nil {
		c.logger.Warningf("Failed to copy artifacts for domain=%s: %v", domain, err)
	}

	return types.CertificateRecord{
		Domain:   domain,
		Status:   types.StatusIssued,
		CertPath: certPath,
		KeyPath:  keyPath,
		Expiry:   expiry.UTC().Format(time.RFC3339),
	}
}

// export copies issued artifacts into the output directory.
func (c *CertificateManager) export(domain string, certPath string, keyPath string) error {
	dir := filepath.Join(c.OutputDir, domain)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	if err := copyFile(certPath, filepath.Join(dir, certFileName)); err != nil {
		return err
	}
	return copyFile(keyPath, filepath.Join(dir, keyFileName))
}

// remember persists the record so the check-only path can report the outcome
// of a previous issuance attempt.
func (c *CertificateManager) remember(record types.CertificateRecord) types.CertificateRecord {
	if c.data != nil {
		if err := c.data.SaveCertificateRecord(&record); err != nil {
			c.logger.Warningf("Failed to persist certificate record for domain=%s: %v", record.Domain, err)
		}
	}
	return record
}

func (c *CertificateManager) liveDir(domain string) string {
	return filepath.Join(c.CertbotDir, "live", domain)
}

// readExpiry parses the certificate PEM and returns its NotAfter timestamp.
func readExpiry(certPath string) (time.Time, error) {
	content, err := os.ReadFile(certPath)
	if err != nil {
		return time.Time{}, err
	}

	block, _ := pem.Decode(content)
	if block == nil {
		return time.Time{}, errors.New("no PEM block in certificate file")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return time.Time{}, err
	}
	return cert.NotAfter, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func copyFile(src string, dst string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, content, 0600)
}
