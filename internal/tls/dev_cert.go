package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"notify-relay/internal/util"
)

const (
	devCertName  = "dev-cert.pem"
	devKeyName   = "dev-key.pem"
	devCertValid = 365 * 24 * time.Hour
)

// SelfSignedGenerator creates and caches a development certificate in dir.
type SelfSignedGenerator struct {
	dir string
	now func() time.Time
}

func NewSelfSignedGenerator(dir string) *SelfSignedGenerator {
	return &SelfSignedGenerator{dir: dir, now: time.Now}
}

// Certificate returns the cached certificate while it is valid, otherwise it
// writes a new ECDSA P-256 pair for hosts.
func (g *SelfSignedGenerator) Certificate(hosts []string) (tls.Certificate, error) {
	certPath := filepath.Join(g.dir, devCertName)
	keyPath := filepath.Join(g.dir, devKeyName)

	if cert, err := tls.LoadX509KeyPair(certPath, keyPath); err == nil && g.stillValid(cert) {
		util.Info("Using cached self-signed certificate", util.String("cert_path", certPath))
		return cert, nil
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate serial: %w", err)
	}

	now := g.now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"notify-relay development"}},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(devCertValid),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else if h != "" {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("marshal key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return tls.Certificate{}, fmt.Errorf("write %s: %w", certPath, err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return tls.Certificate{}, fmt.Errorf("write %s: %w", keyPath, err)
	}

	util.Info("Generated self-signed certificate",
		util.String("cert_path", certPath),
		util.Any("hosts", hosts),
	)
	return tls.X509KeyPair(certPEM, keyPEM)
}

func (g *SelfSignedGenerator) stillValid(cert tls.Certificate) bool {
	if len(cert.Certificate) == 0 {
		return false
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return false
	}
	now := g.now()
	return now.After(leaf.NotBefore) && now.Before(leaf.NotAfter)
}
