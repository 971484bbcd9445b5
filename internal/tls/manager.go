package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"notify-relay/internal/config"
	"notify-relay/internal/util"

	"golang.org/x/crypto/acme/autocert"
)

var ErrNoCertificate = errors.New("no TLS certificate source configured")

// Manager picks the certificate the relay serves. Sources are tried in the
// order ACME, certificate files, self-signed.
type Manager struct {
	autoCert *autocert.Manager

	certFile string
	keyFile  string

	mu   sync.RWMutex
	cert *tls.Certificate
}

// NewManager prepares every certificate source enabled in cfg. File
// certificates are loaded immediately so a bad pair fails startup.
func NewManager(cfg *config.ServerConfig, environment string) (*Manager, error) {
	m := &Manager{certFile: cfg.CertFile, keyFile: cfg.KeyFile}

	if cfg.AutoCertDomain != "" {
		if err := os.MkdirAll(cfg.CertDir, 0o700); err != nil {
			return nil, fmt.Errorf("create certificate cache %q: %w", cfg.CertDir, err)
		}
		m.autoCert = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.AutoCertDomain),
			Cache:      autocert.DirCache(cfg.CertDir),
			Email:      cfg.AutoCertEmail,
		}
		util.Info("AutoCert configured",
			util.String("domain", cfg.AutoCertDomain),
			util.String("cache_dir", cfg.CertDir),
		)
	}

	switch {
	case m.certFile != "" && m.keyFile != "":
		if err := m.Reload(); err != nil {
			return nil, err
		}
	case cfg.SelfSigned:
		if environment == "production" {
			return nil, errors.New("self-signed certificates are disabled in production")
		}
		if err := os.MkdirAll(cfg.CertDir, 0o700); err != nil {
			return nil, fmt.Errorf("create certificate directory %q: %w", cfg.CertDir, err)
		}
		hosts := []string{"localhost", "127.0.0.1", "::1"}
		if cfg.AutoCertDomain != "" {
			hosts = append(hosts, cfg.AutoCertDomain)
		}
		cert, err := NewSelfSignedGenerator(cfg.CertDir).Certificate(hosts)
		if err != nil {
			return nil, err
		}
		m.cert = &cert
	case m.autoCert == nil:
		return nil, ErrNoCertificate
	}

	return m, nil
}

// Reload re-reads the certificate files, for rotation without a restart.
func (m *Manager) Reload() error {
	if m.certFile == "" || m.keyFile == "" {
		return nil
	}
	cert, err := tls.LoadX509KeyPair(m.certFile, m.keyFile)
	if err != nil {
		return fmt.Errorf("load TLS key pair: %w", err)
	}
	m.mu.Lock()
	m.cert = &cert
	m.mu.Unlock()
	util.Info("TLS certificate loaded", util.String("cert_file", m.certFile))
	return nil
}

func (m *Manager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.autoCert != nil {
		if cert, err := m.autoCert.GetCertificate(hello); err == nil {
			return cert, nil
		} else if m.current() == nil {
			return nil, err
		}
	}
	if cert := m.current(); cert != nil {
		return cert, nil
	}
	return nil, ErrNoCertificate
}

func (m *Manager) current() *tls.Certificate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cert
}

func (m *Manager) TLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1", "acme-tls/1"},
		MinVersion:     tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}
}

// ChallengeHandler answers ACME HTTP-01 challenges and redirects everything
// else to HTTPS. It is nil unless ACME is enabled.
func (m *Manager) ChallengeHandler() http.Handler {
	if m.autoCert == nil {
		return nil
	}
	return m.autoCert.HTTPHandler(nil)
}
