package server

import (
	"crypto/tls"

	"golang.org/x/net/http2"
)

// withALPN clones cfg and fills in the ALPN protocol list when the embedding
// service supplied none. HTTP/2 is offered first; clients without ALPN
// support fall back to HTTP/1.1 after the handshake.
func withALPN(cfg *tls.Config, disableHTTP2 bool) *tls.Config {
	cfg = cfg.Clone()
	if len(cfg.NextProtos) > 0 {
		return cfg
	}
	if disableHTTP2 {
		cfg.NextProtos = []string{"http/1.1"}
	} else {
		cfg.NextProtos = []string{http2.NextProtoTLS, "http/1.1"}
	}
	return cfg
}

// DefaultTLSConfig returns a TLS configuration with a TLS 1.2 floor and a
// forward-secret cipher suite list, suitable for public-facing listeners.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			// TLS 1.3 suites are auto-selected; this list gates TLS 1.2
			// negotiation to ECDHE exchanges only.
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		},
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
	}
}

// ModernTLSConfig returns a TLS 1.3-only configuration with auto-selected
// cipher suites, for deployments where every client is known to support it.
func ModernTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
	}
}

// TLSConfigOption represents a functional option for customizing TLS configuration.
type TLSConfigOption func(*tls.Config)

// WithTLSCertificate loads a certificate/key pair from PEM files and appends
// it to the configuration. Unreadable files are skipped; the config keeps
// whatever certificates it already has.
func WithTLSCertificate(certFile, keyFile string) TLSConfigOption {
	return func(cfg *tls.Config) {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return
		}
		cfg.Certificates = append(cfg.Certificates, cert)
	}
}

// WithTLSClientAuth sets the client certificate policy for mutual TLS.
func WithTLSClientAuth(clientAuthType tls.ClientAuthType) TLSConfigOption {
	return func(cfg *tls.Config) {
		cfg.ClientAuth = clientAuthType
	}
}

// WithTLSMinVersion sets the minimum TLS version.
func WithTLSMinVersion(version uint16) TLSConfigOption {
	return func(cfg *tls.Config) {
		cfg.MinVersion = version
	}
}

// WithTLSNextProtos sets the ALPN protocol list advertised during the
// handshake, overriding the h2 + http/1.1 default.
func WithTLSNextProtos(protos ...string) TLSConfigOption {
	return func(cfg *tls.Config) {
		cfg.NextProtos = protos
	}
}

// NewTLSConfig creates a new TLS configuration with the given options,
// starting from a secure default configuration.
func NewTLSConfig(opts ...TLSConfigOption) *tls.Config {
	cfg := DefaultTLSConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
