package server

import "errors"

var (
	// Server lifecycle errors
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrServerStopped        = errors.New("server has been stopped")
	ErrMissingHandler       = errors.New("request handler is required")

	// ErrAcceptFailed wraps accept errors that exhausted the retry budget.
	// Transient accept failures are retried with backoff and never surface.
	ErrAcceptFailed = errors.New("accept failed")

	// ErrHandshakeFailed wraps TLS handshake failures. Always scoped to a
	// single connection and never fatal to the server.
	ErrHandshakeFailed = errors.New("tls handshake failed")
)
