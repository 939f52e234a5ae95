package server

import "time"

const (
	// DefaultReadTimeout is the default timeout for reading a request.
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is the default timeout for writing a response.
	DefaultWriteTimeout = 15 * time.Second

	// DefaultIdleTimeout is the default timeout for connections with no
	// active request or stream.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default drain timeout for graceful
	// shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultHandshakeTimeout is the default timeout for a TLS handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultNegotiationWindow bounds the plaintext read-ahead used to
	// detect the HTTP/2 connection preface. Connections that send nothing
	// within the window are served as HTTP/1.1.
	DefaultNegotiationWindow = 500 * time.Millisecond

	// DefaultMaxHeaderBytes is the default maximum size of request headers.
	DefaultMaxHeaderBytes = 1 << 20 // 1 MB

	// DefaultMaxAcceptFailures is the number of consecutive accept failures
	// after which the server escalates to a fatal error.
	DefaultMaxAcceptFailures = 10
)

// Accept retry backoff bounds, doubling per consecutive failure.
const (
	acceptBackoffMin = 5 * time.Millisecond
	acceptBackoffMax = 1 * time.Second
)
