package server

import (
	"crypto/tls"
	"log/slog"
	"time"
)

// Option configures server behavior.
type Option func(*Server)

// WithTLS configures the TLS server context. The ALPN protocol list defaults
// to h2 + http/1.1 when the supplied config has none.
func WithTLS(config *tls.Config) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tlsConfig = config
	}
}

// WithLogger sets a custom logger for server operations.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.log = log
	}
}

// WithShutdownTimeout sets the maximum time to wait for graceful drain.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shutdownTimeout = timeout
	}
}

// WithReadTimeout sets the maximum duration for reading a request.
func WithReadTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.readTimeout = timeout
	}
}

// WithWriteTimeout sets the maximum duration for writing a response.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.writeTimeout = timeout
	}
}

// WithIdleTimeout sets how long a connection with no active request or
// stream is kept open. Applies to both protocol stacks.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.idleTimeout = timeout
	}
}

// WithHandshakeTimeout bounds the TLS handshake on each accepted connection.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.handshakeTimeout = timeout
	}
}

// WithMaxHeaderBytes sets the maximum size of request headers.
func WithMaxHeaderBytes(n int) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.maxHeaderBytes = n
	}
}

// WithMaxAcceptFailures sets how many consecutive accept failures escalate
// to a fatal server error.
func WithMaxAcceptFailures(n int) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.maxAcceptFailures = n
	}
}

// WithReuseAddress toggles SO_REUSEADDR on the listening socket.
func WithReuseAddress(enable bool) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sockets.ReuseAddress = enable
	}
}

// WithReusePort toggles SO_REUSEPORT on the listening socket (unix only).
func WithReusePort(enable bool) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sockets.ReusePort = enable
	}
}

// WithBacklog sets an explicit listen(2) backlog (unix only).
func WithBacklog(n int) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sockets.Backlog = n
	}
}

// WithNoDelay toggles TCP_NODELAY on accepted connections.
func WithNoDelay(enable bool) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sockets.NoDelay = enable
	}
}

// WithKeepAlivePeriod enables TCP keep-alive probes on accepted connections.
func WithKeepAlivePeriod(period time.Duration) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sockets.KeepAlivePeriod = period
	}
}

// WithoutHTTP2 restricts the server to HTTP/1.1: ALPN advertises only
// http/1.1 and plaintext preface detection is skipped.
func WithoutHTTP2() Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.disableHTTP2 = true
	}
}
