package server

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/dmitrymomot/httpcore/core/handler"
	"github.com/dmitrymomot/httpcore/core/listener"
	"github.com/dmitrymomot/httpcore/core/logger"
)

// Server accepts TCP connections, negotiates HTTP/1.1 or HTTP/2 (via TLS
// ALPN or plaintext preface detection), and drives each connection against a
// caller-supplied handler with coordinated graceful shutdown. Safe for
// concurrent use.
type Server struct {
	mu                sync.RWMutex
	addr              string
	log               *slog.Logger
	sockets           listener.Config
	tlsConfig         *tls.Config
	readTimeout       time.Duration
	writeTimeout      time.Duration
	idleTimeout       time.Duration
	shutdownTimeout   time.Duration
	handshakeTimeout  time.Duration
	negotiationWindow time.Duration
	maxHeaderBytes    int
	maxAcceptFailures int
	disableHTTP2      bool

	state stateMachine

	// Populated by Start while holding mu.
	ln         net.Listener
	appHandler http.Handler
	httpServer *http.Server
	h2Server   *http2.Server
	h1conns    *connQueue
	conns      *registry
}

// New creates a new Server with the given address and options.
// Defaults to a 30-second drain timeout and a no-op logger.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:              addr,
		log:               slog.New(slog.NewTextHandler(io.Discard, nil)),
		sockets:           listener.DefaultConfig(),
		readTimeout:       DefaultReadTimeout,
		writeTimeout:      DefaultWriteTimeout,
		idleTimeout:       DefaultIdleTimeout,
		shutdownTimeout:   DefaultShutdownTimeout,
		handshakeTimeout:  DefaultHandshakeTimeout,
		negotiationWindow: DefaultNegotiationWindow,
		maxHeaderBytes:    DefaultMaxHeaderBytes,
		maxAcceptFailures: DefaultMaxAcceptFailures,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return s.state.load()
}

// Addr returns the bound listener address, or nil before Start. Useful when
// binding to port 0.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start binds the listener and serves until the context is canceled or a
// fatal error occurs. Returns context.Err() when the context is canceled;
// use Stop for graceful shutdown. The handler is wrapped in a fault-isolating
// adapter unless one is supplied already.
func (s *Server) Start(ctx context.Context, h http.Handler) error {
	if h == nil {
		return ErrMissingHandler
	}

	switch {
	case s.state.transition(StateIdle, StateRunning):
	case s.state.load() == StateStopped:
		return ErrServerStopped
	default:
		return ErrServerAlreadyRunning
	}

	s.mu.Lock()

	sockets := s.sockets
	sockets.Addr = s.addr

	ln, err := listener.Listen(ctx, sockets)
	if err != nil {
		s.state.store(StateStopped)
		s.mu.Unlock()
		return err
	}
	s.ln = ln

	if _, ok := h.(*handler.Adapter); !ok {
		h = handler.NewAdapter(h, handler.WithLogger(s.log))
	}
	s.appHandler = h

	s.h2Server = &http2.Server{IdleTimeout: s.idleTimeout}

	inner := h
	if !s.disableHTTP2 {
		// Covers the "Upgrade: h2c" path; prior knowledge is detected by
		// the negotiator before the connection reaches this stack.
		inner = h2c.NewHandler(h, s.h2Server)
	}

	s.httpServer = &http.Server{
		Handler:        inner,
		ReadTimeout:    s.readTimeout,
		WriteTimeout:   s.writeTimeout,
		IdleTimeout:    s.idleTimeout,
		MaxHeaderBytes: s.maxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}
	if !s.disableHTTP2 {
		// Registers the graceful-shutdown hook so Shutdown sends GOAWAY on
		// every HTTP/2 connection served through ServeConn.
		if err := http2.ConfigureServer(s.httpServer, s.h2Server); err != nil {
			_ = ln.Close()
			s.state.store(StateStopped)
			s.mu.Unlock()
			return err
		}
	}

	if s.tlsConfig != nil {
		s.tlsConfig = withALPN(s.tlsConfig, s.disableHTTP2)
	}

	s.h1conns = newConnQueue(ln.Addr())
	s.conns = newRegistry()

	tlsEnabled := s.tlsConfig != nil
	s.mu.Unlock()

	s.log.InfoContext(ctx, "server started",
		slog.String("addr", ln.Addr().String()),
		slog.Bool("tls", tlsEnabled),
		slog.Bool("http2", !s.disableHTTP2),
	)

	errCh := make(chan error, 1)

	go func() {
		err := s.httpServer.Serve(s.h1conns)
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			select {
			case errCh <- err:
			default:
			}
		}
	}()

	go func() {
		if err := s.acceptLoop(ctx); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	}()

	select {
	case err := <-errCh:
		_ = s.Stop()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains the server: the listener closes first so no new connection can
// be accepted, then every live connection is asked to finish in-flight work
// (Connection: close for HTTP/1.1 keep-alives, GOAWAY for HTTP/2). If the
// drain timeout elapses with connections still live they are force-closed;
// bounded shutdown time takes priority over a perfect drain. Idempotent.
func (s *Server) Stop() error {
	if !s.state.transition(StateRunning, StateDraining) {
		return nil
	}

	s.mu.RLock()
	ln := s.ln
	httpServer := s.httpServer
	conns := s.conns
	timeout := s.shutdownTimeout
	s.mu.RUnlock()

	if ln == nil {
		s.state.store(StateStopped)
		return nil
	}

	s.log.Info("server draining", logger.Duration(timeout))

	// Closing the listener before broadcasting guarantees the registry
	// snapshot cannot miss a connection accepted mid-shutdown.
	_ = ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := httpServer.Shutdown(ctx)

	if drained := conns.drain(ctx); !drained {
		aborted := conns.abortAll()
		_ = httpServer.Close()
		s.log.Warn("drain timeout elapsed, connections aborted",
			logger.Count("aborted", aborted),
		)
	}

	s.state.store(StateStopped)
	s.log.Info("server stopped")

	// A timed-out drain is a deliberate policy outcome, not a failure.
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// Run provides errgroup compatibility for coordinated lifecycle management.
// Returns a function that starts the server, monitors context cancellation,
// and performs graceful shutdown when the context is canceled.
func (s *Server) Run(ctx context.Context, h http.Handler) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx, h)
		}()

		select {
		case <-ctx.Done():
			if stopErr := s.Stop(); stopErr != nil {
				s.log.Error("failed to stop server during context cancellation", logger.Error(stopErr))
			}
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// Run is a convenience function that creates and runs a server with default
// settings.
func Run(ctx context.Context, addr string, h http.Handler) error {
	return New(addr).Start(ctx, h)
}
