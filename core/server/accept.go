package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/http2"

	"github.com/dmitrymomot/httpcore/core/listener"
	"github.com/dmitrymomot/httpcore/core/logger"
)

// acceptLoop accepts connections until the listener closes, registering each
// in the live connection set before its task starts serving. Transient accept
// errors are retried with bounded exponential backoff; a run of consecutive
// failures escalates to a fatal server error.
func (s *Server) acceptLoop(ctx context.Context) error {
	var (
		backoff  time.Duration
		failures int
	)

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.state.load() != StateRunning || errors.Is(err, net.ErrClosed) {
				return nil
			}

			failures++
			if failures >= s.maxAcceptFailures {
				return fmt.Errorf("%w: %d consecutive failures: %w", ErrAcceptFailed, failures, err)
			}

			if backoff == 0 {
				backoff = acceptBackoffMin
			} else if backoff *= 2; backoff > acceptBackoffMax {
				backoff = acceptBackoffMax
			}

			s.log.WarnContext(ctx, "accept failed, retrying",
				logger.Error(err),
				logger.Duration(backoff),
				logger.Count("consecutive_failures", failures),
			)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		failures = 0
		backoff = 0

		listener.Tune(conn, s.sockets)

		h := s.conns.add(conn)
		s.log.DebugContext(ctx, "connection accepted",
			logger.ConnID(h.ID()),
			logger.ClientIP(h.Peer().String()),
		)

		go s.serveConn(ctx, h)
	}
}

// serveConn negotiates the protocol for one accepted connection and hands it
// to the matching driver. Failures here are scoped to the connection and
// never propagate above it.
func (s *Server) serveConn(ctx context.Context, h *ConnectionHandle) {
	conn := net.Conn(h.conn)

	defer func() {
		if rec := recover(); rec != nil {
			s.log.ErrorContext(ctx, "connection driver panic",
				logger.ConnID(h.ID()),
				logger.ID("panic", rec),
			)
			_ = conn.Close()
		}
	}()

	var proto Protocol

	if tlsCfg := s.tlsConfig; tlsCfg != nil {
		tlsConn, p, err := s.acceptTLS(ctx, conn, tlsCfg)
		if err != nil {
			s.log.WarnContext(ctx, "tls handshake failed",
				logger.ConnID(h.ID()),
				logger.ClientIP(h.Peer().String()),
				logger.Error(err),
			)
			_ = conn.Close()
			return
		}
		conn, proto = tlsConn, p
	} else if s.disableHTTP2 {
		proto = ProtocolHTTP1
	} else {
		negotiated, p, err := sniffPreface(conn, s.negotiationWindow)
		if err != nil {
			// Peer went away before sending anything useful.
			_ = conn.Close()
			return
		}
		conn, proto = negotiated, p
	}

	if s.disableHTTP2 && proto == ProtocolHTTP2 {
		// A caller-supplied ALPN list may still offer h2.
		proto = ProtocolHTTP1
	}

	h.setProtocol(proto)
	s.log.DebugContext(ctx, "protocol negotiated",
		logger.ConnID(h.ID()),
		logger.Protocol(proto.String()),
	)

	switch proto {
	case ProtocolHTTP2:
		s.h2Server.ServeConn(conn, &http2.ServeConnOpts{
			Context:    ctx,
			BaseConfig: s.httpServer,
			Handler:    s.appHandler,
		})
		_ = conn.Close()
	default:
		if !s.h1conns.enqueue(conn) {
			_ = conn.Close()
		}
	}
}
