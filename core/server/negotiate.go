package server

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

// Protocol identifies the wire protocol negotiated for a connection.
type Protocol uint8

const (
	ProtocolUnknown Protocol = iota
	ProtocolHTTP1
	ProtocolHTTP2
)

func (p Protocol) String() string {
	switch p {
	case ProtocolHTTP1:
		return "http/1.1"
	case ProtocolHTTP2:
		return "h2"
	default:
		return "unknown"
	}
}

// acceptTLS performs the server-side TLS handshake and reports the protocol
// selected via ALPN. Absence of ALPN defaults to HTTP/1.1. A handshake
// failure is scoped to this single connection.
func (s *Server) acceptTLS(ctx context.Context, conn net.Conn, cfg *tls.Config) (net.Conn, Protocol, error) {
	tlsConn := tls.Server(conn, cfg)

	hsCtx, cancel := context.WithTimeout(ctx, s.handshakeTimeout)
	defer cancel()

	if err := tlsConn.HandshakeContext(hsCtx); err != nil {
		return nil, ProtocolUnknown, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	if tlsConn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
		return tlsConn, ProtocolHTTP2, nil
	}
	return tlsConn, ProtocolHTTP1, nil
}

// sniffPreface detects plaintext HTTP/2 prior knowledge by reading ahead at
// most len(http2.ClientPreface) bytes within a fixed window. The read-ahead
// exits early on the first byte diverging from the preface, so ordinary
// HTTP/1.1 requests negotiate on their first byte. Timeouts and ambiguous
// partial reads conservatively fall back to HTTP/1.1; the sniffed bytes are
// replayed to whichever stack serves the connection.
func sniffPreface(conn net.Conn, window time.Duration) (net.Conn, Protocol, error) {
	const preface = http2.ClientPreface

	buf := make([]byte, 0, len(preface))
	tmp := make([]byte, len(preface))

	_ = conn.SetReadDeadline(time.Now().Add(window))

	for len(buf) < len(preface) {
		n, err := conn.Read(tmp[:len(preface)-len(buf)])
		buf = append(buf, tmp[:n]...)

		if !strings.HasPrefix(preface, string(buf)) {
			break
		}

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				break
			}
			if errors.Is(err, io.EOF) {
				if len(buf) == 0 {
					return nil, ProtocolUnknown, err
				}
				break
			}
			return nil, ProtocolUnknown, err
		}
	}

	_ = conn.SetReadDeadline(time.Time{})

	replay := &replayConn{Conn: conn, r: io.MultiReader(bytes.NewReader(buf), conn)}
	if string(buf) == preface {
		return replay, ProtocolHTTP2, nil
	}
	return replay, ProtocolHTTP1, nil
}

// replayConn prepends sniffed bytes back onto the connection's read stream.
type replayConn struct {
	net.Conn
	r io.Reader
}

func (c *replayConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}
