package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrMissingAddress is returned when no bind address is provided.
	ErrMissingAddress = errors.New("listener: bind address is required")

	// ErrBindFailed wraps any failure to bind the configured address.
	// Bind failures are fatal to server startup.
	ErrBindFailed = errors.New("listener: bind failed")
)

// Listen binds cfg.Addr with the configured socket options and returns a
// listening socket. An explicit backlog takes the raw-socket path on unix
// platforms; otherwise the standard net.ListenConfig path is used with the
// socket options applied through the control hook.
func Listen(ctx context.Context, cfg Config) (net.Listener, error) {
	if cfg.Addr == "" {
		return nil, ErrMissingAddress
	}

	if cfg.Backlog > 0 && backlogSupported {
		ln, err := listenBacklog(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBindFailed, cfg.Addr, err)
		}
		return ln, nil
	}

	lc := net.ListenConfig{Control: control(cfg)}
	ln, err := lc.Listen(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBindFailed, cfg.Addr, err)
	}
	return ln, nil
}

// Tune applies per-connection TCP options to an accepted connection.
// Non-TCP connections are left untouched.
func Tune(conn net.Conn, cfg Config) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}

	_ = tcp.SetNoDelay(cfg.NoDelay)

	if cfg.KeepAlivePeriod > 0 {
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(cfg.KeepAlivePeriod)
	}
}
