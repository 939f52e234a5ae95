//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd)

package listener

import (
	"errors"
	"net"
	"syscall"
)

const backlogSupported = false

// Reuse options and explicit backlog are unix-specific; other platforms get
// the default listen path.
func control(Config) func(network, address string, c syscall.RawConn) error {
	return nil
}

func listenBacklog(Config) (net.Listener, error) {
	return nil, errors.New("listener: backlog not supported on this platform")
}
