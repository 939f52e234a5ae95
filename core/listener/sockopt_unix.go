//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package listener

import (
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const backlogSupported = true

// control returns a socket control hook that applies reuse options before
// bind. Returns nil when no option is requested so the default path stays
// untouched.
func control(cfg Config) func(network, address string, c syscall.RawConn) error {
	if !cfg.ReuseAddress && !cfg.ReusePort {
		return nil
	}

	return func(_, _ string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			if cfg.ReuseAddress {
				if opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); opErr != nil {
					return
				}
			}
			if cfg.ReusePort {
				opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			}
		})
		if err != nil {
			return err
		}
		return opErr
	}
}

// listenBacklog binds through a raw socket so listen(2) receives the
// configured backlog instead of the kernel default used by the net package.
func listenBacklog(cfg Config) (net.Listener, error) {
	addr, err := net.ResolveTCPAddr("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}

	family := unix.AF_INET6
	if ip4 := addr.IP.To4(); ip4 != nil {
		family = unix.AF_INET
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}

	closeOnErr := func(err error) (net.Listener, error) {
		_ = unix.Close(fd)
		return nil, err
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		return closeOnErr(err)
	}
	unix.CloseOnExec(fd)

	if cfg.ReuseAddress {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return closeOnErr(err)
		}
	}
	if cfg.ReusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			return closeOnErr(err)
		}
	}

	var sa unix.Sockaddr
	if family == unix.AF_INET {
		sa4 := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa4.Addr[:], addr.IP.To4())
		sa = sa4
	} else {
		// Unspecified address listens dual-stack, matching net.Listen.
		if addr.IP == nil || addr.IP.IsUnspecified() {
			if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
				return closeOnErr(err)
			}
		}
		sa6 := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa6.Addr[:], addr.IP.To16())
		sa = sa6
	}

	if err := unix.Bind(fd, sa); err != nil {
		return closeOnErr(err)
	}
	if err := unix.Listen(fd, cfg.Backlog); err != nil {
		return closeOnErr(err)
	}

	// net.FileListener duplicates the descriptor, so the original is closed
	// with the os.File.
	f := os.NewFile(uintptr(fd), "listener")
	defer f.Close()

	return net.FileListener(f)
}
