package listener

import "time"

// Config holds socket-level options applied when binding and when tuning
// accepted connections.
type Config struct {
	// Addr is the TCP address to bind, in host:port form.
	Addr string

	// ReuseAddress sets SO_REUSEADDR before listen, allowing fast rebinds
	// of an address still in TIME_WAIT.
	ReuseAddress bool

	// ReusePort sets SO_REUSEPORT before listen, allowing multiple
	// processes to bind the same address for kernel-level load balancing.
	// Unix only; ignored elsewhere.
	ReusePort bool

	// Backlog is the listen(2) backlog. Zero means the kernel default
	// (net.core.somaxconn on Linux). Honored on unix platforms only.
	Backlog int

	// NoDelay controls TCP_NODELAY on accepted connections.
	NoDelay bool

	// KeepAlivePeriod enables TCP keep-alive probes on accepted
	// connections when positive.
	KeepAlivePeriod time.Duration
}

// DefaultConfig returns socket options suitable for a server accepting
// latency-sensitive HTTP traffic.
func DefaultConfig() Config {
	return Config{
		ReuseAddress:    true,
		NoDelay:         true,
		KeepAlivePeriod: 3 * time.Minute,
	}
}
