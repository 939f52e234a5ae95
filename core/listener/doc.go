// Package listener binds TCP listening sockets with explicit socket options.
//
// It is the lowest layer of the server core: it produces a net.Listener and
// nothing else. Reuse-address and reuse-port are applied through the socket
// control hook before listen is called; an explicit backlog uses a raw socket
// on unix platforms, since the net package always listens with the kernel
// default. Per-connection TCP tuning (TCP_NODELAY, keep-alive) is applied to
// accepted connections via Tune.
//
// Basic usage:
//
//	ln, err := listener.Listen(ctx, listener.Config{
//		Addr:         ":8080",
//		ReuseAddress: true,
//		NoDelay:      true,
//	})
//	if err != nil {
//		return err
//	}
//	for {
//		conn, err := ln.Accept()
//		if err != nil {
//			return err
//		}
//		listener.Tune(conn, cfg)
//		go serve(conn)
//	}
package listener
