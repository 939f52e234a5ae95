// Package httpcore provides an embeddable HTTP server core: socket-level
// listening with explicit TCP options, transparent HTTP/1.1 and HTTP/2
// protocol negotiation (TLS ALPN, plaintext preface detection, h2c upgrade),
// fault-isolated handler dispatch, and coordinated graceful shutdown with a
// bounded drain.
//
// The library implements modern Go patterns: functional options for
// configuration, structured logging via log/slog, and env-tagged
// configuration structs.
//
// # Package Organization
//
//	github.com/dmitrymomot/httpcore/core/server   - server lifecycle, accept loop, protocol negotiation, shutdown
//	github.com/dmitrymomot/httpcore/core/listener - socket binding with SO_REUSEADDR/SO_REUSEPORT/backlog control
//	github.com/dmitrymomot/httpcore/core/handler  - fault-isolating handler adapter with completion events
//	github.com/dmitrymomot/httpcore/core/config   - type-safe environment variable loading
//	github.com/dmitrymomot/httpcore/core/logger   - slog attribute helpers
//	github.com/dmitrymomot/httpcore/middleware    - logging, request ID, client IP, compression, callbacks
//
// # Getting Started
//
//	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//		w.Write([]byte("Hello, World!"))
//	})
//
//	if err := server.Run(ctx, ":8080", handler); err != nil {
//		log.Fatal(err)
//	}
//
// Routing, certificate provisioning, and application protocols above HTTP are
// intentionally out of scope; the core is meant to be embedded under them.
package httpcore
