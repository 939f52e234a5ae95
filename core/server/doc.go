// Package server provides an embeddable HTTP server core that accepts TCP
// connections (optionally TLS-terminated), negotiates HTTP/1.1 or HTTP/2
// transparently, and drives each connection against a caller-supplied
// handler with coordinated graceful shutdown.
//
// The core deliberately excludes routing, certificate provisioning, and any
// application-level protocol on top of HTTP; those belong to the embedding
// service. What it owns is the hard part: binding with explicit socket
// options, protocol negotiation (TLS ALPN, plaintext HTTP/2 preface
// detection, h2c upgrade), per-connection tracking, and bounded-time drain.
//
// # Lifecycle
//
// A server moves strictly forward through Idle → Running → Draining →
// Stopped. Stop is idempotent: the first call closes the listener, asks
// every live connection to finish in-flight work (Connection: close for
// HTTP/1.1, GOAWAY for HTTP/2), and waits up to the drain timeout before
// force-closing whatever remains.
//
// # Basic Usage
//
//	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//		w.Write([]byte("Hello, World!"))
//	})
//
//	ctx := context.Background()
//	if err := server.Run(ctx, ":8080", handler); err != nil {
//		log.Fatal(err)
//	}
//
// # Server Configuration
//
// Configure a server with functional options:
//
//	srv := server.New(":8080",
//		server.WithReusePort(true),
//		server.WithShutdownTimeout(60*time.Second),
//		server.WithLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil))),
//	)
//
//	if err := srv.Start(ctx, handler); err != nil {
//		log.Fatal(err)
//	}
//
// Or from environment variables:
//
//	cfg := server.DefaultConfig()
//	// or: config.MustLoad(&cfg)
//	srv, err := server.NewFromConfig(cfg)
//
// # TLS and Protocol Negotiation
//
// Supplying a TLS context enables HTTPS; the ALPN list defaults to
// h2 + http/1.1 so protocol selection happens during the handshake:
//
//	srv := server.New(":8443", server.WithTLS(server.NewTLSConfig(
//		server.WithTLSCertificate("cert.pem", "key.pem"),
//	)))
//
// On plaintext listeners the core detects HTTP/2 prior knowledge by reading
// ahead at most the length of the client preface within a short window, and
// honors "Upgrade: h2c"; everything else is served as HTTP/1.1.
//
// # Shutdown Semantics
//
// The graceful-close signal is cooperative: in-flight requests always
// finish and their responses are flushed; only acceptance of new requests
// and streams stops. The forced abort after the drain timeout is a distinct
// signal with a different contract: connections are closed mid-operation
// and their in-flight responses are lost. Embedding services that need a
// perfect drain should raise the shutdown timeout instead of retrying Stop.
package server
