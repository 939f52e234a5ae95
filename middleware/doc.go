// Package middleware provides HTTP middleware for common cross-cutting
// concerns: request/response logging, request ID generation, client IP
// extraction, response compression, and request lifecycle callbacks.
//
// All middleware follow a consistent pattern:
//   - Plain func(http.Handler) http.Handler wrappers, composable in any order
//   - Configuration structs for customization
//   - Default constructors for common use cases
//   - WithConfig constructors for advanced configuration
//   - Context helpers for retrieving stored values
//
// # Basic Usage
//
//	handler := middleware.Chain(mux,
//		middleware.RequestID(),
//		middleware.ClientIP(),
//		middleware.Logging(),
//		middleware.Compress(),
//	)
//
//	srv := server.New(":8080")
//	srv.Start(ctx, handler)
//
// # Ordering
//
// RequestID should run first so every later log line carries the ID.
// ClientIP should run early so the extracted address is available to
// logging and rate limiting. Compress should wrap innermost so other
// middleware observe uncompressed sizes.
package middleware
