// Package handler defines the boundary between the server core and the
// request-handling capability supplied by the embedding service.
//
// The capability is the standard http.Handler: method, URI and headers arrive
// on the request, the body is a lazy byte stream, and the response is written
// through http.ResponseWriter. The Adapter wraps the supplied handler so the
// wire-protocol drivers never observe an unhandled fault: a panic inside the
// handler is caught, logged, and converted into a 500 response for that single
// request, leaving the connection serving subsequent requests.
//
// The adapter also emits a structured completion event per request (status,
// bytes written, duration), which is the core's observability boundary; the
// collection pipeline is up to the embedding service's logger.
//
// Basic usage:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/", index)
//
//	adapted := handler.NewAdapter(mux, handler.WithLogger(log))
//	srv := server.New(":8080")
//	err := srv.Start(ctx, adapted)
//
// The server core applies the adapter itself when the supplied handler is not
// already adapted, so embedding services only construct one explicitly to
// customize the fallback response or logger.
package handler
