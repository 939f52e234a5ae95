package middleware

import (
	"net/http"
	"time"
)

// ResponseInfo summarizes a completed response for callback observers.
type ResponseInfo struct {
	// StatusCode is the status written to the client.
	StatusCode int
	// BytesWritten is the response body size as written, before any
	// downstream compression.
	BytesWritten int64
	// Duration is the wall-clock time from handler entry to completion.
	Duration time.Duration
}

// CallbackConfig configures the request lifecycle callback middleware.
// Both hooks are optional; nil hooks are skipped.
type CallbackConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool
	// OnRequest fires before the handler runs. It may return a value that
	// is passed to OnResponse, correlating the two sides of one request.
	OnRequest func(r *http.Request) any
	// OnResponse fires after the response has been written, with the state
	// returned by OnRequest.
	OnResponse func(r *http.Request, info ResponseInfo, state any)
}

// Callback creates a middleware that invokes observer hooks around each
// request. It carries no policy of its own: metrics counters, tracing spans
// and audit trails all fit the same two hooks.
func Callback(cfg CallbackConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			var state any
			if cfg.OnRequest != nil {
				state = cfg.OnRequest(r)
			}

			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			if cfg.OnResponse != nil {
				cfg.OnResponse(r, ResponseInfo{
					StatusCode:   wrapped.Status(),
					BytesWritten: wrapped.BytesWritten(),
					Duration:     time.Since(start),
				}, state)
			}
		})
	}
}
