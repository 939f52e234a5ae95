package handler

import (
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/dmitrymomot/httpcore/core/logger"
)

// Adapter bridges a caller-supplied http.Handler to the wire-protocol
// drivers. It guarantees exactly one response per request: handler panics are
// recovered and converted into the fallback error response without tearing
// down the connection. Safe for concurrent use.
type Adapter struct {
	next     http.Handler
	log      *slog.Logger
	fallback http.HandlerFunc
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the logger used for fault and completion events.
func WithLogger(log *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.log = log
	}
}

// WithFallback sets the response written when the handler faults before
// producing one. Defaults to a plain-text 500.
func WithFallback(fallback http.HandlerFunc) AdapterOption {
	return func(a *Adapter) {
		a.fallback = fallback
	}
}

// NewAdapter wraps next with fault isolation and per-request completion
// events.
func NewAdapter(next http.Handler, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		next: next,
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		fallback: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			// http.ErrAbortHandler is the sanctioned way to abort a
			// response; the connection driver handles it.
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			buf := make([]byte, 64<<10)
			buf = buf[:runtime.Stack(buf, false)]

			a.log.ErrorContext(r.Context(), "handler fault",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.ID("panic", rec),
				slog.String("stack", string(buf)),
			)

			if !rw.Written() {
				a.fallback(rw, r)
			}
		}

		a.log.InfoContext(r.Context(), "request completed",
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Protocol(r.Proto),
			logger.StatusCode(rw.Status()),
			logger.BytesOut(rw.BytesWritten()),
			logger.Duration(time.Since(start)),
		)
	}()

	a.next.ServeHTTP(rw, r)
}
