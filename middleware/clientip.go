package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// clientIPContextKey is used as a key for storing client IP in request context.
type clientIPContextKey struct{}

// ipHeaders lists proxy headers in priority order. CDN-set headers come
// first since they cannot be spoofed past the CDN itself.
var ipHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// ClientIPConfig configures the client IP extraction middleware.
type ClientIPConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool
	// HeaderName specifies the response header name for the client IP (default: "X-Client-IP")
	HeaderName string
	// StoreInHeader determines whether to include the IP in response headers
	StoreInHeader bool
	// ValidateFunc allows custom validation of the extracted IP address.
	// A non-nil error rejects the request with 403 Forbidden.
	ValidateFunc func(r *http.Request, ip string) error
}

// ClientIP creates a client IP extraction middleware with default
// configuration, storing the extracted IP in the request context.
func ClientIP() Middleware {
	return ClientIPWithConfig(ClientIPConfig{})
}

// ClientIPWithConfig creates a client IP extraction middleware with custom
// configuration. It extracts the real client IP address from proxy headers
// and stores it in context for handlers and later middleware.
func ClientIPWithConfig(cfg ClientIPConfig) Middleware {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Client-IP"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			ip := extractIP(r)

			if cfg.ValidateFunc != nil {
				if err := cfg.ValidateFunc(r, ip); err != nil {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}

			if cfg.StoreInHeader {
				w.Header().Set(cfg.HeaderName, ip)
			}

			ctx := context.WithValue(r.Context(), clientIPContextKey{}, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP retrieves the client IP address from the request context.
// Returns the IP address and a boolean indicating whether it was found.
func GetClientIP(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPContextKey{}).(string)
	return ip, ok
}

// extractIP resolves the client address from proxy headers, falling back to
// the connection's remote address. X-Forwarded-For may carry a chain; the
// leftmost entry is the original client.
func extractIP(r *http.Request) string {
	for _, header := range ipHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}

		if header == "X-Forwarded-For" {
			value, _, _ = strings.Cut(value, ",")
		}

		if ip := normalizeIP(strings.TrimSpace(value)); ip != "" {
			return ip
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if ip := normalizeIP(host); ip != "" {
			return ip
		}
	}
	return r.RemoteAddr
}

// normalizeIP validates and canonicalizes an IP string. Returns "" for
// invalid addresses and for the unspecified address.
func normalizeIP(s string) string {
	ip := net.ParseIP(s)
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
