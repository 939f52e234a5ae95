package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/klauspost/compress/gzip"
)

// CompressConfig configures the response compression middleware.
type CompressConfig struct {
	// Level is the gzip compression level (default: gzip.DefaultCompression)
	Level int
	// MinSize is the minimum response size in bytes to compress (default: gzhttp.DefaultMinSize)
	MinSize int
	// ContentTypes restricts compression to the listed content types
	// (default: everything except known-incompressible types)
	ContentTypes []string
}

// Compress creates a response compression middleware with default
// configuration. Responses are gzip-compressed when the client accepts it
// and the payload is worth compressing.
func Compress() Middleware {
	return CompressWithConfig(CompressConfig{})
}

// CompressWithConfig creates a response compression middleware with custom
// configuration. Compression is transparent to handlers: they write
// uncompressed bytes and content negotiation happens on the way out.
func CompressWithConfig(cfg CompressConfig) Middleware {
	if cfg.Level == 0 {
		cfg.Level = gzip.DefaultCompression
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = gzhttp.DefaultMinSize
	}

	var (
		wrapper func(http.Handler) http.HandlerFunc
		err     error
	)
	if len(cfg.ContentTypes) > 0 {
		wrapper, err = gzhttp.NewWrapper(
			gzhttp.CompressionLevel(cfg.Level),
			gzhttp.MinSize(cfg.MinSize),
			gzhttp.ContentTypes(cfg.ContentTypes),
		)
	} else {
		wrapper, err = gzhttp.NewWrapper(
			gzhttp.CompressionLevel(cfg.Level),
			gzhttp.MinSize(cfg.MinSize),
		)
	}
	if err != nil {
		// Invalid settings fall back to the library defaults rather than
		// serving uncompressed.
		wrapper, _ = gzhttp.NewWrapper()
	}

	return func(next http.Handler) http.Handler {
		return wrapper(next)
	}
}
