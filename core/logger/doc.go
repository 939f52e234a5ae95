// Package logger provides slog attribute helpers for consistent structured
// logging across the server core and the services that embed it.
//
// Helpers follow the empty-Attr pattern: passing a nil error or empty value
// yields an attribute that slog silently drops, so call sites never need
// explicit nil checks:
//
//	log.Error("accept failed", logger.Error(err))
//	log.Info("request completed",
//		logger.Method(r.Method),
//		logger.Path(r.URL.Path),
//		logger.StatusCode(status),
//		logger.Duration(time.Since(start)),
//	)
package logger
