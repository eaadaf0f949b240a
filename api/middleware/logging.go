package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/brametal/chapas-backend/pkg/logger"
)

// Logging writes one entry per request once the handler returns. Probe
// traffic under /health and /metrics is logged at debug level.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ctx = logg.WithFields(ctx, map[string]any{
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
			requestLog(logg, r.URL.Path, status)(ctx, "request.complete")
		})
	}
}

func requestLog(logg *logger.Logger, path string, status int) func(context.Context, string) {
	switch {
	case status >= http.StatusInternalServerError:
		return logg.Warn
	case strings.HasPrefix(path, "/health") || path == "/metrics":
		return logg.Debug
	default:
		return logg.Info
	}
}
