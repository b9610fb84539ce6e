package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"chatrelay/pkg/logging"
)

// RequestLogger injects a per request logger into the context. It must run
// inside TracerMiddleware so the trace id is available.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := logging.FromContext(logging.WithContext(r.Context(), log.With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)))
			ctx := logging.WithContext(r.Context(), reqLog)
			reqLog.DebugContext(ctx, "http - request - started")

			next.ServeHTTP(w, r.WithContext(ctx))
			// for /ws this fires once the socket closes
			reqLog.DebugContext(ctx, "http - request - finished", slog.Duration("duration", time.Since(start)))
		})
	}
}
