package middleware

import (
	"log/slog"
	"net/http"
	"time"

	gw "userapi/internal/gateway"
)

// Logging returns a middleware that logs each request using slog.
// The subject is read after the handler returns, so it is present only
// for requests that passed Auth.
func Logging(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &gw.StatusWriter{ResponseWriter: w, Code: http.StatusOK}
			r, info := withRequestInfo(r)

			next.ServeHTTP(sw, r)

			route, subject := info.get()
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", sw.Code,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"request_id", gw.RequestIDFromContext(r.Context()),
				"subject", subject,
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}
