package middleware

import (
	"net/http"
	"time"

	gw "userapi/internal/gateway"
	"userapi/internal/platform/telemetry"
)

// Metrics returns middleware that records HTTP request metrics.
// Place as the outermost middleware to capture the full request lifecycle.
// Requests are labelled with the route pattern reported by AnnotateRoute;
// unmatched requests share the "unmatched" label.
func Metrics(m *telemetry.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &gw.StatusWriter{ResponseWriter: w, Code: http.StatusOK}
			r, info := withRequestInfo(r)

			next.ServeHTTP(sw, r)

			route, _ := info.get()
			if route == "" {
				route = "unmatched"
			}
			m.RecordHTTPRequest(r.Context(), r.Method, route, sw.Code, time.Since(start).Seconds())
		})
	}
}
