package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"userapi/internal/gateway"
)

const maxRequestIDLen = 128

// RequestID assigns a unique request ID to each request.
// An incoming X-Request-ID header is preserved unless it is oversized.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.New().String()
		}
		ctx := gateway.ContextWithRequestID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
