package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"userapi/internal/domain"
	"userapi/internal/gateway"
)

// Recovery catches panics from downstream handlers and returns a 500 envelope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				slog.ErrorContext(r.Context(), "panic recovered",
					"error", err,
					"request_id", gateway.RequestIDFromContext(r.Context()),
					"stack", string(debug.Stack()),
				)
				gateway.WriteResponse(w, domain.Failure(http.StatusInternalServerError, "Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
