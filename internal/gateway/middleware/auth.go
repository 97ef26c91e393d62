package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"userapi/internal/domain"
	gw "userapi/internal/gateway"
	"userapi/internal/platform/telemetry"
)

const bearerPrefix = "Bearer "

// Auth returns a middleware that requires a valid bearer token.
// Verified claims are stored in the request context for downstream
// handlers. A missing, malformed or unverifiable header is rejected with
// InvalidToken before the next handler runs.
func Auth(verifier gw.TokenVerifier, m *telemetry.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := extractBearerToken(r)
			if !ok {
				m.RecordAuthValidation(r.Context(), "failure")
				gw.WriteError(w, r, domain.ErrInvalidToken)
				return
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				slog.WarnContext(r.Context(), "token decode failed",
					"error", err,
					"request_id", gw.RequestIDFromContext(r.Context()),
				)
				m.RecordAuthValidation(r.Context(), "failure")
				gw.WriteError(w, r, domain.ErrInvalidToken)
				return
			}

			m.RecordAuthValidation(r.Context(), "success")
			recordSubject(r.Context(), claims.Subject)
			ctx := gw.ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken requires the exact "Bearer " scheme prefix.
func extractBearerToken(r *http.Request) (string, bool) {
	auth, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok {
		return "", false
	}
	auth = strings.TrimSpace(auth)
	if auth == "" {
		return "", false
	}
	return auth, true
}
