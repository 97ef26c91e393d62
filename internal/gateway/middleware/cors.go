package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"userapi/internal/domain"
	gw "userapi/internal/gateway"
	"userapi/internal/platform/telemetry"
)

// CORS returns a middleware enforcing the cross-origin policy. origins is
// either ["*"] or an explicit allow-list. Requests carrying an Origin that
// is not allowed are rejected with Forbidden before anything downstream
// runs; allowed preflight requests are answered here.
func CORS(origins []string, m *telemetry.Metrics) Middleware {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
	})
	return func(next http.Handler) http.Handler {
		h := c.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Origin") != "" && !c.OriginAllowed(r) {
				m.RecordCORSRejection(r.Context())
				gw.WriteError(w, r, domain.ErrForbidden)
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}
