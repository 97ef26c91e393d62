// Package router assembles the HTTP pipeline: the shared timeout and CORS
// gate, the public /auth chain, the protected /users chain, /health and the
// not-found fallback.
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	gw "userapi/internal/gateway"
	"userapi/internal/gateway/adapter/patterns"
	"userapi/internal/gateway/middleware"
	"userapi/internal/platform/telemetry"
)

// Config carries everything the pipeline needs. Metrics may be nil.
type Config struct {
	Auth     gw.AuthService
	Users    gw.UserService
	Verifier gw.TokenVerifier
	Patterns *patterns.Set
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger

	CORSOrigins    []string
	RequestTimeout time.Duration
	// LogResponses enables response body logging on the protected chain.
	LogResponses bool
	MaxBodyBytes int64
}

// New builds the root handler.
//
// Global stages, outermost first: metrics, request id, access log, panic
// recovery, deadline, CORS. They wrap the chi mux rather than being
// registered on it, so the route context chi pools per request is taken and
// returned inside the deadline goroutine. /auth adds request inspection
// without body logging. /users adds inspection with body logging and then
// bearer token authentication, so a forbidden query is rejected even
// without a token.
func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{auth: cfg.Auth, users: cfg.Users, metrics: cfg.Metrics}

	r := chi.NewRouter()
	r.Use(middleware.AnnotateRoute)
	r.NotFound(notFound)

	r.Get("/health", health)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.Inspect(cfg.Patterns, middleware.InspectOptions{
			MaxBodyBytes: cfg.MaxBodyBytes,
			Logger:       logger,
		}, cfg.Metrics))
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(
			middleware.Inspect(cfg.Patterns, middleware.InspectOptions{
				LogBodies:    true,
				LogResponses: cfg.LogResponses,
				MaxBodyBytes: cfg.MaxBodyBytes,
				Logger:       logger,
			}, cfg.Metrics),
			middleware.Auth(cfg.Verifier, cfg.Metrics),
		)
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Get("/{id}", h.getUser)
		r.Put("/{id}", h.updateUser)
		r.Delete("/{id}", h.deleteUser)
	})

	return middleware.Chain(r,
		middleware.Metrics(cfg.Metrics),
		middleware.RequestID,
		middleware.Logging(logger),
		middleware.Recovery,
		middleware.Timeout(cfg.RequestTimeout, cfg.Metrics),
		middleware.CORS(cfg.CORSOrigins, cfg.Metrics),
	)
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Not Found"))
}
