package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	gw "userapi/internal/gateway"
	"userapi/internal/gateway/adapter/inmem"
	"userapi/internal/gateway/adapter/password"
	"userapi/internal/gateway/adapter/patterns"
	"userapi/internal/gateway/adapter/postgres"
	"userapi/internal/gateway/adapter/token"
	"userapi/internal/gateway/router"
	"userapi/internal/gateway/service"
	"userapi/internal/platform/config"
	"userapi/internal/platform/server"
	"userapi/internal/platform/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	// Logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	shutdown, err := telemetry.Setup(context.Background(), "userapi")
	if err != nil {
		slog.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		slog.Error("metrics initialization failed", "error", err)
		os.Exit(1)
	}

	// Forbidden-pattern policy
	policy := patterns.Default()
	if cfg.PatternsFile != "" {
		policy, err = patterns.LoadFile(cfg.PatternsFile)
		if err != nil {
			slog.Error("loading forbidden patterns failed", "path", cfg.PatternsFile, "error", err)
			os.Exit(1)
		}
	}

	keys, err := token.NewKeys([]byte(cfg.JWTSecret), nil)
	if err != nil {
		slog.Error("token keys initialization failed", "error", err)
		os.Exit(1)
	}

	// Storage
	var (
		userRepo gw.UserRepository
		authRepo gw.AuthRepository
		db       *gorm.DB
	)
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		store := inmem.NewStore(nil)
		userRepo, authRepo = store.Users(), store.Credentials()
	} else {
		db, err = postgres.Connect(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			slog.Error("database migration failed", "error", err)
			os.Exit(1)
		}
		userRepo, authRepo = postgres.NewUserRepository(db, nil), postgres.NewAuthRepository(db)
	}

	users := service.NewUsers(userRepo)
	auth := service.NewAuth(authRepo, password.NewHasher(cfg.BcryptCost), keys)

	if cfg.BootstrapUsername != "" && cfg.BootstrapPassword != "" {
		email := cfg.BootstrapUsername + "@localhost"
		if err := service.Bootstrap(ctx, users, auth, cfg.BootstrapUsername, email, cfg.BootstrapPassword); err != nil {
			slog.Error("bootstrap account failed", "error", err)
			os.Exit(1)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.MetricsHandler())
	mux.Handle("/", router.New(router.Config{
		Auth:           auth,
		Users:          users,
		Verifier:       keys,
		Patterns:       policy,
		Metrics:        metrics,
		Logger:         logger,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		LogResponses:   cfg.InspectLogResponses,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}))

	srv := server.New(cfg.Addr(), mux, cfg.RequestTimeout)

	slog.Info("userapi starting",
		"addr", cfg.Addr(),
		"store", storeKind(db),
		"cors_origins", cfg.CORSOrigins,
		"request_timeout", cfg.RequestTimeout.String(),
		"forbidden_patterns", policy.Len(),
	)

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
	}

	if db != nil {
		if err := postgres.Close(db); err != nil {
			slog.Error("database close error", "error", err)
		}
	}
	if err := shutdown(context.Background()); err != nil {
		slog.Error("telemetry shutdown error", "error", err)
	}
}

func storeKind(db *gorm.DB) string {
	if db == nil {
		return "memory"
	}
	return "postgres"
}
