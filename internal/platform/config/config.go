package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the user API.
type Config struct {
	Host string
	Port int

	DatabaseURL string // empty selects the in-memory store
	DBMaxConns  int
	DBMinConns  int

	JWTSecret   string
	CORSOrigins []string // ["*"] allows any origin

	RequestTimeout time.Duration
	LogLevel       string

	InspectLogResponses bool
	PatternsFile        string // optional YAML policy replacing the compiled-in list
	MaxBodyBytes        int64
	BcryptCost          int

	// Seeds an initial account when both are set.
	BootstrapUsername string
	BootstrapPassword string
}

// Load reads configuration from environment variables, falling back to
// defaults. A missing JWT secret or a malformed CORS origin is an error.
func Load() (Config, error) {
	cfg := Config{
		Host:           envOr("SERVICE_HOST", "0.0.0.0"),
		Port:           envInt("SERVICE_PORT", 8080),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxConns:     envInt("DATABASE_MAX_CONNECTIONS", 5),
		DBMinConns:     envInt("DATABASE_MIN_CONNECTIONS", 1),
		JWTSecret:      os.Getenv("JWT_SECRET_KEY"),
		RequestTimeout: time.Duration(envInt("REQUEST_TIMEOUT_SECS", 5)) * time.Second,
		LogLevel:       strings.ToLower(envOr("LOG_LEVEL", "info")),
		PatternsFile:   os.Getenv("FORBIDDEN_PATTERNS_FILE"),
		MaxBodyBytes:   int64(envInt("MAX_BODY_BYTES", 1<<20)),
		BcryptCost:     envInt("BCRYPT_COST", 10),

		BootstrapUsername: os.Getenv("BOOTSTRAP_USERNAME"),
		BootstrapPassword: os.Getenv("BOOTSTRAP_PASSWORD"),
	}
	cfg.InspectLogResponses = envBool("INSPECT_LOG_RESPONSES", cfg.LogLevel == "debug")

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET_KEY is required")
	}
	origins, err := parseOrigins(envOr("CORS_ALLOWED_ORIGINS", "*"))
	if err != nil {
		return Config{}, err
	}
	cfg.CORSOrigins = origins
	if cfg.RequestTimeout <= 0 {
		slog.Warn("non-positive request timeout, using default", "value", cfg.RequestTimeout)
		cfg.RequestTimeout = 5 * time.Second
	}
	return cfg, nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SlogLevel maps LogLevel onto a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseOrigins(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "*" {
		return []string{"*"}, nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid CORS origin %q", o)
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		return nil, errors.New("CORS_ALLOWED_ORIGINS has no origins")
	}
	return origins, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return b
	}
	return fallback
}
