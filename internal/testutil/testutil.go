package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"userapi/internal/domain"
	"userapi/internal/gateway"
	"userapi/internal/gateway/adapter/inmem"
	"userapi/internal/gateway/adapter/password"
)

// TestSecret is the HS256 secret shared by tests that mint tokens.
const TestSecret = "test-secret-do-not-use-in-production"

// SignClaims signs arbitrary claims with TestSecret using HS256.
func SignClaims(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(TestSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// IssueTestToken creates a signed token for subject.
// A negative ttl produces an already-expired token.
func IssueTestToken(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	return SignClaims(t, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
}

// EchoHandler returns an http.Handler that reports what reached it:
// method, path, raw query, body and the authenticated subject if any.
func EchoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		resp := map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"query":      r.URL.RawQuery,
			"body":       string(body),
			"request_id": gateway.RequestIDFromContext(r.Context()),
		}
		if c, ok := gateway.ClaimsFromContext(r.Context()); ok {
			resp["subject"] = c.Subject
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
}

// SeedUser inserts username into store. A non-empty pw also stores a
// credential, hashed at the minimum bcrypt cost.
func SeedUser(t *testing.T, store *inmem.Store, username, pw string) domain.User {
	t.Helper()
	ctx := context.Background()
	u, err := store.Users().Create(ctx, domain.UserInput{
		Username:   username,
		Email:      username + "@example.com",
		ModifiedBy: "seed",
	})
	if err != nil {
		t.Fatalf("seeding %s: %v", username, err)
	}
	if pw == "" {
		return u
	}
	hash, err := password.NewHasher(bcrypt.MinCost).Hash(pw)
	if err != nil {
		t.Fatalf("hashing password for %s: %v", username, err)
	}
	if err := store.Credentials().Create(ctx, domain.UserAuth{UserID: u.ID, PasswordHash: hash}); err != nil {
		t.Fatalf("storing credentials for %s: %v", username, err)
	}
	return u
}
