package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"userapi/internal/domain"
	"userapi/internal/gateway/adapter/inmem"
	"userapi/internal/gateway/adapter/password"
	"userapi/internal/gateway/adapter/patterns"
	"userapi/internal/gateway/adapter/token"
	"userapi/internal/gateway/router"
	"userapi/internal/gateway/service"
	"userapi/internal/platform/server"
	"userapi/internal/platform/telemetry"
	"userapi/internal/testutil"
)

const (
	adminUser     = "admin"
	adminPassword = "admin-password"
)

func TestMain(m *testing.M) {
	shutdown, err := telemetry.Setup(context.Background(), "userapi-integration")
	if err != nil {
		panic(err)
	}
	code := m.Run()
	shutdown(context.Background())
	os.Exit(code)
}

// startServer wires the full stack over the in-memory store, seeds the admin
// account and serves on a free port. Returns the base URL.
func startServer(t *testing.T, mutate ...func(*router.Config)) string {
	t.Helper()

	addr := freeAddr(t)
	keys, err := token.NewKeys([]byte(testutil.TestSecret), nil)
	if err != nil {
		t.Fatalf("NewKeys: %v", err)
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	store := inmem.NewStore(nil)
	users := service.NewUsers(store.Users())
	auth := service.NewAuth(store.Credentials(), password.NewHasher(bcrypt.MinCost), keys)
	if err := service.Bootstrap(context.Background(), users, auth, adminUser, "admin@example.com", adminPassword); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	cfg := router.Config{
		Auth:           auth,
		Users:          users,
		Verifier:       keys,
		Patterns:       patterns.Default(),
		Metrics:        metrics,
		Logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
		CORSOrigins:    []string{"*"},
		RequestTimeout: 2 * time.Second,
		MaxBodyBytes:   1 << 20,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.MetricsHandler())
	mux.Handle("/", router.New(cfg))

	srv := server.New(addr, mux, cfg.RequestTimeout)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		if err := srv.Run(ctx); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	baseURL := "http://" + addr
	waitForReady(t, baseURL+"/health")
	return baseURL
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func waitForReady(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server did not become ready at %s", url)
}

// call sends a request and returns the status and raw body.
func call(t *testing.T, method, url, body, bearer string) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp.StatusCode, raw
}

func envelope[T any](t *testing.T, raw []byte) domain.Response[T] {
	t.Helper()
	var resp domain.Response[T]
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decoding envelope: %v\nraw: %s", err, raw)
	}
	return resp
}

func login(t *testing.T, baseURL, username, pw string) string {
	t.Helper()
	status, raw := call(t, http.MethodPost, baseURL+"/auth/login",
		`{"client_id":"`+username+`","client_secret":"`+pw+`"}`, "")
	if status != http.StatusOK {
		t.Fatalf("login as %s: expected 200, got %d: %s", username, status, raw)
	}
	return envelope[domain.AuthBody](t, raw).Data.AccessToken
}

func TestFullUserFlow(t *testing.T) {
	baseURL := startServer(t)
	adminToken := login(t, baseURL, adminUser, adminPassword)

	var created domain.User
	t.Run("create user", func(t *testing.T) {
		status, raw := call(t, http.MethodPost, baseURL+"/users", `{"username":"alice","email":"alice@example.com"}`, adminToken)
		if status != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", status, raw)
		}
		created = *envelope[domain.User](t, raw).Data
		if created.ID == "" || created.Username != "alice" {
			t.Fatalf("unexpected user %+v", created)
		}
	})

	t.Run("register credentials", func(t *testing.T) {
		status, raw := call(t, http.MethodPost, baseURL+"/auth/register", `{"user_id":"`+created.ID+`","password":"alice-pw"}`, "")
		if status != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", status, raw)
		}
		if got := string(bytes.TrimSpace(raw)); got != `{"status":201,"message":"created","data":null}` {
			t.Errorf("unexpected body %s", got)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		status, raw := call(t, http.MethodPost, baseURL+"/auth/login", `{"client_id":"alice","client_secret":"wrong"}`, "")
		if status != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", status)
		}
		if got := string(bytes.TrimSpace(raw)); got != `{"status":401,"message":"Wrong credentials","data":null}` {
			t.Errorf("unexpected body %s", got)
		}
	})

	aliceToken := login(t, baseURL, "alice", "alice-pw")

	t.Run("new user's token reaches protected routes", func(t *testing.T) {
		status, raw := call(t, http.MethodPut, baseURL+"/users/"+created.ID, `{"username":"alice","email":"alice@new.example.com"}`, aliceToken)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", status, raw)
		}
		u := envelope[domain.User](t, raw).Data
		if u.ModifiedBy == nil || *u.ModifiedBy != created.ID {
			t.Errorf("expected modified_by %s, got %v", created.ID, u.ModifiedBy)
		}
	})

	t.Run("list", func(t *testing.T) {
		status, raw := call(t, http.MethodGet, baseURL+"/users?page_size=10", "", adminToken)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		page := envelope[domain.Page[domain.User]](t, raw).Data
		if page.Total != 2 {
			t.Errorf("expected admin and alice, got %d users", page.Total)
		}
	})

	t.Run("delete", func(t *testing.T) {
		status, raw := call(t, http.MethodDelete, baseURL+"/users/"+created.ID, "", adminToken)
		if status != http.StatusNoContent || len(raw) != 0 {
			t.Fatalf("expected empty 204, got %d %q", status, raw)
		}
		status, _ = call(t, http.MethodGet, baseURL+"/users/"+created.ID, "", adminToken)
		if status != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", status)
		}
	})

	t.Run("deleted user can no longer log in", func(t *testing.T) {
		status, _ := call(t, http.MethodPost, baseURL+"/auth/login", `{"client_id":"alice","client_secret":"alice-pw"}`, "")
		if status != http.StatusNotFound {
			t.Errorf("expected 404, got %d", status)
		}
	})
}

func TestPipelineRejections(t *testing.T) {
	baseURL := startServer(t)
	adminToken := login(t, baseURL, adminUser, adminPassword)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		bearer   string
		wantCode int
		wantMsg  string
	}{
		{"no token", http.MethodGet, "/users", "", "", 401, "Invalid token"},
		{"expired token", http.MethodGet, "/users", "", testutil.IssueTestToken(t, "x", -time.Minute), 401, "Invalid token"},
		{"foreign signature", http.MethodGet, "/users", "", "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ4In0.", 401, "Invalid token"},
		{"script in query without token", http.MethodGet, "/users?x=%3Cscript%3E", "", "", 403, "Forbidden request"},
		{"script in query with token", http.MethodGet, "/users?x=%3Cscript%3E", "", adminToken, 403, "Forbidden request"},
		{"script in body", http.MethodPost, "/users", `{"username":"<script>alert(1)</script>","email":"a@b.co"}`, adminToken, 403, "Forbidden request"},
		{"script in login body", http.MethodPost, "/auth/login", `{"client_id":"<SCRIPT src=x>","client_secret":"x"}`, "", 403, "Forbidden request"},
		{"invalid email", http.MethodPost, "/users", `{"username":"bob","email":"nope"}`, adminToken, 400, "Validation error: Invalid email format"},
		{"missing credentials", http.MethodPost, "/auth/login", `{"client_id":"","client_secret":""}`, "", 400, "Missing credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := call(t, tt.method, baseURL+tt.path, tt.body, tt.bearer)
			if status != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, status, raw)
			}
			resp := envelope[struct{}](t, raw)
			if resp.Message != tt.wantMsg || resp.Status != tt.wantCode || resp.Data != nil {
				t.Errorf("unexpected envelope %+v", resp)
			}
		})
	}
}

func TestPlainTextRoutes(t *testing.T) {
	baseURL := startServer(t)

	status, raw := call(t, http.MethodGet, baseURL+"/health", "", "")
	if status != http.StatusOK || string(raw) != "OK" {
		t.Errorf("health: expected 200 OK, got %d %q", status, raw)
	}

	status, raw = call(t, http.MethodGet, baseURL+"/does/not/exist", "", "")
	if status != http.StatusNotFound || string(raw) != "Not Found" {
		t.Errorf("fallback: expected 404 Not Found, got %d %q", status, raw)
	}
}

func TestRequestID(t *testing.T) {
	baseURL := startServer(t)

	t.Run("propagated", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, baseURL+"/health", nil)
		req.Header.Set("X-Request-ID", "custom-req-id")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.Header.Get("X-Request-ID") != "custom-req-id" {
			t.Errorf("expected custom-req-id, got %q", resp.Header.Get("X-Request-ID"))
		}
	})

	t.Run("generated when missing", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.Header.Get("X-Request-ID") == "" {
			t.Error("expected auto-generated X-Request-ID")
		}
	})
}

func TestCORS(t *testing.T) {
	baseURL := startServer(t, func(c *router.Config) {
		c.CORSOrigins = []string{"https://app.example.com"}
	})

	t.Run("allowed origin gets headers", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, baseURL+"/health", nil)
		req.Header.Set("Origin", "https://app.example.com")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.Header.Get("Access-Control-Allow-Origin") != "https://app.example.com" {
			t.Errorf("expected allow-origin header, got %q", resp.Header.Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodOptions, baseURL+"/users", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			t.Errorf("expected successful preflight, got %d", resp.StatusCode)
		}
		if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost) {
			t.Errorf("expected POST allowed, got %q", resp.Header.Get("Access-Control-Allow-Methods"))
		}
	})

	t.Run("unknown origin rejected", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, baseURL+"/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	})
}

type slowUsers struct {
	*service.Users
}

func (slowUsers) Get(ctx context.Context, _ string) (domain.User, error) {
	<-ctx.Done()
	return domain.User{}, ctx.Err()
}

func TestRequestTimeout(t *testing.T) {
	baseURL := startServer(t, func(c *router.Config) {
		c.RequestTimeout = 100 * time.Millisecond
		c.Users = slowUsers{Users: c.Users.(*service.Users)}
	})
	token := testutil.IssueTestToken(t, "admin-1", time.Hour)

	start := time.Now()
	status, raw := call(t, http.MethodGet, baseURL+"/users/some-id", "", token)
	if status != http.StatusRequestTimeout {
		t.Fatalf("expected 408, got %d: %s", status, raw)
	}
	if msg := envelope[struct{}](t, raw).Message; msg != "request timed out" {
		t.Errorf("unexpected message %q", msg)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}

	// The listing path is unaffected and still served within the deadline.
	status, _ = call(t, http.MethodGet, baseURL+"/users", "", token)
	if status != http.StatusOK {
		t.Errorf("expected 200 for list, got %d", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	baseURL := startServer(t)

	call(t, http.MethodGet, baseURL+"/users?x=%3Cscript%3E", "", "")
	call(t, http.MethodGet, baseURL+"/users", "", "")
	login(t, baseURL, adminUser, adminPassword)

	status, raw := call(t, http.MethodGet, baseURL+"/metrics", "", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	for _, name := range []string{
		"userapi_http_requests",
		"userapi_content_rejections",
		"userapi_auth_validations",
		"userapi_tokens_issued",
	} {
		if !bytes.Contains(raw, []byte(name)) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}
