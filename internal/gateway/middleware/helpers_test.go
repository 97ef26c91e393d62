package middleware_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"userapi/internal/domain"
)

// decodeEnvelope parses a response envelope, leaving data undecoded.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) domain.Response[json.RawMessage] {
	t.Helper()
	var env domain.Response[json.RawMessage]
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v\nraw: %s", err, rec.Body.String())
	}
	return env
}

func expectFailure(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Status != status {
		t.Errorf("expected envelope status %d, got %d", status, env.Status)
	}
	if env.Message != msg {
		t.Errorf("expected message %q, got %q", msg, env.Message)
	}
	if env.Data != nil {
		t.Errorf("expected null data, got %s", *env.Data)
	}
}
