package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"userapi/internal/domain"
)

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// WriteResponse writes an envelope using its own status.
func WriteResponse[T any](w http.ResponseWriter, resp domain.Response[T]) {
	WriteJSON(w, resp.Status, resp)
}

// WriteError renders a taxonomy error as a failure envelope. Database
// failures and other 5xx causes are logged with full detail first.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := domain.Render(err)
	switch {
	case domain.KindOf(err) == domain.KindDatabase:
		slog.ErrorContext(r.Context(), "database error occurred",
			"error", err,
			"request_id", RequestIDFromContext(r.Context()),
		)
	case status >= http.StatusInternalServerError:
		slog.ErrorContext(r.Context(), "request failed",
			"status", status,
			"error", err,
			"request_id", RequestIDFromContext(r.Context()),
		)
	}
	WriteResponse(w, domain.Failure(status, msg))
}

// WriteUntypedError renders an error that escaped the typed chain: a
// deadline expiry becomes 408, anything else 500.
func WriteUntypedError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"
	if errors.Is(err, context.DeadlineExceeded) {
		status, msg = http.StatusRequestTimeout, "request timed out"
	}
	slog.ErrorContext(r.Context(), "request failed",
		"status", status,
		"error", err,
		"request_id", RequestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
	WriteResponse(w, domain.Failure(status, msg))
}
