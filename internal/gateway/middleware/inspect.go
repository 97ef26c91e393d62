package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"unicode/utf8"

	"userapi/internal/domain"
	gw "userapi/internal/gateway"
	"userapi/internal/gateway/adapter/patterns"
	"userapi/internal/platform/telemetry"
)

// InspectOptions configures one Inspect stage.
type InspectOptions struct {
	// LogBodies logs text request bodies at info level.
	LogBodies bool
	// LogResponses buffers text response bodies and logs them at debug
	// level. It has no effect unless the logger has debug enabled.
	LogResponses bool
	// MaxBodyBytes caps request body buffering; 0 means unlimited.
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// Inspect returns a middleware that rejects requests whose query string or
// text body matches any pattern in set.
//
// The query is checked before the body is read. The body is buffered in
// full and handed downstream unchanged. Bodies that are not valid UTF-8
// are passed through without matching; handlers accepting binary uploads
// validate those themselves. Response bodies are never rejected, only
// logged.
func Inspect(set *patterns.Set, opts InspectOptions, m *telemetry.Metrics) Middleware {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := gw.RequestIDFromContext(ctx)

			if forbiddenQuery(set, r.URL.RawQuery) {
				m.RecordContentRejection(ctx, "query")
				gw.WriteError(w, r, domain.ErrForbidden)
				return
			}

			body, err := readBody(w, r, opts.MaxBodyBytes)
			if err != nil {
				gw.WriteError(w, r, domain.ValidationError("failed to read request body: "+err.Error()))
				return
			}

			if utf8.Valid(body) {
				if opts.LogBodies && len(body) > 0 {
					logger.InfoContext(ctx, "request body", "body", string(body), "request_id", reqID)
				}
				if set.Match(body) {
					m.RecordContentRejection(ctx, "body")
					gw.WriteError(w, r, domain.ErrForbidden)
					return
				}
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			r.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(body)), nil
			}

			if !opts.LogResponses || !logger.Enabled(ctx, slog.LevelDebug) {
				next.ServeHTTP(w, r)
				return
			}

			tee := &teeWriter{ResponseWriter: w}
			next.ServeHTTP(tee, r)
			if out := tee.buf.Bytes(); len(out) > 0 && utf8.Valid(out) {
				logger.DebugContext(ctx, "response body", "body", string(out), "request_id", reqID)
			}
		})
	}
}

// forbiddenQuery checks the raw query and its percent-decoded form.
func forbiddenQuery(set *patterns.Set, raw string) bool {
	if raw == "" {
		return false
	}
	if set.MatchString(raw) {
		return true
	}
	decoded, err := url.QueryUnescape(raw)
	return err == nil && decoded != raw && set.MatchString(decoded)
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return []byte{}, nil
	}
	defer r.Body.Close()
	var src io.Reader = r.Body
	if limit > 0 {
		src = http.MaxBytesReader(w, r.Body, limit)
	}
	return io.ReadAll(src)
}

// teeWriter copies everything written to the client into buf.
type teeWriter struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (t *teeWriter) Write(p []byte) (int, error) {
	t.buf.Write(p)
	return t.ResponseWriter.Write(p)
}
