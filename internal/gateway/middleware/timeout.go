package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gw "userapi/internal/gateway"
	"userapi/internal/platform/telemetry"
)

// Timeout returns a middleware that bounds the whole downstream chain by d.
// The handler runs in its own goroutine against a buffered writer; if the
// deadline passes first the buffered output is discarded, the client gets
// a 408 envelope and the handler is left to observe ctx.Done on its own.
// Panics in the handler goroutine are re-raised on the serving goroutine,
// or logged once the response has already gone out. A request whose client
// went away gets a bodiless 499.
func Timeout(d time.Duration, m *telemetry.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{header: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						if !tw.handOff(panicked, p) {
							logLatePanic(r, p)
						}
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
				tw.flushTo(w)
			case <-ctx.Done():
				tw.abandon()
				select {
				case p := <-panicked:
					logLatePanic(r, p)
				default:
				}

				err := ctx.Err()
				if errors.Is(err, context.Canceled) {
					slog.InfoContext(r.Context(), "request cancelled by client",
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", gw.RequestIDFromContext(r.Context()),
					)
					w.WriteHeader(StatusClientClosedRequest)
					return
				}
				m.RecordTimeout(r.Context(), r.URL.Path)
				gw.WriteUntypedError(w, r, err)
			}
		})
	}
}

// StatusClientClosedRequest is recorded for requests whose client
// disconnected before the response was ready.
const StatusClientClosedRequest = 499

func logLatePanic(r *http.Request, p any) {
	slog.ErrorContext(r.Context(), "panic after request timed out",
		"error", p,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", gw.RequestIDFromContext(r.Context()),
	)
}

// timeoutWriter buffers a response until the handler finishes. Writes
// after abandon fail with http.ErrHandlerTimeout.
type timeoutWriter struct {
	header http.Header

	mu          sync.Mutex
	buf         bytes.Buffer
	code        int
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.header }

func (tw *timeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wroteHeader {
		tw.writeHeaderLocked(http.StatusOK)
	}
	return tw.buf.Write(p)
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	tw.wroteHeader = true
	tw.code = code
}

// handOff passes a handler panic to the serving goroutine unless the
// response was already abandoned.
func (tw *timeoutWriter) handOff(ch chan<- any, p any) bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return false
	}
	ch <- p
	return true
}

func (tw *timeoutWriter) abandon() {
	tw.mu.Lock()
	tw.timedOut = true
	tw.mu.Unlock()
}

// flushTo copies the buffered response to w. Only called after the
// handler returned, so header is no longer mutated.
func (tw *timeoutWriter) flushTo(w http.ResponseWriter) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	dst := w.Header()
	for k, vv := range tw.header {
		dst[k] = vv
	}
	if !tw.wroteHeader {
		tw.code = http.StatusOK
	}
	w.WriteHeader(tw.code)
	w.Write(tw.buf.Bytes())
}
