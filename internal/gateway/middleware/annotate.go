package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

// AnnotateRoute records the matched chi route pattern for the stages that
// wrap the router (Metrics, Logging). Register it with Use on the chi mux:
// the pattern is read after routing, while the route context is still live.
func AnnotateRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if info := requestInfoFrom(r.Context()); info != nil {
				info.setRoute(rctx.RoutePattern())
			}
		}
	})
}

// requestInfo carries values discovered deep in the chain (route pattern,
// authenticated subject) back out to outer stages. Timeout runs the inner
// chain on another goroutine, hence the lock.
type requestInfo struct {
	mu      sync.Mutex
	route   string
	subject string
}

func (i *requestInfo) setRoute(p string) {
	i.mu.Lock()
	i.route = p
	i.mu.Unlock()
}

func (i *requestInfo) setSubject(s string) {
	i.mu.Lock()
	i.subject = s
	i.mu.Unlock()
}

func (i *requestInfo) get() (route, subject string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.route, i.subject
}

type requestInfoKey struct{}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

// withRequestInfo returns r carrying a requestInfo, reusing one installed
// by an outer stage.
func withRequestInfo(r *http.Request) (*http.Request, *requestInfo) {
	if info := requestInfoFrom(r.Context()); info != nil {
		return r, info
	}
	info := &requestInfo{}
	return r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)), info
}

func recordSubject(ctx context.Context, subject string) {
	if info := requestInfoFrom(ctx); info != nil {
		info.setSubject(subject)
	}
}
