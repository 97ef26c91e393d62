package gateway

import (
	"context"
	"errors"
	"net/http"

	"userapi/internal/domain"
)

// Repository sentinels. Adapters translate their driver errors to these so
// services never see storage-specific types.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrConflict       = errors.New("record already exists")
)

// TokenIssuer signs access tokens for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// TokenVerifier decodes and verifies a raw bearer token.
type TokenVerifier interface {
	Verify(raw string) (domain.Claims, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// UserRepository persists users.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (domain.User, error)
	FindList(ctx context.Context, filter domain.UserFilter, page domain.PageRequest) ([]domain.User, int64, error)
	Create(ctx context.Context, in domain.UserInput) (domain.User, error)
	Update(ctx context.Context, id string, in domain.UserInput) (domain.User, error)
	Delete(ctx context.Context, id string) error
}

// AuthRepository persists credentials.
type AuthRepository interface {
	FindByUsername(ctx context.Context, username string) (domain.UserAuth, error)
	Create(ctx context.Context, auth domain.UserAuth) error
}

// UserService is the user-management use case consumed by handlers.
// Errors are taxonomy errors.
type UserService interface {
	Get(ctx context.Context, id string) (domain.User, error)
	List(ctx context.Context, filter domain.UserFilter, page domain.PageRequest) ([]domain.User, int64, error)
	Create(ctx context.Context, in domain.UserInput) (domain.User, error)
	Update(ctx context.Context, id string, in domain.UserInput) (domain.User, error)
	Delete(ctx context.Context, id string) error
}

// AuthService registers credentials and logs users in.
type AuthService interface {
	Register(ctx context.Context, in domain.RegisterInput) error
	Login(ctx context.Context, in domain.AuthPayload) (domain.AuthBody, error)
}

// StatusWriter wraps http.ResponseWriter to capture the status code.
type StatusWriter struct {
	http.ResponseWriter
	Code int
}

func (sw *StatusWriter) WriteHeader(code int) {
	sw.Code = code
	sw.ResponseWriter.WriteHeader(code)
}

// ClaimsFromContext extracts the verified token claims from a request context.
func ClaimsFromContext(ctx context.Context) (domain.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(domain.Claims)
	return c, ok
}

// ContextWithClaims stores verified claims in the context.
func ContextWithClaims(ctx context.Context, c domain.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

type claimsKey struct{}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextWithRequestID stores the request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

type requestIDKey struct{}
