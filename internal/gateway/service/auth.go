// Package service implements the registration, login and user-management
// use cases on top of the repository ports. Every error it returns is a
// taxonomy error ready for gateway.WriteError.
package service

import (
	"context"
	"errors"
	"log/slog"

	"userapi/internal/domain"
	"userapi/internal/gateway"
	"userapi/internal/gateway/adapter/password"
)

// Auth implements gateway.AuthService.
type Auth struct {
	creds  gateway.AuthRepository
	hasher gateway.PasswordHasher
	tokens gateway.TokenIssuer
}

func NewAuth(creds gateway.AuthRepository, hasher gateway.PasswordHasher, tokens gateway.TokenIssuer) *Auth {
	return &Auth{creds: creds, hasher: hasher, tokens: tokens}
}

// Register stores a password hash for an existing user.
func (s *Auth) Register(ctx context.Context, in domain.RegisterInput) error {
	if in.UserID == "" || in.Password == "" {
		return domain.ErrMissingCredentials
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return domain.ValidationError("password must be at most 72 bytes")
		}
		return domain.Internal(err)
	}

	err = s.creds.Create(ctx, domain.UserAuth{UserID: in.UserID, PasswordHash: hash})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gateway.ErrRecordNotFound):
		return domain.NotFound("User not found")
	case errors.Is(err, gateway.ErrConflict):
		return domain.ValidationError("credentials already registered for this user")
	default:
		return domain.DatabaseError(err)
	}
}

// Login checks the username/password pair and issues an access token.
func (s *Auth) Login(ctx context.Context, in domain.AuthPayload) (domain.AuthBody, error) {
	if in.ClientID == "" || in.ClientSecret == "" {
		return domain.AuthBody{}, domain.ErrMissingCredentials
	}

	stored, err := s.creds.FindByUsername(ctx, in.ClientID)
	if err != nil {
		if errors.Is(err, gateway.ErrRecordNotFound) {
			return domain.AuthBody{}, domain.NotFound("User not found")
		}
		return domain.AuthBody{}, domain.DatabaseError(err)
	}

	if err := s.hasher.Compare(stored.PasswordHash, in.ClientSecret); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			slog.ErrorContext(ctx, "stored password hash unusable", "user_id", stored.UserID, "error", err)
		}
		return domain.AuthBody{}, domain.ErrWrongCredentials
	}

	tok, err := s.tokens.Issue(stored.UserID)
	if err != nil {
		if domain.KindOf(err) == domain.KindTokenCreation {
			return domain.AuthBody{}, err
		}
		return domain.AuthBody{}, domain.TokenCreation(err)
	}
	return domain.NewAuthBody(tok), nil
}
