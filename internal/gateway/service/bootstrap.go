package service

import (
	"context"
	"fmt"
	"log/slog"

	"userapi/internal/domain"
	"userapi/internal/gateway"
)

// Bootstrap ensures an initial account with a password exists so a fresh
// store can issue its first token. An account that already exists is left
// untouched.
func Bootstrap(ctx context.Context, users gateway.UserService, auth gateway.AuthService, username, email, password string) error {
	existing, _, err := users.List(ctx, domain.UserFilter{Username: username}, domain.PageRequest{Page: 1, PageSize: domain.MaxPageSize})
	if err != nil {
		return fmt.Errorf("looking up %s: %w", username, err)
	}
	for _, u := range existing {
		if u.Username == username {
			slog.InfoContext(ctx, "bootstrap user already present", "user_id", u.ID)
			return nil
		}
	}

	u, err := users.Create(ctx, domain.UserInput{Username: username, Email: email, ModifiedBy: "bootstrap"})
	if err != nil {
		return fmt.Errorf("creating %s: %w", username, err)
	}
	if err := auth.Register(ctx, domain.RegisterInput{UserID: u.ID, Password: password}); err != nil {
		return fmt.Errorf("registering %s: %w", username, err)
	}
	slog.InfoContext(ctx, "bootstrap user created", "user_id", u.ID, "username", username)
	return nil
}
