package service

import (
	"context"
	"errors"

	"userapi/internal/domain"
	"userapi/internal/gateway"
)

// Users implements gateway.UserService.
type Users struct {
	repo gateway.UserRepository
}

func NewUsers(repo gateway.UserRepository) *Users {
	return &Users{repo: repo}
}

func (s *Users) Get(ctx context.Context, id string) (domain.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, mapRepoError(err)
	}
	return u, nil
}

func (s *Users) List(ctx context.Context, f domain.UserFilter, page domain.PageRequest) ([]domain.User, int64, error) {
	users, total, err := s.repo.FindList(ctx, f, page.Normalize())
	if err != nil {
		return nil, 0, domain.DatabaseError(err)
	}
	return users, total, nil
}

func (s *Users) Create(ctx context.Context, in domain.UserInput) (domain.User, error) {
	u, err := s.repo.Create(ctx, in)
	if err != nil {
		return domain.User{}, mapRepoError(err)
	}
	return u, nil
}

func (s *Users) Update(ctx context.Context, id string, in domain.UserInput) (domain.User, error) {
	u, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return domain.User{}, mapRepoError(err)
	}
	return u, nil
}

func (s *Users) Delete(ctx context.Context, id string) error {
	return mapRepoError(s.repo.Delete(ctx, id))
}

func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gateway.ErrRecordNotFound):
		return domain.NotFound("User not found")
	case errors.Is(err, gateway.ErrConflict):
		return domain.ValidationError("username already exists")
	default:
		return domain.DatabaseError(err)
	}
}
