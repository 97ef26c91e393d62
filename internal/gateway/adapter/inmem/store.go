// Package inmem provides map-backed repositories used when no database is
// configured and in tests. Semantics mirror the postgres adapter: usernames
// are unique and a credential row requires an existing user.
package inmem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"userapi/internal/domain"
	"userapi/internal/gateway"
)

// Store holds users and credentials behind one lock.
type Store struct {
	now func() time.Time

	mu    sync.RWMutex
	users map[string]domain.User
	creds map[string]string // user id -> password hash
}

// NewStore creates an empty store. clock is injectable for deterministic
// testing; nil means time.Now.
func NewStore(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		now:   clock,
		users: make(map[string]domain.User),
		creds: make(map[string]string),
	}
}

// Users returns the store as a gateway.UserRepository.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Credentials returns the store as a gateway.AuthRepository.
func (s *Store) Credentials() *AuthRepository { return &AuthRepository{s: s} }

// UserRepository implements gateway.UserRepository.
type UserRepository struct{ s *Store }

func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.User{}, gateway.ErrRecordNotFound
	}
	return u, nil
}

func (r *UserRepository) FindList(ctx context.Context, f domain.UserFilter, page domain.PageRequest) ([]domain.User, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.RLock()
	matched := make([]domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if matches(u, f) {
			matched = append(matched, u)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		ti, tj := createdAt(matched[i]), createdAt(matched[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	off := page.Offset()
	if off < 0 || off >= len(matched) {
		return []domain.User{}, total, nil
	}
	end := min(off+page.Limit(), len(matched))
	return matched[off:end], total, nil
}

func (r *UserRepository) Create(ctx context.Context, in domain.UserInput) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.usernameTaken(in.Username, "") {
		return domain.User{}, gateway.ErrConflict
	}
	now := r.s.now().UTC()
	u := domain.User{
		ID:         uuid.NewString(),
		Username:   in.Username,
		Email:      strPtr(in.Email),
		CreatedBy:  strPtr(in.ModifiedBy),
		CreatedAt:  &now,
		ModifiedBy: strPtr(in.ModifiedBy),
		ModifiedAt: &now,
	}
	r.s.users[u.ID] = u
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, in domain.UserInput) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.User{}, gateway.ErrRecordNotFound
	}
	if r.s.usernameTaken(in.Username, id) {
		return domain.User{}, gateway.ErrConflict
	}
	now := r.s.now().UTC()
	u.Username = in.Username
	u.Email = strPtr(in.Email)
	u.ModifiedBy = strPtr(in.ModifiedBy)
	u.ModifiedAt = &now
	r.s.users[id] = u
	return u, nil
}

// Delete removes the user and cascades to its credentials.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return gateway.ErrRecordNotFound
	}
	delete(r.s.users, id)
	delete(r.s.creds, id)
	return nil
}

// AuthRepository implements gateway.AuthRepository.
type AuthRepository struct{ s *Store }

func (r *AuthRepository) FindByUsername(ctx context.Context, username string) (domain.UserAuth, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserAuth{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for id, u := range r.s.users {
		if u.Username != username {
			continue
		}
		hash, ok := r.s.creds[id]
		if !ok {
			break
		}
		return domain.UserAuth{UserID: id, PasswordHash: hash}, nil
	}
	return domain.UserAuth{}, gateway.ErrRecordNotFound
}

func (r *AuthRepository) Create(ctx context.Context, a domain.UserAuth) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[a.UserID]; !ok {
		return gateway.ErrRecordNotFound
	}
	if _, ok := r.s.creds[a.UserID]; ok {
		return gateway.ErrConflict
	}
	r.s.creds[a.UserID] = a.PasswordHash
	return nil
}

// usernameTaken reports whether another user than except owns name.
// Callers hold the lock.
func (s *Store) usernameTaken(name, except string) bool {
	for id, u := range s.users {
		if id != except && u.Username == name {
			return true
		}
	}
	return false
}

func matches(u domain.User, f domain.UserFilter) bool {
	if f.ID != "" && u.ID != f.ID {
		return false
	}
	if f.Username != "" && !strings.Contains(u.Username, f.Username) {
		return false
	}
	if f.Email != "" && (u.Email == nil || *u.Email != f.Email) {
		return false
	}
	return true
}

func createdAt(u domain.User) time.Time {
	if u.CreatedAt == nil {
		return time.Time{}
	}
	return *u.CreatedAt
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
