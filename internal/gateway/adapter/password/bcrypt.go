package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMismatch means the password does not match the stored hash.
	ErrMismatch = errors.New("password mismatch")
	// ErrTooLong is returned by Hash for passwords over bcrypt's 72 byte limit.
	ErrTooLong = bcrypt.ErrPasswordTooLong
)

// Hasher implements gateway.PasswordHasher with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher creates a bcrypt hasher. Costs outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare returns nil on a match and ErrMismatch otherwise. A corrupt
// stored hash is reported as its own error.
func (h *Hasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
